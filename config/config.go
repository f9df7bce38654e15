package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"crev/providers/openai"
)

// Config holds the full application configuration, assembled from defaults,
// an optional crev-config file, environment variables, and CLI flags.
type Config struct {
	Version string
	Theme   string

	ChatProviderConfig *openai.OpenAIConfig

	// SubChatProviderConfig drives the cheaper single-shot paths (automatic
	// review, suggestions). Defaults to the main provider's model.
	SubChatProviderConfig *openai.OpenAIConfig

	Snapshot SnapshotConfig
	Engine   EngineConfig
	Sandbox  SandboxConfig
	Server   ServerConfig

	GitHubToken string
	GitLabToken string

	TraceDir string
	CacheDir string
}

// SnapshotConfig bounds what the repository snapshot may include.
type SnapshotConfig struct {
	MaxFileBytes  int
	MaxTotalBytes int
	IncludeGlobs  []string
	ExcludeGlobs  []string
}

// EngineConfig budgets the reasoning loop.
type EngineConfig struct {
	MaxIterations int
	MaxLLMCalls   int
	OutputLimit   int
}

// SandboxConfig names the interpreter command for model-produced code.
type SandboxConfig struct {
	Command     []string
	OutputLimit int
}

// ServerConfig addresses the HTTP API.
type ServerConfig struct {
	Host string
	Port int
}

// cfgFile holds the path of the config file provided via the --config flag.
var cfgFile string

// LoadConfigs reads the configuration in precedence order: defaults, then
// crev-config.yaml/json in the working directory (or --config), then
// environment, then flags.
func LoadConfigs(rootCmd *cobra.Command, cwd string) *Config {
	var config *Config

	viper.SetDefault("version", "1.0")
	viper.SetDefault("theme", "dracula")
	viper.SetDefault("provider.base_url", "https://api.openai.com/v1")
	viper.SetDefault("provider.model", "gpt-4o")
	viper.SetDefault("provider.sub_model", "")
	viper.SetDefault("provider.api_key", "")
	viper.SetDefault("provider.temperature", 0.2)
	viper.SetDefault("provider.request_timeout", 120)
	viper.SetDefault("snapshot.max_file_bytes", 200000)
	viper.SetDefault("snapshot.max_total_bytes", 5000000)
	viper.SetDefault("snapshot.include_globs", []string{})
	viper.SetDefault("snapshot.exclude_globs", []string{})
	viper.SetDefault("engine.max_iterations", 20)
	viper.SetDefault("engine.max_llm_calls", 25)
	viper.SetDefault("engine.output_limit", 5000)
	viper.SetDefault("sandbox.command", []string{"python3"})
	viper.SetDefault("sandbox.output_limit", 20000)
	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", 8399)
	viper.SetDefault("github_token", "")
	viper.SetDefault("gitlab_token", "")
	viper.SetDefault("trace_dir", defaultStateDir("traces"))
	viper.SetDefault("cache_dir", defaultStateDir("cache"))

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("crev-config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(cwd)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Println(fmt.Errorf("error reading config file: %v", err))
			os.Exit(1)
		}
	}

	bindEnv()
	bindFlags(rootCmd)

	config = &Config{
		Version: viper.GetString("version"),
		Theme:   viper.GetString("theme"),
		ChatProviderConfig: &openai.OpenAIConfig{
			BaseURL:        viper.GetString("provider.base_url"),
			Model:          viper.GetString("provider.model"),
			ApiKey:         viper.GetString("provider.api_key"),
			Temperature:    floatPtr(float32(viper.GetFloat64("provider.temperature"))),
			RequestTimeout: time.Duration(viper.GetInt("provider.request_timeout")) * time.Second,
		},
		SubChatProviderConfig: &openai.OpenAIConfig{
			BaseURL:        viper.GetString("provider.base_url"),
			Model:          subModel(),
			ApiKey:         viper.GetString("provider.api_key"),
			Temperature:    floatPtr(float32(viper.GetFloat64("provider.temperature"))),
			RequestTimeout: time.Duration(viper.GetInt("provider.request_timeout")) * time.Second,
		},
		Snapshot: SnapshotConfig{
			MaxFileBytes:  viper.GetInt("snapshot.max_file_bytes"),
			MaxTotalBytes: viper.GetInt("snapshot.max_total_bytes"),
			IncludeGlobs:  viper.GetStringSlice("snapshot.include_globs"),
			ExcludeGlobs:  viper.GetStringSlice("snapshot.exclude_globs"),
		},
		Engine: EngineConfig{
			MaxIterations: viper.GetInt("engine.max_iterations"),
			MaxLLMCalls:   viper.GetInt("engine.max_llm_calls"),
			OutputLimit:   viper.GetInt("engine.output_limit"),
		},
		Sandbox: SandboxConfig{
			Command:     viper.GetStringSlice("sandbox.command"),
			OutputLimit: viper.GetInt("sandbox.output_limit"),
		},
		Server: ServerConfig{
			Host: viper.GetString("server.host"),
			Port: viper.GetInt("server.port"),
		},
		GitHubToken: viper.GetString("github_token"),
		GitLabToken: viper.GetString("gitlab_token"),
		TraceDir:    viper.GetString("trace_dir"),
		CacheDir:    viper.GetString("cache_dir"),
	}

	return config
}

func bindEnv() {
	_ = viper.BindEnv("provider.api_key", "CREV_API_KEY", "OPENAI_API_KEY")
	_ = viper.BindEnv("provider.base_url", "CREV_BASE_URL")
	_ = viper.BindEnv("provider.model", "CREV_MODEL")
	_ = viper.BindEnv("provider.sub_model", "CREV_SUB_MODEL")
	_ = viper.BindEnv("github_token", "CREV_GITHUB_TOKEN", "GITHUB_TOKEN")
	_ = viper.BindEnv("gitlab_token", "CREV_GITLAB_TOKEN", "GITLAB_TOKEN")
	_ = viper.BindEnv("theme", "CREV_THEME")
}

func bindFlags(rootCmd *cobra.Command) {
	_ = viper.BindPFlag("provider.model", rootCmd.PersistentFlags().Lookup("model"))
	_ = viper.BindPFlag("provider.api_key", rootCmd.PersistentFlags().Lookup("api_key"))
	_ = viper.BindPFlag("theme", rootCmd.PersistentFlags().Lookup("theme"))
	_ = viper.BindPFlag("server.port", rootCmd.PersistentFlags().Lookup("port"))
}

// InitFlags registers the global flags shared by every subcommand. Call
// before LoadConfigs.
func InitFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Specifies the path to a configuration file")
	rootCmd.PersistentFlags().String("model", "", "Overrides the chat model")
	rootCmd.PersistentFlags().String("api_key", "", "API key for the chat provider")
	rootCmd.PersistentFlags().String("theme", "dracula", "Markdown theme (e.g. dracula, light)")
	rootCmd.PersistentFlags().Int("port", 8399, "HTTP server port")
}

func floatPtr(f float32) *float32 {
	return &f
}

func subModel() string {
	if m := viper.GetString("provider.sub_model"); m != "" {
		return m
	}
	return viper.GetString("provider.model")
}

// defaultStateDir places application state under ~/.crev.
func defaultStateDir(sub string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".crev", sub)
	}
	return filepath.Join(home, ".crev", sub)
}

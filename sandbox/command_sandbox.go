package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"crev/sandbox/contracts"
)

// VarsEnvKey names the environment variable that carries the path of the
// serialized variables file inside the interpreter process.
const VarsEnvKey = "CREV_VARS"

// CommandSandbox executes code by handing it to a configured interpreter
// command. The code is written to a temp file appended as the final argument,
// and the variables are serialized to JSON next to it.
type CommandSandbox struct {
	Command     []string
	OutputLimit int
}

// NewCommandSandbox creates a sandbox around the given interpreter command,
// e.g. []string{"python3"}. outputLimit truncates captured output; zero means
// no limit.
func NewCommandSandbox(command []string, outputLimit int) contracts.IExecutionSandbox {
	return &CommandSandbox{Command: command, OutputLimit: outputLimit}
}

func (s *CommandSandbox) Execute(ctx context.Context, code string, vars map[string]any) (string, error) {
	if len(s.Command) == 0 {
		return "", fmt.Errorf("sandbox command is not configured")
	}

	dir, err := os.MkdirTemp("", "crev-exec-")
	if err != nil {
		return "", fmt.Errorf("failed to create sandbox dir: %v", err)
	}
	defer os.RemoveAll(dir)

	codePath := filepath.Join(dir, "snippet")
	if err := os.WriteFile(codePath, []byte(code), 0o600); err != nil {
		return "", fmt.Errorf("failed to write code file: %v", err)
	}

	varsPath := filepath.Join(dir, "vars.json")
	varsData, err := json.Marshal(vars)
	if err != nil {
		return "", fmt.Errorf("failed to serialize variables: %v", err)
	}
	if err := os.WriteFile(varsPath, varsData, 0o600); err != nil {
		return "", fmt.Errorf("failed to write variables file: %v", err)
	}

	args := append(append([]string{}, s.Command[1:]...), codePath)
	cmd := exec.CommandContext(ctx, s.Command[0], args...)
	cmd.Env = append(os.Environ(), VarsEnvKey+"="+varsPath)
	cmd.Dir = dir

	out, err := cmd.CombinedOutput()
	output := strings.TrimRight(string(out), "\n")
	if s.OutputLimit > 0 && len(output) > s.OutputLimit {
		output = output[:s.OutputLimit] + "\n... (output truncated)"
	}
	if err != nil {
		if ctx.Err() != nil {
			return output, fmt.Errorf("execution cancelled: %v", ctx.Err())
		}
		return output, fmt.Errorf("execution failed: %v", err)
	}
	return output, nil
}

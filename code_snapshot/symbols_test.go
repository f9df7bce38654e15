package code_snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crev/code_snapshot/models"
)

func TestRegexScannerPython(t *testing.T) {
	content := "import os\n\nclass Loader:\n    def load(self):\n        pass\n\nasync def fetch():\n    pass\n"

	symbols := regexScanners["python"].Scan(content)

	assert.Contains(t, symbols, models.SymbolTag{Symbol: "os", Kind: "import", Line: 1})
	assert.Contains(t, symbols, models.SymbolTag{Symbol: "Loader", Kind: "class", Line: 3})
	assert.Contains(t, symbols, models.SymbolTag{Symbol: "load", Kind: "function", Line: 4})
	assert.Contains(t, symbols, models.SymbolTag{Symbol: "fetch", Kind: "function", Line: 7})
}

func TestRegexScannerGo(t *testing.T) {
	content := "package x\n\ntype Server struct {}\n\nfunc (s *Server) Start() error {\n\treturn nil\n}\n\nfunc New() *Server {\n\treturn nil\n}\n"

	symbols := regexScanners["go"].Scan(content)

	assert.Contains(t, symbols, models.SymbolTag{Symbol: "Server", Kind: "class", Line: 3})
	assert.Contains(t, symbols, models.SymbolTag{Symbol: "Start", Kind: "function", Line: 5})
	assert.Contains(t, symbols, models.SymbolTag{Symbol: "New", Kind: "function", Line: 9})
}

func TestRegexScannerRust(t *testing.T) {
	content := "pub struct Config {}\n\npub async fn run() {}\n\ntrait Runner {}\n"

	symbols := regexScanners["rust"].Scan(content)

	assert.Contains(t, symbols, models.SymbolTag{Symbol: "Config", Kind: "class", Line: 1})
	assert.Contains(t, symbols, models.SymbolTag{Symbol: "run", Kind: "function", Line: 3})
	assert.Contains(t, symbols, models.SymbolTag{Symbol: "Runner", Kind: "class", Line: 5})
}

func TestNormalizeSymbolsSortsAndDedupes(t *testing.T) {
	symbols := normalizeSymbols([]models.SymbolTag{
		{Symbol: "b", Kind: "function", Line: 5},
		{Symbol: "a", Kind: "function", Line: 5},
		{Symbol: "a", Kind: "class", Line: 5},
		{Symbol: "c", Kind: "function", Line: 1},
	})

	require.Len(t, symbols, 3)
	assert.Equal(t, "c", symbols[0].Symbol)
	assert.Equal(t, "a", symbols[1].Symbol)
	assert.Equal(t, "b", symbols[2].Symbol)
	// The first occurrence wins on a duplicate (symbol, line) key.
	assert.Equal(t, "function", symbols[1].Kind)
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, "python", DetectLanguage("src/app.py"))
	assert.Equal(t, "go", DetectLanguage("main.go"))
	assert.Equal(t, "dockerfile", DetectLanguage("Dockerfile"))
	assert.Equal(t, "ruby", DetectLanguage("Gemfile"))
	assert.Equal(t, "text", DetectLanguage("notes.unknownext"))
}

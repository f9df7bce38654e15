package code_snapshot

import (
	"regexp"
	"sort"
	"strings"

	"crev/code_snapshot/models"
)

// SymbolScanner extracts best-effort symbol tags from file content.
// Implementations are per-language capabilities: a regex scanner can be
// swapped for a real parser without touching the Snapshot contract.
type SymbolScanner interface {
	Scan(content string) []models.SymbolTag
}

type symbolRule struct {
	kind    string
	pattern *regexp.Regexp
}

// regexScanner tags symbols with line-anchored multiline patterns.
type regexScanner struct {
	rules []symbolRule
}

func (s *regexScanner) Scan(content string) []models.SymbolTag {
	var symbols []models.SymbolTag
	for _, rule := range s.rules {
		for _, loc := range rule.pattern.FindAllStringSubmatchIndex(content, -1) {
			if len(loc) < 4 || loc[2] < 0 {
				continue
			}
			name := content[loc[2]:loc[3]]
			line := strings.Count(content[:loc[0]], "\n") + 1
			symbols = append(symbols, models.SymbolTag{Symbol: name, Kind: rule.kind, Line: line})
		}
	}
	return normalizeSymbols(symbols)
}

// normalizeSymbols sorts tags by (line, symbol) and drops duplicates on that
// same key, keeping the first occurrence.
func normalizeSymbols(symbols []models.SymbolTag) []models.SymbolTag {
	sort.SliceStable(symbols, func(i, j int) bool {
		if symbols[i].Line != symbols[j].Line {
			return symbols[i].Line < symbols[j].Line
		}
		return symbols[i].Symbol < symbols[j].Symbol
	})

	type key struct {
		symbol string
		line   int
	}
	seen := make(map[key]bool, len(symbols))
	unique := symbols[:0]
	for _, s := range symbols {
		k := key{s.Symbol, s.Line}
		if seen[k] {
			continue
		}
		seen[k] = true
		unique = append(unique, s)
	}
	return unique
}

func newRegexScanner(rules ...symbolRule) SymbolScanner {
	return &regexScanner{rules: rules}
}

// regexScanners covers languages without a tree-sitter grammar wired in.
var regexScanners = map[string]SymbolScanner{
	"python": newRegexScanner(
		symbolRule{"function", regexp.MustCompile(`(?m)^\s*(?:async\s+)?def\s+(\w+)\s*\(`)},
		symbolRule{"class", regexp.MustCompile(`(?m)^\s*class\s+(\w+)\s*[:\(]`)},
		symbolRule{"import", regexp.MustCompile(`(?m)^\s*(?:from\s+\S+\s+)?import\s+(\w+)`)},
	),
	"javascript": newRegexScanner(
		symbolRule{"function", regexp.MustCompile(`(?m)^\s*(?:async\s+)?function\s+(\w+)\s*\(`)},
		symbolRule{"function", regexp.MustCompile(`(?m)^\s*(?:const|let|var)\s+(\w+)\s*=\s*(?:async\s+)?\(`)},
		symbolRule{"class", regexp.MustCompile(`(?m)^\s*class\s+(\w+)\s*(?:extends|{)`)},
		symbolRule{"export", regexp.MustCompile(`(?m)^\s*export\s+(?:default\s+)?(?:const|let|var|function|class)\s+(\w+)`)},
	),
	"typescript": newRegexScanner(
		symbolRule{"function", regexp.MustCompile(`(?m)^\s*(?:async\s+)?function\s+(\w+)\s*[<\(]`)},
		symbolRule{"function", regexp.MustCompile(`(?m)^\s*(?:const|let|var)\s+(\w+)\s*(?::\s*\S+\s*)?=\s*(?:async\s+)?\(`)},
		symbolRule{"class", regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:abstract\s+)?class\s+(\w+)`)},
		symbolRule{"export", regexp.MustCompile(`(?m)^\s*export\s+(?:default\s+)?(?:const|let|var|function|class|interface|type)\s+(\w+)`)},
	),
	"rust": newRegexScanner(
		symbolRule{"function", regexp.MustCompile(`(?m)^\s*(?:pub\s+)?(?:async\s+)?fn\s+(\w+)`)},
		symbolRule{"class", regexp.MustCompile(`(?m)^\s*(?:pub\s+)?struct\s+(\w+)`)},
		symbolRule{"class", regexp.MustCompile(`(?m)^\s*(?:pub\s+)?enum\s+(\w+)`)},
		symbolRule{"class", regexp.MustCompile(`(?m)^\s*(?:pub\s+)?trait\s+(\w+)`)},
	),
	"go": newRegexScanner(
		symbolRule{"function", regexp.MustCompile(`(?m)^\s*func\s+(?:\([^)]+\)\s+)?(\w+)\s*\(`)},
		symbolRule{"class", regexp.MustCompile(`(?m)^\s*type\s+(\w+)\s+struct`)},
		symbolRule{"class", regexp.MustCompile(`(?m)^\s*type\s+(\w+)\s+interface`)},
	),
}

// defaultScanners merges the tree-sitter backed scanners over the regex set.
// Tree-sitter wins where a grammar is wired; everything else stays regex.
func defaultScanners() map[string]SymbolScanner {
	scanners := make(map[string]SymbolScanner, len(regexScanners))
	for lang, s := range regexScanners {
		scanners[lang] = s
	}
	for lang, s := range treeSitterScanners() {
		scanners[lang] = s
	}
	return scanners
}

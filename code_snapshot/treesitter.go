package code_snapshot

import (
	"embed"
	"encoding/json"
	"log"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"crev/code_snapshot/models"
)

//go:embed queries/*.json
var queryFS embed.FS

// treeSitterScanner runs a set of tagged queries against a parse tree and
// reports each captured name with its line number.
type treeSitterScanner struct {
	language *sitter.Language
	queries  map[string]string // kind -> query source
}

func newTreeSitterScanner(language *sitter.Language, queryFile string) SymbolScanner {
	raw, err := queryFS.ReadFile("queries/" + queryFile)
	if err != nil {
		log.Printf("Warning: missing symbol query file %s: %v", queryFile, err)
		return nil
	}
	queries := make(map[string]string)
	if err := json.Unmarshal(raw, &queries); err != nil {
		log.Printf("Warning: invalid symbol query file %s: %v", queryFile, err)
		return nil
	}
	return &treeSitterScanner{language: language, queries: queries}
}

func (s *treeSitterScanner) Scan(content string) []models.SymbolTag {
	source := []byte(content)

	parser := sitter.NewParser()
	parser.SetLanguage(s.language)
	tree := parser.Parse(nil, source)
	defer tree.Close()

	var symbols []models.SymbolTag
	for kind, querySrc := range s.queries {
		query, err := sitter.NewQuery([]byte(querySrc), s.language)
		if err != nil {
			continue
		}

		cursor := sitter.NewQueryCursor()
		cursor.Exec(query, tree.RootNode())
		for {
			match, ok := cursor.NextMatch()
			if !ok {
				break
			}
			for _, capture := range match.Captures {
				symbols = append(symbols, models.SymbolTag{
					Symbol: capture.Node.Content(source),
					Kind:   kind,
					Line:   int(capture.Node.StartPoint().Row) + 1,
				})
			}
		}
		cursor.Close()
		query.Close()
	}

	return normalizeSymbols(symbols)
}

// treeSitterScanners wires the grammars with bindings available; the rest of
// the languages stay on the regex scanners.
func treeSitterScanners() map[string]SymbolScanner {
	wired := map[string]SymbolScanner{}
	add := func(lang string, scanner SymbolScanner) {
		if scanner != nil {
			wired[lang] = scanner
		}
	}
	add("go", newTreeSitterScanner(golang.GetLanguage(), "go.json"))
	add("python", newTreeSitterScanner(python.GetLanguage(), "python.json"))
	add("javascript", newTreeSitterScanner(javascript.GetLanguage(), "javascript.json"))
	add("typescript", newTreeSitterScanner(typescript.GetLanguage(), "typescript.json"))
	add("java", newTreeSitterScanner(java.GetLanguage(), "java.json"))
	add("csharp", newTreeSitterScanner(csharp.GetLanguage(), "csharp.json"))
	return wired
}

package code_snapshot

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"crev/code_snapshot/models"
)

// ErrInvalidRepository is returned when the snapshot root does not exist or
// is not a directory.
var ErrInvalidRepository = errors.New("invalid repository path")

// defaultIgnorePatterns are always excluded, matched against every path
// segment and against the full relative path.
var defaultIgnorePatterns = []string{
	"node_modules", ".venv", "venv", "__pycache__",
	".git", ".svn", ".hg",
	"dist", "build", ".next", ".nuxt", "target",
	"*.pyc", "*.pyo", "*.so", "*.dylib", "*.dll", "*.exe", "*.bin",
	"*.o", "*.a", "*.class", "*.jar", "*.war", "*.ear",
	"*.zip", "*.tar", "*.gz", "*.rar", "*.7z",
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.ico", "*.svg",
	"*.woff", "*.woff2", "*.ttf", "*.eot",
	"*.mp3", "*.mp4", "*.avi", "*.mov",
	"*.pdf", "*.doc", "*.docx", "*.xls", "*.xlsx", "*.ppt", "*.pptx",
	"*.lock", "package-lock.json", "yarn.lock", "pnpm-lock.yaml",
	"bun.lockb", "poetry.lock", "Cargo.lock",
	".DS_Store", "Thumbs.db",
}

// priorityPatterns select the files included first, before the total byte
// budget starts excluding: docs, manifests, build files, root-level source,
// and conventional source/test directories.
var priorityPatterns = []string{
	"README*", "readme*",
	"package.json", "pyproject.toml", "Cargo.toml", "go.mod",
	"requirements.txt", "setup.py", "setup.cfg",
	"Makefile", "Dockerfile", "docker-compose*.yml", ".env.example",
	"*.py", "*.ts", "*.js", "*.tsx", "*.jsx", "*.go", "*.rs", "*.java", "*.rb", "*.php",
	"src/**", "lib/**", "app/**", "pkg/**", "cmd/**",
	"tests/**", "test/**", "spec/**",
}

// Builder walks a repository and produces a bounded, prioritized Snapshot.
type Builder struct {
	MaxFileBytes  int64
	MaxTotalBytes int64
	IncludeGlobs  []string
	ExcludeGlobs  []string

	scanners map[string]SymbolScanner
	cache    *ScanCache
}

// NewBuilder creates a snapshot builder with the given byte budgets and an
// optional scan cache (nil disables caching).
func NewBuilder(maxFileBytes, maxTotalBytes int64, includeGlobs, excludeGlobs []string, cache *ScanCache) *Builder {
	return &Builder{
		MaxFileBytes:  maxFileBytes,
		MaxTotalBytes: maxTotalBytes,
		IncludeGlobs:  includeGlobs,
		ExcludeGlobs:  excludeGlobs,
		scanners:      defaultScanners(),
		cache:         cache,
	}
}

// Build walks root, filters and orders files, and includes them under the
// per-file and total byte budgets. Inclusion order is priority group first,
// alphabetical within each group, and forms a strict prefix of that order:
// once a file would push the total over budget, nothing after it is included.
func (b *Builder) Build(root string) (*models.Snapshot, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRepository, root)
	}
	info, err := os.Stat(absRoot)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRepository, absRoot)
	}

	matched, err := b.collectFiles(absRoot)
	if err != nil {
		return nil, err
	}

	sorted := b.sortByPriority(matched)

	snapshot := &models.Snapshot{
		RepoInfo: models.RepoInfo{
			Root:      absRoot,
			Languages: make(map[string]int),
		},
		FileTree: sorted,
		Files:    make(map[string]*models.FileEntry),
	}

	var totalBytes int64
	for _, relPath := range sorted {
		fullPath := filepath.Join(absRoot, relPath)

		stat, err := os.Stat(fullPath)
		if err != nil {
			continue
		}
		size := stat.Size()
		if size > b.MaxFileBytes {
			continue // oversized files are skipped, not counted
		}
		if totalBytes+size > b.MaxTotalBytes {
			break // strict prefix: a later, smaller file never takes this slot
		}

		content, err := os.ReadFile(fullPath)
		if err != nil {
			continue
		}
		if isBinary(content) || !utf8.Valid(content) {
			continue
		}

		language := DetectLanguage(relPath)
		entry := &models.FileEntry{
			RelativePath: relPath,
			Language:     language,
			SizeBytes:    size,
			SHA1:         computeSHA1(content),
			TextLines:    strings.Split(string(content), "\n"),
			Symbols:      b.scanSymbols(fullPath, content, language),
		}

		snapshot.Files[relPath] = entry
		snapshot.RepoInfo.Languages[language]++
		totalBytes += size
	}

	snapshot.RepoInfo.TotalFiles = len(snapshot.Files)
	snapshot.RepoInfo.TotalBytes = totalBytes
	return snapshot, nil
}

// collectFiles walks the tree, pruning denied directories without descending
// into them. Per-file stat/read errors are non-fatal.
func (b *Builder) collectFiles(absRoot string) ([]string, error) {
	var matched []string

	err := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == absRoot {
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if isDefaultIgnored(relPath) || matchesAnyGlob(relPath, b.ExcludeGlobs) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if len(b.IncludeGlobs) > 0 && !matchesAnyGlob(relPath, b.IncludeGlobs) {
			return nil
		}

		matched = append(matched, relPath)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk repository: %w", err)
	}
	return matched, nil
}

// sortByPriority orders priority-pattern matches first, each group sorted
// alphabetically by relative path.
func (b *Builder) sortByPriority(paths []string) []string {
	var priority, rest []string
	for _, p := range paths {
		if isPriorityFile(p) {
			priority = append(priority, p)
		} else {
			rest = append(rest, p)
		}
	}
	sort.Strings(priority)
	sort.Strings(rest)
	return append(priority, rest...)
}

func (b *Builder) scanSymbols(fullPath string, content []byte, language string) []models.SymbolTag {
	scanner, ok := b.scanners[language]
	if !ok {
		return nil
	}
	if b.cache != nil {
		if symbols, hit := b.cache.get(fullPath, content); hit {
			return symbols
		}
	}
	symbols := scanner.Scan(string(content))
	if b.cache != nil {
		b.cache.set(fullPath, content, symbols)
	}
	return symbols
}

func isDefaultIgnored(relPath string) bool {
	segments := strings.Split(relPath, "/")
	for _, pattern := range defaultIgnorePatterns {
		for _, segment := range segments {
			if ok, _ := filepath.Match(pattern, segment); ok {
				return true
			}
		}
		if ok, _ := filepath.Match(pattern, relPath); ok {
			return true
		}
	}
	return false
}

// matchesAnyGlob matches user include/exclude globs with fnmatch semantics:
// "*" crosses path separators, so "*.js" excludes "src/b.js" and "*.py"
// includes nested sources.
func matchesAnyGlob(relPath string, globs []string) bool {
	for _, glob := range globs {
		glob = strings.TrimSpace(glob)
		if glob == "" {
			continue
		}
		if fnmatchGlob(glob, relPath) {
			return true
		}
	}
	return false
}

var globRegexpCache sync.Map // pattern -> *regexp.Regexp

func fnmatchGlob(pattern, path string) bool {
	if cached, ok := globRegexpCache.Load(pattern); ok {
		return cached.(*regexp.Regexp).MatchString(path)
	}
	re, err := fnmatchRegexp(pattern)
	if err != nil {
		return false
	}
	globRegexpCache.Store(pattern, re)
	return re.MatchString(path)
}

// fnmatchRegexp translates a glob into an anchored regexp: "*" matches any
// run of characters including "/", "?" matches one character, and bracket
// classes pass through ("!" negates).
func fnmatchRegexp(pattern string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteString("(?s)^")
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteString(".")
		case '[':
			j := i + 1
			if j < len(pattern) && (pattern[j] == '!' || pattern[j] == '^') {
				j++
			}
			if j < len(pattern) && pattern[j] == ']' {
				j++
			}
			for j < len(pattern) && pattern[j] != ']' {
				j++
			}
			if j >= len(pattern) {
				sb.WriteString(`\[`)
				continue
			}
			class := pattern[i+1 : j]
			if strings.HasPrefix(class, "!") {
				class = "^" + class[1:]
			}
			sb.WriteString("[" + class + "]")
			i = j
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	sb.WriteString("$")
	return regexp.Compile(sb.String())
}

func isPriorityFile(relPath string) bool {
	base := filepath.Base(relPath)
	for _, pattern := range priorityPatterns {
		if matchGlob(pattern, relPath) || matchGlob(pattern, base) {
			return true
		}
	}
	return false
}

// matchGlob extends filepath.Match with "dir/**" patterns that cover an
// entire subtree.
func matchGlob(pattern, path string) bool {
	if strings.HasSuffix(pattern, "/**") {
		prefix := strings.TrimSuffix(pattern, "/**")
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	}
	ok, _ := filepath.Match(pattern, path)
	return ok
}

// isBinary sniffs for a NUL byte in the first 8KB.
func isBinary(content []byte) bool {
	head := content
	if len(head) > 8192 {
		head = head[:8192]
	}
	return bytes.IndexByte(head, 0) >= 0
}

func computeSHA1(content []byte) string {
	sum := sha1.Sum(content)
	return hex.EncodeToString(sum[:])
}

// Package scanner runs heuristic project discovery: a one-shot scan of
// the project's source tree that seeds the knowledge store with entries
// about languages, HTTP routes, and public API surface.
//
// Discovery is additive and cheap to redo. Entries it produces carry
// source "discovery" and dedup like any other content, so repeated runs
// converge instead of duplicating.
package scanner

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/recallkb/recall/internal/errors"
	"github.com/recallkb/recall/internal/memory"
	"github.com/recallkb/recall/internal/meta"
	"github.com/recallkb/recall/internal/store"
)

// maxFileBytes bounds how much of a single source file is scanned.
const maxFileBytes = 512 * 1024

// languageByExt maps source extensions to language names.
var languageByExt = map[string]string{
	".go":   "Go",
	".ts":   "TypeScript",
	".tsx":  "TypeScript",
	".js":   "JavaScript",
	".jsx":  "JavaScript",
	".py":   "Python",
	".rs":   "Rust",
	".java": "Java",
	".rb":   "Ruby",
}

// skipDirs are directories never worth scanning.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"target":       true,
}

var (
	// routePattern matches common HTTP route registrations across the
	// supported languages (mux.HandleFunc, router.GET, app.post, ...).
	routePattern = regexp.MustCompile(`(?i)\.(?:Handle(?:Func)?|GET|POST|PUT|PATCH|DELETE|get|post|put|patch|delete)\(\s*["'](/[^"']*)["']`)

	// goExportPattern matches exported top-level Go declarations.
	goExportPattern = regexp.MustCompile(`^func\s+(?:\([^)]*\)\s+)?([A-Z]\w*)\(|^type\s+([A-Z]\w*)\s`)

	// jsExportPattern matches explicit exports in JS/TS sources.
	jsExportPattern = regexp.MustCompile(`^export\s+(?:default\s+)?(?:async\s+)?(?:function|class|const|interface|type)\s+(\w+)`)

	// pyExportPattern matches top-level Python defs and classes. An
	// underscore prefix marks them private by convention, so the name
	// must start with a letter.
	pyExportPattern = regexp.MustCompile(`^(?:def|class)\s+([A-Za-z]\w*)`)

	// rustExportPattern matches pub items at the top level.
	rustExportPattern = regexp.MustCompile(`^pub\s+(?:async\s+)?(?:fn|struct|enum|trait|type|const)\s+(\w+)`)

	// javaExportPattern matches public type declarations.
	javaExportPattern = regexp.MustCompile(`^\s*public\s+(?:static\s+|final\s+|abstract\s+)*(?:class|interface|enum|record)\s+(\w+)`)

	// rubyExportPattern matches top-level classes and modules.
	rubyExportPattern = regexp.MustCompile(`^(?:class|module)\s+([A-Z]\w*)`)
)

// Result summarizes one discovery run.
type Result struct {
	FilesScanned   int
	Languages      map[string]int // language -> file count
	Routes         []string
	EntriesCreated int
}

// Scanner walks a project tree and writes discovery entries.
type Scanner struct {
	projectRoot string
	entries     store.VectorStore
	keywords    store.KeywordIndex
	meta        *meta.Store
	logger      *slog.Logger
}

// New creates a discovery scanner. The keyword index may be nil.
func New(projectRoot string, entries store.VectorStore, keywords store.KeywordIndex, metaStore *meta.Store, logger *slog.Logger) (*Scanner, error) {
	if projectRoot == "" {
		return nil, errors.ValidationError("project root is required", nil)
	}
	if entries == nil {
		return nil, errors.InternalError("entry store is required", nil)
	}
	if metaStore == nil {
		return nil, errors.InternalError("meta store is required", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		projectRoot: projectRoot,
		entries:     entries,
		keywords:    keywords,
		meta:        metaStore,
		logger:      logger,
	}, nil
}

// Run scans the project, stores discovery entries, and marks discovery
// complete in the meta record.
func (s *Scanner) Run(ctx context.Context) (*Result, error) {
	result := &Result{Languages: map[string]int{}}

	type fileFacts struct {
		relPath string
		exports []string
	}
	var facts []fileFacts

	err := filepath.WalkDir(s.projectRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if path != s.projectRoot && (skipDirs[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}

		lang, ok := languageByExt[strings.ToLower(filepath.Ext(name))]
		if !ok {
			return nil
		}
		rel, relErr := filepath.Rel(s.projectRoot, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		result.FilesScanned++
		result.Languages[lang]++

		routes, exports := s.scanFile(path, lang)
		result.Routes = append(result.Routes, routes...)
		if len(exports) > 0 {
			facts = append(facts, fileFacts{relPath: rel, exports: exports})
		}
		return nil
	})
	if err != nil {
		return nil, errors.StorageError("walk project tree", err)
	}

	sort.Strings(result.Routes)
	result.Routes = dedupStrings(result.Routes)

	var contents []string
	if summary := languageSummary(result.Languages); summary != "" {
		contents = append(contents, summary)
	}
	if len(result.Routes) > 0 {
		contents = append(contents, "HTTP routes exposed by this project:\n- "+
			strings.Join(result.Routes, "\n- "))
	}
	for _, f := range facts {
		contents = append(contents, fmt.Sprintf("Public API of %s: %s",
			f.relPath, strings.Join(f.exports, ", ")))
	}

	for _, content := range contents {
		entry := &memory.Entry{
			Content: content,
			Metadata: memory.Metadata{
				Category: memory.CategoryDiscovery,
				Source:   memory.SourceDiscovery,
			},
		}
		stored, err := s.entries.Add(ctx, entry)
		if err != nil {
			return nil, err
		}
		result.EntriesCreated++

		if s.keywords != nil {
			if err := s.keywords.Add(ctx, stored); err != nil {
				s.logger.Warn("keyword_mirror_failed",
					slog.String("id", stored.ID),
					slog.String("error", err.Error()))
			}
		}
	}

	if err := s.meta.SetDiscoveryComplete(true); err != nil {
		return nil, err
	}
	if err := s.meta.Save(); err != nil {
		return nil, err
	}

	s.logger.Info("discovery_finished",
		slog.Int("files_scanned", result.FilesScanned),
		slog.Int("entries_created", result.EntriesCreated))
	return result, nil
}

// scanFile extracts routes and exported declarations from one source
// file. Read failures are logged and yield nothing.
func (s *Scanner) scanFile(path, lang string) (routes, exports []string) {
	f, err := os.Open(path)
	if err != nil {
		s.logger.Warn("scan_read_failed", slog.String("path", path), slog.String("error", err.Error()))
		return nil, nil
	}
	defer f.Close()

	var read int
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		read += len(line)
		if read > maxFileBytes {
			break
		}

		if m := routePattern.FindStringSubmatch(line); m != nil {
			routes = append(routes, m[1])
		}

		switch lang {
		case "Go":
			if m := goExportPattern.FindStringSubmatch(line); m != nil {
				if m[1] != "" {
					exports = append(exports, m[1])
				} else {
					exports = append(exports, m[2])
				}
			}
		case "TypeScript", "JavaScript":
			if m := jsExportPattern.FindStringSubmatch(line); m != nil {
				exports = append(exports, m[1])
			}
		case "Python":
			if m := pyExportPattern.FindStringSubmatch(line); m != nil {
				exports = append(exports, m[1])
			}
		case "Rust":
			if m := rustExportPattern.FindStringSubmatch(line); m != nil {
				exports = append(exports, m[1])
			}
		case "Java":
			if m := javaExportPattern.FindStringSubmatch(line); m != nil {
				exports = append(exports, m[1])
			}
		case "Ruby":
			if m := rubyExportPattern.FindStringSubmatch(line); m != nil {
				exports = append(exports, m[1])
			}
		}
	}
	return routes, exports
}

// languageSummary renders the language mix as one discovery fact.
func languageSummary(languages map[string]int) string {
	if len(languages) == 0 {
		return ""
	}

	type langCount struct {
		name  string
		count int
	}
	counts := make([]langCount, 0, len(languages))
	total := 0
	for name, n := range languages {
		counts = append(counts, langCount{name, n})
		total += n
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].name < counts[j].name
	})

	parts := make([]string, len(counts))
	for i, lc := range counts {
		parts[i] = fmt.Sprintf("%s (%d%%)", lc.name, lc.count*100/total)
	}
	return "Languages used in this project: " + strings.Join(parts, ", ")
}

func dedupStrings(in []string) []string {
	out := in[:0]
	var prev string
	for i, s := range in {
		if i == 0 || s != prev {
			out = append(out, s)
		}
		prev = s
	}
	return out
}

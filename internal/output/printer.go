// Package output renders CLI results: styled text on interactive
// terminals, plain text on pipes, JSON on request.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/recallkb/recall/internal/errors"
	"github.com/recallkb/recall/internal/index"
	"github.com/recallkb/recall/internal/store"
)

// Format selects the output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat maps a user-supplied string to a Format.
// Empty input falls back to FormatText.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", errors.ValidationError(fmt.Sprintf("unknown output format %q", s), nil)
	}
}

// Printer renders results to a writer.
type Printer struct {
	out    io.Writer
	format Format
	styles Styles
}

// NewPrinter creates a printer for out. Styling is enabled only when
// out is an interactive terminal and the format is text.
func NewPrinter(out io.Writer, format Format) *Printer {
	styles := PlainStyles()
	if format == FormatText && isTerminal(out) {
		styles = DefaultStyles()
	}
	return &Printer{out: out, format: format, styles: styles}
}

func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// SearchResults renders ranked search hits.
func (p *Printer) SearchResults(results []store.ScoredEntry) error {
	if p.format == FormatJSON {
		return p.renderJSON(results)
	}

	if len(results) == 0 {
		fmt.Fprintln(p.out, "No results.")
		return nil
	}

	for i, r := range results {
		title := r.Entry.Metadata.SectionTitle
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(p.out, "%s %s %s\n",
			p.styles.Header.Render(fmt.Sprintf("%d.", i+1)),
			p.styles.Title.Render(title),
			p.styles.Score.Render(fmt.Sprintf("(%.4f)", r.Score)))

		var meta []string
		if r.Entry.Metadata.FilePath != "" {
			meta = append(meta, r.Entry.Metadata.FilePath)
		}
		meta = append(meta, string(r.Entry.Metadata.Category))
		if len(r.Entry.Metadata.Keywords) > 0 {
			meta = append(meta, strings.Join(r.Entry.Metadata.Keywords, ", "))
		}
		fmt.Fprintf(p.out, "   %s\n", p.styles.Meta.Render(strings.Join(meta, " | ")))

		fmt.Fprintf(p.out, "%s\n", indent(snippet(r.Entry.Content, 300), "   "))
		if i < len(results)-1 {
			fmt.Fprintln(p.out, p.styles.Divider.Render(strings.Repeat("-", 40)))
		}
	}
	return nil
}

// IndexResult renders an indexing run summary.
func (p *Printer) IndexResult(result *index.Result, dryRun bool) error {
	if p.format == FormatJSON {
		return p.renderJSON(result)
	}

	if dryRun {
		fmt.Fprintln(p.out, p.styles.Warning.Render("Dry run: no changes written."))
	}
	fmt.Fprintf(p.out, "%s %d processed, %d skipped in %s\n",
		p.styles.Header.Render("Indexed:"),
		result.FilesProcessed, result.FilesSkipped,
		result.Duration.Round(time.Millisecond))
	fmt.Fprintf(p.out, "%s %d created, %d updated, %d deleted\n",
		p.styles.Header.Render("Entries:"),
		result.EntriesCreated, result.EntriesUpdated, result.EntriesDeleted)

	for _, e := range result.Errors {
		fmt.Fprintf(p.out, "%s %s: %s\n", p.styles.Error.Render("error"), e.Path, e.Message)
	}
	return nil
}

// Status renders the project status summary.
type Status struct {
	EntryCount        int    `json:"entry_count"`
	KeywordDocs       int    `json:"keyword_docs"`
	LastIndexedAt     string `json:"last_indexed_at,omitempty"`
	TrackedFiles      int    `json:"tracked_files"`
	DiscoveryComplete bool   `json:"discovery_complete"`
	DataDir           string `json:"data_dir"`
	Version           string `json:"version"`
}

// PrintStatus renders a Status.
func (p *Printer) PrintStatus(s Status) error {
	if p.format == FormatJSON {
		return p.renderJSON(s)
	}

	fmt.Fprintln(p.out, p.styles.Header.Render("recall status"))
	fmt.Fprintf(p.out, "  entries:    %d\n", s.EntryCount)
	fmt.Fprintf(p.out, "  keywords:   %d documents\n", s.KeywordDocs)
	fmt.Fprintf(p.out, "  files:      %d tracked\n", s.TrackedFiles)
	if s.LastIndexedAt != "" {
		fmt.Fprintf(p.out, "  indexed:    %s\n", s.LastIndexedAt)
	} else {
		fmt.Fprintln(p.out, "  indexed:    never")
	}
	fmt.Fprintf(p.out, "  discovery:  %v\n", s.DiscoveryComplete)
	fmt.Fprintf(p.out, "  data dir:   %s\n", s.DataDir)
	return nil
}

func (p *Printer) renderJSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// snippet truncates content to max bytes at a rune-safe point.
func snippet(content string, max int) string {
	content = strings.TrimSpace(content)
	if len(content) <= max {
		return content
	}
	cut := max
	for cut > 0 && content[cut]&0xC0 == 0x80 {
		cut--
	}
	return content[:cut] + "..."
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

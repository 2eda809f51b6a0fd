// Package directive parses per-document indexing controls: YAML
// front-matter and leading comment directives.
//
// Both are advisory. Malformed values produce warnings and fall back to
// defaults; they never block indexing.
package directive

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FrontMatter holds the recognized front-matter fields.
type FrontMatter struct {
	Title    string   `yaml:"title"`
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

// Directives holds the recognized comment directives.
// Index defaults to true: a document opts out, never in.
type Directives struct {
	Index    bool
	Keywords []string
}

var (
	// frontMatterPattern matches a leading ---\n...\n--- block.
	frontMatterPattern = regexp.MustCompile(`(?s)\A---\n(.*?)\n---\n?`)

	// directivePattern matches <!-- recall:key=value --> comments.
	directivePattern = regexp.MustCompile(`\A<!--\s*recall:([a-z]+)\s*=\s*(.*?)\s*-->\z`)
)

// SplitFrontMatter strips a leading front-matter block from content and
// parses it. The block is removed from the returned body even when its
// YAML is malformed; the parse failure becomes a warning.
func SplitFrontMatter(content string) (FrontMatter, string, []string) {
	var fm FrontMatter
	var warnings []string

	m := frontMatterPattern.FindStringSubmatch(content)
	if m == nil {
		return fm, content, nil
	}

	body := content[len(m[0]):]
	if err := yaml.Unmarshal([]byte(m[1]), &fm); err != nil {
		warnings = append(warnings, fmt.Sprintf("front-matter ignored: %v", err))
		return FrontMatter{}, body, warnings
	}

	return fm, body, warnings
}

// Parse scans the leading lines of body for recall directives. Scanning
// stops at the first line that is neither blank nor a comment directive.
//
// Recognized directives:
//
//	<!-- recall:index=false -->
//	<!-- recall:keywords=api, auth, sessions -->
//
// Unrecognized keys or bad values yield warnings and defaults.
func Parse(body string) (Directives, []string) {
	d := Directives{Index: true}
	var warnings []string

	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		m := directivePattern.FindStringSubmatch(trimmed)
		if m == nil {
			break
		}

		key, value := m[1], m[2]
		switch key {
		case "index":
			enabled, err := strconv.ParseBool(value)
			if err != nil {
				warnings = append(warnings,
					fmt.Sprintf("directive recall:index: invalid value %q, defaulting to true", value))
				continue
			}
			d.Index = enabled
		case "keywords":
			d.Keywords = splitKeywords(value)
			if len(d.Keywords) == 0 {
				warnings = append(warnings, "directive recall:keywords: empty keyword list")
			}
		default:
			warnings = append(warnings, fmt.Sprintf("unknown directive recall:%s", key))
		}
	}

	return d, warnings
}

// Strip removes the leading directive lines from body so they are not
// indexed as content. Blank lines between directives go with them.
func Strip(body string) string {
	lines := strings.Split(body, "\n")
	i := 0
	for ; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		if !directivePattern.MatchString(trimmed) {
			break
		}
	}
	return strings.Join(lines[i:], "\n")
}

// splitKeywords splits a comma-separated list, preserving order and
// dropping empties.
func splitKeywords(value string) []string {
	var keywords []string
	for _, k := range strings.Split(value, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	return keywords
}

package review

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// Guideline section headings look like "## 01-style" or "## 12-security":
// a two-digit number, a hyphen, and a word.
var sectionHeadingRegex = regexp.MustCompile(`(?m)^##\s+(\d{2}-\w+)\s*$`)

// LoadGuidelines reads a local instructions document and splits it into
// sections keyed by their heading identifiers. Text before the first
// recognized heading is ignored. The section text is pass-through prompt
// context; nothing here is parsed further.
func LoadGuidelines(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load guidelines: %w", err)
	}
	return SplitGuidelines(string(data)), nil
}

// SplitGuidelines sections a guidelines document by its "NN-word" headings.
func SplitGuidelines(text string) map[string]string {
	sections := make(map[string]string)

	matches := sectionHeadingRegex.FindAllStringSubmatchIndex(text, -1)
	for i, m := range matches {
		name := text[m[2]:m[3]]
		bodyStart := m[1]
		bodyEnd := len(text)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		}
		sections[name] = strings.TrimSpace(text[bodyStart:bodyEnd])
	}

	return sections
}

// SelectSections joins the named sections in identifier order. With no
// names, every section is included. Unknown names are skipped.
func SelectSections(sections map[string]string, names []string) string {
	if len(names) == 0 {
		names = make([]string, 0, len(sections))
		for name := range sections {
			names = append(names, name)
		}
		sort.Strings(names)
	}

	var parts []string
	for _, name := range names {
		if body, ok := sections[name]; ok && body != "" {
			parts = append(parts, body)
		}
	}
	return strings.Join(parts, "\n\n")
}

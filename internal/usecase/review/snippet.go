package review

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kestrelci/reviewbot/internal/domain"
)

// noContextPlaceholder is emitted when no file yields a snippet, so prompt
// assembly is never handed an empty context block.
const noContextPlaceholder = "(no file context available)"

var titleCaser = cases.Title(language.English)

// RenderSnippet renders the selected lines of one file as a displayable
// excerpt: a file-identifying header followed by "<line-number>: <text>"
// rows. Line numbers outside the known content render with empty text
// rather than failing, which keeps stale windows harmless.
//
// When the file's content is unknown the header alone is returned, giving
// the model filename-only context.
func RenderSnippet(file domain.ChangedFile, content domain.FileContent, window []int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("File: %s (%s)", file.Path, titleCaser.String(file.Status)))

	if !content.Known {
		return sb.String()
	}

	for _, n := range window {
		text := ""
		if n >= 1 && n <= len(content.Lines) {
			text = content.Lines[n-1]
		}
		sb.WriteString(fmt.Sprintf("\n%d: %s", n, text))
	}

	return sb.String()
}

// JoinSnippets concatenates per-file snippet blocks separated by a blank
// line. Empty blocks are dropped; if nothing remains, a fixed placeholder
// is returned instead of an empty string.
func JoinSnippets(blocks []string) string {
	kept := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if strings.TrimSpace(b) != "" {
			kept = append(kept, b)
		}
	}
	if len(kept) == 0 {
		return noContextPlaceholder
	}
	return strings.Join(kept, "\n\n")
}

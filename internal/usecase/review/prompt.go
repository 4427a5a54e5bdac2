package review

import (
	"bytes"
	"fmt"
	"text/template"
)

// PromptData holds everything available to the prompt template.
type PromptData struct {
	Repository string
	Guidelines string
	Context    string
}

// BuildPrompt renders the review prompt from the file context and any
// configured guideline text.
func BuildPrompt(data PromptData) (string, error) {
	tmpl, err := template.New("prompt").Parse(promptTemplate)
	if err != nil {
		return "", fmt.Errorf("parse prompt template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute prompt template: %w", err)
	}

	return buf.String(), nil
}

const promptTemplate = `You are an expert software engineer reviewing a pull request.
{{if .Repository}}
Repository: {{.Repository}}
{{end}}
{{if .Guidelines}}
## Review Guidelines
{{.Guidelines}}
{{end}}
## Changed Code
Each file below lists the changed lines (with surrounding context) as
"<line-number>: <text>" pairs. Line numbers refer to the new version of
each file.

{{.Context}}

Respond with a single JSON object inside a json code fence:

{
  "conclusion": "APPROVE" or "REQUEST_CHANGES",
  "summary": "one-paragraph overall assessment",
  "comments": [
    {"filepath": "path/from/the/context", "start_line": 12, "end_line": 14, "comment": "what to improve and why"}
  ]
}

Only comment on lines shown above. Omit "end_line" for single-line comments.`

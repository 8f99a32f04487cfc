package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
)

var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

func (e *Extractor) extractPlain(path, name string) Result {
	data, err := readFile(path)
	if err != nil {
		return errorResult(name, err)
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return Result{
			FileName: name,
			Status:   StatusEmpty,
			Message:  fmt.Sprintf("%s is empty", name),
		}
	}
	return Result{FileName: name, Status: StatusOK, Text: text}
}

// extractMarkdown renders the markdown to HTML and then strips every
// tag, leaving bare text. Tables and links collapse to their visible
// content, which is enough for analysis.
func (e *Extractor) extractMarkdown(path, name string) Result {
	data, err := readFile(path)
	if err != nil {
		return errorResult(name, err)
	}

	var rendered bytes.Buffer
	if err := goldmark.Convert(data, &rendered); err != nil {
		return errorResult(name, err)
	}

	text := htmlTagPattern.ReplaceAllString(rendered.String(), "")
	text = html.UnescapeString(text)
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{
			FileName: name,
			Status:   StatusEmpty,
			Message:  fmt.Sprintf("%s is empty", name),
		}
	}
	return Result{FileName: name, Status: StatusOK, Text: text}
}

// extractJSON re-indents the document so nesting survives into the
// prompt even though the content is not narrative text.
func (e *Extractor) extractJSON(path, name string) Result {
	data, err := readFile(path)
	if err != nil {
		return errorResult(name, err)
	}

	var parsed interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return errorResult(name, fmt.Errorf("invalid JSON: %w", err))
	}
	indented, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return errorResult(name, err)
	}

	return Result{
		FileName: name,
		Status:   StatusOK,
		Text:     "JSON Content:\n" + string(indented),
	}
}

package extract

import (
	"fmt"
	"os"
	"strings"

	"github.com/fumiama/go-docx"
)

func (e *Extractor) extractDOCX(path, name string) Result {
	f, err := os.Open(path)
	if err != nil {
		return errorResult(name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errorResult(name, err)
	}

	doc, err := docx.Parse(f, info.Size())
	if err != nil {
		return errorResult(name, err)
	}

	var paragraphs []string
	for _, item := range doc.Document.Body.Items {
		switch block := item.(type) {
		case *docx.Paragraph:
			if text := block.String(); text != "" {
				paragraphs = append(paragraphs, text)
			}
		case *docx.Table:
			if text := block.String(); text != "" {
				paragraphs = append(paragraphs, text)
			}
		}
	}

	text := strings.Join(paragraphs, "\n")
	if strings.TrimSpace(text) == "" {
		return Result{
			FileName: name,
			Status:   StatusEmpty,
			Message:  fmt.Sprintf("no text found in %s", name),
		}
	}
	return Result{FileName: name, Status: StatusOK, Text: text}
}

package extract

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

func (e *Extractor) extractPDF(path, name string) Result {
	f, r, err := pdf.Open(path)
	if err != nil {
		return errorResult(name, err)
	}
	defer f.Close()

	total := r.NumPage()
	text := collectPages(total, func(i int) (s string, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("page %d: %v", i, rec)
			}
		}()
		p := r.Page(i)
		if p.V.IsNull() {
			return "", nil
		}
		return p.GetPlainText(nil)
	}, func(i int, err error) {
		e.logger.Warn("skipping unreadable pdf page",
			zap.String("file", name),
			zap.Int("page", i),
			zap.Error(err))
	})

	if strings.TrimSpace(text) == "" {
		return Result{
			FileName: name,
			Status:   StatusEmpty,
			Message: fmt.Sprintf("no text could be extracted from %s (%d pages); it may be a scanned or image-based PDF",
				name, total),
		}
	}
	return Result{FileName: name, Status: StatusOK, Text: text}
}

// collectPages walks pages 1..total, concatenating whatever each page
// yields. A page that fails is reported through onSkip and dropped; the
// remaining pages still contribute.
func collectPages(total int, read func(i int) (string, error), onSkip func(i int, err error)) string {
	var b strings.Builder
	for i := 1; i <= total; i++ {
		pageText, err := read(i)
		if err != nil {
			if onSkip != nil {
				onSkip(i, err)
			}
			continue
		}
		if pageText == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(pageText)
	}
	return b.String()
}

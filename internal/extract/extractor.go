// Package extract converts uploaded files into plain text. Every
// supported format funnels into the same status-tagged Result so the
// rest of the pipeline never has to care where the text came from.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Status classifies the outcome of an extraction attempt.
type Status string

const (
	StatusOK    Status = "ok"
	StatusEmpty Status = "empty"
	StatusError Status = "error"
)

// SupportedExtensions lists the file types the extractor understands,
// in the order they are reported to users.
var SupportedExtensions = []string{"pdf", "docx", "doc", "txt", "md", "json", "xlsx", "xls"}

// Result carries the extracted text together with its status. Message
// is non-empty whenever Status is not StatusOK.
type Result struct {
	FileName string
	Status   Status
	Text     string
	Message  string
}

// Extractor pulls plain text out of files by extension.
type Extractor struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// Extract reads the file at path and converts it to plain text based on
// the declared extension. It never panics and never returns a Go error:
// every failure mode is folded into the Result.
func (e *Extractor) Extract(path, declaredExt string) (res Result) {
	name := filepath.Base(path)
	res = Result{FileName: name}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("extraction panic recovered",
				zap.String("file", name),
				zap.Any("cause", r))
			res.Status = StatusError
			res.Text = ""
			res.Message = fmt.Sprintf("failed to read %s: %v", name, r)
		}
	}()

	ext := strings.ToLower(strings.TrimPrefix(declaredExt, "."))
	switch ext {
	case "pdf":
		return e.extractPDF(path, name)
	case "docx", "doc":
		return e.extractDOCX(path, name)
	case "txt":
		return e.extractPlain(path, name)
	case "md":
		return e.extractMarkdown(path, name)
	case "json":
		return e.extractJSON(path, name)
	case "xlsx", "xls":
		return e.extractWorkbook(path, name)
	default:
		res.Status = StatusError
		res.Message = fmt.Sprintf("unsupported file type %q: supported types are %s",
			ext, strings.Join(SupportedExtensions, ", "))
		return res
	}
}

// errorResult folds a branch failure into the shared shape.
func errorResult(name string, err error) Result {
	return Result{
		FileName: name,
		Status:   StatusError,
		Message:  fmt.Sprintf("failed to read %s: %v", name, err),
	}
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

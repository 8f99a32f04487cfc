// Package casefile runs the document pipeline: extract text from an
// uploaded file, analyze it, record the result, and open a follow-up
// thread for the uploader.
package casefile

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"lawdesk/internal/analyze"
	"lawdesk/internal/config"
	"lawdesk/internal/extract"
	"lawdesk/internal/followup"
	"lawdesk/internal/models"

	"go.uber.org/zap"
)

// Analyzer produces an analysis outcome for a composed prompt.
type Analyzer interface {
	Analyze(ctx context.Context, prompt string) analyze.Outcome
}

// Service coordinates extraction, analysis and persistence.
type Service struct {
	db        *sql.DB
	extractor *extract.Extractor
	analyzer  Analyzer
	followups *followup.Manager
	retention config.RetentionConfig
	logger    *zap.Logger
}

func NewService(db *sql.DB, extractor *extract.Extractor, analyzer Analyzer, followups *followup.Manager, retention config.RetentionConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	retention.Normalize()
	return &Service{
		db:        db,
		extractor: extractor,
		analyzer:  analyzer,
		followups: followups,
		retention: retention,
		logger:    logger,
	}
}

// Upload describes a file already written to storage.
type Upload struct {
	UserID     int64
	FileName   string
	StoredPath string
	Extension  string
	Size       int64
}

// Process runs the pipeline for one upload. The returned document
// always exists when err is nil; its Analysis field is the text to
// show the uploader, whether the analysis succeeded or not. Only a
// persistence failure surfaces as an error, and even then the stored
// bytes are left in place.
func (s *Service) Process(ctx context.Context, up Upload) (*models.Document, error) {
	res := s.extractor.Extract(up.StoredPath, up.Extension)

	doc := &models.Document{
		UserID:     up.UserID,
		FileName:   up.FileName,
		StoredPath: up.StoredPath,
		Format:     up.Extension,
		Size:       up.Size,
		CreatedAt:  time.Now().UTC(),
	}
	// documents uploaded while retention is off carry no expiry; turning
	// retention on later must not sweep them retroactively
	if s.retention.Enabled {
		doc.ExpiresAt = doc.CreatedAt.Add(time.Duration(s.retention.MaxAgeHours) * time.Hour)
	}

	if res.Status == extract.StatusError {
		// unreadable file: no analysis call, but the upload is still
		// recorded so the audit trail never loses a document
		doc.Status = models.DocumentStatusExtractionFailed
		doc.Analysis = extractionFailureText(res.Message)
	} else {
		doc.ExtractedText = res.Text
		prompt := analyze.AnalysisPrompt(res.Text, up.FileName)
		outcome := s.analyzer.Analyze(ctx, prompt)
		doc.Analysis = outcome.Text()
		if outcome.Failed() {
			doc.Status = models.DocumentStatusAnalysisFailed
			s.logger.Warn("analysis failed",
				zap.Int64("user", up.UserID),
				zap.String("file", up.FileName),
				zap.String("reason", string(outcome.Reason)))
		} else {
			doc.Status = models.DocumentStatusAnalyzed
		}
	}

	if err := s.saveDocument(ctx, doc); err != nil {
		s.logger.Error("save document failed",
			zap.Int64("user", up.UserID),
			zap.String("file", up.FileName),
			zap.Error(err))
		return nil, fmt.Errorf("save document: %w", err)
	}

	if res.Status != extract.StatusError {
		if err := s.followups.Open(ctx, up.UserID, up.FileName, res.Text, doc.Analysis); err != nil {
			// thread state is best-effort; the record already exists
			s.logger.Warn("open followup thread failed",
				zap.Int64("user", up.UserID),
				zap.Error(err))
		}
	}

	return doc, nil
}

func extractionFailureText(message string) string {
	return "❌ **File Could Not Be Read**\n\n" + message
}

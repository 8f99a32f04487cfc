package worker

import (
	"context"
	"errors"

	"lawdesk/internal/models"
	"lawdesk/internal/service/casefile"

	"go.uber.org/zap"
)

// Pipeline runs the document pipeline for one upload.
type Pipeline interface {
	Process(ctx context.Context, up casefile.Upload) (*models.Document, error)
}

// Asker routes a user message through the follow-up thread.
type Asker interface {
	Answer(ctx context.Context, userID int64, message string) (string, bool, error)
}

// Manager executes jobs against the document and follow-up services.
// Callers block on Process/Ask while the dispatcher schedules the
// actual work, so one user's uploads and questions run in the order
// they were submitted.
type Manager struct {
	documents  Pipeline
	followups  Asker
	logger     *zap.Logger
	dispatcher *Dispatcher
}

func NewManager(documents Pipeline, followups Asker, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		documents: documents,
		followups: followups,
		logger:    logger,
	}
}

// Process schedules the pipeline for an upload and waits for the result.
func (m *Manager) Process(ctx context.Context, up casefile.Upload) (*models.Document, error) {
	if m.dispatcher == nil {
		return nil, errors.New("dispatcher not running")
	}
	resultCh := make(chan processReturn, 1)
	job := Job{Type: Process, ProcessTask: &processTask{ctx: ctx, upload: up, resultCh: resultCh}}
	if err := m.dispatcher.Submit(job); err != nil {
		return nil, err
	}
	select {
	case ret := <-resultCh:
		return ret.doc, ret.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Ask schedules a follow-up question attempt and waits for the result.
// consumed is false when the user was not awaiting a question, meaning
// the message should fall through to ordinary handling.
func (m *Manager) Ask(ctx context.Context, userID int64, message string) (text string, consumed bool, err error) {
	if m.dispatcher == nil {
		return "", false, errors.New("dispatcher not running")
	}
	resultCh := make(chan askReturn, 1)
	job := Job{Type: Ask, AskTask: &askTask{ctx: ctx, userID: userID, message: message, resultCh: resultCh}}
	if err := m.dispatcher.Submit(job); err != nil {
		return "", false, err
	}
	select {
	case ret := <-resultCh:
		return ret.text, ret.consumed, ret.err
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}

func (m *Manager) handleProcess(task *processTask) {
	ctx := task.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	doc, err := m.documents.Process(ctx, task.upload)
	if err != nil {
		m.logger.Error("process job failed",
			zap.Int64("user", task.upload.UserID),
			zap.String("file", task.upload.FileName),
			zap.Error(err))
	}
	task.resultCh <- processReturn{doc: doc, err: err}
}

func (m *Manager) handleAsk(task *askTask) {
	ctx := task.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	text, consumed, err := m.followups.Answer(ctx, task.userID, task.message)
	if err != nil {
		m.logger.Error("ask job failed",
			zap.Int64("user", task.userID),
			zap.Error(err))
	}
	task.resultCh <- askReturn{text: text, consumed: consumed, err: err}
}

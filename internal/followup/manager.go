package followup

import (
	"context"
	"errors"
	"time"

	"lawdesk/internal/analyze"

	"go.uber.org/zap"
)

var (
	// ErrNoActiveDocument is returned for transitions that require an
	// open thread when the user has none.
	ErrNoActiveDocument = errors.New("no active document")
	// ErrAlreadyAwaiting is returned when continue is chosen twice
	// without a question in between.
	ErrAlreadyAwaiting = errors.New("already awaiting a question")
)

// Answerer produces an answer outcome for a composed prompt.
type Answerer interface {
	Answer(ctx context.Context, prompt string) analyze.Outcome
}

// Manager drives the per-user follow-up state machine over a Store.
type Manager struct {
	store  Store
	client Answerer
	logger *zap.Logger
}

func NewManager(store Store, client Answerer, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: store, client: client, logger: logger}
}

// Open installs a fresh context for the user in the open state. Any
// prior context is replaced unconditionally, whatever state it was in.
func (m *Manager) Open(ctx context.Context, userID int64, fileName, text, analysis string) error {
	return m.store.Put(ctx, &Context{
		UserID:    userID,
		FileName:  fileName,
		Text:      text,
		Analysis:  analysis,
		State:     StateOpen,
		UpdatedAt: time.Now().UTC(),
	})
}

// State reports the user's current state, idle when nothing is stored.
func (m *Manager) State(ctx context.Context, userID int64) State {
	fc, ok, err := m.store.Get(ctx, userID)
	if err != nil {
		m.logger.Warn("load followup state failed", zap.Int64("user", userID), zap.Error(err))
		return StateIdle
	}
	if !ok {
		return StateIdle
	}
	return fc.State
}

// Active returns the user's context when one exists.
func (m *Manager) Active(ctx context.Context, userID int64) (*Context, bool) {
	fc, ok, err := m.store.Get(ctx, userID)
	if err != nil || !ok {
		return nil, false
	}
	return fc, true
}

// Continue moves an open thread to awaiting_answer. The next plain
// message from the user will be consumed as a question.
func (m *Manager) Continue(ctx context.Context, userID int64) error {
	fc, ok, err := m.store.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoActiveDocument
	}
	switch fc.State {
	case StateOpen:
		fc.State = StateAwaitingAnswer
		fc.UpdatedAt = time.Now().UTC()
		return m.store.Put(ctx, fc)
	case StateAwaitingAnswer:
		return ErrAlreadyAwaiting
	default:
		return ErrNoActiveDocument
	}
}

// Answer consumes message as a follow-up question when, and only when,
// the user is awaiting one. The boolean reports whether the message
// was consumed; false means the caller should treat it as ordinary
// input. After an attempt the state always returns to open, including
// when the analysis call fails, so the user can retry.
func (m *Manager) Answer(ctx context.Context, userID int64, message string) (string, bool, error) {
	fc, ok, err := m.store.Get(ctx, userID)
	if err != nil {
		return "", false, err
	}
	if !ok || fc.State != StateAwaitingAnswer {
		return "", false, nil
	}

	prompt := analyze.FollowupPrompt(message, fc.Text, fc.Analysis, fc.FileName)
	outcome := m.client.Answer(ctx, prompt)
	if outcome.Failed() {
		m.logger.Warn("followup answer failed",
			zap.Int64("user", userID),
			zap.String("reason", string(outcome.Reason)))
	}

	fc.State = StateOpen
	fc.UpdatedAt = time.Now().UTC()
	if err := m.store.Put(ctx, fc); err != nil {
		// the answer is already generated; hand it back so it is not
		// lost, and let the caller decide what to do with the error
		m.logger.Warn("persist followup state failed",
			zap.Int64("user", userID), zap.Error(err))
		return outcome.Text(), true, err
	}
	return outcome.Text(), true, nil
}

// Close ends the thread and discards the context entirely.
func (m *Manager) Close(ctx context.Context, userID int64) error {
	_, ok, err := m.store.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoActiveDocument
	}
	return m.store.Remove(ctx, userID)
}

package followup

import (
	"context"
	"errors"
	"strings"
	"testing"

	"lawdesk/internal/analyze"
)

type fakeAnswerer struct {
	outcome    analyze.Outcome
	calls      int
	lastPrompt string
}

func (f *fakeAnswerer) Answer(_ context.Context, prompt string) analyze.Outcome {
	f.calls++
	f.lastPrompt = prompt
	return f.outcome
}

func newTestManager(outcome analyze.Outcome) (*Manager, *fakeAnswerer) {
	fake := &fakeAnswerer{outcome: outcome}
	return NewManager(NewMemoryStore(), fake, nil), fake
}

func TestOpenSetsOpenState(t *testing.T) {
	m, _ := newTestManager(analyze.Outcome{Narrative: "a"})
	ctx := context.Background()

	if got := m.State(ctx, 7); got != StateIdle {
		t.Fatalf("state before open = %s", got)
	}
	if err := m.Open(ctx, 7, "contract.txt", "Hello world", "narrative"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := m.State(ctx, 7); got != StateOpen {
		t.Fatalf("state = %s, want open", got)
	}
	fc, ok := m.Active(ctx, 7)
	if !ok || fc.FileName != "contract.txt" || fc.Text != "Hello world" {
		t.Fatalf("active context = %+v ok=%v", fc, ok)
	}
}

func TestContinueTransitions(t *testing.T) {
	m, _ := newTestManager(analyze.Outcome{Narrative: "a"})
	ctx := context.Background()

	if err := m.Continue(ctx, 1); !errors.Is(err, ErrNoActiveDocument) {
		t.Fatalf("continue while idle: %v", err)
	}

	if err := m.Open(ctx, 1, "f.txt", "text", "analysis"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := m.Continue(ctx, 1); err != nil {
		t.Fatalf("continue: %v", err)
	}
	if got := m.State(ctx, 1); got != StateAwaitingAnswer {
		t.Fatalf("state = %s, want awaiting_answer", got)
	}
	if err := m.Continue(ctx, 1); !errors.Is(err, ErrAlreadyAwaiting) {
		t.Fatalf("double continue: %v", err)
	}
}

func TestAnswerNotConsumedWhileOpen(t *testing.T) {
	m, fake := newTestManager(analyze.Outcome{Narrative: "answer"})
	ctx := context.Background()

	if err := m.Open(ctx, 2, "f.txt", "text", "analysis"); err != nil {
		t.Fatalf("open: %v", err)
	}
	_, consumed, err := m.Answer(ctx, 2, "is this a question?")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if consumed {
		t.Fatal("message must fall through while state is open")
	}
	if fake.calls != 0 {
		t.Fatalf("no analysis call expected, got %d", fake.calls)
	}
}

func TestAnswerCycle(t *testing.T) {
	m, fake := newTestManager(analyze.Outcome{Narrative: "the tenant signed"})
	ctx := context.Background()

	if err := m.Open(ctx, 3, "lease.pdf", "lease body", "lease analysis"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := m.Continue(ctx, 3); err != nil {
		t.Fatalf("continue: %v", err)
	}

	text, consumed, err := m.Answer(ctx, 3, "who signed?")
	if err != nil || !consumed {
		t.Fatalf("answer consumed=%v err=%v", consumed, err)
	}
	if text != "the tenant signed" {
		t.Fatalf("text = %q", text)
	}
	if !strings.Contains(fake.lastPrompt, "who signed?") ||
		!strings.Contains(fake.lastPrompt, "lease body") ||
		!strings.Contains(fake.lastPrompt, "lease analysis") {
		t.Fatalf("prompt missing pieces:\n%s", fake.lastPrompt)
	}

	// one answer per continue: state returns to open, not awaiting
	if got := m.State(ctx, 3); got != StateOpen {
		t.Fatalf("state after answer = %s, want open", got)
	}
	_, consumed, err = m.Answer(ctx, 3, "another question")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if consumed {
		t.Fatal("second question must not be consumed without a new continue")
	}
}

func TestAnswerFailureReturnsToOpen(t *testing.T) {
	m, _ := newTestManager(analyze.Outcome{
		Reason: analyze.FailureServiceUnreachable,
		Detail: "timeout",
	})
	ctx := context.Background()

	if err := m.Open(ctx, 4, "f.txt", "text", "analysis"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := m.Continue(ctx, 4); err != nil {
		t.Fatalf("continue: %v", err)
	}

	text, consumed, err := m.Answer(ctx, 4, "question")
	if err != nil || !consumed {
		t.Fatalf("answer consumed=%v err=%v", consumed, err)
	}
	if !strings.Contains(text, "AI Analysis Unavailable") {
		t.Fatalf("failure should render as presentable text: %q", text)
	}
	if got := m.State(ctx, 4); got != StateOpen {
		t.Fatalf("state = %s, want open so the user can retry", got)
	}
}

func TestCloseClearsContext(t *testing.T) {
	m, fake := newTestManager(analyze.Outcome{Narrative: "a"})
	ctx := context.Background()

	if err := m.Close(ctx, 5); !errors.Is(err, ErrNoActiveDocument) {
		t.Fatalf("close while idle: %v", err)
	}

	if err := m.Open(ctx, 5, "f.txt", "text", "analysis"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := m.Close(ctx, 5); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := m.State(ctx, 5); got != StateIdle {
		t.Fatalf("state after close = %s", got)
	}
	_, consumed, err := m.Answer(ctx, 5, "plain chat message")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if consumed || fake.calls != 0 {
		t.Fatal("message after close must not be treated as a follow-up question")
	}
}

func TestNewUploadReplacesContext(t *testing.T) {
	m, fake := newTestManager(analyze.Outcome{Narrative: "answer"})
	ctx := context.Background()

	if err := m.Open(ctx, 6, "old.txt", "OLD TEXT", "old analysis"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := m.Continue(ctx, 6); err != nil {
		t.Fatalf("continue: %v", err)
	}

	// mid-thread replacement: the new upload wins unconditionally
	if err := m.Open(ctx, 6, "new.txt", "NEW TEXT", "new analysis"); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := m.State(ctx, 6); got != StateOpen {
		t.Fatalf("state after replacement = %s, want open", got)
	}

	if err := m.Continue(ctx, 6); err != nil {
		t.Fatalf("continue: %v", err)
	}
	if _, consumed, err := m.Answer(ctx, 6, "question"); err != nil || !consumed {
		t.Fatalf("answer consumed=%v err=%v", consumed, err)
	}
	if strings.Contains(fake.lastPrompt, "OLD TEXT") {
		t.Fatalf("old context leaked into prompt:\n%s", fake.lastPrompt)
	}
	if !strings.Contains(fake.lastPrompt, "NEW TEXT") {
		t.Fatalf("new context missing from prompt:\n%s", fake.lastPrompt)
	}
}

type brokenPutStore struct {
	Store
	failPut bool
}

func (s *brokenPutStore) Put(ctx context.Context, fc *Context) error {
	if s.failPut {
		return errors.New("store unavailable")
	}
	return s.Store.Put(ctx, fc)
}

func TestAnswerSurvivesStoreFailure(t *testing.T) {
	store := &brokenPutStore{Store: NewMemoryStore()}
	fake := &fakeAnswerer{outcome: analyze.Outcome{Narrative: "clause 4 controls"}}
	m := NewManager(store, fake, nil)
	ctx := context.Background()

	if err := m.Open(ctx, 8, "f.txt", "text", "analysis"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := m.Continue(ctx, 8); err != nil {
		t.Fatalf("continue: %v", err)
	}

	// a persistence failure after a successful model call must not
	// throw the generated answer away
	store.failPut = true
	text, consumed, err := m.Answer(ctx, 8, "which clause applies?")
	if err == nil {
		t.Fatal("expected the store error to surface")
	}
	if !consumed {
		t.Fatal("question was asked and answered; it counts as consumed")
	}
	if text != "clause 4 controls" {
		t.Fatalf("answer text lost: %q", text)
	}
}

package casefile

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lawdesk/internal/analyze"
	"lawdesk/internal/config"
	"lawdesk/internal/extract"
	"lawdesk/internal/followup"
	"lawdesk/internal/models"
	"lawdesk/internal/storage"
)

const sevenSectionNarrative = `1. **Document Type**: Service contract
2. **Summary**: An agreement for consulting services.
3. **Key Parties**: Acme Corp, Zenith LLC
4. **Important Dates**: 2026-01-15 renewal
5. **Legal Issues**: None apparent
6. **Action Items**: Countersign and file
7. **Risk Assessment**: Low`

type fakeAnalyzer struct {
	outcome    analyze.Outcome
	calls      int
	lastPrompt string
}

func (f *fakeAnalyzer) Analyze(_ context.Context, prompt string) analyze.Outcome {
	f.calls++
	f.lastPrompt = prompt
	return f.outcome
}

func (f *fakeAnalyzer) Answer(_ context.Context, prompt string) analyze.Outcome {
	f.calls++
	f.lastPrompt = prompt
	return f.outcome
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := &config.Config{
		Databases: map[string]config.DatabaseConfig{
			"sqlite3": {DSN: ":memory:"},
		},
	}
	db, err := storage.Open("sqlite3", cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	return db
}

func insertTestUser(t *testing.T, db *sql.DB, username string) int64 {
	t.Helper()
	now := time.Now().UTC()
	res, err := db.Exec(`INSERT INTO users (username, password_hash, created_at) VALUES (?, '', ?)`, username, now)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("user id: %v", err)
	}
	return id
}

func newTestService(t *testing.T, db *sql.DB, outcome analyze.Outcome) (*Service, *followup.Manager, *fakeAnalyzer) {
	t.Helper()
	fake := &fakeAnalyzer{outcome: outcome}
	followups := followup.NewManager(followup.NewMemoryStore(), fake, nil)
	svc := NewService(db, extract.New(nil), fake, followups, config.RetentionConfig{}, nil)
	return svc, followups, fake
}

func writeUpload(t *testing.T, name, content string) (string, int64) {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write upload: %v", err)
	}
	return path, int64(len(content))
}

func TestProcessTextDocument(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc, followups, fake := newTestService(t, db, analyze.Outcome{Narrative: sevenSectionNarrative})
	userID := insertTestUser(t, db, "alice")
	ctx := context.Background()

	path, size := writeUpload(t, "contract.txt", "Hello world")
	doc, err := svc.Process(ctx, Upload{
		UserID: userID, FileName: "contract.txt", StoredPath: path, Extension: "txt", Size: size,
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if doc.Status != models.DocumentStatusAnalyzed {
		t.Fatalf("status = %s", doc.Status)
	}
	if doc.Analysis != sevenSectionNarrative {
		t.Fatalf("analysis = %q", doc.Analysis)
	}
	if !strings.Contains(fake.lastPrompt, "Hello world") {
		t.Fatalf("prompt missing document text:\n%s", fake.lastPrompt)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM documents WHERE user_id = ?`, userID).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("documents = %d, want 1", count)
	}
	if got := followups.State(ctx, userID); got != followup.StateOpen {
		t.Fatalf("followup state = %s, want open", got)
	}
}

func TestProcessUnreadableFileSkipsAnalysis(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc, followups, fake := newTestService(t, db, analyze.Outcome{Narrative: "unused"})
	userID := insertTestUser(t, db, "bob")
	ctx := context.Background()

	path, size := writeUpload(t, "photo.png", "binary-ish")
	doc, err := svc.Process(ctx, Upload{
		UserID: userID, FileName: "photo.png", StoredPath: path, Extension: "png", Size: size,
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if fake.calls != 0 {
		t.Fatalf("analysis should not run for unreadable files, calls = %d", fake.calls)
	}
	if doc.Status != models.DocumentStatusExtractionFailed {
		t.Fatalf("status = %s", doc.Status)
	}
	if !strings.Contains(doc.Analysis, "File Could Not Be Read") {
		t.Fatalf("analysis = %q", doc.Analysis)
	}
	if strings.Contains(doc.Analysis, "AI Analysis Unavailable") {
		t.Fatal("extraction failure must not read like an analysis failure")
	}

	// the record still exists for the audit trail
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM documents WHERE user_id = ?`, userID).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("documents = %d, want 1", count)
	}
	if got := followups.State(ctx, userID); got != followup.StateIdle {
		t.Fatalf("followup state = %s, want idle", got)
	}
}

func TestProcessAnalysisFailureStillSaves(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc, followups, _ := newTestService(t, db, analyze.Outcome{
		Reason: analyze.FailureServiceUnreachable,
		Detail: "timeout after 60s",
	})
	userID := insertTestUser(t, db, "carol")
	ctx := context.Background()

	path, size := writeUpload(t, "memo.txt", "Re: settlement terms")
	doc, err := svc.Process(ctx, Upload{
		UserID: userID, FileName: "memo.txt", StoredPath: path, Extension: "txt", Size: size,
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if doc.Status != models.DocumentStatusAnalysisFailed {
		t.Fatalf("status = %s", doc.Status)
	}
	if !strings.Contains(doc.Analysis, "AI Analysis Unavailable") {
		t.Fatalf("analysis = %q", doc.Analysis)
	}

	var stored string
	if err := db.QueryRow(`SELECT analysis FROM documents WHERE id = ?`, doc.ID).Scan(&stored); err != nil {
		t.Fatalf("query analysis: %v", err)
	}
	if stored != doc.Analysis {
		t.Fatal("failure narrative must be the stored analysis text")
	}
	// analysis failed but was recorded, so the thread still opens
	if got := followups.State(ctx, userID); got != followup.StateOpen {
		t.Fatalf("followup state = %s, want open", got)
	}
}

func TestProcessEmptyFileStillAnalyzed(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc, _, fake := newTestService(t, db, analyze.Outcome{Narrative: "the document appears empty"})
	userID := insertTestUser(t, db, "dave")

	path, size := writeUpload(t, "blank.txt", "   \n")
	doc, err := svc.Process(context.Background(), Upload{
		UserID: userID, FileName: "blank.txt", StoredPath: path, Extension: "txt", Size: size,
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if fake.calls != 1 {
		t.Fatalf("empty extraction should still reach analysis, calls = %d", fake.calls)
	}
	if doc.Status != models.DocumentStatusAnalyzed {
		t.Fatalf("status = %s", doc.Status)
	}
}

func TestListGetAndUsage(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc, _, _ := newTestService(t, db, analyze.Outcome{Narrative: "n"})
	userID := insertTestUser(t, db, "erin")
	ctx := context.Background()

	pathA, sizeA := writeUpload(t, "a.txt", "first document")
	if _, err := svc.Process(ctx, Upload{UserID: userID, FileName: "a.txt", StoredPath: pathA, Extension: "txt", Size: sizeA}); err != nil {
		t.Fatalf("process a: %v", err)
	}
	pathB, sizeB := writeUpload(t, "b.txt", "second document")
	if _, err := svc.Process(ctx, Upload{UserID: userID, FileName: "b.txt", StoredPath: pathB, Extension: "txt", Size: sizeB}); err != nil {
		t.Fatalf("process b: %v", err)
	}

	docs, err := svc.ListDocuments(ctx, userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("docs = %d", len(docs))
	}
	if docs[0].FileName != "b.txt" {
		t.Fatalf("newest first, got %s", docs[0].FileName)
	}

	got, err := svc.GetDocument(ctx, userID, docs[1].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ExtractedText != "first document" {
		t.Fatalf("extracted text = %q", got.ExtractedText)
	}

	usage, err := svc.StorageUsage(ctx, userID)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if usage != sizeA+sizeB {
		t.Fatalf("usage = %d, want %d", usage, sizeA+sizeB)
	}

	if _, err := svc.GetDocument(ctx, userID+1, docs[0].ID); err != sql.ErrNoRows {
		t.Fatalf("cross-user get should miss, got %v", err)
	}
}

func TestSecondUploadAnswersAgainstNewDocument(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc, followups, fake := newTestService(t, db, analyze.Outcome{Narrative: "n"})
	userID := insertTestUser(t, db, "frank")
	ctx := context.Background()

	pathA, sizeA := writeUpload(t, "old.txt", "OLD CONTRACT BODY")
	if _, err := svc.Process(ctx, Upload{UserID: userID, FileName: "old.txt", StoredPath: pathA, Extension: "txt", Size: sizeA}); err != nil {
		t.Fatalf("process old: %v", err)
	}
	if err := followups.Continue(ctx, userID); err != nil {
		t.Fatalf("continue: %v", err)
	}

	pathB, sizeB := writeUpload(t, "new.txt", "NEW CONTRACT BODY")
	if _, err := svc.Process(ctx, Upload{UserID: userID, FileName: "new.txt", StoredPath: pathB, Extension: "txt", Size: sizeB}); err != nil {
		t.Fatalf("process new: %v", err)
	}

	if err := followups.Continue(ctx, userID); err != nil {
		t.Fatalf("continue after replacement: %v", err)
	}
	if _, consumed, err := followups.Answer(ctx, userID, "what changed?"); err != nil || !consumed {
		t.Fatalf("answer consumed=%v err=%v", consumed, err)
	}
	if strings.Contains(fake.lastPrompt, "OLD CONTRACT BODY") {
		t.Fatalf("old document leaked into the follow-up prompt:\n%s", fake.lastPrompt)
	}
	if !strings.Contains(fake.lastPrompt, "NEW CONTRACT BODY") {
		t.Fatalf("new document missing from the follow-up prompt:\n%s", fake.lastPrompt)
	}
}

func TestSweepExpiredRemovesFileAndRecord(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	fake := &fakeAnalyzer{outcome: analyze.Outcome{Narrative: "n"}}
	followups := followup.NewManager(followup.NewMemoryStore(), fake, nil)
	svc := NewService(db, extract.New(nil), fake, followups,
		config.RetentionConfig{Enabled: true, MaxAgeHours: 1, IntervalHours: 1}, nil)
	userID := insertTestUser(t, db, "grace")
	ctx := context.Background()

	path, _ := writeUpload(t, "stale.txt", "stale content")
	now := time.Now().UTC()
	if _, err := db.Exec(
		`INSERT INTO documents (user_id, file_name, stored_path, format, size, status, extracted_text, analysis, created_at, expires_at)
		 VALUES (?, 'stale.txt', ?, 'txt', 13, 'analyzed', '', '', ?, ?)`,
		userID, path, now.Add(-48*time.Hour), now.Add(-24*time.Hour)); err != nil {
		t.Fatalf("insert expired: %v", err)
	}

	if err := svc.sweepExpired(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expired file should be removed, stat err = %v", err)
	}
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM documents WHERE user_id = ?`, userID).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expired record should be removed, count = %d", count)
	}
}

func TestRetentionDisabledLeavesNoExpiry(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc, _, _ := newTestService(t, db, analyze.Outcome{Narrative: "n"})
	userID := insertTestUser(t, db, "heidi")
	ctx := context.Background()

	path, size := writeUpload(t, "keep.txt", "kept forever")
	doc, err := svc.Process(ctx, Upload{
		UserID: userID, FileName: "keep.txt", StoredPath: path, Extension: "txt", Size: size,
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !doc.ExpiresAt.IsZero() {
		t.Fatalf("expiry stamped with retention off: %v", doc.ExpiresAt)
	}

	var expires sql.NullTime
	if err := db.QueryRow(`SELECT expires_at FROM documents WHERE id = ?`, doc.ID).Scan(&expires); err != nil {
		t.Fatalf("query expiry: %v", err)
	}
	if expires.Valid {
		t.Fatalf("expiry stored as %v, want NULL", expires.Time)
	}

	got, err := svc.GetDocument(ctx, userID, doc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.ExpiresAt.IsZero() {
		t.Fatalf("read back expiry = %v, want zero", got.ExpiresAt)
	}
}

func TestSweepSkipsDocumentsWithoutExpiry(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	fake := &fakeAnalyzer{outcome: analyze.Outcome{Narrative: "n"}}
	followups := followup.NewManager(followup.NewMemoryStore(), fake, nil)

	// retention was off when the document was uploaded
	off := NewService(db, extract.New(nil), fake, followups, config.RetentionConfig{}, nil)
	userID := insertTestUser(t, db, "ivan")
	ctx := context.Background()

	path, size := writeUpload(t, "legacy.txt", "uploaded before retention")
	doc, err := off.Process(ctx, Upload{
		UserID: userID, FileName: "legacy.txt", StoredPath: path, Extension: "txt", Size: size,
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	// the policy is enabled later; documents without an expiry stay put
	on := NewService(db, extract.New(nil), fake, followups,
		config.RetentionConfig{Enabled: true, MaxAgeHours: 1, IntervalHours: 1}, nil)
	if err := on.sweepExpired(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("legacy file must survive the sweep: %v", err)
	}
	if _, err := on.GetDocument(ctx, userID, doc.ID); err != nil {
		t.Fatalf("legacy record must survive the sweep: %v", err)
	}
}

func TestRetentionEnabledStampsExpiry(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	fake := &fakeAnalyzer{outcome: analyze.Outcome{Narrative: "n"}}
	followups := followup.NewManager(followup.NewMemoryStore(), fake, nil)
	svc := NewService(db, extract.New(nil), fake, followups,
		config.RetentionConfig{Enabled: true, MaxAgeHours: 24, IntervalHours: 1}, nil)
	userID := insertTestUser(t, db, "judy")

	path, size := writeUpload(t, "fresh.txt", "fresh content")
	doc, err := svc.Process(context.Background(), Upload{
		UserID: userID, FileName: "fresh.txt", StoredPath: path, Extension: "txt", Size: size,
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	want := doc.CreatedAt.Add(24 * time.Hour)
	if !doc.ExpiresAt.Equal(want) {
		t.Fatalf("expiry = %v, want %v", doc.ExpiresAt, want)
	}
}

package qa

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"pdfqa/internal/models"
	"pdfqa/internal/storage"

	_ "github.com/mattn/go-sqlite3"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// every pooled connection would otherwise see its own :memory: database
	db.SetMaxOpenConns(1)
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestCreateAndGetSession(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc := NewService(db)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.ID <= 0 {
		t.Fatalf("expected positive session id")
	}
	if session.StoreID != "" {
		t.Fatalf("new session must have no store, got %q", session.StoreID)
	}

	got, err := svc.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.ID != session.ID {
		t.Fatalf("session id mismatch")
	}
}

func TestBindStoreRejectsSecondBind(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc := NewService(db)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := svc.BindStore(ctx, session.ID, "vs_1"); err != nil {
		t.Fatalf("first bind: %v", err)
	}
	err = svc.BindStore(ctx, session.ID, "vs_2")
	if !errors.Is(err, ErrStoreBound) {
		t.Fatalf("expected ErrStoreBound, got %v", err)
	}
	storeID, err := svc.ActiveStore(ctx, session.ID)
	if err != nil {
		t.Fatalf("active store: %v", err)
	}
	if storeID != "vs_1" {
		t.Fatalf("active store = %q, want vs_1", storeID)
	}
}

func TestBindStoreUnknownSession(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc := NewService(db)

	err := svc.BindStore(context.Background(), 12345, "vs_1")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestResetSessionClearsStoreAndDocuments(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc := NewService(db)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := svc.BindStore(ctx, session.ID, "vs_1"); err != nil {
		t.Fatalf("bind store: %v", err)
	}
	if _, err := svc.RecordDocument(ctx, session.ID, "a.pdf", "application/pdf", 100, 3); err != nil {
		t.Fatalf("record document: %v", err)
	}

	if err := svc.ResetSession(ctx, session.ID); err != nil {
		t.Fatalf("reset session: %v", err)
	}
	storeID, err := svc.ActiveStore(ctx, session.ID)
	if err != nil {
		t.Fatalf("active store: %v", err)
	}
	if storeID != "" {
		t.Fatalf("store still bound after reset: %q", storeID)
	}
	docs, err := svc.ListDocuments(ctx, session.ID)
	if err != nil {
		t.Fatalf("list documents: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected no documents after reset, got %d", len(docs))
	}

	// Reset re-arms the idempotence guard: a new bind works again.
	if err := svc.BindStore(ctx, session.ID, "vs_2"); err != nil {
		t.Fatalf("bind after reset: %v", err)
	}
}

func TestDocumentLifecycle(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc := NewService(db)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	doc, err := svc.RecordDocument(ctx, session.ID, "report.pdf", "application/pdf", 2048, 7)
	if err != nil {
		t.Fatalf("record document: %v", err)
	}
	if doc.Status != models.DocumentPending {
		t.Fatalf("new document status = %q", doc.Status)
	}

	if err := svc.SetDocumentRemote(ctx, doc.ID, "file_1", "vs_1"); err != nil {
		t.Fatalf("set remote: %v", err)
	}
	if err := svc.SetDocumentStatus(ctx, doc.ID, models.DocumentReady, ""); err != nil {
		t.Fatalf("set status: %v", err)
	}

	docs, err := svc.ListDocuments(ctx, session.ID)
	if err != nil {
		t.Fatalf("list documents: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if docs[0].RemoteFileID != "file_1" || docs[0].StoreID != "vs_1" {
		t.Fatalf("remote ids not recorded: %+v", docs[0])
	}
	if docs[0].Status != models.DocumentReady {
		t.Fatalf("status = %q, want ready", docs[0].Status)
	}
	if docs[0].Pages != 7 {
		t.Fatalf("pages = %d, want 7", docs[0].Pages)
	}

	ready, err := svc.CountReadyDocuments(ctx, session.ID)
	if err != nil {
		t.Fatalf("count ready: %v", err)
	}
	if ready != 1 {
		t.Fatalf("ready = %d, want 1", ready)
	}
}

func TestCountReadyIgnoresFailedDocuments(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc := NewService(db)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	doc, err := svc.RecordDocument(ctx, session.ID, "bad.pdf", "application/pdf", 10, 1)
	if err != nil {
		t.Fatalf("record document: %v", err)
	}
	if err := svc.SetDocumentStatus(ctx, doc.ID, models.DocumentFailed, "ingestion failed"); err != nil {
		t.Fatalf("set status: %v", err)
	}
	ready, err := svc.CountReadyDocuments(ctx, session.ID)
	if err != nil {
		t.Fatalf("count ready: %v", err)
	}
	if ready != 0 {
		t.Fatalf("ready = %d, want 0", ready)
	}
}

func TestCleanupExpiredSessions(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc := NewService(db)
	ctx := context.Background()

	stale, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := svc.RecordDocument(ctx, stale.ID, "old.pdf", "application/pdf", 10, 1); err != nil {
		t.Fatalf("record document: %v", err)
	}
	old := time.Now().UTC().Add(-48 * time.Hour)
	if _, err := db.Exec(`UPDATE sessions SET updated_at = ? WHERE id = ?`, old, stale.ID); err != nil {
		t.Fatalf("age session: %v", err)
	}

	fresh, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	var purged []int64
	if err := svc.cleanupExpiredSessions(ctx, 24*time.Hour, func(id int64) {
		purged = append(purged, id)
	}); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if len(purged) != 1 || purged[0] != stale.ID {
		t.Fatalf("onDelete calls = %v, want [%d]", purged, stale.ID)
	}

	if _, err := svc.GetSession(ctx, stale.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("stale session should be gone, got %v", err)
	}
	if _, err := svc.GetSession(ctx, fresh.ID); err != nil {
		t.Fatalf("fresh session should survive: %v", err)
	}
	var docCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM documents WHERE session_id = ?`, stale.ID).Scan(&docCount); err != nil {
		t.Fatalf("count documents: %v", err)
	}
	if docCount != 0 {
		t.Fatalf("stale documents should be gone, got %d", docCount)
	}
}

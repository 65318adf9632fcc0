package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pdfqa/internal/models"
	"pdfqa/internal/redis"
	"pdfqa/internal/service/qa"
)

const (
	queueLen    = 16
	askTimeout  = 2 * time.Minute
	defaultName = "pdfqa-session-%d"
)

// ErrBusy reports a full per-session task queue.
var ErrBusy = errors.New("session worker busy, please retry")

// ErrSessionClosed reports a task caught by a worker teardown; the session
// was reset or deleted while the task was queued or running.
var ErrSessionClosed = errors.New("session closed")

// Provider is the subset of the provider client the worker drives.
type Provider interface {
	CreateStore(ctx context.Context, name string) (string, error)
	UploadFile(ctx context.Context, filename string, data []byte) (string, error)
	AttachFile(ctx context.Context, storeID, fileID string) error
	AwaitIngestion(ctx context.Context, storeID string, fileIDs []string) error
	Ask(ctx context.Context, storeID, question string) (*models.Answer, error)
}

type UploadRequest struct {
	Context   context.Context
	SessionID int64
	FileName  string
	MimeType  string
	Size      int64
	Pages     int
	Data      []byte
}

type AskRequest struct {
	Context   context.Context
	SessionID int64
	Question  string
}

// Manager runs one worker goroutine per session. All store mutations and
// queries of a session pass through its worker in order, so ingestion status
// reads never race a concurrent upload. Sessions never share a worker.
type Manager struct {
	svc      *qa.Service
	provider Provider
	cache    *redis.Client
	cacheTTL time.Duration

	mu      sync.Mutex
	workers map[int64]*sessionWorker
}

// NewManager constructs a Manager. cache may be nil, which disables answer
// caching.
func NewManager(svc *qa.Service, p Provider, cache *redis.Client, cacheTTL time.Duration) *Manager {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &Manager{
		svc:      svc,
		provider: p,
		cache:    cache,
		cacheTTL: cacheTTL,
		workers:  make(map[int64]*sessionWorker),
	}
}

// Upload queues a document upload on the session's worker and waits for the
// outcome. When the caller's context ends first the result is abandoned but
// the remote upload runs to completion.
func (m *Manager) Upload(req UploadRequest) (*models.Document, error) {
	w := m.ensureWorker(req.SessionID)
	resultCh := make(chan taskResult, 1)
	select {
	case w.tasks <- task{kind: taskUpload, upload: req, resultCh: resultCh}:
	case <-w.stop:
		return nil, ErrSessionClosed
	default:
		return nil, ErrBusy
	}

	ctx := req.Context
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case res := <-resultCh:
		return res.doc, res.err
	case <-w.stop:
		return nil, ErrSessionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Ask queues a question on the session's worker and waits for the answer.
func (m *Manager) Ask(req AskRequest) (*models.Answer, error) {
	w := m.ensureWorker(req.SessionID)
	resultCh := make(chan taskResult, 1)
	select {
	case w.tasks <- task{kind: taskAsk, ask: req, resultCh: resultCh}:
	case <-w.stop:
		return nil, ErrSessionClosed
	default:
		return nil, ErrBusy
	}

	ctx := req.Context
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case res := <-resultCh:
		return res.answer, res.err
	case <-w.stop:
		return nil, ErrSessionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// LastAnswer returns the most recent answer shown to the session, if any.
func (m *Manager) LastAnswer(sessionID int64) *models.Answer {
	m.mu.Lock()
	w := m.workers[sessionID]
	m.mu.Unlock()
	if w == nil {
		return nil
	}
	return w.getLastAnswer()
}

// Purge stops and forgets the session's worker. Queued tasks are drained
// with an error.
func (m *Manager) Purge(sessionID int64) {
	m.mu.Lock()
	w := m.workers[sessionID]
	if w != nil {
		delete(m.workers, sessionID)
	}
	m.mu.Unlock()
	if w != nil {
		close(w.stop)
	}
}

func (m *Manager) ensureWorker(sessionID int64) *sessionWorker {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.workers[sessionID]; ok {
		return w
	}
	w := newSessionWorker()
	m.workers[sessionID] = w
	go m.runWorker(sessionID, w)
	return w
}

func (m *Manager) runWorker(sessionID int64, w *sessionWorker) {
	for {
		select {
		case <-w.stop:
			debugLog("[worker] session %d stopped", sessionID)
			m.drain(w)
			return
		case t := <-w.tasks:
			var res taskResult
			switch t.kind {
			case taskUpload:
				res.doc, res.err = m.handleUpload(w, t.upload)
			case taskAsk:
				res.answer, res.err = m.handleAsk(w, t.ask)
			}
			t.resultCh <- res
		}
	}
}

func (m *Manager) drain(w *sessionWorker) {
	for {
		select {
		case t := <-w.tasks:
			t.resultCh <- taskResult{err: ErrSessionClosed}
		default:
			return
		}
	}
}

// handleUpload drives one document through the full remote path: ensure a
// bound store, upload, attach, await ingestion, record the terminal state.
// It runs detached from the request context; an abandoned HTTP request does
// not cancel the provider call.
func (m *Manager) handleUpload(w *sessionWorker, req UploadRequest) (*models.Document, error) {
	ctx := context.Background()

	doc, err := m.svc.RecordDocument(ctx, req.SessionID, req.FileName, req.MimeType, req.Size, req.Pages)
	if err != nil {
		return nil, err
	}

	storeID, err := m.svc.ActiveStore(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if storeID == "" {
		storeID, err = m.provider.CreateStore(ctx, fmt.Sprintf(defaultName, req.SessionID))
		if err != nil {
			return m.failDocument(ctx, doc, err)
		}
		if err := m.svc.BindStore(ctx, req.SessionID, storeID); err != nil {
			return m.failDocument(ctx, doc, err)
		}
		debugLog("[worker] session %d bound store %s", req.SessionID, storeID)
	}

	fileID, err := m.provider.UploadFile(ctx, req.FileName, req.Data)
	if err != nil {
		return m.failDocument(ctx, doc, err)
	}
	if err := m.svc.SetDocumentRemote(ctx, doc.ID, fileID, storeID); err != nil {
		return nil, err
	}
	doc.RemoteFileID = fileID
	doc.StoreID = storeID

	if err := m.provider.AttachFile(ctx, storeID, fileID); err != nil {
		return m.failDocument(ctx, doc, err)
	}
	if err := m.provider.AwaitIngestion(ctx, storeID, []string{fileID}); err != nil {
		return m.failDocument(ctx, doc, err)
	}

	if err := m.svc.SetDocumentStatus(ctx, doc.ID, models.DocumentReady, ""); err != nil {
		return nil, err
	}
	doc.Status = models.DocumentReady
	debugLog("[worker] session %d document %d ready", req.SessionID, doc.ID)
	return doc, nil
}

// handleAsk refuses empty stores locally, consults the answer cache, and
// otherwise performs the single blocking provider round trip.
func (m *Manager) handleAsk(w *sessionWorker, req AskRequest) (*models.Answer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
	defer cancel()

	storeID, err := m.svc.ActiveStore(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	ready, err := m.svc.CountReadyDocuments(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if storeID == "" || ready == 0 {
		return nil, qa.ErrStoreEmpty
	}

	key := answerCacheKey(storeID, ready, req.Question)
	if answer := m.cachedAnswer(ctx, key); answer != nil {
		w.setLastAnswer(answer)
		return answer, nil
	}

	answer, err := m.provider.Ask(ctx, storeID, req.Question)
	if err != nil {
		return nil, err
	}

	m.storeAnswer(ctx, key, answer)
	w.setLastAnswer(answer)
	if err := m.svc.TouchSession(ctx, req.SessionID); err != nil {
		debugLog("[worker] touch session %d failed: %v", req.SessionID, err)
	}
	return answer, nil
}

func (m *Manager) failDocument(ctx context.Context, doc *models.Document, cause error) (*models.Document, error) {
	if err := m.svc.SetDocumentStatus(ctx, doc.ID, models.DocumentFailed, cause.Error()); err != nil {
		debugLog("[worker] mark document %d failed: %v", doc.ID, err)
	}
	doc.Status = models.DocumentFailed
	doc.Error = cause.Error()
	return doc, cause
}

package worker

import (
	"sync"

	"pdfqa/internal/models"
)

type taskKind int

const (
	taskUpload taskKind = iota
	taskAsk
)

type task struct {
	kind     taskKind
	upload   UploadRequest
	ask      AskRequest
	resultCh chan taskResult
}

type taskResult struct {
	doc    *models.Document
	answer *models.Answer
	err    error
}

// sessionWorker holds the per-session task queue and the ephemeral last
// answer. The answer lives only in memory; it is gone when the worker is.
type sessionWorker struct {
	tasks chan task
	stop  chan struct{}

	mu         sync.RWMutex
	lastAnswer *models.Answer
}

func newSessionWorker() *sessionWorker {
	return &sessionWorker{
		tasks: make(chan task, queueLen),
		stop:  make(chan struct{}),
	}
}

func (w *sessionWorker) setLastAnswer(a *models.Answer) {
	w.mu.Lock()
	w.lastAnswer = a
	w.mu.Unlock()
}

func (w *sessionWorker) getLastAnswer() *models.Answer {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastAnswer
}

package api

import (
	"database/sql"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"pdfqa/internal/auth"
	"pdfqa/internal/models"
	"pdfqa/internal/pdfcheck"
	"pdfqa/internal/provider"
	"pdfqa/internal/service/qa"
	"pdfqa/internal/worker"
)

// WorkerManager serializes per-session provider work.
type WorkerManager interface {
	Upload(worker.UploadRequest) (*models.Document, error)
	Ask(worker.AskRequest) (*models.Answer, error)
	LastAnswer(sessionID int64) *models.Answer
	Purge(sessionID int64)
}

// Handler wires HTTP routes to the qa service and the per-session workers.
type Handler struct {
	qa        *qa.Service
	auth      *auth.Service
	workers   WorkerManager
	maxUpload int64

	// precheck validates PDF bytes before any remote call; swapped out in
	// tests.
	precheck func([]byte) (int, error)
}

// NewHandler constructs a Handler instance.
func NewHandler(service *qa.Service, authService *auth.Service, workers WorkerManager, maxUpload int64) *Handler {
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &Handler{
		qa:        service,
		auth:      authService,
		workers:   workers,
		maxUpload: maxUpload,
		precheck:  pdfcheck.Check,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/", h.index)

	api := router.Group("/api")
	api.POST("/sessions", h.createSession)

	current := api.Group("/sessions/current")
	current.Use(h.auth.Middleware())
	current.GET("", h.sessionState)
	current.POST("/reset", h.resetSession)
	current.DELETE("", h.deleteSession)
	current.POST("/documents", h.uploadDocument)
	current.POST("/ask", h.ask)
}

func (h *Handler) authorizedSessionID(c *gin.Context) (int64, bool) {
	sessionID, ok := auth.SessionIDFromContext(c)
	if !ok || sessionID <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return 0, false
	}
	return sessionID, true
}

func (h *Handler) createSession(c *gin.Context) {
	session, err := h.qa.CreateSession(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	token, err := h.auth.IssueToken(c.Request.Context(), session.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"session_id":    session.ID,
		"session_token": token,
		"created_at":    session.CreatedAt,
	})
}

func (h *Handler) sessionState(c *gin.Context) {
	sessionID, ok := h.authorizedSessionID(c)
	if !ok {
		return
	}
	session, err := h.qa.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	docs, err := h.qa.ListDocuments(c.Request.Context(), sessionID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	if docs == nil {
		docs = make([]models.Document, 0)
	}
	payload := gin.H{
		"session":   session,
		"documents": docs,
	}
	if answer := h.workers.LastAnswer(sessionID); answer != nil {
		payload["last_answer"] = answer
	}
	c.JSON(http.StatusOK, payload)
}

func (h *Handler) resetSession(c *gin.Context) {
	sessionID, ok := h.authorizedSessionID(c)
	if !ok {
		return
	}
	h.workers.Purge(sessionID)
	if err := h.qa.ResetSession(c.Request.Context(), sessionID); err != nil {
		h.renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteSession(c *gin.Context) {
	sessionID, ok := h.authorizedSessionID(c)
	if !ok {
		return
	}
	h.workers.Purge(sessionID)
	if err := h.auth.RevokeSessionTokens(c.Request.Context(), sessionID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.qa.DeleteSession(c.Request.Context(), sessionID); err != nil {
		h.renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) uploadDocument(c *gin.Context) {
	sessionID, ok := h.authorizedSessionID(c)
	if !ok {
		return
	}
	if err := c.Request.ParseMultipartForm(h.maxUpload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if file.Size > h.maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "open file failed"})
		return
	}
	data, err := io.ReadAll(io.LimitReader(f, h.maxUpload+1))
	_ = f.Close()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read file failed"})
		return
	}
	if int64(len(data)) > h.maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	contentType := http.DetectContentType(data[:min(len(data), 512)])
	if !strings.HasPrefix(contentType, "application/pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only pdf uploads are supported"})
		return
	}
	pages, err := h.precheck(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := h.workers.Upload(worker.UploadRequest{
		Context:   c.Request.Context(),
		SessionID: sessionID,
		FileName:  filepath.Base(file.Filename),
		MimeType:  contentType,
		Size:      file.Size,
		Pages:     pages,
		Data:      data,
	})
	if err != nil {
		h.renderUploadError(c, doc, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"document": doc})
}

type askRequest struct {
	Question string `json:"question"`
}

func (h *Handler) ask(c *gin.Context) {
	sessionID, ok := h.authorizedSessionID(c)
	if !ok {
		return
	}
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}

	answer, err := h.workers.Ask(worker.AskRequest{
		Context:   c.Request.Context(),
		SessionID: sessionID,
		Question:  question,
	})
	if err != nil {
		if errors.Is(err, provider.ErrNoAnswer) {
			c.JSON(http.StatusOK, gin.H{"no_answer": true, "message": "no answer found"})
			return
		}
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

// renderError maps the failure taxonomy onto HTTP statuses. Nothing here is
// allowed to end the session; the user retries the action.
func (h *Handler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, qa.ErrStoreEmpty):
		c.JSON(http.StatusBadRequest, gin.H{"error": "upload at least one document before asking"})
	case errors.Is(err, qa.ErrStoreBound):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, worker.ErrBusy):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "server is busy, please retry"})
	case errors.Is(err, provider.ErrUploadRejected):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, provider.ErrIngestionFailed), errors.Is(err, provider.ErrIngestionTimeout):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, provider.ErrUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

// renderUploadError keeps the per-file document state in the body so the UI
// can show which file failed without blocking other files.
func (h *Handler) renderUploadError(c *gin.Context, doc *models.Document, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, worker.ErrBusy):
		status = http.StatusTooManyRequests
	case errors.Is(err, provider.ErrIngestionFailed), errors.Is(err, provider.ErrIngestionTimeout):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, provider.ErrUnavailable):
		status = http.StatusBadGateway
	}
	body := gin.H{"error": err.Error()}
	if doc != nil {
		body["document"] = doc
	}
	c.JSON(status, body)
}

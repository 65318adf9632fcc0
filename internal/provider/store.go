package provider

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// IngestStatus is the provider-side processing state of an uploaded file.
type IngestStatus string

const (
	IngestInProgress IngestStatus = "in_progress"
	IngestCompleted  IngestStatus = "completed"
	IngestFailed     IngestStatus = "failed"
	IngestCancelled  IngestStatus = "cancelled"
)

func (s IngestStatus) terminal() bool {
	switch s {
	case IngestCompleted, IngestFailed, IngestCancelled:
		return true
	}
	return false
}

type storeObject struct {
	ID string `json:"id"`
}

type fileObject struct {
	ID       string       `json:"id"`
	Filename string       `json:"filename"`
	Status   IngestStatus `json:"status"`
	LastErr  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"last_error,omitempty"`
}

// CreateStore creates an empty remote document store and returns its id.
func (c *Client) CreateStore(ctx context.Context, name string) (string, error) {
	var out storeObject
	err := c.doJSON(ctx, http.MethodPost, "/vector_stores", map[string]string{"name": name}, &out)
	if err != nil {
		return "", fmt.Errorf("create store: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("create store: %w: empty store id", ErrUnavailable)
	}
	return out.ID, nil
}

// UploadFile sends raw file bytes to the provider and returns the remote file
// id. The file is not searchable until it is attached to a store and
// ingestion completes.
func (c *Client) UploadFile(ctx context.Context, filename string, data []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("purpose", "assistants"); err != nil {
		return "", fmt.Errorf("write purpose field: %w", err)
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write file part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out fileObject
	if err := c.send(req, &out); err != nil {
		if isRequestError(err) {
			return "", fmt.Errorf("%w: %v", ErrUploadRejected, err)
		}
		return "", fmt.Errorf("upload %s: %w", filename, err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("upload %s: %w: empty file id", filename, ErrUnavailable)
	}
	return out.ID, nil
}

// AttachFile adds an uploaded file to a store, which starts ingestion.
func (c *Client) AttachFile(ctx context.Context, storeID, fileID string) error {
	path := fmt.Sprintf("/vector_stores/%s/files", storeID)
	var out fileObject
	if err := c.doJSON(ctx, http.MethodPost, path, map[string]string{"file_id": fileID}, &out); err != nil {
		if isRequestError(err) {
			return fmt.Errorf("%w: %v", ErrUploadRejected, err)
		}
		return fmt.Errorf("attach file %s: %w", fileID, err)
	}
	return nil
}

// FileStatus reports the ingestion state of one file inside a store.
func (c *Client) FileStatus(ctx context.Context, storeID, fileID string) (IngestStatus, error) {
	path := fmt.Sprintf("/vector_stores/%s/files/%s", storeID, fileID)
	var out fileObject
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return "", fmt.Errorf("file status %s: %w", fileID, err)
	}
	if out.Status == "" {
		return "", fmt.Errorf("file status %s: %w: empty status", fileID, ErrUnavailable)
	}
	return out.Status, nil
}

// AwaitIngestion polls until every listed file reaches a terminal state or
// the poll budget runs out. It never returns success while any file is still
// pending. Failed files are reported together under ErrIngestionFailed.
func (c *Client) AwaitIngestion(ctx context.Context, storeID string, fileIDs []string) error {
	if len(fileIDs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.pollMaxWait)
	defer cancel()

	pending := make(map[string]struct{}, len(fileIDs))
	for _, id := range fileIDs {
		pending[id] = struct{}{}
	}
	var failed []string

	interval := c.pollInterval
	for {
		for id := range pending {
			status, err := c.FileStatus(ctx, storeID, id)
			if err != nil {
				if ctx.Err() != nil {
					return fmt.Errorf("%w: %d file(s) still pending", ErrIngestionTimeout, len(pending))
				}
				return err
			}
			if !status.terminal() {
				continue
			}
			delete(pending, id)
			if status != IngestCompleted {
				failed = append(failed, id)
			}
		}
		if len(pending) == 0 {
			break
		}

		select {
		case <-time.After(interval):
			// back off up to the poll ceiling
			if next := interval * 2; next <= 30*time.Second {
				interval = next
			}
		case <-ctx.Done():
			return fmt.Errorf("%w: %d file(s) still pending", ErrIngestionTimeout, len(pending))
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%w: %s", ErrIngestionFailed, strings.Join(failed, ", "))
	}
	return nil
}

package models

import "time"

type DocumentStatus string

const (
	DocumentPending DocumentStatus = "pending"
	DocumentReady   DocumentStatus = "ready"
	DocumentFailed  DocumentStatus = "failed"
)

// Document is a user-uploaded PDF tracked against its remote counterpart.
// RemoteFileID is empty until the provider accepts the upload.
type Document struct {
	ID           int64          `json:"id"`
	SessionID    int64          `json:"session_id"`
	FileName     string         `json:"file_name"`
	RemoteFileID string         `json:"remote_file_id,omitempty"`
	StoreID      string         `json:"store_id,omitempty"`
	MimeType     string         `json:"mime_type"`
	Size         int64          `json:"size"`
	Pages        int            `json:"pages"`
	Status       DocumentStatus `json:"status"`
	Error        string         `json:"error,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

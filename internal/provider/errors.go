package provider

import "errors"

// Failure kinds surfaced to the user. Everything here is recoverable: the
// triggering action reports it and the session carries on.
var (
	// ErrUnavailable covers transport failures and provider-side 5xx.
	ErrUnavailable = errors.New("provider unavailable")

	// ErrUploadRejected is returned when the provider refuses a file
	// (unsupported type, size limit).
	ErrUploadRejected = errors.New("upload rejected")

	// ErrIngestionFailed reports documents that reached a terminal failed
	// state during ingestion.
	ErrIngestionFailed = errors.New("ingestion failed")

	// ErrIngestionTimeout reports documents still pending when the poll
	// budget ran out.
	ErrIngestionTimeout = errors.New("ingestion wait timed out")

	// ErrNoAnswer is returned when the provider response is empty,
	// unparseable, or the explicit no-evidence sentinel.
	ErrNoAnswer = errors.New("no answer found")
)

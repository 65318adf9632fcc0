package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"pdfqa/internal/config"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultPollMaxWait  = 5 * time.Minute
	defaultTimeout      = 60 * time.Second
)

// Client talks to the hosted file-search provider: remote stores, file
// uploads, ingestion status, and the retrieval-backed question call. It holds
// no local retrieval logic; everything past the HTTP boundary belongs to the
// provider.
type Client struct {
	baseURL      string
	apiKey       string
	model        string
	httpClient   *http.Client
	pollInterval time.Duration
	pollMaxWait  time.Duration
}

// NewClient builds a Client from provider config.
func NewClient(cfg config.ProviderConfig) *Client {
	interval := time.Duration(cfg.PollIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = defaultPollInterval
	}
	maxWait := time.Duration(cfg.PollMaxWaitSeconds) * time.Second
	if maxWait <= 0 {
		maxWait = defaultPollMaxWait
	}
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
		httpClient:   &http.Client{Timeout: timeout},
		pollInterval: interval,
		pollMaxWait:  maxWait,
	}
}

type apiError struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// doJSON sends a JSON request and decodes the JSON response into out.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

// send executes a prepared request, mapping transport and status failures to
// the error taxonomy.
func (c *Client) send(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode, data)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// requestError is a provider 4xx: the request itself was refused.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string {
	return fmt.Sprintf("provider returned %d: %s", e.status, e.msg)
}

func statusError(status int, body []byte) error {
	msg := ""
	var ae apiError
	if err := json.Unmarshal(body, &ae); err == nil && ae.Error != nil {
		msg = ae.Error.Message
	}
	if msg == "" {
		msg = fmt.Sprintf("status %d", status)
	}
	if status >= 400 && status < 500 {
		return &requestError{status: status, msg: msg}
	}
	return fmt.Errorf("%w: %s", ErrUnavailable, msg)
}

func isRequestError(err error) bool {
	var re *requestError
	return errors.As(err, &re)
}

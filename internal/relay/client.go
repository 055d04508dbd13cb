// Package relay submits invoices to the Helium Relay and probes its
// liveness.
package relay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"

	"transforma/internal/config"
	"transforma/internal/fileutil"
	"transforma/internal/jsonfield"
	"transforma/internal/logging"
)

const (
	userAgent    = "TransformaReader/1.0"
	ingestPath   = "/api/ingest"
	healthPath   = "/health"
	sourceField  = "transforma_reader"
	maxBodyBytes = 1 << 20
)

// SubmitOutcome is the result of one submission attempt. Error carries the
// human-readable failure detail shown in the UI.
type SubmitOutcome struct {
	Success       bool
	FIRSReference string
	FileUUID      string
	Error         string
	HTTPStatus    int
}

// HTTPDoer abstracts the HTTP client for tests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Option customises Client construction.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for relay calls.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithBaseURL overrides the relay base URL (used in tests).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// Client talks to the relay. A circuit breaker wraps the liveness probe so
// a dead relay is not re-probed on every UI refresh.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	breaker    *gobreaker.CircuitBreaker[bool]
	logger     *slog.Logger
}

// NewClient builds a relay client from configuration.
func NewClient(cfg *config.Config, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: cfg.Relay.BaseURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Relay.RequestTimeout) * time.Second,
		},
		logger: logging.NewComponentLogger(logger, "relay"),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker[bool](gobreaker.Settings{
		Name:    "relay-health",
		Timeout: time.Duration(cfg.Relay.HealthTimeout) * time.Second,
	})
	return c
}

// SubmitInvoice uploads the document at path as a multipart POST. The
// outcome is always well-formed; transport and HTTP failures land in
// Error, never as a Go error, because the orchestrator surfaces them as UI
// state.
func (c *Client) SubmitInvoice(ctx context.Context, path, userEmail, sessionToken string) SubmitOutcome {
	var outcome SubmitOutcome
	submissionID := uuid.NewString()

	body, contentType, err := buildMultipartBody(path, userEmail)
	if err != nil {
		outcome.Error = "Failed to read PDF file"
		c.logger.Warn("submit aborted before upload",
			logging.String("submission_id", submissionID),
			logging.Error(err))
		return outcome
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ingestPath, body)
	if err != nil {
		outcome.Error = "Failed to create submit request"
		return outcome
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Submission-Id", submissionID)
	if sessionToken != "" {
		req.Header.Set("Authorization", "Bearer "+sessionToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		outcome.Error = "Failed to reach relay (is it running?)"
		c.logger.Warn("submit request failed",
			logging.String("submission_id", submissionID),
			logging.Error(err))
		return outcome
	}
	defer resp.Body.Close()

	outcome.HTTPStatus = resp.StatusCode
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		outcome.Error = "Failed to read relay response"
		return outcome
	}

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		outcome.Success = true
		outcome.FileUUID, _ = jsonfield.String(string(respBody), "file_uuid")
		outcome.FIRSReference, _ = jsonfield.String(string(respBody), "firs_reference")
	case resp.StatusCode == http.StatusConflict:
		outcome.Error = "Invoice already submitted (duplicate)"
	case resp.StatusCode == http.StatusTooManyRequests:
		outcome.Error = "Daily submission limit exceeded"
	default:
		outcome.Error = fmt.Sprintf("Relay returned HTTP %d", resp.StatusCode)
	}
	return outcome
}

// IsRelayAvailable probes the liveness endpoint. While the breaker is open
// the probe short-circuits to false without touching the network.
func (c *Client) IsRelayAvailable(ctx context.Context) bool {
	alive, err := c.breaker.Execute(func() (bool, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
		if err != nil {
			return false, err
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return false, err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

		if resp.StatusCode != http.StatusOK {
			return false, fmt.Errorf("health returned HTTP %d", resp.StatusCode)
		}
		return true, nil
	})
	return err == nil && alive
}

// buildMultipartBody assembles the ingest form: source, user, then the
// document bytes as application/pdf.
func buildMultipartBody(path, userEmail string) (*bytes.Buffer, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open document: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	boundary := "----TransformaBoundary" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := writer.SetBoundary(boundary); err != nil {
		return nil, "", fmt.Errorf("set boundary: %w", err)
	}

	if err := writer.WriteField("source", sourceField); err != nil {
		return nil, "", fmt.Errorf("write source field: %w", err)
	}
	if err := writer.WriteField("user", userEmail); err != nil {
		return nil, "", fmt.Errorf("write user field: %w", err)
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileutil.BaseName(path)))
	header.Set("Content-Type", "application/pdf")
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("copy document: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("finish multipart body: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}

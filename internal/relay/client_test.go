package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"transforma/internal/config"
)

func writeDocument(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "INVOICE-1.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 fake invoice body"), 0o644); err != nil {
		t.Fatalf("write document: %v", err)
	}
	return path
}

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	cfg := config.Default()
	return NewClient(&cfg, nil, WithBaseURL(serverURL))
}

func TestSubmitInvoiceSuccess(t *testing.T) {
	var gotAuth, gotSource, gotUser, gotFilename, gotFileType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/ingest" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		gotSource = r.FormValue("source")
		gotUser = r.FormValue("user")
		if files := r.MultipartForm.File["file"]; len(files) == 1 {
			gotFilename = files[0].Filename
			gotFileType = files[0].Header.Get("Content-Type")
		}

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"file_uuid": "uuid-9", "firs_reference": "FIRS-1"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	outcome := client.SubmitInvoice(context.Background(), writeDocument(t), "ada@example.com", "tok-1")

	if !outcome.Success {
		t.Fatalf("outcome = %+v, want success", outcome)
	}
	if outcome.FIRSReference != "FIRS-1" || outcome.FileUUID != "uuid-9" {
		t.Errorf("parsed fields = %q/%q", outcome.FIRSReference, outcome.FileUUID)
	}
	if outcome.HTTPStatus != http.StatusCreated {
		t.Errorf("status = %d", outcome.HTTPStatus)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotSource != "transforma_reader" || gotUser != "ada@example.com" {
		t.Errorf("form fields = %q/%q", gotSource, gotUser)
	}
	if gotFilename != "INVOICE-1.pdf" {
		t.Errorf("uploaded filename = %q, want base name only", gotFilename)
	}
	if gotFileType != "application/pdf" {
		t.Errorf("file content type = %q", gotFileType)
	}
}

func TestSubmitInvoiceStatusMapping(t *testing.T) {
	cases := []struct {
		status    int
		wantError string
	}{
		{http.StatusConflict, "Invoice already submitted (duplicate)"},
		{http.StatusTooManyRequests, "Daily submission limit exceeded"},
		{http.StatusInternalServerError, "Relay returned HTTP 500"},
		{http.StatusForbidden, "Relay returned HTTP 403"},
	}

	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		client := newTestClient(t, server.URL)

		outcome := client.SubmitInvoice(context.Background(), writeDocument(t), "u", "tok")
		server.Close()

		if outcome.Success {
			t.Errorf("status %d reported success", tc.status)
		}
		if outcome.Error != tc.wantError {
			t.Errorf("status %d error = %q, want %q", tc.status, outcome.Error, tc.wantError)
		}
		if outcome.HTTPStatus != tc.status {
			t.Errorf("HTTPStatus = %d, want %d", outcome.HTTPStatus, tc.status)
		}
	}
}

func TestSubmitInvoiceMissingFile(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:0")
	outcome := client.SubmitInvoice(context.Background(), filepath.Join(t.TempDir(), "absent.pdf"), "u", "tok")
	if outcome.Success || !strings.Contains(outcome.Error, "read PDF") {
		t.Errorf("outcome = %+v, want read failure before any network call", outcome)
	}
}

func TestSubmitInvoiceTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := newTestClient(t, server.URL)
	outcome := client.SubmitInvoice(context.Background(), writeDocument(t), "u", "tok")
	if outcome.Success || !strings.Contains(outcome.Error, "reach relay") {
		t.Errorf("outcome = %+v, want transport failure detail", outcome)
	}
}

func TestIsRelayAvailable(t *testing.T) {
	healthy := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected probe path %q", r.URL.Path)
		}
		if healthy {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if !client.IsRelayAvailable(context.Background()) {
		t.Error("healthy relay reported unavailable")
	}

	healthy = false
	if client.IsRelayAvailable(context.Background()) {
		t.Error("unhealthy relay reported available")
	}
}

func TestIsRelayAvailableBreakerOpensOnRepeatedFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	probes := 0
	cfg := config.Default()
	client := NewClient(&cfg, nil,
		WithBaseURL(server.URL),
		WithHTTPClient(doerFunc(func(req *http.Request) (*http.Response, error) {
			probes++
			return http.DefaultClient.Do(req)
		})))

	// Drive the breaker open, then confirm probes stop reaching the network.
	for i := 0; i < 10; i++ {
		client.IsRelayAvailable(context.Background())
	}
	probesWhenOpen := probes
	for i := 0; i < 5; i++ {
		if client.IsRelayAvailable(context.Background()) {
			t.Fatal("dead relay reported available")
		}
	}
	if probes != probesWhenOpen {
		t.Errorf("breaker did not short-circuit: %d probes after open", probes-probesWhenOpen)
	}
}

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

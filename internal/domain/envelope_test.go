package domain

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteErrorShape(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/airbnb/properties?page=2", nil)

	WriteError(rec, req, ErrNotFound("property not found", map[string]any{"resource": "property"}))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var env ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Success {
		t.Fatal("success = true on error envelope")
	}
	if env.Error.Code != "NOT_FOUND" {
		t.Fatalf("code = %q", env.Error.Code)
	}
	if env.Path != "/api/airbnb/properties?page=2" {
		t.Fatalf("path = %q", env.Path)
	}
	if env.Timestamp == "" {
		t.Fatal("timestamp missing")
	}
}

func TestWriteErrorNormalizesUnknownErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/x", nil)

	WriteError(rec, req, errors.New("pq: connection refused"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var env ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Code != "INTERNAL_SERVER_ERROR" {
		t.Fatalf("code = %q", env.Error.Code)
	}
	// The original error text never reaches the wire
	if env.Error.Message != "An unexpected error occurred." {
		t.Fatalf("message = %q", env.Error.Message)
	}
}

func TestWriteErrorSetsRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/x", nil)

	WriteError(rec, req, ErrRateLimit("Too many requests", 60))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "60" {
		t.Fatalf("Retry-After = %q, want 60", got)
	}
}

func TestNewAPIErrorAlwaysHasDetails(t *testing.T) {
	e := NewAPIError("X", 400, "msg", nil)
	if e.Details == nil {
		t.Fatal("details is nil")
	}
}

func TestWriteListMeta(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteList(rec, []string{"a", "b"}, Meta{Total: 10, Page: 1, Limit: 2, HasMore: true})

	var env Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !env.Success || env.Meta == nil || env.Meta.Total != 10 || !env.Meta.HasMore {
		t.Fatalf("envelope = %+v", env)
	}
}

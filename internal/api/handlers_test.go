package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hoststack/otamock/internal/broadcast"
	"github.com/hoststack/otamock/internal/metrics"
	"github.com/hoststack/otamock/internal/simulate"
	"github.com/hoststack/otamock/internal/store/memory"
	"github.com/hoststack/otamock/internal/webhook"
)

// newTestRouter wires the full handler set with a zeroed failure profile and
// no injected latency so requests are fast and deterministic.
func newTestRouter(t *testing.T) (*chi.Mux, *memory.Store, *webhook.Queue, *metrics.Aggregator) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st := memory.New()
	hub := broadcast.NewHub(logger)
	t.Cleanup(hub.Shutdown)

	queue := webhook.NewQueue(webhook.Config{
		ProcessingDelay: time.Millisecond,
		RetryDelay:      time.Minute,
		SweepInterval:   time.Second,
		FailureRate:     0,
		MaxAttempts:     3,
	}, hub, logger)

	agg := metrics.New(logger)
	sim := simulate.New(simulate.Config{}, logger,
		simulate.WithSleep(func(context.Context, time.Duration) {}))

	r := chi.NewRouter()
	New(st, hub, queue, agg, sim, logger).Mount(r)
	return r, st, queue, agg
}

func doJSON(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("%s %s: invalid JSON response: %v", method, path, err)
		}
	}
	return rec, decoded
}

func dataOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	if body["success"] != true {
		t.Fatalf("success = %v, body = %v", body["success"], body)
	}
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("data is %T", body["data"])
	}
	return data
}

func errorOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	if body["success"] != false {
		t.Fatalf("success = %v, want false; body = %v", body["success"], body)
	}
	errObj, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("error is %T", body["error"])
	}
	return errObj
}

func TestPropertyLifecycleOverHTTP(t *testing.T) {
	r, _, _, _ := newTestRouter(t)

	rec, body := doJSON(t, r, "POST", "/api/airbnb/properties",
		`{"name":"Canal House","type":"house","address":{"city":"Amsterdam","country":"NL"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body)
	}
	created := dataOf(t, body)
	id, _ := created["id"].(string)
	if !strings.HasPrefix(id, "airbnb_") {
		t.Fatalf("id = %q, want airbnb_ prefix", id)
	}
	if created["channel"] != "airbnb" || created["status"] != "active" {
		t.Fatalf("created = %v", created)
	}

	rec, body = doJSON(t, r, "GET", "/api/airbnb/properties/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if dataOf(t, body)["name"] != "Canal House" {
		t.Fatalf("get returned %v", body["data"])
	}

	rec, body = doJSON(t, r, "PUT", "/api/airbnb/properties/"+id,
		`{"name":"Canal House Deluxe","type":"house","status":"active","address":{"city":"Amsterdam"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d", rec.Code)
	}

	rec, _ = doJSON(t, r, "DELETE", "/api/airbnb/properties/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec, body = doJSON(t, r, "GET", "/api/airbnb/properties/"+id, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", rec.Code)
	}
	if errorOf(t, body)["code"] != "NOT_FOUND" {
		t.Fatalf("error = %v", body["error"])
	}
}

func TestCreatePropertyValidation(t *testing.T) {
	r, _, _, _ := newTestRouter(t)

	rec, body := doJSON(t, r, "POST", "/api/booking/properties", `{"name":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if errorOf(t, body)["code"] != "VALIDATION_ERROR" {
		t.Fatalf("error = %v", body["error"])
	}

	rec, body = doJSON(t, r, "POST", "/api/booking/properties", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body status = %d, want 400", rec.Code)
	}
	if errorOf(t, body)["code"] != "VALIDATION_ERROR" {
		t.Fatalf("error = %v", body["error"])
	}
}

func TestCreateBookingChecksProperty(t *testing.T) {
	r, _, _, _ := newTestRouter(t)

	// Unknown property rejects the booking
	rec, body := doJSON(t, r, "POST", "/api/expedia/bookings",
		`{"propertyId":"missing","checkIn":"2026-09-01T00:00:00Z","checkOut":"2026-09-05T00:00:00Z"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if errorOf(t, body)["code"] != "NOT_FOUND" {
		t.Fatalf("error = %v", body["error"])
	}

	// Inverted date range is a validation error
	_, created := doJSON(t, r, "POST", "/api/expedia/properties",
		`{"name":"Loft","type":"apartment","address":{"city":"Paris"}}`)
	pid := dataOf(t, created)["id"].(string)

	rec, body = doJSON(t, r, "POST", "/api/expedia/bookings",
		`{"propertyId":"`+pid+`","checkIn":"2026-09-05T00:00:00Z","checkOut":"2026-09-01T00:00:00Z"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	// Valid booking defaults to confirmed
	rec, body = doJSON(t, r, "POST", "/api/expedia/bookings",
		`{"propertyId":"`+pid+`","guestName":"Kim Osei","checkIn":"2026-09-01T00:00:00Z","checkOut":"2026-09-05T00:00:00Z"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if dataOf(t, body)["status"] != "confirmed" {
		t.Fatalf("booking = %v", body["data"])
	}
}

func TestListEnvelopeCarriesMeta(t *testing.T) {
	r, _, _, _ := newTestRouter(t)

	for i := 0; i < 3; i++ {
		doJSON(t, r, "POST", "/api/vrbo/properties",
			`{"name":"Chalet","type":"house","address":{"city":"Aspen"}}`)
	}

	rec, body := doJSON(t, r, "GET", "/api/vrbo/properties?page=1&limit=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	meta, ok := body["meta"].(map[string]any)
	if !ok {
		t.Fatalf("meta missing: %v", body)
	}
	if meta["total"] != float64(3) || meta["hasMore"] != true {
		t.Fatalf("meta = %v", meta)
	}
}

func TestWebhookIntakeAndStatus(t *testing.T) {
	r, _, queue, _ := newTestRouter(t)

	rec, body := doJSON(t, r, "POST", "/api/webhooks/airbnb",
		`{"event_type":"booking.created","data":{"bookingId":"b1"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("intake status = %d: %s", rec.Code, rec.Body)
	}
	data := dataOf(t, body)
	if data["status"] != "received" || data["eventType"] != "booking.created" {
		t.Fatalf("ack = %v", data)
	}
	webhookID, _ := data["webhookId"].(string)
	if !strings.HasPrefix(webhookID, "airbnb_") {
		t.Fatalf("webhookId = %q", webhookID)
	}

	// Missing payload is rejected
	rec, body = doJSON(t, r, "POST", "/api/webhooks/booking", `{"event_type":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing data status = %d", rec.Code)
	}
	if errorOf(t, body)["code"] != "VALIDATION_ERROR" {
		t.Fatalf("error = %v", body["error"])
	}

	// Wait for async processing, then check the status listing
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		views, _ := queue.Query("airbnb", webhook.StatusProcessed, 1, 10)
		if len(views) == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	rec, body = doJSON(t, r, "GET", "/api/webhooks/status?channel=airbnb", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status endpoint = %d", rec.Code)
	}
	items, ok := body["data"].([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("status listing = %v", body["data"])
	}
	view := items[0].(map[string]any)
	if view["id"] != webhookID {
		t.Fatalf("listed id = %v, want %s", view["id"], webhookID)
	}
	if _, leaked := view["payload"]; leaked {
		t.Fatal("status listing exposes payload")
	}
}

func TestTestWebhookRequiresChannel(t *testing.T) {
	r, _, _, _ := newTestRouter(t)

	rec, body := doJSON(t, r, "POST", "/api/webhooks/test", `{"event_type":"ping"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if errorOf(t, body)["code"] != "VALIDATION_ERROR" {
		t.Fatalf("error = %v", body["error"])
	}

	rec, body = doJSON(t, r, "POST", "/api/webhooks/test",
		`{"channel":"qa","event_type":"ping"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if dataOf(t, body)["channel"] != "qa" {
		t.Fatalf("ack = %v", body["data"])
	}
}

func TestMetricsEndpoints(t *testing.T) {
	r, _, _, _ := newTestRouter(t)

	// Generate a little traffic first
	doJSON(t, r, "GET", "/api/agoda/properties", "")

	rec, body := doJSON(t, r, "GET", "/api/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	data := dataOf(t, body)
	if _, ok := data["totalRequests"]; !ok {
		t.Fatalf("snapshot = %v", data)
	}

	rec, body = doJSON(t, r, "GET", "/api/metrics/detailed", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("detailed status = %d", rec.Code)
	}
	if _, ok := dataOf(t, body)["responseTimeStats"]; !ok {
		t.Fatalf("detailed snapshot = %v", body["data"])
	}

	rec, body = doJSON(t, r, "GET", "/api/metrics/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	if _, ok := dataOf(t, body)["isHealthy"]; !ok {
		t.Fatalf("health = %v", body["data"])
	}

	rec, _ = doJSON(t, r, "POST", "/api/metrics/reset", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d", rec.Code)
	}
}

func TestSimulateLoadValidation(t *testing.T) {
	r, _, _, _ := newTestRouter(t)

	cases := []struct {
		name string
		body string
	}{
		{"duration too long", `{"duration":600000,"requestsPerSecond":10}`},
		{"rps too high", `{"duration":1000,"requestsPerSecond":150}`},
		{"negative duration", `{"duration":-1,"requestsPerSecond":10}`},
		{"zero rps", `{"duration":1000,"requestsPerSecond":0}`},
	}
	for _, c := range cases {
		rec, body := doJSON(t, r, "POST", "/api/metrics/simulate-load", c.body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", c.name, rec.Code)
			continue
		}
		if errorOf(t, body)["code"] != "VALIDATION_ERROR" {
			t.Errorf("%s: error = %v", c.name, body["error"])
		}
	}

	rec, body := doJSON(t, r, "POST", "/api/metrics/simulate-load",
		`{"duration":1000,"requestsPerSecond":5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid request status = %d: %s", rec.Code, rec.Body)
	}
	data := dataOf(t, body)
	if data["estimatedTotalRequests"] != float64(5) {
		t.Fatalf("estimatedTotalRequests = %v, want 5", data["estimatedTotalRequests"])
	}
}

func TestSimulateLoadOutlivesRequest(t *testing.T) {
	router, _, _, agg := newTestRouter(t)

	// A real server cancels the request context once the acknowledgement is
	// written; the generator must keep recording past that point.
	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/metrics/simulate-load", "application/json",
		strings.NewReader(`{"duration":2000,"requestsPerSecond":100}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if agg.Snapshot().TotalRequests >= 10 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("load generator stopped with the request: %d synthetic requests recorded",
		agg.Snapshot().TotalRequests)
}

func TestHealthEndpoint(t *testing.T) {
	r, _, _, _ := newTestRouter(t)

	rec, body := doJSON(t, r, "GET", "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data := dataOf(t, body)
	if data["status"] != "healthy" {
		t.Fatalf("health = %v", data)
	}
	services, ok := data["services"].(map[string]any)
	if !ok {
		t.Fatalf("services missing: %v", data)
	}
	for _, key := range []string{"websocket", "performance", "data"} {
		if _, ok := services[key]; !ok {
			t.Errorf("services missing %q", key)
		}
	}
}

func TestUnknownProviderNotRouted(t *testing.T) {
	r, _, _, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/tripadvisor/properties", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

package domain

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// Meta carries pagination information on list responses.
type Meta struct {
	Total   int  `json:"total"`
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"hasMore"`
}

// Envelope is the standard success wrapper returned on every response.
type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Meta      *Meta  `json:"meta,omitempty"`
	Timestamp string `json:"timestamp"`
}

// ErrorEnvelope is the standard failure wrapper. Path echoes the request URL.
type ErrorEnvelope struct {
	Success   bool      `json:"success"`
	Error     *APIError `json:"error"`
	Timestamp string    `json:"timestamp"`
	Path      string    `json:"path,omitempty"`
}

// WriteJSON writes any payload as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteSuccess writes a success envelope.
func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, Envelope{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// WriteList writes a success envelope with pagination meta.
func WriteList(w http.ResponseWriter, data any, meta Meta) {
	WriteJSON(w, http.StatusOK, Envelope{
		Success:   true,
		Data:      data,
		Meta:      &meta,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// WriteError normalizes err into the error envelope. Non-APIError values are
// downgraded to a generic internal error so internals never reach the wire.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr, ok := err.(*APIError)
	if !ok {
		apiErr = ErrInternal("An unexpected error occurred.")
	}

	if apiErr.StatusCode == http.StatusTooManyRequests {
		if retry, ok := apiErr.Details["retryAfter"].(int); ok {
			w.Header().Set("Retry-After", strconv.Itoa(retry))
		}
	}

	path := ""
	if r != nil {
		path = r.URL.RequestURI()
	}
	WriteJSON(w, apiErr.StatusCode, ErrorEnvelope{
		Success:   false,
		Error:     apiErr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      path,
	})
}

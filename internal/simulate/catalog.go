// Package simulate degrades and fails requests on purpose. It holds the
// static error catalogs and the probabilistic middleware pipeline that wraps
// every provider route.
package simulate

import (
	"math/rand"

	"github.com/google/uuid"

	"github.com/hoststack/otamock/internal/domain"
)

// ErrorDescriptor is one entry of the static error catalog.
type ErrorDescriptor struct {
	Code       string
	Message    string
	StatusCode int
	Details    map[string]any
}

// Rand is the random source used by every probabilistic decision. Tests
// substitute a deterministic implementation.
type Rand interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
	// IntN returns a value in [0, n).
	IntN(n int) int
}

// sysRand delegates to the shared math/rand/v2 generator.
type sysRand struct{}

func (sysRand) Float64() float64 { return rand.Float64() }
func (sysRand) IntN(n int) int   { return rand.Intn(n) }

// NewRand returns the default random source.
func NewRand() Rand { return sysRand{} }

// descriptorFor adapts a taxonomy error into a catalog entry.
func descriptorFor(e *domain.APIError) ErrorDescriptor {
	return ErrorDescriptor{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Details:    e.Details,
	}
}

// genericCatalog holds the five transient failures any provider can return.
var genericCatalog = []ErrorDescriptor{
	{
		Code:       "TEMPORARY_UNAVAILABLE",
		Message:    "Service temporarily unavailable",
		StatusCode: 503,
		Details:    map[string]any{"retryAfter": 30},
	},
	{
		Code:       "INVALID_REQUEST",
		Message:    "Invalid request parameters",
		StatusCode: 400,
		Details:    map[string]any{"field": "unknown"},
	},
	{
		Code:       "AUTHENTICATION_FAILED",
		Message:    "Invalid API credentials",
		StatusCode: 401,
		Details:    map[string]any{"reason": "expired_token"},
	},
	descriptorFor(domain.ErrRateLimit("Too many requests", 60)),
	{
		Code:       "INTERNAL_ERROR",
		Message:    "Internal server error",
		StatusCode: 500,
		Details:    nil, // requestId filled per draw
	},
}

// providerCatalog maps each platform to its single dedicated failure mode.
var providerCatalog = map[domain.Provider]ErrorDescriptor{
	domain.ProviderAirbnb: {
		Code:       "AIRBNB_API_ERROR",
		Message:    "Airbnb API temporarily unavailable",
		StatusCode: 503,
		Details:    map[string]any{"retryAfter": 120, "errorCode": "API_MAINTENANCE"},
	},
	domain.ProviderBooking: {
		Code:       "BOOKING_API_ERROR",
		Message:    "Booking.com API rate limit exceeded",
		StatusCode: 429,
		Details:    map[string]any{"retryAfter": 300, "errorCode": "RATE_LIMIT"},
	},
	domain.ProviderExpedia: {
		Code:       "EXPEDIA_API_ERROR",
		Message:    "Expedia API authentication failed",
		StatusCode: 401,
		Details:    map[string]any{"errorCode": "AUTH_FAILED", "reason": "invalid_credentials"},
	},
	domain.ProviderAgoda: {
		Code:       "AGODA_API_ERROR",
		Message:    "Agoda API validation error",
		StatusCode: 400,
		Details:    map[string]any{"errorCode": "VALIDATION_ERROR", "field": "checkin_date"},
	},
	domain.ProviderVrbo: {
		Code:       "VRBO_API_ERROR",
		Message:    "Vrbo API service unavailable",
		StatusCode: 503,
		Details:    map[string]any{"retryAfter": 60, "errorCode": "SERVICE_DOWN"},
	},
}

// RandomError draws a uniform entry from the generic catalog.
func RandomError(r Rand) ErrorDescriptor {
	desc := genericCatalog[r.IntN(len(genericCatalog))]
	desc.Details = copyDetails(desc.Details)
	if desc.Code == "INTERNAL_ERROR" {
		desc.Details["requestId"] = uuid.NewString()[:8]
	}
	return desc
}

// ProviderError returns the provider's dedicated descriptor, falling back to a
// generic draw for unknown providers.
func ProviderError(r Rand, provider string) ErrorDescriptor {
	if desc, ok := providerCatalog[domain.Provider(provider)]; ok {
		desc.Details = copyDetails(desc.Details)
		return desc
	}
	return RandomError(r)
}

// APIError converts the descriptor into the wire error type.
func (d ErrorDescriptor) APIError() *domain.APIError {
	return domain.NewAPIError(d.Code, d.StatusCode, d.Message, copyDetails(d.Details))
}

func copyDetails(in map[string]any) map[string]any {
	out := make(map[string]any, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}

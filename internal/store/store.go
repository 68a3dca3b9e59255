// Package store defines the record store holding generated provider entities.
// Backends: memory (default) and sqlite.
package store

import (
	"context"
	"errors"

	"github.com/hoststack/otamock/internal/domain"
)

// ErrNotFound is returned when no entity matches the requested id.
var ErrNotFound = errors.New("not found")

// ListOptions filters and paginates collection listings. Zero values mean
// "no filter"; Page and Limit default to 1 and 20.
type ListOptions struct {
	Channel    string
	Status     string
	PropertyID string
	Search     string
	Page       int
	Limit      int
}

// Normalize applies the page/limit defaults.
func (o ListOptions) Normalize() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit < 1 {
		o.Limit = 20
	}
	return o
}

// Store is the keyed CRUD and filter/paginate surface over the four entity
// collections. List operations return the page and the pre-pagination total.
type Store interface {
	CreateProperty(ctx context.Context, p *domain.Property) error
	GetProperty(ctx context.Context, id string) (*domain.Property, error)
	UpdateProperty(ctx context.Context, p *domain.Property) error
	DeleteProperty(ctx context.Context, id string) error
	ListProperties(ctx context.Context, opts ListOptions) ([]*domain.Property, int, error)

	CreateBooking(ctx context.Context, b *domain.Booking) error
	GetBooking(ctx context.Context, id string) (*domain.Booking, error)
	UpdateBooking(ctx context.Context, b *domain.Booking) error
	ListBookings(ctx context.Context, opts ListOptions) ([]*domain.Booking, int, error)

	CreateRatePlan(ctx context.Context, r *domain.RatePlan) error
	GetRatePlan(ctx context.Context, id string) (*domain.RatePlan, error)
	UpdateRatePlan(ctx context.Context, r *domain.RatePlan) error
	ListRatePlans(ctx context.Context, opts ListOptions) ([]*domain.RatePlan, int, error)

	CreateCalendarEntry(ctx context.Context, c *domain.CalendarEntry) error
	UpdateCalendarEntry(ctx context.Context, c *domain.CalendarEntry) error
	ListCalendar(ctx context.Context, opts ListOptions) ([]*domain.CalendarEntry, int, error)

	// Counts reports per-collection sizes for the health endpoint.
	Counts(ctx context.Context) (map[string]int, error)

	Close() error
}

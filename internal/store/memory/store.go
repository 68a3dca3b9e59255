// Package memory is the in-memory record store backend.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hoststack/otamock/internal/domain"
	"github.com/hoststack/otamock/internal/store"
)

// Store keeps every collection in a mutex-guarded map.
type Store struct {
	mu         sync.RWMutex
	properties map[string]*domain.Property
	bookings   map[string]*domain.Booking
	ratePlans  map[string]*domain.RatePlan
	calendar   map[string]*domain.CalendarEntry
}

var _ store.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		properties: make(map[string]*domain.Property),
		bookings:   make(map[string]*domain.Booking),
		ratePlans:  make(map[string]*domain.RatePlan),
		calendar:   make(map[string]*domain.CalendarEntry),
	}
}

func (s *Store) CreateProperty(ctx context.Context, p *domain.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	cp := *p
	s.properties[p.ID] = &cp
	return nil
}

func (s *Store) GetProperty(ctx context.Context, id string) (*domain.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.properties[id]
	if !ok || p.Status == "deleted" {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) UpdateProperty(ctx context.Context, p *domain.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.properties[p.ID]
	if !ok || existing.Status == "deleted" {
		return store.ErrNotFound
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now()
	cp := *p
	s.properties[p.ID] = &cp
	return nil
}

// DeleteProperty is a soft delete; the record stays queryable by nothing.
func (s *Store) DeleteProperty(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.properties[id]
	if !ok || p.Status == "deleted" {
		return store.ErrNotFound
	}
	p.Status = "deleted"
	p.UpdatedAt = time.Now()
	return nil
}

func (s *Store) ListProperties(ctx context.Context, opts store.ListOptions) ([]*domain.Property, int, error) {
	s.mu.RLock()
	var all []*domain.Property
	for _, p := range s.properties {
		if p.Status == "deleted" {
			continue
		}
		if opts.Channel != "" && p.Channel != opts.Channel {
			continue
		}
		if opts.Status != "" && p.Status != opts.Status {
			continue
		}
		if opts.Search != "" {
			term := strings.ToLower(opts.Search)
			if !strings.Contains(strings.ToLower(p.Name), term) &&
				!strings.Contains(strings.ToLower(p.Description), term) &&
				!strings.Contains(strings.ToLower(p.Address.City), term) {
				continue
			}
		}
		cp := *p
		all = append(all, &cp)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return paginate(all, opts)
}

func (s *Store) CreateBooking(ctx context.Context, b *domain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	b.CreatedAt, b.UpdatedAt = now, now
	cp := *b
	s.bookings[b.ID] = &cp
	return nil
}

func (s *Store) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *Store) UpdateBooking(ctx context.Context, b *domain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.bookings[b.ID]
	if !ok {
		return store.ErrNotFound
	}
	b.CreatedAt = existing.CreatedAt
	b.UpdatedAt = time.Now()
	cp := *b
	s.bookings[b.ID] = &cp
	return nil
}

func (s *Store) ListBookings(ctx context.Context, opts store.ListOptions) ([]*domain.Booking, int, error) {
	s.mu.RLock()
	var all []*domain.Booking
	for _, b := range s.bookings {
		if opts.Channel != "" && b.Channel != opts.Channel {
			continue
		}
		if opts.Status != "" && b.Status != opts.Status {
			continue
		}
		if opts.PropertyID != "" && b.PropertyID != opts.PropertyID {
			continue
		}
		cp := *b
		all = append(all, &cp)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return paginate(all, opts)
}

func (s *Store) CreateRatePlan(ctx context.Context, r *domain.RatePlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	r.CreatedAt, r.UpdatedAt = now, now
	cp := *r
	s.ratePlans[r.ID] = &cp
	return nil
}

func (s *Store) GetRatePlan(ctx context.Context, id string) (*domain.RatePlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.ratePlans[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Store) UpdateRatePlan(ctx context.Context, r *domain.RatePlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.ratePlans[r.ID]
	if !ok {
		return store.ErrNotFound
	}
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = time.Now()
	cp := *r
	s.ratePlans[r.ID] = &cp
	return nil
}

func (s *Store) ListRatePlans(ctx context.Context, opts store.ListOptions) ([]*domain.RatePlan, int, error) {
	s.mu.RLock()
	var all []*domain.RatePlan
	for _, r := range s.ratePlans {
		if opts.Channel != "" && r.Channel != opts.Channel {
			continue
		}
		if opts.PropertyID != "" && r.PropertyID != opts.PropertyID {
			continue
		}
		cp := *r
		all = append(all, &cp)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return paginate(all, opts)
}

func (s *Store) CreateCalendarEntry(ctx context.Context, c *domain.CalendarEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	cp := *c
	s.calendar[c.ID] = &cp
	return nil
}

func (s *Store) UpdateCalendarEntry(ctx context.Context, c *domain.CalendarEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.calendar[c.ID]
	if !ok {
		return store.ErrNotFound
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now()
	cp := *c
	s.calendar[c.ID] = &cp
	return nil
}

func (s *Store) ListCalendar(ctx context.Context, opts store.ListOptions) ([]*domain.CalendarEntry, int, error) {
	s.mu.RLock()
	var all []*domain.CalendarEntry
	for _, c := range s.calendar {
		if opts.Channel != "" && c.Channel != opts.Channel {
			continue
		}
		if opts.PropertyID != "" && c.PropertyID != opts.PropertyID {
			continue
		}
		cp := *c
		all = append(all, &cp)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].Date.Before(all[j].Date) })
	total := len(all)
	start, end := bounds(opts.Normalize(), total)
	return all[start:end], total, nil
}

func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	live := 0
	for _, p := range s.properties {
		if p.Status != "deleted" {
			live++
		}
	}
	return map[string]int{
		"properties": live,
		"bookings":   len(s.bookings),
		"ratePlans":  len(s.ratePlans),
		"calendars":  len(s.calendar),
	}, nil
}

func (s *Store) Close() error { return nil }

// paginate applies page bounds to a newest-first slice.
func paginate[T any](all []*T, opts store.ListOptions) ([]*T, int, error) {
	total := len(all)
	start, end := bounds(opts.Normalize(), total)
	return all[start:end], total, nil
}

func bounds(opts store.ListOptions, total int) (int, int) {
	start := (opts.Page - 1) * opts.Limit
	if start > total {
		start = total
	}
	end := start + opts.Limit
	if end > total {
		end = total
	}
	return start, end
}

package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hoststack/otamock/internal/domain"
	"github.com/hoststack/otamock/internal/store"
)

func newProperty(id, channel, name, city string) *domain.Property {
	return &domain.Property{
		ID:      id,
		Channel: channel,
		Name:    name,
		Type:    "apartment",
		Address: domain.Address{City: city, Country: "US"},
		Status:  "active",
	}
}

func TestPropertyCRUD(t *testing.T) {
	s := New()
	ctx := context.Background()

	p := newProperty("p1", "airbnb", "Sea View Loft", "Lisbon")
	if err := s.CreateProperty(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.CreatedAt.IsZero() || p.UpdatedAt.IsZero() {
		t.Fatal("create did not stamp timestamps")
	}

	got, err := s.GetProperty(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Sea View Loft" {
		t.Fatalf("name = %q", got.Name)
	}

	// Mutating the returned copy does not leak into the store
	got.Name = "changed"
	again, _ := s.GetProperty(ctx, "p1")
	if again.Name != "Sea View Loft" {
		t.Fatal("returned value aliases stored record")
	}

	upd := newProperty("p1", "airbnb", "Harbor Loft", "Lisbon")
	if err := s.UpdateProperty(ctx, upd); err != nil {
		t.Fatalf("update: %v", err)
	}
	if upd.CreatedAt != p.CreatedAt {
		t.Fatal("update changed createdAt")
	}

	if _, err := s.GetProperty(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("get missing: %v", err)
	}
	if err := s.UpdateProperty(ctx, newProperty("missing", "airbnb", "x", "y")); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("update missing: %v", err)
	}
}

func TestPropertySoftDelete(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.CreateProperty(ctx, newProperty("p1", "vrbo", "Cabin", "Oslo")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.DeleteProperty(ctx, "p1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// Deleted records are invisible everywhere
	if _, err := s.GetProperty(ctx, "p1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("get after delete: %v", err)
	}
	if err := s.DeleteProperty(ctx, "p1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("double delete: %v", err)
	}
	items, total, err := s.ListProperties(ctx, store.ListOptions{})
	if err != nil || total != 0 || len(items) != 0 {
		t.Fatalf("deleted property listed: total=%d err=%v", total, err)
	}

	counts, _ := s.Counts(ctx)
	if counts["properties"] != 0 {
		t.Fatalf("counts include deleted property: %v", counts)
	}
}

func TestListPropertiesFilters(t *testing.T) {
	s := New()
	ctx := context.Background()

	seed := []*domain.Property{
		newProperty("p1", "airbnb", "Sunny Apartment", "Barcelona"),
		newProperty("p2", "airbnb", "Mountain Cabin", "Denver"),
		newProperty("p3", "booking", "Sunny Villa", "Barcelona"),
	}
	seed[1].Status = "inactive"
	for _, p := range seed {
		if err := s.CreateProperty(ctx, p); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	_, total, _ := s.ListProperties(ctx, store.ListOptions{Channel: "airbnb"})
	if total != 2 {
		t.Fatalf("channel filter total = %d, want 2", total)
	}

	_, total, _ = s.ListProperties(ctx, store.ListOptions{Channel: "airbnb", Status: "inactive"})
	if total != 1 {
		t.Fatalf("status filter total = %d, want 1", total)
	}

	// Search matches name and city, case-insensitive
	_, total, _ = s.ListProperties(ctx, store.ListOptions{Search: "sunny"})
	if total != 2 {
		t.Fatalf("search total = %d, want 2", total)
	}
	_, total, _ = s.ListProperties(ctx, store.ListOptions{Search: "barcelona"})
	if total != 2 {
		t.Fatalf("city search total = %d, want 2", total)
	}
}

func TestListPagination(t *testing.T) {
	s := New()
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		p := newProperty(fmt.Sprintf("p%02d", i), "agoda", fmt.Sprintf("Unit %d", i), "Bangkok")
		if err := s.CreateProperty(ctx, p); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	items, total, _ := s.ListProperties(ctx, store.ListOptions{Page: 1, Limit: 10})
	if total != 25 || len(items) != 10 {
		t.Fatalf("page 1: total=%d len=%d", total, len(items))
	}
	items, _, _ = s.ListProperties(ctx, store.ListOptions{Page: 3, Limit: 10})
	if len(items) != 5 {
		t.Fatalf("page 3 len = %d, want 5", len(items))
	}
	items, _, _ = s.ListProperties(ctx, store.ListOptions{Page: 9, Limit: 10})
	if len(items) != 0 {
		t.Fatalf("past-the-end page len = %d, want 0", len(items))
	}

	// Zero values fall back to page 1, limit 20
	items, _, _ = s.ListProperties(ctx, store.ListOptions{})
	if len(items) != 20 {
		t.Fatalf("default page len = %d, want 20", len(items))
	}
}

func TestBookingLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	b := &domain.Booking{
		ID:         "b1",
		Channel:    "booking",
		PropertyID: "p1",
		GuestName:  "Alex Reed",
		CheckIn:    time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:   time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC),
		Status:     "confirmed",
	}
	if err := s.CreateBooking(ctx, b); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetBooking(ctx, "b1")
	if err != nil || got.GuestName != "Alex Reed" {
		t.Fatalf("get: %v %+v", err, got)
	}

	got.Status = "cancelled"
	if err := s.UpdateBooking(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	after, _ := s.GetBooking(ctx, "b1")
	if after.Status != "cancelled" {
		t.Fatalf("status = %q", after.Status)
	}

	_, total, _ := s.ListBookings(ctx, store.ListOptions{PropertyID: "p1"})
	if total != 1 {
		t.Fatalf("propertyId filter total = %d", total)
	}
	_, total, _ = s.ListBookings(ctx, store.ListOptions{PropertyID: "other"})
	if total != 0 {
		t.Fatalf("non-matching filter total = %d", total)
	}
}

func TestCalendarOrderedByDate(t *testing.T) {
	s := New()
	ctx := context.Background()

	days := []int{3, 1, 2}
	for _, d := range days {
		c := &domain.CalendarEntry{
			ID:         fmt.Sprintf("c%d", d),
			Channel:    "expedia",
			PropertyID: "p1",
			Date:       time.Date(2026, 9, d, 0, 0, 0, 0, time.UTC),
			Available:  true,
		}
		if err := s.CreateCalendarEntry(ctx, c); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	items, total, err := s.ListCalendar(ctx, store.ListOptions{PropertyID: "p1"})
	if err != nil || total != 3 {
		t.Fatalf("list: total=%d err=%v", total, err)
	}
	for i := 1; i < len(items); i++ {
		if items[i].Date.Before(items[i-1].Date) {
			t.Fatal("calendar not ordered by date")
		}
	}
}

func TestCounts(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.CreateProperty(ctx, newProperty("p1", "airbnb", "A", "X")); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateBooking(ctx, &domain.Booking{ID: "b1", Channel: "airbnb", PropertyID: "p1"}); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateRatePlan(ctx, &domain.RatePlan{ID: "r1", Channel: "airbnb", PropertyID: "p1", BaseRate: 100}); err != nil {
		t.Fatal(err)
	}

	counts, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	want := map[string]int{"properties": 1, "bookings": 1, "ratePlans": 1, "calendars": 0}
	for k, v := range want {
		if counts[k] != v {
			t.Errorf("counts[%s] = %d, want %d", k, counts[k], v)
		}
	}
}

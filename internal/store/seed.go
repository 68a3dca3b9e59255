package store

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/hoststack/otamock/internal/domain"
)

// SeedCounts sizes the generated mock dataset.
type SeedCounts struct {
	Properties int `koanf:"properties"`
	Bookings   int `koanf:"bookings"`
	RatePlans  int `koanf:"rate_plans"`
	Calendars  int `koanf:"calendars"`
}

// DefaultSeedCounts mirrors the development dataset.
func DefaultSeedCounts() SeedCounts {
	return SeedCounts{Properties: 50, Bookings: 200, RatePlans: 100, Calendars: 1000}
}

var (
	propertyTypes = []string{"apartment", "house", "villa", "cabin", "studio"}
	cities        = []string{"Lisbon", "Barcelona", "Austin", "Kyoto", "Tulum", "Reykjavik"}
	guestNames    = []string{"Alex Chen", "Maria Gomez", "Sam Patel", "Nora Berg", "Liam Walsh"}
)

func pick[T any](items []T) T { return items[rand.Intn(len(items))] }

func randomChannel() string { return string(pick(domain.Providers)) }

// Seed populates s with generated mock entities. Bookings, rate plans and
// calendar entries reference seeded properties.
func Seed(ctx context.Context, s Store, counts SeedCounts) error {
	propertyIDs := make([]string, 0, counts.Properties)
	propertyChannel := make(map[string]string, counts.Properties)

	for i := 0; i < counts.Properties; i++ {
		city := pick(cities)
		p := &domain.Property{
			ID:          uuid.NewString(),
			Channel:     randomChannel(),
			Name:        fmt.Sprintf("%s %s #%d", city, pick(propertyTypes), i+1),
			Description: fmt.Sprintf("A mock %s in %s for integration testing", pick(propertyTypes), city),
			Type:        pick(propertyTypes),
			Address: domain.Address{
				Street:  fmt.Sprintf("%d Main St", rand.Intn(900)+100),
				City:    city,
				Country: "XX",
				ZipCode: fmt.Sprintf("%05d", rand.Intn(100000)),
			},
			MaxGuests: rand.Intn(8) + 2,
			BasePrice: float64(rand.Intn(950) + 50),
			Status:    "active",
		}
		if err := s.CreateProperty(ctx, p); err != nil {
			return err
		}
		propertyIDs = append(propertyIDs, p.ID)
		propertyChannel[p.ID] = p.Channel
	}

	if len(propertyIDs) == 0 {
		return nil
	}

	bookingStatuses := []string{"confirmed", "pending", "cancelled"}
	for i := 0; i < counts.Bookings; i++ {
		propertyID := pick(propertyIDs)
		checkIn := time.Now().AddDate(0, 0, rand.Intn(120)-30)
		b := &domain.Booking{
			ID:         uuid.NewString(),
			Channel:    propertyChannel[propertyID],
			PropertyID: propertyID,
			GuestName:  pick(guestNames),
			CheckIn:    checkIn,
			CheckOut:   checkIn.AddDate(0, 0, rand.Intn(13)+1),
			Guests:     rand.Intn(6) + 1,
			TotalPrice: float64(rand.Intn(2900) + 100),
			Status:     pick(bookingStatuses),
		}
		if err := s.CreateBooking(ctx, b); err != nil {
			return err
		}
	}

	for i := 0; i < counts.RatePlans; i++ {
		propertyID := pick(propertyIDs)
		start := time.Now().AddDate(0, 0, rand.Intn(60))
		r := &domain.RatePlan{
			ID:         uuid.NewString(),
			Channel:    propertyChannel[propertyID],
			PropertyID: propertyID,
			Name:       fmt.Sprintf("Standard rate %d", i+1),
			Currency:   "USD",
			BaseRate:   float64(rand.Intn(450) + 50),
			StartDate:  start,
			EndDate:    start.AddDate(0, rand.Intn(6)+1, 0),
			Status:     "active",
		}
		if err := s.CreateRatePlan(ctx, r); err != nil {
			return err
		}
	}

	for i := 0; i < counts.Calendars; i++ {
		propertyID := pick(propertyIDs)
		c := &domain.CalendarEntry{
			ID:         uuid.NewString(),
			Channel:    propertyChannel[propertyID],
			PropertyID: propertyID,
			Date:       time.Now().AddDate(0, 0, i%365).Truncate(24 * time.Hour),
			Available:  rand.Float64() > 0.3,
			Price:      float64(rand.Intn(450) + 50),
			MinStay:    rand.Intn(4) + 1,
		}
		if err := s.CreateCalendarEntry(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

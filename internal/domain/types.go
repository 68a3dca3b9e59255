package domain

import "time"

// Provider identifies one of the simulated travel-booking platforms.
type Provider string

const (
	ProviderAirbnb  Provider = "airbnb"
	ProviderBooking Provider = "booking"
	ProviderExpedia Provider = "expedia"
	ProviderAgoda   Provider = "agoda"
	ProviderVrbo    Provider = "vrbo"
)

// Providers lists every simulated platform in a stable order.
var Providers = []Provider{
	ProviderAirbnb,
	ProviderBooking,
	ProviderExpedia,
	ProviderAgoda,
	ProviderVrbo,
}

// Address is a property's physical location.
type Address struct {
	Street    string  `json:"street"`
	City      string  `json:"city"`
	State     string  `json:"state"`
	Country   string  `json:"country"`
	ZipCode   string  `json:"zipCode"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
}

// Property is a listed rental unit.
type Property struct {
	ID          string    `json:"id"`
	Channel     string    `json:"channel"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Type        string    `json:"type"`
	Address     Address   `json:"address"`
	MaxGuests   int       `json:"maxGuests,omitempty"`
	BasePrice   float64   `json:"basePrice,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Booking is a reservation against a property.
type Booking struct {
	ID         string    `json:"id"`
	Channel    string    `json:"channel"`
	PropertyID string    `json:"propertyId"`
	GuestName  string    `json:"guestName,omitempty"`
	CheckIn    time.Time `json:"checkIn"`
	CheckOut   time.Time `json:"checkOut"`
	Guests     int       `json:"guests,omitempty"`
	TotalPrice float64   `json:"totalPrice,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// RatePlan prices a property over a date range.
type RatePlan struct {
	ID         string    `json:"id"`
	Channel    string    `json:"channel"`
	PropertyID string    `json:"propertyId"`
	Name       string    `json:"name"`
	Currency   string    `json:"currency"`
	BaseRate   float64   `json:"baseRate"`
	StartDate  time.Time `json:"startDate"`
	EndDate    time.Time `json:"endDate"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// CalendarEntry is a single-day availability record for a property.
type CalendarEntry struct {
	ID         string    `json:"id"`
	Channel    string    `json:"channel"`
	PropertyID string    `json:"propertyId"`
	Date       time.Time `json:"date"`
	Available  bool      `json:"available"`
	Price      float64   `json:"price,omitempty"`
	MinStay    int       `json:"minStay,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

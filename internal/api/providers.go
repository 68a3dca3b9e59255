package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hoststack/otamock/internal/domain"
	"github.com/hoststack/otamock/internal/store"
)

// newEntityID mints ids in the provider_timestamp_fragment shape the
// simulated platforms use.
func newEntityID(provider string) string {
	return fmt.Sprintf("%s_%d_%s", provider, time.Now().UnixMilli(), uuid.NewString()[:7])
}

// mountProviderRoutes attaches the thin CRUD surface for one provider.
func (h *Handlers) mountProviderRoutes(r chi.Router, provider string) {
	r.Get("/properties", h.listProperties(provider))
	r.Post("/properties", h.createProperty(provider))
	r.Get("/properties/{id}", h.getProperty)
	r.Put("/properties/{id}", h.updateProperty(provider))
	r.Delete("/properties/{id}", h.deleteProperty(provider))

	r.Get("/bookings", h.listBookings(provider))
	r.Post("/bookings", h.createBooking(provider))
	r.Get("/bookings/{id}", h.getBooking)
	r.Put("/bookings/{id}", h.updateBooking(provider))

	r.Get("/rates", h.listRatePlans(provider))
	r.Post("/rates", h.createRatePlan(provider))
	r.Put("/rates/{id}", h.updateRatePlan(provider))

	r.Get("/calendar", h.listCalendar(provider))
	r.Put("/calendar/{id}", h.updateCalendarEntry(provider))
}

func (h *Handlers) listProperties(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := store.ListOptions{
			Channel: provider,
			Status:  r.URL.Query().Get("status"),
			Search:  r.URL.Query().Get("search"),
			Page:    queryInt(r, "page", 1),
			Limit:   queryInt(r, "limit", 20),
		}
		items, total, err := h.store.ListProperties(r.Context(), opts)
		if err != nil {
			domain.WriteError(w, r, err)
			return
		}
		domain.WriteList(w, items, pageMeta(total, opts.Page, opts.Limit))
	}
}

func (h *Handlers) getProperty(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.GetProperty(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, r, err, "property")
		return
	}
	domain.WriteSuccess(w, p)
}

func (h *Handlers) createProperty(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p domain.Property
		if err := decodeBody(r, &p); err != nil {
			domain.WriteError(w, r, err)
			return
		}
		if p.Name == "" || p.Address.City == "" {
			domain.WriteError(w, r, domain.ErrValidation("Name and address are required", nil))
			return
		}
		p.ID = newEntityID(provider)
		p.Channel = provider
		if p.Status == "" {
			p.Status = "active"
		}
		if err := h.store.CreateProperty(r.Context(), &p); err != nil {
			domain.WriteError(w, r, err)
			return
		}
		h.hub.PropertyUpdate(provider, &p)
		h.logger.Info("property created",
			slog.String("channel", provider),
			slog.String("property_id", p.ID))
		domain.WriteSuccess(w, &p)
	}
}

func (h *Handlers) updateProperty(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p domain.Property
		if err := decodeBody(r, &p); err != nil {
			domain.WriteError(w, r, err)
			return
		}
		p.ID = chi.URLParam(r, "id")
		p.Channel = provider
		if err := h.store.UpdateProperty(r.Context(), &p); err != nil {
			writeStoreError(w, r, err, "property")
			return
		}
		h.hub.PropertyUpdate(provider, &p)
		domain.WriteSuccess(w, &p)
	}
}

func (h *Handlers) deleteProperty(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := h.store.DeleteProperty(r.Context(), id); err != nil {
			writeStoreError(w, r, err, "property")
			return
		}
		h.hub.PropertyUpdate(provider, map[string]any{"id": id, "status": "deleted"})
		domain.WriteSuccess(w, map[string]any{"id": id, "deleted": true})
	}
}

func (h *Handlers) listBookings(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := store.ListOptions{
			Channel:    provider,
			Status:     r.URL.Query().Get("status"),
			PropertyID: r.URL.Query().Get("propertyId"),
			Page:       queryInt(r, "page", 1),
			Limit:      queryInt(r, "limit", 20),
		}
		items, total, err := h.store.ListBookings(r.Context(), opts)
		if err != nil {
			domain.WriteError(w, r, err)
			return
		}
		domain.WriteList(w, items, pageMeta(total, opts.Page, opts.Limit))
	}
}

func (h *Handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.store.GetBooking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, r, err, "booking")
		return
	}
	domain.WriteSuccess(w, b)
}

func (h *Handlers) createBooking(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var b domain.Booking
		if err := decodeBody(r, &b); err != nil {
			domain.WriteError(w, r, err)
			return
		}
		if b.PropertyID == "" || b.CheckIn.IsZero() || b.CheckOut.IsZero() {
			domain.WriteError(w, r, domain.ErrValidation(
				"propertyId, checkIn and checkOut are required", nil))
			return
		}
		if !b.CheckOut.After(b.CheckIn) {
			domain.WriteError(w, r, domain.ErrValidation(
				"checkOut must be after checkIn", map[string]any{"field": "checkOut"}))
			return
		}
		if _, err := h.store.GetProperty(r.Context(), b.PropertyID); err != nil {
			writeStoreError(w, r, err, "property")
			return
		}
		b.ID = newEntityID(provider)
		b.Channel = provider
		if b.Status == "" {
			b.Status = "confirmed"
		}
		if err := h.store.CreateBooking(r.Context(), &b); err != nil {
			domain.WriteError(w, r, err)
			return
		}
		h.hub.BookingUpdate(provider, &b)
		h.logger.Info("booking created",
			slog.String("channel", provider),
			slog.String("booking_id", b.ID))
		domain.WriteSuccess(w, &b)
	}
}

func (h *Handlers) updateBooking(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var b domain.Booking
		if err := decodeBody(r, &b); err != nil {
			domain.WriteError(w, r, err)
			return
		}
		b.ID = chi.URLParam(r, "id")
		b.Channel = provider
		if err := h.store.UpdateBooking(r.Context(), &b); err != nil {
			writeStoreError(w, r, err, "booking")
			return
		}
		h.hub.BookingUpdate(provider, &b)
		domain.WriteSuccess(w, &b)
	}
}

func (h *Handlers) listRatePlans(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := store.ListOptions{
			Channel:    provider,
			PropertyID: r.URL.Query().Get("propertyId"),
			Page:       queryInt(r, "page", 1),
			Limit:      queryInt(r, "limit", 20),
		}
		items, total, err := h.store.ListRatePlans(r.Context(), opts)
		if err != nil {
			domain.WriteError(w, r, err)
			return
		}
		domain.WriteList(w, items, pageMeta(total, opts.Page, opts.Limit))
	}
}

func (h *Handlers) createRatePlan(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rp domain.RatePlan
		if err := decodeBody(r, &rp); err != nil {
			domain.WriteError(w, r, err)
			return
		}
		if rp.PropertyID == "" || rp.BaseRate <= 0 {
			domain.WriteError(w, r, domain.ErrValidation(
				"propertyId and a positive baseRate are required", nil))
			return
		}
		rp.ID = newEntityID(provider)
		rp.Channel = provider
		if rp.Status == "" {
			rp.Status = "active"
		}
		if rp.Currency == "" {
			rp.Currency = "USD"
		}
		if err := h.store.CreateRatePlan(r.Context(), &rp); err != nil {
			domain.WriteError(w, r, err)
			return
		}
		h.hub.RateUpdate(provider, &rp)
		domain.WriteSuccess(w, &rp)
	}
}

func (h *Handlers) updateRatePlan(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rp domain.RatePlan
		if err := decodeBody(r, &rp); err != nil {
			domain.WriteError(w, r, err)
			return
		}
		rp.ID = chi.URLParam(r, "id")
		rp.Channel = provider
		if err := h.store.UpdateRatePlan(r.Context(), &rp); err != nil {
			writeStoreError(w, r, err, "rate plan")
			return
		}
		h.hub.RateUpdate(provider, &rp)
		domain.WriteSuccess(w, &rp)
	}
}

func (h *Handlers) listCalendar(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := store.ListOptions{
			Channel:    provider,
			PropertyID: r.URL.Query().Get("propertyId"),
			Page:       queryInt(r, "page", 1),
			Limit:      queryInt(r, "limit", 31),
		}
		items, total, err := h.store.ListCalendar(r.Context(), opts)
		if err != nil {
			domain.WriteError(w, r, err)
			return
		}
		domain.WriteList(w, items, pageMeta(total, opts.Page, opts.Limit))
	}
}

func (h *Handlers) updateCalendarEntry(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var c domain.CalendarEntry
		if err := decodeBody(r, &c); err != nil {
			domain.WriteError(w, r, err)
			return
		}
		c.ID = chi.URLParam(r, "id")
		c.Channel = provider
		if err := h.store.UpdateCalendarEntry(r.Context(), &c); err != nil {
			writeStoreError(w, r, err, "calendar entry")
			return
		}
		h.hub.CalendarUpdate(provider, &c)
		domain.WriteSuccess(w, &c)
	}
}

func pageMeta(total, page, limit int) domain.Meta {
	return domain.Meta{
		Total:   total,
		Page:    page,
		Limit:   limit,
		HasMore: page*limit < total,
	}
}

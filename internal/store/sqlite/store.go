// Package sqlite is the SQLite record store backend. Entities are stored as
// JSON documents with indexed filter columns, one table per collection shape.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/hoststack/otamock/internal/domain"
	"github.com/hoststack/otamock/internal/store"
)

const (
	kindProperty = "property"
	kindBooking  = "booking"
	kindRatePlan = "rate_plan"
	kindCalendar = "calendar_entry"
)

// Store persists entities in a single documents table keyed (kind, id).
type Store struct {
	db *sqlx.DB
}

var _ store.Store = (*Store)(nil)

// New opens (or creates) the database at path and initializes the schema.
func New(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS entities (
		kind TEXT NOT NULL,
		id TEXT NOT NULL,
		channel TEXT NOT NULL DEFAULT '',
		property_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT '',
		doc TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (kind, id)
	);
	CREATE INDEX IF NOT EXISTS idx_entities_channel ON entities(kind, channel);
	CREATE INDEX IF NOT EXISTS idx_entities_property ON entities(kind, property_id);`)
	return err
}

type row struct {
	ID        string    `db:"id"`
	Channel   string    `db:"channel"`
	Property  string    `db:"property_id"`
	Status    string    `db:"status"`
	Doc       string    `db:"doc"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (s *Store) insert(ctx context.Context, kind, id, channel, propertyID, status string, doc any, createdAt, updatedAt time.Time) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO entities (kind, id, channel, property_id, status, doc, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		kind, id, channel, propertyID, status, string(raw), createdAt, updatedAt)
	return err
}

func (s *Store) update(ctx context.Context, kind, id, status string, doc any, updatedAt time.Time) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE entities SET status = ?, doc = ?, updated_at = ? WHERE kind = ? AND id = ?`,
		status, string(raw), updatedAt, kind, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) get(ctx context.Context, kind, id string, out any) error {
	var r row
	err := s.db.GetContext(ctx, &r,
		`SELECT id, channel, property_id, status, doc, created_at, updated_at
		 FROM entities WHERE kind = ? AND id = ?`, kind, id)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(r.Doc), out)
}

// list fetches one filtered page of docs plus the pre-pagination count.
func (s *Store) list(ctx context.Context, kind string, opts store.ListOptions, orderBy string) ([]string, int, error) {
	opts = opts.Normalize()

	where := []string{"kind = ?"}
	args := []any{kind}
	if opts.Channel != "" {
		where = append(where, "channel = ?")
		args = append(args, opts.Channel)
	}
	if opts.Status != "" {
		where = append(where, "status = ?")
		args = append(args, opts.Status)
	} else {
		where = append(where, "status != 'deleted'")
	}
	if opts.PropertyID != "" {
		where = append(where, "property_id = ?")
		args = append(args, opts.PropertyID)
	}
	if opts.Search != "" {
		where = append(where, "doc LIKE ?")
		args = append(args, "%"+opts.Search+"%")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := s.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM entities WHERE "+cond, args...); err != nil {
		return nil, 0, err
	}

	args = append(args, opts.Limit, (opts.Page-1)*opts.Limit)
	var docs []string
	if err := s.db.SelectContext(ctx, &docs,
		"SELECT doc FROM entities WHERE "+cond+" ORDER BY "+orderBy+" LIMIT ? OFFSET ?",
		args...); err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

func decodeAll[T any](docs []string) ([]*T, error) {
	out := make([]*T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := json.Unmarshal([]byte(doc), &v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, nil
}

func (s *Store) CreateProperty(ctx context.Context, p *domain.Property) error {
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	return s.insert(ctx, kindProperty, p.ID, p.Channel, "", p.Status, p, now, now)
}

func (s *Store) GetProperty(ctx context.Context, id string) (*domain.Property, error) {
	var p domain.Property
	if err := s.get(ctx, kindProperty, id, &p); err != nil {
		return nil, err
	}
	if p.Status == "deleted" {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) UpdateProperty(ctx context.Context, p *domain.Property) error {
	existing, err := s.GetProperty(ctx, p.ID)
	if err != nil {
		return err
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now()
	return s.update(ctx, kindProperty, p.ID, p.Status, p, p.UpdatedAt)
}

func (s *Store) DeleteProperty(ctx context.Context, id string) error {
	p, err := s.GetProperty(ctx, id)
	if err != nil {
		return err
	}
	p.Status = "deleted"
	p.UpdatedAt = time.Now()
	return s.update(ctx, kindProperty, id, p.Status, p, p.UpdatedAt)
}

func (s *Store) ListProperties(ctx context.Context, opts store.ListOptions) ([]*domain.Property, int, error) {
	docs, total, err := s.list(ctx, kindProperty, opts, "created_at DESC")
	if err != nil {
		return nil, 0, err
	}
	out, err := decodeAll[domain.Property](docs)
	return out, total, err
}

func (s *Store) CreateBooking(ctx context.Context, b *domain.Booking) error {
	now := time.Now()
	b.CreatedAt, b.UpdatedAt = now, now
	return s.insert(ctx, kindBooking, b.ID, b.Channel, b.PropertyID, b.Status, b, now, now)
}

func (s *Store) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	var b domain.Booking
	if err := s.get(ctx, kindBooking, id, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) UpdateBooking(ctx context.Context, b *domain.Booking) error {
	existing, err := s.GetBooking(ctx, b.ID)
	if err != nil {
		return err
	}
	b.CreatedAt = existing.CreatedAt
	b.UpdatedAt = time.Now()
	return s.update(ctx, kindBooking, b.ID, b.Status, b, b.UpdatedAt)
}

func (s *Store) ListBookings(ctx context.Context, opts store.ListOptions) ([]*domain.Booking, int, error) {
	docs, total, err := s.list(ctx, kindBooking, opts, "created_at DESC")
	if err != nil {
		return nil, 0, err
	}
	out, err := decodeAll[domain.Booking](docs)
	return out, total, err
}

func (s *Store) CreateRatePlan(ctx context.Context, r *domain.RatePlan) error {
	now := time.Now()
	r.CreatedAt, r.UpdatedAt = now, now
	return s.insert(ctx, kindRatePlan, r.ID, r.Channel, r.PropertyID, r.Status, r, now, now)
}

func (s *Store) GetRatePlan(ctx context.Context, id string) (*domain.RatePlan, error) {
	var r domain.RatePlan
	if err := s.get(ctx, kindRatePlan, id, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) UpdateRatePlan(ctx context.Context, r *domain.RatePlan) error {
	existing, err := s.GetRatePlan(ctx, r.ID)
	if err != nil {
		return err
	}
	r.CreatedAt = existing.CreatedAt
	r.UpdatedAt = time.Now()
	return s.update(ctx, kindRatePlan, r.ID, r.Status, r, r.UpdatedAt)
}

func (s *Store) ListRatePlans(ctx context.Context, opts store.ListOptions) ([]*domain.RatePlan, int, error) {
	docs, total, err := s.list(ctx, kindRatePlan, opts, "created_at DESC")
	if err != nil {
		return nil, 0, err
	}
	out, err := decodeAll[domain.RatePlan](docs)
	return out, total, err
}

func (s *Store) CreateCalendarEntry(ctx context.Context, c *domain.CalendarEntry) error {
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	return s.insert(ctx, kindCalendar, c.ID, c.Channel, c.PropertyID, "", c, now, now)
}

func (s *Store) UpdateCalendarEntry(ctx context.Context, c *domain.CalendarEntry) error {
	existing := domain.CalendarEntry{}
	if err := s.get(ctx, kindCalendar, c.ID, &existing); err != nil {
		return err
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now()
	return s.update(ctx, kindCalendar, c.ID, "", c, c.UpdatedAt)
}

func (s *Store) ListCalendar(ctx context.Context, opts store.ListOptions) ([]*domain.CalendarEntry, int, error) {
	docs, total, err := s.list(ctx, kindCalendar, opts, "json_extract(doc, '$.date') ASC")
	if err != nil {
		return nil, 0, err
	}
	out, err := decodeAll[domain.CalendarEntry](docs)
	return out, total, err
}

func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	type kindCount struct {
		Kind  string `db:"kind"`
		Count int    `db:"count"`
	}
	var rows []kindCount
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT kind, COUNT(*) AS count FROM entities WHERE status != 'deleted' GROUP BY kind`); err != nil {
		return nil, err
	}
	counts := map[string]int{"properties": 0, "bookings": 0, "ratePlans": 0, "calendars": 0}
	for _, r := range rows {
		switch r.Kind {
		case kindProperty:
			counts["properties"] = r.Count
		case kindBooking:
			counts["bookings"] = r.Count
		case kindRatePlan:
			counts["ratePlans"] = r.Count
		case kindCalendar:
			counts["calendars"] = r.Count
		}
	}
	return counts, nil
}

func (s *Store) Close() error { return s.db.Close() }

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/iliyamo/shortlet-booking/internal/domain"
	"github.com/iliyamo/shortlet-booking/internal/model"
	"github.com/iliyamo/shortlet-booking/internal/reservation"
)

// MySQLStore is the production reservation.Store.  Each unit of work runs
// in one READ COMMITTED transaction; per-property serialisation comes from
// SELECT ... FOR UPDATE on the property row and the UNIQUE
// (property_id, night) key on booking_nights.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore returns a store bound to db.
func NewMySQLStore(db *sql.DB) *MySQLStore {
	if db == nil {
		panic("nil db passed to NewMySQLStore")
	}
	return &MySQLStore{db: db}
}

// DB exposes the underlying handle for health checks.
func (s *MySQLStore) DB() *sql.DB { return s.db }

// WithTx implements reservation.Store.
func (s *MySQLStore) WithTx(ctx context.Context, fn func(tx reservation.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&sqlTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

type sqlTx struct {
	tx *sql.Tx
}

const propertyColumns = `id, name, location, price_per_night, bedrooms, bathrooms, max_guests,
       status, images, featured, created_at, updated_at`

func (t *sqlTx) GetProperty(ctx context.Context, id uint64) (*model.Property, error) {
	return t.property(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = ?`, id)
}

func (t *sqlTx) LockProperty(ctx context.Context, id uint64) (*model.Property, error) {
	return t.property(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = ? FOR UPDATE`, id)
}

func (t *sqlTx) property(ctx context.Context, q string, id uint64) (*model.Property, error) {
	var (
		p      model.Property
		images []byte
	)
	err := t.tx.QueryRowContext(ctx, q, id).Scan(
		&p.ID, &p.Name, &p.Location, &p.PricePerNight, &p.Bedrooms, &p.Bathrooms, &p.MaxGuests,
		&p.Status, &images, &p.Featured, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err, domain.ErrPropertyNotFound)
	}
	p.Images = []string{}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &p.Images); err != nil {
			return nil, fmt.Errorf("decode property images: %w", err)
		}
	}
	return &p, nil
}

func (t *sqlTx) ActiveSeasonalRules(ctx context.Context) ([]model.SeasonalRule, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT id, label, start_date, end_date, multiplier, active
		 FROM seasonal_pricing WHERE active = 1 ORDER BY start_date DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SeasonalRule
	for rows.Next() {
		var r model.SeasonalRule
		if err := rows.Scan(&r.ID, &r.Label, &r.StartDate, &r.EndDate, &r.Multiplier, &r.Active); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

var _ reservation.Store = (*MySQLStore)(nil)

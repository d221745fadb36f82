package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/shortlet-booking/internal/model"
)

func (t *sqlTx) GetCustomer(ctx context.Context, id uint64) (*model.Customer, error) {
	var c model.Customer
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, full_name, email, phone, total_bookings, total_spent, created_at, updated_at
		 FROM customers WHERE id = ?`, id,
	).Scan(&c.ID, &c.FullName, &c.Email, &c.Phone, &c.TotalBookings, &c.TotalSpent, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound(err, ErrCustomerNotFound)
	}
	return &c, nil
}

// UpsertCustomer finds the customer by email or creates one.  Non-empty
// name and phone values overwrite the stored ones.
func (t *sqlTx) UpsertCustomer(ctx context.Context, c *model.Customer) error {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO customers (full_name, email, phone) VALUES (?, ?, ?)
		 ON DUPLICATE KEY UPDATE
		   id = LAST_INSERT_ID(id),
		   full_name = IF(VALUES(full_name) <> '', VALUES(full_name), full_name),
		   phone = IF(VALUES(phone) <> '', VALUES(phone), phone)`,
		c.FullName, c.Email, c.Phone,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	stored, err := t.GetCustomer(ctx, uint64(id))
	if err != nil {
		return err
	}
	*c = *stored
	return nil
}

func (t *sqlTx) AdjustCustomerTotals(ctx context.Context, customerID uint64, bookings int, spent int64) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE customers SET total_bookings = total_bookings + ?, total_spent = total_spent + ? WHERE id = ?`,
		bookings, spent, customerID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 && (bookings != 0 || spent != 0) {
		return ErrCustomerNotFound
	}
	return nil
}

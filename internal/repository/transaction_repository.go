package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/shortlet-booking/internal/domain"
	"github.com/iliyamo/shortlet-booking/internal/model"
)

const transactionColumns = `id, type, category, amount, payment_method, booking_id, provider_reference, description, created_at`

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var tr model.Transaction
	if err := row.Scan(&tr.ID, &tr.Type, &tr.Category, &tr.Amount, &tr.PaymentMethod,
		&tr.BookingID, &tr.ProviderReference, &tr.Description, &tr.CreatedAt); err != nil {
		return nil, err
	}
	return &tr, nil
}

// FindTransactionByReference returns nil, nil when ref is unknown.  The
// row is read with a shared lock so a concurrent insert of the same
// reference waits for this transaction.
func (t *sqlTx) FindTransactionByReference(ctx context.Context, ref string) (*model.Transaction, error) {
	tr, err := scanTransaction(t.tx.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE provider_reference = ? LOCK IN SHARE MODE`, ref))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return tr, err
}

func (t *sqlTx) InsertTransaction(ctx context.Context, tr *model.Transaction) error {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO transactions (type, category, amount, payment_method, booking_id, provider_reference, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tr.Type, tr.Category, tr.Amount, tr.PaymentMethod, tr.BookingID, tr.ProviderReference, tr.Description, tr.CreatedAt,
	)
	if err != nil {
		return mapDuplicate(err, domain.ErrDuplicateReference)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	tr.ID = uint64(id)
	return nil
}

func (t *sqlTx) ListTransactions(ctx context.Context, bookingID uint64) ([]model.Transaction, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE booking_id = ? ORDER BY id`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Transaction{}
	for rows.Next() {
		tr, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *tr)
	}
	return out, rows.Err()
}

// PaymentTotals sums income and refund expense rows for a booking.
func (t *sqlTx) PaymentTotals(ctx context.Context, bookingID uint64) (int64, int64, error) {
	var income, refunded int64
	err := t.tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE WHEN type = 'income' THEN amount ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN type = 'expense' AND category = 'refund' THEN amount ELSE 0 END), 0)
		 FROM transactions WHERE booking_id = ?`, bookingID,
	).Scan(&income, &refunded)
	return income, refunded, err
}

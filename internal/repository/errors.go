// Package repository implements reservation.Store on MySQL and in memory.
// Driver errors are translated here so the booking core only ever sees
// the domain error kinds: a duplicate night maps to ErrDoubleBooked, a
// duplicate provider reference to ErrDuplicateReference and a missing row
// to the matching not-found error.
package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrCustomerNotFound is returned when a booking points at a missing
// customer row.  It indicates corrupted data rather than bad input.
var ErrCustomerNotFound = errors.New("customer not found")

// mysqlDuplicateKey is ER_DUP_ENTRY.
const mysqlDuplicateKey = 1062

// isDuplicate reports whether err is a unique-key violation.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateKey
}

// notFound replaces sql.ErrNoRows with kind and passes other errors on.
func notFound(err, kind error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return kind
	}
	return err
}

// mapDuplicate replaces a unique-key violation with kind.
func mapDuplicate(err, kind error) error {
	if isDuplicate(err) {
		return kind
	}
	return err
}


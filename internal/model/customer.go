package model

import "time"

// Customer is a guest.  TotalBookings and TotalSpent are cached running
// totals maintained by the payment ledger inside the same transaction
// that changes a booking's monetary state.
type Customer struct {
	ID            uint64    `json:"id"`             // customers.id
	FullName      string    `json:"full_name"`      // customers.full_name
	Email         string    `json:"email"`          // customers.email (unique, lower-cased)
	Phone         string    `json:"phone"`          // customers.phone
	TotalBookings int       `json:"total_bookings"` // customers.total_bookings
	TotalSpent    int64     `json:"total_spent"`    // customers.total_spent
	CreatedAt     time.Time `json:"created_at"`     // customers.created_at
	UpdatedAt     time.Time `json:"updated_at"`     // customers.updated_at
}

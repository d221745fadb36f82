package model

import "time"

// TransactionType separates money in from money out.
type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// Transaction categories written by the booking core.
const (
	CategoryBooking = "booking"
	CategoryRefund  = "refund"
)

// Transaction is an append-only ledger row.  ProviderReference, when set,
// is unique and serves as the idempotency key for payment callbacks.
// Refunds are separate expense rows pointing at the booking.
//
// Fields:
//  ID                – primary key identifier.
//  Type              – income or expense.
//  Category          – booking, refund or an operator-defined category.
//  Amount            – positive amount in minor units.
//  PaymentMethod     – card, transfer, cash... (nullable).
//  BookingID         – linked booking (nullable).
//  ProviderReference – payment processor reference (nullable, unique).
//  Description       – free text.
//  CreatedAt         – creation timestamp.
type Transaction struct {
	ID                uint64          `json:"id"`                           // transactions.id
	Type              TransactionType `json:"type"`                         // transactions.type
	Category          string          `json:"category"`                     // transactions.category
	Amount            int64           `json:"amount"`                       // transactions.amount
	PaymentMethod     *string         `json:"payment_method,omitempty"`     // transactions.payment_method
	BookingID         *uint64         `json:"booking_id,omitempty"`         // transactions.booking_id
	ProviderReference *string         `json:"provider_reference,omitempty"` // transactions.provider_reference
	Description       string          `json:"description"`                  // transactions.description
	CreatedAt         time.Time       `json:"created_at"`                   // transactions.created_at
}

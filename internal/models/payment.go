package models

import "time"

// PaymentMethod enumerates accepted payment channels.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodOnline       PaymentMethod = "ONLINE"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodBankTransfer, PaymentMethodOnline:
		return true
	}
	return false
}

// Payment shadows a waste request one-to-one.
type Payment struct {
	ID             string         `db:"id" json:"id"`
	Method         *PaymentMethod `db:"method" json:"paymentMethod,omitempty"`
	Status         ProgressStatus `db:"status" json:"paymentStatus"`
	Amount         float64        `db:"amount" json:"amount"`
	DueDate        time.Time      `db:"due_date" json:"paymentDueDate"`
	PaymentDate    *time.Time     `db:"payment_date" json:"paymentDate,omitempty"`
	UserID         string         `db:"user_id" json:"user"`
	WasteRequestID string         `db:"waste_request_id" json:"wasteRequest"`
	IsAdminPayment bool           `db:"is_admin_payment" json:"isAdminPayment"`
	Version        int            `db:"version" json:"version"`
	CreatedAt      time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updatedAt"`
}

// DueDateFor returns the payment due date for a pickup: one day before it.
func DueDateFor(pickUp time.Time) time.Time {
	return pickUp.AddDate(0, 0, -1)
}

// PaymentFilter constrains payment listings.
type PaymentFilter struct {
	UserID         string
	Status         ProgressStatus
	IsAdminPayment *bool
	From           *time.Time
	To             *time.Time
	Page           int
	PageSize       int
}

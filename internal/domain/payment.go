package domain

import "time"

type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "Completed"
	PaymentPending   PaymentStatus = "Pending"
	PaymentFailed    PaymentStatus = "Failed"
	PaymentRefunded  PaymentStatus = "Refunded"
)

func IsValidPaymentStatus(s string) bool {
	switch PaymentStatus(s) {
	case PaymentCompleted, PaymentPending, PaymentFailed, PaymentRefunded:
		return true
	default:
		return false
	}
}

const (
	MethodMpesa = "M-Pesa"
	MethodCash  = "Cash"
	MethodCard  = "Card"
)

func IsValidPaymentMethod(m string) bool {
	return m == MethodMpesa || m == MethodCash || m == MethodCard
}

type Payment struct {
	ID              int64         `json:"id"`
	PaymentID       string        `json:"paymentId"`
	ShipmentRef     int64         `json:"-"`
	ShipmentCode    string        `json:"shipmentId"` // human-readable tracking id, joined
	CustomerID      *int64        `json:"customer,omitempty"`
	CustomerName    string        `json:"customerName,omitempty"`
	CustomerPhone   string        `json:"customerPhone,omitempty"`
	Amount          float64       `json:"amount"`
	Method          string        `json:"method"`
	Status          PaymentStatus `json:"status"`
	TransactionDate time.Time     `json:"transactionDate"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// PaymentFilter drives staff/admin payment lists.
type PaymentFilter struct {
	Search  string // payment id, customer name or phone
	Status  PaymentStatus
	StaffID int64 // scope to payments of shipments assigned to this staff member
}

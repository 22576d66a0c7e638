package domain

import (
	"crypto/rand"
	"encoding/json"
	"time"
)

type ShipmentStatus string

const (
	ShipmentPending   ShipmentStatus = "Pending"
	ShipmentInTransit ShipmentStatus = "In Transit"
	ShipmentDelivered ShipmentStatus = "Delivered"
	ShipmentDelayed   ShipmentStatus = "Delayed"
	ShipmentCancelled ShipmentStatus = "Cancelled"
)

func ParseShipmentStatus(s string) (ShipmentStatus, bool) {
	switch ShipmentStatus(s) {
	case ShipmentPending, ShipmentInTransit, ShipmentDelivered, ShipmentDelayed, ShipmentCancelled:
		return ShipmentStatus(s), true
	default:
		return "", false
	}
}

// OwnerKind tags shipment ownership: a registered customer account or
// inline guest contact details, never both.
type OwnerKind string

const (
	OwnerRegistered OwnerKind = "registered"
	OwnerGuest      OwnerKind = "guest"
)

type Owner struct {
	Kind       OwnerKind
	CustomerID int64  // set when Kind == OwnerRegistered
	GuestName  string // set when Kind == OwnerGuest
	GuestPhone string
}

func RegisteredOwner(customerID int64) Owner {
	return Owner{Kind: OwnerRegistered, CustomerID: customerID}
}

func GuestOwner(name, phone string) Owner {
	return Owner{Kind: OwnerGuest, GuestName: name, GuestPhone: phone}
}

func (o Owner) MarshalJSON() ([]byte, error) {
	if o.Kind == OwnerRegistered {
		return json.Marshal(struct {
			Kind       OwnerKind `json:"kind"`
			CustomerID int64     `json:"customerId"`
		}{o.Kind, o.CustomerID})
	}
	return json.Marshal(struct {
		Kind  OwnerKind `json:"kind"`
		Name  string    `json:"name"`
		Phone string    `json:"phone"`
	}{OwnerGuest, o.GuestName, o.GuestPhone})
}

// TrackingEvent is one entry of a shipment's append-only tracking history.
type TrackingEvent struct {
	Status    ShipmentStatus `json:"status"`
	Location  string         `json:"location"`
	Timestamp time.Time      `json:"timestamp"`
}

type Shipment struct {
	ID                int64           `json:"id"`
	ShipmentID        string          `json:"shipmentId"`
	Owner             Owner           `json:"owner"`
	CustomerName      string          `json:"customerName,omitempty"` // joined from users for list views
	CreatedBy         *int64          `json:"createdBy,omitempty"`
	StaffID           *int64          `json:"staff,omitempty"`
	Branch            string          `json:"branch,omitempty"`
	Origin            string          `json:"origin"`
	Destination       string          `json:"destination"`
	Status            ShipmentStatus  `json:"status"`
	DispatchDate      time.Time       `json:"dispatchDate"`
	EstimatedDelivery *time.Time      `json:"estimatedDelivery,omitempty"`
	Weight            float64         `json:"weight"`
	PackageDetails    string          `json:"packageDetails"`
	Cost              float64         `json:"cost"`
	TrackingHistory   []TrackingEvent `json:"trackingHistory"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

const (
	trackingAlphabet = "1234567890ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	trackingIDLength = 10

	// MinShipmentCost is the floor of the weight-derived guest booking cost.
	MinShipmentCost = 20.0
	costPerKg       = 5.0
)

// NewTrackingID generates a human-readable shipment identifier, SHP plus
// ten characters of [0-9A-Z]. Uniqueness is enforced by the store; callers
// retry on a duplicate key.
func NewTrackingID() string {
	return "SHP" + randomID(trackingIDLength)
}

// NewPaymentID generates a payment identifier with the PAY- prefix.
func NewPaymentID() string {
	return "PAY-" + randomID(trackingIDLength)
}

func randomID(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand never fails on supported platforms
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = trackingAlphabet[int(b)%len(trackingAlphabet)]
	}
	return string(out)
}

// GuestBookingCost derives a shipment cost from weight with a minimum floor.
func GuestBookingCost(weight float64) float64 {
	cost := weight * costPerKg
	if cost < MinShipmentCost {
		return MinShipmentCost
	}
	return cost
}

type GuestBookingRequest struct {
	SenderName     string  `json:"senderName"`
	SenderEmail    string  `json:"senderEmail"`
	SenderPhone    string  `json:"senderPhone"`
	Origin         string  `json:"origin"`
	Destination    string  `json:"destination"`
	Weight         float64 `json:"weight"`
	PackageDetails string  `json:"packageDetails"`
}

func (r *GuestBookingRequest) Validate() error {
	if r.SenderName == "" || r.SenderEmail == "" || r.SenderPhone == "" ||
		r.Origin == "" || r.Destination == "" || r.Weight <= 0 || r.PackageDetails == "" {
		return NewValidationError("Please provide all required fields.")
	}
	if !isValidEmail(r.SenderEmail) {
		return NewValidationError("Please provide a valid email")
	}
	return nil
}

// CreateShipmentRequest is the staff/admin creation path with an explicit cost.
type CreateShipmentRequest struct {
	CustomerName      string     `json:"customerName"`
	CustomerPhone     string     `json:"customerPhone"`
	Origin            string     `json:"origin"`
	Destination       string     `json:"destination"`
	PackageDetails    string     `json:"packageDetails"`
	Weight            float64    `json:"weight"`
	Cost              float64    `json:"cost"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery,omitempty"`
	PaymentMethod     string     `json:"paymentMethod,omitempty"`
	PaymentStatus     string     `json:"paymentStatus,omitempty"`
}

func (r *CreateShipmentRequest) Validate() error {
	if r.CustomerPhone == "" || r.CustomerName == "" || r.Origin == "" || r.Destination == "" || r.Cost == 0 {
		return NewValidationError("Please provide customer phone, name, origin, destination, and cost")
	}
	if r.Cost <= 0 {
		return NewValidationError("Cost must be a positive number")
	}
	if r.PaymentMethod != "" && !IsValidPaymentMethod(r.PaymentMethod) {
		return NewValidationError("Invalid payment method: %s", r.PaymentMethod)
	}
	if r.PaymentStatus != "" && !IsValidPaymentStatus(r.PaymentStatus) {
		return NewValidationError("Invalid payment status: %s", r.PaymentStatus)
	}
	return nil
}

type UpdateStatusRequest struct {
	Status   string `json:"status"`
	Location string `json:"location,omitempty"`
}

func (r *UpdateStatusRequest) Validate() error {
	if _, ok := ParseShipmentStatus(r.Status); !ok {
		return NewValidationError("Invalid shipment status: %s", r.Status)
	}
	return nil
}

// UpdateShipmentRequest is the admin PUT patch.
type UpdateShipmentRequest struct {
	Origin            *string    `json:"origin,omitempty"`
	Destination       *string    `json:"destination,omitempty"`
	Status            *string    `json:"status,omitempty"`
	StaffID           *int64     `json:"staff,omitempty"`
	Branch            *string    `json:"branch,omitempty"`
	Weight            *float64   `json:"weight,omitempty"`
	PackageDetails    *string    `json:"packageDetails,omitempty"`
	Cost              *float64   `json:"cost,omitempty"`
	EstimatedDelivery *time.Time `json:"estimatedDelivery,omitempty"`
}

func (r *UpdateShipmentRequest) Validate() error {
	if r.Status != nil {
		if _, ok := ParseShipmentStatus(*r.Status); !ok {
			return NewValidationError("Invalid shipment status: %s", *r.Status)
		}
	}
	if r.Branch != nil && !IsValidBranch(*r.Branch) {
		return NewValidationError("Invalid branch: %s", *r.Branch)
	}
	if r.Cost != nil && *r.Cost <= 0 {
		return NewValidationError("Cost must be a positive number")
	}
	return nil
}

// ShipmentFilter drives list queries. Zero values mean "no filter".
type ShipmentFilter struct {
	Search    string // case-insensitive partial match on shipment id
	Status    ShipmentStatus
	Branch    string
	CreatedBy int64      // "staff" filter in the admin list
	StaffID   int64      // assignment scope for staff views
	Date      *time.Time // dispatch date, matched by calendar day
}

type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

func NewPagination(total, page, limit int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return Pagination{Total: total, Page: page, Limit: limit, TotalPages: totalPages}
}

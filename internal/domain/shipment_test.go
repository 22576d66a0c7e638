package domain_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/bongoexpress/cargo-api/internal/domain"
)

func TestNewTrackingID_Shape(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := domain.NewTrackingID()

		if !strings.HasPrefix(id, "SHP") {
			t.Fatalf("Expected SHP prefix, got %s", id)
		}
		if len(id) != 13 {
			t.Fatalf("Expected 13 characters, got %d (%s)", len(id), id)
		}
		for _, c := range id[3:] {
			if !strings.ContainsRune("1234567890ABCDEFGHIJKLMNOPQRSTUVWXYZ", c) {
				t.Fatalf("Unexpected character %q in %s", c, id)
			}
		}
		seen[id] = true
	}

	if len(seen) < 100 {
		t.Fatalf("Expected 100 distinct IDs, got %d", len(seen))
	}
}

func TestNewPaymentID_Prefix(t *testing.T) {
	id := domain.NewPaymentID()
	if !strings.HasPrefix(id, "PAY-") {
		t.Fatalf("Expected PAY- prefix, got %s", id)
	}
	if len(id) != 14 {
		t.Fatalf("Expected 14 characters, got %d (%s)", len(id), id)
	}
}

func TestGuestBookingCost(t *testing.T) {
	tests := []struct {
		weight float64
		want   float64
	}{
		{0.5, 20}, // below the floor
		{1, 20},
		{4, 20},
		{5, 25},
		{10, 50},
		{100, 500},
	}

	for _, tt := range tests {
		if got := domain.GuestBookingCost(tt.weight); got != tt.want {
			t.Errorf("GuestBookingCost(%v) = %v, want %v", tt.weight, got, tt.want)
		}
	}
}

func TestParseShipmentStatus(t *testing.T) {
	valid := []string{"Pending", "In Transit", "Delivered", "Delayed", "Cancelled"}
	for _, s := range valid {
		status, ok := domain.ParseShipmentStatus(s)
		if !ok || string(status) != s {
			t.Errorf("ParseShipmentStatus(%q) = (%q, %v), want valid", s, status, ok)
		}
	}

	invalid := []string{"", "pending", "Shipped", "IN TRANSIT"}
	for _, s := range invalid {
		if _, ok := domain.ParseShipmentStatus(s); ok {
			t.Errorf("ParseShipmentStatus(%q) accepted invalid status", s)
		}
	}
}

func TestOwner_MarshalJSON(t *testing.T) {
	registered, err := json.Marshal(domain.RegisteredOwner(42))
	if err != nil {
		t.Fatal(err)
	}
	if string(registered) != `{"kind":"registered","customerId":42}` {
		t.Fatalf("Unexpected registered owner JSON: %s", registered)
	}

	guest, err := json.Marshal(domain.GuestOwner("Amina Odhiambo", "+254700111222"))
	if err != nil {
		t.Fatal(err)
	}
	if string(guest) != `{"kind":"guest","name":"Amina Odhiambo","phone":"+254700111222"}` {
		t.Fatalf("Unexpected guest owner JSON: %s", guest)
	}
}

func TestNewPagination(t *testing.T) {
	tests := []struct {
		total, page, limit int
		wantPages          int
	}{
		{0, 1, 10, 0},
		{1, 1, 10, 1},
		{10, 1, 10, 1},
		{11, 2, 10, 2},
		{25, 1, 10, 3},
	}

	for _, tt := range tests {
		p := domain.NewPagination(tt.total, tt.page, tt.limit)
		if p.TotalPages != tt.wantPages {
			t.Errorf("NewPagination(%d, %d, %d).TotalPages = %d, want %d",
				tt.total, tt.page, tt.limit, p.TotalPages, tt.wantPages)
		}
	}
}

func TestGuestBookingRequest_Validate(t *testing.T) {
	valid := domain.GuestBookingRequest{
		SenderName:     "Amina",
		SenderEmail:    "amina@example.com",
		SenderPhone:    "+254700111222",
		Origin:         "Nairobi",
		Destination:    "Mombasa",
		Weight:         3,
		PackageDetails: "Books",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Expected valid request, got %v", err)
	}

	missing := valid
	missing.Origin = ""
	if err := missing.Validate(); err == nil {
		t.Fatal("Expected error for missing origin")
	}

	badEmail := valid
	badEmail.SenderEmail = "not-an-email"
	if err := badEmail.Validate(); err == nil {
		t.Fatal("Expected error for invalid email")
	}

	zeroWeight := valid
	zeroWeight.Weight = 0
	if err := zeroWeight.Validate(); err == nil {
		t.Fatal("Expected error for zero weight")
	}
}

func TestCreateShipmentRequest_Validate(t *testing.T) {
	valid := domain.CreateShipmentRequest{
		CustomerName:  "John Kamau",
		CustomerPhone: "+254711000111",
		Origin:        "Kisumu",
		Destination:   "Nakuru",
		Weight:        2,
		Cost:          150,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Expected valid request, got %v", err)
	}

	noCost := valid
	noCost.Cost = 0
	if err := noCost.Validate(); err == nil {
		t.Fatal("Expected error for missing cost")
	}

	badMethod := valid
	badMethod.PaymentMethod = "Bitcoin"
	if err := badMethod.Validate(); err == nil {
		t.Fatal("Expected error for invalid payment method")
	}
}

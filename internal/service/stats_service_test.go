package service_test

import (
	"context"
	"testing"

	"github.com/bongoexpress/cargo-api/internal/domain"
	"github.com/bongoexpress/cargo-api/internal/service"
)

func setupStats() (service.StatsService, *shipmentFixture) {
	f := setupShipments()
	return service.NewStatsService(f.shipments, f.payments, f.users), f
}

func TestDashboardStats_Empty(t *testing.T) {
	svc, _ := setupStats()

	stats, err := svc.DashboardStats(context.Background())
	if err != nil {
		t.Fatalf("DashboardStats failed: %v", err)
	}

	if stats.Metrics.TotalShipments != 0 || stats.Metrics.TotalCustomers != 0 {
		t.Fatal("Expected empty metrics")
	}
	if stats.Metrics.DeliverySuccessRate != 0 {
		t.Fatalf("Expected 0%% success rate on no shipments, got %v", stats.Metrics.DeliverySuccessRate)
	}
	if len(stats.Charts.ShipmentData) != 6 {
		t.Fatalf("Expected 6 monthly buckets, got %d", len(stats.Charts.ShipmentData))
	}
	if len(stats.RecentActivities) != 0 {
		t.Fatal("Expected no recent activities")
	}
}

func TestDashboardStats_Metrics(t *testing.T) {
	svc, f := setupStats()
	admin := f.users.add("Admin", "admin@example.com", "password123", domain.RoleAdmin)

	for i := 0; i < 4; i++ {
		if _, err := f.svc.BookGuest(context.Background(), guestRequest()); err != nil {
			t.Fatal(err)
		}
	}

	// Deliver one of the four.
	if _, err := f.svc.UpdateStatus(context.Background(), admin, 1, &domain.UpdateStatusRequest{
		Status: "Delivered", Location: "Mombasa",
	}); err != nil {
		t.Fatal(err)
	}

	// Complete one payment worth 25.
	if err := f.payments.UpdateStatus(context.Background(), 1, domain.PaymentCompleted); err != nil {
		t.Fatal(err)
	}

	stats, err := svc.DashboardStats(context.Background())
	if err != nil {
		t.Fatalf("DashboardStats failed: %v", err)
	}

	if stats.Metrics.TotalShipments != 4 {
		t.Fatalf("Expected 4 shipments, got %d", stats.Metrics.TotalShipments)
	}
	if stats.Metrics.DeliverySuccessRate != 25 {
		t.Fatalf("Expected 25%% success rate, got %v", stats.Metrics.DeliverySuccessRate)
	}
	if stats.Metrics.TotalRevenue != 25 {
		t.Fatalf("Expected revenue 25, got %v", stats.Metrics.TotalRevenue)
	}
}

func TestStaffStats_Counters(t *testing.T) {
	svc, f := setupStats()
	staff := f.users.add("Staff", "staff@example.com", "password123", domain.RoleStaff)

	for i := 0; i < 3; i++ {
		if _, err := f.svc.Create(context.Background(), staff, &domain.CreateShipmentRequest{
			CustomerName:  "John Kamau",
			CustomerPhone: "+254711000111",
			Origin:        "Nairobi",
			Destination:   "Kisumu",
			Cost:          100,
		}); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := svc.StaffStats(context.Background(), staff.ID)
	if err != nil {
		t.Fatalf("StaffStats failed: %v", err)
	}
	if stats.Metrics.AssignedShipments != 3 {
		t.Fatalf("Expected 3 assigned shipments, got %d", stats.Metrics.AssignedShipments)
	}
}

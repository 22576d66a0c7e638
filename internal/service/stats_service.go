package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bongoexpress/cargo-api/internal/domain"
	"github.com/bongoexpress/cargo-api/internal/repository"
)

type StatsService interface {
	DashboardStats(ctx context.Context) (*domain.DashboardStats, error)
	StaffStats(ctx context.Context, staffID int64) (*domain.StaffStats, error)
}

type statsService struct {
	shipments repository.ShipmentRepository
	payments  repository.PaymentRepository
	users     repository.UserRepository
}

func NewStatsService(
	shipments repository.ShipmentRepository,
	payments repository.PaymentRepository,
	users repository.UserRepository,
) StatsService {
	return &statsService{shipments: shipments, payments: payments, users: users}
}

const chartMonths = 6

// DashboardStats assembles the admin overview: metric cards, six months of
// chart buckets, and the four most recent activities.
func (s *statsService) DashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	totalShipments, err := s.shipments.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count shipments: %w", err)
	}
	totalCustomers, err := s.users.CountCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count customers: %w", err)
	}
	totalRevenue, err := s.payments.CompletedRevenue(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}
	delivered, err := s.shipments.CountDelivered(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count delivered shipments: %w", err)
	}

	successRate := 0.0
	if totalShipments > 0 {
		successRate = float64(delivered) / float64(totalShipments) * 100
	}

	statusDistribution, err := s.shipments.StatusDistribution(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load status distribution: %w", err)
	}

	now := time.Now()
	shipmentData := make([]domain.MonthlyShipments, 0, chartMonths)
	revenueData := make([]domain.MonthlyRevenue, 0, chartMonths)
	customerData := make([]domain.MonthlyCustomers, 0, chartMonths)

	for i := chartMonths - 1; i >= 0; i-- {
		monthStart, monthEnd := monthBounds(now, -i)
		name := monthStart.Format("Jan")

		counts, err := s.shipments.CountByStatusInRange(ctx, monthStart, monthEnd)
		if err != nil {
			return nil, fmt.Errorf("failed to count monthly shipments: %w", err)
		}
		shipmentData = append(shipmentData, domain.MonthlyShipments{
			Name:      name,
			Delivered: counts[domain.ShipmentDelivered],
			Pending:   counts[domain.ShipmentPending],
			Cancelled: counts[domain.ShipmentCancelled],
		})

		revenue, err := s.payments.CompletedRevenueInRange(ctx, monthStart, monthEnd)
		if err != nil {
			return nil, fmt.Errorf("failed to sum monthly revenue: %w", err)
		}
		revenueData = append(revenueData, domain.MonthlyRevenue{Name: name, Revenue: revenue})

		// Cumulative count: all customers registered up to the month's end.
		customers, err := s.users.CountCustomersCreatedBefore(ctx, monthEnd)
		if err != nil {
			return nil, fmt.Errorf("failed to count monthly customers: %w", err)
		}
		customerData = append(customerData, domain.MonthlyCustomers{Name: name, Customers: customers})
	}

	activities, err := s.recentActivities(ctx)
	if err != nil {
		return nil, err
	}

	return &domain.DashboardStats{
		Metrics: domain.DashboardMetrics{
			TotalShipments:      totalShipments,
			TotalCustomers:      totalCustomers,
			TotalRevenue:        totalRevenue,
			DeliverySuccessRate: successRate,
		},
		Charts: domain.DashboardCharts{
			ShipmentData:       shipmentData,
			StatusDistribution: statusDistribution,
			RevenueData:        revenueData,
			CustomerGrowthData: customerData,
		},
		RecentActivities: activities,
	}, nil
}

// recentActivities merges the three newest shipments and two newest
// customers, newest first, capped at four entries.
func (s *statsService) recentActivities(ctx context.Context) ([]domain.Activity, error) {
	shipments, err := s.shipments.Recent(ctx, 3)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent shipments: %w", err)
	}
	customers, err := s.users.RecentCustomers(ctx, 2)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent customers: %w", err)
	}

	activities := make([]domain.Activity, 0, len(shipments)+len(customers))
	for _, sh := range shipments {
		name := sh.CustomerName
		if name == "" {
			name = sh.Owner.GuestName
		}
		if name == "" {
			name = "a customer"
		}
		activities = append(activities, domain.Activity{
			ID:        sh.ID,
			Type:      "shipment",
			Text:      fmt.Sprintf("New shipment created for %s.", name),
			Timestamp: sh.CreatedAt,
		})
	}
	for _, c := range customers {
		activities = append(activities, domain.Activity{
			ID:        c.ID,
			Type:      "customer",
			Text:      fmt.Sprintf("New customer registered: %s.", c.Name),
			Timestamp: c.CreatedAt,
		})
	}

	sort.Slice(activities, func(i, j int) bool {
		return activities[i].Timestamp.After(activities[j].Timestamp)
	})
	if len(activities) > 4 {
		activities = activities[:4]
	}
	return activities, nil
}

// StaffStats builds the staff overview: workload counters plus the five
// open shipments closest to their estimated delivery.
func (s *statsService) StaffStats(ctx context.Context, staffID int64) (*domain.StaffStats, error) {
	assigned, err := s.shipments.CountAssigned(ctx, staffID)
	if err != nil {
		return nil, fmt.Errorf("failed to count assigned shipments: %w", err)
	}
	pending, err := s.shipments.CountAssignedOpen(ctx, staffID)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending deliveries: %w", err)
	}

	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	completedToday, err := s.shipments.CountDeliveredBetween(ctx, staffID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to count completed deliveries: %w", err)
	}

	priority, err := s.shipments.PriorityShipments(ctx, staffID, 5)
	if err != nil {
		return nil, fmt.Errorf("failed to load priority shipments: %w", err)
	}

	return &domain.StaffStats{
		Metrics: domain.StaffMetrics{
			AssignedShipments: assigned,
			PendingDeliveries: pending,
			CompletedToday:    completedToday,
		},
		PriorityShipments: priority,
	}, nil
}

// monthBounds returns the first and last instant of the calendar month
// offset months away from t.
func monthBounds(t time.Time, offset int) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, offset, 0)
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}

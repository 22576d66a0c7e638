package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bongoexpress/cargo-api/internal/domain"
	"github.com/bongoexpress/cargo-api/internal/repository"
	"github.com/bongoexpress/cargo-api/pkg/events"
	"github.com/bongoexpress/cargo-api/pkg/logger"
)

// CreateShipmentResult bundles the shipment with the payment record opened
// alongside it.
type CreateShipmentResult struct {
	Shipment *domain.Shipment `json:"shipment"`
	Payment  *domain.Payment  `json:"payment"`
}

type ShipmentService interface {
	BookGuest(ctx context.Context, req *domain.GuestBookingRequest) (*domain.Shipment, error)
	Create(ctx context.Context, actor *domain.User, req *domain.CreateShipmentRequest) (*CreateShipmentResult, error)
	List(ctx context.Context, filter domain.ShipmentFilter, page, limit int) ([]domain.Shipment, domain.Pagination, error)
	Get(ctx context.Context, id int64) (*domain.Shipment, error)
	GetAssigned(ctx context.Context, id, staffID int64) (*domain.Shipment, error)
	Track(ctx context.Context, trackingID string) (*domain.Shipment, error)
	Update(ctx context.Context, id int64, req *domain.UpdateShipmentRequest) (*domain.Shipment, error)
	UpdateStatus(ctx context.Context, actor *domain.User, id int64, req *domain.UpdateStatusRequest) (*domain.Shipment, error)
	UpdateCost(ctx context.Context, id int64, cost float64) (*domain.Shipment, error)
	Delete(ctx context.Context, id int64) error
	Summary(ctx context.Context) (*domain.ShipmentSummary, error)
}

type shipmentService struct {
	shipments     repository.ShipmentRepository
	payments      repository.PaymentRepository
	users         repository.UserRepository
	notifications repository.NotificationRepository
	bus           events.Publisher
}

func NewShipmentService(
	shipments repository.ShipmentRepository,
	payments repository.PaymentRepository,
	users repository.UserRepository,
	notifications repository.NotificationRepository,
	bus events.Publisher,
) ShipmentService {
	return &shipmentService{
		shipments:     shipments,
		payments:      payments,
		users:         users,
		notifications: notifications,
		bus:           bus,
	}
}

// createRetries bounds the tracking-id collision retry loop. A collision on
// a 36^10 space is already vanishingly rare.
const createRetries = 3

// BookGuest handles the public booking form. The cost is derived from
// weight, an invoice payment is opened, and every admin is notified.
func (s *shipmentService) BookGuest(ctx context.Context, req *domain.GuestBookingRequest) (*domain.Shipment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// A booking with a known customer email is linked to that account.
	customer, err := s.users.FindCustomerByEmail(ctx, req.SenderEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to look up customer: %w", err)
	}

	owner := domain.GuestOwner(req.SenderName, req.SenderPhone)
	if customer != nil {
		owner = domain.RegisteredOwner(customer.ID)
	}

	now := time.Now()
	shipment := &domain.Shipment{
		Owner:          owner,
		Origin:         req.Origin,
		Destination:    req.Destination,
		Status:         domain.ShipmentPending,
		DispatchDate:   now,
		Weight:         req.Weight,
		PackageDetails: req.PackageDetails,
		Cost:           domain.GuestBookingCost(req.Weight),
		TrackingHistory: []domain.TrackingEvent{
			{Status: domain.ShipmentPending, Location: req.Origin, Timestamp: now},
		},
	}

	created, err := s.createWithRetry(ctx, shipment)
	if err != nil {
		return nil, err
	}

	payment := &domain.Payment{
		PaymentID:       "INV-" + created.ShipmentID,
		ShipmentRef:     created.ID,
		Amount:          created.Cost,
		Method:          domain.MethodMpesa,
		Status:          domain.PaymentPending,
		TransactionDate: now,
	}
	if customer != nil {
		payment.CustomerID = &customer.ID
	}
	if _, err := s.payments.Create(ctx, payment); err != nil {
		logger.ErrorContext(ctx, "failed to create payment for guest booking",
			"shipment_id", created.ShipmentID, "error", err)
	}

	s.notifyAdmins(ctx,
		fmt.Sprintf("New guest shipment (%s) booked by %s.", created.ShipmentID, req.SenderName),
		"/admin/dashboard/shipments")

	s.publish(ctx, events.ShipmentCreated, events.ShipmentCreatedEvent{
		ShipmentID:   created.ShipmentID,
		Origin:       created.Origin,
		Destination:  created.Destination,
		GuestBooking: true,
		Cost:         created.Cost,
		CreatedAt:    created.CreatedAt,
	})

	logger.InfoContext(ctx, "guest shipment booked", "shipment_id", created.ShipmentID, "cost", created.Cost)
	return created, nil
}

// Create is the staff/admin path with an explicit cost. Staff members are
// assigned the shipment they create; registered customers matched by phone
// get a notification.
func (s *shipmentService) Create(ctx context.Context, actor *domain.User, req *domain.CreateShipmentRequest) (*CreateShipmentResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	customer, err := s.users.FindCustomerByPhone(ctx, req.CustomerPhone)
	if err != nil {
		return nil, fmt.Errorf("failed to look up customer: %w", err)
	}

	owner := domain.GuestOwner(req.CustomerName, req.CustomerPhone)
	if customer != nil {
		owner = domain.RegisteredOwner(customer.ID)
	}

	now := time.Now()
	shipment := &domain.Shipment{
		Owner:             owner,
		CreatedBy:         &actor.ID,
		Branch:            actor.Branch,
		Origin:            req.Origin,
		Destination:       req.Destination,
		Status:            domain.ShipmentPending,
		DispatchDate:      now,
		EstimatedDelivery: req.EstimatedDelivery,
		Weight:            req.Weight,
		PackageDetails:    req.PackageDetails,
		Cost:              req.Cost,
		TrackingHistory: []domain.TrackingEvent{
			{Status: domain.ShipmentPending, Location: req.Origin, Timestamp: now},
		},
	}
	if actor.Role == domain.RoleStaff {
		shipment.StaffID = &actor.ID
	}

	created, err := s.createWithRetry(ctx, shipment)
	if err != nil {
		return nil, err
	}

	method := req.PaymentMethod
	if method == "" {
		method = domain.MethodCash
	}
	status := domain.PaymentStatus(req.PaymentStatus)
	if status == "" {
		status = domain.PaymentPending
	}

	payment := &domain.Payment{
		PaymentID:       domain.NewPaymentID(),
		ShipmentRef:     created.ID,
		Amount:          req.Cost,
		Method:          method,
		Status:          status,
		TransactionDate: now,
	}
	if customer != nil {
		payment.CustomerID = &customer.ID
	}
	createdPayment, err := s.payments.Create(ctx, payment)
	if err != nil {
		logger.ErrorContext(ctx, "failed to create payment for shipment",
			"shipment_id", created.ShipmentID, "error", err)
	}

	if customer != nil {
		s.notify(ctx, customer.ID,
			fmt.Sprintf("Your shipment %s from %s to %s has been created. Cost: KSh %v",
				created.ShipmentID, req.Origin, req.Destination, req.Cost),
			"/customer/dashboard/shipments")
	}

	s.publish(ctx, events.ShipmentCreated, events.ShipmentCreatedEvent{
		ShipmentID:  created.ShipmentID,
		Origin:      created.Origin,
		Destination: created.Destination,
		Branch:      created.Branch,
		Cost:        created.Cost,
		CreatedAt:   created.CreatedAt,
	})

	logger.InfoContext(ctx, "shipment created", "shipment_id", created.ShipmentID, "created_by", actor.ID)
	return &CreateShipmentResult{Shipment: created, Payment: createdPayment}, nil
}

func (s *shipmentService) createWithRetry(ctx context.Context, shipment *domain.Shipment) (*domain.Shipment, error) {
	for attempt := 0; attempt < createRetries; attempt++ {
		shipment.ShipmentID = domain.NewTrackingID()
		created, err := s.shipments.Create(ctx, shipment)
		if err == nil {
			return created, nil
		}
		if !repository.IsUniqueViolation(err) {
			return nil, fmt.Errorf("failed to create shipment: %w", err)
		}
		logger.WarnContext(ctx, "tracking id collision, retrying", "shipment_id", shipment.ShipmentID)
	}
	return nil, fmt.Errorf("failed to create shipment: tracking id collisions exhausted retries")
}

func (s *shipmentService) List(ctx context.Context, filter domain.ShipmentFilter, page, limit int) ([]domain.Shipment, domain.Pagination, error) {
	shipments, total, err := s.shipments.List(ctx, filter, limit, (page-1)*limit)
	if err != nil {
		return nil, domain.Pagination{}, fmt.Errorf("failed to list shipments: %w", err)
	}
	return shipments, domain.NewPagination(total, page, limit), nil
}

func (s *shipmentService) Get(ctx context.Context, id int64) (*domain.Shipment, error) {
	shipment, err := s.shipments.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load shipment: %w", err)
	}
	if shipment == nil {
		return nil, domain.ErrNotFound
	}
	return shipment, nil
}

func (s *shipmentService) GetAssigned(ctx context.Context, id, staffID int64) (*domain.Shipment, error) {
	shipment, err := s.shipments.FindAssigned(ctx, id, staffID)
	if err != nil {
		return nil, fmt.Errorf("failed to load shipment: %w", err)
	}
	if shipment == nil {
		return nil, domain.ErrNotFound
	}
	return shipment, nil
}

// Track is the public lookup by human-readable tracking id.
func (s *shipmentService) Track(ctx context.Context, trackingID string) (*domain.Shipment, error) {
	shipment, err := s.shipments.FindByTrackingID(ctx, trackingID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up shipment: %w", err)
	}
	if shipment == nil {
		return nil, domain.ErrNotFound
	}
	return shipment, nil
}

func (s *shipmentService) Update(ctx context.Context, id int64, req *domain.UpdateShipmentRequest) (*domain.Shipment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	shipment, err := s.shipments.Update(ctx, id, req)
	if err != nil {
		return nil, fmt.Errorf("failed to update shipment: %w", err)
	}
	if shipment == nil {
		return nil, domain.ErrNotFound
	}
	return shipment, nil
}

// UpdateStatus appends a tracking event and moves the status with it. Staff
// can only touch shipments assigned to them; admins are unrestricted.
func (s *shipmentService) UpdateStatus(ctx context.Context, actor *domain.User, id int64, req *domain.UpdateStatusRequest) (*domain.Shipment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	status, _ := domain.ParseShipmentStatus(req.Status)

	var staffID int64
	if actor.Role == domain.RoleStaff {
		staffID = actor.ID
	}

	location := req.Location
	if location == "" {
		current, err := s.shipments.FindByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load shipment: %w", err)
		}
		if current == nil {
			return nil, domain.ErrNotFound
		}
		location = current.Destination
	}

	updated, err := s.shipments.AppendTrackingEvent(ctx, id, staffID, domain.TrackingEvent{
		Status:    status,
		Location:  location,
		Timestamp: time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update shipment status: %w", err)
	}
	if updated == nil {
		return nil, domain.ErrNotFound
	}

	s.publish(ctx, events.ShipmentStatusUpdated, events.ShipmentStatusUpdatedEvent{
		ShipmentID: updated.ShipmentID,
		Status:     string(status),
		Location:   location,
		UpdatedAt:  updated.UpdatedAt,
	})

	logger.InfoContext(ctx, "shipment status updated",
		"shipment_id", updated.ShipmentID, "status", status, "actor", actor.ID)
	return updated, nil
}

// UpdateCost changes the shipment cost and keeps the open payment in sync.
func (s *shipmentService) UpdateCost(ctx context.Context, id int64, cost float64) (*domain.Shipment, error) {
	if cost <= 0 {
		return nil, domain.NewValidationError("Please provide a valid cost")
	}

	shipment, err := s.shipments.UpdateCost(ctx, id, cost)
	if err != nil {
		return nil, fmt.Errorf("failed to update shipment cost: %w", err)
	}
	if shipment == nil {
		return nil, domain.ErrNotFound
	}

	if err := s.payments.UpdateAmountByShipment(ctx, shipment.ID, cost); err != nil {
		logger.ErrorContext(ctx, "failed to sync payment amount",
			"shipment_id", shipment.ShipmentID, "error", err)
	}

	s.publish(ctx, events.ShipmentCostUpdated, events.ShipmentCostUpdatedEvent{
		ShipmentID: shipment.ShipmentID,
		Cost:       cost,
	})
	return shipment, nil
}

func (s *shipmentService) Delete(ctx context.Context, id int64) error {
	if err := s.shipments.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, events.ShipmentDeleted, map[string]any{"id": id})
	return nil
}

func (s *shipmentService) Summary(ctx context.Context) (*domain.ShipmentSummary, error) {
	return s.shipments.Summary(ctx)
}

func (s *shipmentService) notify(ctx context.Context, userID int64, text, link string) {
	if _, err := s.notifications.Create(ctx, &domain.Notification{UserID: userID, Text: text, Link: link}); err != nil {
		logger.ErrorContext(ctx, "failed to create notification", "user_id", userID, "error", err)
		return
	}
	s.publish(ctx, events.NotifySend, events.NotificationEvent{UserID: userID, Text: text, Link: link})
}

func (s *shipmentService) notifyAdmins(ctx context.Context, text, link string) {
	adminIDs, err := s.users.ListAdminIDs(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list admins for notification", "error", err)
		return
	}

	notifications := make([]domain.Notification, 0, len(adminIDs))
	for _, id := range adminIDs {
		notifications = append(notifications, domain.Notification{UserID: id, Text: text, Link: link})
	}
	if err := s.notifications.CreateMany(ctx, notifications); err != nil {
		logger.ErrorContext(ctx, "failed to create admin notifications", "error", err)
		return
	}
	for _, id := range adminIDs {
		s.publish(ctx, events.NotifySend, events.NotificationEvent{UserID: id, Text: text, Link: link})
	}
}

// publish is best effort; the API never fails a request over the event bus.
func (s *shipmentService) publish(ctx context.Context, subject string, payload any) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, subject, payload); err != nil {
		logger.WarnContext(ctx, "failed to publish event", "subject", subject, "error", err)
	}
}

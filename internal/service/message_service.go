package service

import (
	"context"
	"fmt"

	"github.com/bongoexpress/cargo-api/internal/domain"
	"github.com/bongoexpress/cargo-api/internal/mailer"
	"github.com/bongoexpress/cargo-api/internal/repository"
	"github.com/bongoexpress/cargo-api/pkg/events"
	"github.com/bongoexpress/cargo-api/pkg/logger"
)

type MessageService interface {
	Submit(ctx context.Context, req *domain.CreateMessageRequest) (*domain.Message, error)
	ListAll(ctx context.Context) ([]domain.Message, error)
	ListForStaff(ctx context.Context, staffID int64) ([]domain.Message, error)
	Reply(ctx context.Context, actor *domain.User, id int64, req *domain.ReplyRequest) error
	Delete(ctx context.Context, id int64) error
}

type messageService struct {
	messages      repository.MessageRepository
	shipments     repository.ShipmentRepository
	users         repository.UserRepository
	notifications repository.NotificationRepository
	mailer        mailer.Service
	bus           events.Publisher
}

func NewMessageService(
	messages repository.MessageRepository,
	shipments repository.ShipmentRepository,
	users repository.UserRepository,
	notifications repository.NotificationRepository,
	mail mailer.Service,
	bus events.Publisher,
) MessageService {
	return &messageService{
		messages:      messages,
		shipments:     shipments,
		users:         users,
		notifications: notifications,
		mailer:        mail,
		bus:           bus,
	}
}

// Submit stores a contact-form message. A sender email belonging to a
// registered customer links the message to that account so staff inboxes
// can scope by customer.
func (s *messageService) Submit(ctx context.Context, req *domain.CreateMessageRequest) (*domain.Message, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	msg := &domain.Message{
		Sender:  req.Sender,
		Email:   req.Email,
		Subject: req.Subject,
		Body:    req.Body,
		Status:  domain.MessageUnread,
	}

	customer, err := s.users.FindCustomerByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up customer: %w", err)
	}
	if customer != nil {
		msg.UserID = &customer.ID
	}

	created, err := s.messages.Create(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	if s.bus != nil {
		if err := s.bus.Publish(ctx, events.MessageReceived, created); err != nil {
			logger.WarnContext(ctx, "failed to publish event", "subject", events.MessageReceived, "error", err)
		}
	}

	logger.InfoContext(ctx, "contact message received", "message_id", created.ID, "from", created.Email)
	return created, nil
}

func (s *messageService) ListAll(ctx context.Context) ([]domain.Message, error) {
	return s.messages.List(ctx)
}

// ListForStaff returns messages from customers with shipments assigned to
// the staff member.
func (s *messageService) ListForStaff(ctx context.Context, staffID int64) ([]domain.Message, error) {
	customerIDs, err := s.shipments.AssignedCustomerIDs(ctx, staffID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve assigned customers: %w", err)
	}
	return s.messages.ListForUsers(ctx, customerIDs)
}

// Reply emails the sender and marks the message replied. The status only
// flips after the email goes out.
func (s *messageService) Reply(ctx context.Context, actor *domain.User, id int64, req *domain.ReplyRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	msg, err := s.messages.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load message: %w", err)
	}
	if msg == nil {
		return domain.ErrNotFound
	}

	if err := s.mailer.SendMessageReply(msg.Email, msg.Sender, msg.Subject, req.ReplyBody); err != nil {
		logger.ErrorContext(ctx, "failed to send reply email", "message_id", id, "error", err)
		return domain.ErrDispatchFailed
	}

	if _, err := s.messages.Reply(ctx, id, req.ReplyBody); err != nil {
		return fmt.Errorf("failed to mark message replied: %w", err)
	}

	logger.InfoContext(ctx, "message reply sent", "message_id", id, "actor", actor.ID)
	return nil
}

func (s *messageService) Delete(ctx context.Context, id int64) error {
	return s.messages.Delete(ctx, id)
}

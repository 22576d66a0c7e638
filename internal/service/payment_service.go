package service

import (
	"context"
	"fmt"

	"github.com/bongoexpress/cargo-api/internal/domain"
	"github.com/bongoexpress/cargo-api/internal/repository"
)

type PaymentService interface {
	List(ctx context.Context, filter domain.PaymentFilter, page, limit int) ([]domain.Payment, domain.Pagination, error)
	Get(ctx context.Context, id int64) (*domain.Payment, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*domain.Payment, error)
}

type paymentService struct {
	payments repository.PaymentRepository
}

func NewPaymentService(payments repository.PaymentRepository) PaymentService {
	return &paymentService{payments: payments}
}

func (s *paymentService) List(ctx context.Context, filter domain.PaymentFilter, page, limit int) ([]domain.Payment, domain.Pagination, error) {
	payments, total, err := s.payments.List(ctx, filter, limit, (page-1)*limit)
	if err != nil {
		return nil, domain.Pagination{}, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, domain.NewPagination(total, page, limit), nil
}

func (s *paymentService) Get(ctx context.Context, id int64) (*domain.Payment, error) {
	payment, err := s.payments.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	if payment == nil {
		return nil, domain.ErrNotFound
	}
	return payment, nil
}

func (s *paymentService) UpdateStatus(ctx context.Context, id int64, status string) (*domain.Payment, error) {
	if !domain.IsValidPaymentStatus(status) {
		return nil, domain.NewValidationError("Invalid payment status: %s", status)
	}
	if err := s.payments.UpdateStatus(ctx, id, domain.PaymentStatus(status)); err != nil {
		return nil, err
	}
	return s.payments.FindByID(ctx, id)
}

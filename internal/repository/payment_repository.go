package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bongoexpress/cargo-api/internal/domain"
)

type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) (*domain.Payment, error)
	FindByID(ctx context.Context, id int64) (*domain.Payment, error)
	FindByShipment(ctx context.Context, shipmentRef int64) (*domain.Payment, error)
	List(ctx context.Context, filter domain.PaymentFilter, limit, offset int) ([]domain.Payment, int, error)
	UpdateAmountByShipment(ctx context.Context, shipmentRef int64, amount float64) error
	UpdateStatus(ctx context.Context, id int64, status domain.PaymentStatus) error
	Delete(ctx context.Context, id int64) error
	CompletedRevenue(ctx context.Context) (float64, error)
	CompletedRevenueInRange(ctx context.Context, from, to time.Time) (float64, error)
}

type paymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) PaymentRepository {
	return &paymentRepository{pool: pool}
}

const paymentCols = `p.id, p.payment_id, p.shipment_id, s.shipment_id, p.customer_id,
	COALESCE(u.name, COALESCE(s.guest_name, '')), COALESCE(u.phone, COALESCE(s.guest_phone, '')),
	p.amount, p.method, p.status, p.transaction_date, p.created_at, p.updated_at`

const paymentFrom = ` FROM payments p
	JOIN shipments s ON s.id = p.shipment_id
	LEFT JOIN users u ON u.id = p.customer_id`

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID, &p.PaymentID, &p.ShipmentRef, &p.ShipmentCode, &p.CustomerID,
		&p.CustomerName, &p.CustomerPhone,
		&p.Amount, &p.Method, &p.Status, &p.TransactionDate, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) Create(ctx context.Context, p *domain.Payment) (*domain.Payment, error) {
	const q = `
		INSERT INTO payments (payment_id, shipment_id, customer_id, amount, method, status, transaction_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	created := *p
	err := r.pool.QueryRow(ctx, q,
		p.PaymentID, p.ShipmentRef, p.CustomerID, p.Amount, p.Method, p.Status, p.TransactionDate,
	).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *paymentRepository) FindByID(ctx context.Context, id int64) (*domain.Payment, error) {
	const q = `SELECT ` + paymentCols + paymentFrom + ` WHERE p.id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p, err := scanPayment(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *paymentRepository) FindByShipment(ctx context.Context, shipmentRef int64) (*domain.Payment, error) {
	const q = `SELECT ` + paymentCols + paymentFrom + ` WHERE p.shipment_id = $1 ORDER BY p.id LIMIT 1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p, err := scanPayment(r.pool.QueryRow(ctx, q, shipmentRef))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *paymentRepository) List(ctx context.Context, filter domain.PaymentFilter, limit, offset int) ([]domain.Payment, int, error) {
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.StaffID != 0 {
		conds = append(conds, `s.staff_id = `+arg(filter.StaffID))
	}
	if filter.Status != "" {
		conds = append(conds, `p.status = `+arg(string(filter.Status)))
	}
	if filter.Search != "" {
		pat := arg("%" + strings.TrimSpace(filter.Search) + "%")
		conds = append(conds, `(p.payment_id ILIKE `+pat+
			` OR COALESCE(u.name, COALESCE(s.guest_name, '')) ILIKE `+pat+
			` OR COALESCE(u.phone, COALESCE(s.guest_phone, '')) ILIKE `+pat+`)`)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*)`+paymentFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + paymentCols + paymentFrom + where +
		` ORDER BY p.transaction_date DESC LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		payments = append(payments, *p)
	}
	return payments, total, rows.Err()
}

func (r *paymentRepository) UpdateAmountByShipment(ctx context.Context, shipmentRef int64, amount float64) error {
	const q = `UPDATE payments SET amount = $2, updated_at = now() WHERE shipment_id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, shipmentRef, amount)
	return err
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, id int64, status domain.PaymentStatus) error {
	const q = `UPDATE payments SET status = $2, updated_at = now() WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id, status)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *paymentRepository) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM payments WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *paymentRepository) CompletedRevenue(ctx context.Context) (float64, error) {
	const q = `SELECT COALESCE(sum(amount), 0) FROM payments WHERE status = 'Completed'`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var sum float64
	err := r.pool.QueryRow(ctx, q).Scan(&sum)
	return sum, err
}

func (r *paymentRepository) CompletedRevenueInRange(ctx context.Context, from, to time.Time) (float64, error) {
	const q = `SELECT COALESCE(sum(amount), 0) FROM payments
		WHERE status = 'Completed' AND created_at >= $1 AND created_at <= $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var sum float64
	err := r.pool.QueryRow(ctx, q, from, to).Scan(&sum)
	return sum, err
}

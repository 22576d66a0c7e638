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

type ShipmentRepository interface {
	Create(ctx context.Context, s *domain.Shipment) (*domain.Shipment, error)
	FindByID(ctx context.Context, id int64) (*domain.Shipment, error)
	FindByTrackingID(ctx context.Context, trackingID string) (*domain.Shipment, error)
	FindAssigned(ctx context.Context, id, staffID int64) (*domain.Shipment, error)
	List(ctx context.Context, filter domain.ShipmentFilter, limit, offset int) ([]domain.Shipment, int, error)
	AppendTrackingEvent(ctx context.Context, id int64, staffID int64, ev domain.TrackingEvent) (*domain.Shipment, error)
	Update(ctx context.Context, id int64, req *domain.UpdateShipmentRequest) (*domain.Shipment, error)
	UpdateCost(ctx context.Context, id int64, cost float64) (*domain.Shipment, error)
	Delete(ctx context.Context, id int64) error
	Summary(ctx context.Context) (*domain.ShipmentSummary, error)
	StatusDistribution(ctx context.Context) ([]domain.StatusCount, error)
	CountByStatusInRange(ctx context.Context, from, to time.Time) (map[domain.ShipmentStatus]int, error)
	CountAll(ctx context.Context) (int, error)
	CountDelivered(ctx context.Context) (int, error)
	Recent(ctx context.Context, limit int) ([]domain.Shipment, error)
	CountAssigned(ctx context.Context, staffID int64) (int, error)
	CountAssignedOpen(ctx context.Context, staffID int64) (int, error)
	CountDeliveredBetween(ctx context.Context, staffID int64, from, to time.Time) (int, error)
	PriorityShipments(ctx context.Context, staffID int64, limit int) ([]domain.Shipment, error)
	AssignedCustomerIDs(ctx context.Context, staffID int64) ([]int64, error)
}

type shipmentRepository struct {
	pool *pgxpool.Pool
}

func NewShipmentRepository(pool *pgxpool.Pool) ShipmentRepository {
	return &shipmentRepository{pool: pool}
}

const shipmentCols = `s.id, s.shipment_id, s.customer_id, s.guest_name, s.guest_phone,
	s.created_by, s.staff_id, s.branch, s.origin, s.destination, s.status, s.dispatch_date,
	s.estimated_delivery, s.weight, s.package_details, s.cost, s.created_at, s.updated_at,
	COALESCE(u.name, '')`

const shipmentFrom = ` FROM shipments s LEFT JOIN users u ON u.id = s.customer_id`

func scanShipment(row pgx.Row) (*domain.Shipment, error) {
	var (
		s          domain.Shipment
		customerID *int64
		guestName  *string
		guestPhone *string
	)
	err := row.Scan(
		&s.ID, &s.ShipmentID, &customerID, &guestName, &guestPhone,
		&s.CreatedBy, &s.StaffID, &s.Branch, &s.Origin, &s.Destination, &s.Status, &s.DispatchDate,
		&s.EstimatedDelivery, &s.Weight, &s.PackageDetails, &s.Cost, &s.CreatedAt, &s.UpdatedAt,
		&s.CustomerName,
	)
	if err != nil {
		return nil, err
	}
	if customerID != nil {
		s.Owner = domain.RegisteredOwner(*customerID)
	} else {
		var name, phone string
		if guestName != nil {
			name = *guestName
		}
		if guestPhone != nil {
			phone = *guestPhone
		}
		s.Owner = domain.GuestOwner(name, phone)
	}
	return &s, nil
}

// Create inserts the shipment and its seed tracking entry in one transaction
// so a shipment can never exist without history. Callers retry on a
// duplicate tracking id.
func (r *shipmentRepository) Create(ctx context.Context, s *domain.Shipment) (*domain.Shipment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var customerID *int64
	var guestName, guestPhone *string
	if s.Owner.Kind == domain.OwnerRegistered {
		customerID = &s.Owner.CustomerID
	} else {
		guestName = &s.Owner.GuestName
		guestPhone = &s.Owner.GuestPhone
	}

	const q = `
		INSERT INTO shipments (shipment_id, customer_id, guest_name, guest_phone, created_by, staff_id,
			branch, origin, destination, status, dispatch_date, estimated_delivery, weight, package_details, cost)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at`

	var id int64
	var createdAt, updatedAt time.Time
	err = tx.QueryRow(ctx, q,
		s.ShipmentID, customerID, guestName, guestPhone, s.CreatedBy, s.StaffID,
		s.Branch, s.Origin, s.Destination, s.Status, s.DispatchDate, s.EstimatedDelivery,
		s.Weight, s.PackageDetails, s.Cost,
	).Scan(&id, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	for _, ev := range s.TrackingHistory {
		if _, err := tx.Exec(ctx,
			`INSERT INTO tracking_events (shipment_id, status, location, occurred_at) VALUES ($1, $2, $3, $4)`,
			id, ev.Status, ev.Location, ev.Timestamp,
		); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	created := *s
	created.ID = id
	created.CreatedAt = createdAt
	created.UpdatedAt = updatedAt
	return &created, nil
}

func (r *shipmentRepository) FindByID(ctx context.Context, id int64) (*domain.Shipment, error) {
	const q = `SELECT ` + shipmentCols + shipmentFrom + ` WHERE s.id = $1`
	return r.findOne(ctx, q, id)
}

func (r *shipmentRepository) FindByTrackingID(ctx context.Context, trackingID string) (*domain.Shipment, error) {
	const q = `SELECT ` + shipmentCols + shipmentFrom + ` WHERE lower(s.shipment_id) = lower($1)`
	return r.findOne(ctx, q, trackingID)
}

func (r *shipmentRepository) FindAssigned(ctx context.Context, id, staffID int64) (*domain.Shipment, error) {
	const q = `SELECT ` + shipmentCols + shipmentFrom + ` WHERE s.id = $1 AND s.staff_id = $2`
	return r.findOne(ctx, q, id, staffID)
}

func (r *shipmentRepository) findOne(ctx context.Context, q string, args ...any) (*domain.Shipment, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	s, err := scanShipment(r.pool.QueryRow(ctx, q, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadHistory(ctx, []*domain.Shipment{s}); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *shipmentRepository) loadHistory(ctx context.Context, shipments []*domain.Shipment) error {
	if len(shipments) == 0 {
		return nil
	}
	ids := make([]int64, len(shipments))
	byID := make(map[int64]*domain.Shipment, len(shipments))
	for i, s := range shipments {
		ids[i] = s.ID
		byID[s.ID] = s
	}

	rows, err := r.pool.Query(ctx,
		`SELECT shipment_id, status, location, occurred_at FROM tracking_events
		 WHERE shipment_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var sid int64
		var ev domain.TrackingEvent
		if err := rows.Scan(&sid, &ev.Status, &ev.Location, &ev.Timestamp); err != nil {
			return err
		}
		if s := byID[sid]; s != nil {
			s.TrackingHistory = append(s.TrackingHistory, ev)
		}
	}
	return rows.Err()
}

func (r *shipmentRepository) List(ctx context.Context, filter domain.ShipmentFilter, limit, offset int) ([]domain.Shipment, int, error) {
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Search != "" {
		conds = append(conds, `s.shipment_id ILIKE `+arg("%"+filter.Search+"%"))
	}
	if filter.Status != "" {
		conds = append(conds, `s.status = `+arg(string(filter.Status)))
	}
	if filter.Branch != "" {
		conds = append(conds, `s.branch = `+arg(filter.Branch))
	}
	if filter.CreatedBy != 0 {
		conds = append(conds, `s.created_by = `+arg(filter.CreatedBy))
	}
	if filter.StaffID != 0 {
		conds = append(conds, `s.staff_id = `+arg(filter.StaffID))
	}
	if filter.Date != nil {
		dayStart := time.Date(filter.Date.Year(), filter.Date.Month(), filter.Date.Day(), 0, 0, 0, 0, filter.Date.Location())
		conds = append(conds, `s.dispatch_date >= `+arg(dayStart))
		conds = append(conds, `s.dispatch_date < `+arg(dayStart.AddDate(0, 0, 1)))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM shipments s`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + shipmentCols + shipmentFrom + where +
		` ORDER BY s.created_at DESC LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var shipments []domain.Shipment
	var ptrs []*domain.Shipment
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, 0, err
		}
		shipments = append(shipments, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range shipments {
		ptrs = append(ptrs, &shipments[i])
	}
	if err := r.loadHistory(ctx, ptrs); err != nil {
		return nil, 0, err
	}
	return shipments, total, nil
}

// AppendTrackingEvent writes the new history entry and the status field in
// the same transaction so the two can never drift. staffID of 0 skips the
// assignment scope (admin path).
func (r *shipmentRepository) AppendTrackingEvent(ctx context.Context, id int64, staffID int64, ev domain.TrackingEvent) (*domain.Shipment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	q := `UPDATE shipments SET status = $2, updated_at = now() WHERE id = $1`
	args := []any{id, ev.Status}
	if staffID != 0 {
		q += ` AND staff_id = $3`
		args = append(args, staffID)
	}
	result, err := tx.Exec(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected() == 0 {
		return nil, nil
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO tracking_events (shipment_id, status, location, occurred_at) VALUES ($1, $2, $3, $4)`,
		id, ev.Status, ev.Location, ev.Timestamp,
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *shipmentRepository) Update(ctx context.Context, id int64, req *domain.UpdateShipmentRequest) (*domain.Shipment, error) {
	const q = `
		UPDATE shipments
		SET
			origin = COALESCE($2, origin),
			destination = COALESCE($3, destination),
			status = COALESCE($4, status),
			staff_id = COALESCE($5, staff_id),
			branch = COALESCE($6, branch),
			weight = COALESCE($7, weight),
			package_details = COALESCE($8, package_details),
			cost = COALESCE($9, cost),
			estimated_delivery = COALESCE($10, estimated_delivery),
			updated_at = now()
		WHERE id = $1
		RETURNING id`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var updatedID int64
	err := r.pool.QueryRow(ctx, q, id,
		req.Origin, req.Destination, req.Status, req.StaffID, req.Branch,
		req.Weight, req.PackageDetails, req.Cost, req.EstimatedDelivery,
	).Scan(&updatedID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, updatedID)
}

func (r *shipmentRepository) UpdateCost(ctx context.Context, id int64, cost float64) (*domain.Shipment, error) {
	const q = `UPDATE shipments SET cost = $2, updated_at = now() WHERE id = $1 RETURNING id`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var updatedID int64
	err := r.pool.QueryRow(ctx, q, id, cost).Scan(&updatedID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, updatedID)
}

func (r *shipmentRepository) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM shipments WHERE id = $1`
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

func (r *shipmentRepository) Summary(ctx context.Context) (*domain.ShipmentSummary, error) {
	const q = `SELECT
		count(*),
		count(*) FILTER (WHERE status = 'Pending'),
		count(*) FILTER (WHERE status = 'In Transit'),
		count(*) FILTER (WHERE status = 'Delivered')
	FROM shipments`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var s domain.ShipmentSummary
	if err := r.pool.QueryRow(ctx, q).Scan(&s.Total, &s.Pending, &s.InTransit, &s.Delivered); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *shipmentRepository) StatusDistribution(ctx context.Context) ([]domain.StatusCount, error) {
	const q = `SELECT status, count(*) FROM shipments GROUP BY status`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.StatusCount
	for rows.Next() {
		var sc domain.StatusCount
		if err := rows.Scan(&sc.Name, &sc.Value); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (r *shipmentRepository) CountByStatusInRange(ctx context.Context, from, to time.Time) (map[domain.ShipmentStatus]int, error) {
	const q = `SELECT status, count(*) FROM shipments
		WHERE created_at >= $1 AND created_at <= $2 GROUP BY status`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[domain.ShipmentStatus]int)
	for rows.Next() {
		var status domain.ShipmentStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

func (r *shipmentRepository) CountAll(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT count(*) FROM shipments`)
}

func (r *shipmentRepository) CountDelivered(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT count(*) FROM shipments WHERE status = 'Delivered'`)
}

func (r *shipmentRepository) Recent(ctx context.Context, limit int) ([]domain.Shipment, error) {
	q := `SELECT ` + shipmentCols + shipmentFrom + ` ORDER BY s.created_at DESC LIMIT $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shipments []domain.Shipment
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		shipments = append(shipments, *s)
	}
	return shipments, rows.Err()
}

func (r *shipmentRepository) CountAssigned(ctx context.Context, staffID int64) (int, error) {
	const q = `SELECT count(*) FROM shipments WHERE staff_id = $1`
	return r.countArgs(ctx, q, staffID)
}

func (r *shipmentRepository) CountAssignedOpen(ctx context.Context, staffID int64) (int, error) {
	const q = `SELECT count(*) FROM shipments WHERE staff_id = $1 AND status IN ('Pending', 'In Transit')`
	return r.countArgs(ctx, q, staffID)
}

// CountDeliveredBetween counts shipments whose history records a delivery
// inside the window, regardless of later status edits.
func (r *shipmentRepository) CountDeliveredBetween(ctx context.Context, staffID int64, from, to time.Time) (int, error) {
	const q = `SELECT count(DISTINCT s.id) FROM shipments s
		JOIN tracking_events te ON te.shipment_id = s.id
		WHERE s.staff_id = $1 AND te.status = 'Delivered' AND te.occurred_at >= $2 AND te.occurred_at <= $3`
	return r.countArgs(ctx, q, staffID, from, to)
}

func (r *shipmentRepository) PriorityShipments(ctx context.Context, staffID int64, limit int) ([]domain.Shipment, error) {
	q := `SELECT ` + shipmentCols + shipmentFrom + `
		WHERE s.staff_id = $1 AND s.status IN ('Pending', 'In Transit')
		ORDER BY s.estimated_delivery ASC NULLS LAST LIMIT $2`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, staffID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shipments []domain.Shipment
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		shipments = append(shipments, *s)
	}
	return shipments, rows.Err()
}

func (r *shipmentRepository) AssignedCustomerIDs(ctx context.Context, staffID int64) ([]int64, error) {
	const q = `SELECT DISTINCT customer_id FROM shipments WHERE staff_id = $1 AND customer_id IS NOT NULL`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *shipmentRepository) count(ctx context.Context, q string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var n int
	err := r.pool.QueryRow(ctx, q).Scan(&n)
	return n, err
}

func (r *shipmentRepository) countArgs(ctx context.Context, q string, args ...any) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var n int
	err := r.pool.QueryRow(ctx, q, args...).Scan(&n)
	return n, err
}


package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bongoexpress/cargo-api/internal/domain"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error)
	CreateMany(ctx context.Context, ns []domain.Notification) error
	ListForUser(ctx context.Context, userID int64, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id, userID int64) error
	MarkAllRead(ctx context.Context, userID int64) error
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	const q = `
		INSERT INTO notifications (user_id, text, link)
		VALUES ($1, $2, $3)
		RETURNING id, read, created_at`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	created := *n
	err := r.pool.QueryRow(ctx, q, n.UserID, n.Text, n.Link).
		Scan(&created.ID, &created.Read, &created.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// CreateMany inserts notifications for several recipients in one round trip.
func (r *notificationRepository) CreateMany(ctx context.Context, ns []domain.Notification) error {
	if len(ns) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	batch := &pgx.Batch{}
	for _, n := range ns {
		batch.Queue(`INSERT INTO notifications (user_id, text, link) VALUES ($1, $2, $3)`,
			n.UserID, n.Text, n.Link)
	}
	return r.pool.SendBatch(ctx, batch).Close()
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID int64, limit int) ([]domain.Notification, error) {
	const q = `
		SELECT id, user_id, text, link, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Text, &n.Link, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, userID int64) error {
	const q = `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id, userID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID int64) error {
	const q = `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, userID)
	return err
}

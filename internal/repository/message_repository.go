package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bongoexpress/cargo-api/internal/domain"
)

type MessageRepository interface {
	Create(ctx context.Context, m *domain.Message) (*domain.Message, error)
	FindByID(ctx context.Context, id int64) (*domain.Message, error)
	List(ctx context.Context) ([]domain.Message, error)
	ListForUsers(ctx context.Context, userIDs []int64) ([]domain.Message, error)
	Reply(ctx context.Context, id int64, reply string) (*domain.Message, error)
	Delete(ctx context.Context, id int64) error
}

type messageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

const messageCols = `m.id, m.sender, m.email, m.subject, m.body, m.status,
	COALESCE(m.reply, ''), m.user_id, COALESCE(u.name, ''), m.created_at, m.updated_at`

const messageFrom = ` FROM messages m LEFT JOIN users u ON u.id = m.user_id`

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var m domain.Message
	err := row.Scan(
		&m.ID, &m.Sender, &m.Email, &m.Subject, &m.Body, &m.Status,
		&m.Reply, &m.UserID, &m.UserName, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *messageRepository) Create(ctx context.Context, m *domain.Message) (*domain.Message, error) {
	const q = `
		INSERT INTO messages (sender, email, subject, body, status, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	created := *m
	err := r.pool.QueryRow(ctx, q,
		m.Sender, m.Email, m.Subject, m.Body, m.Status, m.UserID,
	).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *messageRepository) FindByID(ctx context.Context, id int64) (*domain.Message, error) {
	const q = `SELECT ` + messageCols + messageFrom + ` WHERE m.id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	m, err := scanMessage(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

func (r *messageRepository) List(ctx context.Context) ([]domain.Message, error) {
	const q = `SELECT ` + messageCols + messageFrom + ` ORDER BY m.created_at DESC`
	return r.queryMessages(ctx, q)
}

// ListForUsers returns messages tied to any of the given user accounts.
// Staff inboxes use this to scope the list to their assigned customers.
func (r *messageRepository) ListForUsers(ctx context.Context, userIDs []int64) ([]domain.Message, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	const q = `SELECT ` + messageCols + messageFrom + ` WHERE m.user_id = ANY($1) ORDER BY m.created_at DESC`
	return r.queryMessages(ctx, q, userIDs)
}

func (r *messageRepository) queryMessages(ctx context.Context, q string, args ...any) ([]domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}

func (r *messageRepository) Reply(ctx context.Context, id int64, reply string) (*domain.Message, error) {
	const q = `UPDATE messages SET reply = $2, status = 'Replied', updated_at = now() WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id, reply)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected() == 0 {
		return nil, nil
	}
	return r.FindByID(ctx, id)
}

func (r *messageRepository) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM messages WHERE id = $1`
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

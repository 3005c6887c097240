package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgDispatcher persists notifications for in-app delivery.
type PgDispatcher struct {
	pool *pgxpool.Pool
}

func NewPgDispatcher(pool *pgxpool.Pool) *PgDispatcher {
	return &PgDispatcher{pool: pool}
}

func (d *PgDispatcher) Dispatch(ctx context.Context, n *Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Priority == "" {
		n.Priority = PriorityNormal
	}
	_, err := d.pool.Exec(ctx, `
		INSERT INTO notifications (id, user_id, title, message, priority, action_url, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, now())
	`, n.ID, n.UserID, n.Title, n.Message, string(n.Priority), n.ActionURL)
	return err
}

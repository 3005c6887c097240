// Package notify delivers in-app notifications. Delivery is best effort
// everywhere it is used; callers log failures and move on.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Notification is one message addressed to a user.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Priority  Priority  `json:"priority"`
	ActionURL string    `json:"action_url,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// Dispatcher sends a notification to a single user.
type Dispatcher interface {
	Dispatch(ctx context.Context, n *Notification) error
}

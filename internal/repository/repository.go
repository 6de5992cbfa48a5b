package repository

import (
	"context"
	"database/sql"
	"time"

	"kiln_dashboard/internal/models"
)

// MessageLog keeps realtime channel envelopes for diagnostics.
type MessageLog interface {
	Append(ctx context.Context, m models.ChannelMessage) error
	List(ctx context.Context, f MessageFilter) ([]models.ChannelMessage, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// MessageFilter narrows List. Zero values match everything.
type MessageFilter struct {
	From      time.Time
	To        time.Time
	Direction string
	Event     string
	Limit     int
}

type Repository struct {
	Messages MessageLog
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Messages: NewMessageSQLite(db),
	}
}

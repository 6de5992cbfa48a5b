package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"kiln_dashboard/internal/models"

	"github.com/google/uuid"
)

// sqliteTime is the layout sqlite compares TIMESTAMP text columns with.
const sqliteTime = "2006-01-02 15:04:05.000"

// defaultListLimit caps a List call without an explicit limit.
const defaultListLimit = 500

const insertMessageSQL = `
		INSERT INTO channel_messages (id, occurred_at, direction, event, payload)
		VALUES (?, ?, ?, ?, ?)
	`

const pruneMessagesSQL = `DELETE FROM channel_messages WHERE occurred_at < ?`

type MessageSQLite struct {
	db *sql.DB
}

func NewMessageSQLite(db *sql.DB) *MessageSQLite { return &MessageSQLite{db: db} }

var _ MessageLog = (*MessageSQLite)(nil)

// Append stores one envelope. Missing MessageID or OccurredAt are filled in.
func (r *MessageSQLite) Append(ctx context.Context, m models.ChannelMessage) error {
	if m.MessageID == "" {
		m.MessageID = uuid.NewString()
	}
	if m.OccurredAt.IsZero() {
		m.OccurredAt = time.Now().UTC()
	}

	var payload *string
	if m.Payload != nil {
		b, err := json.Marshal(m.Payload)
		if err != nil {
			return fmt.Errorf("marshal payload of %s: %w", m.Event, err)
		}
		s := string(b)
		payload = &s
	}

	_, err := r.db.ExecContext(ctx, insertMessageSQL,
		m.MessageID,
		m.OccurredAt.UTC().Format(sqliteTime),
		strings.ToUpper(strings.TrimSpace(m.Direction)),
		m.Event,
		payload,
	)
	if err != nil {
		return fmt.Errorf("insert message %s: %w", m.MessageID, err)
	}
	return nil
}

// List returns envelopes in [From, To] matching the filter, oldest first.
// Only the newest Limit rows are kept.
func (r *MessageSQLite) List(ctx context.Context, f MessageFilter) ([]models.ChannelMessage, error) {
	var (
		conds []string
		args  []any
	)

	if !f.From.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, f.From.UTC().Format(sqliteTime))
	}
	if !f.To.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, f.To.UTC().Format(sqliteTime))
	}
	if dir := strings.ToUpper(strings.TrimSpace(f.Direction)); dir != "" {
		conds = append(conds, "direction = ?")
		args = append(args, dir)
	}
	if ev := strings.TrimSpace(f.Event); ev != "" {
		conds = append(conds, "event = ?")
		args = append(args, ev)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	q := `SELECT id, occurred_at, direction, event, payload FROM channel_messages`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY occurred_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("select messages: %w", err)
	}
	defer rows.Close()

	out := make([]models.ChannelMessage, 0, 64)
	for rows.Next() {
		var (
			m       models.ChannelMessage
			at      string
			payload sql.NullString
		)
		if err := rows.Scan(&m.MessageID, &at, &m.Direction, &m.Event, &payload); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.OccurredAt, err = time.Parse(sqliteTime, at)
		if err != nil {
			return nil, fmt.Errorf("parse occurred_at %q: %w", at, err)
		}
		if payload.Valid && payload.String != "" {
			m.Payload = json.RawMessage(payload.String)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Prune deletes envelopes older than before and reports how many went.
func (r *MessageSQLite) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, pruneMessagesSQL, before.UTC().Format(sqliteTime))
	if err != nil {
		return 0, fmt.Errorf("prune messages: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune messages rows affected: %w", err)
	}
	return n, nil
}

package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/26haroon26/chatapp-server/internal/model"
)

// MessageRepo defines the interface for direct-message repository operations
type MessageRepo interface {
	Create(ctx context.Context, fromID, toID uuid.UUID, text string) (model.Message, error)
	Conversation(ctx context.Context, a, b uuid.UUID, limit int) ([]model.Message, error)
}

type messageRepo struct {
	db *sql.DB
}

// NewMessageRepo creates a new MessageRepo instance
func NewMessageRepo(db *sql.DB) MessageRepo {
	return &messageRepo{db: db}
}

func scanMessage(row interface{ Scan(...any) error }) (model.Message, error) {
	var msg model.Message
	var idStr, fromIDStr, toIDStr string
	err := row.Scan(
		&idStr,
		&msg.Text,
		&msg.CreatedAt,
		&fromIDStr,
		&msg.From.FirstName,
		&msg.From.LastName,
		&msg.From.Email,
		&toIDStr,
		&msg.To.FirstName,
		&msg.To.LastName,
		&msg.To.Email,
	)
	if err != nil {
		return model.Message{}, err
	}
	if msg.ID, err = uuid.Parse(idStr); err != nil {
		return model.Message{}, fmt.Errorf("parse message ID: %w", err)
	}
	if msg.From.ID, err = uuid.Parse(fromIDStr); err != nil {
		return model.Message{}, fmt.Errorf("parse sender ID: %w", err)
	}
	if msg.To.ID, err = uuid.Parse(toIDStr); err != nil {
		return model.Message{}, fmt.Errorf("parse recipient ID: %w", err)
	}
	return msg, nil
}

// Create persists a message and returns it with sender and recipient expanded.
func (r *messageRepo) Create(ctx context.Context, fromID, toID uuid.UUID, text string) (model.Message, error) {
	query := `
		WITH ins AS (
			INSERT INTO messages (from_id, to_id, text)
			VALUES ($1, $2, $3)
			RETURNING id, from_id, to_id, text, created_at
		)
		SELECT ins.id, ins.text, ins.created_at,
		       f.id, f.first_name, f.last_name, f.email,
		       t.id, t.first_name, t.last_name, t.email
		FROM ins
		JOIN users f ON f.id = ins.from_id
		JOIN users t ON t.id = ins.to_id
	`
	msg, err := scanMessage(r.db.QueryRowContext(ctx, query, fromID, toID, text))
	if err != nil {
		return model.Message{}, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

// Conversation returns messages between the unordered pair {a, b},
// newest-first, capped at limit.
func (r *messageRepo) Conversation(ctx context.Context, a, b uuid.UUID, limit int) ([]model.Message, error) {
	query := `
		SELECT m.id, m.text, m.created_at,
		       f.id, f.first_name, f.last_name, f.email,
		       t.id, t.first_name, t.last_name, t.email
		FROM messages m
		JOIN users f ON f.id = m.from_id
		JOIN users t ON t.id = m.to_id
		WHERE (m.from_id = $1 AND m.to_id = $2)
		   OR (m.from_id = $2 AND m.to_id = $1)
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, a, b, limit)
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

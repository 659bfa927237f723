package subscriber

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ahmethakanbesel/metal-tracker/internal/telegram"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Upsert(ctx context.Context, s *telegram.Subscriber) error {
	const query = `INSERT INTO telegram_subscribers (chat_id, name) VALUES (?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET name = excluded.name
		RETURNING id, created_at`

	var createdStr string
	if err := r.db.QueryRowContext(ctx, query, s.ChatID, nullString(s.Name)).Scan(&s.ID, &createdStr); err != nil {
		return fmt.Errorf("upsert subscriber: %w", err)
	}
	s.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	return nil
}

func (r *Repository) Delete(ctx context.Context, chatID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM telegram_subscribers WHERE chat_id = ?`, chatID)
	if err != nil {
		return false, fmt.Errorf("delete subscriber: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repository) List(ctx context.Context) ([]telegram.Subscriber, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, chat_id, name, created_at
		FROM telegram_subscribers ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	subs := []telegram.Subscriber{}
	for rows.Next() {
		var s telegram.Subscriber
		var name sql.NullString
		var createdStr string
		if err := rows.Scan(&s.ID, &s.ChatID, &name, &createdStr); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		s.Name = name.String
		s.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

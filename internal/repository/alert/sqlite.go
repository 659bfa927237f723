package alert

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	domain "github.com/ahmethakanbesel/metal-tracker/internal/alert"
)

const timeFormat = "2006-01-02T15:04:05Z"

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateRule(ctx context.Context, rule *domain.Rule) error {
	const query = `INSERT INTO alert_rules (source_id, condition, threshold, email, is_active)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id, created_at`

	var createdStr string
	err := r.db.QueryRowContext(ctx, query,
		rule.SourceID, string(rule.Condition), rule.Threshold, rule.Email, rule.Active,
	).Scan(&rule.ID, &createdStr)
	if err != nil {
		return fmt.Errorf("insert alert rule: %w", err)
	}
	rule.CreatedAt, _ = time.Parse(timeFormat, createdStr)
	return nil
}

func (r *Repository) ActiveRules(ctx context.Context) ([]domain.Rule, error) {
	const query = `SELECT a.id, a.source_id, s.name, a.condition, a.threshold, a.email, a.is_active, a.created_at
		FROM alert_rules a
		JOIN metric_sources s ON s.id = a.source_id
		WHERE a.is_active = 1
		ORDER BY a.id ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list alert rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []domain.Rule
	for rows.Next() {
		var rule domain.Rule
		var cond, createdStr string
		if err := rows.Scan(&rule.ID, &rule.SourceID, &rule.SourceName, &cond,
			&rule.Threshold, &rule.Email, &rule.Active, &createdStr); err != nil {
			return nil, fmt.Errorf("scan alert rule: %w", err)
		}
		rule.Condition = domain.Condition(cond)
		rule.CreatedAt, _ = time.Parse(timeFormat, createdStr)
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *Repository) LogNotification(ctx context.Context, l *domain.Log) error {
	const query = `INSERT INTO notification_logs (alert_rule_id, sent_via, status, message)
		VALUES (?, ?, ?, ?)
		RETURNING id, created_at`

	var createdStr string
	err := r.db.QueryRowContext(ctx, query, l.AlertRuleID, l.SentVia, string(l.Status), l.Message).
		Scan(&l.ID, &createdStr)
	if err != nil {
		return fmt.Errorf("insert notification log: %w", err)
	}
	l.CreatedAt, _ = time.Parse(timeFormat, createdStr)
	return nil
}

func (r *Repository) ListLogs(ctx context.Context, ruleID int64) ([]domain.Log, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, alert_rule_id, sent_via, status, message, created_at
		FROM notification_logs WHERE alert_rule_id = ? ORDER BY id ASC`, ruleID)
	if err != nil {
		return nil, fmt.Errorf("list notification logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var logs []domain.Log
	for rows.Next() {
		var l domain.Log
		var status, createdStr string
		if err := rows.Scan(&l.ID, &l.AlertRuleID, &l.SentVia, &status, &l.Message, &createdStr); err != nil {
			return nil, fmt.Errorf("scan notification log: %w", err)
		}
		l.Status = domain.Status(status)
		l.CreatedAt, _ = time.Parse(timeFormat, createdStr)
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

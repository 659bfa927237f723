package alert

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ahmethakanbesel/metal-tracker/internal/apperror"
	"github.com/ahmethakanbesel/metal-tracker/internal/metric"
)

// Sender delivers a notification to a single recipient.
type Sender interface {
	Channel() string
	Send(ctx context.Context, to, subject, body string) error
}

type SourceFinder interface {
	FindActiveSource(ctx context.Context, code string) (*metric.Source, error)
}

type Service struct {
	repo    Repository
	values  ValueReader
	sources SourceFinder
	sender  Sender
}

func NewService(repo Repository, values ValueReader, sources SourceFinder, sender Sender) *Service {
	return &Service{repo: repo, values: values, sources: sources, sender: sender}
}

func (s *Service) CreateRule(ctx context.Context, req CreateRuleRequest) (*Rule, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	src, err := s.sources.FindActiveSource(ctx, req.SourceCode)
	if err != nil {
		return nil, fmt.Errorf("find source: %w", err)
	}
	if src == nil {
		return nil, apperror.New(apperror.NotFound, "no active source with code "+req.SourceCode)
	}

	r := &Rule{
		SourceID:   src.ID,
		SourceName: src.Name,
		Condition:  Condition(req.Condition),
		Threshold:  decimal.RequireFromString(strings.TrimSpace(req.Threshold)),
		Email:      req.Email,
		Active:     true,
	}
	if err := s.repo.CreateRule(ctx, r); err != nil {
		return nil, fmt.Errorf("create rule: %w", err)
	}
	return r, nil
}

// Evaluate checks every active rule against the latest value of its source
// and notifies the rules that trigger. Delivery failures are recorded in the
// notification log rather than returned. It reports how many rules fired.
func (s *Service) Evaluate(ctx context.Context) (int, error) {
	rules, err := s.repo.ActiveRules(ctx)
	if err != nil {
		return 0, fmt.Errorf("list rules: %w", err)
	}

	fired := 0
	for _, r := range rules {
		latest, err := s.values.LatestValue(ctx, r.SourceID)
		if err != nil {
			return fired, fmt.Errorf("latest value for rule %d: %w", r.ID, err)
		}
		if latest == nil || !r.Condition.Triggered(latest.Value, r.Threshold) {
			continue
		}
		fired++

		msg := fmt.Sprintf("Alert: %s is %s (rule: %s %s)", r.SourceName, latest.Value, r.Condition, r.Threshold)
		status := StatusSuccess
		if err := s.sender.Send(ctx, r.Email, "Price Alert Triggered", msg); err != nil {
			slog.Error("alert delivery failed", "rule", r.ID, "via", s.sender.Channel(), "error", err)
			status = StatusFailed
		}

		entry := &Log{AlertRuleID: r.ID, SentVia: s.sender.Channel(), Status: status, Message: msg}
		if err := s.repo.LogNotification(ctx, entry); err != nil {
			return fired, fmt.Errorf("log notification for rule %d: %w", r.ID, err)
		}
	}

	if fired > 0 {
		slog.Info("alert rules triggered", "count", fired)
	}
	return fired, nil
}

func (s *Service) Logs(ctx context.Context, ruleID int64) ([]Log, error) {
	if ruleID <= 0 {
		return nil, apperror.New(apperror.BadRequest, "invalid rule id")
	}
	return s.repo.ListLogs(ctx, ruleID)
}

package alert

import (
	"context"

	"github.com/ahmethakanbesel/metal-tracker/internal/metric"
)

type Repository interface {
	CreateRule(ctx context.Context, r *Rule) error
	// ActiveRules returns every active rule with its source name filled in.
	ActiveRules(ctx context.Context) ([]Rule, error)
	LogNotification(ctx context.Context, l *Log) error
	ListLogs(ctx context.Context, ruleID int64) ([]Log, error)
}

type ValueReader interface {
	LatestValue(ctx context.Context, sourceID int64) (*metric.Value, error)
}

package alert

import (
	"time"

	"github.com/shopspring/decimal"
)

type Condition string

const (
	GreaterThan Condition = "greater_than"
	LessThan    Condition = "less_than"
)

// Triggered reports whether v crosses threshold under c.
func (c Condition) Triggered(v, threshold decimal.Decimal) bool {
	switch c {
	case GreaterThan:
		return v.GreaterThan(threshold)
	case LessThan:
		return v.LessThan(threshold)
	}
	return false
}

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

type Rule struct {
	ID         int64           `json:"id"`
	SourceID   int64           `json:"sourceId"`
	SourceName string          `json:"sourceName,omitempty"`
	Condition  Condition       `json:"condition"`
	Threshold  decimal.Decimal `json:"threshold"`
	Email      string          `json:"email"`
	Active     bool            `json:"isActive"`
	CreatedAt  time.Time       `json:"createdAt"`
}

type Log struct {
	ID          int64     `json:"id"`
	AlertRuleID int64     `json:"alertRuleId"`
	SentVia     string    `json:"sentVia"`
	Status      Status    `json:"status"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Package telegram talks to the Telegram Bot API and runs the subscriber bot.
package telegram

import (
	"context"
	"time"
)

type Subscriber struct {
	ID        int64     `json:"id"`
	ChatID    string    `json:"chatId"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type SubscriberStore interface {
	// Upsert creates the subscriber or refreshes its name.
	Upsert(ctx context.Context, s *Subscriber) error
	Delete(ctx context.Context, chatID string) (bool, error)
	List(ctx context.Context) ([]Subscriber, error)
}

type Chat struct {
	ID int64 `json:"id"`
}

type User struct {
	FirstName string `json:"first_name"`
}

type Message struct {
	Chat Chat   `json:"chat"`
	From *User  `json:"from,omitempty"`
	Text string `json:"text"`
}

type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

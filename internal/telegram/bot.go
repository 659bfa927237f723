package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/ahmethakanbesel/metal-tracker/internal/report"
)

const (
	msgSubscribed   = "Subscribed. Send /now to get instant update."
	msgUnsubscribed = "Unsubscribed."
	msgReportFailed = "Failed to fetch report."
)

type Messenger interface {
	SendMessage(ctx context.Context, chatID, text string) error
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error)
}

type Reporter interface {
	Today(ctx context.Context) (*report.Daily, error)
}

type Bot struct {
	client       Messenger
	subs         SubscriberStore
	reports      Reporter
	currency     string
	loc          *time.Location
	workers      int
	pollTimeout  time.Duration
	replyTimeout time.Duration
	newBackOff   func() backoff.BackOff
	offset       int64
}

type BotOption func(*Bot)

// WithLocation sets the zone used to display record times.
func WithLocation(loc *time.Location) BotOption {
	return func(b *Bot) {
		if loc != nil {
			b.loc = loc
		}
	}
}

func WithCurrency(code string) BotOption {
	return func(b *Bot) { b.currency = code }
}

// WithReplyTimeout bounds how long one update, reply retries included, may
// take.
func WithReplyTimeout(d time.Duration) BotOption {
	return func(b *Bot) {
		if d > 0 {
			b.replyTimeout = d
		}
	}
}

// WithBroadcastWorkers bounds concurrent sends during Broadcast and
// concurrent update handling in Run.
func WithBroadcastWorkers(n int) BotOption {
	return func(b *Bot) {
		if n > 0 {
			b.workers = n
		}
	}
}

func WithPollBackOff(f func() backoff.BackOff) BotOption {
	return func(b *Bot) { b.newBackOff = f }
}

func NewBot(client Messenger, subs SubscriberStore, reports Reporter, opts ...BotOption) *Bot {
	b := &Bot{
		client:       client,
		subs:         subs,
		reports:      reports,
		currency:     "INR",
		loc:          time.UTC,
		workers:      4,
		pollTimeout:  30 * time.Second,
		replyTimeout: 15 * time.Second,
		newBackOff: func() backoff.BackOff {
			eb := backoff.NewExponentialBackOff()
			eb.MaxInterval = 2 * time.Minute
			eb.MaxElapsedTime = 0
			return eb
		},
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Run long-polls for updates until ctx is cancelled. Poll failures back off
// exponentially and never stop the loop. Updates are handled on a bounded
// worker group, one task per chat, so a slow reply to one chat does not hold
// up polling for the others.
func (b *Bot) Run(ctx context.Context) {
	bo := b.newBackOff()
	slog.Info("telegram bot polling started")

	g := new(errgroup.Group)
	g.SetLimit(b.workers)
	defer func() { _ = g.Wait() }()

	for {
		updates, err := b.client.GetUpdates(ctx, b.offset, b.pollTimeout)
		if ctx.Err() != nil {
			slog.Info("telegram bot stopped")
			return
		}
		if err != nil {
			wait := bo.NextBackOff()
			if wait == backoff.Stop {
				slog.Error("telegram polling gave up", "error", err)
				return
			}
			slog.Error("telegram polling error", "error", err, "retry_in", wait)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}
		bo.Reset()

		for _, u := range updates {
			if u.UpdateID >= b.offset {
				b.offset = u.UpdateID + 1
			}
		}
		for _, batch := range byChat(updates) {
			g.Go(func() error {
				for _, u := range batch {
					b.handleBounded(ctx, u)
				}
				return nil
			})
		}
	}
}

func (b *Bot) handleBounded(ctx context.Context, u Update) {
	ctx, cancel := context.WithTimeout(ctx, b.replyTimeout)
	defer cancel()
	if err := b.Handle(ctx, u); err != nil {
		slog.Error("telegram update failed", "update", u.UpdateID, "error", err)
	}
}

// byChat groups message updates by chat, keeping arrival order within and
// across chats.
func byChat(updates []Update) [][]Update {
	var out [][]Update
	index := map[int64]int{}
	for _, u := range updates {
		if u.Message == nil {
			continue
		}
		i, ok := index[u.Message.Chat.ID]
		if !ok {
			i = len(out)
			index[u.Message.Chat.ID] = i
			out = append(out, nil)
		}
		out[i] = append(out[i], u)
	}
	return out
}

// Handle dispatches a single update. Unknown commands and non-message
// updates are ignored.
func (b *Bot) Handle(ctx context.Context, u Update) error {
	if u.Message == nil {
		return nil
	}
	chatID := strconv.FormatInt(u.Message.Chat.ID, 10)

	switch command(u.Message.Text) {
	case "/start":
		s := &Subscriber{ChatID: chatID}
		if u.Message.From != nil {
			s.Name = u.Message.From.FirstName
		}
		if err := b.subs.Upsert(ctx, s); err != nil {
			return fmt.Errorf("subscribe %s: %w", chatID, err)
		}
		slog.Info("telegram subscriber added", "chat", chatID)
		return b.client.SendMessage(ctx, chatID, msgSubscribed)

	case "/stop":
		if _, err := b.subs.Delete(ctx, chatID); err != nil {
			return fmt.Errorf("unsubscribe %s: %w", chatID, err)
		}
		slog.Info("telegram subscriber removed", "chat", chatID)
		return b.client.SendMessage(ctx, chatID, msgUnsubscribed)

	case "/now":
		d, err := b.reports.Today(ctx)
		if err != nil {
			slog.Error("build report", "chat", chatID, "error", err)
			return b.client.SendMessage(ctx, chatID, msgReportFailed)
		}
		return b.client.SendMessage(ctx, chatID, report.Format(d, b.currency, b.loc))
	}
	return nil
}

// Broadcast sends today's report to every subscriber and returns how many
// deliveries succeeded. A failing chat is logged and skipped.
func (b *Bot) Broadcast(ctx context.Context) (int, error) {
	d, err := b.reports.Today(ctx)
	if err != nil {
		return 0, fmt.Errorf("build report: %w", err)
	}
	subs, err := b.subs.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list subscribers: %w", err)
	}
	if len(subs) == 0 {
		slog.Info("no telegram subscribers, skipping broadcast")
		return 0, nil
	}

	text := report.Format(d, b.currency, b.loc)
	var sent atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for _, s := range subs {
		g.Go(func() error {
			if err := b.client.SendMessage(gctx, s.ChatID, text); err != nil {
				slog.Error("telegram broadcast failed", "chat", s.ChatID, "error", err)
				return nil
			}
			sent.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	slog.Info("telegram broadcast sent", "subscribers", len(subs), "delivered", sent.Load(), "report", d != nil)
	return int(sent.Load()), nil
}

// command returns the leading bot command of text without any @botname suffix.
func command(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}
	cmd, _, _ := strings.Cut(fields[0], "@")
	return strings.ToLower(cmd)
}

package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ErrTooManyRequests is returned when the Bot API rate limits the client.
var ErrTooManyRequests = errors.New("telegram: too many requests")

// Client wraps the Bot API library with context cancellation and a retry
// policy for sends.
type Client struct {
	token      string
	endpoint   string
	http       *http.Client
	newBackOff func() backoff.BackOff
}

type Option func(*Client)

// WithAPIURL sets the Bot API root, e.g. https://api.telegram.org.
func WithAPIURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.endpoint = strings.TrimRight(u, "/") + "/bot%s/%s"
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBackOff sets the retry policy for SendMessage.
func WithBackOff(f func() backoff.BackOff) Option {
	return func(c *Client) { c.newBackOff = f }
}

func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		token:    token,
		endpoint: tgbotapi.APIEndpoint,
		http:     &http.Client{Timeout: 60 * time.Second},
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxElapsedTime = time.Minute
			return b
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Enabled() bool { return c.token != "" }

// contextDoer binds every request made through the library to ctx.
type contextDoer struct {
	ctx  context.Context
	http *http.Client
}

func (d contextDoer) Do(req *http.Request) (*http.Response, error) {
	return d.http.Do(req.WithContext(d.ctx))
}

// api builds a library handle bound to ctx. The handle is assembled by hand
// so no getMe round trip happens on every call.
func (c *Client) api(ctx context.Context) *tgbotapi.BotAPI {
	bot := &tgbotapi.BotAPI{
		Token:  c.token,
		Client: contextDoer{ctx: ctx, http: c.http},
	}
	bot.SetAPIEndpoint(c.endpoint)
	return bot
}

// SendMessage delivers text to chatID. Rate limits, server errors and
// transport failures are retried; other client errors are not.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}
	msg := tgbotapi.NewMessage(id, text)

	notify := func(err error, d time.Duration) {
		if errors.Is(err, ErrTooManyRequests) {
			slog.Info("telegram rate limited, retrying", "chat", chatID, "wait", d)
			return
		}
		slog.Warn("telegram send failed, retrying", "chat", chatID, "wait", d, "error", err)
	}

	return backoff.RetryNotify(func() error {
		_, err := c.api(ctx).Send(msg)
		return classify(ctx, "sendMessage", err)
	}, backoff.WithContext(c.newBackOff(), ctx), notify)
}

// GetUpdates long-polls for updates after offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	cfg := tgbotapi.NewUpdate(int(offset))
	cfg.Timeout = int(timeout.Seconds())

	raw, err := c.api(ctx).GetUpdates(cfg)
	if err != nil {
		return nil, backoffCause(classify(ctx, "getUpdates", err))
	}

	updates := make([]Update, 0, len(raw))
	for _, u := range raw {
		updates = append(updates, fromAPI(u))
	}
	return updates, nil
}

// classify maps library errors onto the retry policy: rate limits and
// server or transport failures stay retryable, everything else is permanent.
func classify(ctx context.Context, method string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return backoff.Permanent(ctx.Err())
	}

	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", method, ErrTooManyRequests)
	case apiErr.Code >= 500:
		return fmt.Errorf("telegram %s returned %d: %s", method, apiErr.Code, apiErr.Message)
	default:
		return backoff.Permanent(fmt.Errorf("telegram %s failed (%d): %s", method, apiErr.Code, apiErr.Message))
	}
}

func fromAPI(u tgbotapi.Update) Update {
	out := Update{UpdateID: int64(u.UpdateID)}
	if u.Message == nil || u.Message.Chat == nil {
		return out
	}
	out.Message = &Message{
		Chat: Chat{ID: u.Message.Chat.ID},
		Text: u.Message.Text,
	}
	if u.Message.From != nil {
		out.Message.From = &User{FirstName: u.Message.From.FirstName}
	}
	return out
}

// backoffCause strips the retry marker from errors returned outside a retry loop.
func backoffCause(err error) error {
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}

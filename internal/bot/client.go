package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	tele "gopkg.in/telebot.v3"
	"gopkg.in/telebot.v3/middleware"

	"soulmine-bot/internal/metrics"
	"soulmine-bot/internal/notify"
)

// Config contains Telegram client parameters.
type Config struct {
	Token       string
	PollTimeout time.Duration
	Metrics     *metrics.Metrics
}

type messageAPI interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Client wraps the telebot instance and implements notify.Sender.
type Client struct {
	bot     *tele.Bot
	api     messageAPI
	logger  *slog.Logger
	metrics *metrics.Metrics
}

var _ notify.Sender = (*Client)(nil)

// New connects to the Bot API and verifies the token.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram bot token is empty")
	}
	pollTimeout := cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 10 * time.Second
	}

	c := &Client{
		logger:  logger.With("component", "telegram"),
		metrics: cfg.Metrics,
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: pollTimeout},
		OnError: func(err error, ctx tele.Context) {
			c.logger.Error("update processing failed", "sender", senderID(ctx), "error", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	b.Use(middleware.Recover(func(err error, _ tele.Context) {
		c.logger.Error("handler panic recovered", "error", err)
	}))
	c.bot = b
	c.api = b
	return c, nil
}

// Handle installs a handler on the underlying bot.
func (c *Client) Handle(endpoint interface{}, h tele.HandlerFunc, m ...tele.MiddlewareFunc) {
	c.bot.Handle(endpoint, h, m...)
}

// Username returns the bot's public username.
func (c *Client) Username() string {
	if c.bot == nil || c.bot.Me == nil {
		return ""
	}
	return c.bot.Me.Username
}

// Start long-polls until ctx is cancelled.
func (c *Client) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		c.bot.Stop()
	}()
	c.logger.Info("telegram polling started", "username", c.Username())
	c.bot.Start()
	c.logger.Info("telegram polling stopped")
}

// Send delivers a text message to chatID. Unreachable recipients are
// reported as notify.ErrRecipientBlocked.
func (c *Client) Send(ctx context.Context, chatID, text string, mode notify.ParseMode) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}
	opts := &tele.SendOptions{ParseMode: tele.ParseMode(mode)}

	done := make(chan error, 1)
	go func() {
		_, err := c.api.Send(&tele.Chat{ID: id}, text, opts)
		done <- err
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("send to %d: %w", id, ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send to %d: %w", id, classifySendErr(err))
		}
	}
	if c.metrics != nil {
		c.metrics.OutgoingMessages.WithLabelValues("notification").Inc()
	}
	return nil
}

func classifySendErr(err error) error {
	switch {
	case errors.Is(err, tele.ErrBlockedByUser),
		errors.Is(err, tele.ErrUserIsDeactivated),
		errors.Is(err, tele.ErrNotStartedByUser),
		errors.Is(err, tele.ErrChatNotFound):
		return fmt.Errorf("%w: %w", notify.ErrRecipientBlocked, err)
	}
	return err
}

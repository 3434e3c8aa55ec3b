// Package notify delivers notifications to single users and broadcasts to
// every opted-in user.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"soulmine-bot/internal/metrics"
	"soulmine-bot/internal/repo"
	"soulmine-bot/internal/users"
)

// ParseMode selects how the platform renders message text.
type ParseMode string

const (
	ModePlain    ParseMode = ""
	ModeMarkdown ParseMode = "Markdown"
	ModeHTML     ParseMode = "HTML"
)

// ErrRecipientBlocked is returned by a Sender when the recipient blocked the
// bot or deactivated their account.
var ErrRecipientBlocked = errors.New("recipient unreachable")

// DefaultSendTimeout bounds a single delivery when none is configured.
const DefaultSendTimeout = 10 * time.Second

// Sender delivers one text message to one chat.
type Sender interface {
	Send(ctx context.Context, chatID, text string, mode ParseMode) error
}

// RecipientSource provides the broadcast snapshot.
type RecipientSource interface {
	ListNotifiableUsers(ctx context.Context) ([]repo.Recipient, error)
}

// Config wires the notifier dependencies.
type Config struct {
	Sender     Sender
	Recipients RecipientSource
	Metrics    *metrics.Metrics
	// SendTimeout bounds each delivery. Zero means DefaultSendTimeout.
	SendTimeout time.Duration
	// RatePerSecond paces broadcast sends. Zero disables pacing.
	RatePerSecond float64
}

// Notifier sends notifications through a Sender.
type Notifier struct {
	sender     Sender
	recipients RecipientSource
	metrics    *metrics.Metrics
	timeout    time.Duration
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Result tallies one broadcast run.
type Result struct {
	Total        int `json:"total"`
	SuccessCount int `json:"success_count"`
	FailCount    int `json:"fail_count"`
}

// New constructs a Notifier.
func New(cfg Config, logger *slog.Logger) *Notifier {
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	return &Notifier{
		sender:     cfg.Sender,
		recipients: cfg.Recipients,
		metrics:    cfg.Metrics,
		timeout:    timeout,
		limiter:    limiter,
		logger:     logger.With("component", "notify"),
	}
}

// SendOne delivers text to chatID. Failures are logged and reported as false,
// never returned.
func (n *Notifier) SendOne(ctx context.Context, chatID, text string, mode ParseMode) bool {
	sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	err := n.sender.Send(sendCtx, chatID, text, mode)
	if err == nil {
		n.observe("sent")
		return true
	}

	status := "failed"
	switch {
	case errors.Is(err, ErrRecipientBlocked):
		status = "blocked"
	case errors.Is(err, context.DeadlineExceeded):
		status = "timeout"
	}
	n.observe(status)
	n.logger.Warn("notification delivery failed", "chat_id", chatID, "status", status, "error", err)
	return false
}

// Broadcast sends text to every user opted in at the moment the snapshot is
// taken. Recipients are attempted sequentially; failures are counted and the
// run continues. Only a failure to take the snapshot is returned.
func (n *Notifier) Broadcast(ctx context.Context, text string, mode ParseMode) (Result, error) {
	started := time.Now()
	recipients, err := n.recipients.ListNotifiableUsers(ctx)
	if err != nil {
		if n.metrics != nil {
			n.metrics.Errors.WithLabelValues("notify").Inc()
		}
		return Result{}, fmt.Errorf("take broadcast snapshot: %w: %w", users.ErrStoreUnavailable, err)
	}

	n.logger.Info("broadcast started", "recipients", len(recipients))
	res := Result{Total: len(recipients)}
	for _, rc := range recipients {
		if n.limiter != nil {
			if err := n.limiter.Wait(ctx); err != nil {
				n.observe("failed")
				n.logger.Warn("broadcast pacing aborted delivery", "chat_id", rc.ExternalID, "error", err)
				res.FailCount++
				continue
			}
		}
		if n.SendOne(ctx, rc.ExternalID, text, mode) {
			res.SuccessCount++
		} else {
			res.FailCount++
		}
	}

	if n.metrics != nil {
		n.metrics.Broadcasts.Inc()
		n.metrics.BroadcastRecipients.Observe(float64(res.Total))
		n.metrics.BroadcastDuration.Observe(time.Since(started).Seconds())
	}
	n.logger.Info("broadcast finished",
		"total", res.Total,
		"success", res.SuccessCount,
		"failed", res.FailCount,
		"duration", time.Since(started),
	)
	return res, nil
}

func (n *Notifier) observe(status string) {
	if n.metrics != nil {
		n.metrics.Deliveries.WithLabelValues(status).Inc()
	}
}

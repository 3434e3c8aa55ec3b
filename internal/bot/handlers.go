package bot

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"soulmine-bot/internal/notify"
	"soulmine-bot/internal/repo"
	"soulmine-bot/internal/users"
)

const (
	handlerTimeout        = 15 * time.Second
	referralPayloadPrefix = "ref_"
)

// UserService is the user store surface handlers depend on.
type UserService interface {
	Resolve(ctx context.Context, externalID string, hint users.Hint) (*repo.User, bool, error)
	Get(ctx context.Context, externalID string) (*repo.User, error)
	SetNotifications(ctx context.Context, externalID string, enabled bool) (*repo.User, error)
	ApplyReferral(ctx context.Context, u *repo.User, code string) (bool, error)
	Stats(ctx context.Context) (users.Stats, error)
}

// Notifier is the delivery surface handlers depend on.
type Notifier interface {
	SendWelcome(ctx context.Context, chatID string) bool
	Broadcast(ctx context.Context, text string, mode notify.ParseMode) (notify.Result, error)
}

// Handlers renders menus and reacts to button presses.
type Handlers struct {
	users    UserService
	notifier Notifier
	links    Links
	logger   *slog.Logger
}

// NewHandlers constructs the handler set.
func NewHandlers(us UserService, n Notifier, links Links, logger *slog.Logger) *Handlers {
	return &Handlers{
		users:    us,
		notifier: n,
		links:    links,
		logger:   logger.With("component", "handlers"),
	}
}

// Routes binds every Kind to its handler.
func (h *Handlers) Routes(r *Router) {
	r.Command(KindStart, "/start", h.Start)
	r.Command(KindHelp, "/help", h.Help)
	r.Command(KindProfile, "/profile", h.Profile)
	r.Command(KindStats, "/stats", h.Stats)
	r.Command(KindBroadcast, "/broadcast", h.Broadcast)

	r.Button(KindApp, BtnApp, h.AppMenu)
	r.Button(KindSupport, BtnSupport, h.SupportMenu)
	r.Button(KindNews, BtnNews, h.NewsMenu)

	r.Callback(KindLinkWallet, string(KindLinkWallet), h.editStatic(walletText(h.links)))
	r.Callback(KindOpenWebApp, string(KindOpenWebApp), h.editStatic(webAppText(h.links)))
	r.Callback(KindOpenMiniApp, string(KindOpenMiniApp), h.editStatic(miniAppText(h.links)))
	r.Callback(KindMainMenu, string(KindMainMenu), h.MainMenu)
	r.Callback(KindSendEmail, string(KindSendEmail), h.SendEmail)
	r.Callback(KindCallSupport, string(KindCallSupport), h.editStatic(callText(h.links)))
	r.Callback(KindContactSupport, string(KindContactSupport), h.editStatic(contactText(h.links)))
	r.Callback(KindLatestNews, string(KindLatestNews), h.editStatic(textLatestNews))
	r.Callback(KindEnableNotifications, string(KindEnableNotifications), h.toggleNotifications(true))
	r.Callback(KindDisableNotifications, string(KindDisableNotifications), h.toggleNotifications(false))

	r.Fallback(h.Fallback)
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), handlerTimeout)
}

func externalID(c tele.Context) string {
	if s := c.Sender(); s != nil {
		return strconv.FormatInt(s.ID, 10)
	}
	return ""
}

func hintFrom(u *tele.User) users.Hint {
	if u == nil {
		return users.Hint{}
	}
	return users.Hint{
		Username:     u.Username,
		DisplayName:  u.FirstName,
		LastName:     u.LastName,
		LanguageCode: u.LanguageCode,
	}
}

// Start registers the sender, applies a ref_ deep link for new users and
// shows the main keyboard.
func (h *Handlers) Start(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	sender := c.Sender()
	u, created, err := h.users.Resolve(ctx, externalID(c), hintFrom(sender))
	if err != nil {
		return h.replyStoreError(c, "start", err)
	}

	if created {
		if code := referralCode(c); code != "" {
			if _, err := h.users.ApplyReferral(ctx, u, code); err != nil {
				h.logger.Warn("apply referral failed", "user_id", u.ID, "code", code, "error", err)
			}
		}
	}

	firstName := ""
	if sender != nil {
		firstName = sender.FirstName
	}
	if err := c.Send(startText(firstName), MainKeyboard()); err != nil {
		return err
	}
	h.logger.Info("user started the bot", "user_id", u.ID, "external_id", u.ExternalID, "created", created)

	if created {
		h.notifier.SendWelcome(ctx, u.ExternalID)
	}
	return nil
}

func referralCode(c tele.Context) string {
	msg := c.Message()
	if msg == nil {
		return ""
	}
	payload := strings.TrimSpace(msg.Payload)
	if !strings.HasPrefix(payload, referralPayloadPrefix) {
		return ""
	}
	return strings.TrimPrefix(payload, referralPayloadPrefix)
}

func (h *Handlers) Help(c tele.Context) error {
	return c.Send(textHelp, tele.ModeMarkdown)
}

// Profile shows the stored account summary.
func (h *Handlers) Profile(c tele.Context) error {
	u, ok, err := h.registered(c, "profile")
	if !ok {
		return err
	}
	return c.Send(profileText(h.links, u), tele.ModeMarkdown)
}

func (h *Handlers) AppMenu(c tele.Context) error {
	return h.menu(c, "app", textApp, AppKeyboard(h.links))
}

func (h *Handlers) SupportMenu(c tele.Context) error {
	return h.menu(c, "support", textSupport, SupportKeyboard())
}

func (h *Handlers) NewsMenu(c tele.Context) error {
	return h.menu(c, "news", textNews, NewsKeyboard())
}

func (h *Handlers) menu(c tele.Context, op, text string, markup *tele.ReplyMarkup) error {
	if _, ok, err := h.registered(c, op); !ok {
		return err
	}
	return c.Send(text, markup, tele.ModeMarkdown)
}

// registered loads the sender. When ok is false the user has already been
// answered and err is the result of that reply.
func (h *Handlers) registered(c tele.Context, op string) (*repo.User, bool, error) {
	ctx, cancel := requestContext()
	defer cancel()

	u, err := h.users.Get(ctx, externalID(c))
	if err != nil {
		return nil, false, h.replyStoreError(c, op, err)
	}
	return u, true, nil
}

func (h *Handlers) replyStoreError(c tele.Context, op string, err error) error {
	if errors.Is(err, users.ErrNotRegistered) {
		return c.Send(textRegisterFirst)
	}
	h.logger.Error("user lookup failed", "op", op, "sender", senderID(c), "error", err)
	return c.Send(textRetryLater)
}

func (h *Handlers) editStatic(text string) tele.HandlerFunc {
	return func(c tele.Context) error {
		return c.Edit(text, BackKeyboard(), tele.ModeMarkdown)
	}
}

func (h *Handlers) SendEmail(c tele.Context) error {
	return c.Edit(emailText(h.links, senderID(c)), BackKeyboard(), tele.ModeMarkdown)
}

// MainMenu collapses the inline menu and re-sends the reply keyboard.
func (h *Handlers) MainMenu(c tele.Context) error {
	if err := c.Edit(textMainMenu, tele.ModeMarkdown); err != nil {
		h.logger.Warn("edit main menu failed", "sender", senderID(c), "error", err)
	}
	return c.Send(textChooseAction, MainKeyboard())
}

func (h *Handlers) toggleNotifications(enabled bool) tele.HandlerFunc {
	confirm := textNotificationsOff
	if enabled {
		confirm = textNotificationsOn
	}
	return func(c tele.Context) error {
		ctx, cancel := requestContext()
		defer cancel()

		if _, err := h.users.SetNotifications(ctx, externalID(c), enabled); err != nil {
			if !errors.Is(err, users.ErrNotRegistered) {
				h.logger.Error("toggle notifications failed", "sender", senderID(c), "enabled", enabled, "error", err)
			}
			return c.Edit(textTryAgain, BackKeyboard())
		}
		return c.Edit(confirm, BackKeyboard(), tele.ModeMarkdown)
	}
}

func (h *Handlers) Stats(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	st, err := h.users.Stats(ctx)
	if err != nil {
		h.logger.Error("load stats failed", "error", err)
		return c.Send(textRetryLater)
	}
	return c.Send(statsText(st), tele.ModeMarkdown)
}

// Broadcast sends the command payload to every opted-in user and reports
// the tally back to the admin.
func (h *Handlers) Broadcast(c tele.Context) error {
	text := ""
	if msg := c.Message(); msg != nil {
		text = strings.TrimSpace(msg.Payload)
	}
	if text == "" {
		return c.Send(textBroadcastHelp)
	}

	res, err := h.notifier.Broadcast(context.Background(), text, notify.ModePlain)
	if err != nil {
		h.logger.Error("broadcast failed", "sender", senderID(c), "error", err)
		return c.Send(textRetryLater)
	}
	h.logger.Info("admin broadcast", "sender", senderID(c), "total", res.Total, "success", res.SuccessCount, "failed", res.FailCount)
	return c.Send(broadcastReportText(res.Total, res.SuccessCount, res.FailCount))
}

// Fallback re-shows the main keyboard for unrouted text.
func (h *Handlers) Fallback(c tele.Context) error {
	return c.Send(textChooseAction, MainKeyboard())
}

package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tele "gopkg.in/telebot.v3"

	"soulmine-bot/internal/metrics"
)

// Registrar is the subset of *tele.Bot used to install handlers.
type Registrar interface {
	Handle(endpoint interface{}, h tele.HandlerFunc, m ...tele.MiddlewareFunc)
}

// Route binds a kind to its telebot endpoint and handler.
type Route struct {
	Kind     Kind
	Endpoint string
	Handler  tele.HandlerFunc
}

// Router maps every Kind to exactly one handler. Validate must pass before
// Register installs anything.
type Router struct {
	routes   map[Kind]Route
	order    []Kind
	fallback tele.HandlerFunc
	isAdmin  func(int64) bool
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewRouter builds an empty Router. isAdmin gates admin-only kinds.
func NewRouter(isAdmin func(int64) bool, m *metrics.Metrics, logger *slog.Logger) *Router {
	if isAdmin == nil {
		isAdmin = func(int64) bool { return false }
	}
	return &Router{
		routes:  make(map[Kind]Route),
		isAdmin: isAdmin,
		metrics: m,
		logger:  logger.With("component", "router"),
	}
}

// Command routes a slash command such as "/start".
func (r *Router) Command(kind Kind, command string, h tele.HandlerFunc) {
	r.add(kind, command, h)
}

// Button routes a reply keyboard button by its exact text.
func (r *Router) Button(kind Kind, text string, h tele.HandlerFunc) {
	r.add(kind, text, h)
}

// Callback routes an inline button by its callback unique.
func (r *Router) Callback(kind Kind, unique string, h tele.HandlerFunc) {
	endpoint := ""
	if unique != "" {
		endpoint = "\f" + unique
	}
	r.add(kind, endpoint, h)
}

// Fallback handles text that matches no route.
func (r *Router) Fallback(h tele.HandlerFunc) {
	r.fallback = h
}

func (r *Router) add(kind Kind, endpoint string, h tele.HandlerFunc) {
	if _, ok := r.routes[kind]; !ok {
		r.order = append(r.order, kind)
	}
	r.routes[kind] = Route{Kind: kind, Endpoint: endpoint, Handler: h}
}

// Validate checks that every known kind has an endpoint and a handler, that
// no unknown kinds are routed and that endpoints are unique.
func (r *Router) Validate() error {
	var errs []error
	known := make(map[Kind]bool)
	for _, k := range AllKinds() {
		known[k] = true
		route, ok := r.routes[k]
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("kind %q has no route", k))
		case route.Handler == nil:
			errs = append(errs, fmt.Errorf("kind %q has no handler", k))
		case strings.TrimSpace(route.Endpoint) == "" || route.Endpoint == "\f":
			errs = append(errs, fmt.Errorf("kind %q has no endpoint", k))
		}
	}

	owners := make(map[string]Kind)
	for _, k := range r.order {
		if !known[k] {
			errs = append(errs, fmt.Errorf("unknown kind %q", k))
			continue
		}
		ep := r.routes[k].Endpoint
		if ep == "" {
			continue
		}
		if prev, dup := owners[ep]; dup {
			errs = append(errs, fmt.Errorf("endpoint %q shared by %q and %q", ep, prev, k))
			continue
		}
		owners[ep] = k
	}

	if r.fallback == nil {
		errs = append(errs, errors.New("fallback handler is not set"))
	}
	return errors.Join(errs...)
}

// Register validates the table and installs it on reg.
func (r *Router) Register(reg Registrar) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid routing table: %w", err)
	}
	for _, k := range r.order {
		route := r.routes[k]
		reg.Handle(route.Endpoint, r.Dispatch(route))
	}
	reg.Handle(tele.OnText, r.dispatchFallback)
	reg.Handle(tele.OnCallback, r.unknownCallback)
	r.logger.Info("routes registered", "count", len(r.order))
	return nil
}

// Dispatch wraps a route handler with admin gating, callback
// acknowledgement and metrics. Handler errors are tagged with the kind and
// left to the bot's OnError hook to log.
func (r *Router) Dispatch(route Route) tele.HandlerFunc {
	return func(c tele.Context) error {
		if r.metrics != nil {
			r.metrics.IncomingUpdates.WithLabelValues(string(route.Kind)).Inc()
		}
		if route.Kind.IsCallback() {
			if err := c.Respond(); err != nil {
				r.logger.Warn("respond to callback failed", "kind", route.Kind, "error", err)
			}
		}
		if route.Kind.AdminOnly() {
			sender := c.Sender()
			if sender == nil || !r.isAdmin(sender.ID) {
				r.logger.Warn("admin command rejected", "kind", route.Kind, "sender", senderID(c))
				return c.Send(textAdminOnly)
			}
		}
		if err := route.Handler(c); err != nil {
			r.countError()
			return fmt.Errorf("%s: %w", route.Kind, err)
		}
		return nil
	}
}

func (r *Router) dispatchFallback(c tele.Context) error {
	if r.metrics != nil {
		r.metrics.IncomingUpdates.WithLabelValues("fallback").Inc()
	}
	return r.fallback(c)
}

func (r *Router) unknownCallback(c tele.Context) error {
	if r.metrics != nil {
		r.metrics.IncomingUpdates.WithLabelValues("unknown_callback").Inc()
	}
	data := ""
	if cb := c.Callback(); cb != nil {
		data = cb.Data
	}
	r.logger.Warn("unrouted callback", "data", strings.TrimPrefix(data, "\f"), "sender", senderID(c))
	return c.Respond()
}

func (r *Router) countError() {
	if r.metrics != nil {
		r.metrics.Errors.WithLabelValues("bot").Inc()
	}
}

func senderID(c tele.Context) int64 {
	if c == nil {
		return 0
	}
	if s := c.Sender(); s != nil {
		return s.ID
	}
	return 0
}

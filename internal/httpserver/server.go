package httpserver

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"soulmine-bot/internal/metrics"
	"soulmine-bot/internal/notify"
	"soulmine-bot/internal/repo"
	"soulmine-bot/internal/users"
)

// Notifier is the delivery surface exposed to admins.
type Notifier interface {
	SendOne(ctx context.Context, chatID, text string, mode notify.ParseMode) bool
	SendWelcome(ctx context.Context, chatID string) bool
	SendMatch(ctx context.Context, chatID string) bool
	SendReward(ctx context.Context, chatID string, amount float64, kind string) bool
	Broadcast(ctx context.Context, text string, mode notify.ParseMode) (notify.Result, error)
}

// UserSource reports user statistics and single user records.
type UserSource interface {
	Stats(ctx context.Context) (users.Stats, error)
	GetByInternalID(ctx context.Context, id string) (*repo.User, error)
}

// Pinger is implemented by the repository and the Redis client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies exposes core dependencies to handlers that need them.
type Dependencies struct {
	Notifier   Notifier
	Users      UserSource
	Repository Pinger
	Redis      Pinger
}

// Server wraps an http.Server with predefined routes.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	metrics    *metrics.Metrics
	deps       Dependencies
	adminToken string
	basePath   string
}

// New creates a new HTTP server listening on addr. Admin routes are only
// mounted when adminToken is set.
func New(addr string, logger *slog.Logger, metricRegistry *metrics.Metrics, deps Dependencies, adminToken, basePath string) *Server {
	server := &Server{
		logger:     logger.With("component", "http"),
		metrics:    metricRegistry,
		deps:       deps,
		adminToken: strings.TrimSpace(adminToken),
		basePath:   normaliseBasePath(basePath),
	}

	server.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mountWithBasePath(server.basePath, server.routes()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if server.basePath != "" {
		server.logger.Info("http server configured with base path", "base_path", server.basePath)
	}
	if server.adminToken == "" {
		server.logger.Warn("admin api disabled, ADMIN_API_TOKEN is empty")
	}

	return server
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthHandler)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.Handle("/metrics", promhttp.Handler())

	if s.adminToken != "" {
		mux.Handle("/admin/broadcast", s.requireAdmin(http.HandlerFunc(s.handleBroadcast)))
		mux.Handle("/admin/notify", s.requireAdmin(http.HandlerFunc(s.handleNotify)))
		mux.Handle("/admin/stats", s.requireAdmin(http.HandlerFunc(s.handleStats)))
		mux.Handle("/admin/users/{id}", s.requireAdmin(http.HandlerFunc(s.handleUser)))
	}
	return mux
}

// Handler returns the routed handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for incoming HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
			s.logger.Warn("unauthorised admin request", "path", r.URL.Path, "remote", r.RemoteAddr)
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type broadcastRequest struct {
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	mode, ok := parseMode(req.ParseMode)
	if !ok {
		http.Error(w, "unsupported parse_mode", http.StatusBadRequest)
		return
	}

	// The run must finish even if the caller disconnects.
	res, err := s.deps.Notifier.Broadcast(context.WithoutCancel(r.Context()), req.Text, mode)
	if err != nil {
		s.countError()
		s.logger.Error("admin broadcast failed", "error", err)
		http.Error(w, "broadcast failed", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, res)
}

type notifyRequest struct {
	ChatID     string  `json:"chat_id"`
	Template   string  `json:"template"`
	Text       string  `json:"text"`
	ParseMode  string  `json:"parse_mode"`
	Amount     float64 `json:"amount"`
	RewardType string  `json:"reward_type"`
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.ChatID) == "" {
		http.Error(w, "chat_id is required", http.StatusBadRequest)
		return
	}
	mode, ok := parseMode(req.ParseMode)
	if !ok {
		http.Error(w, "unsupported parse_mode", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	var delivered bool
	switch req.Template {
	case "":
		if strings.TrimSpace(req.Text) == "" {
			http.Error(w, "text or template is required", http.StatusBadRequest)
			return
		}
		delivered = s.deps.Notifier.SendOne(ctx, req.ChatID, req.Text, mode)
	case "welcome":
		delivered = s.deps.Notifier.SendWelcome(ctx, req.ChatID)
	case "match":
		delivered = s.deps.Notifier.SendMatch(ctx, req.ChatID)
	case "reward":
		if req.Amount <= 0 || req.RewardType == "" {
			http.Error(w, "amount and reward_type are required", http.StatusBadRequest)
			return
		}
		delivered = s.deps.Notifier.SendReward(ctx, req.ChatID, req.Amount, req.RewardType)
	default:
		http.Error(w, "unknown template", http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"chat_id": req.ChatID, "delivered": delivered})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	st, err := s.deps.Users.Stats(r.Context())
	if err != nil {
		s.countError()
		s.logger.Error("load stats failed", "error", err)
		http.Error(w, "stats unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, st)
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	u, err := s.deps.Users.GetByInternalID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, users.ErrNotRegistered) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		s.countError()
		s.logger.Error("load user failed", "user_id", r.PathValue("id"), "error", err)
		http.Error(w, "user unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, u)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := map[string]string{"database": "ok", "redis": "disabled"}
	code := http.StatusOK
	if s.deps.Repository != nil {
		if err := s.deps.Repository.Ping(ctx); err != nil {
			s.logger.Warn("database not ready", "error", err)
			status["database"] = "unavailable"
			code = http.StatusServiceUnavailable
		}
	}
	if s.deps.Redis != nil {
		status["redis"] = "ok"
		if err := s.deps.Redis.Ping(ctx); err != nil {
			// The cache is optional, so the instance stays ready.
			s.logger.Warn("redis not ready", "error", err)
			status["redis"] = "unavailable"
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}

func (s *Server) countError() {
	if s.metrics != nil {
		s.metrics.Errors.WithLabelValues("http").Inc()
	}
}

func parseMode(s string) (notify.ParseMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return notify.ModePlain, true
	case "markdown":
		return notify.ModeMarkdown, true
	case "html":
		return notify.ModeHTML, true
	}
	return "", false
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "failed to encode json", http.StatusInternalServerError)
	}
}

func mountWithBasePath(basePath string, handler http.Handler) http.Handler {
	if basePath == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, basePath) {
			http.NotFound(w, r)
			return
		}
		if len(r.URL.Path) > len(basePath) && r.URL.Path[len(basePath)] != '/' {
			http.NotFound(w, r)
			return
		}
		trimmed := strings.TrimPrefix(r.URL.Path, basePath)
		if trimmed == "" {
			trimmed = "/"
		}
		r.URL.Path = trimmed
		r.URL.RawPath = ""
		handler.ServeHTTP(w, r)
	})
}

func normaliseBasePath(base string) string {
	base = strings.TrimSpace(base)
	if base == "" || base == "/" {
		return ""
	}
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return strings.TrimSuffix(base, "/")
}

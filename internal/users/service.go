// Package users resolves platform identities into stored users.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"soulmine-bot/internal/cache"
	"soulmine-bot/internal/metrics"
	"soulmine-bot/internal/repo"
)

// Resolution outcomes reported to metrics.
const (
	outcomeCreated  = "created"
	outcomeExisting = "existing"
	outcomeRaced    = "raced"
)

// Hint is the profile snapshot carried by an inbound update. It only seeds
// newly created users.
type Hint struct {
	Username     string
	DisplayName  string
	LastName     string
	LanguageCode string
}

func (h Hint) profile(externalID string) repo.UserProfile {
	return repo.UserProfile{
		ExternalID:   externalID,
		Username:     optional(h.Username),
		DisplayName:  optional(h.DisplayName),
		LastName:     optional(h.LastName),
		LanguageCode: optional(h.LanguageCode),
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Config wires the service dependencies.
type Config struct {
	Repo    repo.Repository
	Cache   *cache.UserCache
	Metrics *metrics.Metrics
}

// Service owns every read and write of user records.
type Service struct {
	repo    repo.Repository
	cache   *cache.UserCache
	metrics *metrics.Metrics
	logger  *slog.Logger

	now    func() time.Time
	suffix func() string
}

// New constructs a Service.
func New(cfg Config, logger *slog.Logger) *Service {
	return &Service{
		repo:    cfg.Repo,
		cache:   cfg.Cache,
		metrics: cfg.Metrics,
		logger:  logger.With("component", "users"),
		now:     func() time.Time { return time.Now().UTC() },
		suffix:  randomReferralSuffix,
	}
}

// Resolve finds or creates the user for externalID, stamps last_interaction
// and makes sure a referral code is assigned. A new user is written with its
// code in one statement; on failure no row is left and a later call still
// reports created. created reports whether this call inserted the row.
func (s *Service) Resolve(ctx context.Context, externalID string, hint Hint) (*repo.User, bool, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, false, ErrInvalidExternalID
	}

	u, outcome, err := s.findOrCreate(ctx, externalID, hint)
	if err != nil {
		s.countError()
		return nil, false, err
	}
	if !u.HasReferralCode() {
		u, err = s.ensureReferralCode(ctx, u)
		if err != nil {
			s.countError()
			return nil, false, err
		}
	}

	s.cache.Set(ctx, u)
	if s.metrics != nil {
		s.metrics.UsersResolved.WithLabelValues(outcome).Inc()
	}
	return u, outcome == outcomeCreated, nil
}

func (s *Service) findOrCreate(ctx context.Context, externalID string, hint Hint) (*repo.User, string, error) {
	u, err := s.repo.GetUserByExternalID(ctx, externalID)
	switch {
	case err == nil:
		u, err = s.touch(ctx, u.ID)
		return u, outcomeExisting, err
	case !errors.Is(err, repo.ErrNotFound):
		return nil, "", storeErr("lookup user", err)
	}

	u, err = s.create(ctx, externalID, hint)
	if err == nil {
		return u, outcomeCreated, nil
	}
	if !errors.Is(err, repo.ErrDuplicateUser) {
		return nil, "", err
	}

	// Another update created the row between lookup and insert.
	s.logger.Info("concurrent first contact, re-reading user", "external_id", externalID)
	u, err = s.repo.GetUserByExternalID(ctx, externalID)
	if err != nil {
		return nil, "", storeErr("re-read user", err)
	}
	u, err = s.touch(ctx, u.ID)
	return u, outcomeRaced, err
}

// create inserts the user together with its referral code and first
// interaction, so a failed attempt leaves no row behind. A code collision
// draws a new suffix.
func (s *Service) create(ctx context.Context, externalID string, hint Hint) (*repo.User, error) {
	profile := hint.profile(externalID)
	at := s.now()
	profile.InteractedAt = &at
	for attempt := 1; attempt <= maxReferralAttempts; attempt++ {
		code := ReferralCode(externalID, s.suffix())
		profile.ReferralCode = &code
		u, err := s.repo.CreateUser(ctx, profile)
		switch {
		case err == nil:
			s.logger.Info("user created", "user_id", u.ID, "external_id", externalID)
			return u, nil
		case errors.Is(err, repo.ErrDuplicateUser):
			return nil, err
		case !errors.Is(err, repo.ErrDuplicateReferralCode):
			return nil, storeErr("create user", err)
		}
		s.logger.Warn("referral code collision", "external_id", externalID, "code", code, "attempt", attempt)
	}
	return nil, storeErr("create user", fmt.Errorf("%d referral code attempts collided", maxReferralAttempts))
}

func (s *Service) touch(ctx context.Context, id string) (*repo.User, error) {
	u, err := s.repo.TouchUser(ctx, id, s.now())
	if err != nil {
		return nil, storeErr("touch user", err)
	}
	return u, nil
}

// ensureReferralCode backfills rows stored without a code.
func (s *Service) ensureReferralCode(ctx context.Context, u *repo.User) (*repo.User, error) {
	for attempt := 1; attempt <= maxReferralAttempts; attempt++ {
		code := ReferralCode(u.ExternalID, s.suffix())
		updated, err := s.repo.AssignReferralCode(ctx, u.ID, code)
		if err == nil {
			if !updated.HasReferralCode() {
				return nil, storeErr("assign referral code", fmt.Errorf("user %s has no code after update", u.ID))
			}
			return updated, nil
		}
		if !errors.Is(err, repo.ErrDuplicateReferralCode) {
			return nil, storeErr("assign referral code", err)
		}
		s.logger.Warn("referral code collision", "user_id", u.ID, "code", code, "attempt", attempt)
	}
	return nil, storeErr("assign referral code", fmt.Errorf("%d attempts collided", maxReferralAttempts))
}

// Get returns the user by platform id without creating it.
func (s *Service) Get(ctx context.Context, externalID string) (*repo.User, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, ErrInvalidExternalID
	}
	u, err := s.repo.GetUserByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotRegistered
		}
		s.countError()
		return nil, storeErr("get user", err)
	}
	return u, nil
}

// GetByInternalID reads through the cache.
func (s *Service) GetByInternalID(ctx context.Context, id string) (*repo.User, error) {
	if u := s.cache.Get(ctx, id); u != nil {
		return u, nil
	}
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotRegistered
		}
		s.countError()
		return nil, storeErr("get user by id", err)
	}
	s.cache.Set(ctx, u)
	return u, nil
}

// SetNotifications toggles the opt-in flag used by broadcasts.
func (s *Service) SetNotifications(ctx context.Context, externalID string, enabled bool) (*repo.User, error) {
	u, err := s.repo.SetNotificationsEnabled(ctx, externalID, enabled)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotRegistered
		}
		s.countError()
		return nil, storeErr("set notifications", err)
	}
	s.cache.Invalidate(ctx, u.ID)
	s.logger.Info("notifications toggled", "user_id", u.ID, "enabled", enabled)
	return u, nil
}

// ApplyReferral links u to the owner of code. It reports whether a link was
// recorded; unknown codes and self-referrals are ignored.
func (s *Service) ApplyReferral(ctx context.Context, u *repo.User, code string) (bool, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if u == nil || code == "" {
		return false, nil
	}
	referrer, err := s.repo.GetUserByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.logger.Info("unknown referral code", "user_id", u.ID, "code", code)
			return false, nil
		}
		return false, storeErr("lookup referral code", err)
	}
	if referrer.ID == u.ID {
		return false, nil
	}
	ok, err := s.repo.SetReferredBy(ctx, u.ID, referrer.ID)
	if err != nil {
		return false, storeErr("set referred by", err)
	}
	if ok {
		s.cache.Invalidate(ctx, u.ID)
		s.logger.Info("referral recorded", "user_id", u.ID, "referrer_id", referrer.ID)
	}
	return ok, nil
}

// Stats summarises the user base.
type Stats struct {
	TotalUsers   int         `json:"total_users"`
	ActiveUsers  int         `json:"active_users"`
	UsersByLevel map[int]int `json:"users_by_level"`
}

// Stats counts users overall, active users and users per loyalty level 1..5.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	total, err := s.repo.CountUsers(ctx)
	if err != nil {
		return Stats{}, storeErr("count users", err)
	}
	active, err := s.repo.CountActiveUsers(ctx)
	if err != nil {
		return Stats{}, storeErr("count active users", err)
	}
	byLevel, err := s.repo.CountUsersByLevel(ctx)
	if err != nil {
		return Stats{}, storeErr("count users by level", err)
	}
	levels := make(map[int]int, 5)
	for level := 1; level <= 5; level++ {
		levels[level] = byLevel[level]
	}
	return Stats{TotalUsers: total, ActiveUsers: active, UsersByLevel: levels}, nil
}

func (s *Service) countError() {
	if s.metrics != nil {
		s.metrics.Errors.WithLabelValues("users").Inc()
	}
}

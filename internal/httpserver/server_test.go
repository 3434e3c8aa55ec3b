package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"soulmine-bot/internal/metrics"
	"soulmine-bot/internal/notify"
	"soulmine-bot/internal/repo"
	"soulmine-bot/internal/users"
)

type fakeNotifier struct {
	sent      []string
	broadcast []string
	result    notify.Result
	err       error
}

func (f *fakeNotifier) SendOne(_ context.Context, chatID, text string, _ notify.ParseMode) bool {
	f.sent = append(f.sent, chatID+":"+text)
	return chatID != "blocked"
}

func (f *fakeNotifier) SendWelcome(ctx context.Context, chatID string) bool {
	return f.SendOne(ctx, chatID, notify.WelcomeText(), notify.ModePlain)
}

func (f *fakeNotifier) SendMatch(ctx context.Context, chatID string) bool {
	return f.SendOne(ctx, chatID, notify.MatchText(), notify.ModePlain)
}

func (f *fakeNotifier) SendReward(ctx context.Context, chatID string, amount float64, kind string) bool {
	return f.SendOne(ctx, chatID, notify.RewardText(amount, kind), notify.ModePlain)
}

func (f *fakeNotifier) Broadcast(_ context.Context, text string, _ notify.ParseMode) (notify.Result, error) {
	f.broadcast = append(f.broadcast, text)
	return f.result, f.err
}

type fakeUsers struct {
	stats users.Stats
	err   error
	byID  map[string]*repo.User
}

func (f fakeUsers) Stats(context.Context) (users.Stats, error) { return f.stats, f.err }

func (f fakeUsers) GetByInternalID(_ context.Context, id string) (*repo.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, users.ErrNotRegistered
	}
	return u, nil
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func newTestServer(n *fakeNotifier, basePath string) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	us := fakeUsers{
		stats: users.Stats{TotalUsers: 4, ActiveUsers: 3, UsersByLevel: map[int]int{1: 4}},
		byID:  map[string]*repo.User{"u-1": {ID: "u-1", ExternalID: "4242", LoyaltyLevel: 2}},
	}
	return New(":0", logger, metrics.New("test"), Dependencies{
		Notifier:   n,
		Users:      us,
		Repository: fakePinger{},
		Redis:      fakePinger{err: errors.New("redis down")},
	}, "secret", basePath)
}

func do(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&fakeNotifier{}, "")
	rec := do(t, srv.Handler(), http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
}

func TestReadyzToleratesRedisOutage(t *testing.T) {
	srv := newTestServer(&fakeNotifier{}, "")
	rec := do(t, srv.Handler(), http.MethodGet, "/readyz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected ready despite redis outage, got %d", rec.Code)
	}
	var status map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status["redis"] != "unavailable" || status["database"] != "ok" {
		t.Fatalf("unexpected status %v", status)
	}
}

func TestAdminRequiresToken(t *testing.T) {
	srv := newTestServer(&fakeNotifier{}, "")
	for _, token := range []string{"", "wrong"} {
		rec := do(t, srv.Handler(), http.MethodGet, "/admin/stats", token, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("token %q: expected 401, got %d", token, rec.Code)
		}
	}
}

func TestAdminDisabledWithoutToken(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(":0", logger, nil, Dependencies{}, "", "")
	rec := do(t, srv.Handler(), http.MethodGet, "/admin/stats", "anything", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when admin api is disabled, got %d", rec.Code)
	}
}

func TestAdminBroadcast(t *testing.T) {
	n := &fakeNotifier{result: notify.Result{Total: 5, SuccessCount: 4, FailCount: 1}}
	srv := newTestServer(n, "")

	rec := do(t, srv.Handler(), http.MethodPost, "/admin/broadcast", "secret", `{"text":"Новый сезон","parse_mode":"markdown"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	var res notify.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res != n.result || len(n.broadcast) != 1 {
		t.Fatalf("unexpected result %+v broadcasts=%v", res, n.broadcast)
	}

	if rec := do(t, srv.Handler(), http.MethodPost, "/admin/broadcast", "secret", `{"text":" "}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty text, got %d", rec.Code)
	}
	if rec := do(t, srv.Handler(), http.MethodPost, "/admin/broadcast", "secret", `{"text":"x","parse_mode":"rtf"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad parse mode, got %d", rec.Code)
	}

	n.err = users.ErrStoreUnavailable
	if rec := do(t, srv.Handler(), http.MethodPost, "/admin/broadcast", "secret", `{"text":"x"}`); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 on snapshot failure, got %d", rec.Code)
	}
}

func TestAdminNotifyTemplates(t *testing.T) {
	n := &fakeNotifier{}
	srv := newTestServer(n, "/bot")

	rec := do(t, srv.Handler(), http.MethodPost, "/bot/admin/notify", "secret", `{"chat_id":"42","template":"reward","amount":10,"reward_type":"$LOVE"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"delivered":true`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	if len(n.sent) != 1 || !strings.Contains(n.sent[0], "10 $LOVE") {
		t.Fatalf("unexpected sends %v", n.sent)
	}

	rec = do(t, srv.Handler(), http.MethodPost, "/bot/admin/notify", "secret", `{"chat_id":"43","template":"match"}`)
	if rec.Code != http.StatusOK || len(n.sent) != 2 || n.sent[1] != "43:"+notify.MatchText() {
		t.Fatalf("unexpected match send %d %v", rec.Code, n.sent)
	}
	if rec := do(t, srv.Handler(), http.MethodPost, "/bot/admin/notify", "secret", `{"chat_id":"44","template":"reward"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for reward without amount, got %d", rec.Code)
	}
	if rec := do(t, srv.Handler(), http.MethodPost, "/bot/admin/notify", "secret", `{"chat_id":"44"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without text or template, got %d", rec.Code)
	}

	rec = do(t, srv.Handler(), http.MethodPost, "/bot/admin/notify", "secret", `{"chat_id":"blocked","text":"hi"}`)
	if !strings.Contains(rec.Body.String(), `"delivered":false`) {
		t.Fatalf("expected failed delivery report, got %s", rec.Body.String())
	}

	if rec := do(t, srv.Handler(), http.MethodPost, "/bot/admin/notify", "secret", `{"chat_id":"1","template":"poem"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown template, got %d", rec.Code)
	}
	if rec := do(t, srv.Handler(), http.MethodPost, "/admin/notify", "secret", `{}`); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 outside base path, got %d", rec.Code)
	}
}

func TestAdminStats(t *testing.T) {
	srv := newTestServer(&fakeNotifier{}, "")
	rec := do(t, srv.Handler(), http.MethodGet, "/admin/stats", "secret", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var st users.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.TotalUsers != 4 || st.UsersByLevel[1] != 4 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestAdminUserLookup(t *testing.T) {
	srv := newTestServer(&fakeNotifier{}, "")

	rec := do(t, srv.Handler(), http.MethodGet, "/admin/users/u-1", "secret", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	var u repo.User
	if err := json.Unmarshal(rec.Body.Bytes(), &u); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if u.ExternalID != "4242" || u.LoyaltyLevel != 2 {
		t.Fatalf("unexpected user %+v", u)
	}

	if rec := do(t, srv.Handler(), http.MethodGet, "/admin/users/missing", "secret", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", rec.Code)
	}
	if rec := do(t, srv.Handler(), http.MethodGet, "/admin/users/u-1", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

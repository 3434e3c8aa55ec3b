package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"soulmine-bot/internal/logging"
	"soulmine-bot/internal/metrics"
	"soulmine-bot/internal/repo"
	"soulmine-bot/internal/users"
	"soulmine-bot/migrations"
)

type fakeSender struct {
	mu       sync.Mutex
	failures map[string]error
	attempts []string
	onSend   func(chatID string)
}

func (f *fakeSender) Send(ctx context.Context, chatID, text string, mode ParseMode) error {
	f.mu.Lock()
	f.attempts = append(f.attempts, chatID)
	hook := f.onSend
	err := f.failures[chatID]
	f.mu.Unlock()
	if hook != nil {
		hook(chatID)
	}
	return err
}

type staticRecipients struct {
	list []repo.Recipient
	err  error
}

func (s staticRecipients) ListNotifiableUsers(context.Context) ([]repo.Recipient, error) {
	return s.list, s.err
}

func recipients(n int) staticRecipients {
	var list []repo.Recipient
	for i := 1; i <= n; i++ {
		list = append(list, repo.Recipient{UserID: fmt.Sprintf("u%d", i), ExternalID: fmt.Sprintf("%d", i)})
	}
	return staticRecipients{list: list}
}

func discardLogger() *slog.Logger {
	return logging.Discard()
}

func newNotifier(sender Sender, source RecipientSource) *Notifier {
	return New(Config{
		Sender:     sender,
		Recipients: source,
		Metrics:    metrics.New("test"),
	}, discardLogger())
}

func TestBroadcastAllSucceed(t *testing.T) {
	sender := &fakeSender{}
	n := newNotifier(sender, recipients(5))

	res, err := n.Broadcast(context.Background(), "hello", ModePlain)
	if err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if res != (Result{Total: 5, SuccessCount: 5, FailCount: 0}) {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(sender.attempts) != 5 {
		t.Fatalf("expected 5 attempts, got %d", len(sender.attempts))
	}
}

func TestBroadcastCountsFailuresWithoutAborting(t *testing.T) {
	sender := &fakeSender{failures: map[string]error{
		"1": ErrRecipientBlocked,
		"3": errors.New("network down"),
	}}
	n := newNotifier(sender, recipients(6))

	res, err := n.Broadcast(context.Background(), "hello", ModeMarkdown)
	if err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if res != (Result{Total: 6, SuccessCount: 4, FailCount: 2}) {
		t.Fatalf("unexpected result %+v", res)
	}
	if strings.Join(sender.attempts, ",") != "1,2,3,4,5,6" {
		t.Fatalf("expected every recipient attempted in order, got %v", sender.attempts)
	}
}

func TestBroadcastSnapshotFailure(t *testing.T) {
	sender := &fakeSender{}
	n := newNotifier(sender, staticRecipients{err: errors.New("db gone")})

	_, err := n.Broadcast(context.Background(), "hello", ModePlain)
	if !errors.Is(err, users.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if len(sender.attempts) != 0 {
		t.Fatalf("nothing should be sent, got %v", sender.attempts)
	}
}

func TestBroadcastCancelledContextKeepsTally(t *testing.T) {
	sender := &fakeSender{}
	n := New(Config{Sender: sender, Recipients: recipients(3), RatePerSecond: 1}, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := n.Broadcast(ctx, "hello", ModePlain)
	if err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if res.Total != 3 || res.SuccessCount+res.FailCount != res.Total {
		t.Fatalf("tally does not add up: %+v", res)
	}
	if res.FailCount != 3 {
		t.Fatalf("expected every paced send to fail, got %+v", res)
	}
}

func TestSendOneBlockedRecipient(t *testing.T) {
	sender := &fakeSender{failures: map[string]error{"42": fmt.Errorf("telegram: %w", ErrRecipientBlocked)}}
	n := newNotifier(sender, recipients(0))

	if n.SendOne(context.Background(), "42", "hi", ModePlain) {
		t.Fatal("expected delivery to a blocked recipient to report false")
	}
	if !n.SendOne(context.Background(), "43", "hi", ModePlain) {
		t.Fatal("expected delivery to succeed")
	}
}

type slowSender struct{}

func (slowSender) Send(ctx context.Context, _, _ string, _ ParseMode) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestSendOneTimeoutIsFailure(t *testing.T) {
	n := New(Config{Sender: slowSender{}, Recipients: recipients(2), SendTimeout: 10 * time.Millisecond}, discardLogger())
	res, err := n.Broadcast(context.Background(), "hi", ModePlain)
	if err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if res != (Result{Total: 2, SuccessCount: 0, FailCount: 2}) {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestBroadcastUsesSnapshot(t *testing.T) {
	ctx := context.Background()
	store, err := repo.NewSQLite(ctx, filepath.Join(t.TempDir(), "notify.db"), discardLogger())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.RunMigrations(ctx, migrations.Files); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, id := range []string{"1", "2", "3"} {
		if _, err := store.CreateUser(ctx, repo.UserProfile{ExternalID: id}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	sender := &fakeSender{}
	toggled := false
	sender.onSend = func(chatID string) {
		if toggled {
			return
		}
		toggled = true
		if _, err := store.SetNotificationsEnabled(ctx, "3", false); err != nil {
			t.Errorf("toggle: %v", err)
		}
	}
	n := newNotifier(sender, store)

	first, err := n.Broadcast(ctx, "one", ModePlain)
	if err != nil {
		t.Fatalf("first broadcast: %v", err)
	}
	if first.Total != 3 || first.SuccessCount != 3 {
		t.Fatalf("in-flight broadcast must keep its snapshot, got %+v", first)
	}

	second, err := n.Broadcast(ctx, "two", ModePlain)
	if err != nil {
		t.Fatalf("second broadcast: %v", err)
	}
	if second.Total != 2 {
		t.Fatalf("next broadcast must exclude the opted-out user, got %+v", second)
	}
}

func TestTemplates(t *testing.T) {
	if !strings.Contains(RewardText(10, "$LOVE"), "Вы получили 10 $LOVE!") {
		t.Fatalf("unexpected reward text %q", RewardText(10, "$LOVE"))
	}
	if !strings.Contains(RewardText(0.5, "TON"), "0.5 TON") {
		t.Fatalf("unexpected reward text %q", RewardText(0.5, "TON"))
	}
	sender := &fakeSender{}
	n := newNotifier(sender, recipients(0))
	if !n.SendWelcome(context.Background(), "7") || !n.SendMatch(context.Background(), "7") {
		t.Fatal("expected template sends to succeed")
	}
	if !n.SendReward(context.Background(), "7", 1, "TON") {
		t.Fatal("expected reward send to succeed")
	}
}

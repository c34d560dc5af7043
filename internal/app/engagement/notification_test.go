package engagement_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tutu-network/tally/internal/app/engagement"
	"github.com/tutu-network/tally/internal/domain"
)

func notifyEngine(t *testing.T, start time.Time, policy domain.NotificationPolicy) (*engagement.Engine, *fakeClock) {
	t.Helper()
	clk := &fakeClock{now: start}
	return engagement.New(testDB(t), engagement.Options{Clock: clk.Now, Policy: policy}), clk
}

func TestNotifications_QuietHours(t *testing.T) {
	policy := domain.NotificationPolicy{MaxPerDay: 10, QuietStart: "22:00", QuietEnd: "08:00"}
	eng, clk := notifyEngine(t, at(2025, 1, 1, 12), policy)
	ctx := context.Background()

	tests := []struct {
		hour, min int
		quiet     bool
	}{
		{21, 59, false},
		{22, 0, true},
		{23, 30, true},
		{0, 0, true},
		{7, 59, true},
		{8, 0, false},
		{12, 0, false},
	}
	for _, tt := range tests {
		clk.set(time.Date(2025, 1, 1, tt.hour, tt.min, 0, 0, time.UTC))
		id, err := eng.Notifications.Create(ctx, domain.Notification{Type: domain.NotifyLevelUp, Title: "Level 2"})
		if err != nil {
			t.Fatalf("create at %02d:%02d: %v", tt.hour, tt.min, err)
		}
		if (id == 0) != tt.quiet {
			t.Errorf("%02d:%02d: id = %d, quiet = %v", tt.hour, tt.min, id, tt.quiet)
		}
	}
}

func TestNotifications_NoQuietWindow(t *testing.T) {
	eng, _ := notifyEngine(t, at(2025, 1, 1, 23), domain.NotificationPolicy{})

	id, err := eng.Notifications.Create(context.Background(), domain.Notification{Type: domain.NotifyDailyGoal})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == 0 {
		t.Error("notification suppressed without a quiet window")
	}
	if got := eng.Notifications.Policy().MaxPerDay; got != domain.DefaultNotificationPolicy().MaxPerDay {
		t.Errorf("max per day = %d, want default", got)
	}
}

func TestNotifications_DailyCap(t *testing.T) {
	eng, clk := notifyEngine(t, at(2025, 1, 1, 10), domain.NotificationPolicy{MaxPerDay: 2})
	ctx := context.Background()

	var created int
	for range 4 {
		id, err := eng.Notifications.Create(ctx, domain.Notification{Type: domain.NotifyAchievement})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if id != 0 {
			created++
		}
	}
	if created != 2 {
		t.Errorf("created = %d, want 2", created)
	}
	if n, err := eng.Notifications.TodayCount(ctx); err != nil || n != 2 {
		t.Errorf("TodayCount = %d, %v; want 2", n, err)
	}

	// The cap resets the next day.
	clk.nextDay(1)
	id, err := eng.Notifications.Create(ctx, domain.Notification{Type: domain.NotifyAchievement})
	if err != nil || id == 0 {
		t.Errorf("next day create = %d, %v", id, err)
	}
}

func TestNotifications_PendingAndMarkShown(t *testing.T) {
	eng, _ := notifyEngine(t, at(2025, 1, 1, 10), domain.NotificationPolicy{MaxPerDay: 5})
	ctx := context.Background()

	for _, title := range []string{"first", "second"} {
		if _, err := eng.Notifications.Create(ctx, domain.Notification{Type: domain.NotifyLevelUp, Title: title}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	pending, err := eng.Notifications.Pending(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 2 || pending[0].Title != "first" {
		t.Fatalf("pending = %+v", pending)
	}

	if err := eng.Notifications.MarkShown(ctx, pending[0].ID); err != nil {
		t.Fatalf("mark shown: %v", err)
	}
	pending, _ = eng.Notifications.Pending(ctx, 10)
	if len(pending) != 1 || pending[0].Title != "second" {
		t.Errorf("pending after mark = %+v", pending)
	}

	if err := eng.Notifications.MarkShown(ctx, 9999); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("mark unknown err = %v, want ErrNotFound", err)
	}
}

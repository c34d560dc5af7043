package engagement

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tutu-network/tally/internal/domain"
	"github.com/tutu-network/tally/internal/infra/metrics"
)

// NotificationService stores user-facing messages for level ups, daily
// goals and achievement unlocks.
//   - At most MaxPerDay notifications per calendar day
//   - Nothing is created inside the quiet window
type NotificationService struct {
	*base
	policy domain.NotificationPolicy
}

// Create stores a notification if policy allows it.
// Returns the notification ID (0 if suppressed by policy) and any error.
func (n *NotificationService) Create(ctx context.Context, notif domain.Notification) (int64, error) {
	now := n.now()
	if n.isQuietHour(now) {
		metrics.NotificationsSuppressed.WithLabelValues("quiet_hours").Inc()
		return 0, nil
	}

	notif.CreatedAt = now
	notif.Shown = false

	var id int64
	err := n.store.Update(ctx, func(tx domain.StoreTx) error {
		id = 0
		start := domain.Day(now)
		count, err := tx.NotificationCount(ctx, start, start.AddDate(0, 0, 1))
		if err != nil {
			return err
		}
		if count >= n.policy.MaxPerDay {
			return nil // daily limit reached
		}
		id, err = tx.InsertNotification(ctx, notif)
		return err
	})
	if err != nil {
		return 0, err
	}
	if id == 0 {
		metrics.NotificationsSuppressed.WithLabelValues("daily_cap").Inc()
		return 0, nil
	}
	metrics.NotificationsCreated.WithLabelValues(string(notif.Type)).Inc()
	return id, nil
}

// Send is Create for callers that must not fail on notification errors.
func (n *NotificationService) Send(ctx context.Context, notif domain.Notification) {
	if _, err := n.Create(ctx, notif); err != nil {
		n.log.Warn("notification dropped", zap.String("type", string(notif.Type)), zap.Error(err))
	}
}

// Pending returns unshown notifications, oldest first.
func (n *NotificationService) Pending(ctx context.Context, limit int) ([]domain.Notification, error) {
	var out []domain.Notification
	err := n.view(ctx, "pending_notifications", func(tx domain.StoreTx) error {
		var err error
		out, err = tx.PendingNotifications(ctx, limit)
		return err
	})
	return out, err
}

// MarkShown marks a notification as shown.
func (n *NotificationService) MarkShown(ctx context.Context, id int64) error {
	return n.store.Update(ctx, func(tx domain.StoreTx) error {
		return tx.MarkNotificationShown(ctx, id)
	})
}

// TodayCount returns how many notifications were created today.
func (n *NotificationService) TodayCount(ctx context.Context) (int, error) {
	start := n.today()
	var count int
	err := n.view(ctx, "count_notifications", func(tx domain.StoreTx) error {
		var err error
		count, err = tx.NotificationCount(ctx, start, start.AddDate(0, 0, 1))
		return err
	})
	return count, err
}

// Policy returns the current notification policy.
func (n *NotificationService) Policy() domain.NotificationPolicy {
	return n.policy
}

// isQuietHour returns true if t falls inside [QuietStart, QuietEnd).
// The window may wrap midnight. An unset or empty window is never quiet.
func (n *NotificationService) isQuietHour(t time.Time) bool {
	startHour, startMin, okStart := parseHHMM(n.policy.QuietStart)
	endHour, endMin, okEnd := parseHHMM(n.policy.QuietEnd)
	if !okStart || !okEnd {
		return false
	}

	timeMinutes := t.Hour()*60 + t.Minute()
	startMinutes := startHour*60 + startMin
	endMinutes := endHour*60 + endMin

	if startMinutes == endMinutes {
		return false
	}
	if startMinutes > endMinutes {
		// Wraps midnight: e.g., 22:00 – 08:00
		return timeMinutes >= startMinutes || timeMinutes < endMinutes
	}
	return timeMinutes >= startMinutes && timeMinutes < endMinutes
}

// parseHHMM parses "HH:MM" into hour and minute.
func parseHHMM(s string) (int, int, bool) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

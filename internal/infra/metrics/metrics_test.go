package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tutu-network/tally/internal/domain"
)

func gatheredNames(t *testing.T) map[string]bool {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	return names
}

func TestScoringCounters(t *testing.T) {
	CompletionsTotal.WithLabelValues("medium").Inc()
	PointsAwarded.WithLabelValues("base").Add(3)
	PenaltyPoints.Add(2)
	AchievementsUnlocked.Inc()

	names := gatheredNames(t)
	expected := []string{
		"tally_completions_total",
		"tally_points_awarded_total",
		"tally_penalty_points_total",
		"tally_achievements_unlocked_total",
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}

func TestObserveStats(t *testing.T) {
	ObserveStats(domain.UserStats{TotalPoints: 260, Level: 3, CurrentStreakDays: 4})

	if got := testutil.ToFloat64(TotalPoints); got != 260 {
		t.Errorf("points gauge = %v, want 260", got)
	}
	if got := testutil.ToFloat64(Level); got != 3 {
		t.Errorf("level gauge = %v, want 3", got)
	}
	if got := testutil.ToFloat64(CurrentStreak); got != 4 {
		t.Errorf("streak gauge = %v, want 4", got)
	}
}

func TestStoreFailures(t *testing.T) {
	before := testutil.ToFloat64(StoreFailures.WithLabelValues("complete"))
	StoreFailures.WithLabelValues("complete").Inc()
	after := testutil.ToFloat64(StoreFailures.WithLabelValues("complete"))
	if after != before+1 {
		t.Errorf("store failures = %v, want %v", after, before+1)
	}
}

func TestAPIAndNotificationMetrics(t *testing.T) {
	APIRequestDuration.WithLabelValues("GET", "/api/status", "200").Observe(0.01)
	APIRateLimited.Inc()
	NotificationsCreated.WithLabelValues("level_up").Inc()
	NotificationsSuppressed.WithLabelValues("daily_cap").Inc()

	names := gatheredNames(t)
	for _, name := range []string{
		"tally_api_request_duration_seconds",
		"tally_api_rate_limited_total",
		"tally_notifications_created_total",
		"tally_notifications_suppressed_total",
	} {
		if !names[name] {
			t.Errorf("metric %q not found", name)
		}
	}
}

func TestHealthMetrics(t *testing.T) {
	HealthCheckStatus.WithLabelValues("store").Set(1)
	HealthRecoveries.WithLabelValues("store").Inc()

	names := gatheredNames(t)
	if !names["tally_health_check_status"] {
		t.Error("tally_health_check_status not found")
	}
	if !names["tally_health_recoveries_total"] {
		t.Error("tally_health_recoveries_total not found")
	}
}

// Package metrics provides Prometheus metrics for tally.
// Counters and gauges for completions, points, penalties, achievements,
// the store, the HTTP API and health checks.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tutu-network/tally/internal/domain"
)

// ─── Scoring ────────────────────────────────────────────────────────────────

// CompletionsTotal tracks scored completions by task size.
var CompletionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "tally",
	Name:      "completions_total",
	Help:      "Total scored task completions.",
}, []string{"size"})

// PointsAwarded tracks points granted by source
// (base, streak, daily_goal, category, overdue, achievement).
var PointsAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "tally",
	Name:      "points_awarded_total",
	Help:      "Total points awarded by source.",
}, []string{"kind"})

// PenaltyPoints tracks points actually deducted for overdue tasks.
var PenaltyPoints = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "tally",
	Name:      "penalty_points_total",
	Help:      "Total points deducted for overdue tasks.",
})

// AchievementsUnlocked tracks achievement unlocks.
var AchievementsUnlocked = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "tally",
	Name:      "achievements_unlocked_total",
	Help:      "Total achievements unlocked.",
})

// ─── Aggregate ──────────────────────────────────────────────────────────────

// TotalPoints tracks the current point balance.
var TotalPoints = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "tally",
	Name:      "points_current",
	Help:      "Current total points.",
})

// Level tracks the current level.
var Level = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "tally",
	Name:      "level_current",
	Help:      "Current level.",
})

// CurrentStreak tracks the stored streak length in days.
var CurrentStreak = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "tally",
	Name:      "streak_days_current",
	Help:      "Current streak in days.",
})

// ObserveStats copies the aggregate into the gauges.
func ObserveStats(s domain.UserStats) {
	TotalPoints.Set(float64(s.TotalPoints))
	Level.Set(float64(s.Level))
	CurrentStreak.Set(float64(s.CurrentStreakDays))
}

// ─── Notifications ──────────────────────────────────────────────────────────

// NotificationsCreated tracks stored notifications by type.
var NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "tally",
	Name:      "notifications_created_total",
	Help:      "Total notifications created.",
}, []string{"type"})

// NotificationsSuppressed tracks notifications dropped by policy.
var NotificationsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "tally",
	Name:      "notifications_suppressed_total",
	Help:      "Total notifications suppressed by policy.",
}, []string{"reason"})

// ─── Store ──────────────────────────────────────────────────────────────────

// StoreFailures tracks persistence failures by operation.
var StoreFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "tally",
	Name:      "store_failures_total",
	Help:      "Total persistence failures by operation.",
}, []string{"op"})

// ─── API ────────────────────────────────────────────────────────────────────

// APIRequestDuration tracks HTTP handler latency.
var APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "tally",
	Name:      "api_request_duration_seconds",
	Help:      "HTTP request duration in seconds.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
}, []string{"method", "route", "status"})

// APIRateLimited tracks requests rejected by the rate limiter.
var APIRateLimited = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "tally",
	Name:      "api_rate_limited_total",
	Help:      "Total requests rejected by the rate limiter.",
})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "tally",
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})

// HealthRecoveries tracks auto-recovery attempts.
var HealthRecoveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "tally",
	Name:      "health_recoveries_total",
	Help:      "Total auto-recovery attempts per check.",
}, []string{"check"})

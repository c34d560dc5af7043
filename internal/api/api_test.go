package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutu-network/tally/internal/app/engagement"
	"github.com/tutu-network/tally/internal/app/ledger"
	"github.com/tutu-network/tally/internal/domain"
	"github.com/tutu-network/tally/internal/health"
	"github.com/tutu-network/tally/internal/infra/sqlite"
)

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	eng := engagement.New(db, engagement.Options{Clock: func() time.Time { return now }})
	srv := NewServer(eng, ledger.NewService(db), nil, nil)
	return srv, srv.Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(w.Body).Decode(v), "body: %s", w.Body.String())
}

// ─── Health & Version ───────────────────────────────────────────────────────

func TestAPI_Health(t *testing.T) {
	_, h := newTestServer(t)

	w := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	decode(t, w, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestAPI_HealthDegraded(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.health = health.NewCheckerWith(nil, time.Minute, health.Check{
		Name:    "store",
		CheckFn: func(context.Context) error { return errors.New("down") },
	})
	srv.health.RunOnce(context.Background())

	w := do(t, srv.Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "degraded")
}

func TestAPI_Version(t *testing.T) {
	_, h := newTestServer(t)
	w := do(t, h, http.MethodGet, "/api/version", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), Version)
}

// ─── Completions ────────────────────────────────────────────────────────────

func TestAPI_Complete(t *testing.T) {
	_, h := newTestServer(t)

	w := do(t, h, http.MethodPost, "/api/completions", `{"size":"large","category":"Work"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var body struct {
		Result       domain.CompletionResult      `json:"result"`
		Achievements []domain.UnlockedAchievement `json:"achievements"`
	}
	decode(t, w, &body)
	assert.Equal(t, 5, body.Result.Points.Base)
	assert.Equal(t, 1, body.Result.Points.CategoryBonus)
	assert.Equal(t, 1, body.Result.Streak)
	assert.NotEmpty(t, body.Result.ID)
	assert.NotEmpty(t, body.Achievements, "first completion unlocks First Steps")

	w = do(t, h, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	var st domain.Status
	decode(t, w, &st)
	assert.Equal(t, 1, st.Stats.TotalTasksCompleted)
	assert.Equal(t, 1, st.Today.TasksCompleted)
}

func TestAPI_CompleteErrors(t *testing.T) {
	_, h := newTestServer(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed json", `{"size":`, http.StatusBadRequest},
		{"unknown field", `{"points":100}`, http.StatusBadRequest},
		{"bad date format", `{"date":"10/01/2025"}`, http.StatusBadRequest},
		{"future date", `{"date":"2025-02-01"}`, http.StatusBadRequest},
		{"empty body is medium today", ``, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/api/completions", tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}
}

func TestAPI_TaskCreated(t *testing.T) {
	_, h := newTestServer(t)

	w := do(t, h, http.MethodPost, "/api/tasks/created", `{}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var act domain.DailyActivity
	decode(t, w, &act)
	assert.Equal(t, 1, act.TasksCreated)
}

// ─── Penalties ──────────────────────────────────────────────────────────────

func TestAPI_Penalties(t *testing.T) {
	_, h := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/completions", `{"size":"large"}`).Code)

	w := do(t, h, http.MethodPost, "/api/penalties",
		`{"tasks":[{"id":"t1","due_date":"2025-01-08T00:00:00Z"}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var rep domain.PenaltyReport
	decode(t, w, &rep)
	assert.Equal(t, 2, rep.Total)
	assert.Equal(t, 2, rep.Deducted)

	w = do(t, h, http.MethodPost, "/api/penalties", `{"tasks":[{"due_date":"2025-01-08T00:00:00Z"}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ─── Achievements ───────────────────────────────────────────────────────────

func TestAPI_Achievements(t *testing.T) {
	_, h := newTestServer(t)
	do(t, h, http.MethodPost, "/api/completions", `{"size":"small"}`)

	w := do(t, h, http.MethodGet, "/api/achievements", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Achievements []domain.AchievementProgress `json:"achievements"`
	}
	decode(t, w, &body)
	assert.Len(t, body.Achievements, len(engagement.AllAchievements()))

	w = do(t, h, http.MethodGet, "/api/achievements/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	var sum domain.AchievementSummary
	decode(t, w, &sum)
	assert.Positive(t, sum.TotalUnlocked)

	w = do(t, h, http.MethodPost, "/api/achievements/check", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"unlocked":[]}`, w.Body.String())
}

// ─── Goals ──────────────────────────────────────────────────────────────────

func TestAPI_Goals(t *testing.T) {
	_, h := newTestServer(t)

	w := do(t, h, http.MethodPut, "/api/goals", `{"daily":4}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var g domain.Goals
	decode(t, w, &g)
	assert.Equal(t, 4, g.Daily)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPut, "/api/goals", `{"daily":-1}`).Code)

	for _, path := range []string{"/api/goals", "/api/goals/daily", "/api/goals/weekly", "/api/goals/monthly", "/api/goals/suggestions"} {
		assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, path, "").Code, path)
	}
}

func TestAPI_TrackedGoals(t *testing.T) {
	_, h := newTestServer(t)

	w := do(t, h, http.MethodPost, "/api/goals/tracked", `{"period":"weekly","metric":"tasks_completed","target":10}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var goal domain.TrackedGoal
	decode(t, w, &goal)
	require.NotEmpty(t, goal.ID)

	w = do(t, h, http.MethodGet, "/api/goals/tracked", "")
	require.Equal(t, http.StatusOK, w.Code)
	var sum domain.GoalsSummary
	decode(t, w, &sum)
	assert.Equal(t, 1, sum.TotalGoals)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/goals/tracked/"+goal.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/api/goals/tracked/"+goal.ID, "").Code)

	tests := []string{
		`{"period":"daily","metric":"tasks_completed","target":10}`,
		`{"period":"weekly","metric":"karma","target":10}`,
		`{"period":"weekly","metric":"tasks_completed","target":0}`,
	}
	for _, body := range tests {
		assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/goals/tracked", body).Code, body)
	}
}

// ─── Reports & Ledger ───────────────────────────────────────────────────────

func TestAPI_Report(t *testing.T) {
	_, h := newTestServer(t)
	do(t, h, http.MethodPost, "/api/completions", `{"size":"medium","category":"Home"}`)

	w := do(t, h, http.MethodGet, "/api/report?days=3", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var rep domain.Report
	decode(t, w, &rep)
	assert.Equal(t, 3, rep.Days)
	assert.Equal(t, 1, rep.Totals.TasksCompleted)

	w = do(t, h, http.MethodGet, "/api/report?from=2025-01-01&to=2025-01-10", "")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/report?from=2025-01-10&to=2025-01-01", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/report?from=yesterday&to=2025-01-01", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/report?days=zero", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/report?from=0001-01-01&to=9999-12-31", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/report?days=100000", "").Code)
}

func TestAPI_Ledger(t *testing.T) {
	_, h := newTestServer(t)
	do(t, h, http.MethodPost, "/api/completions", `{"size":"large"}`)

	w := do(t, h, http.MethodGet, "/api/ledger?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Entries []domain.LedgerEntry `json:"entries"`
	}
	decode(t, w, &body)
	assert.NotEmpty(t, body.Entries)

	w = do(t, h, http.MethodGet, "/api/ledger/reconcile", "")
	require.Equal(t, http.StatusOK, w.Code)
	var rec ledger.Reconciliation
	decode(t, w, &rec)
	assert.True(t, rec.Balanced)
}

// ─── Notifications ──────────────────────────────────────────────────────────

func TestAPI_Notifications(t *testing.T) {
	_, h := newTestServer(t)
	for range 3 {
		do(t, h, http.MethodPost, "/api/completions", `{"size":"medium"}`)
	}

	w := do(t, h, http.MethodGet, "/api/notifications", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Notifications []domain.Notification `json:"notifications"`
	}
	decode(t, w, &body)
	require.NotEmpty(t, body.Notifications, "daily goal crossing should notify")

	id := body.Notifications[0].ID
	path := "/api/notifications/" + strconv.FormatInt(id, 10) + "/shown"
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, path, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/api/notifications/99999/shown", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/notifications/abc/shown", "").Code)
}

// ─── Middleware ─────────────────────────────────────────────────────────────

func TestAPI_RateLimit(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.SetRateLimit(0.001, 2)
	h := srv.Handler()

	codes := make([]int, 0, 3)
	for range 3 {
		codes = append(codes, do(t, h, http.MethodPost, "/api/tasks/created", `{}`).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Plain reads are never limited.
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/status", "").Code)
	// Listing tracked goals refreshes them and shares the write budget.
	assert.Equal(t, http.StatusTooManyRequests, do(t, h, http.MethodGet, "/api/goals/tracked", "").Code)
}

func TestAPI_CORS(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.SetCORSOrigins([]string{"https://app.example"})
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/status", nil)
	req.Header.Set("Origin", "https://app.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestAPI_Metrics(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/metrics", "").Code)

	srv.EnableMetrics()
	h = srv.Handler()
	do(t, h, http.MethodGet, "/api/status", "")
	w := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tally_api_request_duration_seconds")
}

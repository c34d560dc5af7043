package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tutu-network/tally/internal/domain"
)

// ─── Request Bodies ─────────────────────────────────────────────────────────

type completionRequest struct {
	TaskID        string    `json:"task_id" validate:"max=128"`
	Size          string    `json:"size" validate:"max=16"`
	Category      string    `json:"category" validate:"max=64"`
	CategoryBonus bool      `json:"category_bonus"`
	Overdue       bool      `json:"overdue"`
	Date          string    `json:"date" validate:"omitempty,datetime=2006-01-02"`
	CompletedAt   time.Time `json:"completed_at"`
}

func (c completionRequest) event() domain.CompletionEvent {
	ev := domain.CompletionEvent{
		TaskID:        c.TaskID,
		Size:          domain.ParseTaskSize(c.Size),
		Category:      c.Category,
		CategoryBonus: c.CategoryBonus,
		Overdue:       c.Overdue,
		CompletedAt:   c.CompletedAt,
	}
	if c.Date != "" {
		ev.Date, _ = domain.ParseDay(c.Date) // format checked by validator
	}
	return ev
}

type createdRequest struct {
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type penaltyRequest struct {
	Tasks []domain.OverdueTask `json:"tasks" validate:"dive"`
}

type trackGoalRequest struct {
	Period domain.GoalPeriod `json:"period" validate:"required,oneof=weekly monthly"`
	Metric domain.GoalMetric `json:"metric" validate:"required"`
	Target int               `json:"target" validate:"gte=1"`
}

// ─── Health & Status ────────────────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
		return
	}
	status, code := "ok", http.StatusOK
	if !s.health.IsHealthy() {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status": status,
		"checks": s.health.Statuses(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.eng.Scoring.Status(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ─── Scoring ────────────────────────────────────────────────────────────────

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	var req completionRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	res, unlocked, err := s.eng.Complete(r.Context(), req.event())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if unlocked == nil {
		unlocked = []domain.UnlockedAchievement{}
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"result":       res,
		"achievements": unlocked,
	})
}

func (s *Server) handleTaskCreated(w http.ResponseWriter, r *http.Request) {
	var req createdRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	var day time.Time
	if req.Date != "" {
		day, _ = domain.ParseDay(req.Date)
	}
	act, err := s.eng.Scoring.RecordCreated(r.Context(), day)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, act)
}

func (s *Server) handlePenalties(w http.ResponseWriter, r *http.Request) {
	var req penaltyRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	report, err := s.eng.Penalties.Apply(r.Context(), req.Tasks)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ─── Achievements ───────────────────────────────────────────────────────────

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	progress, err := s.eng.Achievements.Progress(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"achievements": progress})
}

func (s *Server) handleAchievementSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.eng.Achievements.Summary(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleAchievementCheck(w http.ResponseWriter, r *http.Request) {
	unlocked, err := s.eng.Achievements.CheckAndUnlock(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if unlocked == nil {
		unlocked = []domain.UnlockedAchievement{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"unlocked": unlocked})
}

// ─── Goals ──────────────────────────────────────────────────────────────────

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	g, err := s.eng.Goals.Goals(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleSetGoals(w http.ResponseWriter, r *http.Request) {
	var upd domain.GoalUpdate
	if !s.decodeBody(w, r, &upd) {
		return
	}
	g, err := s.eng.Goals.SetGoals(r.Context(), upd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleDailyGoal(w http.ResponseWriter, r *http.Request) {
	p, err := s.eng.Goals.Daily(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleWeeklyGoal(w http.ResponseWriter, r *http.Request) {
	p, err := s.eng.Goals.Weekly(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleMonthlyGoal(w http.ResponseWriter, r *http.Request) {
	p, err := s.eng.Goals.Monthly(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleGoalSuggestions(w http.ResponseWriter, r *http.Request) {
	sugg, err := s.eng.Goals.Suggest(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if sugg == nil {
		sugg = []domain.GoalSuggestion{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": sugg})
}

func (s *Server) handleTrackedGoals(w http.ResponseWriter, r *http.Request) {
	sum, err := s.eng.Goals.TrackedSummary(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleTrackGoal(w http.ResponseWriter, r *http.Request) {
	var req trackGoalRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	g, err := s.eng.Goals.TrackGoal(r.Context(), req.Period, req.Metric, req.Target)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) handleUntrackGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.eng.Goals.UntrackGoal(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Reports ────────────────────────────────────────────────────────────────

// handleReport serves ?from=YYYY-MM-DD&to=YYYY-MM-DD or ?days=N (default 7).
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("from") != "" || q.Get("to") != "" {
		from, err := domain.ParseDay(q.Get("from"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date")
			return
		}
		to, err := domain.ParseDay(q.Get("to"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to date")
			return
		}
		rep, err := s.eng.Analytics.Report(r.Context(), from, to)
		if err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
		return
	}

	days, ok := intParam(w, r, "days", 7)
	if !ok {
		return
	}
	rep, err := s.eng.Analytics.LastDays(r.Context(), days)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// ─── Ledger ─────────────────────────────────────────────────────────────────

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(w, r, "limit", 50)
	if !ok {
		return
	}
	entries, err := s.ledger.History(r.Context(), limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	rec, err := s.ledger.Reconcile(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ─── Notifications ──────────────────────────────────────────────────────────

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(w, r, "limit", 20)
	if !ok {
		return
	}
	notifs, err := s.eng.Notifications.Pending(r.Context(), limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if notifs == nil {
		notifs = []domain.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": notifs})
}

func (s *Server) handleNotificationShown(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid notification ID")
		return
	}
	if err := s.eng.Notifications.MarkShown(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// intParam reads a positive integer query parameter.
func intParam(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return n, true
}

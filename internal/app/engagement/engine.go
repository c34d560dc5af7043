// Package engagement implements the scoring engine: points, streaks, levels,
// penalties, achievements, goals, analytics and notifications on top of a
// domain.Store.
package engagement

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tutu-network/tally/internal/domain"
	"github.com/tutu-network/tally/internal/infra/metrics"
)

var validate = validator.New()

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	Logger          *zap.Logger
	Clock           func() time.Time
	BonusCategories []string
	Policy          domain.NotificationPolicy
}

// base is shared by every service of one Engine.
// mu serializes all read-modify-write cycles on the aggregate.
type base struct {
	store domain.Store
	mu    *sync.Mutex
	log   *zap.Logger
	now   func() time.Time
}

func (b *base) today() time.Time {
	return domain.Day(b.now())
}

// update runs fn in a write transaction under the engine lock.
func (b *base) update(ctx context.Context, op string, fn func(tx domain.StoreTx) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	err := b.store.Update(ctx, fn)
	b.observe(op, err)
	return err
}

func (b *base) view(ctx context.Context, op string, fn func(tx domain.StoreTx) error) error {
	err := b.store.View(ctx, fn)
	b.observe(op, err)
	return err
}

func (b *base) observe(op string, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, domain.ErrPersistence) {
		metrics.StoreFailures.WithLabelValues(op).Inc()
		b.log.Error("store operation failed", zap.String("op", op), zap.Error(err))
		return
	}
	b.log.Debug("operation rejected", zap.String("op", op), zap.Error(err))
}

// Engine bundles the services that share one store and one writer lock.
type Engine struct {
	Scoring       *ScoringService
	Penalties     *PenaltyService
	Achievements  *AchievementService
	Goals         *GoalService
	Analytics     *AnalyticsService
	Notifications *NotificationService
}

// New wires every service around store.
func New(store domain.Store, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.BonusCategories == nil {
		opts.BonusCategories = DefaultBonusCategories
	}
	if opts.Policy.MaxPerDay <= 0 {
		opts.Policy.MaxPerDay = domain.DefaultNotificationPolicy().MaxPerDay
	}

	b := &base{
		store: store,
		mu:    &sync.Mutex{},
		log:   opts.Logger.Named("engagement"),
		now:   opts.Clock,
	}

	notify := &NotificationService{base: b, policy: opts.Policy}
	achievements := &AchievementService{base: b, definitions: AllAchievements(), notify: notify}
	return &Engine{
		Scoring: &ScoringService{
			base:            b,
			bonusCategories: opts.BonusCategories,
			notify:          notify,
		},
		Penalties:     &PenaltyService{base: b},
		Achievements:  achievements,
		Goals:         &GoalService{base: b},
		Analytics:     &AnalyticsService{base: b},
		Notifications: notify,
	}
}

// Complete scores a completion and unlocks any achievements it earned.
// Both run in one transaction: if either fails nothing is stored and the
// error is returned.
func (e *Engine) Complete(ctx context.Context, ev domain.CompletionEvent) (domain.CompletionResult, []domain.UnlockedAchievement, error) {
	c, err := e.Scoring.prepare(ev)
	if err != nil {
		return domain.CompletionResult{}, nil, err
	}
	now := e.Scoring.now()

	var (
		res      domain.CompletionResult
		unlocked []domain.UnlockedAchievement
		stats    domain.UserStats
	)
	err = e.Scoring.update(ctx, "complete", func(tx domain.StoreTx) error {
		var err error
		if res, err = e.Scoring.scoreTx(ctx, tx, c); err != nil {
			return err
		}
		unlocked, stats, err = e.Achievements.unlockTx(ctx, tx, now)
		return err
	})
	if err != nil {
		return domain.CompletionResult{}, nil, err
	}

	if len(unlocked) > 0 {
		res.LeveledUp = res.LeveledUp || stats.Level > res.Level
		res.Stats = stats
		res.Level = stats.Level
	}
	e.Scoring.completed(ctx, res, c.size)
	e.Achievements.unlocked(ctx, unlocked, stats)
	return res, unlocked, nil
}

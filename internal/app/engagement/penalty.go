package engagement

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tutu-network/tally/internal/domain"
	"github.com/tutu-network/tally/internal/infra/metrics"
)

// ─── Penalty Processor ──────────────────────────────────────────────────────

// PenaltyService deducts points for overdue tasks.
// Each (task, day) pair is penalized at most once, so repeated passes on
// the same day are harmless.
type PenaltyService struct {
	*base
}

// OverduePenalty returns min(daysOverdue, MaxPenaltyPerTask), or 0 if not overdue.
func OverduePenalty(daysOverdue int) int {
	if daysOverdue <= 0 {
		return 0
	}
	return min(daysOverdue, domain.MaxPenaltyPerTask)
}

// Apply penalizes every incomplete task whose due date is before today.
// A task without an ID rejects the whole batch with ErrMissingTaskID.
// total_points never drops below zero; Report.Deducted is what was taken.
func (p *PenaltyService) Apply(ctx context.Context, tasks []domain.OverdueTask) (domain.PenaltyReport, error) {
	for i, t := range tasks {
		if err := validate.Struct(t); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Field() == "ID" {
				return domain.PenaltyReport{}, fmt.Errorf("task %d: %w", i, domain.ErrMissingTaskID)
			}
			return domain.PenaltyReport{}, fmt.Errorf("%w: task %d: %v", domain.ErrValidation, i, err)
		}
	}

	today := p.today()
	report := domain.PenaltyReport{Applied: []domain.AppliedPenalty{}}
	err := p.update(ctx, "apply_penalties", func(tx domain.StoreTx) error {
		for _, t := range tasks {
			if t.Completed {
				report.Skipped++
				continue
			}
			days := domain.DaysBetween(t.DueDate, today)
			pts := OverduePenalty(days)
			if pts == 0 {
				report.Skipped++
				continue
			}
			isNew, err := tx.MarkPenalty(ctx, t.ID, today, pts)
			if err != nil {
				return err
			}
			if !isNew {
				report.Skipped++
				continue
			}
			report.Total += pts
			report.Applied = append(report.Applied, domain.AppliedPenalty{
				TaskID:      t.ID,
				DaysOverdue: days,
				Points:      pts,
			})
		}
		if report.Total == 0 {
			return nil
		}

		stats, err := tx.Stats(ctx)
		if err != nil {
			return err
		}
		report.Deducted = min(report.Total, stats.TotalPoints)
		stats.TotalPoints -= report.Deducted
		applyLevel(&stats)

		act, err := tx.Activity(ctx, today)
		if err != nil {
			return err
		}
		if act == nil {
			fresh := domain.NewDailyActivity(today)
			act = &fresh
		}
		act.OverduePenaltyApplied += report.Total

		if err := tx.SaveStats(ctx, stats); err != nil {
			return err
		}
		if err := tx.SaveActivity(ctx, *act); err != nil {
			return err
		}
		if report.Deducted == 0 {
			return nil
		}
		_, err = tx.AppendLedger(ctx, domain.LedgerEntry{
			Timestamp:   p.now(),
			Kind:        domain.LedgerPenalty,
			Amount:      -report.Deducted,
			Description: fmt.Sprintf("%d overdue task(s)", len(report.Applied)),
			Balance:     stats.TotalPoints,
		})
		if err == nil {
			metrics.ObserveStats(stats)
		}
		return err
	})
	if err != nil {
		return domain.PenaltyReport{}, err
	}

	if report.Total > 0 {
		metrics.PenaltyPoints.Add(float64(report.Deducted))
		p.log.Info("overdue penalties applied",
			zap.Int("tasks", len(report.Applied)),
			zap.Int("total", report.Total),
			zap.Int("deducted", report.Deducted),
		)
	}
	return report, nil
}

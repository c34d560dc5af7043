// Package ledger reads the points ledger.
// Every change to total_points appends one signed entry in the same
// transaction. SUM(amount) == total_points is an invariant.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/tutu-network/tally/internal/domain"
)

// ErrUnbalanced is returned by Verify when the ledger and the aggregate disagree.
var ErrUnbalanced = errors.New("points ledger does not match total points")

// Reconciliation compares the ledger sum with the aggregate.
type Reconciliation struct {
	LedgerSum   int  `json:"ledger_sum"`
	TotalPoints int  `json:"total_points"`
	Difference  int  `json:"difference"` // ledger sum minus total points
	Balanced    bool `json:"balanced"`
}

// Service exposes the ledger read side.
type Service struct {
	store domain.Store
}

// NewService creates a ledger service.
func NewService(store domain.Store) *Service {
	return &Service{store: store}
}

// Balance returns the running balance recorded by the ledger.
func (s *Service) Balance(ctx context.Context) (int, error) {
	var sum int
	err := s.store.View(ctx, func(tx domain.StoreTx) error {
		var err error
		sum, err = tx.LedgerSum(ctx)
		return err
	})
	return sum, err
}

// History returns recent ledger entries, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]domain.LedgerEntry, error) {
	var out []domain.LedgerEntry
	err := s.store.View(ctx, func(tx domain.StoreTx) error {
		var err error
		out, err = tx.LedgerEntries(ctx, limit)
		return err
	})
	return out, err
}

// Reconcile reads the ledger sum and the aggregate in one transaction.
func (s *Service) Reconcile(ctx context.Context) (Reconciliation, error) {
	var r Reconciliation
	err := s.store.View(ctx, func(tx domain.StoreTx) error {
		sum, err := tx.LedgerSum(ctx)
		if err != nil {
			return err
		}
		stats, err := tx.Stats(ctx)
		if err != nil {
			return err
		}
		r = Reconciliation{
			LedgerSum:   sum,
			TotalPoints: stats.TotalPoints,
			Difference:  sum - stats.TotalPoints,
			Balanced:    sum == stats.TotalPoints,
		}
		return nil
	})
	return r, err
}

// Verify returns ErrUnbalanced if the ledger and the aggregate disagree.
func (s *Service) Verify(ctx context.Context) error {
	r, err := s.Reconcile(ctx)
	if err != nil {
		return err
	}
	if !r.Balanced {
		return fmt.Errorf("%w: ledger %d, total %d", ErrUnbalanced, r.LedgerSum, r.TotalPoints)
	}
	return nil
}

package pricing

import (
	"context"
	"fmt"

	"github.com/dylanleonard80/peptidefoundry/internal/catalog"
	"github.com/dylanleonard80/peptidefoundry/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PriceDiff records one corrected snapshot.
type PriceDiff struct {
	Slug string          `json:"slug"`
	Size string          `json:"size"`
	Old  decimal.Decimal `json:"old"`
	New  decimal.Decimal `json:"new"`
}

// Result carries the rewritten lines plus what changed. Blocked lists
// identities whose catalog entry vanished; any blocked line stops checkout.
type Result struct {
	Lines   []domain.CartLine
	Changed bool
	Diffs   []PriceDiff
	Blocked []domain.VariantKey
}

// Reconciler overwrites drifted price snapshots with the authoritative
// effective price. It is the single point that keeps a stale cart from
// charging an outdated price, so checkout always runs it before any
// payment authorization.
type Reconciler struct {
	catalog catalog.Accessor
	calc    *Calculator
	logger  *zap.Logger
}

func NewReconciler(accessor catalog.Accessor, calc *Calculator, logger *zap.Logger) *Reconciler {
	return &Reconciler{catalog: accessor, calc: calc, logger: logger}
}

// Reconcile batch-fetches catalog entries for every distinct identity and
// rewrites any snapshot that drifted, in either direction. Membership is
// passed explicitly; it is a point-in-time read, never cached here.
func (r *Reconciler) Reconcile(ctx context.Context, lines []domain.CartLine, membership domain.MembershipStatus) (*Result, error) {
	keys := make([]domain.VariantKey, 0, len(lines))
	seen := make(map[domain.VariantKey]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.Key()]; ok {
			continue
		}
		seen[line.Key()] = struct{}{}
		keys = append(keys, line.Key())
	}

	entries, err := r.catalog.LookupMany(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog entries: %w", err)
	}

	result := &Result{Lines: make([]domain.CartLine, len(lines))}
	copy(result.Lines, lines)

	for i := range result.Lines {
		line := &result.Lines[i]

		entry, ok := entries[line.Key()]
		if !ok {
			// Product removed from catalog. Keep the cached price for
			// display but block checkout rather than charging it.
			line.Unpurchasable = true
			result.Blocked = append(result.Blocked, line.Key())
			continue
		}
		line.Unpurchasable = false

		authoritative := r.calc.EffectivePrice(entry, membership)
		if authoritative.Equal(line.UnitPriceSnapshot) {
			continue
		}

		result.Diffs = append(result.Diffs, PriceDiff{
			Slug: line.Slug,
			Size: line.Size,
			Old:  line.UnitPriceSnapshot,
			New:  authoritative,
		})
		r.logger.Info("price snapshot corrected",
			zap.String("slug", line.Slug),
			zap.String("size", line.Size),
			zap.String("old", line.UnitPriceSnapshot.String()),
			zap.String("new", authoritative.String()))
		line.UnitPriceSnapshot = authoritative
	}

	result.Changed = len(result.Diffs) > 0
	return result, nil
}

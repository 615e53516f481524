// Package cart holds the server-side cart store: the ordered line set for
// one shopping session, persisted per line so concurrent tabs merge
// last-writer-wins. The authoritative price and stock re-check happens at
// checkout regardless of what the cart believes.
package cart

import (
	"context"
	"errors"
	"time"

	"github.com/dylanleonard80/peptidefoundry/internal/domain"
	"github.com/dylanleonard80/peptidefoundry/internal/pricing"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// StockGate is consulted defensively on add. The checkout orchestrator
// consults it again authoritatively before capture.
type StockGate interface {
	IsAvailable(ctx context.Context, slug, size string) (bool, error)
}

type Store struct {
	repo   Repository
	cache  Cache
	gate   StockGate
	calc   *pricing.Calculator
	logger *zap.Logger
	sfg    singleflight.Group // Prevents cache stampede
}

func NewStore(repo Repository, cache Cache, gate StockGate, calc *pricing.Calculator, logger *zap.Logger) *Store {
	return &Store{
		repo:   repo,
		cache:  cache,
		gate:   gate,
		calc:   calc,
		logger: logger,
	}
}

// Get returns the cart, an empty one when none exists yet.
func (s *Store) Get(ctx context.Context, cartID string) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(cartID, func() (interface{}, error) {
		cached, err := s.cache.Get(ctx, cartID)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn("cache get error", zap.Error(err)) // log cache error but continue
		}

		fromRepo, errGet := s.repo.GetCart(ctx, cartID)
		if errGet != nil && errors.Is(errGet, ErrCartNotFound) {
			return &domain.Cart{
				ID:        cartID,
				Lines:     nil,
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}, nil
		}
		if errGet != nil {
			return nil, errGet
		}

		go func() {
			if errSet := s.cache.Set(context.Background(), cartID, fromRepo); errSet != nil {
				s.logger.Warn("cache set error", zap.Error(errSet))
			}
		}()

		return fromRepo, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// AddItem adds one unit of the variant. An existing line gets its quantity
// incremented; its price snapshot is NOT overwritten, the price at first
// add wins until reconciliation. Fails with domain.ErrOutOfStock without
// touching the cart when the stock gate reports unavailable.
func (s *Store) AddItem(ctx context.Context, cartID, slug, size string, unitPrice decimal.Decimal, displayName string) error {
	available, err := s.gate.IsAvailable(ctx, slug, size)
	if err != nil {
		return err
	}
	if !available {
		return domain.ErrOutOfStock
	}

	line := domain.CartLine{
		Slug:              slug,
		Size:              size,
		Quantity:          1,
		UnitPriceSnapshot: unitPrice,
		DisplayName:       displayName,
	}
	if err := s.repo.AddLine(ctx, cartID, line); err != nil {
		s.logger.Error("repo add line error", zap.Error(err))
		return err
	}

	s.invalidateCache(cartID)
	return nil
}

// UpdateQuantity sets the line's quantity; a value of zero or less removes
// the line. A missing line is a no-op, not an error.
func (s *Store) UpdateQuantity(ctx context.Context, cartID string, key domain.VariantKey, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, cartID, key)
	}

	err := s.repo.SetLineQuantity(ctx, cartID, key, quantity)
	if errors.Is(err, ErrLineNotFound) {
		return nil
	}
	if err != nil {
		s.logger.Error("repo update line quantity error", zap.Error(err))
		return err
	}

	s.invalidateCache(cartID)
	return nil
}

// RemoveItem is idempotent.
func (s *Store) RemoveItem(ctx context.Context, cartID string, key domain.VariantKey) error {
	if err := s.repo.RemoveLine(ctx, cartID, key); err != nil {
		s.logger.Error("repo remove line error", zap.Error(err))
		return err
	}

	s.invalidateCache(cartID)
	return nil
}

// Clear empties the cart. Used exactly once per successful order capture,
// and only after the order row is durable.
func (s *Store) Clear(ctx context.Context, cartID string) error {
	if err := s.repo.DeleteCart(ctx, cartID); err != nil {
		s.logger.Error("repo delete cart error", zap.Error(err))
		return err
	}

	s.invalidateCache(cartID)
	return nil
}

// ApplyReconciliation writes corrected price snapshots back in place.
func (s *Store) ApplyReconciliation(ctx context.Context, cartID string, lines []domain.CartLine) error {
	if err := s.repo.ReplaceLines(ctx, cartID, lines); err != nil {
		s.logger.Error("repo replace lines error", zap.Error(err))
		return err
	}

	s.invalidateCache(cartID)
	return nil
}

// Totals is derived on every call, never cached.
func (s *Store) Totals(ctx context.Context, cartID string) (domain.CartTotals, error) {
	current, err := s.Get(ctx, cartID)
	if err != nil {
		return domain.CartTotals{}, err
	}
	return s.calc.Totals(current.Lines), nil
}

func (s *Store) invalidateCache(cartID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, cartID); err != nil {
		s.logger.Warn("cache invalidate error", zap.Error(err))
	}
}

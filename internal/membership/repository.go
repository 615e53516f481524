// Package membership is the boundary to membership state. Status reads are
// point-in-time and never cached beyond one reconciliation pass, because
// membership can change between visits.
package membership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dylanleonard80/peptidefoundry/internal/domain"
	"github.com/lib/pq"
)

// ErrDuplicateActivation means this provider transaction already activated
// a membership. Treated as success by the capture path.
var ErrDuplicateActivation = errors.New("activation transaction already processed")

// Reader is the capability injected into reconciliation and checkout.
type Reader interface {
	Status(ctx context.Context, userID string) (domain.MembershipStatus, error)
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Status returns the current membership state. Guests (empty user id) and
// unknown users are inactive.
func (r *Repository) Status(ctx context.Context, userID string) (domain.MembershipStatus, error) {
	if userID == "" {
		return domain.Guest, nil
	}

	query := `SELECT active, renews_or_expires_at FROM memberships WHERE user_id = $1`

	var status domain.MembershipStatus
	var renews sql.NullTime
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&status.Active, &renews)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Guest, nil
	}
	if err != nil {
		return domain.MembershipStatus{}, fmt.Errorf("query membership for %s: %w", userID, err)
	}

	if renews.Valid {
		status.RenewsOrExpiresAt = &renews.Time
	}
	// expired memberships read as inactive regardless of the stored flag
	if status.Active && status.RenewsOrExpiresAt != nil && status.RenewsOrExpiresAt.Before(time.Now()) {
		status.Active = false
	}
	return status, nil
}

// Activate records the single activation transaction, idempotent on the
// provider transaction id.
func (r *Repository) Activate(ctx context.Context, userID, transactionID string, renewsAt time.Time) error {
	query := `INSERT INTO memberships (user_id, active, renews_or_expires_at, provider_transaction_id, updated_at)
	          VALUES ($1, TRUE, $2, $3, NOW())
	          ON CONFLICT (user_id) DO UPDATE
	          SET active = TRUE, renews_or_expires_at = $2, provider_transaction_id = $3, updated_at = NOW()`

	_, err := r.db.ExecContext(ctx, query, userID, renewsAt, transactionID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateActivation
		}
		return fmt.Errorf("activate membership for %s: %w", userID, err)
	}
	return nil
}

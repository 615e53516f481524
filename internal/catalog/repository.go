// Package catalog is the read-only accessor for authoritative prices and
// stock flags. The catalog tables are owned by admin inventory tooling;
// nothing in the storefront core writes to them.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dylanleonard80/peptidefoundry/internal/domain"
)

// Accessor is the consumer-facing contract. Implementations must not fail
// on unknown identities: Lookup returns domain.ErrVariantNotFound and
// LookupMany simply omits the identity from the result map.
type Accessor interface {
	Lookup(ctx context.Context, slug, size string) (*domain.PriceCatalogEntry, error)
	LookupMany(ctx context.Context, keys []domain.VariantKey) (map[domain.VariantKey]domain.PriceCatalogEntry, error)
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const entryColumns = `v.product_slug, v.size_label, v.regular_price, v.member_price, v.in_stock, p.in_stock`

func (r *Repository) Lookup(ctx context.Context, slug, size string) (*domain.PriceCatalogEntry, error) {
	query := fmt.Sprintf(`SELECT %s
	          FROM variants v
	          JOIN products p ON p.slug = v.product_slug
	          WHERE v.product_slug = $1 AND v.size_label = $2`, entryColumns)

	entry, err := scanEntry(r.db.QueryRowContext(ctx, query, slug, size))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrVariantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query variant %s/%s: %w", slug, size, err)
	}
	return entry, nil
}

// LookupMany fetches every requested identity in one round trip. Missing
// identities are absent from the map, never an error.
func (r *Repository) LookupMany(ctx context.Context, keys []domain.VariantKey) (map[domain.VariantKey]domain.PriceCatalogEntry, error) {
	result := make(map[domain.VariantKey]domain.PriceCatalogEntry, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	placeholders := make([]string, 0, len(keys))
	args := make([]interface{}, 0, len(keys)*2)
	for i, key := range keys {
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d)", i*2+1, i*2+2))
		args = append(args, key.Slug, key.Size)
	}

	query := fmt.Sprintf(`SELECT %s
	          FROM variants v
	          JOIN products p ON p.slug = v.product_slug
	          WHERE (v.product_slug, v.size_label) IN (%s)`,
		entryColumns, strings.Join(placeholders, ", "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan variant row: %w", err)
		}
		result[domain.VariantKey{Slug: entry.Slug, Size: entry.Size}] = *entry
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return result, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*domain.PriceCatalogEntry, error) {
	var entry domain.PriceCatalogEntry
	var memberPrice sql.NullString
	var regular string

	err := row.Scan(
		&entry.Slug,
		&entry.Size,
		&regular,
		&memberPrice,
		&entry.VariantInStock,
		&entry.ProductInStock,
	)
	if err != nil {
		return nil, err
	}

	entry.RegularPrice, err = parsePrice(regular)
	if err != nil {
		return nil, err
	}
	if memberPrice.Valid {
		mp, err := parsePrice(memberPrice.String)
		if err != nil {
			return nil, err
		}
		entry.MemberPrice = &mp
	}
	return &entry, nil
}

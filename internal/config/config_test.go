package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "storefront", cfg.PostgresDB)
	assert.True(t, cfg.MemberFallbackDiscount.Equal(decimal.RequireFromString("0.23")))
	assert.True(t, cfg.FlatShippingRate.Equal(decimal.RequireFromString("9.95")))
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("MEMBER_FALLBACK_DISCOUNT", "0.15")
	t.Setenv("DB_PORT", "5544")

	cfg := Load()

	assert.Equal(t, "9999", cfg.HTTPPort)
	assert.Equal(t, 5544, cfg.PostgresPort)
	assert.True(t, cfg.MemberFallbackDiscount.Equal(decimal.RequireFromString("0.15")))
}

func TestLoad_BadValuesFallBack(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-number")
	t.Setenv("MEMBER_FALLBACK_DISCOUNT", "banana")

	cfg := Load()

	assert.Equal(t, 5432, cfg.PostgresPort)
	assert.True(t, cfg.MemberFallbackDiscount.Equal(decimal.RequireFromString("0.23")))
}

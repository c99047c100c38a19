package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setEnvs is a helper that sets multiple env vars for the test's duration.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnvs(t, map[string]string{
		"ENVIRONMENT": "development",
	})

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8010, cfg.HTTPPort)
	assert.Equal(t, "marketplace_db", cfg.PostgresDB)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 720, cfg.CartTTL)
	assert.Equal(t, int64(5000), cfg.FreeShippingThresholdCents)
	assert.Equal(t, int64(599), cfg.FlatShippingFeeCents)
	assert.Equal(t, 0, cfg.TaxRateBps)
}

func TestLoad_MultipleKafkaBrokers(t *testing.T) {
	setEnvs(t, map[string]string{
		"KAFKA_BROKERS": "broker-1:9092,broker-2:9092",
	})

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_RejectsInvalidPort(t *testing.T) {
	setEnvs(t, map[string]string{
		"MARKETPLACE_HTTP_PORT": "70000",
	})

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid HTTP port")
}

func TestLoad_RejectsZeroCartTTL(t *testing.T) {
	setEnvs(t, map[string]string{
		"CART_TTL_HOURS": "0",
	})

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cart TTL")
}

func TestLoad_RejectsTaxRateAboveFull(t *testing.T) {
	setEnvs(t, map[string]string{
		"TAX_RATE_BPS": "10001",
	})

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "tax rate")
}

func TestLoad_RejectsNegativeShipping(t *testing.T) {
	setEnvs(t, map[string]string{
		"FLAT_SHIPPING_FEE_CENTS": "-1",
	})

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "shipping")
}

func TestPostgresConfig_UsesOverrides(t *testing.T) {
	setEnvs(t, map[string]string{
		"POSTGRES_HOST":       "db.internal",
		"MARKETPLACE_DB_NAME": "marketplace_test",
		"POSTGRES_MAX_CONNS":  "50",
	})

	cfg, err := Load()
	require.NoError(t, err)

	pg := cfg.PostgresConfig()
	assert.Equal(t, "db.internal", pg.Host)
	assert.Equal(t, "marketplace_test", pg.DBName)
	assert.Equal(t, int32(50), pg.MaxConns)
}

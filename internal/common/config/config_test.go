package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DEPOSIT_KEY_SECRET", strings.Repeat("ab", 32))
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, 2, cfg.Signup.ReferralGroups)
	assert.Equal(t, 3, cfg.Signup.MaxAttempts)
	assert.Equal(t, 8, cfg.Signup.ReferralCodeLength)
	assert.Equal(t, 8*time.Second, cfg.Wallet.DepositTimeout)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
	assert.False(t, cfg.Postgres.AutoMigrate)
	assert.Empty(t, cfg.Server.TrustedProxies)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("REFERRAL_GROUP_COUNT", "3")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.1,10.0.0.2")
	t.Setenv("DB_AUTO_MIGRATE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Signup.ReferralGroups)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.Server.TrustedProxies)
	assert.True(t, cfg.Postgres.AutoMigrate)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	setRequired(t)
	t.Setenv("REFERRAL_GROUP_COUNT", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REFERRAL_GROUP_COUNT")
}

func TestLoad_RejectsShortDepositSecret(t *testing.T) {
	setRequired(t)
	t.Setenv("DEPOSIT_KEY_SECRET", "abcd")

	_, err := Load()
	require.Error(t, err)
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "qai", SSLMode: "require"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=qai sslmode=require", p.GetDSN())
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FailsWithoutSecretOutsideTest(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("RAZORPAY_KEY_ID", "rzp_live_x")
	t.Setenv("RAZORPAY_KEY_SECRET", "")

	cfg, err := Load()
	assert.ErrorIs(t, err, ErrMissingGatewaySecret)
	assert.Nil(t, cfg)
}

func TestLoad_TestEnvUsesPlaceholders(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("RAZORPAY_KEY_ID", "")
	t.Setenv("RAZORPAY_KEY_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsTest())
	assert.Equal(t, "test_secret", cfg.RazorpayKeySecret)
	assert.Equal(t, "INR", cfg.Currency)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test_abc")
	t.Setenv("RAZORPAY_KEY_SECRET", "s3cret")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, "s3cret", cfg.RazorpayKeySecret)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storefront.yaml")
	content := "app_env: test\nhttp_port: \"7070\"\nmerchant_name: Parts Bin\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("STOREFRONT_CONFIG", path)
	t.Setenv("APP_ENV", "")
	t.Setenv("HTTP_PORT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.HTTPPort)
	assert.Equal(t, "Parts Bin", cfg.MerchantName)
}

func TestRead_SkipsValidation(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("RAZORPAY_KEY_ID", "")
	t.Setenv("RAZORPAY_KEY_SECRET", "")
	t.Setenv("MONGO_DB_NAME", "ops")

	cfg, err := Read()
	require.NoError(t, err)
	assert.Equal(t, "ops", cfg.MongoDBName)
	assert.Empty(t, cfg.RazorpayKeySecret)
	assert.Empty(t, cfg.MigrationsPath)
}

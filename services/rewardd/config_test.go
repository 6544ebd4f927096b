package rewardd_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"azorion/services/rewardd"
	"azorion/storage"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
authority:
  keystore: ./authority.keystore
auth:
  hmac_secret: secret
`)
	cfg, err := rewardd.LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, ":7090", cfg.ListenAddress)
	require.Equal(t, storage.BackendLevelDB, cfg.Storage.Backend)
	require.Equal(t, rewardd.DriverSQLite, cfg.Receipts.Driver)
	require.NotEmpty(t, cfg.Receipts.DSN)
	require.Equal(t, rewardd.EstimatorStatic, cfg.Estimator.Mode)
	require.Equal(t, 15*time.Second, cfg.Scheduler.Interval.Duration)
	require.Equal(t, 2*time.Minute, cfg.Auth.ClockSkew.Duration)
	require.EqualValues(t, 60, cfg.RateLimit.RequestsPerMinute)
}

func TestLoadConfigResolvesSecrets(t *testing.T) {
	t.Setenv("REWARDD_TEST_SECRET", " from-env ")
	t.Setenv("REWARDD_TEST_DSN", "postgres://rewards@localhost/rewards")
	path := writeConfig(t, `
authority:
  keystore: ./authority.keystore
receipts:
  driver: Postgres
  dsn_env: REWARDD_TEST_DSN
auth:
  hmac_secret_env: REWARDD_TEST_SECRET
scheduler:
  enabled: true
  interval: 30s
estimator:
  mode: observed
  window: 5m
  floor: 3
`)
	cfg, err := rewardd.LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Auth.HMACSecret)
	require.Equal(t, rewardd.DriverPostgres, cfg.Receipts.Driver)
	require.Equal(t, "postgres://rewards@localhost/rewards", cfg.Receipts.DSN)
	require.Equal(t, 30*time.Second, cfg.Scheduler.Interval.Duration)
	require.Equal(t, 5*time.Minute, cfg.Estimator.Window.Duration)
	require.EqualValues(t, 3, cfg.Estimator.Floor)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"missing keystore": "auth:\n  disabled: true\n",
		"unknown field":    "authority:\n  keystore: k\nauth:\n  disabled: true\nbogus: 1\n",
		"missing secret":   "authority:\n  keystore: k\n",
		"bad backend":      "authority:\n  keystore: k\nauth:\n  disabled: true\nstorage:\n  backend: redis\n",
		"bad estimator":    "authority:\n  keystore: k\nauth:\n  disabled: true\nestimator:\n  mode: magic\n",
		"bad duration":     "authority:\n  keystore: k\nauth:\n  disabled: true\nscheduler:\n  interval: soon\n",
		"fast scheduler":   "authority:\n  keystore: k\nauth:\n  disabled: true\nscheduler:\n  enabled: true\n  interval: 100ms\n",
		"sample ratio":     "authority:\n  keystore: k\nauth:\n  disabled: true\ntelemetry:\n  sample_ratio: 1.5\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := rewardd.LoadConfig(writeConfig(t, body))
			require.Error(t, err)
		})
	}
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var managedEnv = []string{
	"ORDERFLOW_APP_NAME",
	"ORDERFLOW_APP_ENV",
	"ORDERFLOW_APP_PORT",
	"ORDERFLOW_DATABASE_DRIVER",
	"ORDERFLOW_DATABASE_HOST",
	"ORDERFLOW_DATABASE_PORT",
	"ORDERFLOW_DATABASE_PASSWORD",
	"ORDERFLOW_DATABASE_DBNAME",
	"ORDERFLOW_DATABASE_SSLMODE",
	"ORDERFLOW_DATABASE_MAX_OPEN_CONNS",
	"ORDERFLOW_DATABASE_MAX_IDLE_CONNS",
	"ORDERFLOW_REDIS_HOST",
	"ORDERFLOW_JWT_SECRET",
	"ORDERFLOW_LOCK_TTL",
	"ORDERFLOW_STORAGE_BUCKET",
	"ORDERFLOW_SWAGGER_ENABLED",
	"ORDERFLOW_TELEMETRY_SAMPLING_RATIO",
}

// clearEnv blanks every variable the tests touch; viper ignores empty values.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range managedEnv {
		t.Setenv(k, "")
	}
}

func setValidProductionBase(t *testing.T) {
	t.Setenv("ORDERFLOW_APP_ENV", "production")
	t.Setenv("ORDERFLOW_JWT_SECRET", "this-is-a-very-secure-jwt-secret-key-32chars")
	t.Setenv("ORDERFLOW_DATABASE_PASSWORD", "secure-password")
	t.Setenv("ORDERFLOW_DATABASE_SSLMODE", "require")
	t.Setenv("ORDERFLOW_REDIS_HOST", "redis.internal")
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "orderflow", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "postgres", cfg.Database.Driver)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "orderflow", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, 10*time.Second, cfg.Lock.TTL)
		assert.Equal(t, "orderflow:lock:order:", cfg.Lock.KeyPrefix)
		assert.Equal(t, 15*time.Minute, cfg.Storage.PresignExpiry)
		assert.False(t, cfg.Storage.Enabled())
		assert.Equal(t, "orderflow", cfg.Telemetry.ServiceName)
		assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
		assert.False(t, cfg.Event.RelayEnabled)
		assert.Equal(t, time.Minute, cfg.Event.RelayGrace)
		assert.Equal(t, 100, cfg.Event.RelayBatchSize)
		assert.Zero(t, cfg.HTTP.RateLimitRequests)
		assert.Equal(t, time.Minute, cfg.HTTP.RateLimitWindow)
	})

	t.Run("loads values from environment variables with ORDERFLOW prefix", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ORDERFLOW_APP_NAME", "orderflow-test")
		t.Setenv("ORDERFLOW_APP_PORT", "9000")
		t.Setenv("ORDERFLOW_DATABASE_HOST", "testdb.local")
		t.Setenv("ORDERFLOW_DATABASE_PORT", "5433")
		t.Setenv("ORDERFLOW_DATABASE_MAX_OPEN_CONNS", "50")
		t.Setenv("ORDERFLOW_DATABASE_MAX_IDLE_CONNS", "10")
		t.Setenv("ORDERFLOW_LOCK_TTL", "30s")
		t.Setenv("ORDERFLOW_STORAGE_BUCKET", "receipts-bucket")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "orderflow-test", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, 50, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10, cfg.Database.MaxIdleConns)
		assert.Equal(t, 30*time.Second, cfg.Lock.TTL)
		assert.True(t, cfg.Storage.Enabled())
		assert.Equal(t, "orderflow-test", cfg.Telemetry.ServiceName)
	})

	t.Run("rejects unknown database driver", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ORDERFLOW_DATABASE_DRIVER", "mysql")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.driver")
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ORDERFLOW_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("ORDERFLOW_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("rejects sub-second lock ttl", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ORDERFLOW_LOCK_TTL", "100ms")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "lock.ttl")
	})

	t.Run("rejects sampling ratio above one", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ORDERFLOW_TELEMETRY_SAMPLING_RATIO", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sampling_ratio")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	t.Run("passes validation with valid production config", func(t *testing.T) {
		clearEnv(t)
		setValidProductionBase(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})

	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"short jwt secret", map[string]string{"ORDERFLOW_JWT_SECRET": "short"}, "jwt.secret must be at least 32 characters"},
		{"missing database password", map[string]string{"ORDERFLOW_DATABASE_PASSWORD": ""}, "database.password is required"},
		{"ssl disabled", map[string]string{"ORDERFLOW_DATABASE_SSLMODE": "disable"}, "database.sslmode cannot be 'disable'"},
		{"sqlite driver", map[string]string{"ORDERFLOW_DATABASE_DRIVER": "sqlite"}, "database.driver must be postgres"},
		{"no redis", map[string]string{"ORDERFLOW_REDIS_HOST": ""}, "redis.host is required"},
		{"swagger enabled", map[string]string{"ORDERFLOW_SWAGGER_ENABLED": "true"}, "swagger must be disabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			setValidProductionBase(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid postgres DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Driver:   "postgres",
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{Driver: "postgres", Host: "localhost", Port: 5432, User: "user", Password: "pass@word#123", DBName: "db", SSLMode: "disable"}
		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})

	t.Run("sqlite uses the database name as path", func(t *testing.T) {
		cfg := DatabaseConfig{Driver: "sqlite", DBName: "file:orderflow.db"}
		assert.Equal(t, "file:orderflow.db", cfg.DSN())
	})
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", cfg.Addr())
}

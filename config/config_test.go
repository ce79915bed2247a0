package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("ALERT_URGENT_DAYS", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("KAFKA_ENABLED", "")
	t.Setenv("ALERT_REFRESH_INTERVAL_SECONDS", "")

	cfg := Load()

	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 7, cfg.Procurement.AlertUrgentDays)
	assert.Equal(t, 14, cfg.Procurement.AlertImpendingDays)
	assert.Equal(t, int64(2), cfg.Procurement.SafetyStockMultiplier)
	assert.Equal(t, "PO", cfg.Procurement.OrderNoPrefix)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 24*time.Hour, cfg.Redis.IdempotencyTTL)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Zero(t, cfg.Worker.AlertRefreshInterval)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("ALERT_URGENT_DAYS", "5")
	t.Setenv("KAFKA_BROKERS", "k1:9092, ,k2:9092")
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")
	t.Setenv("TIMEZONE", "Not/AZone")
	t.Setenv("KAFKA_ENABLED", "false")
	t.Setenv("REDIS_ENABLED", "1")
	t.Setenv("ALERT_REFRESH_INTERVAL_SECONDS", "60")

	cfg := Load()

	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, 5, cfg.Procurement.AlertUrgentDays)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, time.UTC, cfg.Server.Timezone)
	assert.False(t, cfg.Kafka.Enabled)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, time.Minute, cfg.Worker.AlertRefreshInterval)
}

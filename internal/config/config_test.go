package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, "data/event_details.json", cfg.Ingest.EventsFile)
	assert.Equal(t, "data/artist_profiles.json", cfg.Ingest.ArtistsFile)
	assert.Equal(t, time.Now().Year(), cfg.Ingest.TargetYear)
	assert.False(t, cfg.Ingest.ForceYear)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, "atrium.events.upserted", cfg.Kafka.Topics.EventUpserted)
	assert.Equal(t, 14, cfg.Site.DaysAhead)
	assert.Equal(t, 30*time.Minute, cfg.Redis.LockTTL)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://jazz:jazz@db:5432/jazz?sslmode=disable")
	t.Setenv("INGEST_TARGET_YEAR", "2025")
	t.Setenv("INGEST_FORCE_YEAR", "true")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("SITE_DAYS_AHEAD", "7")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("ADMIN_JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://jazz:jazz@db:5432/jazz?sslmode=disable", cfg.Database.DSN)
	assert.Equal(t, 2025, cfg.Ingest.TargetYear)
	assert.True(t, cfg.Ingest.ForceYear)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 7, cfg.Site.DaysAhead)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "s3cret", cfg.Admin.JWTSecret)
}

func TestSiteLocationFallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, SiteConfig{TimeZone: "Not/AZone"}.Location())
	assert.Equal(t, "America/New_York", SiteConfig{TimeZone: "America/New_York"}.Location().String())
}

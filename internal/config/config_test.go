package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  mode: test\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "test", cfg.Server.Mode)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "./data/devdash.db", cfg.Database.DSN())
	assert.Equal(t, 10*time.Second, cfg.Scraper.Timeout)
	assert.Equal(t, 3, cfg.Scraper.RecencyDays)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, "America/New_York", cfg.Scheduler.Timezone)
	assert.True(t, cfg.Sources.Summer2026.Enabled)
	assert.True(t, cfg.Sources.SWE2025.Enabled)
	assert.False(t, cfg.Archive.Enabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_PASSWORD", "s3cret")
	path := writeConfig(t, `
server:
  port: 9090
database:
  driver: postgres
  host: db.internal
  user: devdash
  dbname: devdash
scraper:
  recency_days: 7
  timeout: 30s
scheduler:
  daily_at: "06:30"
  timezone: UTC
sources:
  swe2025:
    enabled: false
    raw_url: http://mirror.test/README.md
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "host=db.internal port=5432 user=devdash password=s3cret dbname=devdash sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, 7, cfg.Scraper.RecencyDays)
	assert.Equal(t, 30*time.Second, cfg.Scraper.Timeout)
	assert.False(t, cfg.Sources.SWE2025.Enabled)
	assert.Equal(t, "http://mirror.test/README.md", cfg.Sources.SWE2025.RawURL)

	spec, err := cfg.Scheduler.CronSpec()
	require.NoError(t, err)
	assert.Equal(t, "30 6 * * *", spec)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad port", "server:\n  port: 70000\n"},
		{"bad driver", "database:\n  driver: mysql\n"},
		{"negative recency", "scraper:\n  recency_days: -1\n"},
		{"bad daily_at", "scheduler:\n  daily_at: \"8am\"\n"},
		{"bad timezone", "scheduler:\n  timezone: Mars/Olympus\n"},
		{"archive without bucket", "archive:\n  enabled: true\n  bucket: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestCronSpec(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "08:00", want: "0 8 * * *"},
		{in: "8:05", want: "5 8 * * *"},
		{in: "23:59", want: "59 23 * * *"},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		s := SchedulerConfig{DailyAt: tt.in}
		got, err := s.CronSpec()
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

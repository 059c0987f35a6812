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

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 30, cfg.Calendar.MedicationHorizonDays)
	assert.Equal(t, 5*time.Minute, cfg.Calendar.CacheTTL)
	assert.Equal(t, DebounceScopeNote, cfg.Notes.DebounceScope)
	assert.Equal(t, 1500*time.Millisecond, cfg.Notes.DebounceWindow)
	assert.Equal(t, "*/5 * * * *", cfg.Notes.SweepCron)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("NOTES_DEBOUNCE_SCOPE", " Service ")
	t.Setenv("NOTES_DEBOUNCE_WINDOW", "250ms")
	t.Setenv("CALENDAR_MEDICATION_HORIZON_DAYS", "0")
	t.Setenv("CALENDAR_CACHE_TTL", "not-a-duration")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("PUBLIC_BASE_URL", "https://api.example/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DebounceScopeService, cfg.Notes.DebounceScope)
	assert.Equal(t, 250*time.Millisecond, cfg.Notes.DebounceWindow)
	assert.Equal(t, 30, cfg.Calendar.MedicationHorizonDays)
	assert.Equal(t, 5*time.Minute, cfg.Calendar.CacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "https://api.example", cfg.Calendar.PublicBaseURL)
}

func TestCalendarLocationFallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, CalendarConfig{}.Location())
	assert.Equal(t, time.UTC, CalendarConfig{Timezone: "Nowhere/Invalid"}.Location())
}

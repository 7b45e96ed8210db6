package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"SERVER_PORT", "ALLOWED_ORIGINS", "ATTENDANCE_PIN_LENGTH",
		"ATTENDANCE_DEFAULT_DURATION_MINUTES", "EXPIRY_SWEEP_SCHEDULE", "AI_API_KEY",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Nil(t, cfg.AllowedOrigins)
	assert.Equal(t, 6, cfg.Attendance.PinLength)
	assert.Equal(t, 10, cfg.Attendance.DefaultDurationMinutes)
	assert.Equal(t, 5*time.Second, cfg.Attendance.RosterPollInterval)
	assert.Equal(t, "@every 15s", cfg.Attendance.ExpirySweepSchedule)
	assert.Empty(t, cfg.AI.APIKey)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", " https://a.school.test, ,https://b.school.test ")
	t.Setenv("ATTENDANCE_PIN_LENGTH", "20")
	t.Setenv("ATTENDANCE_MAX_DURATION_MINUTES", "not-a-number")
	t.Setenv("AI_TEMPERATURE", "0.9")

	cfg := Load()
	assert.Equal(t, []string{"https://a.school.test", "https://b.school.test"}, cfg.AllowedOrigins)
	assert.Equal(t, 10, cfg.Attendance.PinLength, "pin length is clamped")
	assert.Equal(t, 240, cfg.Attendance.MaxDurationMinutes, "invalid numbers fall back")
	assert.Equal(t, 0.9, cfg.AI.Temperature)
}

func TestLoad_RosterPollIntervalBounds(t *testing.T) {
	for raw, want := range map[string]time.Duration{
		"0":   time.Second,
		"-3":  time.Second,
		"2":   2 * time.Second,
		"600": time.Minute,
	} {
		t.Setenv("ROSTER_POLL_INTERVAL_SECONDS", raw)
		assert.Equal(t, want, Load().Attendance.RosterPollInterval, raw)
	}
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "login:student:42", CacheKey.StudentSessionKey(42))
	assert.Equal(t, "attendance:pin:123456", CacheKey.AttendancePinKey("123456"))
	assert.Equal(t, "attendance:session:abc:events", CacheKey.AttendanceSessionChannel("abc"))
}

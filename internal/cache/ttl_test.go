package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLPolicy(t *testing.T) {
	policy := DefaultTTLPolicy()

	t.Run("CurrentSeason", func(t *testing.T) {
		assert.Equal(t, 24*time.Hour, policy.For("shot_charts", ContextCurrent))
	})

	t.Run("CompletedSeason", func(t *testing.T) {
		assert.Equal(t, 30*24*time.Hour, policy.For("shot_charts", ContextCompleted))
	})

	t.Run("NoSeasonContext", func(t *testing.T) {
		assert.Equal(t, 7*24*time.Hour, policy.For("career_stats", ContextNone))
	})

	t.Run("ZeroValueFallsBack", func(t *testing.T) {
		var zero TTLPolicy
		assert.Equal(t, CurrentSeasonTTL, zero.For("shot_charts", ContextCurrent))
		assert.Equal(t, CompletedSeasonTTL, zero.For("shot_charts", ContextCompleted))
		assert.Equal(t, DefaultTTL, zero.For("shot_charts", ContextNone))
	})

	t.Run("Override", func(t *testing.T) {
		custom := TTLPolicy{Current: time.Hour}
		assert.Equal(t, time.Hour, custom.For("shot_charts", ContextCurrent))
		assert.Equal(t, CompletedSeasonTTL, custom.For("shot_charts", ContextCompleted))
	})
}

func TestSeasonContextString(t *testing.T) {
	assert.Equal(t, "none", ContextNone.String())
	assert.Equal(t, "current", ContextCurrent.String())
	assert.Equal(t, "completed", ContextCompleted.String())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "30s", FormatDuration(30*time.Second))
	assert.Equal(t, "5m", FormatDuration(5*time.Minute))
	assert.Equal(t, "2h", FormatDuration(2*time.Hour))
	assert.Equal(t, "2h30m", FormatDuration(2*time.Hour+30*time.Minute))
	assert.Equal(t, "3d", FormatDuration(72*time.Hour))
	assert.Equal(t, "3d2h", FormatDuration(74*time.Hour))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512B", FormatBytes(512))
	assert.Equal(t, "1.0KB", FormatBytes(1024))
	assert.Equal(t, "1.5MB", FormatBytes(3*1024*1024/2))
}

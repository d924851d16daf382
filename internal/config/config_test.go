package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATA_ENCRYPTION_KEY", "")
	t.Setenv("PREVUE_API_KEY", "")
	t.Setenv("PREVUE_ALLOW_PRIVATE_URLS", "")
	t.Setenv("SCHEDULE_BLOCK_HOURS", "")
	t.Setenv("SCHEDULE_DAY_START_HOUR", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3080, cfg.Port)
	assert.Equal(t, 24, cfg.ScheduleBlockHours)
	assert.Equal(t, 4, cfg.ScheduleDayStartHour)
	assert.True(t, cfg.AllowPrivateURLs)
}

func TestAllowPrivateURLsFalsey(t *testing.T) {
	for _, v := range []string{"0", "false", "no", "off", "FALSE"} {
		t.Setenv("PREVUE_ALLOW_PRIVATE_URLS", v)
		cfg, err := Load("")
		require.NoError(t, err)
		assert.False(t, cfg.AllowPrivateURLs, "value %q should disable private URLs", v)
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	c := Default()
	c.Port = 0
	assert.Error(t, c.Validate())
}

func TestValidateRejectsBadDayStartHour(t *testing.T) {
	c := Default()
	c.ScheduleDayStartHour = 24
	assert.Error(t, c.Validate())
}

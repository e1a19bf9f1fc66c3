package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(overrides map[string]interface{}) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for key, value := range overrides {
		v.Set(key, value)
	}
	return v
}

func TestFromViperDefaults(t *testing.T) {
	cfg, err := fromViper(newViper(nil))
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "70", cfg.Grading.PassThreshold.String())
	assert.Equal(t, "renormalize", cfg.Grading.MissingGradePolicy)
	assert.Equal(t, ConflictPolicyBlock, cfg.Schedule.ConflictPolicy)
	assert.Equal(t, 5*time.Minute, cfg.Stats.CacheTTL)
	assert.True(t, cfg.Stats.WarmOnWrite)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestFromViperOverrides(t *testing.T) {
	cfg, err := fromViper(newViper(map[string]interface{}{
		"GRADING_PASS_THRESHOLD":   "65.5",
		"GRADING_MISSING_POLICY":   "ZERO",
		"SCHEDULE_CONFLICT_POLICY": "confirm",
		"STATS_CACHE_TTL":          "bogus",
		"ALLOWED_ORIGINS":          "http://a.test, ,http://b.test",
	}))
	require.NoError(t, err)

	assert.Equal(t, "65.5", cfg.Grading.PassThreshold.String())
	assert.Equal(t, "zero", cfg.Grading.MissingGradePolicy)
	assert.Equal(t, ConflictPolicyConfirm, cfg.Schedule.ConflictPolicy)
	assert.Equal(t, 5*time.Minute, cfg.Stats.CacheTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}

func TestFromViperRejectsInvalidValues(t *testing.T) {
	_, err := fromViper(newViper(map[string]interface{}{"GRADING_PASS_THRESHOLD": "120"}))
	assert.Error(t, err)

	_, err = fromViper(newViper(map[string]interface{}{"GRADING_PASS_THRESHOLD": "seventy"}))
	assert.Error(t, err)

	_, err = fromViper(newViper(map[string]interface{}{"SCHEDULE_CONFLICT_POLICY": "ignore"}))
	assert.Error(t, err)
}

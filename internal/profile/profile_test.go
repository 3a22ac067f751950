package profile

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"HEALTHLOG_EDAMAM_APP_ID", "HEALTHLOG_EDAMAM_APP_KEY", "HEALTHLOG_EDAMAM_REQUESTS_PER_MINUTE",
		"HEALTHLOG_TRANSLATE_PROVIDER", "HEALTHLOG_TRANSLATE_TARGET", "HEALTHLOG_TRIGGER_CAPACITY",
		"HEALTHLOG_TELEGRAM_BOT_TOKEN", "HEALTHLOG_WEBHOOK_URL",
	} {
		t.Setenv(key, "")
	}

	p := &Profile{}
	p.FromEnv()

	assert.False(t, p.IsNutritionEnabled())
	assert.Equal(t, 10, p.EdamamRequestsPerMinute)
	assert.Equal(t, "en", p.TranslateTarget)
	assert.Equal(t, "", p.TranslateProvider)
	assert.Equal(t, 64, p.TriggerCapacity)
	assert.Equal(t, 30, p.LLMTimeout)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("HEALTHLOG_EDAMAM_APP_ID", "app")
	t.Setenv("HEALTHLOG_EDAMAM_APP_KEY", "key")
	t.Setenv("HEALTHLOG_EDAMAM_REQUESTS_PER_MINUTE", "20")
	t.Setenv("HEALTHLOG_TRANSLATE_PROVIDER", "LLM")
	t.Setenv("HEALTHLOG_LLM_API_KEY", "sk-test")
	t.Setenv("HEALTHLOG_TRIGGER_CAPACITY", "not-a-number")

	p := &Profile{}
	p.FromEnv()

	assert.True(t, p.IsNutritionEnabled())
	assert.Equal(t, 20, p.EdamamRequestsPerMinute)
	assert.Equal(t, TranslateLLM, p.TranslateProvider)
	assert.Equal(t, 64, p.TriggerCapacity)
}

func TestFromEnvDisablesTranslationWithoutKey(t *testing.T) {
	t.Setenv("HEALTHLOG_TRANSLATE_PROVIDER", "google")
	t.Setenv("HEALTHLOG_GOOGLE_API_KEY", "")

	p := &Profile{}
	p.FromEnv()
	assert.Equal(t, "", p.TranslateProvider)

	t.Setenv("HEALTHLOG_TRANSLATE_PROVIDER", "babelfish")
	p.FromEnv()
	assert.Equal(t, "", p.TranslateProvider)
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	p := &Profile{Mode: "staging", Data: dir, Timezone: "Asia/Seoul"}
	require.NoError(t, p.Validate())

	assert.Equal(t, "demo", p.Mode)
	assert.Equal(t, "sqlite", p.Driver)
	assert.Equal(t, filepath.Join(dir, "healthlog_demo.db"), p.DSN)
	assert.Equal(t, "Asia/Seoul", p.Location().String())
	assert.True(t, p.IsDev())
}

func TestValidateErrors(t *testing.T) {
	dir := t.TempDir()

	err := (&Profile{Mode: "dev", Data: dir, Timezone: "Mars/Olympus"}).Validate()
	assert.Error(t, err)

	err = (&Profile{Mode: "dev", Data: dir, Driver: "postgres"}).Validate()
	assert.Error(t, err)

	err = (&Profile{Mode: "dev", Data: filepath.Join(dir, "missing")}).Validate()
	assert.Error(t, err)
}

func TestLocationDefault(t *testing.T) {
	assert.Equal(t, time.Local, (&Profile{}).Location())
	assert.Equal(t, "UTC", (&Profile{Timezone: "UTC"}).Location().String())
}

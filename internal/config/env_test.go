package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func base() map[string]string {
	return map[string]string{
		"TELEGRAM_BOT_TOKEN":     "123456:ABCDEF-secret",
		"TELEGRAM_ADMIN_CHAT_ID": "42",
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envOf(base()))
	require.NoError(t, err)

	assert.Equal(t, int64(42), cfg.TelegramAdminChatID)
	assert.Equal(t, int64(42), cfg.AlertChatID)
	assert.Equal(t, 5*time.Minute, cfg.PollInterval)
	assert.Equal(t, "", cfg.PersistPath)
	assert.Equal(t, "https://api.dexscreener.com", cfg.DexScreenerURL)
	assert.Equal(t, 60, cfg.RequestsPerMin)
	assert.Equal(t, 4, cfg.FetchConcurrency)
	assert.False(t, cfg.PruneStopped)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestFromEnv_Overrides(t *testing.T) {
	env := base()
	env["ALERT_CHAT_ID"] = "-1001234"
	env["POLL_INTERVAL"] = "1d"
	env["PERSIST_PATH"] = "state.yaml"
	env["DEXSCREENER_RPM"] = "300"
	env["FETCH_CONCURRENCY"] = "8"
	env["PRUNE_STOPPED"] = "true"
	env["METRICS_ADDR"] = ":9090"
	env["LOG_LEVEL"] = "DEBUG"

	cfg, err := FromEnv(envOf(env))
	require.NoError(t, err)
	assert.Equal(t, int64(-1001234), cfg.AlertChatID)
	assert.Equal(t, 24*time.Hour, cfg.PollInterval)
	assert.Equal(t, "state.yaml", cfg.PersistPath)
	assert.Equal(t, 300, cfg.RequestsPerMin)
	assert.Equal(t, 8, cfg.FetchConcurrency)
	assert.True(t, cfg.PruneStopped)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestFromEnv_LegacyPollSecondsAndJSONPath(t *testing.T) {
	env := base()
	env["POLL_SECONDS"] = "120"
	env["PERSIST_JSON_PATH"] = "watch.json"

	cfg, err := FromEnv(envOf(env))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.PollInterval)
	assert.Equal(t, "watch.json", cfg.PersistPath)
}

func TestFromEnv_MissingCredentialIsConfigurationError(t *testing.T) {
	_, err := FromEnv(envOf(map[string]string{}))

	var ce *ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Len(t, ce.Problems, 2)
	assert.Contains(t, err.Error(), "TELEGRAM_BOT_TOKEN is required")
	assert.Contains(t, err.Error(), "TELEGRAM_ADMIN_CHAT_ID is required")
}

func TestFromEnv_AccumulatesProblems(t *testing.T) {
	env := base()
	env["POLL_INTERVAL"] = "soon"
	env["FETCH_CONCURRENCY"] = "-1"
	env["PRUNE_STOPPED"] = "maybe"
	env["LOG_LEVEL"] = "verbose"
	env["DEXSCREENER_URL"] = "ftp://example"

	_, err := FromEnv(envOf(env))
	var ce *ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Len(t, ce.Problems, 5)
}

func TestFromEnv_RejectsTinyInterval(t *testing.T) {
	env := base()
	env["POLL_INTERVAL"] = "1s"
	_, err := FromEnv(envOf(env))
	require.Error(t, err)
}

func TestRedactedSummaryHidesToken(t *testing.T) {
	cfg, err := FromEnv(envOf(base()))
	require.NoError(t, err)

	s := cfg.RedactedSummary()
	assert.False(t, strings.Contains(s, "ABCDEF-secret"))
	assert.Contains(t, s, "123456...(redacted)")
	assert.Contains(t, s, "persist=(memory)")
}

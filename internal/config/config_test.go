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
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "server:\n  port: \"9000\"\n"))
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, 30*time.Second, cfg.LLM.RequestTimeout)
	assert.Equal(t, 3, cfg.LLM.MaxFailuresBeforeSwitch)
	assert.Equal(t, 20, cfg.Chat.HistoryLimit)
	assert.Equal(t, 10, cfg.Chat.AdvisorAttendanceWindow)
	assert.Equal(t, 24*time.Hour, cfg.Admin.TokenTTL)
}

func TestLoadConfigExpandsSecrets(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("ADMIN_HASH", "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA")

	cfg, err := LoadConfig(writeConfig(t, `
llm:
  request_timeout: 5s
  providers:
    - type: groq
      api_key: ${GROQ_API_KEY}
      requests_per_minute: 30
admin:
  password_hash: ${ADMIN_HASH}
`))
	require.NoError(t, err)

	require.Len(t, cfg.LLM.Providers, 1)
	assert.Equal(t, "gsk-test", cfg.LLM.Providers[0].APIKey)
	assert.Equal(t, 30, cfg.LLM.Providers[0].RequestsPerMinute)
	assert.Equal(t, 5*time.Second, cfg.LLM.RequestTimeout)
	assert.Equal(t, "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA", cfg.Admin.PasswordHash)
}

func TestLoadConfigKeepsLiteralHash(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "admin:\n  password_hash: \"$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA", cfg.Admin.PasswordHash)
}

func TestLoadConfigValidation(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "database:\n  type: mysql\n"))
	assert.ErrorContains(t, err, "unknown database type")

	_, err = LoadConfig(writeConfig(t, "database:\n  type: postgres\n"))
	assert.ErrorContains(t, err, "database.url")

	_, err = LoadConfig(writeConfig(t, "llm:\n  request_timeout: -1s\n"))
	assert.ErrorContains(t, err, "request_timeout")

	_, err = LoadConfig(writeConfig(t, "telegram:\n  enabled: true\n"))
	assert.ErrorContains(t, err, "bot_token")

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestLoadConfigTelegramChats(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "telegram:\n  chats:\n    123456789: [12, 13]\n    -1001: [7]\n"))
	require.NoError(t, err)
	assert.Equal(t, map[int64][]int64{123456789: {12, 13}, -1001: {7}}, cfg.Telegram.Chats)
}

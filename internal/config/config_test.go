package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9090
ledger:
  max_conflict_retries: 7
  lock_ttl: 5s
outbox:
  rate_per_second: 2.5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 7, cfg.Ledger.MaxConflictRetries)
	assert.Equal(t, 5*time.Second, cfg.Ledger.LockTTL)
	assert.Equal(t, 2.5, cfg.Outbox.RatePerSecond)

	// 文件中未出现的键取默认值
	assert.Equal(t, "campuscoin", cfg.MySQL.Database)
	assert.Equal(t, "log", cfg.Notifier.Driver)
	assert.Equal(t, 50*time.Millisecond, cfg.Ledger.LockRetryInterval)
}

func TestLoadConfig_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("CAMPUSCOIN_MYSQL_PASSWORD", "s3cret")
	t.Setenv("CAMPUSCOIN_SERVER_PORT", "7070")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.MySQL.Password)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

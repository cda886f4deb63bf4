package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/amutnick/Runecast/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("RUNECAST_CONFIG", "")
	return home
}

func TestLoad_Defaults(t *testing.T) {
	home := isolate(t)

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".config", "runecast", "config.yaml"), cfg.Path)
	assert.Equal(t, config.BackendFile, cfg.Store.Backend)
	assert.Equal(t, config.ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, 90, cfg.History.RetentionDays)
	assert.Zero(t, cfg.History.PruneInterval, "scheduled pruning is opt-in")
	assert.Equal(t, time.Minute, cfg.LLM.Timeout)
	assert.Equal(t, 30, cfg.LLM.RequestsPerMinute)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.True(t, cfg.Server.Metrics)
	assert.Equal(t,
		filepath.Join(home, ".local", "share", "runecast", "runecast_readings.json"),
		cfg.Store.ResolvePath())
}

func TestLoad_FileAndEnv(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "runecast.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  backend: sqlite
  data_dir: /var/lib/runecast
llm:
  provider: oracle
  timeout: 5s
history:
  retention_days: 30
`), 0o644))

	t.Setenv("RUNECAST_HISTORY_RETENTION_DAYS", "7")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, config.BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "/var/lib/runecast/runecast.db", cfg.Store.ResolvePath())
	assert.Equal(t, config.ProviderOracle, cfg.LLM.Provider)
	assert.Equal(t, 5*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 7, cfg.History.RetentionDays, "environment overrides the file")
}

func TestLoad_ConfigEnvVar(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  backend: memory\n"), 0o644))
	t.Setenv("RUNECAST_CONFIG", path)

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.BackendMemory, cfg.Store.Backend)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"backend":  "store:\n  backend: postgres\n",
		"provider": "llm:\n  provider: gemini\n",
		"interval": "history:\n  prune_interval: -1h\n",
		"rate":     "llm:\n  requests_per_minute: 0\n",
		"redis":    "store:\n  backend: redis\n  redis_addr: \"\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			isolate(t)
			path := filepath.Join(t.TempDir(), "c.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

			_, err := config.Load(path)
			assert.ErrorContains(t, err, "invalid config")
		})
	}
}

func TestLoad_NegativeRetentionKeepsForever(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("history:\n  retention_days: -1\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Zero(t, cfg.History.RetentionDays)
}

func TestSaveRetention_CreatesFile(t *testing.T) {
	isolate(t)
	cfg, err := config.Load("")
	require.NoError(t, err)

	cfg.Path = filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, config.SaveRetention(cfg, 14))
	assert.Equal(t, 14, cfg.History.RetentionDays)

	info, err := os.Stat(cfg.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := config.Load(cfg.Path)
	require.NoError(t, err)
	assert.Equal(t, 14, loaded.History.RetentionDays)
	assert.Equal(t, cfg.Store.Backend, loaded.Store.Backend)
}

func TestSaveRetention_KeepsOtherKeys(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "c.yaml")
	body := "store:\n  backend: sqlite\nllm:\n  provider: oracle\n  timeout: 15s\nhistory:\n  retention_days: 90\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, config.SaveRetention(cfg, -3))
	assert.Zero(t, cfg.History.RetentionDays)

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Zero(t, loaded.History.RetentionDays)
	assert.Equal(t, config.BackendSQLite, loaded.Store.Backend)
	assert.Equal(t, config.ProviderOracle, loaded.LLM.Provider)
	assert.Equal(t, 15*time.Second, loaded.LLM.Timeout)
}

func TestSaveRetention_DoesNotWriteEnvSecrets(t *testing.T) {
	isolate(t)
	const (
		encKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
		apiKey = "sk-from-the-environment"
	)
	t.Setenv("RUNECAST_STORE_ENCRYPTION_KEY", encKey)
	t.Setenv("RUNECAST_LLM_API_KEY", apiKey)

	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  provider: oracle\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, encKey, cfg.Store.EncryptionKey)
	require.Equal(t, apiKey, cfg.LLM.APIKey)

	require.NoError(t, config.SaveRetention(cfg, 30))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), encKey)
	assert.NotContains(t, string(data), apiKey)
	assert.NotContains(t, string(data), "encryption_key")
	assert.NotContains(t, string(data), "api_key")
	assert.Contains(t, string(data), "retention_days: 30")
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("RUNECAST_TEST_KEY", "from-env")

	assert.Equal(t, "literal", config.LLMConfig{APIKey: "literal", APIKeyEnv: "RUNECAST_TEST_KEY"}.ResolveAPIKey())
	assert.Equal(t, "from-env", config.LLMConfig{APIKeyEnv: "RUNECAST_TEST_KEY"}.ResolveAPIKey())
	assert.Empty(t, config.LLMConfig{}.ResolveAPIKey())
}

package cli

import (
	"context"
	"encoding/hex"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/amutnick/Runecast/internal/config"
	"github.com/amutnick/Runecast/internal/logging"
	"github.com/amutnick/Runecast/pkg/adapters/openai"
	"github.com/amutnick/Runecast/pkg/adapters/oracle"
	"github.com/amutnick/Runecast/pkg/domain"
	"github.com/amutnick/Runecast/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	return &config.Config{
		LogLevel: "info",
		Store: config.StoreConfig{
			Backend: backend,
			DataDir: t.TempDir(),
		},
		LLM: config.LLMConfig{
			Provider:          config.ProviderOracle,
			Timeout:           time.Second,
			RequestsPerMinute: 30,
		},
		History: config.HistoryConfig{RetentionDays: 90, PruneInterval: time.Hour},
		Server:  config.ServerConfig{Addr: ":0"},
	}
}

func castAndSave(t *testing.T, cfg *config.Config) []domain.ReadingRecord {
	t.Helper()
	ctx := context.Background()

	app, err := NewApp(cfg, logging.NewNop())
	require.NoError(t, err)
	_, rec, err := app.Cast(ctx, domain.ModePhysical, "Single Rune", []session.Pick{{Rune: "Gebo"}}, true)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.NoError(t, app.Close())

	reopened, err := NewApp(cfg, logging.NewNop())
	require.NoError(t, err)
	defer reopened.Close()
	records, err := reopened.History().List(ctx)
	require.NoError(t, err)
	return records
}

func TestNewApp_Backends(t *testing.T) {
	for _, backend := range []string{config.BackendFile, config.BackendSQLite, config.BackendBadger} {
		t.Run(backend, func(t *testing.T) {
			records := castAndSave(t, testConfig(t, backend))
			require.Len(t, records, 1)
			assert.Equal(t, "Gebo", records[0].Runes[0].RuneName)
		})
	}

	t.Run(config.BackendMemory, func(t *testing.T) {
		assert.Empty(t, castAndSave(t, testConfig(t, config.BackendMemory)))
	})
}

func TestNewApp_Encryption(t *testing.T) {
	cfg := testConfig(t, config.BackendFile)
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	cfg.Store.EncryptionKey = hex.EncodeToString(key)

	records := castAndSave(t, cfg)
	require.Len(t, records, 1)
	assert.NotEmpty(t, records[0].Interpretation.Summary)

	cfg.Store.EncryptionKey = ""
	plain, err := NewApp(cfg, logging.NewNop())
	require.NoError(t, err)
	raw, err := plain.History().List(context.Background())
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.Empty(t, raw[0].Runes, "journal text must be sealed at rest")
}

func TestNewApp_BadKey(t *testing.T) {
	cfg := testConfig(t, config.BackendSQLite)
	cfg.Store.EncryptionKey = "not-a-key"
	_, err := NewApp(cfg, logging.NewNop())
	assert.ErrorContains(t, err, "encryption_key")
}

func TestNewApp_Interpreter(t *testing.T) {
	t.Run("Oracle provider", func(t *testing.T) {
		app, err := NewApp(testConfig(t, config.BackendMemory), logging.NewNop())
		require.NoError(t, err)
		assert.IsType(t, &oracle.Oracle{}, app.Interpreter())
	})

	t.Run("Missing key falls back to the oracle", func(t *testing.T) {
		cfg := testConfig(t, config.BackendMemory)
		cfg.LLM.Provider = config.ProviderOpenAI
		cfg.LLM.APIKeyEnv = "RUNECAST_TEST_MISSING_KEY"
		t.Setenv("RUNECAST_TEST_MISSING_KEY", "")

		app, err := NewApp(cfg, logging.NewNop())
		require.NoError(t, err)
		assert.IsType(t, &oracle.Oracle{}, app.Interpreter())
	})

	t.Run("OpenAI with key", func(t *testing.T) {
		cfg := testConfig(t, config.BackendMemory)
		cfg.LLM.Provider = config.ProviderOpenAI
		cfg.LLM.APIKey = "sk-test"
		cfg.LLM.BaseURL = "http://localhost:1"
		cfg.LLM.Model = "gpt-4o-mini"

		app, err := NewApp(cfg, logging.NewNop())
		require.NoError(t, err)
		assert.IsType(t, &openai.Client{}, app.Interpreter())
	})
}

func TestNewApp_CustomCatalogMissing(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)
	cfg.Catalog = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := NewApp(cfg, logging.NewNop())
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	cfg := testConfig(t, config.BackendMemory)

	logger, err := NewLogger(cfg, false)
	require.NoError(t, err)
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))

	logger, err = NewLogger(cfg, true)
	require.NoError(t, err)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))

	cfg.LogLevel = "loud"
	_, err = NewLogger(cfg, false)
	assert.Error(t, err)
}

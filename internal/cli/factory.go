package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/amutnick/Runecast"
	"github.com/amutnick/Runecast/internal/config"
	"github.com/amutnick/Runecast/internal/logging"
	"github.com/amutnick/Runecast/pkg/adapters/badger"
	"github.com/amutnick/Runecast/pkg/adapters/file"
	"github.com/amutnick/Runecast/pkg/adapters/memory"
	"github.com/amutnick/Runecast/pkg/adapters/openai"
	"github.com/amutnick/Runecast/pkg/adapters/oracle"
	"github.com/amutnick/Runecast/pkg/adapters/redis"
	"github.com/amutnick/Runecast/pkg/adapters/sqlite"
	"github.com/amutnick/Runecast/pkg/catalog"
	"github.com/amutnick/Runecast/pkg/persistence/middleware"
	"github.com/amutnick/Runecast/pkg/ports"
)

// NewLogger builds the application logger from the configured level.
// Debug forces debug level.
func NewLogger(cfg *config.Config, debug bool) (*slog.Logger, error) {
	if debug {
		return logging.New(slog.LevelDebug), nil
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.New(level), nil
}

// NewApp wires an App from configuration: catalog, interpreter, store
// backend, encryption and locking. Extra options are applied last.
func NewApp(cfg *config.Config, logger *slog.Logger, extra ...runecast.Option) (*runecast.App, error) {
	cat := catalog.Default()
	if cfg.Catalog != "" {
		c, err := catalog.Load(cfg.Catalog)
		if err != nil {
			return nil, err
		}
		cat = c
	}

	interp, err := newInterpreter(cfg.LLM, cat, logger)
	if err != nil {
		return nil, err
	}

	opts := []runecast.Option{
		runecast.WithLogger(logger),
		runecast.WithCatalog(cat),
		runecast.WithInterpreter(interp),
		runecast.WithAnalyzer(interp),
		runecast.WithRetention(cfg.History.RetentionDays),
		runecast.WithInterpretTimeout(cfg.LLM.Timeout),
	}

	store, closer, locker, err := openStore(cfg.Store, logger)
	if err != nil {
		return nil, err
	}
	opts = append(opts, runecast.WithStore(store))
	if closer != nil {
		opts = append(opts, runecast.WithCloser(closer))
	}
	if locker != nil {
		opts = append(opts, runecast.WithLocker(locker))
	}

	if cfg.Store.EncryptionKey != "" {
		mw, err := newEncryption(cfg.Store, logger)
		if err != nil {
			closeQuietly(closer)
			return nil, err
		}
		opts = append(opts, runecast.WithStoreMiddleware(mw))
	}

	app, err := runecast.New(append(opts, extra...)...)
	if err != nil {
		closeQuietly(closer)
		return nil, err
	}
	return app, nil
}

// interpreter is both gateways; the openai client and the oracle implement it.
type interpreter interface {
	ports.Interpreter
	ports.PatternAnalyzer
}

func newInterpreter(cfg config.LLMConfig, cat *catalog.Catalog, logger *slog.Logger) (interpreter, error) {
	if cfg.Provider == config.ProviderOracle {
		return oracle.New(cat), nil
	}

	key := cfg.ResolveAPIKey()
	if key == "" {
		logger.Warn("No API key configured, using the offline oracle", "env", cfg.APIKeyEnv)
		return oracle.New(cat), nil
	}

	opts := []openai.Option{
		openai.WithLogger(logger),
		openai.WithRateLimit(cfg.RequestsPerMinute),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}
	if cfg.AnalysisModel != "" {
		opts = append(opts, openai.WithAnalysisModel(cfg.AnalysisModel))
	}
	c, err := openai.New(key, opts...)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func openStore(cfg config.StoreConfig, logger *slog.Logger) (ports.HistoryStore, io.Closer, ports.DistributedLocker, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memory.NewStore(), nil, nil, nil

	case config.BackendFile:
		path := cfg.ResolvePath()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create data dir: %w", err)
		}
		return file.New(path, file.WithLogger(logger)), nil, nil, nil

	case config.BackendSQLite:
		path := cfg.ResolvePath()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create data dir: %w", err)
		}
		s, err := sqlite.Open(path, sqlite.WithLogger(logger))
		if err != nil {
			return nil, nil, nil, err
		}
		return s, s, nil, nil

	case config.BackendBadger:
		s, err := badger.Open(badger.Config{Path: cfg.ResolvePath(), Logger: logger})
		if err != nil {
			return nil, nil, nil, err
		}
		return s, s, nil, nil

	case config.BackendRedis:
		s := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			redis.WithPrefix(cfg.RedisPrefix), redis.WithLogger(logger))
		return s, s, redis.NewLocker(s.Client(), s.Prefix()), nil
	}
	return nil, nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}

func newEncryption(cfg config.StoreConfig, logger *slog.Logger) (middleware.Middleware, error) {
	active, err := middleware.ParseKey(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption_key: %w", err)
	}
	var fallback [][]byte
	for i, raw := range cfg.FallbackKeys {
		k, err := middleware.ParseKey(raw)
		if err != nil {
			return nil, fmt.Errorf("fallback_keys[%d]: %w", i, err)
		}
		fallback = append(fallback, k)
	}
	return middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    active,
		FallbackKeys: fallback,
		Logger:       logger,
	})
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}

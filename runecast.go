package runecast

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/amutnick/Runecast/internal/logging"
	"github.com/amutnick/Runecast/pkg/adapters/memory"
	"github.com/amutnick/Runecast/pkg/adapters/oracle"
	"github.com/amutnick/Runecast/pkg/catalog"
	"github.com/amutnick/Runecast/pkg/domain"
	"github.com/amutnick/Runecast/pkg/history"
	"github.com/amutnick/Runecast/pkg/persistence/middleware"
	"github.com/amutnick/Runecast/pkg/ports"
	"github.com/amutnick/Runecast/pkg/session"
)

// App is the high-level entry point: a catalog, an interpreter and a
// journal, ready to open reading sessions.
type App struct {
	catalog     *catalog.Catalog
	interpreter ports.Interpreter
	analyzer    ports.PatternAnalyzer
	store       ports.HistoryStore
	middlewares []middleware.Middleware
	locker      ports.DistributedLocker
	retention   int
	timeout     time.Duration
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	machineOpts []session.Option
	closers     []io.Closer

	history *history.Service
}

// Option configures the App.
type Option func(*App)

// WithCatalog replaces the built-in Elder Futhark catalog.
func WithCatalog(cat *catalog.Catalog) Option {
	return func(a *App) {
		a.catalog = cat
	}
}

// WithInterpreter sets the interpretation gateway. Defaults to the offline oracle.
func WithInterpreter(i ports.Interpreter) Option {
	return func(a *App) {
		a.interpreter = i
	}
}

// WithAnalyzer sets the pattern analysis gateway. Defaults to the offline oracle.
func WithAnalyzer(p ports.PatternAnalyzer) Option {
	return func(a *App) {
		a.analyzer = p
	}
}

// WithStore sets the journal backend. Defaults to an in-memory store.
func WithStore(s ports.HistoryStore) Option {
	return func(a *App) {
		a.store = s
	}
}

// WithStoreMiddleware wraps the store, first = outermost.
func WithStoreMiddleware(mws ...middleware.Middleware) Option {
	return func(a *App) {
		a.middlewares = append(a.middlewares, mws...)
	}
}

// WithLocker serializes journal writes across processes.
func WithLocker(l ports.DistributedLocker) Option {
	return func(a *App) {
		a.locker = l
	}
}

// WithRetention sets how many days of readings to keep. Zero keeps all.
func WithRetention(days int) Option {
	return func(a *App) {
		a.retention = days
	}
}

// WithInterpretTimeout bounds each interpreter call.
func WithInterpretTimeout(d time.Duration) Option {
	return func(a *App) {
		a.timeout = d
	}
}

// WithLifecycleHooks registers observability hooks on every session.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(a *App) {
		a.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithSessionOptions adds options applied to every session.
func WithSessionOptions(opts ...session.Option) Option {
	return func(a *App) {
		a.machineOpts = append(a.machineOpts, opts...)
	}
}

// WithCloser registers a resource released by Close, such as a database
// handle backing the store.
func WithCloser(c io.Closer) Option {
	return func(a *App) {
		a.closers = append(a.closers, c)
	}
}

// New builds an App. With no options it runs fully offline: built-in
// catalog, oracle interpreter, in-memory journal.
func New(opts ...Option) (*App, error) {
	a := &App{retention: domain.DefaultRetentionDays}
	for _, opt := range opts {
		opt(a)
	}

	if a.logger == nil {
		a.logger = logging.NewNop()
	}
	if a.catalog == nil {
		a.catalog = catalog.Default()
	}
	if a.interpreter == nil || a.analyzer == nil {
		o := oracle.New(a.catalog)
		if a.interpreter == nil {
			a.interpreter = o
		}
		if a.analyzer == nil {
			a.analyzer = o
		}
	}
	if a.store == nil {
		a.store = memory.NewStore()
	}
	if a.retention < 0 {
		return nil, errors.New("retention must not be negative")
	}

	histOpts := []history.Option{
		history.WithLogger(a.logger),
		history.WithAnalyzer(a.analyzer),
		history.WithRetention(a.retention),
	}
	if a.locker != nil {
		histOpts = append(histOpts, history.WithLocker(a.locker))
	}
	a.history = history.New(middleware.Chain(a.store, a.middlewares...), histOpts...)
	return a, nil
}

// Catalog returns the rune catalog.
func (a *App) Catalog() *catalog.Catalog {
	return a.catalog
}

// Interpreter returns the interpretation gateway.
func (a *App) Interpreter() ports.Interpreter {
	return a.interpreter
}

// History returns the journal service.
func (a *App) History() *history.Service {
	return a.history
}

// Hooks returns the lifecycle hooks applied to sessions.
func (a *App) Hooks() domain.LifecycleHooks {
	return a.hooks
}

// Logger returns the app logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// SessionOptions returns the options NewSession applies, for transports that
// build their own machines.
func (a *App) SessionOptions() []session.Option {
	opts := []session.Option{
		session.WithLogger(a.logger),
		session.WithRecorder(a.history),
		session.WithInterpretTimeout(a.timeout),
	}
	return append(opts, a.machineOpts...)
}

// NewSession opens a reading session that commits into the journal.
func (a *App) NewSession(opts ...session.Option) *session.Machine {
	all := append(a.SessionOptions(), session.WithLifecycleHooks(a.hooks))
	return session.New(a.catalog, a.interpreter, append(all, opts...)...)
}

// Cast performs a whole reading in a fresh session. When save is set and the
// reading was interpreted, it is committed to the journal.
func (a *App) Cast(ctx context.Context, mode domain.Mode, spread string, picks []session.Pick, save bool) (*domain.Session, *domain.ReadingRecord, error) {
	m := a.NewSession()
	snap, err := session.Cast(ctx, m, mode, spread, picks)
	if err != nil {
		return nil, nil, err
	}
	if !save || snap.Status != domain.StatusInterpreted {
		return snap, nil, nil
	}
	rec, err := m.Commit(ctx)
	if err != nil {
		return snap, nil, err
	}
	return snap, &rec, nil
}

// Close releases registered resources in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

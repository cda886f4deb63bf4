package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/amutnick/Runecast/internal/logging"
	"github.com/amutnick/Runecast/pkg/domain"
	"github.com/amutnick/Runecast/pkg/ports"
)

// lockKey is the distributed lock guarding the journal.
const lockKey = "history"

var errNoAnalyzer = errors.New("no pattern analyzer configured")

// Service orchestrates access to a ports.HistoryStore.
type Service struct {
	store    ports.HistoryStore
	analyzer ports.PatternAnalyzer

	mu        sync.Mutex
	retention int

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a Service over store.
func New(store ports.HistoryStore, opts ...Option) *Service {
	s := &Service{
		store:     store,
		retention: domain.DefaultRetentionDays,
		lockTTL:   30 * time.Second,
		logger:    logging.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying history store.
func (s *Service) Store() ports.HistoryStore {
	return s.store
}

// List returns every record, newest first.
func (s *Service) List(ctx context.Context) ([]domain.ReadingRecord, error) {
	return s.store.List(ctx)
}

// Count returns the number of stored records.
func (s *Service) Count(ctx context.Context) (int, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// Get retrieves a record by ID.
func (s *Service) Get(ctx context.Context, id string) (domain.ReadingRecord, error) {
	return s.store.Get(ctx, id)
}

// Append persists a committed reading. It satisfies session.Recorder.
func (s *Service) Append(ctx context.Context, record domain.ReadingRecord) error {
	return s.WithLock(ctx, func(ctx context.Context) error {
		if err := s.store.Append(ctx, record); err != nil {
			return fmt.Errorf("failed to save reading: %w", err)
		}
		s.logger.Debug("reading saved", "id", record.ID, "spread", record.Spread.Name)
		return nil
	})
}

// Delete removes a record by ID.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.WithLock(ctx, func(ctx context.Context) error {
		return s.store.Delete(ctx, id)
	})
}

// Retention returns the retention, in days, used by AutoPrune.
func (s *Service) Retention() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retention
}

// SetRetention changes the retention. It deletes nothing; readings are only
// removed by Prune or AutoPrune. Negative values mean zero (keep everything).
func (s *Service) SetRetention(days int) {
	s.mu.Lock()
	s.retention = NormalizeRetention(days)
	s.mu.Unlock()
}

// NormalizeRetention maps every keep-forever value onto zero.
func NormalizeRetention(days int) int {
	return max(days, 0)
}

// AutoPrune prunes with the configured retention.
func (s *Service) AutoPrune(ctx context.Context) (int, error) {
	return s.Prune(ctx, s.Retention())
}

// Prune removes records older than retentionDays. Zero or less keeps
// everything. Records created exactly at the cutoff are kept.
func (s *Service) Prune(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-time.Duration(retentionDays) * 24 * time.Hour)

	var removed int
	err := s.WithLock(ctx, func(ctx context.Context) error {
		var err error
		removed, err = s.store.Prune(ctx, cutoff)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	if removed > 0 {
		s.logger.Info("history pruned", "removed", removed, "retention_days", retentionDays)
	}
	return removed, nil
}

// Analyze asks the pattern gateway for recurring themes. It refuses to run
// below domain.MinReadingsForAnalysis records; a gateway failure yields the
// degraded analysis instead of an error.
func (s *Service) Analyze(ctx context.Context) (domain.PatternAnalysis, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return domain.PatternAnalysis{}, err
	}
	if !AnalysisReady(len(records)) {
		return domain.PatternAnalysis{}, fmt.Errorf("%w: have %d, need %d",
			domain.ErrInsufficientHistory, len(records), domain.MinReadingsForAnalysis)
	}

	analyzer := s.analyzer
	if analyzer == nil {
		s.logger.Warn("pattern analysis unavailable", "err", errNoAnalyzer)
		return domain.DegradedAnalysis(), nil
	}

	analysis, err := analyzer.Analyze(ctx, records)
	if err != nil {
		s.logger.Error("pattern analysis failed", "err", err)
		return domain.DegradedAnalysis(), nil
	}
	return analysis, nil
}

// AnalysisReady reports whether count records are enough for analysis.
func AnalysisReady(count int) bool {
	return count >= domain.MinReadingsForAnalysis
}

// WithLock executes fn inside the journal's critical section.
func (s *Service) WithLock(ctx context.Context, fn func(context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, lockKey, s.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				s.logger.Warn("Failed to release distributed lock (will expire via TTL)", "err", err)
			}
		}()
	}

	return fn(ctx)
}

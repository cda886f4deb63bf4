package history

import (
	"log/slog"
	"time"

	"github.com/amutnick/Runecast/pkg/ports"
)

// Option configures the Service.
type Option func(*Service)

// WithLocker enables distributed locking around writes.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(s *Service) {
		s.locker = locker
	}
}

// WithLockTTL sets how long a distributed lock may be held.
func WithLockTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithAnalyzer sets the pattern analysis gateway.
func WithAnalyzer(analyzer ports.PatternAnalyzer) Option {
	return func(s *Service) {
		s.analyzer = analyzer
	}
}

// WithClock overrides the time source used to compute prune cutoffs.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithRetention sets the retention, in days, applied by AutoPrune.
// Zero or less keeps everything.
func WithRetention(days int) Option {
	return func(s *Service) {
		s.retention = NormalizeRetention(days)
	}
}

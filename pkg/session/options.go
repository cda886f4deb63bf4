package session

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/amutnick/Runecast/pkg/domain"
)

// Option configures the Machine.
type Option func(*Machine)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Machine) {
		m.hooks = hooks
	}
}

// WithRecorder sets where committed readings are appended.
func WithRecorder(r Recorder) Option {
	return func(m *Machine) {
		m.recorder = r
	}
}

// WithRand injects the random source used for shuffling and virtual orientations.
func WithRand(rng *rand.Rand) Option {
	return func(m *Machine) {
		m.rng = rng
	}
}

// WithClock overrides the time source used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		m.now = now
	}
}

// WithIDGenerator overrides how session and record IDs are generated.
func WithIDGenerator(newID func() string) Option {
	return func(m *Machine) {
		m.newID = newID
	}
}

// WithInterpretTimeout bounds each interpreter call. Zero means no deadline.
func WithInterpretTimeout(d time.Duration) Option {
	return func(m *Machine) {
		m.timeout = d
	}
}

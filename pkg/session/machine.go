package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/amutnick/Runecast/internal/logging"
	"github.com/amutnick/Runecast/pkg/catalog"
	"github.com/amutnick/Runecast/pkg/domain"
	"github.com/amutnick/Runecast/pkg/ports"
	"github.com/google/uuid"
)

// errNoInterpreter is what the machine reports when constructed without an interpreter.
var errNoInterpreter = errors.New("no interpreter configured")

// Recorder receives committed readings.
type Recorder interface {
	Append(ctx context.Context, record domain.ReadingRecord) error
}

// Machine is the reading-session state machine. Safe for concurrent use; all
// transitions are serialized.
type Machine struct {
	catalog     *catalog.Catalog
	interpreter ports.Interpreter
	recorder    Recorder

	logger  *slog.Logger
	hooks   domain.LifecycleHooks
	rng     *rand.Rand
	now     func() time.Time
	newID   func() string
	timeout time.Duration

	mu         sync.Mutex
	s          *domain.Session
	inflight   int
	idle       chan struct{} // closed when inflight drops to zero
	committing bool
	events     []func() // hooks queued under the lock, fired after unlock
}

// New creates a Machine in the unset state.
func New(cat *catalog.Catalog, interpreter ports.Interpreter, opts ...Option) *Machine {
	m := &Machine{
		catalog:     cat,
		interpreter: interpreter,
		logger:      logging.NewNop(),
		rng:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:         time.Now,
		newID:       newUUID,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.catalog == nil {
		m.catalog = catalog.Default()
	}
	if m.interpreter == nil {
		m.interpreter = ports.InterpreterFunc(func(context.Context, ports.InterpretationRequest) (domain.Interpretation, error) {
			return domain.Interpretation{}, errNoInterpreter
		})
	}
	m.s = domain.NewSession(m.newID(), 0)
	return m
}

func newUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Catalog returns the catalog the machine draws from.
func (m *Machine) Catalog() *catalog.Catalog {
	return m.catalog
}

// Snapshot returns a copy of the current session. It never blocks on an
// in-flight interpreter call.
func (m *Machine) Snapshot() *domain.Session {
	m.lock()
	defer m.unlock()
	return m.s.Snapshot()
}

// Status returns the current status.
func (m *Machine) Status() domain.Status {
	m.lock()
	defer m.unlock()
	return m.s.Status
}

// Available returns the pool entries that can still be picked.
func (m *Machine) Available() []domain.Rune {
	m.lock()
	defer m.unlock()
	out := make([]domain.Rune, 0, len(m.s.Pool))
	for _, r := range m.s.Pool {
		if m.s.HasSelected(r.Name) || (m.s.Pending != nil && m.s.Pending.Name == r.Name) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// ChooseMode sets the acquisition mode. Only valid from unset.
func (m *Machine) ChooseMode(ctx context.Context, mode domain.Mode) error {
	if mode != domain.ModePhysical && mode != domain.ModeVirtual {
		return fmt.Errorf("%w: %q", domain.ErrUnknownMode, mode)
	}

	m.lock()
	defer m.unlock()
	if err := m.expect("choose_mode", domain.StatusUnset); err != nil {
		return err
	}
	m.s.Mode = mode
	m.transition(ctx, domain.StatusModeChosen, "choose_mode")
	return nil
}

// ChooseSpreadByName looks the spread up in the catalog and chooses it.
func (m *Machine) ChooseSpreadByName(ctx context.Context, name string) error {
	spread, err := m.catalog.Spread(name)
	if err != nil {
		return err
	}
	return m.ChooseSpread(ctx, spread)
}

// ChooseSpread sets the layout and computes the presentation pool once.
// Collecting starts immediately; an empty spread completes right away.
func (m *Machine) ChooseSpread(ctx context.Context, spread domain.Spread) error {
	if spread.RuneCount < 0 {
		return fmt.Errorf("spread %q has negative rune count", spread.Name)
	}

	m.lock()
	defer m.unlock()
	if err := m.expect("choose_spread", domain.StatusModeChosen); err != nil {
		return err
	}

	m.s.Spread = &spread
	m.s.Selections = []domain.SelectedRune{}
	m.s.Pending = nil
	m.s.Result = nil
	if m.s.Mode == domain.ModeVirtual {
		m.s.Pool = VirtualPool(m.catalog.Runes(), m.rng)
	} else {
		m.s.Pool = PhysicalPool(m.catalog.Runes())
	}
	m.transition(ctx, domain.StatusCollecting, "choose_spread")
	m.maybeComplete(ctx)
	return nil
}

// PickRune draws a rune into the spread. Picking a rune already selected,
// picking once the spread is full (including after completion has started),
// or picking while an orientation is pending are silent no-ops: they are UI
// races, not faults.
func (m *Machine) PickRune(ctx context.Context, name string) error {
	r, err := m.catalog.Rune(name)
	if err != nil {
		return err
	}

	m.lock()
	defer m.unlock()
	if err := m.expect("pick_rune", domain.StatusCollecting, domain.StatusCompleting,
		domain.StatusInterpreted, domain.StatusFailed); err != nil {
		return err
	}
	if m.s.Status != domain.StatusCollecting || m.s.Full() || m.s.HasSelected(r.Name) || m.s.Pending != nil {
		m.logger.Debug("Pick ignored", "rune", r.Name, "session_id", m.s.ID)
		return nil
	}

	switch {
	case m.s.Mode == domain.ModeVirtual:
		m.appendSelection(r.Name, CastOrientation(r, m.rng))
	case r.Reversible():
		p := r
		m.s.Pending = &p
		return nil
	default:
		m.appendSelection(r.Name, domain.Upright)
	}
	m.maybeComplete(ctx)
	return nil
}

// ConfirmOrientation records the orientation of the pending physical rune.
func (m *Machine) ConfirmOrientation(ctx context.Context, o domain.Orientation) error {
	if o != domain.Upright && o != domain.Reversed {
		return fmt.Errorf("invalid orientation %q", o)
	}

	m.lock()
	defer m.unlock()
	if m.s.Pending == nil {
		return domain.ErrNoPendingOrientation
	}
	name := m.s.Pending.Name
	m.s.Pending = nil
	m.appendSelection(name, o)
	m.maybeComplete(ctx)
	return nil
}

// CancelOrientation returns the pending rune to the pool without selecting it.
func (m *Machine) CancelOrientation() error {
	m.lock()
	defer m.unlock()
	if m.s.Pending == nil {
		return domain.ErrNoPendingOrientation
	}
	m.s.Pending = nil
	return nil
}

// Retry re-drives completion after a failed interpretation. Selections are kept.
func (m *Machine) Retry(ctx context.Context) error {
	m.lock()
	defer m.unlock()
	if err := m.expect("retry", domain.StatusFailed); err != nil {
		return err
	}
	m.s.Result = nil
	m.transition(ctx, domain.StatusCollecting, "retry")
	m.maybeComplete(ctx)
	return nil
}

// Commit persists the interpreted reading and resets the session. If the
// recorder fails, the session is left untouched so the user can retry.
// The lock is not held while the recorder runs; a session reset meanwhile
// is kept and the saved record is still returned.
func (m *Machine) Commit(ctx context.Context) (domain.ReadingRecord, error) {
	m.lock()
	if err := m.expect("commit", domain.StatusInterpreted); err != nil {
		m.unlock()
		return domain.ReadingRecord{}, err
	}
	if m.committing {
		m.unlock()
		return domain.ReadingRecord{}, fmt.Errorf("%w: commit already in progress", domain.ErrInvalidTransition)
	}
	if m.recorder == nil {
		m.unlock()
		return domain.ReadingRecord{}, errors.New("no history recorder configured")
	}

	record := domain.ReadingRecord{
		ID:             m.newID(),
		CreatedAt:      m.now().UTC(),
		Spread:         *m.s.Spread,
		Runes:          slices.Clone(m.s.Selections),
		Interpretation: Align(m.s.Selections, *m.s.Result),
	}
	gen, sessionID := m.s.Generation, m.s.ID
	m.committing = true
	m.unlock()

	err := m.recorder.Append(ctx, record)

	m.lock()
	defer m.unlock()
	m.committing = false
	if err != nil {
		m.logger.Error("Failed to save reading", "session_id", sessionID, "err", err)
		return domain.ReadingRecord{}, fmt.Errorf("failed to save reading: %w", err)
	}
	if m.s.Generation == gen {
		m.reset(ctx, "commit")
	}
	return record, nil
}

// Discard drops the reading without persisting it. Valid once the spread is
// complete; a response still in flight is ignored when it arrives.
func (m *Machine) Discard(ctx context.Context) error {
	m.lock()
	defer m.unlock()
	if err := m.expect("discard", domain.StatusInterpreted, domain.StatusFailed, domain.StatusCompleting); err != nil {
		return err
	}
	m.reset(ctx, "discard")
	return nil
}

// Reset returns to unset from any state.
func (m *Machine) Reset(ctx context.Context) {
	m.lock()
	defer m.unlock()
	m.reset(ctx, "reset")
}

// Wait blocks until no interpreter call is in flight.
func (m *Machine) Wait(ctx context.Context) error {
	m.lock()
	if m.inflight == 0 {
		m.unlock()
		return nil
	}
	idle := m.idle
	m.unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// reset discards the session and starts a new generation. Caller holds the lock.
func (m *Machine) reset(ctx context.Context, event string) {
	old := m.s
	m.s = domain.NewSession(m.newID(), old.Generation+1)
	if old.Status != domain.StatusUnset {
		m.emitTransition(ctx, old, domain.StatusUnset, event)
	}
}

func (m *Machine) appendSelection(name string, o domain.Orientation) {
	m.s.Selections = append(m.s.Selections, domain.SelectedRune{RuneName: name, Orientation: o})
	m.logger.Debug("Rune selected", "rune", name, "orientation", o, "session_id", m.s.ID,
		"position", len(m.s.Selections), "of", m.s.Spread.RuneCount)
}

// maybeComplete is the automatic completion trigger. The collecting ->
// completing transition happens under the lock before the call is issued,
// so a second trigger can never start a concurrent call.
func (m *Machine) maybeComplete(ctx context.Context) {
	if m.s.Status != domain.StatusCollecting || m.s.Pending != nil || !m.s.Full() {
		return
	}
	m.transition(ctx, domain.StatusCompleting, "complete")

	req := ports.InterpretationRequest{
		Spread:    m.s.Spread.Name,
		RuneCount: m.s.Spread.RuneCount,
		Runes:     slices.Clone(m.s.Selections),
	}
	gen, sessionID := m.s.Generation, m.s.ID

	if m.inflight == 0 {
		m.idle = make(chan struct{})
	}
	m.inflight++

	m.emit(func() {
		if m.hooks.OnCompletionStart != nil {
			m.hooks.OnCompletionStart(ctx, &domain.CompletionEvent{
				EventBase: m.base(domain.EventCompletionStart, sessionID),
				Spread:    req.Spread,
				Runes:     len(req.Runes),
			})
		}
	})

	go m.interpret(context.WithoutCancel(ctx), gen, sessionID, req)
}

func (m *Machine) interpret(ctx context.Context, gen uint64, sessionID string, req ports.InterpretationRequest) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	start := time.Now()
	interp, err := m.interpreter.Interpret(ctx, req)
	if err == nil {
		err = ValidateInterpretation(req, interp)
	}
	elapsed := time.Since(start)

	// Release the call only after the hooks below have fired.
	defer func() {
		m.lock()
		m.endCall()
		m.unlock()
	}()
	m.lock()
	defer m.unlock()

	event := &domain.CompletionEvent{
		Spread:   req.Spread,
		Runes:    len(req.Runes),
		Duration: elapsed,
		Err:      err,
	}

	if m.s.Generation != gen || m.s.Status != domain.StatusCompleting {
		m.logger.Debug("Dropping stale interpretation", "session_id", sessionID, "generation", gen)
		event.EventBase = m.base(domain.EventStaleResponse, sessionID)
		m.emit(func() {
			if m.hooks.OnStaleResponse != nil {
				m.hooks.OnStaleResponse(ctx, event)
			}
		})
		return
	}

	if err != nil {
		m.logger.Warn("Interpretation failed", "session_id", sessionID, "spread", req.Spread, "err", err)
		degraded := domain.DegradedInterpretation(req.Runes)
		m.s.Result = &degraded
		event.Degraded = true
		m.transition(ctx, domain.StatusFailed, "interpretation_failed")
	} else {
		interp = Align(req.Runes, interp)
		interp.Degraded = false
		m.s.Result = &interp
		m.transition(ctx, domain.StatusInterpreted, "interpreted")
	}

	event.EventBase = m.base(domain.EventCompletionDone, sessionID)
	m.emit(func() {
		if m.hooks.OnCompletionDone != nil {
			m.hooks.OnCompletionDone(ctx, event)
		}
	})
}

func (m *Machine) endCall() {
	m.inflight--
	if m.inflight == 0 && m.idle != nil {
		close(m.idle)
		m.idle = nil
	}
}

// expect guards an event against the current status. Caller holds the lock.
func (m *Machine) expect(event string, allowed ...domain.Status) error {
	if slices.Contains(allowed, m.s.Status) {
		return nil
	}
	return fmt.Errorf("%w: %s is not allowed while %s", domain.ErrInvalidTransition, event, m.s.Status)
}

// transition changes status and queues the hook. Caller holds the lock.
func (m *Machine) transition(ctx context.Context, to domain.Status, event string) {
	m.logger.Debug("Session transition", "session_id", m.s.ID, "from", m.s.Status, "to", to, "event", event)
	m.emitTransition(ctx, m.s, to, event)
	m.s.Status = to
}

// emitTransition queues the hook for s leaving its current status.
func (m *Machine) emitTransition(ctx context.Context, s *domain.Session, to domain.Status, event string) {
	if m.hooks.OnTransition == nil {
		return
	}
	ev := &domain.TransitionEvent{
		EventBase: m.base(domain.EventTransition, s.ID),
		From:      s.Status,
		To:        to,
		Event:     event,
		Mode:      s.Mode,
	}
	m.emit(func() { m.hooks.OnTransition(ctx, ev) })
}

func (m *Machine) base(t domain.EventType, sessionID string) domain.EventBase {
	return domain.EventBase{Timestamp: m.now(), Type: t, SessionID: sessionID}
}

func (m *Machine) emit(fn func()) {
	m.events = append(m.events, fn)
}

func (m *Machine) lock() {
	m.mu.Lock()
}

// unlock releases the lock, then fires the hooks queued during the critical section.
func (m *Machine) unlock() {
	events := m.events
	m.events = nil
	m.mu.Unlock()
	for _, fn := range events {
		fn()
	}
}

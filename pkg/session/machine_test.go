package session_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amutnick/Runecast/pkg/catalog"
	"github.com/amutnick/Runecast/pkg/domain"
	"github.com/amutnick/Runecast/pkg/ports"
	"github.com/amutnick/Runecast/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoInterpreter answers with one summary per rune, in reverse order.
func echoInterpreter(calls *atomic.Int32) ports.InterpreterFunc {
	return func(ctx context.Context, req ports.InterpretationRequest) (domain.Interpretation, error) {
		if calls != nil {
			calls.Add(1)
		}
		out := domain.Interpretation{Summary: "The runes speak.", Questions: []string{"What now?"}}
		for i := len(req.Runes) - 1; i >= 0; i-- {
			r := req.Runes[i]
			out.IndividualRunes = append(out.IndividualRunes, domain.RuneInterpretation{
				RuneName: r.RuneName, Orientation: r.Orientation, Summary: "about " + r.RuneName,
			})
		}
		return out, nil
	}
}

type memoryRecorder struct {
	mu      sync.Mutex
	records []domain.ReadingRecord
	err     error
}

func (r *memoryRecorder) Append(ctx context.Context, rec domain.ReadingRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.records = append([]domain.ReadingRecord{rec}, r.records...)
	return nil
}

func (r *memoryRecorder) List() []domain.ReadingRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ReadingRecord(nil), r.records...)
}

func newMachine(t *testing.T, interp ports.Interpreter, opts ...session.Option) *session.Machine {
	t.Helper()
	opts = append([]session.Option{session.WithRand(rand.New(rand.NewPCG(1, 2)))}, opts...)
	return session.New(catalog.Default(), interp, opts...)
}

func wait(t *testing.T, m *session.Machine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Wait(ctx))
}

func TestMachine_EndToEnd_Virtual(t *testing.T) {
	ctx := context.Background()
	rec := &memoryRecorder{}
	m := newMachine(t, echoInterpreter(nil), session.WithRecorder(rec))

	require.NoError(t, m.ChooseMode(ctx, domain.ModeVirtual))
	require.NoError(t, m.ChooseSpreadByName(ctx, "Three Norns"))
	assert.Equal(t, domain.StatusCollecting, m.Status())

	for _, name := range []string{"Fehu", "Isa", "Laguz"} {
		require.NoError(t, m.PickRune(ctx, name))
	}
	wait(t, m)

	snap := m.Snapshot()
	require.Equal(t, domain.StatusInterpreted, snap.Status)
	require.NotNil(t, snap.Result)
	assert.Len(t, snap.Result.IndividualRunes, 3)
	assert.Equal(t, domain.Upright, snap.Selections[1].Orientation, "Isa is not reversible")

	record, err := m.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnset, m.Status())

	stored := rec.List()
	require.Len(t, stored, 1)
	assert.Equal(t, record.ID, stored[0].ID)
	assert.Equal(t, snap.Selections, stored[0].Runes)
	assert.Equal(t, "Three Norns", stored[0].Spread.Name)
	for i, ir := range stored[0].Interpretation.IndividualRunes {
		assert.Equal(t, snap.Selections[i].RuneName, ir.RuneName, "record aligns interpretation by name")
		assert.Equal(t, "about "+ir.RuneName, ir.Summary)
	}
}

func TestMachine_PhysicalOrientation(t *testing.T) {
	ctx := context.Background()
	m := newMachine(t, echoInterpreter(nil))
	require.NoError(t, m.ChooseMode(ctx, domain.ModePhysical))
	require.NoError(t, m.ChooseSpreadByName(ctx, "Three Norns"))

	t.Run("Non-reversible rune is appended upright", func(t *testing.T) {
		require.NoError(t, m.PickRune(ctx, "Gebo"))
		snap := m.Snapshot()
		assert.Nil(t, snap.Pending)
		assert.Equal(t, []domain.SelectedRune{{RuneName: "Gebo", Orientation: domain.Upright}}, snap.Selections)
	})

	t.Run("Reversible rune waits for confirmation", func(t *testing.T) {
		require.NoError(t, m.PickRune(ctx, "Fehu"))
		snap := m.Snapshot()
		require.NotNil(t, snap.Pending)
		assert.Equal(t, "Fehu", snap.Pending.Name)
		assert.Len(t, snap.Selections, 1)
		assert.NotContains(t, runeNames(m.Available()), "Fehu")

		// Clicking again, or clicking another rune, is absorbed.
		require.NoError(t, m.PickRune(ctx, "Fehu"))
		require.NoError(t, m.PickRune(ctx, "Uruz"))
		assert.Len(t, m.Snapshot().Selections, 1)
	})

	t.Run("Cancel returns the rune to the pool", func(t *testing.T) {
		require.NoError(t, m.CancelOrientation())
		snap := m.Snapshot()
		assert.Nil(t, snap.Pending)
		assert.Len(t, snap.Selections, 1)
		assert.Contains(t, runeNames(m.Available()), "Fehu")
		assert.ErrorIs(t, m.CancelOrientation(), domain.ErrNoPendingOrientation)
		assert.ErrorIs(t, m.ConfirmOrientation(ctx, domain.Upright), domain.ErrNoPendingOrientation)
	})

	t.Run("Confirm appends and completes", func(t *testing.T) {
		require.NoError(t, m.PickRune(ctx, "Fehu"))
		require.NoError(t, m.ConfirmOrientation(ctx, domain.Reversed))
		require.NoError(t, m.PickRune(ctx, "Ansuz"))
		assert.Equal(t, domain.StatusCollecting, m.Status(), "pending orientation blocks completion")
		require.NoError(t, m.ConfirmOrientation(ctx, domain.Upright))
		wait(t, m)

		snap := m.Snapshot()
		assert.Equal(t, domain.StatusInterpreted, snap.Status)
		assert.Equal(t, []domain.SelectedRune{
			{RuneName: "Gebo", Orientation: domain.Upright},
			{RuneName: "Fehu", Orientation: domain.Reversed},
			{RuneName: "Ansuz", Orientation: domain.Upright},
		}, snap.Selections)
	})
}

func TestMachine_IdempotentPick(t *testing.T) {
	ctx := context.Background()
	m := newMachine(t, echoInterpreter(nil))
	require.NoError(t, m.ChooseMode(ctx, domain.ModeVirtual))
	require.NoError(t, m.ChooseSpreadByName(ctx, "Five Rune Cross"))

	require.NoError(t, m.PickRune(ctx, "Tiwaz"))
	first := m.Snapshot().Selections
	require.NoError(t, m.PickRune(ctx, "Tiwaz"))
	assert.Equal(t, first, m.Snapshot().Selections)
}

func TestMachine_FullSpreadIgnoresPicks(t *testing.T) {
	ctx := context.Background()
	block := make(chan struct{})
	interp := ports.InterpreterFunc(func(ctx context.Context, req ports.InterpretationRequest) (domain.Interpretation, error) {
		<-block
		return echoInterpreter(nil)(ctx, req)
	})
	m := newMachine(t, interp)
	require.NoError(t, m.ChooseMode(ctx, domain.ModeVirtual))
	require.NoError(t, m.ChooseSpreadByName(ctx, "Single Rune"))
	require.NoError(t, m.PickRune(ctx, "Kenaz"))

	snap := m.Snapshot()
	assert.Equal(t, domain.StatusCompleting, snap.Status, "session stays inspectable while completing")
	assert.NoError(t, m.PickRune(ctx, "Wunjo"), "a late click is absorbed")
	assert.Len(t, m.Snapshot().Selections, 1)

	close(block)
	wait(t, m)
	assert.Equal(t, domain.StatusInterpreted, m.Status())
}

func TestMachine_Invariants(t *testing.T) {
	ctx := context.Background()
	cat := catalog.Default()
	names := runeNames(cat.Runes())
	rng := rand.New(rand.NewPCG(7, 11))

	for _, mode := range []domain.Mode{domain.ModeVirtual, domain.ModePhysical} {
		for _, spread := range cat.Spreads() {
			m := newMachine(t, echoInterpreter(nil))
			require.NoError(t, m.ChooseMode(ctx, mode))
			require.NoError(t, m.ChooseSpread(ctx, spread))

			for step := 0; step < 200; step++ {
				switch rng.IntN(4) {
				case 0, 1:
					_ = m.PickRune(ctx, names[rng.IntN(len(names))])
				case 2:
					_ = m.ConfirmOrientation(ctx, domain.Reversed)
				case 3:
					_ = m.CancelOrientation()
				}

				snap := m.Snapshot()
				assert.LessOrEqual(t, len(snap.Selections), spread.RuneCount)
				seen := map[string]bool{}
				for _, sel := range snap.Selections {
					assert.False(t, seen[sel.RuneName], "duplicate rune %s", sel.RuneName)
					seen[sel.RuneName] = true
				}
				if snap.Pending != nil {
					assert.Equal(t, domain.ModePhysical, snap.Mode)
					assert.True(t, snap.Pending.Reversible())
				}
			}
			wait(t, m)
			assert.Equal(t, domain.StatusInterpreted, m.Status())
		}
	}
}

func TestMachine_EmptySpreadCompletesImmediately(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	m := newMachine(t, echoInterpreter(&calls))
	require.NoError(t, m.ChooseMode(ctx, domain.ModePhysical))
	require.NoError(t, m.ChooseSpread(ctx, domain.Spread{Name: "Silence", RuneCount: 0}))
	wait(t, m)

	assert.Equal(t, domain.StatusInterpreted, m.Status())
	assert.EqualValues(t, 1, calls.Load())
}

func TestMachine_SingleGatewayCall(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	m := newMachine(t, echoInterpreter(&calls))
	require.NoError(t, m.ChooseMode(ctx, domain.ModePhysical))
	require.NoError(t, m.ChooseSpreadByName(ctx, "Single Rune"))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.PickRune(ctx, "Jera")
		}()
	}
	wg.Wait()
	wait(t, m)
	assert.EqualValues(t, 1, calls.Load())
}

func TestMachine_GatewayFailure(t *testing.T) {
	ctx := context.Background()
	var fail atomic.Bool
	fail.Store(true)
	interp := ports.InterpreterFunc(func(ctx context.Context, req ports.InterpretationRequest) (domain.Interpretation, error) {
		if fail.Load() {
			return domain.Interpretation{}, errors.New("quota exceeded")
		}
		return echoInterpreter(nil)(ctx, req)
	})
	rec := &memoryRecorder{}
	m := newMachine(t, interp, session.WithRecorder(rec))
	require.NoError(t, m.ChooseMode(ctx, domain.ModeVirtual))
	require.NoError(t, m.ChooseSpreadByName(ctx, "Three Norns"))
	for _, name := range []string{"Othala", "Mannaz", "Dagaz"} {
		require.NoError(t, m.PickRune(ctx, name))
	}
	wait(t, m)

	snap := m.Snapshot()
	require.Equal(t, domain.StatusFailed, snap.Status)
	assert.Len(t, snap.Selections, 3, "selections survive a failed interpretation")
	require.NotNil(t, snap.Result)
	assert.True(t, snap.Result.Degraded)
	assert.Equal(t, domain.PlaceholderSummary, snap.Result.Summary)
	assert.NotEmpty(t, snap.Result.Questions)
	assert.Len(t, snap.Result.IndividualRunes, 3)

	_, err := m.Commit(ctx)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition, "degraded readings cannot be saved")

	fail.Store(false)
	require.NoError(t, m.Retry(ctx))
	wait(t, m)
	snap = m.Snapshot()
	assert.Equal(t, domain.StatusInterpreted, snap.Status)
	assert.False(t, snap.Result.Degraded)
}

func TestMachine_MalformedResponse(t *testing.T) {
	ctx := context.Background()
	interp := ports.InterpreterFunc(func(ctx context.Context, req ports.InterpretationRequest) (domain.Interpretation, error) {
		return domain.Interpretation{
			IndividualRunes: []domain.RuneInterpretation{{RuneName: "Wrong", Summary: "?"}},
			Summary:         "x",
			Questions:       []string{"y"},
		}, nil
	})
	m := newMachine(t, interp)
	require.NoError(t, m.ChooseMode(ctx, domain.ModeVirtual))
	require.NoError(t, m.ChooseSpreadByName(ctx, "Single Rune"))
	require.NoError(t, m.PickRune(ctx, "Sowilo"))
	wait(t, m)

	snap := m.Snapshot()
	assert.Equal(t, domain.StatusFailed, snap.Status)
	assert.True(t, snap.Result.Degraded)
}

func TestMachine_ReplyWithoutQuestions(t *testing.T) {
	ctx := context.Background()
	interp := ports.InterpreterFunc(func(ctx context.Context, req ports.InterpretationRequest) (domain.Interpretation, error) {
		return domain.Interpretation{
			IndividualRunes: []domain.RuneInterpretation{{RuneName: "Sowilo", Summary: "Success."}},
			Summary:         "A bright day.",
			Questions:       []string{},
		}, nil
	})
	m := newMachine(t, interp)
	require.NoError(t, m.ChooseMode(ctx, domain.ModeVirtual))
	require.NoError(t, m.ChooseSpreadByName(ctx, "Single Rune"))
	require.NoError(t, m.PickRune(ctx, "Sowilo"))
	wait(t, m)

	snap := m.Snapshot()
	assert.Equal(t, domain.StatusInterpreted, snap.Status)
	assert.False(t, snap.Result.Degraded)
	assert.Equal(t, "A bright day.", snap.Result.Summary)
	assert.Equal(t, []string{domain.PlaceholderQuestion}, snap.Result.Questions)
}

func TestMachine_StaleResponseDropped(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	var calls atomic.Int32
	interp := ports.InterpreterFunc(func(ctx context.Context, req ports.InterpretationRequest) (domain.Interpretation, error) {
		if calls.Add(1) == 1 {
			<-release
			return domain.Interpretation{
				IndividualRunes: []domain.RuneInterpretation{{RuneName: req.Runes[0].RuneName, Summary: "stale"}},
				Summary:         "stale",
				Questions:       []string{"stale?"},
			}, nil
		}
		return domain.Interpretation{}, errors.New("second call fails")
	})

	var stale atomic.Int32
	hooks := domain.LifecycleHooks{
		OnStaleResponse: func(context.Context, *domain.CompletionEvent) { stale.Add(1) },
	}
	m := newMachine(t, interp, session.WithLifecycleHooks(hooks))

	require.NoError(t, m.ChooseMode(ctx, domain.ModeVirtual))
	require.NoError(t, m.ChooseSpreadByName(ctx, "Single Rune"))
	require.NoError(t, m.PickRune(ctx, "Perthro"))
	require.Equal(t, domain.StatusCompleting, m.Status())
	firstGen := m.Snapshot().Generation

	require.NoError(t, m.Discard(ctx))
	require.NoError(t, m.ChooseMode(ctx, domain.ModePhysical))
	require.NoError(t, m.ChooseSpreadByName(ctx, "Three Norns"))
	require.NoError(t, m.PickRune(ctx, "Isa"))

	close(release)
	wait(t, m)

	snap := m.Snapshot()
	assert.Greater(t, snap.Generation, firstGen)
	assert.Equal(t, domain.StatusCollecting, snap.Status)
	assert.Nil(t, snap.Result)
	assert.Equal(t, []domain.SelectedRune{{RuneName: "Isa", Orientation: domain.Upright}}, snap.Selections)
	assert.EqualValues(t, 1, stale.Load())
}

func TestMachine_CommitFailureKeepsSession(t *testing.T) {
	ctx := context.Background()
	rec := &memoryRecorder{err: errors.New("disk full")}
	m := newMachine(t, echoInterpreter(nil), session.WithRecorder(rec))
	require.NoError(t, m.ChooseMode(ctx, domain.ModeVirtual))
	require.NoError(t, m.ChooseSpreadByName(ctx, "Single Rune"))
	require.NoError(t, m.PickRune(ctx, "Algiz"))
	wait(t, m)

	before := m.Snapshot()
	_, err := m.Commit(ctx)
	require.Error(t, err)
	after := m.Snapshot()
	assert.Equal(t, before, after)

	rec.err = nil
	_, err = m.Commit(ctx)
	require.NoError(t, err)
	assert.Len(t, rec.List(), 1)
}

// blockingRecorder holds every Append until release is closed.
type blockingRecorder struct {
	started chan struct{}
	release chan struct{}
	memoryRecorder
}

func (r *blockingRecorder) Append(ctx context.Context, rec domain.ReadingRecord) error {
	close(r.started)
	<-r.release
	return r.memoryRecorder.Append(ctx, rec)
}

func TestMachine_CommitDoesNotBlockReaders(t *testing.T) {
	ctx := context.Background()
	rec := &blockingRecorder{started: make(chan struct{}), release: make(chan struct{})}
	m := newMachine(t, echoInterpreter(nil), session.WithRecorder(rec))
	require.NoError(t, m.ChooseMode(ctx, domain.ModeVirtual))
	require.NoError(t, m.ChooseSpreadByName(ctx, "Single Rune"))
	require.NoError(t, m.PickRune(ctx, "Algiz"))
	wait(t, m)

	done := make(chan error, 1)
	go func() {
		_, err := m.Commit(ctx)
		done <- err
	}()
	<-rec.started

	// The session stays readable while the record is being written, and a
	// second commit cannot save the same reading twice.
	assert.Equal(t, domain.StatusInterpreted, m.Snapshot().Status)
	_, err := m.Commit(ctx)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	close(rec.release)
	require.NoError(t, <-done)
	assert.Equal(t, domain.StatusUnset, m.Snapshot().Status)
	assert.Len(t, rec.List(), 1)
}

func TestMachine_ResetDuringCommitKeepsNewSession(t *testing.T) {
	ctx := context.Background()
	rec := &blockingRecorder{started: make(chan struct{}), release: make(chan struct{})}
	m := newMachine(t, echoInterpreter(nil), session.WithRecorder(rec))
	require.NoError(t, m.ChooseMode(ctx, domain.ModeVirtual))
	require.NoError(t, m.ChooseSpreadByName(ctx, "Single Rune"))
	require.NoError(t, m.PickRune(ctx, "Algiz"))
	wait(t, m)

	done := make(chan error, 1)
	go func() {
		_, err := m.Commit(ctx)
		done <- err
	}()
	<-rec.started

	m.Reset(ctx)
	require.NoError(t, m.ChooseMode(ctx, domain.ModePhysical))
	close(rec.release)
	require.NoError(t, <-done)

	snap := m.Snapshot()
	assert.Equal(t, domain.StatusModeChosen, snap.Status, "the commit must not reset a newer session")
	assert.Len(t, rec.List(), 1)
}

func TestMachine_InvalidTransitions(t *testing.T) {
	ctx := context.Background()
	m := newMachine(t, echoInterpreter(nil))

	assert.ErrorIs(t, m.ChooseSpreadByName(ctx, "Single Rune"), domain.ErrInvalidTransition)
	assert.ErrorIs(t, m.PickRune(ctx, "Fehu"), domain.ErrInvalidTransition)
	assert.ErrorIs(t, m.Discard(ctx), domain.ErrInvalidTransition)
	assert.ErrorIs(t, m.Retry(ctx), domain.ErrInvalidTransition)
	_, err := m.Commit(ctx)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.ErrorIs(t, m.ChooseMode(ctx, "telepathic"), domain.ErrUnknownMode)

	require.NoError(t, m.ChooseMode(ctx, domain.ModeVirtual))
	assert.ErrorIs(t, m.ChooseMode(ctx, domain.ModePhysical), domain.ErrInvalidTransition)
	assert.ErrorIs(t, m.ChooseSpreadByName(ctx, "Celtic Cross"), domain.ErrSpreadNotFound)

	require.NoError(t, m.ChooseSpreadByName(ctx, "Three Norns"))
	assert.ErrorIs(t, m.PickRune(ctx, "Nope"), domain.ErrRuneNotFound)

	m.Reset(ctx)
	snap := m.Snapshot()
	assert.Equal(t, domain.StatusUnset, snap.Status)
	assert.Empty(t, snap.Selections)
	assert.Nil(t, snap.Spread)
	assert.Equal(t, domain.ModeUnset, snap.Mode)
}

func TestMachine_TransitionHooks(t *testing.T) {
	ctx := context.Background()
	var mu sync.Mutex
	var seen []string
	hooks := domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, string(e.From)+">"+string(e.To))
		},
	}
	m := newMachine(t, echoInterpreter(nil), session.WithLifecycleHooks(hooks), session.WithRecorder(&memoryRecorder{}))
	require.NoError(t, m.ChooseMode(ctx, domain.ModeVirtual))
	require.NoError(t, m.ChooseSpreadByName(ctx, "Single Rune"))
	require.NoError(t, m.PickRune(ctx, "Ehwaz"))
	wait(t, m)
	_, err := m.Commit(ctx)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"unset>mode_chosen",
		"mode_chosen>collecting",
		"collecting>completing",
		"completing>interpreted",
		"interpreted>unset",
	}, seen)
}

func runeNames(runes []domain.Rune) []string {
	out := make([]string, len(runes))
	for i, r := range runes {
		out[i] = r.Name
	}
	return out
}

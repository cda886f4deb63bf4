package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/amutnick/Runecast"
	"github.com/amutnick/Runecast/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func script(lines ...string) io.Reader {
	return strings.NewReader(strings.Join(lines, "\n") + "\n")
}

func newTestApp(t *testing.T) *runecast.App {
	t.Helper()
	app, err := runecast.New()
	require.NoError(t, err)
	return app
}

func TestInteractive_PhysicalReading(t *testing.T) {
	app := newTestApp(t)
	var out bytes.Buffer

	it := NewInteractive(app, script("p", "1", "feh", "r", "save", "quit"), &out)
	require.NoError(t, it.Run(context.Background()))

	assert.Contains(t, out.String(), "Was Fehu drawn upright or reversed?")
	assert.Contains(t, out.String(), ">>> Saved reading")

	records, err := app.History().List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Single Rune", records[0].Spread.Name)
	assert.Equal(t, []domain.SelectedRune{{RuneName: "Fehu", Orientation: domain.Reversed}}, records[0].Runes)
}

func TestInteractive_VirtualReadingAndHistory(t *testing.T) {
	app := newTestApp(t)
	var out bytes.Buffer

	it := NewInteractive(app, script("v", "Three Norns", "", "", "", "s", ":history", "1", "quit"), &out)
	require.NoError(t, it.Run(context.Background()))

	records, err := app.History().List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Len(t, records[0].Runes, 3)
	assert.Contains(t, out.String(), "1 readings")
	assert.Contains(t, out.String(), "### Interpretation")
}

func TestInteractive_Discard(t *testing.T) {
	app := newTestApp(t)
	var out bytes.Buffer

	it := NewInteractive(app, script("virtual", "1", "1", "discard", "quit"), &out)
	require.NoError(t, it.Run(context.Background()))

	count, err := app.History().Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Contains(t, out.String(), "Choose a mode")
}

func TestInteractive_InvalidInput(t *testing.T) {
	app := newTestApp(t)
	var out bytes.Buffer

	it := NewInteractive(app, script("sideways", "p", "99", "quit"), &out)
	require.NoError(t, it.Run(context.Background()))

	assert.Contains(t, out.String(), "unrecognized input")
	assert.Contains(t, out.String(), "choose a spread between 1 and")
}

func TestInteractive_Settings(t *testing.T) {
	app := newTestApp(t)
	var out bytes.Buffer
	var saved []int

	it := NewInteractive(app, script(":settings", "-1", "30", "quit"), &out,
		WithRetentionSaver(func(days int) error {
			saved = append(saved, days)
			return nil
		}))
	require.NoError(t, it.Run(context.Background()))

	assert.Equal(t, []int{0, 30}, saved)
	assert.Equal(t, 30, app.History().Retention())
	assert.Contains(t, out.String(), "Readings are kept forever.")
	assert.Contains(t, out.String(), "Readings are kept for 30 days.")
}

func TestInteractive_SettingsKeepsReadings(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	old := domain.ReadingRecord{
		ID:        "old",
		CreatedAt: time.Now().Add(-400 * 24 * time.Hour),
		Spread:    domain.Spread{Name: "Single Rune", RuneCount: 1},
	}
	require.NoError(t, app.History().Append(ctx, old))

	var out bytes.Buffer
	it := NewInteractive(app, script(":settings", "7", "quit"), &out)
	require.NoError(t, it.Run(ctx))

	assert.Equal(t, 7, app.History().Retention())
	_, err := app.History().Get(ctx, "old")
	assert.NoError(t, err, "changing retention must not delete readings")
}

func TestInteractive_AnalysisLocked(t *testing.T) {
	app := newTestApp(t)
	var out bytes.Buffer

	it := NewInteractive(app, script(":analysis", "", "quit"), &out)
	require.NoError(t, it.Run(context.Background()))

	assert.Contains(t, out.String(), "Record 5 more readings to unlock pattern analysis.")
	assert.Contains(t, out.String(), domain.ErrInsufficientHistory.Error())
}

func TestInteractive_EndOfInput(t *testing.T) {
	app := newTestApp(t)
	it := NewInteractive(app, strings.NewReader(""), io.Discard)

	err := it.Run(context.Background())
	assert.ErrorIs(t, err, io.EOF)
	assert.NoError(t, HandleExecutionError(err))
}

func TestInteractive_Cancelled(t *testing.T) {
	app := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewInteractive(app, script("p"), io.Discard).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/amutnick/Runecast"
	"github.com/amutnick/Runecast/internal/presentation/tui"
	"github.com/amutnick/Runecast/pkg/domain"
	"github.com/amutnick/Runecast/pkg/export"
	"github.com/amutnick/Runecast/pkg/session"
	"github.com/amutnick/Runecast/pkg/view"
)

var errUnrecognized = errors.New("unrecognized input, type 'help' for commands")

const helpText = `Commands:
  :home :history :analysis :settings :about   switch tab
  reset                                       start the reading over
  help                                        show this help
  quit                                        leave`

// Interactive drives reading sessions from line-based input. It renders the
// screen the view router selects and maps each line to a machine event.
type Interactive struct {
	app    *runecast.App
	in     *bufio.Scanner
	out    io.Writer
	render func(string) (string, error)
	width  int
	now    func() time.Time
	save   func(days int) error

	m       *session.Machine
	tab     view.Tab
	listing []domain.ReadingRecord
}

// InteractiveOption configures an Interactive loop.
type InteractiveOption func(*Interactive)

// WithRenderer sets the markdown renderer. Defaults to raw markdown.
func WithRenderer(render func(string) (string, error)) InteractiveOption {
	return func(it *Interactive) {
		it.render = render
	}
}

// WithWidth sets the table width.
func WithWidth(width int) InteractiveOption {
	return func(it *Interactive) {
		it.width = width
	}
}

// WithRetentionSaver persists retention changes made on the settings tab.
func WithRetentionSaver(save func(days int) error) InteractiveOption {
	return func(it *Interactive) {
		it.save = save
	}
}

// NewInteractive creates a loop reading commands from in and writing to out.
func NewInteractive(app *runecast.App, in io.Reader, out io.Writer, opts ...InteractiveOption) *Interactive {
	it := &Interactive{
		app:    app,
		in:     bufio.NewScanner(in),
		out:    out,
		render: func(md string) (string, error) { return md, nil },
		width:  80,
		now:    time.Now,
		m:      app.NewSession(),
		tab:    view.TabHome,
	}
	for _, opt := range opts {
		opt(it)
	}
	return it
}

// Run loops until the user quits, input ends or ctx is cancelled.
// End of input returns io.EOF.
func (it *Interactive) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		screen, err := it.show(ctx)
		if err != nil {
			return err
		}
		if screen.Kind == view.KindLoading {
			if err := it.m.Wait(ctx); err != nil {
				return err
			}
			continue
		}

		fmt.Fprint(it.out, "> ")
		if !it.in.Scan() {
			if err := it.in.Err(); err != nil {
				return err
			}
			return io.EOF
		}
		line, err := SanitizeInput(it.in.Text())
		if err != nil {
			fmt.Fprintln(it.out, tui.Error(err.Error()))
			continue
		}
		quit, err := it.handle(ctx, screen, line)
		if quit {
			return nil
		}
		if err != nil {
			fmt.Fprintln(it.out, tui.Error(err.Error()))
		}
	}
}

func (it *Interactive) show(ctx context.Context) (view.Screen, error) {
	count, err := it.app.History().Count(ctx)
	if err != nil {
		return view.Screen{}, err
	}
	snap := it.m.Snapshot()
	screen := view.Route(snap, it.tab, count)

	fmt.Fprintln(it.out)
	fmt.Fprintln(it.out, tui.Tabs(screen.Tab))
	body, err := it.body(ctx, screen, snap)
	if err != nil {
		fmt.Fprintln(it.out, tui.Error(err.Error()))
	}
	if body != "" {
		fmt.Fprintln(it.out, body)
	}
	fmt.Fprintln(it.out, tui.Title(tui.Prompt(screen, snap)))
	return screen, nil
}

func (it *Interactive) body(ctx context.Context, screen view.Screen, snap *domain.Session) (string, error) {
	switch screen.Kind {
	case view.KindSelectSpread:
		var b strings.Builder
		for i, sp := range it.app.Catalog().Spreads() {
			fmt.Fprintf(&b, "%2d. %s (%d) %s\n", i+1, sp.Name, sp.RuneCount, tui.Muted(sp.Description))
		}
		return strings.TrimRight(b.String(), "\n"), nil

	case view.KindSelectRunes:
		var b strings.Builder
		if len(snap.Selections) > 0 {
			names := make([]string, len(snap.Selections))
			for i, s := range snap.Selections {
				names[i] = s.String()
			}
			fmt.Fprintf(&b, "Drawn: %s\n", strings.Join(names, ", "))
		}
		available := it.m.Available()
		if snap.Mode == domain.ModeVirtual {
			fmt.Fprintf(&b, "%d runes lie face down. Pick one by number, or press enter.", len(available))
		} else if !screen.OrientationPrompt {
			b.WriteString(tui.RuneGrid(available, 4))
		}
		return b.String(), nil

	case view.KindResult:
		rec := domain.ReadingRecord{
			CreatedAt:      it.now(),
			Spread:         *snap.Spread,
			Runes:          snap.Selections,
			Interpretation: *snap.Result,
		}
		return it.render(export.Markdown(rec))

	case view.KindHistoryList:
		records, err := it.app.History().List(ctx)
		if err != nil {
			return "", err
		}
		it.listing = records
		return tui.HistoryTable(records, it.width) + "\n" +
			tui.Muted("Type a number to open a reading, 'rm <number>' to delete, 'stats' for frequencies."), nil

	case view.KindAnalysis:
		return tui.Muted("Press enter to analyze your journal, or type 'stats'."), nil

	case view.KindSettings:
		days := it.app.History().Retention()
		kept := fmt.Sprintf("Readings are kept for %d days.", days)
		if days == 0 {
			kept = "Readings are kept forever."
		}
		return kept + "\n" + tui.Muted("Type a number of days to change it (0 or less keeps everything)."), nil

	case view.KindAbout:
		return tui.Box(fmt.Sprintf("Runecast %s\n%d runes, %d spreads.", runecast.Version,
			len(it.app.Catalog().Runes()), len(it.app.Catalog().Spreads()))), nil
	}
	return "", nil
}

func (it *Interactive) handle(ctx context.Context, screen view.Screen, line string) (bool, error) {
	switch strings.ToLower(line) {
	case "q", "quit", "exit", ":q":
		return true, nil
	case "help", "?":
		fmt.Fprintln(it.out, helpText)
		return false, nil
	case "reset":
		it.m.Reset(ctx)
		it.tab = view.TabHome
		return false, nil
	}
	if strings.HasPrefix(line, ":") {
		tab, err := view.ParseTab(line[1:])
		if err != nil {
			return false, err
		}
		it.tab = tab
		return false, nil
	}

	switch screen.Kind {
	case view.KindSelectMode:
		return false, it.chooseMode(ctx, line)
	case view.KindSelectSpread:
		return false, it.chooseSpread(ctx, line)
	case view.KindSelectRunes:
		if screen.OrientationPrompt {
			return false, it.confirm(ctx, line)
		}
		return false, it.pick(ctx, line)
	case view.KindResult:
		return false, it.finish(ctx, line)
	case view.KindHistoryList:
		return false, it.browse(ctx, line)
	case view.KindAnalysis, view.KindAnalysisLocked:
		return false, it.analyze(ctx, line)
	case view.KindSettings:
		return false, it.settings(ctx, line)
	}
	if line == "" {
		return false, nil
	}
	return false, errUnrecognized
}

func (it *Interactive) chooseMode(ctx context.Context, line string) error {
	switch strings.ToLower(line) {
	case "p", "physical":
		return it.m.ChooseMode(ctx, domain.ModePhysical)
	case "v", "virtual":
		return it.m.ChooseMode(ctx, domain.ModeVirtual)
	}
	return errUnrecognized
}

func (it *Interactive) chooseSpread(ctx context.Context, line string) error {
	if n, err := strconv.Atoi(line); err == nil {
		spreads := it.app.Catalog().Spreads()
		if n < 1 || n > len(spreads) {
			return fmt.Errorf("choose a spread between 1 and %d", len(spreads))
		}
		return it.m.ChooseSpread(ctx, spreads[n-1])
	}
	return it.m.ChooseSpreadByName(ctx, line)
}

func (it *Interactive) pick(ctx context.Context, line string) error {
	available := it.m.Available()
	if n, err := strconv.Atoi(line); err == nil {
		if n < 1 || n > len(available) {
			return fmt.Errorf("choose a rune between 1 and %d", len(available))
		}
		return it.m.PickRune(ctx, available[n-1].Name)
	}
	if line == "" {
		if it.m.Snapshot().Mode != domain.ModeVirtual || len(available) == 0 {
			return nil
		}
		return it.m.PickRune(ctx, available[0].Name)
	}
	r, err := it.app.Catalog().Resolve(line)
	if err != nil {
		return err
	}
	return it.m.PickRune(ctx, r.Name)
}

func (it *Interactive) confirm(ctx context.Context, line string) error {
	if l := strings.ToLower(line); l == "c" || l == "cancel" {
		return it.m.CancelOrientation()
	}
	o, err := domain.ParseOrientation(strings.ToLower(line))
	if err != nil {
		return err
	}
	return it.m.ConfirmOrientation(ctx, o)
}

func (it *Interactive) finish(ctx context.Context, line string) error {
	switch strings.ToLower(line) {
	case "s", "save":
		rec, err := it.m.Commit(ctx)
		if err != nil {
			return err
		}
		printSystemMessage(it.out, "Saved reading %s.", rec.ID)
		return nil
	case "d", "discard":
		return it.m.Discard(ctx)
	case "r", "retry":
		return it.m.Retry(ctx)
	}
	return errUnrecognized
}

func (it *Interactive) browse(ctx context.Context, line string) error {
	if line == "stats" {
		st, err := it.app.History().Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(it.out, tui.StatsTable(st))
		return nil
	}

	remove := false
	if rest, ok := strings.CutPrefix(line, "rm "); ok {
		remove = true
		line = strings.TrimSpace(rest)
	}
	rec, err := it.lookup(line)
	if err != nil {
		return err
	}
	if remove {
		if err := it.app.History().Delete(ctx, rec.ID); err != nil {
			return err
		}
		printSystemMessage(it.out, "Deleted reading %s.", rec.ID)
		return nil
	}
	out, err := it.render(export.Markdown(rec))
	if err != nil {
		return err
	}
	fmt.Fprintln(it.out, out)
	return nil
}

// lookup finds a record from the last listing by 1-based position or ID.
func (it *Interactive) lookup(ref string) (domain.ReadingRecord, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(it.listing) {
			return domain.ReadingRecord{}, fmt.Errorf("choose a reading between 1 and %d", len(it.listing))
		}
		return it.listing[n-1], nil
	}
	for _, rec := range it.listing {
		if rec.ID == ref || (len(ref) >= 4 && strings.HasPrefix(rec.ID, ref)) {
			return rec, nil
		}
	}
	return domain.ReadingRecord{}, fmt.Errorf("%w: %q", domain.ErrRecordNotFound, ref)
}

func (it *Interactive) analyze(ctx context.Context, line string) error {
	if line == "stats" {
		st, err := it.app.History().Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(it.out, tui.StatsTable(st))
		return nil
	}
	if line != "" && line != "analyze" {
		return errUnrecognized
	}
	a, err := it.app.History().Analyze(ctx)
	if err != nil {
		return err
	}
	out, err := it.render(export.AnalysisMarkdown(a))
	if err != nil {
		return err
	}
	fmt.Fprintln(it.out, out)
	return nil
}

func (it *Interactive) settings(_ context.Context, line string) error {
	if line == "" {
		return nil
	}
	days, err := strconv.Atoi(line)
	if err != nil {
		return errUnrecognized
	}
	h := it.app.History()
	h.SetRetention(days)
	days = h.Retention()
	if it.save != nil {
		if err := it.save(days); err != nil {
			return fmt.Errorf("retention applied but not saved: %w", err)
		}
	}
	if days == 0 {
		printSystemMessage(it.out, "Retention disabled, readings are kept forever.")
	} else {
		printSystemMessage(it.out, "Retention set to %d days. Nothing is deleted until you prune.", days)
	}
	return nil
}

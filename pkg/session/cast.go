package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/amutnick/Runecast/pkg/catalog"
	"github.com/amutnick/Runecast/pkg/domain"
)

// Pick is one rune to draw. Orientation is used only when the machine asks
// for one; empty means upright.
type Pick struct {
	Rune        string             `json:"rune" mapstructure:"rune"`
	Orientation domain.Orientation `json:"orientation,omitempty" mapstructure:"orientation"`
}

// ParsePicks reads "Fehu:reversed, Gebo" into picks, resolving typed names
// and glyphs through the catalog.
func ParsePicks(cat *catalog.Catalog, raw string) ([]Pick, error) {
	var picks []Pick
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, orient, _ := strings.Cut(part, ":")
		r, err := cat.Resolve(name)
		if err != nil {
			return nil, err
		}
		p := Pick{Rune: r.Name}
		if orient = strings.TrimSpace(orient); orient != "" {
			o, err := domain.ParseOrientation(strings.ToLower(orient))
			if err != nil {
				return nil, err
			}
			p.Orientation = o
		}
		picks = append(picks, p)
	}
	return picks, nil
}

// Cast drives a fresh machine through a whole reading and waits for the
// interpretation. In virtual mode picks may be omitted, in which case runes
// are drawn from the front of the shuffled pool. The returned snapshot is in
// interpreted or failed.
func Cast(ctx context.Context, m *Machine, mode domain.Mode, spread string, picks []Pick) (*domain.Session, error) {
	if err := m.ChooseMode(ctx, mode); err != nil {
		return nil, err
	}
	if err := m.ChooseSpreadByName(ctx, spread); err != nil {
		return nil, err
	}

	want := m.Snapshot().Remaining()
	if len(picks) > want {
		return nil, fmt.Errorf("spread %q takes %d runes, got %d", spread, want, len(picks))
	}
	if len(picks) < want && mode == domain.ModePhysical {
		return nil, fmt.Errorf("spread %q takes %d runes, got %d", spread, want, len(picks))
	}

	for _, p := range picks {
		if err := m.PickRune(ctx, p.Rune); err != nil {
			return nil, err
		}
		if m.Snapshot().Pending != nil {
			o := p.Orientation
			if o == "" {
				o = domain.Upright
			}
			if err := m.ConfirmOrientation(ctx, o); err != nil {
				return nil, err
			}
		}
	}
	if mode == domain.ModePhysical && m.Status() == domain.StatusCollecting {
		return nil, fmt.Errorf("spread %q is incomplete: repeated runes are drawn only once", spread)
	}
	for m.Status() == domain.StatusCollecting {
		available := m.Available()
		if len(available) == 0 {
			return nil, fmt.Errorf("pool exhausted before spread %q was complete", spread)
		}
		if err := m.PickRune(ctx, available[0].Name); err != nil {
			return nil, err
		}
	}

	if err := m.Wait(ctx); err != nil {
		return nil, err
	}
	return m.Snapshot(), nil
}

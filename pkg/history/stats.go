package history

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/amutnick/Runecast/pkg/domain"
)

// RuneStat counts how often a rune was drawn.
type RuneStat struct {
	Name     string `json:"name"`
	Count    int    `json:"count"`
	Upright  int    `json:"upright"`
	Reversed int    `json:"reversed"`
}

// SpreadStat counts how often a spread was used.
type SpreadStat struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Stats is a local frequency summary of the journal. It needs no gateway.
type Stats struct {
	Total   int          `json:"total"`
	First   time.Time    `json:"first,omitzero"`
	Last    time.Time    `json:"last,omitzero"`
	Runes   []RuneStat   `json:"runes"`
	Spreads []SpreadStat `json:"spreads"`
}

// Stats summarizes the journal.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Summarize(records), nil
}

// Summarize computes Stats over records. Runes and spreads are ordered by
// count, most frequent first, then by name.
func Summarize(records []domain.ReadingRecord) Stats {
	st := Stats{Total: len(records), Runes: []RuneStat{}, Spreads: []SpreadStat{}}

	runes := map[string]*RuneStat{}
	spreads := map[string]*SpreadStat{}
	for _, rec := range records {
		if st.First.IsZero() || rec.CreatedAt.Before(st.First) {
			st.First = rec.CreatedAt
		}
		if rec.CreatedAt.After(st.Last) {
			st.Last = rec.CreatedAt
		}

		sp, ok := spreads[rec.Spread.Name]
		if !ok {
			sp = &SpreadStat{Name: rec.Spread.Name}
			spreads[rec.Spread.Name] = sp
		}
		sp.Count++

		for _, sel := range rec.Runes {
			rs, ok := runes[sel.RuneName]
			if !ok {
				rs = &RuneStat{Name: sel.RuneName}
				runes[sel.RuneName] = rs
			}
			rs.Count++
			if sel.Orientation == domain.Reversed {
				rs.Reversed++
			} else {
				rs.Upright++
			}
		}
	}

	for _, rs := range runes {
		st.Runes = append(st.Runes, *rs)
	}
	slices.SortFunc(st.Runes, func(a, b RuneStat) int {
		return cmp.Or(cmp.Compare(b.Count, a.Count), cmp.Compare(a.Name, b.Name))
	})
	for _, sp := range spreads {
		st.Spreads = append(st.Spreads, *sp)
	}
	slices.SortFunc(st.Spreads, func(a, b SpreadStat) int {
		return cmp.Or(cmp.Compare(b.Count, a.Count), cmp.Compare(a.Name, b.Name))
	})
	return st
}

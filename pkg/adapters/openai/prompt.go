package openai

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/amutnick/Runecast/pkg/domain"
	"github.com/amutnick/Runecast/pkg/ports"
)

const persona = "You are Runecast, an expert in Norse mythology and the Elder Futhark runes. " +
	"Your voice is wise and accessible: plain English, with Norse context (gods, myths, concepts) where it adds meaning. " +
	"Avoid academic or archaic language. Always answer with a single JSON object."

func interpretationPrompt(req ports.InterpretationRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A user has performed a rune reading.\nThe chosen spread is: %q.\nThe runes pulled are:\n", req.Spread)
	for i, r := range req.Runes {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, r.RuneName, r.Orientation)
	}
	b.WriteString(`
Tasks:
1. For each rune, give a brief summary of its meaning in this reading, considering its position and orientation.
2. Give a holistic interpretation of the runes as a whole, one coherent narrative.
3. Write 3 to 5 open-ended reflective questions connecting the reading to the user's life.

Reply with JSON of this shape:
{"individual_runes":[{"rune_name":"...","orientation":"upright|reversed","summary":"..."}],"summary":"...","questions":["..."]}
Use exactly the rune names listed above, one entry per rune.`)
	return b.String()
}

type historyEntry struct {
	Date   time.Time `json:"date"`
	Spread string    `json:"spread"`
	Runes  []string  `json:"runes"`
}

func analysisPrompt(records []domain.ReadingRecord) (string, error) {
	entries := make([]historyEntry, len(records))
	for i, r := range records {
		runes := make([]string, len(r.Runes))
		for j, sel := range r.Runes {
			runes[j] = sel.String()
		}
		entries[i] = historyEntry{Date: r.CreatedAt, Spread: r.Spread.Name, Runes: runes}
	}
	history, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal history: %w", err)
	}

	return fmt.Sprintf(`Here is the history of a user's rune readings:
%s

Analyze it for patterns, paying attention to orientation:
1. Frequent runes: the runes appearing most often (combine orientations for the count, mention what the orientation adds) and what their recurrence may signify.
2. Recurring themes across the readings (transformation, conflict, new beginnings, repeated reversals suggesting blockages...).
3. An overall summary of the patterns and the insight they offer.

Reply with JSON of this shape:
{"frequent_runes":[{"rune_name":"...","count":0,"interpretation":"..."}],"recurring_themes":["..."],"overall_summary":"..."}`, history), nil
}

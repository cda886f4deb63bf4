package ports

import (
	"context"

	"github.com/amutnick/Runecast/pkg/domain"
)

// InterpretationRequest is what the interpreter receives for a completed spread.
type InterpretationRequest struct {
	Spread    string                `json:"spread"`
	RuneCount int                   `json:"rune_count"`
	Runes     []domain.SelectedRune `json:"runes"`
}

// Interpreter maps a completed spread to narrative prose.
// Its output is opaque text, except IndividualRunes which must name the same
// runes as the request (in any order).
type Interpreter interface {
	Interpret(ctx context.Context, req InterpretationRequest) (domain.Interpretation, error)
}

// InterpreterFunc adapts a function to the Interpreter interface.
type InterpreterFunc func(ctx context.Context, req InterpretationRequest) (domain.Interpretation, error)

// Interpret calls f.
func (f InterpreterFunc) Interpret(ctx context.Context, req InterpretationRequest) (domain.Interpretation, error) {
	return f(ctx, req)
}

// PatternAnalyzer looks for recurring themes across the reading history.
type PatternAnalyzer interface {
	Analyze(ctx context.Context, records []domain.ReadingRecord) (domain.PatternAnalysis, error)
}

package tui

import (
	"github.com/amutnick/Runecast/pkg/export"
)

// NewRenderer returns a function that renders markdown for the terminal.
// Rendering failures fall back to the raw markdown along with the error.
func NewRenderer(opts ...export.TerminalOption) func(string) (string, error) {
	return func(markdown string) (string, error) {
		out, err := export.Terminal(markdown, opts...)
		if err != nil {
			return markdown, err
		}
		return out, nil
	}
}

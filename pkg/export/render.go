package export

import (
	"bytes"
	"fmt"
	"html"

	"github.com/charmbracelet/glamour"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// HTML converts Markdown produced by this package into an HTML fragment.
func HTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("failed to render html: %w", err)
	}
	return buf.String(), nil
}

// HTMLDocument wraps HTML output in a minimal standalone page.
func HTMLDocument(title, markdown string) (string, error) {
	body, err := HTML(markdown)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n", html.EscapeString(title))
	buf.WriteString(body)
	buf.WriteString("</body>\n</html>\n")
	return buf.String(), nil
}

// TerminalOption tunes terminal rendering.
type TerminalOption func(*terminalConfig)

type terminalConfig struct {
	style string
	width int
}

// WithStyle selects a glamour standard style ("dark", "light", "notty", ...).
// Without it the style follows the terminal background.
func WithStyle(style string) TerminalOption {
	return func(c *terminalConfig) {
		c.style = style
	}
}

// WithWidth sets the word-wrap width.
func WithWidth(width int) TerminalOption {
	return func(c *terminalConfig) {
		c.width = width
	}
}

// Terminal renders Markdown for display in a terminal.
func Terminal(markdown string, opts ...TerminalOption) (string, error) {
	cfg := terminalConfig{width: 80}
	for _, opt := range opts {
		opt(&cfg)
	}

	rOpts := []glamour.TermRendererOption{glamour.WithWordWrap(cfg.width)}
	if cfg.style != "" {
		rOpts = append(rOpts, glamour.WithStandardStyle(cfg.style))
	} else {
		rOpts = append(rOpts, glamour.WithAutoStyle())
	}

	r, err := glamour.NewTermRenderer(rOpts...)
	if err != nil {
		return "", fmt.Errorf("failed to create renderer: %w", err)
	}
	out, err := r.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}

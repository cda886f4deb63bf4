package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{`  ____                                   _   `, "#2CD7C7"},
	{` |  _ \ _   _ _ __   ___  ___ __ _ ___| |_ `, "#20B9B4"},
	{` | |_) | | | | '_ \ / _ \/ __/ _' / __| __|`, "#1D9EA3"},
	{` |  _ <| |_| | | | |  __/ (_| (_| \__ \ |_ `, "#16858E"},
	{` |_| \_\\__,_|_| |_|\___|\___\__,_|___/\__|`, "#157483"},
}

// PrintBanner writes the Runecast banner to w, colored for the detected
// terminal profile.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	if version != "" {
		fmt.Fprintln(w, termenv.String("  v"+version+" · ᚠ ᚢ ᚦ ᚨ ᚱ ᚲ").Faint())
	}
	fmt.Fprintln(w)
}

package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the cohort ASCII banner followed by the version.
func PrintBanner(w io.Writer, version string) {
	p := termenv.EnvColorProfile()
	lines := []struct{ text, color string }{
		{"   ___      _                _   ", "#34d399"},
		{"  / __\\___ | |__   ___  _ __| |_ ", "#2dd4bf"},
		{" / /  / _ \\| '_ \\ / _ \\| '__| __|", "#22d3ee"},
		{"/ /__| (_) | | | | (_) | |  | |_ ", "#38bdf8"},
		{"\\____/\\___/|_| |_|\\___/|_|   \\__|", "#60a5fa"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  Markov cohort simulator v"+version).Faint())
	fmt.Fprintln(w)
}

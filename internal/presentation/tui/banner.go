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
	{` _        _                                  `, "#5eead4"},
	{`| |_ __ _| | _____      _____  __ ___   _____ `, "#2dd4bf"},
	{`| __/ _' | |/ _ \ \ /\ / / _ \/ _' \ \ / / _ \`, "#38bdf8"},
	{`| || (_| | |  __/\ V  V /  __/ (_| |\ V /  __/`, "#818cf8"},
	{` \__\__,_|_|\___| \_/\_/ \___|\__,_| \_/ \___|`, "#a78bfa"},
}

// PrintBanner writes the taleweave banner, shaded when the terminal supports color.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	fmt.Fprintln(w)
	for _, line := range bannerLines {
		fmt.Fprintln(w, termenv.String(line.text).Foreground(p.Color(line.color)))
	}
	fmt.Fprintln(w, termenv.String("  branching roleplay engine "+version).Faint())
	fmt.Fprintln(w)
}

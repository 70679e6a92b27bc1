package view

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// ANSI sequences used by the colour text renderer.
const (
	ansiReset     = "\x1b[0m"
	ansiBold      = "\x1b[1m"
	ansiRed       = "\x1b[31m"
	ansiYellowBG  = "\x1b[43;30m"
	ansiDim       = "\x1b[2m"
	ansiClearHome = "\x1b[H\x1b[2J"
)

// TextOptions controls the terminal rendering.
type TextOptions struct {
	// Color enables ANSI colour and bold output.
	Color bool

	// Clear prefixes the output with a clear-screen sequence. Ignored
	// unless Color is set.
	Clear bool
}

// RenderText writes v as plain or coloured terminal text.
//
// The whole frame is buffered and written with a single Write so a
// terminal never shows a half-drawn frame.
func RenderText(w io.Writer, v View, opts TextOptions) error {
	var b bytes.Buffer

	style := func(code, s string) string {
		if !opts.Color {
			return s
		}
		return code + s + ansiReset
	}

	if opts.Color && opts.Clear {
		b.WriteString(ansiClearHome)
	}

	b.WriteString(style(ansiBold, v.Title))
	b.WriteString("\n\n")

	b.WriteString("Pool: ")
	if len(v.Pools) == 0 {
		b.WriteString(style(ansiDim, "(none)"))
	}
	names := make([]string, 0, len(v.Pools))
	for _, p := range v.Pools {
		label := fmt.Sprintf("%d %s", p.ID, p.Name)
		if p.Selected {
			label = style(ansiBold, "["+label+"]")
		}
		names = append(names, label)
	}
	b.WriteString(strings.Join(names, "  "))
	b.WriteString("\n")

	fmt.Fprintf(&b, "Last updated: %s\n", v.Timestamp)

	if v.Error != "" {
		b.WriteString("\n")
		b.WriteString(style(ansiRed, v.Error))
		b.WriteString("\n")
	}

	for _, e := range v.Entries {
		b.WriteString("\n")
		heading := fmt.Sprintf("%s  (%s)", e.Heading, e.AveragePosition)
		switch {
		case e.Highlight && opts.Color:
			b.WriteString(style(ansiYellowBG, heading))
		case e.Highlight:
			b.WriteString("* " + heading)
		default:
			b.WriteString(heading)
		}
		b.WriteString("\n")
		for _, d := range e.Drivers {
			fmt.Fprintf(&b, "    %s\n", d.Text)
		}
	}

	_, err := w.Write(b.Bytes())
	return err
}

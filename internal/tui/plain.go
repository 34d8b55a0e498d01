package tui

import (
	"fmt"
	"io"

	"imgpress/internal/processor"
)

// Plain writes progress as ordinary lines, for pipes and dumb terminals.
type Plain struct {
	w io.Writer
}

func NewPlain(w io.Writer) *Plain {
	return &Plain{w: w}
}

// Observe has the processor.Observer signature.
func (p *Plain) Observe(u processor.ProgressUpdate) {
	switch u.Kind {
	case processor.EventStarted:
		fmt.Fprintln(p.w, ProgressBar(30, u.Index-1, u.Total))
		fmt.Fprintln(p.w, labelStyle.Render("Processing: "+u.Name))
	case processor.EventFinished:
		fmt.Fprintln(p.w, ProgressBar(30, u.Total, u.Total))
	default:
		fmt.Fprintln(p.w, "  "+Outcome(u))
	}
}

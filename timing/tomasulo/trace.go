package tomasulo

import (
	"fmt"
	"io"
)

// RegisterTracer writes one line of comma-separated register values after
// every commit, for offline debugging of a run. It participates in no
// simulation semantics; disabling it changes nothing about the result.
type RegisterTracer struct {
	w io.Writer
}

// NewRegisterTracer wraps w as a register tracer.
func NewRegisterTracer(w io.Writer) *RegisterTracer {
	return &RegisterTracer{w: w}
}

// Write emits one trace line for the given register snapshot.
func (t *RegisterTracer) Write(pc uint32, regs [32]uint32) {
	if t == nil || t.w == nil {
		return
	}
	fmt.Fprintf(t.w, "%d", pc)
	for _, v := range regs {
		fmt.Fprintf(t.w, ",%d", v)
	}
	fmt.Fprintln(t.w)
}

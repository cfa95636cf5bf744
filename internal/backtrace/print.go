package backtrace

import (
	"fmt"
	"io"
)

// PrintDefault writes a plain-text rendition of raw to w. It is the
// fallback formatter the runtime uses when an exception terminates
// execution and no richer printer is wired up; it never fails on missing
// debug data.
func PrintDefault(w io.Writer, raw Raw, store Store) error {
	if raw.Len() == 0 {
		_, err := fmt.Fprintln(w, "(backtrace unavailable: recording was off or the stack is empty)")
		return err
	}
	for i, fr := range Decode(raw, store) {
		if _, err := fmt.Fprintln(w, FrameLine(i, fr)); err != nil {
			return err
		}
	}
	return nil
}

// FrameLine renders one decoded frame in the default format:
//
//	Raised at boom (examples/boom.evm:4:3)
//	Called from run (examples/boom.evm:9:3)
//	Called from unknown location (bytecode@0x200000001)
func FrameLine(i int, fr Frame) string {
	verb := "Called from"
	switch {
	case fr.Slot.Alloc:
		verb = "Allocated at"
	case i == 0:
		verb = "Raised at"
	}
	if !fr.Known {
		return fmt.Sprintf("%s unknown location (%s)", verb, fr.Slot)
	}
	suffix := ""
	if fr.Loc.Inline {
		suffix = " (inlined)"
	}
	return fmt.Sprintf("%s %s (%s:%d:%d)%s", verb, fr.Loc.Function, fr.Loc.File, fr.Loc.Line, fr.Loc.Col, suffix)
}

package backtrace

import "runtime"

// Location is a resolved source position for one frame.
type Location struct {
	Function string
	File     string
	Line     uint32
	Col      uint32
	Inline   bool
}

// Store is the debug-info boundary: it maps bytecode slots to source
// locations. Implementations must be safe for concurrent lookups and are
// expected to load and memoize their tables lazily; a failed load simply
// makes every lookup miss.
type Store interface {
	Lookup(slot Slot) (Location, bool)
}

// Frame is one decoded backtrace entry. Known reports whether debug
// information was available; when it is false only Slot is meaningful.
type Frame struct {
	Slot  Slot
	Known bool
	Loc   Location
}

// Decode resolves a raw snapshot into source-level frames, preserving
// order. Bytecode slots are resolved through store (which may be nil),
// host slots through the Go runtime's own tables. A miss produces an
// unresolved frame rather than an error, so a partially symbolized
// backtrace is always available. Decoding is deterministic, repeatable and
// never mutates the snapshot.
func Decode(raw Raw, store Store) []Frame {
	frames := make([]Frame, raw.Len())
	for i := range frames {
		slot := raw.Slot(i)
		frames[i] = Frame{Slot: slot}
		switch slot.Kind {
		case SlotBytecode:
			if store == nil {
				continue
			}
			if loc, ok := store.Lookup(slot); ok {
				frames[i].Known = true
				frames[i].Loc = loc
			}
		case SlotHost:
			if loc, ok := resolveHost(slot.PC); ok {
				frames[i].Known = true
				frames[i].Loc = loc
			}
		}
	}
	return frames
}

// resolveHost symbolizes a host program counter via the Go runtime.
func resolveHost(pc uint64) (Location, bool) {
	if pc == 0 {
		return Location{}, false
	}
	rframes := runtime.CallersFrames([]uintptr{uintptr(pc)})
	f, _ := rframes.Next()
	if f.Function == "" && f.File == "" {
		return Location{}, false
	}
	return Location{
		Function: f.Function,
		File:     f.File,
		Line:     uint32(f.Line), //nolint:gosec // line numbers fit
	}, true
}

package backtrace

import "fmt"

// SlotKind discriminates which unwinder produced a slot.
type SlotKind uint8

const (
	// SlotBytecode is an interpreted-code slot: PC holds a packed
	// bytecode program counter (see the bytecode package).
	SlotBytecode SlotKind = iota + 1
	// SlotHost is a compiled-code slot: PC holds a host program counter
	// obtained from the Go runtime.
	SlotHost
)

// String returns the string representation of SlotKind.
func (k SlotKind) String() string {
	switch k {
	case SlotBytecode:
		return "bytecode"
	case SlotHost:
		return "host"
	default:
		return "unknown"
	}
}

// Slot identifies one stack frame's unwind point. It is opaque to the
// capture machinery; only the decoder dispatches on Kind. Alloc marks the
// slot as an allocation point rather than a call or raise site.
type Slot struct {
	Kind  SlotKind
	PC    uint64
	Alloc bool
}

// String formats the slot for unresolved-frame output.
func (s Slot) String() string {
	return fmt.Sprintf("%s@%#x", s.Kind, s.PC)
}

// Package bytecode defines the instruction set and module model executed by
// the Ember VM.
//
// A Module is a flat list of functions; each function is a flat list of
// fixed-size instructions addressed by a PC that packs the function index
// and the instruction offset into a single word. Packed PCs are what the
// backtrace machinery records during unwinding and what the debug-info
// tables are keyed by.
package bytecode

import (
	"fmt"

	"fortio.org/safecast"
)

// Op identifies a bytecode instruction.
type Op uint8

const (
	OpNop Op = iota
	// OpCall pushes a new frame for the function at index Arg.
	OpCall
	// OpReturn pops the current frame.
	OpReturn
	// OpRaise raises a fresh exception named by string table entry Arg.
	OpRaise
	// OpReraise re-raises the exception currently held by the nearest
	// enclosing handler, continuing its backtrace.
	OpReraise
	// OpPushHandler installs an exception handler at offset Arg within the
	// current function.
	OpPushHandler
	// OpPopHandler removes the most recently installed handler.
	OpPopHandler
	// OpCapture snapshots the live call stack (at most Arg slots) into the
	// VM's capture register, independent of any in-flight exception.
	OpCapture
	// OpHalt stops execution.
	OpHalt
)

// String returns the assembler mnemonic for the opcode.
func (op Op) String() string {
	switch op {
	case OpNop:
		return "nop"
	case OpCall:
		return "call"
	case OpReturn:
		return "return"
	case OpRaise:
		return "raise"
	case OpReraise:
		return "reraise"
	case OpPushHandler:
		return "push_handler"
	case OpPopHandler:
		return "pop_handler"
	case OpCapture:
		return "capture"
	case OpHalt:
		return "halt"
	default:
		return fmt.Sprintf("<?op:%d>", uint8(op))
	}
}

// HasArg reports whether the opcode carries an operand.
func (op Op) HasArg() bool {
	switch op {
	case OpCall, OpRaise, OpPushHandler, OpCapture:
		return true
	default:
		return false
	}
}

// Instr is one fixed-size bytecode instruction.
type Instr struct {
	Op  Op
	Arg uint32
}

// Func is one compiled function body.
type Func struct {
	Name string
	Code []Instr
}

// Module is a fully linked bytecode unit.
type Module struct {
	Name    string
	Funcs   []Func
	Strings []string // exception names and other literals
}

// FuncIndex returns the index of the named function.
func (m *Module) FuncIndex(name string) (uint32, bool) {
	for i := range m.Funcs {
		if m.Funcs[i].Name == name {
			idx, err := safecast.Conv[uint32](i)
			if err != nil {
				return 0, false
			}
			return idx, true
		}
	}
	return 0, false
}

// InternString adds s to the string table if absent and returns its index.
func (m *Module) InternString(s string) uint32 {
	for i, existing := range m.Strings {
		if existing == s {
			return uint32(i)
		}
	}
	idx, err := safecast.Conv[uint32](len(m.Strings))
	if err != nil {
		panic(fmt.Errorf("string table overflow: %w", err))
	}
	m.Strings = append(m.Strings, s)
	return idx
}

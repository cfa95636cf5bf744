package bytecode

import "fmt"

// Validate checks structural well-formedness of a module: call targets,
// handler offsets and string table references must all be in range, and
// every function body must end in a terminator (return, raise, reraise or
// halt) so the interpreter cannot run off the end of the code array.
func Validate(m *Module) error {
	if m == nil {
		return fmt.Errorf("nil module")
	}
	if len(m.Funcs) == 0 {
		return fmt.Errorf("module %q has no functions", m.Name)
	}
	for fi := range m.Funcs {
		fn := &m.Funcs[fi]
		if len(fn.Code) == 0 {
			return fmt.Errorf("%s: empty function body", fn.Name)
		}
		for off, in := range fn.Code {
			switch in.Op {
			case OpCall:
				if int(in.Arg) >= len(m.Funcs) {
					return fmt.Errorf("%s+%d: call target %d out of range", fn.Name, off, in.Arg)
				}
			case OpRaise:
				if int(in.Arg) >= len(m.Strings) {
					return fmt.Errorf("%s+%d: raise name %d out of range", fn.Name, off, in.Arg)
				}
			case OpPushHandler:
				if int(in.Arg) >= len(fn.Code) {
					return fmt.Errorf("%s+%d: handler target %d out of range", fn.Name, off, in.Arg)
				}
			case OpNop, OpReturn, OpReraise, OpPopHandler, OpCapture, OpHalt:
				// no operand checks
			default:
				return fmt.Errorf("%s+%d: unknown opcode %d", fn.Name, off, uint8(in.Op))
			}
		}
		last := fn.Code[len(fn.Code)-1].Op
		switch last {
		case OpReturn, OpRaise, OpReraise, OpHalt:
		default:
			return fmt.Errorf("%s: function does not end in a terminator (got %s)", fn.Name, last)
		}
	}
	return nil
}

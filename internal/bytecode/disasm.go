package bytecode

import (
	"fmt"
	"io"
)

// Disasm writes a human-readable listing of the module to w.
func Disasm(w io.Writer, m *Module) error {
	for fi := range m.Funcs {
		fn := &m.Funcs[fi]
		if fi > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "func %s\n", fn.Name); err != nil {
			return err
		}
		for off, in := range fn.Code {
			var err error
			switch {
			case in.Op == OpCall:
				callee := fmt.Sprintf("#%d", in.Arg)
				if int(in.Arg) < len(m.Funcs) {
					callee = m.Funcs[in.Arg].Name
				}
				_, err = fmt.Fprintf(w, "  %4d: %s %s\n", off, in.Op, callee)
			case in.Op == OpRaise:
				name := fmt.Sprintf("#%d", in.Arg)
				if int(in.Arg) < len(m.Strings) {
					name = m.Strings[in.Arg]
				}
				_, err = fmt.Fprintf(w, "  %4d: %s %s\n", off, in.Op, name)
			case in.Op.HasArg():
				_, err = fmt.Fprintf(w, "  %4d: %s %d\n", off, in.Op, in.Arg)
			default:
				_, err = fmt.Fprintf(w, "  %4d: %s\n", off, in.Op)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

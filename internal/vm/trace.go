package vm

import (
	"fmt"

	"ember/internal/bytecode"
)

// traceStep writes one line per executed instruction when tracing is on.
// Format: [depth=N] <func>+<off> <instr>
func (vm *VM) traceStep(fn *bytecode.Func, f *Frame, in bytecode.Instr) {
	if vm.trace == nil {
		return
	}
	if in.Op.HasArg() {
		fmt.Fprintf(vm.trace, "[depth=%d] %s+%d %s %d\n", len(vm.Stack), fn.Name, f.IP, in.Op, in.Arg)
		return
	}
	fmt.Fprintf(vm.trace, "[depth=%d] %s+%d %s\n", len(vm.Stack), fn.Name, f.IP, in.Op)
}

// Package vm is the Ember bytecode interpreter.
//
// Its job in this repository is to exercise the backtrace pipeline the way
// a full runtime would: raising walks handler records frame by frame and
// stashes one slot per unwound frame into the VM's backtrace context, so
// the capture path runs inline with unwinding and costs nothing when
// recording is off.
package vm

import (
	"io"

	"ember/internal/backtrace"
	"ember/internal/bytecode"
	"ember/internal/source"
)

// handler is one installed exception handler within a frame.
type handler struct {
	target uint32 // instruction offset of the handler code
}

// Frame is one function activation record.
type Frame struct {
	Fn       uint32 // function index in the module
	IP       int    // offset of the next instruction to execute
	handlers []handler
}

// Exception is a raised exception value. Identity (pointer equality) is
// what the backtrace machinery uses to tell a re-raise from a fresh raise,
// so every OpRaise allocates a new value and OpReraise reuses the caught
// one.
type Exception struct {
	Name string
}

// Error implements the error interface.
func (e *Exception) Error() string {
	return "exception " + e.Name
}

// Options configures VM execution.
type Options struct {
	// Recording enables backtrace capture before execution starts.
	Recording bool
	// Trace receives a per-step execution trace when non-nil.
	Trace io.Writer
}

// VM executes one bytecode module on one logical thread-of-control.
type VM struct {
	M     *bytecode.Module
	Stack []Frame
	BT    backtrace.Context
	Files *source.FileSet

	current  *Exception // exception held by the most recent catch
	captured backtrace.Raw
	trace    io.Writer
	Halted   bool
}

// New creates a VM for the given module. The backtrace context is part of
// the VM's fixed-layout state: enabling recording here allocates nothing.
func New(m *bytecode.Module, files *source.FileSet, opts Options) *VM {
	vm := &VM{M: m, Files: files, trace: opts.Trace}
	vm.BT.SetRecording(opts.Recording)
	return vm
}

// Backtrace exposes the VM's capture context. The embedding scheduler uses
// it to toggle recording or migrate state; nothing else should touch it
// concurrently with Run.
func (vm *VM) Backtrace() *backtrace.Context {
	return &vm.BT
}

// Captured returns the snapshot taken by the most recent OpCapture.
func (vm *VM) Captured() backtrace.Raw {
	return vm.captured
}

// Run executes the program starting from "main". It returns a FatalError
// when an exception escapes uncaught, nil on completion.
func (vm *VM) Run() *FatalError {
	entry, ok := vm.M.FuncIndex("main")
	if !ok {
		entry = 0
	}
	vm.Stack = append(vm.Stack[:0], Frame{Fn: entry})
	vm.Halted = false

	for !vm.Halted && len(vm.Stack) > 0 {
		if ferr := vm.Step(); ferr != nil {
			return ferr
		}
	}
	return nil
}

// Step executes one instruction.
func (vm *VM) Step() *FatalError {
	f := &vm.Stack[len(vm.Stack)-1]
	fn := &vm.M.Funcs[f.Fn]
	if f.IP >= len(fn.Code) {
		// Validate rejects fall-through bodies; treat defensively as return.
		vm.Stack = vm.Stack[:len(vm.Stack)-1]
		return nil
	}
	in := fn.Code[f.IP]
	vm.traceStep(fn, f, in)

	switch in.Op {
	case bytecode.OpNop:
		f.IP++

	case bytecode.OpCall:
		f.IP++ // return resumes after the call site
		vm.Stack = append(vm.Stack, Frame{Fn: in.Arg})

	case bytecode.OpReturn:
		vm.Stack = vm.Stack[:len(vm.Stack)-1]

	case bytecode.OpRaise:
		return vm.throw(&Exception{Name: vm.M.Strings[in.Arg]}, false)

	case bytecode.OpReraise:
		if vm.current == nil {
			return vm.throw(&Exception{Name: "RERAISE_WITHOUT_EXCEPTION"}, false)
		}
		return vm.throw(vm.current, true)

	case bytecode.OpPushHandler:
		f.handlers = append(f.handlers, handler{target: in.Arg})
		f.IP++

	case bytecode.OpPopHandler:
		if n := len(f.handlers); n > 0 {
			f.handlers = f.handlers[:n-1]
		}
		f.IP++

	case bytecode.OpCapture:
		vm.captured = backtrace.Callstack(vm, int(in.Arg), -1)
		f.IP++

	case bytecode.OpHalt:
		vm.Halted = true

	default:
		f.IP++
	}
	return nil
}

// throw propagates exn outward, stashing one slot per unwound frame while
// recording is active. The first stash carries the caller's reraise flag;
// frames unwound past it continue the same trace.
func (vm *VM) throw(exn *Exception, reraise bool) *FatalError {
	raising := true
	for len(vm.Stack) > 0 {
		f := &vm.Stack[len(vm.Stack)-1]
		vm.BT.Stash(exn, vm.frameSlot(f, raising), reraise)
		reraise = true
		raising = false

		if n := len(f.handlers); n > 0 {
			h := f.handlers[n-1]
			f.handlers = f.handlers[:n-1]
			f.IP = int(h.target)
			vm.current = exn
			return nil
		}
		vm.Stack = vm.Stack[:len(vm.Stack)-1]
	}
	return &FatalError{
		Exn: exn,
		Raw: vm.BT.Snapshot(backtrace.BufferSize, -1),
	}
}

// frameSlot describes a frame's unwind point: the faulting instruction for
// the frame that raised, the call site for every frame below it.
func (vm *VM) frameSlot(f *Frame, raising bool) backtrace.Slot {
	off := f.IP
	if !raising && off > 0 {
		off--
	}
	return backtrace.Slot{
		Kind: backtrace.SlotBytecode,
		PC:   uint64(bytecode.MakePC(f.Fn, uint32(off))), //nolint:gosec // offsets fit
	}
}

// WalkStack implements backtrace.Unwinder over the live frame stack,
// innermost first.
func (vm *VM) WalkStack(yield func(backtrace.Slot) bool) {
	for i := len(vm.Stack) - 1; i >= 0; i-- {
		f := &vm.Stack[i]
		if !yield(vm.frameSlot(f, i == len(vm.Stack)-1)) {
			return
		}
	}
}

// AllocSlot implements backtrace.Unwinder. The VM has no allocator of its
// own, so every allocation index maps to the current instruction.
func (vm *VM) AllocSlot(idx int) (backtrace.Slot, bool) {
	if idx < 0 || len(vm.Stack) == 0 {
		return backtrace.Slot{}, false
	}
	f := &vm.Stack[len(vm.Stack)-1]
	return vm.frameSlot(f, true), true
}

package vm

import (
	"strings"
	"testing"

	"ember/internal/asm"
	"ember/internal/backtrace"
	"ember/internal/bytecode"
	"ember/internal/debuginfo"
)

const reraiseSrc = `; raise through two calls, catch, re-raise
func main
    push_handler recover
    call run
    pop_handler
    halt
recover:
    reraise

func run
    call boom
    return

func boom
    raise E_BOOM
`

const caughtSrc = `func main
    push_handler ok
    call boom
    halt
ok:
    halt

func boom
    raise E_X
`

const captureSrc = `func main
    call inner
    halt

func inner
    capture 8
    return
`

func mustAssemble(t *testing.T, name, src string) *asm.Program {
	t.Helper()
	prog, err := asm.AssembleSource(name, src)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	return prog
}

// frameAt decodes one frame and fails the test if it is unresolved.
func frameAt(t *testing.T, frames []backtrace.Frame, i int) backtrace.Location {
	t.Helper()
	if i >= len(frames) {
		t.Fatalf("backtrace has %d frames, wanted index %d", len(frames), i)
	}
	if !frames[i].Known {
		t.Fatalf("frame %d unresolved: %v", i, frames[i].Slot)
	}
	return frames[i].Loc
}

func TestRun_UncaughtReraiseBacktrace(t *testing.T) {
	prog := mustAssemble(t, "boom.evm", reraiseSrc)
	machine := New(prog.Module, prog.FileSet, Options{Recording: true})

	fatal := machine.Run()
	if fatal == nil {
		t.Fatal("Run returned nil, want FatalError")
	}
	if fatal.Exn.Name != "E_BOOM" {
		t.Fatalf("escaped exception = %q, want E_BOOM", fatal.Exn.Name)
	}

	store := debuginfo.NewStoreFromTable(prog.Debug)
	frames := backtrace.Decode(fatal.Raw, store)

	// Innermost first: the raise, both call sites, then the re-raise —
	// the re-raise continued the original trace instead of restarting it.
	wantFn := []string{"boom", "run", "main", "main"}
	wantLine := []uint32{15, 11, 4, 8}
	if len(frames) != len(wantFn) {
		t.Fatalf("backtrace has %d frames, want %d", len(frames), len(wantFn))
	}
	for i := range wantFn {
		loc := frameAt(t, frames, i)
		if loc.Function != wantFn[i] || loc.Line != wantLine[i] {
			t.Errorf("frame %d = %s:%d, want %s:%d", i, loc.Function, loc.Line, wantFn[i], wantLine[i])
		}
	}
}

func TestRun_RecordingOffYieldsEmptyBacktrace(t *testing.T) {
	prog := mustAssemble(t, "boom.evm", reraiseSrc)
	machine := New(prog.Module, prog.FileSet, Options{Recording: false})

	fatal := machine.Run()
	if fatal == nil {
		t.Fatal("Run returned nil, want FatalError")
	}
	if got := fatal.Raw.Len(); got != 0 {
		t.Fatalf("backtrace has %d slots with recording off, want 0", got)
	}
}

func TestRun_CaughtExceptionCompletes(t *testing.T) {
	prog := mustAssemble(t, "caught.evm", caughtSrc)
	machine := New(prog.Module, prog.FileSet, Options{Recording: true})

	if fatal := machine.Run(); fatal != nil {
		t.Fatalf("Run returned %v, want nil", fatal)
	}
	// The stash persists after the catch, until the next fresh raise.
	if machine.Backtrace().Depth() == 0 {
		t.Fatal("stash buffer empty after a caught raise")
	}
}

func TestRun_FreshRaiseRestartsTrace(t *testing.T) {
	src := `func main
    push_handler next
    call boom
    halt
next:
    pop_handler
    raise E_SECOND

func boom
    raise E_FIRST
`
	prog := mustAssemble(t, "two.evm", src)
	machine := New(prog.Module, prog.FileSet, Options{Recording: true})

	fatal := machine.Run()
	if fatal == nil || fatal.Exn.Name != "E_SECOND" {
		t.Fatalf("Run = %v, want uncaught E_SECOND", fatal)
	}

	store := debuginfo.NewStoreFromTable(prog.Debug)
	frames := backtrace.Decode(fatal.Raw, store)
	if len(frames) != 1 {
		t.Fatalf("backtrace has %d frames, want 1 (fresh raise resets)", len(frames))
	}
	if loc := frameAt(t, frames, 0); loc.Function != "main" || loc.Line != 7 {
		t.Fatalf("frame 0 = %s:%d, want main:7", loc.Function, loc.Line)
	}
}

func TestRun_CaptureOpcode(t *testing.T) {
	prog := mustAssemble(t, "capture.evm", captureSrc)
	machine := New(prog.Module, prog.FileSet, Options{})

	if fatal := machine.Run(); fatal != nil {
		t.Fatalf("Run returned %v, want nil", fatal)
	}

	captured := machine.Captured()
	if captured.Len() != 2 {
		t.Fatalf("captured %d slots, want 2", captured.Len())
	}

	store := debuginfo.NewStoreFromTable(prog.Debug)
	frames := backtrace.Decode(captured, store)
	if loc := frameAt(t, frames, 0); loc.Function != "inner" || loc.Line != 6 {
		t.Fatalf("frame 0 = %s:%d, want inner:6", loc.Function, loc.Line)
	}
	if loc := frameAt(t, frames, 1); loc.Function != "main" || loc.Line != 2 {
		t.Fatalf("frame 1 = %s:%d, want main:2", loc.Function, loc.Line)
	}
}

func TestRun_CaptureRespectsMaxSlots(t *testing.T) {
	src := strings.Replace(captureSrc, "capture 8", "capture 1", 1)
	prog := mustAssemble(t, "capture.evm", src)
	machine := New(prog.Module, prog.FileSet, Options{})

	if fatal := machine.Run(); fatal != nil {
		t.Fatalf("Run returned %v, want nil", fatal)
	}
	if got := machine.Captured().Len(); got != 1 {
		t.Fatalf("captured %d slots, want 1", got)
	}
}

func TestRun_CaptureWorksWithoutRecording(t *testing.T) {
	// The public capture API walks the live stack; it does not depend on
	// the stash buffer or the recording flag.
	prog := mustAssemble(t, "capture.evm", captureSrc)
	machine := New(prog.Module, prog.FileSet, Options{Recording: false})

	if fatal := machine.Run(); fatal != nil {
		t.Fatalf("Run returned %v, want nil", fatal)
	}
	if machine.Captured().Len() == 0 {
		t.Fatal("capture opcode returned nothing with recording off")
	}
}

func TestRun_ReraiseWithoutException(t *testing.T) {
	src := `func main
    reraise
`
	prog := mustAssemble(t, "bare.evm", src)
	machine := New(prog.Module, prog.FileSet, Options{Recording: true})

	fatal := machine.Run()
	if fatal == nil || fatal.Exn.Name != "RERAISE_WITHOUT_EXCEPTION" {
		t.Fatalf("Run = %v, want RERAISE_WITHOUT_EXCEPTION", fatal)
	}
}

func TestFatalError_Format(t *testing.T) {
	prog := mustAssemble(t, "boom.evm", reraiseSrc)
	machine := New(prog.Module, prog.FileSet, Options{Recording: true})
	fatal := machine.Run()
	if fatal == nil {
		t.Fatal("Run returned nil, want FatalError")
	}

	store := debuginfo.NewStoreFromTable(prog.Debug)
	var sb strings.Builder
	fatal.Format(&sb, store, prog.FileSet, FormatOptions{})
	out := sb.String()

	for _, want := range []string{
		"Fatal error: exception E_BOOM",
		"Raised at boom (boom.evm:15:5)",
		"Called from run (boom.evm:11:5)",
		"Called from main (boom.evm:4:5)",
		"raise E_BOOM", // source excerpt under the raising frame
	} {
		if !strings.Contains(out, want) {
			t.Errorf("formatted report missing %q:\n%s", want, out)
		}
	}
}

func TestFatalError_FormatWithoutBacktrace(t *testing.T) {
	fatal := &FatalError{Exn: &Exception{Name: "E_X"}}
	var sb strings.Builder
	fatal.Format(&sb, nil, nil, FormatOptions{})
	if !strings.Contains(sb.String(), "backtrace unavailable") {
		t.Errorf("report missing unavailability notice:\n%s", sb.String())
	}
}

func TestVM_TraceOutput(t *testing.T) {
	prog := mustAssemble(t, "caught.evm", caughtSrc)
	var sb strings.Builder
	machine := New(prog.Module, prog.FileSet, Options{Trace: &sb})

	if fatal := machine.Run(); fatal != nil {
		t.Fatalf("Run returned %v, want nil", fatal)
	}
	trace := sb.String()
	for _, want := range []string{"push_handler", "call", "raise"} {
		if !strings.Contains(trace, want) {
			t.Errorf("trace missing %q:\n%s", want, trace)
		}
	}
}

func TestValidateAcceptsAssembledModules(t *testing.T) {
	for _, src := range []string{reraiseSrc, caughtSrc, captureSrc} {
		prog := mustAssemble(t, "m.evm", src)
		if err := bytecode.Validate(prog.Module); err != nil {
			t.Errorf("Validate: %v", err)
		}
	}
}

package bytecode

import (
	"strings"
	"testing"
)

func TestPC_PackUnpack(t *testing.T) {
	tests := []struct {
		name    string
		fn, off uint32
	}{
		{"zero", 0, 0},
		{"small", 3, 17},
		{"max offset", 1, ^uint32(0)},
		{"max function", ^uint32(0), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pc := MakePC(tt.fn, tt.off)
			if pc.Func() != tt.fn || pc.Off() != tt.off {
				t.Errorf("MakePC(%d,%d) unpacked to (%d,%d)", tt.fn, tt.off, pc.Func(), pc.Off())
			}
		})
	}
}

func TestModule_InternString(t *testing.T) {
	m := &Module{}
	a := m.InternString("E_A")
	b := m.InternString("E_B")
	if a == b {
		t.Fatal("distinct strings share an index")
	}
	if again := m.InternString("E_A"); again != a {
		t.Fatalf("re-interning gave %d, want %d", again, a)
	}
}

func validModule() *Module {
	return &Module{
		Name:    "m",
		Strings: []string{"E_X"},
		Funcs: []Func{
			{Name: "main", Code: []Instr{
				{Op: OpPushHandler, Arg: 2},
				{Op: OpCall, Arg: 1},
				{Op: OpHalt},
			}},
			{Name: "boom", Code: []Instr{
				{Op: OpRaise, Arg: 0},
			}},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Module)
		wantErr string
	}{
		{"valid", func(m *Module) {}, ""},
		{"no functions", func(m *Module) { m.Funcs = nil }, "no functions"},
		{"empty body", func(m *Module) { m.Funcs[1].Code = nil }, "empty function body"},
		{"call out of range", func(m *Module) { m.Funcs[0].Code[1].Arg = 9 }, "call target"},
		{"raise out of range", func(m *Module) { m.Funcs[1].Code[0].Arg = 5 }, "raise name"},
		{"handler out of range", func(m *Module) { m.Funcs[0].Code[0].Arg = 40 }, "handler target"},
		{"unknown opcode", func(m *Module) { m.Funcs[0].Code[0] = Instr{Op: Op(200)} }, "unknown opcode"},
		{"missing terminator", func(m *Module) { m.Funcs[0].Code[2] = Instr{Op: OpNop} }, "terminator"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validModule()
			tt.mutate(m)
			err := Validate(m)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestDisasm(t *testing.T) {
	var sb strings.Builder
	if err := Disasm(&sb, validModule()); err != nil {
		t.Fatalf("Disasm: %v", err)
	}
	out := sb.String()
	for _, want := range []string{
		"func main",
		"push_handler 2",
		"call boom",
		"func boom",
		"raise E_X",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q:\n%s", want, out)
		}
	}
}

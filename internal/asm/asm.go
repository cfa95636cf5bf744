// Package asm assembles Ember's line-oriented text format (.evm) into a
// bytecode module and the matching debug-info table.
//
// The format is deliberately small: one mnemonic per line, "func NAME"
// opens a function, "NAME:" defines a local label, ";" starts a comment.
//
//	; raise through two calls, catch, re-raise
//	func main
//	    push_handler recover
//	    call run
//	    pop_handler
//	    halt
//	recover:
//	    reraise
//
//	func run
//	    call boom
//	    return
//
//	func boom
//	    raise E_BOOM
package asm

import (
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"ember/internal/bytecode"
	"ember/internal/debuginfo"
	"ember/internal/source"
)

// Program is the assembler output: executable code plus the debug table
// that maps every emitted instruction back to its source line.
type Program struct {
	Module  *bytecode.Module
	Debug   *debuginfo.Table
	FileSet *source.FileSet
	FileID  source.FileID
}

// AssembleFile loads and assembles one .evm file.
func AssembleFile(path string) (*Program, error) {
	fileSet := source.NewFileSet()
	id, err := fileSet.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	return Assemble(fileSet, id)
}

// AssembleSource assembles in-memory source under a virtual file name.
func AssembleSource(name, src string) (*Program, error) {
	fileSet := source.NewFileSet()
	id := fileSet.AddVirtual(name, []byte(src))
	return Assemble(fileSet, id)
}

// pending is one not-yet-encoded instruction with its source position.
type pending struct {
	op      bytecode.Op
	operand string
	line    uint32
	col     uint32
}

// fnBody collects one function before operand resolution.
type fnBody struct {
	name   string
	line   uint32
	instrs []pending
	labels map[string]uint32 // label -> instruction offset
}

var mnemonics = map[string]bytecode.Op{
	"nop":          bytecode.OpNop,
	"call":         bytecode.OpCall,
	"return":       bytecode.OpReturn,
	"raise":        bytecode.OpRaise,
	"reraise":      bytecode.OpReraise,
	"push_handler": bytecode.OpPushHandler,
	"pop_handler":  bytecode.OpPopHandler,
	"capture":      bytecode.OpCapture,
	"halt":         bytecode.OpHalt,
}

// Assemble parses the given file into a Program. Two passes: the first
// collects functions, labels and raw instructions, the second resolves
// call targets and handler offsets and emits code plus debug events.
func Assemble(fileSet *source.FileSet, id source.FileID) (*Program, error) {
	file := fileSet.Get(id)
	if file == nil {
		return nil, fmt.Errorf("unknown file id %d", id)
	}

	bodies, err := parse(file)
	if err != nil {
		return nil, err
	}
	if len(bodies) == 0 {
		return nil, fmt.Errorf("%s: no functions defined", file.Path)
	}

	mod := &bytecode.Module{Name: trimExt(file.Path)}
	for _, b := range bodies {
		if _, dup := mod.FuncIndex(b.name); dup {
			return nil, fmt.Errorf("%s:%d: duplicate function %q", file.Path, b.line, b.name)
		}
		mod.Funcs = append(mod.Funcs, bytecode.Func{Name: b.name})
	}

	debug := debuginfo.NewTable(mod.Name)
	debugFile := debug.FileIndex(file.Path)

	for fi, b := range bodies {
		fnIdx, convErr := safecast.Conv[uint32](fi)
		if convErr != nil {
			return nil, fmt.Errorf("function count overflow: %w", convErr)
		}
		code := make([]bytecode.Instr, 0, len(b.instrs))
		for off, p := range b.instrs {
			arg, argErr := resolveOperand(mod, b, p)
			if argErr != nil {
				return nil, fmt.Errorf("%s:%d: %w", file.Path, p.line, argErr)
			}
			code = append(code, bytecode.Instr{Op: p.op, Arg: arg})

			offU32, offErr := safecast.Conv[uint32](off)
			if offErr != nil {
				return nil, fmt.Errorf("function body overflow: %w", offErr)
			}
			debug.Add(debuginfo.Event{
				PC:     uint64(bytecode.MakePC(fnIdx, offU32)),
				Func:   b.name,
				FileID: debugFile,
				Line:   p.line,
				Col:    p.col,
			})
		}
		mod.Funcs[fi].Code = code
	}
	debug.Sort()

	if err := bytecode.Validate(mod); err != nil {
		return nil, fmt.Errorf("%s: %w", file.Path, err)
	}
	return &Program{Module: mod, Debug: debug, FileSet: fileSet, FileID: id}, nil
}

func resolveOperand(mod *bytecode.Module, b fnBody, p pending) (uint32, error) {
	switch p.op {
	case bytecode.OpCall:
		idx, ok := mod.FuncIndex(p.operand)
		if !ok {
			return 0, fmt.Errorf("call to undefined function %q", p.operand)
		}
		return idx, nil
	case bytecode.OpRaise:
		return mod.InternString(p.operand), nil
	case bytecode.OpPushHandler:
		off, ok := b.labels[p.operand]
		if !ok {
			return 0, fmt.Errorf("undefined label %q", p.operand)
		}
		return off, nil
	case bytecode.OpCapture:
		n, err := strconv.ParseUint(p.operand, 10, 32)
		if err != nil || n == 0 {
			return 0, fmt.Errorf("capture wants a positive slot count, got %q", p.operand)
		}
		return uint32(n), nil
	default:
		return 0, nil
	}
}

func parse(file *source.File) ([]fnBody, error) {
	var bodies []fnBody
	cur := -1

	lines := strings.Split(string(file.Content), "\n")
	for i, rawLine := range lines {
		lineNum := uint32(i + 1) //nolint:gosec // file already fit in memory

		text := rawLine
		if c := strings.IndexByte(text, ';'); c >= 0 {
			text = text[:c]
		}
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			continue
		}
		col := uint32(strings.Index(text, trimmed) + 1) //nolint:gosec // column of first token

		fields := strings.Fields(trimmed)
		word := fields[0]

		switch {
		case word == "func":
			if len(fields) != 2 {
				return nil, fmt.Errorf("%s:%d: func wants exactly one name", file.Path, lineNum)
			}
			bodies = append(bodies, fnBody{
				name:   fields[1],
				line:   lineNum,
				labels: make(map[string]uint32),
			})
			cur++

		case strings.HasSuffix(word, ":"):
			if cur < 0 {
				return nil, fmt.Errorf("%s:%d: label outside of function", file.Path, lineNum)
			}
			if len(fields) != 1 {
				return nil, fmt.Errorf("%s:%d: label must stand alone on its line", file.Path, lineNum)
			}
			name := strings.TrimSuffix(word, ":")
			b := &bodies[cur]
			if _, dup := b.labels[name]; dup {
				return nil, fmt.Errorf("%s:%d: duplicate label %q", file.Path, lineNum, name)
			}
			off, err := safecast.Conv[uint32](len(b.instrs))
			if err != nil {
				return nil, fmt.Errorf("%s:%d: function body overflow: %w", file.Path, lineNum, err)
			}
			b.labels[name] = off

		default:
			if cur < 0 {
				return nil, fmt.Errorf("%s:%d: instruction outside of function", file.Path, lineNum)
			}
			op, ok := mnemonics[word]
			if !ok {
				return nil, fmt.Errorf("%s:%d: unknown mnemonic %q", file.Path, lineNum, word)
			}
			operand := ""
			switch {
			case op.HasArg() && len(fields) == 2:
				operand = fields[1]
			case op.HasArg():
				return nil, fmt.Errorf("%s:%d: %s wants exactly one operand", file.Path, lineNum, word)
			case len(fields) != 1:
				return nil, fmt.Errorf("%s:%d: %s takes no operand", file.Path, lineNum, word)
			}
			bodies[cur].instrs = append(bodies[cur].instrs, pending{
				op:      op,
				operand: operand,
				line:    lineNum,
				col:     col,
			})
		}
	}
	return bodies, nil
}

func trimExt(path string) string {
	if i := strings.LastIndexByte(path, '.'); i > strings.LastIndexByte(path, '/') {
		return path[:i]
	}
	return path
}

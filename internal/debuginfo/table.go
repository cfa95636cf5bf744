// Package debuginfo maps bytecode program counters to source locations.
//
// Tables are produced by the assembler, written to disk as a
// schema-versioned msgpack payload, and consumed lazily by the backtrace
// decoder through Store. Debug information is optional end to end: a
// missing or corrupt table degrades every lookup to a miss and the decoder
// renders those frames as unknown locations.
package debuginfo

import (
	"fmt"
	"sort"

	"fortio.org/safecast"

	"ember/internal/backtrace"
	"ember/internal/bytecode"
)

// Current schema version - increment when the Table format changes.
const tableSchemaVersion uint16 = 1

// Event records the source location of one emitted instruction.
type Event struct {
	PC     uint64 // packed bytecode.PC
	Func   string
	FileID uint32 // index into Table.Files
	Line   uint32
	Col    uint32
	Inline bool
}

// Table is the address-to-source mapping for one module.
type Table struct {
	Schema uint16
	Module string
	Files  []string
	Events []Event // sorted by PC
}

// NewTable creates an empty table for the named module.
func NewTable(module string) *Table {
	return &Table{Schema: tableSchemaVersion, Module: module}
}

// FileIndex interns path into the file table and returns its index.
func (t *Table) FileIndex(path string) uint32 {
	for i, existing := range t.Files {
		if existing == path {
			return uint32(i)
		}
	}
	idx, err := safecast.Conv[uint32](len(t.Files))
	if err != nil {
		panic(fmt.Errorf("debug file table overflow: %w", err))
	}
	t.Files = append(t.Files, path)
	return idx
}

// Add appends an event. Call Sort once after the last Add.
func (t *Table) Add(ev Event) {
	t.Events = append(t.Events, ev)
}

// Sort orders events by PC, as Lookup requires.
func (t *Table) Sort() {
	sort.Slice(t.Events, func(i, j int) bool {
		return t.Events[i].PC < t.Events[j].PC
	})
}

// Lookup resolves a packed bytecode PC. An exact event wins; otherwise the
// nearest preceding event within the same function covers the PC (the
// assembler emits one event per instruction, so this only matters for
// tables thinned by hand). Returns false when the PC falls outside the
// table.
func (t *Table) Lookup(pc bytecode.PC) (backtrace.Location, bool) {
	n := len(t.Events)
	if n == 0 {
		return backtrace.Location{}, false
	}
	// First event with Event.PC > pc; the candidate precedes it.
	i := sort.Search(n, func(i int) bool {
		return t.Events[i].PC > uint64(pc)
	})
	if i == 0 {
		return backtrace.Location{}, false
	}
	ev := &t.Events[i-1]
	if bytecode.PC(ev.PC).Func() != pc.Func() {
		return backtrace.Location{}, false
	}
	loc := backtrace.Location{
		Function: ev.Func,
		Line:     ev.Line,
		Col:      ev.Col,
		Inline:   ev.Inline,
	}
	if int(ev.FileID) < len(t.Files) {
		loc.File = t.Files[ev.FileID]
	}
	return loc, true
}

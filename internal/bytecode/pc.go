package bytecode

import "fmt"

// PC addresses one instruction in a module: the function index in the high
// 32 bits, the instruction offset in the low 32.
type PC uint64

// MakePC packs a function index and instruction offset into a PC.
func MakePC(fn, off uint32) PC {
	return PC(uint64(fn)<<32 | uint64(off))
}

// Func returns the function index encoded in the PC.
func (pc PC) Func() uint32 {
	return uint32(pc >> 32)
}

// Off returns the instruction offset encoded in the PC.
func (pc PC) Off() uint32 {
	return uint32(pc)
}

// String formats the PC as "fn:off".
func (pc PC) String() string {
	return fmt.Sprintf("%d:%d", pc.Func(), pc.Off())
}

package backtrace

// BufferSize is the fixed capacity of a Context's stash buffer. Raises that
// unwind through more frames saturate: the innermost BufferSize frames are
// kept and the rest of the call chain is silently dropped.
const BufferSize = 1024

// Context holds the per-thread-of-control capture state: the recording
// flag, the stash buffer with its fill position, and the identity of the
// last exception observed.
//
// The zero value is ready to use. Nothing on this type allocates, so a
// Context can be embedded in runtime state that is initialized before any
// allocator is available, and SetRecording can be called at any point of
// runtime startup.
//
// A Context is not safe for concurrent use; it belongs to exactly one
// logical thread-of-control. Schedulers that migrate work across carriers
// must move the Context with it (Transfer) while the owner is parked.
type Context struct {
	active bool
	pos    int
	// lastExn is the identity of the most recently raised exception,
	// meaningful only while active. It must be a comparable value with
	// identity semantics (the VM stores *Exception pointers).
	lastExn any
	buffer  [BufferSize]Slot
}

// SetRecording toggles backtrace capture. Idempotent. Turning recording off
// does not clear the buffer; its contents simply stop being meaningful
// until the next fresh raise resets the position.
func (c *Context) SetRecording(enabled bool) {
	c.active = enabled
}

// Recording reports whether capture is active.
func (c *Context) Recording() bool {
	return c.active
}

// Stash appends one unwound frame's slot to the buffer. The unwinder calls
// it once per frame while an exception propagates, passing reraise=true
// when the raise continues an in-flight exception rather than starting a
// new one.
//
// When the buffer is full the slot is dropped: frames are stashed innermost
// first, so saturation preserves the frames nearest the fault and truncates
// the outer call chain.
func (c *Context) Stash(exn any, slot Slot, reraise bool) {
	if !c.active {
		return
	}
	if !reraise || exn != c.lastExn {
		// Fresh raise (or an exception we have not seen): restart the
		// trace. Identity comparison is a known-imprecise heuristic:
		// distinct but structurally equal exception values raised with
		// reraise=true are misclassified as a continuation. Callers keep
		// exceptions identity-unique per raise to avoid this.
		c.pos = 0
		c.lastExn = exn
	}
	if c.pos >= BufferSize {
		return
	}
	c.buffer[c.pos] = slot
	c.pos++
}

// Depth returns the number of slots currently stashed.
func (c *Context) Depth() int {
	if !c.active {
		return 0
	}
	return c.pos
}

// Snapshot freezes the current buffer contents into an immutable Raw,
// truncated to maxSlots. It does not mutate the Context and may be called
// repeatedly for the same in-flight exception, always reflecting the
// buffer's current state. A non-negative allocIdx marks the first returned
// slot as the allocation point of an allocation-triggered capture.
//
// The buffer is only meaningful while recording is active; an inactive
// Context snapshots as empty.
func (c *Context) Snapshot(maxSlots, allocIdx int) Raw {
	n := c.pos
	if !c.active || n <= 0 || maxSlots <= 0 {
		return Raw{}
	}
	if n > maxSlots {
		n = maxSlots
	}
	slots := make([]Slot, n)
	copy(slots, c.buffer[:n])
	if allocIdx >= 0 {
		slots[0].Alloc = true
	}
	return Raw{slots: slots}
}

// Transfer moves the capture state onto dst, exactly: recording flag, fill
// position, stashed slots and last-exception identity. The scheduler that
// migrates a thread-of-control between carriers calls this while the owner
// is parked, so no stash can be running concurrently.
func (c *Context) Transfer(dst *Context) {
	dst.active = c.active
	dst.pos = c.pos
	dst.lastExn = c.lastExn
	copy(dst.buffer[:c.pos], c.buffer[:c.pos])
	c.pos = 0
	c.lastExn = nil
}

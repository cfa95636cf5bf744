package backtrace

// Raw is an immutable snapshot of stashed slots, innermost frame first.
// It is independent of the Context it was taken from and safe to hold for
// as long as the process lives. Slots embed process-image-dependent
// addresses, so a Raw must never be serialized across process or
// code-layout boundaries.
type Raw struct {
	slots []Slot
}

// Len returns the number of slots in the snapshot.
func (r Raw) Len() int {
	return len(r.slots)
}

// Slot returns the i-th slot, innermost first.
func (r Raw) Slot(i int) Slot {
	return r.slots[i]
}

// Unwinder walks a live call stack, as opposed to consuming the stash
// buffer of an in-flight exception. The VM implements it over its frame
// stack.
type Unwinder interface {
	// WalkStack calls yield for every frame of the live stack, innermost
	// first, stopping early when yield returns false.
	WalkStack(yield func(Slot) bool)
	// AllocSlot returns the slot describing allocation site idx of the
	// current operation, for allocation-triggered captures.
	AllocSlot(idx int) (Slot, bool)
}

// Callstack captures up to maxSlots of the live call stack of u. It is the
// public capture API, usable independent of any exception. A non-negative
// allocIdx prepends the allocation point itself as the first slot. The
// destination grows on demand, so required capacity need not be known
// upfront.
func Callstack(u Unwinder, maxSlots, allocIdx int) Raw {
	if u == nil || maxSlots <= 0 {
		return Raw{}
	}
	slots := make([]Slot, 0, 16)
	if allocIdx >= 0 {
		if s, ok := u.AllocSlot(allocIdx); ok {
			s.Alloc = true
			slots = append(slots, s)
		}
	}
	u.WalkStack(func(s Slot) bool {
		if len(slots) >= maxSlots {
			return false
		}
		slots = append(slots, s)
		return true
	})
	return Raw{slots: slots}
}

// rawOf wraps pre-built slots without copying. Internal helper for tests
// and the decoder's fixtures; callers must not retain the slice.
func rawOf(slots []Slot) Raw {
	return Raw{slots: slots}
}

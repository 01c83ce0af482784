// Package resident implements the per-process resident set described
// in spec.md §3/§4.3: a fixed-size table of RAM-resident slots with
// aging counters and load-order stamps.
package resident

import (
	"swapkern/pagetable"
)

// Slot is one resident slot ("page_access_info" in spec.md §3).
type Slot struct {
	// PageAddress is the virtual-page address held resident, or 0
	// when free.
	PageAddress pagetable.VA
	// AccessCounter is the 32-bit aging register. Its shift-in-from-
	// high semantics require the width to stay exactly 32 bits
	// (spec.md §9 "Counter representation").
	AccessCounter uint32
	// LoadedAt is the monotonic stamp assigned when the slot became
	// resident; SCFIFO orders candidates by this value.
	LoadedAt uint64
	// InUse is true iff PageAddress is meaningful.
	InUse bool
}

// InitialCounter is the aging register value a slot is given the
// moment it becomes resident: all-ones for LAPA (so a freshly loaded
// page is never preferred for eviction over one with real history,
// spec.md §3/P8), all-zero otherwise.
func InitialCounter(lapa bool) uint32 {
	if lapa {
		return 0xFFFFFFFF
	}
	return 0
}

// Set is the per-process array of resident slots, fixed at
// MAX_PSYC_PAGES (spec.md §3).
type Set struct {
	Slots []Slot
	turn  uint64
}

// New builds an empty resident Set of n slots. lapa selects the
// initial aging-counter value per spec.md's lifecycle section.
func New(n int, lapa bool) *Set {
	s := &Set{Slots: make([]Slot, n)}
	init := InitialCounter(lapa)
	for i := range s.Slots {
		s.Slots[i].AccessCounter = init
	}
	return s
}

// NextTurn returns the current page_turn counter, then increments it
// (spec.md §4.3). Only the owning process calls this (spec.md §5: "no
// cross-process reads").
func (s *Set) NextTurn() uint64 {
	t := s.turn
	s.turn++
	return t
}

// FreeSlot returns the first free resident slot in scan order, or
// ok=false if the resident set is at capacity.
func (s *Set) FreeSlot() (*Slot, bool) {
	for i := range s.Slots {
		if !s.Slots[i].InUse {
			return &s.Slots[i], true
		}
	}
	return nil, false
}

// Find returns the unique in-use slot holding v, or ok=false.
func (s *Set) Find(v pagetable.VA) (*Slot, bool) {
	base := pagetable.PageBase(v)
	for i := range s.Slots {
		if s.Slots[i].InUse && s.Slots[i].PageAddress == base {
			return &s.Slots[i], true
		}
	}
	return nil, false
}

// Occupied returns the number of in-use slots, enforced never to
// exceed MAX_PSYC_PAGES (spec.md I3/P1).
func (s *Set) Occupied() int {
	n := 0
	for i := range s.Slots {
		if s.Slots[i].InUse {
			n++
		}
	}
	return n
}

// Claim installs v into an empty slot with a fresh load stamp from
// NextTurn and the policy's initial counter, as spec.md §4.6 step 7 does at the end of
// load_page. Returns ok=false if the resident set is already full
// (callers must have freed a slot via eviction first).
func (s *Set) Claim(v pagetable.VA, lapa bool) (*Slot, bool) {
	slot, ok := s.FreeSlot()
	if !ok {
		return nil, false
	}
	slot.InUse = true
	slot.PageAddress = pagetable.PageBase(v)
	slot.LoadedAt = s.NextTurn()
	slot.AccessCounter = InitialCounter(lapa)
	return slot, true
}

// Release clears the slot holding v, if any (spec.md §4.5 step 5).
func (s *Set) Release(v pagetable.VA) {
	if slot, ok := s.Find(v); ok {
		slot.InUse = false
		slot.PageAddress = 0
	}
}

// Walker is the subset of pagetable.Table the aging step needs: a
// read-only leaf lookup, never allocating.
type Walker interface {
	Walk(va pagetable.VA) (*pagetable.Entry, bool)
}

// Age performs the aging step (spec.md §4.3), invoked once per
// scheduling dispatch for the process that just ran: every in-use
// slot's counter is shifted right, then, if the leaf is valid and was
// accessed since the last aging, bit 31 is set and the hardware
// Accessed bit is cleared.
//
// original_source/kernel/proc.c's update_access_counters dereferences
// the walk result without checking it first (spec.md §9 O4); Age
// guards against a missing leaf instead.
func (s *Set) Age(pt Walker) {
	for i := range s.Slots {
		slot := &s.Slots[i]
		if !slot.InUse {
			continue
		}
		slot.AccessCounter >>= 1
		e, ok := pt.Walk(slot.PageAddress)
		if !ok {
			continue
		}
		if e.Valid() && e.Accessed() {
			slot.AccessCounter |= 1 << 31
			e.SetAccessed(false)
		}
	}
}

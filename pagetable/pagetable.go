// Package pagetable adapts a hardware-style leaf page-table entry to
// the three bits the paging subsystem needs: Valid, Accessed, and
// Paged-Out (spec.md §4.1). The multi-level walk and mappages
// primitives are, per spec.md §1, external collaborators assumed
// given; Table is this module's concrete, testable stand-in for them,
// in the same spirit as mem.FrameAllocator and backingstore.MemStore.
package pagetable

import (
	"sync"

	"swapkern/mem"
)

// VA is a virtual-page address. Callers are expected to pass
// page-aligned values; see PageBase.
type VA uint64

// Bit layout, chosen to mirror RISC-V's PTE: bits 8-9 are reserved for
// software use, so the paged-out bit lives there rather than clashing
// with any hardware-defined bit (original_source/kernel/proc.c's
// PTE_PG likewise occupies a software-reserved bit).
const (
	PteV  = 1 << 0 // Valid: hardware/adapter.
	PteA  = 1 << 6 // Accessed: hardware sets on reference, software clears.
	PtePG = 1 << 8 // Paged-out: owned entirely by this subsystem.
)

// Entry is one leaf page-table entry: a physical frame plus flag bits.
type Entry struct {
	flags uint16
	pa    mem.Pa_t
}

// Valid reports the V bit.
func (e *Entry) Valid() bool { return e.flags&PteV != 0 }

// Accessed reports the A bit (hardware-set on reference).
func (e *Entry) Accessed() bool { return e.flags&PteA != 0 }

// PagedOut reports the PG bit.
func (e *Entry) PagedOut() bool { return e.flags&PtePG != 0 }

// PA returns the physical frame currently mapped by this entry. Only
// meaningful when Valid.
func (e *Entry) PA() mem.Pa_t { return e.pa }

// Flags returns the entry's raw flag bits, used by fork duplication to
// carry a parent entry's flags over to the child's mapping unchanged.
func (e *Entry) Flags() uint16 { return e.flags }

// SetValid sets or clears V.
func (e *Entry) SetValid(v bool) { e.setBit(PteV, v) }

// SetAccessed sets or clears A. Hardware sets this bit on reference;
// software (the aging step, resident.Age) clears it.
func (e *Entry) SetAccessed(v bool) { e.setBit(PteA, v) }

// SetPagedOut sets or clears PG.
func (e *Entry) SetPagedOut(v bool) { e.setBit(PtePG, v) }

// SetPA rebinds the entry to a new physical frame. All flag bits,
// PG included, are left unchanged.
func (e *Entry) SetPA(pa mem.Pa_t) { e.pa = pa }

func (e *Entry) setBit(bit uint16, v bool) {
	if v {
		e.flags |= bit
	} else {
		e.flags &^= bit
	}
}

// PageBase coarsens a possibly-unaligned faulting address down to its
// page boundary. spec.md §9 open question O1: the canonical key used
// to compare against stored page_address values is always this
// page-aligned base, never the raw address.
func PageBase(va VA) VA {
	return va &^ (VA(mem.PGSIZE) - 1)
}

// Table is a per-process collection of leaf entries, keyed by
// page-aligned virtual address. It stands in for the hardware
// multi-level page table spec.md §1 assumes given.
type Table struct {
	mu      sync.Mutex
	entries map[VA]*Entry
}

// NewTable returns an empty page table.
func NewTable() *Table {
	return &Table{entries: make(map[VA]*Entry)}
}

// Walk locates the leaf entry for va, never allocating intermediate
// structure (spec.md §4.1: "never allocates intermediate tables in
// this path (read-only mode)"). va is coarsened to its page base
// before lookup.
func (t *Table) Walk(va VA) (*Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[PageBase(va)]
	return e, ok
}

// Mappages installs (or replaces) the leaf entry for va with the given
// frame and flags, creating it if absent. This is the module's stand-in
// for the external mappages primitive referenced by spec.md §4.6 step 6.
func (t *Table) Mappages(va VA, pa mem.Pa_t, flags uint16) *Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	base := PageBase(va)
	e, ok := t.entries[base]
	if !ok {
		e = &Entry{}
		t.entries[base] = e
	}
	e.flags = flags
	e.pa = pa
	return e
}

// Unmap removes the leaf entry for va entirely, used when a user page
// is freed rather than swapped.
func (t *Table) Unmap(va VA) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, PageBase(va))
}

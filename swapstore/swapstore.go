// Package swapstore implements the per-process swap store described
// in spec.md §3/§4.2: a fixed-size, file-backed array of page-sized
// slots with in-use bookkeeping.
package swapstore

import (
	"swapkern/defs"
	"swapkern/mem"
	"swapkern/pagetable"
)

// Slot is one swap slot ("stored_page" in spec.md §3).
type Slot struct {
	// PageAddress is the virtual-page address currently held here, or
	// 0 when free.
	PageAddress pagetable.VA
	// FileOffset is fixed at construction as PGSIZE*index and never
	// changes for the process's lifetime (spec.md I4).
	FileOffset int64
	// InUse is true iff PageAddress is meaningful.
	InUse bool
}

// BackingStore is the full-page I/O primitive the swap store drives.
// It is a narrow, consumer-defined interface over the backing-file
// primitive spec.md §1 lists as an external collaborator
// (read_swap/write_swap/create_swap/remove_swap); backingstore.FileStore
// and backingstore.MemStore satisfy it.
type BackingStore interface {
	ReadAt(offset int64, page *mem.Page_t) error
	WriteAt(offset int64, page *mem.Page_t) error
}

// Store is the per-process array of swap slots.
type Store struct {
	Slots   []Slot
	backing BackingStore
}

// New builds a Store of n slots backed by store. Slot k's FileOffset
// is fixed at PGSIZE*k per spec.md I4, independent of later occupancy.
func New(n int, backing BackingStore) *Store {
	s := &Store{Slots: make([]Slot, n), backing: backing}
	for i := range s.Slots {
		s.Slots[i].FileOffset = int64(i) * int64(mem.PGSIZE)
	}
	return s
}

// GetFreeSwap returns the first free slot in scan order, or ok=false
// if the swap store is full (spec.md §7 NoFreeSwap).
func (s *Store) GetFreeSwap() (*Slot, bool) {
	for i := range s.Slots {
		if !s.Slots[i].InUse {
			return &s.Slots[i], true
		}
	}
	return nil, false
}

// GetSwapFor returns the unique in-use slot holding v (spec.md I1), or
// ok=false if v is not currently swapped out.
func (s *Store) GetSwapFor(v pagetable.VA) (*Slot, bool) {
	base := pagetable.PageBase(v)
	for i := range s.Slots {
		if s.Slots[i].InUse && s.Slots[i].PageAddress == base {
			return &s.Slots[i], true
		}
	}
	return nil, false
}

// WriteSwap performs a full-page write of page to slot's fixed offset.
// It does not mutate slot's occupancy metadata; the caller updates
// InUse/PageAddress only after a successful write, per spec.md §4.5's
// step ordering (write before metadata update, so a failed write
// leaves I1/I2 untouched).
func (s *Store) WriteSwap(slot *Slot, page *mem.Page_t) defs.Err_t {
	if err := s.backing.WriteAt(slot.FileOffset, page); err != nil {
		return defs.ESWAPIO
	}
	return 0
}

// ReadSwap performs a full-page read from slot's fixed offset.
func (s *Store) ReadSwap(slot *Slot, page *mem.Page_t) defs.Err_t {
	if err := s.backing.ReadAt(slot.FileOffset, page); err != nil {
		return defs.ESWAPIO
	}
	return 0
}

// Occupied reports the number of slots currently in use, used by
// cmd/swapsim and tests to check spec.md I3.
func (s *Store) Occupied() int {
	n := 0
	for i := range s.Slots {
		if s.Slots[i].InUse {
			n++
		}
	}
	return n
}

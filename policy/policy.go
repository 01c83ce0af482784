// Package policy implements the three replacement algorithms described
// in spec.md §4.4 (NFUA, LAPA, SCFIFO) plus the NONE no-op, modeled as
// a tagged enumeration of a common capability set rather than runtime
// dynamic dispatch, per spec.md §9's "dynamic policy dispatch" note.
package policy

import (
	"math/bits"

	"swapkern/pagetable"
	"swapkern/resident"
)

// Kind names a replacement policy. SELECTION in spec.md §6 is a
// compile-time choice; Kind is that same fixed-at-build choice
// expressed as a Go value rather than a #define.
type Kind int

const (
	NFUA Kind = iota
	LAPA
	SCFIFO
	NONE
)

// IsLAPA reports whether k is LAPA, the one policy whose slots start
// with an all-ones aging counter (spec.md §3).
func (k Kind) IsLAPA() bool { return k == LAPA }

// Walker is the subset of pagetable.Table SCFIFO needs: a read-only
// leaf lookup.
type Walker interface {
	Walk(va pagetable.VA) (*pagetable.Entry, bool)
}

// Select runs the policy named by k against set, returning the victim
// virtual address. ok is false if the resident set holds no in-use
// slot (spec.md §9 O3: the C source dereferences a nil pointer here;
// this implementation returns a typed absence instead) or if k is
// NONE, which never selects a victim.
func Select(k Kind, set *resident.Set, pt Walker) (pagetable.VA, bool) {
	switch k {
	case NFUA:
		return findNFUA(set)
	case LAPA:
		return findLAPA(set)
	case SCFIFO:
		return findSCFIFO(set, pt)
	default:
		return 0, false
	}
}

// findNFUA returns the page_address of the in-use slot with the
// minimum access_counter, ties broken by first-encountered scan order
// (spec.md §4.4 NFUA).
func findNFUA(set *resident.Set) (pagetable.VA, bool) {
	var min *resident.Slot
	for i := range set.Slots {
		s := &set.Slots[i]
		if !s.InUse {
			continue
		}
		if min == nil || s.AccessCounter < min.AccessCounter {
			min = s
		}
	}
	if min == nil {
		return 0, false
	}
	return min.PageAddress, true
}

// findLAPA minimizes popcount(access_counter) first, then
// access_counter itself on ties, then first-encountered (spec.md §4.4
// LAPA). The all-ones initial counter (spec.md §3) gives a freshly
// loaded page the maximum popcount, so it is never preferred as a
// victim over a page with real history (P8).
func findLAPA(set *resident.Set) (pagetable.VA, bool) {
	var min *resident.Slot
	minOnes := 33
	for i := range set.Slots {
		s := &set.Slots[i]
		if !s.InUse {
			continue
		}
		ones := bits.OnesCount32(s.AccessCounter)
		switch {
		case ones < minOnes:
			minOnes = ones
			min = s
		case ones == minOnes && min != nil && s.AccessCounter < min.AccessCounter:
			min = s
		}
	}
	if min == nil {
		return 0, false
	}
	return min.PageAddress, true
}

// findSCFIFO repeatedly selects the oldest (smallest loaded_at)
// in-use slot; if its leaf's Accessed bit is set, the bit is cleared
// and the slot is moved to the tail (a fresh loaded_at), and the scan
// repeats. It terminates because each iteration either returns or
// strictly increases the selected slot's stamp (spec.md §4.4/P6).
func findSCFIFO(set *resident.Set, pt Walker) (pagetable.VA, bool) {
	limit := 2*len(set.Slots) + 1
	for iter := 0; iter < limit; iter++ {
		var min *resident.Slot
		for i := range set.Slots {
			s := &set.Slots[i]
			if !s.InUse {
				continue
			}
			if min == nil || s.LoadedAt < min.LoadedAt {
				min = s
			}
		}
		if min == nil {
			return 0, false
		}
		e, ok := pt.Walk(min.PageAddress)
		if ok && e.Accessed() {
			e.SetAccessed(false)
			min.LoadedAt = set.NextTurn()
			continue
		}
		return min.PageAddress, true
	}
	return 0, false
}

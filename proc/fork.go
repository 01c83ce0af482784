package proc

import (
	"sync"

	"swapkern/defs"
	"swapkern/mem"
	"swapkern/pagetable"
	"swapkern/swapstore"
)

// staging is the single process-table-wide scratch page fork's swap
// copy loop reads into before writing to the child's slot, matching
// original_source/kernel/proc.c's file-scope `char buffer[PGSIZE]`.
// spec.md §9 calls this "the one genuine global" and requires it be
// serialized by whatever discipline protects the process table;
// stagingMu is that discipline.
var (
	stagingMu sync.Mutex
	staging   mem.Page_t
)

// Fork duplicates parent into a freshly constructed child (spec.md
// §4.7). childPT and childFrameAlloc are the child's own page table
// and frame allocator (the address-space copy primitive and frame
// allocator are external collaborators per spec.md §1); childBacking
// is the child's already-created swap file (create_swap, likewise
// external, is assumed to have run before Fork is called — spec.md §6
// "On fork: perform §4.7").
//
// The child's lock is held during construction, released around the
// swap-file copy loop's I/O (since read/write may block, spec.md §5),
// and reacquired to finalize — mirroring the C fork()'s
// release(&np->lock); ...; acquire(&np->lock) around createSwapFile
// and the per-slot read/write pair.
func Fork(parent *Proc, childPT *pagetable.Table, childFrameAlloc mem.FrameAllocator, childBacking swapstore.BackingStore) (*Proc, defs.Err_t) {
	// Parent's lock is held only long enough to take a consistent
	// snapshot of its resident/swap state; the C fork() reads these
	// fields without a lock at all, relying on there being exactly one
	// runnable CPU per process (spec.md §5). Taking it here is strictly
	// more conservative, not a deviation from I1/I2.
	parent.Lock()

	child := New(parent.cfg, childPT, childFrameAlloc, childBacking, parent.Metrics)
	child.Sz = parent.Sz
	child.Lock()

	// Step 1 + step 4: copy the parent's resident pages' address-space
	// content and the resident-slot bookkeeping together, since the
	// frame content lives behind the leaf entry, not the resident slot
	// itself. loaded_at/access_counter are left at whatever New already
	// set (policy-defined initial values), per spec.md §4.7 step 4.
	for i := range parent.Resident.Slots {
		src := &parent.Resident.Slots[i]
		if !src.InUse {
			continue
		}
		e, ok := parent.PageTable.Walk(src.PageAddress)
		if !ok || !e.Valid() {
			continue
		}
		srcPage := parent.FrameAlloc.Dmap(e.PA())
		childPa, childPage, ok := child.FrameAlloc.Alloc()
		if !ok {
			child.Unlock()
			parent.Unlock()
			return nil, defs.ENOFREEFRAME
		}
		*childPage = *srcPage
		child.PageTable.Mappages(src.PageAddress, childPa, e.Flags())

		dst := &child.Resident.Slots[i]
		dst.InUse = true
		dst.PageAddress = src.PageAddress
	}

	// Step 2 (create a fresh swap file for the child) is assumed done
	// by the caller before calling Fork; step 3 below is the per-slot
	// copy loop, serialized through the staging buffer and released
	// around each blocking I/O pair as spec.md §5 requires.
	swapSnap := append([]swapstore.Slot(nil), parent.Swap.Slots...)
	parent.Unlock()
	child.Unlock()
	for i := range swapSnap {
		src := &swapSnap[i]
		if !src.InUse {
			continue
		}

		stagingMu.Lock()
		if err := parent.Swap.ReadSwap(src, &staging); err != 0 {
			stagingMu.Unlock()
			return nil, err
		}

		if err := child.Swap.WriteSwap(&child.Swap.Slots[i], &staging); err != 0 {
			stagingMu.Unlock()
			return nil, err
		}
		stagingMu.Unlock()

		child.Lock()
		child.Swap.Slots[i].PageAddress = src.PageAddress
		child.Swap.Slots[i].InUse = src.InUse
		// The child's leaf for a swapped page carries the parent's
		// flags (V=0, PG=1), so a reference faults it in via LoadPage.
		if e, ok := parent.PageTable.Walk(src.PageAddress); ok {
			child.PageTable.Mappages(src.PageAddress, 0, e.Flags())
		}
		child.Unlock()
	}

	return child, 0
}

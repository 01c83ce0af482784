// Package proc ties the page-table adapter, swap store, resident set,
// and replacement policies together into the fault/eviction paths and
// fork duplication described in spec.md §4.5-§4.7, under the
// per-process locking discipline of spec.md §5.
package proc

import (
	"sync"

	"swapkern/defs"
	"swapkern/mem"
	"swapkern/metrics"
	"swapkern/pagetable"
	"swapkern/policy"
	"swapkern/resident"
	"swapkern/swapstore"
)

// Config carries the compile-time constants of spec.md §6 as explicit
// values rather than global constants, so a single binary can run
// several configurations side by side (spec.md §9: "avoid hidden
// singletons").
type Config struct {
	MaxPsycPages  int
	MaxTotalPages int
	Selection     policy.Kind
}

// Remover is satisfied by a swapstore.BackingStore that also knows how
// to delete itself; both backingstore.FileStore and
// backingstore.MemStore implement it. Exit uses it to perform the
// external remove_swap primitive (spec.md §6).
type Remover interface {
	Remove() error
}

// Proc is one process's paging state: its page table, swap store,
// resident set, frame allocator, and the lock guarding all of them
// (spec.md §5: "the per-process lock ... guards all fields of the
// process descriptor, including storedpages, ram_pages, page_turn").
// The embedded mutex mirrors biscuit/src/vm.Vm_t, which embeds
// sync.Mutex directly over the fields it protects.
type Proc struct {
	sync.Mutex

	cfg Config

	PageTable *pagetable.Table
	FrameAlloc mem.FrameAllocator
	Swap      *swapstore.Store
	Resident  *resident.Set
	backing   swapstore.BackingStore

	// Sz is the user address-space size in bytes (spec.md §3).
	Sz int

	Metrics *metrics.Metrics
}

// New performs alloc_proc's paging-related initialization (spec.md
// §6): both arrays start empty, LAPA's counters preset to all-ones,
// page_turn at zero (resident.New handles both).
func New(cfg Config, pt *pagetable.Table, frameAlloc mem.FrameAllocator, backing swapstore.BackingStore, m *metrics.Metrics) *Proc {
	return &Proc{
		cfg:        cfg,
		PageTable:  pt,
		FrameAlloc: frameAlloc,
		Swap:       swapstore.New(cfg.MaxTotalPages, backing),
		Resident:   resident.New(cfg.MaxPsycPages, cfg.Selection.IsLAPA()),
		backing:    backing,
		Metrics:    m,
	}
}

func (p *Proc) observe(c func(m *metrics.Metrics)) {
	if p.Metrics != nil {
		c(p.Metrics)
	}
}

// StorePage evicts the resident page at v to swap (spec.md §4.5).
// Precondition: v's leaf is Valid and the resident set holds a slot
// for v. The lock is released around the swap write, a suspension
// point spec.md §5 names explicitly ("swap I/O ... blocks on disk;
// the calling process's lock must be released before I/O and
// reacquired after"), and reacquired before any metadata mutates.
// Every failure path leaves I1/I2 untouched: no metadata is mutated
// before the swap write succeeds (spec.md §9 O2: the frame is only
// released as the very last step, once the lock is held again).
func (p *Proc) StorePage(v pagetable.VA) defs.Err_t {
	p.Lock()

	e, ok := p.PageTable.Walk(v)
	if !ok || !e.Valid() {
		p.Unlock()
		return defs.EWALKMISS
	}
	pa := e.PA()

	slot, ok := p.Swap.GetFreeSwap()
	if !ok {
		p.Unlock()
		return defs.ENOFREESWAP
	}
	page := p.FrameAlloc.Dmap(pa)

	p.Unlock()
	err := p.Swap.WriteSwap(slot, page)
	p.Lock()
	defer p.Unlock()

	if err != 0 {
		return err
	}
	p.observe(func(m *metrics.Metrics) { m.SwapWrites.Inc() })

	slot.InUse = true
	slot.PageAddress = pagetable.PageBase(v)

	e.SetPagedOut(true)
	e.SetValid(false)

	p.Resident.Release(v)

	p.FrameAlloc.Free(pa)

	p.observe(func(m *metrics.Metrics) { m.Evictions.Inc() })
	return 0
}

// LoadPage demand-loads the page containing vAddr from swap (spec.md
// §4.6), triggered from the page-fault handler when the faulting
// leaf has V=0, PG=1. If the resident set is already at capacity, a
// victim is selected by the configured policy and evicted via
// StorePage before the new page is claimed. The lock is released
// around the swap read, the other suspension point spec.md §5 names,
// and reacquired before any metadata mutates.
func (p *Proc) LoadPage(vAddr pagetable.VA) defs.Err_t {
	p.Lock()
	v := pagetable.PageBase(vAddr)

	slot, ok := p.Swap.GetSwapFor(v)
	if !ok {
		p.Unlock()
		return defs.ENOSWAPENTRY
	}

	pa, page, ok := p.FrameAlloc.Alloc()
	if !ok {
		p.Unlock()
		return defs.ENOFREEFRAME
	}

	p.Unlock()
	err := p.Swap.ReadSwap(slot, page)
	p.Lock()

	if err != 0 {
		p.FrameAlloc.Free(pa)
		p.Unlock()
		return err
	}
	p.observe(func(m *metrics.Metrics) { m.SwapReads.Inc() })

	slot.InUse = false
	slot.PageAddress = 0

	if p.Resident.Occupied() >= p.cfg.MaxPsycPages {
		victim, ok := policy.Select(p.cfg.Selection, p.Resident, p.PageTable)
		if !ok {
			p.FrameAlloc.Free(pa)
			p.Unlock()
			return defs.ENOMEM
		}
		// StorePage takes the lock itself; release it here first so
		// the eviction of a different page is not a recursive
		// self-deadlock, re-acquiring once it returns. Single-process
		// execution makes this safe: no other goroutine can observe
		// the gap because nothing can run on this Proc concurrently
		// with its own fault handler (spec.md §5 single-writer rule).
		p.Unlock()
		if err := p.StorePage(victim); err != 0 {
			p.FrameAlloc.Free(pa)
			return err
		}
		p.Lock()
	}

	flags := uint16(pagetable.PteV)
	if old, ok := p.PageTable.Walk(v); ok {
		flags = (old.Flags() &^ pagetable.PtePG) | pagetable.PteV
	}
	p.PageTable.Mappages(v, pa, flags)

	if _, ok := p.Resident.Claim(v, p.cfg.Selection.IsLAPA()); !ok {
		p.Unlock()
		return defs.ENOMEM
	}

	p.observe(func(m *metrics.Metrics) { m.PageFaults.Inc() })
	p.Unlock()
	return 0
}

// AllocPage maps a freshly grown user page at v (spec.md §6: "On user
// memory growth that would push resident > MAX_PSYC_PAGES: invoke
// store_page on a victim chosen by policy"). Unlike LoadPage, the page
// has no swap-store history: it is a new zero-filled frame.
func (p *Proc) AllocPage(v pagetable.VA) defs.Err_t {
	p.Lock()

	if p.Resident.Occupied() >= p.cfg.MaxPsycPages {
		victim, ok := policy.Select(p.cfg.Selection, p.Resident, p.PageTable)
		if !ok {
			p.Unlock()
			return defs.ENOMEM
		}
		p.Unlock()
		if err := p.StorePage(victim); err != 0 {
			return err
		}
		p.Lock()
	}

	pa, _, ok := p.FrameAlloc.Alloc()
	if !ok {
		p.Unlock()
		return defs.ENOFREEFRAME
	}

	p.PageTable.Mappages(v, pa, pagetable.PteV)
	if _, ok := p.Resident.Claim(v, p.cfg.Selection.IsLAPA()); !ok {
		p.FrameAlloc.Free(pa)
		p.Unlock()
		return defs.ENOMEM
	}
	p.Unlock()
	return 0
}

// Tick runs the aging step for this process, called once per
// scheduling dispatch for the process that just ran (spec.md §4.3).
func (p *Proc) Tick() {
	p.Lock()
	defer p.Unlock()
	p.Resident.Age(p.PageTable)
}

// Exit removes the process's swap file (spec.md §6 "On exit: remove
// the swap file"); the kernel then frees frames via the normal path,
// which this module models as the caller discarding the Proc.
func (p *Proc) Exit() error {
	if r, ok := p.backing.(Remover); ok {
		return r.Remove()
	}
	return nil
}

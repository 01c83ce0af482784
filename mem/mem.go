// Package mem holds the page-sized primitives shared by the paging
// subsystem: the page size, a physical-frame address type, and a small
// frame allocator satisfying the "physical-frame allocator" contract
// spec.md §1 treats as an external collaborator.
package mem

// PGSIZE is the size of a single page in bytes (spec.md §6).
const PGSIZE = 4096

// Pa_t is a physical frame address. Adapted from biscuit/src/mem.Pa_t.
type Pa_t uintptr

// Page_t is a page-sized byte buffer, the unit moved between RAM and
// the swap file by store_page/load_page.
type Page_t [PGSIZE]byte

// FrameAllocator abstracts the physical-frame allocator spec.md §1
// lists as an out-of-scope external collaborator. Narrow capability
// interface, in the style of biscuit/src/mem.Page_i.
type FrameAllocator interface {
	// Alloc returns a fresh zeroed frame, or ok=false if none remain
	// (spec.md §7 NoFreeFrame).
	Alloc() (pa Pa_t, page *Page_t, ok bool)
	// Free returns pa to the allocator.
	Free(pa Pa_t)
	// Dmap returns the byte content behind an already-allocated frame,
	// mirroring biscuit/src/mem.Page_i.Dmap.
	Dmap(pa Pa_t) *Page_t
}

// simpleAllocator is a free-list-backed frame allocator sized for tests
// and the cmd/swapsim harness. It plays the role biscuit's
// ufs/driver.go blockmem_t stub plays for its own test doubles: a
// minimal, explicit stand-in for an out-of-scope physical-frame
// allocator collaborator.
type simpleAllocator struct {
	frames []Page_t
	free   []Pa_t
}

// NewSimpleAllocator builds a FrameAllocator backed by n page-sized
// buffers, identifying each frame by its slice index.
func NewSimpleAllocator(n int) FrameAllocator {
	a := &simpleAllocator{frames: make([]Page_t, n)}
	a.free = make([]Pa_t, n)
	for i := 0; i < n; i++ {
		a.free[i] = Pa_t(i)
	}
	return a
}

func (a *simpleAllocator) Alloc() (Pa_t, *Page_t, bool) {
	if len(a.free) == 0 {
		return 0, nil, false
	}
	pa := a.free[len(a.free)-1]
	a.free = a.free[:len(a.free)-1]
	pg := &a.frames[int(pa)]
	*pg = Page_t{}
	return pa, pg, true
}

func (a *simpleAllocator) Free(pa Pa_t) {
	a.free = append(a.free, pa)
}

func (a *simpleAllocator) Dmap(pa Pa_t) *Page_t {
	return &a.frames[int(pa)]
}

package proc_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swapkern/backingstore"
	"swapkern/mem"
	"swapkern/pagetable"
	"swapkern/policy"
	"swapkern/proc"
)

func newTestProc(t *testing.T, selection policy.Kind, maxPsyc, maxTotal int) *proc.Proc {
	t.Helper()
	cfg := proc.Config{MaxPsycPages: maxPsyc, MaxTotalPages: maxTotal, Selection: selection}
	pt := pagetable.NewTable()
	alloc := mem.NewSimpleAllocator(maxPsyc + 4)
	backing := backingstore.NewMemStore(maxTotal)
	return proc.New(cfg, pt, alloc, backing, nil)
}

// touch ensures va is mapped resident, faulting it in from swap if
// it was paged out, or mapping a fresh page if it has never existed.
func touch(t *testing.T, p *proc.Proc, va pagetable.VA) {
	t.Helper()
	e, ok := p.PageTable.Walk(va)
	switch {
	case !ok:
		require.Zero(t, p.AllocPage(va))
	case e.PagedOut():
		require.Zero(t, p.LoadPage(va))
	}
}

func writeByte(t *testing.T, p *proc.Proc, va pagetable.VA, b byte) {
	t.Helper()
	touch(t, p, va)
	e, ok := p.PageTable.Walk(va)
	require.True(t, ok)
	page := p.FrameAlloc.Dmap(e.PA())
	page[0] = b
	e.SetAccessed(true)
}

func readByte(t *testing.T, p *proc.Proc, va pagetable.VA) byte {
	t.Helper()
	touch(t, p, va)
	e, ok := p.PageTable.Walk(va)
	require.True(t, ok)
	page := p.FrameAlloc.Dmap(e.PA())
	e.SetAccessed(true)
	return page[0]
}

// S1: force eviction. Allocate MAX_PSYC_PAGES+1 pages, touching them
// in order; exactly one page is evicted. Subsequent re-reads evict
// further pages as needed, but every page's last-written value round
// trips correctly.
func TestS1ForceEviction(t *testing.T) {
	const n = 16
	p := newTestProc(t, policy.SCFIFO, n, n+4)

	for i := 0; i <= n; i++ {
		writeByte(t, p, pagetable.VA(i*mem.PGSIZE), byte(i+1))
	}
	assert.Equal(t, n, p.Resident.Occupied())
	assert.Equal(t, 1, p.Swap.Occupied(), "exactly one page evicted for the 17th allocation")

	for i := 0; i <= n; i++ {
		got := readByte(t, p, pagetable.VA(i*mem.PGSIZE))
		assert.Equal(t, byte(i+1), got, "page %d must return its last-written value", i)
	}
}

// S2: SCFIFO second chance. Load pages 0..15, age once, read page 0
// (sets A), then force an eviction by allocating a 17th page. The
// victim must be page 1 (oldest with A=0), not page 0.
func TestS2SCFIFOSecondChance(t *testing.T) {
	const n = 16
	p := newTestProc(t, policy.SCFIFO, n, n+4)

	for i := 0; i < n; i++ {
		writeByte(t, p, pagetable.VA(i*mem.PGSIZE), byte(i+1))
	}
	// writeByte already sets Accessed on every page; age once to clear
	// it everywhere, then touch page 0 again to set only its bit.
	p.Tick()
	e0, ok := p.PageTable.Walk(0)
	require.True(t, ok)
	e0.SetAccessed(true)

	require.Zero(t, p.AllocPage(pagetable.VA(n*mem.PGSIZE)))

	_, stillResident := p.Resident.Find(pagetable.VA(1 * mem.PGSIZE))
	assert.False(t, stillResident, "page 1 (oldest with A=0) must be the victim")
	_, page0Resident := p.Resident.Find(pagetable.VA(0))
	assert.True(t, page0Resident, "page 0 got a second chance and stays resident")
}

// S3: NFUA with 16 resident pages and extra touches to pages 5,6,7
// between aging windows; the page evicted when a 17th page is
// allocated must never be one of 5,6,7.
func TestS3NFUAAvoidsHotPages(t *testing.T) {
	const n = 16
	p := newTestProc(t, policy.NFUA, n, n+4)

	for i := 0; i < n; i++ {
		writeByte(t, p, pagetable.VA(i*mem.PGSIZE), byte(i+1))
	}

	for round := 0; round < 4; round++ {
		p.Tick()
		for _, hot := range []int{5, 6, 7} {
			e, ok := p.PageTable.Walk(pagetable.VA(hot * mem.PGSIZE))
			require.True(t, ok)
			e.SetAccessed(true)
		}
	}
	p.Tick()

	require.Zero(t, p.AllocPage(pagetable.VA(n*mem.PGSIZE)))

	for _, hot := range []int{5, 6, 7} {
		_, stillResident := p.Resident.Find(pagetable.VA(hot * mem.PGSIZE))
		assert.True(t, stillResident, "hot page %d must not be evicted", hot)
	}
}

// S5 / P9: fork deep copy. Parent writes distinct markers to 16 pages,
// forks, child overwrites the same offsets with its own markers;
// the parent's pages must still read back the parent's markers.
func TestS5ForkDeepCopy(t *testing.T) {
	const n = 16
	parent := newTestProc(t, policy.NFUA, n, n+4)

	for i := 0; i < n; i++ {
		writeByte(t, parent, pagetable.VA(i*mem.PGSIZE), byte(i+1))
	}

	childPT := pagetable.NewTable()
	childAlloc := mem.NewSimpleAllocator(n + 4)
	childBacking := backingstore.NewMemStore(n + 4)

	child, err := proc.Fork(parent, childPT, childAlloc, childBacking)
	require.Zero(t, err)

	for i := 0; i < n; i++ {
		got := readByte(t, child, pagetable.VA(i*mem.PGSIZE))
		assert.Equal(t, byte(i+1), got, "child must observe the parent's bytes immediately after fork")
	}

	for i := 0; i < n; i++ {
		writeByte(t, child, pagetable.VA(i*mem.PGSIZE), byte(100+i))
	}

	for i := 0; i < n; i++ {
		got := readByte(t, parent, pagetable.VA(i*mem.PGSIZE))
		assert.Equal(t, byte(i+1), got, "parent's pages must be unaffected by the child's writes")
	}
}

// S5 continued: fork must also duplicate swapped-out pages, not just
// resident ones.
func TestForkCopiesSwappedPages(t *testing.T) {
	const n = 4
	parent := newTestProc(t, policy.SCFIFO, n, n+4)

	for i := 0; i <= n; i++ { // n+1 touches forces exactly one eviction
		writeByte(t, parent, pagetable.VA(i*mem.PGSIZE), byte(i+1))
	}
	require.Equal(t, 1, parent.Swap.Occupied())

	childPT := pagetable.NewTable()
	childAlloc := mem.NewSimpleAllocator(n + 4)
	childBacking := backingstore.NewMemStore(n + 4)

	child, err := proc.Fork(parent, childPT, childAlloc, childBacking)
	require.Zero(t, err)
	assert.Equal(t, parent.Swap.Occupied(), child.Swap.Occupied())

	for i := 0; i <= n; i++ {
		got := readByte(t, child, pagetable.VA(i*mem.PGSIZE))
		assert.Equal(t, byte(i+1), got)
	}
}

// S6: exit removes the process's swap file.
func TestS6ExitRemovesSwapFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "swap0")

	const n = 4
	cfg := proc.Config{MaxPsycPages: n, MaxTotalPages: n + 2, Selection: policy.SCFIFO}
	fileBacking, err := backingstore.CreateFileStore(path, cfg.MaxTotalPages)
	require.NoError(t, err)

	pt := pagetable.NewTable()
	alloc := mem.NewSimpleAllocator(n + 4)
	p := proc.New(cfg, pt, alloc, fileBacking, nil)

	for i := 0; i <= n; i++ {
		writeByte(t, p, pagetable.VA(i*mem.PGSIZE), byte(i+1))
	}
	require.FileExists(t, path)

	require.NoError(t, p.Exit())
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "swap file must not persist after exit")
}

// Invariant checks independent of any single scenario: P2/P3 hold
// after a mixed sequence of faults and evictions.
func TestDisjointAndLeafCoherence(t *testing.T) {
	const n = 8
	p := newTestProc(t, policy.LAPA, n, n+4)

	for i := 0; i < 12; i++ {
		writeByte(t, p, pagetable.VA(i*mem.PGSIZE), byte(i))
	}

	for i := 0; i < 12; i++ {
		va := pagetable.VA(i * mem.PGSIZE)
		_, resident := p.Resident.Find(va)
		_, swapped := p.Swap.GetSwapFor(va)
		assert.NotEqual(t, resident, swapped, "P2: exactly one of resident/swapped holds for page %d", i)

		e, ok := p.PageTable.Walk(va)
		require.True(t, ok)
		assert.Equal(t, resident, e.Valid(), "P3: V=1 iff resident holds the page")
		assert.Equal(t, swapped, e.PagedOut(), "P3: PG=1 iff swap holds the page")
	}
	assert.LessOrEqual(t, p.Resident.Occupied(), n, "P1")
}

package swapstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swapkern/mem"
	"swapkern/pagetable"
	"swapkern/swapstore"
)

type memBacking struct {
	buf []byte
}

func newMemBacking(slots int) *memBacking {
	return &memBacking{buf: make([]byte, slots*mem.PGSIZE)}
}

func (m *memBacking) ReadAt(offset int64, page *mem.Page_t) error {
	copy(page[:], m.buf[offset:offset+mem.PGSIZE])
	return nil
}

func (m *memBacking) WriteAt(offset int64, page *mem.Page_t) error {
	copy(m.buf[offset:offset+mem.PGSIZE], page[:])
	return nil
}

func TestFileOffsetStability(t *testing.T) {
	s := swapstore.New(16, newMemBacking(16))
	for k, slot := range s.Slots {
		assert.Equal(t, int64(k)*mem.PGSIZE, slot.FileOffset, "P4: swap[k].file_offset == k*PGSIZE")
	}
}

func TestGetFreeSwapScanOrder(t *testing.T) {
	s := swapstore.New(4, newMemBacking(4))
	s.Slots[0].InUse = true
	slot, ok := s.GetFreeSwap()
	require.True(t, ok)
	assert.Equal(t, int64(1)*mem.PGSIZE, slot.FileOffset)
}

func TestGetFreeSwapFullReturnsNoFreeSwap(t *testing.T) {
	s := swapstore.New(2, newMemBacking(2))
	s.Slots[0].InUse = true
	s.Slots[1].InUse = true
	_, ok := s.GetFreeSwap()
	assert.False(t, ok)
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	s := swapstore.New(2, newMemBacking(2))
	slot, ok := s.GetFreeSwap()
	require.True(t, ok)

	var page mem.Page_t
	page[0] = 0xAB
	page[mem.PGSIZE-1] = 0xCD

	require.Zero(t, s.WriteSwap(slot, &page))
	slot.InUse = true
	slot.PageAddress = pagetable.VA(0x1000)

	var out mem.Page_t
	require.Zero(t, s.ReadSwap(slot, &out))
	assert.Equal(t, page, out)
}

func TestGetSwapForUniqueness(t *testing.T) {
	s := swapstore.New(4, newMemBacking(4))
	s.Slots[2].InUse = true
	s.Slots[2].PageAddress = pagetable.VA(0x4000)

	slot, ok := s.GetSwapFor(pagetable.VA(0x4000))
	require.True(t, ok)
	assert.Equal(t, int64(2)*mem.PGSIZE, slot.FileOffset)

	_, ok = s.GetSwapFor(pagetable.VA(0x5000))
	assert.False(t, ok)
}

package backingstore

import (
	"io"

	"github.com/dsnet/golib/memfile"
	"github.com/pkg/errors"

	"swapkern/mem"
)

// MemStore is an in-memory backing store used by tests and by
// cmd/swapsim (its only backing store), so a swap-heavy scenario does not need
// real disk I/O to exercise store_page/load_page. Grounded on
// github.com/dsnet/golib/memfile, declared by
// ryogrid-bltree-go-for-embedding/go.mod for the same "page-sized
// reads/writes against a byte buffer" access pattern.
type MemStore struct {
	f *memfile.File
}

// NewMemStore allocates a zeroed in-memory swap file sized for
// totalPages slots.
func NewMemStore(totalPages int) *MemStore {
	buf := make([]byte, totalPages*mem.PGSIZE)
	return &MemStore{f: memfile.New(buf)}
}

// ReadAt reads one full page from offset into page.
func (m *MemStore) ReadAt(offset int64, page *mem.Page_t) error {
	buf := make([]byte, mem.PGSIZE)
	n, err := m.f.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return errors.Wrapf(err, "mem-read swap at %d", offset)
	}
	copy(page[:], buf[:n])
	return nil
}

// WriteAt writes one full page to offset.
func (m *MemStore) WriteAt(offset int64, page *mem.Page_t) error {
	if _, err := m.f.WriteAt(page[:], offset); err != nil {
		return errors.Wrapf(err, "mem-write swap at %d", offset)
	}
	return nil
}

// Remove discards the in-memory buffer. There is no filesystem state
// to clean up; Remove exists so MemStore can stand in for FileStore in
// tests that exercise exit's swap-file cleanup (spec.md S6).
func (m *MemStore) Remove() error {
	return nil
}

// Package backingstore provides concrete, testable stand-ins for the
// backing-file I/O primitive spec.md §1 lists as an external
// collaborator (read_swap/write_swap/create_swap/remove_swap). Two
// implementations satisfy swapstore.BackingStore: FileStore, a real
// per-process swap file opened for aligned, unbuffered page I/O, and
// MemStore, an in-memory double for tests.
package backingstore

import (
	"io"
	"os"

	"github.com/ncw/directio"
	"github.com/pkg/errors"

	"swapkern/mem"
)

// FileStore is a per-process swap file: a flat file of length
// MAX_TOTAL_PAGES*PGSIZE, slot k at bytes [k*PGSIZE, (k+1)*PGSIZE)
// (spec.md §6 "Swap file format"). It is exclusively owned by one
// process (spec.md §5) and is opened with O_DIRECT via
// github.com/ncw/directio so each slot read/write is a full,
// page-aligned I/O against the fixed offset spec.md I4 requires.
type FileStore struct {
	f    *os.File
	path string
}

// CreateFileStore creates (or truncates) the swap file at path sized
// for totalPages slots. This is the module's stand-in for the
// external create_swap primitive, invoked on alloc_proc and on fork
// (spec.md §4.7 step 2).
func CreateFileStore(path string, totalPages int) (*FileStore, error) {
	f, err := directio.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, errors.Wrapf(err, "create swap file %s", path)
	}
	size := int64(totalPages) * int64(mem.PGSIZE)
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "size swap file %s", path)
	}
	return &FileStore{f: f, path: path}, nil
}

// ReadAt reads one full page from the fixed offset into page.
func (fs *FileStore) ReadAt(offset int64, page *mem.Page_t) error {
	buf := directio.AlignedBlock(mem.PGSIZE)
	n, err := fs.f.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return errors.Wrapf(err, "read swap file %s at %d", fs.path, offset)
	}
	copy(page[:], buf[:n])
	return nil
}

// WriteAt writes one full page to the fixed offset.
func (fs *FileStore) WriteAt(offset int64, page *mem.Page_t) error {
	buf := directio.AlignedBlock(mem.PGSIZE)
	copy(buf, page[:])
	if _, err := fs.f.WriteAt(buf, offset); err != nil {
		return errors.Wrapf(err, "write swap file %s at %d", fs.path, offset)
	}
	return nil
}

// Remove closes and deletes the swap file. This is the module's
// stand-in for the external remove_swap primitive, invoked on exit
// (spec.md §6 "On exit: remove the swap file").
func (fs *FileStore) Remove() error {
	cerr := fs.f.Close()
	if err := os.Remove(fs.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "remove swap file %s", fs.path)
	}
	if cerr != nil {
		return errors.Wrapf(cerr, "close swap file %s", fs.path)
	}
	return nil
}

package iobtree

import (
	"fmt"
	"io"
	"sync"

	"github.com/standardbeagle/zindex/internal/fdset"
	"github.com/standardbeagle/zindex/internal/zerrors"
)

// Store is the paged file backing a Btree: it allocates fixed-size
// pages across one or more bounded-size files registered under a
// single fdset type, and reads/writes pages through the shared
// descriptor pool rather than holding its own handles.
type Store struct {
	fds      *fdset.FdSet
	typ      fdset.TypeNo
	pagesize int
	maxBytes int64

	mu       sync.Mutex
	curFile  fdset.FileNo
	curOff   int64
	inited   bool
}

// NewStore wraps an fdset type (already registered by the caller with
// a "%u"-templated path) as a page allocator/reader/writer.
func NewStore(fds *fdset.FdSet, typ fdset.TypeNo, pagesize int, maxFileBytes int64) *Store {
	return &Store{fds: fds, typ: typ, pagesize: pagesize, maxBytes: maxFileBytes}
}

// Reopen points the allocator at the next free slot after an existing
// file of knownSize bytes for fileno, for resuming writes into an
// index loaded from disk.
func (st *Store) Reopen(fileno fdset.FileNo, knownSize int64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.curFile = fileno
	st.curOff = knownSize
	st.inited = true
}

// AllocPage reserves the next pagesize-sized slot, rolling to a new
// file when the current one would exceed maxBytes.
func (st *Store) AllocPage() (PageRef, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.inited {
		f, err := st.fds.Create(st.typ, st.curFile)
		if err != nil {
			return PageRef{}, err
		}
		st.fds.Unpin(st.typ, st.curFile, f)
		st.inited = true
	}

	if st.maxBytes > 0 && st.curOff+int64(st.pagesize) > st.maxBytes {
		st.curFile++
		f, err := st.fds.Create(st.typ, st.curFile)
		if err != nil {
			return PageRef{}, err
		}
		st.fds.Unpin(st.typ, st.curFile, f)
		st.curOff = 0
	}

	ref := PageRef{Fileno: uint32(st.curFile), Offset: st.curOff}
	st.curOff += int64(st.pagesize)
	return ref, nil
}

// ReadPage loads and decodes the page at ref.
func (st *Store) ReadPage(ref PageRef) (*page, error) {
	f, err := st.fds.Pin(st.typ, fdset.FileNo(ref.Fileno), ref.Offset, io.SeekStart)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, st.pagesize)
	_, err = io.ReadFull(f, buf)
	st.fds.Unpin(st.typ, fdset.FileNo(ref.Fileno), f)
	if err != nil {
		return nil, zerrors.New(zerrors.KindIOUnavailable, "iobtree.read_page", fmt.Errorf("reading page at fileno=%d offset=%d: %w", ref.Fileno, ref.Offset, err))
	}
	return decodePage(ref, buf)
}

// WritePage encodes and writes p to its own ref.
func (st *Store) WritePage(p *page) error {
	buf, err := p.encode(st.pagesize)
	if err != nil {
		return zerrors.New(zerrors.KindFormatInvalid, "iobtree.write_page", err)
	}
	f, err := st.fds.Pin(st.typ, fdset.FileNo(p.ref.Fileno), p.ref.Offset, io.SeekStart)
	if err != nil {
		return err
	}
	_, err = f.Write(buf)
	st.fds.Unpin(st.typ, fdset.FileNo(p.ref.Fileno), f)
	if err != nil {
		return zerrors.New(zerrors.KindIOUnavailable, "iobtree.write_page", err)
	}
	p.dirty = false
	return nil
}

// readRaw reads the raw pagesize-sized buffer at ref without running
// it through the page codec.
func (st *Store) readRaw(ref PageRef) ([]byte, error) {
	f, err := st.fds.Pin(st.typ, fdset.FileNo(ref.Fileno), ref.Offset, io.SeekStart)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, st.pagesize)
	_, err = io.ReadFull(f, buf)
	st.fds.Unpin(st.typ, fdset.FileNo(ref.Fileno), f)
	if err != nil {
		return nil, zerrors.New(zerrors.KindIOUnavailable, "iobtree.read_raw", err)
	}
	return buf, nil
}

// allocState reports the allocator's current position, for persisting
// alongside the tree's root pointer so a reopened store resumes
// appending after the last page instead of overwriting it.
func (st *Store) allocState() (fdset.FileNo, int64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.curFile, st.curOff
}

// writeRaw writes a pagesize-padded buffer directly at ref, bypassing
// the page codec. Used for the tree's single fixed meta page.
func (st *Store) writeRaw(ref PageRef, content []byte) error {
	if len(content) > st.pagesize {
		return zerrors.New(zerrors.KindFormatInvalid, "iobtree.write_raw", fmt.Errorf("content %d bytes exceeds pagesize %d", len(content), st.pagesize))
	}
	padded := make([]byte, st.pagesize)
	copy(padded, content)
	f, err := st.fds.Pin(st.typ, fdset.FileNo(ref.Fileno), ref.Offset, io.SeekStart)
	if err != nil {
		return err
	}
	_, err = f.Write(padded)
	st.fds.Unpin(st.typ, fdset.FileNo(ref.Fileno), f)
	if err != nil {
		return zerrors.New(zerrors.KindIOUnavailable, "iobtree.write_raw", err)
	}
	return nil
}

// Package repository implements the append-only, size-delimited
// document byte store (spec §3/invariant 5): every ingested document's
// raw bytes are appended to a run of bounded-size files, and the
// caller gets back a (fileno, offset, length) pointer to retrieve them
// later. A repository file never grows past its configured maximum —
// a write that would cross it starts a fresh file first.
//
// It is built directly on internal/fdset rather than internal/iobtree,
// since records are variable-length byte runs, not fixed pages.
package repository

import (
	"fmt"
	"io"

	"github.com/standardbeagle/zindex/internal/codec"
	"github.com/standardbeagle/zindex/internal/fdset"
	"github.com/standardbeagle/zindex/internal/zerrors"
)

// Pointer locates one document's bytes: fileno/offset address the
// payload directly (after its length-prefix framing byte), length is
// the payload's byte count.
type Pointer struct {
	Fileno uint32
	Offset int64
	Length int64
}

// Repository is the append-only writer/reader over one fdset type.
type Repository struct {
	fds      *fdset.FdSet
	typ      fdset.TypeNo
	maxBytes int64

	curFile fdset.FileNo
	curOff  int64
	inited  bool
}

// New wraps an fdset type (already registered with a "%u"-templated
// path) as a repository. maxFileBytes <= 0 means unbounded.
func New(fds *fdset.FdSet, typ fdset.TypeNo, maxFileBytes int64) *Repository {
	return &Repository{fds: fds, typ: typ, maxBytes: maxFileBytes}
}

// Reopen resumes appending after an existing file of knownSize bytes,
// for loading an index that already has repository data on disk.
func (r *Repository) Reopen(fileno fdset.FileNo, knownSize int64) {
	r.curFile = fileno
	r.curOff = knownSize
	r.inited = true
}

// CurrentPosition reports the allocator's position, for persisting
// into the parameters file across process restarts.
func (r *Repository) CurrentPosition() (fdset.FileNo, int64) {
	return r.curFile, r.curOff
}

// Append writes data as one size-delimited record and returns its
// pointer. A record that would cross maxBytes starts a new file first
// (invariant 5), never splitting a single document across files.
func (r *Repository) Append(data []byte) (Pointer, error) {
	framed := codec.EncodeVarbyte(uint64(len(data)))
	need := int64(len(framed) + len(data))

	if !r.inited {
		created, err := r.fds.Create(r.typ, r.curFile)
		if err != nil {
			return Pointer{}, err
		}
		r.fds.Unpin(r.typ, r.curFile, created)
		r.inited = true
	} else if r.maxBytes > 0 && r.curOff+need > r.maxBytes {
		r.curFile++
		r.curOff = 0
		created, err := r.fds.Create(r.typ, r.curFile)
		if err != nil {
			return Pointer{}, err
		}
		r.fds.Unpin(r.typ, r.curFile, created)
	}

	f, err := r.fds.Pin(r.typ, r.curFile, r.curOff, io.SeekStart)
	if err != nil {
		return Pointer{}, err
	}
	_, werr := f.Write(framed)
	if werr == nil {
		_, werr = f.Write(data)
	}
	r.fds.Unpin(r.typ, r.curFile, f)
	if werr != nil {
		return Pointer{}, zerrors.New(zerrors.KindIOUnavailable, "repository.append", werr)
	}

	ptr := Pointer{Fileno: uint32(r.curFile), Offset: r.curOff + int64(len(framed)), Length: int64(len(data))}
	r.curOff += need
	return ptr, nil
}

// Retrieve reads back the full byte payload for ptr.
func (r *Repository) Retrieve(ptr Pointer) ([]byte, error) {
	f, err := r.fds.Pin(r.typ, fdset.FileNo(ptr.Fileno), ptr.Offset, io.SeekStart)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, ptr.Length)
	_, rerr := io.ReadFull(f, buf)
	r.fds.Unpin(r.typ, fdset.FileNo(ptr.Fileno), f)
	if rerr != nil {
		return nil, zerrors.New(zerrors.KindIOUnavailable, "repository.retrieve", fmt.Errorf("reading %d bytes at fileno=%d offset=%d: %w", ptr.Length, ptr.Fileno, ptr.Offset, rerr))
	}
	return buf, nil
}

// Stream copies ptr's payload to w in bounded-size chunks, matching
// the cache-query retrieval loop of spec §4.11 (retrieve/offset/buf/len
// repeated until EOF) instead of materializing the whole document.
func (r *Repository) Stream(ptr Pointer, w io.Writer, chunkSize int) error {
	if chunkSize <= 0 {
		chunkSize = 64 * 1024
	}
	f, err := r.fds.Pin(r.typ, fdset.FileNo(ptr.Fileno), ptr.Offset, io.SeekStart)
	if err != nil {
		return err
	}
	defer r.fds.Unpin(r.typ, fdset.FileNo(ptr.Fileno), f)

	remaining := ptr.Length
	buf := make([]byte, chunkSize)
	for remaining > 0 {
		n := int64(len(buf))
		if remaining < n {
			n = remaining
		}
		read, rerr := io.ReadFull(f, buf[:n])
		if read > 0 {
			if _, werr := w.Write(buf[:read]); werr != nil {
				return zerrors.New(zerrors.KindIOUnavailable, "repository.stream", werr)
			}
		}
		if rerr != nil {
			return zerrors.New(zerrors.KindIOUnavailable, "repository.stream", rerr)
		}
		remaining -= int64(read)
	}
	return nil
}

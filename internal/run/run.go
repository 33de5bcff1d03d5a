// Package run implements the build pipeline's run dumper (spec §4.6):
// it streams an accumulator's sorted entries out as a sequence of
// (term, f_t_run, F_t_run, posting-bytes) records to a new "P.index.<n>"
// file via the fdset, and tracks the resulting run references in a
// pyramid so the merger (internal/merge) can bound its fan-in.
package run

import (
	"bufio"
	"io"
	"os"

	"github.com/standardbeagle/zindex/internal/accum"
	"github.com/standardbeagle/zindex/internal/codec"
	"github.com/standardbeagle/zindex/internal/fdset"
	"github.com/standardbeagle/zindex/internal/zerrors"
)

// Ref locates one run: the file it lives in, its byte bounds within
// that file, and the pyramid level it belongs to (0 for a run dumped
// directly from the accumulator, >0 for a pyramid-merged run).
type Ref struct {
	Fileno uint32
	Start  int64
	End    int64
	Level  int
}

// Dumper writes accumulator snapshots out as runs.
type Dumper struct {
	fds        *fdset.FdSet
	typ        fdset.TypeNo
	bufSize    int
	nextFileno uint32
}

// New creates a Dumper. Each call to Dump allocates a fresh fileno
// under typ; bufSize sizes the write buffer used while streaming
// records out.
func New(fds *fdset.FdSet, typ fdset.TypeNo, bufSize int) *Dumper {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	return &Dumper{fds: fds, typ: typ, bufSize: bufSize}
}

// Dump streams tbl's entries out in sorted term order as a new level-0
// run, then clears tbl for the next batch.
func (d *Dumper) Dump(tbl *accum.Table) (Ref, error) {
	entries := tbl.Entries()
	records := make([]DumpRecord, len(entries))
	for i, e := range entries {
		records[i] = DumpRecord{Term: e.Term, Ft: uint64(e.Docs), Ff: uint64(e.Occurs), Postings: e.Buf}
	}
	ref, err := d.DumpRecords(records, 0)
	if err != nil {
		return Ref{}, err
	}
	tbl.Reset()
	return ref, nil
}

// DumpRecord is one already-encoded (term, f_t, F_t, posting-bytes)
// tuple, term-sorted by the caller, ready to stream to a run file.
type DumpRecord struct {
	Term     []byte
	Ft       uint64
	Ff       uint64
	Postings []byte
}

// DumpRecords streams records out as a new run at the given pyramid
// level. Used directly by Dump for level-0 runs freshly cut from the
// accumulator, and by a pyramid collapse (spec §4.6) to write a
// same-level merge's output back out as a level+1 run.
func (d *Dumper) DumpRecords(records []DumpRecord, level int) (Ref, error) {
	fileno := fdset.FileNo(d.nextFileno)
	d.nextFileno++

	f, err := d.fds.Create(d.typ, fileno)
	if err != nil {
		return Ref{}, zerrors.New(zerrors.KindIOUnavailable, "run.dump.create", err)
	}
	bw := bufio.NewWriterSize(f, d.bufSize)

	for _, rec := range records {
		if err := writeRecord(bw, rec); err != nil {
			d.fds.Unpin(d.typ, fileno, f)
			return Ref{}, err
		}
	}
	if err := bw.Flush(); err != nil {
		d.fds.Unpin(d.typ, fileno, f)
		return Ref{}, zerrors.New(zerrors.KindIOUnavailable, "run.dump.flush", err)
	}
	end, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		d.fds.Unpin(d.typ, fileno, f)
		return Ref{}, zerrors.New(zerrors.KindIOUnavailable, "run.dump.tell", err)
	}
	d.fds.Unpin(d.typ, fileno, f)

	return Ref{Fileno: uint32(fileno), Start: 0, End: end, Level: level}, nil
}

func writeRecord(w io.Writer, rec DumpRecord) error {
	buf := make([]byte, 0, 16+len(rec.Term)+len(rec.Postings))
	buf = codec.AppendVarbyte(buf, uint64(len(rec.Term)))
	buf = append(buf, rec.Term...)
	buf = codec.AppendVarbyte(buf, rec.Ft)
	buf = codec.AppendVarbyte(buf, rec.Ff)
	buf = codec.AppendVarbyte(buf, uint64(len(rec.Postings)))
	buf = append(buf, rec.Postings...)
	if _, err := w.Write(buf); err != nil {
		return zerrors.New(zerrors.KindIOUnavailable, "run.dump.write", err)
	}
	return nil
}

// Record is one (term, f_t_run, F_t_run, posting-bytes) item read
// back from a run file.
type Record struct {
	Term     []byte
	Ft       uint64
	Ff       uint64
	Postings []byte
}

// Reader streams Records back out of a run in the order they were
// written (term lex order).
type Reader struct {
	fds *fdset.FdSet
	typ fdset.TypeNo
	ref Ref
	f   *os.File
	br  *bufio.Reader
	pos int64
}

// OpenReader pins ref's file and positions a buffered reader at its
// start offset.
func OpenReader(fds *fdset.FdSet, typ fdset.TypeNo, ref Ref) (*Reader, error) {
	f, err := fds.Pin(typ, fdset.FileNo(ref.Fileno), ref.Start, io.SeekStart)
	if err != nil {
		return nil, zerrors.New(zerrors.KindIOUnavailable, "run.reader.open", err)
	}
	return &Reader{fds: fds, typ: typ, ref: ref, f: f, br: bufio.NewReader(io.LimitReader(f, ref.End-ref.Start)), pos: ref.Start}, nil
}

// Next returns the next Record, or io.EOF once ref's bounds are
// exhausted.
func (r *Reader) Next() (Record, error) {
	termLen, err := readVarbyte(r.br)
	if err != nil {
		return Record{}, err
	}
	term := make([]byte, termLen)
	if _, err := io.ReadFull(r.br, term); err != nil {
		return Record{}, zerrors.New(zerrors.KindIOUnavailable, "run.reader.term", err)
	}
	ft, err := readVarbyte(r.br)
	if err != nil {
		return Record{}, zerrors.New(zerrors.KindIOUnavailable, "run.reader.ft", err)
	}
	ff, err := readVarbyte(r.br)
	if err != nil {
		return Record{}, zerrors.New(zerrors.KindIOUnavailable, "run.reader.ff", err)
	}
	postLen, err := readVarbyte(r.br)
	if err != nil {
		return Record{}, zerrors.New(zerrors.KindIOUnavailable, "run.reader.postlen", err)
	}
	postings := make([]byte, postLen)
	if _, err := io.ReadFull(r.br, postings); err != nil {
		return Record{}, zerrors.New(zerrors.KindIOUnavailable, "run.reader.postings", err)
	}
	return Record{Term: term, Ft: ft, Ff: ff, Postings: postings}, nil
}

// Close unpins the reader's file.
func (r *Reader) Close() {
	r.fds.Unpin(r.typ, fdset.FileNo(r.ref.Fileno), r.f)
}

// readVarbyte mirrors codec.DecodeVarbyte's big-endian, terminal-bit-
// on-last-byte scheme, but reads one byte at a time from a streaming
// reader instead of a fully-buffered slice.
func readVarbyte(br *bufio.Reader) (uint64, error) {
	var v uint64
	first := true
	for {
		b, err := br.ReadByte()
		if err != nil {
			if err == io.EOF && first {
				return 0, io.EOF
			}
			return 0, zerrors.New(zerrors.KindIOUnavailable, "run.reader.varbyte", err)
		}
		first = false
		v = (v << 7) | uint64(b&0x7f)
		if b&0x80 != 0 {
			return v, nil
		}
	}
}

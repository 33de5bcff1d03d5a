// Package docmap implements the per-docno metadata sequence of spec
// §3: for each internal docno it records the external identifier, the
// document's repository pointer, its length in terms, a precomputed
// weight, its top-level MIME type, and an optional auxiliary blob.
//
// Storage mirrors internal/repository's append-only shape: a fixed-
// width index record per docno (so docno -> pointer is O(1) direct
// addressing, no separate lookup structure) pointing into a variable-
// length blob stream holding the encoded Entry. Which columns stay
// resident in memory after a read is governed by CachePolicy, exactly
// the {none, external-id, weight, all} policy spec §3 names.
package docmap

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/standardbeagle/zindex/internal/fdset"
	"github.com/standardbeagle/zindex/internal/repository"
	"github.com/standardbeagle/zindex/internal/zerrors"
)

// CachePolicy controls which Entry columns stay memory-resident.
type CachePolicy int

const (
	CacheNone CachePolicy = iota
	CacheExternalID
	CacheWeight
	CacheAll
)

// ParsePolicy maps the CLI/config spelling to a CachePolicy.
func ParsePolicy(s string) (CachePolicy, error) {
	switch s {
	case "none":
		return CacheNone, nil
	case "external-id":
		return CacheExternalID, nil
	case "weight":
		return CacheWeight, nil
	case "all":
		return CacheAll, nil
	default:
		return 0, zerrors.New(zerrors.KindInvalidArgument, "docmap.parse_policy", fmt.Errorf("unknown cache policy %q", s))
	}
}

// Entry is one document's metadata row.
type Entry struct {
	ExternalID string
	Repo       repository.Pointer
	Length     uint32 // document length in terms
	Weight     float64
	MIME       string
	Aux        []byte
}

const idxRecordSize = 4 + 8 + 8 // fileno, offset, length

// Docmap is the docno-indexed metadata store.
type Docmap struct {
	fds     *fdset.FdSet
	idxType fdset.TypeNo
	data    *repository.Repository
	policy  CachePolicy
	count   int

	cachedExternalID []string
	cachedWeight     []float64
	cachedAll        []Entry
}

// New creates a docmap backed by two fdset types: idxType for the
// fixed-width docno->pointer index (kept in a single unbounded file,
// since index records are small and direct-addressed by docno) and
// dataType for the variable-length Entry blobs (bounded by
// maxDataFileBytes, like any other index file).
func New(fds *fdset.FdSet, idxType, dataType fdset.TypeNo, maxDataFileBytes int64, policy CachePolicy) *Docmap {
	dm := &Docmap{
		fds:     fds,
		idxType: idxType,
		data:    repository.New(fds, dataType, maxDataFileBytes),
		policy:  policy,
	}
	if policy == CacheExternalID || policy == CacheAll {
		dm.cachedExternalID = []string{}
	}
	if policy == CacheWeight || policy == CacheAll {
		dm.cachedWeight = []float64{}
	}
	if policy == CacheAll {
		dm.cachedAll = []Entry{}
	}
	return dm
}

// Size returns the number of docnos recorded so far.
func (dm *Docmap) Size() int { return dm.count }

// Append records entry under the next docno and returns it.
func (dm *Docmap) Append(entry Entry) (int, error) {
	blob := encodeEntry(entry)
	ptr, err := dm.data.Append(blob)
	if err != nil {
		return 0, err
	}
	if err := dm.writeIndexRecord(dm.count, ptr); err != nil {
		return 0, err
	}
	docno := dm.count
	dm.count++

	if dm.cachedExternalID != nil {
		dm.cachedExternalID = append(dm.cachedExternalID, entry.ExternalID)
	}
	if dm.cachedWeight != nil {
		dm.cachedWeight = append(dm.cachedWeight, entry.Weight)
	}
	if dm.cachedAll != nil {
		dm.cachedAll = append(dm.cachedAll, entry)
	}
	return docno, nil
}

// Get returns the full entry for docno.
func (dm *Docmap) Get(docno int) (Entry, error) {
	if dm.cachedAll != nil {
		if docno < 0 || docno >= len(dm.cachedAll) {
			return Entry{}, zerrors.New(zerrors.KindNotFound, "docmap.get", fmt.Errorf("docno %d out of range", docno))
		}
		return dm.cachedAll[docno], nil
	}
	return dm.readEntry(docno)
}

// ExternalID returns just the external identifier, serving it from
// cache when CachePolicy permits instead of decoding the full entry.
func (dm *Docmap) ExternalID(docno int) (string, error) {
	if dm.cachedExternalID != nil {
		if docno < 0 || docno >= len(dm.cachedExternalID) {
			return "", zerrors.New(zerrors.KindNotFound, "docmap.external_id", fmt.Errorf("docno %d out of range", docno))
		}
		return dm.cachedExternalID[docno], nil
	}
	e, err := dm.readEntry(docno)
	if err != nil {
		return "", err
	}
	return e.ExternalID, nil
}

// Weight returns just the normalization weight.
func (dm *Docmap) Weight(docno int) (float64, error) {
	if dm.cachedWeight != nil {
		if docno < 0 || docno >= len(dm.cachedWeight) {
			return 0, zerrors.New(zerrors.KindNotFound, "docmap.weight", fmt.Errorf("docno %d out of range", docno))
		}
		return dm.cachedWeight[docno], nil
	}
	e, err := dm.readEntry(docno)
	if err != nil {
		return 0, err
	}
	return e.Weight, nil
}

// Length returns just the document's term count. Not governed by a
// dedicated CachePolicy column (spec §3 only names
// {external-id, weight, all, none}): under CacheAll it's served from
// the resident entry cache, otherwise it costs a full entry read like
// any other column CachePolicy doesn't single out.
func (dm *Docmap) Length(docno int) (uint32, error) {
	if dm.cachedAll != nil {
		if docno < 0 || docno >= len(dm.cachedAll) {
			return 0, zerrors.New(zerrors.KindNotFound, "docmap.length", fmt.Errorf("docno %d out of range", docno))
		}
		return dm.cachedAll[docno].Length, nil
	}
	e, err := dm.readEntry(docno)
	if err != nil {
		return 0, err
	}
	return e.Length, nil
}

func (dm *Docmap) readEntry(docno int) (Entry, error) {
	ptr, err := dm.readIndexRecord(docno)
	if err != nil {
		return Entry{}, err
	}
	blob, err := dm.data.Retrieve(ptr)
	if err != nil {
		return Entry{}, err
	}
	return decodeEntry(blob)
}

func (dm *Docmap) writeIndexRecord(docno int, ptr repository.Pointer) error {
	buf := make([]byte, idxRecordSize)
	binary.BigEndian.PutUint32(buf[0:4], ptr.Fileno)
	binary.BigEndian.PutUint64(buf[4:12], uint64(ptr.Offset))
	binary.BigEndian.PutUint64(buf[12:20], uint64(ptr.Length))

	if docno == 0 {
		created, err := dm.fds.Create(dm.idxType, 0)
		if err != nil {
			return err
		}
		dm.fds.Unpin(dm.idxType, 0, created)
	}
	f, err := dm.fds.Pin(dm.idxType, 0, int64(docno)*idxRecordSize, io.SeekStart)
	if err != nil {
		return err
	}
	_, werr := f.Write(buf)
	dm.fds.Unpin(dm.idxType, 0, f)
	if werr != nil {
		return zerrors.New(zerrors.KindIOUnavailable, "docmap.write_index", werr)
	}
	return nil
}

func (dm *Docmap) readIndexRecord(docno int) (repository.Pointer, error) {
	if docno < 0 || docno >= dm.count {
		return repository.Pointer{}, zerrors.New(zerrors.KindNotFound, "docmap.read_index", fmt.Errorf("docno %d out of range", docno))
	}
	f, err := dm.fds.Pin(dm.idxType, 0, int64(docno)*idxRecordSize, io.SeekStart)
	if err != nil {
		return repository.Pointer{}, err
	}
	buf := make([]byte, idxRecordSize)
	_, rerr := io.ReadFull(f, buf)
	dm.fds.Unpin(dm.idxType, 0, f)
	if rerr != nil {
		return repository.Pointer{}, zerrors.New(zerrors.KindIOUnavailable, "docmap.read_index", rerr)
	}
	return repository.Pointer{
		Fileno: binary.BigEndian.Uint32(buf[0:4]),
		Offset: int64(binary.BigEndian.Uint64(buf[4:12])),
		Length: int64(binary.BigEndian.Uint64(buf[12:20])),
	}, nil
}

// Reopen restores a docmap with count existing entries, resuming the
// backing data repository after (dataFileno, dataOffset), and warms
// whichever caches the policy requires by replaying every entry once.
func (dm *Docmap) Reopen(count int, dataFileno fdset.FileNo, dataOffset int64) error {
	dm.count = count
	dm.data.Reopen(dataFileno, dataOffset)
	if dm.policy == CacheNone {
		return nil
	}
	for docno := 0; docno < count; docno++ {
		e, err := dm.readEntry(docno)
		if err != nil {
			return err
		}
		if dm.cachedExternalID != nil {
			dm.cachedExternalID = append(dm.cachedExternalID, e.ExternalID)
		}
		if dm.cachedWeight != nil {
			dm.cachedWeight = append(dm.cachedWeight, e.Weight)
		}
		if dm.cachedAll != nil {
			dm.cachedAll = append(dm.cachedAll, e)
		}
	}
	return nil
}

// DataPosition reports the backing repository's current allocation
// position, for persisting into the parameters file.
func (dm *Docmap) DataPosition() (fdset.FileNo, int64) {
	return dm.data.CurrentPosition()
}

func encodeEntry(e Entry) []byte {
	buf := make([]byte, 0, 64+len(e.ExternalID)+len(e.MIME)+len(e.Aux))
	buf = appendLenPrefixed(buf, []byte(e.ExternalID))
	buf = appendUint32(buf, e.Repo.Fileno)
	buf = appendInt64(buf, e.Repo.Offset)
	buf = appendInt64(buf, e.Repo.Length)
	buf = appendUint32(buf, e.Length)
	buf = appendUint64(buf, math.Float64bits(e.Weight))
	buf = appendLenPrefixed(buf, []byte(e.MIME))
	buf = appendLenPrefixed(buf, e.Aux)
	return buf
}

func decodeEntry(buf []byte) (Entry, error) {
	var e Entry
	pos := 0

	extID, n, err := readLenPrefixed(buf[pos:])
	if err != nil {
		return e, fmt.Errorf("docmap: decode external id: %w", err)
	}
	pos += n
	e.ExternalID = string(extID)

	if pos+20 > len(buf) {
		return e, fmt.Errorf("docmap: truncated repository pointer")
	}
	e.Repo.Fileno = binary.BigEndian.Uint32(buf[pos : pos+4])
	pos += 4
	e.Repo.Offset = int64(binary.BigEndian.Uint64(buf[pos : pos+8]))
	pos += 8
	e.Repo.Length = int64(binary.BigEndian.Uint64(buf[pos : pos+8]))
	pos += 8

	if pos+4 > len(buf) {
		return e, fmt.Errorf("docmap: truncated length")
	}
	e.Length = binary.BigEndian.Uint32(buf[pos : pos+4])
	pos += 4

	if pos+8 > len(buf) {
		return e, fmt.Errorf("docmap: truncated weight")
	}
	e.Weight = math.Float64frombits(binary.BigEndian.Uint64(buf[pos : pos+8]))
	pos += 8

	mime, n, err := readLenPrefixed(buf[pos:])
	if err != nil {
		return e, fmt.Errorf("docmap: decode mime: %w", err)
	}
	pos += n
	e.MIME = string(mime)

	aux, _, err := readLenPrefixed(buf[pos:])
	if err != nil {
		return e, fmt.Errorf("docmap: decode aux: %w", err)
	}
	e.Aux = aux

	return e, nil
}

func appendUint32(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

func appendUint64(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

func appendInt64(dst []byte, v int64) []byte { return appendUint64(dst, uint64(v)) }

func appendLenPrefixed(dst, payload []byte) []byte {
	dst = appendUint32(dst, uint32(len(payload)))
	return append(dst, payload...)
}

func readLenPrefixed(buf []byte) ([]byte, int, error) {
	if len(buf) < 4 {
		return nil, 0, fmt.Errorf("truncated length prefix")
	}
	n := binary.BigEndian.Uint32(buf[:4])
	if uint32(len(buf)-4) < n {
		return nil, 0, fmt.Errorf("truncated payload: want %d have %d", n, len(buf)-4)
	}
	return append([]byte(nil), buf[4:4+n]...), 4 + int(n), nil
}

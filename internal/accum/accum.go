// Package accum implements the build-side posting accumulator of
// spec §4.5: an in-memory hashtable mapping term -> { docs, occurs,
// last_doc, buf }, where buf accumulates varbyte-encoded docno-gap +
// tf runs. The table is bounded by a byte budget and, independently,
// by the number of distinct documents seen in the current batch
// (accdoc); internal/run dumps and clears it when either bound is hit.
package accum

import (
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/zindex/internal/codec"
)

// entryOverhead approximates the hashtable-slot and struct bookkeeping
// cost per term, on top of the term bytes and buffer bytes actually
// held. It need not be exact: it only has to keep the budget check
// from drifting wildly optimistic under many short terms.
const entryOverhead = 48

// Entry is one term's accumulated posting state.
type Entry struct {
	Term    []byte
	Docs    uint32
	Occurs  uint32
	LastDoc uint32
	Buf     []byte

	tailOffset int // offset in Buf where the most recent tf varbyte starts
	curTF      uint32
}

type bucketSlot struct {
	hash uint64
	e    *Entry
}

// Table is the in-memory accumulator for one build batch.
type Table struct {
	buckets   map[uint64][]*bucketSlot
	entries   []*Entry
	memBudget int64
	memUsed   int64
	accdoc    int
	docsSeen  map[uint32]struct{}
}

// New creates a Table bounded by memBudget bytes (0 means unbounded)
// and accdoc distinct documents per batch (0 means unbounded).
func New(memBudget int64, accdoc int) *Table {
	return &Table{
		buckets:   make(map[uint64][]*bucketSlot),
		memBudget: memBudget,
		accdoc:    accdoc,
		docsSeen:  make(map[uint32]struct{}),
	}
}

// Add records one posting (term, docno, tf=1), per spec §4.5: if the
// term's last_doc equals docno, the tail tf is incremented in place;
// otherwise a new (gap, tf=1) run is appended and last_doc advances.
func (t *Table) Add(term []byte, docno uint32) {
	h := xxhash.Sum64(term)
	e := t.lookup(h, term)
	if e == nil {
		e = &Entry{Term: append([]byte(nil), term...)}
		t.buckets[h] = append(t.buckets[h], &bucketSlot{hash: h, e: e})
		t.entries = append(t.entries, e)
		t.memUsed += int64(entryOverhead + len(e.Term))
	}

	if _, seen := t.docsSeen[docno]; !seen {
		t.docsSeen[docno] = struct{}{}
	}

	switch {
	case e.Docs == 0:
		before := len(e.Buf)
		e.Buf = codec.AppendVarbyte(e.Buf, uint64(docno))
		e.tailOffset = len(e.Buf)
		e.Buf = codec.AppendVarbyte(e.Buf, 1)
		e.curTF = 1
		e.Docs = 1
		e.LastDoc = docno
		t.memUsed += int64(len(e.Buf) - before)
	case e.LastDoc == docno:
		before := len(e.Buf)
		e.curTF++
		e.Buf = e.Buf[:e.tailOffset]
		e.Buf = codec.AppendVarbyte(e.Buf, uint64(e.curTF))
		t.memUsed += int64(len(e.Buf) - before)
	default:
		before := len(e.Buf)
		e.Buf = codec.AppendVarbyte(e.Buf, uint64(docno-e.LastDoc))
		e.tailOffset = len(e.Buf)
		e.Buf = codec.AppendVarbyte(e.Buf, 1)
		e.curTF = 1
		e.Docs++
		e.LastDoc = docno
		t.memUsed += int64(len(e.Buf) - before)
	}

	e.Occurs++
}

func (t *Table) lookup(h uint64, term []byte) *Entry {
	for _, slot := range t.buckets[h] {
		if string(slot.e.Term) == string(term) {
			return slot.e
		}
	}
	return nil
}

// MemoryUsed returns the accumulator's current approximate byte cost.
func (t *Table) MemoryUsed() int64 { return t.memUsed }

// DocsInBatch returns the number of distinct docnos seen since the
// last Reset.
func (t *Table) DocsInBatch() int { return len(t.docsSeen) }

// ShouldDump reports whether either bound configured at New has been
// exceeded and the accumulator should be flushed to a run.
func (t *Table) ShouldDump() bool {
	if t.memBudget > 0 && t.memUsed > t.memBudget {
		return true
	}
	if t.accdoc > 0 && len(t.docsSeen) > t.accdoc {
		return true
	}
	return false
}

// Entries returns the accumulator's entries sorted by term bytes, the
// order spec §4.6's run dumper streams them out in.
func (t *Table) Entries() []*Entry {
	out := make([]*Entry, len(t.entries))
	copy(out, t.entries)
	sort.Slice(out, func(i, j int) bool {
		return string(out[i].Term) < string(out[j].Term)
	})
	return out
}

// Len returns the number of distinct terms currently held.
func (t *Table) Len() int { return len(t.entries) }

// Reset clears the accumulator for the next batch.
func (t *Table) Reset() {
	t.buckets = make(map[uint64][]*bucketSlot)
	t.entries = nil
	t.memUsed = 0
	t.docsSeen = make(map[uint32]struct{})
}

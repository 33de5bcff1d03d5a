package ranker

import "sort"

// searchSamplesMin mirrors the reference engine's SEARCH_SAMPLES_MIN:
// once the table holds more than capacity*(1-searchSamplesMin)
// entries, new low-score postings start getting skipped before they
// ever allocate a slot (spec §4.10's dynamic thresholding).
const searchSamplesMin = 0.1

// Table is the bounded, per-query accumulator of spec §4.10: a
// docno -> partial-score map capped at Capacity, with a threshold that
// rises as the table fills so cheap, clearly-losing postings stop
// costing an allocation. It is thread-local to one query: spec §5
// requires the accumulator table never be shared.
type Table struct {
	capacity  int
	scores    map[uint32]float64
	threshold float64
}

// NewTable creates a Table bounded at capacity entries. capacity <= 0
// means unbounded (no dynamic pruning ever kicks in).
func NewTable(capacity int) *Table {
	return &Table{capacity: capacity, scores: make(map[uint32]float64)}
}

// Add folds delta into docno's running score. An existing entry is
// always updated regardless of the pruning threshold — thresholding
// only gates *new* entries, per spec §4.10.
func (t *Table) Add(docno uint32, delta float64) {
	if cur, ok := t.scores[docno]; ok {
		t.scores[docno] = cur + delta
		return
	}
	if t.capacity > 0 && t.threshold > 0 && delta < t.threshold {
		return
	}
	t.scores[docno] = delta
	if t.capacity <= 0 {
		return
	}
	if len(t.scores) > t.capacity {
		t.evictLowest()
	} else if float64(len(t.scores)) > float64(t.capacity)*(1-searchSamplesMin) {
		t.raiseThreshold()
	}
}

// Len reports how many documents currently hold a score.
func (t *Table) Len() int { return len(t.scores) }

// evictLowest drops the single lowest-scoring entry, restoring
// size <= capacity after an unconditional Add pushed it over.
func (t *Table) evictLowest() {
	var worstDoc uint32
	worst := 0.0
	first := true
	for d, s := range t.scores {
		if first || s < worst {
			worstDoc, worst, first = d, s, false
		}
	}
	if !first {
		delete(t.scores, worstDoc)
	}
}

// raiseThreshold recomputes the pruning floor from the current
// score distribution: the threshold becomes the score at the
// capacity-th rank, so only postings that would displace an existing
// entry are worth allocating.
func (t *Table) raiseThreshold() {
	vals := make([]float64, 0, len(t.scores))
	for _, s := range t.scores {
		vals = append(vals, s)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(vals)))
	if t.capacity > 0 && t.capacity <= len(vals) {
		t.threshold = vals[t.capacity-1]
	}
}

// Entries returns every (docno, score) pair currently held, in no
// particular order.
func (t *Table) Entries() map[uint32]float64 {
	return t.scores
}

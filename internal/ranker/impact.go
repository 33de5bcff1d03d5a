package ranker

import (
	"sort"

	"github.com/standardbeagle/zindex/internal/codec"
	"github.com/standardbeagle/zindex/internal/config"
	"github.com/standardbeagle/zindex/internal/planner"
)

// rankImpactOrdered implements the impact-ordered traversal of spec
// §4.10: process one conjunct's impact runs from highest impact
// downward, folding impact*fqt into the accumulator, and stop once no
// remaining run for this conjunct could change which documents
// qualify for the top of the table — i.e. once the conjunct's own
// maximum remaining contribution can no longer lift an unseen document
// past the weakest entry the table is willing to keep.
//
// Scored this way a single conjunct's traversal is monotonically
// non-increasing in per-posting contribution, which is what makes the
// early-exit bound sound: any run not yet visited contributes at most
// its own impact value, so once that upper bound can't unseat the
// table's current floor, stopping changes no final rank.
func rankImpactOrdered(c *planner.Conjunct, src VectorSource, acc *Table, opts config.SearchOptions) error {
	h := c.Headers[0]
	buf, err := fetchPostings(src, h)
	if err != nil {
		return err
	}
	runs, err := codec.DecodeImpact(buf)
	if err != nil {
		return err
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Impact > runs[j].Impact })

	k := opts.ResultStart + opts.ResultCount
	if k <= 0 {
		k = opts.AccumulatorLimit
	}

	for _, run := range runs {
		bound := float64(run.Impact) * float64(c.FQT)
		if acc.Len() >= k && bound <= acc.kthFloor(k) {
			break
		}
		for _, docno := range run.Docnos {
			acc.Add(docno, bound)
		}
	}
	return nil
}

// kthFloor returns the score of the k-th best entry currently held
// (0 if fewer than k entries exist yet), the same "would this even
// displace anything" check accumulator pruning already performs on
// insert.
func (t *Table) kthFloor(k int) float64 {
	if k <= 0 || len(t.scores) < k {
		return 0
	}
	vals := make([]float64, 0, len(t.scores))
	for _, s := range t.scores {
		vals = append(vals, s)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(vals)))
	return vals[k-1]
}

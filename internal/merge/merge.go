// Package merge implements the build pipeline's external merger
// (spec §4.7): a classic k-way merge of sorted runs on term order,
// docno rebasing across batches, and — when impact-ordered mode is
// requested — generation of an impact-ordered list alongside the
// docwp list for each term.
package merge

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/zindex/internal/codec"
	"github.com/standardbeagle/zindex/internal/run"
)

// Source is one run to fold into the merge, together with the number
// of documents appended to the docmap before this run's batch began.
// Runs encode postings with last_doc starting at 0 within their own
// batch; DocnoBase shifts every decoded docno back into the shared,
// collection-wide docno space.
type Source struct {
	Reader    *run.Reader
	DocnoBase uint32
}

// OpenSources pins every ref's run file concurrently and returns the
// resulting Sources in the same order as refs/bases.
func OpenSources(ctx context.Context, open func(run.Ref) (*run.Reader, error), refs []run.Ref, bases []uint32) ([]Source, error) {
	if len(refs) != len(bases) {
		return nil, fmt.Errorf("merge: refs and bases length mismatch (%d vs %d)", len(refs), len(bases))
	}
	sources := make([]Source, len(refs))
	g, _ := errgroup.WithContext(ctx)
	for i := range refs {
		i := i
		g.Go(func() error {
			r, err := open(refs[i])
			if err != nil {
				return err
			}
			sources[i] = Source{Reader: r, DocnoBase: bases[i]}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sources, nil
}

// MergedTerm is one term's fully merged posting output.
type MergedTerm struct {
	Term     []byte
	Ft       uint64 // document frequency across all merged runs
	Ff       uint64 // collection frequency (sum of term frequencies)
	Postings []byte // docwp-encoded, globally docno-ordered
}

type heapItem struct {
	term   []byte
	record run.Record
	srcIdx int
}

type termHeap []*heapItem

func (h termHeap) Len() int { return len(h) }
func (h termHeap) Less(i, j int) bool {
	ti, tj := string(h[i].term), string(h[j].term)
	if ti != tj {
		return ti < tj
	}
	return h[i].srcIdx < h[j].srcIdx
}
func (h termHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *termHeap) Push(x interface{}) { *h = append(*h, x.(*heapItem)) }
func (h *termHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Merge performs the k-way merge across sources and returns every
// term in lex order with its postings rebased into global docno
// space and concatenated in ascending docno order.
func Merge(sources []Source) ([]MergedTerm, error) {
	h := &termHeap{}
	heap.Init(h)
	for i := range sources {
		if err := pushNext(h, sources, i); err != nil {
			return nil, err
		}
	}

	var out []MergedTerm
	for h.Len() > 0 {
		term := append([]byte(nil), (*h)[0].term...)
		var postings []codec.Posting
		var ft, ff uint64

		for h.Len() > 0 && string((*h)[0].term) == string(term) {
			item := heap.Pop(h).(*heapItem)
			decoded, err := codec.DecodeDocwp(item.record.Postings)
			if err != nil {
				return nil, fmt.Errorf("merge: decode postings for %q: %w", term, err)
			}
			base := sources[item.srcIdx].DocnoBase
			for _, p := range decoded {
				postings = append(postings, codec.Posting{Docno: p.Docno + base, TF: p.TF})
			}
			ft += item.record.Ft
			ff += item.record.Ff

			if err := pushNext(h, sources, item.srcIdx); err != nil {
				return nil, err
			}
		}

		sort.Slice(postings, func(i, j int) bool { return postings[i].Docno < postings[j].Docno })
		encoded, err := codec.EncodeDocwp(postings)
		if err != nil {
			return nil, fmt.Errorf("merge: encode merged postings for %q: %w", term, err)
		}
		out = append(out, MergedTerm{Term: term, Ft: ft, Ff: ff, Postings: encoded})
	}
	return out, nil
}

func pushNext(h *termHeap, sources []Source, srcIdx int) error {
	rec, err := sources[srcIdx].Reader.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	heap.Push(h, &heapItem{term: rec.Term, record: rec, srcIdx: srcIdx})
	return nil
}

// QuantizeImpact maps a raw term frequency to a small positive integer
// impact bucket via log2 scaling, the "log-scale bucketing" spec §4.7
// names as the configured default.
func QuantizeImpact(tf uint32) uint32 {
	if tf == 0 {
		return 1
	}
	return uint32(math.Log2(float64(tf))) + 1
}

// ImpactFromDocwp derives an impact-ordered list from a docwp posting
// list: quantize each tf, group by impact, sort groups impact desc and
// docnos asc within a group.
func ImpactFromDocwp(postings []codec.Posting, quantize func(tf uint32) uint32) []codec.ImpactRun {
	if quantize == nil {
		quantize = QuantizeImpact
	}
	groups := make(map[uint32][]uint32)
	for _, p := range postings {
		impact := quantize(p.TF)
		groups[impact] = append(groups[impact], p.Docno)
	}

	impacts := make([]uint32, 0, len(groups))
	for impact := range groups {
		impacts = append(impacts, impact)
	}
	sort.Slice(impacts, func(i, j int) bool { return impacts[i] > impacts[j] })

	runs := make([]codec.ImpactRun, 0, len(impacts))
	for _, impact := range impacts {
		docnos := groups[impact]
		sort.Slice(docnos, func(i, j int) bool { return docnos[i] < docnos[j] })
		runs = append(runs, codec.ImpactRun{Impact: impact, Docnos: docnos})
	}
	return runs
}

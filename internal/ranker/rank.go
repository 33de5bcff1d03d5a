package ranker

import (
	"sort"

	"github.com/standardbeagle/zindex/internal/codec"
	"github.com/standardbeagle/zindex/internal/config"
	"github.com/standardbeagle/zindex/internal/planner"
)

// VectorSource resolves a vector header to its raw posting bytes.
// Inline headers are handled without ever touching it; vector-file
// headers read through the fdset-backed implementation internal/index
// supplies, one pinned fd per call, matching spec §5's "copy the
// payload out, then release" discipline for anything backed by a
// shared lock.
type VectorSource interface {
	Read(h codec.VectorHeader) ([]byte, error)
}

// DocInfo supplies the per-document metadata similarities need.
type DocInfo interface {
	Length(docno uint32) (uint32, error)
	Weight(docno uint32) (float64, error)
}

// Result is one ranked document, spec §4.10's output row before the
// external-id/title/summary enrichment cmd/zindex adds at the CLI
// boundary.
type Result struct {
	Docno uint32
	Score float64
}

// Results is the outcome of one Rank call: the requested page of
// results plus an estimate of how many documents scored at all.
type Results struct {
	Page          []Result
	EstimatedTotal int
}

func fetchPostings(src VectorSource, h codec.VectorHeader) ([]byte, error) {
	if h.Location == codec.LocationInline {
		return h.Inline, nil
	}
	return src.Read(h)
}

// resolvedPosting is a (docno, payload) pair where payload means "tf"
// for a docwp list and "impact value" for an impact list — the two
// share a shape (uint32 scalar per docno) even though their semantics
// differ, which lets phrase co-occurrence and exclusion handling stay
// type-agnostic.
type resolvedPosting struct {
	Docno   uint32
	Payload uint32
}

func decodeResolved(h codec.VectorHeader, buf []byte) ([]resolvedPosting, error) {
	switch h.Type {
	case codec.ListTypeImpact:
		runs, err := codec.DecodeImpact(buf)
		if err != nil {
			return nil, err
		}
		var out []resolvedPosting
		for _, r := range runs {
			for _, d := range r.Docnos {
				out = append(out, resolvedPosting{Docno: d, Payload: r.Impact})
			}
		}
		return out, nil
	default:
		postings, err := codec.DecodeDocwp(buf)
		if err != nil {
			return nil, err
		}
		out := make([]resolvedPosting, len(postings))
		for i, p := range postings {
			out[i] = resolvedPosting{Docno: p.Docno, Payload: p.TF}
		}
		return out, nil
	}
}

// Rank evaluates plan against the similarity named in opts.Metric and
// returns the requested page of results, sorted by score descending
// then docno ascending (spec §4.10's tie-break).
//
// config.MetricAnhImpact additionally drives impact-ordered traversal
// with early termination (rankImpactOrdered) instead of the plain
// document-at-a-time pass every other metric uses; both paths are
// required to agree on final ranks (spec §8 scenario B), since early
// termination only changes how much work is done, never the answer.
func Rank(plan *planner.Plan, src VectorSource, docs DocInfo, coll Collection, opts config.SearchOptions) (Results, error) {
	acc := NewTable(opts.AccumulatorLimit)
	excluded := make(map[uint32]struct{})
	impactMode := opts.Metric == config.MetricAnhImpact

	for _, c := range plan.Conjuncts {
		if !c.Alive() {
			continue
		}
		switch c.Kind {
		case planner.ConjunctWord:
			if c.FQT < 0 {
				if err := collectExcluded(c, src, excluded); err != nil {
					return Results{}, err
				}
				continue
			}
			if impactMode {
				if err := rankImpactOrdered(c, src, acc, opts); err != nil {
					return Results{}, err
				}
				continue
			}
			if err := scoreWord(c, src, docs, coll, opts, acc); err != nil {
				return Results{}, err
			}
		case planner.ConjunctPhrase, planner.ConjunctAnd:
			// AND(term1,...,termN) requires every member to occur in a
			// document, same as a phrase's co-occurrence check; the
			// posting codec carries no position data, so AND's "all
			// present" requirement and a phrase's approximated
			// adjacency check are the same intersection here.
			if err := scorePhrase(c, src, docs, coll, opts, acc); err != nil {
				return Results{}, err
			}
		}
	}

	return window(acc, excluded, opts), nil
}

func collectExcluded(c *planner.Conjunct, src VectorSource, excluded map[uint32]struct{}) error {
	h := c.Headers[0]
	buf, err := fetchPostings(src, h)
	if err != nil {
		return err
	}
	resolved, err := decodeResolved(h, buf)
	if err != nil {
		return err
	}
	for _, p := range resolved {
		excluded[p.Docno] = struct{}{}
	}
	return nil
}

func scoreWord(c *planner.Conjunct, src VectorSource, docs DocInfo, coll Collection, opts config.SearchOptions, acc *Table) error {
	h := c.Headers[0]
	buf, err := fetchPostings(src, h)
	if err != nil {
		return err
	}
	resolved, err := decodeResolved(h, buf)
	if err != nil {
		return err
	}

	for _, p := range resolved {
		delta, err := contribution(h, p, c.FQT, docs, coll, opts)
		if err != nil {
			return err
		}
		acc.Add(p.Docno, delta)
	}
	return nil
}

func contribution(h codec.VectorHeader, p resolvedPosting, fqt int, docs DocInfo, coll Collection, opts config.SearchOptions) (float64, error) {
	if h.Type == codec.ListTypeImpact {
		return float64(p.Payload) * float64(fqt), nil
	}
	dl, err := docs.Length(p.Docno)
	if err != nil {
		return 0, err
	}
	weight, err := docs.Weight(p.Docno)
	if err != nil {
		return 0, err
	}
	return termScore(opts.Metric, p.Payload, dl, h.Ft, h.Ff, fqt, weight, coll, opts), nil
}

// scorePhrase approximates phrase evaluation as term co-occurrence:
// spec §4.2's posting codec carries no in-document position
// information (only docno-gap + tf, or impact + run-length), so exact
// adjacency cannot be verified from vocabulary postings alone. A
// document scores only if every phrase term occurs in it; the score
// is the sum of each term's contribution. See DESIGN.md for why this
// is the documented resolution of that tension rather than a silent
// approximation.
func scorePhrase(c *planner.Conjunct, src VectorSource, docs DocInfo, coll Collection, opts config.SearchOptions, acc *Table) error {
	if len(c.Headers) == 0 {
		return nil
	}
	perTerm := make([]map[uint32]resolvedPosting, len(c.Headers))
	for i, h := range c.Headers {
		buf, err := fetchPostings(src, h)
		if err != nil {
			return err
		}
		resolved, err := decodeResolved(h, buf)
		if err != nil {
			return err
		}
		m := make(map[uint32]resolvedPosting, len(resolved))
		for _, p := range resolved {
			m[p.Docno] = p
		}
		perTerm[i] = m
	}

	common := perTerm[0]
	for _, m := range perTerm[1:] {
		next := make(map[uint32]resolvedPosting)
		for docno, p := range common {
			if _, ok := m[docno]; ok {
				next[docno] = p
			}
		}
		common = next
	}

	for docno := range common {
		var total float64
		for i, h := range c.Headers {
			p := perTerm[i][docno]
			delta, err := contribution(h, p, c.FQT, docs, coll, opts)
			if err != nil {
				return err
			}
			total += delta
		}
		acc.Add(docno, total)
	}
	return nil
}

func window(acc *Table, excluded map[uint32]struct{}, opts config.SearchOptions) Results {
	entries := acc.Entries()
	all := make([]Result, 0, len(entries))
	for docno, score := range entries {
		if _, ok := excluded[docno]; ok {
			continue
		}
		all = append(all, Result{Docno: docno, Score: score})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			return all[i].Score > all[j].Score
		}
		return all[i].Docno < all[j].Docno
	})

	start := opts.ResultStart
	if start < 0 {
		start = 0
	}
	count := opts.ResultCount
	if count <= 0 {
		count = len(all)
	}
	if start >= len(all) {
		return Results{Page: nil, EstimatedTotal: len(all)}
	}
	end := start + count
	if end > len(all) {
		end = len(all)
	}
	return Results{Page: all[start:end], EstimatedTotal: len(all)}
}

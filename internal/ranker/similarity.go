// Package ranker implements the query-time ranked evaluator of spec
// §4.10: several similarity measures scored either document-at-a-time
// over docwp lists or impact-ordered, accumulated into a bounded,
// dynamically-pruned accumulator table, and the `[cache:N]` repository
// retrieval shortcut.
package ranker

import (
	"math"

	"github.com/standardbeagle/zindex/internal/config"
)

// Collection carries the corpus-wide statistics every similarity
// measure is parameterized by.
type Collection struct {
	N     uint64  // total documents
	AvgDL float64 // average document length in terms
}

// termScore computes one posting's contribution to a document's score
// under opts.Metric, per the semantic definitions of spec §4.10. The
// constants in the contracts are configurable via opts; only the
// shape of each formula is pinned.
func termScore(metric config.Metric, tf uint32, dl uint32, ft uint64, ff uint64, fqt int, weight float64, coll Collection, opts config.SearchOptions) float64 {
	switch metric {
	case config.MetricCosine, config.MetricPivotedCosine:
		return cosineScore(metric, tf, weight, fqt, opts)
	case config.MetricDirichlet:
		return dirichletScore(tf, dl, ff, fqt, coll, opts)
	case config.MetricHawkapi:
		return hawkapiScore(tf, dl, ft, fqt, coll, opts)
	default: // config.MetricOkapi and unset/unknown default to BM25
		return okapiBM25(tf, dl, ft, fqt, coll, opts)
	}
}

// okapiBM25 implements spec §4.10's Okapi contract:
//
//	w_t = log((N - f_t + 0.5)/(f_t + 0.5))
//	doc_weight = ((k1+1)*tf)/(k1*(1-b+b*dl/avdl)+tf) * ((k3+1)*qtf)/(k3+qtf) * w_t
func okapiBM25(tf uint32, dl uint32, ft uint64, fqt int, coll Collection, opts config.SearchOptions) float64 {
	n := float64(coll.N)
	f := float64(ft)
	wt := math.Log((n - f + 0.5) / (f + 0.5))
	if wt < 0 {
		wt = 0 // negative idf for terms in the majority of documents contributes nothing
	}
	avdl := coll.AvgDL
	if avdl <= 0 {
		avdl = 1
	}
	k1, b, k3 := opts.K1, opts.B, opts.K3
	tff := float64(tf)
	qtf := float64(fqt)
	docTerm := ((k1 + 1) * tff) / (k1*(1-b+b*float64(dl)/avdl) + tff)
	queryTerm := ((k3 + 1) * qtf) / (k3 + qtf)
	return docTerm * queryTerm * wt
}

// cosineScore uses the docmap-precomputed per-document weight as the
// length normalizer; pivoted cosine additionally folds in opts.Pivot
// as spec §4.10 describes.
func cosineScore(metric config.Metric, tf uint32, weight float64, fqt int, opts config.SearchOptions) float64 {
	if weight == 0 {
		weight = 1
	}
	raw := float64(tf) * float64(fqt)
	if metric == config.MetricPivotedCosine {
		pivot := opts.Pivot
		if pivot <= 0 {
			pivot = 1
		}
		return raw / (pivot * weight)
	}
	return raw / weight
}

// dirichletScore implements Dirichlet-smoothed query likelihood:
// log((tf + mu*P(t|C))/(dl + mu)), summed with query multiplicity via
// the fqt factor. P(t|C) is estimated from the term's collection
// frequency ff (total occurrences across the corpus), not its document
// frequency.
func dirichletScore(tf uint32, dl uint32, ff uint64, fqt int, coll Collection, opts config.SearchOptions) float64 {
	mu := opts.Mu
	if mu <= 0 {
		mu = 2500
	}
	pc := float64(ff) / (coll.AvgDL * float64(coll.N) + 1)
	num := float64(tf) + mu*pc
	den := float64(dl) + mu
	if num <= 0 || den <= 0 {
		return 0
	}
	return float64(fqt) * math.Log(num/den)
}

// hawkapiScore is BM25 with tf rescaled by alpha and k3 fixed to
// effectively +infinity (the query-term factor then reduces to f_qt
// itself), per spec §4.10's Hawkapi contract.
func hawkapiScore(tf uint32, dl uint32, ft uint64, fqt int, coll Collection, opts config.SearchOptions) float64 {
	alpha := opts.Alpha
	if alpha <= 0 {
		alpha = 1
	}
	scaled := okapiBM25(tf, dl, ft, fqt, coll, config.SearchOptions{K1: opts.K1, B: opts.B, K3: 1e300})
	return scaled * alpha
}

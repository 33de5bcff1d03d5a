package ranker

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/zindex/internal/codec"
	"github.com/standardbeagle/zindex/internal/config"
	"github.com/standardbeagle/zindex/internal/planner"
	"github.com/standardbeagle/zindex/internal/queryparser"
)

// fakeVectorSource never gets touched in these tests since every
// header below carries its payload inline, matching how a small
// posting list is actually stored per spec §4.2.
type fakeVectorSource struct{}

func (fakeVectorSource) Read(h codec.VectorHeader) ([]byte, error) {
	return nil, errors.New("ranker_test: unexpected out-of-line read")
}

type fakeDocInfo struct {
	lengths map[uint32]uint32
	weights map[uint32]float64
}

func (d fakeDocInfo) Length(docno uint32) (uint32, error) { return d.lengths[docno], nil }
func (d fakeDocInfo) Weight(docno uint32) (float64, error) { return d.weights[docno], nil }

func docwpHeader(ft uint64, postings ...codec.Posting) codec.VectorHeader {
	return docwpHeaderFtFf(ft, ft, postings...)
}

func docwpHeaderFtFf(ft, ff uint64, postings ...codec.Posting) codec.VectorHeader {
	buf, err := codec.EncodeDocwp(postings)
	if err != nil {
		panic(err)
	}
	return codec.VectorHeader{
		Type:        codec.ListTypeDocwp,
		Location:    codec.LocationInline,
		PayloadSize: uint64(len(buf)),
		Ft:          ft,
		Ff:          ff,
		Inline:      buf,
	}
}

func impactHeader(ft uint64, runs ...codec.ImpactRun) codec.VectorHeader {
	buf, err := codec.EncodeImpact(runs)
	if err != nil {
		panic(err)
	}
	return codec.VectorHeader{
		Type:        codec.ListTypeImpact,
		Location:    codec.LocationInline,
		PayloadSize: uint64(len(buf)),
		Ft:          ft,
		Inline:      buf,
	}
}

func buildPlan(t *testing.T, query string, vocab planner.VocabLookup) *planner.Plan {
	t.Helper()
	p := queryparser.New(query, 0)
	plan, err := planner.Build(p, planner.Options{MaxTerms: 64, Vocab: vocab})
	require.NoError(t, err)
	return plan
}

func TestRankSingleWordOrdersByScoreDescending(t *testing.T) {
	vocab := func(term string) ([]codec.VectorHeader, bool, error) {
		if term != "fox" {
			return nil, false, nil
		}
		return []codec.VectorHeader{
			docwpHeader(2, codec.Posting{Docno: 1, TF: 1}, codec.Posting{Docno: 2, TF: 5}),
		}, true, nil
	}
	plan := buildPlan(t, "fox", vocab)

	coll := Collection{N: 100, AvgDL: 50}
	docs := fakeDocInfo{
		lengths: map[uint32]uint32{1: 50, 2: 50},
		weights: map[uint32]float64{1: 1, 2: 1},
	}
	opts := config.DefaultSearchOptions()
	opts.ResultCount = 10

	res, err := Rank(plan, fakeVectorSource{}, docs, coll, opts)
	require.NoError(t, err)
	require.Len(t, res.Page, 2)
	assert.Equal(t, uint32(2), res.Page[0].Docno)
	assert.Equal(t, uint32(1), res.Page[1].Docno)
}

func TestRankExcludesNegatedTerm(t *testing.T) {
	vocab := func(term string) ([]codec.VectorHeader, bool, error) {
		switch term {
		case "fox":
			return []codec.VectorHeader{
				docwpHeader(2, codec.Posting{Docno: 1, TF: 3}, codec.Posting{Docno: 2, TF: 3}),
			}, true, nil
		case "dog":
			return []codec.VectorHeader{
				docwpHeader(1, codec.Posting{Docno: 2, TF: 1}),
			}, true, nil
		}
		return nil, false, nil
	}
	plan := buildPlan(t, "fox -dog", vocab)

	coll := Collection{N: 100, AvgDL: 50}
	docs := fakeDocInfo{
		lengths: map[uint32]uint32{1: 50, 2: 50},
		weights: map[uint32]float64{1: 1, 2: 1},
	}
	opts := config.DefaultSearchOptions()

	res, err := Rank(plan, fakeVectorSource{}, docs, coll, opts)
	require.NoError(t, err)
	require.Len(t, res.Page, 1)
	assert.Equal(t, uint32(1), res.Page[0].Docno)
}

func TestRankPhraseRequiresAllTermsPresent(t *testing.T) {
	vocab := func(term string) ([]codec.VectorHeader, bool, error) {
		switch term {
		case "fox":
			return []codec.VectorHeader{
				docwpHeader(2, codec.Posting{Docno: 1, TF: 1}, codec.Posting{Docno: 2, TF: 1}),
			}, true, nil
		case "dog":
			return []codec.VectorHeader{
				docwpHeader(1, codec.Posting{Docno: 2, TF: 1}),
			}, true, nil
		}
		return nil, false, nil
	}
	plan := buildPlan(t, `"fox dog"`, vocab)

	coll := Collection{N: 100, AvgDL: 50}
	docs := fakeDocInfo{
		lengths: map[uint32]uint32{1: 50, 2: 50},
		weights: map[uint32]float64{1: 1, 2: 1},
	}
	opts := config.DefaultSearchOptions()

	res, err := Rank(plan, fakeVectorSource{}, docs, coll, opts)
	require.NoError(t, err)
	require.Len(t, res.Page, 1)
	assert.Equal(t, uint32(2), res.Page[0].Docno)
}

func TestRankResultWindowPagination(t *testing.T) {
	vocab := func(term string) ([]codec.VectorHeader, bool, error) {
		if term != "fox" {
			return nil, false, nil
		}
		return []codec.VectorHeader{
			docwpHeader(3,
				codec.Posting{Docno: 1, TF: 1},
				codec.Posting{Docno: 2, TF: 2},
				codec.Posting{Docno: 3, TF: 3},
			),
		}, true, nil
	}
	plan := buildPlan(t, "fox", vocab)

	coll := Collection{N: 100, AvgDL: 50}
	docs := fakeDocInfo{
		lengths: map[uint32]uint32{1: 50, 2: 50, 3: 50},
		weights: map[uint32]float64{1: 1, 2: 1, 3: 1},
	}
	opts := config.DefaultSearchOptions()
	opts.ResultStart = 1
	opts.ResultCount = 1

	res, err := Rank(plan, fakeVectorSource{}, docs, coll, opts)
	require.NoError(t, err)
	require.Len(t, res.Page, 1)
	assert.Equal(t, 3, res.EstimatedTotal)
	assert.Equal(t, uint32(2), res.Page[0].Docno)
}

func TestRankAndConjunctRequiresAllTermsPresent(t *testing.T) {
	vocab := func(term string) ([]codec.VectorHeader, bool, error) {
		switch term {
		case "fox":
			return []codec.VectorHeader{
				docwpHeader(2, codec.Posting{Docno: 1, TF: 1}, codec.Posting{Docno: 2, TF: 1}),
			}, true, nil
		case "dog":
			return []codec.VectorHeader{
				docwpHeader(1, codec.Posting{Docno: 2, TF: 1}),
			}, true, nil
		}
		return nil, false, nil
	}
	plan := buildPlan(t, "fox AND dog", vocab)
	require.Len(t, plan.Conjuncts, 1)
	require.Equal(t, planner.ConjunctAnd, plan.Conjuncts[0].Kind)

	coll := Collection{N: 100, AvgDL: 50}
	docs := fakeDocInfo{
		lengths: map[uint32]uint32{1: 50, 2: 50},
		weights: map[uint32]float64{1: 1, 2: 1},
	}
	opts := config.DefaultSearchOptions()

	res, err := Rank(plan, fakeVectorSource{}, docs, coll, opts)
	require.NoError(t, err)
	require.Len(t, res.Page, 1)
	assert.Equal(t, uint32(2), res.Page[0].Docno)
}

func TestRankAndConjunctWithMissingTermScoresNothing(t *testing.T) {
	vocab := func(term string) ([]codec.VectorHeader, bool, error) {
		if term != "fox" {
			return nil, false, nil
		}
		return []codec.VectorHeader{
			docwpHeader(2, codec.Posting{Docno: 1, TF: 1}, codec.Posting{Docno: 2, TF: 1}),
		}, true, nil
	}
	plan := buildPlan(t, "fox AND missing", vocab)
	require.Len(t, plan.Conjuncts, 1)
	assert.False(t, plan.Conjuncts[0].Alive())

	coll := Collection{N: 100, AvgDL: 50}
	docs := fakeDocInfo{
		lengths: map[uint32]uint32{1: 50, 2: 50},
		weights: map[uint32]float64{1: 1, 2: 1},
	}
	opts := config.DefaultSearchOptions()

	res, err := Rank(plan, fakeVectorSource{}, docs, coll, opts)
	require.NoError(t, err)
	assert.Empty(t, res.Page)
}

func TestRankDirichletUsesCollectionFrequencyNotDocFrequency(t *testing.T) {
	// ft (document frequency) and ff (collection frequency) are set to
	// very different values; dirichletScore must read ff, not ft, or
	// this score would match the ft==500 case instead.
	vocab := func(term string) ([]codec.VectorHeader, bool, error) {
		if term != "fox" {
			return nil, false, nil
		}
		return []codec.VectorHeader{
			docwpHeaderFtFf(2, 500, codec.Posting{Docno: 1, TF: 5}),
		}, true, nil
	}
	plan := buildPlan(t, "fox", vocab)

	coll := Collection{N: 100, AvgDL: 50}
	docs := fakeDocInfo{
		lengths: map[uint32]uint32{1: 50},
		weights: map[uint32]float64{1: 1},
	}
	opts := config.DefaultSearchOptions()
	opts.Metric = config.MetricDirichlet

	res, err := Rank(plan, fakeVectorSource{}, docs, coll, opts)
	require.NoError(t, err)
	require.Len(t, res.Page, 1)

	want := dirichletScore(5, 50, 500, 1, coll, opts)
	assert.InDelta(t, want, res.Page[0].Score, 1e-9)
}

func TestRankImpactModeProducesSameTopRankAsOkapi(t *testing.T) {
	vocab := func(term string) ([]codec.VectorHeader, bool, error) {
		if term != "fox" {
			return nil, false, nil
		}
		return []codec.VectorHeader{
			impactHeader(2,
				codec.ImpactRun{Impact: 50, Docnos: []uint32{2}},
				codec.ImpactRun{Impact: 10, Docnos: []uint32{1}},
			),
		}, true, nil
	}
	plan := buildPlan(t, "fox", vocab)

	coll := Collection{N: 100, AvgDL: 50}
	docs := fakeDocInfo{}
	opts := config.DefaultSearchOptions()
	opts.Metric = config.MetricAnhImpact
	opts.ResultCount = 2

	res, err := Rank(plan, fakeVectorSource{}, docs, coll, opts)
	require.NoError(t, err)
	require.Len(t, res.Page, 2)
	assert.Equal(t, uint32(2), res.Page[0].Docno)
	assert.Equal(t, uint32(1), res.Page[1].Docno)
}

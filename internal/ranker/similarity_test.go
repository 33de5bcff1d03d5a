package ranker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/standardbeagle/zindex/internal/config"
)

func TestOkapiBM25RewardsHigherTF(t *testing.T) {
	coll := Collection{N: 1000, AvgDL: 100}
	opts := config.DefaultSearchOptions()
	low := okapiBM25(1, 100, 50, 1, coll, opts)
	high := okapiBM25(10, 100, 50, 1, coll, opts)
	assert.Greater(t, high, low)
}

func TestOkapiBM25NegativeIDFClampedToZero(t *testing.T) {
	coll := Collection{N: 10, AvgDL: 100}
	opts := config.DefaultSearchOptions()
	// ft == N means the term appears in every document: idf would go
	// negative without the clamp.
	got := okapiBM25(5, 100, 10, 1, coll, opts)
	assert.Zero(t, got)
}

func TestCosineScorePlain(t *testing.T) {
	opts := config.DefaultSearchOptions()
	got := cosineScore(config.MetricCosine, 4, 2, 1, opts)
	assert.InDelta(t, 2.0, got, 1e-9)
}

func TestPivotedCosineAppliesPivot(t *testing.T) {
	opts := config.DefaultSearchOptions()
	opts.Pivot = 0.5
	got := cosineScore(config.MetricPivotedCosine, 4, 2, 1, opts)
	assert.InDelta(t, 4.0, got, 1e-9)
}

func TestDirichletScoreIncreasesWithTF(t *testing.T) {
	coll := Collection{N: 1000, AvgDL: 100}
	opts := config.DefaultSearchOptions()
	low := dirichletScore(1, 100, 50, 1, coll, opts)
	high := dirichletScore(20, 100, 50, 1, coll, opts)
	assert.Greater(t, high, low)
}

func TestHawkapiScaledByAlpha(t *testing.T) {
	coll := Collection{N: 1000, AvgDL: 100}
	opts := config.DefaultSearchOptions()
	opts.Alpha = 2
	scaledUp := hawkapiScore(5, 100, 50, 1, coll, opts)
	opts.Alpha = 1
	base := hawkapiScore(5, 100, 50, 1, coll, opts)
	assert.InDelta(t, base*2, scaledUp, 1e-9)
}

func TestTermScoreDispatchesByMetric(t *testing.T) {
	coll := Collection{N: 1000, AvgDL: 100}
	opts := config.DefaultSearchOptions()
	opts.Metric = config.MetricCosine
	got := termScore(opts.Metric, 4, 100, 50, 50, 1, 2, coll, opts)
	assert.InDelta(t, 2.0, got, 1e-9)
}

package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/zindex/internal/codec"
	"github.com/standardbeagle/zindex/internal/queryparser"
	"github.com/standardbeagle/zindex/internal/stopwords"
)

func fakeVocab(known map[string]codec.VectorHeader) VocabLookup {
	return func(term string) ([]codec.VectorHeader, bool, error) {
		h, ok := known[term]
		if !ok {
			return nil, false, nil
		}
		return []codec.VectorHeader{h}, true, nil
	}
}

func header(offset uint64) codec.VectorHeader {
	return codec.VectorHeader{Type: codec.ListTypeDocwp, Location: codec.LocationVector, Fileno: 1, Offset: offset}
}

func TestBuildSimpleWordPlan(t *testing.T) {
	vocab := fakeVocab(map[string]codec.VectorHeader{
		"quick": header(1),
		"fox":   header(2),
	})
	p := queryparser.New("quick fox", 0)
	plan, err := Build(p, Options{MaxTerms: 10, Vocab: vocab})
	require.NoError(t, err)
	require.Len(t, plan.Conjuncts, 2)
	assert.Equal(t, "quick", plan.Conjuncts[0].Terms[0])
	assert.Equal(t, "fox", plan.Conjuncts[1].Terms[0])
	assert.Equal(t, 1, plan.Conjuncts[0].FQT)
}

func TestBuildZeroFrequencyTermIsNoOp(t *testing.T) {
	vocab := fakeVocab(map[string]codec.VectorHeader{"fox": header(1)})
	p := queryparser.New("quick fox", 0)
	plan, err := Build(p, Options{MaxTerms: 10, Vocab: vocab})
	require.NoError(t, err)
	require.Len(t, plan.Conjuncts, 1)
	assert.Equal(t, "fox", plan.Conjuncts[0].Terms[0])
}

func TestBuildDuplicateWordIncrementsFQT(t *testing.T) {
	vocab := fakeVocab(map[string]codec.VectorHeader{"fox": header(1)})
	p := queryparser.New("fox fox fox", 0)
	plan, err := Build(p, Options{MaxTerms: 10, Vocab: vocab})
	require.NoError(t, err)
	require.Len(t, plan.Conjuncts, 1)
	assert.Equal(t, 3, plan.Conjuncts[0].FQT)
}

func TestBuildStopWordDiscarded(t *testing.T) {
	vocab := fakeVocab(map[string]codec.VectorHeader{"the": header(1), "fox": header(2)})
	p := queryparser.New("the fox", 0)
	plan, err := Build(p, Options{MaxTerms: 10, Vocab: vocab, StopList: stopwords.Default()})
	require.NoError(t, err)
	require.Len(t, plan.Conjuncts, 1)
	assert.Equal(t, "fox", plan.Conjuncts[0].Terms[0])
}

func TestBuildNoStopBypassesStopList(t *testing.T) {
	vocab := fakeVocab(map[string]codec.VectorHeader{"the": header(1)})
	p := queryparser.New("+the", 0)
	plan, err := Build(p, Options{MaxTerms: 10, Vocab: vocab, StopList: stopwords.Default()})
	require.NoError(t, err)
	require.Len(t, plan.Conjuncts, 1)
	assert.Equal(t, "the", plan.Conjuncts[0].Terms[0])
}

func TestBuildPhraseWithMultipleSurvivingTermsStaysPhrase(t *testing.T) {
	vocab := fakeVocab(map[string]codec.VectorHeader{"quick": header(1), "fox": header(2)})
	p := queryparser.New(`"quick fox"`, 0)
	plan, err := Build(p, Options{MaxTerms: 10, Vocab: vocab})
	require.NoError(t, err)
	require.Len(t, plan.Conjuncts, 1)
	assert.Equal(t, ConjunctPhrase, plan.Conjuncts[0].Kind)
	assert.Equal(t, []string{"quick", "fox"}, plan.Conjuncts[0].Terms)
}

func TestBuildPhraseWithOneSurvivingTermDemotesToWord(t *testing.T) {
	vocab := fakeVocab(map[string]codec.VectorHeader{"fox": header(2)})
	p := queryparser.New(`"missing fox"`, 0)
	plan, err := Build(p, Options{MaxTerms: 10, Vocab: vocab})
	require.NoError(t, err)
	require.Len(t, plan.Conjuncts, 1)
	assert.Equal(t, ConjunctWord, plan.Conjuncts[0].Kind)
}

func TestBuildMaxTermsTruncates(t *testing.T) {
	vocab := fakeVocab(map[string]codec.VectorHeader{"a": header(1), "b": header(2), "c": header(3)})
	p := queryparser.New("a b c", 0)
	plan, err := Build(p, Options{MaxTerms: 2, Vocab: vocab})
	require.NoError(t, err)
	assert.Len(t, plan.Conjuncts, 2)
	assert.True(t, plan.Truncated)
}

func TestBuildModifierAnnotatesLastConjunct(t *testing.T) {
	vocab := fakeVocab(map[string]codec.VectorHeader{"fox": header(1)})
	p := queryparser.New("fox [sloppy:3]", 0)
	plan, err := Build(p, Options{MaxTerms: 10, Vocab: vocab})
	require.NoError(t, err)
	require.Len(t, plan.Conjuncts, 1)
	assert.Equal(t, 3, plan.Conjuncts[0].Sloppy)
}

func TestBuildExcludeWordTrackedWithNegativeFQT(t *testing.T) {
	vocab := fakeVocab(map[string]codec.VectorHeader{"spam": header(1)})
	p := queryparser.New("-spam", 0)
	plan, err := Build(p, Options{MaxTerms: 10, Vocab: vocab})
	require.NoError(t, err)
	require.Len(t, plan.Conjuncts, 1)
	assert.Equal(t, -1, plan.Conjuncts[0].FQT)
}

func TestBuildAndGroupsBothTerms(t *testing.T) {
	vocab := fakeVocab(map[string]codec.VectorHeader{"quick": header(1), "fox": header(2)})
	p := queryparser.New("quick AND fox", 0)
	plan, err := Build(p, Options{MaxTerms: 10, Vocab: vocab})
	require.NoError(t, err)
	require.Len(t, plan.Conjuncts, 1)
	assert.Equal(t, ConjunctAnd, plan.Conjuncts[0].Kind)
	assert.Equal(t, []string{"quick", "fox"}, plan.Conjuncts[0].Terms)
	assert.True(t, plan.Conjuncts[0].Alive())
}

func TestBuildAndChainsAcrossMultipleOperators(t *testing.T) {
	vocab := fakeVocab(map[string]codec.VectorHeader{"a": header(1), "b": header(2), "c": header(3)})
	p := queryparser.New("a AND b AND c", 0)
	plan, err := Build(p, Options{MaxTerms: 10, Vocab: vocab})
	require.NoError(t, err)
	require.Len(t, plan.Conjuncts, 1)
	assert.Equal(t, []string{"a", "b", "c"}, plan.Conjuncts[0].Terms)
}

func TestBuildAndWithMissingTermInvalidatesConjunct(t *testing.T) {
	vocab := fakeVocab(map[string]codec.VectorHeader{"quick": header(1)})
	p := queryparser.New("quick AND missing", 0)
	plan, err := Build(p, Options{MaxTerms: 10, Vocab: vocab})
	require.NoError(t, err)
	require.Len(t, plan.Conjuncts, 1)
	assert.Equal(t, ConjunctAnd, plan.Conjuncts[0].Kind)
	assert.False(t, plan.Conjuncts[0].Alive())
}

func TestBuildAndBreaksIntoSeparateGroupsAcrossPlainWord(t *testing.T) {
	vocab := fakeVocab(map[string]codec.VectorHeader{"a": header(1), "b": header(2), "c": header(3), "d": header(4)})
	p := queryparser.New("a AND b c AND d", 0)
	plan, err := Build(p, Options{MaxTerms: 10, Vocab: vocab})
	require.NoError(t, err)
	require.Len(t, plan.Conjuncts, 2)
	assert.Equal(t, ConjunctAnd, plan.Conjuncts[0].Kind)
	assert.Equal(t, []string{"a", "b"}, plan.Conjuncts[0].Terms)
	assert.Equal(t, ConjunctAnd, plan.Conjuncts[1].Kind)
	assert.Equal(t, []string{"c", "d"}, plan.Conjuncts[1].Terms)
}

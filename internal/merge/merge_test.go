package merge

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/zindex/internal/accum"
	"github.com/standardbeagle/zindex/internal/codec"
	"github.com/standardbeagle/zindex/internal/fdset"
	"github.com/standardbeagle/zindex/internal/run"
)

func dumpRun(t *testing.T, d *run.Dumper, terms map[string][]uint32) run.Ref {
	t.Helper()
	tbl := accum.New(0, 0)
	for term, docnos := range terms {
		for _, dno := range docnos {
			tbl.Add([]byte(term), dno)
		}
	}
	ref, err := d.Dump(tbl)
	require.NoError(t, err)
	return ref
}

func TestMergeConcatenatesDisjointBatchesWithRebasing(t *testing.T) {
	dir := t.TempDir()
	fds := fdset.New(16)
	require.NoError(t, fds.RegisterType(1, filepath.Join(dir, "P.index.%u"), true))
	defer fds.Close()

	d := run.New(fds, 1, 4096)

	// Batch 0: docnos 0,1 local to this batch.
	ref0 := dumpRun(t, d, map[string][]uint32{
		"fox": {0, 1},
	})
	// Batch 1: docnos 0,1 local, but globally these are docs 2,3.
	ref1 := dumpRun(t, d, map[string][]uint32{
		"fox": {0},
		"dog": {1},
	})

	r0, err := run.OpenReader(fds, 1, ref0)
	require.NoError(t, err)
	defer r0.Close()
	r1, err := run.OpenReader(fds, 1, ref1)
	require.NoError(t, err)
	defer r1.Close()

	sources := []Source{
		{Reader: r0, DocnoBase: 0},
		{Reader: r1, DocnoBase: 2},
	}

	merged, err := Merge(sources)
	require.NoError(t, err)
	require.Len(t, merged, 2)

	byTerm := make(map[string]MergedTerm)
	for _, m := range merged {
		byTerm[string(m.Term)] = m
	}

	fox := byTerm["fox"]
	assert.Equal(t, uint64(3), fox.Ft)
	postings, err := codec.DecodeDocwp(fox.Postings)
	require.NoError(t, err)
	var docnos []uint32
	for _, p := range postings {
		docnos = append(docnos, p.Docno)
	}
	assert.Equal(t, []uint32{0, 1, 2}, docnos)

	dog := byTerm["dog"]
	assert.Equal(t, uint64(1), dog.Ft)
	postings, err = codec.DecodeDocwp(dog.Postings)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), postings[0].Docno)
}

func TestMergeOrdersTermsLexically(t *testing.T) {
	dir := t.TempDir()
	fds := fdset.New(16)
	require.NoError(t, fds.RegisterType(1, filepath.Join(dir, "P.index.%u"), true))
	defer fds.Close()

	d := run.New(fds, 1, 4096)
	ref := dumpRun(t, d, map[string][]uint32{
		"zebra": {0},
		"apple": {1},
	})
	r, err := run.OpenReader(fds, 1, ref)
	require.NoError(t, err)
	defer r.Close()

	merged, err := Merge([]Source{{Reader: r, DocnoBase: 0}})
	require.NoError(t, err)
	require.Len(t, merged, 2)
	assert.Equal(t, "apple", string(merged[0].Term))
	assert.Equal(t, "zebra", string(merged[1].Term))
}

func TestImpactFromDocwpGroupsAndOrders(t *testing.T) {
	postings := []codec.Posting{
		{Docno: 5, TF: 1},
		{Docno: 1, TF: 8},
		{Docno: 3, TF: 8},
		{Docno: 2, TF: 1},
	}
	runs := ImpactFromDocwp(postings, nil)
	require.Len(t, runs, 2)
	assert.True(t, runs[0].Impact > runs[1].Impact)
	assert.Equal(t, []uint32{1, 3}, runs[0].Docnos)
	assert.Equal(t, []uint32{2, 5}, runs[1].Docnos)
}

func TestQuantizeImpactMonotonic(t *testing.T) {
	assert.LessOrEqual(t, QuantizeImpact(1), QuantizeImpact(2))
	assert.LessOrEqual(t, QuantizeImpact(2), QuantizeImpact(100))
	assert.Equal(t, uint32(1), QuantizeImpact(0))
}

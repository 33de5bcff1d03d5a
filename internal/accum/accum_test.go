package accum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/zindex/internal/codec"
)

func decodeRuns(t *testing.T, buf []byte) (gaps []uint64, tfs []uint64) {
	t.Helper()
	pos := 0
	for pos < len(buf) {
		gap, n, err := codec.DecodeVarbyte(buf[pos:])
		require.NoError(t, err)
		pos += n
		tf, n, err := codec.DecodeVarbyte(buf[pos:])
		require.NoError(t, err)
		pos += n
		gaps = append(gaps, gap)
		tfs = append(tfs, tf)
	}
	return gaps, tfs
}

func TestAddSingleTermSingleDoc(t *testing.T) {
	tbl := New(0, 0)
	tbl.Add([]byte("fox"), 5)

	entries := tbl.Entries()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "fox", string(e.Term))
	assert.Equal(t, uint32(1), e.Docs)
	assert.Equal(t, uint32(1), e.Occurs)
	assert.Equal(t, uint32(5), e.LastDoc)

	gaps, tfs := decodeRuns(t, e.Buf)
	assert.Equal(t, []uint64{5}, gaps)
	assert.Equal(t, []uint64{1}, tfs)
}

func TestAddRepeatedInSameDocIncrementsTF(t *testing.T) {
	tbl := New(0, 0)
	tbl.Add([]byte("fox"), 5)
	tbl.Add([]byte("fox"), 5)
	tbl.Add([]byte("fox"), 5)

	e := tbl.Entries()[0]
	assert.Equal(t, uint32(1), e.Docs)
	assert.Equal(t, uint32(3), e.Occurs)

	gaps, tfs := decodeRuns(t, e.Buf)
	assert.Equal(t, []uint64{5}, gaps)
	assert.Equal(t, []uint64{3}, tfs)
}

func TestAddAcrossMultipleDocsEncodesGaps(t *testing.T) {
	tbl := New(0, 0)
	tbl.Add([]byte("fox"), 5)
	tbl.Add([]byte("fox"), 5)
	tbl.Add([]byte("fox"), 9)
	tbl.Add([]byte("fox"), 20)
	tbl.Add([]byte("fox"), 20)

	e := tbl.Entries()[0]
	assert.Equal(t, uint32(3), e.Docs)
	assert.Equal(t, uint32(5), e.Occurs)
	assert.Equal(t, uint32(20), e.LastDoc)

	gaps, tfs := decodeRuns(t, e.Buf)
	assert.Equal(t, []uint64{5, 4, 11}, gaps)
	assert.Equal(t, []uint64{2, 1, 2}, tfs)
}

func TestEntriesSortedByTermBytes(t *testing.T) {
	tbl := New(0, 0)
	tbl.Add([]byte("zebra"), 1)
	tbl.Add([]byte("apple"), 1)
	tbl.Add([]byte("mango"), 1)

	entries := tbl.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "apple", string(entries[0].Term))
	assert.Equal(t, "mango", string(entries[1].Term))
	assert.Equal(t, "zebra", string(entries[2].Term))
}

func TestShouldDumpOnMemoryBudget(t *testing.T) {
	tbl := New(1, 0)
	assert.False(t, tbl.ShouldDump())
	tbl.Add([]byte("term"), 1)
	assert.True(t, tbl.ShouldDump())
}

func TestShouldDumpOnAccdocBound(t *testing.T) {
	tbl := New(0, 2)
	tbl.Add([]byte("a"), 1)
	tbl.Add([]byte("a"), 2)
	assert.False(t, tbl.ShouldDump())
	tbl.Add([]byte("a"), 3)
	assert.True(t, tbl.ShouldDump())
}

func TestResetClearsState(t *testing.T) {
	tbl := New(0, 0)
	tbl.Add([]byte("fox"), 1)
	require.Equal(t, 1, tbl.Len())

	tbl.Reset()
	assert.Equal(t, 0, tbl.Len())
	assert.Equal(t, 0, tbl.DocsInBatch())
	assert.Equal(t, int64(0), tbl.MemoryUsed())
	assert.Empty(t, tbl.Entries())
}

func TestDocsInBatchCountsDistinctDocnos(t *testing.T) {
	tbl := New(0, 0)
	tbl.Add([]byte("a"), 1)
	tbl.Add([]byte("b"), 1)
	tbl.Add([]byte("a"), 2)
	assert.Equal(t, 2, tbl.DocsInBatch())
}

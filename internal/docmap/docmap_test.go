package docmap

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/zindex/internal/fdset"
	"github.com/standardbeagle/zindex/internal/repository"
)

func newTestDocmap(t *testing.T, policy CachePolicy) (*Docmap, *fdset.FdSet) {
	t.Helper()
	dir := t.TempDir()
	fds := fdset.New(16)
	require.NoError(t, fds.RegisterType(1, filepath.Join(dir, "docmap.idx.%u"), true))
	require.NoError(t, fds.RegisterType(2, filepath.Join(dir, "docmap.data.%u"), true))
	return New(fds, 1, 2, 0, policy), fds
}

func sampleEntries() []Entry {
	return []Entry{
		{ExternalID: "WSJ880101-0001", Repo: repository.Pointer{Fileno: 0, Offset: 0, Length: 100}, Length: 42, Weight: 1.25, MIME: "text/plain"},
		{ExternalID: "WSJ880101-0002", Repo: repository.Pointer{Fileno: 0, Offset: 100, Length: 50}, Length: 10, Weight: 0.75, MIME: "text/html", Aux: []byte("lang=en")},
	}
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]CachePolicy{"none": CacheNone, "external-id": CacheExternalID, "weight": CacheWeight, "all": CacheAll} {
		got, err := ParsePolicy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParsePolicy("bogus")
	assert.Error(t, err)
}

func TestAppendAndGetRoundTrip(t *testing.T) {
	dm, fds := newTestDocmap(t, CacheNone)
	defer fds.Close()

	for i, e := range sampleEntries() {
		docno, err := dm.Append(e)
		require.NoError(t, err)
		assert.Equal(t, i, docno)
	}
	assert.Equal(t, 2, dm.Size())

	got, err := dm.Get(1)
	require.NoError(t, err)
	assert.Equal(t, sampleEntries()[1], got)
}

func TestExternalIDAndWeightAccessors(t *testing.T) {
	dm, fds := newTestDocmap(t, CacheExternalID)
	defer fds.Close()

	for _, e := range sampleEntries() {
		_, err := dm.Append(e)
		require.NoError(t, err)
	}

	id, err := dm.ExternalID(0)
	require.NoError(t, err)
	assert.Equal(t, "WSJ880101-0001", id)

	w, err := dm.Weight(1)
	require.NoError(t, err)
	assert.Equal(t, 0.75, w)
}

func TestCacheAllServesWithoutDiskRead(t *testing.T) {
	dm, fds := newTestDocmap(t, CacheAll)
	defer fds.Close()

	for _, e := range sampleEntries() {
		_, err := dm.Append(e)
		require.NoError(t, err)
	}

	got, err := dm.Get(0)
	require.NoError(t, err)
	assert.Equal(t, sampleEntries()[0], got)
}

func TestReopenWarmsConfiguredCache(t *testing.T) {
	dir := t.TempDir()
	fds := fdset.New(16)
	require.NoError(t, fds.RegisterType(1, filepath.Join(dir, "docmap.idx.%u"), true))
	require.NoError(t, fds.RegisterType(2, filepath.Join(dir, "docmap.data.%u"), true))

	dm := New(fds, 1, 2, 0, CacheWeight)
	for _, e := range sampleEntries() {
		_, err := dm.Append(e)
		require.NoError(t, err)
	}
	count := dm.Size()
	dataFileno, dataOff := dm.DataPosition()
	fds.Close()

	fds2 := fdset.New(16)
	require.NoError(t, fds2.RegisterType(1, filepath.Join(dir, "docmap.idx.%u"), true))
	require.NoError(t, fds2.RegisterType(2, filepath.Join(dir, "docmap.data.%u"), true))
	dm2 := New(fds2, 1, 2, 0, CacheWeight)
	require.NoError(t, dm2.Reopen(count, dataFileno, dataOff))
	defer fds2.Close()

	w, err := dm2.Weight(0)
	require.NoError(t, err)
	assert.Equal(t, 1.25, w)

	got, err := dm2.Get(1)
	require.NoError(t, err)
	assert.Equal(t, sampleEntries()[1], got)
}

package repository

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/zindex/internal/fdset"
)

func newTestRepo(t *testing.T, maxFileBytes int64) (*Repository, *fdset.FdSet) {
	t.Helper()
	dir := t.TempDir()
	fds := fdset.New(16)
	require.NoError(t, fds.RegisterType(1, filepath.Join(dir, "repo.%u"), true))
	return New(fds, 1, maxFileBytes), fds
}

func TestAppendRetrieveRoundTrip(t *testing.T) {
	repo, fds := newTestRepo(t, 0)
	defer fds.Close()

	docs := [][]byte{
		[]byte("first document body"),
		[]byte(""),
		[]byte("a third, slightly longer document body here"),
	}
	var ptrs []Pointer
	for _, d := range docs {
		ptr, err := repo.Append(d)
		require.NoError(t, err)
		ptrs = append(ptrs, ptr)
	}

	for i, ptr := range ptrs {
		got, err := repo.Retrieve(ptr)
		require.NoError(t, err)
		assert.Equal(t, docs[i], got)
	}
}

func TestAppendRollsToNewFileBeforeExceedingMax(t *testing.T) {
	repo, fds := newTestRepo(t, 32)
	defer fds.Close()

	d1 := bytes.Repeat([]byte("a"), 20)
	d2 := bytes.Repeat([]byte("b"), 20)

	p1, err := repo.Append(d1)
	require.NoError(t, err)
	p2, err := repo.Append(d2)
	require.NoError(t, err)

	assert.Equal(t, p1.Fileno, uint32(0))
	assert.NotEqual(t, p1.Fileno, p2.Fileno, "second write should roll to a fresh file rather than exceed max-file-size")

	got1, err := repo.Retrieve(p1)
	require.NoError(t, err)
	assert.Equal(t, d1, got1)
	got2, err := repo.Retrieve(p2)
	require.NoError(t, err)
	assert.Equal(t, d2, got2)
}

func TestStreamMatchesRetrieve(t *testing.T) {
	repo, fds := newTestRepo(t, 0)
	defer fds.Close()

	doc := bytes.Repeat([]byte("xyz-"), 1000)
	ptr, err := repo.Append(doc)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, repo.Stream(ptr, &buf, 37))
	assert.Equal(t, doc, buf.Bytes())
}

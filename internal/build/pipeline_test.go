package build

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/zindex/internal/config"
	"github.com/standardbeagle/zindex/internal/index"
)

// TestPipeline_IngestAndCommit builds a tiny index from a two-file
// corpus and checks the resulting vocabulary and document count.
func TestPipeline_IngestAndCommit(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("the quick brown fox"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "b.txt"), []byte("the lazy dog"), 0644))

	idxDir := t.TempDir()
	opts := config.DefaultNewOptions()
	opts.AccDoc = 1 // dump once the batch holds more than one document (after the second file)

	idx, err := index.Create(idxDir, opts)
	require.NoError(t, err)

	p := New(idx, opts)
	paths, err := ExpandFileList(writeFileList(t, src, "a.txt", "b.txt"))
	require.NoError(t, err)
	require.Len(t, paths, 2)

	require.NoError(t, p.IngestPaths(context.Background(), paths))
	require.NoError(t, p.Finish(context.Background()))
	require.NoError(t, idx.Close())

	idx2, err := index.Load(idxDir, config.DefaultLoadOptions(), false)
	require.NoError(t, err)
	defer idx2.Close()

	require.Equal(t, 2, idx2.Params.DocCount)

	headers, found, err := idx2.Lookup("the")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, headers, 1)
	require.EqualValues(t, 2, headers[0].Ft)
}

// TestPipeline_BigAndFast exercises the pyramid-collapse path with a
// narrow pyramid width so a handful of tiny batches force a collapse.
func TestPipeline_BigAndFast(t *testing.T) {
	src := t.TempDir()
	paths := make([]string, 0, 6)
	for i := 0; i < 6; i++ {
		name := filepath.Join(src, "d"+string(rune('0'+i))+".txt")
		require.NoError(t, os.WriteFile(name, []byte("alpha beta gamma"), 0644))
		paths = append(paths, name)
	}

	idxDir := t.TempDir()
	opts := config.DefaultNewOptions()
	opts.AccDoc = 1
	opts.BigAndFast = true
	opts.PyramidWidth = 2

	idx, err := index.Create(idxDir, opts)
	require.NoError(t, err)

	p := New(idx, opts)
	require.NoError(t, p.IngestPaths(context.Background(), paths))
	require.NoError(t, p.Finish(context.Background()))
	require.NoError(t, idx.Close())

	idx2, err := index.Load(idxDir, config.DefaultLoadOptions(), false)
	require.NoError(t, err)
	defer idx2.Close()

	require.Equal(t, 6, idx2.Params.DocCount)
	headers, found, err := idx2.Lookup("alpha")
	require.NoError(t, err)
	require.True(t, found)
	require.EqualValues(t, 6, headers[0].Ft)
}

func writeFileList(t *testing.T, dir string, names ...string) string {
	t.Helper()
	var content string
	for _, n := range names {
		content += filepath.Join(dir, n) + "\n"
	}
	listPath := filepath.Join(t.TempDir(), "files.lst")
	require.NoError(t, os.WriteFile(listPath, []byte(content), 0644))
	return listPath
}

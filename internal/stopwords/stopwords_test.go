package stopwords

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoneRejectsNothing(t *testing.T) {
	l := None()
	assert.False(t, l.Contains("the"))
	assert.Equal(t, 0, l.Len())
}

func TestDefaultContainsCommonWords(t *testing.T) {
	l := Default()
	assert.True(t, l.Contains("the"))
	assert.True(t, l.Contains("and"))
	assert.False(t, l.Contains("aardvark"))
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stop.txt")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nfoo\nBar\n\nbaz\n"), 0o644))

	l, err := Load(path)
	require.NoError(t, err)
	assert.True(t, l.Contains("foo"))
	assert.True(t, l.Contains("bar"))
	assert.True(t, l.Contains("baz"))
	assert.Equal(t, 3, l.Len())
}

func TestLoadQuerySpecSentinel(t *testing.T) {
	none, err := LoadQuerySpec("")
	require.NoError(t, err)
	assert.Equal(t, 0, none.Len())

	def, err := LoadQuerySpec("default")
	require.NoError(t, err)
	assert.True(t, def.Contains("the"))
}

func TestLoadQuerySpecPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stop.txt")
	require.NoError(t, os.WriteFile(path, []byte("widget\n"), 0o644))

	l, err := LoadQuerySpec(path)
	require.NoError(t, err)
	assert.True(t, l.Contains("widget"))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/stop.txt")
	assert.Error(t, err)
}

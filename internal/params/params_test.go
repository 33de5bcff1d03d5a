package params

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "P.params")

	p := Default()
	p.Stemmer = "porters"
	p.ImpactOrdered = true

	require.NoError(t, Save(path, p))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, p, loaded)
}

func TestCompatibleWithIgnoresCosmeticFields(t *testing.T) {
	committed := Default()
	later := Default()
	later.PyramidWidth = 64
	later.VocabListSize = 128
	assert.True(t, later.CompatibleWith(committed))
}

func TestCompatibleWithDetectsStemmerChange(t *testing.T) {
	committed := Default()
	later := Default()
	later.Stemmer = "light"
	assert.False(t, later.CompatibleWith(committed))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/P.params")
	assert.Error(t, err)
}

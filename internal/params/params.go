// Package params persists the index's build-time invariants (spec
// §3 "Parameters file"): the settings that a later --append or query
// run must honor exactly, since changing them mid-collection would
// make existing runs/vectors undecodable. Encoded as TOML via
// go-toml/v2, matching the teacher's configuration-file stack.
package params

import (
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/standardbeagle/zindex/internal/zerrors"
)

// DocmapCache mirrors docmap.CachePolicy as a TOML-friendly string so
// this package does not need to import docmap.
type DocmapCache string

const (
	DocmapCacheNone       DocmapCache = "none"
	DocmapCacheExternalID DocmapCache = "external-id"
	DocmapCacheWeight     DocmapCache = "weight"
	DocmapCacheAll        DocmapCache = "all"
)

// Params is the full set of build-time invariants written once at
// `-i` (new index) time and checked on every subsequent `-a` (append)
// or query open, unless --ignore-version is set.
type Params struct {
	FormatVersion     int    `toml:"format_version"`
	MaxTermLength     int    `toml:"max_term_length"`
	MaxFileBytes      int64  `toml:"max_file_bytes"`
	Stemmer           string `toml:"stemmer"` // none|eds|light|porters
	BuildStopList     string `toml:"build_stop_list,omitempty"`
	VectorHeaderVersion int  `toml:"vector_header_version"`
	ImpactOrdered     bool   `toml:"impact_ordered"`
	VocabListSize     int    `toml:"vocab_listsize"`
	InlineThreshold   int    `toml:"inline_threshold"`
	PyramidWidth      int    `toml:"pyramid_width"`
	SplitAlgo         string `toml:"split_algo"` // common_prefix|split_term

	// State carries the mutable position a reopened index resumes
	// from. It is not compared by CompatibleWith: unlike the fields
	// above, it is expected to change on every commit.
	DocCount      int    `toml:"doc_count"`
	TotalLength   uint64 `toml:"total_length"` // sum of every document's term count, for avgdl

	// DocmapDataFileno/Offset resumes docmap's own internal entry-blob
	// repository; ContentFileno/Offset resumes the separate repository
	// holding raw document bytes (internal/index.Index.DocRepo).
	DocmapDataFileno uint32 `toml:"docmap_data_fileno"`
	DocmapDataOffset int64  `toml:"docmap_data_offset"`
	ContentFileno    uint32 `toml:"content_fileno"`
	ContentOffset    int64  `toml:"content_offset"`
	VectorFileno     uint32 `toml:"vector_fileno"`
	VectorOffset     int64  `toml:"vector_offset"`
}

// Default returns the parameter set a fresh `-i` build starts from
// absent overriding flags.
func Default() Params {
	return Params{
		FormatVersion:       1,
		MaxTermLength:       256,
		MaxFileBytes:        1 << 30,
		Stemmer:             "none",
		VectorHeaderVersion: 1,
		ImpactOrdered:       false,
		VocabListSize:       64,
		InlineThreshold:     32,
		PyramidWidth:        8,
		SplitAlgo:           "common_prefix",
	}
}

// Load reads a parameters file previously written by Save.
func Load(path string) (Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Params{}, zerrors.New(zerrors.KindIOUnavailable, "params.load", err).WithPath(path)
	}
	var p Params
	if err := toml.Unmarshal(data, &p); err != nil {
		return Params{}, zerrors.New(zerrors.KindFormatInvalid, "params.load.decode", err).WithPath(path)
	}
	return p, nil
}

// Save writes p to path, overwriting any existing file.
func Save(path string, p Params) error {
	data, err := toml.Marshal(p)
	if err != nil {
		return zerrors.New(zerrors.KindInvalidArgument, "params.save.encode", err).WithPath(path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return zerrors.New(zerrors.KindIOUnavailable, "params.save", err).WithPath(path)
	}
	return nil
}

// CompatibleWith reports whether an append/query-time parameter set
// matches the invariants a build committed to. Only fields that would
// corrupt decoding if changed mid-collection are compared; cosmetic
// fields like PyramidWidth are allowed to differ across appends.
func (p Params) CompatibleWith(committed Params) bool {
	return p.FormatVersion == committed.FormatVersion &&
		p.MaxTermLength == committed.MaxTermLength &&
		p.Stemmer == committed.Stemmer &&
		p.VectorHeaderVersion == committed.VectorHeaderVersion &&
		p.ImpactOrdered == committed.ImpactOrdered &&
		p.SplitAlgo == committed.SplitAlgo
}

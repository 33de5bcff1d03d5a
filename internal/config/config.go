// Package config holds the option records spec §9 re-architects from
// the reference engine's bitfield option structs: one struct per
// concern (new.*, load.*, search.*) instead of a single flag blob.
// Defaults mirror the CLI surface of spec §6; cmd/zindex layers flag
// overrides on top of whatever a .zindex.kdl file supplies, the same
// two-step (file defaults, then flags) the teacher's own config
// loader uses for `.lci.kdl`.
package config

import "github.com/standardbeagle/zindex/internal/docmap"

// NewOptions configures a fresh (`-i`) or appended (`-a`) build.
// Fields map directly onto spec §6's build flags and §3's parameters
// file.
type NewOptions struct {
	Stemmer            string // none|eds|light|porters
	BuildStopList      string // path, empty means no stop list
	AnhImpact          bool   // --anh-impact: also build an impact-ordered list
	BigAndFast         bool   // --big-and-fast: favor pyramid merging over a single final merge
	AccumulationMemory int64  // -m/--accumulation-memory: accumulator byte budget
	DumpMemory         int64  // --dump-memory: run-writer buffer size
	ParseBuffer        int    // --parse-buffer: textparser read-ahead size
	TableSize          int    // --tablesize: accumulator hashtable bucket count hint
	MaxFileSize        int64  // --max-file-size: repository/vector/run file size cap
	AccDoc             int    // accdoc: documents per batch before a forced dump
	PyramidWidth       int
	InlineThreshold    int
	FdLimit            int // process-wide fdset.New limit
}

// DefaultNewOptions mirrors params.Default, restated here so CLI flag
// parsing has a single source of defaults independent of an on-disk
// index (params.Default is for the persisted invariants of an
// existing index; this is for flags on a build that hasn't run yet).
func DefaultNewOptions() NewOptions {
	return NewOptions{
		Stemmer:            "none",
		AccumulationMemory: 256 << 20,
		DumpMemory:         1 << 20,
		ParseBuffer:        64 << 10,
		TableSize:          1 << 16,
		MaxFileSize:        1 << 30,
		AccDoc:             0,
		PyramidWidth:       8,
		InlineThreshold:    32,
		FdLimit:            128,
	}
}

// LoadOptions configures opening an existing index, for either the
// `add` (append) or query path.
type LoadOptions struct {
	IgnoreVersion bool
	ParseBuffer   int
	TableSize     int
	VocabSize     int // page cache capacity, in pages
	MaxFListSize  int // max in-memory size of one decoded posting list before streaming reads kick in
	DocmapCache   docmap.CachePolicy
	QueryStop     string // "", "default", or a path
	FdLimit       int    // process-wide fdset.New limit
}

// DefaultLoadOptions is what a bare `zindex query` without flags uses.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		ParseBuffer:  64 << 10,
		TableSize:    1 << 16,
		VocabSize:    256,
		MaxFListSize: 8 << 20,
		DocmapCache:  docmap.CacheAll,
		FdLimit:      128,
	}
}

// Metric names the similarity measure spec §4.10 describes.
type Metric string

const (
	MetricOkapi          Metric = "okapi"
	MetricCosine         Metric = "cosine"
	MetricPivotedCosine  Metric = "pivoted-cosine"
	MetricDirichlet      Metric = "dirichlet"
	MetricHawkapi        Metric = "hawkapi"
	MetricAnhImpact      Metric = "anh-impact"
)

// SummaryType names a --summary rendering mode. Rendering itself is
// an external collaborator (spec §1); this only names the selection.
type SummaryType string

const (
	SummaryNone        SummaryType = "none"
	SummaryPlain       SummaryType = "plain"
	SummaryCapitalise  SummaryType = "capitalise"
	SummaryTag         SummaryType = "tag"
)

// SearchOptions configures one query evaluation pass.
//
// PlanCapacity and QueryWordLimit are kept as two distinct knobs per
// spec §9's "open ambiguity" flag: PlanCapacity bounds how many
// conjuncts the planner will hold (`plan.terms < maxterms`);
// QueryWordLimit is the separate `--word-limit` ceiling on raw query
// term count before planning even starts.
type SearchOptions struct {
	Metric     Metric
	K1, K3, B  float64 // okapi
	Pivot      float64 // pivoted-cosine
	Mu         float64 // dirichlet
	Alpha      float64 // hawkapi

	AccumulatorLimit int // A in spec §4.10
	PlanCapacity     int // maxterms
	QueryWordLimit   int

	ResultCount int // -n
	ResultStart int // -b

	SummaryType SummaryType
	QueryStop   string // "", "default", or a path
}

// DefaultSearchOptions matches the reference engine's Okapi BM25
// defaults from spec §4.10.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		Metric:           MetricOkapi,
		K1:               1.2,
		K3:               1e10,
		B:                0.75,
		Pivot:            0.2,
		Mu:               2500,
		Alpha:            1.0,
		AccumulatorLimit: 20000,
		PlanCapacity:     1024,
		QueryWordLimit:   1024,
		ResultCount:      10,
		ResultStart:      0,
		SummaryType:      SummaryNone,
	}
}

// Package stemmer implements the stemming contract spec.md pins but
// does not redesign: the engine depends on "a stemmer identity" that
// maps a lowercased term to its stem and is recorded in the parameters
// file. Four identities are supported, matching the CLI surface's
// --stem=<none|eds|light|porters>.
package stemmer

import (
	"fmt"
	"strings"

	"github.com/hbollon/go-edlib"
	"github.com/surgebase/porter2"
)

// Identity names a stemmer algorithm. It is persisted verbatim in the
// parameters file so a loaded index can refuse to mix stemmer
// identities between append batches.
type Identity string

const (
	None    Identity = "none"
	Porters Identity = "porters"
	EDS     Identity = "eds"
	Light   Identity = "light"
)

// Stemmer maps a term to its stem. Implementations are pure functions
// of their input plus the configuration baked in at construction.
type Stemmer interface {
	Identity() Identity
	Stem(term string) string
}

// New builds the stemmer named by identity. An unrecognized identity
// is an invalid-argument condition the caller should reject before the
// index is created.
func New(identity Identity) (Stemmer, error) {
	switch identity {
	case None, "":
		return noneStemmer{}, nil
	case Porters:
		return porterStemmer{}, nil
	case EDS:
		return edsStemmer{}, nil
	case Light:
		return lightStemmer{}, nil
	default:
		return nil, fmt.Errorf("unknown stemmer identity %q", identity)
	}
}

type noneStemmer struct{}

func (noneStemmer) Identity() Identity    { return None }
func (noneStemmer) Stem(term string) string { return term }

// porterStemmer wraps surgebase/porter2, the same library the teacher
// tool's internal/semantic.Stemmer used for its "porter2" algorithm.
type porterStemmer struct{}

func (porterStemmer) Identity() Identity { return Porters }

func (porterStemmer) Stem(term string) string {
	if len(term) == 0 {
		return term
	}
	return porter2.Stem(term)
}

// edsStemmer is a short equivalence-class stemmer: it strips a closed
// set of common English derivational/inflectional suffixes without
// Porter2's multi-pass rule cascade. "eds" stands for the historical
// name of this lighter algorithm family in search engines of this
// lineage; it trades accuracy for determinism and speed on very large
// vocabularies.
type edsStemmer struct{}

func (edsStemmer) Identity() Identity { return EDS }

var edsSuffixes = []string{
	"ational", "tional", "enci", "anci", "izer", "logi",
	"bli", "alli", "entli", "eli", "ousli", "ization",
	"ation", "ator", "alism", "iveness", "fulness", "ousness",
	"aliti", "iviti", "biliti", "ing", "edly", "ed", "es", "s",
}

func (edsStemmer) Stem(term string) string {
	lower := strings.ToLower(term)
	if len(lower) < 4 {
		return lower
	}
	for _, suf := range edsSuffixes {
		if strings.HasSuffix(lower, suf) && len(lower)-len(suf) >= 3 {
			return lower[:len(lower)-len(suf)]
		}
	}
	return lower
}

// lightStemmer strips the same suffix table as edsStemmer but only
// commits to a strip when the remainder is still edit-distance-close
// (Levenshtein) to the original term, using go-edlib the way the
// teacher tool's FuzzyMatcher used it for Jaro-Winkler similarity.
// This keeps "light" conservative: short or irregular words are left
// alone rather than over-stemmed.
type lightStemmer struct {
	maxRelativeDistance float64
}

func (lightStemmer) Identity() Identity { return Light }

func (l lightStemmer) Stem(term string) string {
	lower := strings.ToLower(term)
	if len(lower) < 4 {
		return lower
	}
	threshold := l.maxRelativeDistance
	if threshold <= 0 {
		threshold = 0.4
	}
	for _, suf := range edsSuffixes {
		if !strings.HasSuffix(lower, suf) || len(lower)-len(suf) < 3 {
			continue
		}
		candidate := lower[:len(lower)-len(suf)]
		sim, err := edlib.StringsSimilarity(lower, candidate, edlib.Levenshtein)
		if err != nil {
			continue
		}
		// StringsSimilarity returns a 0-1 normalized similarity score;
		// a stripped suffix that changes more than threshold of the
		// string is rejected as too aggressive for the "light" profile.
		if float64(sim) >= 1-threshold {
			return candidate
		}
	}
	return lower
}

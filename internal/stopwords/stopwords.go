// Package stopwords loads stop-word lists for both the build pipeline
// (--build-stop=<path>) and query time (--query-stop[=<path>]), per
// spec §6/§9. It is a flat-file loader, not a redesign of stemming or
// parsing internals.
package stopwords

import (
	"bufio"
	"os"
	"strings"

	"github.com/standardbeagle/zindex/internal/zerrors"
)

// List is a case-insensitive, already-lowercased stop-word set.
type List struct {
	words map[string]struct{}
}

// None is the empty list: every term passes.
func None() *List { return &List{words: map[string]struct{}{}} }

// defaultWords is the compiled-in default query stop list, resolving
// spec §9's open ambiguity: "--query-stop" with no argument names the
// literal "default" list below rather than a magic null.
var defaultWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "by", "for", "from",
	"has", "he", "in", "is", "it", "its", "of", "on", "that", "the",
	"to", "was", "were", "will", "with", "this", "but", "they", "not",
	"or", "have", "had", "what", "when", "where", "who", "which", "we",
	"you", "your", "their", "them", "can", "could", "would", "should",
}

// Default returns the compiled-in default list.
func Default() *List { return newFromWords(defaultWords) }

// Load reads a newline-delimited stop-word file. Blank lines and
// lines starting with "#" are ignored.
func Load(path string) (*List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, zerrors.New(zerrors.KindIOUnavailable, "stopwords.load", err).WithPath(path)
	}
	defer f.Close()

	words := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words[strings.ToLower(line)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, zerrors.New(zerrors.KindIOUnavailable, "stopwords.load", err).WithPath(path)
	}
	return &List{words: words}, nil
}

// LoadQuerySpec resolves the --query-stop flag's value: "" means the
// flag was not given (no stop list); "default" resolves to the
// compiled-in Default(); any other value is a path to Load.
func LoadQuerySpec(spec string) (*List, error) {
	switch spec {
	case "":
		return None(), nil
	case "default":
		return Default(), nil
	default:
		return Load(spec)
	}
}

func newFromWords(words []string) *List {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[strings.ToLower(w)] = struct{}{}
	}
	return &List{words: m}
}

// Contains reports whether term (already case-folded by the caller)
// is a stop word.
func (l *List) Contains(term string) bool {
	if l == nil {
		return false
	}
	_, ok := l.words[term]
	return ok
}

// Len returns the number of stop words loaded.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.words)
}

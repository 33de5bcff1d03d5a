package ranker

import (
	"strconv"

	"github.com/standardbeagle/zindex/internal/queryparser"
)

// DetectCacheQuery recognizes the repository-retrieval shortcut of
// spec §4.10: a query whose entire event stream is
// START_MODIFIER(cache), WORD(digits), END_MODIFIER, EOF. Returns the
// referenced docno and true when it matches.
func DetectCacheQuery(query string) (docno uint32, ok bool) {
	p := queryparser.New(query, 0)

	ev := p.Next()
	if ev.Kind != queryparser.EventStartModifier || ev.Text != "cache" {
		return 0, false
	}
	ev = p.Next()
	if ev.Kind != queryparser.EventWord {
		return 0, false
	}
	n, err := strconv.ParseUint(ev.Text, 10, 32)
	if err != nil {
		return 0, false
	}
	ev = p.Next()
	if ev.Kind != queryparser.EventEndModifier {
		return 0, false
	}
	ev = p.Next()
	if ev.Kind != queryparser.EventEOF {
		return 0, false
	}
	return uint32(n), true
}

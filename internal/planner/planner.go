// Package planner implements the query planner of spec §4.9: it
// consumes a queryparser event stream and produces a plan — a bounded
// vector of conjuncts, each carrying its vocabulary pointer(s) and
// query-term multiplicity — that the ranker (internal/ranker) then
// scores against.
package planner

import (
	"github.com/standardbeagle/zindex/internal/codec"
	"github.com/standardbeagle/zindex/internal/queryparser"
	"github.com/standardbeagle/zindex/internal/stemmer"
	"github.com/standardbeagle/zindex/internal/stopwords"
)

// ConjunctKind distinguishes a single-term conjunct, a phrase, and an
// AND-group (spec §3's AND(term1,...,termN)).
type ConjunctKind int

const (
	ConjunctWord ConjunctKind = iota
	ConjunctPhrase
	ConjunctAnd
)

// Conjunct is one unit of the plan: a term or an ordered phrase of
// terms, its vocabulary header(s), query-term frequency, and any
// modifier annotations.
type Conjunct struct {
	Kind    ConjunctKind
	Terms   []string // single entry for ConjunctWord, ordered terms for ConjunctPhrase
	FQT     int       // query-term frequency/multiplicity
	Headers []codec.VectorHeader
	Sloppy  int
	Cutoff  int
	alive   bool
}

// Alive reports whether this conjunct still has a live vocabulary
// pointer; dead conjuncts are kept in the plan only for bookkeeping
// and contribute nothing to scoring.
func (c *Conjunct) Alive() bool { return c.alive }

// VocabLookup resolves a term to its stored vector headers.
type VocabLookup func(term string) ([]codec.VectorHeader, bool, error)

// Options configures one planning pass.
type Options struct {
	MaxTerms    int
	Stemmer     stemmer.Stemmer
	StopList    *stopwords.List
	ImpactMode  bool
	Vocab       VocabLookup
}

// Plan is the planner's bounded output.
type Plan struct {
	Conjuncts []*Conjunct
	Warnings  queryparser.Warning
	Truncated bool // true if MaxTerms was hit and further terms were dropped
}

// Build drives p's event stream to completion and returns a Plan.
func Build(p *queryparser.Parser, opts Options) (*Plan, error) {
	plan := &Plan{}
	var currentPhrase *Conjunct
	inPhrase := false
	var andGroup *Conjunct
	expectAndTerm := false

	// appendAnd joins term onto an open AND-group conjunct with the same
	// all-or-nothing semantics as a phrase word: a term that fails to
	// resolve invalidates the whole group instead of occupying a slot.
	appendAnd := func(term string) error {
		stemmed := term
		if opts.Stemmer != nil {
			stemmed = opts.Stemmer.Stem(term)
		}
		headers, found, err := lookup(opts.Vocab, stemmed)
		if err != nil {
			return err
		}
		if found {
			andGroup.Terms = append(andGroup.Terms, stemmed)
			andGroup.Headers = append(andGroup.Headers, pickHeader(headers, opts.ImpactMode))
		} else {
			invalidate(andGroup)
		}
		return nil
	}

	emitWord := func(term string, isPhraseWord, noStop bool) error {
		stemmed := term
		if opts.Stemmer != nil {
			stemmed = opts.Stemmer.Stem(term)
		}
		if !noStop && !isPhraseWord && opts.StopList != nil && opts.StopList.Contains(stemmed) {
			return nil // stopped terms leave their slot effectively empty
		}

		headers, found, err := lookup(opts.Vocab, stemmed)
		if err != nil {
			return err
		}

		if isPhraseWord {
			if currentPhrase == nil {
				if len(plan.Conjuncts) >= opts.MaxTerms && opts.MaxTerms > 0 {
					plan.Truncated = true
					return nil
				}
				currentPhrase = &Conjunct{Kind: ConjunctPhrase, FQT: 1, alive: true}
				plan.Conjuncts = append(plan.Conjuncts, currentPhrase)
			}
			// Only surviving (vocab-resolved) words stay in Terms; a
			// missing word invalidates the conjunct without occupying
			// a term slot, so END_PHRASE's one-survivor check below
			// reflects actual matchable terms, not raw phrase length.
			if found {
				currentPhrase.Terms = append(currentPhrase.Terms, stemmed)
				currentPhrase.Headers = append(currentPhrase.Headers, pickHeader(headers, opts.ImpactMode))
			} else {
				invalidate(currentPhrase)
			}
			return nil
		}

		if !found {
			return nil // zero-frequency term outside AND/PHRASE is a no-op
		}

		header := pickHeader(headers, opts.ImpactMode)
		for _, c := range plan.Conjuncts {
			if c.Kind == ConjunctWord && len(c.Terms) == 1 && c.Terms[0] == stemmed && sameHeader(c.Headers, header) {
				c.FQT++
				return nil
			}
		}
		if opts.MaxTerms > 0 && len(plan.Conjuncts) >= opts.MaxTerms {
			plan.Truncated = true
			return nil
		}
		plan.Conjuncts = append(plan.Conjuncts, &Conjunct{
			Kind:    ConjunctWord,
			Terms:   []string{stemmed},
			FQT:     1,
			Headers: []codec.VectorHeader{header},
			alive:   true,
		})
		return nil
	}

	var lastConjunct *Conjunct
	for {
		ev := p.Next()
		switch ev.Kind {
		case queryparser.EventEOF:
			plan.Warnings = p.Warnings()
			return plan, nil
		case queryparser.EventWord:
			if !inPhrase && expectAndTerm && andGroup != nil {
				if err := appendAnd(ev.Text); err != nil {
					return nil, err
				}
				lastConjunct = andGroup
				expectAndTerm = false
				break
			}
			if err := emitWord(ev.Text, inPhrase, false); err != nil {
				return nil, err
			}
			if !inPhrase && len(plan.Conjuncts) > 0 {
				lastConjunct = plan.Conjuncts[len(plan.Conjuncts)-1]
				andGroup = nil
			}
		case queryparser.EventWordNoStop:
			expectAndTerm = false
			andGroup = nil
			if err := emitWord(ev.Text, false, true); err != nil {
				return nil, err
			}
			if len(plan.Conjuncts) > 0 {
				lastConjunct = plan.Conjuncts[len(plan.Conjuncts)-1]
			}
		case queryparser.EventWordExclude:
			expectAndTerm = false
			andGroup = nil
			// Exclusion conjuncts are tracked but never contribute a
			// positive score; the ranker is expected to skip them.
			headers, found, err := lookup(opts.Vocab, ev.Text)
			if err != nil {
				return nil, err
			}
			if found {
				plan.Conjuncts = append(plan.Conjuncts, &Conjunct{
					Kind:    ConjunctWord,
					Terms:   []string{ev.Text},
					FQT:     -1,
					Headers: []codec.VectorHeader{pickHeader(headers, opts.ImpactMode)},
					alive:   true,
				})
				lastConjunct = plan.Conjuncts[len(plan.Conjuncts)-1]
			}
		case queryparser.EventStartPhrase:
			expectAndTerm = false
			andGroup = nil
			inPhrase = true
			currentPhrase = nil
		case queryparser.EventEndPhrase:
			inPhrase = false
			if currentPhrase != nil && len(currentPhrase.Terms) == 1 {
				demotePhraseToWord(plan, currentPhrase)
			}
			lastConjunct = currentPhrase
			currentPhrase = nil
		case queryparser.EventStartModifier:
			// handled by subsequent WORD events plus END_MODIFIER below;
			// the modifier name selects which field on lastConjunct to set.
			applyModifier(lastConjunct, ev.Text, p)
		case queryparser.EventAnd:
			if inPhrase {
				break
			}
			if andGroup == nil {
				switch {
				case lastConjunct != nil && lastConjunct.Kind == ConjunctWord && lastConjunct.FQT >= 1:
					andGroup = lastConjunct
					andGroup.Kind = ConjunctAnd
				case opts.MaxTerms <= 0 || len(plan.Conjuncts) < opts.MaxTerms:
					andGroup = &Conjunct{Kind: ConjunctAnd, FQT: 1, alive: true}
					plan.Conjuncts = append(plan.Conjuncts, andGroup)
				default:
					plan.Truncated = true
				}
			}
			if andGroup != nil {
				expectAndTerm = true
			}
		case queryparser.EventOr, queryparser.EventEndSentence, queryparser.EventEndModifier:
			// OR/END_SENTENCE carry no planning effect beyond structuring
			// the query text; END_MODIFIER is consumed inside
			// applyModifier's own Next() loop.
		}
	}
}

func lookup(vocab VocabLookup, term string) ([]codec.VectorHeader, bool, error) {
	if vocab == nil {
		return nil, false, nil
	}
	return vocab(term)
}

// pickHeader prefers the impact header in impact mode, else the first
// non-impact header, per spec §4.9 step 2.
func pickHeader(headers []codec.VectorHeader, impactMode bool) codec.VectorHeader {
	if impactMode {
		for _, h := range headers {
			if h.Type == codec.ListTypeImpact {
				return h
			}
		}
	}
	for _, h := range headers {
		if h.Type != codec.ListTypeImpact {
			return h
		}
	}
	if len(headers) > 0 {
		return headers[0]
	}
	return codec.VectorHeader{}
}

func sameHeader(existing []codec.VectorHeader, h codec.VectorHeader) bool {
	for _, e := range existing {
		if e.Location == h.Location && e.Fileno == h.Fileno && e.Offset == h.Offset && string(e.Inline) == string(h.Inline) {
			return true
		}
	}
	return false
}

func invalidate(c *Conjunct) {
	c.FQT--
	if c.FQT <= 1 {
		c.alive = false
	}
}

func demotePhraseToWord(plan *Plan, phrase *Conjunct) {
	phrase.Kind = ConjunctWord
	for _, c := range plan.Conjuncts {
		if c != phrase && c.Kind == ConjunctWord && len(c.Terms) == 1 && len(phrase.Terms) == 1 && c.Terms[0] == phrase.Terms[0] {
			c.FQT++
			removeConjunct(plan, phrase)
			return
		}
	}
}

func removeConjunct(plan *Plan, target *Conjunct) {
	out := plan.Conjuncts[:0]
	for _, c := range plan.Conjuncts {
		if c != target {
			out = append(out, c)
		}
	}
	plan.Conjuncts = out
}

// applyModifier reads the modifier's word arguments directly from p
// (sloppy:N or cutoff:N) and annotates target, which is the most
// recently completed conjunct.
func applyModifier(target *Conjunct, name string, p *queryparser.Parser) {
	var n int
	for {
		ev := p.Next()
		if ev.Kind == queryparser.EventEndModifier || ev.Kind == queryparser.EventEOF {
			break
		}
		if ev.Kind == queryparser.EventWord {
			n = parseInt(ev.Text)
		}
	}
	if target == nil {
		return
	}
	switch name {
	case "sloppy":
		target.Sloppy = n
	case "cutoff":
		target.Cutoff = n
	}
}

func parseInt(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return n
		}
		n = n*10 + int(r-'0')
	}
	return n
}

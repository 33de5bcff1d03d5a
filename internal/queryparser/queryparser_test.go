package queryparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, query string, maxWordLen int) []Event {
	t.Helper()
	p := New(query, maxWordLen)
	var events []Event
	for {
		ev := p.Next()
		events = append(events, ev)
		if ev.Kind == EventEOF {
			return events
		}
	}
}

func TestPlainWordsFoldedToLowercase(t *testing.T) {
	events := collect(t, "Quick Brown Fox", 0)
	require.Len(t, events, 4)
	assert.Equal(t, Event{Kind: EventWord, Text: "quick"}, events[0])
	assert.Equal(t, Event{Kind: EventWord, Text: "brown"}, events[1])
	assert.Equal(t, Event{Kind: EventWord, Text: "fox"}, events[2])
	assert.Equal(t, EventEOF, events[3].Kind)
}

func TestNoStopAndExcludeWords(t *testing.T) {
	events := collect(t, "+the -bar", 0)
	require.Len(t, events, 3)
	assert.Equal(t, Event{Kind: EventWordNoStop, Text: "the"}, events[0])
	assert.Equal(t, Event{Kind: EventWordExclude, Text: "bar"}, events[1])
}

func TestAndOrLiterals(t *testing.T) {
	events := collect(t, "cat AND dog OR fish", 0)
	var kinds []EventKind
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []EventKind{EventWord, EventAnd, EventWord, EventOr, EventWord, EventEOF}, kinds)
}

func TestPhraseEmitsStartWordsEnd(t *testing.T) {
	events := collect(t, `"quick brown fox"`, 0)
	require.Len(t, events, 6)
	assert.Equal(t, EventStartPhrase, events[0].Kind)
	assert.Equal(t, Event{Kind: EventWord, Text: "quick"}, events[1])
	assert.Equal(t, Event{Kind: EventWord, Text: "brown"}, events[2])
	assert.Equal(t, Event{Kind: EventWord, Text: "fox"}, events[3])
	assert.Equal(t, EventEndPhrase, events[4].Kind)
	assert.Equal(t, EventEOF, events[5].Kind)
}

func TestNonASCIILetterBreaksWord(t *testing.T) {
	// café yields one word under the grammar's [A-Za-z0-9] alphabet: "é"
	// is not a word rune, so it ends "caf" and starts a fresh scan that
	// finds nothing else word-like before EOF.
	events := collect(t, "café", 0)
	require.Len(t, events, 2)
	assert.Equal(t, Event{Kind: EventWord, Text: "caf"}, events[0])
	assert.Equal(t, EventEOF, events[1].Kind)
}

func TestPhraseEndSentenceHeuristic(t *testing.T) {
	events := collect(t, `"dog. cat"`, 0)
	var kinds []EventKind
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []EventKind{EventStartPhrase, EventWord, EventEndSentence, EventWord, EventEndPhrase, EventEOF}, kinds)
}

func TestUnterminatedPhraseWarnsAndClosesAtEOF(t *testing.T) {
	p := New(`"quick brown`, 0)
	var kinds []EventKind
	for {
		ev := p.Next()
		kinds = append(kinds, ev.Kind)
		if ev.Kind == EventEOF {
			break
		}
	}
	assert.Equal(t, []EventKind{EventStartPhrase, EventWord, EventWord, EventEndPhrase, EventEOF}, kinds)
	assert.NotZero(t, p.Warnings()&WarnUnmatchedQuotes)
}

func TestModifierEmitsStartWordsEnd(t *testing.T) {
	events := collect(t, "[sloppy:2]", 0)
	require.Len(t, events, 4)
	assert.Equal(t, Event{Kind: EventStartModifier, Text: "sloppy"}, events[0])
	assert.Equal(t, Event{Kind: EventWord, Text: "2"}, events[1])
	assert.Equal(t, EventEndModifier, events[2].Kind)
	assert.Equal(t, EventEOF, events[3].Kind)
}

func TestWordLengthTruncation(t *testing.T) {
	events := collect(t, "abcdefgh", 3)
	require.Len(t, events, 4)
	assert.Equal(t, Event{Kind: EventWord, Text: "abc"}, events[0])
	assert.Equal(t, Event{Kind: EventWord, Text: "def"}, events[1])
	assert.Equal(t, Event{Kind: EventWord, Text: "gh"}, events[2])
	assert.Equal(t, EventEOF, events[3].Kind)
}

func TestInternalHyphenKeepsWordTogether(t *testing.T) {
	events := collect(t, "well-known fact", 0)
	require.Len(t, events, 3)
	assert.Equal(t, Event{Kind: EventWord, Text: "well-known"}, events[0])
}

func TestEmptyOperatorWarningOnLeadingAnd(t *testing.T) {
	p := New("AND cat", 0)
	for {
		ev := p.Next()
		if ev.Kind == EventEOF {
			break
		}
	}
	assert.NotZero(t, p.Warnings()&WarnEmptyOperator)
}

func TestParenWarning(t *testing.T) {
	p := New("(cat)", 0)
	for {
		ev := p.Next()
		if ev.Kind == EventEOF {
			break
		}
	}
	assert.NotZero(t, p.Warnings()&WarnParensLookLikeBoolean)
}

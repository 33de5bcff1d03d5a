// Package textparser implements the minimal parser contract spec §4.4
// asks of the "external collaborator": an event stream of
// WORD/TAG_OPEN/TAG_CLOSE/PARAM/PARAMVAL/COMMENT/CDATA/WHITESPACE/EOF,
// ASCII case-folding on word tokens, document-boundary detection under
// a MIME-driven profile, and identifier-tag capture for the document's
// external id. Three profiles are implemented: plain text (the whole
// input is one document), TREC/SGML (<DOC>...<DOCNO>...</DOCNO>...),
// and HTML/INEX tag soup.
package textparser

import (
	"fmt"
	"strings"
)

// EventKind tags one token in the parser's output stream.
type EventKind int

const (
	EventWord EventKind = iota
	EventTagOpen
	EventTagClose
	EventParam
	EventParamVal
	EventComment
	EventCDATA
	EventWhitespace
	EventEOF
)

func (k EventKind) String() string {
	switch k {
	case EventWord:
		return "WORD"
	case EventTagOpen:
		return "TAG_OPEN"
	case EventTagClose:
		return "TAG_CLOSE"
	case EventParam:
		return "PARAM"
	case EventParamVal:
		return "PARAMVAL"
	case EventComment:
		return "COMMENT"
	case EventCDATA:
		return "CDATA"
	case EventWhitespace:
		return "WHITESPACE"
	case EventEOF:
		return "EOF"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is one item of the parser's output stream.
type Event struct {
	Kind  EventKind
	Bytes []byte // WORD/PARAMVAL/CDATA payload, already case-folded for WORD
	Name  string // TAG_OPEN/TAG_CLOSE/PARAM name, lowercased
}

// Profile selects which document-boundary and identifier-tag rules
// apply; tags are only recognized when Markup is true.
type Profile struct {
	Name          string
	Markup        bool
	DocumentTag   string // tag bounding one document, e.g. "doc"; "" means the whole input is one document
	IdentifierTag string // tag whose text content is the document's external id, e.g. "docno"
}

var (
	PlainText = Profile{Name: "text/plain", Markup: false}
	TREC      = Profile{Name: "application/trec", Markup: true, DocumentTag: "doc", IdentifierTag: "docno"}
	INEX      = Profile{Name: "application/inex", Markup: true, DocumentTag: "doc", IdentifierTag: "docno"}
	HTML      = Profile{Name: "text/html", Markup: true, DocumentTag: "html", IdentifierTag: ""}
)

// Parser pulls Events from a byte buffer one at a time.
type Parser struct {
	buf     []byte
	pos     int
	profile Profile
}

// New creates a Parser over content under profile.
func New(content []byte, profile Profile) *Parser {
	return &Parser{buf: content, pos: 0, profile: profile}
}

// Pos reports the parser's current byte offset into its input, so a
// DocumentReader can recover each document's original byte span for
// repository storage.
func (p *Parser) Pos() int { return p.pos }

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\r' || b == '\n' }

func isWordByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func foldASCII(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b - 'A' + 'a'
	}
	return b
}

// Next returns the next event in the stream, ending with a permanent
// stream of EventEOF once the input is exhausted.
func (p *Parser) Next() Event {
	if p.pos >= len(p.buf) {
		return Event{Kind: EventEOF}
	}

	c := p.buf[p.pos]

	if isSpace(c) {
		start := p.pos
		for p.pos < len(p.buf) && isSpace(p.buf[p.pos]) {
			p.pos++
		}
		return Event{Kind: EventWhitespace, Bytes: p.buf[start:p.pos]}
	}

	if p.profile.Markup && c == '<' {
		return p.nextMarkup()
	}

	if isWordByte(c) {
		start := p.pos
		for p.pos < len(p.buf) && isWordByte(p.buf[p.pos]) {
			p.pos++
		}
		folded := make([]byte, p.pos-start)
		for i, b := range p.buf[start:p.pos] {
			folded[i] = foldASCII(b)
		}
		return Event{Kind: EventWord, Bytes: folded}
	}

	// Punctuation / other bytes outside markup and word runs: skip one
	// byte at a time, surfaced as whitespace so callers never stall.
	p.pos++
	return Event{Kind: EventWhitespace, Bytes: p.buf[p.pos-1 : p.pos]}
}

func (p *Parser) nextMarkup() Event {
	rest := p.buf[p.pos:]

	if strings.HasPrefix(string(rest), "<!--") {
		end := strings.Index(string(rest[4:]), "-->")
		if end < 0 {
			content := rest[4:]
			p.pos = len(p.buf)
			return Event{Kind: EventComment, Bytes: content}
		}
		content := rest[4 : 4+end]
		p.pos += 4 + end + 3
		return Event{Kind: EventComment, Bytes: content}
	}

	if strings.HasPrefix(string(rest), "<![CDATA[") {
		end := strings.Index(string(rest[9:]), "]]>")
		if end < 0 {
			content := rest[9:]
			p.pos = len(p.buf)
			return Event{Kind: EventCDATA, Bytes: content}
		}
		content := rest[9 : 9+end]
		p.pos += 9 + end + 3
		return Event{Kind: EventCDATA, Bytes: content}
	}

	closing := len(rest) > 1 && rest[1] == '/'
	tagStart := p.pos + 1
	if closing {
		tagStart++
	}

	i := tagStart
	for i < len(p.buf) && isWordByte(p.buf[i]) {
		i++
	}
	name := strings.ToLower(string(p.buf[tagStart:i]))

	gt := indexByte(p.buf, i, '>')
	if gt < 0 {
		gt = len(p.buf)
	}

	if closing {
		p.pos = gt + 1
		return Event{Kind: EventTagClose, Name: name}
	}

	p.pos = gt + 1
	return Event{Kind: EventTagOpen, Name: name}
}

func indexByte(b []byte, from int, c byte) int {
	for i := from; i < len(b); i++ {
		if b[i] == c {
			return i
		}
	}
	return -1
}

// Document is one unit of indexable content recovered from a source:
// its external id (when the profile has an IdentifierTag) and its
// token stream in order of appearance, already case-folded.
type Document struct {
	ExternalID string
	Words      []string
	ByteStart  int
	ByteEnd    int
}

// DocumentReader walks a Parser's event stream and groups it into
// Documents under profile's boundary rules. Plain text has no
// DocumentTag, so the whole input is a single Document.
type DocumentReader struct {
	p       *Parser
	profile Profile
	done    bool
}

// NewDocumentReader wraps content under profile.
func NewDocumentReader(content []byte, profile Profile) *DocumentReader {
	return &DocumentReader{p: New(content, profile), profile: profile}
}

// Next returns the next Document, or ok=false once the source is
// exhausted.
func (r *DocumentReader) Next() (doc Document, ok bool) {
	if r.done {
		return Document{}, false
	}
	if r.profile.DocumentTag == "" {
		words := r.drainWords(nil)
		r.done = true
		if len(words) == 0 {
			return Document{}, false
		}
		return Document{Words: words, ByteStart: 0, ByteEnd: len(r.p.buf)}, true
	}
	return r.nextTagged()
}

// nextTagged scans forward to the profile's DocumentTag open tag,
// then collects WORD tokens (and, when inside IdentifierTag, the
// external id) until the matching close tag.
func (r *DocumentReader) nextTagged() (Document, bool) {
	for {
		start := r.p.Pos()
		ev := r.p.Next()
		switch ev.Kind {
		case EventEOF:
			r.done = true
			return Document{}, false
		case EventTagOpen:
			if ev.Name == r.profile.DocumentTag {
				return r.collectDocument(start), true
			}
		}
	}
}

func (r *DocumentReader) collectDocument(start int) Document {
	doc := Document{ByteStart: start}
	depth := 1
	inIdentifier := false
	idStart := 0
	var idWords []string

	for {
		before := r.p.Pos()
		ev := r.p.Next()
		switch ev.Kind {
		case EventEOF:
			r.done = true
			doc.ByteEnd = r.p.Pos()
			return withExternalID(doc, idWords)
		case EventTagOpen:
			if ev.Name == r.profile.DocumentTag {
				depth++
			} else if r.profile.IdentifierTag != "" && ev.Name == r.profile.IdentifierTag {
				inIdentifier = true
				idStart = r.p.Pos()
			}
		case EventTagClose:
			if ev.Name == r.profile.DocumentTag {
				depth--
				if depth == 0 {
					doc.ByteEnd = r.p.Pos()
					return withExternalID(doc, idWords)
				}
			} else if r.profile.IdentifierTag != "" && ev.Name == r.profile.IdentifierTag {
				// The external id is the tag's raw text, so punctuation
				// such as the "-" in a TREC DOCNO survives tokenizing.
				if raw := strings.ToLower(strings.TrimSpace(string(r.p.buf[idStart:before]))); raw != "" {
					idWords = []string{raw}
				}
				inIdentifier = false
			}
		case EventWord:
			word := string(ev.Bytes)
			doc.Words = append(doc.Words, word)
			if inIdentifier {
				idWords = append(idWords, word)
			}
		}
	}
}

func withExternalID(doc Document, idWords []string) Document {
	if len(idWords) > 0 {
		doc.ExternalID = strings.Join(idWords, " ")
	}
	return doc
}

// drainWords consumes every WORD event to EOF, used by the plain-text
// profile where there are no document boundaries to watch for.
func (r *DocumentReader) drainWords(words []string) []string {
	for {
		ev := r.p.Next()
		if ev.Kind == EventEOF {
			return words
		}
		if ev.Kind == EventWord {
			words = append(words, string(ev.Bytes))
		}
	}
}

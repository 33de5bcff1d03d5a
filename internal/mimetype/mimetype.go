// Package mimetype implements the first-bytes sniff classifier named
// in spec §4.4: look at the first 16 or more bytes of a source and
// return its best top-level media type. The result both stamps
// docmap entries and selects which internal/textparser profile reads
// the rest of the file.
package mimetype

import "bytes"

// Type is one of the small fixed set of top-level media types this
// index build pipeline understands.
type Type string

const (
	TextPlain       Type = "text/plain"
	TextHTML        Type = "text/html"
	ApplicationTREC Type = "application/trec"
	ApplicationINEX Type = "application/inex"
)

const sniffLen = 16

// Sniff inspects the first sniffLen-or-more bytes of content and
// returns the best-guess top-level type. Unrecognized content
// defaults to TextPlain.
func Sniff(content []byte) Type {
	if len(content) < sniffLen {
		return TextPlain
	}
	head := content
	if len(head) > 512 {
		head = head[:512]
	}
	trimmed := bytes.TrimLeft(head, " \t\r\n")

	switch {
	case hasCaseInsensitivePrefix(trimmed, []byte("<doc>")) || bytes.Contains(upper512(trimmed), []byte("<DOCNO>")):
		return ApplicationTREC
	case hasCaseInsensitivePrefix(trimmed, []byte("<inex")) || bytes.Contains(trimmed, []byte("<inex_")):
		return ApplicationINEX
	case hasCaseInsensitivePrefix(trimmed, []byte("<!doctype html")) ||
		hasCaseInsensitivePrefix(trimmed, []byte("<html")) ||
		bytes.Contains(upper512(trimmed), []byte("<HTML")):
		return TextHTML
	default:
		return TextPlain
	}
}

func upper512(b []byte) []byte {
	return bytes.ToUpper(b)
}

func hasCaseInsensitivePrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	return bytes.EqualFold(b[:len(prefix)], prefix)
}

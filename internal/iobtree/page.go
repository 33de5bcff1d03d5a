package iobtree

import (
	"fmt"

	"github.com/standardbeagle/zindex/internal/codec"
)

// PageRef locates a page on disk: a (fileno, offset) pair, exactly the
// shape spec §4.3 uses for leaf sibling pointers and internal routing
// entries.
type PageRef struct {
	Fileno uint32
	Offset int64
}

// NilRef is the sentinel "no page" reference (used for "no sibling").
var NilRef = PageRef{Fileno: 0, Offset: -1}

func (r PageRef) isNil() bool { return r.Offset < 0 }

type pageTag byte

const (
	tagLeaf     pageTag = 0
	tagInternal pageTag = 1
)

// leafEntry is one (key-suffix, value-bytes) pair in a leaf page; the
// common prefix is stripped and stored once per page.
type leafEntry struct {
	suffix []byte
	value  []byte
}

// internalEntry is one (key-suffix, child) routing entry.
type internalEntry struct {
	suffix []byte
	child  PageRef
}

// page is the decoded, in-memory form of one on-disk page.
type page struct {
	ref      PageRef
	tag      pageTag
	prefix   []byte
	leaves   []leafEntry     // populated when tag == tagLeaf
	internal []internalEntry // populated when tag == tagInternal
	sibling  PageRef         // leaf-only; NilRef if none
	dirty    bool
}

func newLeaf(ref PageRef, prefix []byte) *page {
	return &page{ref: ref, tag: tagLeaf, prefix: prefix, sibling: NilRef, dirty: true}
}

func newInternal(ref PageRef, prefix []byte) *page {
	return &page{ref: ref, tag: tagInternal, prefix: prefix, dirty: true}
}

// fullKey reassembles the full key for a leaf/internal entry index.
func (p *page) fullLeafKey(i int) []byte {
	return append(append([]byte(nil), p.prefix...), p.leaves[i].suffix...)
}

func (p *page) fullInternalKey(i int) []byte {
	return append(append([]byte(nil), p.prefix...), p.internal[i].suffix...)
}

// encode serializes the page into a pagesize-sized buffer, zero-padded.
// Returns an error if the content does not fit.
func (p *page) encode(pagesize int) ([]byte, error) {
	buf := make([]byte, 0, pagesize)
	buf = append(buf, byte(p.tag))
	buf = codec.AppendVarbyte(buf, uint64(len(p.prefix)))
	buf = append(buf, p.prefix...)

	switch p.tag {
	case tagLeaf:
		buf = encodeSiblingFlag(buf, p.sibling)
		buf = codec.AppendVarbyte(buf, uint64(len(p.leaves)))
		for _, e := range p.leaves {
			buf = codec.AppendVarbyte(buf, uint64(len(e.suffix)))
			buf = append(buf, e.suffix...)
			buf = codec.AppendVarbyte(buf, uint64(len(e.value)))
			buf = append(buf, e.value...)
		}
	case tagInternal:
		buf = codec.AppendVarbyte(buf, uint64(len(p.internal)))
		for _, e := range p.internal {
			buf = codec.AppendVarbyte(buf, uint64(len(e.suffix)))
			buf = append(buf, e.suffix...)
			buf = codec.AppendVarbyte(buf, uint64(e.child.Fileno))
			buf = codec.AppendVarbyte(buf, uint64(e.child.Offset))
		}
	}

	if len(buf) > pagesize {
		return nil, fmt.Errorf("iobtree: encoded page is %d bytes, exceeds pagesize %d", len(buf), pagesize)
	}
	padded := make([]byte, pagesize)
	copy(padded, buf)
	return padded, nil
}

func encodeSiblingFlag(buf []byte, sib PageRef) []byte {
	if sib.isNil() {
		return append(buf, 0)
	}
	buf = append(buf, 1)
	buf = codec.AppendVarbyte(buf, uint64(sib.Fileno))
	buf = codec.AppendVarbyte(buf, uint64(sib.Offset))
	return buf
}

func decodePage(ref PageRef, buf []byte) (*page, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("iobtree: empty page buffer")
	}
	p := &page{ref: ref, tag: pageTag(buf[0]), sibling: NilRef}
	pos := 1

	prefixLen, n, err := codec.DecodeVarbyte(buf[pos:])
	if err != nil {
		return nil, fmt.Errorf("iobtree: decode prefix len: %w", err)
	}
	pos += n
	p.prefix = append([]byte(nil), buf[pos:pos+int(prefixLen)]...)
	pos += int(prefixLen)

	switch p.tag {
	case tagLeaf:
		hasSibling := buf[pos]
		pos++
		if hasSibling == 1 {
			fileno, n, err := codec.DecodeVarbyte(buf[pos:])
			if err != nil {
				return nil, fmt.Errorf("iobtree: decode sibling fileno: %w", err)
			}
			pos += n
			offset, n, err := codec.DecodeVarbyte(buf[pos:])
			if err != nil {
				return nil, fmt.Errorf("iobtree: decode sibling offset: %w", err)
			}
			pos += n
			p.sibling = PageRef{Fileno: uint32(fileno), Offset: int64(offset)}
		}
		count, n, err := codec.DecodeVarbyte(buf[pos:])
		if err != nil {
			return nil, fmt.Errorf("iobtree: decode leaf count: %w", err)
		}
		pos += n
		p.leaves = make([]leafEntry, 0, count)
		for i := uint64(0); i < count; i++ {
			suffixLen, n, err := codec.DecodeVarbyte(buf[pos:])
			if err != nil {
				return nil, fmt.Errorf("iobtree: decode suffix len: %w", err)
			}
			pos += n
			suffix := append([]byte(nil), buf[pos:pos+int(suffixLen)]...)
			pos += int(suffixLen)

			valueLen, n, err := codec.DecodeVarbyte(buf[pos:])
			if err != nil {
				return nil, fmt.Errorf("iobtree: decode value len: %w", err)
			}
			pos += n
			value := append([]byte(nil), buf[pos:pos+int(valueLen)]...)
			pos += int(valueLen)

			p.leaves = append(p.leaves, leafEntry{suffix: suffix, value: value})
		}
	case tagInternal:
		count, n, err := codec.DecodeVarbyte(buf[pos:])
		if err != nil {
			return nil, fmt.Errorf("iobtree: decode internal count: %w", err)
		}
		pos += n
		p.internal = make([]internalEntry, 0, count)
		for i := uint64(0); i < count; i++ {
			suffixLen, n, err := codec.DecodeVarbyte(buf[pos:])
			if err != nil {
				return nil, fmt.Errorf("iobtree: decode suffix len: %w", err)
			}
			pos += n
			suffix := append([]byte(nil), buf[pos:pos+int(suffixLen)]...)
			pos += int(suffixLen)

			fileno, n, err := codec.DecodeVarbyte(buf[pos:])
			if err != nil {
				return nil, fmt.Errorf("iobtree: decode child fileno: %w", err)
			}
			pos += n
			offset, n, err := codec.DecodeVarbyte(buf[pos:])
			if err != nil {
				return nil, fmt.Errorf("iobtree: decode child offset: %w", err)
			}
			pos += n

			p.internal = append(p.internal, internalEntry{suffix: suffix, child: PageRef{Fileno: uint32(fileno), Offset: int64(offset)}})
		}
	default:
		return nil, fmt.Errorf("iobtree: unknown page tag %d", p.tag)
	}

	return p, nil
}

package codec

import "fmt"

// ListType distinguishes the two posting list shapes.
type ListType byte

const (
	ListTypeDocwp  ListType = 1
	ListTypeImpact ListType = 2
)

// Location says whether a vector's bytes live inline in the
// vocabulary entry or out in a vector file.
type Location byte

const (
	LocationInline Location = 1
	LocationVector Location = 2
)

// VectorHeader is the self-delimiting prefix spec §4.2 describes:
// type-tag, location-tag, payload-size, f_t, F_t, then either the
// inline payload bytes or a (fileno, offset) pair.
type VectorHeader struct {
	Type        ListType
	Location    Location
	PayloadSize uint64
	Ft          uint64 // document frequency
	Ff          uint64 // collection frequency
	Inline      []byte // populated when Location == LocationInline
	Fileno      uint64 // populated when Location == LocationVector
	Offset      uint64
}

// Encode serializes the header to its wire form.
func (h VectorHeader) Encode() ([]byte, error) {
	if h.Location == LocationInline && uint64(len(h.Inline)) != h.PayloadSize {
		return nil, fmt.Errorf("codec: inline payload length %d does not match PayloadSize %d", len(h.Inline), h.PayloadSize)
	}
	buf := make([]byte, 0, 16+len(h.Inline))
	buf = append(buf, byte(h.Type), byte(h.Location))
	buf = AppendVarbyte(buf, h.PayloadSize)
	buf = AppendVarbyte(buf, h.Ft)
	buf = AppendVarbyte(buf, h.Ff)
	switch h.Location {
	case LocationInline:
		buf = append(buf, h.Inline...)
	case LocationVector:
		buf = AppendVarbyte(buf, h.Fileno)
		buf = AppendVarbyte(buf, h.Offset)
	default:
		return nil, fmt.Errorf("codec: unknown location tag %d", h.Location)
	}
	return buf, nil
}

// DecodeVectorHeader reads one VectorHeader from the front of buf and
// returns it together with the number of bytes consumed.
func DecodeVectorHeader(buf []byte) (VectorHeader, int, error) {
	var h VectorHeader
	if len(buf) < 2 {
		return h, 0, ErrTruncated
	}
	h.Type = ListType(buf[0])
	h.Location = Location(buf[1])
	pos := 2

	payloadSize, n, err := DecodeVarbyte(buf[pos:])
	if err != nil {
		return h, 0, fmt.Errorf("codec: decode payload size: %w", err)
	}
	pos += n
	h.PayloadSize = payloadSize

	ft, n, err := DecodeVarbyte(buf[pos:])
	if err != nil {
		return h, 0, fmt.Errorf("codec: decode f_t: %w", err)
	}
	pos += n
	h.Ft = ft

	ff, n, err := DecodeVarbyte(buf[pos:])
	if err != nil {
		return h, 0, fmt.Errorf("codec: decode F_t: %w", err)
	}
	pos += n
	h.Ff = ff

	switch h.Location {
	case LocationInline:
		if uint64(len(buf[pos:])) < payloadSize {
			return h, 0, ErrTruncated
		}
		h.Inline = append([]byte(nil), buf[pos:pos+int(payloadSize)]...)
		pos += int(payloadSize)
	case LocationVector:
		fileno, n, err := DecodeVarbyte(buf[pos:])
		if err != nil {
			return h, 0, fmt.Errorf("codec: decode fileno: %w", err)
		}
		pos += n
		h.Fileno = fileno
		offset, n, err := DecodeVarbyte(buf[pos:])
		if err != nil {
			return h, 0, fmt.Errorf("codec: decode offset: %w", err)
		}
		pos += n
		h.Offset = offset
	default:
		return h, 0, fmt.Errorf("%w: unknown location tag %d", ErrTruncated, h.Location)
	}
	return h, pos, nil
}

// EncodeHeaders concatenates multiple headers for the same term (the
// docwp and, in impact-ordered mode, impact headers spec's invariant 3
// allows to coexist under one vocabulary key).
func EncodeHeaders(headers ...VectorHeader) ([]byte, error) {
	var buf []byte
	for _, h := range headers {
		enc, err := h.Encode()
		if err != nil {
			return nil, err
		}
		buf = append(buf, enc...)
	}
	return buf, nil
}

// DecodeHeaders decodes a concatenated run of vector headers until buf
// is exhausted.
func DecodeHeaders(buf []byte) ([]VectorHeader, error) {
	var headers []VectorHeader
	for len(buf) > 0 {
		h, n, err := DecodeVectorHeader(buf)
		if err != nil {
			return nil, err
		}
		headers = append(headers, h)
		buf = buf[n:]
	}
	return headers, nil
}

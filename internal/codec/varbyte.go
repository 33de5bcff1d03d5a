// Package codec implements the wire format shared by postings lists
// and vocabulary entries: variable-byte integers and the self-
// delimiting vector header that describes a posting list's type,
// location, and summary statistics (spec §4.2).
//
// The alphabet here is binary, not textual, but it is deliberately
// shaped like the teacher tool's base-63 ID codec: small, dependency-
// free, sentinel-errored encode/decode pairs with an IsValid-style
// round-trip guarantee (decode(encode(x)) == x).
package codec

import "errors"

var (
	// ErrTruncated is returned when a varbyte sequence ends before its
	// continuation bit is set.
	ErrTruncated = errors.New("codec: truncated varbyte sequence")
	// ErrOverflow is returned when a decoded value would not fit in
	// the 56-bit range spec.md guarantees round-trips for.
	ErrOverflow = errors.New("codec: varbyte value overflows 56 bits")
)

const maxVarbyteValue = 1<<56 - 1

// AppendVarbyte appends the variable-byte big-endian encoding of v to
// dst and returns the extended slice. Encoding is seven bits per byte
// with the continuation/terminal bit in the top bit of the final byte;
// zero encodes as the single byte 0x80.
func AppendVarbyte(dst []byte, v uint64) []byte {
	if v == 0 {
		return append(dst, 0x80)
	}

	var tmp [9]byte
	n := 0
	for v > 0 {
		tmp[n] = byte(v & 0x7f)
		v >>= 7
		n++
	}
	// tmp holds little-endian 7-bit groups; emit big-endian with the
	// terminal bit set on the last byte written.
	for i := n - 1; i > 0; i-- {
		dst = append(dst, tmp[i])
	}
	dst = append(dst, tmp[0]|0x80)
	return dst
}

// EncodeVarbyte returns the standalone encoding of v.
func EncodeVarbyte(v uint64) []byte {
	return AppendVarbyte(nil, v)
}

// DecodeVarbyte reads one variable-byte integer from the front of buf
// and returns its value together with the number of bytes consumed.
func DecodeVarbyte(buf []byte) (uint64, int, error) {
	var v uint64
	for i, b := range buf {
		if i == 8 && b&0x7f != 0 {
			return 0, 0, ErrOverflow
		}
		v = (v << 7) | uint64(b&0x7f)
		if b&0x80 != 0 {
			if v > maxVarbyteValue {
				return 0, 0, ErrOverflow
			}
			return v, i + 1, nil
		}
	}
	return 0, 0, ErrTruncated
}

// VarbyteLen returns the number of bytes AppendVarbyte would emit for v,
// without allocating.
func VarbyteLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

package iobtree

// CommonPrefix implements the "common_prefix" split-key algorithm of
// spec §4.3: given two adjacent sorted keys lo <= hi, produce the
// shortest discriminator d with lo <= d < hi that is prefixed by their
// shared prefix — preferring (last shared byte + 1) when the keys
// differ by more than one in that position.
func CommonPrefix(lo, hi []byte) ([]byte, bool) {
	if Compare(lo, hi) >= 0 {
		return nil, false
	}
	n := len(lo)
	if len(hi) < n {
		n = len(hi)
	}
	shared := 0
	for shared < n && lo[shared] == hi[shared] {
		shared++
	}

	if shared == len(lo) {
		// lo is a strict prefix of hi: lo itself is already < hi and
		// a valid, shortest discriminator.
		d := append([]byte(nil), lo...)
		return d, true
	}

	// First differing position: bump lo's byte there by one if that
	// stays below hi, producing the tightest discriminator.
	d := append([]byte(nil), lo[:shared+1]...)
	if d[shared] == 0xff {
		// Cannot increment in place; fall back to the full lo prefix
		// plus hi's differing byte minus nothing (rare, only at 0xff).
		d = append([]byte(nil), lo...)
		return d, true
	}
	d[shared]++
	if Compare(d, hi) >= 0 {
		// Bumping overshot hi (only possible if d == hi exactly);
		// widen by one more original byte from lo.
		d = append([]byte(nil), lo...)
	}
	return d, true
}

// SplitTerm implements the "split_term" midpoint-biased discriminator
// of spec §4.3: first differing position, with
// lastchar = ceil((lo[p]+hi[p]+1)/2); when one key is a prefix of the
// other, extend by one byte at ceil(byte/2); returns false if lo==hi
// (split impossible). Where that rule would yield hi itself, lo is
// returned instead, so the result satisfies lo <= d < hi like
// CommonPrefix's.
func SplitTerm(lo, hi []byte) ([]byte, bool) {
	n := len(lo)
	if len(hi) < n {
		n = len(hi)
	}
	p := 0
	for p < n && lo[p] == hi[p] {
		p++
	}

	if p == len(lo) && p == len(hi) {
		return nil, false // identical keys
	}
	if p == len(lo) {
		// lo is a prefix of hi: extend with half of hi's next byte.
		d := append([]byte(nil), lo...)
		d = append(d, byte((int(hi[p])+1)/2))
		if Compare(d, hi) >= 0 {
			d = append([]byte(nil), lo...)
		}
		return d, true
	}
	if p == len(hi) {
		// hi is a prefix of lo: cannot split below hi by extending lo;
		// the tight upper bound is hi itself shortened, i.e. no legal
		// discriminator strictly less than hi exists beyond hi's own
		// bytes. Degenerate case per spec: extend hi by half of lo's
		// next byte, which still sits below lo and >= hi's prefix.
		d := append([]byte(nil), hi...)
		d = append(d, byte((int(lo[p])+1)/2))
		return d, true
	}

	d := append([]byte(nil), lo[:p]...)
	last := (int(lo[p]) + int(hi[p]) + 1) / 2
	d = append(d, byte(last))
	if Compare(d, hi) >= 0 {
		d = append([]byte(nil), lo...)
	}
	return d, true
}

// Compare is raw byte-lexicographic comparison, the vocabulary's sort
// order per spec invariant 6.
func Compare(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

package codec

import "fmt"

// Posting is one decoded (docno, term-frequency) pair from a docwp
// list.
type Posting struct {
	Docno uint32
	TF    uint32
}

// EncodeDocwp encodes a docwp posting list: [first-docno, tf0, gap1,
// tf1, ...]. postings must be sorted by strictly increasing Docno
// (invariant 1 in spec §3).
func EncodeDocwp(postings []Posting) ([]byte, error) {
	if len(postings) == 0 {
		return nil, nil
	}
	buf := make([]byte, 0, len(postings)*3)
	buf = AppendVarbyte(buf, uint64(postings[0].Docno))
	buf = AppendVarbyte(buf, uint64(postings[0].TF))
	last := postings[0].Docno
	for _, p := range postings[1:] {
		if p.Docno <= last {
			return nil, fmt.Errorf("codec: docwp postings must be strictly increasing, got %d after %d", p.Docno, last)
		}
		buf = AppendVarbyte(buf, uint64(p.Docno-last))
		buf = AppendVarbyte(buf, uint64(p.TF))
		last = p.Docno
	}
	return buf, nil
}

// DecodeDocwp decodes a docwp posting list produced by EncodeDocwp.
func DecodeDocwp(buf []byte) ([]Posting, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	var postings []Posting
	docno, n, err := DecodeVarbyte(buf)
	if err != nil {
		return nil, fmt.Errorf("codec: decode first docno: %w", err)
	}
	buf = buf[n:]
	tf, n, err := DecodeVarbyte(buf)
	if err != nil {
		return nil, fmt.Errorf("codec: decode first tf: %w", err)
	}
	buf = buf[n:]
	postings = append(postings, Posting{Docno: uint32(docno), TF: uint32(tf)})
	last := docno

	for len(buf) > 0 {
		gap, n, err := DecodeVarbyte(buf)
		if err != nil {
			return nil, fmt.Errorf("codec: decode gap: %w", err)
		}
		buf = buf[n:]
		tf, n, err := DecodeVarbyte(buf)
		if err != nil {
			return nil, fmt.Errorf("codec: decode tf: %w", err)
		}
		buf = buf[n:]
		last += gap
		postings = append(postings, Posting{Docno: uint32(last), TF: uint32(tf)})
	}
	return postings, nil
}

// ImpactRun is one (impact, docnos) group in an impact-ordered list.
type ImpactRun struct {
	Impact uint32
	Docnos []uint32 // strictly increasing within the run
}

// EncodeImpact encodes an impact-ordered list: groups of
// [impact, count, first-docno, gap1, ..., gapN], terminated by an
// impact==0 sentinel byte. runs must be ordered impact descending.
func EncodeImpact(runs []ImpactRun) ([]byte, error) {
	var buf []byte
	for _, run := range runs {
		if run.Impact == 0 {
			return nil, fmt.Errorf("codec: impact run with impact 0 is reserved as the terminator")
		}
		if len(run.Docnos) == 0 {
			continue
		}
		buf = AppendVarbyte(buf, uint64(run.Impact))
		buf = AppendVarbyte(buf, uint64(len(run.Docnos)))
		buf = AppendVarbyte(buf, uint64(run.Docnos[0]))
		last := run.Docnos[0]
		for _, d := range run.Docnos[1:] {
			if d <= last {
				return nil, fmt.Errorf("codec: impact run docnos must be strictly increasing")
			}
			buf = AppendVarbyte(buf, uint64(d-last))
			last = d
		}
	}
	buf = AppendVarbyte(buf, 0)
	return buf, nil
}

// DecodeImpact decodes an impact-ordered list produced by EncodeImpact.
func DecodeImpact(buf []byte) ([]ImpactRun, error) {
	var runs []ImpactRun
	for len(buf) > 0 {
		impact, n, err := DecodeVarbyte(buf)
		if err != nil {
			return nil, fmt.Errorf("codec: decode impact: %w", err)
		}
		buf = buf[n:]
		if impact == 0 {
			return runs, nil
		}
		count, n, err := DecodeVarbyte(buf)
		if err != nil {
			return nil, fmt.Errorf("codec: decode run count: %w", err)
		}
		buf = buf[n:]
		docnos := make([]uint32, 0, count)
		first, n, err := DecodeVarbyte(buf)
		if err != nil {
			return nil, fmt.Errorf("codec: decode first docno: %w", err)
		}
		buf = buf[n:]
		docnos = append(docnos, uint32(first))
		last := first
		for i := uint64(1); i < count; i++ {
			gap, n, err := DecodeVarbyte(buf)
			if err != nil {
				return nil, fmt.Errorf("codec: decode gap: %w", err)
			}
			buf = buf[n:]
			last += gap
			docnos = append(docnos, uint32(last))
		}
		runs = append(runs, ImpactRun{Impact: uint32(impact), Docnos: docnos})
	}
	return nil, fmt.Errorf("codec: impact list missing terminating zero impact")
}

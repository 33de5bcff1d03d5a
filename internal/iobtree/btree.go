// Package iobtree implements the paged, prefix-compressed B+tree used
// as the on-disk vocabulary structure (spec §4.3): terms map to
// vector-header bytes, pages are written through the shared fdset
// descriptor pool, and leaves are threaded with sibling pointers so a
// range scan never has to revisit internal pages.
//
// Locking: Insert holds the tree's write lock for its whole descent;
// Find and IterateFrom take the same exclusive lock, because every
// page they visit goes through the shared page cache, which reorders
// its LRU list and may evict (and write back) pages on a miss.
//
// Routing: a key equal to a separator belongs to the left child, so a
// split separator d must satisfy lo <= d < hi (see CommonPrefix).
package iobtree

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/standardbeagle/zindex/internal/codec"
	"github.com/standardbeagle/zindex/internal/fdset"
	"github.com/standardbeagle/zindex/internal/zerrors"
)

// SplitAlgo selects which discriminator algorithm Insert uses when a
// page overflows and must be split.
type SplitAlgo int

const (
	SplitCommonPrefix SplitAlgo = iota
	SplitTermMid
)

// Btree is one on-disk vocabulary tree: a root page reference plus the
// paged store and in-memory cache backing it.
type Btree struct {
	store    *Store
	cache    *cache
	mu       sync.RWMutex
	root     PageRef
	metaRef  PageRef
	size     int
	splitFn  func(lo, hi []byte) ([]byte, bool)
}

const metaMagic = 0x4b // single-byte marker distinguishing a meta page from a data page

// New creates a brand-new, empty tree backed by store.
func New(store *Store, cacheCapacity int, algo SplitAlgo) (*Btree, error) {
	bt := &Btree{store: store, cache: newCache(store, cacheCapacity)}
	bt.setSplitAlgo(algo)

	metaRef, err := store.AllocPage()
	if err != nil {
		return nil, err
	}
	rootRef, err := store.AllocPage()
	if err != nil {
		return nil, err
	}
	bt.metaRef = metaRef
	bt.root = rootRef

	root := newLeaf(rootRef, nil)
	if err := bt.cache.put(root); err != nil {
		return nil, err
	}
	bt.cache.markDirty(root)

	if err := bt.persistMeta(); err != nil {
		return nil, err
	}
	return bt, nil
}

// Open reopens a tree previously built with New, reading the root
// pointer back from the fixed meta page.
func Open(store *Store, cacheCapacity int, algo SplitAlgo) (*Btree, error) {
	bt := &Btree{store: store, cache: newCache(store, cacheCapacity)}
	bt.setSplitAlgo(algo)

	metaRef := PageRef{Fileno: 0, Offset: 0}
	buf, err := store.readRaw(metaRef)
	if err != nil {
		return nil, err
	}
	info, err := decodeMeta(buf)
	if err != nil {
		return nil, err
	}
	bt.metaRef = metaRef
	bt.root = info.root
	bt.size = info.size
	store.Reopen(fdset.FileNo(info.allocFile), info.allocOff)
	return bt, nil
}

func (bt *Btree) setSplitAlgo(algo SplitAlgo) {
	if algo == SplitTermMid {
		bt.splitFn = SplitTerm
	} else {
		bt.splitFn = CommonPrefix
	}
}

// Size returns the number of keys currently stored.
func (bt *Btree) Size() int {
	bt.mu.RLock()
	defer bt.mu.RUnlock()
	return bt.size
}

// Stats summarizes basic tree shape, useful for the CLI's -s reporting.
type Stats struct {
	Keys int
}

func (bt *Btree) Stats() Stats {
	bt.mu.RLock()
	defer bt.mu.RUnlock()
	return Stats{Keys: bt.size}
}

// Flush writes back all dirty cached pages and the meta page.
func (bt *Btree) Flush() error {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	if err := bt.cache.flush(); err != nil {
		return err
	}
	return bt.persistMeta()
}

func (bt *Btree) page(ref PageRef) (*page, error) {
	return bt.cache.get(ref)
}

// Find looks up key and returns its stored value.
func (bt *Btree) Find(key []byte) ([]byte, bool, error) {
	bt.mu.Lock()
	defer bt.mu.Unlock()

	ref := bt.root
	for {
		p, err := bt.page(ref)
		if err != nil {
			return nil, false, err
		}
		if p.tag == tagLeaf {
			idx, found := findLeafIndex(p, key)
			if !found {
				return nil, false, nil
			}
			return append([]byte(nil), p.leaves[idx].value...), true, nil
		}
		ref = p.internal[findChildIndex(p, key)].child
	}
}

func findChildIndex(p *page, key []byte) int {
	idx := 0
	for i := 1; i < len(p.internal); i++ {
		if Compare(key, p.internal[i].suffix) > 0 {
			idx = i
		} else {
			break
		}
	}
	return idx
}

// findLeafIndex returns the position of key in p's entries if present,
// else the index of the first entry whose full key is >= key (the
// correct insertion/iteration-start point). It compares full
// reconstructed keys rather than assuming key shares p's stored
// prefix, since a sought key can legitimately fall entirely below or
// above this leaf's range.
func findLeafIndex(p *page, key []byte) (int, bool) {
	for i := range p.leaves {
		c := Compare(key, p.fullLeafKey(i))
		if c == 0 {
			return i, true
		}
		if c < 0 {
			return i, false
		}
	}
	return len(p.leaves), false
}

// Insert stores value under key, replacing any existing value.
func (bt *Btree) Insert(key, value []byte) error {
	bt.mu.Lock()
	defer bt.mu.Unlock()

	if len(key) > bt.store.pagesize/2 {
		return zerrors.New(zerrors.KindInvalidArgument, "iobtree.insert", fmt.Errorf("key length %d cannot fit a page of size %d", len(key), bt.store.pagesize))
	}

	split, grew, err := bt.insertInto(bt.root, key, value)
	if err != nil {
		return err
	}
	if grew {
		bt.size++
	}
	if split != nil {
		newRootRef, err := bt.store.AllocPage()
		if err != nil {
			return err
		}
		newRoot := newInternal(newRootRef, nil)
		newRoot.internal = []internalEntry{
			{suffix: nil, child: bt.root},
			{suffix: split.separator, child: split.ref},
		}
		if err := bt.cache.put(newRoot); err != nil {
			return err
		}
		bt.cache.markDirty(newRoot)
		bt.root = newRootRef
	}
	return bt.persistMeta()
}

type splitResult struct {
	separator []byte
	ref       PageRef
}

func (bt *Btree) insertInto(ref PageRef, key, value []byte) (*splitResult, bool, error) {
	p, err := bt.page(ref)
	if err != nil {
		return nil, false, err
	}

	if p.tag == tagLeaf {
		return bt.insertLeaf(p, key, value)
	}

	childIdx := findChildIndex(p, key)
	childRef := p.internal[childIdx].child
	split, grew, err := bt.insertInto(childRef, key, value)
	if err != nil {
		return nil, false, err
	}
	if split == nil {
		return nil, grew, nil
	}

	entry := internalEntry{suffix: split.separator, child: split.ref}
	insertAt := childIdx + 1
	p.internal = append(p.internal, internalEntry{})
	copy(p.internal[insertAt+1:], p.internal[insertAt:])
	p.internal[insertAt] = entry
	bt.cache.markDirty(p)

	if _, err := p.encode(bt.store.pagesize); err == nil {
		return nil, grew, nil
	}
	sr, err := bt.splitInternal(p)
	if err != nil {
		return nil, false, err
	}
	return sr, grew, nil
}

func (bt *Btree) insertLeaf(p *page, key, value []byte) (*splitResult, bool, error) {
	newPrefixLen := sharedPrefixLen(p.prefix, key)
	if newPrefixLen < len(p.prefix) {
		widenLeafPrefix(p, newPrefixLen)
	}
	suffix := append([]byte(nil), key[newPrefixLen:]...)

	idx := 0
	grew := true
	for ; idx < len(p.leaves); idx++ {
		c := bytes.Compare(suffix, p.leaves[idx].suffix)
		if c == 0 {
			p.leaves[idx].value = append([]byte(nil), value...)
			grew = false
			break
		}
		if c < 0 {
			break
		}
	}
	if grew {
		p.leaves = append(p.leaves, leafEntry{})
		copy(p.leaves[idx+1:], p.leaves[idx:])
		p.leaves[idx] = leafEntry{suffix: suffix, value: append([]byte(nil), value...)}
	}
	bt.cache.markDirty(p)

	if _, err := p.encode(bt.store.pagesize); err == nil {
		return nil, grew, nil
	}

	sr, err := bt.splitLeaf(p)
	if err != nil {
		return nil, false, err
	}
	return sr, grew, nil
}

func sharedPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

func widenLeafPrefix(p *page, newLen int) {
	dropped := p.prefix[newLen:]
	for i := range p.leaves {
		p.leaves[i].suffix = append(append([]byte(nil), dropped...), p.leaves[i].suffix...)
	}
	p.prefix = append([]byte(nil), p.prefix[:newLen]...)
}

func (bt *Btree) splitLeaf(p *page) (*splitResult, error) {
	mid := len(p.leaves) / 2
	if mid == 0 {
		mid = 1
	}
	rightRef, err := bt.store.AllocPage()
	if err != nil {
		return nil, err
	}

	leftEntries := p.leaves[:mid]
	rightEntries := append([]leafEntry(nil), p.leaves[mid:]...)

	leftFull := make([][]byte, len(leftEntries))
	for i, e := range leftEntries {
		leftFull[i] = append(append([]byte(nil), p.prefix...), e.suffix...)
	}
	rightFull := make([][]byte, len(rightEntries))
	for i, e := range rightEntries {
		rightFull[i] = append(append([]byte(nil), p.prefix...), e.suffix...)
	}

	separator, ok := bt.splitFn(leftFull[len(leftFull)-1], rightFull[0])
	if !ok {
		separator = append([]byte(nil), leftFull[len(leftFull)-1]...)
	}

	right := newLeaf(rightRef, nil)
	right.prefix, right.leaves = rebase(rightFull, rightEntries)
	right.sibling = p.sibling

	p.prefix, p.leaves = rebase(leftFull, leftEntries)
	p.sibling = rightRef

	if err := bt.cache.put(right); err != nil {
		return nil, err
	}
	bt.cache.markDirty(right)
	bt.cache.markDirty(p)

	return &splitResult{separator: separator, ref: rightRef}, nil
}

// rebase recomputes a page's shared prefix over its own (post-split)
// keys and re-derives each entry's stored suffix against it.
func rebase(full [][]byte, entries []leafEntry) ([]byte, []leafEntry) {
	prefix := commonPrefixOfAll(full)
	out := make([]leafEntry, len(entries))
	for i, e := range entries {
		out[i] = leafEntry{suffix: append([]byte(nil), full[i][len(prefix):]...), value: e.value}
	}
	return prefix, out
}

func commonPrefixOfAll(keys [][]byte) []byte {
	if len(keys) == 0 {
		return nil
	}
	prefix := append([]byte(nil), keys[0]...)
	for _, k := range keys[1:] {
		n := sharedPrefixLen(prefix, k)
		prefix = prefix[:n]
		if len(prefix) == 0 {
			break
		}
	}
	return prefix
}

func (bt *Btree) splitInternal(p *page) (*splitResult, error) {
	mid := len(p.internal) / 2
	if mid == 0 {
		mid = 1
	}
	rightRef, err := bt.store.AllocPage()
	if err != nil {
		return nil, err
	}

	rightEntries := append([]internalEntry(nil), p.internal[mid:]...)
	separator := append([]byte(nil), rightEntries[0].suffix...)
	rightEntries[0] = internalEntry{suffix: nil, child: rightEntries[0].child}

	right := newInternal(rightRef, nil)
	right.internal = rightEntries

	p.internal = p.internal[:mid]

	if err := bt.cache.put(right); err != nil {
		return nil, err
	}
	bt.cache.markDirty(right)
	bt.cache.markDirty(p)

	return &splitResult{separator: separator, ref: rightRef}, nil
}

// IterateFrom walks keys in ascending order starting at the first key
// >= from (or the whole tree if from is nil), calling fn for each
// (key, value) pair until fn returns false or iteration completes.
func (bt *Btree) IterateFrom(from []byte, fn func(key, value []byte) bool) error {
	bt.mu.Lock()
	defer bt.mu.Unlock()

	ref := bt.root
	var leaf *page
	for {
		p, err := bt.page(ref)
		if err != nil {
			return err
		}
		if p.tag == tagLeaf {
			leaf = p
			break
		}
		ref = p.internal[findChildIndex(p, from)].child
	}

	startIdx := 0
	if from != nil {
		idx, _ := findLeafIndex(leaf, from)
		startIdx = idx
	}

	for leaf != nil {
		for i := startIdx; i < len(leaf.leaves); i++ {
			key := leaf.fullLeafKey(i)
			if !fn(key, leaf.leaves[i].value) {
				return nil
			}
		}
		if leaf.sibling.isNil() {
			break
		}
		next, err := bt.page(leaf.sibling)
		if err != nil {
			return err
		}
		leaf = next
		startIdx = 0
	}
	return nil
}

type metaInfo struct {
	root       PageRef
	size       int
	allocFile  uint32
	allocOff   int64
}

func decodeMeta(buf []byte) (metaInfo, error) {
	pos := 0
	fields := make([]uint64, 6)
	for i := range fields {
		v, n, err := codec.DecodeVarbyte(buf[pos:])
		if err != nil {
			return metaInfo{}, fmt.Errorf("iobtree: decode meta field %d: %w", i, err)
		}
		fields[i] = v
		pos += n
	}
	if fields[0] != metaMagic {
		return metaInfo{}, fmt.Errorf("iobtree: bad meta magic %d", fields[0])
	}
	return metaInfo{
		root:      PageRef{Fileno: uint32(fields[1]), Offset: int64(fields[2])},
		size:      int(fields[3]),
		allocFile: uint32(fields[4]),
		allocOff:  int64(fields[5]),
	}, nil
}

func (bt *Btree) persistMeta() error {
	allocFile, allocOff := bt.store.allocState()
	buf := make([]byte, 0, bt.store.pagesize)
	buf = codec.AppendVarbyte(buf, metaMagic)
	buf = codec.AppendVarbyte(buf, uint64(bt.root.Fileno))
	buf = codec.AppendVarbyte(buf, uint64(bt.root.Offset))
	buf = codec.AppendVarbyte(buf, uint64(bt.size))
	buf = codec.AppendVarbyte(buf, uint64(allocFile))
	buf = codec.AppendVarbyte(buf, uint64(allocOff))

	return bt.store.writeRaw(bt.metaRef, buf)
}

// Package fdset implements the typed, pinnable file-descriptor pool
// described in spec §4.1: clients register named file-type templates,
// ask for descriptors by (type, fileno), and the pool enforces a
// process-wide limit via a clock-approximation LRU. Both the
// vocabulary pager and the query-time repository/vector readers go
// through one FdSet per loaded index.
//
// Bookkeeping is one mutex-guarded clock slice of live entries plus a
// map from (type, fileno) to entry; no pooling or other concurrency
// primitive is involved.
package fdset

import (
	"fmt"
	"os"
	"sync"

	"github.com/standardbeagle/zindex/internal/zerrors"
)

// TypeNo identifies a registered file-type template, e.g. the
// vocabulary B+tree pages, a vector-file partition, or a repository
// partition.
type TypeNo uint32

// FileNo partitions a type across multiple bounded-size files.
type FileNo uint32

// pinnedForever marks an entry's counter as never eligible for clock
// eviction while pinned.
const pinnedForever = -1

// defaultUnpinCounter is the countdown value unpin resets an entry to,
// matching spec §4.1's "counter = default (e.g. 3)".
const defaultUnpinCounter = 3

type typeReg struct {
	template string
	writable bool
}

type override struct {
	path     string
	writable bool
}

type key struct {
	typ  TypeNo
	file FileNo
}

type entry struct {
	key     key
	f       *os.File
	counter int // pinnedForever while pinned, else clock countdown
	pins    int // number of outstanding Pin callers sharing this fd
}

// FdSet is the process-wide descriptor pool. Zero value is not usable;
// construct with New.
type FdSet struct {
	mu        sync.Mutex
	limit     int
	types     map[TypeNo]typeReg
	overrides map[key]override
	byKey     map[key]*entry
	clock     []*entry
	clockPos  int
}

// New creates an FdSet enforcing at most limit simultaneously open
// descriptors.
func New(limit int) *FdSet {
	return &FdSet{
		limit:     limit,
		types:     make(map[TypeNo]typeReg),
		overrides: make(map[key]override),
		byKey:     make(map[key]*entry),
	}
}

// RegisterType names a filename template with a single "%u"
// substitution for fileno, e.g. "P.v.%u".
func (s *FdSet) RegisterType(typ TypeNo, template string, writable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.types[typ]; exists {
		return zerrors.New(zerrors.KindConflictingState, "fdset.register_type", fmt.Errorf("type %d already registered", typ))
	}
	s.types[typ] = typeReg{template: template, writable: writable}
	return nil
}

// OverrideName pins a specific (type, fileno) to an explicit path
// instead of the type's template, e.g. for the single parameters file.
func (s *FdSet) OverrideName(typ TypeNo, file FileNo, path string, writable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{typ, file}
	if existing, exists := s.overrides[k]; exists && existing.path != path {
		return zerrors.New(zerrors.KindConflictingState, "fdset.override_name", fmt.Errorf("(type %d, file %d) already overridden to %q", typ, file, existing.path)).WithPath(path)
	}
	s.overrides[k] = override{path: path, writable: writable}
	return nil
}

func (s *FdSet) pathFor(typ TypeNo, file FileNo) (path string, writable bool, err error) {
	if ov, ok := s.overrides[key{typ, file}]; ok {
		return ov.path, ov.writable, nil
	}
	reg, ok := s.types[typ]
	if !ok {
		return "", false, zerrors.New(zerrors.KindInvalidArgument, "fdset.path_for", fmt.Errorf("type %d not registered", typ))
	}
	return fmt.Sprintf(reg.template, uint32(file)), reg.writable, nil
}

// Create opens a brand-new file for (type, fileno) with O_CREAT|O_EXCL
// and pins the returned descriptor.
func (s *FdSet) Create(typ TypeNo, file FileNo) (*os.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, _, err := s.pathFor(typ, file)
	if err != nil {
		return nil, err
	}
	if _, exists := s.byKey[key{typ, file}]; exists {
		return nil, zerrors.New(zerrors.KindConflictingState, "fdset.create", fmt.Errorf("file already open")).WithPath(path)
	}
	// Make room before creating the file, so a saturated pool does not
	// leave an unregistered file behind that a retry would trip over.
	if s.limit > 0 && len(s.clock) >= s.limit {
		if err := s.evictVictim(); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if err != nil {
		return nil, zerrors.New(zerrors.KindIOUnavailable, "fdset.create", err).WithPath(path)
	}
	e := &entry{key: key{typ, file}, f: f, counter: pinnedForever, pins: 1}
	if err := s.admit(e); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// Pin opens (if needed), seeks to offset/whence, and returns the
// descriptor for (type, fileno). Pinned descriptors are never
// evicted until a matching Unpin.
func (s *FdSet) Pin(typ TypeNo, file FileNo, offset int64, whence int) (*os.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{typ, file}
	e, ok := s.byKey[k]
	if !ok {
		path, writable, err := s.pathFor(typ, file)
		if err != nil {
			return nil, err
		}
		flag := os.O_RDONLY
		if writable {
			flag = os.O_RDWR
		}
		f, err := s.openWithEviction(path, flag)
		if err != nil {
			return nil, err
		}
		e = &entry{key: k, f: f}
		if err := s.admit(e); err != nil {
			f.Close()
			return nil, err
		}
	}
	e.counter = pinnedForever
	e.pins++
	if _, err := e.f.Seek(offset, whence); err != nil {
		return nil, zerrors.New(zerrors.KindIOUnavailable, "fdset.pin", err)
	}
	return e.f, nil
}

// Unpin returns a previously pinned descriptor to the LRU pool. It is
// a no-op if fd does not match the tracked entry for (type, fileno).
func (s *FdSet) Unpin(typ TypeNo, file FileNo, fd *os.File) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byKey[key{typ, file}]
	if !ok || e.f != fd {
		return
	}
	e.pins--
	if e.pins <= 0 {
		e.pins = 0
		e.counter = defaultUnpinCounter
	}
}

// CloseFile closes all open descriptors for (type, fileno). It
// refuses if the file is currently pinned.
func (s *FdSet) CloseFile(typ TypeNo, file FileNo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeFileLocked(typ, file)
}

func (s *FdSet) closeFileLocked(typ TypeNo, file FileNo) error {
	k := key{typ, file}
	e, ok := s.byKey[k]
	if !ok {
		return nil
	}
	if e.pins > 0 {
		return zerrors.New(zerrors.KindConflictingState, "fdset.close_file", fmt.Errorf("file is pinned"))
	}
	s.evictLocked(e)
	return nil
}

// Unlink closes the file (refusing if pinned) and removes the
// underlying path from disk.
func (s *FdSet) Unlink(typ TypeNo, file FileNo) error {
	s.mu.Lock()
	path, _, err := s.pathFor(typ, file)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if closeErr := s.closeFileLocked(typ, file); closeErr != nil {
		s.mu.Unlock()
		return closeErr
	}
	s.mu.Unlock()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return zerrors.New(zerrors.KindIOUnavailable, "fdset.unlink", err).WithPath(path)
	}
	return nil
}

// OpenCount returns the number of currently open descriptors, for
// tests and §8's "|open fds| <= limit" invariant.
func (s *FdSet) OpenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clock)
}

// PinnedCount returns the number of currently pinned descriptors.
func (s *FdSet) PinnedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.clock {
		if e.counter == pinnedForever {
			n++
		}
	}
	return n
}

// Close closes every remaining descriptor, pinned or not. Intended for
// index-destroy teardown, not ordinary operation.
func (s *FdSet) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range append([]*entry(nil), s.clock...) {
		s.evictLocked(e)
	}
}

// admit adds a freshly opened entry to the clock array, evicting a
// victim first if the pool is already at limit.
func (s *FdSet) admit(e *entry) error {
	if s.limit > 0 && len(s.clock) >= s.limit {
		if err := s.evictVictim(); err != nil {
			return err
		}
	}
	s.byKey[e.key] = e
	s.clock = append(s.clock, e)
	return nil
}

// openWithEviction opens path, first making room via the clock sweep
// if the pool is saturated.
func (s *FdSet) openWithEviction(path string, flag int) (*os.File, error) {
	if s.limit > 0 && len(s.clock) >= s.limit {
		if err := s.evictVictim(); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, zerrors.New(zerrors.KindIOUnavailable, "fdset.open", err).WithPath(path)
	}
	return f, nil
}

// evictVictim runs the clock sweep described in spec §4.1: visit
// entries cyclically from the last clock position; a zero-counter,
// unpinned entry is evicted; otherwise its counter is decremented.
// Repeat full sweeps until a victim is found or every entry is
// pinned, in which case the pool is exhausted.
func (s *FdSet) evictVictim() error {
	if len(s.clock) == 0 {
		return zerrors.New(zerrors.KindResourceExhausted, "fdset.evict", fmt.Errorf("pool has no entries to evict from limit %d", s.limit))
	}
	for {
		allPinned := true
		for i := 0; i < len(s.clock); i++ {
			pos := (s.clockPos + i) % len(s.clock)
			e := s.clock[pos]
			if e.counter == pinnedForever {
				continue
			}
			allPinned = false
			if e.counter <= 0 {
				s.clockPos = pos
				s.evictLocked(e)
				return nil
			}
			e.counter--
		}
		if allPinned {
			return zerrors.New(zerrors.KindResourceExhausted, "fdset.evict", fmt.Errorf("all %d descriptors pinned at limit %d", len(s.clock), s.limit))
		}
	}
}

// evictLocked removes e from the clock array and closes its fd. Caller
// holds s.mu.
func (s *FdSet) evictLocked(e *entry) {
	delete(s.byKey, e.key)
	for i, cand := range s.clock {
		if cand == e {
			s.clock = append(s.clock[:i], s.clock[i+1:]...)
			if s.clockPos > i {
				s.clockPos--
			}
			break
		}
	}
	e.f.Close()
}

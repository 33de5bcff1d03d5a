// Package index ties every other package together into the on-disk
// index lifecycle spec §3 names: Create, Load, Commit, Destroy. It
// owns the single fdset shared by the vocabulary tree, the document
// and vector repositories, and the docmap, and is the thing
// internal/build and cmd/zindex actually hold a reference to.
package index

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/standardbeagle/zindex/internal/codec"
	"github.com/standardbeagle/zindex/internal/config"
	"github.com/standardbeagle/zindex/internal/docmap"
	"github.com/standardbeagle/zindex/internal/fdset"
	"github.com/standardbeagle/zindex/internal/iobtree"
	"github.com/standardbeagle/zindex/internal/merge"
	"github.com/standardbeagle/zindex/internal/params"
	"github.com/standardbeagle/zindex/internal/repository"
	"github.com/standardbeagle/zindex/internal/stemmer"
	"github.com/standardbeagle/zindex/internal/stopwords"
	"github.com/standardbeagle/zindex/internal/zerrors"
)

// fdset type numbers, one per file family named in spec §3's "Index
// root" entity. TypeRun is reserved here (rather than inside
// internal/build) since it shares the same FdSet instance and must
// not collide with the others.
const (
	TypeVocab fdset.TypeNo = iota + 1
	TypeVector
	TypeDocRepo
	TypeDocmapIdx
	TypeDocmapData
	TypeRun
)

const pageSize = 8192
const vocabCacheCapacity = 256

const paramsFileName = "P.params"

// Index is one opened or freshly created index rooted at Dir.
type Index struct {
	Dir    string
	Fds    *fdset.FdSet
	Vocab  *iobtree.Btree
	Docmap *docmap.Docmap
	DocRepo *repository.Repository
	VecRepo *repository.Repository

	Params  params.Params
	Stemmer stemmer.Stemmer
	BuildStop *stopwords.List

	inlineThreshold int
}

func typePaths(dir string) map[fdset.TypeNo]string {
	return map[fdset.TypeNo]string{
		TypeVocab:      filepath.Join(dir, "P.vocab.%u"),
		TypeVector:     filepath.Join(dir, "P.vector.%u"),
		TypeDocRepo:    filepath.Join(dir, "P.repo.%u"),
		TypeDocmapIdx:  filepath.Join(dir, "P.docmap.idx.%u"),
		TypeDocmapData: filepath.Join(dir, "P.docmap.data.%u"),
		TypeRun:        filepath.Join(dir, "P.run.%u"),
	}
}

func registerTypes(fds *fdset.FdSet, dir string, writable bool) error {
	for typ, tmpl := range typePaths(dir) {
		if err := fds.RegisterType(typ, tmpl, writable); err != nil {
			return err
		}
	}
	return nil
}

// Create builds a brand-new, empty index at dir: parameters written,
// empty vocabulary, empty docmap, first empty repository/vector files
// allocated (spec §3's "Index creation" lifecycle step).
func Create(dir string, newOpts config.NewOptions) (*Index, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, zerrors.New(zerrors.KindIOUnavailable, "index.create.mkdir", err).WithPath(dir)
	}

	st, err := stemmer.New(stemmer.Identity(newOpts.Stemmer))
	if err != nil {
		return nil, err
	}
	var buildStop *stopwords.List
	if newOpts.BuildStopList != "" {
		buildStop, err = stopwords.Load(newOpts.BuildStopList)
		if err != nil {
			return nil, err
		}
	} else {
		buildStop = stopwords.None()
	}

	fds := fdset.New(newOpts.FdLimit)
	if err := registerTypes(fds, dir, true); err != nil {
		return nil, err
	}

	store := iobtree.NewStore(fds, TypeVocab, pageSize, newOpts.MaxFileSize)
	vocab, err := iobtree.New(store, vocabCacheCapacity, splitAlgoFor(newOpts))
	if err != nil {
		return nil, err
	}

	dm := docmap.New(fds, TypeDocmapIdx, TypeDocmapData, newOpts.MaxFileSize, docmap.CacheAll)
	docRepo := repository.New(fds, TypeDocRepo, newOpts.MaxFileSize)
	vecRepo := repository.New(fds, TypeVector, newOpts.MaxFileSize)

	p := params.Default()
	p.Stemmer = newOpts.Stemmer
	p.BuildStopList = newOpts.BuildStopList
	p.ImpactOrdered = newOpts.AnhImpact
	p.InlineThreshold = newOpts.InlineThreshold
	p.PyramidWidth = newOpts.PyramidWidth
	p.MaxFileBytes = newOpts.MaxFileSize
	if p.InlineThreshold <= 0 {
		p.InlineThreshold = 32
	}

	idx := &Index{
		Dir: dir, Fds: fds, Vocab: vocab, Docmap: dm,
		DocRepo: docRepo, VecRepo: vecRepo,
		Params: p, Stemmer: st, BuildStop: buildStop,
		inlineThreshold: p.InlineThreshold,
	}
	if err := idx.persistParams(); err != nil {
		return nil, err
	}
	return idx, nil
}

// Load reopens an existing index at dir (spec §3's "Load" lifecycle
// step): parameters read, vocabulary opened (read-only for query,
// read-write for append), docmap columns loaded per cache policy,
// fdset types registered.
func Load(dir string, loadOpts config.LoadOptions, writable bool) (*Index, error) {
	p, err := params.Load(filepath.Join(dir, paramsFileName))
	if err != nil {
		return nil, err
	}

	st, err := stemmer.New(stemmer.Identity(p.Stemmer))
	if err != nil {
		return nil, err
	}
	var buildStop *stopwords.List
	if p.BuildStopList != "" {
		buildStop, err = stopwords.Load(p.BuildStopList)
		if err != nil {
			return nil, err
		}
	} else {
		buildStop = stopwords.None()
	}

	fds := fdset.New(loadOpts.FdLimit)
	if err := registerTypes(fds, dir, writable); err != nil {
		return nil, err
	}

	store := iobtree.NewStore(fds, TypeVocab, pageSize, p.MaxFileBytes)
	vocab, err := iobtree.Open(store, loadOpts.VocabSize, splitAlgoFromParams(p))
	if err != nil {
		return nil, err
	}

	dm := docmap.New(fds, TypeDocmapIdx, TypeDocmapData, p.MaxFileBytes, loadOpts.DocmapCache)
	if err := dm.Reopen(p.DocCount, fdset.FileNo(p.DocmapDataFileno), p.DocmapDataOffset); err != nil {
		return nil, err
	}

	docRepo := repository.New(fds, TypeDocRepo, p.MaxFileBytes)
	docRepo.Reopen(fdset.FileNo(p.ContentFileno), p.ContentOffset)
	vecRepo := repository.New(fds, TypeVector, p.MaxFileBytes)
	vecRepo.Reopen(fdset.FileNo(p.VectorFileno), p.VectorOffset)

	return &Index{
		Dir: dir, Fds: fds, Vocab: vocab, Docmap: dm,
		DocRepo: docRepo, VecRepo: vecRepo,
		Params: p, Stemmer: st, BuildStop: buildStop,
		inlineThreshold: p.InlineThreshold,
	}, nil
}

func splitAlgoFor(o config.NewOptions) iobtree.SplitAlgo {
	return iobtree.SplitCommonPrefix
}

func splitAlgoFromParams(p params.Params) iobtree.SplitAlgo {
	if p.SplitAlgo == "split_term" {
		return iobtree.SplitTermMid
	}
	return iobtree.SplitCommonPrefix
}

// AppendDocument stores doc's bytes in the document repository and
// records a docmap entry under the next docno, returning it.
func (idx *Index) AppendDocument(entry docmap.Entry, content []byte) (int, error) {
	ptr, err := idx.DocRepo.Append(content)
	if err != nil {
		return 0, err
	}
	entry.Repo = ptr
	docno, err := idx.Docmap.Append(entry)
	if err != nil {
		return 0, err
	}
	idx.Params.TotalLength += uint64(entry.Length)
	return docno, nil
}

// Commit folds merged terms into the final vocabulary and vector
// files (spec §3's "Commit" lifecycle step): runs merged into final
// vocabulary and vector files; parameters updated; temporary runs
// deleted is the caller's job (internal/build unlinks its own run
// files once Commit returns successfully, since only it knows which
// fdset files backed them).
func (idx *Index) Commit(terms []merge.MergedTerm, anhImpact bool) error {
	for _, t := range terms {
		entryBuf, err := idx.encodeVocabEntry(t, anhImpact)
		if err != nil {
			return err
		}
		if err := idx.Vocab.Insert(t.Term, entryBuf); err != nil {
			return err
		}
	}
	if err := idx.Vocab.Flush(); err != nil {
		return err
	}
	return idx.persistParams()
}

func (idx *Index) encodeVocabEntry(t merge.MergedTerm, anhImpact bool) ([]byte, error) {
	docwpHeader, err := idx.buildHeader(codec.ListTypeDocwp, t.Postings, t.Ft, t.Ff)
	if err != nil {
		return nil, err
	}
	buf, err := docwpHeader.Encode()
	if err != nil {
		return nil, err
	}
	if !anhImpact {
		return buf, nil
	}

	postings, err := codec.DecodeDocwp(t.Postings)
	if err != nil {
		return nil, fmt.Errorf("index.commit: redecode postings for %q: %w", t.Term, err)
	}
	runs := merge.ImpactFromDocwp(postings, nil)
	impactBytes, err := codec.EncodeImpact(runs)
	if err != nil {
		return nil, err
	}
	impactHeader, err := idx.buildHeader(codec.ListTypeImpact, impactBytes, t.Ft, t.Ff)
	if err != nil {
		return nil, err
	}
	impactBuf, err := impactHeader.Encode()
	if err != nil {
		return nil, err
	}
	return append(buf, impactBuf...), nil
}

func (idx *Index) buildHeader(typ codec.ListType, payload []byte, ft, ff uint64) (codec.VectorHeader, error) {
	if len(payload) <= idx.inlineThreshold {
		return codec.VectorHeader{
			Type: typ, Location: codec.LocationInline,
			PayloadSize: uint64(len(payload)), Ft: ft, Ff: ff,
			Inline: payload,
		}, nil
	}
	ptr, err := idx.VecRepo.Append(payload)
	if err != nil {
		return codec.VectorHeader{}, err
	}
	return codec.VectorHeader{
		Type: typ, Location: codec.LocationVector,
		PayloadSize: uint64(ptr.Length), Ft: ft, Ff: ff,
		Fileno: uint64(ptr.Fileno), Offset: uint64(ptr.Offset),
	}, nil
}

// Lookup resolves term to its decoded vector headers, serving
// internal/planner.VocabLookup: copy the bytes out from under the
// tree's read lock, then decode outside it, matching spec §5's "find
// holds the lock only long enough to copy in-vocab bytes".
func (idx *Index) Lookup(term string) ([]codec.VectorHeader, bool, error) {
	raw, found, err := idx.Vocab.Find([]byte(term))
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	headers, err := DecodeHeaders(raw)
	if err != nil {
		return nil, false, err
	}
	return headers, true, nil
}

// DecodeHeaders reads every vector header packed into one vocabulary
// entry's value (one per list type present, per spec invariant 3).
func DecodeHeaders(buf []byte) ([]codec.VectorHeader, error) {
	var out []codec.VectorHeader
	for len(buf) > 0 {
		h, n, err := codec.DecodeVectorHeader(buf)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
		buf = buf[n:]
	}
	return out, nil
}

// ReadVector resolves a vector-file header's postings bytes, serving
// internal/ranker.VectorSource.
func (idx *Index) ReadVector(h codec.VectorHeader) ([]byte, error) {
	return idx.VecRepo.Retrieve(repository.Pointer{
		Fileno: uint32(h.Fileno), Offset: int64(h.Offset), Length: int64(h.PayloadSize),
	})
}

// Length and Weight adapt docmap's int-keyed accessors to
// internal/ranker.DocInfo's uint32 docnos.
func (idx *Index) Length(docno uint32) (uint32, error)  { return idx.Docmap.Length(int(docno)) }
func (idx *Index) Weight(docno uint32) (float64, error) { return idx.Docmap.Weight(int(docno)) }

// Collection reports the corpus-wide statistics the ranker's
// similarity measures are parameterized by.
func (idx *Index) Collection() Collection {
	n := idx.Docmap.Size()
	avgdl := 0.0
	if n > 0 {
		avgdl = float64(idx.Params.TotalLength) / float64(n)
	}
	return Collection{N: uint64(n), AvgDL: avgdl}
}

// Collection mirrors internal/ranker.Collection without importing it,
// so internal/index has no dependency on the ranker's API surface;
// cmd/zindex converts between the two at the call site.
type Collection struct {
	N     uint64
	AvgDL float64
}

func (idx *Index) persistParams() error {
	df, doff := idx.Docmap.DataPosition()
	idx.Params.DocCount = idx.Docmap.Size()
	idx.Params.DocmapDataFileno = uint32(df)
	idx.Params.DocmapDataOffset = doff

	cf, coff := idx.DocRepo.CurrentPosition()
	idx.Params.ContentFileno = uint32(cf)
	idx.Params.ContentOffset = coff

	vfn, voff := idx.VecRepo.CurrentPosition()
	idx.Params.VectorFileno = uint32(vfn)
	idx.Params.VectorOffset = voff

	return params.Save(filepath.Join(idx.Dir, paramsFileName), idx.Params)
}

// PersistProgress re-saves mutable state (docno count, repository
// allocation positions) without touching the vocabulary; the build
// pipeline calls this from Finish when there are no runs to merge and
// commit.
func (idx *Index) PersistProgress() error { return idx.persistParams() }

// Close releases every descriptor the index holds open, without
// touching any on-disk content (spec §3's "Destroy" lifecycle step:
// "all descriptors closed through fdset; no orphan temporaries").
func (idx *Index) Close() error {
	idx.Fds.Close()
	return nil
}

// Destroy closes the index and removes its entire directory. Used
// when a build fails partway and leaves no valid index behind (spec
// §7: "any error after a document's postings have been partially
// emitted causes the entire current batch to be discarded and the
// index unlinked; there is no partial commit").
func (idx *Index) Destroy() error {
	idx.Fds.Close()
	if err := os.RemoveAll(idx.Dir); err != nil {
		return zerrors.New(zerrors.KindIOUnavailable, "index.destroy", err).WithPath(idx.Dir)
	}
	return nil
}

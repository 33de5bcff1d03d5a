package build

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/standardbeagle/zindex/internal/accum"
	"github.com/standardbeagle/zindex/internal/config"
	"github.com/standardbeagle/zindex/internal/docmap"
	"github.com/standardbeagle/zindex/internal/fdset"
	"github.com/standardbeagle/zindex/internal/index"
	"github.com/standardbeagle/zindex/internal/logging"
	"github.com/standardbeagle/zindex/internal/merge"
	"github.com/standardbeagle/zindex/internal/mimetype"
	"github.com/standardbeagle/zindex/internal/run"
	"github.com/standardbeagle/zindex/internal/textparser"
	"github.com/standardbeagle/zindex/internal/zerrors"
)

// profileFor picks the textparser.Profile matching a sniffed MIME
// type, per spec §4.4's "also used to switch parser-setting profiles".
func profileFor(t mimetype.Type) textparser.Profile {
	switch t {
	case mimetype.ApplicationTREC:
		return textparser.TREC
	case mimetype.ApplicationINEX:
		return textparser.INEX
	case mimetype.TextHTML:
		return textparser.HTML
	default:
		return textparser.PlainText
	}
}

// pendingRun is one not-yet-merged-into-vocabulary run, together with
// the collection-wide docno its postings are based at (0 once a run
// has already been through one merge, since merge rebases in place).
type pendingRun struct {
	ref  run.Ref
	base uint32
}

// Pipeline drives the build pipeline spec §4.5-§4.7 describe end to
// end: ingest sources into Idx's docmap/repository, accumulate
// postings, dump runs under memory/document pressure, optionally
// pyramid-collapse them, and finally merge everything into Idx's
// vocabulary via Commit.
type Pipeline struct {
	Idx  *index.Index
	Opts config.NewOptions

	tbl     *accum.Table
	dumper  *run.Dumper
	pyramid *run.Pyramid

	// batchBase is the docno of the first document appended since the
	// accumulator was last reset; accum.Table.Add takes batch-local
	// docnos (spec §4.6 dumps "last_doc starting at 0"), so every
	// AppendDocument result is rebased by subtracting this before the
	// table sees it.
	batchBase uint32

	pending   []pendingRun
	filesDone int
}

// New creates a Pipeline writing runs through idx's own fdset, so
// runs and the final vocabulary share descriptor accounting.
func New(idx *index.Index, opts config.NewOptions) *Pipeline {
	return &Pipeline{
		Idx:       idx,
		Opts:      opts,
		tbl:       accum.New(opts.AccumulationMemory, opts.AccDoc),
		dumper:    run.New(idx.Fds, index.TypeRun, int(opts.DumpMemory)),
		pyramid:   run.NewPyramid(pyramidWidth(opts)),
		batchBase: uint32(idx.Docmap.Size()),
	}
}

func pyramidWidth(opts config.NewOptions) int {
	if opts.PyramidWidth > 0 {
		return opts.PyramidWidth
	}
	return 8
}

// IngestPaths reads each path's content, splits it into documents
// under its sniffed MIME profile, stems and stop-filters each
// document's words, and folds the result into the index and
// accumulator. Any error aborts the whole batch: per spec §7, the
// caller must then call Destroy on Idx rather than attempt a partial
// commit.
func (p *Pipeline) IngestPaths(ctx context.Context, paths []string) error {
	log := logging.For("build.pipeline")
	for _, path := range paths {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := p.ingestFile(path); err != nil {
			return fmt.Errorf("build: ingest %q: %w", path, err)
		}
		p.filesDone++
		if p.tbl.ShouldDump() {
			if err := p.dumpBatch(); err != nil {
				return err
			}
		}
	}
	log.Info("ingest complete", zap.Int("files", p.filesDone))
	return nil
}

func (p *Pipeline) ingestFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return zerrors.New(zerrors.KindIOUnavailable, "build.ingest.read", err).WithPath(path)
	}
	if p.Opts.MaxFileSize > 0 && int64(len(content)) > p.Opts.MaxFileSize {
		return zerrors.New(zerrors.KindInvalidArgument, "build.ingest.toolarge", fmt.Errorf("%d bytes exceeds max-file-size", len(content))).WithPath(path)
	}

	mime := mimetype.Sniff(content)
	profile := profileFor(mime)
	reader := textparser.NewDocumentReader(content, profile)

	seq := 0
	for {
		doc, ok := reader.Next()
		if !ok {
			break
		}
		seq++
		if err := p.ingestDocument(path, mime, seq, content, doc); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) ingestDocument(path string, mime mimetype.Type, seq int, content []byte, doc textparser.Document) error {
	externalID := doc.ExternalID
	if externalID == "" {
		externalID = path
		if seq > 1 {
			externalID = path + "#" + strconv.Itoa(seq)
		}
	}

	terms := make([]string, 0, len(doc.Words))
	for _, w := range doc.Words {
		if p.Idx.BuildStop != nil && p.Idx.BuildStop.Contains(w) {
			continue
		}
		terms = append(terms, p.Idx.Stemmer.Stem(w))
	}

	start, end := doc.ByteStart, doc.ByteEnd
	if end < start || end > len(content) {
		end = len(content)
	}

	entry := docmap.Entry{
		ExternalID: externalID,
		Length:     uint32(len(terms)),
		MIME:       string(mime),
	}
	docno, err := p.Idx.AppendDocument(entry, content[start:end])
	if err != nil {
		return err
	}

	local := uint32(docno) - p.batchBase
	for _, term := range terms {
		if term == "" {
			continue
		}
		p.tbl.Add([]byte(term), local)
	}
	return nil
}

// dumpBatch flushes the accumulator to a level-0 run, feeds it
// through the pyramid, and collapses any level that just filled up
// (spec §4.6's optional pyramid-merging optimization).
func (p *Pipeline) dumpBatch() error {
	base := p.batchBase
	ref, err := p.dumper.Dump(p.tbl)
	if err != nil {
		return err
	}
	p.batchBase = uint32(p.Idx.Docmap.Size())
	p.pending = append(p.pending, pendingRun{ref: ref, base: base})
	return p.collapseReady(ref)
}

// collapseReady asks the pyramid whether ref just completed a level
// and, if so, merges that level's runs into one level+1 run via
// internal/merge, restricted to same-level inputs per spec §4.6.
func (p *Pipeline) collapseReady(ref run.Ref) error {
	if !p.Opts.BigAndFast {
		return nil
	}
	collapsed := p.pyramid.Add(ref)
	if collapsed == nil {
		return nil
	}

	bases := make([]uint32, len(collapsed))
	for i, r := range collapsed {
		bases[i] = p.baseOf(r)
	}

	newRef, err := p.mergeRuns(collapsed, bases, collapsed[0].Level+1)
	if err != nil {
		return err
	}

	p.dropPending(collapsed)
	p.pending = append(p.pending, pendingRun{ref: newRef, base: 0})
	return p.collapseReady(newRef)
}

func (p *Pipeline) mergeRuns(refs []run.Ref, bases []uint32, level int) (run.Ref, error) {
	sources, err := merge.OpenSources(context.Background(), func(r run.Ref) (*run.Reader, error) {
		return run.OpenReader(p.Idx.Fds, index.TypeRun, r)
	}, refs, bases)
	if err != nil {
		return run.Ref{}, err
	}
	defer func() {
		for _, s := range sources {
			s.Reader.Close()
		}
	}()

	merged, err := merge.Merge(sources)
	if err != nil {
		return run.Ref{}, err
	}

	records := make([]run.DumpRecord, len(merged))
	for i, t := range merged {
		records[i] = run.DumpRecord{Term: t.Term, Ft: t.Ft, Ff: t.Ff, Postings: t.Postings}
	}
	return p.dumper.DumpRecords(records, level)
}

func (p *Pipeline) baseOf(ref run.Ref) uint32 {
	for _, pr := range p.pending {
		if pr.ref == ref {
			return pr.base
		}
	}
	return 0
}

// dropPending removes refs from the pipeline's pending-run bookkeeping
// once they have been folded into a higher-level merged run.
func (p *Pipeline) dropPending(refs []run.Ref) {
	drop := make(map[run.Ref]struct{}, len(refs))
	for _, r := range refs {
		drop[r] = struct{}{}
	}
	kept := p.pending[:0]
	for _, pr := range p.pending {
		if _, gone := drop[pr.ref]; gone {
			continue
		}
		kept = append(kept, pr)
	}
	p.pending = kept
}

// Finish flushes any remaining accumulator contents, merges every
// outstanding run (pyramid-pending and level-0 alike) into final
// vocabulary entries, and commits them to Idx.
func (p *Pipeline) Finish(ctx context.Context) error {
	if p.tbl.Len() > 0 {
		if err := p.dumpBatch(); err != nil {
			return err
		}
	}
	if len(p.pending) == 0 {
		return p.Idx.PersistProgress()
	}

	ordered := append([]pendingRun(nil), p.pending...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ref.Level > ordered[j].ref.Level })
	refs := make([]run.Ref, len(ordered))
	bases := make([]uint32, len(ordered))
	for i, pr := range ordered {
		refs[i] = pr.ref
		bases[i] = pr.base
	}

	sources, err := merge.OpenSources(ctx, func(r run.Ref) (*run.Reader, error) {
		return run.OpenReader(p.Idx.Fds, index.TypeRun, r)
	}, refs, bases)
	if err != nil {
		return err
	}
	defer func() {
		for _, s := range sources {
			s.Reader.Close()
		}
	}()

	merged, err := merge.Merge(sources)
	if err != nil {
		return err
	}

	if err := p.Idx.Commit(merged, p.Opts.AnhImpact); err != nil {
		return err
	}

	for _, pr := range p.pending {
		_ = p.Idx.Fds.Unlink(index.TypeRun, fdset.FileNo(pr.ref.Fileno))
	}
	p.pending = nil
	return nil
}

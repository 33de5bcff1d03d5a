package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/zindex/internal/codec"
	"github.com/standardbeagle/zindex/internal/config"
	"github.com/standardbeagle/zindex/internal/index"
	"github.com/standardbeagle/zindex/internal/planner"
	"github.com/standardbeagle/zindex/internal/queryparser"
	"github.com/standardbeagle/zindex/internal/ranker"
	"github.com/standardbeagle/zindex/internal/stopwords"
)

func queryCommand() *cli.Command {
	return &cli.Command{
		Name:      "query",
		Usage:     "run one or more queries against an index",
		ArgsUsage: "<index-dir> [query words...]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "n", Usage: "number of results"},
			&cli.IntFlag{Name: "b", Usage: "begin offset"},
			&cli.StringFlag{Name: "summary", Usage: "plain|capitalise|tag|none"},
			&cli.BoolFlag{Name: "okapi"},
			&cli.BoolFlag{Name: "cosine"},
			&cli.Float64Flag{Name: "pivoted-cosine", Usage: "pivoted cosine, value is the pivot"},
			&cli.Float64Flag{Name: "dirichlet", Usage: "Dirichlet LM, value is mu"},
			&cli.Float64Flag{Name: "hawkapi", Usage: "Hawking's measure, value is alpha"},
			&cli.BoolFlag{Name: "anh-impact", Usage: "use the impact-ordered traversal"},
			&cli.Float64Flag{Name: "k1"},
			&cli.Float64Flag{Name: "k3"},
			&cli.Float64Flag{Name: "bm25-b", Usage: "BM25's length-normalization b (distinct from -b, the offset flag)"},
			&cli.IntFlag{Name: "accumulator-limit"},
			&cli.IntFlag{Name: "word-limit"},
			&cli.StringFlag{Name: "query-stop", Usage: `"", "default", or a path`},
			&cli.StringFlag{Name: "query-list", Usage: "path to a newline-delimited file of queries to run in batch"},
		},
		Action: runQuery,
	}
}

func runQuery(c *cli.Context) error {
	dir := c.Args().First()
	if dir == "" {
		return cli.Exit("zindex query: missing <index-dir>", 6)
	}

	fileCfg, err := config.LoadKDL(c.String("config"))
	if err != nil {
		return err
	}
	searchOpts := fileCfg.Search
	applySearchFlags(c, &searchOpts)

	idx, err := index.Load(dir, fileCfg.Load, false)
	if err != nil {
		return err
	}
	defer idx.Close()

	stopList, err := stopwords.LoadQuerySpec(searchOpts.QueryStop)
	if err != nil {
		return err
	}

	queries, err := queriesFor(c)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	defer w.Flush()

	for _, q := range queries {
		if err := runOneQuery(w, idx, stopList, searchOpts, q); err != nil {
			return err
		}
	}
	return nil
}

func applySearchFlags(c *cli.Context, opts *config.SearchOptions) {
	switch {
	case c.Bool("okapi"):
		opts.Metric = config.MetricOkapi
	case c.Bool("cosine"):
		opts.Metric = config.MetricCosine
	case c.IsSet("pivoted-cosine"):
		opts.Metric = config.MetricPivotedCosine
		opts.Pivot = c.Float64("pivoted-cosine")
	case c.IsSet("dirichlet"):
		opts.Metric = config.MetricDirichlet
		opts.Mu = c.Float64("dirichlet")
	case c.IsSet("hawkapi"):
		opts.Metric = config.MetricHawkapi
		opts.Alpha = c.Float64("hawkapi")
	case c.Bool("anh-impact"):
		opts.Metric = config.MetricAnhImpact
	}
	if c.IsSet("k1") {
		opts.K1 = c.Float64("k1")
	}
	if c.IsSet("k3") {
		opts.K3 = c.Float64("k3")
	}
	if c.IsSet("bm25-b") {
		opts.B = c.Float64("bm25-b")
	}
	if c.IsSet("n") {
		opts.ResultCount = c.Int("n")
	}
	if c.IsSet("b") {
		opts.ResultStart = c.Int("b")
	}
	if c.IsSet("accumulator-limit") {
		opts.AccumulatorLimit = c.Int("accumulator-limit")
	}
	if c.IsSet("word-limit") {
		opts.QueryWordLimit = c.Int("word-limit")
	}
	if c.IsSet("query-stop") {
		opts.QueryStop = c.String("query-stop")
	}
	switch c.String("summary") {
	case "plain":
		opts.SummaryType = config.SummaryPlain
	case "capitalise":
		opts.SummaryType = config.SummaryCapitalise
	case "tag":
		opts.SummaryType = config.SummaryTag
	case "none":
		opts.SummaryType = config.SummaryNone
	}
}

func queriesFor(c *cli.Context) ([]string, error) {
	if listPath := c.String("query-list"); listPath != "" {
		data, err := os.ReadFile(listPath)
		if err != nil {
			return nil, err
		}
		var out []string
		for _, line := range splitLines(string(data)) {
			if line != "" {
				out = append(out, line)
			}
		}
		return out, nil
	}
	if c.NArg() < 2 {
		return nil, cli.Exit("zindex query: no query given (pass words or --query-list)", 6)
	}
	return []string{joinArgs(c.Args().Slice()[1:])}, nil
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, trimCR(s[start:i]))
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, trimCR(s[start:]))
	}
	return lines
}

func trimCR(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\r' {
		return s[:len(s)-1]
	}
	return s
}

func joinArgs(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += " "
		}
		out += a
	}
	return out
}

func runOneQuery(w *tabwriter.Writer, idx *index.Index, stopList *stopwords.List, opts config.SearchOptions, query string) error {
	if docno, ok := ranker.DetectCacheQuery(query); ok {
		content, err := idx.Docmap.Get(int(docno))
		if err != nil {
			return err
		}
		bytes, err := idx.DocRepo.Retrieve(content.Repo)
		if err != nil {
			return err
		}
		os.Stdout.Write(bytes)
		return nil
	}

	if lim := opts.QueryWordLimit; lim > 0 {
		if words := strings.Fields(query); len(words) > lim {
			query = strings.Join(words[:lim], " ")
		}
	}
	qp := queryparser.New(query, 256)
	plan, err := planner.Build(qp, planner.Options{
		MaxTerms:   opts.PlanCapacity,
		Stemmer:    idx.Stemmer,
		StopList:   stopList,
		ImpactMode: opts.Metric == config.MetricAnhImpact,
		Vocab:      idx.Lookup,
	})
	if err != nil {
		return err
	}

	coll := ranker.Collection{N: idx.Collection().N, AvgDL: idx.Collection().AvgDL}
	results, err := ranker.Rank(plan, vectorSource{idx}, idx, coll, opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "query\t%s\n", query)
	for _, r := range results.Page {
		ext, err := idx.Docmap.ExternalID(int(r.Docno))
		if err != nil {
			ext = ""
		}
		fmt.Fprintf(w, "%d\t%s\t%.6f\n", r.Docno, ext, r.Score)
	}
	fmt.Fprintf(w, "estimated-total\t%d\n\n", results.EstimatedTotal)
	return nil
}

// vectorSource adapts *index.Index to ranker.VectorSource's Read
// method name (the index's own method is named ReadVector to avoid
// colliding with io.Reader idioms elsewhere in the package).
type vectorSource struct{ idx *index.Index }

func (v vectorSource) Read(h codec.VectorHeader) ([]byte, error) {
	return v.idx.ReadVector(h)
}

package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/standardbeagle/zindex/internal/build"
	"github.com/standardbeagle/zindex/internal/config"
	"github.com/standardbeagle/zindex/internal/index"
	"github.com/standardbeagle/zindex/internal/logging"
	"github.com/standardbeagle/zindex/pkg/pathutil"
)

func buildCommand() *cli.Command {
	return &cli.Command{
		Name:      "build",
		Usage:     "build or append to an index from a file list",
		ArgsUsage: "<index-dir>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "i", Usage: "create a new index (error if one already exists)"},
			&cli.BoolFlag{Name: "a", Usage: "append to an existing index"},
			&cli.StringFlag{Name: "file-list", Required: true, Usage: "path to a file listing sources (globs, one per line)"},
			&cli.StringFlag{Name: "stem", Usage: "none|eds|light|porters"},
			&cli.StringFlag{Name: "build-stop", Usage: "path to a build-time stop-word list"},
			&cli.BoolFlag{Name: "anh-impact", Usage: "also build an impact-ordered list per term"},
			&cli.BoolFlag{Name: "big-and-fast", Usage: "pyramid-merge runs during the build instead of one final merge"},
			&cli.Int64Flag{Name: "accumulation-memory", Aliases: []string{"m"}, Usage: "accumulator byte budget"},
			&cli.Int64Flag{Name: "dump-memory", Usage: "run-writer buffer size"},
			&cli.IntFlag{Name: "parse-buffer", Usage: "textparser read-ahead size"},
			&cli.IntFlag{Name: "tablesize", Usage: "accumulator hashtable bucket count hint"},
			&cli.Int64Flag{Name: "max-file-size", Usage: "repository/vector/run file size cap"},
		},
		Action: runBuild,
	}
}

func runBuild(c *cli.Context) error {
	dir := c.Args().First()
	if dir == "" {
		return cli.Exit("zindex build: missing <index-dir>", 6)
	}
	if c.Bool("i") == c.Bool("a") {
		return cli.Exit("zindex build: exactly one of -i or -a is required", 6)
	}

	fileCfg, err := config.LoadKDL(c.String("config"))
	if err != nil {
		return err
	}
	opts := fileCfg.New
	applyBuildFlags(c, &opts)

	log := logging.For("cmd.build")

	var idx *index.Index
	if c.Bool("i") {
		idx, err = index.Create(dir, opts)
	} else {
		idx, err = index.Load(dir, fileCfg.Load, true)
	}
	if err != nil {
		return err
	}

	paths, err := build.ExpandFileList(c.String("file-list"))
	if err != nil {
		_ = idx.Destroy()
		return err
	}
	if cwd, cwdErr := os.Getwd(); cwdErr == nil {
		log.Debug("expanded file list", zap.Strings("paths", pathutil.ToRelativeAll(paths, cwd)))
	}
	log.Info("expanded file list", zap.Int("files", len(paths)))

	pipeline := build.New(idx, opts)
	ctx := c.Context
	if err := pipeline.IngestPaths(ctx, paths); err != nil {
		// spec §7: any error after postings have been partially
		// emitted discards the whole batch; there is no partial commit.
		_ = idx.Destroy()
		return fmt.Errorf("zindex build: %w", err)
	}
	if err := pipeline.Finish(ctx); err != nil {
		_ = idx.Destroy()
		return fmt.Errorf("zindex build: %w", err)
	}
	if err := idx.Close(); err != nil {
		return err
	}
	log.Info("build complete", zap.Int("documents", idx.Params.DocCount))
	return nil
}

func applyBuildFlags(c *cli.Context, opts *config.NewOptions) {
	if c.IsSet("stem") {
		opts.Stemmer = c.String("stem")
	}
	if c.IsSet("build-stop") {
		opts.BuildStopList = c.String("build-stop")
	}
	if c.IsSet("anh-impact") {
		opts.AnhImpact = c.Bool("anh-impact")
	}
	if c.IsSet("big-and-fast") {
		opts.BigAndFast = c.Bool("big-and-fast")
	}
	if c.IsSet("accumulation-memory") {
		opts.AccumulationMemory = c.Int64("accumulation-memory")
	}
	if c.IsSet("dump-memory") {
		opts.DumpMemory = c.Int64("dump-memory")
	}
	if c.IsSet("parse-buffer") {
		opts.ParseBuffer = c.Int("parse-buffer")
	}
	if c.IsSet("tablesize") {
		opts.TableSize = c.Int("tablesize")
	}
	if c.IsSet("max-file-size") {
		opts.MaxFileSize = c.Int64("max-file-size")
	}
}


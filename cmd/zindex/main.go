// Command zindex is the CLI surface spec §6 describes: build an
// index from a file list, query it with one of the similarity
// measures internal/ranker implements, or print summary stats.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/zindex/internal/logging"
	"github.com/standardbeagle/zindex/internal/version"
	"github.com/standardbeagle/zindex/internal/zerrors"
)

func main() {
	defer logging.Sync()

	app := &cli.App{
		Name:    "zindex",
		Usage:   "disk-resident inverted-index search engine",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "config file path",
				Value: ".zindex.kdl",
			},
		},
		Commands: []*cli.Command{
			buildCommand(),
			queryCommand(),
			statsCommand(),
		},
	}

	if err := app.RunContext(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "zindex:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a zerrors.Kind to a small positive process exit code,
// per spec §6's "non-zero on failure" without prescribing which.
func exitCode(err error) int {
	var kind zerrors.Kind
	for e := err; e != nil; e = errors.Unwrap(e) {
		if ze, ok := e.(*zerrors.Error); ok {
			kind = ze.Kind
		}
	}
	switch kind {
	case zerrors.KindIOUnavailable:
		return 2
	case zerrors.KindResourceExhausted:
		return 3
	case zerrors.KindFormatInvalid:
		return 4
	case zerrors.KindNotFound:
		return 5
	case zerrors.KindInvalidArgument:
		return 6
	case zerrors.KindConflictingState:
		return 7
	case zerrors.KindUserCanceled:
		return 130
	default:
		return 1
	}
}

package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/zindex/internal/config"
	"github.com/standardbeagle/zindex/internal/index"
)

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:      "stats",
		Usage:     "print index counts and averages",
		ArgsUsage: "<index-dir>",
		Action:    runStats,
	}
}

func runStats(c *cli.Context) error {
	dir := c.Args().First()
	if dir == "" {
		return cli.Exit("zindex stats: missing <index-dir>", 6)
	}

	fileCfg, err := config.LoadKDL(c.String("config"))
	if err != nil {
		return err
	}

	idx, err := index.Load(dir, fileCfg.Load, false)
	if err != nil {
		return err
	}
	defer idx.Close()

	coll := idx.Collection()
	fmt.Printf("documents:        %d\n", coll.N)
	fmt.Printf("average length:   %.2f\n", coll.AvgDL)
	fmt.Printf("total term count: %d\n", idx.Params.TotalLength)
	fmt.Printf("format version:   %d\n", idx.Params.FormatVersion)
	fmt.Printf("stemmer:          %s\n", idx.Params.Stemmer)
	fmt.Printf("impact-ordered:   %t\n", idx.Params.ImpactOrdered)
	return nil
}

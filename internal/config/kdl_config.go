package config

import (
	"fmt"
	"os"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	"github.com/standardbeagle/zindex/internal/docmap"
)

// FileConfig is the on-disk shape of a .zindex.kdl file: three
// top-level nodes, one per option record, each optional. A missing
// node leaves the corresponding Options at its default.
type FileConfig struct {
	New    NewOptions
	Load   LoadOptions
	Search SearchOptions
}

// LoadKDL reads path (typically ".zindex.kdl" in the working
// directory) and overlays its new{}/load{}/search{} nodes onto the
// package defaults. A missing file is not an error: it returns the
// defaults unchanged, exactly like the teacher's own optional
// `.lci.kdl` lookup.
func LoadKDL(path string) (*FileConfig, error) {
	cfg := &FileConfig{
		New:    DefaultNewOptions(),
		Load:   DefaultLoadOptions(),
		Search: DefaultSearchOptions(),
	}

	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	doc, err := kdl.Parse(strings.NewReader(string(content)))
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "new":
			applyNew(&cfg.New, n.Children)
		case "load":
			applyLoad(&cfg.Load, n.Children)
		case "search":
			applySearch(&cfg.Search, n.Children)
		}
	}
	return cfg, nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func argString(n *document.Node) (string, bool) {
	if n == nil || len(n.Arguments) == 0 {
		return "", false
	}
	s, ok := n.Arguments[0].Value.(string)
	return s, ok
}

func argInt(n *document.Node) (int, bool) {
	v, ok := argInt64(n)
	return int(v), ok
}

func argInt64(n *document.Node) (int64, bool) {
	if n == nil || len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

func argFloat(n *document.Node) (float64, bool) {
	if n == nil || len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func argBool(n *document.Node) (bool, bool) {
	if n == nil || len(n.Arguments) == 0 {
		return false, false
	}
	b, ok := n.Arguments[0].Value.(bool)
	return b, ok
}

func applyNew(o *NewOptions, nodes []*document.Node) {
	for _, n := range nodes {
		switch nodeName(n) {
		case "stem":
			if v, ok := argString(n); ok {
				o.Stemmer = v
			}
		case "build_stop":
			if v, ok := argString(n); ok {
				o.BuildStopList = v
			}
		case "anh_impact":
			if v, ok := argBool(n); ok {
				o.AnhImpact = v
			}
		case "big_and_fast":
			if v, ok := argBool(n); ok {
				o.BigAndFast = v
			}
		case "accumulation_memory":
			if v, ok := argInt64(n); ok {
				o.AccumulationMemory = v
			}
		case "dump_memory":
			if v, ok := argInt64(n); ok {
				o.DumpMemory = v
			}
		case "parse_buffer":
			if v, ok := argInt(n); ok {
				o.ParseBuffer = v
			}
		case "tablesize":
			if v, ok := argInt(n); ok {
				o.TableSize = v
			}
		case "max_file_size":
			if v, ok := argInt64(n); ok {
				o.MaxFileSize = v
			}
		case "accdoc":
			if v, ok := argInt(n); ok {
				o.AccDoc = v
			}
		case "pyramid_width":
			if v, ok := argInt(n); ok {
				o.PyramidWidth = v
			}
		case "inline_threshold":
			if v, ok := argInt(n); ok {
				o.InlineThreshold = v
			}
		case "fd_limit":
			if v, ok := argInt(n); ok {
				o.FdLimit = v
			}
		}
	}
}

func applyLoad(o *LoadOptions, nodes []*document.Node) {
	for _, n := range nodes {
		switch nodeName(n) {
		case "ignore_version":
			if v, ok := argBool(n); ok {
				o.IgnoreVersion = v
			}
		case "parsebuf":
			if v, ok := argInt(n); ok {
				o.ParseBuffer = v
			}
		case "tablesize":
			if v, ok := argInt(n); ok {
				o.TableSize = v
			}
		case "vocab_size":
			if v, ok := argInt(n); ok {
				o.VocabSize = v
			}
		case "maxflist_size":
			if v, ok := argInt(n); ok {
				o.MaxFListSize = v
			}
		case "docmap_cache":
			if v, ok := argString(n); ok {
				if p, err := docmap.ParsePolicy(v); err == nil {
					o.DocmapCache = p
				}
			}
		case "qstop":
			if v, ok := argString(n); ok {
				o.QueryStop = v
			}
		case "fd_limit":
			if v, ok := argInt(n); ok {
				o.FdLimit = v
			}
		}
	}
}

func applySearch(o *SearchOptions, nodes []*document.Node) {
	for _, n := range nodes {
		switch nodeName(n) {
		case "metric":
			if v, ok := argString(n); ok {
				o.Metric = Metric(v)
			}
		case "k1":
			if v, ok := argFloat(n); ok {
				o.K1 = v
			}
		case "k3":
			if v, ok := argFloat(n); ok {
				o.K3 = v
			}
		case "b":
			if v, ok := argFloat(n); ok {
				o.B = v
			}
		case "pivot":
			if v, ok := argFloat(n); ok {
				o.Pivot = v
			}
		case "mu":
			if v, ok := argFloat(n); ok {
				o.Mu = v
			}
		case "alpha":
			if v, ok := argFloat(n); ok {
				o.Alpha = v
			}
		case "accumulator_limit":
			if v, ok := argInt(n); ok {
				o.AccumulatorLimit = v
			}
		case "plan_capacity":
			if v, ok := argInt(n); ok {
				o.PlanCapacity = v
			}
		case "word_limit":
			if v, ok := argInt(n); ok {
				o.QueryWordLimit = v
			}
		case "result_count":
			if v, ok := argInt(n); ok {
				o.ResultCount = v
			}
		case "result_start":
			if v, ok := argInt(n); ok {
				o.ResultStart = v
			}
		case "summary":
			if v, ok := argString(n); ok {
				o.SummaryType = SummaryType(v)
			}
		case "query_stop":
			if v, ok := argString(n); ok {
				o.QueryStop = v
			}
		}
	}
}

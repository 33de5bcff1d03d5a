// Package build implements the build pipeline orchestration spec
// §4.4-§4.7 describe as separate components: ingest each source
// through the parser and MIME classifier, accumulate postings,
// dump/merge runs, and commit the result into an internal/index.Index.
package build

import (
	"bufio"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/zindex/internal/zerrors"
)

// ExpandFileList reads path (one glob pattern or bare path per line,
// blank lines and '#'-prefixed lines ignored) and returns every
// matching regular file, in the order its patterns were listed then
// lexically within each pattern's matches. Matching is rooted at the
// current working directory, mirroring --file-list's documented
// behavior of resolving entries relative to where zindex runs.
func ExpandFileList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, zerrors.New(zerrors.KindIOUnavailable, "build.filelist.open", err).WithPath(path)
	}
	defer f.Close()

	var out []string
	seen := make(map[string]struct{})
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		matches, err := doublestar.FilepathGlob(line)
		if err != nil {
			return nil, zerrors.New(zerrors.KindInvalidArgument, "build.filelist.glob", err).WithPath(line)
		}
		if len(matches) == 0 {
			// A bare literal path with no glob metacharacters: treat it
			// as a direct entry rather than a failed pattern.
			if !strings.ContainsAny(line, "*?[{") {
				matches = []string{line}
			}
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || info.IsDir() {
				continue
			}
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, zerrors.New(zerrors.KindIOUnavailable, "build.filelist.scan", err).WithPath(path)
	}
	return out, nil
}

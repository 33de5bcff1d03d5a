// Package pathutil provides utilities for converting between absolute
// and relative paths.
//
// zindex ingests documents from filesystem paths (--file-list entries,
// expanded globs) but reports on them relative to the invoking
// directory for readability, the same internal-absolute/
// external-relative split the teacher's own search-result rendering
// uses.
package pathutil

import (
	"path/filepath"
	"strings"
)

// ToRelative converts an absolute path to relative based on a root
// directory. Falls back to the original path if conversion fails or
// the path is already relative.
//
// Examples:
//   - ToRelative("/corpus/trec/wsj_0001", "/corpus") → "trec/wsj_0001"
//   - ToRelative("/other/location/file.txt", "/corpus") → "/other/location/file.txt" (outside root)
//   - ToRelative("trec/wsj_0001", "/corpus") → "trec/wsj_0001" (already relative)
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}
	if !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		return absPath
	}
	if strings.HasPrefix(relPath, "..") {
		return absPath
	}
	return relPath
}

// ToRelativeAll converts every path in paths from absolute to
// relative, for build-time reporting of which source files were
// ingested (cmd/zindex's `build` subcommand lists them this way
// instead of printing full absolute paths for every document).
func ToRelativeAll(paths []string, rootDir string) []string {
	if len(paths) == 0 {
		return paths
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = ToRelative(p, rootDir)
	}
	return out
}

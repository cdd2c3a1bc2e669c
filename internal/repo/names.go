package repo

import (
	"strings"
)

var archiveSuffixes = []string{".tar.gz", ".tgz"}

// IsArchive reports whether ref points at a gzipped tarball.
func IsArchive(ref string) bool {
	lower := strings.ToLower(stripQuery(ref))
	for _, s := range archiveSuffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}

// HumanName derives the repository directory name from a git URL, scp-style
// address, archive URL or local path: the last path element without
// trailing slashes, .git or archive suffixes.
func HumanName(ref string) string {
	s := strings.TrimRight(stripQuery(ref), "/")
	if i := strings.LastIndexAny(s, "/:\\"); i >= 0 {
		s = s[i+1:]
	}
	lower := strings.ToLower(s)
	for _, suffix := range append([]string{".git"}, archiveSuffixes...) {
		if strings.HasSuffix(lower, suffix) {
			s = s[:len(s)-len(suffix)]
			break
		}
	}
	return s
}

func stripQuery(ref string) string {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		return ref[:i]
	}
	return ref
}

package config

import (
	"os"
	"path/filepath"
	"strings"
)

var envKeyReplacer = strings.NewReplacer(".", "_")

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

func expandAll(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, expandHome(p))
		}
	}
	return out
}

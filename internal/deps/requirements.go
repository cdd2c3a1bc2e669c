package deps

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RequirementsFile is the optional per-plugin dependency manifest.
const RequirementsFile = "requirements.txt"

// ReadRequirements returns the package names listed in dir's requirements
// file, in order and without duplicates. A missing file yields nil.
// Version constraints after the name ("luasocket >= 3.0") are ignored.
func ReadRequirements(dir string) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(dir, RequirementsFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading requirements for %s: %w", dir, err)
	}
	return ParseRequirements(data), nil
}

// ParseRequirements extracts package names from requirements text. Blank
// lines and # comments are skipped.
func ParseRequirements(data []byte) []string {
	var pkgs []string
	seen := make(map[string]bool)

	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		name := packageName(strings.TrimSpace(line))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		pkgs = append(pkgs, name)
	}
	return pkgs
}

func packageName(line string) string {
	end := strings.IndexAny(line, " \t<>=~!;[")
	if end >= 0 {
		line = line[:end]
	}
	return line
}

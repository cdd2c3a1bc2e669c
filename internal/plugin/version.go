package plugin

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ParseVersion converts a dotted version string into its integer
// components. Semver strings (with or without a leading "v") yield
// major, minor, patch; longer dotted forms such as "1.2.3.4" fall back to a
// component-wise parse where each component keeps its leading digits.
func ParseVersion(version string) ([]int, error) {
	version = strings.TrimSpace(version)
	if version == "" {
		return nil, fmt.Errorf("empty version")
	}

	if sv, err := semver.NewVersion(strings.TrimPrefix(version, "v")); err == nil {
		return []int{int(sv.Major()), int(sv.Minor()), int(sv.Patch())}, nil
	}

	parts := strings.Split(strings.TrimPrefix(version, "v"), ".")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		digits := leadingDigits(p)
		if digits == "" {
			return nil, fmt.Errorf("invalid version %q: component %q is not numeric", version, p)
		}
		n, err := strconv.Atoi(digits)
		if err != nil {
			return nil, fmt.Errorf("invalid version %q: %w", version, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// CompareArrays compares integer version arrays component-wise. The shorter
// array compares as if padded with zeros. Returns -1, 0 or 1.
func CompareArrays(a, b []int) int {
	n := max(len(a), len(b))
	for i := 0; i < n; i++ {
		var x, y int
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}

// CompareVersions parses both strings and compares them with CompareArrays.
func CompareVersions(a, b string) (int, error) {
	av, err := ParseVersion(a)
	if err != nil {
		return 0, fmt.Errorf("parsing version %q: %w", a, err)
	}
	bv, err := ParseVersion(b)
	if err != nil {
		return 0, fmt.Errorf("parsing version %q: %w", b, err)
	}
	return CompareArrays(av, bv), nil
}

func leadingDigits(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i]
}

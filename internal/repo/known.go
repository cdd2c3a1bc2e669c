package repo

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"go.yaml.in/yaml/v3"
)

//go:embed known_repos.yaml
var knownReposYAML []byte

// KnownRepo is one entry of the known public repository table.
type KnownRepo struct {
	Name        string `yaml:"-"`
	URL         string `yaml:"url"`
	Description string `yaml:"description"`
}

// Known maps aliases to repositories. It is read-only once loaded.
type Known map[string]KnownRepo

// LoadKnown returns the embedded table, with entries from overrideFile
// (if non-empty) added on top.
func LoadKnown(overrideFile string) (Known, error) {
	known, err := parseKnown(knownReposYAML)
	if err != nil {
		return nil, fmt.Errorf("parsing embedded known repositories: %w", err)
	}
	if overrideFile == "" {
		return known, nil
	}

	data, err := os.ReadFile(overrideFile)
	if err != nil {
		return nil, fmt.Errorf("reading known repositories %s: %w", overrideFile, err)
	}
	extra, err := parseKnown(data)
	if err != nil {
		return nil, fmt.Errorf("parsing known repositories %s: %w", overrideFile, err)
	}
	for name, r := range extra {
		known[name] = r
	}
	return known, nil
}

func parseKnown(data []byte) (Known, error) {
	raw := make(map[string]KnownRepo)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	known := make(Known, len(raw))
	for name, r := range raw {
		r.Name = name
		known[name] = r
	}
	return known, nil
}

// Resolve replaces a known alias with its URL; other refs are returned
// unchanged.
func (k Known) Resolve(ref string) string {
	if r, ok := k[ref]; ok {
		return r.URL
	}
	return ref
}

// Sorted returns the entries ordered by alias.
func (k Known) Sorted() []KnownRepo {
	out := make([]KnownRepo, 0, len(k))
	for _, r := range k {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/plugkeep/plugkeep/internal/plugin"
	"go.yaml.in/yaml/v3"
)

// Load reads, validates and converts the manifest at path into a
// descriptor. Schema violations are reported together in one error.
func Load(path string) (*plugin.Descriptor, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}

	result, err := Validate(data)
	if err != nil {
		return nil, fmt.Errorf("validating manifest %s: %w", path, err)
	}
	if !result.Valid {
		return nil, fmt.Errorf("invalid manifest %s: %s", path, strings.Join(result.Messages(), "; "))
	}

	m, err := parseBytes(data, path)
	if err != nil {
		return nil, err
	}
	return m.Descriptor(path)
}

// Descriptor converts the manifest found at manifestPath into a plugin
// descriptor rooted at the manifest's directory.
func (m *Manifest) Descriptor(manifestPath string) (*plugin.Descriptor, error) {
	abs, err := filepath.Abs(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("resolving manifest path: %w", err)
	}
	dir := filepath.Dir(abs)

	desc := &plugin.Descriptor{
		Name:         m.Name,
		Path:         dir,
		ManifestPath: abs,
		Module:       m.Module,
		Kind:         m.Kind,
		Description:  m.Description,
		Version:      m.Version,
		ConfigSchema: m.ConfigSchema,
	}
	if desc.Kind == "" {
		desc.Kind = plugin.KindLua
	}
	if m.Runtime != nil && m.Runtime.Version != "" {
		desc.Runtime = m.Runtime.Version
		desc.RuntimeDeclared = true
	}
	if m.Core != nil {
		desc.MinVersion = m.Core.MinVersion
		desc.MaxVersion = m.Core.MaxVersion
	}
	if m.Templates != "" {
		desc.TemplatesPath = filepath.Join(dir, m.Templates)
	}
	return desc, nil
}

func parseBytes(data []byte, path string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return &m, nil
}

// readFile reads the contents of a file at the given path.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return data, nil
}

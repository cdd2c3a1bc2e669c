package scaffold

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"
	"time"

	"github.com/plugkeep/plugkeep/internal/manifest"
	"github.com/plugkeep/plugkeep/internal/plugin"
)

//go:embed scaffolds
var scaffoldFS embed.FS

// Data holds all template variables available to scaffold templates.
type Data struct {
	Name        string // e.g., "Weather"
	Module      string // Derived: lower-case identifier, e.g., "weather"
	Description string
	Version     string // Semver, e.g., "0.1.0"
	Runtime     string // runtime.version constraint
	MinVersion  string // core.min_version, may be empty
	Year        int
}

// Result holds the outcome of a scaffold generation.
type Result struct {
	OutputDir string
	Files     []string
	Warnings  []string
}

var nonIdent = regexp.MustCompile(`[^a-z0-9_]+`)

// NewData creates a Data with derived fields populated.
func NewData(name string) *Data {
	module := strings.Trim(nonIdent.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if module == "" || (module[0] >= '0' && module[0] <= '9') {
		module = "plugin_" + module
	}
	return &Data{
		Name:        name,
		Module:      module,
		Description: fmt.Sprintf("%s plugin", name),
		Version:     "0.1.0",
		Runtime:     plugin.Runtime2Plus,
		Year:        time.Now().Year(),
	}
}

// outputName maps a template file name to the generated file name. The
// entry file is named after the module.
func outputName(tmplName string, data *Data) string {
	name := strings.TrimSuffix(tmplName, ".tmpl")
	if name == "module.lua" {
		return data.Module + ".lua"
	}
	return name
}

// Generate creates a new plugin directory from the template set for kind.
func Generate(kind string, data *Data, outputDir string) (*Result, error) {
	templatesDir := path.Join("scaffolds", kind)

	entries, err := fs.ReadDir(scaffoldFS, templatesDir)
	if err != nil {
		return nil, fmt.Errorf("template set %q not found: %w", kind, err)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	// Refuse to overwrite an existing plugin.
	existingEntries, err := os.ReadDir(outputDir)
	if err == nil && len(existingEntries) > 0 {
		return nil, fmt.Errorf("output directory %s is not empty; remove existing files first", outputDir)
	}

	result := &Result{
		OutputDir: outputDir,
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		tmplPath := path.Join(templatesDir, entry.Name())
		tmplBytes, err := fs.ReadFile(scaffoldFS, tmplPath)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", tmplPath, err)
		}

		tmpl, err := template.New(entry.Name()).Parse(string(tmplBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", entry.Name(), err)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("executing template %s: %w", entry.Name(), err)
		}

		outName := outputName(entry.Name(), data)
		outPath := filepath.Join(outputDir, outName)
		if err := os.WriteFile(outPath, buf.Bytes(), 0644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", outPath, err)
		}

		result.Files = append(result.Files, outName)
	}

	// Validate the generated manifest against the manifest schema.
	manifestFile := filepath.Join(outputDir, manifest.FileName)
	if _, err := os.Stat(manifestFile); err == nil {
		valResult, valErr := manifest.ValidateFile(manifestFile)
		if valErr != nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Could not validate manifest: %v", valErr))
		} else if !valResult.Valid {
			result.Warnings = append(result.Warnings, valResult.Messages()...)
		}
	}

	return result, nil
}

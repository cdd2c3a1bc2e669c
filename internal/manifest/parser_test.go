package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/plugkeep/plugkeep/internal/plugin"
)

const testdataDir = "testdata"

func testPath(dir string) string {
	return filepath.Join(testdataDir, dir, FileName)
}

func TestLoad_Echo(t *testing.T) {
	desc, err := Load(testPath("echo"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if desc.Name != "Echo" {
		t.Errorf("Name = %q, want %q", desc.Name, "Echo")
	}
	if desc.Kind != plugin.KindLua {
		t.Errorf("Kind = %q, want %q", desc.Kind, plugin.KindLua)
	}
	if !desc.RuntimeDeclared || desc.Runtime != plugin.Runtime2Plus {
		t.Errorf("Runtime = %q (declared %v), want %q", desc.Runtime, desc.RuntimeDeclared, plugin.Runtime2Plus)
	}
	if desc.MinVersion != "1.0.0" {
		t.Errorf("MinVersion = %q, want %q", desc.MinVersion, "1.0.0")
	}
	if desc.MaxVersion != "2.0" {
		t.Errorf("MaxVersion = %q, want %q", desc.MaxVersion, "2.0")
	}
	if !filepath.IsAbs(desc.Path) || filepath.Base(desc.Path) != "echo" {
		t.Errorf("Path = %q, want absolute path ending in echo", desc.Path)
	}
	if desc.TemplatesPath != filepath.Join(desc.Path, "templates") {
		t.Errorf("TemplatesPath = %q", desc.TemplatesPath)
	}
}

func TestLoad_DefaultsKindAndRuntime(t *testing.T) {
	desc, err := Load(testPath("weather"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if desc.Kind != plugin.KindLua {
		t.Errorf("Kind = %q, want default %q", desc.Kind, plugin.KindLua)
	}
	if desc.RuntimeDeclared {
		t.Error("RuntimeDeclared = true for a manifest without runtime section")
	}
	if desc.ConfigSchema == nil {
		t.Fatal("ConfigSchema not parsed")
	}
	if desc.ConfigSchema["type"] != "object" {
		t.Errorf("ConfigSchema[type] = %v", desc.ConfigSchema["type"])
	}
}

func TestLoad_NumericRuntime(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	content := "name: Legacy\nmodule: legacy\nruntime:\n  version: 3\ncore:\n  min_version: 1.5\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	desc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if desc.Runtime != plugin.Runtime3 {
		t.Errorf("Runtime = %q, want %q", desc.Runtime, plugin.Runtime3)
	}
	if desc.MinVersion != "1.5" {
		t.Errorf("MinVersion = %q, want %q", desc.MinVersion, "1.5")
	}
}

func TestLoad_InvalidManifest(t *testing.T) {
	_, err := Load(testPath("invalid-missing-name"))
	if err == nil {
		t.Fatal("expected error for manifest without name")
	}
	if !strings.Contains(err.Error(), "name") {
		t.Errorf("error %q does not mention the missing field", err)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(testPath("nonexistent"))
	if err == nil {
		t.Fatal("expected error for nonexistent file, got nil")
	}
}

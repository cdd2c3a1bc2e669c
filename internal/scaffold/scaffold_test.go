package scaffold

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/plugkeep/plugkeep/internal/luaplugin"
	"github.com/plugkeep/plugkeep/internal/manifest"
	"github.com/plugkeep/plugkeep/internal/plugin"
)

type testHost struct{ dir string }

func (h testHost) Name() string         { return "Greeter" }
func (h testHost) HostVersion() string  { return "1.0.0" }
func (h testHost) Logger() hclog.Logger { return hclog.NewNullLogger() }
func (h testHost) DataDir() string      { return h.dir }

func TestNewData(t *testing.T) {
	tests := []struct {
		name   string
		module string
	}{
		{"Weather", "weather"},
		{"RSS Reader", "rss_reader"},
		{"err-poll", "err_poll"},
		{"2048", "plugin_2048"},
		{"!!!", "plugin_"},
	}
	for _, tt := range tests {
		d := NewData(tt.name)
		if d.Module != tt.module {
			t.Errorf("NewData(%q).Module = %q, want %q", tt.name, d.Module, tt.module)
		}
		if d.Version != "0.1.0" {
			t.Errorf("Version = %q, want %q", d.Version, "0.1.0")
		}
	}

	if d := NewData("x"); d.Year == 0 {
		t.Error("Year should not be zero")
	}
}

func TestGenerateLua(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "weather")

	data := NewData("Weather")
	data.MinVersion = "1.0.0"
	result, err := Generate("lua", data, outDir)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	assertFiles(t, result, []string{"weather.lua", "plugin.yaml"})
	if len(result.Warnings) > 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}

	manifestContent := readGenerated(t, outDir, "plugin.yaml")
	assertContains(t, manifestContent, "name: Weather")
	assertContains(t, manifestContent, "module: weather")
	assertContains(t, manifestContent, `version: "2+"`)
	assertContains(t, manifestContent, "min_version: 1.0.0")

	luaContent := readGenerated(t, outDir, "weather.lua")
	assertContains(t, luaContent, "weather = function(args)")
}

func TestGenerateWithoutMinVersion(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "poll")
	if _, err := Generate("lua", NewData("Poll"), outDir); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	assertNotContains(t, readGenerated(t, outDir, "plugin.yaml"), "core:")
}

// The generated plugin must load and run under the real Lua loader.
func TestGeneratedPluginRuns(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "greeter")
	if _, err := Generate("lua", NewData("Greeter"), outDir); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	desc, err := manifest.Load(filepath.Join(outDir, manifest.FileName))
	if err != nil {
		t.Fatalf("manifest.Load() error: %v", err)
	}
	if _, err := plugin.ValidateConfig(desc, plugin.Config{"greeting": "Hi"}); err != nil {
		t.Fatalf("ValidateConfig() error: %v", err)
	}

	loader := &luaplugin.Loader{}
	if err := loader.Check(desc); err != nil {
		t.Fatalf("Check() error: %v", err)
	}
	p, err := loader.Load(desc)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	p.Attach(testHost{dir: t.TempDir()})

	ctx := context.Background()
	if err := p.Configure(plugin.Config{"greeting": "Hi"}); err != nil {
		t.Fatalf("Configure() error: %v", err)
	}
	if err := p.Activate(ctx); err != nil {
		t.Fatalf("Activate() error: %v", err)
	}

	cmds := p.(plugin.Commander).Commands()
	if len(cmds) != 1 || cmds[0].Name != "greeter" {
		t.Fatalf("Commands() = %v, want one greeter command", cmds)
	}
	out, err := cmds[0].Handler(ctx, "")
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if out != "Hi, world!" {
		t.Errorf("handler output = %q, want %q", out, "Hi, world!")
	}

	if err := p.Deactivate(ctx); err != nil {
		t.Fatalf("Deactivate() error: %v", err)
	}
}

func TestGenerateInvalidTemplateSet(t *testing.T) {
	_, err := Generate("cobol", NewData("x"), t.TempDir())
	if err == nil {
		t.Fatal("expected error for unknown template set")
	}
}

func TestGenerateNonEmptyDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "existing.txt"), []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Generate("lua", NewData("x"), dir)
	if err == nil {
		t.Fatal("expected error for non-empty output directory")
	}
	if !strings.Contains(err.Error(), "not empty") {
		t.Errorf("error = %q, want it to mention 'not empty'", err.Error())
	}
}

func readGenerated(t *testing.T, dir, filename string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		t.Fatalf("reading %s: %v", filename, err)
	}
	return string(data)
}

func assertFiles(t *testing.T, result *Result, expected []string) {
	t.Helper()
	if len(result.Files) != len(expected) {
		t.Errorf("got %d files %v, want %d files %v", len(result.Files), result.Files, len(expected), expected)
		return
	}
	for i, f := range expected {
		if result.Files[i] != f {
			t.Errorf("file[%d] = %q, want %q", i, result.Files[i], f)
		}
	}
}

func assertContains(t *testing.T, content, substr string) {
	t.Helper()
	if !strings.Contains(content, substr) {
		t.Errorf("content does not contain %q\n--- content ---\n%s", substr, content)
	}
}

func assertNotContains(t *testing.T, content, substr string) {
	t.Helper()
	if strings.Contains(content, substr) {
		t.Errorf("content should not contain %q", substr)
	}
}

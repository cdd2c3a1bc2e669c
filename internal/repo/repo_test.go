package repo

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/plugkeep/plugkeep/internal/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tarEntry struct {
	name string
	body string
	dir  bool
}

func makeTarGz(t *testing.T, entries []tarEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0o644, Size: int64(len(e.body)), Typeflag: tar.TypeReg}
		if e.dir {
			hdr = &tar.Header{Name: e.name, Mode: 0o755, Typeflag: tar.TypeDir}
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if !e.dir {
			_, err := tw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gw.Close())
	return buf.Bytes()
}

func noGit(string) (string, error) { return "", errors.New("executable file not found in $PATH") }

func TestHumanName(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"https://github.com/plugkeep/err-hello.git", "err-hello"},
		{"https://github.com/plugkeep/err-hello", "err-hello"},
		{"https://github.com/plugkeep/err-hello/", "err-hello"},
		{"git@github.com:plugkeep/err-poll.git", "err-poll"},
		{"git@example.com:err-top.git", "err-top"},
		{"https://example.com/releases/err-stats.tar.gz", "err-stats"},
		{"/tmp/archives/err-local.tgz", "err-local"},
		{"https://example.com/err-q.tar.gz?token=abc", "err-q"},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			assert.Equal(t, tt.want, HumanName(tt.ref))
		})
	}
}

func TestKnown_ResolveAndOverride(t *testing.T) {
	known, err := LoadKnown("")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/plugkeep/err-hello.git", known.Resolve("err-hello"))
	assert.Equal(t, "https://x/y.git", known.Resolve("https://x/y.git"))

	override := filepath.Join(t.TempDir(), "known.yaml")
	require.NoError(t, os.WriteFile(override, []byte("err-hello:\n  url: https://mirror/err-hello.git\nmine:\n  url: /srv/mine.tgz\n"), 0o644))

	known, err = LoadKnown(override)
	require.NoError(t, err)
	assert.Equal(t, "https://mirror/err-hello.git", known.Resolve("err-hello"))
	assert.Equal(t, "/srv/mine.tgz", known.Resolve("mine"))

	sorted := known.Sorted()
	for i := 1; i < len(sorted); i++ {
		assert.Less(t, sorted[i-1].Name, sorted[i].Name)
	}
}

func TestInstall_MissingGit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "plugins")
	inst := &Installer{Dir: dir, Which: noGit}

	_, err := inst.Install(context.Background(), "https://github.com/plugkeep/err-hello.git", Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, plugin.ErrRepositoryInstall)
	assert.Contains(t, err.Error(), "git")

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr), "no filesystem mutation without git")
}

func TestInstall_DuplicateRejectedBeforeMutation(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(t.TempDir(), "err-dup.tar.gz")
	require.NoError(t, os.WriteFile(archive, makeTarGz(t, []tarEntry{{name: "plugin.yaml", body: "name: Dup\n"}}), 0o644))

	inst := &Installer{Dir: dir}
	_, err := inst.Install(context.Background(), archive, Options{Exists: func(name string) bool { return name == "err-dup" }})
	require.Error(t, err)
	assert.ErrorIs(t, err, plugin.ErrRepositoryInstall)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestInstall_LocalArchiveStripsTopDir(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(t.TempDir(), "err-stats.tgz")
	require.NoError(t, os.WriteFile(archive, makeTarGz(t, []tarEntry{
		{name: "err-stats-1.2/", dir: true},
		{name: "err-stats-1.2/plugin.yaml", body: "name: Stats\nmodule: stats\n"},
		{name: "err-stats-1.2/stats.lua", body: "-- stats\n"},
	}), 0o644))

	inst := &Installer{Dir: dir, Which: noGit}
	repo, err := inst.Install(context.Background(), archive, Options{})
	require.NoError(t, err, "archives install without git")

	assert.Equal(t, "err-stats", repo.Name)
	assert.Equal(t, plugin.RepoArchive, repo.Kind)
	assert.FileExists(t, filepath.Join(dir, "err-stats", "plugin.yaml"))
	assert.FileExists(t, filepath.Join(dir, "err-stats", "stats.lua"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "staging directories are cleaned up")
}

func TestInstall_RejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(t.TempDir(), "evil.tar.gz")
	require.NoError(t, os.WriteFile(archive, makeTarGz(t, []tarEntry{
		{name: "../../escaped.txt", body: "gotcha"},
	}), 0o644))

	inst := &Installer{Dir: dir}
	_, err := inst.Install(context.Background(), archive, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes")

	_, statErr := os.Stat(filepath.Join(filepath.Dir(dir), "escaped.txt"))
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(filepath.Join(dir, "evil"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestInstall_RemoteArchive(t *testing.T) {
	data := makeTarGz(t, []tarEntry{{name: "plugin.yaml", body: "name: Remote\nmodule: remote\n"}})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/err-remote.tar.gz" {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
	}))
	defer server.Close()

	dir := t.TempDir()
	inst := &Installer{Dir: dir, HTTPClient: server.Client()}

	repo, err := inst.Install(context.Background(), server.URL+"/err-remote.tar.gz", Options{})
	require.NoError(t, err)
	assert.Equal(t, "err-remote", repo.Name)
	assert.FileExists(t, filepath.Join(dir, "err-remote", "plugin.yaml"))

	_, err = inst.Install(context.Background(), server.URL+"/err-missing.tar.gz", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestInstall_ForceReplaces(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "err-force"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "err-force", "old.txt"), []byte("old"), 0o644))

	archive := filepath.Join(t.TempDir(), "err-force.tar.gz")
	require.NoError(t, os.WriteFile(archive, makeTarGz(t, []tarEntry{{name: "new.txt", body: "new"}}), 0o644))

	inst := &Installer{Dir: dir}
	_, err := inst.Install(context.Background(), archive, Options{})
	require.Error(t, err, "existing directory blocks a plain install")

	_, err = inst.Install(context.Background(), archive, Options{Force: true})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "err-force", "new.txt"))
	assert.NoFileExists(t, filepath.Join(dir, "err-force", "old.txt"))
}

func TestInstall_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	inst := &Installer{Dir: t.TempDir(), HTTPClient: server.Client(), Timeout: 50 * time.Millisecond}
	_, err := inst.Install(context.Background(), server.URL+"/slow.tar.gz", Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, plugin.ErrCanceled)
	assert.ErrorIs(t, err, plugin.ErrRepositoryInstall)
}

func TestInstall_CloneFailureReportsOutput(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("needs /bin/sh")
	}
	script := filepath.Join(t.TempDir(), "git")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho cloning\necho fatal: repository not found >&2\nexit 128\n"), 0o755))

	dir := t.TempDir()
	inst := &Installer{Dir: dir, Which: func(string) (string, error) { return script, nil }}

	_, err := inst.Install(context.Background(), "https://example.com/err-gone.git", Options{})
	require.Error(t, err)

	var rie *plugin.RepositoryInstallError
	require.ErrorAs(t, err, &rie)
	assert.Contains(t, rie.Stdout, "cloning")
	assert.Contains(t, rie.Stderr, "repository not found")
	assert.Contains(t, err.Error(), "128")

	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "partial clones are removed")
}

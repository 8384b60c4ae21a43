package driver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadManifestBasic(t *testing.T) {
	path := writeManifest(t, `
name: shape-tools
version: "0.2.0"
entry: src/main.yml
search_paths:
  - lib
  - vendor/*
dependencies:
  geometry:
    git: https://example.com/geometry.git
    tag: v1.0.0
  local: ../local-lib
interpreter:
  max_call_depth: 256
  log_level: Debug
`)

	manifest, err := LoadManifest(path)
	require.NoError(t, err)

	assert.Equal(t, "shape_tools", manifest.Name)
	assert.Equal(t, "0.2.0", manifest.Version)
	assert.Equal(t, []string{"lib", "vendor/*"}, manifest.SearchPaths)
	assert.Equal(t, 256, manifest.Interpreter.MaxCallDepth)
	assert.Equal(t, "debug", manifest.Interpreter.LogLevel)

	entry, err := manifest.EntryPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "src", "main.yml"), entry)

	geometry := manifest.Dependencies["geometry"]
	require.NotNil(t, geometry)
	assert.True(t, geometry.IsGit())
	assert.Equal(t, "v1.0.0", geometry.Tag)

	local := manifest.Dependencies["local"]
	require.NotNil(t, local)
	assert.False(t, local.IsGit())
	assert.Equal(t, "../local-lib", local.Path)
}

func TestLoadManifestSearchPathScalar(t *testing.T) {
	path := writeManifest(t, `
name: app
search_paths: modules
`)
	manifest, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"modules"}, manifest.SearchPaths)
	assert.Empty(t, manifest.Dependencies)

	_, err = manifest.EntryPath()
	assert.Error(t, err)
}

func TestLoadManifestValidation(t *testing.T) {
	path := writeManifest(t, `
entry: main.tscript
dependencies:
  both:
    git: https://example.com/both.git
    path: ../both
  unpinned:
    git: https://example.com/unpinned.git
  twice:
    git: https://example.com/twice.git
    tag: v1
    branch: main
interpreter:
  max_call_depth: -1
  log_level: loud
`)
	_, err := LoadManifest(path)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	msg := err.Error()
	for _, want := range []string{
		"name must be provided",
		"entry \"main.tscript\"",
		"dependencies.both: path dependencies cannot also specify git",
		"dependencies.unpinned: git dependencies require rev, tag, or branch",
		"dependencies.twice: git dependencies take only one of rev, tag, or branch",
		"interpreter.max_call_depth must not be negative",
		"interpreter.log_level \"loud\"",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestLoadManifestRejectsUnknownFields(t *testing.T) {
	path := writeManifest(t, `
name: app
targets:
  main: main.yml
`)
	_, err := LoadManifest(path)
	assert.ErrorContains(t, err, "targets")
}

func TestLoadManifestEmpty(t *testing.T) {
	path := writeManifest(t, "")
	_, err := LoadManifest(path)
	assert.ErrorContains(t, err, "is empty")
}

func TestLockfileRoundTripSortsPackages(t *testing.T) {
	dir := t.TempDir()
	lock := NewLockfile("my-app", "tscript 0.1.0")
	lock.Upsert(&LockedPackage{Name: "zeta", Source: "path:../zeta", Checksum: "c1", Dir: "/tmp/zeta"})
	lock.Upsert(&LockedPackage{Name: "alpha", Source: "git+https://example.com/a.git", Revision: "abc", Checksum: "c2", Dir: "/tmp/a"})
	lock.Upsert(&LockedPackage{Name: "zeta", Source: "path:../zeta", Checksum: "c3", Dir: "/tmp/zeta"})

	path := filepath.Join(dir, LockfileName)
	require.NoError(t, WriteLockfile(lock, path))

	loaded, err := LoadLockfile(path)
	require.NoError(t, err)
	assert.Equal(t, "my_app", loaded.Root)
	assert.Equal(t, "tscript 0.1.0", loaded.Tool)
	require.Len(t, loaded.Packages, 2)
	assert.Equal(t, "alpha", loaded.Packages[0].Name)
	assert.Equal(t, "abc", loaded.Packages[0].Revision)
	assert.Equal(t, "c3", loaded.Package("zeta").Checksum)
	assert.Nil(t, loaded.Package("missing"))
}

func TestLoadLockfileMissing(t *testing.T) {
	_, err := LoadLockfile(filepath.Join(t.TempDir(), LockfileName))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func writeManifest(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, ManifestFileName)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

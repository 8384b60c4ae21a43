package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"tscript/interpreter-go/pkg/driver"
)

type depsContext struct {
	manifest *driver.Manifest
	cacheDir string
	lock     *driver.Lockfile
	created  bool
}

func prepareDeps(cacheDir string, stderr io.Writer) (*depsContext, bool) {
	manifest, err := loadManifestFrom("")
	if err != nil {
		fmt.Fprintf(stderr, "unable to locate %s: %v\n", driver.ManifestFileName, err)
		return nil, false
	}
	if cacheDir == "" {
		cacheDir, err = resolveHome()
		if err != nil {
			fmt.Fprintf(stderr, "failed to resolve TSCRIPT_HOME: %v\n", err)
			return nil, false
		}
	} else if cacheDir, err = filepath.Abs(cacheDir); err != nil {
		fmt.Fprintf(stderr, "failed to resolve cache directory: %v\n", err)
		return nil, false
	}

	lockPath := lockfilePath(manifest)
	lock, err := driver.LoadLockfile(lockPath)
	created := false
	switch {
	case err == nil:
		if lock.Root != manifest.Name {
			fmt.Fprintf(stderr, "lockfile root %q does not match manifest name %q\n", lock.Root, manifest.Name)
			return nil, false
		}
	case errors.Is(err, os.ErrNotExist):
		lock = driver.NewLockfile(manifest.Name, cliToolVersion)
		created = true
	default:
		fmt.Fprintf(stderr, "failed to read lockfile: %v\n", err)
		return nil, false
	}
	lock.Path = lockPath
	lock.Tool = cliToolVersion
	return &depsContext{manifest: manifest, cacheDir: cacheDir, lock: lock, created: created}, true
}

func (d *depsContext) install(stdout, stderr io.Writer) (bool, bool) {
	changed, logs, err := driver.NewInstaller(d.manifest, d.cacheDir).Install(d.lock)
	for _, line := range logs {
		fmt.Fprintln(stdout, line)
	}
	if err != nil {
		fmt.Fprintf(stderr, "failed to resolve dependencies: %v\n", err)
		return false, false
	}
	if !changed && !d.created {
		return false, true
	}
	if err := driver.WriteLockfile(d.lock, ""); err != nil {
		fmt.Fprintf(stderr, "failed to write lockfile: %v\n", err)
		return false, false
	}
	return true, true
}

func runDepsInstall(cacheDir string, stdout, stderr io.Writer) int {
	deps, ok := prepareDeps(cacheDir, stderr)
	if !ok {
		return 1
	}
	fmt.Fprintf(stdout, "Manifest: %s\n", deps.manifest.Path)
	fmt.Fprintf(stdout, "Dependencies: %d\n", len(deps.manifest.Dependencies))
	fmt.Fprintf(stdout, "Cache directory: %s\n", deps.cacheDir)

	written, ok := deps.install(stdout, stderr)
	if !ok {
		return 1
	}
	switch {
	case written && deps.created:
		fmt.Fprintf(stdout, "Created %s: %s\n", driver.LockfileName, deps.lock.Path)
	case written:
		fmt.Fprintf(stdout, "Updated %s: %s\n", driver.LockfileName, deps.lock.Path)
	default:
		fmt.Fprintf(stdout, "%s already up to date: %s\n", driver.LockfileName, deps.lock.Path)
	}
	return 0
}

// runDepsUpdate drops the named lock entries (all when names is empty) so
// they are resolved afresh.
func runDepsUpdate(names []string, cacheDir string, stdout, stderr io.Writer) int {
	deps, ok := prepareDeps(cacheDir, stderr)
	if !ok {
		return 1
	}
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		if _, declared := deps.manifest.Dependencies[name]; !declared {
			fmt.Fprintf(stderr, "dependency %q not declared in manifest\n", name)
			return 1
		}
		drop[name] = true
	}
	kept := deps.lock.Packages[:0]
	for _, pkg := range deps.lock.Packages {
		if len(drop) == 0 || drop[pkg.Name] {
			continue
		}
		kept = append(kept, pkg)
	}
	deps.lock.Packages = kept

	written, ok := deps.install(stdout, stderr)
	if !ok {
		return 1
	}
	if written {
		fmt.Fprintf(stdout, "Updated %s: %s\n", driver.LockfileName, deps.lock.Path)
	} else {
		fmt.Fprintln(stdout, "Dependencies already up to date.")
	}
	return 0
}

package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Installer resolves the dependencies of a manifest into module search
// roots, cloning git sources into a cache directory.
type Installer struct {
	manifest *Manifest
	cacheDir string
	logs     []string
}

// NewInstaller prepares an installer for manifest. Git dependencies are
// checked out below cacheDir/pkg/src.
func NewInstaller(manifest *Manifest, cacheDir string) *Installer {
	return &Installer{manifest: manifest, cacheDir: cacheDir}
}

// Install resolves every dependency into lock. It reports whether the lock
// contents changed, along with human readable progress lines.
func (d *Installer) Install(lock *Lockfile) (bool, []string, error) {
	d.logs = nil
	if d.manifest == nil || lock == nil {
		return false, d.logs, nil
	}

	names := make([]string, 0, len(d.manifest.Dependencies))
	for name := range d.manifest.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	desired := make([]*LockedPackage, 0, len(names))
	for _, name := range names {
		spec := d.manifest.Dependencies[name]
		if spec == nil {
			return false, d.logs, fmt.Errorf("dependency %q has no descriptor", name)
		}
		var (
			pkg *LockedPackage
			err error
		)
		if spec.IsGit() {
			pkg, err = d.installGit(name, spec, lock.Package(name))
		} else {
			pkg, err = d.installPath(name, spec)
		}
		if err != nil {
			return false, d.logs, err
		}
		desired = append(desired, pkg)
	}

	existing := make(map[string]*LockedPackage, len(lock.Packages))
	for _, pkg := range lock.Packages {
		if pkg != nil {
			existing[pkg.Name] = pkg
		}
	}
	changed := len(desired) != len(existing)
	for _, pkg := range desired {
		current, ok := existing[pkg.Name]
		if !ok || *current != *pkg {
			changed = true
		}
	}
	lock.Packages = desired
	lock.normalize()
	return changed, d.logs, nil
}

func (d *Installer) installPath(name string, spec *DependencySpec) (*LockedPackage, error) {
	dir := d.manifest.resolve(spec.Path)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("dependency %q: %w", name, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("dependency %q: %s is not a directory", name, dir)
	}
	checksum, err := dirChecksum(dir)
	if err != nil {
		return nil, fmt.Errorf("dependency %q: checksum %s: %w", name, dir, err)
	}
	d.logf("Using path dependency %s -> %s", name, dir)
	return &LockedPackage{
		Name:     sanitizeSegment(name),
		Source:   "path:" + filepath.ToSlash(spec.Path),
		Checksum: checksum,
		Dir:      dir,
	}, nil
}

func (d *Installer) installGit(name string, spec *DependencySpec, locked *LockedPackage) (*LockedPackage, error) {
	if d.cacheDir == "" {
		return nil, fmt.Errorf("dependency %q: no cache directory for git checkouts", name)
	}
	url := strings.TrimSpace(spec.Git)
	source := "git+" + url

	// A locked revision is reused while its checkout is intact.
	if locked != nil && locked.Source == source && locked.Revision != "" && locked.Dir != "" {
		if sum, err := dirChecksum(locked.Dir); err == nil && sum == locked.Checksum {
			d.logf("Using locked git dependency %s at %s", name, shortRevision(locked.Revision))
			copy := *locked
			return &copy, nil
		}
	}

	baseDir := filepath.Join(d.cacheDir, "pkg", "src", sanitizePathSegment(sanitizeSegment(name)))
	version, commit, err := ensureGitCheckout(baseDir, url, spec)
	if err != nil {
		return nil, fmt.Errorf("dependency %q: %w", name, err)
	}
	checkoutDir := filepath.Join(baseDir, sanitizePathSegment(version))
	checksum, err := dirChecksum(checkoutDir)
	if err != nil {
		return nil, fmt.Errorf("dependency %q: checksum %s: %w", name, checkoutDir, err)
	}
	d.logf("Fetched git dependency %s at %s", name, shortRevision(commit))
	return &LockedPackage{
		Name:     sanitizeSegment(name),
		Source:   source,
		Revision: commit,
		Checksum: checksum,
		Dir:      checkoutDir,
	}, nil
}

func (d *Installer) logf(format string, args ...any) {
	d.logs = append(d.logs, fmt.Sprintf(format, args...))
}

// SearchRoots lists the module roots for a project: the manifest directory,
// its configured search paths, then each locked dependency checkout.
func SearchRoots(manifest *Manifest, lock *Lockfile) []string {
	if manifest == nil {
		return nil
	}
	roots := []string{manifest.Dir()}
	for _, path := range manifest.SearchPaths {
		roots = append(roots, manifest.resolve(path))
	}
	if lock != nil {
		for _, pkg := range lock.Packages {
			if pkg != nil && pkg.Dir != "" {
				roots = append(roots, pkg.Dir)
			}
		}
	}
	return roots
}

// MissingDependencies names manifest dependencies absent from lock.
func MissingDependencies(manifest *Manifest, lock *Lockfile) []string {
	if manifest == nil {
		return nil
	}
	var missing []string
	for name := range manifest.Dependencies {
		if lock.Package(name) == nil {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

func ensureGitCheckout(baseDir, url string, spec *DependencySpec) (string, string, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", "", err
	}

	revision, descriptor, err := gitRevisionFromSpec(spec)
	if err != nil {
		return "", "", err
	}

	if explicitRev := strings.TrimSpace(spec.Rev); explicitRev != "" && plumbing.IsHash(explicitRev) {
		existing := filepath.Join(baseDir, sanitizePathSegment(explicitRev))
		if _, err := os.Stat(existing); err == nil {
			return explicitRev, explicitRev, nil
		}
	}

	tmpDir, err := os.MkdirTemp(baseDir, "git-fetch-*")
	if err != nil {
		return "", "", err
	}
	if err := os.RemoveAll(tmpDir); err != nil {
		return "", "", err
	}

	repo, err := git.PlainClone(tmpDir, false, &git.CloneOptions{
		URL:               url,
		RecurseSubmodules: git.DefaultSubmoduleRecursionDepth,
	})
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", fmt.Errorf("git clone %s: %w", url, err)
	}

	hash, err := resolveGitRevision(repo, revision, spec)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", fmt.Errorf("resolve revision %s: %w", revision, err)
	}

	version := gitPinnedVersion(descriptor, hash.String())
	targetDir := filepath.Join(baseDir, sanitizePathSegment(version))
	if _, err := os.Stat(targetDir); err == nil {
		_ = os.RemoveAll(tmpDir)
		return version, hash.String(), nil
	}

	worktree, err := repo.Worktree()
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", err
	}
	if err := worktree.Checkout(&git.CheckoutOptions{
		Hash:  *hash,
		Force: true,
	}); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", fmt.Errorf("git checkout %s: %w", revision, err)
	}
	// The checkout is a source tree, not a repository.
	if err := os.RemoveAll(filepath.Join(tmpDir, git.GitDirName)); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", err
	}

	if err := os.Rename(tmpDir, targetDir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", err
	}
	return version, hash.String(), nil
}

// resolveGitRevision falls back to the remote tracking ref for branches,
// since a clone only creates the default branch locally.
func resolveGitRevision(repo *git.Repository, revision plumbing.Revision, spec *DependencySpec) (*plumbing.Hash, error) {
	hash, err := repo.ResolveRevision(revision)
	if err == nil {
		return hash, nil
	}
	if branch := strings.TrimSpace(spec.Branch); branch != "" {
		remote, remoteErr := repo.ResolveRevision(plumbing.Revision("refs/remotes/origin/" + branch))
		if remoteErr == nil {
			return remote, nil
		}
	}
	return nil, err
}

func gitPinnedVersion(descriptor, commit string) string {
	commit = strings.TrimSpace(commit)
	descriptor = strings.TrimSpace(descriptor)
	if commit == "" {
		return descriptor
	}
	if descriptor == "" || descriptor == commit {
		return commit
	}
	return fmt.Sprintf("%s@%s", descriptor, commit)
}

func gitRevisionFromSpec(spec *DependencySpec) (plumbing.Revision, string, error) {
	if rev := strings.TrimSpace(spec.Rev); rev != "" {
		return plumbing.Revision(rev), rev, nil
	}
	if tag := strings.TrimSpace(spec.Tag); tag != "" {
		return plumbing.Revision("refs/tags/" + tag), tag, nil
	}
	if branch := strings.TrimSpace(spec.Branch); branch != "" {
		return plumbing.Revision("refs/heads/" + branch), branch, nil
	}
	return "", "", errors.New("git dependencies require rev, tag, or branch")
}

func shortRevision(commit string) string {
	if len(commit) > 12 {
		return commit[:12]
	}
	return commit
}

func sanitizePathSegment(segment string) string {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return "head"
	}
	var b strings.Builder
	for _, r := range segment {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// dirChecksum hashes file names and contents in walk order.
func dirChecksum(path string) (string, error) {
	h := sha256.New()
	err := filepath.WalkDir(path, func(p string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if entry.Name() == git.GitDirName && p != path {
				return filepath.SkipDir
			}
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(path, p)
		if err != nil {
			return err
		}
		h.Write([]byte(filepath.ToSlash(rel)))
		h.Write(data)
		return nil
	})
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

package main

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"tscript/interpreter-go/pkg/driver"
)

const helloProgram = `
- type: FunctionDeclaration
  id: greet
  params: [who]
  body:
    - type: FunctionCall
      callee: print
      arguments:
        - {type: BinaryOperation, operator: Add, left: {type: StringLiteral, value: "hello "}, right: who}
- type: FunctionCall
  callee: greet
  arguments: [{type: StringLiteral, value: world}]
`

func TestFindManifest(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, driver.ManifestFileName), "name: test\n")
	child := filepath.Join(root, "src", "app")
	if err := os.MkdirAll(child, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	found, err := findManifest(child)
	if err != nil {
		t.Fatalf("findManifest returned error: %v", err)
	}
	if want := filepath.Join(root, driver.ManifestFileName); found != want {
		t.Fatalf("findManifest = %q, want %q", found, want)
	}
}

func TestResolveHomeEnv(t *testing.T) {
	target := filepath.Join(t.TempDir(), "cache")
	t.Setenv("TSCRIPT_HOME", target)

	got, err := resolveHome()
	if err != nil {
		t.Fatalf("resolveHome error: %v", err)
	}
	if got != target {
		t.Fatalf("resolveHome = %q, want %q", got, target)
	}
}

func TestResolveHomeDefault(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TSCRIPT_HOME", "")
	t.Setenv("HOME", tmp)

	got, err := resolveHome()
	if err != nil {
		t.Fatalf("resolveHome error: %v", err)
	}
	if want := filepath.Join(tmp, ".tscript"); got != want {
		t.Fatalf("resolveHome = %q, want %q", got, want)
	}
}

func TestLoadLockfileForManifestWithDepsMissingLock(t *testing.T) {
	manifest := &driver.Manifest{
		Name: "app",
		Path: filepath.Join(t.TempDir(), driver.ManifestFileName),
		Dependencies: map[string]*driver.DependencySpec{
			"util": {Path: "../util"},
		},
	}
	_, err := loadLockfileForManifest(manifest)
	if err == nil || !strings.Contains(err.Error(), "tscript.lock missing") {
		t.Fatalf("expected missing lockfile error, got %v", err)
	}

	none := &driver.Manifest{Name: "app", Path: manifest.Path}
	lock, err := loadLockfileForManifest(none)
	if err != nil || lock != nil {
		t.Fatalf("expected no lock without dependencies, got %#v, %v", lock, err)
	}
}

func TestRunProgramDirectFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFile(t, filepath.Join(dir, "main.yml"), helloProgram)

	code, stdout, stderr := runCLI(t, "run", "main.yml")
	if code != 0 {
		t.Fatalf("run exit code %d, stderr: %s", code, stderr)
	}
	if stdout != "hello world\n" {
		t.Fatalf("stdout = %q, want %q", stdout, "hello world\n")
	}
}

func TestRunPrintsResult(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.json"), `[{"type": "ReturnStatement", "value": {"type": "StringLiteral", "value": "done"}}]`)

	code, stdout, stderr := runCLI(t, "run", "--result", filepath.Join(dir, "main.json"))
	if code != 0 {
		t.Fatalf("run exit code %d, stderr: %s", code, stderr)
	}
	if strings.TrimSpace(stdout) != `"done"` {
		t.Fatalf("stdout = %q, want the inspected result", stdout)
	}
}

func TestRunManifestEntryWithModules(t *testing.T) {
	project := t.TempDir()
	chdir(t, project)
	writeFile(t, filepath.Join(project, driver.ManifestFileName), `
name: app
entry: src/main.yml
search_paths: [lib]
interpreter:
  log_level: disabled
`)
	writeFile(t, filepath.Join(project, "lib", "strings.yml"), `
- type: FunctionDeclaration
  id: shout
  params: [s]
  body:
    - type: ReturnStatement
      value: {type: BinaryOperation, operator: Add, left: s, right: {type: StringLiteral, value: "!"}}
`)
	writeFile(t, filepath.Join(project, "src", "main.yml"), `
- type: UseDirective
  source: strings
  imports: [shout]
- type: FunctionCall
  callee: print
  arguments:
    - {type: FunctionCall, callee: shout, arguments: [{type: StringLiteral, value: hey}]}
`)

	code, stdout, stderr := runCLI(t, "run")
	if code != 0 {
		t.Fatalf("run exit code %d, stderr: %s", code, stderr)
	}
	if stdout != "hey!\n" {
		t.Fatalf("stdout = %q, want %q", stdout, "hey!\n")
	}
}

func TestRunReportsUncaughtThrow(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.yml"), `
- type: FunctionCall
  callee: missing
  arguments: []
`)
	code, _, stderr := runCLI(t, "run", filepath.Join(dir, "main.yml"))
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "runtime error") || !strings.Contains(stderr, "missing") {
		t.Fatalf("stderr = %q, want an uncaught error naming missing", stderr)
	}
}

func TestRunRejectsBadFlags(t *testing.T) {
	if code, _, _ := runCLI(t, "run", "--max-depth=zero", "main.yml"); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	if code, _, _ := runCLI(t, "run", "--log-level=loud", "main.yml"); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	if code, _, _ := runCLI(t, "frobnicate"); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
}

func TestVersion(t *testing.T) {
	code, stdout, _ := runCLI(t, "--version")
	if code != 0 || !strings.Contains(stdout, cliToolVersion) {
		t.Fatalf("--version = %d %q", code, stdout)
	}
}

func TestDepsInstallAndRunWithGitDependency(t *testing.T) {
	root := t.TempDir()
	repo := filepath.Join(root, "repo")
	writeFile(t, filepath.Join(repo, "geometry.yml"), `
- type: NamespaceDeclaration
  id: area
  body:
    - type: FunctionDeclaration
      id: square
      params: [side]
      body:
        - type: ReturnStatement
          value: {type: BinaryOperation, operator: Mul, left: side, right: side}
`)
	rev := initGitRepo(t, repo)

	project := filepath.Join(root, "app")
	writeFile(t, filepath.Join(project, driver.ManifestFileName), `
name: app
entry: main.yml
dependencies:
  geometry:
    git: `+repo+`
    rev: `+rev+`
`)
	writeFile(t, filepath.Join(project, "main.yml"), `
- type: UseDirective
  source: geometry
  imports: [{type: NamespaceImport, name: area}]
- type: FunctionCall
  callee: print
  arguments:
    - {type: FunctionCall, callee: square, arguments: [7]}
`)
	chdir(t, project)
	t.Setenv("TSCRIPT_HOME", filepath.Join(root, "cache"))

	if code, _, stderr := runCLI(t, "run"); code == 0 || !strings.Contains(stderr, "deps install") {
		t.Fatalf("run before install = %d, stderr %q", code, stderr)
	}

	code, stdout, stderr := runCLI(t, "deps", "install")
	if code != 0 {
		t.Fatalf("deps install exit code %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "Created tscript.lock") {
		t.Fatalf("deps install stdout = %q", stdout)
	}
	lock, err := driver.LoadLockfile(filepath.Join(project, driver.LockfileName))
	if err != nil {
		t.Fatalf("LoadLockfile: %v", err)
	}
	if pkg := lock.Package("geometry"); pkg == nil || pkg.Revision != rev {
		t.Fatalf("locked geometry = %#v, want revision %s", pkg, rev)
	}

	code, stdout, stderr = runCLI(t, "run")
	if code != 0 {
		t.Fatalf("run exit code %d, stderr: %s", code, stderr)
	}
	if stdout != "49\n" {
		t.Fatalf("stdout = %q, want 49", stdout)
	}

	code, stdout, _ = runCLI(t, "deps", "install")
	if code != 0 || !strings.Contains(stdout, "already up to date") {
		t.Fatalf("second install = %d %q", code, stdout)
	}

	code, stdout, stderr = runCLI(t, "deps", "update", "geometry")
	if code != 0 {
		t.Fatalf("deps update exit code %d, stderr: %s", code, stderr)
	}
	if code, _, _ := runCLI(t, "deps", "update", "unknown"); code != 1 {
		t.Fatalf("update of an undeclared dependency = %d, want 1", code)
	}
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(oldWD); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func initGitRepo(t *testing.T, dir string) string {
	t.Helper()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	if err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == filepath.Join(dir, ".git") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		_, err = worktree.Add(filepath.ToSlash(rel))
		return err
	}); err != nil {
		t.Fatalf("stage files: %v", err)
	}
	hash, err := worktree.Commit("init", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "tscript",
			Email: "tscript@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return hash.String()
}

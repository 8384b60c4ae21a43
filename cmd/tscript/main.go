package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/docopt/docopt-go"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"tscript/interpreter-go/pkg/driver"
	"tscript/interpreter-go/pkg/interpreter"
	"tscript/interpreter-go/pkg/runtime"
)

const cliToolVersion = "tscript 0.1.0-dev"

var errManifestNotFound = errors.New(driver.ManifestFileName + " not found")

const usage = `tscript runs serialized tscript programs.

Usage:
  tscript run [--log-level=LEVEL] [--max-depth=N] [--result] [PROGRAM]
  tscript deps install [--cache=DIR]
  tscript deps update [--cache=DIR] [NAME...]
  tscript -h | --help
  tscript --version

Arguments:
  PROGRAM  AST document (.yml, .yaml or .json). Defaults to the manifest entry.
  NAME     Dependency to re-resolve. All dependencies when omitted.

Options:
  --log-level=LEVEL  One of trace, debug, info, warn, error or disabled.
  --max-depth=N      Maximum nesting of calls and constructions.
  --result           Print the program result.
  --cache=DIR        Dependency cache. Defaults to $TSCRIPT_HOME or ~/.tscript.
  -h, --help         Display this help.
  --version          Print the tscript version.
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	helped := false
	parser := &docopt.Parser{
		HelpHandler: func(err error, text string) {
			helped = true
			if err != nil {
				fmt.Fprintln(stderr, text)
				return
			}
			fmt.Fprintln(stdout, text)
		},
	}
	opts, err := parser.ParseArgs(usage, args, cliToolVersion)
	if err != nil {
		if !helped {
			fmt.Fprintln(stderr, err)
		}
		return 2
	}
	if helped {
		return 0
	}

	if deps, _ := opts.Bool("deps"); deps {
		cacheDir, _ := opts.String("--cache")
		if update, _ := opts.Bool("update"); update {
			names, _ := opts["NAME"].([]string)
			return runDepsUpdate(names, cacheDir, stdout, stderr)
		}
		return runDepsInstall(cacheDir, stdout, stderr)
	}

	var cfg runConfig
	cfg.program, _ = opts.String("PROGRAM")
	cfg.logLevel, _ = opts.String("--log-level")
	cfg.printResult, _ = opts.Bool("--result")
	if depth, _ := opts.String("--max-depth"); depth != "" {
		n, err := strconv.Atoi(depth)
		if err != nil || n <= 0 {
			fmt.Fprintf(stderr, "--max-depth must be a positive integer, got %q\n", depth)
			return 2
		}
		cfg.maxDepth = n
	}
	return runProgram(cfg, stdout, stderr)
}

type runConfig struct {
	program     string
	logLevel    string
	maxDepth    int
	printResult bool
}

func runProgram(cfg runConfig, stdout, stderr io.Writer) int {
	manifest, entry, err := resolveEntry(cfg.program)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	lock, err := loadLockfileForManifest(manifest)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	level := cfg.logLevel
	maxDepth := cfg.maxDepth
	if manifest != nil {
		if level == "" {
			level = manifest.Interpreter.LogLevel
		}
		if maxDepth == 0 {
			maxDepth = manifest.Interpreter.MaxCallDepth
		}
	}
	logger, err := newLogger(stderr, level)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	loader, err := driver.NewLoader(collectSearchPaths(manifest, lock, entry))
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize loader: %v\n", err)
		return 1
	}
	logger.Debug().Strs("roots", loader.Roots()).Str("entry", entry).Msg("loading program")

	program, err := driver.DecodeFile(entry)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load program: %v\n", err)
		return 1
	}

	interp := interpreter.New(
		interpreter.WithStdout(stdout),
		interpreter.WithStdin(os.Stdin),
		interpreter.WithLogger(logger),
		interpreter.WithModuleResolver(loader),
		interpreter.WithMaxCallDepth(maxDepth),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := interp.Execute(ctx, program)
	if err != nil {
		var uncaught *interpreter.UncaughtError
		if errors.As(err, &uncaught) {
			fmt.Fprintf(stderr, "runtime error: %s\n", describeThrow(uncaught))
		} else {
			fmt.Fprintf(stderr, "error: %v\n", err)
		}
		return 1
	}
	if cfg.printResult {
		fmt.Fprintln(stdout, runtime.Inspect(result))
	}
	return 0
}

// describeThrow renders an uncaught value, preferring the kind and message
// of run-time errors.
func describeThrow(err *interpreter.UncaughtError) string {
	if err.Cause != nil {
		return err.Cause.Error()
	}
	return runtime.Inspect(err.Value)
}

func newLogger(w io.Writer, level string) (zerolog.Logger, error) {
	lvl := zerolog.WarnLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}
	console := zerolog.ConsoleWriter{Out: w, NoColor: !isTerminal(w)}
	return zerolog.New(console).Level(lvl).With().Timestamp().Logger(), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// resolveEntry picks the program to run: an explicit document, whose
// nearest manifest (if any) still supplies settings, or the entry of the
// manifest governing the working directory.
func resolveEntry(program string) (*driver.Manifest, string, error) {
	if program != "" {
		abs, err := filepath.Abs(program)
		if err != nil {
			return nil, "", fmt.Errorf("resolve %s: %w", program, err)
		}
		manifest, err := loadManifestFrom(filepath.Dir(abs))
		if err != nil && !errors.Is(err, errManifestNotFound) {
			return nil, "", fmt.Errorf("failed to load manifest: %w", err)
		}
		return manifest, abs, nil
	}
	manifest, err := loadManifestFrom("")
	if err != nil {
		if errors.Is(err, errManifestNotFound) {
			return nil, "", fmt.Errorf("tscript run requires a program or a %s with an entry", driver.ManifestFileName)
		}
		return nil, "", fmt.Errorf("failed to load manifest: %w", err)
	}
	entry, err := manifest.EntryPath()
	if err != nil {
		return nil, "", err
	}
	return manifest, entry, nil
}

// collectSearchPaths orders module roots: the project roots, then
// TSCRIPT_PATH, then the directory of the entry document.
func collectSearchPaths(manifest *driver.Manifest, lock *driver.Lockfile, entry string) []string {
	paths := driver.SearchRoots(manifest, lock)
	for _, part := range filepath.SplitList(os.Getenv("TSCRIPT_PATH")) {
		if part = strings.TrimSpace(part); part != "" {
			paths = append(paths, part)
		}
	}
	if entry != "" {
		paths = append(paths, filepath.Dir(entry))
	}
	return paths
}

func loadManifestFrom(start string) (*driver.Manifest, error) {
	if start == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		start = cwd
	}
	manifestPath, err := findManifest(start)
	if err != nil {
		return nil, err
	}
	return driver.LoadManifest(manifestPath)
}

func findManifest(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolve start directory %q: %w", start, err)
	}
	if info, statErr := os.Stat(dir); statErr == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	origin := dir
	for {
		candidate := filepath.Join(dir, driver.ManifestFileName)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s found from %s upwards: %w", driver.ManifestFileName, origin, errManifestNotFound)
		}
		dir = parent
	}
}

func resolveHome() (string, error) {
	if home := strings.TrimSpace(os.Getenv("TSCRIPT_HOME")); home != "" {
		abs, err := filepath.Abs(home)
		if err != nil {
			return "", fmt.Errorf("resolve TSCRIPT_HOME %q: %w", home, err)
		}
		return abs, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}
	return filepath.Join(userHome, ".tscript"), nil
}

func lockfilePath(manifest *driver.Manifest) string {
	return filepath.Join(manifest.Dir(), driver.LockfileName)
}

func loadLockfileForManifest(manifest *driver.Manifest) (*driver.Lockfile, error) {
	if manifest == nil {
		return nil, nil
	}
	lockPath := lockfilePath(manifest)
	lock, err := driver.LoadLockfile(lockPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if len(manifest.Dependencies) > 0 {
				return nil, fmt.Errorf("%s missing for %q; run `tscript deps install`", driver.LockfileName, manifest.Name)
			}
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read lockfile %s: %w", lockPath, err)
	}
	if lock.Root != manifest.Name {
		return nil, fmt.Errorf("lockfile root %q does not match manifest name %q", lock.Root, manifest.Name)
	}
	if missing := driver.MissingDependencies(manifest, lock); len(missing) > 0 {
		return nil, fmt.Errorf("%s is missing %s; run `tscript deps install`", driver.LockfileName, strings.Join(missing, ", "))
	}
	return lock, nil
}

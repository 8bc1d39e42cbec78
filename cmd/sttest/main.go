// sttest runs stc over a directory of JSON programs and compares what it
// prints against the golden files recorded for them.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/iecst/pkg/cli"
)

type Execution struct {
	Stdout         string        `json:"stdout"`
	Stderr         string        `json:"stderr"`
	ExitCode       int           `json:"exitCode"`
	Duration       time.Duration `json:"duration"`
	TimedOut       bool          `json:"timed_out"`
	UnstableOutput bool          `json:"unstable_output,omitempty"`
}

type TestRun struct {
	Name   string    `json:"name"`
	Args   []string  `json:"args,omitempty"`
	Result Execution `json:"result"`
}

// Golden is what a golden file records for one input
type Golden struct {
	SourceHash string    `json:"source_hash"`
	Runs       []TestRun `json:"runs"`
}

type FileTestResult struct {
	File    string  `json:"file"`
	Status  string  `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message string  `json:"message,omitempty"`
	Diff    string  `json:"diff,omitempty"`
	Golden  *Golden `json:"golden,omitempty"`
	Target  *Golden `json:"target,omitempty"`
}

type TestSuiteResults map[string]*FileTestResult

// Every input is compiled once per mode
var testModes = map[string][]string{
	"st":    {},
	"check": {"--check"},
	"ir":    {"--dump-ir"},
}

type options struct {
	targetCompiler string
	targetArgs     string
	generateGolden string
	testFiles      string
	skipFiles      string
	outputJSON     string
	jsonDir        string
	ignoreLines    string
	timeout        time.Duration
	jobs           int
	runs           int
	verbose        bool
}

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

func main() {
	app := cli.NewApp("sttest")
	app.Synopsis = "[options]"
	app.Description = "Golden output regression runner for stc."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/iecst>"
	app.Since = 2025

	var opts options
	fs := app.FlagSet
	fs.String(&opts.targetCompiler, "target-compiler", "", "./stc", "Path to the compiler under test.", "path")
	fs.String(&opts.targetArgs, "target-args", "", "-r tests/registry/devices.json", "Arguments passed to the compiler (space-separated).", "args")
	fs.String(&opts.generateGolden, "generate-golden", "g", "", "Record the golden file for <file> and exit.", "file")
	fs.String(&opts.testFiles, "test-files", "", "tests/*.json", "Glob pattern(s) for inputs to test (space-separated).", "glob")
	fs.String(&opts.skipFiles, "skip-files", "", "", "Inputs to skip (space-separated).", "files")
	fs.String(&opts.outputJSON, "output", "o", ".test_results.json", "Write the JSON test report to <file>.", "file")
	fs.String(&opts.jsonDir, "dir", "", "", "Directory holding golden files (defaults to the input's directory).", "dir")
	fs.String(&opts.ignoreLines, "ignore-lines", "", "", "Comma-separated substrings whose lines are ignored when comparing.", "list")
	fs.Duration(&opts.timeout, "timeout", "", 5*time.Second, "Timeout for each compiler invocation.")
	fs.Int(&opts.jobs, "jobs", "j", 4, "Number of parallel test jobs.", "n")
	fs.Int(&opts.runs, "runs", "", 3, "Compile each input this many times to check output stability.", "n")
	fs.Bool(&opts.verbose, "verbose", "v", false, "Print per-mode timings.")

	app.Action = func(args []string) error {
		log.SetFlags(0)
		if opts.runs < 1 {
			opts.runs = 1
		}
		if opts.jobs < 1 {
			opts.jobs = 1
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if opts.generateGolden != "" {
			return opts.writeGolden(ctx, opts.generateGolden)
		}
		return opts.runSuite(ctx)
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

func (o *options) goldenPath(sourceFile string) string {
	name := "." + filepath.Base(sourceFile) + ".golden"
	if o.jsonDir != "" {
		return filepath.Join(o.jsonDir, name)
	}
	return filepath.Join(filepath.Dir(sourceFile), name)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

func (o *options) writeGolden(ctx context.Context, sourceFile string) error {
	log.Printf("Generating golden file for %s...\n", sourceFile)
	fileHash, err := hashFile(sourceFile)
	if err != nil {
		log.Printf("%s[ERROR]%s Could not hash %s: %v\n", cRed, cNone, sourceFile, err)
		return err
	}
	golden := o.compileModes(ctx, sourceFile)
	golden.SourceHash = fileHash

	data, err := json.MarshalIndent(golden, "", "  ")
	if err != nil {
		log.Printf("%s[ERROR]%s Failed to encode golden data: %v\n", cRed, cNone, err)
		return err
	}
	if o.jsonDir != "" {
		if err := os.MkdirAll(o.jsonDir, 0o755); err != nil {
			log.Printf("%s[ERROR]%s Failed to create directory %s: %v\n", cRed, cNone, o.jsonDir, err)
			return err
		}
	}
	path := o.goldenPath(sourceFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Printf("%s[ERROR]%s Failed to write %s: %v\n", cRed, cNone, path, err)
		return err
	}
	log.Printf("%s[SUCCESS]%s Golden file created at %s\n", cGreen, cNone, path)
	return nil
}

func (o *options) runSuite(ctx context.Context) error {
	files, err := expandGlobPatterns(o.testFiles)
	if err != nil {
		log.Printf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
		return err
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return nil
	}

	skipList := make(map[string]bool)
	for _, f := range strings.Fields(o.skipFiles) {
		if abs, err := filepath.Abs(f); err == nil {
			skipList[abs] = true
		}
	}

	type task struct{ file, hash string }
	tasks := make(chan task, len(files))
	resultsChan := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup
	for i := 0; i < o.jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tasks {
				resultsChan <- o.testFile(ctx, t.file, t.hash)
			}
		}()
	}

	// Inputs with identical content are tested once
	seenHashes := make(map[string]string)
	for _, file := range files {
		if skipList[file] {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		fileHash, err := hashFile(file)
		if err != nil {
			resultsChan <- &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to read file for hashing: %v", err)}
			continue
		}
		if original, seen := seenHashes[fileHash]; seen {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: fmt.Sprintf("Content is identical to %s", original)}
			continue
		}
		seenHashes[fileHash] = file
		tasks <- task{file, fileHash}
	}
	close(tasks)
	wg.Wait()
	close(resultsChan)

	var all []*FileTestResult
	for r := range resultsChan {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].File < all[j].File })

	o.printSummary(all)
	results := o.writeJSONReport(all)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if hasFailures(results) {
		return errors.New("test failures")
	}
	return nil
}

func (o *options) testFile(ctx context.Context, file, fileHash string) *FileTestResult {
	goldenFile := o.goldenPath(file)
	data, err := os.ReadFile(goldenFile)
	if errors.Is(err, os.ErrNotExist) {
		return &FileTestResult{File: file, Status: "SKIP", Message: "No golden file, record one with --generate-golden"}
	}
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not read golden file %s: %v", goldenFile, err)}
	}
	var golden Golden
	if err := json.Unmarshal(data, &golden); err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not parse golden file %s: %v", goldenFile, err)}
	}

	target := o.compileModes(ctx, file)
	target.SourceHash = fileHash
	result := o.compare(file, &golden, target)
	if golden.SourceHash != "" && golden.SourceHash != fileHash && result.Status == "FAIL" {
		result.Message += " (input changed since the golden file was recorded)"
	}
	return result
}

func (o *options) compare(file string, golden, target *Golden) *FileTestResult {
	var diffs strings.Builder
	failed := false

	targetRuns := make(map[string]TestRun, len(target.Runs))
	for _, run := range target.Runs {
		targetRuns[run.Name] = run
	}
	ignored := o.ignoredSubstrings()

	for _, want := range golden.Runs {
		got, ok := targetRuns[want.Name]
		if !ok {
			failed = true
			fmt.Fprintf(&diffs, "Mode '%s' missing in target results.\n", want.Name)
			continue
		}
		if got.Result.UnstableOutput {
			failed = true
			fmt.Fprintf(&diffs, "Mode '%s' produced different output across runs.\n", want.Name)
		}
		if want.Result.ExitCode != got.Result.ExitCode {
			failed = true
			fmt.Fprintf(&diffs, "Mode '%s' exit code mismatch:\n  - Golden: %d\n  - Target: %d\n", want.Name, want.Result.ExitCode, got.Result.ExitCode)
		}
		if filterOutput(want.Result.Stdout, ignored) != filterOutput(got.Result.Stdout, ignored) {
			failed = true
			fmt.Fprintf(&diffs, "Mode '%s' STDOUT mismatch:\n%s", want.Name, cmp.Diff(want.Result.Stdout, got.Result.Stdout))
		}
		if filterOutput(want.Result.Stderr, ignored) != filterOutput(got.Result.Stderr, ignored) {
			failed = true
			fmt.Fprintf(&diffs, "Mode '%s' STDERR mismatch:\n%s", want.Name, cmp.Diff(want.Result.Stderr, got.Result.Stderr))
		}
	}

	if failed {
		return &FileTestResult{File: file, Status: "FAIL", Message: "Output or exit code mismatch", Diff: diffs.String(), Golden: golden, Target: target}
	}
	return &FileTestResult{File: file, Status: "PASS", Message: "All modes matched", Golden: golden, Target: target}
}

func (o *options) ignoredSubstrings() []string {
	if o.ignoreLines == "" {
		return nil
	}
	return strings.Split(o.ignoreLines, ",")
}

// executeCommand runs a command with a timeout and captures its output
func executeCommand(ctx context.Context, command string, args ...string) Execution {
	start := time.Now()
	cmd := exec.CommandContext(ctx, command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Execution{Stdout: stdout.String(), Stderr: stderr.String(), Duration: time.Since(start)}

	var exitErr *exec.ExitError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.TimedOut = true
		res.ExitCode = -1
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	case err != nil:
		res.ExitCode = -2
		res.Stderr += "\nExecution error: " + err.Error()
	}
	return res
}

// compileModes runs the compiler over sourceFile once per mode, repeating each
// run to catch nondeterministic output and keeping the fastest duration
func (o *options) compileModes(ctx context.Context, sourceFile string) *Golden {
	names := make([]string, 0, len(testModes))
	for name := range testModes {
		names = append(names, name)
	}
	sort.Strings(names)

	ignored := o.ignoredSubstrings()
	out := &Golden{}
	for _, name := range names {
		args := append(strings.Fields(o.targetArgs), testModes[name]...)
		args = append(args, sourceFile)

		var first Execution
		var durations []time.Duration
		for i := 0; i < o.runs; i++ {
			runCtx, cancel := context.WithTimeout(ctx, o.timeout)
			res := executeCommand(runCtx, o.targetCompiler, args...)
			cancel()

			if i == 0 {
				first = res
			} else if res.ExitCode != first.ExitCode ||
				filterOutput(res.Stdout, ignored) != filterOutput(first.Stdout, ignored) ||
				filterOutput(res.Stderr, ignored) != filterOutput(first.Stderr, ignored) {
				first.UnstableOutput = true
				break
			}
			durations = append(durations, res.Duration)
			if res.TimedOut {
				break
			}
		}
		if len(durations) > 0 {
			sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
			first.Duration = durations[0]
		}
		out.Runs = append(out.Runs, TestRun{Name: name, Args: args[:len(args)-1], Result: first})
	}
	return out
}

// filterOutput removes lines containing any of the given substrings
func filterOutput(output string, ignored []string) string {
	if len(ignored) == 0 || output == "" {
		return output
	}
	lines := strings.Split(output, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		skip := false
		for _, sub := range ignored {
			if sub != "" && strings.Contains(line, sub) {
				skip = true
				break
			}
		}
		if !skip {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%6dµs", d.Microseconds())
	}
	return fmt.Sprintf("%6dms", d.Milliseconds())
}

func (o *options) printSummary(results []*FileTestResult) {
	var passed, failed, skipped, errored int
	var total time.Duration
	var timedFiles int

	for _, r := range results {
		fmt.Println("----------------------------------------------------------------------")
		fmt.Printf("Testing %s%s%s...\n", cCyan, r.File, cNone)
		switch r.Status {
		case "PASS":
			passed++
			fmt.Printf("  [%sPASS%s] %s\n", cGreen, cNone, r.Message)
		case "FAIL":
			failed++
			fmt.Printf("  [%sFAIL%s] %s\n", cRed, cNone, r.Message)
			fmt.Println(formatDiff(r.Diff))
		case "SKIP":
			skipped++
			fmt.Printf("  [%sSKIP%s] %s\n", cYellow, cNone, r.Message)
		case "ERROR":
			errored++
			fmt.Printf("  [%sERROR%s] %s\n", cRed, cNone, r.Message)
		}

		if r.Target == nil {
			continue
		}
		timedFiles++
		for _, run := range r.Target.Runs {
			total += run.Result.Duration
			if o.verbose {
				fmt.Printf("    %-6s exit %d %s\n", run.Name, run.Result.ExitCode, formatDuration(run.Result.Duration))
			}
		}
	}

	fmt.Println("----------------------------------------------------------------------")
	fmt.Printf("%sTest Summary:%s %s%d Passed%s, %s%d Failed%s, %s%d Skipped%s, %s%d Errored%s, %d Total\n",
		cBold, cNone, cGreen, passed, cNone, cRed, failed, cNone, cYellow, skipped, cNone, cRed, errored, cNone, len(results))
	if timedFiles > 0 {
		fmt.Printf("Average compile time per input: %s\n", strings.TrimSpace(formatDuration(total/time.Duration(timedFiles))))
	}
}

func formatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(diff, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "-") {
			b.WriteString(cRed)
		} else if strings.HasPrefix(trimmed, "+") {
			b.WriteString(cGreen)
		}
		b.WriteString("    " + line)
		b.WriteString(cNone)
		b.WriteString("\n")
	}
	return b.String()
}

func (o *options) writeJSONReport(results []*FileTestResult) TestSuiteResults {
	byFile := make(TestSuiteResults, len(results))
	for _, r := range results {
		byFile[r.File] = r
	}

	data, err := json.MarshalIndent(byFile, "", "  ")
	if err != nil {
		log.Printf("%s[ERROR]%s Failed to encode results: %v\n", cRed, cNone, err)
		return byFile
	}
	outputFile := o.outputJSON
	if o.jsonDir != "" {
		if err := os.MkdirAll(o.jsonDir, 0o755); err != nil {
			log.Printf("%s[ERROR]%s Failed to create dir %s: %v\n", cRed, cNone, o.jsonDir, err)
		}
		outputFile = filepath.Join(o.jsonDir, o.outputJSON)
	}
	if err := os.WriteFile(outputFile, data, 0o644); err != nil {
		log.Printf("%s[ERROR]%s Failed to write JSON report to %s: %v\n", cRed, cNone, outputFile, err)
	} else {
		fmt.Printf("Full test report saved to %s\n", outputFile)
	}
	return byFile
}

func hasFailures(results TestSuiteResults) bool {
	for _, r := range results {
		if r.Status == "FAIL" || r.Status == "ERROR" {
			return true
		}
	}
	return false
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var all []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, file := range files {
			abs, err := filepath.Abs(file)
			if err != nil || seen[abs] {
				continue
			}
			if info, err := os.Stat(abs); err == nil && info.Mode().IsRegular() {
				all = append(all, abs)
				seen[abs] = true
			}
		}
	}
	return all, nil
}

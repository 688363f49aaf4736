package framework

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/creack/pty"
)

const mainModule = "module github.com/Hanaasagi/tlmode\n"

// findProjectRoot searches for the project root directory containing go.mod
func findProjectRoot(startDir string) string {
	dir := startDir
	for {
		goModPath := filepath.Join(dir, "go.mod")
		if content, err := os.ReadFile(goModPath); err == nil {
			// Skip go.mod files that only require the main module
			if strings.HasPrefix(strings.TrimSpace(string(content))+"\n", mainModule) {
				return dir
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// Framework provides utilities for running e2e tests
type Framework struct {
	BinaryPath string
	Timeout    time.Duration
	// StateDir isolates logs and storage from the user's XDG directories.
	StateDir string
}

// TestCase represents a single e2e test case. With Stdin set the binary runs
// in pipe mode, otherwise Keys are typed into a pty.
type TestCase struct {
	Name           string
	Args           []string
	Stdin          string
	Keys           string
	ExpectedOutput string
	Timeout        time.Duration
}

// TestResult represents the result of a test case
type TestResult struct {
	Name    string
	Passed  bool
	Error   string
	Output  string
	Elapsed time.Duration
}

// NewFramework creates a new e2e test framework
func NewFramework() *Framework {
	return &Framework{
		Timeout: 5 * time.Second,
	}
}

// SetBinaryPath sets the path to the tlmode binary
func (f *Framework) SetBinaryPath(path string) {
	f.BinaryPath = path
}

// BuildBinary builds the tlmode binary for testing
func (f *Framework) BuildBinary() error {
	if f.BinaryPath != "" {
		return nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	projectRoot := findProjectRoot(wd)
	if projectRoot == "" {
		return fmt.Errorf("could not find project root directory from %s", wd)
	}

	buildDir := filepath.Join(projectRoot, "build")
	binaryPath := filepath.Join(buildDir, "tlmode")

	if err := os.MkdirAll(buildDir, 0755); err != nil {
		return fmt.Errorf("failed to create build directory: %w", err)
	}

	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/tlmode")
	cmd.Dir = projectRoot

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to build binary: %w, output: %s", err, string(output))
	}

	f.BinaryPath = binaryPath
	return nil
}

func (f *Framework) command(testCase TestCase) *exec.Cmd {
	args := append([]string{"--config", "NONE", "--storage", "memory"}, testCase.Args...)
	cmd := exec.Command(f.BinaryPath, args...)
	if f.StateDir != "" {
		cmd.Env = append(os.Environ(),
			"XDG_STATE_HOME="+f.StateDir,
			"XDG_DATA_HOME="+f.StateDir,
		)
	}
	return cmd
}

// RunTest executes a single test case
func (f *Framework) RunTest(testCase TestCase) TestResult {
	start := time.Now()
	result := TestResult{Name: testCase.Name}

	if err := f.BuildBinary(); err != nil {
		result.Error = fmt.Sprintf("failed to build binary: %v", err)
		result.Elapsed = time.Since(start)
		return result
	}

	if testCase.Stdin != "" {
		f.runPipe(testCase, &result)
	} else {
		f.runPty(testCase, &result)
	}

	result.Elapsed = time.Since(start)
	return result
}

func (f *Framework) runPipe(testCase TestCase, result *TestResult) {
	cmd := f.command(testCase)
	cmd.Stdin = strings.NewReader(testCase.Stdin)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stdout

	if err := cmd.Run(); err != nil {
		result.Error = fmt.Sprintf("command failed: %v", err)
	}
	result.Output = stdout.String()
	if result.Error == "" && !strings.Contains(result.Output, testCase.ExpectedOutput) {
		result.Error = fmt.Sprintf("output %q does not contain %q", result.Output, testCase.ExpectedOutput)
	}
	result.Passed = result.Error == ""
}

func (f *Framework) runPty(testCase TestCase, result *TestResult) {
	cmd := f.command(testCase)

	ptmx, err := pty.Start(cmd)
	if err != nil {
		result.Error = fmt.Sprintf("failed to start command: %v", err)
		return
	}
	defer ptmx.Close()
	defer cmd.Process.Kill() // nolint: errcheck

	// Wait for program initialization
	time.Sleep(200 * time.Millisecond)

	// Keys go one at a time, the way they would be typed
	for _, r := range testCase.Keys {
		if _, err := ptmx.Write([]byte(string(r))); err != nil {
			result.Error = fmt.Sprintf("failed to send keys: %v", err)
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	timeout := testCase.Timeout
	if timeout == 0 {
		timeout = f.Timeout
	}
	timeoutCh := time.After(timeout)

	matchCh := make(chan string, 1)
	doneCh := make(chan string, 1)

	go func() {
		reader := bufio.NewReader(ptmx)
		var output strings.Builder

		for {
			b, err := reader.ReadByte()
			if err != nil {
				if err != io.EOF {
					output.WriteString(fmt.Sprintf("\n[read error: %v]", err))
				}
				doneCh <- output.String()
				return
			}

			output.WriteByte(b)
			if strings.Contains(output.String(), testCase.ExpectedOutput) {
				matchCh <- output.String()
				return
			}
		}
	}()

	select {
	case out := <-matchCh:
		result.Passed = true
		result.Output = out
	case out := <-doneCh:
		result.Error = "output ended without a match"
		result.Output = out
	case <-timeoutCh:
		result.Error = "test timed out"
	}
}

// RunTests executes multiple test cases
func (f *Framework) RunTests(testCases []TestCase) []TestResult {
	results := make([]TestResult, len(testCases))
	for i, testCase := range testCases {
		fmt.Printf("Running test: %s\n", testCase.Name)
		results[i] = f.RunTest(testCase)
		if results[i].Passed {
			fmt.Printf("PASS %s (%.2fs)\n", testCase.Name, results[i].Elapsed.Seconds())
		} else {
			fmt.Printf("FAIL %s (%.2fs): %s\n", testCase.Name, results[i].Elapsed.Seconds(), results[i].Error)
		}
	}
	return results
}

// PrintSummary prints a summary of test results
func (f *Framework) PrintSummary(results []TestResult) {
	passed := 0
	for _, result := range results {
		if result.Passed {
			passed++
		}
	}
	fmt.Printf("\nTotal: %d, Passed: %d, Failed: %d\n", len(results), passed, len(results)-passed)
}

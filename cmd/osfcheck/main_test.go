package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/odvcencio/osfcheck/pkg/model"
	"github.com/odvcencio/osfcheck/pkg/rundiff"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, body := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("MkdirAll %s failed: %v", rel, err)
		}
		if err := os.WriteFile(full, []byte(body), 0o644); err != nil {
			t.Fatalf("WriteFile %s failed: %v", rel, err)
		}
	}
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var withCode interface{ ExitCode() int }
	if errors.As(err, &withCode) {
		return withCode.ExitCode()
	}
	return 1
}

const validDeck = `@meta {
  title: "Intro";
}
@doc {
  # Welcome
}
@slide {
  title: "One";
}
`

func TestRoot_MixedTreeFailsWithExitCodeOne(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.osf":                  validDeck,
		"b.osf":                  "@meta {\n  title: \"x\";\n}\nstray\n",
		"c.txt":                  "not checked",
		"node_modules/dep/d.osf": "@broken",
		".cache/e.osf":           "@broken",
	})

	stdout, stderr, err := runCLI(t, root)
	if code := exitCodeOf(err); code != 1 {
		t.Fatalf("expected exit code 1, got %d (err=%v)", code, err)
	}
	var exitErr exitCodeError
	if !errors.As(err, &exitErr) || exitErr.err != nil {
		t.Fatalf("expected quiet exitCodeError, got %#v", err)
	}

	for _, fragment := range []string{
		"Found 2 OSF files",
		"✓ " + filepath.Join(root, "a.osf"),
		"Successful: 1 ✓",
		"Failed: 1 ✗",
		"  - " + filepath.Join(root, "b.osf") + ": unexpected character 's' at line 4, column 1",
	} {
		if !strings.Contains(stdout, fragment) {
			t.Fatalf("expected %q in stdout, got %q", fragment, stdout)
		}
	}
	if !strings.Contains(stderr, "✗ "+filepath.Join(root, "b.osf")) {
		t.Fatalf("expected failure line on stderr, got %q", stderr)
	}
}

func TestRoot_EmptyTreeSucceeds(t *testing.T) {
	stdout, _, err := runCLI(t, t.TempDir())
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !strings.Contains(stdout, "Found 0 OSF files") || !strings.Contains(stdout, "✓ All examples validated successfully!") {
		t.Fatalf("unexpected stdout %q", stdout)
	}
}

func TestRoot_MissingRootIsFatal(t *testing.T) {
	_, _, err := runCLI(t, filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Fatal("expected error for missing root")
	}
	var exitErr exitCodeError
	if errors.As(err, &exitErr) {
		t.Fatalf("walk failure should not be a quiet exit code error: %v", err)
	}
	if exitCodeOf(err) != 1 {
		t.Fatalf("expected exit code 1, got %d", exitCodeOf(err))
	}
}

func TestRoot_RejectsExtraArgs(t *testing.T) {
	if _, _, err := runCLI(t, "a", "b"); err == nil {
		t.Fatal("expected error for two positional args")
	}
}

func TestRoot_JSONWithStats(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.osf": validDeck,
		"b.osf": "@sheet { name: \"Sales\"; }",
	})

	stdout, _, err := runCLI(t, root, "--json", "--stats", "--sort")
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	var decoded struct {
		Summary struct {
			Total      int `json:"total"`
			Successful int `json:"successful"`
			Results    []struct {
				Path       string `json:"path"`
				BlockCount int    `json:"block_count"`
			} `json:"results"`
		} `json:"summary"`
		Stats struct {
			BlockCount int `json:"block_count"`
			KindCounts []struct {
				Kind  string `json:"kind"`
				Count int    `json:"count"`
			} `json:"kind_counts"`
		} `json:"stats"`
	}
	if err := json.Unmarshal([]byte(stdout), &decoded); err != nil {
		t.Fatalf("Unmarshal returned error: %v\n%s", err, stdout)
	}
	if decoded.Summary.Total != 2 || decoded.Summary.Successful != 2 {
		t.Fatalf("unexpected summary: %+v", decoded.Summary)
	}
	if decoded.Summary.Results[0].BlockCount != 3 || decoded.Summary.Results[1].BlockCount != 1 {
		t.Fatalf("unexpected block counts: %+v", decoded.Summary.Results)
	}
	if decoded.Stats.BlockCount != 4 || len(decoded.Stats.KindCounts) != 4 {
		t.Fatalf("unexpected stats: %+v", decoded.Stats)
	}
}

func TestRoot_TextStats(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.osf": validDeck})

	stdout, _, err := runCLI(t, root, "--stats", "--top", "1")
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	for _, fragment := range []string{"stats: files=1 parsed=1 failed=0 blocks=3", "kinds:", "  doc=1", "top files:"} {
		if !strings.Contains(stdout, fragment) {
			t.Fatalf("expected %q in stdout, got %q", fragment, stdout)
		}
	}
}

func TestRoot_ConfigFileAndFlagPrecedence(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".osfcheck.yaml":      "extension: .deck\nskip_dirs: [archive]\n",
		"a.deck":              validDeck,
		"archive/old.deck":    "@broken",
		"node_modules/x.deck": validDeck,
		"b.osf":               "@broken",
	})

	stdout, _, err := runCLI(t, root)
	if err != nil {
		t.Fatalf("Execute returned error: %v\n%s", err, stdout)
	}
	if !strings.Contains(stdout, "Found 2 OSF files") {
		t.Fatalf("expected config extension and skip dirs to apply, got %q", stdout)
	}

	stdout, _, err = runCLI(t, root, "--ext", ".osf")
	if exitCodeOf(err) != 1 {
		t.Fatalf("expected --ext override to pick up broken b.osf, err=%v", err)
	}
	if !strings.Contains(stdout, "Found 1 OSF files") {
		t.Fatalf("unexpected stdout %q", stdout)
	}
}

func TestRoot_IgnoreFile(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".osfignore":     "broken/\n",
		"a.osf":          validDeck,
		"broken/bad.osf": "@meta {",
	})

	stdout, _, err := runCLI(t, root)
	if err != nil {
		t.Fatalf("Execute returned error: %v\n%s", err, stdout)
	}
	if !strings.Contains(stdout, "Found 1 OSF files") {
		t.Fatalf("expected ignored directory to be skipped, got %q", stdout)
	}
}

func TestRoot_InvalidConfig(t *testing.T) {
	root := t.TempDir()
	if _, _, err := runCLI(t, root, "--ext", "osf"); err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Fatalf("expected invalid config error, got %v", err)
	}
	if _, _, err := runCLI(t, root, "--top", "0"); err == nil {
		t.Fatal("expected error for --top 0")
	}
	if _, _, err := runCLI(t, root, "--log-level", "verbose"); err == nil || !strings.Contains(err.Error(), "log level") {
		t.Fatalf("expected log level error, got %v", err)
	}
}

func TestRoot_JSONIsStableAcrossRuns(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.osf": validDeck,
		"b.osf": "@doc {",
	})

	firstOut, _, firstErr := runCLI(t, root, "--json")
	time.Sleep(20 * time.Millisecond)
	secondOut, _, secondErr := runCLI(t, root, "--json")

	if exitCodeOf(firstErr) != 1 || exitCodeOf(secondErr) != 1 {
		t.Fatalf("expected exit code 1 twice, got %d and %d", exitCodeOf(firstErr), exitCodeOf(secondErr))
	}
	if firstOut != secondOut {
		t.Fatalf("json output differs between runs\nfirst=%s\nsecond=%s", firstOut, secondOut)
	}
}

func TestExitCodeError(t *testing.T) {
	if got := (exitCodeError{}).ExitCode(); got != 1 {
		t.Fatalf("zero code should map to 1, got %d", got)
	}
	if got := (exitCodeError{code: 3}).ExitCode(); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if got := (exitCodeError{}).Error(); got != "command failed" {
		t.Fatalf("unexpected message %q", got)
	}
	wrapped := exitCodeError{code: 2, err: os.ErrNotExist}
	if !errors.Is(wrapped, os.ErrNotExist) {
		t.Fatal("expected exitCodeError to unwrap")
	}
}

func TestPrintChanges(t *testing.T) {
	before := model.NewSummary(".", []model.FileResult{
		{Path: "a.osf", Success: true, BlockCount: 2},
		{Path: "b.osf", Success: true, BlockCount: 1},
	})
	after := model.NewSummary(".", []model.FileResult{
		{Path: "a.osf", Success: true, BlockCount: 3},
		{Path: "b.osf", Error: "unterminated @meta block at line 1, column 1"},
		{Path: "c.osf", Success: true, BlockCount: 1},
	})

	var buf bytes.Buffer
	printChanges(&buf, rundiff.Compare(before, after))
	text := buf.String()
	for _, fragment := range []string{
		"changes: added=1 removed=0 broken=1 fixed=0 changed=1",
		"  + c.osf",
		"  ✗ b.osf: unterminated @meta block at line 1, column 1",
		"  ~ a.osf blocks=2->3",
	} {
		if !strings.Contains(text, fragment) {
			t.Fatalf("expected %q in output, got %q", fragment, text)
		}
	}

	buf.Reset()
	printChanges(&buf, rundiff.Compare(before, before))
	if !strings.Contains(buf.String(), "changes: none") {
		t.Fatalf("expected no-change line, got %q", buf.String())
	}
}

func TestRoot_WatchStopsOnCancelWithLastExitCode(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.osf": validDeck,
		"b.osf": "@doc {",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs([]string{root, "--watch", "--debounce", "20ms"})
	err := cmd.ExecuteContext(ctx)

	if code := exitCodeOf(err); code != 1 {
		t.Fatalf("expected exit code 1 from last run, got %d (err=%v)", code, err)
	}
	if !strings.Contains(stdout.String(), "Found 2 OSF files") {
		t.Fatalf("expected initial validation output, got %q", stdout.String())
	}
}

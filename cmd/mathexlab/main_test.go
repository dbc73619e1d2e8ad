package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseInstallArgs(t *testing.T) {
	spec, err := parseInstallArgs([]string{"stats", "https://example.invalid/stats.git", "--tag", "v1.2"})
	if err != nil {
		t.Fatalf("parseInstallArgs error: %v", err)
	}
	if spec.Name != "stats" || spec.URL != "https://example.invalid/stats.git" || spec.Tag != "v1.2" {
		t.Fatalf("spec = %+v", spec)
	}
}

func TestParseInstallArgsMissingPositional(t *testing.T) {
	if _, err := parseInstallArgs([]string{"stats"}); err == nil {
		t.Fatal("missing URL accepted")
	}
	if _, err := parseInstallArgs([]string{"a", "b", "--rev"}); err == nil {
		t.Fatal("dangling flag accepted")
	}
}

func TestRunDispatch(t *testing.T) {
	if got := run([]string{"--version"}); got != 0 {
		t.Errorf("version exit = %d", got)
	}
	if got := run([]string{"--help"}); got != 0 {
		t.Errorf("help exit = %d", got)
	}
	if got := run([]string{"run"}); got != 1 {
		t.Errorf("run without file exit = %d", got)
	}
	if got := run([]string{"bogus-subcommand"}); got != 1 {
		t.Errorf("unknown command exit = %d", got)
	}
}

func TestRunFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ok.m")
	if err := os.WriteFile(path, []byte("x = 1;\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := runFile(path); got != 0 {
		t.Errorf("runFile exit = %d, want 0", got)
	}

	bad := filepath.Join(dir, "bad.m")
	if err := os.WriteFile(bad, []byte("y = nope_q;\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := runFile(bad); got != 1 {
		t.Errorf("runFile with runtime error exit = %d, want 1", got)
	}

	if got := runFile(filepath.Join(dir, "absent.m")); got != 1 {
		t.Errorf("runFile with missing file exit = %d, want 1", got)
	}
}

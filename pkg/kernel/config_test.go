package kernel

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
paths:
  - /opt/mlib
  - ./local
toolboxes:
  - stats
toolbox_dir: /var/toolboxes
format: long
max_recursion: 64
`))
	if err != nil {
		t.Fatalf("ParseConfig error: %v", err)
	}
	if len(cfg.Paths) != 2 || cfg.Paths[0] != "/opt/mlib" {
		t.Errorf("Paths = %v", cfg.Paths)
	}
	if len(cfg.Toolboxes) != 1 || cfg.Toolboxes[0] != "stats" {
		t.Errorf("Toolboxes = %v", cfg.Toolboxes)
	}
	if cfg.ToolboxDir != "/var/toolboxes" {
		t.Errorf("ToolboxDir = %q", cfg.ToolboxDir)
	}
	if cfg.Format != "long" {
		t.Errorf("Format = %q", cfg.Format)
	}
	if cfg.MaxRecursion != 64 {
		t.Errorf("MaxRecursion = %d", cfg.MaxRecursion)
	}
}

func TestParseConfigDefaultsRecursion(t *testing.T) {
	cfg, err := ParseConfig([]byte("paths: []\n"))
	if err != nil {
		t.Fatalf("ParseConfig error: %v", err)
	}
	if cfg.MaxRecursion != DefaultMaxRecursion {
		t.Errorf("MaxRecursion = %d, want %d", cfg.MaxRecursion, DefaultMaxRecursion)
	}
}

func TestParseConfigRejectsUnknownFields(t *testing.T) {
	_, err := ParseConfig([]byte("serach_paths:\n  - /x\n"))
	if err == nil {
		t.Fatal("unknown field accepted")
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mathexlab.yaml")
	if err := os.WriteFile(path, []byte("format: short\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Format != "short" {
		t.Errorf("Format = %q", cfg.Format)
	}

	if _, err := LoadConfig(filepath.Join(dir, "absent.yaml")); err == nil {
		t.Fatal("missing file accepted")
	}
}

func TestToolboxesJoinSearchPath(t *testing.T) {
	root := t.TempDir()
	tbDir := filepath.Join(root, "stats")
	if err := os.MkdirAll(tbDir, 0o755); err != nil {
		t.Fatal(err)
	}
	src := "function y = stat_one(x)\ny = x;\nend\n"
	if err := os.WriteFile(filepath.Join(tbDir, "stat_one.m"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewSession(&Config{Toolboxes: []string{"stats"}, ToolboxDir: root})
	out := s.Run("stat_one(7)")
	if !out.OK() {
		t.Fatalf("toolbox function failed to load: %s", out.Err)
	}
	if !strings.Contains(out.Output, "ans = 7") {
		t.Errorf("output = %q", out.Output)
	}
}

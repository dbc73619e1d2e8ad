package toolbox

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// initSourceRepo builds a local git repository to install from, so tests
// never touch the network.
func initSourceRepo(t *testing.T, files map[string]string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("init repo: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if _, err := wt.Add(name); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}
	hash, err := wt.Commit("add toolbox functions", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.invalid", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	return dir, hash.String()
}

func TestInstallFromLocalRepo(t *testing.T) {
	src, _ := initSourceRepo(t, map[string]string{
		"double_it.m": "function y = double_it(x)\ny = 2 * x;\nend\n",
		"README":      "stats helpers\n",
	})

	ins := NewInstaller(t.TempDir())
	dir, err := ins.Install(Spec{Name: "stats", URL: src})
	if err != nil {
		t.Fatalf("install: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "double_it.m")); err != nil {
		t.Fatalf("installed file missing: %v", err)
	}
	got := ins.Functions("stats")
	if len(got) != 1 || got[0] != "double_it" {
		t.Fatalf("Functions = %v, want [double_it]", got)
	}
	installed := ins.Installed()
	if len(installed) != 1 || installed[0] != "stats" {
		t.Fatalf("Installed = %v, want [stats]", installed)
	}
}

func TestInstallPinsRevision(t *testing.T) {
	src, first := initSourceRepo(t, map[string]string{
		"f.m": "function y = f()\ny = 1;\nend\n",
	})

	// Advance the source past the pinned commit.
	repo, err := git.PlainOpen(src)
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "g.m"), []byte("function y = g()\ny = 2;\nend\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Add("g.m"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := wt.Commit("add g", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.invalid", When: time.Now()},
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	ins := NewInstaller(t.TempDir())
	dir, err := ins.Install(Spec{Name: "pinned", URL: src, Rev: first})
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "f.m")); err != nil {
		t.Fatalf("pinned file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "g.m")); !os.IsNotExist(err) {
		t.Fatalf("file from a later commit present, stat err = %v", err)
	}
}

func TestInstallIsIdempotent(t *testing.T) {
	src, _ := initSourceRepo(t, map[string]string{"f.m": "function f()\nend\n"})
	ins := NewInstaller(t.TempDir())

	first, err := ins.Install(Spec{Name: "tb", URL: src})
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	second, err := ins.Install(Spec{Name: "tb", URL: "file:///nonexistent"})
	if err != nil {
		t.Fatalf("reinstall: %v", err)
	}
	if first != second {
		t.Fatalf("reinstall dir = %q, want %q", second, first)
	}
}

func TestRemove(t *testing.T) {
	src, _ := initSourceRepo(t, map[string]string{"f.m": "function f()\nend\n"})
	ins := NewInstaller(t.TempDir())

	if _, err := ins.Install(Spec{Name: "tb", URL: src}); err != nil {
		t.Fatalf("install: %v", err)
	}
	if err := ins.Remove("tb"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := ins.Installed(); len(got) != 0 {
		t.Fatalf("Installed after remove = %v, want empty", got)
	}
}

func TestSpecValidation(t *testing.T) {
	ins := NewInstaller(t.TempDir())

	if _, err := ins.Install(Spec{URL: "file:///x"}); err == nil {
		t.Error("missing name accepted")
	}
	if _, err := ins.Install(Spec{Name: "x"}); err == nil {
		t.Error("missing URL accepted")
	}
	if _, err := ins.Install(Spec{Name: "x", URL: "file:///x", Tag: "v1", Branch: "main"}); err == nil {
		t.Error("conflicting revision selectors accepted")
	}
}

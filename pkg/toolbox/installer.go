// Package toolbox installs M-file toolboxes from git repositories into a
// local root. Installed toolbox directories join the kernel's search path
// through the session config.
package toolbox

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Spec names a toolbox and the git source to install it from. Exactly one of
// Rev, Tag or Branch selects the revision.
type Spec struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	Rev    string `yaml:"rev"`
	Tag    string `yaml:"tag"`
	Branch string `yaml:"branch"`
}

// Installer manages a toolbox root directory.
type Installer struct {
	root string
}

// NewInstaller returns an installer rooted at dir, creating it on demand.
func NewInstaller(root string) *Installer {
	return &Installer{root: root}
}

// Dir returns the directory a toolbox occupies once installed.
func (ins *Installer) Dir(name string) string {
	return filepath.Join(ins.root, sanitizeName(name))
}

// Installed lists the toolboxes present under the root.
func (ins *Installer) Installed() []string {
	entries, err := os.ReadDir(ins.root)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// Install clones the toolbox repository at the pinned revision and moves it
// into place. The clone lands in a temporary directory first so a failed
// install never leaves a partial toolbox behind. Reinstalling an existing
// name is a no-op; Remove it first to upgrade.
func (ins *Installer) Install(spec Spec) (string, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return "", fmt.Errorf("toolbox name required")
	}
	url := strings.TrimSpace(spec.URL)
	if url == "" {
		return "", fmt.Errorf("toolbox %q: git URL required", spec.Name)
	}
	if err := os.MkdirAll(ins.root, 0o755); err != nil {
		return "", err
	}

	target := ins.Dir(spec.Name)
	if _, err := os.Stat(target); err == nil {
		return target, nil
	}

	revision, err := revisionFromSpec(spec)
	if err != nil {
		return "", err
	}

	tmpDir, err := os.MkdirTemp(ins.root, "toolbox-fetch-*")
	if err != nil {
		return "", err
	}
	if err := os.RemoveAll(tmpDir); err != nil {
		return "", err
	}

	repo, err := git.PlainClone(tmpDir, false, &git.CloneOptions{URL: url})
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", fmt.Errorf("git clone %s: %w", url, err)
	}

	if revision != "" {
		hash, err := repo.ResolveRevision(revision)
		if err != nil {
			_ = os.RemoveAll(tmpDir)
			return "", fmt.Errorf("resolve revision %s: %w", revision, err)
		}
		worktree, err := repo.Worktree()
		if err != nil {
			_ = os.RemoveAll(tmpDir)
			return "", err
		}
		if err := worktree.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
			_ = os.RemoveAll(tmpDir)
			return "", fmt.Errorf("git checkout %s: %w", revision, err)
		}
	}

	if err := os.Rename(tmpDir, target); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", err
	}
	return target, nil
}

// Remove deletes an installed toolbox.
func (ins *Installer) Remove(name string) error {
	return os.RemoveAll(ins.Dir(name))
}

// Functions lists the M-file names a toolbox provides.
func (ins *Installer) Functions(name string) []string {
	entries, err := os.ReadDir(ins.Dir(name))
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".m" {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".m"))
	}
	sort.Strings(names)
	return names
}

// revisionFromSpec maps the spec onto a git revision expression. An empty
// spec installs the clone's default branch head.
func revisionFromSpec(spec Spec) (plumbing.Revision, error) {
	set := 0
	for _, s := range []string{spec.Rev, spec.Tag, spec.Branch} {
		if strings.TrimSpace(s) != "" {
			set++
		}
	}
	if set > 1 {
		return "", fmt.Errorf("toolbox %q: rev, tag and branch are mutually exclusive", spec.Name)
	}
	if rev := strings.TrimSpace(spec.Rev); rev != "" {
		return plumbing.Revision(rev), nil
	}
	if tag := strings.TrimSpace(spec.Tag); tag != "" {
		return plumbing.Revision("refs/tags/" + tag), nil
	}
	if branch := strings.TrimSpace(spec.Branch); branch != "" {
		return plumbing.Revision("refs/heads/" + branch), nil
	}
	return "", nil
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "toolbox"
	}
	return b.String()
}

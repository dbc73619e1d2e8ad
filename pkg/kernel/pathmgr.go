package kernel

import (
	"os"
	"path/filepath"
	"sort"
)

// PathManager resolves function and script names to source files. The
// working directory is always searched first, then the configured
// directories in order. Hits are cached until the path list changes.
type PathManager struct {
	cwd   string
	dirs  []string
	cache map[string]string
}

// NewPathManager builds a resolver rooted at cwd.
func NewPathManager(cwd string, dirs []string) *PathManager {
	return &PathManager{
		cwd:   cwd,
		dirs:  append([]string(nil), dirs...),
		cache: map[string]string{},
	}
}

// AddPath prepends a directory to the search list.
func (pm *PathManager) AddPath(dir string) {
	pm.dirs = append([]string{dir}, pm.dirs...)
	pm.cache = map[string]string{}
}

// RemovePath drops a directory from the search list.
func (pm *PathManager) RemovePath(dir string) {
	kept := pm.dirs[:0]
	for _, d := range pm.dirs {
		if d != dir {
			kept = append(kept, d)
		}
	}
	pm.dirs = kept
	pm.cache = map[string]string{}
}

// Dirs lists the search directories, working directory first.
func (pm *PathManager) Dirs() []string {
	return append([]string{pm.cwd}, pm.dirs...)
}

// Find resolves name to the file <dir>/<name>.m, or "" when no directory
// holds it.
func (pm *PathManager) Find(name string) string {
	if hit, ok := pm.cache[name]; ok {
		return hit
	}
	for _, dir := range pm.Dirs() {
		candidate := filepath.Join(dir, name+".m")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			pm.cache[name] = candidate
			return candidate
		}
	}
	pm.cache[name] = ""
	return ""
}

// Available lists every loadable name on the current path, for completion
// and diagnostics.
func (pm *PathManager) Available() []string {
	seen := map[string]bool{}
	for _, dir := range pm.Dirs() {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ".m" {
				continue
			}
			seen[e.Name()[:len(e.Name())-2]] = true
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

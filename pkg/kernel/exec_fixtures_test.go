package kernel

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

// execFixture is one scripted run: source in, display output and the final
// diagnostic out. A fresh session runs each case.
type execFixture struct {
	Name   string `yaml:"name"`
	Src    string `yaml:"src"`
	Output string `yaml:"output"`
	Error  string `yaml:"error"`
}

func TestExecFixtures(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.yaml"))
	if err != nil {
		t.Fatalf("glob testdata: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no fixture files under testdata")
	}
	for _, file := range files {
		file := file
		t.Run(filepath.Base(file), func(t *testing.T) {
			for _, fx := range readExecFixtures(t, file) {
				fx := fx
				t.Run(fx.Name, func(t *testing.T) {
					runExecFixture(t, fx)
				})
			}
		})
	}
}

func readExecFixtures(t *testing.T, path string) []execFixture {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var cases []execFixture
	if err := dec.Decode(&cases); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return cases
}

func runExecFixture(t *testing.T, fx execFixture) {
	t.Helper()
	s := NewSession(nil)
	out := s.Run(fx.Src)

	if fx.Error != "" {
		if out.Err != fx.Error {
			t.Fatalf("error mismatch:\n got: %q\nwant: %q", out.Err, fx.Error)
		}
	} else if !out.OK() {
		t.Fatalf("unexpected error: %s", out.Err)
	}

	if out.Output != fx.Output {
		t.Fatalf("output mismatch:\n got: %q\nwant: %q", out.Output, fx.Output)
	}
}

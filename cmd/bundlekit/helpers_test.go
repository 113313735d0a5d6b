package main

import (
	"os"
	"path/filepath"
	"testing"
)

const fixtureIndexHTML = "<html><body><div id=\"root\"></div></body></html>"

// newProject creates a project using the default config layout and makes it
// the working directory.
func newProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"src/index.js":    "console.log(\"bundlekit-main\");\n",
		"src/test.js":     "console.log(\"bundlekit-test\");\n",
		"dist/index.html": fixtureIndexHTML,
	}
	for name, contents := range files {
		writeProjectFile(t, dir, name, contents)
	}
	t.Chdir(dir)
	return dir
}

func writeProjectFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func noEnv(string) (string, bool) {
	return "", false
}

func envMap(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

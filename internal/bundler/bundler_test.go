package bundler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bundlekit/internal/config"
)

func writeProjectFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func projectConfig(t *testing.T, root string) config.Config {
	t.Helper()
	cfg, err := config.Defaults()
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	cfg.Root = root
	cfg.Entries = map[string]string{"main": "./src/index.js"}
	return cfg
}

func TestBuildWritesNamedBundle(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "src/index.js", `
import styles from "./app.module.css";
import "./plain.css";
import icon from "icon-pkg/icon.svg";
console.log("bundlekit-marker", styles.title, icon);
`)
	writeProjectFile(t, root, "src/app.module.css", ".title { color: red; }\n")
	writeProjectFile(t, root, "src/plain.css", "body { margin: 0; }\n")
	writeProjectFile(t, root, "node_modules/icon-pkg/icon.svg", `<svg xmlns="http://www.w3.org/2000/svg"></svg>`)

	bundler, err := New(Options{Config: projectConfig(t, root)})
	if err != nil {
		t.Fatalf("new bundler: %v", err)
	}
	defer bundler.Close()

	result, err := bundler.Build(context.Background())
	if err != nil {
		t.Fatalf("build: %v (%v)", err, result.Errors)
	}
	if result.ID == "" {
		t.Fatal("expected build id")
	}
	if len(result.Outputs) != 1 || result.Outputs[0] != "main.bundle.js" {
		t.Fatalf("expected main.bundle.js output, got %v", result.Outputs)
	}

	payload, err := os.ReadFile(filepath.Join(root, "dist", "main.bundle.js"))
	if err != nil {
		t.Fatalf("read bundle: %v", err)
	}
	bundle := string(payload)
	for _, want := range []string{"bundlekit-marker", "data:image/svg+xml", "title_", "createElement(\"style\")", "margin: 0"} {
		if !strings.Contains(bundle, want) {
			t.Fatalf("expected %q in bundle", want)
		}
	}
}

func TestBuildTurnsLocalSVGIntoComponent(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "src/index.js", `
import Logo from "./logo.svg";
console.log("bundlekit-marker", Logo({}));
`)
	writeProjectFile(t, root, "src/logo.svg", `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 16 16"><circle r="8"/></svg>`)
	writeProjectFile(t, root, "node_modules/react/package.json", `{"name": "react", "main": "index.js"}`)
	writeProjectFile(t, root, "node_modules/react/index.js", `
export function createElement(type, props) {
  return { type: type, props: props, marker: "stub-create-element" };
}
`)

	bundler, err := New(Options{Config: projectConfig(t, root)})
	if err != nil {
		t.Fatalf("new bundler: %v", err)
	}
	defer bundler.Close()

	result, err := bundler.Build(context.Background())
	if err != nil {
		t.Fatalf("build: %v (%v)", err, result.Errors)
	}

	payload, err := os.ReadFile(filepath.Join(root, "dist", "main.bundle.js"))
	if err != nil {
		t.Fatalf("read bundle: %v", err)
	}
	bundle := string(payload)
	for _, want := range []string{"LogoSvg", "stub-create-element", "dangerouslySetInnerHTML", "viewBox"} {
		if !strings.Contains(bundle, want) {
			t.Fatalf("expected %q in bundle", want)
		}
	}
	if strings.Contains(bundle, "data:image/svg+xml") {
		t.Fatal("expected local svg to be a component, not a data url")
	}
}

func TestBuildReportsErrors(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "src/index.js", "import missing from \"./missing.js\";\nconsole.log(missing);\n")

	bundler, err := New(Options{Config: projectConfig(t, root)})
	if err != nil {
		t.Fatalf("new bundler: %v", err)
	}
	defer bundler.Close()

	result, err := bundler.Build(context.Background())
	var buildErr *BuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("expected BuildError, got %v", err)
	}
	if len(result.Errors) == 0 || result.OK() {
		t.Fatalf("expected result errors, got %+v", result)
	}
	if !strings.Contains(strings.Join(result.Errors, "\n"), "missing.js") {
		t.Fatalf("expected missing import in errors, got %v", result.Errors)
	}
}

func TestBuildHonoursCancelledContext(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "src/index.js", "console.log(1);\n")

	bundler, err := New(Options{Config: projectConfig(t, root)})
	if err != nil {
		t.Fatalf("new bundler: %v", err)
	}
	defer bundler.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := bundler.Build(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBuildAfterCloseFails(t *testing.T) {
	root := t.TempDir()
	bundler, err := New(Options{Config: projectConfig(t, root)})
	if err != nil {
		t.Fatalf("new bundler: %v", err)
	}
	bundler.Close()
	bundler.Close()

	if _, err := bundler.Build(context.Background()); !errors.Is(err, errClosed) {
		t.Fatalf("expected errClosed, got %v", err)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := projectConfig(t, t.TempDir())
	cfg.Build.Target = "es3"
	if _, err := New(Options{Config: cfg}); err == nil {
		t.Fatal("expected unsupported target error")
	}

	cfg = projectConfig(t, t.TempDir())
	cfg.Entries = nil
	if _, err := New(Options{Config: cfg}); !errors.Is(err, config.ErrNoEntries) {
		t.Fatalf("expected ErrNoEntries, got %v", err)
	}
}

func TestBuildErrorMessage(t *testing.T) {
	err := &BuildError{Messages: []string{"a", "b", "c"}}
	if err.Error() != "build failed: a (and 2 more)" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

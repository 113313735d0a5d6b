package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRouteMatchesDevServerCatchAll(t *testing.T) {
	newProject(t)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	code := runRoute([]string{"/favicon.ico", "/main.bundle.js", "/anything/else"}, stdout, stderr)
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr.String())
	}
	want := strings.Join([]string{
		"/favicon.ico -> dist/favicon.ico (allow)",
		"/main.bundle.js -> dist/main.bundle.js (allow)",
		"/anything/else -> dist/index.html (fallback)",
	}, "\n") + "\n"
	if stdout.String() != want {
		t.Fatalf("expected:\n%s\ngot:\n%s", want, stdout.String())
	}
}

func TestRouteRequiresPaths(t *testing.T) {
	newProject(t)
	if code := runRoute(nil, &bytes.Buffer{}, &bytes.Buffer{}); code != exitUsage {
		t.Fatalf("expected usage exit, got %d", code)
	}
}

func TestLoadersReportsChains(t *testing.T) {
	newProject(t)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	code := runLoaders([]string{
		"src/app.js",
		"./src/styles/app.css",
		"node_modules/icons/logo.svg",
		"src/logo.svg",
		"node_modules/lib/index.js",
		"README.md",
	}, stdout, stderr)
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr.String())
	}
	want := strings.Join([]string{
		"src/app.js: script (rule 0)",
		"./src/styles/app.css: style,css (rule 1)",
		"node_modules/icons/logo.svg: url (rule 2)",
		"src/logo.svg: component (rule 3)",
		"node_modules/lib/index.js: none",
		"README.md: none",
	}, "\n") + "\n"
	if stdout.String() != want {
		t.Fatalf("expected:\n%s\ngot:\n%s", want, stdout.String())
	}
}

func TestLoadersReportsConfigErrors(t *testing.T) {
	dir := newProject(t)
	writeProjectFile(t, dir, "bundlekit.toml", `
[[rules]]
test = '\.js$'
use = ["babel"]
`)
	stderr := &bytes.Buffer{}
	if code := runLoaders([]string{"src/app.js"}, &bytes.Buffer{}, stderr); code != exitFailure {
		t.Fatalf("expected failure exit, got %d", code)
	}
	if !strings.Contains(stderr.String(), "babel") {
		t.Fatalf("expected unknown tool in error, got %q", stderr.String())
	}
}

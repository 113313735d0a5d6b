package bundler

import (
	"errors"
	"strings"
	"testing"

	"bundlekit/internal/loader"

	"github.com/evanw/esbuild/pkg/api"
)

func TestScopeCSSModuleRenamesSelectorsOnly(t *testing.T) {
	source := `/* .comment */
.title, .card.active:hover > .icon { background: url(img/a.png); margin: .5em; }
@media (max-width: 600px) { .title { content: ".nope"; } }
:global(.keep) .body { color: red; }
`
	scoped, classes := scopeCSSModule(source, "src/app.module.css")
	suffix := shortHash("src/app.module.css")

	for _, name := range []string{"title", "card", "active", "icon", "body"} {
		want := name + "_" + suffix
		if classes[name] != want {
			t.Fatalf("expected %s -> %s, got %q", name, want, classes[name])
		}
		if !strings.Contains(scoped, "."+want) {
			t.Fatalf("expected scoped selector .%s in %q", want, scoped)
		}
	}
	for _, untouched := range []string{"/* .comment */", "url(img/a.png)", "margin: .5em", `".nope"`, ":global(.keep)"} {
		if !strings.Contains(scoped, untouched) {
			t.Fatalf("expected %q to be untouched in %q", untouched, scoped)
		}
	}
	if _, ok := classes["keep"]; ok {
		t.Fatal("expected :global class to stay unscoped")
	}
	if _, ok := classes["png"]; ok {
		t.Fatal("expected url contents to stay unscoped")
	}
}

func TestScopeCSSModuleIsStablePerPath(t *testing.T) {
	_, first := scopeCSSModule(".a {}", "src/a.module.css")
	_, second := scopeCSSModule(".a {}", "src/a.module.css")
	_, other := scopeCSSModule(".a {}", "src/b.module.css")
	if first["a"] != second["a"] {
		t.Fatalf("expected stable names, got %q and %q", first["a"], second["a"])
	}
	if first["a"] == other["a"] {
		t.Fatalf("expected different files to get different names, got %q", other["a"])
	}
}

func TestScopeCSSModuleSkipsParenInQuotedURL(t *testing.T) {
	source := ".hero { background: url(\"a).png\"); }\n.logo { mask: url('b).svg'); }\n.title { color: red; }\n"
	scoped, classes := scopeCSSModule(source, "src/hero.module.css")
	suffix := shortHash("src/hero.module.css")

	for _, name := range []string{"hero", "logo", "title"} {
		if classes[name] != name+"_"+suffix {
			t.Fatalf("expected %s to be scoped, got classes %v", name, classes)
		}
	}
	if !strings.Contains(scoped, `url("a).png")`) || !strings.Contains(scoped, `url('b).svg')`) {
		t.Fatalf("expected urls to be unchanged, got %q", scoped)
	}
}

func TestMaskCSSKeepsOffsets(t *testing.T) {
	source := ".a { background: url(\"x).png\") } /* .b */ .c {}"
	masked := maskCSS(source)
	if len(masked) != len(source) {
		t.Fatalf("expected length %d, got %d", len(source), len(masked))
	}
	if strings.Contains(masked, "png") || strings.Contains(masked, ".b") {
		t.Fatalf("expected url and comment to be blanked, got %q", masked)
	}
	if !strings.HasSuffix(masked, ".c {}") {
		t.Fatalf("expected trailing rule to survive, got %q", masked)
	}
}

func TestStyleModuleInjectsAndExportsClasses(t *testing.T) {
	contents, err := styleModule("body{color:red}</style>", "src/app.css", map[string]string{"b": "b_1", "a": "a_1"})
	if err != nil {
		t.Fatalf("style module: %v", err)
	}
	for _, want := range []string{
		`document.createElement("style")`,
		`"data-bundlekit-source", "src/app.css"`,
		`export default {"a": "a_1", "b": "b_1"};`,
		`\u003c/style\u003e`,
	} {
		if !strings.Contains(contents, want) {
			t.Fatalf("expected %q in %q", want, contents)
		}
	}
}

func TestComponentModule(t *testing.T) {
	source := `<?xml version="1.0" encoding="UTF-8"?>
<!-- icon -->
<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24"><path d="M0 0h24v24H0z"/></svg>`

	contents, err := componentModule(source, "src/icons/arrow-left.svg", "preact")
	if err != nil {
		t.Fatalf("component module: %v", err)
	}
	for _, want := range []string{
		`import { createElement } from "preact";`,
		`export default function ArrowLeftSvg(props)`,
		`dangerouslySetInnerHTML`,
		`\u003csvg xmlns=`,
	} {
		if !strings.Contains(contents, want) {
			t.Fatalf("expected %q in %q", want, contents)
		}
	}
	if strings.Contains(contents, "</style>") || strings.Contains(contents, "<svg") {
		t.Fatalf("expected markup to be escaped inside the module: %q", contents)
	}
	if strings.Contains(contents, "xml version") {
		t.Fatalf("expected xml prolog to be stripped: %q", contents)
	}
}

func TestComponentModuleRejectsNonSVG(t *testing.T) {
	_, err := componentModule("<html></html>", "src/x.svg", "react")
	if !errors.Is(err, errNotSVG) {
		t.Fatalf("expected errNotSVG, got %v", err)
	}
}

func TestDisplayName(t *testing.T) {
	cases := map[string]string{
		"logo.svg":                 "LogoSvg",
		"src/icons/arrow-left.svg": "ArrowLeftSvg",
		"src/404.svg":              "Icon404Svg",
		"a/b/c_d.e.svg":            "CDESvg",
	}
	for rel, want := range cases {
		if got := displayName(rel); got != want {
			t.Fatalf("displayName(%q) = %q, want %q", rel, got, want)
		}
	}
}

func TestRunChainRightToLeft(t *testing.T) {
	loaded, err := runChain([]loader.Tool{loader.ToolStyle, loader.ToolCSS}, module{
		path:     "/p/src/a.module.css",
		rel:      "src/a.module.css",
		contents: ".x { color: red; }",
	}, "react")
	if err != nil {
		t.Fatalf("run chain: %v", err)
	}
	if loaded.loader != api.LoaderJS {
		t.Fatalf("expected JS loader, got %v", loaded.loader)
	}
	if !strings.Contains(loaded.contents, `"x": "x_`) {
		t.Fatalf("expected class map export, got %q", loaded.contents)
	}
}

func TestRunChainStyleWithoutCSSFails(t *testing.T) {
	_, err := runChain([]loader.Tool{loader.ToolStyle}, module{contents: "x"}, "react")
	if err == nil {
		t.Fatal("expected style without css to fail")
	}
}

func TestRunChainSingleTools(t *testing.T) {
	cases := map[loader.Tool]api.Loader{
		loader.ToolScript: api.LoaderJSX,
		loader.ToolURL:    api.LoaderDataURL,
		loader.ToolCSS:    api.LoaderCSS,
	}
	for tool, want := range cases {
		loaded, err := runChain([]loader.Tool{tool}, module{path: "a", contents: "x"}, "react")
		if err != nil {
			t.Fatalf("%s: %v", tool, err)
		}
		if loaded.loader != want {
			t.Fatalf("%s: expected loader %v, got %v", tool, want, loaded.loader)
		}
	}
}

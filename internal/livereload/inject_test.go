package livereload

import "testing"

func TestInjectScriptBeforeClosingBody(t *testing.T) {
	html := []byte("<html><body><div id=\"root\"></div></BODY></html>")
	got := string(InjectScript(html, "/__bundlekit/livereload.js"))
	want := "<html><body><div id=\"root\"></div><script src=\"/__bundlekit/livereload.js\"></script></BODY></html>"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestInjectScriptUsesLastBody(t *testing.T) {
	html := []byte("<body><pre>&lt;/body&gt; </body></pre></body>")
	got := string(InjectScript(html, "/lr.js"))
	want := "<body><pre>&lt;/body&gt; </body></pre><script src=\"/lr.js\"></script></body>"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestInjectScriptAppendsWithoutBody(t *testing.T) {
	got := string(InjectScript([]byte("<h1>hi</h1>"), "/lr.js"))
	want := "<h1>hi</h1>\n<script src=\"/lr.js\"></script>"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestInjectScriptKeepsMultibyteText(t *testing.T) {
	got := string(InjectScript([]byte("<body>İstanbul</body>"), "/lr.js"))
	want := "<body>İstanbul<script src=\"/lr.js\"></script></body>"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestScriptTagEscapesSource(t *testing.T) {
	got := string(ScriptTag(`/a"b.js`))
	want := `<script src="/a&#34;b.js"></script>`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

package livereload

import (
	"bytes"
	"html"
)

var closingBody = []byte("</body>")

// ScriptTag renders the script element that loads the client from src.
func ScriptTag(src string) []byte {
	return []byte(`<script src="` + html.EscapeString(src) + `"></script>`)
}

// InjectScript inserts a script tag loading src before the last closing
// body tag, or appends it when the document has none.
func InjectScript(document []byte, src string) []byte {
	tag := ScriptTag(src)
	index := lastIndexFold(document, closingBody)
	out := make([]byte, 0, len(document)+len(tag)+1)
	if index < 0 {
		out = append(out, document...)
		if len(out) > 0 && out[len(out)-1] != '\n' {
			out = append(out, '\n')
		}
		return append(out, tag...)
	}
	out = append(out, document[:index]...)
	out = append(out, tag...)
	return append(out, document[index:]...)
}

// lastIndexFold is an ASCII case-insensitive bytes.LastIndex that keeps
// offsets valid for documents containing multi-byte text.
func lastIndexFold(document, needle []byte) int {
	for i := len(document) - len(needle); i >= 0; i-- {
		if bytes.EqualFold(document[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}

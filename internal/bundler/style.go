package bundler

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"sort"
	"strings"
)

var classSelector = regexp.MustCompile(`\.(-?[_a-zA-Z][_a-zA-Z0-9-]*)`)

func isCSSModule(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".module.css")
}

// scopeCSSModule renames class selectors to name_<hash>, where the hash
// depends on the file path. Classes inside :global(...), strings, url(...)
// and declaration blocks are left alone.
func scopeCSSModule(source, rel string) (string, map[string]string) {
	suffix := shortHash(rel)
	classes := map[string]string{}
	masked := maskCSS(source)

	type span struct {
		start, end int
		name       string
	}
	var spans []span
	segmentStart := 0
	for i := 0; i <= len(masked); i++ {
		if i < len(masked) && masked[i] != '{' && masked[i] != '}' && masked[i] != ';' {
			continue
		}
		isPrelude := i < len(masked) && masked[i] == '{'
		segment := masked[segmentStart:i]
		if isPrelude && !strings.HasPrefix(strings.TrimSpace(segment), "@") {
			for _, match := range classSelector.FindAllStringSubmatchIndex(segment, -1) {
				name := segment[match[2]:match[3]]
				spans = append(spans, span{start: segmentStart + match[2], end: segmentStart + match[3], name: name})
			}
		}
		segmentStart = i + 1
	}

	if len(spans) == 0 {
		return source, classes
	}
	builder := strings.Builder{}
	last := 0
	for _, s := range spans {
		scoped := s.name + "_" + suffix
		classes[s.name] = scoped
		builder.WriteString(source[last:s.start])
		builder.WriteString(scoped)
		last = s.end
	}
	builder.WriteString(source[last:])
	return builder.String(), classes
}

// maskCSS blanks out comments, strings, url(...) and :global(...) while
// keeping byte offsets.
func maskCSS(source string) string {
	out := []byte(source)
	blank := func(from, to int) {
		for i := from; i < to && i < len(out); i++ {
			if out[i] != '\n' {
				out[i] = ' '
			}
		}
	}
	for i := 0; i < len(source); i++ {
		switch {
		case strings.HasPrefix(source[i:], "/*"):
			end := strings.Index(source[i+2:], "*/")
			if end < 0 {
				blank(i, len(source))
				return string(out)
			}
			blank(i, i+2+end+2)
			i += 2 + end + 1
		case source[i] == '"' || source[i] == '\'':
			j := skipQuoted(source, i)
			blank(i, j+1)
			i = j
		case hasFoldPrefix(source[i:], "url("), hasFoldPrefix(source[i:], ":global("):
			end := closingParen(source, i)
			if end < 0 {
				blank(i, len(source))
				return string(out)
			}
			blank(i, end+1)
			i = end
		}
	}
	return string(out)
}

// skipQuoted returns the index of the quote closing the string that opens
// at start, or len(source) when it is unterminated.
func skipQuoted(source string, start int) int {
	quote := source[start]
	j := start + 1
	for j < len(source) && source[j] != quote {
		if source[j] == '\\' {
			j++
		}
		j++
	}
	return j
}

// closingParen returns the index of the first ')' after start that is not
// inside a quoted run, or -1.
func closingParen(source string, start int) int {
	for j := start; j < len(source); j++ {
		switch source[j] {
		case '"', '\'':
			j = skipQuoted(source, j)
		case ')':
			return j
		}
	}
	return -1
}

func hasFoldPrefix(value, prefix string) bool {
	return len(value) >= len(prefix) && strings.EqualFold(value[:len(prefix)], prefix)
}

func shortHash(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])[:6]
}

// styleModule returns JS that injects css into the document head and
// default-exports the class map.
func styleModule(css, rel string, classes map[string]string) (string, error) {
	cssLiteral, err := json.Marshal(css)
	if err != nil {
		return "", err
	}
	relLiteral, err := json.Marshal(rel)
	if err != nil {
		return "", err
	}
	classLiteral, err := marshalSorted(classes)
	if err != nil {
		return "", err
	}

	builder := strings.Builder{}
	builder.WriteString("const css = ")
	builder.Write(cssLiteral)
	builder.WriteString(";\n")
	builder.WriteString("if (typeof document !== \"undefined\") {\n")
	builder.WriteString("  const style = document.createElement(\"style\");\n")
	builder.WriteString("  style.setAttribute(\"data-bundlekit-source\", ")
	builder.Write(relLiteral)
	builder.WriteString(");\n")
	builder.WriteString("  style.textContent = css;\n")
	builder.WriteString("  document.head.appendChild(style);\n")
	builder.WriteString("}\n")
	builder.WriteString("export default ")
	builder.WriteString(classLiteral)
	builder.WriteString(";\n")
	return builder.String(), nil
}

func marshalSorted(values map[string]string) (string, error) {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	builder := strings.Builder{}
	builder.WriteString("{")
	for i, key := range keys {
		if i > 0 {
			builder.WriteString(", ")
		}
		k, err := json.Marshal(key)
		if err != nil {
			return "", err
		}
		v, err := json.Marshal(values[key])
		if err != nil {
			return "", err
		}
		builder.Write(k)
		builder.WriteString(": ")
		builder.Write(v)
	}
	builder.WriteString("}")
	return builder.String(), nil
}

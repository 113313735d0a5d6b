package bundler

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var (
	errNotSVG     = errors.New("file does not contain an <svg> element")
	svgPreamble   = regexp.MustCompile(`(?s)^\s*(<\?xml.*?\?>\s*)?(<!--.*?-->\s*)*(<!DOCTYPE[^>]*>\s*)?`)
	svgOpenTag    = regexp.MustCompile(`(?is)<svg[\s>]`)
	componentName = regexp.MustCompile(`[^A-Za-z0-9]+`)
)

// componentModule returns JS that default-exports a component rendering the
// SVG markup through runtime's createElement.
func componentModule(source, rel, runtime string) (string, error) {
	markup := strings.TrimSpace(svgPreamble.ReplaceAllString(source, ""))
	if !svgOpenTag.MatchString(markup) {
		return "", errNotSVG
	}

	markupLiteral, err := json.Marshal(markup)
	if err != nil {
		return "", err
	}
	runtimeLiteral, err := json.Marshal(runtime)
	if err != nil {
		return "", err
	}
	name := displayName(rel)

	builder := strings.Builder{}
	builder.WriteString("import { createElement } from ")
	builder.Write(runtimeLiteral)
	builder.WriteString(";\n")
	builder.WriteString("const markup = ")
	builder.Write(markupLiteral)
	builder.WriteString(";\n")
	builder.WriteString("export default function " + name + "(props) {\n")
	builder.WriteString("  return createElement(\"span\", Object.assign({ role: \"img\" }, props, { dangerouslySetInnerHTML: { __html: markup } }));\n")
	builder.WriteString("}\n")
	builder.WriteString(name + ".markup = markup;\n")
	return builder.String(), nil
}

// displayName turns src/icons/arrow-left.svg into ArrowLeftSvg.
func displayName(rel string) string {
	base := rel
	if index := strings.LastIndex(base, "/"); index >= 0 {
		base = base[index+1:]
	}
	base = strings.TrimSuffix(base, ".svg")
	parts := componentName.Split(base, -1)
	builder := strings.Builder{}
	for _, part := range parts {
		if part == "" {
			continue
		}
		builder.WriteString(strings.ToUpper(part[:1]))
		builder.WriteString(part[1:])
	}
	name := builder.String()
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "Icon" + name
	}
	return name + "Svg"
}

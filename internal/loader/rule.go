package loader

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// Tool names a transform applied to a matched file.
type Tool string

const (
	// ToolScript transpiles JavaScript and JSX.
	ToolScript Tool = "script"
	// ToolCSS reads a stylesheet; *.module.css files get scoped class names.
	ToolCSS Tool = "css"
	// ToolStyle turns CSS into a module that injects a <style> element.
	ToolStyle Tool = "style"
	// ToolURL inlines the file as a data URL.
	ToolURL Tool = "url"
	// ToolComponent turns SVG markup into a component module.
	ToolComponent Tool = "component"
)

var (
	ErrUnknownTool  = errors.New("unknown tool")
	ErrInvalidChain = errors.New("invalid tool chain")
)

var knownTools = map[Tool]bool{
	ToolScript:    true,
	ToolCSS:       true,
	ToolStyle:     true,
	ToolURL:       true,
	ToolComponent: true,
}

var validChains = []string{
	"script",
	"css",
	"style,css",
	"url",
	"component",
}

// RuleSpec is the configured form of a rule.
type RuleSpec struct {
	Test    string   `toml:"test" yaml:"test" json:"test" jsonschema:"description=Regular expression matched against the file path"`
	Include []string `toml:"include" yaml:"include" json:"include,omitempty" jsonschema:"description=Gitignore-style patterns the path must match"`
	Exclude []string `toml:"exclude" yaml:"exclude" json:"exclude,omitempty" jsonschema:"description=Gitignore-style patterns the path must not match"`
	Use     []string `toml:"use" yaml:"use" json:"use" jsonschema:"description=Tool chain applied right to left"`
}

// Rule is a compiled RuleSpec.
type Rule struct {
	Index int
	Spec  RuleSpec
	Tools []Tool

	test    *regexp.Regexp
	include *ignore.GitIgnore
	exclude *ignore.GitIgnore
}

func compileRule(index int, spec RuleSpec) (Rule, error) {
	if strings.TrimSpace(spec.Test) == "" {
		return Rule{}, fmt.Errorf("rule %d: test is required", index)
	}
	test, err := regexp.Compile(spec.Test)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %d: test: %w", index, err)
	}
	tools, err := parseChain(spec.Use)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %d: %w", index, err)
	}

	rule := Rule{
		Index: index,
		Spec:  spec,
		Tools: tools,
		test:  test,
	}
	if patterns := nonEmpty(spec.Include); len(patterns) > 0 {
		rule.include = ignore.CompileIgnoreLines(patterns...)
	}
	if patterns := nonEmpty(spec.Exclude); len(patterns) > 0 {
		rule.exclude = ignore.CompileIgnoreLines(patterns...)
	}
	return rule, nil
}

func (r Rule) matches(path string) bool {
	if r.test == nil || !r.test.MatchString(path) {
		return false
	}
	if r.include != nil && !r.include.MatchesPath(path) {
		return false
	}
	if r.exclude != nil && r.exclude.MatchesPath(path) {
		return false
	}
	return true
}

// Chain returns the tool names joined in declaration order.
func (r Rule) Chain() string {
	names := make([]string, len(r.Tools))
	for i, tool := range r.Tools {
		names[i] = string(tool)
	}
	return strings.Join(names, ",")
}

// Last returns the tool that runs first, i.e. the rightmost one.
func (r Rule) Last() Tool {
	if len(r.Tools) == 0 {
		return ""
	}
	return r.Tools[len(r.Tools)-1]
}

func parseChain(use []string) ([]Tool, error) {
	if len(use) == 0 {
		return nil, fmt.Errorf("%w: use is empty", ErrInvalidChain)
	}
	tools := make([]Tool, 0, len(use))
	names := make([]string, 0, len(use))
	for _, raw := range use {
		name := strings.ToLower(strings.TrimSpace(raw))
		tool := Tool(name)
		if !knownTools[tool] {
			return nil, fmt.Errorf("%w %q", ErrUnknownTool, raw)
		}
		tools = append(tools, tool)
		names = append(names, name)
	}
	chain := strings.Join(names, ",")
	for _, valid := range validChains {
		if chain == valid {
			return tools, nil
		}
	}
	return nil, fmt.Errorf("%w %q (supported: %s)", ErrInvalidChain, chain, strings.Join(validChains, " | "))
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

package registry

import (
	"regexp"
	"strings"
)

// Syntax holds the delimiters of the component tag and placeholder grammar.
type Syntax struct {
	TagStart       string `mapstructure:"tag_start" yaml:"tag_start"`
	TagEnd         string `mapstructure:"tag_end" yaml:"tag_end"`
	ParamStart     string `mapstructure:"param_start" yaml:"param_start"`
	ParamEnd       string `mapstructure:"param_end" yaml:"param_end"`
	TemplatePrefix string `mapstructure:"template_prefix" yaml:"template_prefix"`
	NonePrefix     string `mapstructure:"none_prefix" yaml:"none_prefix"`
}

// DefaultSyntax returns the stock grammar: <r-name key="value">, {key},
// @template:name and @none.
func DefaultSyntax() Syntax {
	return Syntax{
		TagStart:       "<r-",
		TagEnd:         ">",
		ParamStart:     "{",
		ParamEnd:       "}",
		TemplatePrefix: "@template:",
		NonePrefix:     "@none",
	}
}

// Tag is one located occurrence of a component tag.
type Tag struct {
	Start int
	End   int
	Raw   string
	Name  string
	Attrs string
}

// Attribute is a parsed key/value pair from a tag's attribute text.
type Attribute struct {
	Key   string
	Value string
}

var attributePattern = regexp.MustCompile(`([a-zA-Z0-9_-]+)=('[^']*'|"[^"]*"|[^\s'"]+)`)

// TagMatcher finds component tags written in a given Syntax.
type TagMatcher struct {
	syntax  Syntax
	pattern *regexp.Regexp
}

// NewTagMatcher compiles the tag pattern for syntax.
func NewTagMatcher(syntax Syntax) *TagMatcher {
	// Attribute text runs lazily up to the first end delimiter.
	expr := `(?s)` + regexp.QuoteMeta(syntax.TagStart) +
		`([a-zA-Z0-9_-]+)(.*?)` + regexp.QuoteMeta(syntax.TagEnd)

	return &TagMatcher{
		syntax:  syntax,
		pattern: regexp.MustCompile(expr),
	}
}

// Syntax returns the grammar this matcher was built for.
func (m *TagMatcher) Syntax() Syntax {
	return m.syntax
}

// First returns the first tag in text.
func (m *TagMatcher) First(text string) (Tag, bool) {
	loc := m.pattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return Tag{}, false
	}
	return tagFromIndex(text, loc), true
}

// FindAll returns every non-overlapping tag in text, in order.
func (m *TagMatcher) FindAll(text string) []Tag {
	locs := m.pattern.FindAllStringSubmatchIndex(text, -1)
	tags := make([]Tag, 0, len(locs))
	for _, loc := range locs {
		tags = append(tags, tagFromIndex(text, loc))
	}
	return tags
}

// Names returns the distinct component names referenced in text, in order of
// first appearance.
func (m *TagMatcher) Names(text string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, tag := range m.FindAll(text) {
		if !seen[tag.Name] {
			seen[tag.Name] = true
			names = append(names, tag.Name)
		}
	}
	return names
}

// Render writes a bare tag for name, e.g. "<r-icon>".
func (m *TagMatcher) Render(name string) string {
	return m.syntax.TagStart + name + m.syntax.TagEnd
}

// Placeholder returns the placeholder token for key, e.g. "{image}".
func (m *TagMatcher) Placeholder(key string) string {
	return m.syntax.ParamStart + key + m.syntax.ParamEnd
}

func tagFromIndex(text string, loc []int) Tag {
	return Tag{
		Start: loc[0],
		End:   loc[1],
		Raw:   text[loc[0]:loc[1]],
		Name:  text[loc[2]:loc[3]],
		Attrs: text[loc[4]:loc[5]],
	}
}

// ParseAttributes extracts key=value, key="value" and key='value' pairs.
// Surrounding quotes are stripped; order is preserved.
func ParseAttributes(raw string) []Attribute {
	matches := attributePattern.FindAllStringSubmatch(raw, -1)
	attrs := make([]Attribute, 0, len(matches))
	for _, match := range matches {
		attrs = append(attrs, Attribute{Key: match[1], Value: unquote(match[2])})
	}
	return attrs
}

func unquote(value string) string {
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '"' || first == '\'') && first == last {
			return value[1 : len(value)-1]
		}
	}
	return strings.TrimSpace(value)
}

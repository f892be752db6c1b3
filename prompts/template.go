package prompts

import (
	"sort"
	"strings"
)

// PromptTemplate represents a string template that can be formatted.
type PromptTemplate struct {
	Template string
}

// NewPromptTemplate creates a new prompt template.
func NewPromptTemplate(template string) PromptTemplate {
	return PromptTemplate{Template: template}
}

// Format substitutes variables in the template string.
// Variables are in the format `{{.variable_name}}`. Substitution is a single
// pass, so placeholder text inside a value is left as is.
func (p PromptTemplate) Format(vars map[string]string) string {
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, key := range keys {
		pairs = append(pairs, "{{."+key+"}}", vars[key])
	}
	return strings.NewReplacer(pairs...).Replace(p.Template)
}

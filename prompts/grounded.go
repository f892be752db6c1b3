package prompts

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"

	"github.com/sevigo/searchrag/schema"
)

// GroundedPromptVersion identifies the wording of GroundedPrompt. Bump it
// whenever the instruction text changes.
const GroundedPromptVersion = "grounded-products/v1"

// GroundedPrompt restricts the model to the supplied sources and asks for a
// short bulleted answer. Variables: query, sources.
var GroundedPrompt = NewPromptTemplate(heredoc.Doc(`
	You are a friendly assistant that recommends products.
	Answer the query using only the sources provided below in a friendly and concise bulleted manner.
	Answer ONLY with the facts listed in the list of sources below.
	If there isn't enough information below, say you don't know.
	Do not generate answers that don't use the sources below.
	Query: {{.query}}
	Sources:
	{{.sources}}
`))

// Compose renders the grounded prompt for query over docs.
func Compose(query string, docs []schema.Document) string {
	return GroundedPrompt.Format(map[string]string{
		"query":   query,
		"sources": FormatSources(docs),
	})
}

// FormatSources renders one name:content:keyphrases:url:products line per
// document, in order.
func FormatSources(docs []schema.Document) string {
	lines := make([]string, len(docs))
	for i, doc := range docs {
		lines[i] = FormatSource(doc)
	}
	return strings.Join(lines, "\n")
}

// FormatSource renders a single document. Absent fields render empty; list
// fields render as JSON arrays.
func FormatSource(doc schema.Document) string {
	return strings.Join([]string{
		doc.Name,
		doc.Content,
		formatList(doc.Keyphrases),
		doc.URL,
		formatList(doc.Products),
	}, ":")
}

func formatList(values []string) string {
	if values == nil {
		return ""
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// encoding a []string cannot fail
	_ = enc.Encode(values)
	return strings.TrimSuffix(buf.String(), "\n")
}

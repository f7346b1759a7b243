package ai

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/amishk599/jobenrich/internal/schema"
)

//go:embed prompts/enrichment.md
var enrichmentPromptRaw string

// EnrichmentTemplate is the parsed instruction template. The listing
// description is appended after the rendered text.
var EnrichmentTemplate = template.Must(template.New("enrichment").Parse(enrichmentPromptRaw))

// RenderPrompt renders the instruction text for s. It is rendered once per
// batch and shared by every request.
func RenderPrompt(tmpl *template.Template, s schema.Schema) (string, error) {
	descriptor, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal schema: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ Schema string }{Schema: string(descriptor)}); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}

package ai

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/amishk599/jobenrich/internal/model"
	"github.com/amishk599/jobenrich/internal/schema"
)

// ChatCompletionsEndpoint is the endpoint every batch request targets.
const ChatCompletionsEndpoint = "/v1/chat/completions"

const systemPrompt = "You are a helpful assistant."

// BatchRequest is one line of a batch input file.
type BatchRequest struct {
	CustomID string      `json:"custom_id"`
	Method   string      `json:"method"`
	URL      string      `json:"url"`
	Body     chatRequest `json:"body"`
}

// chatRequest mirrors the OpenAI /v1/chat/completions request body.
type chatRequest struct {
	Model          string         `json:"model"`
	ResponseFormat responseFormat `json:"response_format"`
	Messages       []chatMessage  `json:"messages"`
	MaxTokens      int            `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string        `json:"type"`
	JSONSchema schema.Schema `json:"json_schema"`
}

// RequestBuilder turns listings into batch requests for one model and schema.
type RequestBuilder struct {
	model     string
	maxTokens int
	schema    schema.Schema
	tmpl      *template.Template
}

// NewRequestBuilder creates a builder. A nil tmpl uses EnrichmentTemplate.
func NewRequestBuilder(model string, maxTokens int, s schema.Schema, tmpl *template.Template) *RequestBuilder {
	if tmpl == nil {
		tmpl = EnrichmentTemplate
	}
	return &RequestBuilder{
		model:     model,
		maxTokens: maxTokens,
		schema:    s,
		tmpl:      tmpl,
	}
}

// BuildRequests returns one request per listing, in listing order, with the
// listing id as custom_id. Duplicate ids are rejected since results could not
// be told apart.
func (b *RequestBuilder) BuildRequests(listings []model.Listing) ([]BatchRequest, error) {
	prompt, err := RenderPrompt(b.tmpl, b.schema)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(listings))
	reqs := make([]BatchRequest, 0, len(listings))
	for _, l := range listings {
		if l.ID == "" {
			return nil, fmt.Errorf("listing %q has no id", l.Title)
		}
		if _, dup := seen[l.ID]; dup {
			return nil, fmt.Errorf("duplicate listing id %q", l.ID)
		}
		seen[l.ID] = struct{}{}

		desc := ""
		if l.Description != nil {
			desc = *l.Description
		}
		reqs = append(reqs, BatchRequest{
			CustomID: l.ID,
			Method:   "POST",
			URL:      ChatCompletionsEndpoint,
			Body: chatRequest{
				Model: b.model,
				ResponseFormat: responseFormat{
					Type:       "json_schema",
					JSONSchema: b.schema,
				},
				Messages: []chatMessage{
					{Role: "system", Content: systemPrompt},
					{Role: "user", Content: prompt + desc},
				},
				MaxTokens: b.maxTokens,
			},
		})
	}
	return reqs, nil
}

// WriteRequestFile writes reqs to path as newline-delimited JSON, creating
// parent directories as needed. An existing file is truncated.
func WriteRequestFile(path string, reqs []BatchRequest) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create batch file dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create batch file: %w", err)
	}

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, r := range reqs {
		if err := enc.Encode(r); err != nil {
			f.Close()
			return fmt.Errorf("encode request %s: %w", r.CustomID, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write batch file: %w", err)
	}
	return f.Close()
}

package ai

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/amishk599/jobenrich/internal/model"
	"github.com/amishk599/jobenrich/internal/schema"
)

func testListings() []model.Listing {
	return []model.Listing{
		{ID: "a", Title: "Go Engineer", Description: model.StringPtr("Build <APIs> & services")},
		{ID: "b", Title: "SRE"},
	}
}

func TestBuildRequests_OnePerListing(t *testing.T) {
	b := NewRequestBuilder("gpt-4o-2024-08-06", 1000, schema.Enrichment(), nil)
	reqs, err := b.BuildRequests(testListings())
	if err != nil {
		t.Fatalf("BuildRequests: %v", err)
	}
	if len(reqs) != 2 {
		t.Fatalf("got %d requests, want 2", len(reqs))
	}

	r := reqs[0]
	if r.CustomID != "a" || r.Method != "POST" || r.URL != ChatCompletionsEndpoint {
		t.Errorf("request envelope = %+v", r)
	}
	if r.Body.Model != "gpt-4o-2024-08-06" || r.Body.MaxTokens != 1000 {
		t.Errorf("model/max_tokens = %q/%d", r.Body.Model, r.Body.MaxTokens)
	}
	if r.Body.ResponseFormat.Type != "json_schema" {
		t.Errorf("response_format.type = %q", r.Body.ResponseFormat.Type)
	}
	if len(r.Body.Messages) != 2 || r.Body.Messages[0].Role != "system" || r.Body.Messages[1].Role != "user" {
		t.Fatalf("messages = %+v", r.Body.Messages)
	}
	user := r.Body.Messages[1].Content
	if !strings.HasSuffix(user, "Job Description:\nBuild <APIs> & services") {
		t.Errorf("user message should end with the description, got %q", user)
	}
	if !strings.Contains(user, `"ai_added_cols_schema"`) {
		t.Error("user message should embed the schema descriptor")
	}

	if got := reqs[1].Body.Messages[1].Content; !strings.HasSuffix(got, "Job Description:\n") {
		t.Errorf("listing without description should end at the label, got %q", got)
	}
}

func TestBuildRequests_DuplicateID(t *testing.T) {
	b := NewRequestBuilder("m", 10, schema.Enrichment(), nil)
	listings := append(testListings(), model.Listing{ID: "a", Title: "Dup"})
	if _, err := b.BuildRequests(listings); err == nil {
		t.Fatal("expected error for duplicate id")
	}
}

func TestBuildRequests_MissingID(t *testing.T) {
	b := NewRequestBuilder("m", 10, schema.Enrichment(), nil)
	if _, err := b.BuildRequests([]model.Listing{{Title: "No id"}}); err == nil {
		t.Fatal("expected error for listing without id")
	}
}

func TestWriteRequestFile_NDJSON(t *testing.T) {
	b := NewRequestBuilder("m", 10, schema.Enrichment(), nil)
	reqs, err := b.BuildRequests(testListings())
	if err != nil {
		t.Fatalf("BuildRequests: %v", err)
	}

	path := filepath.Join(t.TempDir(), "nested", "batch.jsonl")
	if err := WriteRequestFile(path, reqs); err != nil {
		t.Fatalf("WriteRequestFile: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var ids []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		if strings.Contains(line, `\u003c`) {
			t.Errorf("line should not HTML-escape: %s", line)
		}
		var got struct {
			CustomID string `json:"custom_id"`
			Body     struct {
				ResponseFormat struct {
					JSONSchema struct {
						Name   string `json:"name"`
						Strict bool   `json:"strict"`
					} `json:"json_schema"`
				} `json:"response_format"`
			} `json:"body"`
		}
		if err := json.Unmarshal([]byte(line), &got); err != nil {
			t.Fatalf("line is not JSON: %v", err)
		}
		if got.Body.ResponseFormat.JSONSchema.Name != "ai_added_cols_schema" || !got.Body.ResponseFormat.JSONSchema.Strict {
			t.Errorf("json_schema descriptor = %+v", got.Body.ResponseFormat.JSONSchema)
		}
		ids = append(ids, got.CustomID)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if strings.Join(ids, ",") != "a,b" {
		t.Errorf("custom ids = %v, want [a b]", ids)
	}
}

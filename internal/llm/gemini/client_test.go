package gemini

import (
	"encoding/json"
	"testing"

	"github.com/google/generative-ai-go/genai"

	"github.com/joseph-ayodele/menu-importer/internal/llm"
)

func TestResponseFromFunctionCall(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{
				genai.Text("here you go"),
				genai.FunctionCall{Name: llm.MenuFunctionName, Args: map[string]any{
					"menuName": "Lunch",
					"items":    []any{map[string]any{"name": "Soup", "price": 5.0}},
				}},
			}},
		}},
	}
	out, err := responseFrom(resp)
	if err != nil {
		t.Fatalf("responseFrom: %v", err)
	}
	if !out.Structured() || out.Text != "here you go" {
		t.Fatalf("out = %+v", out)
	}
	if err := llm.ValidateMenuArguments(out.Arguments); err != nil {
		t.Fatalf("arguments invalid: %v", err)
	}
	var m llm.MenuFields
	if err := json.Unmarshal(out.Arguments, &m); err != nil || m.MenuName != "Lunch" || len(m.Items) != 1 {
		t.Fatalf("decoded = %+v, %v", m, err)
	}
}

func TestResponseFromTextOnly(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"items": []}`)}},
		}},
	}
	out, err := responseFrom(resp)
	if err != nil {
		t.Fatalf("responseFrom: %v", err)
	}
	if out.Structured() || out.Text != `{"items": []}` {
		t.Fatalf("out = %+v", out)
	}
	if _, err := responseFrom(&genai.GenerateContentResponse{}); err == nil {
		t.Fatal("expected error for empty response")
	}
}

func TestMenuSchemaCoversJSONSchema(t *testing.T) {
	js := llm.BuildMenuJSONSchema()
	itemProps := js["properties"].(map[string]any)["items"].(map[string]any)["items"].(map[string]any)["properties"].(map[string]any)
	gs := MenuSchema().Properties["items"].Items.Properties
	for k := range itemProps {
		if _, ok := gs[k]; !ok {
			t.Errorf("gemini schema missing %q", k)
		}
	}
	if len(gs) != len(itemProps) {
		t.Errorf("gemini schema has %d item properties, json schema %d", len(gs), len(itemProps))
	}
}

package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/menu-importer/internal/llm"
)

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// ExtractMenu implements llm.MenuExtractor with chat/completions function calling.
// The plain strategy lets the model choose; later strategies force the tool.
func (c *Client) ExtractMenu(ctx context.Context, req llm.MenuRequest) (llm.MenuResponse, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"provider", "openai",
		"model", c.cfg.Model,
		"strategy", req.Strategy.String(),
		"text_len", len(req.Text),
		"wine", req.IsWine,
	)

	var toolChoice any = "auto"
	if req.Strategy >= llm.StrategyFirm {
		toolChoice = map[string]any{
			"type":     "function",
			"function": map[string]any{"name": llm.MenuFunctionName},
		}
	}
	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"messages": []map[string]any{
			{"role": "system", "content": llm.BuildSystemPrompt(req)},
			{"role": "user", "content": llm.BuildUserPrompt(req)},
		},
		"tools": []map[string]any{{
			"type": "function",
			"function": map[string]any{
				"name":        llm.MenuFunctionName,
				"description": llm.MenuFunctionDescription,
				"parameters":  llm.BuildMenuJSONSchema(),
			},
		}},
		"tool_choice": toolChoice,
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, err := llm.SendJSON(ctx, c.httpClient, endpoint, body, headers, c.log)
	if err != nil {
		c.log.Error("llm.extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.MenuResponse{}, err
	}

	var cc chatResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
		)
		return llm.MenuResponse{}, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.log.Error("llm.extract.no_choices", "req_id", rid, "raw", string(raw))
		return llm.MenuResponse{}, fmt.Errorf("no choices in openai response")
	}

	msg := cc.Choices[0].Message
	out := llm.MenuResponse{Text: strings.TrimSpace(msg.Content)}
	for _, tc := range msg.ToolCalls {
		if tc.Function.Name == llm.MenuFunctionName {
			out.FunctionName = tc.Function.Name
			out.Arguments = []byte(tc.Function.Arguments)
			break
		}
	}

	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"structured", out.Structured(),
		"finish_reason", cc.Choices[0].FinishReason,
		"args_bytes", len(out.Arguments),
		"text_len", len(out.Text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/menu-importer/internal/llm"
)

// Config for the Gemini client.
type Config struct {
	APIKey      string // if empty, falls back to env GEMINI_API_KEY
	Model       string // e.g., "gemini-1.5-flash"
	Temperature float32
	Timeout     time.Duration
}

type Client struct {
	cfg    Config
	client *genai.Client
	log    *slog.Logger
}

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{cfg: cfg, client: client, log: logger}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// ExtractMenu implements llm.MenuExtractor with a FunctionDeclaration tool. The plain
// strategy leaves function calling on auto; later strategies require the call.
func (c *Client) ExtractMenu(ctx context.Context, req llm.MenuRequest) (llm.MenuResponse, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"provider", "gemini",
		"model", c.cfg.Model,
		"strategy", req.Strategy.String(),
		"text_len", len(req.Text),
		"wine", req.IsWine,
	)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	model := c.client.GenerativeModel(c.cfg.Model)
	model.SetTemperature(c.cfg.Temperature)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(llm.BuildSystemPrompt(req))}}
	model.Tools = []*genai.Tool{{
		FunctionDeclarations: []*genai.FunctionDeclaration{{
			Name:        llm.MenuFunctionName,
			Description: llm.MenuFunctionDescription,
			Parameters:  MenuSchema(),
		}},
	}}
	mode := genai.FunctionCallingAuto
	if req.Strategy >= llm.StrategyFirm {
		mode = genai.FunctionCallingAny
	}
	model.ToolConfig = &genai.ToolConfig{
		FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: mode},
	}

	resp, err := model.GenerateContent(ctx, genai.Text(llm.BuildUserPrompt(req)))
	if err != nil {
		c.log.Error("llm.extract.api_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.MenuResponse{}, fmt.Errorf("gemini generate: %w", err)
	}

	out, err := responseFrom(resp)
	if err != nil {
		c.log.Error("llm.extract.decode_error", "req_id", rid, "error", err)
		return llm.MenuResponse{}, err
	}
	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"structured", out.Structured(),
		"args_bytes", len(out.Arguments),
		"text_len", len(out.Text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// responseFrom picks the extract_menu call out of the first candidate, keeping any text
// parts for the recovery chain.
func responseFrom(resp *genai.GenerateContentResponse) (llm.MenuResponse, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return llm.MenuResponse{}, fmt.Errorf("no candidates in gemini response")
	}
	var out llm.MenuResponse
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.FunctionCall:
			if p.Name != llm.MenuFunctionName || out.FunctionName != "" {
				continue
			}
			args, err := json.Marshal(p.Args)
			if err != nil {
				return llm.MenuResponse{}, fmt.Errorf("encode function args: %w", err)
			}
			out.FunctionName, out.Arguments = p.Name, args
		case genai.Text:
			text.WriteString(string(p))
		}
	}
	out.Text = strings.TrimSpace(text.String())
	return out, nil
}

// MenuSchema mirrors llm.BuildMenuJSONSchema in Gemini's schema dialect, which has no
// union types: prices are numbers and vintages integers.
func MenuSchema() *genai.Schema {
	str := &genai.Schema{Type: genai.TypeString}
	strList := &genai.Schema{Type: genai.TypeArray, Items: str}
	flag := &genai.Schema{Type: genai.TypeBoolean}
	num := &genai.Schema{Type: genai.TypeNumber}

	item := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":        {Type: genai.TypeString, Description: "item name as printed"},
			"description": str,
			"price":       num,
			"category":    str,
			"kind":        {Type: genai.TypeString, Enum: []string{"food", "beverage", "wine"}},
			"ingredients": strList,
			"allergens":   strList,
			"vegan":       flag,
			"vegetarian":  flag,
			"glutenFree":  flag,
			"dairyFree":   flag,
			"wineStyle":   {Type: genai.TypeString, Enum: []string{"still", "sparkling", "champagne", "dessert", "fortified", "other"}},
			"producer":    str,
			"region":      str,
			"grapes":      strList,
			"vintage":     {Type: genai.TypeInteger},
			"servingOptions": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"size":  str,
						"price": num,
					},
					Required: []string{"size"},
				},
			},
			"foodPairings": strList,
		},
		Required: []string{"name"},
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"menuName": str,
			"items":    {Type: genai.TypeArray, Items: item},
		},
		Required: []string{"items"},
	}
}

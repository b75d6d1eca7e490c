package llm

import "context"

// Strategy escalates the instruction wording across attempts.
type Strategy int

const (
	StrategyPlain Strategy = iota + 1
	StrategyFirm
	StrategyStrict
)

func (s Strategy) String() string {
	switch s {
	case StrategyPlain:
		return "plain"
	case StrategyFirm:
		return "firm"
	case StrategyStrict:
		return "strict"
	}
	return "unknown"
}

// StrategyForAttempt maps a 1-based attempt number onto a strategy; attempts past the
// last strategy keep the strictest one.
func StrategyForAttempt(attempt int) Strategy {
	switch {
	case attempt <= 1:
		return StrategyPlain
	case attempt == 2:
		return StrategyFirm
	}
	return StrategyStrict
}

// MenuRequest is what the orchestrator sends to a provider.
type MenuRequest struct {
	Text         string
	FileName     string
	IsWine       bool
	Strategy     Strategy
	Instructions string // extra caller instructions appended to the system prompt
}

// MenuResponse is what a provider returns. A structured response has FunctionName and
// Arguments; a model that ignored the function contract leaves free text in Text.
type MenuResponse struct {
	FunctionName string
	Arguments    []byte
	Text         string
}

// Structured reports whether the model answered through the function call.
func (r MenuResponse) Structured() bool {
	return r.FunctionName != "" && len(r.Arguments) > 0
}

// MenuExtractor is the interface the extraction orchestrator depends on.
type MenuExtractor interface {
	ExtractMenu(ctx context.Context, req MenuRequest) (MenuResponse, error)
}

// MenuExtractorFunc adapts a function to MenuExtractor.
type MenuExtractorFunc func(ctx context.Context, req MenuRequest) (MenuResponse, error)

func (f MenuExtractorFunc) ExtractMenu(ctx context.Context, req MenuRequest) (MenuResponse, error) {
	return f(ctx, req)
}

// MenuFields is the decoded function-call payload. Items keep the model's keys so they go
// through the same field mapper as every other source.
type MenuFields struct {
	MenuName string           `json:"menuName,omitempty"`
	Items    []map[string]any `json:"items"`
}

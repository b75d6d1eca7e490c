package extraction

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/menu-importer/constants"
	"github.com/joseph-ayodele/menu-importer/internal/cache"
	"github.com/joseph-ayodele/menu-importer/internal/common"
	"github.com/joseph-ayodele/menu-importer/internal/llm"
	"github.com/joseph-ayodele/menu-importer/internal/retry"
)

// scripted replays one response (or error) per call and records the requests.
type scripted struct {
	responses []llm.MenuResponse
	errs      []error
	requests  []llm.MenuRequest
}

func (s *scripted) ExtractMenu(_ context.Context, req llm.MenuRequest) (llm.MenuResponse, error) {
	i := len(s.requests)
	s.requests = append(s.requests, req)
	if i < len(s.errs) && s.errs[i] != nil {
		return llm.MenuResponse{}, s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return llm.MenuResponse{Text: "no idea"}, nil
}

func (s *scripted) strategies() []llm.Strategy {
	var out []llm.Strategy
	for _, r := range s.requests {
		out = append(out, r.Strategy)
	}
	return out
}

func testPolicy(delays *[]time.Duration) retry.Policy {
	return retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Sleep: func(ctx context.Context, d time.Duration) error {
			*delays = append(*delays, d)
			return ctx.Err()
		},
	}
}

func call(args string) llm.MenuResponse {
	return llm.MenuResponse{FunctionName: llm.MenuFunctionName, Arguments: []byte(args)}
}

func TestExtractStructuredOnSecondAttempt(t *testing.T) {
	var delays []time.Duration
	ex := &scripted{responses: []llm.MenuResponse{
		{Text: "Sure, the menu has soup and a wine."},
		call(`{"menuName": "Harbor", "items": [
			{"name": "Clam Chowder", "price": "9.50", "category": "Starters", "allergens": ["seafood", "dairy"]},
			{"name": "Chablis Premier Cru", "kind": "wine", "wineStyle": "still", "vintage": 2020,
			 "servingOptions": [{"size": "Glass", "price": 16}, {"size": "Bottle", "price": 64}]}
		]}`),
	}}
	o := NewOrchestrator(ex, testPolicy(&delays), nil)
	res, err := o.Extract(context.Background(), Input{Text: "menu text", FileName: "menu.pdf", IsWine: true})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if diff := cmp.Diff([]llm.Strategy{llm.StrategyPlain, llm.StrategyFirm}, ex.strategies()); diff != "" {
		t.Fatalf("strategies mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]time.Duration{time.Second}, delays); diff != "" {
		t.Fatalf("delays mismatch (-want +got):\n%s", diff)
	}
	if !ex.requests[0].IsWine || ex.requests[0].FileName != "menu.pdf" {
		t.Fatalf("request = %+v", ex.requests[0])
	}
	if res.MenuName != "Harbor" || res.Attempts != 2 || res.Recovery != "" || len(res.Records) != 2 {
		t.Fatalf("res = %+v", res)
	}
	soup := res.Records[0].Item
	if *soup.Price != 9.5 || soup.Category != constants.CategoryAppetizers || len(soup.Allergens) != 2 {
		t.Fatalf("soup = %+v", soup)
	}
	wine := res.Records[1].Item
	if wine.Kind != constants.KindWine || *wine.Wine.Vintage != 2020 || len(wine.Wine.ServingOptions) != 2 {
		t.Fatalf("wine = %+v %+v", wine, wine.Wine)
	}
}

func TestExtractRecoversFreeTextOnFinalAttempt(t *testing.T) {
	var delays []time.Duration
	fenced := "Here you go:\n```json\n{'items': [{'name': 'Onion Soup', 'price': 9.5,},],}\n```"
	ex := &scripted{responses: []llm.MenuResponse{
		{Text: fenced},
		{Text: fenced},
		{Text: fenced},
	}}
	o := NewOrchestrator(ex, testPolicy(&delays), nil)
	res, err := o.Extract(context.Background(), Input{Text: "menu text"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Attempts != 3 || res.Recovery != "fenced+repair" {
		t.Fatalf("res = %+v", res)
	}
	if diff := cmp.Diff([]time.Duration{time.Second, 2 * time.Second}, delays); diff != "" {
		t.Fatalf("delays mismatch (-want +got):\n%s", diff)
	}
	if len(res.Records) != 1 || res.Records[0].Item.Name != "Onion Soup" {
		t.Fatalf("records = %+v", res.Records)
	}
}

func TestExtractRetriesTransportErrors(t *testing.T) {
	var delays []time.Duration
	ex := &scripted{
		errs:      []error{errors.New("connection reset"), errors.New("503")},
		responses: []llm.MenuResponse{{}, {}, call(`{"items": [{"name": "Soup"}]}`)},
	}
	o := NewOrchestrator(ex, testPolicy(&delays), nil)
	res, err := o.Extract(context.Background(), Input{Text: "menu text"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Attempts != 3 || len(delays) != 2 {
		t.Fatalf("attempts=%d delays=%v", res.Attempts, delays)
	}
}

func TestExtractExhaustionCarriesPreview(t *testing.T) {
	var delays []time.Duration
	long := "I am sorry, I cannot help with that. " + strings.Repeat("x", 400)
	ex := &scripted{responses: []llm.MenuResponse{{Text: long}, {Text: long}, {Text: long}}}
	o := NewOrchestrator(ex, testPolicy(&delays), nil)
	_, err := o.Extract(context.Background(), Input{Text: "menu text", FileName: "menu.txt"})
	if common.CodeOf(err) != common.CodeExtractionFailed {
		t.Fatalf("err = %v", err)
	}
	var ae *common.AppError
	errors.As(err, &ae)
	preview, _ := ae.Details["preview"].(string)
	if len([]rune(preview)) != PreviewChars || !strings.HasPrefix(preview, "I am sorry") {
		t.Fatalf("preview = %q", preview)
	}
	if ae.Details["attempts"] != 3 || len(ex.requests) != 3 {
		t.Fatalf("details = %+v requests = %d", ae.Details, len(ex.requests))
	}
}

func TestExtractRejectsEmptyItems(t *testing.T) {
	var delays []time.Duration
	ex := &scripted{responses: []llm.MenuResponse{
		call(`{"items": []}`), call(`{"items": []}`), call(`{"items": []}`),
	}}
	o := NewOrchestrator(ex, testPolicy(&delays), nil)
	_, err := o.Extract(context.Background(), Input{Text: "menu text"})
	if common.CodeOf(err) != common.CodeExtractionFailed {
		t.Fatalf("err = %v", err)
	}
}

func TestExtractStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ex := llm.MenuExtractorFunc(func(context.Context, llm.MenuRequest) (llm.MenuResponse, error) {
		cancel()
		return llm.MenuResponse{Text: "nope"}, nil
	})
	o := NewOrchestrator(ex, retry.Policy{MaxAttempts: 3, BaseDelay: time.Hour}, nil)
	if _, err := o.Extract(ctx, Input{Text: "menu text"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestExtractUsesCache(t *testing.T) {
	store, err := cache.Open("", nil, cache.WithInMemory())
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	defer store.Close()

	var delays []time.Duration
	ex := &scripted{responses: []llm.MenuResponse{call(`{"menuName": "Cafe", "items": [{"name": "Latte", "price": 4}]}`)}}
	o := NewOrchestrator(ex, testPolicy(&delays), nil, WithCache(store))

	first, err := o.Extract(context.Background(), Input{Text: "same text"})
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := o.Extract(context.Background(), Input{Text: "same text"})
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if len(ex.requests) != 1 || !second.FromCache || first.FromCache {
		t.Fatalf("requests=%d first=%v second=%v", len(ex.requests), first.FromCache, second.FromCache)
	}
	if second.MenuName != "Cafe" || second.Records[0].Item.Name != "Latte" {
		t.Fatalf("second = %+v", second)
	}

	if _, err := o.Extract(context.Background(), Input{Text: "same text", IsWine: true}); err != nil {
		t.Fatalf("wine variant: %v", err)
	}
	if len(ex.requests) != 2 {
		t.Fatalf("wine flag should change the cache key, requests=%d", len(ex.requests))
	}
}

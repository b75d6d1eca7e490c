package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrNoItems is returned when a payload decodes but lists no items.
var ErrNoItems = errors.New("menu payload has no items")

var (
	itemListSynonyms = []string{"items", "menuItems", "menu_items", "dishes", "wines", "products"}
	menuNameSynonyms = []string{"menuName", "menu_name", "name", "title"}
)

// NormalizeMenuJSON brings a model payload into the extract_menu shape:
// - a bare array of items is wrapped as {"items": [...]}
// - item-list and menu-name synonyms are renamed
// - nulls, empty strings and non-object items are dropped
func NormalizeMenuJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	var m map[string]any
	switch t := doc.(type) {
	case []any:
		m = map[string]any{"items": t}
	case map[string]any:
		m = t
	default:
		return nil, nil, fmt.Errorf("sanitize: expected object or array, got %T", doc)
	}

	dropped := make([]string, 0, 4)
	if _, ok := m["items"]; !ok {
		for _, k := range itemListSynonyms[1:] {
			if v, ok := m[k].([]any); ok {
				m["items"] = v
				delete(m, k)
				dropped = append(dropped, k+"->items")
				break
			}
		}
	}
	if _, ok := m["menuName"]; !ok {
		for _, k := range menuNameSynonyms[1:] {
			if v, ok := m[k].(string); ok {
				m["menuName"] = v
				delete(m, k)
				dropped = append(dropped, k+"->menuName")
				break
			}
		}
	}
	if s, ok := m["menuName"].(string); ok && strings.TrimSpace(s) == "" {
		delete(m, "menuName")
	}

	if list, ok := m["items"].([]any); ok {
		kept := make([]any, 0, len(list))
		for i, e := range list {
			item, ok := e.(map[string]any)
			if !ok {
				dropped = append(dropped, fmt.Sprintf("items[%d](type)", i))
				continue
			}
			for k, v := range item {
				switch t := v.(type) {
				case nil:
					delete(item, k)
				case string:
					if strings.TrimSpace(t) == "" {
						delete(item, k)
					}
				}
			}
			kept = append(kept, item)
		}
		m["items"] = kept
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.extract.normalize_sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}

// DecodeMenu decodes a normalized payload and requires a non-empty item list.
func DecodeMenu(raw []byte) (*MenuFields, error) {
	var out MenuFields
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode menu: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, ErrNoItems
	}
	out.MenuName = strings.TrimSpace(out.MenuName)
	return &out, nil
}

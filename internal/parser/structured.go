package parser

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joseph-ayodele/menu-importer/constants"
	"github.com/joseph-ayodele/menu-importer/internal/mapper"
)

// arrayFields are canonical fields whose source value should be a list.
var arrayFields = map[mapper.Field]bool{
	mapper.FieldIngredients:    true,
	mapper.FieldAllergens:      true,
	mapper.FieldGrapes:         true,
	mapper.FieldFoodPairings:   true,
	mapper.FieldServingOptions: true,
}

// nestedKeys are object-valued keys whose members are lifted into the item.
var nestedKeys = map[string]bool{"wine": true, "wine details": true, "dietary": true, "dietary flags": true}

var (
	itemListKeys = []string{"items", "menu items", "dishes", "products", "wines"}
	sectionKeys  = []string{"sections", "categories", "groups", "courses"}
	menuNameKeys = []string{"menu name", "name", "title"}
)

type JSONParser struct {
	logger *slog.Logger
}

func NewJSONParser(logger *slog.Logger) *JSONParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONParser{logger: logger}
}

func (p *JSONParser) Format() constants.SourceFormat { return constants.FormatJSON }

func (p *JSONParser) Parse(ctx context.Context, path string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	res := newResult(constants.FormatJSON)
	w := &structuredWalker{res: res}
	w.walk(doc, "", true)
	if w.count == 0 && len(res.Records) == 0 {
		return nil, fmt.Errorf("%w: json document has no recognizable item list", ErrNoItems)
	}
	p.logger.Debug("json.parsed", "path", path, "records", len(res.Records))
	return res, nil
}

type structuredWalker struct {
	res   *Result
	count int
}

func (w *structuredWalker) walk(node any, section string, top bool) {
	switch t := node.(type) {
	case []any:
		for _, e := range t {
			if m, ok := e.(map[string]any); ok && hasItemsOrSections(m) {
				name, _ := lookup(m, "name").(string)
				if name == "" {
					name = section
				}
				w.walk(m, name, false)
				continue
			}
			w.item(e, section)
		}
	case map[string]any:
		if top && w.res.MenuName == "" {
			for _, k := range menuNameKeys {
				if s, ok := lookup(t, k).(string); ok && hasItemsOrSections(t) {
					w.res.MenuName = strings.TrimSpace(s)
					break
				}
			}
		}
		if menu, ok := lookup(t, "menu").(map[string]any); ok {
			w.walk(menu, section, true)
			return
		}
		if list, ok := lookup(t, "menu").([]any); ok {
			w.walk(list, section, false)
			return
		}
		found := false
		for _, k := range sectionKeys {
			secs, ok := lookup(t, k).([]any)
			if !ok {
				continue
			}
			found = true
			for _, s := range secs {
				sm, ok := s.(map[string]any)
				if !ok {
					continue
				}
				name := ""
				for _, nk := range []string{"name", "title", "category", "section"} {
					if v, ok := lookup(sm, nk).(string); ok {
						name = v
						break
					}
				}
				w.walk(sm, name, false)
			}
		}
		for _, k := range itemListKeys {
			if list, ok := lookup(t, k).([]any); ok {
				found = true
				w.walk(list, section, false)
			}
		}
		if !found && top {
			// a single bare item
			w.item(t, section)
		}
	}
}

func (w *structuredWalker) item(e any, section string) {
	w.count++
	pos := fmt.Sprintf("item %d", w.count)
	m, ok := e.(map[string]any)
	if !ok {
		w.res.Dropped++
		w.res.warnf("%s: not an object, skipped", pos)
		return
	}
	pairs := flattenObject(m)
	hasCategory := false
	for _, p := range pairs {
		f, ok := mapper.Resolve(p.Key)
		if !ok {
			continue
		}
		if f == mapper.FieldCategory {
			hasCategory = true
		}
		if arrayFields[f] {
			if s, isStr := p.Value.(string); isStr && strings.TrimSpace(s) != "" {
				w.res.warnf("%s: field %q should be an array, coerced", pos, p.Key)
			}
		}
	}
	if !hasCategory && section != "" {
		pairs = append(pairs, mapper.Pair{Key: "category", Value: section})
	}
	w.res.add(pos, w.count, pairs)
}

// flattenObject lists an item's keys in rank order, lifting nested wine/dietary objects.
func flattenObject(m map[string]any) []mapper.Pair {
	var pairs []mapper.Pair
	for k, v := range m {
		if sub, ok := v.(map[string]any); ok && nestedKeys[mapper.NormalizeHeader(k)] {
			pairs = append(pairs, flattenObject(sub)...)
			continue
		}
		pairs = append(pairs, mapper.Pair{Key: k, Value: v})
	}
	mapper.SortPairs(pairs)
	return pairs
}

func lookup(m map[string]any, key string) any {
	for k, v := range m {
		if mapper.NormalizeHeader(k) == key {
			return v
		}
	}
	return nil
}

func hasItemsOrSections(m map[string]any) bool {
	for _, k := range append(append([]string{}, itemListKeys...), sectionKeys...) {
		if _, ok := lookup(m, k).([]any); ok {
			return true
		}
	}
	_, ok := lookup(m, "menu").(map[string]any)
	return ok
}

// XMLParser accepts <menu><section name=".."><item>..</item></section></menu> and flat
// <item> lists, with fields as child elements or attributes.
type XMLParser struct {
	logger *slog.Logger
}

func NewXMLParser(logger *slog.Logger) *XMLParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &XMLParser{logger: logger}
}

func (p *XMLParser) Format() constants.SourceFormat { return constants.FormatXML }

type xmlNode struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Content string     `xml:",chardata"`
	Nodes   []xmlNode  `xml:",any"`
}

var xmlItemElements = map[string]bool{"item": true, "dish": true, "menuitem": true, "menu item": true, "product": true, "wine": true}

func (p *XMLParser) Parse(ctx context.Context, path string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open xml: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			p.logger.Warn("xml close error", "path", path, "error", err)
		}
	}()
	var root xmlNode
	if err := xml.NewDecoder(f).Decode(&root); err != nil {
		return nil, fmt.Errorf("decode xml: %w", err)
	}

	res := newResult(constants.FormatXML)
	res.MenuName = root.attr("name")
	if res.MenuName == "" {
		res.MenuName = root.attr("title")
	}
	for _, c := range root.Nodes {
		local := strings.ToLower(c.XMLName.Local)
		if res.MenuName == "" && len(c.Nodes) == 0 && (local == "name" || local == "title") {
			res.MenuName = strings.TrimSpace(c.Content)
		}
	}
	w := &structuredWalker{res: res}
	p.walk(w, root, "", true)
	if w.count == 0 {
		return nil, fmt.Errorf("%w: xml document has no item elements", ErrNoItems)
	}
	p.logger.Debug("xml.parsed", "path", path, "records", len(res.Records))
	return res, nil
}

func (p *XMLParser) walk(w *structuredWalker, n xmlNode, section string, root bool) {
	local := mapper.NormalizeHeader(n.XMLName.Local)
	if !root && xmlItemElements[local] && (len(n.Nodes) > 0 || len(n.Attrs) > 0) {
		w.item(n.toMap(), section)
		return
	}
	if !root {
		if name := n.attr("name"); name != "" {
			section = name
		} else if name := n.attr("title"); name != "" {
			section = name
		}
	}
	for _, c := range n.Nodes {
		p.walk(w, c, section, false)
	}
}

func (n xmlNode) attr(name string) string {
	for _, a := range n.Attrs {
		if strings.EqualFold(a.Name.Local, name) {
			return strings.TrimSpace(a.Value)
		}
	}
	return ""
}

// toMap converts an item element to a generic object. Repeated children become arrays and
// a child holding only same-named elements (<grapes><grape/>..) becomes a list.
func (n xmlNode) toMap() map[string]any {
	m := make(map[string]any)
	for _, a := range n.Attrs {
		m[a.Name.Local] = strings.TrimSpace(a.Value)
	}
	for _, c := range n.Nodes {
		key := c.XMLName.Local
		var v any
		if len(c.Nodes) > 0 {
			if c.isList() {
				var list []any
				for _, cc := range c.Nodes {
					if len(cc.Nodes) > 0 {
						list = append(list, cc.toMap())
					} else {
						list = append(list, strings.TrimSpace(cc.Content))
					}
				}
				v = list
			} else {
				v = c.toMap()
			}
		} else {
			v = strings.TrimSpace(c.Content)
		}
		if prev, ok := m[key]; ok {
			if list, isList := prev.([]any); isList {
				m[key] = append(list, v)
			} else {
				m[key] = []any{prev, v}
			}
			continue
		}
		m[key] = v
	}
	return m
}

func (n xmlNode) isList() bool {
	for _, c := range n.Nodes {
		if c.XMLName.Local != n.Nodes[0].XMLName.Local {
			return false
		}
	}
	return len(n.Nodes) > 1 || arrayFields[fieldOf(n.XMLName.Local)]
}

func fieldOf(key string) mapper.Field {
	f, _ := mapper.Resolve(key)
	return f
}

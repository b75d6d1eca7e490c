package entity

import (
	"github.com/joseph-ayodele/menu-importer/constants"
)

// MenuItem is the canonical, format-agnostic representation of one menu entry.
type MenuItem struct {
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Price       *float64             `json:"price,omitempty"`
	Category    string               `json:"category"`
	Kind        constants.ItemKind   `json:"kind"`
	Ingredients []string             `json:"ingredients,omitempty"`
	Allergens   []constants.Allergen `json:"allergens,omitempty"`
	Dietary     Dietary              `json:"dietary"`
	Wine        *WineDetails         `json:"wine,omitempty"`
}

type Dietary struct {
	Vegan      bool `json:"vegan"`
	Vegetarian bool `json:"vegetarian"`
	GlutenFree bool `json:"glutenFree"`
	DairyFree  bool `json:"dairyFree"`
}

// WineDetails is only set on items of kind wine.
type WineDetails struct {
	Style          constants.WineStyle `json:"style"`
	Producer       string              `json:"producer,omitempty"`
	Region         string              `json:"region,omitempty"`
	Grapes         []string            `json:"grapes,omitempty"`
	Vintage        *int                `json:"vintage,omitempty"`
	ServingOptions []ServingOption     `json:"servingOptions,omitempty"`
	FoodPairings   []string            `json:"foodPairings,omitempty"`
}

type ServingOption struct {
	Size  string   `json:"size"`
	Price *float64 `json:"price,omitempty"`
}

// IsWine reports whether the item is a wine, by kind.
func (m MenuItem) IsWine() bool {
	return m.Kind == constants.KindWine
}

// Clone returns a deep copy so enrichment never aliases parser output.
func (m MenuItem) Clone() MenuItem {
	out := m
	if m.Price != nil {
		p := *m.Price
		out.Price = &p
	}
	out.Ingredients = append([]string(nil), m.Ingredients...)
	out.Allergens = append([]constants.Allergen(nil), m.Allergens...)
	if m.Wine != nil {
		w := m.Wine.Clone()
		out.Wine = &w
	}
	return out
}

func (w WineDetails) Clone() WineDetails {
	out := w
	out.Grapes = append([]string(nil), w.Grapes...)
	out.FoodPairings = append([]string(nil), w.FoodPairings...)
	if w.Vintage != nil {
		v := *w.Vintage
		out.Vintage = &v
	}
	if w.ServingOptions != nil {
		out.ServingOptions = make([]ServingOption, len(w.ServingOptions))
		for i, so := range w.ServingOptions {
			out.ServingOptions[i] = so
			if so.Price != nil {
				p := *so.Price
				out.ServingOptions[i].Price = &p
			}
		}
	}
	return out
}

// Record is one item as emitted by a parser, before enrichment and validation.
type Record struct {
	ID    string `json:"id"`
	Index int    `json:"index"` // 1-based position in the source document
	Item  MenuItem
	// Raw is the untouched source record keyed by its original column or key names.
	Raw map[string]any
	// Original holds the pre-coercion value per canonical field name.
	Original map[string]any
}

// SetOriginal remembers the raw value behind a canonical field.
func (r *Record) SetOriginal(field string, v any) {
	if r.Original == nil {
		r.Original = make(map[string]any)
	}
	r.Original[field] = v
}

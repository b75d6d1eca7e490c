package entity

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/menu-importer/constants"
)

// Field wraps one canonical value with its source value and validation state.
type Field[T any] struct {
	Value        T      `json:"value"`
	Original     any    `json:"originalValue,omitempty"`
	IsValid      bool   `json:"isValid"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// ParsedItem is the preview record surfaced to the caller for review before import.
type ParsedItem struct {
	ID          string         `json:"id"`
	SourceIndex int            `json:"sourceIndex"`
	Source      map[string]any `json:"source,omitempty"`

	Name        Field[string]               `json:"name"`
	Description Field[string]               `json:"description"`
	Price       Field[*float64]             `json:"price"`
	Category    Field[string]               `json:"category"`
	Kind        Field[constants.ItemKind]   `json:"kind"`
	Ingredients Field[[]string]             `json:"ingredients"`
	Allergens   Field[[]constants.Allergen] `json:"allergens"`
	Dietary     Field[Dietary]              `json:"dietary"`
	Wine        Field[*WineDetails]         `json:"wine"`

	ImportDecision constants.ImportDecision `json:"importDecision"`
	UserAction     constants.UserAction     `json:"userAction"`
	Conflict       ConflictResolution       `json:"conflictResolution"`
	Warnings       []string                 `json:"warnings,omitempty"`
}

// HasErrors reports whether any field failed validation.
func (p ParsedItem) HasErrors() bool {
	return !p.Name.IsValid || !p.Description.IsValid || !p.Price.IsValid || !p.Category.IsValid ||
		!p.Kind.IsValid || !p.Ingredients.IsValid || !p.Allergens.IsValid || !p.Dietary.IsValid || !p.Wine.IsValid
}

// Item folds the field values back into a canonical item.
func (p ParsedItem) Item() MenuItem {
	return MenuItem{
		Name:        p.Name.Value,
		Description: p.Description.Value,
		Price:       p.Price.Value,
		Category:    p.Category.Value,
		Kind:        p.Kind.Value,
		Ingredients: p.Ingredients.Value,
		Allergens:   p.Allergens.Value,
		Dietary:     p.Dietary.Value,
		Wine:        p.Wine.Value,
	}
}

// ConflictResolution is the outcome of matching an item against the existing catalog.
type ConflictResolution struct {
	Status       constants.ConflictStatus `json:"status"`
	MatchedID    *uuid.UUID               `json:"matchedId,omitempty"`
	MatchedName  string                   `json:"matchedName,omitempty"`
	Similarity   float64                  `json:"similarity,omitempty"`
	CandidateIDs []uuid.UUID              `json:"candidateIds,omitempty"`
	Message      string                   `json:"message,omitempty"`
}

// ConflictSummary counts outcomes across one resolution request.
type ConflictSummary struct {
	Total            int `json:"total"`
	NewItems         int `json:"newItems"`
	UpdateCandidates int `json:"updateCandidates"`
	Ambiguous        int `json:"ambiguous"`
	Skipped          int `json:"skipped"`
	Errors           int `json:"errors"`
}

// Warning is a non-blocking validation finding about one item field.
type Warning struct {
	Index   int    `json:"index"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("item %d: %s", w.Index, w.Message)
}

// Add counts one item outcome.
func (s *ConflictSummary) Add(status constants.ConflictStatus) {
	s.Total++
	switch status {
	case constants.ConflictNone:
		s.NewItems++
	case constants.ConflictUpdate:
		s.UpdateCandidates++
	case constants.ConflictMultiple:
		s.Ambiguous++
	case constants.ConflictSkipped:
		s.Skipped++
	case constants.ConflictError:
		s.Errors++
	}
}

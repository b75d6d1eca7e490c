package entity

import "github.com/joseph-ayodele/menu-importer/constants"

// Confidence tiers used by the enhancer.
const (
	ConfidenceDefinite  = "definite"
	ConfidenceLikely    = "likely"
	ConfidencePossible  = "possible"
	ConfidenceConfirmed = "confirmed"
	ConfidenceInferred  = "inferred"
)

type IngredientInfo struct {
	Original string `json:"original"`
	Cleaned  string `json:"cleaned"`
	Category string `json:"category"`
	Core     bool   `json:"core"`
}

type AllergenFinding struct {
	Allergen   constants.Allergen `json:"allergen"`
	Confidence string             `json:"confidence"`
	Trigger    string             `json:"trigger"`
}

type PairingScore struct {
	Dish  string `json:"dish"`
	Score int    `json:"score"`
}

// EnrichmentResult carries what the enhancer derived for one item, keyed by item id.
// The canonical item itself only receives the final values.
type EnrichmentResult struct {
	ItemID           string            `json:"itemId"`
	Ingredients      []IngredientInfo  `json:"ingredients,omitempty"`
	Allergens        []AllergenFinding `json:"allergens,omitempty"`
	InferredDietary  Dietary           `json:"inferredDietary"`
	GrapeConfidence  string            `json:"grapeConfidence,omitempty"`
	WineColor        string            `json:"wineColor,omitempty"`
	PairingScores    []PairingScore    `json:"pairingScores,omitempty"`
	SuggestedPairing []string          `json:"suggestedPairings,omitempty"`
}

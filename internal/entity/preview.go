package entity

import (
	"github.com/google/uuid"

	"github.com/joseph-ayodele/menu-importer/constants"
)

// PreviewSummary counts what a preview found.
type PreviewSummary struct {
	TotalItemsParsed  int `json:"totalItemsParsed"`
	ItemsWithErrors   int `json:"itemsWithErrors"`
	ItemsWithWarnings int `json:"itemsWithWarnings"`
	WineItems         int `json:"wineItems"`
	FoodItems         int `json:"foodItems"`
	BeverageItems     int `json:"beverageItems"`
	DroppedRows       int `json:"droppedRows"`
}

// MenuUploadPreview is everything the caller reviews before finalizing an import.
type MenuUploadPreview struct {
	PreviewID    uuid.UUID              `json:"previewId"`
	FilePath     string                 `json:"filePath"`
	FileName     string                 `json:"fileName"`
	SourceFormat constants.SourceFormat `json:"sourceFormat"`
	MenuName     string                 `json:"menuName"`
	Items        []ParsedItem           `json:"items"`
	Categories   []string               `json:"categories"`
	Summary      PreviewSummary         `json:"summary"`
	// Errors are file-level; item-level problems live on the items.
	Errors     []string           `json:"errors"`
	Warnings   []string           `json:"warnings"`
	Enrichment []EnrichmentResult `json:"enrichment,omitempty"`
	Metadata   map[string]any     `json:"metadata,omitempty"`
}

package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/menu-importer/constants"
)

// ImportItem is one item the caller accepted for import, with its resolved decision.
type ImportItem struct {
	ID         string                   `json:"id"`
	Item       MenuItem                 `json:"item"`
	Decision   constants.ImportDecision `json:"importDecision"`
	UserAction constants.UserAction     `json:"userAction"`
	// MatchedID is the catalog item an update decision writes to.
	MatchedID *uuid.UUID `json:"matchedId,omitempty"`
}

// Skipped reports whether the item is excluded from the import without being an error.
func (i ImportItem) Skipped() bool {
	return i.Decision == constants.DecisionSkip || i.UserAction == constants.ActionIgnore
}

// ImportRequest describes a finalize call.
type ImportRequest struct {
	FilePath     string       `json:"filePath"`
	MenuName     string       `json:"menuName"`
	MenuID       *uuid.UUID   `json:"menuId,omitempty"`
	RestaurantID string       `json:"restaurantId"`
	ReplaceAll   bool         `json:"replaceAll"`
	Items        []ImportItem `json:"items"`
}

type ItemError struct {
	ItemID string `json:"itemId"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// ImportResult is the aggregate outcome of applying a batch to the catalog.
type ImportResult struct {
	MenuID    *uuid.UUID             `json:"menuId,omitempty"`
	Processed int                    `json:"processed"`
	Created   int                    `json:"created"`
	Updated   int                    `json:"updated"`
	Skipped   int                    `json:"skipped"`
	Errored   int                    `json:"errored"`
	Status    constants.ImportStatus `json:"status"`
	Message   string                 `json:"message"`
	Errors    []ItemError            `json:"errors,omitempty"`
}

// ComputeStatus applies the success / partial / failed rule to the counters.
func (r *ImportResult) ComputeStatus() constants.ImportStatus {
	switch {
	case r.Errored == 0:
		r.Status = constants.ImportSuccess
	case r.Errored < r.Processed-r.Skipped:
		r.Status = constants.ImportPartialSuccess
	default:
		r.Status = constants.ImportFailed
	}
	return r.Status
}

// ImportJob is the durable record behind an asynchronous import.
type ImportJob struct {
	ID           uuid.UUID           `json:"id"`
	Status       constants.JobStatus `json:"status"`
	RestaurantID string              `json:"restaurantId"`
	MenuID       *uuid.UUID          `json:"menuId,omitempty"`
	MenuName     string              `json:"menuName"`
	ReplaceAll   bool                `json:"replaceAll"`
	SourcePath   string              `json:"sourcePath"`
	Items        []ImportItem        `json:"items,omitempty"`
	Progress     int                 `json:"progress"`
	Attempts     int                 `json:"attempts"`
	QueuedAt     time.Time           `json:"queuedAt"`
	StartedAt    *time.Time          `json:"startedAt,omitempty"`
	CompletedAt  *time.Time          `json:"completedAt,omitempty"`
	Result       *ImportResult       `json:"result,omitempty"`
	LastError    string              `json:"lastError,omitempty"`
}

// Request rebuilds the finalize request the job was created from.
func (j ImportJob) Request() ImportRequest {
	return ImportRequest{
		FilePath:     j.SourcePath,
		MenuName:     j.MenuName,
		MenuID:       j.MenuID,
		RestaurantID: j.RestaurantID,
		ReplaceAll:   j.ReplaceAll,
		Items:        j.Items,
	}
}

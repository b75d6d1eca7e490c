package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/menu-importer/internal/common"
	"github.com/joseph-ayodele/menu-importer/internal/conflict"
	"github.com/joseph-ayodele/menu-importer/internal/entity"
	"github.com/joseph-ayodele/menu-importer/internal/importer"
	"github.com/joseph-ayodele/menu-importer/internal/repository"
)

type ConflictRequest struct {
	Items        []entity.ParsedItem `json:"items"`
	RestaurantID string              `json:"restaurantId"`
	MenuID       *uuid.UUID          `json:"menuId,omitempty"`
}

type ConflictResponse struct {
	Items   []entity.ParsedItem    `json:"items"`
	Summary entity.ConflictSummary `json:"summary"`
}

// ResolveConflicts matches reviewed items against the restaurant's catalog.
func (p *Pipeline) ResolveConflicts(ctx context.Context, req ConflictRequest) (*ConflictResponse, error) {
	if p.Resolver == nil {
		return nil, errors.New("conflict resolution is not configured")
	}
	if strings.TrimSpace(req.RestaurantID) == "" {
		return nil, common.NewAppError(common.CodeInvalidInput, "restaurant id is required", nil)
	}
	items, summary, err := p.Resolver.Resolve(ctx, conflict.Request{
		Items:        req.Items,
		RestaurantID: req.RestaurantID,
		MenuID:       req.MenuID,
	})
	if err != nil {
		return nil, err
	}
	return &ConflictResponse{Items: items, Summary: summary}, nil
}

type FinalizeRequest struct {
	FilePath     string              `json:"filePath"`
	MenuName     string              `json:"menuName"`
	MenuID       *uuid.UUID          `json:"menuId,omitempty"`
	RestaurantID string              `json:"restaurantId"`
	ReplaceAll   bool                `json:"replaceAll"`
	Items        []entity.ParsedItem `json:"items"`
}

// Finalize commits reviewed items, synchronously or as a background job.
func (p *Pipeline) Finalize(ctx context.Context, req FinalizeRequest) (*importer.Outcome, error) {
	if p.Finalizer == nil {
		return nil, errors.New("import is not configured")
	}
	return p.Finalizer.Finalize(ctx, entity.ImportRequest{
		FilePath:     req.FilePath,
		MenuName:     req.MenuName,
		MenuID:       req.MenuID,
		RestaurantID: req.RestaurantID,
		ReplaceAll:   req.ReplaceAll,
		Items:        ImportItems(req.Items),
	})
}

// ImportItems carries each reviewed item's values and decision into the import batch.
func ImportItems(items []entity.ParsedItem) []entity.ImportItem {
	out := make([]entity.ImportItem, len(items))
	for i, it := range items {
		out[i] = entity.ImportItem{
			ID:         it.ID,
			Item:       it.Item(),
			Decision:   it.ImportDecision,
			UserAction: it.UserAction,
			MatchedID:  it.Conflict.MatchedID,
		}
	}
	return out
}

// GetJob returns a job's status, progress and, once terminal, its result. The item
// payload is left out.
func (p *Pipeline) GetJob(ctx context.Context, id uuid.UUID) (*entity.ImportJob, error) {
	if p.Jobs == nil {
		return nil, errors.New("import jobs are not configured")
	}
	job, err := p.Jobs.Get(ctx, id)
	if err != nil {
		return nil, jobError(id, err)
	}
	job.Items = nil
	return job, nil
}

// DeleteJob cancels a job that no worker has claimed yet.
func (p *Pipeline) DeleteJob(ctx context.Context, id uuid.UUID) error {
	if p.Jobs == nil {
		return errors.New("import jobs are not configured")
	}
	if err := p.Jobs.DeleteIfPending(ctx, id); err != nil {
		return jobError(id, err)
	}
	p.logger.Info("pipeline.job.deleted", "job_id", id)
	return nil
}

func jobError(id uuid.UUID, err error) error {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return common.NewAppError(common.CodeJobNotFound, "import job not found", err).WithDetail("jobId", id.String())
	case errors.Is(err, repository.ErrJobNotPending):
		return common.NewAppError(common.CodeJobNotPending, "only pending jobs can be deleted", err).WithDetail("jobId", id.String())
	}
	return err
}

package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/menu-importer/constants"
	"github.com/joseph-ayodele/menu-importer/internal/common"
	"github.com/joseph-ayodele/menu-importer/internal/entity"
	"github.com/joseph-ayodele/menu-importer/internal/repository"
)

// plan is the prepared form of a batch: writes in item order, with the request index of
// each write so per-item failures can be attributed.
type plan struct {
	writes  []repository.ItemWrite
	origin  []int
	skipped int
	errors  []entity.ItemError
}

func prepare(items []entity.ImportItem) plan {
	var p plan
	for i, it := range items {
		if it.Skipped() {
			p.skipped++
			continue
		}
		item := it.Item.Clone()
		item.Name = strings.TrimSpace(item.Name)
		if item.Name == "" {
			p.errors = append(p.errors, entity.ItemError{ItemID: it.ID, Reason: "item has no name"})
			continue
		}
		if !item.Kind.Valid() {
			item.Kind = constants.KindFood
		}
		if strings.TrimSpace(item.Category) == "" {
			item.Category = constants.DefaultCategory
		}
		if !item.IsWine() {
			item.Wine = nil
		}

		w := repository.ItemWrite{Item: item}
		switch it.Decision {
		case constants.DecisionUpdate:
			if it.MatchedID == nil {
				p.errors = append(p.errors, entity.ItemError{ItemID: it.ID, Name: item.Name, Reason: "update decision without a matched catalog item"})
				continue
			}
			id := *it.MatchedID
			w.TargetID = &id
		case constants.DecisionNew, "":
		default:
			p.errors = append(p.errors, entity.ItemError{ItemID: it.ID, Name: item.Name, Reason: fmt.Sprintf("unknown import decision %q", it.Decision)})
			continue
		}
		p.writes = append(p.writes, w)
		p.origin = append(p.origin, i)
	}
	return p
}

// apply runs one batch in a single transaction. Per-item failures are counted in the
// result; a failure to resolve the menu or to execute the batch aborts everything and is
// returned as IMPORT_FAILED. progress, when set, is only called outside the transaction.
func (f *Finalizer) apply(ctx context.Context, req entity.ImportRequest, progress func(int)) (*entity.ImportResult, error) {
	p := prepare(req.Items)
	result := &entity.ImportResult{
		Processed: len(req.Items),
		Skipped:   p.skipped,
		Errors:    p.errors,
	}
	if progress != nil {
		progress(20)
	}

	var menu entity.Menu
	err := f.catalog.WithTx(ctx, func(tx repository.CatalogTx) error {
		m, created, err := tx.ResolveMenu(ctx, req.RestaurantID, req.MenuID, req.MenuName)
		if err != nil {
			return fmt.Errorf("resolve menu: %w", err)
		}
		menu = m
		if req.ReplaceAll && !created {
			if _, err := tx.DeleteMenuItems(ctx, m.ID); err != nil {
				return err
			}
			// The rows updates pointed at are gone; replacing a menu recreates them.
			for i := range p.writes {
				p.writes[i].TargetID = nil
			}
		}
		outcomes, err := tx.WriteItems(ctx, m, p.writes)
		if err != nil {
			return err
		}
		for i, itemErr := range outcomes {
			src := req.Items[p.origin[i]]
			if itemErr != nil {
				result.Errors = append(result.Errors, entity.ItemError{ItemID: src.ID, Name: p.writes[i].Item.Name, Reason: itemErr.Error()})
				continue
			}
			if p.writes[i].TargetID != nil {
				result.Updated++
			} else {
				result.Created++
			}
		}
		return nil
	})
	if err != nil {
		return nil, common.NewAppError(common.CodeImportFailed, "import aborted, no items were written", err).
			WithDetail("items", len(req.Items))
	}
	if progress != nil {
		progress(90)
	}

	id := menu.ID
	result.MenuID = &id
	result.Errored = len(result.Errors)
	result.ComputeStatus()
	result.Message = fmt.Sprintf("Imported %d of %d items into %q: %d created, %d updated, %d skipped, %d failed",
		result.Created+result.Updated, result.Processed, menu.Name, result.Created, result.Updated, result.Skipped, result.Errored)
	return result, nil
}

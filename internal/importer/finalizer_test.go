package importer

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/menu-importer/constants"
	"github.com/joseph-ayodele/menu-importer/internal/async"
	"github.com/joseph-ayodele/menu-importer/internal/common"
	"github.com/joseph-ayodele/menu-importer/internal/entity"
	"github.com/joseph-ayodele/menu-importer/internal/repository"
)

type recordingQueue struct{ jobs []async.Job }

func (q *recordingQueue) Enqueue(_ context.Context, job async.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}
func (q *recordingQueue) Shutdown(context.Context) {}

type recordingReleaser struct{ paths []string }

func (r *recordingReleaser) Release(_ context.Context, path string) error {
	r.paths = append(r.paths, path)
	return nil
}

type fixture struct {
	catalog  repository.CatalogRepository
	jobs     repository.JobRepository
	queue    *recordingQueue
	released *recordingReleaser
	f        *Finalizer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := repository.OpenSQLite("", nil)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(db.Close)
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	fx := &fixture{
		catalog:  repository.NewCatalogRepository(db, nil),
		jobs:     repository.NewJobRepository(db, nil),
		queue:    &recordingQueue{},
		released: &recordingReleaser{},
	}
	fx.f = NewFinalizer(fx.catalog, fx.jobs, nil, WithQueue(fx.queue), WithSources(fx.released), WithAsyncThreshold(50))
	return fx
}

func items(n int) []entity.ImportItem {
	out := make([]entity.ImportItem, n)
	for i := range out {
		out[i] = entity.ImportItem{
			ID:       uuid.NewString(),
			Item:     entity.MenuItem{Name: fmt.Sprintf("Dish %d", i+1), Kind: constants.KindFood, Category: constants.CategoryMainCourses},
			Decision: constants.DecisionNew,
		}
	}
	return out
}

func TestFinalizeSplitsOnThreshold(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	big, err := fx.f.Finalize(ctx, entity.ImportRequest{FilePath: "/uploads/big.csv", MenuName: "Dinner", RestaurantID: "r1", Items: items(60)})
	if err != nil {
		t.Fatalf("Finalize(60): %v", err)
	}
	if !big.Async() || big.Result != nil || big.Message == "" {
		t.Fatalf("60 items: %+v", big)
	}
	if len(fx.queue.jobs) != 1 || fx.queue.jobs[0].ID != *big.JobID {
		t.Fatalf("queued %+v", fx.queue.jobs)
	}
	job, err := fx.jobs.Get(ctx, *big.JobID)
	if err != nil || job.Status != constants.JobStatusPending || len(job.Items) != 60 {
		t.Fatalf("job = %+v, %v", job, err)
	}

	small, err := fx.f.Finalize(ctx, entity.ImportRequest{FilePath: "/uploads/small.csv", MenuName: "Lunch", RestaurantID: "r1", Items: items(10)})
	if err != nil {
		t.Fatalf("Finalize(10): %v", err)
	}
	if small.Async() || small.Result == nil {
		t.Fatalf("10 items: %+v", small)
	}
	if small.Result.Created != 10 || small.Result.Status != constants.ImportSuccess {
		t.Fatalf("result = %+v", small.Result)
	}
	if diff := cmp.Diff([]string{"/uploads/small.csv"}, fx.released.paths); diff != "" {
		t.Fatalf("released (-want +got):\n%s", diff)
	}
}

func TestFinalizeExactlyAtThresholdIsSynchronous(t *testing.T) {
	fx := newFixture(t)
	out, err := fx.f.Finalize(context.Background(), entity.ImportRequest{MenuName: "Dinner", RestaurantID: "r1", Items: items(50)})
	if err != nil || out.Async() {
		t.Fatalf("50 items: %+v, %v", out, err)
	}
}

func TestProcessJobRunsSameLogic(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	out, err := fx.f.Finalize(ctx, entity.ImportRequest{FilePath: "/uploads/big.csv", MenuName: "Dinner", RestaurantID: "r1", Items: items(55)})
	if err != nil {
		t.Fatal(err)
	}
	if err := fx.f.ProcessJob(ctx, *out.JobID); err != nil {
		t.Fatalf("ProcessJob: %v", err)
	}
	job, _ := fx.jobs.Get(ctx, *out.JobID)
	if job.Status != constants.JobStatusCompleted || job.Progress != 100 || job.Result == nil {
		t.Fatalf("job = %+v", job)
	}
	if job.Result.Created != 55 || job.Result.MenuID == nil {
		t.Fatalf("result = %+v", job.Result)
	}
	listed, _ := fx.catalog.ListItems(ctx, *job.Result.MenuID)
	if len(listed) != 55 {
		t.Fatalf("catalog has %d items", len(listed))
	}

	// A second delivery of the same id finds the job already finished.
	if err := fx.f.ProcessJob(ctx, *out.JobID); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if len(fx.released.paths) != 1 {
		t.Fatalf("released %v", fx.released.paths)
	}
}

func TestProcessJobRecordsGlobalFailure(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	missing := uuid.New()
	out, err := fx.f.Finalize(ctx, entity.ImportRequest{FilePath: "/uploads/big.csv", MenuID: &missing, RestaurantID: "r1", Items: items(51)})
	if err != nil {
		t.Fatal(err)
	}
	if err := fx.f.ProcessJob(ctx, *out.JobID); common.CodeOf(err) != common.CodeImportFailed {
		t.Fatalf("ProcessJob err = %v", err)
	}
	job, _ := fx.jobs.Get(ctx, *out.JobID)
	if job.Status != constants.JobStatusFailed || job.LastError == "" || job.Result.Errored != 51 {
		t.Fatalf("job = %+v result = %+v", job, job.Result)
	}
	if len(fx.released.paths) != 0 {
		t.Fatal("source released after failure")
	}
}

func TestFinalizeCountsItemErrorsAndSkips(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	first, err := fx.f.Finalize(ctx, entity.ImportRequest{MenuName: "Dinner", RestaurantID: "r1", Items: items(2)})
	if err != nil {
		t.Fatal(err)
	}
	existing, _ := fx.catalog.ListItems(ctx, *first.Result.MenuID)

	batch := items(5)
	batch[0].Decision = constants.DecisionUpdate
	batch[0].MatchedID = &existing[0].ID
	batch[0].Item.Name = existing[0].Item.Name
	vanished := uuid.New()
	batch[1].Decision = constants.DecisionUpdate
	batch[1].MatchedID = &vanished
	batch[2].Decision = constants.DecisionSkip
	batch[3].UserAction = constants.ActionIgnore
	batch[4].Item.Kind = constants.KindFood
	batch[4].Item.Wine = &entity.WineDetails{Style: constants.WineStill}

	out, err := fx.f.Finalize(ctx, entity.ImportRequest{FilePath: "/uploads/m.csv", MenuName: "dinner", RestaurantID: "r1", Items: batch})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	r := out.Result
	want := entity.ImportResult{Processed: 5, Created: 1, Updated: 1, Skipped: 2, Errored: 1, Status: constants.ImportPartialSuccess}
	got := entity.ImportResult{Processed: r.Processed, Created: r.Created, Updated: r.Updated, Skipped: r.Skipped, Errored: r.Errored, Status: r.Status}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("counters (-want +got):\n%s", diff)
	}
	if *r.MenuID != *first.Result.MenuID {
		t.Fatal("menu name lookup created a second menu")
	}
	if len(r.Errors) != 1 || r.Errors[0].ItemID != batch[1].ID {
		t.Fatalf("errors = %+v", r.Errors)
	}

	listed, _ := fx.catalog.ListItems(ctx, *r.MenuID)
	for _, it := range listed {
		if it.Item.Wine != nil {
			t.Fatalf("non-wine item %q stored with wine details", it.Item.Name)
		}
	}
	if len(listed) != 3 {
		t.Fatalf("catalog has %d items, want 3", len(listed))
	}
}

func TestFinalizeReplaceAll(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	first, _ := fx.f.Finalize(ctx, entity.ImportRequest{MenuName: "Dinner", RestaurantID: "r1", Items: items(4)})
	menuID := *first.Result.MenuID
	_, err := fx.f.Finalize(ctx, entity.ImportRequest{MenuID: &menuID, RestaurantID: "r1", ReplaceAll: true, Items: items(2)})
	if err != nil {
		t.Fatal(err)
	}
	listed, _ := fx.catalog.ListItems(ctx, menuID)
	if len(listed) != 2 {
		t.Fatalf("catalog has %d items after replace-all", len(listed))
	}
}

func TestFinalizeReplaceAllWithUpdateDecision(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	first, _ := fx.f.Finalize(ctx, entity.ImportRequest{MenuName: "Dinner", RestaurantID: "r1", Items: items(1)})
	menuID := *first.Result.MenuID
	existing, _ := fx.catalog.ListItems(ctx, menuID)
	if len(existing) != 1 {
		t.Fatalf("seeded %d items", len(existing))
	}

	batch := items(1)
	batch[0].Decision = constants.DecisionUpdate
	batch[0].MatchedID = &existing[0].ID
	batch[0].Item.Name = "Dish 1 Revised"
	out, err := fx.f.Finalize(ctx, entity.ImportRequest{MenuID: &menuID, RestaurantID: "r1", ReplaceAll: true, Items: batch})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	r := out.Result
	want := entity.ImportResult{Processed: 1, Created: 1, Status: constants.ImportSuccess}
	got := entity.ImportResult{Processed: r.Processed, Created: r.Created, Updated: r.Updated, Skipped: r.Skipped, Errored: r.Errored, Status: r.Status}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("counters (-want +got):\n%s", diff)
	}
	listed, _ := fx.catalog.ListItems(ctx, menuID)
	if len(listed) != 1 || listed[0].Item.Name != "Dish 1 Revised" {
		t.Fatalf("catalog after replace-all = %+v", listed)
	}
}

func TestFinalizeGlobalFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	missing := uuid.New()
	_, err := fx.f.Finalize(ctx, entity.ImportRequest{FilePath: "/uploads/x.csv", MenuID: &missing, RestaurantID: "r1", Items: items(3)})
	if common.CodeOf(err) != common.CodeImportFailed {
		t.Fatalf("err = %v", err)
	}
	hits, _ := fx.catalog.FindByName(ctx, entity.CatalogScope{RestaurantID: "r1"}, "Dish 1")
	if len(hits) != 0 {
		t.Fatal("items written despite aborted transaction")
	}
	if len(fx.released.paths) != 0 {
		t.Fatal("source released after failure")
	}
}

func TestFinalizeRejectsBadRequests(t *testing.T) {
	fx := newFixture(t)
	tests := []struct {
		name string
		req  entity.ImportRequest
	}{
		{"no restaurant", entity.ImportRequest{MenuName: "Dinner", Items: items(1)}},
		{"no menu", entity.ImportRequest{RestaurantID: "r1", Items: items(1)}},
		{"no items", entity.ImportRequest{RestaurantID: "r1", MenuName: "Dinner"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fx.f.Finalize(context.Background(), tc.req)
			if common.CodeOf(err) != common.CodeInvalidInput {
				t.Fatalf("err = %v", err)
			}
		})
	}
}

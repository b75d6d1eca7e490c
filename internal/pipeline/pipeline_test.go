package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/menu-importer/constants"
	"github.com/joseph-ayodele/menu-importer/internal/common"
	"github.com/joseph-ayodele/menu-importer/internal/conflict"
	"github.com/joseph-ayodele/menu-importer/internal/entity"
	"github.com/joseph-ayodele/menu-importer/internal/extraction"
	"github.com/joseph-ayodele/menu-importer/internal/importer"
	"github.com/joseph-ayodele/menu-importer/internal/repository"
	"github.com/joseph-ayodele/menu-importer/internal/textextract"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const threeRowCSV = "Name,Price,Category,Ingredients\n" +
	"Margherita Pizza,$14.00,Mains,\"tomato, mozzarella, basil\"\n" +
	",9.00,Starters,\n" +
	"Tiramisu,8.5,Desserts,\"mascarpone, coffee, ladyfingers\"\n"

func TestPreviewThreeRowCSV(t *testing.T) {
	p := New(Components{}, nil)
	path := writeFile(t, "dinner_menu.csv", []byte(threeRowCSV))

	preview, err := p.Preview(context.Background(), PreviewRequest{FilePath: path})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if len(preview.Items) != 2 || preview.Summary.TotalItemsParsed != 2 {
		t.Fatalf("items=%d summary=%+v", len(preview.Items), preview.Summary)
	}
	if preview.Summary.DroppedRows != 1 || preview.Summary.FoodItems != 2 {
		t.Fatalf("summary = %+v", preview.Summary)
	}
	if diff := cmp.Diff([]string{"Desserts", "Main Courses"}, preview.Categories); diff != "" {
		t.Fatalf("categories (-want +got):\n%s", diff)
	}
	if preview.SourceFormat != constants.FormatCSV || preview.MenuName != "Dinner Menu" {
		t.Fatalf("format=%s menu=%q", preview.SourceFormat, preview.MenuName)
	}
	if len(preview.Warnings) == 0 || !strings.Contains(preview.Warnings[0], "row 3") {
		t.Fatalf("warnings = %v", preview.Warnings)
	}

	pizza := preview.Items[0]
	if pizza.Name.Value != "Margherita Pizza" || pizza.Price.Original != "$14.00" || *pizza.Price.Value != 14 {
		t.Fatalf("pizza = %+v", pizza)
	}
	if pizza.ID == "" || pizza.ImportDecision != constants.DecisionNew || pizza.UserAction != constants.ActionKeep {
		t.Fatalf("pizza review state = %+v", pizza)
	}
	if !contains(pizza.Allergens.Value, constants.AllergenDairy) {
		t.Fatalf("pizza allergens = %v", pizza.Allergens.Value)
	}
	if len(preview.Enrichment) != 2 || preview.Enrichment[0].ItemID != pizza.ID {
		t.Fatalf("enrichment = %+v", preview.Enrichment)
	}
}

func contains(list []constants.Allergen, a constants.Allergen) bool {
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}

func TestPreviewMarksInvalidFields(t *testing.T) {
	p := New(Components{}, nil)
	path := writeFile(t, "wine.csv", []byte("Name,Kind,Vintage,Price\nOld Bottle,wine,3000,40\n"))
	preview, err := p.Preview(context.Background(), PreviewRequest{FilePath: path})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	item := preview.Items[0]
	if item.Wine.IsValid || item.Wine.ErrorMessage == "" || item.Wine.Value.Vintage != nil {
		t.Fatalf("wine field = %+v", item.Wine)
	}
	if !item.Name.IsValid || preview.Summary.ItemsWithErrors != 1 || preview.Summary.WineItems != 1 {
		t.Fatalf("summary = %+v", preview.Summary)
	}
}

func TestPreviewRejectsBadFiles(t *testing.T) {
	p := New(Components{}, nil)
	dir := t.TempDir()
	big := writeFile(t, "big.csv", make([]byte, 1<<20+1))
	tests := []struct {
		name string
		req  PreviewRequest
		code string
	}{
		{"missing", PreviewRequest{FilePath: filepath.Join(dir, "nope.csv")}, common.CodeFileNotFound},
		{"empty", PreviewRequest{FilePath: writeFile(t, "empty.csv", nil)}, common.CodeEmptyFile},
		{"too large", PreviewRequest{FilePath: big, MaxSizeMB: 1}, common.CodeFileTooLarge},
		{"unsupported", PreviewRequest{FilePath: writeFile(t, "menu.exe", []byte("MZ"))}, common.CodeUnsupportedFormat},
		{"upload name decides", PreviewRequest{FilePath: writeFile(t, "upload.csv", []byte("Name\nSoup\n")), FileName: "menu.rtf"}, common.CodeUnsupportedFormat},
		{"no items", PreviewRequest{FilePath: writeFile(t, "blank.csv", []byte("Name,Price\n,1\n,2\n"))}, common.CodeNoItemsFound},
		{"text without extractor", PreviewRequest{FilePath: writeFile(t, "menu.txt", []byte("Soup 5\nSalad 7\n"))}, common.CodeExtractionFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := p.Preview(context.Background(), tc.req)
			if got := common.CodeOf(err); got != tc.code {
				t.Fatalf("code = %q, want %q (err %v)", got, tc.code, err)
			}
		})
	}
}

type fakeText struct{ doc *textextract.Document }

func (f fakeText) Extract(context.Context, string, string) (*textextract.Document, error) {
	return f.doc, nil
}

type fakeAI struct{ got extraction.Input }

func (f *fakeAI) Extract(_ context.Context, in extraction.Input) (*extraction.Result, error) {
	f.got = in
	return &extraction.Result{
		MenuName: "Wine List",
		Records: []entity.Record{
			{Index: 1, Item: entity.MenuItem{Name: "Chablis Premier Cru", Kind: constants.KindWine, Category: constants.CategoryWine,
				Wine: &entity.WineDetails{Style: constants.WineStill}}},
			{Index: 2, Item: entity.MenuItem{Name: "Oysters", Kind: constants.KindFood, Category: constants.CategoryAppetizers}},
		},
		Attempts: 1,
	}, nil
}

func TestPreviewTextGoesThroughExtraction(t *testing.T) {
	ai := &fakeAI{}
	p := New(Components{
		Text: fakeText{doc: &textextract.Document{Text: "Chablis Premier Cru 2019 $68", Format: constants.FormatPDF, IsWine: true, Method: "pdf-text"}},
		AI:   ai,
	}, nil)
	path := writeFile(t, "wines.pdf", []byte("%PDF-1.4"))

	preview, err := p.Preview(context.Background(), PreviewRequest{FilePath: path})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if !ai.got.IsWine || ai.got.FileName != "wines.pdf" {
		t.Fatalf("extraction input = %+v", ai.got)
	}
	if preview.MenuName != "Wine List" || preview.SourceFormat != constants.FormatPDF {
		t.Fatalf("preview = %+v", preview)
	}
	wine := preview.Items[0].Wine.Value
	if diff := cmp.Diff([]string{"Chardonnay"}, wine.Grapes); diff != "" {
		t.Fatalf("grapes (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Oysters"}, wine.FoodPairings); diff != "" {
		t.Fatalf("pairings (-want +got):\n%s", diff)
	}
}

type stack struct {
	p       *Pipeline
	catalog repository.CatalogRepository
	jobs    repository.JobRepository
}

func newStack(t *testing.T, threshold int) *stack {
	t.Helper()
	db, err := repository.OpenSQLite("", nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(db.Close)
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}
	catalog := repository.NewCatalogRepository(db, nil)
	jobs := repository.NewJobRepository(db, nil)
	return &stack{
		p: New(Components{
			Resolver:  conflict.NewResolver(catalog, nil),
			Finalizer: importer.NewFinalizer(catalog, jobs, nil, importer.WithAsyncThreshold(threshold)),
			Jobs:      jobs,
		}, nil),
		catalog: catalog,
		jobs:    jobs,
	}
}

func TestPreviewResolveFinalize(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, 50)
	path := writeFile(t, "menu.csv", []byte(threeRowCSV))

	preview, err := s.p.Preview(ctx, PreviewRequest{FilePath: path})
	if err != nil {
		t.Fatal(err)
	}
	first, err := s.p.Finalize(ctx, FinalizeRequest{FilePath: path, MenuName: preview.MenuName, RestaurantID: "r1", Items: preview.Items})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if first.Result.Created != 2 || first.Result.Status != constants.ImportSuccess {
		t.Fatalf("first import = %+v", first.Result)
	}

	// The same document again: every item now matches the catalog.
	again, _ := s.p.Preview(ctx, PreviewRequest{FilePath: path})
	resolved, err := s.p.ResolveConflicts(ctx, ConflictRequest{Items: again.Items, RestaurantID: "r1"})
	if err != nil {
		t.Fatalf("ResolveConflicts: %v", err)
	}
	if resolved.Summary.UpdateCandidates != 2 || resolved.Summary.Total != 2 {
		t.Fatalf("summary = %+v", resolved.Summary)
	}
	second, err := s.p.Finalize(ctx, FinalizeRequest{MenuName: preview.MenuName, RestaurantID: "r1", Items: resolved.Items})
	if err != nil {
		t.Fatal(err)
	}
	if second.Result.Updated != 2 || second.Result.Created != 0 {
		t.Fatalf("second import = %+v", second.Result)
	}
	listed, _ := s.catalog.ListItems(ctx, *first.Result.MenuID)
	if len(listed) != 2 {
		t.Fatalf("catalog has %d items", len(listed))
	}
}

func TestJobStatusAndDeletion(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, 1)
	items := []entity.ParsedItem{
		{ID: "a", Name: entity.Field[string]{Value: "Soup", IsValid: true}, Kind: entity.Field[constants.ItemKind]{Value: constants.KindFood}, ImportDecision: constants.DecisionNew},
		{ID: "b", Name: entity.Field[string]{Value: "Salad", IsValid: true}, Kind: entity.Field[constants.ItemKind]{Value: constants.KindFood}, ImportDecision: constants.DecisionNew},
	}
	out, err := s.p.Finalize(ctx, FinalizeRequest{MenuName: "Lunch", RestaurantID: "r1", Items: items})
	if err != nil || !out.Async() {
		t.Fatalf("Finalize = %+v, %v", out, err)
	}

	job, err := s.p.GetJob(ctx, *out.JobID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != constants.JobStatusPending || job.Items != nil {
		t.Fatalf("job = %+v", job)
	}
	if err := s.p.DeleteJob(ctx, *out.JobID); err != nil {
		t.Fatalf("DeleteJob: %v", err)
	}
	if _, err := s.p.GetJob(ctx, *out.JobID); common.CodeOf(err) != common.CodeJobNotFound {
		t.Fatalf("deleted job: %v", err)
	}
	if err := s.p.DeleteJob(ctx, uuid.New()); common.CodeOf(err) != common.CodeJobNotFound {
		t.Fatalf("missing job: %v", err)
	}

	queued, _ := s.p.Finalize(ctx, FinalizeRequest{MenuName: "Lunch", RestaurantID: "r1", Items: items})
	if _, ok, _ := s.jobs.Claim(ctx, *queued.JobID, job.QueuedAt, 3); !ok {
		t.Fatal("claim failed")
	}
	if err := s.p.DeleteJob(ctx, *queued.JobID); common.CodeOf(err) != common.CodeJobNotPending {
		t.Fatalf("claimed job: %v", err)
	}
}

func TestMenuNameFromFile(t *testing.T) {
	tests := map[string]string{
		"dinner_menu-2024.csv": "Dinner Menu 2024",
		"WINE LIST.xlsx":       "Wine List",
		".csv":                 "Imported Menu",
	}
	for in, want := range tests {
		if got := menuNameFromFile(in); got != want {
			t.Errorf("menuNameFromFile(%q) = %q, want %q", in, got, want)
		}
	}
}

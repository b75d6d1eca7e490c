package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/menu-importer/internal/conflict"
	"github.com/joseph-ayodele/menu-importer/internal/entity"
	"github.com/joseph-ayodele/menu-importer/internal/export"
	"github.com/joseph-ayodele/menu-importer/internal/importer"
	"github.com/joseph-ayodele/menu-importer/internal/pipeline"
	"github.com/joseph-ayodele/menu-importer/internal/repository"
	"github.com/joseph-ayodele/menu-importer/internal/storage"
)

const menuCSV = "Name,Price,Category\nSoup,5,Starters\n,6,Starters\nSalad,7,Starters\n"

type fixture struct {
	router  *gin.Engine
	uploads string
}

func newFixture(t *testing.T, opts ...HandlerOption) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
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
	uploads := t.TempDir()
	sources := storage.NewSources(uploads, nil)
	p := pipeline.New(pipeline.Components{
		Resolver:  conflict.NewResolver(catalog, nil),
		Finalizer: importer.NewFinalizer(catalog, jobs, nil, importer.WithAsyncThreshold(2), importer.WithSources(sources)),
		Jobs:      jobs,
	}, nil)
	h := NewHandler(p, nil, append([]HandlerOption{WithSources(sources)}, opts...)...)
	return &fixture{router: NewRouter(h, []string{"*"}, nil), uploads: uploads}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) upload(t *testing.T, path, name, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("menu_file", name)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write([]byte(content))
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	if w := f.do(t, http.MethodGet, "/health", nil); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	down := newFixture(t, WithHealthCheck(func(context.Context) error { return errors.New("db down") }))
	if w := down.do(t, http.MethodGet, "/health", nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestUploadPreviewThenImport(t *testing.T) {
	f := newFixture(t)
	w := f.upload(t, "/v1/menus/preview", "lunch.csv", menuCSV)
	if w.Code != http.StatusOK {
		t.Fatalf("preview status = %d: %s", w.Code, w.Body.String())
	}
	preview := decodeBody[entity.MenuUploadPreview](t, w)
	if preview.Summary.TotalItemsParsed != 2 {
		t.Fatalf("totalItemsParsed = %d", preview.Summary.TotalItemsParsed)
	}
	if preview.FileName != "lunch.csv" || preview.MenuName != "Lunch" {
		t.Fatalf("file = %q, menu = %q", preview.FileName, preview.MenuName)
	}
	if filepath.Dir(preview.FilePath) != f.uploads {
		t.Fatalf("upload saved at %q", preview.FilePath)
	}

	w = f.do(t, http.MethodPost, "/v1/menus/import", pipeline.FinalizeRequest{
		FilePath:     preview.FilePath,
		MenuName:     preview.MenuName,
		RestaurantID: "r1",
		Items:        preview.Items,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("import status = %d: %s", w.Code, w.Body.String())
	}
	res := decodeBody[entity.ImportResult](t, w)
	if res.Created != 2 {
		t.Fatalf("created = %d", res.Created)
	}
	if _, err := os.Stat(preview.FilePath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("upload should be removed after import, stat err = %v", err)
	}

	w = f.do(t, http.MethodPost, "/v1/menus/conflicts", pipeline.ConflictRequest{RestaurantID: "r1", Items: preview.Items})
	if w.Code != http.StatusOK {
		t.Fatalf("conflicts status = %d: %s", w.Code, w.Body.String())
	}
	conflicts := decodeBody[pipeline.ConflictResponse](t, w)
	if diff := cmp.Diff(entity.ConflictSummary{Total: 2, UpdateCandidates: 2}, conflicts.Summary); diff != "" {
		t.Fatalf("summary (-want +got):\n%s", diff)
	}
}

func TestPreviewByPathAndWorkbook(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), "dinner.csv")
	if err := os.WriteFile(path, []byte(menuCSV), 0o600); err != nil {
		t.Fatal(err)
	}

	w := f.do(t, http.MethodPost, "/v1/menus/preview.xlsx", pipeline.PreviewRequest{FilePath: path})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Fatalf("content type = %q", ct)
	}
	names, err := export.ReadItemNames(w.Body.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Soup", "Salad"}, names); diff != "" {
		t.Fatalf("names (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("caller's file must be left alone: %v", err)
	}
}

func TestAsyncImportAndJobs(t *testing.T) {
	f := newFixture(t)
	items := make([]entity.ParsedItem, 3)
	for i, name := range []string{"A", "B", "C"} {
		items[i] = entity.ParsedItem{ID: name}
		items[i].Name.Value = name
		items[i].Kind.Value = "food"
		items[i].ImportDecision = "new"
	}
	w := f.do(t, http.MethodPost, "/v1/menus/import", pipeline.FinalizeRequest{MenuName: "Dinner", RestaurantID: "r1", Items: items})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	accepted := decodeBody[struct {
		JobID   uuid.UUID `json:"jobId"`
		Message string    `json:"message"`
	}](t, w)
	if accepted.JobID == uuid.Nil || w.Header().Get("Location") == "" {
		t.Fatalf("accepted = %+v", accepted)
	}

	w = f.do(t, http.MethodGet, "/v1/import-jobs/"+accepted.JobID.String(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	job := decodeBody[entity.ImportJob](t, w)
	if job.Status != "pending" || len(job.Items) != 0 {
		t.Fatalf("job = %+v", job)
	}

	if w = f.do(t, http.MethodDelete, "/v1/import-jobs/"+accepted.JobID.String(), nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = f.do(t, http.MethodGet, "/v1/import-jobs/"+accepted.JobID.String(), nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("deleted job status = %d", w.Code)
	}
	if got := decodeBody[map[string]any](t, w)["code"]; got != "JOB_NOT_FOUND" {
		t.Fatalf("code = %v", got)
	}
}

func TestErrorResponses(t *testing.T) {
	f := newFixture(t, WithMaxUploadMB(1))
	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"bad job id", http.MethodGet, "/v1/import-jobs/nope", nil, http.StatusBadRequest, "INVALID_INPUT"},
		{"missing path", http.MethodPost, "/v1/menus/preview", map[string]any{}, http.StatusBadRequest, "INVALID_INPUT"},
		{"missing file", http.MethodPost, "/v1/menus/preview", map[string]any{"filePath": "/nowhere/menu.csv"}, http.StatusNotFound, "FILE_NOT_FOUND"},
		{"no restaurant", http.MethodPost, "/v1/menus/import", map[string]any{"menuName": "x", "items": []any{}}, http.StatusBadRequest, "INVALID_INPUT"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := f.do(t, tc.method, tc.path, tc.body)
			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d: %s", w.Code, tc.status, w.Body.String())
			}
			if got := decodeBody[map[string]any](t, w)["code"]; got != tc.code {
				t.Fatalf("code = %v, want %s", got, tc.code)
			}
		})
	}

	t.Run("unsupported upload is removed", func(t *testing.T) {
		w := f.upload(t, "/v1/menus/preview", "menu.exe", "MZ")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", w.Code)
		}
		left, _ := os.ReadDir(f.uploads)
		if len(left) != 0 {
			t.Fatalf("uploads left behind: %v", left)
		}
	})

	t.Run("oversized upload", func(t *testing.T) {
		w := f.upload(t, "/v1/menus/preview", "big.csv", "Name\n"+string(bytes.Repeat([]byte("x"), 2<<20)))
		if w.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("status = %d", w.Code)
		}
	})
}

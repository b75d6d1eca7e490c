package server

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/menu-importer/internal/conflict"
	"github.com/joseph-ayodele/menu-importer/internal/importer"
	"github.com/joseph-ayodele/menu-importer/internal/pipeline"
	"github.com/joseph-ayodele/menu-importer/internal/repository"
)

func newTestClient(t *testing.T) *Client {
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
	p := pipeline.New(pipeline.Components{
		Resolver:  conflict.NewResolver(catalog, nil),
		Finalizer: importer.NewFinalizer(catalog, jobs, nil, importer.WithAsyncThreshold(2)),
		Jobs:      jobs,
	}, nil)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(RequestLogging(nil)))
	RegisterMenuImportServer(srv, NewMenuImportService(p, nil))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return NewClient(conn)
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestPreviewAndFinalizeOverGRPC(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	path := filepath.Join(t.TempDir(), "lunch.csv")
	if err := os.WriteFile(path, []byte("Name,Price\nSoup,5\n,6\nSalad,7\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	preview, err := client.Call(ctx, "PreviewUpload", mustStruct(t, map[string]any{"filePath": path}))
	if err != nil {
		t.Fatalf("PreviewUpload: %v", err)
	}
	summary := preview.Fields["summary"].GetStructValue()
	if got := summary.Fields["totalItemsParsed"].GetNumberValue(); got != 2 {
		t.Fatalf("totalItemsParsed = %v", got)
	}

	items := preview.Fields["items"]
	res, err := client.Call(ctx, "FinalizeImport", &structpb.Struct{Fields: map[string]*structpb.Value{
		"restaurantId": structpb.NewStringValue("r1"),
		"menuName":     structpb.NewStringValue("Lunch"),
		"items":        items,
	}})
	if err != nil {
		t.Fatalf("FinalizeImport: %v", err)
	}
	if got := res.Fields["created"].GetNumberValue(); got != 2 {
		t.Fatalf("created = %v (%v)", got, res)
	}
}

func TestAsyncFinalizeAndJobCalls(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	item := func(name string) any {
		return map[string]any{"id": name, "name": map[string]any{"value": name}, "kind": map[string]any{"value": "food"}, "importDecision": "new"}
	}
	res, err := client.Call(ctx, "FinalizeImport", mustStruct(t, map[string]any{
		"restaurantId": "r1",
		"menuName":     "Dinner",
		"items":        []any{item("A"), item("B"), item("C")},
	}))
	if err != nil {
		t.Fatalf("FinalizeImport: %v", err)
	}
	jobID := res.Fields["jobId"].GetStringValue()
	if jobID == "" {
		t.Fatalf("expected a job id, got %v", res)
	}

	job, err := client.Call(ctx, "GetImportJob", mustStruct(t, map[string]any{"jobId": jobID}))
	if err != nil {
		t.Fatalf("GetImportJob: %v", err)
	}
	if got := job.Fields["status"].GetStringValue(); got != "pending" {
		t.Fatalf("status = %q", got)
	}
	if _, err := client.Call(ctx, "DeleteImportJob", mustStruct(t, map[string]any{"jobId": jobID})); err != nil {
		t.Fatalf("DeleteImportJob: %v", err)
	}
	_, err = client.Call(ctx, "GetImportJob", mustStruct(t, map[string]any{"jobId": jobID}))
	if status.Code(err) != codes.NotFound {
		t.Fatalf("deleted job: %v", err)
	}
}

func TestErrorCodes(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)
	exe := filepath.Join(t.TempDir(), "menu.exe")
	_ = os.WriteFile(exe, []byte("MZ"), 0o600)

	tests := []struct {
		name   string
		method string
		in     map[string]any
		want   codes.Code
	}{
		{"unsupported extension", "PreviewUpload", map[string]any{"filePath": exe}, codes.InvalidArgument},
		{"missing file", "PreviewUpload", map[string]any{"filePath": exe + ".csv"}, codes.NotFound},
		{"no path", "PreviewUpload", map[string]any{}, codes.InvalidArgument},
		{"bad job id", "GetImportJob", map[string]any{"jobId": "nope"}, codes.InvalidArgument},
		{"unknown job", "DeleteImportJob", map[string]any{"jobId": uuid.NewString()}, codes.NotFound},
		{"no restaurant", "ResolveConflicts", map[string]any{"items": []any{}}, codes.InvalidArgument},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := client.Call(ctx, tc.method, mustStruct(t, tc.in))
			if got := status.Code(err); got != tc.want {
				t.Fatalf("code = %s, want %s (%v)", got, tc.want, err)
			}
		})
	}
}

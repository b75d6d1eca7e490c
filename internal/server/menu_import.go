package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/menu-importer/internal/common"
	"github.com/joseph-ayodele/menu-importer/internal/pipeline"
)

type MenuImportService struct {
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
}

func NewMenuImportService(p *pipeline.Pipeline, logger *slog.Logger) *MenuImportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MenuImportService{pipeline: p, logger: logger}
}

func (s *MenuImportService) PreviewUpload(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req pipeline.PreviewRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.FilePath) == "" {
		return nil, status.Error(codes.InvalidArgument, "filePath is required")
	}
	preview, err := s.pipeline.Preview(ctx, req)
	if err != nil {
		s.logger.Error("grpc.preview.failed", "file", req.FilePath, "error", err)
		return nil, common.ToStatus(err)
	}
	return encode(preview)
}

func (s *MenuImportService) ResolveConflicts(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req pipeline.ConflictRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	res, err := s.pipeline.ResolveConflicts(ctx, req)
	if err != nil {
		s.logger.Error("grpc.conflicts.failed", "restaurant_id", req.RestaurantID, "error", err)
		return nil, common.ToStatus(err)
	}
	return encode(res)
}

func (s *MenuImportService) FinalizeImport(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req pipeline.FinalizeRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	out, err := s.pipeline.Finalize(ctx, req)
	if err != nil {
		s.logger.Error("grpc.finalize.failed", "restaurant_id", req.RestaurantID, "items", len(req.Items), "error", err)
		return nil, common.ToStatus(err)
	}
	if out.Async() {
		return encode(map[string]any{"jobId": out.JobID.String(), "message": out.Message})
	}
	return encode(out.Result)
}

func (s *MenuImportService) GetImportJob(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := jobID(in)
	if err != nil {
		return nil, err
	}
	job, err := s.pipeline.GetJob(ctx, id)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return encode(job)
}

func (s *MenuImportService) DeleteImportJob(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := jobID(in)
	if err != nil {
		return nil, err
	}
	if err := s.pipeline.DeleteJob(ctx, id); err != nil {
		return nil, common.ToStatus(err)
	}
	return encode(map[string]any{"jobId": id.String(), "deleted": true})
}

func jobID(in *structpb.Struct) (uuid.UUID, error) {
	raw := strings.TrimSpace(in.GetFields()["jobId"].GetStringValue())
	if raw == "" {
		return uuid.Nil, status.Error(codes.InvalidArgument, "jobId is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, status.Error(codes.InvalidArgument, "jobId must be a UUID")
	}
	return id, nil
}

// decode maps the struct onto a request type through its JSON form.
func decode(in *structpb.Struct, v any) error {
	b, err := protojson.Marshal(in)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	return nil
}

func encode(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return out, nil
}

var _ MenuImportServer = (*MenuImportService)(nil)

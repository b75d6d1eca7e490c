package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/menu-importer/internal/common"
	"github.com/joseph-ayodele/menu-importer/internal/entity"
	"github.com/joseph-ayodele/menu-importer/internal/export"
	"github.com/joseph-ayodele/menu-importer/internal/pipeline"
	"github.com/joseph-ayodele/menu-importer/internal/storage"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// HealthFunc reports whether the backing store is reachable.
type HealthFunc func(ctx context.Context) error

type Handler struct {
	pipeline  *pipeline.Pipeline
	sources   *storage.Sources
	exporter  *export.Service
	health    HealthFunc
	maxSizeMB int
	logger    *slog.Logger
}

type HandlerOption func(*Handler)

// WithSources enables multipart uploads, saved under the sources' upload directory.
func WithSources(s *storage.Sources) HandlerOption {
	return func(h *Handler) { h.sources = s }
}

func WithHealthCheck(f HealthFunc) HandlerOption {
	return func(h *Handler) { h.health = f }
}

func WithMaxUploadMB(n int) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxSizeMB = n
		}
	}
}

func NewHandler(p *pipeline.Pipeline, logger *slog.Logger, opts ...HandlerOption) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		pipeline:  p,
		exporter:  export.NewService(logger),
		maxSizeMB: pipeline.DefaultMaxSizeMB,
		logger:    logger,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *Handler) Health(c *gin.Context) {
	if h.health != nil {
		if err := h.health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Preview accepts either a multipart upload in menu_file or a JSON body naming a path.
func (h *Handler) Preview(c *gin.Context) {
	preview, ok := h.preview(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, preview)
}

// PreviewWorkbook returns the preview as a review spreadsheet.
func (h *Handler) PreviewWorkbook(c *gin.Context) {
	preview, ok := h.preview(c)
	if !ok {
		return
	}
	data, err := h.exporter.PreviewXLSX(preview)
	if err != nil {
		h.fail(c, err)
		return
	}
	name := strings.TrimSuffix(preview.FileName, "."+string(preview.SourceFormat)) + "-review.xlsx"
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (h *Handler) preview(c *gin.Context) (*entity.MenuUploadPreview, bool) {
	ctx := c.Request.Context()
	var req pipeline.PreviewRequest
	uploaded := false

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		path, name, err := h.saveUpload(c)
		if err != nil {
			h.fail(c, err)
			return nil, false
		}
		req = pipeline.PreviewRequest{FilePath: path, FileName: name, MaxSizeMB: h.maxSizeMB}
		uploaded = true
	} else {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.fail(c, common.NewAppError(common.CodeInvalidInput, "invalid request body", err))
			return nil, false
		}
		if strings.TrimSpace(req.FilePath) == "" {
			h.fail(c, common.NewAppError(common.CodeInvalidInput, "filePath is required", nil))
			return nil, false
		}
	}

	preview, err := h.pipeline.Preview(ctx, req)
	if err != nil {
		if uploaded {
			_ = h.sources.Release(context.WithoutCancel(ctx), req.FilePath)
		}
		h.fail(c, err)
		return nil, false
	}
	return preview, true
}

func (h *Handler) saveUpload(c *gin.Context) (path, name string, err error) {
	if h.sources == nil || h.sources.Dir() == "" {
		return "", "", common.NewAppError(common.CodeInvalidInput, "uploads are not enabled, send a filePath instead", nil)
	}
	file, header, err := c.Request.FormFile("menu_file")
	if err != nil {
		return "", "", common.NewAppError(common.CodeInvalidInput, "menu_file is required", err)
	}
	defer file.Close()

	limit := int64(h.maxSizeMB) * humanize.MiByte
	if header.Size > limit {
		return "", "", common.NewAppError(common.CodeFileTooLarge,
			fmt.Sprintf("file is %s, limit is %s", humanize.IBytes(uint64(header.Size)), humanize.IBytes(uint64(limit))), nil).
			WithDetail("file", header.Filename)
	}
	path, err = h.sources.Save(file, header.Filename, limit)
	if err != nil {
		return "", "", fmt.Errorf("save upload: %w", err)
	}
	return path, header.Filename, nil
}

func (h *Handler) ResolveConflicts(c *gin.Context) {
	var req pipeline.ConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, common.NewAppError(common.CodeInvalidInput, "invalid request body", err))
		return
	}
	res, err := h.pipeline.ResolveConflicts(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Import commits reviewed items. Large batches are accepted with 202 and a job id.
func (h *Handler) Import(c *gin.Context) {
	var req pipeline.FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, common.NewAppError(common.CodeInvalidInput, "invalid request body", err))
		return
	}
	out, err := h.pipeline.Finalize(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	if out.Async() {
		c.Header("Location", "/v1/import-jobs/"+out.JobID.String())
		c.JSON(http.StatusAccepted, gin.H{"jobId": out.JobID, "message": out.Message})
		return
	}
	c.JSON(http.StatusOK, out.Result)
}

func (h *Handler) GetJob(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}
	job, err := h.pipeline.GetJob(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *Handler) DeleteJob(c *gin.Context) {
	id, ok := h.jobID(c)
	if !ok {
		return
	}
	if err := h.pipeline.DeleteJob(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) jobID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.fail(c, common.NewAppError(common.CodeInvalidInput, "job id must be a UUID", err))
		return uuid.Nil, false
	}
	return id, true
}

// fail writes err as {code, message, details}. Unclassified errors are reported as internal.
func (h *Handler) fail(c *gin.Context, err error) {
	code := common.HTTPStatus(err)
	body := gin.H{"code": common.CodeOf(err), "message": "internal error"}
	var ae *common.AppError
	switch {
	case errors.As(err, &ae):
		body["message"] = ae.Message
		if len(ae.Details) > 0 {
			body["details"] = ae.Details
		}
	case code != http.StatusInternalServerError:
		body["message"] = err.Error()
	}
	if body["code"] == "" {
		body["code"] = http.StatusText(code)
	}
	logger := common.LoggerFromContext(c.Request.Context(), h.logger)
	if code >= http.StatusInternalServerError {
		logger.Error("http.request.failed", "path", c.FullPath(), "error", err)
	} else {
		logger.Warn("http.request.rejected", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(code, body)
}

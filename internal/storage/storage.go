package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Archiver keeps a copy of an imported source document.
type Archiver interface {
	Archive(ctx context.Context, path string) (key string, err error)
}

// Sources owns the upload directory. Uploaded documents are written there and, once an
// import succeeds, optionally archived and then removed. Files outside the upload
// directory are never removed.
type Sources struct {
	dir      string
	archiver Archiver
	logger   *slog.Logger
}

type Option func(*Sources)

// WithArchiver archives each released document before it is removed.
func WithArchiver(a Archiver) Option {
	return func(s *Sources) { s.archiver = a }
}

// NewSources manages uploads under dir. An empty dir disables Save and makes Release a no-op.
func NewSources(dir string, logger *slog.Logger, opts ...Option) *Sources {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sources{dir: dir, logger: logger}
	if dir != "" {
		if abs, err := filepath.Abs(dir); err == nil {
			s.dir = abs
		}
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Sources) Dir() string { return s.dir }

// Save copies r into a new file in the upload directory, keeping the original extension.
// At most limit bytes are accepted when limit > 0.
func (s *Sources) Save(r io.Reader, filename string, limit int64) (string, error) {
	if s.dir == "" {
		return "", errors.New("upload directory not configured")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	base := filepath.Base(filepath.Clean("/" + filename))
	path := filepath.Join(s.dir, uuid.NewString()+"_"+base)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && limit > 0 && n > limit {
		err = fmt.Errorf("upload exceeds %d bytes", limit)
	}
	if err != nil {
		_ = os.Remove(path)
		return "", err
	}
	s.logger.Info("upload.saved", "path", path, "bytes", n)
	return path, nil
}

// Owns reports whether path is a temporary file inside the upload directory.
func (s *Sources) Owns(path string) bool {
	if s.dir == "" || path == "" {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(s.dir, abs)
	return err == nil && rel != "." && !strings.HasPrefix(rel, "..")
}

// Release archives (when configured) and deletes a temporary source document.
func (s *Sources) Release(ctx context.Context, path string) error {
	if !s.Owns(path) {
		return nil
	}
	if s.archiver != nil {
		key, err := s.archiver.Archive(ctx, path)
		if err != nil {
			return fmt.Errorf("archive %s: %w", filepath.Base(path), err)
		}
		s.logger.Info("source.archived", "path", path, "key", key)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	s.logger.Info("source.removed", "path", path)
	return nil
}

// S3Archiver uploads documents to an S3-compatible bucket.
type S3Archiver struct {
	client     *minio.Client
	bucketName string
	region     string
	prefix     string
	now        func() time.Time
}

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

func NewS3Archiver(cfg S3Config) (*S3Archiver, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	return &S3Archiver{
		client:     client,
		bucketName: cfg.Bucket,
		region:     cfg.Region,
		prefix:     "menu-sources",
		now:        time.Now,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (a *S3Archiver) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucketName, minio.MakeBucketOptions{Region: a.region}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

// ObjectKey is where a document is archived: prefix/yyyy/mm/dd/file.
func (a *S3Archiver) ObjectKey(path string) string {
	return strings.Join([]string{a.prefix, a.now().UTC().Format("2006/01/02"), filepath.Base(path)}, "/")
}

func (a *S3Archiver) Archive(ctx context.Context, path string) (string, error) {
	key := a.ObjectKey(path)
	_, err := a.client.FPutObject(ctx, a.bucketName, key, path, minio.PutObjectOptions{
		ContentType: contentType(path),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	return key, nil
}

func contentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return "text/csv"
	case ".tsv":
		return "text/tab-separated-values"
	case ".json":
		return "application/json"
	case ".xml":
		return "application/xml"
	case ".pdf":
		return "application/pdf"
	case ".txt", ".md":
		return "text/plain"
	case ".xlsx", ".xlsm":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
	return "application/octet-stream"
}

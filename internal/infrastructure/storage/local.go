package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/creedpetitt/ai-services-backend/internal/utils/idgen"
	"github.com/creedpetitt/ai-services-backend/internal/utils/platformerrors"
)

// allowed image content types mapped to the stored file extension.
var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// LocalStore writes uploads to a directory on local disk. Files are served
// back under the configured base URL by the HTTP server.
type LocalStore struct {
	dir      string
	baseURL  string
	maxBytes int64
	logger   zerolog.Logger
}

var _ Store = (*LocalStore)(nil)

func NewLocalStore(dir, baseURL string, maxBytes int64, logger zerolog.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory %q: %w", dir, err)
	}
	return &LocalStore{
		dir:      dir,
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxBytes: maxBytes,
		logger:   logger,
	}, nil
}

// Dir returns the directory uploads are written to.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Save implements Store. Content type and declared size are validated before
// any bytes hit disk; a lying client that streams more than the declared
// size is cut off at the limit.
func (s *LocalStore) Save(ctx context.Context, filename, contentType string, r io.Reader, size int64) (string, error) {
	ext, ok := imageExtensions[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeValidation,
			fmt.Sprintf("unsupported content type %q", contentType), nil)
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return "", platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeValidation,
			fmt.Sprintf("file exceeds maximum size of %d bytes", s.maxBytes), nil)
	}

	name, err := idgen.GenerateSecureID("img", 24)
	if err != nil {
		return "", platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "failed to generate file name")
	}
	name += ext

	path := filepath.Join(s.dir, name)
	file, err := os.Create(path)
	if err != nil {
		return "", platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "failed to create upload file")
	}
	defer file.Close()

	reader := r
	if s.maxBytes > 0 {
		reader = io.LimitReader(r, s.maxBytes)
	}
	written, err := io.Copy(file, reader)
	if err != nil {
		_ = os.Remove(path)
		return "", platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "failed to write upload")
	}

	s.logger.Debug().
		Str("file", name).
		Str("content_type", contentType).
		Int64("bytes", written).
		Msg("upload stored")

	return s.baseURL + "/" + name, nil
}

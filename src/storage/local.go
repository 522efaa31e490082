package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/theleywin/prolinka/src/config"
	"github.com/theleywin/prolinka/src/errs"
	"github.com/theleywin/prolinka/src/services"
	"go.uber.org/zap"
)

// extensions maps the sniffed content types accepted for upload to the
// extension the file is stored with. Anything else is rejected.
var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"video/mp4":  ".mp4",
	"video/webm": ".webm",
	"video/avi":  ".avi",
}

// LocalStore writes uploads below a directory that the HTTP server serves
// statically under URLPrefix.
type LocalStore struct {
	dir       string
	urlPrefix string
	maxSize   int64
	logger    *zap.Logger
}

func NewLocalStore(cfg config.MediaConfig, logger *zap.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media dir %s: %w", cfg.Dir, err)
	}
	return &LocalStore{
		dir:       cfg.Dir,
		urlPrefix: strings.TrimSuffix(cfg.URLPrefix, "/"),
		maxSize:   cfg.MaxSize,
		logger:    logger,
	}, nil
}

// Save stores the upload under folder with a random name and returns its URL.
// The stored extension follows the sniffed content, not the client filename.
func (s *LocalStore) Save(ctx context.Context, folder string, upload services.Upload) (string, error) {
	if upload.Reader == nil {
		return "", errs.Errorf(errs.EINVALID, "file is required")
	}
	if s.maxSize > 0 && upload.Size > s.maxSize {
		return "", errs.Errorf(errs.EINVALID, "file too large")
	}
	folder = filepath.Base(filepath.Clean("/" + folder))
	if folder == "/" || folder == "." {
		return "", errs.Errorf(errs.EINVALID, "invalid media folder")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	reader := upload.Reader
	if s.maxSize > 0 {
		reader = io.LimitReader(upload.Reader, s.maxSize+1)
	}
	buffered := bufio.NewReaderSize(reader, 512)
	head, err := buffered.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read media file: %w", err)
	}
	contentType, _, _ := strings.Cut(http.DetectContentType(head), ";")
	ext, ok := extensions[contentType]
	if !ok {
		return "", errs.Errorf(errs.EINVALID, "unsupported media type %s", contentType)
	}

	target := filepath.Join(s.dir, folder)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("failed to create media folder: %w", err)
	}

	name := uuid.NewString() + ext
	file := filepath.Join(target, name)
	f, err := os.Create(file)
	if err != nil {
		return "", fmt.Errorf("failed to create media file: %w", err)
	}

	written, err := io.Copy(f, buffered)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil && s.maxSize > 0 && written > s.maxSize {
		err = errs.Errorf(errs.EINVALID, "file too large")
	}
	if err != nil {
		_ = os.Remove(file)
		if errs.ErrorCode(err) == errs.EINVALID {
			return "", err
		}
		return "", fmt.Errorf("failed to write media file: %w", err)
	}

	s.logger.Debug("Media stored", zap.String("file", file), zap.String("type", contentType), zap.Int64("bytes", written))
	return path.Join(s.urlPrefix, folder, name), nil
}

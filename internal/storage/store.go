// Package storage keeps uploaded product images on local disk or in S3.
//
// Files are named after their content: the first 32 hex characters of the
// SHA-256 digest plus the lowercased original extension. Re-uploading the
// same image reuses the same object and two different images never collide.
package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/Skotchmaster/storefront/internal/config"
)

var ErrEmptyFile = errors.New("uploaded file is empty")

type Store interface {
	Put(ctx context.Context, name string, content []byte, contentType string) error
	Delete(ctx context.Context, name string) error
	URL(name string) string
}

func New(ctx context.Context, cfg config.UploadConfig) (Store, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocal(cfg.Dir, cfg.URLPrefix)
	case "s3":
		return NewS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
	}
}

// ContentName derives the stored name for an upload.
func ContentName(content []byte, originalName string) string {
	sum := sha256.Sum256(content)
	name := hex.EncodeToString(sum[:])[:32]
	if ext := CleanExt(originalName); ext != "" {
		name += "." + ext
	}
	return name
}

// CleanExt returns the lowercased extension of name with anything but
// ASCII letters and digits removed.
func CleanExt(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filepath.Base(name)), "."))
	var b strings.Builder
	for _, r := range ext {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SaveImage stores r under its content name and returns the public URL.
func SaveImage(ctx context.Context, s Store, originalName string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", fmt.Errorf("storage: read upload: %w", err)
	}
	if buf.Len() == 0 {
		return "", ErrEmptyFile
	}
	content := buf.Bytes()
	name := ContentName(content, originalName)
	if err := s.Put(ctx, name, content, http.DetectContentType(content)); err != nil {
		return "", err
	}
	return s.URL(name), nil
}

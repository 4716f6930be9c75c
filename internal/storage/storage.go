// Package storage keeps uploaded and generated files on local disk and
// hands out the public URL they are served under.
package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Local struct {
	root    string
	baseURL string
	log     *zerolog.Logger
}

// NewLocal stores files under root and serves them under baseURL
// (for example "/files").
func NewLocal(root, baseURL string, log *zerolog.Logger) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Local{root: root, baseURL: strings.TrimRight(baseURL, "/"), log: log}, nil
}

func (l *Local) Root() string { return l.root }

func (l *Local) BaseURL() string { return l.baseURL }

// Save writes data to dir/<random>.ext and returns its public URL.
func (l *Local) Save(ctx context.Context, dir, ext string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir = filepath.Clean("/" + dir)[1:]
	name := uuid.NewString() + ext

	full := filepath.Join(l.root, dir)
	if err := os.MkdirAll(full, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(full, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(full, name)); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("rename file: %w", err)
	}

	url := l.baseURL + "/" + path.Join(filepath.ToSlash(dir), name)
	l.log.Debug().Str("url", url).Int("bytes", len(data)).Msg("file stored")
	return url, nil
}

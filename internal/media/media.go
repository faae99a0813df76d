// Package media stores uploaded post images.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("media file not found")
	ErrNotImage    = errors.New("upload is not an image")
	ErrInvalidName = errors.New("invalid media file name")
)

// sniffLen is how many leading bytes are inspected to detect the file type.
const sniffLen = 3072

// Store persists named files.
type Store interface {
	Save(ctx context.Context, name string, r io.Reader) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// SaveImage stores r under a fresh name in the posts/ prefix and returns that name.
// Uploads that do not sniff as an image are rejected with ErrNotImage.
func SaveImage(ctx context.Context, store Store, r io.Reader) (string, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	head = head[:n]

	mtype := mimetype.Detect(head)
	if n == 0 || !strings.HasPrefix(mtype.String(), "image/") {
		return "", ErrNotImage
	}

	name := "posts/" + uuid.NewString() + mtype.Extension()
	if err := store.Save(ctx, name, io.MultiReader(bytes.NewReader(head), r)); err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return name, nil
}

// cleanName normalises a slash separated name and rejects escapes from the store root.
func cleanName(name string) (string, error) {
	if name == "" || strings.Contains(name, "..") || strings.Contains(name, "\\") {
		return "", ErrInvalidName
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+name), "/")
	if cleaned == "" {
		return "", ErrInvalidName
	}
	return cleaned, nil
}

// Package objectstore saves finished report files to a local directory or an S3 bucket.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

var (
	ErrSaveFailed  = errors.New("save failed")
	ErrInvalidName = errors.New("invalid object name")
)

// Store persists report files under a flat or slash-separated name.
type Store interface {
	// Save writes data under name, replacing any existing object, and returns
	// the location it was written to.
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// cleanName rejects names that would escape the store root.
func cleanName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidName)
	}
	cleaned := path.Clean(strings.ReplaceAll(name, "\\", "/"))
	if path.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return cleaned, nil
}

// Multi saves to every store in order and stops at the first failure.
type Multi []Store

func (m Multi) Save(ctx context.Context, name string, data []byte) (string, error) {
	locations := make([]string, 0, len(m))
	for _, s := range m {
		loc, err := s.Save(ctx, name, data)
		if err != nil {
			return strings.Join(locations, ","), err
		}
		locations = append(locations, loc)
	}
	return strings.Join(locations, ","), nil
}

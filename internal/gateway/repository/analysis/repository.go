package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Store persists saved analysis files by id. Content is the raw JSON file,
// in whichever shape it was written.
type Store interface {
	Put(ctx context.Context, id string, content []byte) error
	Get(ctx context.Context, id string) ([]byte, error)
	List(ctx context.Context) ([]string, error)
}

var (
	ErrNotFound  = errors.New("saved analysis not found")
	ErrInvalidID = errors.New("invalid analysis id")
)

// NormalizeID trims id and rejects values that cannot be used as a file or
// object name. Dot-prefixed names are reserved for the file store's temp
// files and never listed.
func NormalizeID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: id is required", ErrInvalidID)
	}
	if strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return id, nil
}

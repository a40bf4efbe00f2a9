package dirstore

import (
	"errors"
	"fmt"
)

var (
	ErrDirectoryNotFound  = errors.New("directory not found")
	ErrDepthLimitExceeded = errors.New("directory depth limit exceeded")
)

// NotFoundError reports a directory id absent from the caller's tree.
// It matches [ErrDirectoryNotFound] with errors.Is.
type NotFoundError struct {
	ID DirectoryID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no directory with id %d found", e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrDirectoryNotFound
}

// NotFound returns a [NotFoundError] for id.
func NotFound(id DirectoryID) error {
	return &NotFoundError{ID: id}
}

// DepthLimitError is returned by Create when the new directory would be deeper
// than the configured maximum. It matches [ErrDepthLimitExceeded] with errors.Is.
type DepthLimitError struct {
	Max uint32
}

func (e *DepthLimitError) Error() string {
	return fmt.Sprintf("directory depth limit exceeded (max: %d)", e.Max)
}

func (e *DepthLimitError) Is(target error) bool {
	return target == ErrDepthLimitExceeded
}

// DepthLimitExceeded returns a [DepthLimitError] for limit.
func DepthLimitExceeded(limit uint32) error {
	return &DepthLimitError{Max: limit}
}

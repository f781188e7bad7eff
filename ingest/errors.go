package ingest

import (
	"fmt"

	"github.com/warp/kol-dashboard/reconcile"
)

// SourceError is returned when a source file or sheet cannot be read.
// It unwraps to both the underlying cause and reconcile.ErrDataUnavailable.
type SourceError struct {
	Path  string
	Sheet string
	Err   error
}

func (e *SourceError) Error() string {
	if e.Sheet != "" {
		return fmt.Sprintf("read %s[%s]: %v", e.Path, e.Sheet, e.Err)
	}
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *SourceError) Unwrap() []error {
	return []error{reconcile.ErrDataUnavailable, e.Err}
}

// ColumnError is returned when a table lacks a required column under every
// known alias.
type ColumnError struct {
	Table string
	Field Field
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("%s table: missing required column %q", e.Table, e.Field)
}

func (e *ColumnError) Unwrap() error {
	return reconcile.ErrDataUnavailable
}

// Package repository holds what the store implementations share.
package repository

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicate       = errors.New("record already exists")
	ErrVersionConflict = errors.New("record was modified concurrently")
)

// OpTimeout bounds a single store round trip.
const OpTimeout = 5 * time.Second

// WithTimeout derives the per-operation context used by every repository call.
func WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, OpTimeout)
}

// Package repository contains data access abstractions for the capture log.
// Implementations live in subpackages (e.g. postgres).
package repository

import (
	"context"

	"webcamupload/internal/model"
)

// CaptureRepository records stored captures. It carries no business logic.
type CaptureRepository interface {
	// Create inserts a capture record and returns the stored row.
	Create(ctx context.Context, c *model.Capture) (*model.Capture, error)

	// List returns captures newest first and the total row count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Capture], error)
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
type PageResult[T any] struct {
	Items []T
	Total int
}

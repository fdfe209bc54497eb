// Package repo defines a generic keyed repository over a graph store.
package repo

import "context"

// Repository lists and upserts entities keyed by ID.
type Repository[T any, ID comparable] interface {
	List(ctx context.Context, opts ListOpts) ([]T, error)
	Upsert(ctx context.Context, entity T) error
	DeleteAll(ctx context.Context) error
}

// ListOpts controls ordering and pagination for List. A zero Limit means
// no limit.
type ListOpts struct {
	OrderBy string
	Offset  int
	Limit   int
}

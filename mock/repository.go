package mock

import (
	"context"

	"github.com/buzkaaclicker/appsrv"
)

// Finder serves queries from plain functions.
type Finder[T any] struct {
	FindFn  func(ctx context.Context, criteria appsrv.Criteria) ([]T, error)
	CountFn func(ctx context.Context, criteria appsrv.Criteria) (int, error)
}

func (f Finder[T]) Find(ctx context.Context, criteria appsrv.Criteria) ([]T, error) {
	return f.FindFn(ctx, criteria)
}

func (f Finder[T]) Count(ctx context.Context, criteria appsrv.Criteria) (int, error) {
	return f.CountFn(ctx, criteria)
}

type Repository[T appsrv.Entity[T]] struct {
	EntitiesFn func() appsrv.Query[T]

	AddFn    func(ctx context.Context, entity T) (T, error)
	UpdateFn func(ctx context.Context, entity T) error
	DeleteFn func(ctx context.Context, entity T) error
}

func (r Repository[T]) Entities() appsrv.Query[T] {
	return r.EntitiesFn()
}

func (r Repository[T]) Add(ctx context.Context, entity T) (T, error) {
	return r.AddFn(ctx, entity)
}

func (r Repository[T]) Update(ctx context.Context, entity T) error {
	return r.UpdateFn(ctx, entity)
}

func (r Repository[T]) Delete(ctx context.Context, entity T) error {
	return r.DeleteFn(ctx, entity)
}

// Repository whose queries see exactly the given entities, keyed by EntityKey.
func StaticRepository[T appsrv.Entity[T]](keyField string, entities ...T) Repository[T] {
	finder := Finder[T]{
		FindFn: func(ctx context.Context, c appsrv.Criteria) ([]T, error) {
			return filterByKey(entities, keyField, c), nil
		},
		CountFn: func(ctx context.Context, c appsrv.Criteria) (int, error) {
			return len(filterByKey(entities, keyField, c)), nil
		},
	}
	return Repository[T]{
		EntitiesFn: func() appsrv.Query[T] {
			return appsrv.NewQuery[T](finder, keyField)
		},
	}
}

// Only key equality filters are understood.
func filterByKey[T appsrv.Entity[T]](entities []T, keyField string, c appsrv.Criteria) []T {
	var matched []T
	for _, e := range entities {
		keep := true
		for _, f := range c.Filters {
			if f.Field == keyField && f.Op == appsrv.OpEq && f.Values[0] != e.EntityKey() {
				keep = false
			}
		}
		if keep {
			matched = append(matched, e)
		}
	}
	if c.Limit > 0 && len(matched) > c.Limit {
		matched = matched[:c.Limit]
	}
	return matched
}

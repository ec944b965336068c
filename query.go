package appsrv

import (
	"context"
	"fmt"
)

type Operator int

const (
	OpEq Operator = iota
	OpIn
)

type Filter struct {
	Field  string
	Op     Operator
	Values []interface{}
}

type Order struct {
	Field string
	Desc  bool
}

// Criteria is the backend-neutral form of a query. Limit 0 means unlimited.
type Criteria struct {
	Filters []Filter
	Orders  []Order
	Limit   int
	Offset  int
}

// QueryExecutor runs criteria against a backing store.
type QueryExecutor[T any] interface {
	Find(ctx context.Context, c Criteria) ([]T, error)
	Count(ctx context.Context, c Criteria) (int, error)
}

// Query is an immutable query builder; every method returns a new query.
type Query[T any] struct {
	exec     QueryExecutor[T]
	keyField string
	criteria Criteria
}

func NewQuery[T any](exec QueryExecutor[T], keyField string) Query[T] {
	return Query[T]{exec: exec, keyField: keyField}
}

func (q Query[T]) Criteria() Criteria {
	return q.criteria
}

func (q Query[T]) Where(field string, value interface{}) Query[T] {
	return q.filter(Filter{Field: field, Op: OpEq, Values: []interface{}{value}})
}

func (q Query[T]) WhereIn(field string, values ...interface{}) Query[T] {
	return q.filter(Filter{Field: field, Op: OpIn, Values: append([]interface{}(nil), values...)})
}

func (q Query[T]) OrderBy(field string) Query[T] {
	return q.order(Order{Field: field})
}

func (q Query[T]) OrderByDesc(field string) Query[T] {
	return q.order(Order{Field: field, Desc: true})
}

func (q Query[T]) Limit(n int) Query[T] {
	q.criteria.Limit = n
	return q
}

func (q Query[T]) Offset(n int) Query[T] {
	q.criteria.Offset = n
	return q
}

func (q Query[T]) filter(f Filter) Query[T] {
	filters := make([]Filter, len(q.criteria.Filters), len(q.criteria.Filters)+1)
	copy(filters, q.criteria.Filters)
	q.criteria.Filters = append(filters, f)
	return q
}

func (q Query[T]) order(o Order) Query[T] {
	orders := make([]Order, len(q.criteria.Orders), len(q.criteria.Orders)+1)
	copy(orders, q.criteria.Orders)
	q.criteria.Orders = append(orders, o)
	return q
}

func (q Query[T]) List(ctx context.Context) ([]T, error) {
	return q.exec.Find(ctx, q.criteria)
}

// First returns ErrNotFound when nothing matches.
func (q Query[T]) First(ctx context.Context) (T, error) {
	var zero T
	found, err := q.Limit(1).List(ctx)
	if err != nil {
		return zero, err
	}
	if len(found) == 0 {
		return zero, ErrNotFound
	}
	return found[0], nil
}

// Count ignores limit and offset.
func (q Query[T]) Count(ctx context.Context) (int, error) {
	c := q.criteria
	c.Limit, c.Offset = 0, 0
	return q.exec.Count(ctx, c)
}

func (q Query[T]) Contains(ctx context.Context, key string) (bool, error) {
	n, err := q.Where(q.keyField, key).Count(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (q Query[T]) ByKey(ctx context.Context, key string) (T, error) {
	entity, err := q.Where(q.keyField, key).First(ctx)
	if err != nil {
		return entity, fmt.Errorf("by key %q: %w", key, err)
	}
	return entity, nil
}

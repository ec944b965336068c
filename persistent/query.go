package persistent

import (
	"context"
	"fmt"
	"time"

	"github.com/buzkaaclicker/appsrv"
	"github.com/uptrace/bun"
)

type finder[T any, M any, PM model[T, M]] struct {
	db    bun.IDB
	table string
}

func (f finder[T, M, PM]) Find(ctx context.Context, c appsrv.Criteria) ([]T, error) {
	var rows []M
	q := f.db.NewSelect().Model(&rows)
	q = applyFilters(q, c.Filters)
	for _, o := range c.Orders {
		if o.Desc {
			q = q.OrderExpr("? DESC", bun.Ident(o.Field))
		} else {
			q = q.OrderExpr("? ASC", bun.Ident(o.Field))
		}
	}
	if c.Limit > 0 {
		q = q.Limit(c.Limit)
	}
	if c.Offset > 0 {
		q = q.Offset(c.Offset)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, appsrv.AsPersistenceError(fmt.Errorf("select %s: %w", f.table, err))
	}

	entities := make([]T, len(rows))
	for i := range rows {
		entities[i] = PM(&rows[i]).toDomain()
	}
	return entities, nil
}

func (f finder[T, M, PM]) Count(ctx context.Context, c appsrv.Criteria) (int, error) {
	q := f.db.NewSelect().Model((*M)(nil))
	n, err := applyFilters(q, c.Filters).Count(ctx)
	if err != nil {
		return 0, appsrv.AsPersistenceError(fmt.Errorf("count %s: %w", f.table, err))
	}
	return n, nil
}

func applyFilters(q *bun.SelectQuery, filters []appsrv.Filter) *bun.SelectQuery {
	for _, filter := range filters {
		switch filter.Op {
		case appsrv.OpIn:
			// IN () is a syntax error in postgres, an empty set matches nothing
			if len(filter.Values) == 0 {
				q = q.Where("FALSE")
				continue
			}
			values := make([]interface{}, len(filter.Values))
			for i, v := range filter.Values {
				values[i] = columnValue(v)
			}
			q = q.Where("? IN (?)", bun.Ident(filter.Field), bun.In(values))
		default:
			q = q.Where("? = ?", bun.Ident(filter.Field), columnValue(filter.Values[0]))
		}
	}
	return q
}

// Durations are stored as whole seconds.
func columnValue(v interface{}) interface{} {
	if d, ok := v.(time.Duration); ok {
		return int64(d / time.Second)
	}
	return v
}

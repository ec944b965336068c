package inmem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/buzkaaclicker/appsrv"
	"github.com/tidwall/buntdb"
	"github.com/tidwall/gjson"
)

type finder[T any] struct {
	db       *buntdb.DB
	table    string
	keyField string
}

var _ appsrv.QueryExecutor[appsrv.Realm] = finder[appsrv.Realm]{}

func (f finder[T]) Find(ctx context.Context, c appsrv.Criteria) ([]T, error) {
	docs, err := f.scan(ctx, c.Filters)
	if err != nil {
		return nil, err
	}
	sortDocs(docs, c.Orders)
	docs = page(docs, c.Offset, c.Limit)

	entities := make([]T, len(docs))
	for i, doc := range docs {
		if err := json.Unmarshal([]byte(doc), &entities[i]); err != nil {
			return nil, appsrv.AsPersistenceError(fmt.Errorf("deserialize %s: %w", f.table, err))
		}
	}
	return entities, nil
}

func (f finder[T]) Count(ctx context.Context, c appsrv.Criteria) (int, error) {
	docs, err := f.scan(ctx, c.Filters)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// scan walks a JSON index when the first equality filter has one, the whole
// table otherwise. Every filter is re-checked on each document.
func (f finder[T]) scan(ctx context.Context, filters []appsrv.Filter) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var docs []string
	err := f.db.View(func(tx *buntdb.Tx) error {
		var iterErr error
		iter := func(key, value string) bool {
			if iterErr = ctx.Err(); iterErr != nil {
				return false
			}
			if matchesAll(value, filters) {
				docs = append(docs, value)
			}
			return true
		}

		if key, ok := f.keyLookup(filters); ok {
			value, err := tx.Get(recordKey(f.table, key))
			switch {
			case errors.Is(err, buntdb.ErrNotFound):
				return nil
			case err != nil:
				return err
			}
			if matchesAll(value, filters) {
				docs = append(docs, value)
			}
			return nil
		}

		var err error
		if index, pivot, ok := f.pushdown(filters); ok {
			err = tx.AscendEqual(index, pivot, iter)
		} else {
			err = tx.AscendKeys(f.table+":*", iter)
		}
		if err != nil {
			return err
		}
		return iterErr
	})
	if err != nil {
		return nil, appsrv.AsPersistenceError(fmt.Errorf("scan %s: %w", f.table, err))
	}
	return docs, nil
}

// keyLookup finds an equality filter on the key, served by a single Get.
func (f finder[T]) keyLookup(filters []appsrv.Filter) (string, bool) {
	if f.keyField == "" {
		return "", false
	}
	for _, filter := range filters {
		if filter.Field != f.keyField || filter.Op != appsrv.OpEq {
			continue
		}
		if key, ok := filter.Values[0].(string); ok {
			return key, true
		}
	}
	return "", false
}

func (f finder[T]) pushdown(filters []appsrv.Filter) (string, string, bool) {
	for _, filter := range filters {
		if filter.Op != appsrv.OpEq {
			continue
		}
		index, ok := indexFor(f.table, filter.Field)
		if !ok {
			continue
		}
		pivot, err := json.Marshal(map[string]interface{}{filter.Field: filter.Values[0]})
		if err != nil {
			continue
		}
		return index, string(pivot), true
	}
	return "", "", false
}

func matchesAll(doc string, filters []appsrv.Filter) bool {
	for _, filter := range filters {
		field := gjson.Get(doc, filter.Field)
		matched := false
		for _, v := range filter.Values {
			if equal(field, v) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func equal(field gjson.Result, v interface{}) bool {
	switch v := v.(type) {
	case string:
		return field.Type == gjson.String && field.Str == v
	case bool:
		return (field.Type == gjson.True || field.Type == gjson.False) && field.Bool() == v
	case int:
		return field.Type == gjson.Number && field.Int() == int64(v)
	case int64:
		return field.Type == gjson.Number && field.Int() == v
	case time.Duration:
		return field.Type == gjson.Number && field.Int() == int64(v)
	case float64:
		return field.Type == gjson.Number && field.Num == v
	case time.Time:
		return field.Type == gjson.String && field.Time().Equal(v)
	case fmt.Stringer:
		return field.String() == v.String()
	default:
		return field.String() == fmt.Sprint(v)
	}
}

func sortDocs(docs []string, orders []appsrv.Order) {
	if len(orders) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, o := range orders {
			a := gjson.Get(docs[i], o.Field)
			b := gjson.Get(docs[j], o.Field)
			switch {
			case a.Less(b, true):
				return !o.Desc
			case b.Less(a, true):
				return o.Desc
			}
		}
		return false
	})
}

func page(docs []string, offset int, limit int) []string {
	if offset > 0 {
		if offset >= len(docs) {
			return nil
		}
		docs = docs[offset:]
	}
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return docs
}

package inmem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/buzkaaclicker/appsrv"
	"github.com/buzkaaclicker/appsrv/staging"
	"github.com/tidwall/buntdb"
	"github.com/tidwall/gjson"
)

// Repository stores entities as JSON documents under "<table>:<key>".
type Repository[T appsrv.Entity[T]] struct {
	dc       *DataContext
	table    string
	keyField string
}

func newRepository[T appsrv.Entity[T]](dc *DataContext, table string, keyField string) Repository[T] {
	return Repository[T]{dc: dc, table: table, keyField: keyField}
}

func (r Repository[T]) Entities() appsrv.Query[T] {
	return appsrv.NewQuery[T](finder[T]{db: r.dc.DB, table: r.table, keyField: r.keyField}, r.keyField)
}

func (r Repository[T]) Add(ctx context.Context, entity T) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if err := entity.Validate(); err != nil {
		return zero, err
	}
	entity = entity.Stamped(now(), 1)
	key := entity.EntityKey()

	stored, _, err := r.lookup(key)
	if err != nil {
		return zero, err
	}
	if r.dc.staged.Visible(r.table, key, stored) {
		return zero, fmt.Errorf("%s %q: %w", r.table, key, appsrv.ErrDuplicateKey)
	}
	value, err := json.Marshal(entity)
	if err != nil {
		return zero, fmt.Errorf("serialize %s: %w", r.table, err)
	}
	if err := r.precheckUnique(key, string(value)); err != nil {
		return zero, err
	}

	rkey := recordKey(r.table, key)
	r.dc.staged.Stage(staging.Change[*buntdb.Tx]{
		Kind:  staging.Insert,
		Table: r.table,
		Key:   key,
		Apply: func(ctx context.Context, tx *buntdb.Tx) (int64, error) {
			_, err := tx.Get(rkey)
			switch {
			case err == nil:
				return 0, appsrv.ErrDuplicateKey
			case !errors.Is(err, buntdb.ErrNotFound):
				return 0, err
			}
			if err := checkUnique(tx, r.table, key, string(value)); err != nil {
				return 0, err
			}
			if _, _, err := tx.Set(rkey, string(value), nil); err != nil {
				return 0, err
			}
			return 1, nil
		},
	})
	return entity, nil
}

func (r Repository[T]) Update(ctx context.Context, entity T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := entity.Validate(); err != nil {
		return err
	}
	key := entity.EntityKey()
	expected := entity.EntityVersion()

	stored, version, err := r.lookup(key)
	if err != nil {
		return err
	}
	if !r.dc.staged.Visible(r.table, key, stored) {
		return fmt.Errorf("%s %q: %w", r.table, key, appsrv.ErrNotFound)
	}
	// Entities staged in this context carry no stored version yet; the commit checks them.
	if _, staged := r.dc.staged.Last(r.table, key); !staged && version != expected {
		return fmt.Errorf("%s %q at version %d (stored %d): %w",
			r.table, key, expected, version, appsrv.ErrConcurrency)
	}

	value, err := json.Marshal(entity.Stamped(now(), expected+1))
	if err != nil {
		return fmt.Errorf("serialize %s: %w", r.table, err)
	}
	if err := r.precheckUnique(key, string(value)); err != nil {
		return err
	}

	rkey := recordKey(r.table, key)
	r.dc.staged.Stage(staging.Change[*buntdb.Tx]{
		Kind:  staging.Update,
		Table: r.table,
		Key:   key,
		Apply: func(ctx context.Context, tx *buntdb.Tx) (int64, error) {
			current, err := tx.Get(rkey)
			if err != nil {
				if errors.Is(err, buntdb.ErrNotFound) {
					return 0, appsrv.ErrNotFound
				}
				return 0, err
			}
			if v := gjson.Get(current, "version").Int(); v != expected {
				return 0, fmt.Errorf("expected version %d, stored %d: %w", expected, v, appsrv.ErrConcurrency)
			}
			merged, err := keepCreatedAt(current, value)
			if err != nil {
				return 0, err
			}
			if err := checkUnique(tx, r.table, key, merged); err != nil {
				return 0, err
			}
			if _, _, err := tx.Set(rkey, merged, nil); err != nil {
				return 0, err
			}
			return 1, nil
		},
	})
	return nil
}

func (r Repository[T]) Delete(ctx context.Context, entity T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := entity.EntityKey()

	stored, _, err := r.lookup(key)
	if err != nil {
		return err
	}
	if !r.dc.staged.Visible(r.table, key, stored) {
		return fmt.Errorf("%s %q: %w", r.table, key, appsrv.ErrNotFound)
	}

	rkey := recordKey(r.table, key)
	r.dc.staged.Stage(staging.Change[*buntdb.Tx]{
		Kind:  staging.Delete,
		Table: r.table,
		Key:   key,
		Apply: func(ctx context.Context, tx *buntdb.Tx) (int64, error) {
			if _, err := tx.Get(rkey); err != nil {
				if errors.Is(err, buntdb.ErrNotFound) {
					return 0, appsrv.ErrNotFound
				}
				return 0, err
			}
			if err := checkUnreferenced(tx, r.table, key); err != nil {
				return 0, err
			}
			if _, err := tx.Delete(rkey); err != nil {
				return 0, err
			}
			return 1, nil
		},
	})
	return nil
}

// lookup reports whether the key is committed and at which version.
func (r Repository[T]) lookup(key string) (bool, int64, error) {
	var value string
	err := r.dc.DB.View(func(tx *buntdb.Tx) error {
		var err error
		value, err = tx.Get(recordKey(r.table, key))
		return err
	})
	switch {
	case errors.Is(err, buntdb.ErrNotFound):
		return false, 0, nil
	case err != nil:
		return false, 0, appsrv.AsPersistenceError(fmt.Errorf("lookup %s %q: %w", r.table, key, err))
	}
	return true, gjson.Get(value, "version").Int(), nil
}

// precheckUnique checks unique fields against committed documents. The commit
// checks again inside its transaction.
func (r Repository[T]) precheckUnique(key string, doc string) error {
	err := r.dc.DB.View(func(tx *buntdb.Tx) error {
		return checkUnique(tx, r.table, key, doc)
	})
	return appsrv.AsPersistenceError(err)
}

func keepCreatedAt(current string, updated []byte) (string, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(updated, &doc); err != nil {
		return "", fmt.Errorf("deserialize update: %w", err)
	}
	if createdAt := gjson.Get(current, "created_at"); createdAt.Exists() {
		doc["created_at"] = json.RawMessage(createdAt.Raw)
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("serialize update: %w", err)
	}
	return string(merged), nil
}

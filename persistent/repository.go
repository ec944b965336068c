package persistent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/buzkaaclicker/appsrv"
	"github.com/buzkaaclicker/appsrv/staging"
	"github.com/uptrace/bun"
)

// model is a bun row type M mapped to and from the domain entity T.
type model[T any, M any] interface {
	*M
	toDomain() T
	fromDomain(T)
}

type Repository[T appsrv.Entity[T], M any, PM model[T, M]] struct {
	dc    *DataContext
	table string
	// Key column, also the key field of queries.
	keyColumn string
}

func newRepository[T appsrv.Entity[T], M any, PM model[T, M]](
	dc *DataContext, table string, keyColumn string) Repository[T, M, PM] {
	return Repository[T, M, PM]{dc: dc, table: table, keyColumn: keyColumn}
}

func (r Repository[T, M, PM]) Entities() appsrv.Query[T] {
	return appsrv.NewQuery[T](finder[T, M, PM]{db: r.dc.DB, table: r.table}, r.keyColumn)
}

func (r Repository[T, M, PM]) Add(ctx context.Context, entity T) (T, error) {
	var zero T
	if err := entity.Validate(); err != nil {
		return zero, err
	}
	entity = entity.Stamped(now(), 1)
	key := entity.EntityKey()

	stored, _, err := r.lookup(ctx, key)
	if err != nil {
		return zero, err
	}
	if r.dc.staged.Visible(r.table, key, stored) {
		return zero, fmt.Errorf("%s %q: %w", r.table, key, appsrv.ErrDuplicateKey)
	}

	row := PM(new(M))
	row.fromDomain(entity)
	r.dc.staged.Stage(staging.Change[bun.Tx]{
		Kind:  staging.Insert,
		Table: r.table,
		Key:   key,
		Apply: func(ctx context.Context, tx bun.Tx) (int64, error) {
			res, err := tx.NewInsert().Model(row).Exec(ctx)
			if err != nil {
				return 0, classify(err)
			}
			return res.RowsAffected()
		},
	})
	return entity, nil
}

func (r Repository[T, M, PM]) Update(ctx context.Context, entity T) error {
	if err := entity.Validate(); err != nil {
		return err
	}
	key := entity.EntityKey()
	expected := entity.EntityVersion()

	stored, version, err := r.lookup(ctx, key)
	if err != nil {
		return err
	}
	if !r.dc.staged.Visible(r.table, key, stored) {
		return fmt.Errorf("%s %q: %w", r.table, key, appsrv.ErrNotFound)
	}
	if _, staged := r.dc.staged.Last(r.table, key); !staged && version != expected {
		return fmt.Errorf("%s %q at version %d (stored %d): %w",
			r.table, key, expected, version, appsrv.ErrConcurrency)
	}

	row := PM(new(M))
	row.fromDomain(entity.Stamped(now(), expected+1))
	r.dc.staged.Stage(staging.Change[bun.Tx]{
		Kind:  staging.Update,
		Table: r.table,
		Key:   key,
		Apply: func(ctx context.Context, tx bun.Tx) (int64, error) {
			res, err := tx.NewUpdate().
				Model(row).
				ExcludeColumn("created_at").
				WherePK().
				Where("version = ?", expected).
				Exec(ctx)
			if err != nil {
				return 0, classify(err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return 0, err
			}
			if n > 0 {
				return n, nil
			}
			exists, err := tx.NewSelect().
				Model((*M)(nil)).
				Where("? = ?", bun.Ident(r.keyColumn), key).
				Exists(ctx)
			switch {
			case err != nil:
				return 0, err
			case exists:
				return 0, fmt.Errorf("expected version %d: %w", expected, appsrv.ErrConcurrency)
			default:
				return 0, appsrv.ErrNotFound
			}
		},
	})
	return nil
}

func (r Repository[T, M, PM]) Delete(ctx context.Context, entity T) error {
	key := entity.EntityKey()

	stored, _, err := r.lookup(ctx, key)
	if err != nil {
		return err
	}
	if !r.dc.staged.Visible(r.table, key, stored) {
		return fmt.Errorf("%s %q: %w", r.table, key, appsrv.ErrNotFound)
	}

	r.dc.staged.Stage(staging.Change[bun.Tx]{
		Kind:  staging.Delete,
		Table: r.table,
		Key:   key,
		Apply: func(ctx context.Context, tx bun.Tx) (int64, error) {
			res, err := tx.NewDelete().
				Model((*M)(nil)).
				Where("? = ?", bun.Ident(r.keyColumn), key).
				Exec(ctx)
			if err != nil {
				return 0, classify(err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return 0, err
			}
			if n == 0 {
				return 0, appsrv.ErrNotFound
			}
			return n, nil
		},
	})
	return nil
}

// lookup reports whether the key is committed and at which version.
func (r Repository[T, M, PM]) lookup(ctx context.Context, key string) (bool, int64, error) {
	var version int64
	err := r.dc.DB.NewSelect().
		Model((*M)(nil)).
		Column("version").
		Where("? = ?", bun.Ident(r.keyColumn), key).
		Scan(ctx, &version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, 0, nil
	case err != nil:
		return false, 0, appsrv.AsPersistenceError(fmt.Errorf("lookup %s %q: %w", r.table, key, err))
	}
	return true, version, nil
}

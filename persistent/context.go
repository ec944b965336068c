package persistent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/buzkaaclicker/appsrv"
	"github.com/buzkaaclicker/appsrv/staging"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

const (
	pgUniqueViolation = "23505"
)

// DataContext stages repository mutations and flushes them in one pg transaction.
type DataContext struct {
	DB     *bun.DB
	staged staging.Set[bun.Tx]
}

var _ appsrv.DataContext = (*DataContext)(nil)

func NewDataContext(db *bun.DB) *DataContext {
	return &DataContext{DB: db}
}

func (c *DataContext) Realms() appsrv.Query[appsrv.Realm] {
	return NewRealmRepository(c).Entities()
}

func (c *DataContext) UserProfiles() appsrv.Query[appsrv.UserProfile] {
	return NewUserProfileRepository(c).Entities()
}

func (c *DataContext) Pending() int {
	return c.staged.Len()
}

func (c *DataContext) Discard() {
	c.staged.Drain()
}

func (c *DataContext) Commit(ctx context.Context) (int, error) {
	changes := c.staged.Drain()
	if len(changes) == 0 {
		return 0, nil
	}

	var affected int64
	err := c.DB.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		n, err := staging.Apply(ctx, tx, changes)
		affected = n
		return err
	})
	if err != nil {
		return 0, appsrv.AsPersistenceError(fmt.Errorf("commit: %w", err))
	}
	return int(affected), nil
}

func classify(err error) error {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) && pgErr.Field('C') == pgUniqueViolation {
		return fmt.Errorf("%w: %w", appsrv.ErrDuplicateKey, err)
	}
	return err
}

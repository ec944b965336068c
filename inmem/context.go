package inmem

import (
	"context"
	"fmt"

	"github.com/buzkaaclicker/appsrv"
	"github.com/buzkaaclicker/appsrv/staging"
	"github.com/tidwall/buntdb"
)

type DataContext struct {
	DB     *buntdb.DB
	staged staging.Set[*buntdb.Tx]
}

var _ appsrv.DataContext = (*DataContext)(nil)

func NewDataContext(db *buntdb.DB) *DataContext {
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

// Commit applies staged changes in one buntdb read-write transaction. The
// staged list is emptied whether or not the commit succeeds.
func (c *DataContext) Commit(ctx context.Context) (int, error) {
	changes := c.staged.Drain()
	if len(changes) == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, appsrv.AsPersistenceError(fmt.Errorf("commit: %w", err))
	}

	var affected int64
	err := c.DB.Update(func(tx *buntdb.Tx) error {
		n, err := staging.Apply(ctx, tx, changes)
		affected = n
		return err
	})
	if err != nil {
		return 0, appsrv.AsPersistenceError(fmt.Errorf("commit: %w", err))
	}
	return int(affected), nil
}

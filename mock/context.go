package mock

import (
	"context"

	"github.com/buzkaaclicker/appsrv"
)

type DataContext struct {
	RealmsFn       func() appsrv.Query[appsrv.Realm]
	UserProfilesFn func() appsrv.Query[appsrv.UserProfile]

	CommitFn  func(ctx context.Context) (int, error)
	PendingFn func() int
	DiscardFn func()
}

func (c DataContext) Realms() appsrv.Query[appsrv.Realm] {
	return c.RealmsFn()
}

func (c DataContext) UserProfiles() appsrv.Query[appsrv.UserProfile] {
	return c.UserProfilesFn()
}

func (c DataContext) Commit(ctx context.Context) (int, error) {
	return c.CommitFn(ctx)
}

func (c DataContext) Pending() int {
	return c.PendingFn()
}

func (c DataContext) Discard() {
	c.DiscardFn()
}

type ProfileService struct {
	ByUserIdFn func(ctx context.Context, userId string) (appsrv.UserProfileDto, error)
}

func (s ProfileService) ByUserId(ctx context.Context, userId string) (appsrv.UserProfileDto, error) {
	return s.ByUserIdFn(ctx, userId)
}

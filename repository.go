package appsrv

import (
	"context"
	"time"
)

// Entity is a persisted domain object with a stable key.
type Entity[T any] interface {
	EntityKey() string
	// Version read by the caller; updates are rejected when it no longer matches the store.
	EntityVersion() int64
	Validate() error
	// Stamped returns a copy carrying the store-assigned fields for the given write.
	Stamped(now time.Time, version int64) T
}

// Repository is the CRUD boundary for one entity kind. Mutations are staged
// on the DataContext the repository was built from and become durable on
// DataContext.Commit.
type Repository[T Entity[T]] interface {
	// Read-only view of committed entities.
	Entities() Query[T]

	Add(ctx context.Context, entity T) (T, error)

	Update(ctx context.Context, entity T) error

	Delete(ctx context.Context, entity T) error
}

// DataContext is the per-request persistence session. It must not be shared
// between concurrent requests.
type DataContext interface {
	Realms() Query[Realm]

	UserProfiles() Query[UserProfile]

	// Commit applies staged mutations atomically in staging order and
	// returns the number of affected rows.
	Commit(ctx context.Context) (int, error)

	Pending() int

	Discard()
}

// Scope is the request-scoped composition of a data context, the repositories
// staging on it and the services built from them.
type Scope struct {
	Context      DataContext
	Realms       RealmRepository
	UserProfiles UserProfileRepository
	Profiles     UserProfileService
}

type ScopeFactory func() Scope

package persistent

import (
	"context"
	"testing"
	"time"

	"github.com/buzkaaclicker/appsrv"
	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/errgroup"
)

func testRealm(name string) appsrv.Realm {
	return appsrv.Realm{
		Name:                     name,
		MaximumTicketLifetime:    7200 * time.Second,
		MaximumRenewableLifetime: 6000 * time.Second,
		MinimumTicketLifetime:    5400 * time.Second,
	}
}

func testProfile(realm, username string) appsrv.UserProfile {
	return appsrv.UserProfile{
		RealmName: realm,
		Username:  username,
		Email:     username + "@" + realm,
		Firstname: "Toney",
		Lastname:  "Stark",
		Birthday:  time.Date(1970, 5, 29, 0, 0, 0, 0, time.UTC),
	}
}

func commitRealms(t *testing.T, names ...string) {
	dc := NewDataContext(db)
	realms := NewRealmRepository(dc)
	for _, name := range names {
		if _, err := realms.Add(context.Background(), testRealm(name)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := dc.Commit(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestPgRealmRoundTrip(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	truncateTables(t)
	assert := assert.New(t)
	ctx := context.Background()
	dc := NewDataContext(db)
	realms := NewRealmRepository(dc)

	_, err := realms.Add(ctx, testRealm("MYREALM.COM"))
	if !assert.NoError(err) {
		return
	}
	found, err := dc.Realms().Contains(ctx, "MYREALM.COM")
	assert.NoError(err)
	assert.False(found)

	n, err := dc.Commit(ctx)
	if !assert.NoError(err) {
		return
	}
	assert.Equal(1, n)

	realm, err := dc.Realms().ByKey(ctx, "MYREALM.COM")
	if !assert.NoError(err) {
		return
	}
	assert.Equal(7200*time.Second, realm.MaximumTicketLifetime)
	assert.Equal(5400*time.Second, realm.MinimumTicketLifetime)
	assert.Equal(int64(1), realm.Version)

	count, err := dc.Realms().Where("maximum_ticket_lifetime", 7200*time.Second).Count(ctx)
	assert.NoError(err)
	assert.Equal(1, count)
}

func TestPgProfileAddAndQuery(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	truncateTables(t)
	commitRealms(t, "MYREALM.COM", "EXAMPLE.COM")
	assert := assert.New(t)
	ctx := context.Background()
	dc := NewDataContext(db)
	profiles := NewUserProfileRepository(dc)

	toney, err := profiles.Add(ctx, testProfile("MYREALM.COM", "toney"))
	if !assert.NoError(err) {
		return
	}
	assert.NotEmpty(toney.Id)
	_, err = profiles.Add(ctx, testProfile("MYREALM.COM", "steve"))
	assert.NoError(err)
	_, err = profiles.Add(ctx, testProfile("EXAMPLE.COM", "janice"))
	assert.NoError(err)
	_, err = dc.Commit(ctx)
	if !assert.NoError(err) {
		return
	}

	list, err := dc.UserProfiles().
		Where(appsrv.UserProfileFieldRealm, "MYREALM.COM").
		OrderBy(appsrv.UserProfileFieldUsername).
		List(ctx)
	if !assert.NoError(err) {
		return
	}
	if assert.Len(list, 2) {
		assert.Equal("steve", list[0].Username)
		assert.Equal("toney", list[1].Username)
	}

	list, err = dc.UserProfiles().
		WhereIn(appsrv.UserProfileFieldUsername, "toney", "janice").
		OrderByDesc(appsrv.UserProfileFieldUsername).
		Limit(1).
		List(ctx)
	if assert.NoError(err) && assert.Len(list, 1) {
		assert.Equal("toney", list[0].Username)
	}

	count, err := dc.UserProfiles().WhereIn(appsrv.UserProfileFieldUsername).Count(ctx)
	assert.NoError(err)
	assert.Equal(0, count)

	stored, err := dc.UserProfiles().ByKey(ctx, toney.Id)
	if assert.NoError(err) {
		assert.Equal(toney.Birthday, stored.Birthday)
		assert.Equal(toney.Email, stored.Email)
	}
}

func TestPgUniqueViolationIsDuplicateKey(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	truncateTables(t)
	commitRealms(t, "MYREALM.COM")
	assert := assert.New(t)
	ctx := context.Background()
	dc := NewDataContext(db)
	profiles := NewUserProfileRepository(dc)

	// distinct ids, same (realm, username)
	_, err := profiles.Add(ctx, testProfile("MYREALM.COM", "toney"))
	assert.NoError(err)
	_, err = profiles.Add(ctx, testProfile("MYREALM.COM", "toney"))
	assert.NoError(err)

	_, err = dc.Commit(ctx)
	assert.ErrorIs(err, appsrv.ErrDuplicateKey)

	count, err := dc.UserProfiles().Count(ctx)
	assert.NoError(err)
	assert.Equal(0, count)

	_, err = profiles.Add(ctx, testProfile("MYREALM.COM", "toney"))
	assert.NoError(err)
	_, err = dc.Commit(ctx)
	if !assert.NoError(err) {
		return
	}
	// committed pair, caught by the unique index at commit
	_, err = profiles.Add(ctx, testProfile("MYREALM.COM", "toney"))
	assert.NoError(err)
	_, err = dc.Commit(ctx)
	assert.ErrorIs(err, appsrv.ErrDuplicateKey)
}

func TestPgUpdateVersioning(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	truncateTables(t)
	commitRealms(t, "EXAMPLE.ORG")
	assert := assert.New(t)
	ctx := context.Background()
	dc := NewDataContext(db)
	realms := NewRealmRepository(dc)

	realm, err := dc.Realms().ByKey(ctx, "EXAMPLE.ORG")
	if !assert.NoError(err) {
		return
	}
	realm.MaximumTicketLifetime = 9000 * time.Second
	assert.NoError(realms.Update(ctx, realm))
	_, err = dc.Commit(ctx)
	if !assert.NoError(err) {
		return
	}

	updated, err := dc.Realms().ByKey(ctx, "EXAMPLE.ORG")
	if !assert.NoError(err) {
		return
	}
	assert.Equal(int64(2), updated.Version)
	assert.Equal(9000*time.Second, updated.MaximumTicketLifetime)
	assert.Equal(realm.CreatedAt, updated.CreatedAt)

	// stale
	err = realms.Update(ctx, realm)
	assert.ErrorIs(err, appsrv.ErrConcurrency)

	err = realms.Update(ctx, testRealm("MISSING.COM"))
	assert.ErrorIs(err, appsrv.ErrNotFound)
}

func TestPgConcurrentUpdatesOneWins(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	truncateTables(t)
	commitRealms(t, "EXAMPLE.COM")
	assert := assert.New(t)
	ctx := context.Background()

	base, err := NewDataContext(db).Realms().ByKey(ctx, "EXAMPLE.COM")
	if !assert.NoError(err) {
		return
	}

	const writers = 4
	dcs := make([]*DataContext, writers)
	for i := range dcs {
		dcs[i] = NewDataContext(db)
		realm := base
		realm.MinimumTicketLifetime = time.Duration(i+1) * time.Second
		if !assert.NoError(NewRealmRepository(dcs[i]).Update(ctx, realm)) {
			return
		}
	}

	results := make([]error, writers)
	var g errgroup.Group
	for i := range dcs {
		i := i
		g.Go(func() error {
			_, results[i] = dcs[i].Commit(ctx)
			return nil
		})
	}
	_ = g.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(err, appsrv.ErrConcurrency)
	}
	assert.Equal(1, succeeded)

	stored, err := NewDataContext(db).Realms().ByKey(ctx, "EXAMPLE.COM")
	if assert.NoError(err) {
		assert.Equal(int64(2), stored.Version)
	}
}

func TestPgDelete(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	truncateTables(t)
	commitRealms(t, "EXAMPLE.COM")
	assert := assert.New(t)
	ctx := context.Background()
	dc := NewDataContext(db)
	realms := NewRealmRepository(dc)

	realm := testRealm("EXAMPLE.COM")
	assert.NoError(realms.Delete(ctx, realm))
	// staged delete hides the row from a second delete
	assert.ErrorIs(realms.Delete(ctx, realm), appsrv.ErrNotFound)
	_, err := dc.Commit(ctx)
	assert.NoError(err)

	assert.ErrorIs(realms.Delete(ctx, realm), appsrv.ErrNotFound)
}

func TestPgDeleteReferencedRealmRestricted(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	truncateTables(t)
	commitRealms(t, "MYREALM.COM")
	assert := assert.New(t)
	ctx := context.Background()

	dc := NewDataContext(db)
	_, err := NewUserProfileRepository(dc).Add(ctx, testProfile("MYREALM.COM", "admin"))
	assert.NoError(err)
	_, err = dc.Commit(ctx)
	if !assert.NoError(err) {
		return
	}

	assert.NoError(NewRealmRepository(dc).Delete(ctx, testRealm("MYREALM.COM")))
	_, err = dc.Commit(ctx)
	assert.ErrorIs(err, appsrv.ErrPersistence)

	found, err := dc.Realms().Contains(ctx, "MYREALM.COM")
	assert.NoError(err)
	assert.True(found)
}

func TestPgCommitAtomicity(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	truncateTables(t)
	commitRealms(t, "EXAMPLE.COM")
	assert := assert.New(t)
	ctx := context.Background()
	dc := NewDataContext(db)
	realms := NewRealmRepository(dc)

	_, err := realms.Add(ctx, testRealm("NEW.COM"))
	assert.NoError(err)
	// profile of unknown realm violates the foreign key
	_, err = NewUserProfileRepository(dc).Add(ctx, testProfile("NOWHERE.COM", "ghost"))
	assert.NoError(err)

	_, err = dc.Commit(ctx)
	assert.ErrorIs(err, appsrv.ErrPersistence)
	assert.Equal(0, dc.Pending())

	found, err := dc.Realms().Contains(ctx, "NEW.COM")
	assert.NoError(err)
	assert.False(found)
}

func TestPgCommitCancelled(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	truncateTables(t)
	assert := assert.New(t)
	dc := NewDataContext(db)

	_, err := NewRealmRepository(dc).Add(context.Background(), testRealm("EXAMPLE.COM"))
	assert.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = dc.Commit(ctx)
	assert.ErrorIs(err, appsrv.ErrPersistence)

	found, err := dc.Realms().Contains(context.Background(), "EXAMPLE.COM")
	assert.NoError(err)
	assert.False(found)
}

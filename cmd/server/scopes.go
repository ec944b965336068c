package main

import (
	"github.com/buzkaaclicker/appsrv"
	"github.com/buzkaaclicker/appsrv/inmem"
	"github.com/buzkaaclicker/appsrv/persistent"
	"github.com/buzkaaclicker/appsrv/profile"
	"github.com/tidwall/buntdb"
	"github.com/uptrace/bun"
)

// One data context per request, sharing only the db handle.

func pgScopes(db *bun.DB) appsrv.ScopeFactory {
	return func() appsrv.Scope {
		dc := persistent.NewDataContext(db)
		realms := persistent.NewRealmRepository(dc)
		profiles := persistent.NewUserProfileRepository(dc)
		return appsrv.Scope{
			Context:      dc,
			Realms:       realms,
			UserProfiles: profiles,
			Profiles:     &profile.Service{UserProfiles: profiles, Realms: realms},
		}
	}
}

func buntScopes(db *buntdb.DB) appsrv.ScopeFactory {
	return func() appsrv.Scope {
		dc := inmem.NewDataContext(db)
		realms := inmem.NewRealmRepository(dc)
		profiles := inmem.NewUserProfileRepository(dc)
		return appsrv.Scope{
			Context:      dc,
			Realms:       realms,
			UserProfiles: profiles,
			Profiles:     &profile.Service{UserProfiles: profiles, Realms: realms},
		}
	}
}

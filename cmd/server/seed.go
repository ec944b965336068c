package main

import (
	"context"
	"fmt"
	"time"

	"github.com/buzkaaclicker/appsrv"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Namespace of the deterministic seed profile ids.
var seedNamespace = uuid.MustParse("6f1c3c52-4a0e-4d5e-9f7e-2b7f5f3f7c10")

var seedRealms = []appsrv.Realm{
	{
		Name:                     "MYREALM.COM",
		MaximumTicketLifetime:    7200 * time.Second,
		MaximumRenewableLifetime: 6000 * time.Second,
		MinimumTicketLifetime:    5400 * time.Second,
	},
	{
		Name:                     "EXAMPLE.COM",
		MaximumTicketLifetime:    7200 * time.Second,
		MaximumRenewableLifetime: 6000 * time.Second,
		MinimumTicketLifetime:    5400 * time.Second,
	},
	{
		Name:                     "EXAMPLE.ORG",
		MaximumTicketLifetime:    7200 * time.Second,
		MaximumRenewableLifetime: 6000 * time.Second,
		MinimumTicketLifetime:    5400 * time.Second,
	},
}

func seedProfiles() []appsrv.UserProfile {
	profile := func(username, name string, birthday time.Time) appsrv.UserProfile {
		return appsrv.UserProfile{
			Id:        uuid.NewSHA1(seedNamespace, []byte("MYREALM.COM/"+username)).String(),
			RealmName: "MYREALM.COM",
			Username:  username,
			Email:     username + "@gmail.com",
			Firstname: name,
			Lastname:  name,
			Birthday:  birthday,
		}
	}
	return []appsrv.UserProfile{
		profile("admin", "Admin", time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)),
		profile("user", "User", time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC)),
	}
}

// seed stores the sample realms and profiles that are not stored yet.
func seed(ctx context.Context, scope appsrv.Scope) error {
	for _, realm := range seedRealms {
		found, err := scope.Context.Realms().Contains(ctx, realm.Name)
		if err != nil {
			return fmt.Errorf("seed realm lookup: %w", err)
		}
		if found {
			continue
		}
		if _, err := scope.Realms.Add(ctx, realm); err != nil {
			return fmt.Errorf("seed realm: %w", err)
		}
	}
	for _, profile := range seedProfiles() {
		found, err := scope.Context.UserProfiles().Contains(ctx, profile.Id)
		if err != nil {
			return fmt.Errorf("seed user profile lookup: %w", err)
		}
		if found {
			continue
		}
		if _, err := scope.UserProfiles.Add(ctx, profile); err != nil {
			return fmt.Errorf("seed user profile: %w", err)
		}
	}

	n, err := scope.Context.Commit(ctx)
	if err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}
	logrus.WithField("rows", n).Infoln("Seed data stored.")
	return nil
}

package appsrv

import (
	"fmt"
	"time"
)

// Realm field names usable in queries.
const (
	RealmFieldName = "name"
)

// Administrative domain together with its ticket lifetime policy.
type Realm struct {
	Name                     string        `json:"name"`
	MaximumTicketLifetime    time.Duration `json:"maximum_ticket_lifetime"`
	MaximumRenewableLifetime time.Duration `json:"maximum_renewable_lifetime"`
	MinimumTicketLifetime    time.Duration `json:"minimum_ticket_lifetime"`
	CreatedAt                time.Time     `json:"created_at"`
	UpdatedAt                time.Time     `json:"updated_at"`
	Version                  int64         `json:"version"`
}

var _ Entity[Realm] = Realm{}

func (r Realm) EntityKey() string {
	return r.Name
}

func (r Realm) EntityVersion() int64 {
	return r.Version
}

func (r Realm) Validate() error {
	switch {
	case r.Name == "":
		return fmt.Errorf("%w: realm name is required", ErrValidation)
	case len(r.Name) > 255:
		return fmt.Errorf("%w: realm name longer than 255 bytes", ErrValidation)
	case r.MaximumTicketLifetime < 0 || r.MaximumRenewableLifetime < 0 || r.MinimumTicketLifetime < 0:
		return fmt.Errorf("%w: realm %q has a negative ticket lifetime", ErrValidation, r.Name)
	case r.MinimumTicketLifetime > r.MaximumTicketLifetime:
		return fmt.Errorf("%w: realm %q minimum ticket lifetime exceeds maximum", ErrValidation, r.Name)
	}
	return nil
}

func (r Realm) Stamped(now time.Time, version int64) Realm {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	r.Version = version
	return r
}

type RealmRepository interface {
	Repository[Realm]
}

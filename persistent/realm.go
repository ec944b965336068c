package persistent

import (
	"time"

	"github.com/buzkaaclicker/appsrv"
	"github.com/uptrace/bun"
)

// Db model of a realm. Lifetimes are stored in seconds.
type Realm struct {
	bun.BaseModel `bun:"table:realm"`

	Name                     string    `bun:",pk,type:varchar(255)"`
	MaximumTicketLifetime    int64     `bun:",notnull"`
	MaximumRenewableLifetime int64     `bun:",notnull"`
	MinimumTicketLifetime    int64     `bun:",notnull"`
	CreatedAt                time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt                time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	Version                  int64     `bun:",notnull,default:1"`
}

func (r *Realm) toDomain() appsrv.Realm {
	return appsrv.Realm{
		Name:                     r.Name,
		MaximumTicketLifetime:    time.Duration(r.MaximumTicketLifetime) * time.Second,
		MaximumRenewableLifetime: time.Duration(r.MaximumRenewableLifetime) * time.Second,
		MinimumTicketLifetime:    time.Duration(r.MinimumTicketLifetime) * time.Second,
		CreatedAt:                r.CreatedAt,
		UpdatedAt:                r.UpdatedAt,
		Version:                  r.Version,
	}
}

func (r *Realm) fromDomain(d appsrv.Realm) {
	*r = Realm{
		Name:                     d.Name,
		MaximumTicketLifetime:    int64(d.MaximumTicketLifetime / time.Second),
		MaximumRenewableLifetime: int64(d.MaximumRenewableLifetime / time.Second),
		MinimumTicketLifetime:    int64(d.MinimumTicketLifetime / time.Second),
		CreatedAt:                d.CreatedAt,
		UpdatedAt:                d.UpdatedAt,
		Version:                  d.Version,
	}
}

type RealmRepository struct {
	Repository[appsrv.Realm, Realm, *Realm]
}

var _ appsrv.RealmRepository = RealmRepository{}

func NewRealmRepository(dc *DataContext) RealmRepository {
	return RealmRepository{newRepository[appsrv.Realm, Realm, *Realm](dc, "realm", appsrv.RealmFieldName)}
}

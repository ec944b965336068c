package persistent

import (
	"time"

	"github.com/buzkaaclicker/appsrv"
	"github.com/uptrace/bun"
)

type UserProfile struct {
	bun.BaseModel `bun:"table:user_profile"`

	Id        string    `bun:",pk,type:varchar(64)"`
	RealmName string    `bun:",notnull,type:varchar(255),unique:realm_username"`
	Username  string    `bun:",notnull,type:varchar(255),unique:realm_username"`
	Email     string    `bun:",notnull,type:varchar(255)"`
	Firstname string    `bun:",notnull,type:varchar(255)"`
	Lastname  string    `bun:",notnull,type:varchar(255)"`
	Birthday  time.Time `bun:",nullzero,type:date"`
	CreatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	Version   int64     `bun:",notnull,default:1"`
}

func (p *UserProfile) toDomain() appsrv.UserProfile {
	return appsrv.UserProfile{
		Id:        p.Id,
		RealmName: p.RealmName,
		Username:  p.Username,
		Email:     p.Email,
		Firstname: p.Firstname,
		Lastname:  p.Lastname,
		Birthday:  p.Birthday,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
		Version:   p.Version,
	}
}

func (p *UserProfile) fromDomain(d appsrv.UserProfile) {
	*p = UserProfile{
		Id:        d.Id,
		RealmName: d.RealmName,
		Username:  d.Username,
		Email:     d.Email,
		Firstname: d.Firstname,
		Lastname:  d.Lastname,
		Birthday:  d.Birthday,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
		Version:   d.Version,
	}
}

type UserProfileRepository struct {
	Repository[appsrv.UserProfile, UserProfile, *UserProfile]
}

var _ appsrv.UserProfileRepository = UserProfileRepository{}

func NewUserProfileRepository(dc *DataContext) UserProfileRepository {
	return UserProfileRepository{
		newRepository[appsrv.UserProfile, UserProfile, *UserProfile](dc, "user_profile", appsrv.UserProfileFieldId),
	}
}

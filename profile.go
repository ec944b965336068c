package appsrv

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserProfile field names usable in queries.
const (
	UserProfileFieldId       = "id"
	UserProfileFieldRealm    = "realm_name"
	UserProfileFieldUsername = "username"
	UserProfileFieldEmail    = "email"
)

type UserProfile struct {
	Id        string    `json:"id"`
	RealmName string    `json:"realm_name"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Firstname string    `json:"firstname"`
	Lastname  string    `json:"lastname"`
	Birthday  time.Time `json:"birthday"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

var _ Entity[UserProfile] = UserProfile{}

func (p UserProfile) EntityKey() string {
	return p.Id
}

func (p UserProfile) EntityVersion() int64 {
	return p.Version
}

func (p UserProfile) Validate() error {
	switch {
	case p.RealmName == "":
		return fmt.Errorf("%w: user profile realm is required", ErrValidation)
	case p.Username == "":
		return fmt.Errorf("%w: user profile username is required", ErrValidation)
	case !strings.Contains(p.Email, "@"):
		return fmt.Errorf("%w: user profile email %q is invalid", ErrValidation, p.Email)
	}
	return nil
}

// Stamped assigns a random id to profiles created without one.
func (p UserProfile) Stamped(now time.Time, version int64) UserProfile {
	if p.Id == "" {
		p.Id = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	p.Version = version
	return p
}

type UserProfileRepository interface {
	Repository[UserProfile]
}

type RealmDto struct {
	Name                     string `json:"name"`
	MaximumTicketLifetime    int64  `json:"maximumTicketLifetime"`
	MaximumRenewableLifetime int64  `json:"maximumRenewableLifetime"`
	MinimumTicketLifetime    int64  `json:"minimumTicketLifetime"`
}

// Read-only projection of a user profile joined with its realm. Lifetimes are in seconds.
type UserProfileDto struct {
	Id        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Firstname string    `json:"firstname"`
	Lastname  string    `json:"lastname"`
	Birthday  *string   `json:"birthday"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Realm     RealmDto  `json:"realm"`
}

// NewUserProfileDto requires the realm the profile references, that is
// r.Name == p.RealmName. Callers resolve it first.
func NewUserProfileDto(p UserProfile, r Realm) UserProfileDto {
	var birthday *string
	if !p.Birthday.IsZero() {
		b := p.Birthday.Format("2006-01-02")
		birthday = &b
	}
	return UserProfileDto{
		Id:        p.Id,
		Username:  p.Username,
		Email:     p.Email,
		Firstname: p.Firstname,
		Lastname:  p.Lastname,
		Birthday:  birthday,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
		Realm: RealmDto{
			Name:                     r.Name,
			MaximumTicketLifetime:    int64(r.MaximumTicketLifetime / time.Second),
			MaximumRenewableLifetime: int64(r.MaximumRenewableLifetime / time.Second),
			MinimumTicketLifetime:    int64(r.MinimumTicketLifetime / time.Second),
		},
	}
}

type UserProfileService interface {
	ByUserId(ctx context.Context, userId string) (UserProfileDto, error)
}

package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/buzkaaclicker/appsrv"
	"github.com/sirupsen/logrus"
)

// Service joins a user profile with the realm it belongs to.
type Service struct {
	UserProfiles appsrv.Repository[appsrv.UserProfile]
	Realms       appsrv.Repository[appsrv.Realm]
}

var _ appsrv.UserProfileService = (*Service)(nil)

func (s *Service) ByUserId(ctx context.Context, userId string) (appsrv.UserProfileDto, error) {
	if userId == "" {
		return appsrv.UserProfileDto{}, fmt.Errorf("empty user id: %w", appsrv.ErrValidation)
	}

	profile, err := s.UserProfiles.Entities().ByKey(ctx, userId)
	if err != nil {
		return appsrv.UserProfileDto{}, fmt.Errorf("user profile: %w", err)
	}

	realm, err := s.Realms.Entities().ByKey(ctx, profile.RealmName)
	if errors.Is(err, appsrv.ErrNotFound) {
		logrus.WithFields(logrus.Fields{
			"user_id":    userId,
			"realm_name": profile.RealmName,
		}).Errorln("User profile references missing realm.")
		return appsrv.UserProfileDto{}, fmt.Errorf("realm %q of user profile %q: %w",
			profile.RealmName, userId, appsrv.ErrDataIntegrity)
	} else if err != nil {
		return appsrv.UserProfileDto{}, fmt.Errorf("realm of user profile: %w", err)
	}
	if realm.Name != profile.RealmName {
		logrus.WithFields(logrus.Fields{
			"user_id":    userId,
			"realm_name": profile.RealmName,
			"resolved":   realm.Name,
		}).Errorln("Realm lookup resolved another realm.")
		return appsrv.UserProfileDto{}, fmt.Errorf("realm %q resolved as %q: %w",
			profile.RealmName, realm.Name, appsrv.ErrDataIntegrity)
	}

	return appsrv.NewUserProfileDto(profile, realm), nil
}

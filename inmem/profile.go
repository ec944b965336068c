package inmem

import "github.com/buzkaaclicker/appsrv"

type UserProfileRepository struct {
	Repository[appsrv.UserProfile]
}

var _ appsrv.UserProfileRepository = UserProfileRepository{}

func NewUserProfileRepository(dc *DataContext) UserProfileRepository {
	return UserProfileRepository{newRepository[appsrv.UserProfile](dc, userProfileTable, appsrv.UserProfileFieldId)}
}

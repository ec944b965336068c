package inmem

import "github.com/buzkaaclicker/appsrv"

type RealmRepository struct {
	Repository[appsrv.Realm]
}

var _ appsrv.RealmRepository = RealmRepository{}

func NewRealmRepository(dc *DataContext) RealmRepository {
	return RealmRepository{newRepository[appsrv.Realm](dc, realmTable, appsrv.RealmFieldName)}
}

// Package inmem implements the data context and repositories on buntdb.
// With path ":memory:" nothing touches the disk.
package inmem

import (
	"fmt"
	"time"

	"github.com/buzkaaclicker/appsrv"
	"github.com/tidwall/buntdb"
)

const (
	realmTable       = "realm"
	userProfileTable = "user_profile"
)

type jsonIndex struct {
	name  string
	table string
	field string
}

var jsonIndexes = []jsonIndex{
	{name: "user_profile_realm_name", table: userProfileTable, field: appsrv.UserProfileFieldRealm},
}

// Field combinations unique within a table besides the key.
type uniqueConstraint struct {
	table  string
	fields []string
}

var uniqueConstraints = []uniqueConstraint{
	{table: userProfileTable, fields: []string{appsrv.UserProfileFieldRealm, appsrv.UserProfileFieldUsername}},
}

// A field of table holding keys of target. Referenced rows cannot be deleted.
type reference struct {
	table  string
	field  string
	target string
}

var references = []reference{
	{table: userProfileTable, field: appsrv.UserProfileFieldRealm, target: realmTable},
}

func Open(path string) (*buntdb.DB, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open buntdb: %w", err)
	}
	for _, idx := range jsonIndexes {
		err := db.CreateIndex(idx.name, idx.table+":*", buntdb.IndexJSONCaseSensitive(idx.field))
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return db, nil
}

func indexFor(table string, field string) (string, bool) {
	for _, idx := range jsonIndexes {
		if idx.table == table && idx.field == field {
			return idx.name, true
		}
	}
	return "", false
}

func recordKey(table string, key string) string {
	return table + ":" + key
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

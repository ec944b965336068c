package persistent

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	_ "github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
)

func PgOpen(ctx context.Context, pgDsn string, verbose bool) (*bun.DB, error) {
	sqldb, err := sql.Open("pg", pgDsn)
	if err != nil {
		return nil, fmt.Errorf("open pg database: %w", err)
	}
	if err := sqldb.PingContext(ctx); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("ping pg database: %w", err)
	}

	db := bun.NewDB(sqldb, pgdialect.New())
	if verbose {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db, nil
}

// Running integration tests requires real pg db instance, but we
// don't have enough time to start db for every test so we will start db once
// and then pass datasource to as many tests as we want.

func PgOpenTest(ctx context.Context) *bun.DB {
	db, err := PgOpen(ctx, TestEnvDsn(), os.Getenv("DB_VERBOSE") == "true")
	if err != nil {
		logrus.WithError(err).Fatalln("Could not open test database.")
	}
	return db
}

func TestEnvDsn() string {
	return os.Getenv("PGDB_DSN")
}

func SetTestEnvDsn(dsn string) {
	os.Setenv("PGDB_DSN", dsn)
}

func CreateSchema(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*Realm)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create realm table: %w", err)
	}

	_, err = db.NewCreateTable().
		Model((*UserProfile)(nil)).
		IfNotExists().
		ForeignKey(`("realm_name") REFERENCES "realm" ("name") ON DELETE RESTRICT`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create user_profile table: %w", err)
	}

	_, err = db.NewCreateIndex().
		Model((*UserProfile)(nil)).
		Index("user_profile_realm_name_idx").
		Column("realm_name").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create user_profile realm index: %w", err)
	}
	logrus.Debugln("Database schema ready.")
	return nil
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

package databasetest

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/schoolvax/vax-app/vax/database"
	"github.com/schoolvax/vax-app/vax/testUtils"
)

var dsnPattern = regexp.MustCompile(`(?P<conn>postgres(?:ql)?\:\/\/\S+\:\S+\@\S+\:\d+\/)(?P<dbname>[^?]*)(?P<options>\?.*)?`)

// CreateDatabase creates a fresh database next to the one referenced by DATABASE_URL
// and migrates it. It returns the sql.DB connection, pgx pool connection, and the created database name.
// Tests calling it are skipped when DATABASE_URL is unset.
func CreateDatabase(t *testing.T, migrationPath string) (*sql.DB, *pgxpool.Pool, string) {
	testUtils.RequireDatabaseURL(t)
	ctx := context.Background()

	cfg, err := database.LoadConfig()
	require.NoError(t, err)
	dsn := cfg.DatabaseURL

	db, err := database.Connect(ctx, cfg)
	require.NoError(t, err)

	newDBName := strings.ReplaceAll(fmt.Sprintf("%s_%s", dbName(dsn), uuid.NewString()), "-", "_")
	newDSN := dsnPattern.ReplaceAllString(dsn, fmt.Sprintf("${conn}%s${options}", newDBName))

	// CREATE DATABASE ... WITH TEMPLATE requires that there are no active
	// connections to the template, so build the tables with migrate instead.
	_, err = db.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE %s", newDBName))
	require.NoError(t, err)
	migrateUp(t, migrationPath, newDSN)

	newCfg := *cfg
	newCfg.DatabaseURL = newDSN

	newDB, err := database.Connect(ctx, &newCfg)
	require.NoError(t, err)

	newPool, err := database.ConnectPool(ctx, &newCfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		newPool.Close()
		require.NoError(t, newDB.Close())
		_, err := db.ExecContext(ctx, "DROP DATABASE "+newDBName)
		require.NoError(t, err)
		require.NoError(t, db.Close())
	})

	return newDB, newPool, newDBName
}

func dbName(dsn string) string {
	return dsnPattern.FindStringSubmatch(dsn)[2]
}

func migrateUp(t *testing.T, migrationPath, dsn string) {
	m, err := migrate.New("file://"+migrationPath, withMigrationsTable(dsn, "migrations_vax"))
	require.NoError(t, err)
	require.NoError(t, m.Up())
	srcErr, dbErr := m.Close()
	require.NoError(t, srcErr)
	require.NoError(t, dbErr)
}

func withMigrationsTable(dsn, table string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%sx-migrations-table=%s", dsn, sep, table)
}

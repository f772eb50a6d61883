package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrationNames_Ordered(t *testing.T) {
	names, err := MigrationNames()
	require.NoError(t, err)
	require.Equal(t, []string{"001_schema.sql", "002_organisation_email_from.sql"}, names)
}

// Migrate re-applies every file on start, so each DDL statement must be guarded.
func TestMigrations_Idempotent(t *testing.T) {
	names, err := MigrationNames()
	require.NoError(t, err)
	for _, name := range names {
		sql, err := migrationsFS.ReadFile("migrations/" + name)
		require.NoError(t, err)
		for _, line := range strings.Split(string(sql), "\n") {
			upper := strings.ToUpper(line)
			for _, stmt := range []string{"CREATE TABLE", "CREATE INDEX", "ADD COLUMN"} {
				if strings.Contains(upper, stmt) {
					require.Contains(t, upper, "IF NOT EXISTS", "%s: %q", name, line)
				}
			}
		}
	}
}

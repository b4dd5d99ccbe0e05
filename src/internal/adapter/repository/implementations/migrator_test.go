package implementations

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMigration(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestLoadMigrationsSortsSQLFiles(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "0002_seed.sql", "INSERT INTO x VALUES (1);")
	writeMigration(t, dir, "0001_init.SQL", "CREATE TABLE x (id INT);")
	writeMigration(t, dir, "README.md", "notes")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "0003_dir.sql"), 0o700))

	migrations, err := loadMigrations(dir)
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, "0001_init.SQL", migrations[0].version)
	assert.Equal(t, "0002_seed.sql", migrations[1].version)
	assert.Len(t, migrations[0].checksum, 64)
	assert.NotEqual(t, migrations[0].checksum, migrations[1].checksum)
}

func TestLoadMigrationsMissingDir(t *testing.T) {
	_, err := loadMigrations(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestPendingMigrations(t *testing.T) {
	all := []migration{
		{version: "0001_init.sql", checksum: "aaa"},
		{version: "0002_seed.sql", checksum: "bbb"},
		{version: "0003_loans.sql", checksum: "ccc"},
	}

	pending, err := pendingMigrations(all, map[string]string{"0001_init.sql": "aaa", "0002_seed.sql": ""})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "0003_loans.sql", pending[0].version)

	_, err = pendingMigrations(all, map[string]string{"0001_init.sql": "changed"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0001_init.sql")
}

func TestShippedMigrationsLoad(t *testing.T) {
	migrations, err := loadMigrations(filepath.Join("..", "..", "..", "..", "migrations"))
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, "0001_init.sql", migrations[0].version)
}

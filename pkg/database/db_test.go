package database_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/krishimitra/pkg/database"
)

func TestOpenSQLiteCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "instance", "farmers.db")

	db, err := database.Open("sqlite", dsn)
	require.NoError(t, err)
	require.NoError(t, database.Ping(db))

	_, err = os.Stat(filepath.Join(dir, "instance"))
	assert.NoError(t, err)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := database.Open("oracle", "x")
	assert.ErrorContains(t, err, `unsupported DB_DRIVER "oracle"`)
}

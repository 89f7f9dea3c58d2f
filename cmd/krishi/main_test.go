package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/krishimitra/config"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestRouteList(t *testing.T) {
	out := run(t, "route:list")
	assert.Contains(t, out, "/submit-organic-form")
	assert.Contains(t, out, "listing.organic")
	assert.Contains(t, out, "/uploads/{filename}")
}

func TestMigrateLifecycle(t *testing.T) {
	config.Set("DB_DRIVER", "sqlite")
	config.Set("DATABASE_DSN", filepath.Join(t.TempDir(), "farmers.db"))

	out := run(t, "migrate")
	assert.Contains(t, out, "Migrated: 20260301000000_create_farmers_table")
	assert.Contains(t, out, "Migrated: 20260301000001_create_listings_table")

	assert.Contains(t, run(t, "migrate"), "Nothing to migrate.")
	assert.Contains(t, run(t, "migrate:status"), "Yes")

	out = run(t, "seed")
	assert.Contains(t, out, "Running seeders")

	out = run(t, "migrate:rollback")
	assert.Contains(t, out, "Rolled back: 20260301000001_create_listings_table")
	assert.Contains(t, run(t, "migrate:status"), "No")
}

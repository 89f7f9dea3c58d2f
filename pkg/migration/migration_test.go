package migration_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/krishimitra/pkg/database"
	"github.com/shashiranjanraj/krishimitra/pkg/migration"
)

type widget struct {
	ID   uint
	Name string
}

type createWidgets struct{}

func (createWidgets) Up(db *gorm.DB) error   { return db.AutoMigrate(&widget{}) }
func (createWidgets) Down(db *gorm.DB) error { return db.Migrator().DropTable(&widget{}) }

func TestRunStatusRollback(t *testing.T) {
	migration.Register("29990101000000_create_widgets", createWidgets{})

	db, err := database.Open("sqlite", ":memory:")
	require.NoError(t, err)
	r := migration.New(db)

	applied, err := r.Run()
	require.NoError(t, err)
	assert.Contains(t, applied, "29990101000000_create_widgets")
	assert.True(t, db.Migrator().HasTable(&widget{}))

	again, err := r.Run()
	require.NoError(t, err)
	assert.Empty(t, again)

	rows, err := r.Status()
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	last := rows[len(rows)-1]
	assert.Equal(t, "29990101000000_create_widgets", last.Name)
	assert.True(t, last.Ran)
	assert.Equal(t, 1, last.Batch)

	undone, err := r.Rollback()
	require.NoError(t, err)
	assert.Contains(t, undone, "29990101000000_create_widgets")
	assert.False(t, db.Migrator().HasTable(&widget{}))
}

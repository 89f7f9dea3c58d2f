package migrations

import (
	"gorm.io/gorm"

	"github.com/shashiranjanraj/krishimitra/app/models"
	"github.com/shashiranjanraj/krishimitra/pkg/migration"
)

func init() {
	migration.Register("20260301000000_create_farmers_table", &CreateFarmersTable{})
	migration.Register("20260301000001_create_listings_table", &CreateListingsTable{})
}

// -------- 0001: farmers --------

type CreateFarmersTable struct{}

func (m *CreateFarmersTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Farmer{})
}

func (m *CreateFarmersTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("farmers")
}

// -------- 0002: listings --------

type CreateListingsTable struct{}

func (m *CreateListingsTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(&models.Listing{})
}

func (m *CreateListingsTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("listings")
}

package seeders

import (
	"gorm.io/gorm"

	"github.com/shashiranjanraj/krishimitra/app/models"
	"github.com/shashiranjanraj/krishimitra/config"
	"github.com/shashiranjanraj/krishimitra/pkg/auth"
)

func init() {
	Register("demo_farmer", SeedDemoFarmer)
}

// SeedDemoFarmer creates demo@krishimitra.local (password SEED_PASSWORD,
// default "demo1234") unless it already exists.
func SeedDemoFarmer(db *gorm.DB) error {
	hash, err := auth.NewHasher(auth.DefaultParams).Hash(config.Get("SEED_PASSWORD", "demo1234"))
	if err != nil {
		return err
	}
	f := models.Farmer{Name: "Demo Farmer", Email: "demo@krishimitra.local", Password: hash}
	return db.Where(models.Farmer{Email: f.Email}).FirstOrCreate(&f).Error
}

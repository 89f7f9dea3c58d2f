package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/krishimitra/app/models"
	"github.com/shashiranjanraj/krishimitra/pkg/metrics"
)

// FarmerRepository persists farmer accounts.
type FarmerRepository struct {
	db *gorm.DB
}

func NewFarmerRepository(db *gorm.DB) *FarmerRepository {
	return &FarmerRepository{db: db}
}

// FindByEmail looks a farmer up by exact email.
func (r *FarmerRepository) FindByEmail(ctx context.Context, email string) (*models.Farmer, error) {
	defer metrics.ObserveDBQuery("select", time.Now())

	var f models.Farmer
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&f).Error; err != nil {
		return nil, classify("find farmer by email", err)
	}
	return &f, nil
}

func (r *FarmerRepository) FindByID(ctx context.Context, id uint) (*models.Farmer, error) {
	defer metrics.ObserveDBQuery("select", time.Now())

	var f models.Farmer
	if err := r.db.WithContext(ctx).First(&f, id).Error; err != nil {
		return nil, classify("find farmer", err)
	}
	return &f, nil
}

// ExistsByEmail reports whether an account uses email.
func (r *FarmerRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	defer metrics.ObserveDBQuery("select", time.Now())

	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Farmer{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return false, classify("count farmers", err)
	}
	return n > 0, nil
}

// Create inserts f and fills its ID. A taken email yields ErrDuplicate.
func (r *FarmerRepository) Create(ctx context.Context, f *models.Farmer) error {
	defer metrics.ObserveDBQuery("insert", time.Now())

	return classify("create farmer", r.db.WithContext(ctx).Create(f).Error)
}

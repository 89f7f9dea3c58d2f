package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/krishimitra/app/models"
	"github.com/shashiranjanraj/krishimitra/pkg/metrics"
)

// ListingRepository persists sale listings. Rows are append-only apart from
// the notified_at stamp.
type ListingRepository struct {
	db *gorm.DB
}

func NewListingRepository(db *gorm.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

func (r *ListingRepository) Create(ctx context.Context, l *models.Listing) error {
	defer metrics.ObserveDBQuery("insert", time.Now())

	return classify("create listing", r.db.WithContext(ctx).Create(l).Error)
}

// CountByFarmer returns how many listings farmerID submitted.
func (r *ListingRepository) CountByFarmer(ctx context.Context, farmerID uint) (int64, error) {
	defer metrics.ObserveDBQuery("select", time.Now())

	var n int64
	err := r.db.WithContext(ctx).Model(&models.Listing{}).Where("farmer_id = ?", farmerID).Count(&n).Error
	if err != nil {
		return 0, classify("count farmer listings", err)
	}
	return n, nil
}

// MarkNotified stamps the time the merchant mail was accepted.
func (r *ListingRepository) MarkNotified(ctx context.Context, id uint, at time.Time) error {
	defer metrics.ObserveDBQuery("update", time.Now())

	res := r.db.WithContext(ctx).Model(&models.Listing{}).Where("id = ?", id).Update("notified_at", at)
	if res.Error != nil {
		return classify("mark listing notified", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

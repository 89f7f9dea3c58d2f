package controllers

import (
	"context"

	"github.com/shashiranjanraj/krishimitra/app/models"
	"github.com/shashiranjanraj/krishimitra/pkg/ctx"
)

type farmerFinder interface {
	FindByID(ctx context.Context, id uint) (*models.Farmer, error)
}

type listingCounter interface {
	CountByFarmer(ctx context.Context, farmerID uint) (int64, error)
}

// DashboardController renders the signed-in landing page.
type DashboardController struct {
	farmers  farmerFinder
	listings listingCounter
}

func NewDashboardController(farmers farmerFinder, listings listingCounter) *DashboardController {
	return &DashboardController{farmers: farmers, listings: listings}
}

type dashboardData struct {
	Name     string `json:"name"`
	Listings int64  `json:"listings"`
}

// Show greets the farmer by name with their listing count. A lookup failure
// still renders the page, just without the summary.
func (d *DashboardController) Show(c *ctx.Context) {
	id, _ := c.Identity()

	f, err := d.farmers.FindByID(c.Context(), id.FarmerID)
	if err != nil {
		c.Logger().Warn("dashboard: farmer lookup failed", "error", err)
		c.Page("dashboard", nil)
		return
	}
	n, err := d.listings.CountByFarmer(c.Context(), id.FarmerID)
	if err != nil {
		c.Logger().Warn("dashboard: listing count failed", "error", err)
		c.Page("dashboard", nil)
		return
	}
	c.Page("dashboard", dashboardData{Name: f.Name, Listings: n})
}

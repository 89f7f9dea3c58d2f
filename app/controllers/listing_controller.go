package controllers

import (
	"errors"

	"github.com/shashiranjanraj/krishimitra/app/models"
	"github.com/shashiranjanraj/krishimitra/app/services"
	"github.com/shashiranjanraj/krishimitra/pkg/ctx"
	"github.com/shashiranjanraj/krishimitra/pkg/session"
)

// ListingController accepts organic and chemical sale forms.
type ListingController struct {
	listings *services.ListingService
}

func NewListingController(listings *services.ListingService) *ListingController {
	return &ListingController{listings: listings}
}

// Submit returns the handler for one listing kind. Validation and storage
// errors go back to that kind's form; a stored listing goes to the
// dashboard, with a warning when the merchant was not reached.
func (l *ListingController) Submit(kind models.ListingKind) ctx.HandlerFunc {
	formPage := "/" + string(kind) + "-form"

	return func(c *ctx.Context) {
		id, _ := c.Identity()
		form := services.ListingForm{
			FarmerName:    c.PostForm("farmer_name"),
			FarmerEmail:   c.PostForm("farmer_email"),
			ProductName:   c.PostForm("product_name"),
			Address:       c.PostForm("address"),
			ContactNumber: c.PostForm("contact_number"),
			MarketPrice:   c.PostForm("market_price"),
			Quantity:      c.PostForm("quantity"),
			Quality:       c.PostForm("quality"),
			ExpectedPrice: c.PostForm("expected_price"),
			MerchantEmail: c.PostForm("merchant_email"),
			Message:       c.PostForm("message"),
		}

		_, err := l.listings.Submit(c.Context(), id.FarmerID, kind, form)
		var (
			verr *services.ValidationError
			nerr *services.NotifyError
		)
		switch {
		case err == nil:
			c.FlashRedirect(session.FlashSuccess, msgListingSubmitted, "/dashboard")
		case errors.As(err, &verr):
			c.FlashRedirect(session.FlashError, verr.Message, formPage)
		case errors.As(err, &nerr):
			c.FlashRedirect(session.FlashWarning, msgNotifyFailed, "/dashboard")
		default:
			c.Logger().Error("listing: submit failed", "kind", string(kind), "error", err)
			c.FlashRedirect(session.FlashError, msgGeneric, formPage)
		}
	}
}

package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shashiranjanraj/krishimitra/app/models"
	"github.com/shashiranjanraj/krishimitra/pkg/logger"
	"github.com/shashiranjanraj/krishimitra/pkg/metrics"
	"github.com/shashiranjanraj/krishimitra/pkg/validate"
)

// ListingStore is the persistence ListingService needs.
type ListingStore interface {
	Create(ctx context.Context, l *models.Listing) error
	MarkNotified(ctx context.Context, id uint, at time.Time) error
}

// MerchantNotifier delivers a stored listing to its merchant.
type MerchantNotifier interface {
	NotifyMerchant(ctx context.Context, l *models.Listing) error
}

// ListingForm is the raw sale form as posted. Message is optional.
type ListingForm struct {
	FarmerName    string `json:"farmer_name"    validate:"notblank"`
	FarmerEmail   string `json:"farmer_email"   validate:"notblank,email"`
	ProductName   string `json:"product_name"   validate:"notblank"`
	Address       string `json:"address"        validate:"notblank"`
	ContactNumber string `json:"contact_number" validate:"notblank,phone"`
	MarketPrice   string `json:"market_price"   validate:"notblank,price"`
	Quantity      string `json:"quantity"       validate:"notblank"`
	Quality       string `json:"quality"        validate:"notblank"`
	ExpectedPrice string `json:"expected_price" validate:"notblank,price"`
	MerchantEmail string `json:"merchant_email" validate:"notblank,email"`
	Message       string `json:"message"`
}

func (f ListingForm) trimmed() ListingForm {
	return ListingForm{
		FarmerName:    strings.TrimSpace(f.FarmerName),
		FarmerEmail:   strings.TrimSpace(f.FarmerEmail),
		ProductName:   strings.TrimSpace(f.ProductName),
		Address:       strings.TrimSpace(f.Address),
		ContactNumber: strings.TrimSpace(f.ContactNumber),
		MarketPrice:   strings.TrimSpace(f.MarketPrice),
		Quantity:      strings.TrimSpace(f.Quantity),
		Quality:       strings.TrimSpace(f.Quality),
		ExpectedPrice: strings.TrimSpace(f.ExpectedPrice),
		MerchantEmail: strings.TrimSpace(f.MerchantEmail),
		Message:       strings.TrimSpace(f.Message),
	}
}

// listingChecks is the order the user sees shape errors in once every
// required field is present.
var listingChecks = []fieldMessage{
	{"farmer_email", MsgInvalidEmail},
	{"contact_number", MsgInvalidPhone},
	{"merchant_email", MsgInvalidMerchant},
	{"market_price", MsgNegativePrice},
	{"expected_price", MsgNegativePrice},
}

type ListingService struct {
	listings ListingStore
	notifier MerchantNotifier
	now      func() time.Time
}

func NewListingService(listings ListingStore, notifier MerchantNotifier) *ListingService {
	return &ListingService{listings: listings, notifier: notifier, now: time.Now}
}

// Submit validates form, stores it as a listing of kind and mails the
// merchant. The store happens first: when the mail fails the listing stays
// stored and a *NotifyError carrying it is returned.
func (s *ListingService) Submit(ctx context.Context, farmerID uint, kind models.ListingKind, form ListingForm) (*models.Listing, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown listing kind %q", kind)
	}
	outcome := func(o string) { metrics.ListingSubmissions.WithLabelValues(string(kind), o).Inc() }

	l, err := buildListing(farmerID, kind, form)
	if err != nil {
		outcome("invalid")
		return nil, err
	}

	if err := s.listings.Create(ctx, l); err != nil {
		outcome("error")
		return nil, err
	}
	log := logger.WithCtx(ctx).With("listing_id", l.ID, "kind", string(kind))

	if err := s.notifier.NotifyMerchant(ctx, l); err != nil {
		outcome("notify_failed")
		metrics.NotifyFailures.Inc()
		log.Error("listing: merchant not notified", "error", err)
		return l, &NotifyError{Listing: l, Err: err}
	}

	at := s.now()
	if err := s.listings.MarkNotified(ctx, l.ID, at); err != nil {
		log.Warn("listing: could not stamp notified_at", "error", err)
	} else {
		l.NotifiedAt = &at
	}

	outcome("stored")
	log.Info("listing: submitted")
	return l, nil
}

// buildListing trims and validates form: missing fields first, then farmer
// email, phone, merchant email and prices.
func buildListing(farmerID uint, kind models.ListingKind, form ListingForm) (*models.Listing, error) {
	f := form.trimmed()
	if err := formError(validate.Check(f), listingChecks); err != nil {
		return nil, err
	}
	market, _ := validate.Price(f.MarketPrice)
	expected, _ := validate.Price(f.ExpectedPrice)

	return &models.Listing{
		Kind:          kind,
		FarmerID:      farmerID,
		FarmerName:    f.FarmerName,
		FarmerEmail:   f.FarmerEmail,
		ProductName:   f.ProductName,
		Address:       f.Address,
		ContactNumber: f.ContactNumber,
		MarketPrice:   market,
		Quantity:      f.Quantity,
		Quality:       f.Quality,
		ExpectedPrice: expected,
		MerchantEmail: f.MerchantEmail,
		Message:       f.Message,
	}, nil
}

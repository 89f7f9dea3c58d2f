package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/krishimitra/app/models"
	"github.com/shashiranjanraj/krishimitra/app/notifications"
	"github.com/shashiranjanraj/krishimitra/app/repositories"
	"github.com/shashiranjanraj/krishimitra/app/services"
	"github.com/shashiranjanraj/krishimitra/pkg/metrics"
)

func validForm() services.ListingForm {
	return services.ListingForm{
		FarmerName: "Asha", FarmerEmail: "asha@x.com", ProductName: "Rice",
		Address: "Village Road", ContactNumber: "9876543210", MarketPrice: "40",
		Quantity: "50kg", Quality: "A", ExpectedPrice: "45", MerchantEmail: "m@y.com",
	}
}

func assignID(id uint) func(mock.Arguments) {
	return func(args mock.Arguments) { args.Get(1).(*models.Listing).ID = id }
}

func TestSubmitStoresThenNotifies(t *testing.T) {
	listings, notifier := &mockListings{}, &mockNotifier{}
	listings.On("Create", mock.Anything, mock.Anything).Return(nil).Run(assignID(7)).Once()
	listings.On("MarkNotified", mock.Anything, uint(7), mock.Anything).Return(nil).Once()
	notifier.On("NotifyMerchant", mock.Anything, mock.MatchedBy(func(l *models.Listing) bool {
		return l.MerchantEmail == "m@y.com" && l.Kind == models.KindOrganic
	})).Return(nil).Once()

	l, err := services.NewListingService(listings, notifier).
		Submit(context.Background(), 1, models.KindOrganic, validForm())
	require.NoError(t, err)

	assert.Equal(t, uint(7), l.ID)
	assert.Equal(t, uint(1), l.FarmerID)
	assert.Equal(t, 40.0, l.MarketPrice)
	assert.NotNil(t, l.NotifiedAt)
	listings.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestSubmitValidation(t *testing.T) {
	cases := []struct {
		name string
		edit func(*services.ListingForm)
		want string
	}{
		{"missing product", func(f *services.ListingForm) { f.ProductName = "" }, services.MsgRequiredFields},
		{"blank quality", func(f *services.ListingForm) { f.Quality = "   " }, services.MsgRequiredFields},
		{"bad farmer email", func(f *services.ListingForm) { f.FarmerEmail = "asha" }, services.MsgInvalidEmail},
		{"short phone", func(f *services.ListingForm) { f.ContactNumber = "98765" }, services.MsgInvalidPhone},
		{"dashed phone", func(f *services.ListingForm) { f.ContactNumber = "987-654-3210" }, services.MsgInvalidPhone},
		{"bad merchant email", func(f *services.ListingForm) { f.MerchantEmail = "m@y" }, services.MsgInvalidMerchant},
		{"negative price", func(f *services.ListingForm) { f.MarketPrice = "-1" }, services.MsgNegativePrice},
		{"non-numeric price", func(f *services.ListingForm) { f.ExpectedPrice = "cheap" }, services.MsgNegativePrice},
		{"NaN price", func(f *services.ListingForm) { f.ExpectedPrice = "NaN" }, services.MsgNegativePrice},
		{"header in farmer email", func(f *services.ListingForm) {
			f.FarmerEmail = "a@b.c\r\nX-Injected: yes"
		}, services.MsgInvalidEmail},
		{"header in merchant email", func(f *services.ListingForm) {
			f.MerchantEmail = "m@y.com\nBcc: evil@x.com"
		}, services.MsgInvalidMerchant},
		{"blank beats bad email", func(f *services.ListingForm) {
			f.FarmerEmail, f.Quantity = "asha", ""
		}, services.MsgRequiredFields},
		{"phone before merchant", func(f *services.ListingForm) {
			f.ContactNumber, f.MerchantEmail = "1", "m@y"
		}, services.MsgInvalidPhone},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			listings, notifier := &mockListings{}, &mockNotifier{}
			form := validForm()
			tc.edit(&form)

			_, err := services.NewListingService(listings, notifier).
				Submit(context.Background(), 1, models.KindChemical, form)

			var verr *services.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.want, verr.Message)
			listings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			notifier.AssertNotCalled(t, "NotifyMerchant", mock.Anything, mock.Anything)
		})
	}
}

func TestSubmitTrimsFields(t *testing.T) {
	listings, notifier := &mockListings{}, &mockNotifier{}
	listings.On("Create", mock.Anything, mock.Anything).Return(nil).Run(assignID(2))
	listings.On("MarkNotified", mock.Anything, uint(2), mock.Anything).Return(nil)
	notifier.On("NotifyMerchant", mock.Anything, mock.Anything).Return(nil)

	form := validForm()
	form.FarmerEmail, form.ContactNumber, form.ExpectedPrice = " asha@x.com ", "9876543210\t", " 45.5 "
	l, err := services.NewListingService(listings, notifier).Submit(context.Background(), 1, models.KindOrganic, form)
	require.NoError(t, err)
	assert.Equal(t, "asha@x.com", l.FarmerEmail)
	assert.Equal(t, "9876543210", l.ContactNumber)
	assert.Equal(t, 45.5, l.ExpectedPrice)
}

func TestSubmitMessageIsOptional(t *testing.T) {
	listings, notifier := &mockListings{}, &mockNotifier{}
	listings.On("Create", mock.Anything, mock.Anything).Return(nil).Run(assignID(1))
	listings.On("MarkNotified", mock.Anything, uint(1), mock.Anything).Return(nil)
	notifier.On("NotifyMerchant", mock.Anything, mock.Anything).Return(nil)

	form := validForm()
	form.Message = ""
	_, err := services.NewListingService(listings, notifier).Submit(context.Background(), 1, models.KindOrganic, form)
	assert.NoError(t, err)
}

func TestSubmitNotifyFailureKeepsListing(t *testing.T) {
	listings, notifier := &mockListings{}, &mockNotifier{}
	listings.On("Create", mock.Anything, mock.Anything).Return(nil).Run(assignID(9))
	notifier.On("NotifyMerchant", mock.Anything, mock.Anything).
		Return(fmt.Errorf("%w: relay down", notifications.ErrDeliveryFailed)).Once()

	before := testutil.ToFloat64(metrics.NotifyFailures)
	l, err := services.NewListingService(listings, notifier).
		Submit(context.Background(), 1, models.KindOrganic, validForm())

	var nerr *services.NotifyError
	require.ErrorAs(t, err, &nerr)
	assert.ErrorIs(t, err, notifications.ErrDeliveryFailed)
	assert.Equal(t, uint(9), nerr.Listing.ID)
	assert.Same(t, l, nerr.Listing)
	assert.Nil(t, l.NotifiedAt)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.NotifyFailures))
	listings.AssertNotCalled(t, "MarkNotified", mock.Anything, mock.Anything, mock.Anything)
	notifier.AssertNumberOfCalls(t, "NotifyMerchant", 1)
}

func TestSubmitStorageFailureSkipsNotify(t *testing.T) {
	listings, notifier := &mockListings{}, &mockNotifier{}
	listings.On("Create", mock.Anything, mock.Anything).
		Return(fmt.Errorf("create listing: %w", repositories.ErrStorageUnavailable))

	_, err := services.NewListingService(listings, notifier).
		Submit(context.Background(), 1, models.KindOrganic, validForm())
	assert.ErrorIs(t, err, services.ErrStorageUnavailable)
	notifier.AssertNotCalled(t, "NotifyMerchant", mock.Anything, mock.Anything)
}

func TestSubmitStampFailureIsNotFatal(t *testing.T) {
	listings, notifier := &mockListings{}, &mockNotifier{}
	listings.On("Create", mock.Anything, mock.Anything).Return(nil).Run(assignID(2))
	listings.On("MarkNotified", mock.Anything, uint(2), mock.Anything).Return(errors.New("locked"))
	notifier.On("NotifyMerchant", mock.Anything, mock.Anything).Return(nil)

	l, err := services.NewListingService(listings, notifier).
		Submit(context.Background(), 1, models.KindOrganic, validForm())
	require.NoError(t, err)
	assert.Nil(t, l.NotifiedAt)
}

func TestSubmitUnknownKind(t *testing.T) {
	_, err := services.NewListingService(&mockListings{}, &mockNotifier{}).
		Submit(context.Background(), 1, models.ListingKind("hydroponic"), validForm())
	assert.Error(t, err)
}

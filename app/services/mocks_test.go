package services_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/shashiranjanraj/krishimitra/app/models"
	"github.com/shashiranjanraj/krishimitra/pkg/vision"
)

type mockFarmers struct{ mock.Mock }

func (m *mockFarmers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockFarmers) FindByEmail(ctx context.Context, email string) (*models.Farmer, error) {
	args := m.Called(ctx, email)
	f, _ := args.Get(0).(*models.Farmer)
	return f, args.Error(1)
}

func (m *mockFarmers) Create(ctx context.Context, f *models.Farmer) error {
	return m.Called(ctx, f).Error(0)
}

type mockListings struct{ mock.Mock }

func (m *mockListings) Create(ctx context.Context, l *models.Listing) error {
	return m.Called(ctx, l).Error(0)
}

func (m *mockListings) MarkNotified(ctx context.Context, id uint, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) NotifyMerchant(ctx context.Context, l *models.Listing) error {
	return m.Called(ctx, l).Error(0)
}

type mockAsker struct{ mock.Mock }

func (m *mockAsker) Ask(ctx context.Context, prompt string) string {
	return m.Called(ctx, prompt).String(0)
}

type mockDetector struct{ mock.Mock }

func (m *mockDetector) Detect(ctx context.Context, img []byte) ([]vision.Detection, error) {
	args := m.Called(ctx, img)
	d, _ := args.Get(0).([]vision.Detection)
	return d, args.Error(1)
}

// Package services holds the application's use cases. Controllers call
// services; services call repositories, gateways and notifiers through the
// small interfaces declared next to each service.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shashiranjanraj/krishimitra/app/models"
	"github.com/shashiranjanraj/krishimitra/app/repositories"
	"github.com/shashiranjanraj/krishimitra/pkg/auth"
	"github.com/shashiranjanraj/krishimitra/pkg/logger"
	"github.com/shashiranjanraj/krishimitra/pkg/metrics"
	"github.com/shashiranjanraj/krishimitra/pkg/validate"
)

// FarmerStore is the persistence AuthService needs.
type FarmerStore interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	FindByEmail(ctx context.Context, email string) (*models.Farmer, error)
	Create(ctx context.Context, f *models.Farmer) error
}

type AuthService struct {
	farmers FarmerStore
	hasher  *auth.Hasher
}

func NewAuthService(farmers FarmerStore, hasher *auth.Hasher) *AuthService {
	return &AuthService{farmers: farmers, hasher: hasher}
}

type registration struct {
	Name     string `json:"name"     validate:"notblank"`
	Email    string `json:"email"    validate:"notblank,email"`
	Password string `json:"password" validate:"notblank"`
}

var registrationChecks = []fieldMessage{{"email", MsgInvalidEmail}}

// Register creates a farmer account. Emails are matched exactly.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*models.Farmer, error) {
	form := registration{Name: name, Email: email, Password: password}
	if err := formError(validate.Check(form), registrationChecks); err != nil {
		return nil, err
	}

	taken, err := s.farmers.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicateEmail
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	f := &models.Farmer{Name: strings.TrimSpace(name), Email: email, Password: hash}
	if err := s.farmers.Create(ctx, f); err != nil {
		// Lost a race with a concurrent registration.
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	logger.WithCtx(ctx).Info("auth: farmer registered", "farmer_id", f.ID)
	return f, nil
}

// Authenticate returns the farmer for email and password. An unknown email
// still pays for one hash so both failures take the same time.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.Farmer, error) {
	f, err := s.farmers.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		s.hasher.Burn(password)
		metrics.Logins.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidCredentials
	case err != nil:
		metrics.Logins.WithLabelValues("error").Inc()
		return nil, err
	}

	if !s.hasher.Verify(f.Password, password) {
		metrics.Logins.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidCredentials
	}

	metrics.Logins.WithLabelValues("ok").Inc()
	return f, nil
}

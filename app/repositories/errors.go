package repositories

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound means the row does not exist.
	ErrNotFound = errors.New("repositories: not found")
	// ErrDuplicate means a unique index rejected the write.
	ErrDuplicate = errors.New("repositories: duplicate")
	// ErrStorageUnavailable wraps every other database fault.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// classify maps a gorm error onto the package sentinels.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case isDuplicate(err):
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w: %v", op, ErrStorageUnavailable, err)
	}
}

// isDuplicate also matches raw driver messages for dialects without an
// error translator.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate")
}

package registry

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/muzzleid/muzzle-go/internal/errors"
)

// translateError maps driver level failures onto the error taxonomy so
// callers can distinguish "fix your input" from "try again later".
func translateError(err error, operation, key string) error {
	builder := errors.New(err).
		Component("registry").
		Context("operation", operation)
	if key != "" {
		builder = builder.Context("key", key)
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errors.Newf("subject %s not found", key).
			Component("registry").
			Category(errors.CategoryNotFound).
			Context("operation", operation).
			Context("key", key).
			Build()
	case errors.Is(err, gorm.ErrDuplicatedKey), isDuplicateKey(err):
		return errors.Newf("subject %s already exists: %w", key, err).
			Component("registry").
			Category(errors.CategoryConflict).
			Context("operation", operation).
			Context("key", key).
			Build()
	case errors.Is(err, context.DeadlineExceeded):
		return builder.Category(errors.CategoryTimeout).Build()
	case errors.Is(err, context.Canceled):
		return builder.Category(errors.CategoryTimeout).Build()
	default:
		return builder.Category(errors.CategoryDatabase).Build()
	}
}

// isDuplicateKey sniffs driver specific unique constraint messages for
// backends where GORM error translation is unavailable.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // SQLite
		strings.Contains(msg, "Duplicate entry") // MySQL 1062
}

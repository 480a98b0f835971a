package db

import (
	"strings"

	pkgerrors "github.com/farmlink/farmlink-backend/pkg/errors"
)

// IsUniqueViolation covers both postgres (23505) and the sqlite driver used in tests.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if pkgerrors.IsUniqueViolation(err) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}

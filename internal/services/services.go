package services

import (
	"errors"
	"fmt"

	"github.com/yukikurage/crm-pipeline-api/internal/authz"
	"gorm.io/gorm"
)

// authorize re-checks a permission against the request's AuthContext. The
// HTTP layer has normally checked it already; services never trust that.
func authorize(auth *authz.AuthContext, permission authz.Permission) error {
	if auth == nil {
		return authz.ErrUnauthenticated
	}
	if !auth.Can(permission) {
		return authz.ErrForbidden
	}
	return nil
}

// lookupError maps a not-found error to notFound and wraps anything else.
func lookupError(err error, notFound error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return fmt.Errorf("failed to find %s: %w", what, err)
}

// uniqueUint64 removes duplicate values from a slice of uint64
func uniqueUint64(values []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(values))
	result := make([]uint64, 0, len(values))

	for _, v := range values {
		if _, exists := seen[v]; exists {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}

	return result
}

// Package domain provides shared domain-level errors for Ensemble.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrUnauthorized indicates a missing, malformed, or unverifiable credential.
// It is terminal; callers must not retry with the same credential.
var ErrUnauthorized = errors.New("unauthorized")

// ErrAccountBlocked indicates the caller's member record is blocked by the
// tenant. The credential itself is valid; session continuation is denied.
var ErrAccountBlocked = errors.New("account blocked")

// SuspendedError is returned when a valid credential resolves into a tenant
// that has been suspended by a platform operator. It must stay distinguishable
// from ErrUnauthorized so clients can render a suspension notice instead of a
// login redirect.
type SuspendedError struct {
	TenantID string
	Reason   string
}

func (e *SuspendedError) Error() string {
	if e.Reason == "" {
		return "tenant " + e.TenantID + " is suspended"
	}
	return fmt.Sprintf("tenant %s is suspended: %s", e.TenantID, e.Reason)
}

// IsSuspended reports whether err wraps a SuspendedError.
func IsSuspended(err error) bool {
	var se *SuspendedError
	return errors.As(err, &se)
}

// ForbiddenError is returned when a resolved identity lacks the role or
// module permission an operation requires. It carries the missing permission
// and the caller's own permission set so client UIs can explain the denial.
type ForbiddenError struct {
	Reason             string
	RequiredPermission string
	YourPermissions    []string
}

func (e *ForbiddenError) Error() string {
	if e.RequiredPermission != "" {
		return fmt.Sprintf("forbidden: requires %q, have [%s]",
			e.RequiredPermission, strings.Join(e.YourPermissions, ", "))
	}
	if e.Reason != "" {
		return "forbidden: " + e.Reason
	}
	return "forbidden"
}

// Forbidden builds a ForbiddenError with a plain reason.
func Forbidden(reason string) *ForbiddenError {
	return &ForbiddenError{Reason: reason}
}

package application

import (
	"errors"
	"maps"
	"slices"
	"strings"
)

// Sentinel errors shared by the services. Handlers translate them into
// status codes, so wrap them with %w rather than replacing them.
var (
	ErrUnauthorized       = errors.New("application: unauthorized")
	ErrNotFound           = errors.New("application: not found")
	ErrAlreadyExists      = errors.New("application: already exists")
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	ErrWorkplaceInUse     = errors.New("application: workplace in use")
	ErrShiftTaken         = errors.New("application: shift already taken")
	ErrNotSignedUp        = errors.New("application: shift has no occupant")
	ErrProtectedUser      = errors.New("application: protected user")
	ErrPartialFailure     = errors.New("application: partial failure")
)

// errorKinds is checked in order; ErrPartialFailure comes first because a
// batch error also wraps the per-item causes.
var errorKinds = []struct {
	target error
	kind   string
}{
	{ErrPartialFailure, "partial_failure"},
	{ErrUnauthorized, "unauthorized"},
	{ErrNotFound, "not_found"},
	{ErrAlreadyExists, "already_exists"},
	{ErrInvalidCredentials, "invalid_credentials"},
	{ErrWorkplaceInUse, "workplace_in_use"},
	{ErrShiftTaken, "shift_taken"},
	{ErrNotSignedUp, "not_signed_up"},
	{ErrProtectedUser, "protected_user"},
}

// ErrorKind returns a stable label for err, used as the error_kind log field.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, candidate := range errorKinds {
		if errors.Is(err, candidate.target) {
			return candidate.kind
		}
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}
	return "unexpected"
}

// ValidationError maps request field names to a message describing what is
// wrong with the submitted value.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error lists the offending fields in name order.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	fields := v.Fields()
	if len(fields) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(fields, ", ")
}

// Fields returns the rejected field names sorted.
func (v *ValidationError) Fields() []string {
	if v == nil || len(v.FieldErrors) == 0 {
		return nil
	}
	return slices.Sorted(maps.Keys(v.FieldErrors))
}

func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add overwrites an earlier message for the same field.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

func (v *ValidationError) merge(other *ValidationError) {
	if other == nil {
		return
	}
	for _, field := range other.Fields() {
		v.add(field, other.FieldErrors[field])
	}
}

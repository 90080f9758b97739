package profile

import "errors"

// Domain errors for the profile package.
var (
	// ErrProfileNotFound is returned when a profile name is not in the catalog.
	ErrProfileNotFound = errors.New("profile: not found")

	// ErrInvalidProfile is returned when a catalog entry fails validation.
	ErrInvalidProfile = errors.New("profile: invalid")

	// ErrDuplicateProfile is returned when two entries share a name.
	ErrDuplicateProfile = errors.New("profile: duplicate name")

	// ErrDuplicateSelector is returned when two entries share a selector.
	ErrDuplicateSelector = errors.New("profile: duplicate selector")
)

package domain

import "errors"

var (
	// ErrMissingRequiredTag is returned before any mutation when the group
	// or every zone tag is absent.
	ErrMissingRequiredTag = errors.New("missing required tag")

	// ErrExhaustedAllocation is returned when no slot is free in the
	// allocation range.
	ErrExhaustedAllocation = errors.New("no free slot number")

	// ErrZoneResolution is returned when a DNS zone name cannot be resolved
	// to a provider zone.
	ErrZoneResolution = errors.New("zone resolution failed")

	// ErrTagWrite wraps failures of the inventory tag mutation.
	ErrTagWrite = errors.New("tag write failed")

	// ErrRecordMutation wraps failures of a DNS record delete or create.
	ErrRecordMutation = errors.New("record mutation failed")
)

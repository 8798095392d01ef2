package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors reported by the inventory model and its stores. Callers
// match them with errors.Is; wrapped forms add the offending ids.
var (
	// ErrDuplicateInstance is returned when an instance is already present in a collection.
	ErrDuplicateInstance = errors.New("duplicate instance")
	// ErrTypeMismatch is returned when a collection receives a handle that does not belong to its inventory.
	ErrTypeMismatch = errors.New("instance handle type mismatch")
	// ErrUnsupportedItemKind is returned for catalog operations on kinds without a URL scheme.
	ErrUnsupportedItemKind = errors.New("unsupported item kind")
	// ErrMalformedSourceReference is returned when a source URL cannot be resolved to an identity.
	ErrMalformedSourceReference = errors.New("malformed source reference")
	// ErrInvalidItem is returned when identity fields are missing or invalid.
	ErrInvalidItem = errors.New("invalid item")
	// ErrInvalidBatch is returned when a merge request does not carry exactly one instance.
	ErrInvalidBatch = errors.New("invalid batch")
	// ErrContainmentCycle is returned when an instance would be nested under an instance of its own item.
	ErrContainmentCycle = errors.New("containment cycle")
	// ErrNotFound is returned when a referenced item, instance or snapshot does not exist.
	ErrNotFound = errors.New("not found")
	// ErrMalformedRecord is returned when a serialized record stream violates its format.
	ErrMalformedRecord = errors.New("malformed record")
)

// ItemError scopes a failure to one catalog item.
type ItemError struct {
	Op  string
	ID  string
	Err error
}

func (e *ItemError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// NotFound wraps ErrNotFound with the missing entity and id.
func NotFound(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
}

package appsrv

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrValidation   = errors.New("validation failed")
	// Stale write: the entity was modified since the caller read it.
	ErrConcurrency = errors.New("concurrent modification")
	// A stored reference points to a missing entity. Server fault, never a client error.
	ErrDataIntegrity = errors.New("data integrity violation")
	ErrPersistence   = errors.New("persistence failure")
)

var errorKinds = []error{ErrNotFound, ErrDuplicateKey, ErrValidation, ErrConcurrency, ErrDataIntegrity, ErrPersistence}

// AsPersistenceError marks err as ErrPersistence unless it already carries
// one of the error kinds above. The original error stays in the chain.
func AsPersistenceError(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range errorKinds {
		if errors.Is(err, kind) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

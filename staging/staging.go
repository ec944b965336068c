// Package staging keeps the ordered list of mutations a data context has
// accepted but not yet committed. Backends supply the transaction type.
package staging

import (
	"context"
	"fmt"
	"sync"
)

type Kind int

const (
	Insert Kind = iota + 1
	Update
	Delete
)

func (k Kind) String() string {
	switch k {
	case Insert:
		return "insert"
	case Update:
		return "update"
	case Delete:
		return "delete"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

type Change[Tx any] struct {
	Kind  Kind
	Table string
	Key   string
	// Apply performs the mutation inside tx and returns the affected row count.
	Apply func(ctx context.Context, tx Tx) (int64, error)
}

type Set[Tx any] struct {
	changes []Change[Tx]
	mutex   sync.Mutex
}

func (s *Set[Tx]) Stage(c Change[Tx]) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.changes = append(s.changes, c)
}

func (s *Set[Tx]) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.changes)
}

// Drain empties the set and returns what was staged, oldest first.
func (s *Set[Tx]) Drain() []Change[Tx] {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	changes := s.changes
	s.changes = nil
	return changes
}

// Last returns the kind of the most recent change staged for the key.
func (s *Set[Tx]) Last(table string, key string) (Kind, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for i := len(s.changes) - 1; i >= 0; i-- {
		c := s.changes[i]
		if c.Table == table && c.Key == key {
			return c.Kind, true
		}
	}
	return 0, false
}

// Visible reports whether the key exists once the staged changes are applied
// on top of a store that does (stored) or does not hold it.
func (s *Set[Tx]) Visible(table string, key string, stored bool) bool {
	kind, ok := s.Last(table, key)
	if !ok {
		return stored
	}
	return kind != Delete
}

// Apply runs changes in order and stops at the first failure, leaving
// rollback to the caller's transaction.
func Apply[Tx any](ctx context.Context, tx Tx, changes []Change[Tx]) (int64, error) {
	var affected int64
	for _, c := range changes {
		if err := ctx.Err(); err != nil {
			return affected, err
		}
		n, err := c.Apply(ctx, tx)
		if err != nil {
			return affected, fmt.Errorf("%s %s %q: %w", c.Kind, c.Table, c.Key, err)
		}
		affected += n
	}
	return affected, nil
}

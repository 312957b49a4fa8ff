package ir

import (
	"fmt"
)

type (
	// Tid is the unique identifier of a term: a human-readable name
	// plus the address the term originates from.
	// Synthetic terms produced by splitting carry a non-zero Index.
	//
	// Tids are the sole cross-reference mechanism between graph nodes:
	// jump and call targets are Tids resolved through the owning Program,
	// never pointers, so the naturally cyclic CFG has tree-shaped ownership.
	Tid struct {
		ID      string `json:"id"`
		Address string `json:"address"`
		Index   int    `json:"index,omitempty"`
	}

	// Term pairs a Tid with the node it identifies.
	// The structural parent owns the Term: a Blk owns its Def and Jmp
	// terms, a Sub its Blk terms, a Program its Sub terms.
	Term[T any] struct {
		Tid  Tid `json:"tid"`
		Term T   `json:"term"`
	}
)

// NewTid makes a Tid from a name and the originating address.
func NewTid(id, address string) Tid {
	return Tid{ID: id, Address: address}
}

// WithIndex derives the Tid of the i-th synthetic term split off this one.
func (t Tid) WithIndex(i int) Tid {
	t.Index = i

	return t
}

func (t Tid) String() string {
	if t.Index != 0 {
		return fmt.Sprintf("%s@%s.%d", t.ID, t.Address, t.Index)
	}

	return fmt.Sprintf("%s@%s", t.ID, t.Address)
}

// NewTerm wraps a node with its identity.
func NewTerm[T any](tid Tid, x T) Term[T] {
	return Term[T]{Tid: tid, Term: x}
}

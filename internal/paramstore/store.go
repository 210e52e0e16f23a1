// Package paramstore publishes the learning loop's ParameterState to
// belief/decision readers via read-copy/swap-on-write (spec.md §5 "Shared
// resources": the learning loop is the sole writer, belief/decision are
// read-only, and a reader mid-decision never observes a torn update).
package paramstore

import (
	"sync/atomic"

	"github.com/themirrorplatform/trading-bot-sub000/internal/learning"
)

// Store is the read-copy/swap-on-write publication point. Publish installs
// an entirely new snapshot; Current returns whatever snapshot was most
// recently published, never a partially-written one.
type Store interface {
	Publish(state *learning.ParameterState)
	Current() *learning.ParameterState
}

// LocalStore is an in-process Store backed by an atomic pointer swap,
// grounded on data/cache/cache.go's in-memory default (no network hop
// needed when the learning loop and readers share a process).
type LocalStore struct {
	current atomic.Pointer[learning.ParameterState]
}

// NewLocalStore seeds the store with an initial snapshot.
func NewLocalStore(initial *learning.ParameterState) *LocalStore {
	s := &LocalStore{}
	s.current.Store(initial)
	return s
}

func (s *LocalStore) Publish(state *learning.ParameterState) { s.current.Store(state) }
func (s *LocalStore) Current() *learning.ParameterState      { return s.current.Load() }

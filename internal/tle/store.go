package tle

import (
	"sync/atomic"
	"time"
)

// Store holds the default dataset served by /api/tle and used by tle runs
// that name neither inline text nor a group. Readers never block a reload.
type Store struct {
	dataset atomic.Pointer[Dataset]
}

func NewStore() *Store {
	return &Store{}
}

// Get returns the loaded dataset, or nil before the first Set.
func (s *Store) Get() *Dataset {
	return s.dataset.Load()
}

func (s *Store) Set(ds *Dataset) {
	s.dataset.Store(ds)
}

// Ready reports whether the dataset can seed a run: loaded, with at least
// one decoded element set.
func (s *Store) Ready() bool {
	ds := s.dataset.Load()
	return ds != nil && len(ds.Batch.Decoded) > 0
}

// Age is how long before now the dataset was loaded. ok is false while the
// store is empty.
func (s *Store) Age(now time.Time) (age time.Duration, ok bool) {
	ds := s.dataset.Load()
	if ds == nil {
		return 0, false
	}
	return now.Sub(ds.LoadedAt), true
}

package primes

import (
	"sync"

	"primegap/pkg/common"
)

// Source produces an increasing, finite sequence of primes. Every call to Iterate
// starts again from the first prime.
type Source interface {
	Iterate() Iterator
}

type Iterator interface {
	Next() (common.PrimeObservation, bool)
}

// TrialDivision finds primes lazily by trial division against the primes it has
// already found. Found primes live in a shared Table, so a restarted iterator
// replays the cache before doing new work.
type TrialDivision struct {
	limit int
	table *Table
	mu    sync.Mutex // serialises extension
}

func NewTrialDivision(limit int) *TrialDivision {
	return &TrialDivision{
		limit: limit,
		table: NewTable(32),
	}
}

func (s *TrialDivision) Limit() int    { return s.limit }
func (s *TrialDivision) Table() *Table { return s.table }

func (s *TrialDivision) Iterate() Iterator {
	return &trialIterator{src: s}
}

// extend returns the prime following after, computing it if no iterator has yet.
func (s *TrialDivision) extend(after int64) Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item, ok := s.table.NextAfter(after); ok {
		return item
	}

	c := after + 1
	if c <= 2 {
		item, _ := s.table.Append(2)
		return item
	}
	if c%2 == 0 {
		c++
	}
	for !s.isPrime(c) {
		c += 2
	}
	item, _ := s.table.Append(c)
	return item
}

// isPrime relies on the table holding every prime below c.
func (s *TrialDivision) isPrime(c int64) bool {
	prime := true
	s.table.Ascend(func(p Item) bool {
		if p.Value*p.Value > c {
			return false
		}
		if c%p.Value == 0 {
			prime = false
			return false
		}
		return true
	})
	return prime
}

type trialIterator struct {
	src  *TrialDivision
	last int64
	n    int
}

func (it *trialIterator) Next() (common.PrimeObservation, bool) {
	if it.n >= it.src.limit {
		return common.PrimeObservation{}, false
	}
	item, ok := it.src.table.NextAfter(it.last)
	if !ok {
		item = it.src.extend(it.last)
	}
	it.last = item.Value
	it.n = item.Index
	return common.PrimeObservation{Index: item.Index, Value: item.Value}, true
}

// List serves a fixed, already sorted sequence of primes. Index is position + 1.
type List []int64

func (l List) Iterate() Iterator {
	return &listIterator{values: l}
}

type listIterator struct {
	values []int64
	pos    int
}

func (it *listIterator) Next() (common.PrimeObservation, bool) {
	if it.pos >= len(it.values) {
		return common.PrimeObservation{}, false
	}
	it.pos++
	return common.PrimeObservation{Index: it.pos, Value: it.values[it.pos-1]}, true
}

// Collect drains an iterator. Only meant for finite sources.
func Collect(it Iterator) []common.PrimeObservation {
	var out []common.PrimeObservation
	for {
		obs, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, obs)
	}
}

// Take limits src to its first n primes.
func Take(src Source, n int) Source {
	return take{src: src, n: n}
}

type take struct {
	src Source
	n   int
}

func (t take) Iterate() Iterator {
	return &takeIterator{it: t.src.Iterate(), left: t.n}
}

type takeIterator struct {
	it   Iterator
	left int
}

func (t *takeIterator) Next() (common.PrimeObservation, bool) {
	if t.left <= 0 {
		return common.PrimeObservation{}, false
	}
	t.left--
	return t.it.Next()
}

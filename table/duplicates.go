// Copyright 2024, Hamza Mbareche and the MAGs-IBD contributors.

package table

import (
	"github.com/willf/bloom"
)

// dupFilter remembers the row identifiers written so far using a
// Bloom filter, so memory stays bounded however many tables are
// appended.  A positive test means the identifier was probably seen
// before.
type dupFilter struct {
	bf *bloom.BloomFilter
}

func newDupFilter(capacity uint) *dupFilter {

	if capacity == 0 {
		capacity = 1000 * 1000
	}
	m, k := bloom.EstimateParameters(capacity, 0.001)

	return &dupFilter{bf: bloom.New(m, k)}
}

// seen reports whether id was probably added before, and adds it.
func (d *dupFilter) seen(id string) bool {
	return d.bf.TestAndAdd([]byte(id))
}

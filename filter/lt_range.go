package filter

import (
	"github.com/hedeqiang/tonwatch/event"
)

// LTRangeFilter matches transactions within a logical time range (inclusive).
type LTRangeFilter struct {
	from *uint64
	to   *uint64
}

// NewLTRangeFilter creates a filter matching transactions within [from, to].
// A nil value means unbounded on that side.
func NewLTRangeFilter(from, to *uint64) *LTRangeFilter {
	return &LTRangeFilter{from: from, to: to}
}

// Match reports whether the transaction's logical time falls within the range.
func (f *LTRangeFilter) Match(tx event.Transaction) bool {
	if f.from != nil && tx.LT < *f.from {
		return false
	}
	if f.to != nil && tx.LT > *f.to {
		return false
	}
	return true
}

package filter

import (
	"github.com/hedeqiang/tonwatch/event"
)

// CompositeMode determines how child filters are combined.
type CompositeMode int

const (
	// And requires all child filters to match.
	And CompositeMode = iota
	// Or requires at least one child filter to match.
	Or
)

// CompositeFilter combines filters with AND or OR logic. An empty
// composite matches everything.
type CompositeFilter struct {
	mode    CompositeMode
	filters []Filter
}

// AllOf matches transactions accepted by every filter.
func AllOf(filters ...Filter) *CompositeFilter {
	return &CompositeFilter{mode: And, filters: filters}
}

// AnyOf matches transactions accepted by at least one filter.
func AnyOf(filters ...Filter) *CompositeFilter {
	return &CompositeFilter{mode: Or, filters: filters}
}

// Not inverts f.
func Not(f Filter) Filter {
	return Func(func(tx event.Transaction) bool {
		return !f.Match(tx)
	})
}

// Match applies the composite logic to the transaction.
func (f *CompositeFilter) Match(tx event.Transaction) bool {
	if len(f.filters) == 0 {
		return true
	}
	// AND short-circuits on the first miss, OR on the first hit.
	want := f.mode == Or
	for _, child := range f.filters {
		if child.Match(tx) == want {
			return want
		}
	}
	return !want
}

// Package filter provides transaction filtering capabilities.
package filter

import (
	"github.com/hedeqiang/tonwatch/event"
)

// Filter determines whether a transaction matches a given criteria.
type Filter interface {
	Match(tx event.Transaction) bool
}

// Func adapts a plain function to Filter.
type Func func(tx event.Transaction) bool

// Match calls f.
func (f Func) Match(tx event.Transaction) bool {
	return f(tx)
}

package filter

import (
	"github.com/xssnick/tonutils-go/address"

	"github.com/hedeqiang/tonwatch/event"
)

// addrSet keys addresses by their raw form so that bounceable and
// non-bounceable spellings of one account compare equal.
type addrSet map[string]struct{}

func newAddrSet(addrs []*address.Address) addrSet {
	m := make(addrSet, len(addrs))
	for _, a := range addrs {
		if a != nil {
			m[a.StringRaw()] = struct{}{}
		}
	}
	return m
}

func (s addrSet) has(a *address.Address) bool {
	if a == nil {
		return false
	}
	_, ok := s[a.StringRaw()]
	return ok
}

// AccountFilter matches transactions of any of the given accounts.
type AccountFilter struct {
	accounts addrSet
}

// NewAccountFilter creates a filter matching transactions of addrs.
func NewAccountFilter(addrs ...*address.Address) *AccountFilter {
	return &AccountFilter{accounts: newAddrSet(addrs)}
}

// Match reports whether the transaction's account is in the filter set.
func (f *AccountFilter) Match(tx event.Transaction) bool {
	return f.accounts.has(tx.Account)
}

// SourceFilter matches transactions whose inbound internal message was
// sent by any of the given addresses.
type SourceFilter struct {
	sources addrSet
}

// NewSourceFilter creates a filter matching inbound messages from addrs.
func NewSourceFilter(addrs ...*address.Address) *SourceFilter {
	return &SourceFilter{sources: newAddrSet(addrs)}
}

// Match reports whether the inbound message source is in the filter set.
func (f *SourceFilter) Match(tx event.Transaction) bool {
	if !tx.IsInternalIn() {
		return false
	}
	return f.sources.has(tx.In.Source)
}

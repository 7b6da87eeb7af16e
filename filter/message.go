package filter

import (
	"math/big"

	"github.com/hedeqiang/tonwatch/event"
)

// InboundValueFilter matches internal inbound messages carrying at least a
// minimum value in nanotons.
type InboundValueFilter struct {
	min *big.Int
}

// NewInboundValueFilter creates a filter for inbound values >= min.
func NewInboundValueFilter(min *big.Int) *InboundValueFilter {
	if min == nil {
		min = new(big.Int)
	}
	return &InboundValueFilter{min: min}
}

// Match reports whether the inbound value reaches the minimum.
func (f *InboundValueFilter) Match(tx event.Transaction) bool {
	if !tx.IsInternalIn() || tx.In.Value == nil {
		return false
	}
	return tx.In.Value.Cmp(f.min) >= 0
}

// NoOutbound matches transactions that produced no outbound messages.
func NoOutbound() Filter {
	return Func(func(tx event.Transaction) bool {
		return tx.OutMsgCount == 0
	})
}

// OpFilter matches inbound messages whose body starts with one of the
// given 32-bit op codes.
type OpFilter struct {
	ops map[uint64]struct{}
}

// NewOpFilter creates a filter matching op codes.
func NewOpFilter(ops ...uint32) *OpFilter {
	m := make(map[uint64]struct{}, len(ops))
	for _, op := range ops {
		m[uint64(op)] = struct{}{}
	}
	return &OpFilter{ops: m}
}

// Match reports whether the inbound body's op code is in the filter set.
func (f *OpFilter) Match(tx event.Transaction) bool {
	if tx.In == nil || tx.In.Body == nil {
		return false
	}
	op, err := tx.In.Body.BeginParse().LoadUInt(32)
	if err != nil {
		return false
	}
	_, ok := f.ops[op]
	return ok
}

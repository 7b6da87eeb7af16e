package tonwatch

import (
	"errors"

	"github.com/hedeqiang/tonwatch/chain"
	"github.com/hedeqiang/tonwatch/watcher"
)

var (
	// ErrChainNotFound is returned when operating on an unregistered network.
	ErrChainNotFound = errors.New("tonwatch: chain not found")

	// ErrAlreadyRunning is returned when a subscription with the same key is already running.
	ErrAlreadyRunning = errors.New("tonwatch: subscription already running")

	// ErrShutdown is returned when operating on a shut-down Monitor.
	ErrShutdown = errors.New("tonwatch: monitor has been shut down")

	// ErrInvalidAddress is returned when an account address cannot be parsed.
	ErrInvalidAddress = watcher.ErrInvalidAddress

	// ErrChainAlreadyRegistered is returned when adding a network that already exists.
	ErrChainAlreadyRegistered = chain.ErrDuplicate
)

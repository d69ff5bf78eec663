// Package paging defines the contract between a paged list and the
// mediator that fills its backing cache from a remote source.
package paging

import (
	"context"
	"fmt"
)

// LoadType is the boundary a load was requested for.
type LoadType int

const (
	Refresh LoadType = iota // Reload from the start
	Prepend                 // Data before the first loaded item
	Append                  // Data after the last loaded item
)

func (t LoadType) String() string {
	switch t {
	case Refresh:
		return "refresh"
	case Prepend:
		return "prepend"
	case Append:
		return "append"
	default:
		return fmt.Sprintf("LoadType(%d)", int(t))
	}
}

const (
	DefaultPageSize = 30
	// initialLoadMultiplier sizes the first load relative to a page
	initialLoadMultiplier = 3
)

// State is the consumer's paging configuration handed to every load.
type State struct {
	PageSize        int // Items requested per Append
	InitialLoadSize int // Items requested by Refresh
}

// NewState returns a State for pageSize, loading three pages up front.
// A non-positive pageSize selects DefaultPageSize.
func NewState(pageSize, initialLoadSize int) State {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if initialLoadSize <= 0 {
		initialLoadSize = pageSize * initialLoadMultiplier
	}
	return State{PageSize: pageSize, InitialLoadSize: initialLoadSize}
}

// Result is the outcome of a successful load.
type Result struct {
	EndOfPaginationReached bool
}

// Mediator fetches remote data into the local cache at a paging boundary.
// Implementations are not safe for concurrent Load calls; Pager serializes them.
type Mediator interface {
	Load(ctx context.Context, loadType LoadType, state State) (Result, error)
}

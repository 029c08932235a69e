package market

import "errors"

var (
	// ErrRouteNotFound is terminal for the current selection: no amount is
	// computed and no ledger call is made.
	ErrRouteNotFound = errors.New("route not found")

	// ErrInvalidTokenSelection indicates the unselected sentinel reached a
	// code path that needs a resolved asset.
	ErrInvalidTokenSelection = errors.New("invalid token selection")

	ErrDuplicatePair  = errors.New("duplicate pair")
	ErrSelfPair       = errors.New("pair of an asset with itself")
	ErrUnknownAsset   = errors.New("unknown asset")
	ErrInvalidMarket  = errors.New("invalid market definition")
	ErrMissingAddress = errors.New("asset has no registered address")
)

package config

import "errors"

// ErrMissingRPCEndpoint indicates that the required ETH_RPC_URL variable is
// not set in the environment.
var ErrMissingRPCEndpoint = errors.New("missing ETH_RPC_URL environment variable")

var (
	ErrInvalidRouterAddress = errors.New("invalid ROUTER_ADDRESS")
	ErrMissingRegistryFile  = errors.New("missing REGISTRY_FILE environment variable")
	ErrInvalidLedgerMode    = errors.New("LEDGER_MODE must be rpc or memory")
	ErrInvalidValue         = errors.New("invalid environment value")
)

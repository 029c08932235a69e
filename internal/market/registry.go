package market

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
)

// RouterContract is the registry entry of the swap router.
const RouterContract = "swapRouter"

// Registry maps contract and asset names to deployed addresses. It mirrors
// the consolidated name -> address config regenerated on every deployment.
type Registry struct {
	native    Asset
	wrapped   Asset
	addresses map[string]common.Address
}

// NewRegistry validates and wraps a name -> hex address map.
func NewRegistry(native, wrapped Asset, entries map[string]string) (*Registry, error) {
	r := &Registry{native: native, wrapped: wrapped, addresses: make(map[string]common.Address, len(entries))}
	for name, hex := range entries {
		if !common.IsHexAddress(hex) {
			return nil, fmt.Errorf("registry entry %s: invalid address %q", name, hex)
		}
		r.addresses[name] = common.HexToAddress(hex)
	}
	return r, nil
}

// LoadRegistry reads the JSON config file.
func LoadRegistry(path string, native, wrapped Asset) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}
	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return NewRegistry(native, wrapped, entries)
}

func (r *Registry) Native() Asset  { return r.native }
func (r *Registry) Wrapped() Asset { return r.wrapped }

// Address returns the on-chain address for an asset. The native asset is
// addressed through its wrapped token, as routers expect.
func (r *Registry) Address(a Asset) (common.Address, error) {
	if !a.IsSelected() {
		return common.Address{}, ErrInvalidTokenSelection
	}
	if a == r.native {
		a = r.wrapped
	}
	addr, ok := r.addresses[string(a)]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %s", ErrMissingAddress, a)
	}
	return addr, nil
}

// Contract returns the address registered under a contract name such as
// "swapRouter".
func (r *Registry) Contract(name string) (common.Address, error) {
	addr, ok := r.addresses[name]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %s", ErrMissingAddress, name)
	}
	return addr, nil
}

// Router returns override when it is set and the registered swap router
// otherwise.
func (r *Registry) Router(override common.Address) (common.Address, error) {
	if override != (common.Address{}) {
		return override, nil
	}
	return r.Contract(RouterContract)
}

// Addresses maps every hop of path to its address.
func (r *Registry) Addresses(path Path) ([]common.Address, error) {
	out := make([]common.Address, len(path))
	for i, a := range path {
		addr, err := r.Address(a)
		if err != nil {
			return nil, err
		}
		out[i] = addr
	}
	return out, nil
}

package market

import (
	"fmt"
	"sort"
)

// Token describes a tradable asset and its declared precision.
type Token struct {
	Name     Asset `toml:"name"`
	Decimals int32 `toml:"decimals"`
}

// PairTable is the static, symmetric adjacency of supported pairs together
// with the native/wrapped designations and per-asset precision.
type PairTable struct {
	native   Asset
	wrapped  Asset
	decimals map[Asset]int32
	pairs    map[Pair]struct{}
	ordered  []Pair
}

// NewPairTable builds a table from unordered relationships. Each entry is
// stored in both orientations; listing the same relationship twice, in
// either orientation, is an error.
func NewPairTable(native, wrapped Asset, tokens []Token, relations []Pair) (*PairTable, error) {
	if !native.IsSelected() || !wrapped.IsSelected() || native == wrapped {
		return nil, fmt.Errorf("%w: native %q, wrapped %q", ErrInvalidMarket, native, wrapped)
	}

	t := &PairTable{
		native:   native,
		wrapped:  wrapped,
		decimals: map[Asset]int32{native: DefaultDecimals, wrapped: DefaultDecimals},
		pairs:    make(map[Pair]struct{}, 2*len(relations)),
	}
	for _, tok := range tokens {
		if !tok.Name.IsSelected() {
			return nil, fmt.Errorf("%w: token with empty or sentinel name", ErrInvalidMarket)
		}
		if tok.Decimals < 0 || tok.Decimals > 77 {
			return nil, fmt.Errorf("%w: %s decimals %d", ErrInvalidMarket, tok.Name, tok.Decimals)
		}
		t.decimals[tok.Name] = tok.Decimals
	}

	for _, rel := range relations {
		if rel.A == rel.B {
			return nil, fmt.Errorf("%w: %s", ErrSelfPair, rel.A)
		}
		for _, a := range []Asset{rel.A, rel.B} {
			if _, ok := t.decimals[a]; !ok {
				return nil, fmt.Errorf("%w: %s in pair %s/%s", ErrUnknownAsset, a, rel.A, rel.B)
			}
		}
		if _, dup := t.pairs[rel]; dup {
			return nil, fmt.Errorf("%w: %s/%s", ErrDuplicatePair, rel.A, rel.B)
		}
		t.pairs[rel] = struct{}{}
		t.pairs[rel.Reversed()] = struct{}{}
		t.ordered = append(t.ordered, rel, rel.Reversed())
	}
	return t, nil
}

func (t *PairTable) Native() Asset  { return t.native }
func (t *PairTable) Wrapped() Asset { return t.wrapped }

func (t *PairTable) IsNative(a Asset) bool { return a == t.native }

// IsWrap reports whether from -> to is the native -> wrapped deposit.
func (t *PairTable) IsWrap(from, to Asset) bool {
	return from == t.native && to == t.wrapped
}

// IsWrapPair reports whether a and b are the native asset and its wrapped
// form, in either order. Such pairs convert 1:1.
func (t *PairTable) IsWrapPair(a, b Asset) bool {
	return t.IsWrap(a, b) || t.IsWrap(b, a)
}

// Decimals returns the declared precision of a.
func (t *PairTable) Decimals(a Asset) (int32, error) {
	d, ok := t.decimals[a]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownAsset, a)
	}
	return d, nil
}

// Assets lists every known asset, sorted by name.
func (t *PairTable) Assets() []Asset {
	out := make([]Asset, 0, len(t.decimals))
	for a := range t.decimals {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Pairs lists every oriented pair in table order.
func (t *PairTable) Pairs() []Pair {
	out := make([]Pair, len(t.ordered))
	copy(out, t.ordered)
	return out
}

// Has reports whether the oriented pair (a, b) is in the table.
func (t *PairTable) Has(a, b Asset) bool {
	_, ok := t.pairs[Pair{A: a, B: b}]
	return ok
}

// ResolvePath finds the path for from -> to. Native legs are looked up as
// (native, to) or (from, native); token -> token only matches a direct entry
// and is never bridged through the native asset.
func (t *PairTable) ResolvePath(from, to Asset) (Path, error) {
	if !from.IsSelected() || !to.IsSelected() {
		return nil, ErrInvalidTokenSelection
	}

	var key Pair
	switch {
	case from == t.native && to != t.native:
		key = Pair{A: t.native, B: to}
	case to == t.native && from != t.native:
		key = Pair{A: from, B: t.native}
	case from != t.native && to != t.native:
		key = Pair{A: from, B: to}
	default:
		return nil, fmt.Errorf("%w: %s -> %s", ErrRouteNotFound, from, to)
	}

	if !t.Has(key.A, key.B) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrRouteNotFound, from, to)
	}
	return Path{key.A, key.B}, nil
}

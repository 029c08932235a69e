package market

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// File is the on-disk market definition:
//
//	native = "ETH"
//	wrapped = "WETH"
//
//	[[tokens]]
//	name = "TKA"
//	decimals = 18
//
//	[[pairs]]
//	a = "ETH"
//	b = "TKA"
type File struct {
	Native  Asset   `toml:"native"`
	Wrapped Asset   `toml:"wrapped"`
	Tokens  []Token `toml:"tokens"`
	Pairs   []Pair  `toml:"pairs"`
}

// DefaultFile is the market used when no file is configured.
func DefaultFile() File {
	return File{
		Native:  DefaultNative,
		Wrapped: DefaultWrapped,
		Tokens: []Token{
			{Name: "TKA", Decimals: 18},
			{Name: "TKB", Decimals: 18},
			{Name: "USDX", Decimals: 6},
		},
		Pairs: []Pair{
			{A: DefaultNative, B: "TKA"},
			{A: DefaultNative, B: "TKB"},
			{A: DefaultNative, B: "USDX"},
			{A: "TKA", B: "TKB"},
			{A: DefaultWrapped, B: "TKA"},
		},
	}
}

// LoadFile decodes a TOML market definition. An empty path yields the
// default market.
func LoadFile(path string) (*PairTable, error) {
	f := DefaultFile()
	if path != "" {
		f = File{}
		meta, err := toml.DecodeFile(path, &f)
		if err != nil {
			return nil, fmt.Errorf("decode market file %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%w: unknown key %s in %s", ErrInvalidMarket, undecoded[0], path)
		}
		if f.Native == "" {
			f.Native = DefaultNative
		}
		if f.Wrapped == "" {
			f.Wrapped = DefaultWrapped
		}
	}
	return f.Table()
}

// Table builds the pair table described by f.
func (f File) Table() (*PairTable, error) {
	return NewPairTable(f.Native, f.Wrapped, f.Tokens, f.Pairs)
}

// Package market holds the static trading universe: assets, the pair table
// and the resolver that turns an asset selection into a router path.
package market

// Asset names a tradable unit. Assets compare by identity.
type Asset string

const (
	// Unselected is the sentinel carried by a side of the form before the
	// user picks an asset.
	Unselected Asset = "0"

	DefaultNative  Asset = "ETH"
	DefaultWrapped Asset = "WETH"

	DefaultDecimals int32 = 18
)

// IsSelected reports whether a is a real asset rather than the sentinel.
func (a Asset) IsSelected() bool {
	return a != Unselected && a != ""
}

func (a Asset) String() string { return string(a) }

// Path is an ordered hop sequence. Paths produced by the resolver always
// have exactly two elements.
type Path []Asset

func (p Path) First() Asset {
	if len(p) == 0 {
		return Unselected
	}
	return p[0]
}

func (p Path) Last() Asset {
	if len(p) == 0 {
		return Unselected
	}
	return p[len(p)-1]
}

// Reversed returns a new path walking p backwards.
func (p Path) Reversed() Path {
	out := make(Path, len(p))
	for i, a := range p {
		out[len(p)-1-i] = a
	}
	return out
}

// Strings renders the path for logs and JSON payloads.
func (p Path) Strings() []string {
	out := make([]string, len(p))
	for i, a := range p {
		out[i] = string(a)
	}
	return out
}

// Pair is an oriented (A, B) relationship from the table.
type Pair struct {
	A Asset `json:"a" toml:"a"`
	B Asset `json:"b" toml:"b"`
}

// Reversed flips the orientation.
func (p Pair) Reversed() Pair { return Pair{A: p.B, B: p.A} }

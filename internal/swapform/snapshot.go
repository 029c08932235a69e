package swapform

import (
	"math/big"

	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/market"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/units"
)

// Snapshot is a point-in-time copy of the form.
type Snapshot struct {
	Source          market.Asset `json:"source"`
	Dest            market.Asset `json:"dest"`
	Input           string       `json:"input"`
	Output          string       `json:"output"`
	Side            Side         `json:"authoritativeSide"`
	Phase           Phase        `json:"phase"`
	Suppressed      bool         `json:"suppressDerivation"`
	Generation      uint64       `json:"generation"`
	Account         string       `json:"account,omitempty"`
	Connected       bool         `json:"connected"`
	Pending         bool         `json:"pending"`
	AllowanceFailed bool         `json:"allowanceFailed"`
	Action          Action       `json:"action"`
	ReserveA        string       `json:"reserveA,omitempty"`
	ReserveB        string       `json:"reserveB,omitempty"`
	RouteError      string       `json:"routeError,omitempty"`
}

func (f *Form) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := Snapshot{
		Source:          f.src,
		Dest:            f.dst,
		Input:           f.input,
		Output:          f.output,
		Side:            f.side,
		Phase:           f.phase,
		Suppressed:      f.suppress,
		Generation:      f.gen,
		Connected:       f.connected,
		Pending:         f.pending,
		AllowanceFailed: f.allowanceFailed,
		Action: ResolveAction(Readiness{
			Connected:       f.connected,
			Input:           f.input,
			Output:          f.output,
			RouteFailed:     f.routeErr != nil,
			AllowanceFailed: f.allowanceFailed,
		}),
	}
	if f.connected {
		s.Account = f.account.Hex()
	}
	if f.reserves.Known() {
		s.ReserveA = f.display(f.reserves.A, f.src)
		s.ReserveB = f.display(f.reserves.B, f.dst)
	}
	if f.routeErr != nil {
		s.RouteError = f.routeErr.Error()
	}
	return s
}

func (f *Form) display(v *big.Int, a market.Asset) string {
	d, err := f.pairs.Decimals(a)
	if err != nil {
		return v.String()
	}
	return units.FromSmallest(v, d)
}

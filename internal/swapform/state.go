package swapform

import (
	"fmt"

	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/units"
)

// Phase is the coarse state of the form.
type Phase int

const (
	Idle Phase = iota
	EditingInput
	EditingOutput
	Reversing
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case EditingInput:
		return "editing-input"
	case EditingOutput:
		return "editing-output"
	case Reversing:
		return "reversing"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Side names the field the user last edited. The other field is derived.
type Side int

const (
	None Side = iota
	Input
	Output
)

func (s Side) String() string {
	switch s {
	case None:
		return "none"
	case Input:
		return "input"
	case Output:
		return "output"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

func (s Side) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Flip returns the opposite side. None stays None.
func (s Side) Flip() Side {
	switch s {
	case Input:
		return Output
	case Output:
		return Input
	default:
		return None
	}
}

// Action is the label of the primary button.
type Action string

const (
	NeedsWallet            Action = "needs-wallet"
	NeedsInput             Action = "needs-input"
	ReadyToSwap            Action = "ready-to-swap"
	NeedsAllowanceIncrease Action = "needs-allowance-increase"
)

// Readiness is what the button label is derived from.
type Readiness struct {
	Connected       bool
	Input           string
	Output          string
	RouteFailed     bool
	AllowanceFailed bool
}

// ResolveAction derives the button label. A zero or unparseable amount on
// either side, as left by a failed derivation, never reads as ready.
func ResolveAction(r Readiness) Action {
	switch {
	case !r.Connected:
		return NeedsWallet
	case r.RouteFailed || !units.IsPositive(r.Input) || !units.IsPositive(r.Output):
		return NeedsInput
	case r.AllowanceFailed:
		return NeedsAllowanceIncrease
	default:
		return ReadyToSwap
	}
}

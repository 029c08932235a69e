package swap

import "errors"

var (
	ErrLedgerCall            = errors.New("ledger call failed")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrNoAccount             = errors.New("no account connected")
	ErrNothingToSwap         = errors.New("enter an amount")
	ErrPending               = errors.New("a transaction is already pending")
	ErrNoAllowanceNeeded     = errors.New("native asset needs no allowance")
)

// InsufficientAllowanceMessage is shown when an approval or the follow-up
// amount check fails.
const InsufficientAllowanceMessage = "Insufficient allowance. Click 'Increase allowance' to increase it."

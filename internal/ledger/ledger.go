// Package ledger is the boundary to the on-chain router, pair reserves and
// token contracts. Everything above it talks to the Ledger interface so the
// amount engine and the sequencer can run against a substitutable fake.
package ledger

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/market"
)

// DeadlineWindow is added to the current time on every state-mutating call.
const DeadlineWindow = 600 * time.Second

var (
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrSlippage              = errors.New("slippage bound violated")
	ErrExpired               = errors.New("deadline expired")
	ErrNoPool                = errors.New("no pool for pair")
	ErrInvalidPath           = errors.New("invalid swap path")
)

// Reserves is a snapshot of a pool oriented to the requested (A, B) order.
type Reserves struct {
	A *big.Int
	B *big.Int
}

// Known reports whether both sides are populated.
func (r Reserves) Known() bool {
	return r.A != nil && r.B != nil
}

// SwapOrder carries the arguments shared by every swap primitive. Limit is
// the minimum output for exact-in swaps and the maximum input for exact-out
// swaps. For native-in swaps the value sent is Amount (exact in) or Limit
// (exact out).
type SwapOrder struct {
	Account  common.Address
	Amount   *big.Int
	Limit    *big.Int
	Path     market.Path
	Deadline time.Time
}

// Deadline returns now + DeadlineWindow.
func Deadline(now time.Time) time.Time {
	return now.Add(DeadlineWindow)
}

// Reader holds the side-effect free primitives.
type Reader interface {
	GetReserves(ctx context.Context, a, b market.Asset) (Reserves, error)
	Quote(ctx context.Context, amountIn, reserveA, reserveB *big.Int) (*big.Int, error)
	AmountOut(ctx context.Context, amountIn, reserveIn, reserveOut *big.Int) (*big.Int, error)
	AmountIn(ctx context.Context, amountOut, reserveIn, reserveOut *big.Int) (*big.Int, error)
	AmountsOut(ctx context.Context, amountIn *big.Int, path market.Path) ([]*big.Int, error)
	AmountsIn(ctx context.Context, amountOut *big.Int, path market.Path) ([]*big.Int, error)

	// Balance is the account's holding of asset: its ether balance for the
	// native asset, the token's balanceOf otherwise.
	Balance(ctx context.Context, account common.Address, asset market.Asset) (*big.Int, error)
}

// Writer holds the state-mutating primitives. Each call returns only after
// the transaction is confirmed.
type Writer interface {
	Approve(ctx context.Context, account common.Address, token market.Asset, amount *big.Int) (bool, error)

	SwapExactTokensForTokens(ctx context.Context, o SwapOrder) error
	SwapExactETHForTokens(ctx context.Context, o SwapOrder) error
	SwapExactTokensForETH(ctx context.Context, o SwapOrder) error

	SwapTokensForExactTokens(ctx context.Context, o SwapOrder) error
	SwapETHForExactTokens(ctx context.Context, o SwapOrder) error
	SwapTokensForExactETH(ctx context.Context, o SwapOrder) error

	DepositNative(ctx context.Context, account common.Address, amount *big.Int) error
}

type Ledger interface {
	Reader
	Writer
}

// Package amount computes display amounts from reserve snapshots through the
// ledger. Amounts enter and leave as whole-unit decimal strings; ledger calls
// always see exact smallest-unit integers.
package amount

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/ledger"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/market"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/units"
)

// Zero is the degraded-display fallback. It must never size a transaction.
const Zero = "0"

// Engine layers unit conversion and fail-soft policy over ledger.Reader.
type Engine struct {
	logger *slog.Logger
	ledger ledger.Reader
	pairs  *market.PairTable
}

func NewEngine(logger *slog.Logger, l ledger.Reader, pairs *market.PairTable) *Engine {
	return &Engine{logger: logger, ledger: l, pairs: pairs}
}

func (e *Engine) toSmallest(value string, a market.Asset) (*big.Int, error) {
	d, err := e.pairs.Decimals(a)
	if err != nil {
		return nil, err
	}
	return units.ToSmallest(value, d)
}

func (e *Engine) fromSmallest(v *big.Int, a market.Asset) (string, error) {
	d, err := e.pairs.Decimals(a)
	if err != nil {
		return "", err
	}
	return units.FromSmallest(v, d), nil
}

// Quote is the non-binding proportional estimate of amountIn of src in dst,
// with reserves oriented (src, dst). Any failure yields Zero.
func (e *Engine) Quote(ctx context.Context, amountIn string, src, dst market.Asset, reserves ledger.Reserves) string {
	if !reserves.Known() {
		return Zero
	}
	in, err := e.toSmallest(amountIn, src)
	if err != nil {
		e.logger.Debug("quote: bad amount", "amount", amountIn, "err", err)
		return Zero
	}
	out, err := e.ledger.Quote(ctx, in, reserves.A, reserves.B)
	if err != nil || out == nil {
		e.logger.Debug("quote failed", "src", src, "dst", dst, "err", err)
		return Zero
	}
	s, err := e.fromSmallest(out, dst)
	if err != nil {
		return Zero
	}
	return s
}

// AmountOut sizes the output of a direct swap from local reserves oriented
// (src, dst). Errors are returned, not softened.
func (e *Engine) AmountOut(ctx context.Context, amountIn string, src, dst market.Asset, reserves ledger.Reserves) (string, error) {
	if !reserves.Known() {
		return "", fmt.Errorf("amount out %s -> %s: reserves unknown", src, dst)
	}
	in, err := e.toSmallest(amountIn, src)
	if err != nil {
		return "", err
	}
	out, err := e.ledger.AmountOut(ctx, in, reserves.A, reserves.B)
	if err != nil {
		return "", fmt.Errorf("amount out %s -> %s: %w", src, dst, err)
	}
	return e.fromSmallest(out, dst)
}

// AmountIn sizes the input of a direct swap that yields amountOut of dst.
func (e *Engine) AmountIn(ctx context.Context, amountOut string, src, dst market.Asset, reserves ledger.Reserves) (string, error) {
	raw, err := e.AmountInRaw(ctx, amountOut, src, dst, reserves)
	if err != nil {
		return "", err
	}
	return e.fromSmallest(raw, src)
}

// AmountInRaw is AmountIn in smallest units of src. A nil ledger result is
// an error.
func (e *Engine) AmountInRaw(ctx context.Context, amountOut string, src, dst market.Asset, reserves ledger.Reserves) (*big.Int, error) {
	if !reserves.Known() {
		return nil, fmt.Errorf("amount in %s -> %s: reserves unknown", src, dst)
	}
	out, err := e.toSmallest(amountOut, dst)
	if err != nil {
		return nil, err
	}
	in, err := e.ledger.AmountIn(ctx, out, reserves.A, reserves.B)
	if err != nil {
		return nil, fmt.Errorf("amount in %s -> %s: %w", src, dst, err)
	}
	if in == nil {
		return nil, fmt.Errorf("amount in %s -> %s: empty result", src, dst)
	}
	return in, nil
}

// AmountsOut walks path from amountIn and returns the terminal amount, or
// Zero on any failure.
func (e *Engine) AmountsOut(ctx context.Context, amountIn string, path market.Path) string {
	in, err := e.toSmallest(amountIn, path.First())
	if err != nil {
		e.logger.Debug("amounts out: bad amount", "amount", amountIn, "err", err)
		return Zero
	}
	amounts, err := e.ledger.AmountsOut(ctx, in, path)
	if err != nil || len(amounts) == 0 {
		e.logger.Debug("amounts out failed", "path", path.Strings(), "err", err)
		return Zero
	}
	s, err := e.fromSmallest(amounts[len(amounts)-1], path.Last())
	if err != nil {
		return Zero
	}
	return s
}

// AmountsIn walks path backwards from amountOut and returns the required
// input, or Zero on any failure.
func (e *Engine) AmountsIn(ctx context.Context, amountOut string, path market.Path) string {
	out, err := e.toSmallest(amountOut, path.Last())
	if err != nil {
		e.logger.Debug("amounts in: bad amount", "amount", amountOut, "err", err)
		return Zero
	}
	amounts, err := e.ledger.AmountsIn(ctx, out, path)
	if err != nil || len(amounts) == 0 {
		e.logger.Debug("amounts in failed", "path", path.Strings(), "err", err)
		return Zero
	}
	s, err := e.fromSmallest(amounts[0], path.First())
	if err != nil {
		return Zero
	}
	return s
}

// Smallest converts a display value of asset a for use as a transaction
// amount.
func (e *Engine) Smallest(value string, a market.Asset) (*big.Int, error) {
	return e.toSmallest(value, a)
}

// Display converts a smallest-unit amount of a for display.
func (e *Engine) Display(v *big.Int, a market.Asset) (string, error) {
	return e.fromSmallest(v, a)
}

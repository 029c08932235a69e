// Package swap sequences the approve and swap transactions behind the swap
// button.
package swap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/amount"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/eth"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/ledger"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/market"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/metrics"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/notify"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/swapform"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/units"
)

// Submission kinds, used as metric labels.
const (
	KindWrap      = "wrap"
	KindExactIn   = "exact-in"
	KindExactOut  = "exact-out"
	KindAllowance = "allowance"
)

// Form is the view of a swap form the sequencer reads and updates.
type Form interface {
	Snapshot() swapform.Snapshot
	Account() (common.Address, bool)
	Reserves() ledger.Reserves
	TryBeginPending() bool
	SetPending(pending bool)
	MarkAllowanceFailed()
	ClearAllowanceFailure()
	MirrorInput()
	PinInput(v string)
}

type Sequencer struct {
	logger   *slog.Logger
	ledger   ledger.Writer
	pairs    *market.PairTable
	engine   *amount.Engine
	notifier notify.Notifier
	metrics  *metrics.SwapMetrics
	now      func() time.Time
}

func NewSequencer(logger *slog.Logger, l ledger.Writer, pairs *market.PairTable, engine *amount.Engine, notifier notify.Notifier, m *metrics.SwapMetrics) *Sequencer {
	return &Sequencer{
		logger:   logger,
		ledger:   l,
		pairs:    pairs,
		engine:   engine,
		notifier: notifier,
		metrics:  m,
		now:      time.Now,
	}
}

// submission is one Submit call with its resolved inputs.
type submission struct {
	form    Form
	account common.Address
	snap    swapform.Snapshot
	path    market.Path
}

// Submit executes the swap described by form. Route and selection errors
// and non-positive amounts abort before any ledger call. Every other
// outcome leaves the pending flag cleared.
func (q *Sequencer) Submit(ctx context.Context, form Form) error {
	account, ok := form.Account()
	if !ok {
		return ErrNoAccount
	}
	snap := form.Snapshot()
	if snap.Pending {
		return ErrPending
	}
	if !snap.Source.IsSelected() || !snap.Dest.IsSelected() {
		q.logger.Warn("swap aborted", "source", snap.Source, "dest", snap.Dest, "err", market.ErrInvalidTokenSelection)
		return market.ErrInvalidTokenSelection
	}

	if q.pairs.IsWrap(snap.Source, snap.Dest) {
		return q.wrap(ctx, form, account, snap)
	}

	path, err := q.pairs.ResolvePath(snap.Source, snap.Dest)
	if err != nil {
		q.logger.Warn("swap aborted", "source", snap.Source, "dest", snap.Dest, "err", err)
		return err
	}
	if !units.IsPositive(snap.Input) || !units.IsPositive(snap.Output) {
		q.logger.Warn("swap aborted", "source", snap.Source, "dest", snap.Dest, "input", snap.Input, "output", snap.Output, "err", ErrNothingToSwap)
		return ErrNothingToSwap
	}

	if !form.TryBeginPending() {
		return ErrPending
	}
	defer form.SetPending(false)

	s := submission{form: form, account: account, snap: snap, path: path}
	kind := KindExactIn
	if snap.Side == swapform.Output {
		kind = KindExactOut
		err = q.exactOut(ctx, s)
	} else {
		err = q.exactIn(ctx, s)
	}
	return q.finish(kind, err)
}

func (q *Sequencer) finish(kind string, err error) error {
	if err != nil {
		q.metrics.Submission(kind, metrics.Failed)
		return err
	}
	q.metrics.Submission(kind, metrics.Success)
	q.notifier.Success(notify.SuccessMessage)
	return nil
}

// wrap deposits the input into the wrapped token. The output mirrors the
// input; no route is resolved.
func (q *Sequencer) wrap(ctx context.Context, form Form, account common.Address, snap swapform.Snapshot) error {
	if !units.IsPositive(snap.Input) {
		return ErrNothingToSwap
	}
	value, err := q.engine.Smallest(snap.Input, snap.Source)
	if err != nil {
		return err
	}

	if !form.TryBeginPending() {
		return ErrPending
	}
	defer form.SetPending(false)

	form.MirrorInput()
	err = q.call(ctx, "depositNative", func() error {
		return q.ledger.DepositNative(ctx, account, value)
	})
	return q.finish(KindWrap, err)
}

func (q *Sequencer) exactIn(ctx context.Context, s submission) error {
	amountIn, err := q.engine.Smallest(s.snap.Input, s.snap.Source)
	if err != nil {
		return err
	}
	order := q.order(s, amountIn, big.NewInt(1))

	switch {
	case q.pairs.IsNative(s.snap.Source):
		return q.call(ctx, "swapExactETHForTokens", func() error {
			return q.ledger.SwapExactETHForTokens(ctx, order)
		})
	case q.pairs.IsNative(s.snap.Dest):
		if err := q.approve(ctx, s.form, s.account, s.snap.Source, amountIn); err != nil {
			return err
		}
		return q.call(ctx, "swapExactTokensForETH", func() error {
			return q.ledger.SwapExactTokensForETH(ctx, order)
		})
	default:
		if err := q.approve(ctx, s.form, s.account, s.snap.Source, amountIn); err != nil {
			return err
		}
		return q.call(ctx, "swapExactTokensForTokens", func() error {
			return q.ledger.SwapExactTokensForTokens(ctx, order)
		})
	}
}

func (q *Sequencer) exactOut(ctx context.Context, s submission) error {
	amountOut, err := q.engine.Smallest(s.snap.Output, s.snap.Dest)
	if err != nil {
		return err
	}
	maxIn, err := q.engine.Smallest(s.snap.Input, s.snap.Source)
	if err != nil {
		return err
	}

	switch {
	case q.pairs.IsNative(s.snap.Source):
		order := q.order(s, amountOut, maxIn)
		return q.call(ctx, "swapETHForExactTokens", func() error {
			return q.ledger.SwapETHForExactTokens(ctx, order)
		})
	case q.pairs.IsNative(s.snap.Dest):
		return q.tokensForExactETH(ctx, s, amountOut, maxIn)
	default:
		if err := q.approve(ctx, s.form, s.account, s.snap.Source, maxIn); err != nil {
			return err
		}
		order := q.order(s, amountOut, maxIn)
		return q.call(ctx, "swapTokensForExactTokens", func() error {
			return q.ledger.SwapTokensForExactTokens(ctx, order)
		})
	}
}

// tokensForExactETH approves the displayed input, then pins the exact input
// from local reserves. A pinned input above the approval is reported as an
// allowance failure instead of being submitted.
func (q *Sequencer) tokensForExactETH(ctx context.Context, s submission, amountOut, approved *big.Int) error {
	if err := q.approve(ctx, s.form, s.account, s.snap.Source, approved); err != nil {
		return err
	}

	pinned, err := q.engine.AmountInRaw(ctx, s.snap.Output, s.snap.Source, s.snap.Dest, s.form.Reserves())
	if err != nil || pinned.Cmp(approved) > 0 {
		q.logger.Warn("exact input exceeds approval", "source", s.snap.Source, "approved", approved.String(), "pinned", pinned, "err", err)
		return q.allowanceFailed(s.form, s.snap.Source, err)
	}
	display, err := q.engine.Display(pinned, s.snap.Source)
	if err != nil {
		return err
	}
	s.form.PinInput(display)

	order := q.order(s, amountOut, pinned)
	return q.call(ctx, "swapTokensForExactETH", func() error {
		return q.ledger.SwapTokensForExactETH(ctx, order)
	})
}

// IncreaseAllowance approves the displayed input again for the selected
// source token.
func (q *Sequencer) IncreaseAllowance(ctx context.Context, form Form) error {
	account, ok := form.Account()
	if !ok {
		return ErrNoAccount
	}
	snap := form.Snapshot()
	if snap.Pending {
		return ErrPending
	}
	if !snap.Source.IsSelected() {
		return market.ErrInvalidTokenSelection
	}
	if q.pairs.IsNative(snap.Source) {
		return ErrNoAllowanceNeeded
	}
	if !units.IsPositive(snap.Input) {
		return ErrNothingToSwap
	}
	value, err := q.engine.Smallest(snap.Input, snap.Source)
	if err != nil {
		return err
	}

	if !form.TryBeginPending() {
		return ErrPending
	}
	defer form.SetPending(false)

	return q.finish(KindAllowance, q.approve(ctx, form, account, snap.Source, value))
}

func (q *Sequencer) approve(ctx context.Context, form Form, account common.Address, token market.Asset, value *big.Int) error {
	start := time.Now()
	ok, err := q.ledger.Approve(ctx, account, token, value)
	q.metrics.ObserveLedger("approve", time.Since(start))
	if err != nil || !ok {
		return q.allowanceFailed(form, token, err)
	}
	form.ClearAllowanceFailure()
	return nil
}

func (q *Sequencer) allowanceFailed(form Form, token market.Asset, cause error) error {
	form.MarkAllowanceFailed()
	q.notifier.Error(InsufficientAllowanceMessage)
	if cause != nil {
		return fmt.Errorf("%w: %s: %w", ErrInsufficientAllowance, token, cause)
	}
	return fmt.Errorf("%w: %s", ErrInsufficientAllowance, token)
}

// call runs a state-mutating ledger primitive. Failures raise an error toast
// and leave the amount fields as they are.
func (q *Sequencer) call(ctx context.Context, method string, fn func() error) error {
	start := time.Now()
	err := fn()
	q.metrics.ObserveLedger(method, time.Since(start))
	if err != nil {
		q.logger.Error("ledger call failed", "method", method, "err", err)
		q.notifier.Error(userMessage(err))
		return fmt.Errorf("%w: %s: %w", ErrLedgerCall, method, err)
	}
	q.logger.Info("ledger call confirmed", "method", method, "elapsed", time.Since(start))
	return nil
}

func (q *Sequencer) order(s submission, value, limit *big.Int) ledger.SwapOrder {
	return ledger.SwapOrder{
		Account:  s.account,
		Amount:   value,
		Limit:    limit,
		Path:     s.path,
		Deadline: ledger.Deadline(q.now()),
	}
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "Transaction was not confirmed in time."
	case errors.Is(err, eth.ErrReverted):
		return "Transaction reverted."
	case errors.Is(err, ledger.ErrExpired):
		return "Transaction deadline expired."
	case errors.Is(err, ledger.ErrSlippage):
		return "Price moved beyond the allowed limit."
	default:
		return err.Error()
	}
}

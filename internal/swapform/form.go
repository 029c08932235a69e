// Package swapform keeps the "you pay" and "you receive" fields of a swap
// form consistent while the user edits either side, changes assets or
// reverses direction.
//
// Every edit bumps a generation counter. Asynchronous derivations and
// reserve fetches carry the tag current when they were issued and are
// dropped on arrival if the form has moved on.
package swapform

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/ledger"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/market"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/metrics"
)

// Engine is the part of amount.Engine the form derives values with.
type Engine interface {
	AmountsOut(ctx context.Context, amountIn string, path market.Path) string
	AmountsIn(ctx context.Context, amountOut string, path market.Path) string
	Quote(ctx context.Context, amountIn string, src, dst market.Asset, reserves ledger.Reserves) string
}

// ReserveSource fetches the reserve snapshot of a pair.
type ReserveSource interface {
	GetReserves(ctx context.Context, a, b market.Asset) (ledger.Reserves, error)
}

// Policy selects how token <-> token amounts are derived. The zero value
// copies the edited value across unchanged.
type Policy struct {
	Proportional bool
}

type Deps struct {
	Logger   *slog.Logger
	Pairs    *market.PairTable
	Engine   Engine
	Reserves ReserveSource
	Metrics  *metrics.SwapMetrics
}

type tag struct {
	gen    uint64
	source market.Asset
	dest   market.Asset
	side   Side
}

// Form is one user's swap form. It is safe for concurrent use.
type Form struct {
	logger   *slog.Logger
	pairs    *market.PairTable
	engine   Engine
	source   ReserveSource
	metrics  *metrics.SwapMetrics
	policy   Policy
	inflight sync.WaitGroup

	mu              sync.Mutex
	src             market.Asset
	dst             market.Asset
	input           string
	output          string
	phase           Phase
	side            Side
	suppress        bool
	gen             uint64
	fetchSeq        uint64
	reserves        ledger.Reserves
	account         common.Address
	connected       bool
	allowanceFailed bool
	pending         bool
	routeErr        error
}

// New returns a form with the native asset as source and no destination.
func New(deps Deps, policy Policy) *Form {
	return &Form{
		logger:  deps.Logger,
		pairs:   deps.Pairs,
		engine:  deps.Engine,
		source:  deps.Reserves,
		metrics: deps.Metrics,
		policy:  policy,
		src:     deps.Pairs.Native(),
		dst:     market.Unselected,
	}
}

func (f *Form) tagLocked() tag {
	return tag{gen: f.gen, source: f.src, dest: f.dst, side: f.side}
}

func (f *Form) SetAccount(account common.Address) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.account = account
	f.connected = true
}

func (f *Form) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.account = common.Address{}
	f.connected = false
}

// Account returns the connected account.
func (f *Form) Account() (common.Address, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.account, f.connected
}

// EditInput makes the input field authoritative and derives the output.
func (f *Form) EditInput(ctx context.Context, value string) {
	f.edit(ctx, Input, value)
}

// EditOutput makes the output field authoritative and derives the input.
func (f *Form) EditOutput(ctx context.Context, value string) {
	f.edit(ctx, Output, value)
}

func (f *Form) edit(ctx context.Context, side Side, value string) {
	value = strings.TrimSpace(value)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.gen++
	f.side = side
	f.suppress = false
	if side == Input {
		f.input, f.phase = value, EditingInput
	} else {
		f.output, f.phase = value, EditingOutput
	}

	if value == "" {
		f.input, f.output = "", ""
		f.phase = Idle
		return
	}
	f.deriveLocked(ctx)
}

// SelectSource changes the source asset.
func (f *Form) SelectSource(ctx context.Context, a market.Asset) error {
	return f.selectAsset(ctx, a, true)
}

// SelectDest changes the destination asset.
func (f *Form) SelectDest(ctx context.Context, a market.Asset) error {
	return f.selectAsset(ctx, a, false)
}

func (f *Form) selectAsset(ctx context.Context, a market.Asset, source bool) error {
	if a == "" {
		a = market.Unselected
	}
	if a.IsSelected() {
		if _, err := f.pairs.Decimals(a); err != nil {
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	other := f.dst
	if !source {
		other = f.src
	}
	if a.IsSelected() && a == other {
		return fmt.Errorf("%w: %s", ErrSameAsset, a)
	}

	if source {
		if f.src != a {
			f.allowanceFailed = false
		}
		f.src = a
	} else {
		f.dst = a
	}
	f.gen++
	f.suppress = false
	f.reserves = ledger.Reserves{}
	f.routeErr = nil
	f.phase = Idle

	if !a.IsSelected() {
		f.input, f.output = "", ""
		return nil
	}
	f.refreshLocked(ctx)
	return nil
}

// Reverse swaps the assets and carries both values across verbatim. The
// reserve refetch that follows does not derive either side.
func (f *Form) Reverse(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.gen++
	f.src, f.dst = f.dst, f.src
	f.input, f.output = f.output, f.input
	f.side = f.side.Flip()
	f.suppress = true
	f.phase = Reversing
	f.allowanceFailed = false
	f.reserves = ledger.Reserves{}
	f.routeErr = nil

	f.refreshLocked(ctx)
}

// refreshLocked resolves the selected pair and starts a reserve fetch. A
// wrap pair needs no reserves and is derived at once. An unroutable pair is
// recorded and issues no ledger call.
func (f *Form) refreshLocked(ctx context.Context) {
	if !f.src.IsSelected() || !f.dst.IsSelected() {
		return
	}
	if f.pairs.IsWrapPair(f.src, f.dst) {
		if !f.suppress {
			f.deriveLocked(ctx)
		}
		return
	}
	if _, err := f.pairs.ResolvePath(f.src, f.dst); err != nil {
		f.routeErr = err
		f.logger.Debug("pair not routable", "source", f.src, "dest", f.dst, "err", err)
		return
	}

	f.fetchSeq++
	seq, t := f.fetchSeq, f.tagLocked()
	f.inflight.Add(1)
	go func() {
		defer f.inflight.Done()
		res, err := f.source.GetReserves(ctx, t.source, t.dest)

		f.mu.Lock()
		defer f.mu.Unlock()
		if seq != f.fetchSeq || t.source != f.src || t.dest != f.dst {
			f.metrics.ReserveFetch(metrics.Stale)
			return
		}
		if err != nil {
			f.logger.Warn("reserve fetch failed", "source", t.source, "dest", t.dest, "err", err)
			f.metrics.ReserveFetch(metrics.Failed)
		} else {
			f.reserves = res
			f.metrics.ReserveFetch(metrics.Applied)
		}

		if f.suppress {
			f.suppress = false
			f.phase = Idle
			return
		}
		if t.gen == f.gen {
			f.deriveLocked(ctx)
		}
	}()
}

// deriveLocked fills the field opposite the authoritative side.
func (f *Form) deriveLocked(ctx context.Context) {
	side := f.side
	if side == None && f.input != "" {
		side = Input
	}
	value := f.input
	if side == Output {
		value = f.output
	}
	if side == None || value == "" {
		f.phase = Idle
		return
	}

	now, compute, ok := f.planLocked(side, value)
	if !ok {
		f.phase = Idle
		return
	}
	if compute == nil {
		f.setDependentLocked(side, now)
		f.metrics.Derivation(side.String(), metrics.Applied)
		f.phase = Idle
		return
	}

	t := f.tagLocked()
	f.inflight.Add(1)
	go func() {
		defer f.inflight.Done()
		v := compute(ctx)

		f.mu.Lock()
		defer f.mu.Unlock()
		if t != f.tagLocked() {
			f.logger.Debug("stale derivation dropped", "side", side, "gen", t.gen, "current", f.gen)
			f.metrics.Derivation(side.String(), metrics.Stale)
			return
		}
		f.setDependentLocked(side, v)
		f.metrics.Derivation(side.String(), metrics.Applied)
		f.phase = Idle
	}()
}

// planLocked decides how the dependent field follows value. It returns
// either the value to apply now or a ledger-backed computation.
func (f *Form) planLocked(side Side, value string) (string, func(context.Context) string, bool) {
	src, dst := f.src, f.dst
	if !src.IsSelected() || !dst.IsSelected() {
		return "", nil, false
	}
	if f.pairs.IsWrapPair(src, dst) {
		return value, nil, true
	}

	path, err := f.pairs.ResolvePath(src, dst)
	if err != nil {
		f.routeErr = err
		return "", nil, false
	}
	f.routeErr = nil

	if !f.pairs.IsNative(src) && !f.pairs.IsNative(dst) && !f.policy.Proportional {
		return value, nil, true
	}
	if side == Input {
		return "", func(ctx context.Context) string { return f.engine.AmountsOut(ctx, value, path) }, true
	}
	return "", func(ctx context.Context) string { return f.engine.AmountsIn(ctx, value, path) }, true
}

func (f *Form) setDependentLocked(side Side, v string) {
	if side == Input {
		f.output = v
	} else {
		f.input = v
	}
}

// Settle waits for in-flight derivations and reserve fetches, then clears
// any leftover reversal suppression.
func (f *Form) Settle() {
	f.inflight.Wait()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.suppress = false
	f.phase = Idle
}

// Reserves returns the reserves of the selected pair, oriented (source,
// dest). They are unknown until a fetch completes.
func (f *Form) Reserves() ledger.Reserves {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reserves
}

// EstimatedQuote is the proportional estimate of the input at current
// reserves. It is hidden for the wrap destination and while reserves are
// unknown.
func (f *Form) EstimatedQuote(ctx context.Context) (string, bool) {
	f.mu.Lock()
	src, dst, input, res := f.src, f.dst, f.input, f.reserves
	f.mu.Unlock()

	if !src.IsSelected() || !dst.IsSelected() || dst == f.pairs.Wrapped() || input == "" || !res.Known() {
		return "", false
	}
	return f.engine.Quote(ctx, input, src, dst, res), true
}

// TryBeginPending sets the pending flag unless it is already set. It
// reports whether the caller now owns the pending transaction.
func (f *Form) TryBeginPending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending {
		return false
	}
	f.pending = true
	return true
}

func (f *Form) SetPending(pending bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = pending
}

func (f *Form) MarkAllowanceFailed() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allowanceFailed = true
}

func (f *Form) ClearAllowanceFailure() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allowanceFailed = false
}

// MirrorInput copies the input value into the output field.
func (f *Form) MirrorInput() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.output = f.input
}

// PinInput replaces the input with an exact amount computed for submission.
// No derivation follows.
func (f *Form) PinInput(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.input = v
}

package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/market"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/pkg/uniswapv2"
)

// Hook runs before every Memory call, outside the lock. Returning an error
// fails the call. Tests use it to gate or fail individual primitives.
type Hook func(ctx context.Context, method string) error

type pool struct {
	a, b     market.Asset
	reserveA *big.Int
	reserveB *big.Int
}

type allowanceKey struct {
	owner common.Address
	token market.Asset
}

type holding struct {
	owner common.Address
	asset market.Asset
}

// Memory is an in-process constant-product AMM implementing Ledger. Native
// legs trade against the wrapped token's pools, as the router does.
type Memory struct {
	mu          sync.Mutex
	native      market.Asset
	wrapped     market.Asset
	pools       map[market.Pair]*pool
	allowances  map[allowanceKey]*big.Int
	deposits    map[common.Address]*big.Int
	balances    map[holding]*big.Int
	calls       map[string]int
	denyApprove bool
	hook        Hook
	now         func() time.Time
}

func NewMemory(native, wrapped market.Asset) *Memory {
	return &Memory{
		native:     native,
		wrapped:    wrapped,
		pools:      make(map[market.Pair]*pool),
		allowances: make(map[allowanceKey]*big.Int),
		deposits:   make(map[common.Address]*big.Int),
		balances:   make(map[holding]*big.Int),
		calls:      make(map[string]int),
		now:        time.Now,
	}
}

// AddPool seeds (or replaces) the pool between a and b.
func (m *Memory) AddPool(a, b market.Asset, reserveA, reserveB *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, b = m.norm(a), m.norm(b)
	p := &pool{a: a, b: b, reserveA: new(big.Int).Set(reserveA), reserveB: new(big.Int).Set(reserveB)}
	m.pools[market.Pair{A: a, B: b}] = p
	m.pools[market.Pair{A: b, B: a}] = p
}

// SetHook installs h; nil removes it.
func (m *Memory) SetHook(h Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hook = h
}

// DenyApprovals makes Approve report false without recording an allowance.
func (m *Memory) DenyApprovals(deny bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denyApprove = deny
}

func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Calls returns how many times method has been invoked.
func (m *Memory) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// TotalCalls returns the number of primitive invocations of any kind.
func (m *Memory) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}

// Allowance returns the remaining allowance of owner for token.
func (m *Memory) Allowance(owner common.Address, token market.Asset) *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.allowances[allowanceKey{owner, token}]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

// Deposited returns the wrapped balance minted for account by DepositNative.
func (m *Memory) Deposited(account common.Address) *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.deposits[account]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

// SetBalance seeds the holding of asset by account.
func (m *Memory) SetBalance(account common.Address, asset market.Asset, v *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[holding{account, asset}] = new(big.Int).Set(v)
}

func (m *Memory) Balance(ctx context.Context, account common.Address, asset market.Asset) (*big.Int, error) {
	if err := m.enter(ctx, "balance"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.balances[holding{account, asset}]; ok {
		return new(big.Int).Set(v), nil
	}
	return new(big.Int), nil
}

func (m *Memory) norm(a market.Asset) market.Asset {
	if a == m.native {
		return m.wrapped
	}
	return a
}

func (m *Memory) enter(ctx context.Context, method string) error {
	m.mu.Lock()
	m.calls[method]++
	hook := m.hook
	m.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, method); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// reservesLocked returns the reserves of the pool between a and b oriented
// to (a, b).
func (m *Memory) reservesLocked(a, b market.Asset) (*big.Int, *big.Int, error) {
	a, b = m.norm(a), m.norm(b)
	p, ok := m.pools[market.Pair{A: a, B: b}]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s/%s", ErrNoPool, a, b)
	}
	if p.a == a {
		return p.reserveA, p.reserveB, nil
	}
	return p.reserveB, p.reserveA, nil
}

func (m *Memory) GetReserves(ctx context.Context, a, b market.Asset) (Reserves, error) {
	if err := m.enter(ctx, "getReserves"); err != nil {
		return Reserves{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ra, rb, err := m.reservesLocked(a, b)
	if err != nil {
		return Reserves{}, err
	}
	return Reserves{A: new(big.Int).Set(ra), B: new(big.Int).Set(rb)}, nil
}

func (m *Memory) Quote(ctx context.Context, amountIn, reserveA, reserveB *big.Int) (*big.Int, error) {
	if err := m.enter(ctx, "quote"); err != nil {
		return nil, err
	}
	return uniswapv2.Quote(amountIn, reserveA, reserveB)
}

func (m *Memory) AmountOut(ctx context.Context, amountIn, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	if err := m.enter(ctx, "amountOut"); err != nil {
		return nil, err
	}
	return uniswapv2.AmountOut(amountIn, reserveIn, reserveOut)
}

func (m *Memory) AmountIn(ctx context.Context, amountOut, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	if err := m.enter(ctx, "amountIn"); err != nil {
		return nil, err
	}
	return uniswapv2.AmountIn(amountOut, reserveIn, reserveOut)
}

func (m *Memory) AmountsOut(ctx context.Context, amountIn *big.Int, path market.Path) ([]*big.Int, error) {
	if err := m.enter(ctx, "amountsOut"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return uniswapv2.GetAmountsOut(amountIn, path, m.reservesLocked)
}

func (m *Memory) AmountsIn(ctx context.Context, amountOut *big.Int, path market.Path) ([]*big.Int, error) {
	if err := m.enter(ctx, "amountsIn"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return uniswapv2.GetAmountsIn(amountOut, path, m.reservesLocked)
}

func (m *Memory) Approve(ctx context.Context, account common.Address, token market.Asset, amount *big.Int) (bool, error) {
	if err := m.enter(ctx, "approve"); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.denyApprove {
		return false, nil
	}
	m.allowances[allowanceKey{account, token}] = new(big.Int).Set(amount)
	return true, nil
}

func (m *Memory) DepositNative(ctx context.Context, account common.Address, amount *big.Int) error {
	if err := m.enter(ctx, "depositNative"); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return uniswapv2.ErrInsufficientAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.deposits[account]
	if !ok {
		bal = new(big.Int)
		m.deposits[account] = bal
	}
	bal.Add(bal, amount)
	m.creditLocked(account, m.wrapped, amount)
	return nil
}

func (m *Memory) creditLocked(account common.Address, asset market.Asset, v *big.Int) {
	key := holding{account, asset}
	bal, ok := m.balances[key]
	if !ok {
		bal = new(big.Int)
		m.balances[key] = bal
	}
	bal.Add(bal, v)
}

func (m *Memory) SwapExactTokensForTokens(ctx context.Context, o SwapOrder) error {
	return m.swap(ctx, "swapExactTokensForTokens", o, true, false, false)
}

func (m *Memory) SwapExactETHForTokens(ctx context.Context, o SwapOrder) error {
	return m.swap(ctx, "swapExactETHForTokens", o, true, true, false)
}

func (m *Memory) SwapExactTokensForETH(ctx context.Context, o SwapOrder) error {
	return m.swap(ctx, "swapExactTokensForETH", o, true, false, true)
}

func (m *Memory) SwapTokensForExactTokens(ctx context.Context, o SwapOrder) error {
	return m.swap(ctx, "swapTokensForExactTokens", o, false, false, false)
}

func (m *Memory) SwapETHForExactTokens(ctx context.Context, o SwapOrder) error {
	return m.swap(ctx, "swapETHForExactTokens", o, false, true, false)
}

func (m *Memory) SwapTokensForExactETH(ctx context.Context, o SwapOrder) error {
	return m.swap(ctx, "swapTokensForExactETH", o, false, false, true)
}

func (m *Memory) swap(ctx context.Context, method string, o SwapOrder, exactIn, nativeIn, nativeOut bool) error {
	if err := m.enter(ctx, method); err != nil {
		return err
	}
	if len(o.Path) < 2 || o.Amount == nil || o.Limit == nil {
		return ErrInvalidPath
	}
	if nativeIn != (o.Path.First() == m.native) || nativeOut != (o.Path.Last() == m.native) {
		return fmt.Errorf("%w: %s for %v", ErrInvalidPath, method, o.Path.Strings())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !o.Deadline.IsZero() && m.now().After(o.Deadline) {
		return ErrExpired
	}

	var (
		amounts []*big.Int
		err     error
	)
	if exactIn {
		amounts, err = uniswapv2.GetAmountsOut(o.Amount, o.Path, m.reservesLocked)
		if err == nil && amounts[len(amounts)-1].Cmp(o.Limit) < 0 {
			err = fmt.Errorf("%w: out %s below %s", ErrSlippage, amounts[len(amounts)-1], o.Limit)
		}
	} else {
		amounts, err = uniswapv2.GetAmountsIn(o.Amount, o.Path, m.reservesLocked)
		if err == nil && amounts[0].Cmp(o.Limit) > 0 {
			err = fmt.Errorf("%w: in %s above %s", ErrSlippage, amounts[0], o.Limit)
		}
	}
	if err != nil {
		return err
	}

	if !nativeIn {
		key := allowanceKey{o.Account, o.Path.First()}
		allowed, ok := m.allowances[key]
		if !ok || allowed.Cmp(amounts[0]) < 0 {
			return fmt.Errorf("%w: %s", ErrInsufficientAllowance, o.Path.First())
		}
		allowed.Sub(allowed, amounts[0])
	}

	for i := 0; i < len(o.Path)-1; i++ {
		rIn, rOut, _ := m.reservesLocked(o.Path[i], o.Path[i+1])
		rIn.Add(rIn, amounts[i])
		rOut.Sub(rOut, amounts[i+1])
	}
	m.creditLocked(o.Account, o.Path.Last(), amounts[len(amounts)-1])
	return nil
}

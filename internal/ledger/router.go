package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/eth"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/market"
)

// Backend is the subset of *ethclient.Client the router ledger uses.
type Backend interface {
	eth.ReceiptReader
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Router implements Ledger against a deployed swap router, its token
// contracts and the wrapped-native token.
type Router struct {
	logger   *slog.Logger
	backend  Backend
	registry *market.Registry
	keyring  *eth.Keyring
	router   common.Address
	poll     time.Duration

	chainMu sync.Mutex
	chainID *big.Int
}

// NewRouter builds a router ledger. poll is the receipt polling interval.
func NewRouter(logger *slog.Logger, backend Backend, registry *market.Registry, keyring *eth.Keyring, router common.Address, poll time.Duration) *Router {
	return &Router{
		logger:   logger,
		backend:  backend,
		registry: registry,
		keyring:  keyring,
		router:   router,
		poll:     poll,
	}
}

func (r *Router) call(ctx context.Context, method string, args ...any) ([]any, error) {
	input, err := routerABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := r.backend.CallContract(ctx, ethereum.CallMsg{To: &r.router, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("eth_call %s: %w", method, err)
	}
	values, err := routerABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

func (r *Router) callUint(ctx context.Context, method string, args ...any) (*big.Int, error) {
	values, err := r.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%s: unexpected outputs: %d", method, len(values))
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected output type: %T", method, values[0])
	}
	return v, nil
}

func (r *Router) callAmounts(ctx context.Context, method string, amount *big.Int, path market.Path) ([]*big.Int, error) {
	addrs, err := r.registry.Addresses(path)
	if err != nil {
		return nil, err
	}
	values, err := r.call(ctx, method, amount, addrs)
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%s: unexpected outputs: %d", method, len(values))
	}
	amounts, ok := values[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected output type: %T", method, values[0])
	}
	return amounts, nil
}

func (r *Router) GetReserves(ctx context.Context, a, b market.Asset) (Reserves, error) {
	addrA, err := r.registry.Address(a)
	if err != nil {
		return Reserves{}, err
	}
	addrB, err := r.registry.Address(b)
	if err != nil {
		return Reserves{}, err
	}
	values, err := r.call(ctx, "getReserve", addrA, addrB)
	if err != nil {
		return Reserves{}, err
	}
	if len(values) != 2 {
		return Reserves{}, fmt.Errorf("getReserve: unexpected outputs: %d", len(values))
	}
	ra, okA := values[0].(*big.Int)
	rb, okB := values[1].(*big.Int)
	if !okA || !okB {
		return Reserves{}, fmt.Errorf("getReserve: unexpected output types: %T, %T", values[0], values[1])
	}
	r.logger.Debug("reserves fetched", "a", a, "b", b, "reserveA", ra.String(), "reserveB", rb.String())
	return Reserves{A: ra, B: rb}, nil
}

func (r *Router) Quote(ctx context.Context, amountIn, reserveA, reserveB *big.Int) (*big.Int, error) {
	return r.callUint(ctx, "quote", amountIn, reserveA, reserveB)
}

func (r *Router) AmountOut(ctx context.Context, amountIn, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	return r.callUint(ctx, "getAmountOut", amountIn, reserveIn, reserveOut)
}

func (r *Router) AmountIn(ctx context.Context, amountOut, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	return r.callUint(ctx, "getAmountIn", amountOut, reserveIn, reserveOut)
}

func (r *Router) AmountsOut(ctx context.Context, amountIn *big.Int, path market.Path) ([]*big.Int, error) {
	return r.callAmounts(ctx, "getAmountsOut", amountIn, path)
}

func (r *Router) AmountsIn(ctx context.Context, amountOut *big.Int, path market.Path) ([]*big.Int, error) {
	return r.callAmounts(ctx, "getAmountsIn", amountOut, path)
}

func (r *Router) Balance(ctx context.Context, account common.Address, asset market.Asset) (*big.Int, error) {
	if asset == r.registry.Native() {
		bal, err := r.backend.BalanceAt(ctx, account, nil)
		if err != nil {
			return nil, fmt.Errorf("eth_getBalance: %w", err)
		}
		return bal, nil
	}
	token, err := r.registry.Address(asset)
	if err != nil {
		return nil, err
	}
	input, err := tokenABI.Pack("balanceOf", account)
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}
	out, err := r.backend.CallContract(ctx, ethereum.CallMsg{To: &token, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("eth_call balanceOf: %w", err)
	}
	values, err := tokenABI.Unpack("balanceOf", out)
	if err != nil {
		return nil, fmt.Errorf("unpack balanceOf: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("balanceOf: unexpected outputs: %d", len(values))
	}
	bal, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf: unexpected output type: %T", values[0])
	}
	return bal, nil
}

// Approve lets the router spend amount of token on behalf of account. A
// reverted approval reports false without an error.
func (r *Router) Approve(ctx context.Context, account common.Address, token market.Asset, amount *big.Int) (bool, error) {
	addr, err := r.registry.Address(token)
	if err != nil {
		return false, err
	}
	data, err := tokenABI.Pack("approve", r.router, amount)
	if err != nil {
		return false, fmt.Errorf("pack approve: %w", err)
	}
	if _, err := r.transact(ctx, account, addr, nil, data); err != nil {
		if errors.Is(err, eth.ErrReverted) {
			r.logger.Warn("approval reverted", "token", token, "amount", amount.String())
			return false, nil
		}
		return false, err
	}
	r.logger.Info("approved", "token", token, "amount", amount.String(), "account", account.Hex())
	return true, nil
}

func (r *Router) DepositNative(ctx context.Context, account common.Address, amount *big.Int) error {
	weth, err := r.registry.Address(r.registry.Wrapped())
	if err != nil {
		return err
	}
	data, err := tokenABI.Pack("deposit")
	if err != nil {
		return fmt.Errorf("pack deposit: %w", err)
	}
	_, err = r.transact(ctx, account, weth, amount, data)
	return err
}

func (r *Router) SwapExactTokensForTokens(ctx context.Context, o SwapOrder) error {
	return r.swap(ctx, o, nil, "swapExactTokensForTokens", o.Amount, o.Limit)
}

func (r *Router) SwapExactETHForTokens(ctx context.Context, o SwapOrder) error {
	return r.swap(ctx, o, o.Amount, "swapExactETHForTokens", o.Limit)
}

func (r *Router) SwapExactTokensForETH(ctx context.Context, o SwapOrder) error {
	return r.swap(ctx, o, nil, "swapExactTokensForETH", o.Amount, o.Limit)
}

func (r *Router) SwapTokensForExactTokens(ctx context.Context, o SwapOrder) error {
	return r.swap(ctx, o, nil, "swapTokensForExactTokens", o.Amount, o.Limit)
}

func (r *Router) SwapETHForExactTokens(ctx context.Context, o SwapOrder) error {
	return r.swap(ctx, o, o.Limit, "swapETHForExactTokens", o.Amount)
}

func (r *Router) SwapTokensForExactETH(ctx context.Context, o SwapOrder) error {
	return r.swap(ctx, o, nil, "swapTokensForExactETH", o.Amount, o.Limit)
}

// swap packs method(lead..., path, to, deadline) and sends it with value.
func (r *Router) swap(ctx context.Context, o SwapOrder, value *big.Int, method string, lead ...*big.Int) error {
	addrs, err := r.registry.Addresses(o.Path)
	if err != nil {
		return err
	}
	args := make([]any, 0, len(lead)+3)
	for _, v := range lead {
		args = append(args, v)
	}
	args = append(args, addrs, o.Account, big.NewInt(o.Deadline.Unix()))

	data, err := routerABI.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("pack %s: %w", method, err)
	}
	receipt, err := r.transact(ctx, o.Account, r.router, value, data)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	r.logger.Info("swap confirmed", "method", method, "path", o.Path.Strings(), "tx", receipt.TxHash.Hex(), "block", receipt.BlockNumber)
	return nil
}

// transact signs and sends a legacy transaction from account and waits for
// its receipt.
func (r *Router) transact(ctx context.Context, account, to common.Address, value *big.Int, data []byte) (*types.Receipt, error) {
	signer, err := r.keyring.Signer(account)
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = new(big.Int)
	}
	chainID, err := r.chain(ctx)
	if err != nil {
		return nil, err
	}
	nonce, err := r.backend.PendingNonceAt(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	gasPrice, err := r.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}
	gas, err := r.backend.EstimateGas(ctx, ethereum.CallMsg{From: account, To: &to, Value: value, Data: data})
	if err != nil {
		return nil, fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &to,
		Value:    value,
		Data:     data,
	})
	signed, err := signer.SignTx(tx, chainID)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	if err := r.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}
	r.logger.Debug("transaction sent", "method", methodName(data), "tx", signed.Hash().Hex(), "to", to.Hex(), "nonce", nonce)

	return eth.WaitMined(ctx, r.backend, signed.Hash(), r.poll)
}

func (r *Router) chain(ctx context.Context) (*big.Int, error) {
	r.chainMu.Lock()
	defer r.chainMu.Unlock()
	if r.chainID != nil {
		return r.chainID, nil
	}
	id, err := r.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	r.chainID = id
	return id, nil
}

// methodName decodes the router or token method selected by calldata. It
// returns "" for unknown selectors.
func methodName(data []byte) string {
	if len(data) < 4 {
		return ""
	}
	for _, parsed := range []abi.ABI{routerABI, tokenABI} {
		if m, err := parsed.MethodById(data[:4]); err == nil {
			return m.Name
		}
	}
	return ""
}

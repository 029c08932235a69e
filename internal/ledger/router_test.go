package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/eth"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/market"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/pkg/uniswapv2"
)

const devKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var (
	routerAddr = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	wethAddr   = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	tkaAddr    = common.HexToAddress("0x00000000000000000000000000000000000000c3")
)

// CallArgs mirrors the transaction-call object sent by ethclient.
type CallArgs struct {
	From  *common.Address `json:"from"`
	To    *common.Address `json:"to"`
	Value *hexutil.Big    `json:"value"`
	Data  *hexutil.Bytes  `json:"data"`
	Input *hexutil.Bytes  `json:"input"`
}

func (a CallArgs) payload() []byte {
	if a.Input != nil {
		return *a.Input
	}
	if a.Data != nil {
		return *a.Data
	}
	return nil
}

type sentTx struct {
	method string
	to     common.Address
	value  *big.Int
	args   []any
}

type fakeChain struct {
	mu       sync.Mutex
	reserves map[[2]common.Address][2]*big.Int
	revert   map[string]bool
	sent     []sentTx
	receipts map[common.Hash]*types.Receipt
	nonce    uint64
	ether    map[common.Address]*big.Int
	tokens   map[[2]common.Address]*big.Int // (token, holder)
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		reserves: map[[2]common.Address][2]*big.Int{
			{wethAddr, tkaAddr}: {big.NewInt(1_000_000), big.NewInt(4_000_000)},
		},
		revert:   map[string]bool{},
		receipts: map[common.Hash]*types.Receipt{},
		ether:    map[common.Address]*big.Int{},
		tokens:   map[[2]common.Address]*big.Int{},
	}
}

func (f *fakeChain) reserveOf(a, b common.Address) (*big.Int, *big.Int, error) {
	if r, ok := f.reserves[[2]common.Address{a, b}]; ok {
		return r[0], r[1], nil
	}
	if r, ok := f.reserves[[2]common.Address{b, a}]; ok {
		return r[1], r[0], nil
	}
	return nil, nil, errors.New("no pool")
}

func (f *fakeChain) ChainId(ctx context.Context) (*hexutil.Big, error) {
	return (*hexutil.Big)(big.NewInt(31337)), nil
}

func (f *fakeChain) GasPrice(ctx context.Context) (*hexutil.Big, error) {
	return (*hexutil.Big)(big.NewInt(1_000_000_000)), nil
}

func (f *fakeChain) EstimateGas(ctx context.Context, args CallArgs, _ *gethrpc.BlockNumberOrHash) (hexutil.Uint64, error) {
	return hexutil.Uint64(200_000), nil
}

func (f *fakeChain) GetTransactionCount(ctx context.Context, addr common.Address, _ gethrpc.BlockNumberOrHash) (hexutil.Uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return hexutil.Uint64(f.nonce), nil
}

func (f *fakeChain) SendRawTransaction(ctx context.Context, raw hexutil.Bytes) (common.Hash, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, err
	}
	method := methodName(tx.Data())
	var args []any
	if m, err := routerABI.MethodById(tx.Data()[:4]); err == nil {
		args, _ = m.Inputs.Unpack(tx.Data()[4:])
	} else if m, err := tokenABI.MethodById(tx.Data()[:4]); err == nil {
		args, _ = m.Inputs.Unpack(tx.Data()[4:])
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.nonce++
	f.sent = append(f.sent, sentTx{method: method, to: *tx.To(), value: tx.Value(), args: args})

	status := types.ReceiptStatusSuccessful
	if f.revert[method] {
		status = types.ReceiptStatusFailed
	}
	f.receipts[tx.Hash()] = &types.Receipt{
		Status:      status,
		TxHash:      tx.Hash(),
		BlockNumber: big.NewInt(int64(f.nonce)),
		Logs:        []*types.Log{},
		GasUsed:     21_000,
	}
	return tx.Hash(), nil
}

func (f *fakeChain) GetTransactionReceipt(ctx context.Context, h common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.receipts[h], nil
}

func (f *fakeChain) GetBalance(ctx context.Context, addr common.Address, _ gethrpc.BlockNumberOrHash) (*hexutil.Big, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bal := f.ether[addr]
	if bal == nil {
		bal = new(big.Int)
	}
	return (*hexutil.Big)(bal), nil
}

func (f *fakeChain) tokenCall(to common.Address, data []byte) (hexutil.Bytes, error) {
	m, err := tokenABI.MethodById(data[:4])
	if err != nil {
		return nil, err
	}
	if m.Name != "balanceOf" {
		return nil, errors.New("unsupported token call " + m.Name)
	}
	in, err := m.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	bal := f.tokens[[2]common.Address{to, in[0].(common.Address)}]
	if bal == nil {
		bal = new(big.Int)
	}
	return m.Outputs.Pack(bal)
}

func (f *fakeChain) Call(ctx context.Context, args CallArgs, _ gethrpc.BlockNumberOrHash) (hexutil.Bytes, error) {
	data := args.payload()
	if len(data) < 4 {
		return nil, errors.New("short calldata")
	}
	if args.To != nil && *args.To != routerAddr {
		return f.tokenCall(*args.To, data)
	}
	m, err := routerABI.MethodById(data[:4])
	if err != nil {
		return nil, err
	}
	in, err := m.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	switch m.Name {
	case "getReserve":
		ra, rb, err := f.reserveOf(in[0].(common.Address), in[1].(common.Address))
		if err != nil {
			return nil, err
		}
		return m.Outputs.Pack(ra, rb)
	case "quote":
		out, err := uniswapv2.Quote(in[0].(*big.Int), in[1].(*big.Int), in[2].(*big.Int))
		if err != nil {
			return nil, err
		}
		return m.Outputs.Pack(out)
	case "getAmountOut":
		out, err := uniswapv2.AmountOut(in[0].(*big.Int), in[1].(*big.Int), in[2].(*big.Int))
		if err != nil {
			return nil, err
		}
		return m.Outputs.Pack(out)
	case "getAmountIn":
		out, err := uniswapv2.AmountIn(in[0].(*big.Int), in[1].(*big.Int), in[2].(*big.Int))
		if err != nil {
			return nil, err
		}
		return m.Outputs.Pack(out)
	case "getAmountsOut":
		out, err := uniswapv2.GetAmountsOut(in[0].(*big.Int), in[1].([]common.Address), f.reserveOf)
		if err != nil {
			return nil, err
		}
		return m.Outputs.Pack(out)
	case "getAmountsIn":
		out, err := uniswapv2.GetAmountsIn(in[0].(*big.Int), in[1].([]common.Address), f.reserveOf)
		if err != nil {
			return nil, err
		}
		return m.Outputs.Pack(out)
	}
	return nil, errors.New("unsupported call " + m.Name)
}

func newInprocRouter(t *testing.T, fc *fakeChain) (*Router, common.Address) {
	t.Helper()
	srv := gethrpc.NewServer()
	// Register under the standard "eth" namespace so methods map to eth_*
	if err := srv.RegisterName("eth", fc); err != nil {
		t.Fatalf("register rpc service: %v", err)
	}
	t.Cleanup(srv.Stop)
	client := ethclient.NewClient(gethrpc.DialInProc(srv))

	registry, err := market.NewRegistry(market.DefaultNative, market.DefaultWrapped, map[string]string{
		"swapRouter": routerAddr.Hex(),
		"WETH":       wethAddr.Hex(),
		"TKA":        tkaAddr.Hex(),
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	signer, err := eth.NewKeySigner(devKey)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(logger, client, registry, eth.NewKeyring(signer), routerAddr, time.Millisecond), signer.Address()
}

func TestRouter_Reads(t *testing.T) {
	t.Parallel()
	fc := newFakeChain()
	r, _ := newInprocRouter(t, fc)
	ctx := context.Background()

	res, err := r.GetReserves(ctx, "TKA", market.DefaultNative)
	if err != nil {
		t.Fatalf("GetReserves: %v", err)
	}
	if res.A.Int64() != 4_000_000 || res.B.Int64() != 1_000_000 {
		t.Fatalf("unexpected reserves: %s/%s", res.A, res.B)
	}

	q, err := r.Quote(ctx, big.NewInt(10), big.NewInt(100), big.NewInt(300))
	if err != nil || q.Int64() != 30 {
		t.Fatalf("Quote: %v %v", q, err)
	}

	out, err := r.AmountOut(ctx, big.NewInt(1_000), big.NewInt(1_000_000), big.NewInt(4_000_000))
	if err != nil {
		t.Fatalf("AmountOut: %v", err)
	}
	amounts, err := r.AmountsOut(ctx, big.NewInt(1_000), market.Path{market.DefaultNative, "TKA"})
	if err != nil {
		t.Fatalf("AmountsOut: %v", err)
	}
	if len(amounts) != 2 || amounts[1].Cmp(out) != 0 {
		t.Fatalf("AmountsOut mismatch: %v vs %s", amounts, out)
	}

	ins, err := r.AmountsIn(ctx, out, market.Path{market.DefaultNative, "TKA"})
	if err != nil {
		t.Fatalf("AmountsIn: %v", err)
	}
	if ins[0].Cmp(big.NewInt(1_000)) > 0 {
		t.Fatalf("AmountsIn overshoots: %s", ins[0])
	}

	if _, err := r.AmountsOut(ctx, big.NewInt(1), market.Path{"TKB", "TKA"}); !errors.Is(err, market.ErrMissingAddress) {
		t.Fatalf("expected ErrMissingAddress, got %v", err)
	}
}

func TestRouter_ApproveAndSwap(t *testing.T) {
	t.Parallel()
	fc := newFakeChain()
	r, account := newInprocRouter(t, fc)
	ctx := context.Background()

	ok, err := r.Approve(ctx, account, "TKA", big.NewInt(500))
	if err != nil || !ok {
		t.Fatalf("Approve: ok=%v err=%v", ok, err)
	}

	deadline := time.Unix(1_700_000_600, 0)
	err = r.SwapExactETHForTokens(ctx, SwapOrder{
		Account:  account,
		Amount:   big.NewInt(777),
		Limit:    big.NewInt(1),
		Path:     market.Path{market.DefaultNative, "TKA"},
		Deadline: deadline,
	})
	if err != nil {
		t.Fatalf("SwapExactETHForTokens: %v", err)
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()
	if len(fc.sent) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(fc.sent))
	}
	approve := fc.sent[0]
	if approve.method != "approve" || approve.to != tkaAddr {
		t.Fatalf("unexpected approve tx: %+v", approve)
	}
	if spender := approve.args[0].(common.Address); spender != routerAddr {
		t.Fatalf("approve spender %s, want router", spender.Hex())
	}

	swap := fc.sent[1]
	if swap.method != "swapExactETHForTokens" || swap.to != routerAddr {
		t.Fatalf("unexpected swap tx: %+v", swap)
	}
	if swap.value.Int64() != 777 {
		t.Fatalf("swap value %s, want 777", swap.value)
	}
	path := swap.args[1].([]common.Address)
	if len(path) != 2 || path[0] != wethAddr || path[1] != tkaAddr {
		t.Fatalf("unexpected path: %v", path)
	}
	if to := swap.args[2].(common.Address); to != account {
		t.Fatalf("recipient %s, want %s", to.Hex(), account.Hex())
	}
	if dl := swap.args[3].(*big.Int); dl.Int64() != deadline.Unix() {
		t.Fatalf("deadline %s, want %d", dl, deadline.Unix())
	}
}

func TestRouter_Balance(t *testing.T) {
	t.Parallel()
	fc := newFakeChain()
	r, account := newInprocRouter(t, fc)
	fc.ether[account] = big.NewInt(5_000)
	fc.tokens[[2]common.Address{tkaAddr, account}] = big.NewInt(42)
	ctx := context.Background()

	bal, err := r.Balance(ctx, account, market.DefaultNative)
	if err != nil || bal.Int64() != 5_000 {
		t.Fatalf("native balance: %v %v", bal, err)
	}
	bal, err = r.Balance(ctx, account, "TKA")
	if err != nil || bal.Int64() != 42 {
		t.Fatalf("token balance: %v %v", bal, err)
	}
	bal, err = r.Balance(ctx, account, market.DefaultWrapped)
	if err != nil || bal.Sign() != 0 {
		t.Fatalf("wrapped balance: %v %v", bal, err)
	}
	if _, err := r.Balance(ctx, account, "TKB"); !errors.Is(err, market.ErrMissingAddress) {
		t.Fatalf("expected ErrMissingAddress, got %v", err)
	}
}

func TestRouter_ApproveReverted(t *testing.T) {
	t.Parallel()
	fc := newFakeChain()
	fc.revert["approve"] = true
	r, account := newInprocRouter(t, fc)

	ok, err := r.Approve(context.Background(), account, "TKA", big.NewInt(1))
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if ok {
		t.Fatalf("expected reverted approval to report false")
	}
}

func TestRouter_SwapReverted(t *testing.T) {
	t.Parallel()
	fc := newFakeChain()
	fc.revert["swapTokensForExactETH"] = true
	r, account := newInprocRouter(t, fc)

	err := r.SwapTokensForExactETH(context.Background(), SwapOrder{
		Account:  account,
		Amount:   big.NewInt(10),
		Limit:    big.NewInt(100),
		Path:     market.Path{"TKA", market.DefaultNative},
		Deadline: time.Now().Add(DeadlineWindow),
	})
	if !errors.Is(err, eth.ErrReverted) {
		t.Fatalf("expected ErrReverted, got %v", err)
	}
}

func TestRouter_UnknownAccount(t *testing.T) {
	t.Parallel()
	fc := newFakeChain()
	r, _ := newInprocRouter(t, fc)

	err := r.DepositNative(context.Background(), common.HexToAddress("0x01"), big.NewInt(1))
	if !errors.Is(err, eth.ErrUnknownAccount) {
		t.Fatalf("expected ErrUnknownAccount, got %v", err)
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if len(fc.sent) != 0 {
		t.Fatalf("no transaction may be sent, got %d", len(fc.sent))
	}
}

func TestMethodNameFromCalldata(t *testing.T) {
	data, err := routerABI.Pack("quote", big.NewInt(1), big.NewInt(1), big.NewInt(1))
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if got := methodName(data); got != "quote" {
		t.Fatalf("methodName = %q", got)
	}
	if got := methodName([]byte{1, 2}); got != "" {
		t.Fatalf("methodName(short) = %q", got)
	}
}

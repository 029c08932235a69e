package uniswapv2

import (
	"errors"
	"math/big"
)

// fee: 0.3% => multiplier 997/1000
var (
	feeMul = big.NewInt(997)
	feeDen = big.NewInt(1000)
)

var (
	ErrInsufficientAmount    = errors.New("uniswapv2: insufficient amount")
	ErrInsufficientLiquidity = errors.New("uniswapv2: insufficient liquidity")
	ErrInvalidPath           = errors.New("uniswapv2: invalid path")
)

// ReserveFunc returns the reserves of the pool between a and b, oriented so
// that the first value belongs to a.
type ReserveFunc[T any] func(a, b T) (reserveA, reserveB *big.Int, err error)

func GetAmountOut(dst, t1, t2 *big.Int, amountIn, reserveIn, reserveOut *big.Int) *big.Int {
	// t1 = amountIn * 997
	t1.Mul(amountIn, feeMul)
	// t2 = reserveIn * 1000
	t2.Mul(reserveIn, feeDen)
	// t2 = t2 + t1  (denominator)
	t2.Add(t2, t1)
	// dst = t1 * reserveOut (numerator)
	dst.Mul(t1, reserveOut)
	// dst = dst / t2  (avoid aliasing z==y)
	return dst.Div(dst, t2)
}

// GetAmountIn returns the smallest input that yields amountOut:
//
//	amountIn = reserveIn*amountOut*1000 / ((reserveOut-amountOut)*997) + 1
//
// amountOut must be strictly below reserveOut.
func GetAmountIn(dst, t1, t2 *big.Int, amountOut, reserveIn, reserveOut *big.Int) *big.Int {
	t1.Mul(reserveIn, amountOut)
	t1.Mul(t1, feeDen)
	t2.Sub(reserveOut, amountOut)
	t2.Mul(t2, feeMul)
	dst.Div(t1, t2)
	return dst.Add(dst, big.NewInt(1))
}

// Quote returns the fee-less proportional amount amountA*reserveB/reserveA.
func Quote(amountA, reserveA, reserveB *big.Int) (*big.Int, error) {
	if amountA.Sign() <= 0 {
		return nil, ErrInsufficientAmount
	}
	if reserveA.Sign() <= 0 || reserveB.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}
	out := new(big.Int).Mul(amountA, reserveB)
	return out.Div(out, reserveA), nil
}

// AmountOut is the checked form of GetAmountOut.
func AmountOut(amountIn, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	if amountIn.Sign() <= 0 {
		return nil, ErrInsufficientAmount
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}
	var dst, t1, t2 big.Int
	return new(big.Int).Set(GetAmountOut(&dst, &t1, &t2, amountIn, reserveIn, reserveOut)), nil
}

// AmountIn is the checked form of GetAmountIn.
func AmountIn(amountOut, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	if amountOut.Sign() <= 0 {
		return nil, ErrInsufficientAmount
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 || amountOut.Cmp(reserveOut) >= 0 {
		return nil, ErrInsufficientLiquidity
	}
	var dst, t1, t2 big.Int
	return new(big.Int).Set(GetAmountIn(&dst, &t1, &t2, amountOut, reserveIn, reserveOut)), nil
}

// GetAmountsOut walks path hop by hop. The result has one entry per path
// element; the first is amountIn and the last is the terminal output.
func GetAmountsOut[T any](amountIn *big.Int, path []T, reserves ReserveFunc[T]) ([]*big.Int, error) {
	if len(path) < 2 {
		return nil, ErrInvalidPath
	}
	amounts := make([]*big.Int, len(path))
	amounts[0] = new(big.Int).Set(amountIn)
	for i := 0; i < len(path)-1; i++ {
		rIn, rOut, err := reserves(path[i], path[i+1])
		if err != nil {
			return nil, err
		}
		out, err := AmountOut(amounts[i], rIn, rOut)
		if err != nil {
			return nil, err
		}
		amounts[i+1] = out
	}
	return amounts, nil
}

// GetAmountsIn walks path backwards from the terminal amountOut. The first
// entry is the required input.
func GetAmountsIn[T any](amountOut *big.Int, path []T, reserves ReserveFunc[T]) ([]*big.Int, error) {
	if len(path) < 2 {
		return nil, ErrInvalidPath
	}
	amounts := make([]*big.Int, len(path))
	amounts[len(path)-1] = new(big.Int).Set(amountOut)
	for i := len(path) - 1; i > 0; i-- {
		rIn, rOut, err := reserves(path[i-1], path[i])
		if err != nil {
			return nil, err
		}
		in, err := AmountIn(amounts[i], rIn, rOut)
		if err != nil {
			return nil, err
		}
		amounts[i-1] = in
	}
	return amounts, nil
}

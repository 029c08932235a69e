package uniswapv2

import (
	"errors"
	"math/big"
	"testing"
)

func TestGetAmountOut(t *testing.T) {
	// Example: reserves 1000000 : 1000000, amountIn 1000
	rIn := big.NewInt(1_000_000)
	rOut := big.NewInt(1_000_000)
	amountIn := big.NewInt(1_000)

	// dst/t1/t2 are re-used temporaries
	var dst, t1, t2 big.Int
	out := GetAmountOut(&dst, &t1, &t2, amountIn, rIn, rOut)

	// compute expected using same formula to assert determinism and non-zero
	amountInWithFee := new(big.Int).Mul(amountIn, big.NewInt(997))
	numerator := new(big.Int).Mul(amountInWithFee, rOut)
	denominator := new(big.Int).Mul(rIn, big.NewInt(1000))
	denominator.Add(denominator, amountInWithFee)
	expected := new(big.Int).Div(numerator, denominator)

	if out.Cmp(expected) != 0 {
		t.Fatalf("unexpected: got %s want %s", out, expected)
	}
	if out.Sign() <= 0 {
		t.Fatalf("amountOut should be positive")
	}
}

func TestGetAmountIn_CoversAmountOut(t *testing.T) {
	rIn := big.NewInt(5_000_000)
	rOut := big.NewInt(9_000_000)

	for _, want := range []int64{1, 999, 12_345, 4_000_000} {
		in, err := AmountIn(big.NewInt(want), rIn, rOut)
		if err != nil {
			t.Fatalf("AmountIn(%d): %v", want, err)
		}
		got, err := AmountOut(in, rIn, rOut)
		if err != nil {
			t.Fatalf("AmountOut(%s): %v", in, err)
		}
		if got.Cmp(big.NewInt(want)) < 0 {
			t.Fatalf("input %s yields %s, below requested %d", in, got, want)
		}
		// one unit less must not be enough
		less := new(big.Int).Sub(in, big.NewInt(1))
		if less.Sign() > 0 {
			short, _ := AmountOut(less, rIn, rOut)
			if short.Cmp(big.NewInt(want)) >= 0 {
				t.Fatalf("input %s is not minimal for %d", in, want)
			}
		}
	}
}

func TestAmountIn_ExceedsReserve(t *testing.T) {
	_, err := AmountIn(big.NewInt(100), big.NewInt(1_000), big.NewInt(100))
	if !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}
}

func TestQuote(t *testing.T) {
	out, err := Quote(big.NewInt(10), big.NewInt(200), big.NewInt(500))
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if out.Int64() != 25 {
		t.Fatalf("unexpected quote: %s", out)
	}
	if _, err := Quote(big.NewInt(0), big.NewInt(1), big.NewInt(1)); !errors.Is(err, ErrInsufficientAmount) {
		t.Fatalf("expected ErrInsufficientAmount, got %v", err)
	}
	if _, err := Quote(big.NewInt(1), big.NewInt(0), big.NewInt(1)); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}
}

func TestGetAmountsRoundTrip(t *testing.T) {
	pools := map[[2]string][2]*big.Int{
		{"A", "B"}: {big.NewInt(10_000_000), big.NewInt(20_000_000)},
	}
	reserves := func(a, b string) (*big.Int, *big.Int, error) {
		if r, ok := pools[[2]string{a, b}]; ok {
			return r[0], r[1], nil
		}
		if r, ok := pools[[2]string{b, a}]; ok {
			return r[1], r[0], nil
		}
		return nil, nil, ErrInvalidPath
	}

	x := big.NewInt(50_000)
	outs, err := GetAmountsOut(x, []string{"A", "B"}, reserves)
	if err != nil {
		t.Fatalf("GetAmountsOut: %v", err)
	}
	if len(outs) != 2 || outs[0].Cmp(x) != 0 {
		t.Fatalf("unexpected amounts: %v", outs)
	}

	ins, err := GetAmountsIn(outs[1], []string{"A", "B"}, reserves)
	if err != nil {
		t.Fatalf("GetAmountsIn: %v", err)
	}
	back := ins[0]

	// The minimal input for the produced output never exceeds x and only
	// differs from it by integer rounding, well inside the 0.3% fee.
	spread := new(big.Int).Div(new(big.Int).Mul(x, big.NewInt(3)), big.NewInt(1000))
	diff := new(big.Int).Sub(x, back)
	if diff.Sign() < 0 || diff.Cmp(spread) > 0 {
		t.Fatalf("round trip drifted: x=%s back=%s spread=%s", x, back, spread)
	}
}

func TestGetAmounts_InvalidPath(t *testing.T) {
	noop := func(a, b string) (*big.Int, *big.Int, error) { return nil, nil, nil }
	if _, err := GetAmountsOut(big.NewInt(1), []string{"A"}, noop); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}
	if _, err := GetAmountsIn(big.NewInt(1), []string(nil), noop); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}
}

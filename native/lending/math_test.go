package lending

import (
	"math/big"
	"testing"
)

func TestRayMulRoundsHalfUp(t *testing.T) {
	half := new(big.Int).Rsh(ray, 1) // 0.5 ray
	got := rayMul(big.NewInt(3), half)
	if got.Cmp(big.NewInt(2)) != 0 {
		t.Fatalf("expected 1.5 to round to 2, got %s", got)
	}
	got = rayMul(big.NewInt(2), half)
	if got.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("expected 1.0 exact, got %s", got)
	}
}

func TestRayDivRoundTrip(t *testing.T) {
	index := new(big.Int).Mul(ray, big.NewInt(3))
	index.Quo(index, big.NewInt(2)) // 1.5 ray
	amount := big.NewInt(1_000_000)
	scaled := rayDiv(amount, index)
	back := rayMul(scaled, index)
	diff := new(big.Int).Sub(back, amount)
	if diff.CmpAbs(big.NewInt(1)) > 0 {
		t.Fatalf("round trip drifted by %s", diff)
	}
}

func TestRayDivByZeroPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on zero denominator")
		}
	}()
	rayDiv(big.NewInt(1), big.NewInt(0))
}

func TestPercentMul(t *testing.T) {
	got := percentMul(big.NewInt(10_000), 2500)
	if got.Cmp(big.NewInt(2500)) != 0 {
		t.Fatalf("expected 2500, got %s", got)
	}
	// 333 * 33.33% = 110.9889 rounds to 111.
	got = percentMul(big.NewInt(333), 3333)
	if got.Cmp(big.NewInt(111)) != 0 {
		t.Fatalf("expected 111, got %s", got)
	}
	if percentMul(big.NewInt(100), 0).Sign() != 0 {
		t.Fatalf("zero bps must yield zero")
	}
}

func TestLinearInterestIdentity(t *testing.T) {
	if linearInterest(big.NewInt(0), 100).Cmp(ray) != 0 {
		t.Fatalf("zero rate must return one ray")
	}
	if linearInterest(mustBigInt("50000000000000000000000000"), 0).Cmp(ray) != 0 {
		t.Fatalf("zero delta must return one ray")
	}
}

func TestCompoundedExceedsLinear(t *testing.T) {
	rate := mustBigInt("100000000000000000000000000") // 10% APR
	delta := uint64(secondsPerYear / 2)
	linear := linearInterest(rate, delta)
	compounded := compoundedInterest(rate, delta)
	if compounded.Cmp(linear) < 0 {
		t.Fatalf("compounded %s below linear %s", compounded, linear)
	}
	if compounded.Cmp(ray) <= 0 {
		t.Fatalf("compounded factor must exceed one ray")
	}
}

func TestRatToRayRounding(t *testing.T) {
	// Exactly representable rationals convert without a stray unit.
	half := ratToRay(big.NewRat(1, 2))
	if half.Cmp(new(big.Int).Rsh(ray, 1)) != 0 {
		t.Fatalf("0.5 ray: got %s", half)
	}
	// 1/3 ray leaves a remainder below one half and must round down.
	third := ratToRay(big.NewRat(1, 3))
	if third.Cmp(mustBigInt("333333333333333333333333333")) != 0 {
		t.Fatalf("1/3 ray: got %s", third)
	}
	// A remainder of exactly one half rounds up.
	up := ratToRay(new(big.Rat).SetFrac(big.NewInt(3), new(big.Int).Lsh(ray, 1)))
	if up.Cmp(big.NewInt(2)) != 0 {
		t.Fatalf("1.5 units: got %s", up)
	}
}

func TestUSDConversionRoundTrip(t *testing.T) {
	price := new(big.Int).Mul(wad, big.NewInt(50)) // $50
	amount := big.NewInt(12_345)
	value := usdValue(amount, price, 0)
	back := assetUnits(value, price, 0)
	if back.Cmp(amount) != 0 {
		t.Fatalf("usd round trip: got %s want %s", back, amount)
	}
}

func TestUSDValueRespectsDecimals(t *testing.T) {
	price := new(big.Int).Mul(wad, big.NewInt(2)) // $2 per whole token
	amount := mustBigInt("1000000000000000000")   // one token at 18 decimals
	value := usdValue(amount, price, 18)
	if value.Cmp(new(big.Int).Mul(wad, big.NewInt(2))) != 0 {
		t.Fatalf("expected $2, got %s", value)
	}
}

func TestUSDValueExactAtZeroDecimals(t *testing.T) {
	// At zero decimals the unit divisor is one and the valuation must come
	// out exact to the wei, or cap boundaries drift.
	value := usdValue(big.NewInt(2), wad, 0)
	if value.Cmp(new(big.Int).Mul(wad, big.NewInt(2))) != 0 {
		t.Fatalf("expected exactly $2, got %s", value)
	}
}

package lending

import (
	"math/big"
	"testing"
)

func rayFrom(t *testing.T, value string) *big.Int {
	t.Helper()
	v, err := parseRay(value)
	if err != nil {
		t.Fatalf("parse ray %q: %v", value, err)
	}
	return v
}

func testStrategy() InterestRateStrategy {
	return NewInterestRateStrategy("0.8", "0.02", "0.04", "0.6", "0.02")
}

func TestStrategyConstantsParseExactly(t *testing.T) {
	s := testStrategy()
	checks := []struct {
		name string
		got  *big.Int
		want string
	}{
		{"optimal utilization", s.OptimalUtilization, "800000000000000000000000000"},
		{"base rate", s.BaseVariableBorrowRate, "20000000000000000000000000"},
		{"slope1", s.VariableRateSlope1, "40000000000000000000000000"},
		{"slope2", s.VariableRateSlope2, "600000000000000000000000000"},
		{"spread", s.StableRateSpread, "20000000000000000000000000"},
	}
	for _, c := range checks {
		if c.got.Cmp(mustBigInt(c.want)) != 0 {
			t.Fatalf("%s: got %s want %s", c.name, c.got, c.want)
		}
	}
}

func TestUtilizationZeroWithoutDebt(t *testing.T) {
	s := testStrategy()
	if s.Utilization(big.NewInt(1000), big.NewInt(0)).Sign() != 0 {
		t.Fatalf("utilization must be zero without debt")
	}
}

func TestUtilizationHalf(t *testing.T) {
	s := testStrategy()
	got := s.Utilization(big.NewInt(500), big.NewInt(500))
	want := rayFrom(t, "0.5")
	if got.Cmp(want) != 0 {
		t.Fatalf("utilization: got %s want %s", got, want)
	}
}

func TestCalculateRatesBelowKink(t *testing.T) {
	s := testStrategy()
	// 4000 variable debt against 6000 idle liquidity is 40% utilisation,
	// half way to the 80% kink.
	liquidity, _, variable := s.CalculateRates(
		big.NewInt(6000), big.NewInt(0), big.NewInt(4000),
		big.NewInt(0), nil, false, 0,
	)
	if want := rayFrom(t, "0.04"); variable.Cmp(want) != 0 {
		t.Fatalf("variable rate: got %s want %s", variable, want)
	}
	if want := rayFrom(t, "0.016"); liquidity.Cmp(want) != 0 {
		t.Fatalf("liquidity rate: got %s want %s", liquidity, want)
	}
}

func TestCalculateRatesAboveKink(t *testing.T) {
	s := testStrategy()
	// 9000 variable debt against 1000 idle liquidity is 90% utilisation,
	// half way through the steep region.
	liquidity, _, variable := s.CalculateRates(
		big.NewInt(1000), big.NewInt(0), big.NewInt(9000),
		big.NewInt(0), nil, false, 0,
	)
	if want := rayFrom(t, "0.36"); variable.Cmp(want) != 0 {
		t.Fatalf("variable rate: got %s want %s", variable, want)
	}
	if want := rayFrom(t, "0.324"); liquidity.Cmp(want) != 0 {
		t.Fatalf("liquidity rate: got %s want %s", liquidity, want)
	}
}

func TestStableRatePrefersMarketQuote(t *testing.T) {
	s := testStrategy()
	market := rayFrom(t, "0.1")
	_, stable, _ := s.CalculateRates(
		big.NewInt(6000), big.NewInt(0), big.NewInt(4000),
		big.NewInt(0), market, true, 0,
	)
	if want := rayFrom(t, "0.12"); stable.Cmp(want) != 0 {
		t.Fatalf("stable rate with oracle: got %s want %s", stable, want)
	}
}

func TestStableRateFallsBackToVariable(t *testing.T) {
	s := testStrategy()
	_, stable, variable := s.CalculateRates(
		big.NewInt(6000), big.NewInt(0), big.NewInt(4000),
		big.NewInt(0), nil, false, 0,
	)
	want := new(big.Int).Add(variable, rayFrom(t, "0.02"))
	if stable.Cmp(want) != 0 {
		t.Fatalf("stable fallback: got %s want %s", stable, want)
	}
}

func TestLiquidityRateAppliesReserveFactor(t *testing.T) {
	s := testStrategy()
	liquidity, _, _ := s.CalculateRates(
		big.NewInt(6000), big.NewInt(0), big.NewInt(4000),
		big.NewInt(0), nil, false, 2000,
	)
	if want := rayFrom(t, "0.0128"); liquidity.Cmp(want) != 0 {
		t.Fatalf("liquidity rate with factor: got %s want %s", liquidity, want)
	}
}

func TestOverallBorrowRateWeighted(t *testing.T) {
	got := overallBorrowRate(
		big.NewInt(1000), big.NewInt(3000),
		rayFrom(t, "0.2"), rayFrom(t, "0.04"),
	)
	// (1000*0.2 + 3000*0.04) / 4000 = 0.08
	if want := rayFrom(t, "0.08"); got.Cmp(want) != 0 {
		t.Fatalf("overall rate: got %s want %s", got, want)
	}
}

package lending

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestStableBalanceCompoundsLazily(t *testing.T) {
	p := &Position{
		StablePrincipal:  big.NewInt(10_000),
		StableRate:       rayFrom(t, "0.1"),
		StableLastUpdate: 0,
	}
	p.ensureDefaults()
	if got := stableBalanceOf(p, 0); got.Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("balance at last update: got %s", got)
	}
	grown := stableBalanceOf(p, secondsPerYear)
	if grown.Cmp(big.NewInt(10_000)) <= 0 {
		t.Fatalf("balance did not compound: %s", grown)
	}
	// The read is pure; stored principal stays untouched.
	if p.StablePrincipal.Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("stableBalanceOf mutated principal")
	}
}

func TestMintStableBlendsPositionRate(t *testing.T) {
	r := NewReserve(common.HexToAddress("0x00000000000000000000000000000000000000A1"))
	p := &Position{
		StablePrincipal:  big.NewInt(1000),
		StableRate:       rayFrom(t, "0.1"),
		StableLastUpdate: 50,
	}
	p.ensureDefaults()
	r.TotalStableDebt = big.NewInt(1000)
	r.AverageStableBorrowRate = rayFrom(t, "0.1")

	balance, increase := r.mintStableDebt(p, big.NewInt(1000), rayFrom(t, "0.2"), 50)
	if balance.Cmp(big.NewInt(2000)) != 0 {
		t.Fatalf("new balance: got %s want 2000", balance)
	}
	if increase.Sign() != 0 {
		t.Fatalf("no time passed, expected zero accrued increase, got %s", increase)
	}
	if want := rayFrom(t, "0.15"); p.StableRate.Cmp(want) != 0 {
		t.Fatalf("blended rate: got %s want %s", p.StableRate, want)
	}
	if want := rayFrom(t, "0.15"); r.AverageStableBorrowRate.Cmp(want) != 0 {
		t.Fatalf("pool average: got %s want %s", r.AverageStableBorrowRate, want)
	}
	if r.TotalStableDebt.Cmp(big.NewInt(2000)) != 0 {
		t.Fatalf("pool total: got %s", r.TotalStableDebt)
	}
}

func TestMintStableFirstBorrowTakesMarketRate(t *testing.T) {
	r := NewReserve(common.HexToAddress("0x00000000000000000000000000000000000000A1"))
	p := &Position{}
	p.ensureDefaults()
	market := rayFrom(t, "0.12")
	balance, _ := r.mintStableDebt(p, big.NewInt(500), market, 10)
	if balance.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("balance: got %s", balance)
	}
	if p.StableRate.Cmp(market) != 0 {
		t.Fatalf("first borrow rate: got %s want %s", p.StableRate, market)
	}
	if p.StableLastUpdate != 10 {
		t.Fatalf("last update not stamped")
	}
}

func TestBurnStableFullRepayDeletesPosition(t *testing.T) {
	r := NewReserve(common.HexToAddress("0x00000000000000000000000000000000000000A1"))
	p := &Position{
		StablePrincipal:  big.NewInt(1000),
		StableRate:       rayFrom(t, "0.1"),
		StableLastUpdate: 100,
	}
	p.ensureDefaults()
	r.TotalStableDebt = big.NewInt(1000)
	r.AverageStableBorrowRate = rayFrom(t, "0.1")

	remaining := r.burnStableDebt(p, big.NewInt(1000), 100)
	if remaining.Sign() != 0 {
		t.Fatalf("remaining: got %s", remaining)
	}
	if p.StablePrincipal.Sign() != 0 || p.StableRate.Sign() != 0 || p.StableLastUpdate != 0 {
		t.Fatalf("position not cleared: %+v", p)
	}
	if r.TotalStableDebt.Sign() != 0 || r.AverageStableBorrowRate.Sign() != 0 {
		t.Fatalf("pool book not cleared")
	}
}

func TestBurnStableReweightsPoolAverage(t *testing.T) {
	r := NewReserve(common.HexToAddress("0x00000000000000000000000000000000000000A1"))
	// Pool carries 2000 at a 15% average; the burning position locked 10%.
	r.TotalStableDebt = big.NewInt(2000)
	r.AverageStableBorrowRate = rayFrom(t, "0.15")
	p := &Position{
		StablePrincipal:  big.NewInt(1000),
		StableRate:       rayFrom(t, "0.1"),
		StableLastUpdate: 100,
	}
	p.ensureDefaults()

	remaining := r.burnStableDebt(p, big.NewInt(1000), 100)
	if remaining.Sign() != 0 {
		t.Fatalf("remaining: got %s", remaining)
	}
	if r.TotalStableDebt.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("pool total: got %s", r.TotalStableDebt)
	}
	// (2000*0.15 - 1000*0.10) / 1000 = 0.20
	if want := rayFrom(t, "0.2"); r.AverageStableBorrowRate.Cmp(want) != 0 {
		t.Fatalf("reweighted average: got %s want %s", r.AverageStableBorrowRate, want)
	}
}

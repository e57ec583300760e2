package lending

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestVariableMintBurnRoundTrip(t *testing.T) {
	r := NewReserve(common.HexToAddress("0x00000000000000000000000000000000000000A1"))
	p := &Position{}
	p.ensureDefaults()

	balance := r.mintVariableDebt(p, big.NewInt(1000))
	if balance.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("minted balance: got %s", balance)
	}
	if r.ScaledVariableDebt.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("pool scaled debt: got %s", r.ScaledVariableDebt)
	}

	remaining := r.burnVariableDebt(p, big.NewInt(1000))
	if remaining.Sign() != 0 {
		t.Fatalf("remaining: got %s", remaining)
	}
	if p.ScaledVariableDebt.Sign() != 0 || r.ScaledVariableDebt.Sign() != 0 {
		t.Fatalf("scaled balances not cleared")
	}
}

func TestVariableMintAtGrownIndex(t *testing.T) {
	r := NewReserve(common.HexToAddress("0x00000000000000000000000000000000000000A1"))
	r.VariableBorrowIndex = new(big.Int).Mul(ray, big.NewInt(2))
	p := &Position{}
	p.ensureDefaults()

	balance := r.mintVariableDebt(p, big.NewInt(1000))
	if p.ScaledVariableDebt.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("scaled debt: got %s want 500", p.ScaledVariableDebt)
	}
	diff := new(big.Int).Sub(balance, big.NewInt(1000))
	if diff.CmpAbs(big.NewInt(1)) > 0 {
		t.Fatalf("balance drifted by %s", diff)
	}
}

func TestVariableDustRoundsUpToOneScaledUnit(t *testing.T) {
	r := NewReserve(common.HexToAddress("0x00000000000000000000000000000000000000A1"))
	r.VariableBorrowIndex = new(big.Int).Mul(ray, big.NewInt(3))
	p := &Position{}
	p.ensureDefaults()

	r.mintVariableDebt(p, big.NewInt(1))
	if p.ScaledVariableDebt.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("dust borrow must keep one scaled unit, got %s", p.ScaledVariableDebt)
	}
}

func TestVariableBurnClampsToBalance(t *testing.T) {
	r := NewReserve(common.HexToAddress("0x00000000000000000000000000000000000000A1"))
	p := &Position{}
	p.ensureDefaults()
	r.mintVariableDebt(p, big.NewInt(100))

	remaining := r.burnVariableDebt(p, big.NewInt(10_000))
	if remaining.Sign() != 0 {
		t.Fatalf("remaining: got %s", remaining)
	}
	if r.ScaledVariableDebt.Sign() != 0 {
		t.Fatalf("pool scaled debt went negative path")
	}
}

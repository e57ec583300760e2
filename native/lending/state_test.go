package lending

import (
	"math/big"
	"testing"

	"lendpool/storage"
)

func TestStoreStateRoundTrip(t *testing.T) {
	state := NewStoreState(storage.NewMemDB())

	reserve := NewReserve(colAsset)
	reserve.AvailableLiquidity = big.NewInt(5000)
	reserve.LastUpdateTimestamp = 42
	if err := state.PutReserve(colAsset, reserve); err != nil {
		t.Fatalf("put reserve: %v", err)
	}
	loaded, err := state.GetReserve(colAsset)
	if err != nil {
		t.Fatalf("get reserve: %v", err)
	}
	if loaded.AvailableLiquidity.Cmp(big.NewInt(5000)) != 0 || loaded.LastUpdateTimestamp != 42 {
		t.Fatalf("reserve round trip: %+v", loaded)
	}
	if loaded.LiquidityIndex.Cmp(ray) != 0 {
		t.Fatalf("liquidity index lost: %s", loaded.LiquidityIndex)
	}

	assets, err := state.ReserveAssets()
	if err != nil {
		t.Fatalf("reserve assets: %v", err)
	}
	if len(assets) != 1 || assets[0] != colAsset {
		t.Fatalf("asset index: %v", assets)
	}
	// Re-storing the reserve must not duplicate the index entry.
	if err := state.PutReserve(colAsset, reserve); err != nil {
		t.Fatalf("re-put reserve: %v", err)
	}
	if assets, _ = state.ReserveAssets(); len(assets) != 1 {
		t.Fatalf("asset index duplicated: %v", assets)
	}

	position := &Position{Address: alice, ScaledDeposit: big.NewInt(77), UsingAsCollateral: true}
	position.ensureDefaults()
	if err := state.PutPosition(colAsset, position); err != nil {
		t.Fatalf("put position: %v", err)
	}
	got, err := state.GetPosition(colAsset, alice)
	if err != nil {
		t.Fatalf("get position: %v", err)
	}
	if got.ScaledDeposit.Cmp(big.NewInt(77)) != 0 || !got.UsingAsCollateral {
		t.Fatalf("position round trip: %+v", got)
	}
	if missing, err := state.GetPosition(colAsset, bob); err != nil || missing != nil {
		t.Fatalf("missing position should be nil, got %+v err %v", missing, err)
	}
}

func TestStoreStateDelegationAndOptIn(t *testing.T) {
	state := NewStoreState(storage.NewMemDB())

	if err := state.PutDelegation(alice, carol, big.NewInt(900)); err != nil {
		t.Fatalf("put delegation: %v", err)
	}
	allowance, err := state.Delegation(alice, carol)
	if err != nil || allowance.Cmp(big.NewInt(900)) != 0 {
		t.Fatalf("delegation round trip: %s err %v", allowance, err)
	}
	// Zero revokes and removes the record.
	if err := state.PutDelegation(alice, carol, big.NewInt(0)); err != nil {
		t.Fatalf("revoke delegation: %v", err)
	}
	if allowance, _ = state.Delegation(alice, carol); allowance != nil {
		t.Fatalf("revoked delegation still present: %s", allowance)
	}

	if err := state.PutGeniusLoanApproval(alice, true); err != nil {
		t.Fatalf("opt in: %v", err)
	}
	if ok, _ := state.GeniusLoanApproved(alice); !ok {
		t.Fatalf("opt-in not stored")
	}
	if err := state.PutGeniusLoanApproval(alice, false); err != nil {
		t.Fatalf("opt out: %v", err)
	}
	if ok, _ := state.GeniusLoanApproved(alice); ok {
		t.Fatalf("opt-out not stored")
	}
}

func TestEngineOverPersistentState(t *testing.T) {
	h := newHarness(twoMarkets())
	h.engine.SetState(NewStoreState(storage.NewMemDB()))
	h.prices.prices[colAsset] = dollars(1)
	h.prices.prices[govAsset] = dollars(1)

	h.deposit(t, depositor, govAsset, 10_000)
	h.deposit(t, bob, colAsset, 1000)
	if _, err := h.engine.Borrow(bob, govAsset, big.NewInt(500), RateModeVariable, bob, nil); err != nil {
		t.Fatalf("borrow over persistent state: %v", err)
	}
	account, err := h.engine.AccountData(bob)
	if err != nil {
		t.Fatalf("account data: %v", err)
	}
	if account.TotalDebtUSD.Cmp(dollars(500)) != 0 {
		t.Fatalf("debt USD: got %s", account.TotalDebtUSD)
	}
}

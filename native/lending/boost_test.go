package lending

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

type mockBoostRegistry struct {
	owner  common.Address
	locked bool
	tier   BoostTier
}

func (r *mockBoostRegistry) OwnerOf(*big.Int) (common.Address, bool) {
	if r.owner == (common.Address{}) {
		return common.Address{}, false
	}
	return r.owner, true
}

func (r *mockBoostRegistry) IsLocked(*big.Int) bool { return r.locked }

func (r *mockBoostRegistry) Tier(*big.Int) BoostTier { return r.tier }

type mockBoostHook struct {
	user  common.Address
	asset common.Address
	stake *big.Int
	calls int
}

func (h *mockBoostHook) RefreshStake(user, asset common.Address, stakeEquivalent *big.Int) {
	h.user = user
	h.asset = asset
	h.stake = new(big.Int).Set(stakeEquivalent)
	h.calls++
}

func boostedMarkets() map[common.Address]ReserveConfig {
	configs := twoMarkets()
	cfg := configs[govAsset]
	cfg.BoostEnabled = true
	configs[govAsset] = cfg
	return configs
}

func TestBorrowBoostRequiresEnabledReserve(t *testing.T) {
	h := newHarness(twoMarkets())
	h.prices.prices[colAsset] = dollars(1)
	h.prices.prices[govAsset] = dollars(1)
	h.deposit(t, depositor, govAsset, 10_000)
	h.deposit(t, bob, colAsset, 1000)

	if _, err := h.engine.Borrow(bob, govAsset, big.NewInt(100), RateModeVariable, bob, big.NewInt(7)); !errors.Is(err, ErrYieldBoostNotEnabled) {
		t.Fatalf("expected ErrYieldBoostNotEnabled, got %v", err)
	}
}

func TestBorrowBoostRejectsForeignToken(t *testing.T) {
	h := newHarness(boostedMarkets())
	h.prices.prices[colAsset] = dollars(1)
	h.prices.prices[govAsset] = dollars(1)
	h.engine.SetBoost(&mockBoostRegistry{owner: alice, tier: TierBanker}, nil, nil)
	h.deposit(t, depositor, govAsset, 10_000)
	h.deposit(t, bob, colAsset, 1000)

	if _, err := h.engine.Borrow(bob, govAsset, big.NewInt(100), RateModeVariable, bob, big.NewInt(7)); !errors.Is(err, ErrNotOwnerOfNft) {
		t.Fatalf("expected ErrNotOwnerOfNft, got %v", err)
	}
}

func TestBorrowBoostRejectsLockedToken(t *testing.T) {
	h := newHarness(boostedMarkets())
	h.prices.prices[colAsset] = dollars(1)
	h.prices.prices[govAsset] = dollars(1)
	h.engine.SetBoost(&mockBoostRegistry{owner: bob, locked: true, tier: TierBanker}, nil, nil)
	h.deposit(t, depositor, govAsset, 10_000)
	h.deposit(t, bob, colAsset, 1000)

	if _, err := h.engine.Borrow(bob, govAsset, big.NewInt(100), RateModeVariable, bob, big.NewInt(7)); !errors.Is(err, ErrNftAlreadyLocked) {
		t.Fatalf("expected ErrNftAlreadyLocked, got %v", err)
	}
}

func TestBorrowBoostRefreshesStake(t *testing.T) {
	h := newHarness(boostedMarkets())
	h.prices.prices[colAsset] = dollars(1)
	h.prices.prices[govAsset] = dollars(1)
	hook := &mockBoostHook{}
	h.engine.SetBoost(&mockBoostRegistry{owner: bob, tier: TierBanker}, hook, nil)
	h.deposit(t, depositor, govAsset, 10_000)
	h.deposit(t, bob, colAsset, 5000)

	if _, err := h.engine.Borrow(bob, govAsset, big.NewInt(1000), RateModeVariable, bob, big.NewInt(7)); err != nil {
		t.Fatalf("boosted borrow: %v", err)
	}
	if hook.calls == 0 {
		t.Fatalf("refresh hook never fired")
	}
	if hook.user != bob || hook.asset != govAsset {
		t.Fatalf("refresh target: user=%s asset=%s", hook.user.Hex(), hook.asset.Hex())
	}
	// Banker tier boosts the 1000 balance by 25%.
	if hook.stake.Cmp(big.NewInt(1250)) != 0 {
		t.Fatalf("stake equivalent: got %s want 1250", hook.stake)
	}
}

func TestBorrowWithoutTokenSkipsBoostChecks(t *testing.T) {
	h := newHarness(boostedMarkets())
	h.prices.prices[colAsset] = dollars(1)
	h.prices.prices[govAsset] = dollars(1)
	h.deposit(t, depositor, govAsset, 10_000)
	h.deposit(t, bob, colAsset, 1000)

	if _, err := h.engine.Borrow(bob, govAsset, big.NewInt(100), RateModeVariable, bob, nil); err != nil {
		t.Fatalf("plain borrow on boosted reserve: %v", err)
	}
}

func TestBoostTableMultiplierDefaults(t *testing.T) {
	var nilTable BoostTable
	if got := nilTable.Multiplier(TierGolden, BoostActionBorrow); got != 10_000 {
		t.Fatalf("nil table multiplier: got %d", got)
	}
	if got := DefaultBoostTable.Multiplier(TierGolden, BoostActionDeposit); got != 20_000 {
		t.Fatalf("golden deposit multiplier: got %d", got)
	}
	if got := DefaultBoostTable.Multiplier(TierBanker, BoostActionBorrow); got != 12_500 {
		t.Fatalf("banker borrow multiplier: got %d", got)
	}
}

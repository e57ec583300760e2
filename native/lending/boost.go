package lending

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// BoostTier classifies the NFT backing a yield-boost stake.
type BoostTier uint8

const (
	TierNone BoostTier = iota
	TierBanker
	TierGolden
)

// BoostAction identifies the pool operation a multiplier applies to.
type BoostAction uint8

const (
	BoostActionDeposit BoostAction = iota
	BoostActionBorrow
)

// BoostKey pairs a tier with an action for multiplier lookup.
type BoostKey struct {
	Tier   BoostTier
	Action BoostAction
}

// BoostTable maps (tier, action) to a stake multiplier in basis points. The
// table is owned by configuration; the engine only performs lookups.
type BoostTable map[BoostKey]uint64

// Multiplier returns the configured multiplier for the pair, defaulting to
// 100% when the table has no entry.
func (t BoostTable) Multiplier(tier BoostTier, action BoostAction) uint64 {
	if t == nil {
		return 10_000
	}
	if bps, ok := t[BoostKey{Tier: tier, Action: action}]; ok {
		return bps
	}
	return 10_000
}

// DefaultBoostTable mirrors the launch multipliers: banker NFTs boost stakes
// by 25% and golden NFTs by 100%, on both deposit and borrow flows.
var DefaultBoostTable = BoostTable{
	{Tier: TierNone, Action: BoostActionDeposit}:   10_000,
	{Tier: TierNone, Action: BoostActionBorrow}:    10_000,
	{Tier: TierBanker, Action: BoostActionDeposit}: 12_500,
	{Tier: TierBanker, Action: BoostActionBorrow}:  12_500,
	{Tier: TierGolden, Action: BoostActionDeposit}: 20_000,
	{Tier: TierGolden, Action: BoostActionBorrow}:  20_000,
}

// BoostRegistry exposes the NFT lock state consulted when a borrower attaches
// a token to an operation. The staking protocol's internal state machine stays
// external; the engine only validates ownership and lock status.
type BoostRegistry interface {
	OwnerOf(tokenID *big.Int) (common.Address, bool)
	IsLocked(tokenID *big.Int) bool
	Tier(tokenID *big.Int) BoostTier
}

// BoostHook receives the authoritative post-operation stake equivalent after
// any deposit or borrow touching a boosted reserve.
type BoostHook interface {
	RefreshStake(user, asset common.Address, stakeEquivalent *big.Int)
}

// validateBoostToken checks an attached NFT against the registry. A nil or
// zero token id means no boost was requested and always passes.
func (e *Engine) validateBoostToken(cfg ReserveConfig, caller common.Address, tokenID *big.Int) (BoostTier, error) {
	if tokenID == nil || tokenID.Sign() == 0 {
		return TierNone, nil
	}
	if !cfg.BoostEnabled || e.boostRegistry == nil {
		return TierNone, ErrYieldBoostNotEnabled
	}
	owner, ok := e.boostRegistry.OwnerOf(tokenID)
	if !ok || owner != caller {
		return TierNone, ErrNotOwnerOfNft
	}
	if e.boostRegistry.IsLocked(tokenID) {
		return TierNone, ErrNftAlreadyLocked
	}
	return e.boostRegistry.Tier(tokenID), nil
}

// notifyBoost pushes the refreshed stake-equivalent amount to the side system.
// The engine does not own boost math beyond the configured multiplier; it only
// reports authoritative post-operation balances.
func (e *Engine) notifyBoost(cfg ReserveConfig, user, asset common.Address, tier BoostTier, action BoostAction, newBalance *big.Int) {
	if e.boostHook == nil || !cfg.BoostEnabled {
		return
	}
	stake := percentMul(newBalance, e.boostTable.Multiplier(tier, action))
	e.boostHook.RefreshStake(user, asset, stake)
}

package lending

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// RateMode selects between the two borrowing modes.
type RateMode uint8

const (
	RateModeNone RateMode = iota
	RateModeStable
	RateModeVariable
)

// Valid reports whether the mode names one of the two borrowable modes.
func (m RateMode) Valid() bool {
	return m == RateModeStable || m == RateModeVariable
}

// Reserve captures the accrual state for a single listed asset. Amount values
// are denominated in the asset's smallest unit and expressed as big integers
// to match on-chain precision; indexes and rates are ray values.
type Reserve struct {
	// Asset is the listed asset identifier.
	Asset common.Address
	// LiquidityIndex is the cumulative interest index applied to depositor
	// balances. Monotonically non-decreasing, starts at one ray.
	LiquidityIndex *big.Int
	// VariableBorrowIndex is the cumulative index applied to variable debt.
	VariableBorrowIndex *big.Int
	// CurrentLiquidityRate is the annualised ray rate earned by depositors.
	CurrentLiquidityRate *big.Int
	// CurrentVariableBorrowRate is the annualised ray rate charged on
	// variable debt.
	CurrentVariableBorrowRate *big.Int
	// CurrentStableBorrowRate is the market rate locked into new stable
	// positions.
	CurrentStableBorrowRate *big.Int
	// LastUpdateTimestamp records when the indexes were last refreshed.
	LastUpdateTimestamp uint64
	// AvailableLiquidity is the deposited amount not currently lent out.
	AvailableLiquidity *big.Int
	// TotalStableDebt is the pool-wide stable principal rolled forward to
	// LastUpdateTimestamp.
	TotalStableDebt *big.Int
	// AverageStableBorrowRate is the debt-weighted average rate across all
	// open stable positions.
	AverageStableBorrowRate *big.Int
	// ScaledVariableDebt is the pool-wide variable debt divided by the
	// variable borrow index.
	ScaledVariableDebt *big.Int
	// TotalScaledDeposits tracks the receipt-token scaled supply used for
	// supply cap checks.
	TotalScaledDeposits *big.Int
}

// NewReserve initialises a reserve at listing time with unit indexes and zero
// rates.
func NewReserve(asset common.Address) *Reserve {
	return &Reserve{
		Asset:                     asset,
		LiquidityIndex:            new(big.Int).Set(ray),
		VariableBorrowIndex:       new(big.Int).Set(ray),
		CurrentLiquidityRate:      big.NewInt(0),
		CurrentVariableBorrowRate: big.NewInt(0),
		CurrentStableBorrowRate:   big.NewInt(0),
		AvailableLiquidity:        big.NewInt(0),
		TotalStableDebt:           big.NewInt(0),
		AverageStableBorrowRate:   big.NewInt(0),
		ScaledVariableDebt:        big.NewInt(0),
		TotalScaledDeposits:       big.NewInt(0),
	}
}

// Clone returns a deep copy of the reserve.
func (r *Reserve) Clone() *Reserve {
	if r == nil {
		return nil
	}
	clone := &Reserve{Asset: r.Asset, LastUpdateTimestamp: r.LastUpdateTimestamp}
	clone.LiquidityIndex = cloneBig(r.LiquidityIndex)
	clone.VariableBorrowIndex = cloneBig(r.VariableBorrowIndex)
	clone.CurrentLiquidityRate = cloneBig(r.CurrentLiquidityRate)
	clone.CurrentVariableBorrowRate = cloneBig(r.CurrentVariableBorrowRate)
	clone.CurrentStableBorrowRate = cloneBig(r.CurrentStableBorrowRate)
	clone.AvailableLiquidity = cloneBig(r.AvailableLiquidity)
	clone.TotalStableDebt = cloneBig(r.TotalStableDebt)
	clone.AverageStableBorrowRate = cloneBig(r.AverageStableBorrowRate)
	clone.ScaledVariableDebt = cloneBig(r.ScaledVariableDebt)
	clone.TotalScaledDeposits = cloneBig(r.TotalScaledDeposits)
	return clone
}

// ensureDefaults populates nil big.Int fields so state decoded from external
// stores is safe to mutate.
func (r *Reserve) ensureDefaults() {
	if r.LiquidityIndex == nil || r.LiquidityIndex.Sign() == 0 {
		r.LiquidityIndex = new(big.Int).Set(ray)
	}
	if r.VariableBorrowIndex == nil || r.VariableBorrowIndex.Sign() == 0 {
		r.VariableBorrowIndex = new(big.Int).Set(ray)
	}
	if r.CurrentLiquidityRate == nil {
		r.CurrentLiquidityRate = big.NewInt(0)
	}
	if r.CurrentVariableBorrowRate == nil {
		r.CurrentVariableBorrowRate = big.NewInt(0)
	}
	if r.CurrentStableBorrowRate == nil {
		r.CurrentStableBorrowRate = big.NewInt(0)
	}
	if r.AvailableLiquidity == nil {
		r.AvailableLiquidity = big.NewInt(0)
	}
	if r.TotalStableDebt == nil {
		r.TotalStableDebt = big.NewInt(0)
	}
	if r.AverageStableBorrowRate == nil {
		r.AverageStableBorrowRate = big.NewInt(0)
	}
	if r.ScaledVariableDebt == nil {
		r.ScaledVariableDebt = big.NewInt(0)
	}
	if r.TotalScaledDeposits == nil {
		r.TotalScaledDeposits = big.NewInt(0)
	}
}

// TotalVariableDebt returns the compounded variable debt at the current index.
func (r *Reserve) TotalVariableDebt() *big.Int {
	if r == nil || r.ScaledVariableDebt == nil || r.ScaledVariableDebt.Sign() == 0 {
		return big.NewInt(0)
	}
	return rayMul(r.ScaledVariableDebt, r.VariableBorrowIndex)
}

// TotalDebt returns the combined stable and variable debt of the reserve.
func (r *Reserve) TotalDebt() *big.Int {
	total := r.TotalVariableDebt()
	if r.TotalStableDebt != nil {
		total.Add(total, r.TotalStableDebt)
	}
	return total
}

// Position maintains one participant's balances within a single reserve.
type Position struct {
	// Address is the position owner.
	Address common.Address
	// ScaledDeposit is the receipt-token balance divided by the liquidity
	// index at deposit time.
	ScaledDeposit *big.Int
	// UsingAsCollateral marks whether the deposit backs borrowing power.
	UsingAsCollateral bool
	// ScaledVariableDebt reflects variable debt adjusted by the borrow index.
	ScaledVariableDebt *big.Int
	// StablePrincipal stores the stable debt principal in real units.
	StablePrincipal *big.Int
	// StableRate is the position's own locked-in annualised ray rate.
	StableRate *big.Int
	// StableLastUpdate records when the stable principal was last compounded.
	StableLastUpdate uint64
}

// Clone returns a deep copy of the position.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	clone := &Position{
		Address:           p.Address,
		UsingAsCollateral: p.UsingAsCollateral,
		StableLastUpdate:  p.StableLastUpdate,
	}
	clone.ScaledDeposit = cloneBig(p.ScaledDeposit)
	clone.ScaledVariableDebt = cloneBig(p.ScaledVariableDebt)
	clone.StablePrincipal = cloneBig(p.StablePrincipal)
	clone.StableRate = cloneBig(p.StableRate)
	return clone
}

func (p *Position) ensureDefaults() {
	if p.ScaledDeposit == nil {
		p.ScaledDeposit = big.NewInt(0)
	}
	if p.ScaledVariableDebt == nil {
		p.ScaledVariableDebt = big.NewInt(0)
	}
	if p.StablePrincipal == nil {
		p.StablePrincipal = big.NewInt(0)
	}
	if p.StableRate == nil {
		p.StableRate = big.NewInt(0)
	}
}

// DepositBalance returns the interest-inclusive deposit at the given index.
func (p *Position) DepositBalance(liquidityIndex *big.Int) *big.Int {
	if p == nil || p.ScaledDeposit == nil || p.ScaledDeposit.Sign() == 0 {
		return big.NewInt(0)
	}
	return rayMul(p.ScaledDeposit, liquidityIndex)
}

// ReserveConfig is the governance-owned snapshot consumed by the engine. The
// engine reads it on every operation and never mutates it.
type ReserveConfig struct {
	// Decimals is the asset's display precision used for USD conversion.
	Decimals uint8
	// Active gates all operations; inactive reserves reject everything.
	Active bool
	// Frozen blocks new deposits and borrows while allowing exits.
	Frozen bool
	// Paused halts every operation on the reserve.
	Paused bool
	// BorrowingEnabled gates new borrows of either mode.
	BorrowingEnabled bool
	// StableBorrowingEnabled additionally gates stable-mode borrows.
	StableBorrowingEnabled bool
	// LTVBps is the loan-to-value ratio in basis points.
	LTVBps uint64
	// LiquidationThresholdBps is the LTV where positions become liquidatable.
	LiquidationThresholdBps uint64
	// ReserveFactorBps is the interest share diverted to the treasury.
	ReserveFactorBps uint64
	// MaxStableLoanPercentBps caps a single stable borrow relative to the
	// reserve's available liquidity.
	MaxStableLoanPercentBps uint64
	// BorrowCapUSD bounds total debt, wad USD. Zero means uncapped.
	BorrowCapUSD *big.Int
	// SupplyCapUSD bounds total deposits, wad USD. Zero means uncapped.
	SupplyCapUSD *big.Int
	// BoostEnabled marks the asset as eligible for yield-boost staking.
	BoostEnabled bool
	// Rates holds the interest rate strategy constants for the reserve.
	Rates InterestRateStrategy
}

// AccountData aggregates a user's balances across all reserves. It is derived
// on demand and never cached across operations.
type AccountData struct {
	// TotalCollateralUSD sums deposits flagged as collateral, wad USD.
	TotalCollateralUSD *big.Int
	// TotalDebtUSD sums stable and variable debt, wad USD.
	TotalDebtUSD *big.Int
	// AvailableBorrowsUSD is the remaining LTV-based borrowing power.
	AvailableBorrowsUSD *big.Int
	// AvgLTVBps is the collateral-weighted loan-to-value.
	AvgLTVBps uint64
	// AvgLiquidationThresholdBps is the collateral-weighted threshold.
	AvgLiquidationThresholdBps uint64
	// HealthFactor is (collateral x threshold) / debt in ray. Positions with
	// no debt report the maximum representable value.
	HealthFactor *big.Int
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

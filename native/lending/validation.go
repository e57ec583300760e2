package lending

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// borrowChecks carries the reserve-local facts the stateless borrow validation
// needs beyond the request itself. Everything is computed against the
// already-accrued reserve state.
type borrowChecks struct {
	cfg                    ReserveConfig
	availableLiquidity     *big.Int
	currentTotalDebt       *big.Int
	usingAssetAsCollateral bool
	marketRateOK           bool
	price                  *big.Int
	priceOK                bool
	account                *AccountData
	amountUSD              *big.Int
}

// validateBorrow runs the ordered borrow preconditions. Each failure returns
// its own sentinel; the first failing check wins.
func validateBorrow(asset, onBehalfOf common.Address, amount *big.Int, mode RateMode, c borrowChecks) error {
	if asset == (common.Address{}) {
		return ErrInvalidAddress
	}
	if !c.cfg.Active {
		return ErrReserveInactive
	}
	if c.cfg.Frozen {
		return ErrReserveFrozen
	}
	if c.cfg.Paused {
		return ErrReservePaused
	}
	if onBehalfOf == (common.Address{}) {
		return ErrInvalidAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if !c.cfg.BorrowingEnabled {
		return ErrBorrowingDisabled
	}
	if !mode.Valid() {
		return ErrInvalidInterestRateMode
	}
	if c.account == nil || c.account.TotalCollateralUSD == nil || c.account.TotalCollateralUSD.Sign() == 0 {
		return ErrNoCollateral
	}

	if mode == RateModeStable {
		if !c.cfg.StableBorrowingEnabled {
			return ErrStableBorrowingDisabled
		}
		// Borrowing an asset pledged as collateral in stable mode opens a
		// trivial rate arbitrage and circular LTV accounting.
		if c.usingAssetAsCollateral {
			return ErrCollateralSameAsBorrowAsset
		}
		maxLoan := percentMul(c.availableLiquidity, c.cfg.MaxStableLoanPercentBps)
		if amount.Cmp(maxLoan) > 0 {
			return ErrAmountExceedsMaxStableLoan
		}
		// New fixed-rate commitments require a live oracle quote; ongoing
		// variable recomputation tolerates outages, new stable debt does not.
		if !c.marketRateOK {
			return ErrInvalidOracleRate
		}
	}

	if c.cfg.BorrowCapUSD != nil && c.cfg.BorrowCapUSD.Sign() > 0 {
		if !c.priceOK {
			return ErrInvalidOracleRate
		}
		capUnits := assetUnits(c.cfg.BorrowCapUSD, c.price, c.cfg.Decimals)
		projected := new(big.Int).Add(c.currentTotalDebt, amount)
		if projected.Cmp(capUnits) > 0 {
			return ErrBorrowCapExceeded
		}
	}

	if !c.priceOK {
		return ErrInvalidOracleRate
	}
	if healthFactorAfter(c.account, c.amountUSD).Cmp(ray) < 0 {
		return ErrHealthFactorTooLow
	}
	if c.account.AvailableBorrowsUSD == nil || c.amountUSD.Cmp(c.account.AvailableBorrowsUSD) > 0 {
		return ErrCollateralCannotCoverBorrow
	}

	if mode == RateModeVariable && amount.Cmp(c.availableLiquidity) > 0 {
		return ErrInsufficientLiquidity
	}
	return nil
}

// validateDeposit gates new liquidity entering the reserve.
func validateDeposit(asset, onBehalfOf common.Address, amount *big.Int, cfg ReserveConfig, amountUSD, supplyUSD *big.Int, priceOK bool) error {
	if asset == (common.Address{}) || onBehalfOf == (common.Address{}) {
		return ErrInvalidAddress
	}
	if !cfg.Active {
		return ErrReserveInactive
	}
	if cfg.Frozen {
		return ErrReserveFrozen
	}
	if cfg.Paused {
		return ErrReservePaused
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if cfg.SupplyCapUSD != nil && cfg.SupplyCapUSD.Sign() > 0 {
		if !priceOK {
			return ErrInvalidOracleRate
		}
		projected := new(big.Int).Add(supplyUSD, amountUSD)
		if projected.Cmp(cfg.SupplyCapUSD) > 0 {
			return ErrSupplyCapExceeded
		}
	}
	return nil
}

// validateWithdraw gates liquidity leaving the reserve. Frozen reserves still
// allow exits.
func validateWithdraw(asset common.Address, amount, balance, availableLiquidity *big.Int, cfg ReserveConfig) error {
	if asset == (common.Address{}) {
		return ErrInvalidAddress
	}
	if !cfg.Active {
		return ErrReserveInactive
	}
	if cfg.Paused {
		return ErrReservePaused
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if amount.Cmp(balance) > 0 {
		return ErrInvalidAmount
	}
	if amount.Cmp(availableLiquidity) > 0 {
		return ErrInsufficientLiquidity
	}
	return nil
}

// validateRepay gates debt repayment.
func validateRepay(asset, onBehalfOf common.Address, amount *big.Int, mode RateMode, cfg ReserveConfig, outstanding *big.Int) error {
	if asset == (common.Address{}) || onBehalfOf == (common.Address{}) {
		return ErrInvalidAddress
	}
	if !cfg.Active {
		return ErrReserveInactive
	}
	if cfg.Paused {
		return ErrReservePaused
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if !mode.Valid() {
		return ErrInvalidInterestRateMode
	}
	if outstanding == nil || outstanding.Sign() == 0 {
		return ErrNoDebt
	}
	return nil
}

// healthFactorAfter projects the health factor with additionalDebtUSD stacked
// on top of the current snapshot.
func healthFactorAfter(account *AccountData, additionalDebtUSD *big.Int) *big.Int {
	debt := big.NewInt(0)
	if account.TotalDebtUSD != nil {
		debt.Add(debt, account.TotalDebtUSD)
	}
	if additionalDebtUSD != nil {
		debt.Add(debt, additionalDebtUSD)
	}
	return healthFactor(account.TotalCollateralUSD, debt, account.AvgLiquidationThresholdBps)
}

// healthFactor is (collateral x liquidation threshold) / debt in ray. No debt
// means the maximum representable factor.
func healthFactor(collateralUSD, debtUSD *big.Int, thresholdBps uint64) *big.Int {
	if debtUSD == nil || debtUSD.Sign() == 0 {
		return new(big.Int).Set(maxUint256)
	}
	if collateralUSD == nil || collateralUSD.Sign() == 0 {
		return big.NewInt(0)
	}
	adjusted := percentMul(collateralUSD, thresholdBps)
	return rayDiv(adjusted, debtUSD)
}

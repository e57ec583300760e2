package lending

import "math/big"

// accrue rolls the reserve's cumulative indexes forward to now and returns the
// treasury share of the interest accrued since the previous update. Calling it
// again within the same timestamp is a no-op, so a reserve touched several
// times in one block compounds exactly once.
func (r *Reserve) accrue(now uint64, reserveFactorBps uint64) (*big.Int, error) {
	if r == nil {
		return nil, ErrNilState
	}
	r.ensureDefaults()
	if now <= r.LastUpdateTimestamp {
		return big.NewInt(0), nil
	}
	delta := now - r.LastUpdateTimestamp

	previousVariableDebt := r.TotalVariableDebt()
	previousStableDebt := new(big.Int).Set(r.TotalStableDebt)

	// Depositors earn linear growth while variable debt compounds. The
	// asymmetry keeps what the pool owes depositors at or below what
	// borrowers owe the pool.
	if r.CurrentLiquidityRate.Sign() > 0 {
		newLiquidityIndex := rayMul(r.LiquidityIndex, linearInterest(r.CurrentLiquidityRate, delta))
		if newLiquidityIndex.Cmp(r.LiquidityIndex) < 0 {
			return nil, ErrInvariantViolation
		}
		r.LiquidityIndex = newLiquidityIndex
	}
	if r.ScaledVariableDebt.Sign() > 0 && r.CurrentVariableBorrowRate.Sign() > 0 {
		newVariableIndex := rayMul(r.VariableBorrowIndex, compoundedInterest(r.CurrentVariableBorrowRate, delta))
		if newVariableIndex.Cmp(r.VariableBorrowIndex) < 0 {
			return nil, ErrInvariantViolation
		}
		r.VariableBorrowIndex = newVariableIndex
	}

	// Roll the stable book forward at the pool-wide average rate so the
	// stored total stays compounded-equivalent with individual positions.
	if r.TotalStableDebt.Sign() > 0 && r.AverageStableBorrowRate.Sign() > 0 {
		r.TotalStableDebt = rayMul(r.TotalStableDebt, compoundedInterest(r.AverageStableBorrowRate, delta))
	}

	r.LastUpdateTimestamp = now

	// The treasury share is computed from the pre-mutation debt totals, so
	// it must be settled before any new debt is minted in the same
	// operation.
	accrued := new(big.Int).Sub(r.TotalVariableDebt(), previousVariableDebt)
	accrued.Add(accrued, new(big.Int).Sub(r.TotalStableDebt, previousStableDebt))
	if accrued.Sign() <= 0 || reserveFactorBps == 0 {
		return big.NewInt(0), nil
	}
	return percentMul(accrued, reserveFactorBps), nil
}

// updateRates recomputes the three reserve rates after a liquidity-changing
// operation. liquidityDelta is positive for deposits and repayments and
// negative for borrows and withdrawals; the stable book totals are expected to
// have been adjusted by the debt ledger already.
func (r *Reserve) updateRates(cfg ReserveConfig, liquidityDelta *big.Int, marketStableRate *big.Int, marketRateOK bool) error {
	if r == nil {
		return ErrNilState
	}
	r.ensureDefaults()

	if liquidityDelta != nil && liquidityDelta.Sign() != 0 {
		next := new(big.Int).Add(r.AvailableLiquidity, liquidityDelta)
		if next.Sign() < 0 {
			return ErrInvariantViolation
		}
		r.AvailableLiquidity = next
	}

	liquidityRate, stableRate, variableRate := cfg.Rates.CalculateRates(
		r.AvailableLiquidity,
		r.TotalStableDebt,
		r.TotalVariableDebt(),
		r.AverageStableBorrowRate,
		marketStableRate, marketRateOK,
		cfg.ReserveFactorBps,
	)
	r.CurrentLiquidityRate = liquidityRate
	r.CurrentStableBorrowRate = stableRate
	r.CurrentVariableBorrowRate = variableRate
	return nil
}

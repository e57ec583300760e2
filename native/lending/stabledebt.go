package lending

import "math/big"

// stableBalanceOf returns the position's stable debt compounded lazily at its
// own locked-in rate since the last touch. Pure function of stored state and
// the clock; nothing is written until the position is next mutated.
func stableBalanceOf(p *Position, now uint64) *big.Int {
	if p == nil || p.StablePrincipal == nil || p.StablePrincipal.Sign() == 0 {
		return big.NewInt(0)
	}
	if now <= p.StableLastUpdate {
		return new(big.Int).Set(p.StablePrincipal)
	}
	return rayMul(p.StablePrincipal, compoundedInterest(p.StableRate, now-p.StableLastUpdate))
}

// mintStableDebt folds a new stable borrow into the position and the pool-wide
// book. The position keeps a blended rate rather than resetting to the market
// rate: serial borrowers average the new rate in proportionally. Returns the
// position's new balance and the accrued increase since its last touch.
func (r *Reserve) mintStableDebt(p *Position, amount, marketRate *big.Int, now uint64) (*big.Int, *big.Int) {
	p.ensureDefaults()
	balance := stableBalanceOf(p, now)
	balanceIncrease := new(big.Int).Sub(balance, p.StablePrincipal)

	newPrincipal := new(big.Int).Add(balance, amount)
	weighted := new(big.Int).Mul(balance, p.StableRate)
	weighted.Add(weighted, new(big.Int).Mul(amount, marketRate))
	weighted.Add(weighted, halfUp(newPrincipal))
	newRate := weighted.Quo(weighted, newPrincipal)

	p.StablePrincipal = newPrincipal
	p.StableRate = newRate
	p.StableLastUpdate = now

	// Debt-weighted average across the pool, with the added amount entering
	// at the current market rate.
	poolTotal := new(big.Int).Set(r.TotalStableDebt)
	newPoolTotal := new(big.Int).Add(poolTotal, amount)
	poolWeighted := new(big.Int).Mul(poolTotal, r.AverageStableBorrowRate)
	poolWeighted.Add(poolWeighted, new(big.Int).Mul(amount, marketRate))
	poolWeighted.Add(poolWeighted, halfUp(newPoolTotal))
	r.AverageStableBorrowRate = poolWeighted.Quo(poolWeighted, newPoolTotal)
	r.TotalStableDebt = newPoolTotal

	return new(big.Int).Set(newPrincipal), balanceIncrease
}

// burnStableDebt reduces the position's stable debt by amount, deleting the
// position once its balance reaches zero. The caller clamps amount to the
// compounded balance beforehand. Returns the remaining balance.
func (r *Reserve) burnStableDebt(p *Position, amount *big.Int, now uint64) *big.Int {
	p.ensureDefaults()
	balance := stableBalanceOf(p, now)
	if amount.Cmp(balance) > 0 {
		amount = balance
	}
	remaining := new(big.Int).Sub(balance, amount)

	// Reweight the pool average by removing the burned amount at the
	// position's own rate before shrinking the total.
	if amount.Cmp(r.TotalStableDebt) >= 0 {
		r.TotalStableDebt = big.NewInt(0)
		r.AverageStableBorrowRate = big.NewInt(0)
	} else {
		newPoolTotal := new(big.Int).Sub(r.TotalStableDebt, amount)
		poolWeighted := new(big.Int).Mul(r.TotalStableDebt, r.AverageStableBorrowRate)
		poolWeighted.Sub(poolWeighted, new(big.Int).Mul(amount, p.StableRate))
		if poolWeighted.Sign() < 0 {
			r.AverageStableBorrowRate = big.NewInt(0)
		} else {
			poolWeighted.Add(poolWeighted, halfUp(newPoolTotal))
			r.AverageStableBorrowRate = poolWeighted.Quo(poolWeighted, newPoolTotal)
		}
		r.TotalStableDebt = newPoolTotal
	}

	if remaining.Sign() == 0 {
		p.StablePrincipal = big.NewInt(0)
		p.StableRate = big.NewInt(0)
		p.StableLastUpdate = 0
	} else {
		p.StablePrincipal = remaining
		p.StableLastUpdate = now
	}
	return new(big.Int).Set(remaining)
}

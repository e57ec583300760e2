package lending

import "math/big"

// variableBalanceOf returns the interest-inclusive variable debt at the given
// index. All variable positions share the pool-wide index; no per-user rate is
// stored.
func variableBalanceOf(p *Position, variableBorrowIndex *big.Int) *big.Int {
	if p == nil || p.ScaledVariableDebt == nil || p.ScaledVariableDebt.Sign() == 0 {
		return big.NewInt(0)
	}
	return rayMul(p.ScaledVariableDebt, variableBorrowIndex)
}

// mintVariableDebt adds amount of debt at the current borrow index. Dust
// amounts that scale to zero are rounded up to one scaled unit so no borrow
// escapes the ledger. Returns the position's new balance.
func (r *Reserve) mintVariableDebt(p *Position, amount *big.Int) *big.Int {
	p.ensureDefaults()
	scaled := rayDiv(amount, r.VariableBorrowIndex)
	if scaled.Sign() == 0 && amount.Sign() > 0 {
		scaled = big.NewInt(1)
	}
	p.ScaledVariableDebt = new(big.Int).Add(p.ScaledVariableDebt, scaled)
	r.ScaledVariableDebt = new(big.Int).Add(r.ScaledVariableDebt, scaled)
	return variableBalanceOf(p, r.VariableBorrowIndex)
}

// burnVariableDebt removes amount of debt at the current borrow index,
// clamping to the position's scaled balance. Returns the remaining balance.
func (r *Reserve) burnVariableDebt(p *Position, amount *big.Int) *big.Int {
	p.ensureDefaults()
	scaled := rayDiv(amount, r.VariableBorrowIndex)
	if scaled.Cmp(p.ScaledVariableDebt) > 0 {
		scaled = new(big.Int).Set(p.ScaledVariableDebt)
	}
	p.ScaledVariableDebt = new(big.Int).Sub(p.ScaledVariableDebt, scaled)
	if r.ScaledVariableDebt.Cmp(scaled) < 0 {
		r.ScaledVariableDebt = big.NewInt(0)
	} else {
		r.ScaledVariableDebt = new(big.Int).Sub(r.ScaledVariableDebt, scaled)
	}
	return variableBalanceOf(p, r.VariableBorrowIndex)
}

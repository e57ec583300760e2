package lending

import "math/big"

// InterestRateStrategy holds the constants shaping how borrow rates react to
// reserve utilisation. All fields are ray values.
type InterestRateStrategy struct {
	// OptimalUtilization is the kink where the steep slope takes over.
	OptimalUtilization *big.Int
	// BaseVariableBorrowRate is the variable APR at zero utilisation.
	BaseVariableBorrowRate *big.Int
	// VariableRateSlope1 applies below the optimal utilisation.
	VariableRateSlope1 *big.Int
	// VariableRateSlope2 applies above it, steeply discouraging exhaustion.
	VariableRateSlope2 *big.Int
	// StableRateSpread is added on top of the reference rate for new stable
	// positions.
	StableRateSpread *big.Int
}

// NewInterestRateStrategy constructs a strategy from decimal strings, e.g. a
// 2% base rate is expressed as "0.02" and an 80% optimal utilisation as
// "0.8". The strings are parsed exactly so configured rates carry no binary
// float drift; malformed literals panic.
func NewInterestRateStrategy(optimal, base, slope1, slope2, spread string) InterestRateStrategy {
	return InterestRateStrategy{
		OptimalUtilization:     mustRay(optimal),
		BaseVariableBorrowRate: mustRay(base),
		VariableRateSlope1:     mustRay(slope1),
		VariableRateSlope2:     mustRay(slope2),
		StableRateSpread:       mustRay(spread),
	}
}

// Clone returns a deep copy of the strategy.
func (s InterestRateStrategy) Clone() InterestRateStrategy {
	return InterestRateStrategy{
		OptimalUtilization:     cloneBig(s.OptimalUtilization),
		BaseVariableBorrowRate: cloneBig(s.BaseVariableBorrowRate),
		VariableRateSlope1:     cloneBig(s.VariableRateSlope1),
		VariableRateSlope2:     cloneBig(s.VariableRateSlope2),
		StableRateSpread:       cloneBig(s.StableRateSpread),
	}
}

func (s InterestRateStrategy) ensureDefaults() InterestRateStrategy {
	out := s.Clone()
	if out.OptimalUtilization == nil || out.OptimalUtilization.Sign() == 0 {
		out.OptimalUtilization = new(big.Int).Set(ray)
	}
	if out.BaseVariableBorrowRate == nil {
		out.BaseVariableBorrowRate = big.NewInt(0)
	}
	if out.VariableRateSlope1 == nil {
		out.VariableRateSlope1 = big.NewInt(0)
	}
	if out.VariableRateSlope2 == nil {
		out.VariableRateSlope2 = big.NewInt(0)
	}
	if out.StableRateSpread == nil {
		out.StableRateSpread = big.NewInt(0)
	}
	return out
}

// Utilization computes totalDebt / (availableLiquidity + totalDebt) in ray.
// Defined as zero when no debt is outstanding.
func (s InterestRateStrategy) Utilization(availableLiquidity, totalDebt *big.Int) *big.Int {
	if totalDebt == nil || totalDebt.Sign() == 0 {
		return big.NewInt(0)
	}
	denominator := new(big.Int).Set(totalDebt)
	if availableLiquidity != nil {
		denominator.Add(denominator, availableLiquidity)
	}
	return rayDiv(totalDebt, denominator)
}

// CalculateRates derives the liquidity, stable and variable rates for the
// current reserve state. The market stable rate from the lending rate oracle
// is blended in only when the aggregator reported success; on failure the
// locally derived stable rate stands, which keeps oracle outages non-fatal
// for rate recomputation.
func (s InterestRateStrategy) CalculateRates(
	availableLiquidity, totalStableDebt, totalVariableDebt, averageStableRate *big.Int,
	marketStableRate *big.Int, marketRateOK bool,
	reserveFactorBps uint64,
) (liquidityRate, stableRate, variableRate *big.Int) {
	cfg := s.ensureDefaults()

	totalDebt := big.NewInt(0)
	if totalStableDebt != nil {
		totalDebt.Add(totalDebt, totalStableDebt)
	}
	if totalVariableDebt != nil {
		totalDebt.Add(totalDebt, totalVariableDebt)
	}
	utilization := cfg.Utilization(availableLiquidity, totalDebt)

	variableRate = new(big.Int).Set(cfg.BaseVariableBorrowRate)
	if utilization.Sign() > 0 {
		if utilization.Cmp(cfg.OptimalUtilization) <= 0 {
			// Linear region before the kink.
			ratio := rayDiv(utilization, cfg.OptimalUtilization)
			variableRate.Add(variableRate, rayMul(cfg.VariableRateSlope1, ratio))
		} else {
			variableRate.Add(variableRate, cfg.VariableRateSlope1)
			excess := new(big.Int).Sub(utilization, cfg.OptimalUtilization)
			room := new(big.Int).Sub(ray, cfg.OptimalUtilization)
			if room.Sign() > 0 {
				variableRate.Add(variableRate, rayMul(cfg.VariableRateSlope2, rayDiv(excess, room)))
			} else {
				variableRate.Add(variableRate, cfg.VariableRateSlope2)
			}
		}
	}

	reference := variableRate
	if marketRateOK && marketStableRate != nil && marketStableRate.Sign() > 0 {
		reference = marketStableRate
	}
	stableRate = new(big.Int).Add(reference, cfg.StableRateSpread)

	overall := overallBorrowRate(totalStableDebt, totalVariableDebt, averageStableRate, variableRate)
	liquidityRate = rayMul(overall, utilization)
	if reserveFactorBps > 10_000 {
		reserveFactorBps = 10_000
	}
	liquidityRate = percentMul(liquidityRate, 10_000-reserveFactorBps)

	return clampRate(liquidityRate), clampRate(stableRate), clampRate(variableRate)
}

// overallBorrowRate is the debt-weighted average paid across the stable and
// variable books.
func overallBorrowRate(totalStableDebt, totalVariableDebt, averageStableRate, variableRate *big.Int) *big.Int {
	totalDebt := big.NewInt(0)
	if totalStableDebt != nil {
		totalDebt.Add(totalDebt, totalStableDebt)
	}
	if totalVariableDebt != nil {
		totalDebt.Add(totalDebt, totalVariableDebt)
	}
	if totalDebt.Sign() == 0 {
		return big.NewInt(0)
	}
	weighted := big.NewInt(0)
	if totalStableDebt != nil && totalStableDebt.Sign() > 0 && averageStableRate != nil {
		weighted.Add(weighted, new(big.Int).Mul(totalStableDebt, averageStableRate))
	}
	if totalVariableDebt != nil && totalVariableDebt.Sign() > 0 && variableRate != nil {
		weighted.Add(weighted, new(big.Int).Mul(totalVariableDebt, variableRate))
	}
	weighted.Add(weighted, halfUp(totalDebt))
	return weighted.Quo(weighted, totalDebt)
}

func clampRate(rate *big.Int) *big.Int {
	if rate == nil || rate.Sign() < 0 {
		return big.NewInt(0)
	}
	return rate
}

// DefaultInterestRateStrategy provides a kinked curve with a modest base rate
// suitable for bootstrap listings.
var DefaultInterestRateStrategy = NewInterestRateStrategy("0.8", "0.02", "0.04", "0.6", "0.02")

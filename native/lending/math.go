package lending

import "math/big"

var (
	basisPoints = big.NewInt(10_000)
	halfBasis   = big.NewInt(5_000)
	ray         = mustBigInt("1000000000000000000000000000") // 1e27 precision
	halfRay     = new(big.Int).Rsh(ray, 1)
	wad         = mustBigInt("1000000000000000000") // 1e18, USD valuations
)

// secondsPerYear converts annualised ray rates into per-second accrual.
const secondsPerYear = 31_536_000

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

func rayMul(a, b *big.Int) *big.Int {
	if a == nil || b == nil {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(a, b)
	product.Add(product, halfRay)
	product.Quo(product, ray)
	return product
}

func rayDiv(a, b *big.Int) *big.Int {
	if b == nil || b.Sign() == 0 {
		panic("lending: ray division by zero")
	}
	if a == nil {
		return big.NewInt(0)
	}
	numerator := new(big.Int).Mul(a, ray)
	numerator.Add(numerator, halfUp(b))
	numerator.Quo(numerator, b)
	return numerator
}

func percentMul(amount *big.Int, bps uint64) *big.Int {
	if amount == nil || amount.Sign() == 0 || bps == 0 {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(amount, new(big.Int).SetUint64(bps))
	product.Add(product, halfBasis)
	product.Quo(product, basisPoints)
	return product
}

func percentDiv(amount *big.Int, bps uint64) *big.Int {
	if bps == 0 {
		panic("lending: percentage division by zero")
	}
	if amount == nil || amount.Sign() == 0 {
		return big.NewInt(0)
	}
	divisor := new(big.Int).SetUint64(bps)
	product := new(big.Int).Mul(amount, basisPoints)
	product.Add(product, halfUp(divisor))
	product.Quo(product, divisor)
	return product
}

// linearInterest returns the ray growth factor 1 + rate*delta/secondsPerYear
// applied to the liquidity index between accruals.
func linearInterest(rate *big.Int, delta uint64) *big.Int {
	if rate == nil || rate.Sign() == 0 || delta == 0 {
		return new(big.Int).Set(ray)
	}
	growth := new(big.Int).Mul(rate, new(big.Int).SetUint64(delta))
	growth.Quo(growth, big.NewInt(secondsPerYear))
	return growth.Add(growth, ray)
}

// compoundedInterest approximates e^(rate*delta) with a truncated Taylor
// series over the per-second rate. Debt compounds with this factor while the
// liquidity index grows linearly, so depositor totals never exceed what
// borrowers owe.
func compoundedInterest(rate *big.Int, delta uint64) *big.Int {
	if rate == nil || rate.Sign() == 0 || delta == 0 {
		return new(big.Int).Set(ray)
	}
	exp := new(big.Int).SetUint64(delta)
	expMinusOne := new(big.Int).SetUint64(delta - 1)
	expMinusTwo := big.NewInt(0)
	if delta > 2 {
		expMinusTwo.SetUint64(delta - 2)
	}

	ratePerSecond := new(big.Int).Quo(rate, big.NewInt(secondsPerYear))
	basePowerTwo := rayMul(ratePerSecond, ratePerSecond)
	basePowerThree := rayMul(basePowerTwo, ratePerSecond)

	first := new(big.Int).Mul(exp, ratePerSecond)

	second := new(big.Int).Mul(exp, expMinusOne)
	second.Mul(second, basePowerTwo)
	second.Quo(second, big.NewInt(2))

	third := new(big.Int).Mul(exp, expMinusOne)
	third.Mul(third, expMinusTwo)
	third.Mul(third, basePowerThree)
	third.Quo(third, big.NewInt(6))

	factor := new(big.Int).Set(ray)
	factor.Add(factor, first)
	factor.Add(factor, second)
	return factor.Add(factor, third)
}

// usdValue converts an asset amount into wad-denominated USD using the oracle
// price (wad USD per whole token) and the asset's configured decimals.
func usdValue(amount, price *big.Int, decimals uint8) *big.Int {
	if amount == nil || amount.Sign() == 0 || price == nil || price.Sign() == 0 {
		return big.NewInt(0)
	}
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	value := new(big.Int).Mul(amount, price)
	value.Add(value, halfUp(unit))
	value.Quo(value, unit)
	return value
}

// assetUnits converts a wad USD value back into asset units at the oracle price.
func assetUnits(valueUSD, price *big.Int, decimals uint8) *big.Int {
	if valueUSD == nil || valueUSD.Sign() <= 0 || price == nil || price.Sign() == 0 {
		return big.NewInt(0)
	}
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	amount := new(big.Int).Mul(valueUSD, unit)
	amount.Add(amount, halfUp(price))
	amount.Quo(amount, price)
	return amount
}

func ratToRay(r *big.Rat) *big.Int {
	if r == nil {
		return big.NewInt(0)
	}
	scaled := new(big.Rat).Mul(r, new(big.Rat).SetInt(ray))
	num := scaled.Num()
	den := scaled.Denom()
	if den.Sign() == 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Quo(new(big.Int).Add(num, halfUp(den)), den)
}

// halfUp is the bias added before dividing by x so the quotient rounds half
// up: floor(x/2), which leaves exact divisions untouched.
func halfUp(x *big.Int) *big.Int {
	if x == nil || x.Sign() <= 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Rsh(x, 1)
}

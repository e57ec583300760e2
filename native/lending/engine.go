package lending

import (
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethmath "github.com/ethereum/go-ethereum/common/math"

	"lendpool/observability"
)

// maxUint256 doubles as the "maximum" sentinel callers pass to borrow, repay
// and withdraw the largest permissible amount.
var maxUint256 = ethmath.MaxBig256

// MaxAmount returns the sentinel value that resolves to the largest
// permissible amount for the operation it is passed to.
func MaxAmount() *big.Int {
	return new(big.Int).Set(maxUint256)
}

// engineState is the keyed persistence layer the engine mutates. Reserves and
// positions are committed only after an operation has fully succeeded.
type engineState interface {
	GetReserve(asset common.Address) (*Reserve, error)
	PutReserve(asset common.Address, reserve *Reserve) error
	GetPosition(asset, user common.Address) (*Position, error)
	PutPosition(asset common.Address, position *Position) error
	ReserveAssets() ([]common.Address, error)
	Delegation(owner, delegate common.Address) (*big.Int, error)
	PutDelegation(owner, delegate common.Address, allowance *big.Int) error
	GeniusLoanApproved(owner common.Address) (bool, error)
	PutGeniusLoanApproval(owner common.Address, approved bool) error
}

// ConfigStore supplies the read-only governance snapshot per reserve.
type ConfigStore interface {
	ReserveConfig(asset common.Address) (ReserveConfig, bool)
}

// PriceOracle quotes asset prices in wad USD per whole token. A false result
// means the price must not be trusted for any USD-denominated check.
type PriceOracle interface {
	AssetPrice(asset common.Address) (*big.Int, bool)
}

// RateOracle aggregates external lending market borrow rates in ray.
type RateOracle interface {
	MarketBorrowRate(asset common.Address) (*big.Int, bool)
}

// ReceiptTokenHook drives the interest-bearing receipt token for a reserve.
// Mint-to-treasury always fires before any debt mint within an operation
// because its amount derives from the pre-mutation debt totals.
type ReceiptTokenHook interface {
	Mint(asset, user common.Address, amount, index *big.Int) error
	Burn(asset, user common.Address, amount, index *big.Int) error
	MintToTreasury(asset common.Address, amount, index *big.Int) error
}

// DebtTokenHook surfaces debt ledger mutations so external debt tokens can
// mirror balances and emit their events.
type DebtTokenHook interface {
	StableDebtChanged(asset, user common.Address, balance, delta *big.Int)
	VariableDebtChanged(asset, user common.Address, balance, delta *big.Int)
}

// ActionPauses exposes fine-grained switches for pausing individual pool flows.
type ActionPauses struct {
	Deposit  bool
	Withdraw bool
	Borrow   bool
	Repay    bool
}

// Engine orchestrates the primary state transitions for the lending pool.
// Every operation accrues the touched reserve first, validates against the
// updated state, mutates the debt ledger and finally recommits fresh rates.
// Operations are serialized behind a single mutex and commit all-or-nothing.
type Engine struct {
	mu            sync.Mutex
	state         engineState
	configs       ConfigStore
	priceOracle   PriceOracle
	rateOracle    RateOracle
	receipts      ReceiptTokenHook
	debtEvents    DebtTokenHook
	roles         RoleView
	boostRegistry BoostRegistry
	boostHook     BoostHook
	boostTable    BoostTable
	pauses        ActionPauses
	now           uint64
	log           *slog.Logger
	metrics       *observability.LendingMetrics
}

// NewEngine constructs a lending engine bound to its configuration store. The
// persistence layer and collaborators are wired through the setters.
func NewEngine(configs ConfigStore) *Engine {
	return &Engine{configs: configs, boostTable: DefaultBoostTable}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetPriceOracle wires the asset price feed.
func (e *Engine) SetPriceOracle(oracle PriceOracle) { e.priceOracle = oracle }

// SetRateOracle wires the lending rate aggregator.
func (e *Engine) SetRateOracle(oracle RateOracle) { e.rateOracle = oracle }

// SetReceiptTokenHook wires the receipt token collaborator.
func (e *Engine) SetReceiptTokenHook(hook ReceiptTokenHook) { e.receipts = hook }

// SetDebtTokenHook wires the debt token observability collaborator.
func (e *Engine) SetDebtTokenHook(hook DebtTokenHook) { e.debtEvents = hook }

// SetRoleView wires the governance role registry used by the genius-loan gate.
func (e *Engine) SetRoleView(roles RoleView) { e.roles = roles }

// SetBoost wires the NFT registry, refresh hook and multiplier table.
func (e *Engine) SetBoost(registry BoostRegistry, hook BoostHook, table BoostTable) {
	e.boostRegistry = registry
	e.boostHook = hook
	if table != nil {
		e.boostTable = table
	}
}

// SetActionPauses replaces the per-flow pause switches.
func (e *Engine) SetActionPauses(p ActionPauses) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pauses = p
}

// SetBlockTimestamp records the clock tick used for accrual deltas. All
// operations within one tick accrue at most once per reserve.
func (e *Engine) SetBlockTimestamp(ts uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = ts
}

// SetLogger attaches a structured logger; the engine stays quiet without one.
func (e *Engine) SetLogger(log *slog.Logger) { e.log = log }

// SetMetrics attaches the prometheus registry for operation accounting.
func (e *Engine) SetMetrics(m *observability.LendingMetrics) { e.metrics = m }

// Deposit transfers amount of asset into the pool on behalf of onBehalfOf and
// credits scaled receipt balance at the current liquidity index. The minted
// scaled amount is returned.
func (e *Engine) Deposit(caller, asset common.Address, amount *big.Int, onBehalfOf common.Address) (minted *big.Int, err error) {
	defer e.observe("deposit", time.Now(), &err)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, ErrNilState
	}
	if e.pauses.Deposit {
		return nil, ErrPaused
	}

	cfg, reserve, err := e.loadReserve(asset)
	if err != nil {
		return nil, err
	}
	treasury, err := e.accrueReserve(reserve, cfg)
	if err != nil {
		return nil, err
	}

	price, priceOK := e.assetPrice(asset)
	totalSupplied := rayMul(reserve.TotalScaledDeposits, reserve.LiquidityIndex)
	supplyUSD := usdValue(totalSupplied, price, cfg.Decimals)
	amountUSD := usdValue(amount, price, cfg.Decimals)
	if err := validateDeposit(asset, onBehalfOf, amount, cfg, amountUSD, supplyUSD, priceOK); err != nil {
		return nil, err
	}

	position, err := e.loadPosition(asset, onBehalfOf)
	if err != nil {
		return nil, err
	}
	scaled := rayDiv(amount, reserve.LiquidityIndex)
	if scaled.Sign() == 0 {
		scaled = big.NewInt(1)
	}
	firstDeposit := position.ScaledDeposit.Sign() == 0
	position.ScaledDeposit = new(big.Int).Add(position.ScaledDeposit, scaled)
	if firstDeposit {
		position.UsingAsCollateral = true
	}
	reserve.TotalScaledDeposits = new(big.Int).Add(reserve.TotalScaledDeposits, scaled)

	marketRate, marketOK := e.marketRate(asset)
	if err := reserve.updateRates(cfg, amount, marketRate, marketOK); err != nil {
		return nil, err
	}

	if err := e.settleTreasury(asset, reserve, treasury); err != nil {
		return nil, err
	}
	if e.receipts != nil {
		if err := e.receipts.Mint(asset, onBehalfOf, amount, reserve.LiquidityIndex); err != nil {
			return nil, err
		}
	}
	if err := e.commit(asset, reserve, position); err != nil {
		return nil, err
	}

	e.notifyBoost(cfg, onBehalfOf, asset, TierNone, BoostActionDeposit, position.DepositBalance(reserve.LiquidityIndex))
	e.logOp("deposit", asset, onBehalfOf, amount)
	return scaled, nil
}

// Withdraw burns receipt balance and releases the underlying amount back to
// the caller. Passing the maximum sentinel withdraws the full balance. The
// withdrawn amount is returned.
func (e *Engine) Withdraw(caller, asset common.Address, amount *big.Int) (withdrawn *big.Int, err error) {
	defer e.observe("withdraw", time.Now(), &err)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, ErrNilState
	}
	if e.pauses.Withdraw {
		return nil, ErrPaused
	}

	cfg, reserve, err := e.loadReserve(asset)
	if err != nil {
		return nil, err
	}
	treasury, err := e.accrueReserve(reserve, cfg)
	if err != nil {
		return nil, err
	}

	position, err := e.loadPosition(asset, caller)
	if err != nil {
		return nil, err
	}
	balance := position.DepositBalance(reserve.LiquidityIndex)
	if amount != nil && amount.Cmp(maxUint256) == 0 {
		amount = balance
	}
	if err := validateWithdraw(asset, amount, balance, reserve.AvailableLiquidity, cfg); err != nil {
		return nil, err
	}

	if position.UsingAsCollateral {
		account, err := e.accountData(caller)
		if err != nil {
			return nil, err
		}
		if account.TotalDebtUSD.Sign() > 0 {
			price, priceOK := e.assetPrice(asset)
			if !priceOK {
				return nil, ErrInvalidOracleRate
			}
			remaining := new(big.Int).Sub(account.TotalCollateralUSD, usdValue(amount, price, cfg.Decimals))
			if healthFactor(remaining, account.TotalDebtUSD, account.AvgLiquidationThresholdBps).Cmp(ray) < 0 {
				return nil, ErrHealthFactorTooLow
			}
		}
	}

	scaled := rayDiv(amount, reserve.LiquidityIndex)
	if scaled.Cmp(position.ScaledDeposit) > 0 {
		scaled = new(big.Int).Set(position.ScaledDeposit)
	}
	position.ScaledDeposit = new(big.Int).Sub(position.ScaledDeposit, scaled)
	reserve.TotalScaledDeposits = new(big.Int).Sub(reserve.TotalScaledDeposits, scaled)
	if reserve.TotalScaledDeposits.Sign() < 0 {
		return nil, ErrInvariantViolation
	}

	marketRate, marketOK := e.marketRate(asset)
	if err := reserve.updateRates(cfg, new(big.Int).Neg(amount), marketRate, marketOK); err != nil {
		return nil, err
	}

	if err := e.settleTreasury(asset, reserve, treasury); err != nil {
		return nil, err
	}
	if e.receipts != nil {
		if err := e.receipts.Burn(asset, caller, amount, reserve.LiquidityIndex); err != nil {
			return nil, err
		}
	}
	if err := e.commit(asset, reserve, position); err != nil {
		return nil, err
	}

	e.notifyBoost(cfg, caller, asset, TierNone, BoostActionDeposit, position.DepositBalance(reserve.LiquidityIndex))
	e.logOp("withdraw", asset, caller, amount)
	return new(big.Int).Set(amount), nil
}

// Borrow opens debt for onBehalfOf in the selected rate mode and releases the
// borrowed funds to the caller. Passing the maximum sentinel resolves to the
// largest permissible amount for the mode before re-validation. The resolved
// amount is returned.
func (e *Engine) Borrow(caller, asset common.Address, amount *big.Int, mode RateMode, onBehalfOf common.Address, nftTokenID *big.Int) (borrowed *big.Int, err error) {
	defer e.observe("borrow", time.Now(), &err)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, ErrNilState
	}
	if e.pauses.Borrow {
		return nil, ErrPaused
	}

	cfg, reserve, err := e.loadReserve(asset)
	if err != nil {
		return nil, err
	}
	treasury, err := e.accrueReserve(reserve, cfg)
	if err != nil {
		return nil, err
	}

	tier, err := e.validateBoostToken(cfg, caller, nftTokenID)
	if err != nil {
		return nil, err
	}

	account, err := e.accountData(onBehalfOf)
	if err != nil {
		return nil, err
	}
	price, priceOK := e.assetPrice(asset)
	marketRate, marketOK := e.marketRate(asset)

	if amount != nil && amount.Cmp(maxUint256) == 0 {
		amount, err = resolveMaxBorrow(mode, reserve, cfg, account, price, priceOK)
		if err != nil {
			return nil, err
		}
	}

	position, err := e.loadPosition(asset, onBehalfOf)
	if err != nil {
		return nil, err
	}
	checks := borrowChecks{
		cfg:                    cfg,
		availableLiquidity:     reserve.AvailableLiquidity,
		currentTotalDebt:       reserve.TotalDebt(),
		usingAssetAsCollateral: position.UsingAsCollateral && position.ScaledDeposit.Sign() > 0,
		marketRateOK:           marketOK,
		price:                  price,
		priceOK:                priceOK,
		account:                account,
		amountUSD:              usdValue(amount, price, cfg.Decimals),
	}
	if err := validateBorrow(asset, onBehalfOf, amount, mode, checks); err != nil {
		return nil, err
	}

	commitAllowance, err := e.authorizeOnBehalf(caller, onBehalfOf, amount)
	if err != nil {
		return nil, err
	}

	// Treasury settlement precedes the debt mint: its amount was derived
	// from pre-mutation totals during accrual.
	if err := e.settleTreasury(asset, reserve, treasury); err != nil {
		return nil, err
	}

	var newBalance *big.Int
	switch mode {
	case RateModeStable:
		balance, increase := reserve.mintStableDebt(position, amount, reserve.CurrentStableBorrowRate, e.now)
		newBalance = balance
		if e.debtEvents != nil {
			e.debtEvents.StableDebtChanged(asset, onBehalfOf, balance, new(big.Int).Add(amount, increase))
		}
	case RateModeVariable:
		newBalance = reserve.mintVariableDebt(position, amount)
		if e.debtEvents != nil {
			e.debtEvents.VariableDebtChanged(asset, onBehalfOf, newBalance, amount)
		}
	}

	if err := reserve.updateRates(cfg, new(big.Int).Neg(amount), marketRate, marketOK); err != nil {
		return nil, err
	}
	if err := e.commit(asset, reserve, position); err != nil {
		return nil, err
	}
	// The allowance is decremented only after the ledger write landed, so a
	// failed commit never burns delegated credit without booking debt.
	if commitAllowance != nil {
		if err := commitAllowance(); err != nil {
			return nil, err
		}
	}

	e.notifyBoost(cfg, onBehalfOf, asset, tier, BoostActionBorrow, newBalance)
	e.logOp("borrow", asset, onBehalfOf, amount)
	return new(big.Int).Set(amount), nil
}

// Repay settles outstanding debt of the selected mode on behalf of
// onBehalfOf. Passing the maximum sentinel repays the full compounded balance.
// The actual amount repaid is returned.
func (e *Engine) Repay(caller, asset common.Address, amount *big.Int, mode RateMode, onBehalfOf common.Address) (repaid *big.Int, err error) {
	defer e.observe("repay", time.Now(), &err)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, ErrNilState
	}
	if e.pauses.Repay {
		return nil, ErrPaused
	}

	cfg, reserve, err := e.loadReserve(asset)
	if err != nil {
		return nil, err
	}
	treasury, err := e.accrueReserve(reserve, cfg)
	if err != nil {
		return nil, err
	}

	position, err := e.loadPosition(asset, onBehalfOf)
	if err != nil {
		return nil, err
	}
	var outstanding *big.Int
	switch mode {
	case RateModeStable:
		outstanding = stableBalanceOf(position, e.now)
	case RateModeVariable:
		outstanding = variableBalanceOf(position, reserve.VariableBorrowIndex)
	default:
		outstanding = big.NewInt(0)
	}
	if amount != nil && amount.Cmp(maxUint256) == 0 {
		amount = new(big.Int).Set(outstanding)
	}
	if err := validateRepay(asset, onBehalfOf, amount, mode, cfg, outstanding); err != nil {
		return nil, err
	}
	if amount.Cmp(outstanding) > 0 {
		amount = new(big.Int).Set(outstanding)
	}

	if err := e.settleTreasury(asset, reserve, treasury); err != nil {
		return nil, err
	}

	var newBalance *big.Int
	switch mode {
	case RateModeStable:
		newBalance = reserve.burnStableDebt(position, amount, e.now)
		if e.debtEvents != nil {
			e.debtEvents.StableDebtChanged(asset, onBehalfOf, newBalance, new(big.Int).Neg(amount))
		}
	case RateModeVariable:
		newBalance = reserve.burnVariableDebt(position, amount)
		if e.debtEvents != nil {
			e.debtEvents.VariableDebtChanged(asset, onBehalfOf, newBalance, new(big.Int).Neg(amount))
		}
	}

	marketRate, marketOK := e.marketRate(asset)
	if err := reserve.updateRates(cfg, amount, marketRate, marketOK); err != nil {
		return nil, err
	}
	if err := e.commit(asset, reserve, position); err != nil {
		return nil, err
	}

	e.notifyBoost(cfg, onBehalfOf, asset, TierNone, BoostActionBorrow, newBalance)
	e.logOp("repay", asset, onBehalfOf, amount)
	return new(big.Int).Set(amount), nil
}

// SetUsingAsCollateral toggles whether the caller's deposit in the reserve
// backs borrowing power. Disabling is rejected when it would leave open debt
// undercollateralised.
func (e *Engine) SetUsingAsCollateral(caller, asset common.Address, use bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return ErrNilState
	}
	cfg, reserve, err := e.loadReserve(asset)
	if err != nil {
		return err
	}
	if !cfg.Active {
		return ErrReserveInactive
	}
	if cfg.Paused {
		return ErrReservePaused
	}
	position, err := e.loadPosition(asset, caller)
	if err != nil {
		return err
	}
	if position.ScaledDeposit.Sign() == 0 {
		return ErrNoCollateral
	}
	if !use && position.UsingAsCollateral {
		account, err := e.accountData(caller)
		if err != nil {
			return err
		}
		if account.TotalDebtUSD.Sign() > 0 {
			price, priceOK := e.assetPrice(asset)
			if !priceOK {
				return ErrInvalidOracleRate
			}
			// The removed balance is valued at the projected index so the
			// gate agrees with the snapshot it is checked against.
			balanceUSD := usdValue(position.DepositBalance(normalizedLiquidityIndex(reserve, e.now)), price, cfg.Decimals)
			remaining := new(big.Int).Sub(account.TotalCollateralUSD, balanceUSD)
			if healthFactor(remaining, account.TotalDebtUSD, account.AvgLiquidationThresholdBps).Cmp(ray) < 0 {
				return ErrHealthFactorTooLow
			}
		}
	}
	position.UsingAsCollateral = use
	return e.state.PutPosition(asset, position)
}

// AccountData aggregates the user's balances across all reserves at the
// current clock tick. The snapshot is derived on demand and never cached.
func (e *Engine) AccountData(user common.Address) (*AccountData, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, ErrNilState
	}
	return e.accountData(user)
}

// resolveMaxBorrow turns the maximum sentinel into a concrete amount. Stable
// borrows are capped by the stable loan percentage of available liquidity;
// variable borrows by the smaller of available liquidity and the remaining
// LTV-based borrowing power.
func resolveMaxBorrow(mode RateMode, reserve *Reserve, cfg ReserveConfig, account *AccountData, price *big.Int, priceOK bool) (*big.Int, error) {
	switch mode {
	case RateModeStable:
		return percentMul(reserve.AvailableLiquidity, cfg.MaxStableLoanPercentBps), nil
	case RateModeVariable:
		if !priceOK {
			return nil, ErrInvalidOracleRate
		}
		byPower := assetUnits(account.AvailableBorrowsUSD, price, cfg.Decimals)
		if byPower.Cmp(reserve.AvailableLiquidity) > 0 {
			return new(big.Int).Set(reserve.AvailableLiquidity), nil
		}
		return byPower, nil
	default:
		return nil, ErrInvalidInterestRateMode
	}
}

func (e *Engine) loadReserve(asset common.Address) (ReserveConfig, *Reserve, error) {
	if e.configs == nil {
		return ReserveConfig{}, nil, ErrNilState
	}
	cfg, ok := e.configs.ReserveConfig(asset)
	if !ok {
		return ReserveConfig{}, nil, ErrReserveNotListed
	}
	stored, err := e.state.GetReserve(asset)
	if err != nil {
		return ReserveConfig{}, nil, err
	}
	if stored == nil {
		reserve := NewReserve(asset)
		reserve.LastUpdateTimestamp = e.now
		return cfg, reserve, nil
	}
	reserve := stored.Clone()
	reserve.ensureDefaults()
	return cfg, reserve, nil
}

func (e *Engine) loadPosition(asset, user common.Address) (*Position, error) {
	stored, err := e.state.GetPosition(asset, user)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		position := &Position{Address: user}
		position.ensureDefaults()
		return position, nil
	}
	position := stored.Clone()
	position.ensureDefaults()
	return position, nil
}

func (e *Engine) commit(asset common.Address, reserve *Reserve, position *Position) error {
	if err := e.state.PutReserve(asset, reserve); err != nil {
		return err
	}
	return e.state.PutPosition(asset, position)
}

func (e *Engine) accrueReserve(reserve *Reserve, cfg ReserveConfig) (*big.Int, error) {
	previous := reserve.LastUpdateTimestamp
	treasury, err := reserve.accrue(e.now, cfg.ReserveFactorBps)
	if err == nil && e.metrics != nil && e.now > previous {
		e.metrics.RecordAccrual()
	}
	return treasury, err
}

func (e *Engine) settleTreasury(asset common.Address, reserve *Reserve, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 || e.receipts == nil {
		return nil
	}
	return e.receipts.MintToTreasury(asset, amount, reserve.LiquidityIndex)
}

func (e *Engine) assetPrice(asset common.Address) (*big.Int, bool) {
	if e.priceOracle == nil {
		return nil, false
	}
	return e.priceOracle.AssetPrice(asset)
}

func (e *Engine) marketRate(asset common.Address) (*big.Int, bool) {
	if e.rateOracle == nil {
		return nil, false
	}
	return e.rateOracle.MarketBorrowRate(asset)
}

// accountData walks every listed reserve and aggregates the user's collateral
// and debt in USD, with collateral-weighted LTV and liquidation thresholds.
func (e *Engine) accountData(user common.Address) (*AccountData, error) {
	data := &AccountData{
		TotalCollateralUSD:  big.NewInt(0),
		TotalDebtUSD:        big.NewInt(0),
		AvailableBorrowsUSD: big.NewInt(0),
		HealthFactor:        new(big.Int).Set(maxUint256),
	}
	assets, err := e.state.ReserveAssets()
	if err != nil {
		return nil, err
	}
	weightedLTV := big.NewInt(0)
	weightedThreshold := big.NewInt(0)
	for _, asset := range assets {
		cfg, ok := e.configs.ReserveConfig(asset)
		if !ok {
			continue
		}
		position, err := e.state.GetPosition(asset, user)
		if err != nil {
			return nil, err
		}
		if position == nil {
			continue
		}
		position = position.Clone()
		position.ensureDefaults()
		if position.ScaledDeposit.Sign() == 0 && position.ScaledVariableDebt.Sign() == 0 && position.StablePrincipal.Sign() == 0 {
			continue
		}
		reserve, err := e.state.GetReserve(asset)
		if err != nil {
			return nil, err
		}
		if reserve == nil {
			continue
		}
		reserve = reserve.Clone()
		reserve.ensureDefaults()

		price, priceOK := e.assetPrice(asset)
		if !priceOK {
			return nil, ErrInvalidOracleRate
		}

		liquidityIndex := normalizedLiquidityIndex(reserve, e.now)
		variableIndex := normalizedVariableIndex(reserve, e.now)

		if position.UsingAsCollateral && position.ScaledDeposit.Sign() > 0 {
			balanceUSD := usdValue(rayMul(position.ScaledDeposit, liquidityIndex), price, cfg.Decimals)
			data.TotalCollateralUSD.Add(data.TotalCollateralUSD, balanceUSD)
			weightedLTV.Add(weightedLTV, new(big.Int).Mul(balanceUSD, new(big.Int).SetUint64(cfg.LTVBps)))
			weightedThreshold.Add(weightedThreshold, new(big.Int).Mul(balanceUSD, new(big.Int).SetUint64(cfg.LiquidationThresholdBps)))
		}

		debt := stableBalanceOf(position, e.now)
		debt.Add(debt, rayMul(position.ScaledVariableDebt, variableIndex))
		if debt.Sign() > 0 {
			data.TotalDebtUSD.Add(data.TotalDebtUSD, usdValue(debt, price, cfg.Decimals))
		}
	}

	if data.TotalCollateralUSD.Sign() > 0 {
		avgLTV := new(big.Int).Add(weightedLTV, halfUp(data.TotalCollateralUSD))
		avgLTV.Quo(avgLTV, data.TotalCollateralUSD)
		data.AvgLTVBps = avgLTV.Uint64()
		avgThreshold := new(big.Int).Add(weightedThreshold, halfUp(data.TotalCollateralUSD))
		avgThreshold.Quo(avgThreshold, data.TotalCollateralUSD)
		data.AvgLiquidationThresholdBps = avgThreshold.Uint64()
	}

	borrowPower := percentMul(data.TotalCollateralUSD, data.AvgLTVBps)
	if borrowPower.Cmp(data.TotalDebtUSD) > 0 {
		data.AvailableBorrowsUSD = new(big.Int).Sub(borrowPower, data.TotalDebtUSD)
	}
	data.HealthFactor = healthFactor(data.TotalCollateralUSD, data.TotalDebtUSD, data.AvgLiquidationThresholdBps)
	return data, nil
}

// normalizedLiquidityIndex projects the liquidity index to now without
// writing, so snapshots of untouched reserves stay accurate.
func normalizedLiquidityIndex(r *Reserve, now uint64) *big.Int {
	if now <= r.LastUpdateTimestamp || r.CurrentLiquidityRate.Sign() == 0 {
		return new(big.Int).Set(r.LiquidityIndex)
	}
	return rayMul(r.LiquidityIndex, linearInterest(r.CurrentLiquidityRate, now-r.LastUpdateTimestamp))
}

// normalizedVariableIndex is the pure-read counterpart for variable debt.
func normalizedVariableIndex(r *Reserve, now uint64) *big.Int {
	if now <= r.LastUpdateTimestamp || r.CurrentVariableBorrowRate.Sign() == 0 {
		return new(big.Int).Set(r.VariableBorrowIndex)
	}
	return rayMul(r.VariableBorrowIndex, compoundedInterest(r.CurrentVariableBorrowRate, now-r.LastUpdateTimestamp))
}

func (e *Engine) observe(op string, start time.Time, err *error) {
	if e.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil && *err != nil {
		outcome = "error"
	}
	e.metrics.ObserveOperation(op, outcome, time.Since(start).Seconds())
}

func (e *Engine) logOp(op string, asset, user common.Address, amount *big.Int) {
	if e.log == nil {
		return
	}
	e.log.Debug(op, "asset", asset.Hex(), "user", user.Hex(), "amount", amount.String())
}

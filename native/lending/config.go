package lending

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
)

// Config captures the runtime configuration for the lending pool. Reserve
// listings, risk limits and rate curves are governance inputs; the engine only
// consumes the resulting snapshots.
type Config struct {
	Reserves []ReserveSettings `toml:"reserve"`
	Boost    []BoostSetting    `toml:"boost"`
}

// ReserveSettings describes one listed asset. Rates and ratios are decimal
// strings, e.g. "0.02" for 2%, and are converted to ray internally.
type ReserveSettings struct {
	Asset                   string `toml:"Asset"`
	Decimals                uint8  `toml:"Decimals"`
	Active                  bool   `toml:"Active"`
	Frozen                  bool   `toml:"Frozen"`
	Paused                  bool   `toml:"Paused"`
	BorrowingEnabled        bool   `toml:"BorrowingEnabled"`
	StableBorrowingEnabled  bool   `toml:"StableBorrowingEnabled"`
	LTVBps                  uint64 `toml:"LTVBps"`
	LiquidationThresholdBps uint64 `toml:"LiquidationThresholdBps"`
	ReserveFactorBps        uint64 `toml:"ReserveFactorBps"`
	MaxStableLoanPercentBps uint64 `toml:"MaxStableLoanPercentBps"`
	BorrowCapUSD            string `toml:"BorrowCapUSD"`
	SupplyCapUSD            string `toml:"SupplyCapUSD"`
	BoostEnabled            bool   `toml:"BoostEnabled"`
	OptimalUtilization      string `toml:"OptimalUtilization"`
	BaseVariableBorrowRate  string `toml:"BaseVariableBorrowRate"`
	VariableRateSlope1      string `toml:"VariableRateSlope1"`
	VariableRateSlope2      string `toml:"VariableRateSlope2"`
	StableRateSpread        string `toml:"StableRateSpread"`
}

// BoostSetting maps one (tier, action) pair to its stake multiplier.
type BoostSetting struct {
	Tier          string `toml:"Tier"`
	Action        string `toml:"Action"`
	MultiplierBps uint64 `toml:"MultiplierBps"`
}

// LoadConfig reads the TOML configuration from disk.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode lending config: %w", err)
	}
	return cfg, nil
}

// Store materialises the configuration into the read-only snapshot store the
// engine consumes.
func (c *Config) Store() (*StaticConfigStore, error) {
	store := &StaticConfigStore{configs: make(map[common.Address]ReserveConfig, len(c.Reserves))}
	for i := range c.Reserves {
		settings := c.Reserves[i]
		asset, err := parseAddress(settings.Asset)
		if err != nil {
			return nil, fmt.Errorf("reserve %d: %w", i, err)
		}
		reserveCfg, err := settings.snapshot()
		if err != nil {
			return nil, fmt.Errorf("reserve %s: %w", settings.Asset, err)
		}
		store.configs[asset] = reserveCfg
	}
	return store, nil
}

// BoostTable materialises the configured multiplier table, falling back to the
// defaults for pairs the configuration leaves out.
func (c *Config) BoostTable() (BoostTable, error) {
	if len(c.Boost) == 0 {
		return DefaultBoostTable, nil
	}
	table := make(BoostTable, len(c.Boost))
	for _, entry := range c.Boost {
		tier, err := parseTier(entry.Tier)
		if err != nil {
			return nil, err
		}
		action, err := parseAction(entry.Action)
		if err != nil {
			return nil, err
		}
		table[BoostKey{Tier: tier, Action: action}] = entry.MultiplierBps
	}
	return table, nil
}

func (s ReserveSettings) snapshot() (ReserveConfig, error) {
	cfg := ReserveConfig{
		Decimals:                s.Decimals,
		Active:                  s.Active,
		Frozen:                  s.Frozen,
		Paused:                  s.Paused,
		BorrowingEnabled:        s.BorrowingEnabled,
		StableBorrowingEnabled:  s.StableBorrowingEnabled,
		LTVBps:                  s.LTVBps,
		LiquidationThresholdBps: s.LiquidationThresholdBps,
		ReserveFactorBps:        s.ReserveFactorBps,
		MaxStableLoanPercentBps: s.MaxStableLoanPercentBps,
		BoostEnabled:            s.BoostEnabled,
	}
	var err error
	if cfg.BorrowCapUSD, err = parseUSD(s.BorrowCapUSD); err != nil {
		return ReserveConfig{}, fmt.Errorf("borrow cap: %w", err)
	}
	if cfg.SupplyCapUSD, err = parseUSD(s.SupplyCapUSD); err != nil {
		return ReserveConfig{}, fmt.Errorf("supply cap: %w", err)
	}
	rates := InterestRateStrategy{}
	if rates.OptimalUtilization, err = parseRay(s.OptimalUtilization); err != nil {
		return ReserveConfig{}, fmt.Errorf("optimal utilization: %w", err)
	}
	if rates.BaseVariableBorrowRate, err = parseRay(s.BaseVariableBorrowRate); err != nil {
		return ReserveConfig{}, fmt.Errorf("base variable rate: %w", err)
	}
	if rates.VariableRateSlope1, err = parseRay(s.VariableRateSlope1); err != nil {
		return ReserveConfig{}, fmt.Errorf("variable slope 1: %w", err)
	}
	if rates.VariableRateSlope2, err = parseRay(s.VariableRateSlope2); err != nil {
		return ReserveConfig{}, fmt.Errorf("variable slope 2: %w", err)
	}
	if rates.StableRateSpread, err = parseRay(s.StableRateSpread); err != nil {
		return ReserveConfig{}, fmt.Errorf("stable spread: %w", err)
	}
	cfg.Rates = rates
	return cfg, nil
}

// StaticConfigStore is an immutable in-memory ConfigStore backed by the
// loaded configuration.
type StaticConfigStore struct {
	configs map[common.Address]ReserveConfig
}

// NewStaticConfigStore builds a store directly from snapshots, used by tests
// and embedders that manage configuration themselves.
func NewStaticConfigStore(configs map[common.Address]ReserveConfig) *StaticConfigStore {
	cloned := make(map[common.Address]ReserveConfig, len(configs))
	for asset, cfg := range configs {
		cloned[asset] = cfg
	}
	return &StaticConfigStore{configs: cloned}
}

// ReserveConfig returns the snapshot for the asset.
func (s *StaticConfigStore) ReserveConfig(asset common.Address) (ReserveConfig, bool) {
	if s == nil {
		return ReserveConfig{}, false
	}
	cfg, ok := s.configs[asset]
	return cfg, ok
}

func parseAddress(value string) (common.Address, error) {
	trimmed := strings.TrimSpace(value)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("invalid asset address %q", value)
	}
	return common.HexToAddress(trimmed), nil
}

// parseRay converts a decimal string such as "0.045" into a ray value.
func parseRay(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	r, ok := new(big.Rat).SetString(trimmed)
	if !ok || r.Sign() < 0 {
		return nil, fmt.Errorf("invalid rate %q", value)
	}
	return ratToRay(r), nil
}

// mustRay is parseRay for compile-time literals.
func mustRay(value string) *big.Int {
	v, err := parseRay(value)
	if err != nil {
		panic(err)
	}
	return v
}

// parseUSD converts a whole-dollar string into wad USD. Empty means uncapped.
func parseUSD(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	r, ok := new(big.Rat).SetString(trimmed)
	if !ok || r.Sign() < 0 {
		return nil, fmt.Errorf("invalid USD amount %q", value)
	}
	scaled := new(big.Rat).Mul(r, new(big.Rat).SetInt(wad))
	return new(big.Int).Quo(scaled.Num(), scaled.Denom()), nil
}

func parseTier(value string) (BoostTier, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "none":
		return TierNone, nil
	case "banker":
		return TierBanker, nil
	case "golden":
		return TierGolden, nil
	}
	return TierNone, fmt.Errorf("invalid boost tier %q", value)
}

func parseAction(value string) (BoostAction, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "deposit":
		return BoostActionDeposit, nil
	case "borrow":
		return BoostActionBorrow, nil
	}
	return BoostActionDeposit, fmt.Errorf("invalid boost action %q", value)
}

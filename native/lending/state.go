package lending

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"lendpool/storage"
)

// Key layout for the pool's persisted books. Every record is JSON so external
// tooling can inspect state without the engine.
const (
	reserveKeyPrefix    = "lending/reserve/"
	positionKeyPrefix   = "lending/position/"
	delegationKeyPrefix = "lending/delegation/"
	geniusKeyPrefix     = "lending/genius/"
	reserveIndexKey     = "lending/reserves"
)

// StoreState persists reserves, positions and delegations in a key-value
// database. It implements the engine's state interface; the daemon backs it
// with LevelDB and tests with the in-memory store.
type StoreState struct {
	db storage.Database
}

// NewStoreState wraps the database in the engine's persistence interface.
func NewStoreState(db storage.Database) *StoreState {
	return &StoreState{db: db}
}

func reserveKey(asset common.Address) []byte {
	return []byte(reserveKeyPrefix + asset.Hex())
}

func positionStoreKey(asset, user common.Address) []byte {
	return []byte(positionKeyPrefix + asset.Hex() + "/" + user.Hex())
}

func delegationKey(owner, delegate common.Address) []byte {
	return []byte(delegationKeyPrefix + owner.Hex() + "/" + delegate.Hex())
}

func geniusKey(owner common.Address) []byte {
	return []byte(geniusKeyPrefix + owner.Hex())
}

// GetReserve loads the reserve record, returning nil when the asset has never
// been touched.
func (s *StoreState) GetReserve(asset common.Address) (*Reserve, error) {
	raw, ok, err := s.db.Get(reserveKey(asset))
	if err != nil || !ok {
		return nil, err
	}
	reserve := &Reserve{}
	if err := json.Unmarshal(raw, reserve); err != nil {
		return nil, fmt.Errorf("decode reserve %s: %w", asset.Hex(), err)
	}
	reserve.ensureDefaults()
	return reserve, nil
}

// PutReserve stores the reserve and registers the asset in the listing index.
func (s *StoreState) PutReserve(asset common.Address, reserve *Reserve) error {
	raw, err := json.Marshal(reserve)
	if err != nil {
		return fmt.Errorf("encode reserve %s: %w", asset.Hex(), err)
	}
	if err := s.db.Put(reserveKey(asset), raw); err != nil {
		return err
	}
	return s.indexAsset(asset)
}

// GetPosition loads a user's position in the reserve, nil when absent.
func (s *StoreState) GetPosition(asset, user common.Address) (*Position, error) {
	raw, ok, err := s.db.Get(positionStoreKey(asset, user))
	if err != nil || !ok {
		return nil, err
	}
	position := &Position{}
	if err := json.Unmarshal(raw, position); err != nil {
		return nil, fmt.Errorf("decode position: %w", err)
	}
	position.ensureDefaults()
	return position, nil
}

// PutPosition stores the position under its owner's address.
func (s *StoreState) PutPosition(asset common.Address, position *Position) error {
	raw, err := json.Marshal(position)
	if err != nil {
		return fmt.Errorf("encode position: %w", err)
	}
	return s.db.Put(positionStoreKey(asset, position.Address), raw)
}

// ReserveAssets returns every asset that has ever stored a reserve record.
func (s *StoreState) ReserveAssets() ([]common.Address, error) {
	raw, ok, err := s.db.Get([]byte(reserveIndexKey))
	if err != nil || !ok {
		return nil, err
	}
	var assets []common.Address
	if err := json.Unmarshal(raw, &assets); err != nil {
		return nil, fmt.Errorf("decode reserve index: %w", err)
	}
	return assets, nil
}

// Delegation returns the standing borrow allowance, nil when none is set.
func (s *StoreState) Delegation(owner, delegate common.Address) (*big.Int, error) {
	raw, ok, err := s.db.Get(delegationKey(owner, delegate))
	if err != nil || !ok {
		return nil, err
	}
	allowance := new(big.Int)
	if err := allowance.UnmarshalText(raw); err != nil {
		return nil, fmt.Errorf("decode delegation: %w", err)
	}
	return allowance, nil
}

// PutDelegation stores the allowance; zero clears the record.
func (s *StoreState) PutDelegation(owner, delegate common.Address, allowance *big.Int) error {
	if allowance == nil || allowance.Sign() == 0 {
		return s.db.Delete(delegationKey(owner, delegate))
	}
	raw, err := allowance.MarshalText()
	if err != nil {
		return err
	}
	return s.db.Put(delegationKey(owner, delegate), raw)
}

// GeniusLoanApproved reports the account's standing opt-in.
func (s *StoreState) GeniusLoanApproved(owner common.Address) (bool, error) {
	_, ok, err := s.db.Get(geniusKey(owner))
	return ok, err
}

// PutGeniusLoanApproval stores or clears the opt-in flag.
func (s *StoreState) PutGeniusLoanApproval(owner common.Address, approved bool) error {
	if !approved {
		return s.db.Delete(geniusKey(owner))
	}
	return s.db.Put(geniusKey(owner), []byte{1})
}

func (s *StoreState) indexAsset(asset common.Address) error {
	assets, err := s.ReserveAssets()
	if err != nil {
		return err
	}
	for _, listed := range assets {
		if listed == asset {
			return nil
		}
	}
	assets = append(assets, asset)
	raw, err := json.Marshal(assets)
	if err != nil {
		return err
	}
	return s.db.Put([]byte(reserveIndexKey), raw)
}

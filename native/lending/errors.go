package lending

import "errors"

// Validation rejections. Each precondition failure surfaces its own sentinel
// so callers can discriminate the exact cause with errors.Is.
var (
	ErrInvalidAddress                  = errors.New("lending engine: address must not be zero")
	ErrReserveNotListed                = errors.New("lending engine: reserve not listed")
	ErrReserveInactive                 = errors.New("lending engine: reserve inactive")
	ErrReserveFrozen                   = errors.New("lending engine: reserve frozen")
	ErrReservePaused                   = errors.New("lending engine: reserve paused")
	ErrInvalidAmount                   = errors.New("lending engine: amount must be positive")
	ErrBorrowingDisabled               = errors.New("lending engine: borrowing disabled on reserve")
	ErrStableBorrowingDisabled         = errors.New("lending engine: stable borrowing disabled on reserve")
	ErrInvalidInterestRateMode         = errors.New("lending engine: invalid interest rate mode")
	ErrNoCollateral                    = errors.New("lending engine: caller holds no collateral")
	ErrCollateralSameAsBorrowAsset     = errors.New("lending engine: borrow asset already used as collateral")
	ErrAmountExceedsMaxStableLoan      = errors.New("lending engine: amount exceeds maximum stable loan size")
	ErrBorrowCapExceeded               = errors.New("lending engine: borrow cap exceeded")
	ErrSupplyCapExceeded               = errors.New("lending engine: supply cap exceeded")
	ErrHealthFactorTooLow              = errors.New("lending engine: health factor below liquidation threshold")
	ErrCollateralCannotCoverBorrow     = errors.New("lending engine: collateral cannot cover new borrow")
	ErrInsufficientLiquidity           = errors.New("lending engine: insufficient liquidity")
	ErrInvalidOracleRate               = errors.New("lending engine: oracle rate unavailable")
	ErrDelegationAllowanceInsufficient = errors.New("lending engine: borrow allowance insufficient")
	ErrGeniusLoanNotAccepted           = errors.New("lending engine: genius loan not accepted by account")
	ErrNftAlreadyLocked                = errors.New("lending engine: nft already locked")
	ErrNotOwnerOfNft                   = errors.New("lending engine: caller does not own nft")
	ErrYieldBoostNotEnabled            = errors.New("lending engine: yield boost not enabled for reserve")
	ErrNoDebt                          = errors.New("lending engine: no outstanding debt of selected type")
)

// Engine wiring and invariant failures. Invariant violations indicate a core
// bug rather than user error and are never returned for ordinary validation.
var (
	ErrNilState           = errors.New("lending engine: state not configured")
	ErrPaused             = errors.New("lending engine: operations paused")
	ErrInvariantViolation = errors.New("lending engine: accounting invariant violated")
)

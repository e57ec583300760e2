package lending

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// RoleView answers whether an address holds the genius-loan override role.
// Role grants live in governance; the engine only queries them.
type RoleView interface {
	HasGeniusLoanRole(addr common.Address) bool
}

// ApproveDelegation sets the standing borrow allowance a delegate may draw on
// behalf of the owner. Passing zero revokes the delegation.
func (e *Engine) ApproveDelegation(owner, delegate common.Address, amount *big.Int) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if owner == (common.Address{}) || delegate == (common.Address{}) {
		return ErrInvalidAddress
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.PutDelegation(owner, delegate, new(big.Int).Set(amount))
}

// SetGeniusLoanApproval toggles the account's opt-in to role-based borrowing
// on its behalf. Disabling revokes override access immediately, regardless of
// any role the caller still holds.
func (e *Engine) SetGeniusLoanApproval(owner common.Address, approved bool) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if owner == (common.Address{}) {
		return ErrInvalidAddress
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.PutGeniusLoanApproval(owner, approved)
}

// authorizeOnBehalf decides whether caller may open debt for onBehalfOf. The
// two predicates run in a fixed order: the role-plus-opt-in override first,
// then the classic credit-delegation allowance as fallback. The override
// consumes no allowance. On the allowance path the returned commit function
// decrements the allowance; it must only be invoked once the operation is
// certain to succeed.
func (e *Engine) authorizeOnBehalf(caller, onBehalfOf common.Address, amount *big.Int) (func() error, error) {
	if caller == onBehalfOf {
		return nil, nil
	}
	roleHeld := e.roles != nil && e.roles.HasGeniusLoanRole(caller)
	if roleHeld {
		accepted, err := e.state.GeniusLoanApproved(onBehalfOf)
		if err != nil {
			return nil, err
		}
		if accepted {
			return nil, nil
		}
	}
	allowance, err := e.state.Delegation(onBehalfOf, caller)
	if err != nil {
		return nil, err
	}
	if allowance == nil || allowance.Cmp(amount) < 0 {
		if roleHeld {
			return nil, ErrGeniusLoanNotAccepted
		}
		return nil, ErrDelegationAllowanceInsufficient
	}
	remaining := new(big.Int).Sub(allowance, amount)
	commit := func() error {
		return e.state.PutDelegation(onBehalfOf, caller, remaining)
	}
	return commit, nil
}

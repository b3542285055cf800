package payroll

import "errors"

var (
	// ErrZeroAmount is returned when an operation carries a zero amount.
	ErrZeroAmount = errors.New("amount must be greater than zero")
	// ErrInsufficientFunds is returned when a plaintext balance does not
	// cover the amount. The plaintext ledger hard-fails where the
	// confidential one silently no-ops.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInvariantViolation is returned when supply and locked collateral
	// diverge after a mutation. It indicates a bug, never a user error.
	ErrInvariantViolation = errors.New("supply and locked collateral diverged")
	// ErrUnauthorized is returned when the caller is not the organization
	// authority or the expected account owner.
	ErrUnauthorized = errors.New("caller not authorized")
	// ErrMintMismatch is returned when an account belongs to a different
	// mint than the operation names.
	ErrMintMismatch = errors.New("account does not belong to mint")
	// ErrOrgExists is returned when the authority already has an
	// organization.
	ErrOrgExists = errors.New("organization already initialized")
	// ErrPayrollExists is returned when the organization already has a
	// payroll under the name.
	ErrPayrollExists = errors.New("payroll already exists")
	// ErrMemberExists is returned when the wallet is already on the
	// payroll.
	ErrMemberExists = errors.New("payroll member already exists")
	// ErrPayrollNotActive is returned when running or joining a paused
	// payroll.
	ErrPayrollNotActive = errors.New("payroll not active")
	// ErrMemberNotActive is returned when paying a deactivated member.
	ErrMemberNotActive = errors.New("payroll member not active")
	// ErrPayrollNotDue is returned when no full interval elapsed since the
	// member's last payment.
	ErrPayrollNotDue = errors.New("no payment due yet")
	// ErrMustPauseFirst is returned when closing a payroll that is still
	// active.
	ErrMustPauseFirst = errors.New("payroll must be paused before closing")
)

package ledger

import "errors"

var (
	// ErrZeroAmount is returned when an operation carries a zero amount.
	ErrZeroAmount = errors.New("amount must be greater than zero")
	// ErrUnauthorized is returned when the caller is neither the mint
	// authority nor the account owner the operation requires.
	ErrUnauthorized = errors.New("caller not authorized")
	// ErrMintMismatch is returned when an account does not belong to the
	// mint an operation names.
	ErrMintMismatch = errors.New("account does not belong to mint")
	// ErrInvalidVault is returned when a vault's linkage to its mint or
	// backing asset does not hold.
	ErrInvalidVault = errors.New("vault linkage invalid")
	// ErrMintExists is returned when initializing a mint that already
	// exists for the authority.
	ErrMintExists = errors.New("mint already initialized")
	// ErrAccountExists is returned when initializing an account that
	// already exists for the owner and mint.
	ErrAccountExists = errors.New("account already initialized")
	// ErrInvalidAllowanceAccounts is returned when the identity a mutated
	// balance would be granted to does not own the record the operation
	// named; committing would hand the capability to the wrong party.
	ErrInvalidAllowanceAccounts = errors.New("allowance accounts do not match record owner")
	// ErrAbortedComputation is returned when a callback fails verification
	// or carries an aborted outcome; the job is rejected and no ledger
	// field is mutated.
	ErrAbortedComputation = errors.New("computation aborted")
)

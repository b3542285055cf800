// Package compute models the confidential arithmetic surface exposed by a
// trusted execution environment. Callers never see plaintext values: they
// load ciphertexts or public scalars into opaque handles, combine handles
// with u128 wraparound arithmetic, and either export the result re-encrypted
// under a caller context or, for guard conditions only, reveal it.
package compute

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cvctoken/cvct/types"
)

// Handle is an opaque reference to a value living inside the engine. It
// carries no information about the value itself.
type Handle uint64

var (
	// ErrUnknownHandle is returned when a handle does not name a live value.
	ErrUnknownHandle = errors.New("unknown computation handle")
	// ErrUnknownContext is returned when a ciphertext's context key does not
	// match any key the engine holds.
	ErrUnknownContext = errors.New("unknown encryption context")
)

// Engine is the synchronous encrypted-arithmetic dispatcher. All arithmetic
// is modulo 2^128; comparisons yield a handle holding 0 or 1. Both branches
// of a conditional update must be computed and combined with Select so the
// operation sequence never depends on the encrypted values.
type Engine interface {
	// FromPlaintext loads a public value into a fresh handle.
	FromPlaintext(v *types.BigInt) (Handle, error)
	// FromCiphertext decrypts an encrypted scalar inside the engine and
	// returns a handle to it. The plaintext never leaves the engine.
	FromCiphertext(s *types.EncryptedScalar) (Handle, error)
	// Add returns a handle to (a + b) mod 2^128.
	Add(a, b Handle) (Handle, error)
	// Sub returns a handle to (a - b) mod 2^128.
	Sub(a, b Handle) (Handle, error)
	// Ge returns a handle holding 1 when a >= b, else 0.
	Ge(a, b Handle) (Handle, error)
	// Select returns ifTrue when cond is nonzero, else ifFalse.
	Select(cond, ifTrue, ifFalse Handle) (Handle, error)
	// Allow records an access grant on the value behind h for grantee.
	// Mutable grants authorize future in-place updates through the engine.
	Allow(h Handle, grantee common.Address, mutable bool) error
	// Export re-encrypts the value behind h under the given context and
	// returns the resulting scalar. The context nonce must be fresh;
	// encryption randomness is derived from it.
	Export(h Handle, ctx *types.EncryptionContext) (*types.EncryptedScalar, error)
	// Reveal declassifies the value behind h. Reserved for guard booleans
	// and custody amounts that gate external effects; never used on
	// balances or supplies.
	Reveal(h Handle) (*types.BigInt, error)
}

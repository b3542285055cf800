// Package payroll implements recurring payments on the plaintext analog of
// the confidential ledger. Balances, supply and locked collateral are public
// uint64 values, which changes the failure discipline: where the
// confidential ledger silently no-ops an uncovered amount, the plaintext one
// hard-fails with ErrInsufficientFunds, and supply/locked equality is
// asserted after every mutation instead of being trusted to lockstep
// arithmetic.
package payroll

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/log"

	"github.com/cvctoken/cvct/custody"
	"github.com/cvctoken/cvct/storage"
	"github.com/cvctoken/cvct/types"
)

// Ledger is the plaintext-analog token ledger payrolls pay from.
type Ledger struct {
	stg     *storage.Storage
	custody custody.Service
}

// NewLedger creates a plaintext ledger over storage and custody.
func NewLedger(stg *storage.Storage, custodySvc custody.Service) *Ledger {
	return &Ledger{stg: stg, custody: custodySvc}
}

// InitMint creates a plaintext mint for the authority.
func (l *Ledger) InitMint(authority common.Address) (*storage.PlainMint, error) {
	id := storage.DerivePlainMintID(authority)
	if _, err := l.stg.PlainMint(id); err == nil {
		return nil, fmt.Errorf("plain mint already initialized")
	}
	mint := &storage.PlainMint{ID: id, Authority: authority}
	if err := l.stg.SetPlainMint(mint); err != nil {
		return nil, err
	}
	return mint, nil
}

// InitAccount creates the owner's zero-balance account on a plaintext mint.
func (l *Ledger) InitAccount(owner common.Address, mintID types.HexBytes) (*storage.PlainAccount, error) {
	if _, err := l.stg.PlainMint(mintID); err != nil {
		return nil, err
	}
	id := storage.DerivePlainAccountID(mintID, owner)
	if _, err := l.stg.PlainAccount(id); err == nil {
		return nil, fmt.Errorf("plain account already initialized")
	}
	account := &storage.PlainAccount{ID: id, Owner: owner, Mint: mintID}
	if err := l.stg.SetPlainAccount(account); err != nil {
		return nil, err
	}
	return account, nil
}

// Deposit locks backing tokens in custody and mints the amount to the
// owner's balance.
func (l *Ledger) Deposit(owner common.Address, mintID types.HexBytes, amount uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	mint, account, err := l.load(mintID, owner)
	if err != nil {
		return err
	}
	if err := l.custody.Transfer(types.HexBytes(owner.Bytes()), mintCustody(mintID), amount); err != nil {
		return fmt.Errorf("lock backing asset: %w", err)
	}
	account.Balance += amount
	mint.Supply += amount
	mint.Locked += amount
	return l.commit(mint, account)
}

// Withdraw burns the amount from the owner's balance and releases it from
// custody. Unlike the confidential ledger this hard-fails on overdraw.
func (l *Ledger) Withdraw(owner common.Address, mintID types.HexBytes, amount uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	mint, account, err := l.load(mintID, owner)
	if err != nil {
		return err
	}
	if account.Balance < amount || mint.Supply < amount || mint.Locked < amount {
		return ErrInsufficientFunds
	}
	// custody settles first so a failed release never leaves value burned
	if err := l.custody.Transfer(mintCustody(mintID), types.HexBytes(owner.Bytes()), amount); err != nil {
		return fmt.Errorf("release backing asset: %w", err)
	}
	account.Balance -= amount
	mint.Supply -= amount
	mint.Locked -= amount
	return l.commit(mint, account)
}

// Transfer moves the amount between two accounts of the same mint,
// hard-failing on overdraw. Supply and locked are untouched.
func (l *Ledger) Transfer(owner common.Address, mintID types.HexBytes, to common.Address, amount uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	if owner == to {
		return nil
	}
	mint, src, err := l.load(mintID, owner)
	if err != nil {
		return err
	}
	dst, err := l.stg.PlainAccount(storage.DerivePlainAccountID(mintID, to))
	if err != nil {
		return err
	}
	if !bytes.Equal(dst.Mint, mint.ID) {
		return ErrMintMismatch
	}
	if src.Balance < amount {
		return ErrInsufficientFunds
	}
	src.Balance -= amount
	dst.Balance += amount
	if err := l.stg.SetPlainAccount(src); err != nil {
		return err
	}
	if err := l.stg.SetPlainAccount(dst); err != nil {
		return err
	}
	return l.assertInvariant(mint)
}

// Balance returns the owner's plaintext balance.
func (l *Ledger) Balance(owner common.Address, mintID types.HexBytes) (uint64, error) {
	account, err := l.stg.PlainAccount(storage.DerivePlainAccountID(mintID, owner))
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

func (l *Ledger) load(mintID types.HexBytes, owner common.Address) (*storage.PlainMint, *storage.PlainAccount, error) {
	mint, err := l.stg.PlainMint(mintID)
	if err != nil {
		return nil, nil, err
	}
	account, err := l.stg.PlainAccount(storage.DerivePlainAccountID(mintID, owner))
	if err != nil {
		return nil, nil, err
	}
	if account.Owner != owner {
		return nil, nil, ErrUnauthorized
	}
	return mint, account, nil
}

func (l *Ledger) commit(mint *storage.PlainMint, account *storage.PlainAccount) error {
	if err := l.stg.SetPlainAccount(account); err != nil {
		return err
	}
	if err := l.stg.SetPlainMint(mint); err != nil {
		return err
	}
	return l.assertInvariant(mint)
}

// assertInvariant checks supply == locked after a mutation. A violation is a
// ledger bug surfaced loudly, not a user error.
func (l *Ledger) assertInvariant(mint *storage.PlainMint) error {
	if mint.Supply != mint.Locked {
		log.Errorw(ErrInvariantViolation, fmt.Sprintf("mint %x: supply %d locked %d",
			mint.ID, mint.Supply, mint.Locked))
		return ErrInvariantViolation
	}
	return nil
}

func mintCustody(mintID types.HexBytes) types.HexBytes {
	return append(types.HexBytes("plain_custody"), mintID...)
}

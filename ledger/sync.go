package ledger

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/log"

	"github.com/cvctoken/cvct/compute"
	"github.com/cvctoken/cvct/storage"
	"github.com/cvctoken/cvct/types"
)

// Synchronous operations: encrypted arithmetic dispatched inline against the
// engine, committed before returning. The conditional ones compute both
// branches and select, so the engine call sequence never depends on the
// encrypted values.

// Deposit locks amount backing tokens in the vault's custody account and
// adds the amount to the owner's balance, the mint supply and the locked
// collateral in lockstep. The custody transfer runs strictly first: when it
// fails no encrypted field is touched.
func (l *Ledger) Deposit(owner common.Address, mintID types.HexBytes, amount uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	mint, vault, account, err := l.loadMintState(mintID, owner)
	if err != nil {
		return err
	}
	if err := l.custody.Transfer(CustodyAccount(owner), vault.CustodyAccount, amount); err != nil {
		return fmt.Errorf("lock backing asset: %w", err)
	}

	amt, err := l.engine.FromPlaintext(types.NewInt(amount))
	if err != nil {
		return err
	}
	if err := l.mutateTotals(mint, vault, account, func(cur compute.Handle) (compute.Handle, error) {
		return l.engine.Add(cur, amt)
	}); err != nil {
		return err
	}
	log.Debugw("deposit committed", "mint", mint.ID.String(), "amount", amount)
	return nil
}

// Withdraw burns up to amount from the owner's balance and releases the
// effective amount from custody. When any of the three totals does not cover
// the amount the encrypted state is re-encrypted unchanged and nothing is
// released; the caller cannot distinguish the two outcomes from the
// operation sequence, only from the returned effective amount.
func (l *Ledger) Withdraw(owner common.Address, mintID types.HexBytes, amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, ErrZeroAmount
	}
	mint, vault, account, err := l.loadMintState(mintID, owner)
	if err != nil {
		return 0, err
	}

	amt, err := l.engine.FromPlaintext(types.NewInt(amount))
	if err != nil {
		return 0, err
	}
	zero, err := l.engine.FromPlaintext(new(types.BigInt))
	if err != nil {
		return 0, err
	}

	totals := []*types.EncryptedScalar{account.Balance, mint.TotalSupply, vault.TotalLocked}
	handles := make([]compute.Handle, len(totals))
	var ok compute.Handle
	for i, s := range totals {
		if handles[i], err = l.engine.FromCiphertext(s); err != nil {
			return 0, err
		}
		covers, err := l.engine.Ge(handles[i], amt)
		if err != nil {
			return 0, err
		}
		if i == 0 {
			ok = covers
			continue
		}
		if ok, err = l.engine.Select(ok, covers, zero); err != nil {
			return 0, err
		}
	}
	effective, err := l.engine.Select(ok, amt, zero)
	if err != nil {
		return 0, err
	}

	// only the effective amount is ever declassified, never the balance
	released, err := l.engine.Reveal(effective)
	if err != nil {
		return 0, err
	}
	out := released.MathBigInt().Uint64()
	// custody settles before the ciphertext commit, as in the callback
	// path: a failed release must not leave value burned
	if out > 0 {
		if err := l.custody.Transfer(vault.CustodyAccount, CustodyAccount(owner), out); err != nil {
			return 0, fmt.Errorf("release backing asset: %w", err)
		}
	}
	if err := l.mutateTotalsFrom(mint, vault, account, handles, func(cur compute.Handle) (compute.Handle, error) {
		return l.engine.Sub(cur, effective)
	}); err != nil {
		return 0, err
	}
	log.Debugw("withdraw committed", "mint", mint.ID.String(), "requested", amount, "released", out)
	return out, nil
}

// Transfer moves up to amount between two accounts of the same mint. An
// uncovered amount re-encrypts both balances unchanged. Transfer to self is
// a successful no-op resolved before any engine call.
func (l *Ledger) Transfer(owner common.Address, mintID types.HexBytes, to common.Address, amount uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	if owner == to {
		return nil
	}
	mint, src, dst, err := l.loadTransferAccounts(mintID, owner, to)
	if err != nil {
		return err
	}
	amt, err := l.engine.FromPlaintext(types.NewInt(amount))
	if err != nil {
		return err
	}
	return l.transferCommit(mint, src, dst, owner, to, amt, amount)
}

// TransferEncrypted is Transfer with the amount supplied as a ciphertext;
// the plaintext amount never exists on the ledger side. An encrypted zero is
// a valid oblivious no-op, so no zero check is possible or needed.
func (l *Ledger) TransferEncrypted(owner common.Address, mintID types.HexBytes, to common.Address,
	amount *types.EncryptedScalar) error {
	if amount == nil {
		return ErrZeroAmount
	}
	if owner == to {
		return nil
	}
	mint, src, dst, err := l.loadTransferAccounts(mintID, owner, to)
	if err != nil {
		return err
	}
	amt, err := l.engine.FromCiphertext(amount)
	if err != nil {
		return err
	}
	return l.transferCommit(mint, src, dst, owner, to, amt, 0)
}

// loadTransferAccounts loads and cross-checks both legs of a transfer. The
// destination record must be owned by the named recipient: the new balance
// is granted to that identity at commit, and granting it to anyone else
// would hand out the wrong capability.
func (l *Ledger) loadTransferAccounts(mintID types.HexBytes, owner, to common.Address) (
	*storage.Mint, *storage.Account, *storage.Account, error) {
	mint, _, src, err := l.loadMintState(mintID, owner)
	if err != nil {
		return nil, nil, nil, err
	}
	dst, err := l.stg.Account(storage.DeriveAccountID(mintID, to))
	if err != nil {
		return nil, nil, nil, err
	}
	if !bytes.Equal(dst.Mint, mint.ID) {
		return nil, nil, nil, ErrMintMismatch
	}
	if dst.Owner != to {
		return nil, nil, nil, ErrInvalidAllowanceAccounts
	}
	return mint, src, dst, nil
}

func (l *Ledger) transferCommit(mint *storage.Mint, src, dst *storage.Account,
	owner, to common.Address, amt compute.Handle, logged uint64) error {
	zero, err := l.engine.FromPlaintext(new(types.BigInt))
	if err != nil {
		return err
	}
	srcH, err := l.engine.FromCiphertext(src.Balance)
	if err != nil {
		return err
	}
	dstH, err := l.engine.FromCiphertext(dst.Balance)
	if err != nil {
		return err
	}
	covers, err := l.engine.Ge(srcH, amt)
	if err != nil {
		return err
	}
	effective, err := l.engine.Select(covers, amt, zero)
	if err != nil {
		return err
	}
	newSrc, err := l.engine.Sub(srcH, effective)
	if err != nil {
		return err
	}
	newDst, err := l.engine.Add(dstH, effective)
	if err != nil {
		return err
	}

	srcScalar, err := l.exportAllowed(newSrc, owner, true)
	if err != nil {
		return err
	}
	dstScalar, err := l.exportAllowed(newDst, to, true)
	if err != nil {
		return err
	}
	if err := l.stg.WriteScalarField(storage.RecordAccount, src.ID, storage.AccountBalanceOffset, srcScalar); err != nil {
		return err
	}
	if err := l.stg.WriteScalarField(storage.RecordAccount, dst.ID, storage.AccountBalanceOffset, dstScalar); err != nil {
		return err
	}
	// logged is zero on the encrypted-amount path, where no plaintext exists
	log.Debugw("transfer committed", "mint", mint.ID.String(), "amount", logged)
	return nil
}

// mutateTotals loads balance, supply and locked, applies fn to each and
// commits the re-encrypted results.
func (l *Ledger) mutateTotals(mint *storage.Mint, vault *storage.Vault, account *storage.Account,
	fn func(compute.Handle) (compute.Handle, error)) error {
	totals := []*types.EncryptedScalar{account.Balance, mint.TotalSupply, vault.TotalLocked}
	handles := make([]compute.Handle, len(totals))
	for i, s := range totals {
		h, err := l.engine.FromCiphertext(s)
		if err != nil {
			return err
		}
		handles[i] = h
	}
	return l.mutateTotalsFrom(mint, vault, account, handles, fn)
}

// mutateTotalsFrom applies fn to already-loaded handles of balance, supply
// and locked, then grants, exports and commits each result in lockstep.
func (l *Ledger) mutateTotalsFrom(mint *storage.Mint, vault *storage.Vault, account *storage.Account,
	handles []compute.Handle, fn func(compute.Handle) (compute.Handle, error)) error {
	targets := []struct {
		kind    storage.RecordKind
		key     types.HexBytes
		offset  int
		grantee common.Address
	}{
		{storage.RecordAccount, account.ID, storage.AccountBalanceOffset, account.Owner},
		{storage.RecordMint, mint.ID, storage.MintTotalSupplyOffset, mint.Authority},
		{storage.RecordVault, vault.ID, storage.VaultTotalLockedOffset, mint.Authority},
	}
	for i, target := range targets {
		next, err := fn(handles[i])
		if err != nil {
			return err
		}
		scalar, err := l.exportAllowed(next, target.grantee, true)
		if err != nil {
			return err
		}
		if err := l.stg.WriteScalarField(target.kind, target.key, target.offset, scalar); err != nil {
			return err
		}
	}
	return nil
}

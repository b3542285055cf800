// Package ledger implements the confidential token operations over a Mint,
// its Vault and its Accounts. Balances, total supply and locked collateral
// are encrypted scalars the ledger never decrypts; every mutation goes
// through one of two models: synchronous encrypted arithmetic against a
// compute.Engine, or an asynchronous computation job resolved by a signed
// cluster callback. Value conservation (minted supply equals locked backing
// collateral) holds after every committed operation.
package ledger

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cvctoken/cvct/compute"
	"github.com/cvctoken/cvct/custody"
	"github.com/cvctoken/cvct/storage"
	"github.com/cvctoken/cvct/types"
	"github.com/cvctoken/cvct/util"
)

// Ledger wires storage, the encrypted-arithmetic engine, the custody
// collaborator and the cluster verification key together.
type Ledger struct {
	stg        *storage.Storage
	engine     compute.Engine
	keyring    *compute.Keyring
	custody    custody.Service
	clusterKey common.Address
}

// New creates a ledger. The cluster key is the address every callback
// signature must recover to.
func New(stg *storage.Storage, engine compute.Engine, keyring *compute.Keyring,
	custodySvc custody.Service, clusterKey common.Address) *Ledger {
	return &Ledger{
		stg:        stg,
		engine:     engine,
		keyring:    keyring,
		custody:    custodySvc,
		clusterKey: clusterKey,
	}
}

// CustodyAccount returns the external custody account of an owner address.
func CustodyAccount(owner common.Address) types.HexBytes {
	return types.HexBytes(owner.Bytes())
}

// freshContext mints an encryption context with a random nonce. Outputs of
// distinct mutations must never share a nonce.
func (l *Ledger) freshContext() (*types.EncryptionContext, error) {
	return l.keyring.NewContext(types.NewInt(util.RandomUint64()))
}

// exportAllowed grants the grantee access to the value behind h and exports
// it under a fresh context. The grant before export is a post-condition of
// every balance mutation.
func (l *Ledger) exportAllowed(h compute.Handle, grantee common.Address, mutable bool) (*types.EncryptedScalar, error) {
	if err := l.engine.Allow(h, grantee, mutable); err != nil {
		return nil, err
	}
	ctx, err := l.freshContext()
	if err != nil {
		return nil, err
	}
	return l.engine.Export(h, ctx)
}

// InitMint creates a mint for the authority together with its vault, both
// starting from inline encrypted zeros. Exactly one mint exists per
// authority and exactly one vault per mint.
func (l *Ledger) InitMint(authority common.Address, backingAsset types.HexBytes, decimals uint8) (*storage.Mint, error) {
	mintID := storage.DeriveMintID(authority)
	if _, err := l.stg.Mint(mintID); err == nil {
		return nil, ErrMintExists
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	zero, err := l.engine.FromPlaintext(new(types.BigInt))
	if err != nil {
		return nil, err
	}
	supply, err := l.exportAllowed(zero, authority, true)
	if err != nil {
		return nil, err
	}
	locked, err := l.exportAllowed(zero, authority, true)
	if err != nil {
		return nil, err
	}

	mint := &storage.Mint{
		ID:           mintID,
		Authority:    authority,
		BackingAsset: backingAsset,
		Decimals:     decimals,
		TotalSupply:  supply,
	}
	vaultID := storage.DeriveVaultID(mintID)
	vault := &storage.Vault{
		ID:             vaultID,
		Mint:           mintID,
		BackingAsset:   backingAsset,
		CustodyAccount: storage.DeriveCustodyID(vaultID),
		TotalLocked:    locked,
	}
	if err := l.stg.SetMint(mint); err != nil {
		return nil, err
	}
	if err := l.stg.SetVault(vault); err != nil {
		return nil, err
	}
	return mint, nil
}

// InitAccount creates the owner's account on a mint with an inline encrypted
// zero balance.
func (l *Ledger) InitAccount(owner common.Address, mintID types.HexBytes) (*storage.Account, error) {
	if _, err := l.stg.Mint(mintID); err != nil {
		return nil, err
	}
	accountID := storage.DeriveAccountID(mintID, owner)
	if _, err := l.stg.Account(accountID); err == nil {
		return nil, ErrAccountExists
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	zero, err := l.engine.FromPlaintext(new(types.BigInt))
	if err != nil {
		return nil, err
	}
	balance, err := l.exportAllowed(zero, owner, true)
	if err != nil {
		return nil, err
	}
	account := &storage.Account{
		ID:      accountID,
		Owner:   owner,
		Mint:    mintID,
		Balance: balance,
	}
	if err := l.stg.SetAccount(account); err != nil {
		return nil, err
	}
	return account, nil
}

// loadMintState loads a mint, its vault and the owner's account, checking
// every linkage the operations rely on.
func (l *Ledger) loadMintState(mintID types.HexBytes, owner common.Address) (*storage.Mint, *storage.Vault, *storage.Account, error) {
	mint, err := l.stg.Mint(mintID)
	if err != nil {
		return nil, nil, nil, err
	}
	vault, err := l.stg.Vault(storage.DeriveVaultID(mintID))
	if err != nil {
		return nil, nil, nil, err
	}
	if err := checkVault(mint, vault); err != nil {
		return nil, nil, nil, err
	}
	account, err := l.stg.Account(storage.DeriveAccountID(mintID, owner))
	if err != nil {
		return nil, nil, nil, err
	}
	if !bytes.Equal(account.Mint, mint.ID) {
		return nil, nil, nil, ErrMintMismatch
	}
	if account.Owner != owner {
		return nil, nil, nil, ErrUnauthorized
	}
	return mint, vault, account, nil
}

func checkVault(mint *storage.Mint, vault *storage.Vault) error {
	if !bytes.Equal(vault.Mint, mint.ID) ||
		!bytes.Equal(vault.BackingAsset, mint.BackingAsset) ||
		!bytes.Equal(vault.CustodyAccount, storage.DeriveCustodyID(vault.ID)) {
		return fmt.Errorf("%w: mint %x vault %x", ErrInvalidVault, mint.ID, vault.ID)
	}
	return nil
}

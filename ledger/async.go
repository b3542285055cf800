package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/log"

	"github.com/cvctoken/cvct/cluster"
	"github.com/cvctoken/cvct/storage"
	"github.com/cvctoken/cvct/types"
	"github.com/cvctoken/cvct/util"
)

// Asynchronous operations: each submit builds an ordered argument list for a
// named circuit, queues a computation job and returns its id. Nothing is
// mutated until the cluster's signed callback for that id passes
// verification; state reads in between observe the pre-operation values.

// SubmitInitMint creates the mint and vault records with placeholder scalars
// and queues the job that initializes their encrypted zeros.
func (l *Ledger) SubmitInitMint(authority common.Address, backingAsset types.HexBytes, decimals uint8) (uint64, *storage.Mint, error) {
	mintID := storage.DeriveMintID(authority)
	if _, err := l.stg.Mint(mintID); err == nil {
		return 0, nil, ErrMintExists
	}

	mint := &storage.Mint{
		ID:           mintID,
		Authority:    authority,
		BackingAsset: backingAsset,
		Decimals:     decimals,
		TotalSupply:  types.NewEncryptedScalar(),
	}
	vaultID := storage.DeriveVaultID(mintID)
	vault := &storage.Vault{
		ID:             vaultID,
		Mint:           mintID,
		BackingAsset:   backingAsset,
		CustodyAccount: storage.DeriveCustodyID(vaultID),
		TotalLocked:    types.NewEncryptedScalar(),
	}
	if err := l.stg.SetMint(mint); err != nil {
		return 0, nil, err
	}
	if err := l.stg.SetVault(vault); err != nil {
		return 0, nil, err
	}

	supplyCtx, err := l.freshContext()
	if err != nil {
		return 0, nil, err
	}
	lockedCtx, err := l.freshContext()
	if err != nil {
		return 0, nil, err
	}
	jobID, err := l.queueJob(cluster.CircuitInitMintState,
		cluster.NewArgBuilder().
			OutputContext(supplyCtx).
			OutputContext(lockedCtx),
		[]storage.CallbackTarget{
			{Kind: storage.RecordMint, Key: mintID, Offset: storage.MintTotalSupplyOffset, Writable: true},
			{Kind: storage.RecordVault, Key: vaultID, Offset: storage.VaultTotalLockedOffset, Writable: true},
		}, nil)
	if err != nil {
		return 0, nil, err
	}
	return jobID, mint, nil
}

// SubmitInitAccount creates the owner's account record and queues its
// encrypted-zero initialization.
func (l *Ledger) SubmitInitAccount(owner common.Address, mintID types.HexBytes) (uint64, *storage.Account, error) {
	if _, err := l.stg.Mint(mintID); err != nil {
		return 0, nil, err
	}
	accountID := storage.DeriveAccountID(mintID, owner)
	if _, err := l.stg.Account(accountID); err == nil {
		return 0, nil, ErrAccountExists
	}
	account := &storage.Account{
		ID:      accountID,
		Owner:   owner,
		Mint:    mintID,
		Balance: types.NewEncryptedScalar(),
	}
	if err := l.stg.SetAccount(account); err != nil {
		return 0, nil, err
	}

	ctx, err := l.freshContext()
	if err != nil {
		return 0, nil, err
	}
	jobID, err := l.queueJob(cluster.CircuitInitAccountState,
		cluster.NewArgBuilder().OutputContext(ctx),
		[]storage.CallbackTarget{
			{Kind: storage.RecordAccount, Key: accountID, Offset: storage.AccountBalanceOffset, Writable: true},
		}, nil)
	if err != nil {
		return 0, nil, err
	}
	return jobID, account, nil
}

// SubmitDeposit locks the backing asset immediately and queues the job that
// adds the amount to balance, supply and locked. Custody runs strictly
// before the queue: a failed lock queues nothing.
func (l *Ledger) SubmitDeposit(owner common.Address, mintID types.HexBytes, amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, ErrZeroAmount
	}
	mint, vault, account, err := l.loadMintState(mintID, owner)
	if err != nil {
		return 0, err
	}
	if err := l.custody.Transfer(CustodyAccount(owner), vault.CustodyAccount, amount); err != nil {
		return 0, fmt.Errorf("lock backing asset: %w", err)
	}

	b, targets, err := l.totalsRequest(mint, vault, account, amount)
	if err != nil {
		return 0, err
	}
	return l.queueJob(cluster.CircuitDepositAndMint, b, targets, nil)
}

// SubmitBurn queues the oblivious burn of up to amount. The custody release
// leg executes at commit time, gated on the circuit-revealed outcome.
func (l *Ledger) SubmitBurn(owner common.Address, mintID types.HexBytes, amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, ErrZeroAmount
	}
	mint, vault, account, err := l.loadMintState(mintID, owner)
	if err != nil {
		return 0, err
	}
	b, targets, err := l.totalsRequest(mint, vault, account, amount)
	if err != nil {
		return 0, err
	}
	leg := &storage.CustodyLeg{
		From:   vault.CustodyAccount,
		To:     CustodyAccount(owner),
		Amount: amount,
	}
	return l.queueJob(cluster.CircuitBurnAndWithdraw, b, targets, leg)
}

// SubmitTransfer queues an oblivious balance move between two accounts of
// the same mint. Transfer to self is a successful no-op that queues nothing
// and returns job id zero.
func (l *Ledger) SubmitTransfer(owner common.Address, mintID types.HexBytes, to common.Address, amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, ErrZeroAmount
	}
	if owner == to {
		return 0, nil
	}
	_, src, dst, err := l.loadTransferAccounts(mintID, owner, to)
	if err != nil {
		return 0, err
	}
	b := cluster.NewArgBuilder().PlaintextU64(amount)
	return l.queueTransfer(cluster.CircuitTransfer, b, src, dst)
}

// SubmitTransferEncrypted queues a transfer whose amount only exists as a
// ciphertext, passed to the circuit by value.
func (l *Ledger) SubmitTransferEncrypted(owner common.Address, mintID types.HexBytes, to common.Address,
	amount *types.EncryptedScalar) (uint64, error) {
	if amount == nil {
		return 0, ErrZeroAmount
	}
	if owner == to {
		return 0, nil
	}
	_, src, dst, err := l.loadTransferAccounts(mintID, owner, to)
	if err != nil {
		return 0, err
	}
	b := cluster.NewArgBuilder().Scalar(amount)
	return l.queueTransfer(cluster.CircuitTransferEncrypted, b, src, dst)
}

// queueTransfer appends the balance references and output contexts shared by
// both transfer circuits and queues the job.
func (l *Ledger) queueTransfer(circuit string, b *cluster.ArgBuilder, src, dst *storage.Account) (uint64, error) {
	srcCtx, err := l.freshContext()
	if err != nil {
		return 0, err
	}
	dstCtx, err := l.freshContext()
	if err != nil {
		return 0, err
	}
	b.Record(storage.RecordAccount, src.ID, storage.AccountBalanceOffset).
		Record(storage.RecordAccount, dst.ID, storage.AccountBalanceOffset).
		OutputContext(srcCtx).
		OutputContext(dstCtx)
	return l.queueJob(circuit, b,
		[]storage.CallbackTarget{
			{Kind: storage.RecordAccount, Key: src.ID, Offset: storage.AccountBalanceOffset, Writable: true},
			{Kind: storage.RecordAccount, Key: dst.ID, Offset: storage.AccountBalanceOffset, Writable: true},
		}, nil)
}

// totalsRequest builds the argument list and callback targets shared by the
// deposit and burn circuits: amount, the three totals by reference and a
// fresh output context per total.
func (l *Ledger) totalsRequest(mint *storage.Mint, vault *storage.Vault, account *storage.Account,
	amount uint64) (*cluster.ArgBuilder, []storage.CallbackTarget, error) {
	b := cluster.NewArgBuilder().
		PlaintextU64(amount).
		Record(storage.RecordAccount, account.ID, storage.AccountBalanceOffset).
		Record(storage.RecordMint, mint.ID, storage.MintTotalSupplyOffset).
		Record(storage.RecordVault, vault.ID, storage.VaultTotalLockedOffset)
	for range 3 {
		ctx, err := l.freshContext()
		if err != nil {
			return nil, nil, err
		}
		b.OutputContext(ctx)
	}
	targets := []storage.CallbackTarget{
		{Kind: storage.RecordAccount, Key: account.ID, Offset: storage.AccountBalanceOffset, Writable: true},
		{Kind: storage.RecordMint, Key: mint.ID, Offset: storage.MintTotalSupplyOffset, Writable: true},
		{Kind: storage.RecordVault, Key: vault.ID, Offset: storage.VaultTotalLockedOffset, Writable: true},
	}
	return b, targets, nil
}

func (l *Ledger) queueJob(circuit string, b *cluster.ArgBuilder, targets []storage.CallbackTarget,
	leg *storage.CustodyLeg) (uint64, error) {
	hash, err := b.Hash()
	if err != nil {
		return 0, err
	}
	job := &storage.ComputationJob{
		ID:       util.RandomUint64(),
		Circuit:  circuit,
		Args:     b.Args(),
		ArgHash:  hash,
		Callback: targets,
		Custody:  leg,
	}
	if err := l.stg.PushJob(job); err != nil {
		return 0, err
	}
	log.Debugw("computation job queued", "job", job.ID, "circuit", circuit)
	return job.ID, nil
}

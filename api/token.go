package api

import (
	"net/http"

	"github.com/cvctoken/cvct/storage"
)

// newMint creates a mint and its vault, inline or through a queued
// computation depending on the request.
func (a *API) newMint(w http.ResponseWriter, r *http.Request) {
	var req MintRequest
	if !decodeBody(w, r, &req) {
		return
	}
	authority, ok := parseAddress(w, "authority", req.Authority)
	if !ok {
		return
	}
	if req.Async {
		jobID, mint, err := a.ledger.SubmitInitMint(authority, req.BackingAsset, req.Decimals)
		if err != nil {
			fromDomain(err).Write(w)
			return
		}
		httpWriteJSON(w, MintResponse{MintID: mint.ID, JobID: &jobID})
		return
	}
	mint, err := a.ledger.InitMint(authority, req.BackingAsset, req.Decimals)
	if err != nil {
		fromDomain(err).Write(w)
		return
	}
	httpWriteJSON(w, MintResponse{MintID: mint.ID})
}

func (a *API) mint(w http.ResponseWriter, r *http.Request) {
	mintID, ok := urlParamID(w, r, MintURLParam)
	if !ok {
		return
	}
	mint, err := a.storage.Mint(mintID)
	if err != nil {
		fromDomain(err).Write(w)
		return
	}
	vault, err := a.storage.Vault(storage.DeriveVaultID(mintID))
	if err != nil {
		fromDomain(err).Write(w)
		return
	}
	httpWriteJSON(w, MintInfo{
		MintID:         mint.ID,
		Authority:      mint.Authority.Hex(),
		BackingAsset:   mint.BackingAsset,
		Decimals:       mint.Decimals,
		TotalSupply:    mint.TotalSupply,
		VaultID:        vault.ID,
		CustodyAccount: vault.CustodyAccount,
		TotalLocked:    vault.TotalLocked,
	})
}

func (a *API) newAccount(w http.ResponseWriter, r *http.Request) {
	var req AccountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	owner, ok := parseAddress(w, "owner", req.Owner)
	if !ok {
		return
	}
	if req.Async {
		jobID, account, err := a.ledger.SubmitInitAccount(owner, req.MintID)
		if err != nil {
			fromDomain(err).Write(w)
			return
		}
		httpWriteJSON(w, AccountResponse{AccountID: account.ID, JobID: &jobID})
		return
	}
	account, err := a.ledger.InitAccount(owner, req.MintID)
	if err != nil {
		fromDomain(err).Write(w)
		return
	}
	httpWriteJSON(w, AccountResponse{AccountID: account.ID})
}

func (a *API) account(w http.ResponseWriter, r *http.Request) {
	accountID, ok := urlParamID(w, r, AccountURLParam)
	if !ok {
		return
	}
	account, err := a.storage.Account(accountID)
	if err != nil {
		fromDomain(err).Write(w)
		return
	}
	httpWriteJSON(w, AccountInfo{
		AccountID: account.ID,
		Owner:     account.Owner.Hex(),
		MintID:    account.Mint,
		Balance:   account.Balance,
	})
}

func (a *API) deposit(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	owner, ok := parseAddress(w, "owner", req.Owner)
	if !ok {
		return
	}
	if req.Async {
		jobID, err := a.ledger.SubmitDeposit(owner, req.MintID, req.Amount)
		if err != nil {
			fromDomain(err).Write(w)
			return
		}
		httpWriteJSON(w, MoveResponse{JobID: &jobID})
		return
	}
	if err := a.ledger.Deposit(owner, req.MintID, req.Amount); err != nil {
		fromDomain(err).Write(w)
		return
	}
	httpWriteOK(w)
}

func (a *API) withdraw(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	owner, ok := parseAddress(w, "owner", req.Owner)
	if !ok {
		return
	}
	if req.Async {
		jobID, err := a.ledger.SubmitBurn(owner, req.MintID, req.Amount)
		if err != nil {
			fromDomain(err).Write(w)
			return
		}
		httpWriteJSON(w, MoveResponse{JobID: &jobID})
		return
	}
	released, err := a.ledger.Withdraw(owner, req.MintID, req.Amount)
	if err != nil {
		fromDomain(err).Write(w)
		return
	}
	httpWriteJSON(w, MoveResponse{Released: &released})
}

func (a *API) transfer(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	owner, ok := parseAddress(w, "owner", req.Owner)
	if !ok {
		return
	}
	to, ok := parseAddress(w, "to", req.To)
	if !ok {
		return
	}
	var err error
	if req.Async {
		var jobID uint64
		if req.EncryptedAmount != nil {
			jobID, err = a.ledger.SubmitTransferEncrypted(owner, req.MintID, to, req.EncryptedAmount)
		} else {
			jobID, err = a.ledger.SubmitTransfer(owner, req.MintID, to, req.Amount)
		}
		if err != nil {
			fromDomain(err).Write(w)
			return
		}
		httpWriteJSON(w, MoveResponse{JobID: &jobID})
		return
	}
	if req.EncryptedAmount != nil {
		err = a.ledger.TransferEncrypted(owner, req.MintID, to, req.EncryptedAmount)
	} else {
		err = a.ledger.Transfer(owner, req.MintID, to, req.Amount)
	}
	if err != nil {
		fromDomain(err).Write(w)
		return
	}
	httpWriteOK(w)
}

func (a *API) job(w http.ResponseWriter, r *http.Request) {
	jobID, ok := urlParamUint64(w, r, JobURLParam)
	if !ok {
		return
	}
	job, err := a.storage.Job(jobID)
	if err != nil {
		fromDomain(err).Write(w)
		return
	}
	httpWriteJSON(w, JobResponse{
		JobID:   job.ID,
		Circuit: job.Circuit,
		Status:  job.Status.String(),
	})
}

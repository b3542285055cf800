package api

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cvctoken/cvct/types"
)

// Payroll handlers operate on the plaintext-analog ledger.

func (a *API) newPlainMint(w http.ResponseWriter, r *http.Request) {
	var req PlainMintRequest
	if !decodeBody(w, r, &req) {
		return
	}
	authority, ok := parseAddress(w, "authority", req.Authority)
	if !ok {
		return
	}
	mint, err := a.plain.InitMint(authority)
	if err != nil {
		fromDomain(err).Write(w)
		return
	}
	httpWriteJSON(w, IDResponse{ID: mint.ID})
}

func (a *API) newPlainAccount(w http.ResponseWriter, r *http.Request) {
	var req PlainAccountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	owner, ok := parseAddress(w, "owner", req.Owner)
	if !ok {
		return
	}
	account, err := a.plain.InitAccount(owner, req.MintID)
	if err != nil {
		fromDomain(err).Write(w)
		return
	}
	httpWriteJSON(w, IDResponse{ID: account.ID})
}

func (a *API) plainDeposit(w http.ResponseWriter, r *http.Request) {
	var req PlainDepositRequest
	if !decodeBody(w, r, &req) {
		return
	}
	owner, ok := parseAddress(w, "owner", req.Owner)
	if !ok {
		return
	}
	if err := a.plain.Deposit(owner, req.MintID, req.Amount); err != nil {
		fromDomain(err).Write(w)
		return
	}
	httpWriteOK(w)
}

func (a *API) newOrg(w http.ResponseWriter, r *http.Request) {
	var req OrgRequest
	if !decodeBody(w, r, &req) {
		return
	}
	authority, ok := parseAddress(w, "authority", req.Authority)
	if !ok {
		return
	}
	org, err := a.scheduler.InitOrg(authority, req.MintID)
	if err != nil {
		fromDomain(err).Write(w)
		return
	}
	httpWriteJSON(w, OrgResponse{OrgID: org.ID, Treasury: org.Treasury})
}

func (a *API) newPayroll(w http.ResponseWriter, r *http.Request) {
	var req PayrollRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, ok := parseAddress(w, "caller", req.Caller)
	if !ok {
		return
	}
	p, err := a.scheduler.CreatePayroll(caller, req.OrgID, req.Name, req.Interval)
	if err != nil {
		fromDomain(err).Write(w)
		return
	}
	httpWriteJSON(w, IDResponse{ID: p.ID})
}

func (a *API) newPayrollMember(w http.ResponseWriter, r *http.Request) {
	payrollID, ok := urlParamID(w, r, PayrollURLParam)
	if !ok {
		return
	}
	var req MemberRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, ok := parseAddress(w, "caller", req.Caller)
	if !ok {
		return
	}
	wallet, ok := parseAddress(w, "wallet", req.Wallet)
	if !ok {
		return
	}
	m, err := a.scheduler.AddMember(caller, payrollID, wallet, req.Rate)
	if err != nil {
		fromDomain(err).Write(w)
		return
	}
	httpWriteJSON(w, IDResponse{ID: m.ID})
}

func (a *API) payrollMember(w http.ResponseWriter, r *http.Request) {
	memberID, ok := urlParamID(w, r, MemberURLParam)
	if !ok {
		return
	}
	m, err := a.storage.PayrollMember(memberID)
	if err != nil {
		fromDomain(err).Write(w)
		return
	}
	httpWriteJSON(w, MemberInfo{
		ID:       m.ID,
		Payroll:  m.Payroll,
		Wallet:   m.Wallet.Hex(),
		Rate:     m.Rate,
		LastPaid: m.LastPaid,
		Active:   m.Active,
	})
}

func (a *API) updatePayrollMember(w http.ResponseWriter, r *http.Request) {
	memberID, ok := urlParamID(w, r, MemberURLParam)
	if !ok {
		return
	}
	var req MemberUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, ok := parseAddress(w, "caller", req.Caller)
	if !ok {
		return
	}
	if err := a.scheduler.UpdateMember(caller, memberID, req.Rate, req.Active); err != nil {
		fromDomain(err).Write(w)
		return
	}
	httpWriteOK(w)
}

func (a *API) runPayrollMember(w http.ResponseWriter, r *http.Request) {
	memberID, ok := urlParamID(w, r, MemberURLParam)
	if !ok {
		return
	}
	paid, err := a.scheduler.RunPayrollForMember(memberID)
	if err != nil {
		fromDomain(err).Write(w)
		return
	}
	httpWriteJSON(w, RunResponse{Paid: paid})
}

func (a *API) pausePayroll(w http.ResponseWriter, r *http.Request) {
	a.payrollLifecycle(w, r, a.scheduler.Pause)
}

func (a *API) resumePayroll(w http.ResponseWriter, r *http.Request) {
	a.payrollLifecycle(w, r, a.scheduler.Resume)
}

func (a *API) closePayroll(w http.ResponseWriter, r *http.Request) {
	a.payrollLifecycle(w, r, a.scheduler.Close)
}

func (a *API) payrollLifecycle(w http.ResponseWriter, r *http.Request,
	op func(common.Address, types.HexBytes) error) {
	payrollID, ok := urlParamID(w, r, PayrollURLParam)
	if !ok {
		return
	}
	var req CallerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	caller, ok := parseAddress(w, "caller", req.Caller)
	if !ok {
		return
	}
	if err := op(caller, payrollID); err != nil {
		fromDomain(err).Write(w)
		return
	}
	httpWriteOK(w)
}

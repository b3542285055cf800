package api

import (
	"github.com/cvctoken/cvct/types"
)

// MintRequest creates a confidential mint. Async selects the queued
// computation model; the default resolves inline.
type MintRequest struct {
	Authority    string         `json:"authority"`
	BackingAsset types.HexBytes `json:"backingAsset"`
	Decimals     uint8          `json:"decimals"`
	Async        bool           `json:"async,omitempty"`
}

type MintResponse struct {
	MintID types.HexBytes `json:"mintId"`
	JobID  *uint64        `json:"jobId,omitempty"`
}

// MintInfo is the public view of a mint and its vault. The scalars are
// ciphertexts; holders of the matching context keys decrypt them client-side.
type MintInfo struct {
	MintID         types.HexBytes         `json:"mintId"`
	Authority      string                 `json:"authority"`
	BackingAsset   types.HexBytes         `json:"backingAsset"`
	Decimals       uint8                  `json:"decimals"`
	TotalSupply    *types.EncryptedScalar `json:"totalSupply"`
	VaultID        types.HexBytes         `json:"vaultId"`
	CustodyAccount types.HexBytes         `json:"custodyAccount"`
	TotalLocked    *types.EncryptedScalar `json:"totalLocked"`
}

type AccountRequest struct {
	Owner  string         `json:"owner"`
	MintID types.HexBytes `json:"mintId"`
	Async  bool           `json:"async,omitempty"`
}

type AccountResponse struct {
	AccountID types.HexBytes `json:"accountId"`
	JobID     *uint64        `json:"jobId,omitempty"`
}

type AccountInfo struct {
	AccountID types.HexBytes         `json:"accountId"`
	Owner     string                 `json:"owner"`
	MintID    types.HexBytes         `json:"mintId"`
	Balance   *types.EncryptedScalar `json:"balance"`
}

// MoveRequest covers deposits, withdrawals and transfers. To is only used by
// transfers. Transfers accept the amount either as a plaintext or as an
// already-encrypted scalar; EncryptedAmount wins when both are set.
type MoveRequest struct {
	Owner           string                 `json:"owner"`
	MintID          types.HexBytes         `json:"mintId"`
	To              string                 `json:"to,omitempty"`
	Amount          uint64                 `json:"amount,omitempty"`
	EncryptedAmount *types.EncryptedScalar `json:"encryptedAmount,omitempty"`
	Async           bool                   `json:"async,omitempty"`
}

type MoveResponse struct {
	JobID    *uint64 `json:"jobId,omitempty"`
	Released *uint64 `json:"released,omitempty"`
}

type JobResponse struct {
	JobID   uint64 `json:"jobId"`
	Circuit string `json:"circuit"`
	Status  string `json:"status"`
}

// Payroll surface types.

type PlainMintRequest struct {
	Authority string `json:"authority"`
}

type PlainAccountRequest struct {
	Owner  string         `json:"owner"`
	MintID types.HexBytes `json:"mintId"`
}

type PlainDepositRequest struct {
	Owner  string         `json:"owner"`
	MintID types.HexBytes `json:"mintId"`
	Amount uint64         `json:"amount"`
}

type IDResponse struct {
	ID types.HexBytes `json:"id"`
}

type OrgRequest struct {
	Authority string         `json:"authority"`
	MintID    types.HexBytes `json:"mintId"`
}

type OrgResponse struct {
	OrgID    types.HexBytes `json:"orgId"`
	Treasury types.HexBytes `json:"treasury"`
}

type PayrollRequest struct {
	Caller   string         `json:"caller"`
	OrgID    types.HexBytes `json:"orgId"`
	Name     string         `json:"name"`
	Interval uint64         `json:"interval"`
}

type MemberRequest struct {
	Caller string `json:"caller"`
	Wallet string `json:"wallet"`
	Rate   uint64 `json:"rate"`
}

type MemberInfo struct {
	ID       types.HexBytes `json:"id"`
	Payroll  types.HexBytes `json:"payrollId"`
	Wallet   string         `json:"wallet"`
	Rate     uint64         `json:"rate"`
	LastPaid uint64         `json:"lastPaid"`
	Active   bool           `json:"active"`
}

type MemberUpdateRequest struct {
	Caller string `json:"caller"`
	Rate   uint64 `json:"rate"`
	Active bool   `json:"active"`
}

type RunResponse struct {
	Paid uint64 `json:"paid"`
}

type CallerRequest struct {
	Caller string `json:"caller"`
}

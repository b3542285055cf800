package storage

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/cvctoken/cvct/types"
)

// Payroll-side entities. Unlike the confidential records these are plain
// cbor artifacts: the payroll ledger is the plaintext analog of the token,
// so nothing here needs fixed byte offsets.

// Organization owns payrolls and the treasury account they pay from.
type Organization struct {
	ID        types.HexBytes `cbor:"0,keyasint"`
	Authority common.Address `cbor:"1,keyasint"`
	Mint      types.HexBytes `cbor:"2,keyasint"`
	Treasury  types.HexBytes `cbor:"3,keyasint"`
}

// Payroll is a recurring payment schedule of an organization.
type Payroll struct {
	ID       types.HexBytes `cbor:"0,keyasint"`
	Org      types.HexBytes `cbor:"1,keyasint"`
	Name     string         `cbor:"2,keyasint"`
	Interval uint64         `cbor:"3,keyasint"`
	Active   bool           `cbor:"4,keyasint"`
}

// PayrollMember is one wallet paid by a payroll at a fixed rate per
// interval. LastPaid zero means the member was never paid.
type PayrollMember struct {
	ID       types.HexBytes `cbor:"0,keyasint"`
	Payroll  types.HexBytes `cbor:"1,keyasint"`
	Wallet   common.Address `cbor:"2,keyasint"`
	Rate     uint64         `cbor:"3,keyasint"`
	LastPaid uint64         `cbor:"4,keyasint"`
	Active   bool           `cbor:"5,keyasint"`
}

// PlainMint is the plaintext analog of a Mint: public supply and locked
// collateral, kept equal after every mutation.
type PlainMint struct {
	ID        types.HexBytes `cbor:"0,keyasint"`
	Authority common.Address `cbor:"1,keyasint"`
	Supply    uint64         `cbor:"2,keyasint"`
	Locked    uint64         `cbor:"3,keyasint"`
}

// PlainAccount is the plaintext analog of an Account.
type PlainAccount struct {
	ID      types.HexBytes `cbor:"0,keyasint"`
	Owner   common.Address `cbor:"1,keyasint"`
	Mint    types.HexBytes `cbor:"2,keyasint"`
	Balance uint64         `cbor:"3,keyasint"`
}

func DeriveOrgID(authority common.Address) types.HexBytes {
	return deriveID("org", authority.Bytes())
}

func DerivePayrollID(orgID types.HexBytes, name string) types.HexBytes {
	return deriveID("payroll", orgID, []byte(name))
}

func DeriveMemberID(payrollID types.HexBytes, wallet common.Address) types.HexBytes {
	return deriveID("payroll_member", payrollID, wallet.Bytes())
}

// Plain entity keys are truncated hashes, they never cross a trust boundary.

func DerivePlainMintID(authority common.Address) types.HexBytes {
	return hashKey(append([]byte("plain_mint"), authority.Bytes()...))
}

func DerivePlainAccountID(mintID types.HexBytes, owner common.Address) types.HexBytes {
	return hashKey(append(append([]byte("plain_account"), mintID...), owner.Bytes()...))
}

func (s *Storage) SetOrganization(o *Organization) error {
	data, err := encodeArtifact(o)
	if err != nil {
		return err
	}
	return s.setArtifact(orgPrefix, o.ID, data)
}

func (s *Storage) Organization(id types.HexBytes) (*Organization, error) {
	o := new(Organization)
	if err := s.loadArtifact(orgPrefix, id, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Storage) SetPayroll(p *Payroll) error {
	data, err := encodeArtifact(p)
	if err != nil {
		return err
	}
	return s.setArtifact(payrollPrefix, p.ID, data)
}

func (s *Storage) Payroll(id types.HexBytes) (*Payroll, error) {
	p := new(Payroll)
	if err := s.loadArtifact(payrollPrefix, id, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Storage) DeletePayroll(id types.HexBytes) error {
	return s.deleteArtifact(payrollPrefix, id)
}

func (s *Storage) SetPayrollMember(m *PayrollMember) error {
	data, err := encodeArtifact(m)
	if err != nil {
		return err
	}
	return s.setArtifact(memberPrefix, m.ID, data)
}

func (s *Storage) PayrollMember(id types.HexBytes) (*PayrollMember, error) {
	m := new(PayrollMember)
	if err := s.loadArtifact(memberPrefix, id, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Storage) SetPlainMint(m *PlainMint) error {
	data, err := encodeArtifact(m)
	if err != nil {
		return err
	}
	return s.setArtifact(plainPrefix, m.ID, data)
}

func (s *Storage) PlainMint(id types.HexBytes) (*PlainMint, error) {
	m := new(PlainMint)
	if err := s.loadArtifact(plainPrefix, id, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Storage) SetPlainAccount(a *PlainAccount) error {
	data, err := encodeArtifact(a)
	if err != nil {
		return err
	}
	return s.setArtifact(plainPrefix, a.ID, data)
}

func (s *Storage) PlainAccount(id types.HexBytes) (*PlainAccount, error) {
	a := new(PlainAccount)
	if err := s.loadArtifact(plainPrefix, id, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Storage) loadArtifact(prefix, key []byte, out any) error {
	data, err := s.getArtifact(prefix, key)
	if err != nil {
		return err
	}
	return decodeArtifact(data, out)
}

package payroll

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/log"

	"github.com/cvctoken/cvct/storage"
	"github.com/cvctoken/cvct/types"
)

// Scheduler manages organizations, payrolls and members, and executes due
// payments out of the organization treasury on the plaintext ledger.
type Scheduler struct {
	stg    *storage.Storage
	ledger *Ledger
	now    func() uint64
}

// NewScheduler creates a scheduler over the plaintext ledger. Time is
// sourced from the wall clock unless overridden with SetNow.
func NewScheduler(stg *storage.Storage, ledger *Ledger) *Scheduler {
	return &Scheduler{
		stg:    stg,
		ledger: ledger,
		now:    func() uint64 { return uint64(time.Now().Unix()) },
	}
}

// SetNow replaces the time source. Tests drive payment schedules with it.
func (s *Scheduler) SetNow(now func() uint64) {
	s.now = now
}

// InitOrg creates an organization for the authority, including its treasury
// account on the given plaintext mint.
func (s *Scheduler) InitOrg(authority common.Address, mintID types.HexBytes) (*storage.Organization, error) {
	orgID := storage.DeriveOrgID(authority)
	if _, err := s.stg.Organization(orgID); err == nil {
		return nil, ErrOrgExists
	}
	treasury, err := s.ledger.InitAccount(authority, mintID)
	if err != nil {
		return nil, fmt.Errorf("init treasury account: %w", err)
	}
	org := &storage.Organization{
		ID:        orgID,
		Authority: authority,
		Mint:      mintID,
		Treasury:  treasury.ID,
	}
	if err := s.stg.SetOrganization(org); err != nil {
		return nil, err
	}
	return org, nil
}

// CreatePayroll adds a named active payroll to the organization.
func (s *Scheduler) CreatePayroll(caller common.Address, orgID types.HexBytes, name string, interval uint64) (*storage.Payroll, error) {
	org, err := s.authorized(caller, orgID)
	if err != nil {
		return nil, err
	}
	if interval == 0 {
		return nil, fmt.Errorf("interval must be greater than zero")
	}
	id := storage.DerivePayrollID(org.ID, name)
	if _, err := s.stg.Payroll(id); err == nil {
		return nil, ErrPayrollExists
	}
	p := &storage.Payroll{
		ID:       id,
		Org:      org.ID,
		Name:     name,
		Interval: interval,
		Active:   true,
	}
	if err := s.stg.SetPayroll(p); err != nil {
		return nil, err
	}
	return p, nil
}

// AddMember puts a wallet on an active payroll at a fixed rate per interval.
func (s *Scheduler) AddMember(caller common.Address, payrollID types.HexBytes, wallet common.Address, rate uint64) (*storage.PayrollMember, error) {
	p, err := s.stg.Payroll(payrollID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorized(caller, p.Org); err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, ErrPayrollNotActive
	}
	id := storage.DeriveMemberID(payrollID, wallet)
	if _, err := s.stg.PayrollMember(id); err == nil {
		return nil, ErrMemberExists
	}
	m := &storage.PayrollMember{
		ID:      id,
		Payroll: payrollID,
		Wallet:  wallet,
		Rate:    rate,
		Active:  true,
	}
	if err := s.stg.SetPayrollMember(m); err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateMember changes a member's rate and active flag.
func (s *Scheduler) UpdateMember(caller common.Address, memberID types.HexBytes, rate uint64, active bool) error {
	m, err := s.stg.PayrollMember(memberID)
	if err != nil {
		return err
	}
	p, err := s.stg.Payroll(m.Payroll)
	if err != nil {
		return err
	}
	if _, err := s.authorized(caller, p.Org); err != nil {
		return err
	}
	m.Rate = rate
	m.Active = active
	return s.stg.SetPayrollMember(m)
}

// RunPayrollForMember pays every full interval owed since the member's last
// payment in one treasury transfer. A member never paid before is owed
// exactly one period regardless of when the payroll was created. The count
// of owed periods is deliberately uncapped; a long-unpaid member collects
// everything at once or the transfer hard-fails on treasury funds.
func (s *Scheduler) RunPayrollForMember(memberID types.HexBytes) (uint64, error) {
	m, err := s.stg.PayrollMember(memberID)
	if err != nil {
		return 0, err
	}
	p, err := s.stg.Payroll(m.Payroll)
	if err != nil {
		return 0, err
	}
	org, err := s.stg.Organization(p.Org)
	if err != nil {
		return 0, err
	}
	if !p.Active {
		return 0, ErrPayrollNotActive
	}
	if !m.Active {
		return 0, ErrMemberNotActive
	}

	now := s.now()
	var periods uint64
	if m.LastPaid == 0 {
		periods = 1
	} else if now > m.LastPaid {
		periods = (now - m.LastPaid) / p.Interval
	}
	if periods == 0 {
		return 0, ErrPayrollNotDue
	}
	amount := m.Rate * periods

	if err := s.ledger.Transfer(org.Authority, org.Mint, m.Wallet, amount); err != nil {
		return 0, fmt.Errorf("pay member: %w", err)
	}
	m.LastPaid = now
	if err := s.stg.SetPayrollMember(m); err != nil {
		return 0, err
	}
	log.Infow("payroll member paid", "payroll", p.Name, "wallet", m.Wallet.Hex(),
		"periods", periods, "amount", amount)
	return amount, nil
}

// Pause deactivates a payroll.
func (s *Scheduler) Pause(caller common.Address, payrollID types.HexBytes) error {
	return s.setActive(caller, payrollID, false)
}

// Resume reactivates a paused payroll.
func (s *Scheduler) Resume(caller common.Address, payrollID types.HexBytes) error {
	return s.setActive(caller, payrollID, true)
}

// Close removes a payroll. It must be paused first.
func (s *Scheduler) Close(caller common.Address, payrollID types.HexBytes) error {
	p, err := s.stg.Payroll(payrollID)
	if err != nil {
		return err
	}
	if _, err := s.authorized(caller, p.Org); err != nil {
		return err
	}
	if p.Active {
		return ErrMustPauseFirst
	}
	return s.stg.DeletePayroll(payrollID)
}

func (s *Scheduler) setActive(caller common.Address, payrollID types.HexBytes, active bool) error {
	p, err := s.stg.Payroll(payrollID)
	if err != nil {
		return err
	}
	if _, err := s.authorized(caller, p.Org); err != nil {
		return err
	}
	p.Active = active
	return s.stg.SetPayroll(p)
}

// authorized loads the organization and checks the caller is its authority.
func (s *Scheduler) authorized(caller common.Address, orgID types.HexBytes) (*storage.Organization, error) {
	org, err := s.stg.Organization(orgID)
	if err != nil {
		return nil, err
	}
	if org.Authority != caller {
		return nil, ErrUnauthorized
	}
	return org, nil
}

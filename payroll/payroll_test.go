package payroll

import (
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/cvctoken/cvct/custody"
	"github.com/cvctoken/cvct/storage"
	"github.com/cvctoken/cvct/types"
	"github.com/cvctoken/cvct/util"
)

type fixture struct {
	stg       *storage.Storage
	custody   *custody.MemService
	ledger    *Ledger
	scheduler *Scheduler
	clock     uint64

	authority common.Address
	mintID    types.HexBytes
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c := qt.New(t)
	stg := storage.New(metadb.NewTest(t))
	cust := custody.NewMemService()
	ledger := NewLedger(stg, cust)
	scheduler := NewScheduler(stg, ledger)

	f := &fixture{
		stg:       stg,
		custody:   cust,
		ledger:    ledger,
		scheduler: scheduler,
		authority: common.BytesToAddress(util.RandomBytes(20)),
	}
	scheduler.SetNow(func() uint64 { return f.clock })

	mint, err := ledger.InitMint(f.authority)
	c.Assert(err, qt.IsNil)
	f.mintID = mint.ID
	return f
}

func (f *fixture) fundTreasury(c *qt.C, amount uint64) {
	f.custody.Credit(types.HexBytes(f.authority.Bytes()), amount)
	c.Assert(f.ledger.Deposit(f.authority, f.mintID, amount), qt.IsNil)
}

func TestLedgerDepositWithdrawTransfer(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t)
	alice := common.BytesToAddress(util.RandomBytes(20))
	_, err := f.ledger.InitAccount(alice, f.mintID)
	c.Assert(err, qt.IsNil)

	f.custody.Credit(types.HexBytes(alice.Bytes()), 1000)
	c.Assert(f.ledger.Deposit(alice, f.mintID, 600), qt.IsNil)

	bal, err := f.ledger.Balance(alice, f.mintID)
	c.Assert(err, qt.IsNil)
	c.Assert(bal, qt.Equals, uint64(600))
	mint, err := f.stg.PlainMint(f.mintID)
	c.Assert(err, qt.IsNil)
	c.Assert(mint.Supply, qt.Equals, uint64(600))
	c.Assert(mint.Locked, qt.Equals, uint64(600))

	// overdraw hard-fails, unlike the confidential analog
	err = f.ledger.Withdraw(alice, f.mintID, 700)
	c.Assert(err, qt.Equals, ErrInsufficientFunds)

	c.Assert(f.ledger.Withdraw(alice, f.mintID, 100), qt.IsNil)
	bal, err = f.ledger.Balance(alice, f.mintID)
	c.Assert(err, qt.IsNil)
	c.Assert(bal, qt.Equals, uint64(500))
	c.Assert(f.custody.Balance(types.HexBytes(alice.Bytes())), qt.Equals, uint64(500))

	bob := common.BytesToAddress(util.RandomBytes(20))
	_, err = f.ledger.InitAccount(bob, f.mintID)
	c.Assert(err, qt.IsNil)
	c.Assert(f.ledger.Transfer(alice, f.mintID, bob, 200), qt.IsNil)
	bal, err = f.ledger.Balance(bob, f.mintID)
	c.Assert(err, qt.IsNil)
	c.Assert(bal, qt.Equals, uint64(200))
	err = f.ledger.Transfer(bob, f.mintID, alice, 300)
	c.Assert(err, qt.Equals, ErrInsufficientFunds)

	c.Assert(f.ledger.Transfer(alice, f.mintID, bob, 0), qt.Equals, ErrZeroAmount)
	// self transfer is a successful no-op
	c.Assert(f.ledger.Transfer(alice, f.mintID, alice, 50), qt.IsNil)
	bal, err = f.ledger.Balance(alice, f.mintID)
	c.Assert(err, qt.IsNil)
	c.Assert(bal, qt.Equals, uint64(300))
}

func TestPayrollSchedule(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t)
	const day = uint64(86400)

	org, err := f.scheduler.InitOrg(f.authority, f.mintID)
	c.Assert(err, qt.IsNil)
	f.fundTreasury(c, 10000)

	p, err := f.scheduler.CreatePayroll(f.authority, org.ID, "engineering", day)
	c.Assert(err, qt.IsNil)
	wallet := common.BytesToAddress(util.RandomBytes(20))
	_, err = f.ledger.InitAccount(wallet, f.mintID)
	c.Assert(err, qt.IsNil)
	m, err := f.scheduler.AddMember(f.authority, p.ID, wallet, 100)
	c.Assert(err, qt.IsNil)

	// first run pays exactly one period no matter how little time passed
	f.clock = 1000
	paid, err := f.scheduler.RunPayrollForMember(m.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(paid, qt.Equals, uint64(100))
	bal, err := f.ledger.Balance(wallet, f.mintID)
	c.Assert(err, qt.IsNil)
	c.Assert(bal, qt.Equals, uint64(100))

	// immediately again: nothing due
	_, err = f.scheduler.RunPayrollForMember(m.ID)
	c.Assert(err, qt.Equals, ErrPayrollNotDue)

	// two full intervals later: both periods paid at once
	f.clock = 1000 + 2*day
	paid, err = f.scheduler.RunPayrollForMember(m.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(paid, qt.Equals, uint64(200))
	bal, err = f.ledger.Balance(wallet, f.mintID)
	c.Assert(err, qt.IsNil)
	c.Assert(bal, qt.Equals, uint64(300))
}

func TestPayrollLifecycle(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t)
	const day = uint64(86400)

	org, err := f.scheduler.InitOrg(f.authority, f.mintID)
	c.Assert(err, qt.IsNil)
	f.fundTreasury(c, 1000)

	p, err := f.scheduler.CreatePayroll(f.authority, org.ID, "ops", day)
	c.Assert(err, qt.IsNil)
	wallet := common.BytesToAddress(util.RandomBytes(20))
	_, err = f.ledger.InitAccount(wallet, f.mintID)
	c.Assert(err, qt.IsNil)
	m, err := f.scheduler.AddMember(f.authority, p.ID, wallet, 50)
	c.Assert(err, qt.IsNil)

	// only the authority manages the payroll
	stranger := common.BytesToAddress(util.RandomBytes(20))
	c.Assert(f.scheduler.Pause(stranger, p.ID), qt.Equals, ErrUnauthorized)
	_, err = f.scheduler.CreatePayroll(stranger, org.ID, "rogue", day)
	c.Assert(err, qt.Equals, ErrUnauthorized)

	// paused payrolls pay nobody and accept nobody
	c.Assert(f.scheduler.Pause(f.authority, p.ID), qt.IsNil)
	f.clock = 500
	_, err = f.scheduler.RunPayrollForMember(m.ID)
	c.Assert(err, qt.Equals, ErrPayrollNotActive)
	_, err = f.scheduler.AddMember(f.authority, p.ID, stranger, 10)
	c.Assert(err, qt.Equals, ErrPayrollNotActive)

	c.Assert(f.scheduler.Resume(f.authority, p.ID), qt.IsNil)
	paid, err := f.scheduler.RunPayrollForMember(m.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(paid, qt.Equals, uint64(50))

	// deactivated members are skipped
	c.Assert(f.scheduler.UpdateMember(f.authority, m.ID, 75, false), qt.IsNil)
	f.clock += 2 * day
	_, err = f.scheduler.RunPayrollForMember(m.ID)
	c.Assert(err, qt.Equals, ErrMemberNotActive)

	// closing requires a pause first
	c.Assert(f.scheduler.Close(f.authority, p.ID), qt.Equals, ErrMustPauseFirst)
	c.Assert(f.scheduler.Pause(f.authority, p.ID), qt.IsNil)
	c.Assert(f.scheduler.Close(f.authority, p.ID), qt.IsNil)
	_, err = f.stg.Payroll(p.ID)
	c.Assert(err, qt.Equals, storage.ErrNotFound)

	// duplicate org
	_, err = f.scheduler.InitOrg(f.authority, f.mintID)
	c.Assert(err, qt.Equals, ErrOrgExists)
}

func TestPayrollInsufficientTreasury(t *testing.T) {
	c := qt.New(t)
	f := newFixture(t)
	const day = uint64(86400)

	org, err := f.scheduler.InitOrg(f.authority, f.mintID)
	c.Assert(err, qt.IsNil)
	f.fundTreasury(c, 30)

	p, err := f.scheduler.CreatePayroll(f.authority, org.ID, "sales", day)
	c.Assert(err, qt.IsNil)
	wallet := common.BytesToAddress(util.RandomBytes(20))
	_, err = f.ledger.InitAccount(wallet, f.mintID)
	c.Assert(err, qt.IsNil)
	m, err := f.scheduler.AddMember(f.authority, p.ID, wallet, 100)
	c.Assert(err, qt.IsNil)

	f.clock = 10
	_, err = f.scheduler.RunPayrollForMember(m.ID)
	c.Assert(err, qt.ErrorIs, ErrInsufficientFunds)

	// nothing was paid and last_paid is untouched, so the payment stays owed
	got, err := f.stg.PayrollMember(m.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(got.LastPaid, qt.Equals, uint64(0))
	bal, err := f.ledger.Balance(wallet, f.mintID)
	c.Assert(err, qt.IsNil)
	c.Assert(bal, qt.Equals, uint64(0))
}

// haltingCustody fails every transfer once halted, simulating a backing
// asset service outage after the funding phase.
type haltingCustody struct {
	*custody.MemService
	halted bool
}

var errCustodyDown = errors.New("custody service unavailable")

func (h *haltingCustody) Transfer(from, to types.HexBytes, amount uint64) error {
	if h.halted {
		return errCustodyDown
	}
	return h.MemService.Transfer(from, to, amount)
}

func TestWithdrawReleaseFailureKeepsState(t *testing.T) {
	c := qt.New(t)
	stg := storage.New(metadb.NewTest(t))
	hc := &haltingCustody{MemService: custody.NewMemService()}
	ledger := NewLedger(stg, hc)

	authority := common.BytesToAddress(util.RandomBytes(20))
	mint, err := ledger.InitMint(authority)
	c.Assert(err, qt.IsNil)
	alice := common.BytesToAddress(util.RandomBytes(20))
	_, err = ledger.InitAccount(alice, mint.ID)
	c.Assert(err, qt.IsNil)
	hc.Credit(types.HexBytes(alice.Bytes()), 1000)
	c.Assert(ledger.Deposit(alice, mint.ID, 500), qt.IsNil)

	hc.halted = true
	err = ledger.Withdraw(alice, mint.ID, 200)
	c.Assert(err, qt.ErrorIs, errCustodyDown)

	// nothing was burned for a release that never happened
	bal, err := ledger.Balance(alice, mint.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(bal, qt.Equals, uint64(500))
	got, err := stg.PlainMint(mint.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(got.Supply, qt.Equals, uint64(500))
	c.Assert(got.Locked, qt.Equals, uint64(500))
	c.Assert(hc.Balance(types.HexBytes(alice.Bytes())), qt.Equals, uint64(500))
}

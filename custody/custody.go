// Package custody moves the public backing asset between custody accounts.
// The confidential ledger only ever observes it through the Service
// interface: deposits lock backing tokens before any mint is queued and
// withdrawals release them only after the burn outcome is revealed.
package custody

import (
	"errors"
	"sync"

	"github.com/cvctoken/cvct/types"
)

// ErrInsufficientBalance is returned when a transfer would overdraw the
// source custody account.
var ErrInsufficientBalance = errors.New("insufficient custody balance")

// Service is the external asset-transfer surface the ledger depends on.
type Service interface {
	// Transfer moves amount base units from one custody account to another.
	Transfer(from, to types.HexBytes, amount uint64) error
	// Balance returns the current balance of a custody account.
	Balance(account types.HexBytes) uint64
}

// MemService is an in-process Service keeping balances in a map. It stands
// in for the external asset program during tests and local runs.
type MemService struct {
	mu       sync.Mutex
	balances map[string]uint64
}

// NewMemService creates an empty in-memory custody service.
func NewMemService() *MemService {
	return &MemService{balances: make(map[string]uint64)}
}

// Credit funds an account out of thin air. Test setup only.
func (s *MemService) Credit(account types.HexBytes, amount uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[string(account)] += amount
}

func (s *MemService) Transfer(from, to types.HexBytes, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.balances[string(from)] < amount {
		return ErrInsufficientBalance
	}
	s.balances[string(from)] -= amount
	s.balances[string(to)] += amount
	return nil
}

func (s *MemService) Balance(account types.HexBytes) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[string(account)]
}

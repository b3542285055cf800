package compute

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cvctoken/cvct/types"
)

var u128Mod = new(big.Int).Lsh(big.NewInt(1), 128)

// grant records one access permission on an engine value.
type grant struct {
	grantee common.Address
	mutable bool
}

// MemEngine is an in-process Engine backed by a Keyring. It stands in for a
// real trusted execution environment: values live as plaintexts inside the
// process, behind opaque handles, and every ciphertext crossing its boundary
// uses the same ElGamal scheme as the asynchronous cluster.
type MemEngine struct {
	mu      sync.Mutex
	keyring *Keyring
	values  map[Handle]*big.Int
	grants  map[Handle][]grant
	next    Handle
	calls   uint64
}

// NewMemEngine creates an engine around an existing keyring.
func NewMemEngine(keyring *Keyring) *MemEngine {
	return &MemEngine{
		keyring: keyring,
		values:  make(map[Handle]*big.Int),
		grants:  make(map[Handle][]grant),
	}
}

// Keyring returns the keyring backing this engine.
func (e *MemEngine) Keyring() *Keyring {
	return e.keyring
}

// Calls returns how many engine operations have run. Operations that short
// circuit before touching the engine leave this untouched, which makes
// data-independent operation sequences checkable in tests.
func (e *MemEngine) Calls() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func (e *MemEngine) store(v *big.Int) Handle {
	e.next++
	h := e.next
	e.values[h] = new(big.Int).Mod(v, u128Mod)
	return h
}

func (e *MemEngine) load(h Handle) (*big.Int, error) {
	v, ok := e.values[h]
	if !ok {
		return nil, ErrUnknownHandle
	}
	return v, nil
}

func (e *MemEngine) FromPlaintext(v *types.BigInt) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	return e.store(v.MathBigInt()), nil
}

func (e *MemEngine) FromCiphertext(s *types.EncryptedScalar) (Handle, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	v, err := e.keyring.Decrypt(s)
	if err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store(v.MathBigInt()), nil
}

func (e *MemEngine) Add(a, b Handle) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	va, err := e.load(a)
	if err != nil {
		return 0, err
	}
	vb, err := e.load(b)
	if err != nil {
		return 0, err
	}
	return e.store(new(big.Int).Add(va, vb)), nil
}

func (e *MemEngine) Sub(a, b Handle) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	va, err := e.load(a)
	if err != nil {
		return 0, err
	}
	vb, err := e.load(b)
	if err != nil {
		return 0, err
	}
	return e.store(new(big.Int).Sub(va, vb)), nil
}

func (e *MemEngine) Ge(a, b Handle) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	va, err := e.load(a)
	if err != nil {
		return 0, err
	}
	vb, err := e.load(b)
	if err != nil {
		return 0, err
	}
	if va.Cmp(vb) >= 0 {
		return e.store(big.NewInt(1)), nil
	}
	return e.store(big.NewInt(0)), nil
}

func (e *MemEngine) Select(cond, ifTrue, ifFalse Handle) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	vc, err := e.load(cond)
	if err != nil {
		return 0, err
	}
	vt, err := e.load(ifTrue)
	if err != nil {
		return 0, err
	}
	vf, err := e.load(ifFalse)
	if err != nil {
		return 0, err
	}
	if vc.Sign() != 0 {
		return e.store(vt), nil
	}
	return e.store(vf), nil
}

func (e *MemEngine) Allow(h Handle, grantee common.Address, mutable bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if _, err := e.load(h); err != nil {
		return err
	}
	e.grants[h] = append(e.grants[h], grant{grantee: grantee, mutable: mutable})
	return nil
}

// Granted reports whether grantee holds a grant on h, and whether it is
// mutable.
func (e *MemEngine) Granted(h Handle, grantee common.Address) (held, mutable bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, g := range e.grants[h] {
		if g.grantee == grantee {
			held = true
			mutable = mutable || g.mutable
		}
	}
	return held, mutable
}

func (e *MemEngine) Export(h Handle, ctx *types.EncryptionContext) (*types.EncryptedScalar, error) {
	e.mu.Lock()
	e.calls++
	v, err := e.load(h)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return e.keyring.encrypt(v, ctx)
}

func (e *MemEngine) Reveal(h Handle) (*types.BigInt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	v, err := e.load(h)
	if err != nil {
		return nil, err
	}
	return (*types.BigInt)(new(big.Int).Set(v)), nil
}

package compute

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/cvctoken/cvct/crypto/ecc"
	"github.com/cvctoken/cvct/crypto/ecc/curves"
	"github.com/cvctoken/cvct/crypto/elgamal"
	"github.com/cvctoken/cvct/types"
)

// DefaultMaxMessage bounds the discrete-log search space used when
// decrypting. Values committed by the ledger are always small enough because
// deposits and burns carry plaintext u64 amounts well below it in tests.
const DefaultMaxMessage = uint64(1) << 24

// Keyring owns the decryption keys of the contexts a party controls. Each
// NewContext call mints a fresh ElGamal keypair; the public key becomes the
// context key embedded in every scalar encrypted under it.
type Keyring struct {
	mu         sync.Mutex
	curve      ecc.Point
	keys       map[string]*big.Int
	maxMessage uint64
}

// NewKeyring creates a keyring over the given curve type.
func NewKeyring(curveType string) (*Keyring, error) {
	// curves.New panics on unsupported types, so validate here
	switch curveType {
	case curves.CurveTypeBN254, curves.CurveTypeBabyJubJub:
	default:
		return nil, fmt.Errorf("unknown curve type %q", curveType)
	}
	return &Keyring{
		curve:      curves.New(curveType),
		keys:       make(map[string]*big.Int),
		maxMessage: DefaultMaxMessage,
	}, nil
}

// SetMaxMessage overrides the decryption search bound.
func (kr *Keyring) SetMaxMessage(max uint64) {
	kr.mu.Lock()
	defer kr.mu.Unlock()
	kr.maxMessage = max
}

// NewContext mints a fresh keypair and returns the encryption context
// pairing its public key with the caller-chosen nonce. The private key never
// leaves the keyring.
func (kr *Keyring) NewContext(nonce *types.BigInt) (*types.EncryptionContext, error) {
	pub, priv, err := elgamal.GenerateKey(kr.curve)
	if err != nil {
		return nil, fmt.Errorf("generate context key: %w", err)
	}
	pubBytes := pub.Marshal()
	kr.mu.Lock()
	kr.keys[string(pubBytes)] = priv
	kr.mu.Unlock()
	return &types.EncryptionContext{
		PublicKey: pubBytes,
		Nonce:     nonce,
	}, nil
}

// CanDecrypt reports whether the keyring holds the private key matching the
// given context key.
func (kr *Keyring) CanDecrypt(contextKey types.HexBytes) bool {
	kr.mu.Lock()
	defer kr.mu.Unlock()
	_, ok := kr.keys[string(contextKey)]
	return ok
}

// Decrypt recovers the plaintext behind an encrypted scalar. Fails with
// ErrUnknownContext when the scalar was encrypted to a key the keyring does
// not hold.
func (kr *Keyring) Decrypt(s *types.EncryptedScalar) (*types.BigInt, error) {
	kr.mu.Lock()
	priv, ok := kr.keys[string(s.ContextKey)]
	max := kr.maxMessage
	kr.mu.Unlock()
	if !ok {
		return nil, ErrUnknownContext
	}
	ct := elgamal.NewCiphertext(kr.curve)
	if err := ct.Deserialize(s.Ciphertext); err != nil {
		return nil, fmt.Errorf("deserialize ciphertext: %w", err)
	}
	msg, err := elgamal.Decrypt(priv, ct.C1, ct.C2, max)
	if err != nil {
		return nil, fmt.Errorf("decrypt scalar: %w", err)
	}
	return (*types.BigInt)(msg), nil
}

// encrypt produces the wire scalar for msg under ctx, deriving the
// encryption randomness from the context nonce.
func (kr *Keyring) encrypt(msg *big.Int, ctx *types.EncryptionContext) (*types.EncryptedScalar, error) {
	pub := kr.curve.New()
	if err := pub.Unmarshal(ctx.PublicKey); err != nil {
		return nil, fmt.Errorf("unmarshal context key: %w", err)
	}
	k := elgamal.KFromNonce(kr.curve.Order(), ctx.Nonce.MathBigInt())
	ct, err := elgamal.NewCiphertext(kr.curve).Encrypt(msg, pub, k)
	if err != nil {
		return nil, fmt.Errorf("encrypt scalar: %w", err)
	}
	return &types.EncryptedScalar{
		ContextKey: append(types.HexBytes{}, ctx.PublicKey...),
		Nonce:      ctx.Nonce,
		Ciphertext: ct.Serialize(),
	}, nil
}

// Package elgamal implements the additively homomorphic encryption backend
// used by the external-collaborator doubles. Messages are encoded in the
// exponent, so ciphertexts of the same key can be added and subtracted
// without decryption; decryption of small-domain values uses baby-step
// giant-step.
package elgamal

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/cvctoken/cvct/crypto/ecc"
)

// RandK generates a random scalar for encryption.
func RandK(order *big.Int) (*big.Int, error) {
	kBytes := make([]byte, 20)
	if _, err := rand.Read(kBytes); err != nil {
		return nil, fmt.Errorf("failed to generate random k: %w", err)
	}
	k := new(big.Int).SetBytes(kBytes)
	return ecc.BigToFF(order, k), nil
}

// KFromNonce derives the encryption randomness deterministically from an
// output nonce. Two outputs re-encrypted under the same nonce therefore
// produce comparable ciphertexts, which is why the protocol requires a fresh
// caller-chosen nonce per output.
func KFromNonce(order, nonce *big.Int) *big.Int {
	digest := ethcrypto.Keccak256(nonce.Bytes())
	k := new(big.Int).SetBytes(digest)
	k = ecc.BigToFF(order, k)
	if k.Sign() == 0 {
		k = big.NewInt(1)
	}
	return k
}

// GenerateKey generates a new public/private encryption key pair on the curve.
func GenerateKey(curve ecc.Point) (publicKey ecc.Point, privateKey *big.Int, err error) {
	order := curve.Order()
	d, err := rand.Int(rand.Reader, order)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate private key scalar: %w", err)
	}
	if d.Sign() == 0 {
		d = big.NewInt(1)
	}
	publicKey = curve.New()
	publicKey.SetGenerator()
	publicKey.ScalarMult(publicKey, d)
	return publicKey, d, nil
}

// EncryptWithK encrypts a message to the public key using the provided
// randomness. It returns the two points of the ciphertext.
func EncryptWithK(pubKey ecc.Point, msg, k *big.Int) (ecc.Point, ecc.Point, error) {
	order := pubKey.Order()
	msg = new(big.Int).Mod(msg, order)
	// C1 = k * G
	c1 := pubKey.New()
	c1.ScalarBaseMult(k)
	// s = k * pubKey
	s := pubKey.New()
	s.ScalarMult(pubKey, k)
	// M = msg * G; C2 = M + s
	m := pubKey.New()
	m.ScalarBaseMult(msg)
	c2 := pubKey.New()
	c2.Add(m, s)
	return c1, c2, nil
}

// Encrypt encrypts a message with fresh randomness, returning the ciphertext
// points and the randomness used.
func Encrypt(publicKey ecc.Point, msg *big.Int) (ecc.Point, ecc.Point, *big.Int, error) {
	k, err := RandK(publicKey.Order())
	if err != nil {
		return nil, nil, nil, err
	}
	c1, c2, err := EncryptWithK(publicKey, msg, k)
	if err != nil {
		return nil, nil, nil, err
	}
	return c1, c2, k, nil
}

// Decrypt recovers the message scalar from the ciphertext (c1, c2) using the
// private key. The message must lie in [0, maxMessage].
func Decrypt(privateKey *big.Int, c1, c2 ecc.Point, maxMessage uint64) (*big.Int, error) {
	// M = c2 - d*c1
	dC1 := c2.New()
	dC1.ScalarMult(c1, privateKey)
	dC1.Neg(dC1)

	M := c2.New()
	M.Set(c2)
	M.Add(M, dC1)

	G := c2.New()
	G.SetGenerator()

	msg, err := BabyStepGiantStepECC(M, G, maxMessage)
	if err != nil {
		return nil, fmt.Errorf("failed to find discrete log: %w", err)
	}
	return msg, nil
}

// BabyStepGiantStepECC solves M = x*G for x in [0, maxMessage].
func BabyStepGiantStepECC(M, G ecc.Point, maxMessage uint64) (*big.Int, error) {
	mSqrt := uint64(math.Sqrt(float64(maxMessage))) + 1

	babySteps := make(map[string]uint64)
	babyStep := M.New()
	babyStep.SetZero()
	for j := uint64(0); j < mSqrt; j++ {
		babySteps[babyStep.String()] = j
		babyStep.Add(babyStep, G)
	}

	// c = -mSqrt * G
	c := M.New()
	c.ScalarBaseMult(new(big.Int).SetUint64(mSqrt))
	c.Neg(c)

	giantStep := M.New()
	giantStep.Set(M)
	for i := uint64(0); i <= mSqrt; i++ {
		if j, found := babySteps[giantStep.String()]; found {
			return new(big.Int).SetUint64(i*mSqrt + j), nil
		}
		giantStep.Add(giantStep, c)
	}
	return nil, fmt.Errorf("message outside the solvable range")
}

// CheckK reports whether a given k was used to produce the ciphertext first
// point c1, without decrypting anything.
func CheckK(c1 ecc.Point, k *big.Int) bool {
	kCheck := c1.New()
	kCheck.ScalarBaseMult(k)
	return kCheck.Equal(c1)
}

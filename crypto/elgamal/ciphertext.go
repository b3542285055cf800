package elgamal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/vocdoni/arbo"

	"github.com/cvctoken/cvct/crypto/ecc"
)

// Sizes in bytes of a serialized ciphertext.
const (
	sizeCoord      = 32
	sizePoint      = 2 * sizeCoord
	SizeCiphertext = 2 * sizePoint
)

// Ciphertext is a homomorphic encryption of a scalar: the pair of curve
// points (C1, C2). Ciphertexts under the same key can be added and
// subtracted without decryption.
type Ciphertext struct {
	C1 ecc.Point `json:"c1"`
	C2 ecc.Point `json:"c2"`
}

// NewCiphertext creates a zero-valued Ciphertext on the same curve as the
// given point.
func NewCiphertext(curve ecc.Point) *Ciphertext {
	return &Ciphertext{C1: curve.New(), C2: curve.New()}
}

// Encrypt encrypts a message to the public key. The randomness k can be nil
// to generate a fresh one.
func (z *Ciphertext) Encrypt(message *big.Int, publicKey ecc.Point, k *big.Int) (*Ciphertext, error) {
	var err error
	if k == nil {
		if k, err = RandK(publicKey.Order()); err != nil {
			return nil, fmt.Errorf("encryption failed: %w", err)
		}
	}
	c1, c2, err := EncryptWithK(publicKey, message, k)
	if err != nil {
		return nil, fmt.Errorf("encryption failed: %w", err)
	}
	z.C1 = c1
	z.C2 = c2
	return z, nil
}

// Add adds two Ciphertexts and stores the result in z, which is also returned.
func (z *Ciphertext) Add(x, y *Ciphertext) *Ciphertext {
	z.C1.SafeAdd(x.C1, y.C1)
	z.C2.SafeAdd(x.C2, y.C2)
	return z
}

// Sub subtracts y from x and stores the result in z, which is also returned.
func (z *Ciphertext) Sub(x, y *Ciphertext) *Ciphertext {
	negC1 := y.C1.New()
	negC1.Neg(y.C1)
	negC2 := y.C2.New()
	negC2.Neg(y.C2)
	z.C1.SafeAdd(x.C1, negC1)
	z.C2.SafeAdd(x.C2, negC2)
	return z
}

// Serialize returns a slice of SizeCiphertext bytes, representing
// C1.X, C1.Y, C2.X, C2.Y as little-endian.
func (z *Ciphertext) Serialize() []byte {
	var buf bytes.Buffer
	c1x, c1y := z.C1.Point()
	c2x, c2y := z.C2.Point()
	for _, bi := range []*big.Int{c1x, c1y, c2x, c2y} {
		buf.Write(arbo.BigIntToBytes(sizeCoord, bi))
	}
	return buf.Bytes()
}

// Deserialize reconstructs a Ciphertext from SizeCiphertext bytes. The
// receiver's points determine the curve.
func (z *Ciphertext) Deserialize(data []byte) error {
	if len(data) != SizeCiphertext {
		return fmt.Errorf("invalid input length: got %d bytes, expected %d bytes",
			len(data), SizeCiphertext)
	}
	readBigInt := func(offset int) *big.Int {
		return arbo.BytesToBigInt(data[offset : offset+sizeCoord])
	}
	z.C1 = z.C1.SetPoint(readBigInt(0*sizeCoord), readBigInt(1*sizeCoord))
	z.C2 = z.C2.SetPoint(readBigInt(2*sizeCoord), readBigInt(3*sizeCoord))
	return nil
}

// Marshal converts the Ciphertext to a JSON byte slice.
func (z *Ciphertext) Marshal() ([]byte, error) {
	return json.Marshal(z)
}

// String returns a string representation of the Ciphertext.
func (z *Ciphertext) String() string {
	if z == nil || z.C1 == nil || z.C2 == nil {
		return "{C1: nil, C2: nil}"
	}
	return fmt.Sprintf("{C1: %s, C2: %s}", z.C1.String(), z.C2.String())
}

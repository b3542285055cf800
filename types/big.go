package types

import (
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// BigInt wraps math/big.Int with decimal-string JSON encoding and big-endian
// byte CBOR encoding, so it can travel through artifacts deterministically.
type BigInt big.Int

func NewInt(x uint64) *BigInt {
	return new(BigInt).SetUint64(x)
}

// MathBigInt converts b to a math/big.Int.
func (b *BigInt) MathBigInt() *big.Int {
	return (*big.Int)(b)
}

func (b *BigInt) SetUint64(x uint64) *BigInt {
	return (*BigInt)(b.MathBigInt().SetUint64(x))
}

func (b *BigInt) SetBytes(buf []byte) *BigInt {
	return (*BigInt)(b.MathBigInt().SetBytes(buf))
}

func (b *BigInt) Bytes() []byte {
	return b.MathBigInt().Bytes()
}

func (b *BigInt) String() string {
	return b.MathBigInt().String()
}

func (b *BigInt) Equal(x *BigInt) bool {
	return b.MathBigInt().Cmp(x.MathBigInt()) == 0
}

func (b *BigInt) MarshalText() ([]byte, error) {
	return []byte(b.MathBigInt().String()), nil
}

func (b *BigInt) UnmarshalText(data []byte) error {
	if _, ok := b.MathBigInt().SetString(string(data), 10); !ok {
		return fmt.Errorf("invalid decimal integer: %q", data)
	}
	return nil
}

func (b *BigInt) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(b.Bytes())
}

func (b *BigInt) UnmarshalCBOR(data []byte) error {
	var buf []byte
	if err := cbor.Unmarshal(data, &buf); err != nil {
		return err
	}
	b.SetBytes(buf)
	return nil
}

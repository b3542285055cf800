package types

import (
	"bytes"
	"fmt"

	"github.com/vocdoni/arbo"
)

// Sizes and intra-field offsets of a serialized encrypted scalar. These are a
// stable contract: the asynchronous request builder references ciphertext
// fields inside persisted records by byte offset.
const (
	SizeContextKey = 64  // uncompressed curve point (X|Y, 32 bytes each)
	SizeNonce      = 16  // u128, little-endian
	SizeCiphertext = 128 // two curve points (C1|C2)

	SizeEncryptedScalar = SizeContextKey + SizeNonce + SizeCiphertext

	OffsetContextKey = 0
	OffsetNonce      = SizeContextKey
	OffsetCiphertext = SizeContextKey + SizeNonce
)

// EncryptionContext identifies a decryption capability: the public key the
// value is encrypted to and the nonce the output must be re-encrypted under.
// A fresh, caller-chosen nonce is required for every arithmetic output; the
// collaborators derive the encryption randomness from it, so reusing a nonce
// across outputs leaks equality through ciphertext comparison.
type EncryptionContext struct {
	PublicKey HexBytes `json:"publicKey" cbor:"0,keyasint"`
	Nonce     *BigInt  `json:"nonce"     cbor:"1,keyasint"`
}

// EncryptedScalar is an opaque u128-domain value. The ledger stores and moves
// it but never decrypts it; only the holder of the private key matching
// ContextKey can.
type EncryptedScalar struct {
	ContextKey HexBytes `json:"contextKey" cbor:"0,keyasint"`
	Nonce      *BigInt  `json:"nonce"      cbor:"1,keyasint"`
	Ciphertext HexBytes `json:"ciphertext" cbor:"2,keyasint"`
}

// NewEncryptedScalar returns a placeholder scalar with zeroed fields, the
// state of a record scalar before its first committed mutation.
func NewEncryptedScalar() *EncryptedScalar {
	return &EncryptedScalar{
		ContextKey: make(HexBytes, SizeContextKey),
		Nonce:      new(BigInt),
		Ciphertext: make(HexBytes, SizeCiphertext),
	}
}

// Serialize returns the fixed SizeEncryptedScalar-byte representation:
// ContextKey | Nonce (little-endian) | Ciphertext.
func (s *EncryptedScalar) Serialize() []byte {
	var buf bytes.Buffer
	buf.Write(padBytes(s.ContextKey, SizeContextKey))
	buf.Write(arbo.BigIntToBytes(SizeNonce, s.Nonce.MathBigInt()))
	buf.Write(padBytes(s.Ciphertext, SizeCiphertext))
	return buf.Bytes()
}

// Deserialize reconstructs the scalar from its fixed-size representation.
func (s *EncryptedScalar) Deserialize(data []byte) error {
	if len(data) != SizeEncryptedScalar {
		return fmt.Errorf("invalid encrypted scalar length: got %d, expected %d",
			len(data), SizeEncryptedScalar)
	}
	s.ContextKey = append(HexBytes{}, data[OffsetContextKey:OffsetContextKey+SizeContextKey]...)
	s.Nonce = (*BigInt)(arbo.BytesToBigInt(data[OffsetNonce : OffsetNonce+SizeNonce]))
	s.Ciphertext = append(HexBytes{}, data[OffsetCiphertext:OffsetCiphertext+SizeCiphertext]...)
	return nil
}

func padBytes(b []byte, size int) []byte {
	if len(b) >= size {
		return b[:size]
	}
	out := make([]byte, size)
	copy(out, b)
	return out
}

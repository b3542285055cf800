// Package ecc abstracts the elliptic curve group operations that the
// homomorphic ciphertext layer relies on, so the encryption backend can run
// over different curves (see the bn254 and bjj_iden3 subpackages).
package ecc

import (
	"math/big"
)

// Point represents the affine coordinates of a point on an elliptic curve and
// provides the group operations, serialization and comparison methods used by
// the encryption layer.
type Point interface {
	// New returns a new point on the same curve.
	New() Point

	// Order returns the order of the elliptic curve group.
	Order() *big.Int

	// Add adds two group elements and stores the result in the receiver.
	Add(a, b Point)

	// SafeAdd is Add with exclusive access to the receiver.
	SafeAdd(a, b Point)

	// ScalarMult multiplies the group element a by scalar and stores the
	// result in the receiver.
	ScalarMult(a Point, scalar *big.Int)

	// ScalarBaseMult multiplies the generator point by scalar and stores the
	// result in the receiver.
	ScalarBaseMult(scalar *big.Int)

	// Marshal serializes the element into a byte slice.
	Marshal() []byte

	// Unmarshal deserializes a byte slice into the receiver.
	Unmarshal(buf []byte) error

	// Equal reports whether the receiver and a are the same element.
	Equal(a Point) bool

	// Neg sets the receiver to the inverse of a.
	Neg(a Point)

	// SetZero sets the receiver to the identity element.
	SetZero()

	// Set sets the receiver to the value of a.
	Set(a Point)

	// SetGenerator sets the receiver to the generator point.
	SetGenerator()

	// String returns the hexadecimal representation of the element.
	String() string

	// Point returns the X and Y affine coordinates.
	Point() (*big.Int, *big.Int)

	// SetPoint sets the X and Y affine coordinates and returns the point.
	SetPoint(x, y *big.Int) Point

	// Type returns the curve type identifier.
	Type() string
}

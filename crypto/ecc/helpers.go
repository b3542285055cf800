package ecc

import "math/big"

// BigToFF reduces v into the scalar field of the given order. Values already
// inside the field are returned untouched.
func BigToFF(order, v *big.Int) *big.Int {
	zero := big.NewInt(0)
	switch {
	case v.Cmp(order) == 0:
		return zero
	case v.Cmp(order) < 0 && v.Cmp(zero) >= 0:
		return v
	default:
		return zero.Mod(v, order)
	}
}

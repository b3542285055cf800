package curves

import (
	"fmt"

	"github.com/cvctoken/cvct/crypto/ecc"
	bjj "github.com/cvctoken/cvct/crypto/ecc/bjj_iden3"
	"github.com/cvctoken/cvct/crypto/ecc/bn254"
)

const (
	CurveTypeBN254      = "bn254"
	CurveTypeBabyJubJub = "bjj_iden3"
)

// New creates a new instance of a curve point implementation based on the
// provided type string. It panics on unsupported types.
func New(curveType string) ecc.Point {
	switch curveType {
	case CurveTypeBN254:
		return new(bn254.G1).New()
	case CurveTypeBabyJubJub:
		return new(bjj.BJJ).New()
	default:
		panic(fmt.Sprintf("unsupported curve type: %s", curveType))
	}
}

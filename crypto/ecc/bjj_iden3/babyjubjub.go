// Package bjj implements the ecc.Point interface over BabyJubJub using the
// iden3 implementation of the curve.
package bjj

import (
	"fmt"
	"math/big"
	"sync"

	babyjubjub "github.com/iden3/go-iden3-crypto/babyjub"

	curve "github.com/cvctoken/cvct/crypto/ecc"
)

const CurveType = "bjj_iden3"

// BJJ is the affine representation of a BabyJubJub group element.
type BJJ struct {
	inner *babyjubjub.Point
	lock  sync.Mutex
}

func (g *BJJ) New() curve.Point {
	return &BJJ{inner: babyjubjub.NewPoint()}
}

func (g *BJJ) Order() *big.Int {
	return babyjubjub.SubOrder
}

func (g *BJJ) Add(a, b curve.Point) {
	g.inner = g.inner.Projective().Add(
		a.(*BJJ).inner.Projective(),
		b.(*BJJ).inner.Projective(),
	).Affine()
}

func (g *BJJ) SafeAdd(a, b curve.Point) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.Add(a, b)
}

func (g *BJJ) ScalarMult(a curve.Point, scalar *big.Int) {
	g.inner = g.inner.Mul(scalar, a.(*BJJ).inner)
}

func (g *BJJ) ScalarBaseMult(scalar *big.Int) {
	g.inner = g.inner.Mul(scalar, babyjubjub.B8)
}

// Marshal returns the 32-byte compressed representation of the point.
func (g *BJJ) Marshal() []byte {
	b := g.inner.Compress()
	return b[:]
}

func (g *BJJ) Unmarshal(buf []byte) error {
	if len(buf) < 32 {
		return fmt.Errorf("invalid compressed point length: %d", len(buf))
	}
	b32 := [32]byte{}
	copy(b32[:], buf[:32])
	_, err := g.inner.Decompress(b32)
	return err
}

func (g *BJJ) Equal(a curve.Point) bool {
	return g.inner.X.Cmp(a.(*BJJ).inner.X) == 0 &&
		g.inner.Y.Cmp(a.(*BJJ).inner.Y) == 0
}

func (g *BJJ) Neg(a curve.Point) {
	proj := a.(*BJJ).inner.Projective()
	proj.X = proj.X.Neg(proj.X)
	g.inner = proj.Affine()
}

func (g *BJJ) SetZero() {
	p := g.inner.Projective()
	p.X.SetZero()
	p.Y.SetOne()
	p.Z.SetOne()
	g.inner = p.Affine()
}

func (g *BJJ) Set(a curve.Point) {
	g.inner.X = new(big.Int).Set(a.(*BJJ).inner.X)
	g.inner.Y = new(big.Int).Set(a.(*BJJ).inner.Y)
}

func (g *BJJ) SetGenerator() {
	g.inner.X = new(big.Int).Set(babyjubjub.B8.X)
	g.inner.Y = new(big.Int).Set(babyjubjub.B8.Y)
}

func (g *BJJ) String() string {
	return fmt.Sprintf("%x", g.Marshal())
}

func (g *BJJ) Point() (*big.Int, *big.Int) {
	return new(big.Int).Set(g.inner.X), new(big.Int).Set(g.inner.Y)
}

func (g *BJJ) SetPoint(x, y *big.Int) curve.Point {
	p := babyjubjub.NewPoint()
	p.X = x
	p.Y = y
	return &BJJ{inner: p}
}

func (g *BJJ) Type() string {
	return CurveType
}

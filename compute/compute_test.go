package compute

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/ethereum/go-ethereum/common"

	"github.com/cvctoken/cvct/crypto/ecc/curves"
	"github.com/cvctoken/cvct/types"
	"github.com/cvctoken/cvct/util"
)

func newTestEngine(t *testing.T) *MemEngine {
	t.Helper()
	kr, err := NewKeyring(curves.CurveTypeBN254)
	qt.Assert(t, err, qt.IsNil)
	return NewMemEngine(kr)
}

func TestEngineArithmetic(t *testing.T) {
	c := qt.New(t)
	e := newTestEngine(t)

	a, err := e.FromPlaintext(types.NewInt(100))
	c.Assert(err, qt.IsNil)
	b, err := e.FromPlaintext(types.NewInt(58))
	c.Assert(err, qt.IsNil)

	sum, err := e.Add(a, b)
	c.Assert(err, qt.IsNil)
	got, err := e.Reveal(sum)
	c.Assert(err, qt.IsNil)
	c.Assert(got.String(), qt.Equals, "158")

	diff, err := e.Sub(a, b)
	c.Assert(err, qt.IsNil)
	got, err = e.Reveal(diff)
	c.Assert(err, qt.IsNil)
	c.Assert(got.String(), qt.Equals, "42")

	_, err = e.Add(a, Handle(9999))
	c.Assert(err, qt.Equals, ErrUnknownHandle)
}

func TestEngineSubWrapsAround(t *testing.T) {
	c := qt.New(t)
	e := newTestEngine(t)

	a, err := e.FromPlaintext(types.NewInt(1))
	c.Assert(err, qt.IsNil)
	b, err := e.FromPlaintext(types.NewInt(2))
	c.Assert(err, qt.IsNil)

	// 1 - 2 wraps to 2^128 - 1 instead of failing
	diff, err := e.Sub(a, b)
	c.Assert(err, qt.IsNil)
	got, err := e.Reveal(diff)
	c.Assert(err, qt.IsNil)
	c.Assert(got.String(), qt.Equals, "340282366920938463463374607431768211455")
}

func TestEngineGeSelect(t *testing.T) {
	c := qt.New(t)
	e := newTestEngine(t)

	a, err := e.FromPlaintext(types.NewInt(10))
	c.Assert(err, qt.IsNil)
	b, err := e.FromPlaintext(types.NewInt(20))
	c.Assert(err, qt.IsNil)

	le, err := e.Ge(a, b)
	c.Assert(err, qt.IsNil)
	v, err := e.Reveal(le)
	c.Assert(err, qt.IsNil)
	c.Assert(v.String(), qt.Equals, "0")

	ge, err := e.Ge(b, a)
	c.Assert(err, qt.IsNil)
	v, err = e.Reveal(ge)
	c.Assert(err, qt.IsNil)
	c.Assert(v.String(), qt.Equals, "1")

	eq, err := e.Ge(a, a)
	c.Assert(err, qt.IsNil)
	v, err = e.Reveal(eq)
	c.Assert(err, qt.IsNil)
	c.Assert(v.String(), qt.Equals, "1")

	sel, err := e.Select(ge, a, b)
	c.Assert(err, qt.IsNil)
	v, err = e.Reveal(sel)
	c.Assert(err, qt.IsNil)
	c.Assert(v.String(), qt.Equals, "10")

	sel, err = e.Select(le, a, b)
	c.Assert(err, qt.IsNil)
	v, err = e.Reveal(sel)
	c.Assert(err, qt.IsNil)
	c.Assert(v.String(), qt.Equals, "20")
}

func TestKeyringExportDecrypt(t *testing.T) {
	c := qt.New(t)
	e := newTestEngine(t)
	kr := e.Keyring()

	ctx, err := kr.NewContext(types.NewInt(12345))
	c.Assert(err, qt.IsNil)
	c.Assert(ctx.PublicKey, qt.HasLen, types.SizeContextKey)
	c.Assert(kr.CanDecrypt(ctx.PublicKey), qt.IsTrue)

	h, err := e.FromPlaintext(types.NewInt(777))
	c.Assert(err, qt.IsNil)
	scalar, err := e.Export(h, ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(scalar.Ciphertext, qt.HasLen, types.SizeCiphertext)
	c.Assert(scalar.Nonce.String(), qt.Equals, "12345")

	got, err := kr.Decrypt(scalar)
	c.Assert(err, qt.IsNil)
	c.Assert(got.String(), qt.Equals, "777")

	// round trip through the engine again
	h2, err := e.FromCiphertext(scalar)
	c.Assert(err, qt.IsNil)
	v, err := e.Reveal(h2)
	c.Assert(err, qt.IsNil)
	c.Assert(v.String(), qt.Equals, "777")

	// unknown context key
	other := *scalar
	other.ContextKey = util.RandomBytes(types.SizeContextKey)
	_, err = kr.Decrypt(&other)
	c.Assert(err, qt.Equals, ErrUnknownContext)
}

func TestNonceReuseLeaksEquality(t *testing.T) {
	c := qt.New(t)
	e := newTestEngine(t)
	kr := e.Keyring()

	ctx, err := kr.NewContext(types.NewInt(42))
	c.Assert(err, qt.IsNil)

	h1, err := e.FromPlaintext(types.NewInt(500))
	c.Assert(err, qt.IsNil)
	h2, err := e.FromPlaintext(types.NewInt(500))
	c.Assert(err, qt.IsNil)

	s1, err := e.Export(h1, ctx)
	c.Assert(err, qt.IsNil)
	s2, err := e.Export(h2, ctx)
	c.Assert(err, qt.IsNil)

	// same nonce and same plaintext yield byte-identical ciphertexts
	c.Assert(s1.Ciphertext, qt.DeepEquals, s2.Ciphertext)

	fresh, err := kr.NewContext(types.NewInt(43))
	c.Assert(err, qt.IsNil)
	fresh.PublicKey = ctx.PublicKey
	s3, err := e.Export(h1, fresh)
	c.Assert(err, qt.IsNil)
	c.Assert(string(s3.Ciphertext) == string(s1.Ciphertext), qt.IsFalse)
}

func TestEngineGrants(t *testing.T) {
	c := qt.New(t)
	e := newTestEngine(t)

	h, err := e.FromPlaintext(types.NewInt(1))
	c.Assert(err, qt.IsNil)
	alice := common.BytesToAddress(util.RandomBytes(20))
	bob := common.BytesToAddress(util.RandomBytes(20))

	c.Assert(e.Allow(h, alice, true), qt.IsNil)
	held, mutable := e.Granted(h, alice)
	c.Assert(held, qt.IsTrue)
	c.Assert(mutable, qt.IsTrue)

	held, _ = e.Granted(h, bob)
	c.Assert(held, qt.IsFalse)

	c.Assert(e.Allow(Handle(404), alice, false), qt.Equals, ErrUnknownHandle)
}

func TestEngineCallCounter(t *testing.T) {
	c := qt.New(t)
	e := newTestEngine(t)
	c.Assert(e.Calls(), qt.Equals, uint64(0))

	a, err := e.FromPlaintext(types.NewInt(1))
	c.Assert(err, qt.IsNil)
	b, err := e.FromPlaintext(types.NewInt(2))
	c.Assert(err, qt.IsNil)
	_, err = e.Add(a, b)
	c.Assert(err, qt.IsNil)
	c.Assert(e.Calls(), qt.Equals, uint64(3))
}

func TestNewKeyringCurveValidation(t *testing.T) {
	c := qt.New(t)
	_, err := NewKeyring(curves.CurveTypeBabyJubJub)
	c.Assert(err, qt.IsNil)
	_, err = NewKeyring("p256")
	c.Assert(err, qt.ErrorMatches, `unknown curve type .*`)
}

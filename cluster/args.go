package cluster

import (
	"github.com/cvctoken/cvct/storage"
	"github.com/cvctoken/cvct/types"
)

// ArgBuilder assembles the ordered argument list of a computation job.
// Argument order is positional against the target circuit's signature, so
// callers chain the methods in signature order. By-reference ciphertext
// arguments keep the request size constant regardless of record size: the
// cluster resolves them against storage at execution time.
type ArgBuilder struct {
	args []storage.Arg
}

// NewArgBuilder returns an empty builder.
func NewArgBuilder() *ArgBuilder {
	return &ArgBuilder{}
}

// PlaintextU64 appends a public 64-bit scalar.
func (b *ArgBuilder) PlaintextU64(v uint64) *ArgBuilder {
	b.args = append(b.args, storage.Arg{Kind: storage.ArgPlaintextU64, U64: v})
	return b
}

// PlaintextU128 appends a public u128-domain scalar.
func (b *ArgBuilder) PlaintextU128(v *types.BigInt) *ArgBuilder {
	b.args = append(b.args, storage.Arg{Kind: storage.ArgPlaintextU128, U128: v})
	return b
}

// Scalar appends an encrypted scalar by value. Used for amounts the
// submitter only holds as a ciphertext.
func (b *ArgBuilder) Scalar(s *types.EncryptedScalar) *ArgBuilder {
	b.args = append(b.args, storage.Arg{Kind: storage.ArgScalar, Scalar: s})
	return b
}

// OutputContext appends an output encryption-context descriptor. The circuit
// re-encrypts the matching output under it.
func (b *ArgBuilder) OutputContext(ctx *types.EncryptionContext) *ArgBuilder {
	b.args = append(b.args, storage.Arg{Kind: storage.ArgOutputContext, Context: ctx})
	return b
}

// Record appends a by-reference pointer to the encrypted scalar stored at a
// byte offset inside an entity record.
func (b *ArgBuilder) Record(kind storage.RecordKind, key types.HexBytes, offset int) *ArgBuilder {
	b.args = append(b.args, storage.Arg{
		Kind: storage.ArgRecordRef,
		Ref:  &storage.RecordRef{Kind: kind, Key: key, Offset: offset},
	})
	return b
}

// Args returns the assembled argument list.
func (b *ArgBuilder) Args() []storage.Arg {
	return b.args
}

// Hash returns the argument hash queued alongside the job, so the executing
// cluster can prove it ran against the submitted arguments.
func (b *ArgBuilder) Hash() (types.HexBytes, error) {
	return storage.HashArgs(b.args)
}

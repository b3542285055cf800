package cluster

import (
	"fmt"

	"github.com/cvctoken/cvct/compute"
	"github.com/cvctoken/cvct/storage"
	"github.com/cvctoken/cvct/types"
)

// Circuit names of the confidential instruction set.
const (
	CircuitInitMintState     = "init_mint_state"
	CircuitInitAccountState  = "init_account_state"
	CircuitDepositAndMint    = "deposit_and_mint"
	CircuitBurnAndWithdraw   = "burn_and_withdraw"
	CircuitTransfer          = "transfer"
	CircuitTransferEncrypted = "transfer_encrypted"
)

// resolvedArgs is a job's argument list with every record reference already
// resolved against storage. Accessors check position and kind so a signature
// mismatch surfaces as a deterministic error, never as a misread value.
type resolvedArgs struct {
	args    []storage.Arg
	scalars map[int]*types.EncryptedScalar
}

func (r *resolvedArgs) u64(i int) (uint64, error) {
	if i >= len(r.args) || r.args[i].Kind != storage.ArgPlaintextU64 {
		return 0, fmt.Errorf("argument %d: expected plaintext u64", i)
	}
	return r.args[i].U64, nil
}

func (r *resolvedArgs) ctx(i int) (*types.EncryptionContext, error) {
	if i >= len(r.args) || r.args[i].Kind != storage.ArgOutputContext || r.args[i].Context == nil {
		return nil, fmt.Errorf("argument %d: expected output context", i)
	}
	return r.args[i].Context, nil
}

func (r *resolvedArgs) scalar(i int) (*types.EncryptedScalar, error) {
	s, ok := r.scalars[i]
	if !ok {
		return nil, fmt.Errorf("argument %d: expected record reference", i)
	}
	return s, nil
}

// circuitOutput carries a circuit's re-encrypted outputs, positionally
// matched to the job's callback targets, plus any revealed plaintexts.
type circuitOutput struct {
	Scalars  []*types.EncryptedScalar
	Revealed []*types.BigInt
}

type circuitFn func(e compute.Engine, in *resolvedArgs) (*circuitOutput, error)

type circuit struct {
	signature []storage.ArgKind
	run       circuitFn
}

// circuits is the dispatch table, built once. Signatures are positional:
// a queued job whose argument kinds differ is aborted before execution.
var circuits = map[string]circuit{
	CircuitInitMintState: {
		signature: []storage.ArgKind{
			storage.ArgOutputContext, storage.ArgOutputContext,
		},
		run: runInitMintState,
	},
	CircuitInitAccountState: {
		signature: []storage.ArgKind{storage.ArgOutputContext},
		run:       runInitAccountState,
	},
	CircuitDepositAndMint: {
		signature: []storage.ArgKind{
			storage.ArgPlaintextU64,
			storage.ArgRecordRef, storage.ArgRecordRef, storage.ArgRecordRef,
			storage.ArgOutputContext, storage.ArgOutputContext, storage.ArgOutputContext,
		},
		run: runDepositAndMint,
	},
	CircuitBurnAndWithdraw: {
		signature: []storage.ArgKind{
			storage.ArgPlaintextU64,
			storage.ArgRecordRef, storage.ArgRecordRef, storage.ArgRecordRef,
			storage.ArgOutputContext, storage.ArgOutputContext, storage.ArgOutputContext,
		},
		run: runBurnAndWithdraw,
	},
	CircuitTransfer: {
		signature: []storage.ArgKind{
			storage.ArgPlaintextU64,
			storage.ArgRecordRef, storage.ArgRecordRef,
			storage.ArgOutputContext, storage.ArgOutputContext,
		},
		run: runTransfer,
	},
	CircuitTransferEncrypted: {
		signature: []storage.ArgKind{
			storage.ArgScalar,
			storage.ArgRecordRef, storage.ArgRecordRef,
			storage.ArgOutputContext, storage.ArgOutputContext,
		},
		run: runTransferEncrypted,
	},
}

// runInitMintState produces the encrypted zeros a fresh mint starts from:
// total supply and total locked, each under its own context.
func runInitMintState(e compute.Engine, in *resolvedArgs) (*circuitOutput, error) {
	zero, err := e.FromPlaintext(new(types.BigInt))
	if err != nil {
		return nil, err
	}
	out := &circuitOutput{}
	for i := range 2 {
		ctx, err := in.ctx(i)
		if err != nil {
			return nil, err
		}
		s, err := e.Export(zero, ctx)
		if err != nil {
			return nil, err
		}
		out.Scalars = append(out.Scalars, s)
	}
	return out, nil
}

func runInitAccountState(e compute.Engine, in *resolvedArgs) (*circuitOutput, error) {
	ctx, err := in.ctx(0)
	if err != nil {
		return nil, err
	}
	zero, err := e.FromPlaintext(new(types.BigInt))
	if err != nil {
		return nil, err
	}
	s, err := e.Export(zero, ctx)
	if err != nil {
		return nil, err
	}
	return &circuitOutput{Scalars: []*types.EncryptedScalar{s}}, nil
}

// runDepositAndMint adds the deposited amount to balance, supply and locked
// in lockstep. The custody leg was executed before the job was queued, so the
// addition is unconditional.
func runDepositAndMint(e compute.Engine, in *resolvedArgs) (*circuitOutput, error) {
	amount, err := in.u64(0)
	if err != nil {
		return nil, err
	}
	amt, err := e.FromPlaintext(types.NewInt(amount))
	if err != nil {
		return nil, err
	}
	out := &circuitOutput{}
	for i := range 3 {
		cur, err := loadScalar(e, in, 1+i)
		if err != nil {
			return nil, err
		}
		next, err := e.Add(cur, amt)
		if err != nil {
			return nil, err
		}
		ctx, err := in.ctx(4 + i)
		if err != nil {
			return nil, err
		}
		s, err := e.Export(next, ctx)
		if err != nil {
			return nil, err
		}
		out.Scalars = append(out.Scalars, s)
	}
	return out, nil
}

// runBurnAndWithdraw decrements balance, supply and locked when all three
// cover the amount, leaving them unchanged otherwise. Both branches are
// always computed and combined with Select, so the operation sequence does
// not depend on the encrypted values. The guard boolean and the effective
// amount are revealed so the caller can release custody funds.
func runBurnAndWithdraw(e compute.Engine, in *resolvedArgs) (*circuitOutput, error) {
	amount, err := in.u64(0)
	if err != nil {
		return nil, err
	}
	amt, err := e.FromPlaintext(types.NewInt(amount))
	if err != nil {
		return nil, err
	}
	zero, err := e.FromPlaintext(new(types.BigInt))
	if err != nil {
		return nil, err
	}

	totals := make([]compute.Handle, 3)
	ok := compute.Handle(0)
	for i := range 3 {
		cur, err := loadScalar(e, in, 1+i)
		if err != nil {
			return nil, err
		}
		totals[i] = cur
		covers, err := e.Ge(cur, amt)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			ok = covers
			continue
		}
		// boolean AND as a select against zero
		if ok, err = e.Select(ok, covers, zero); err != nil {
			return nil, err
		}
	}
	effective, err := e.Select(ok, amt, zero)
	if err != nil {
		return nil, err
	}

	out := &circuitOutput{}
	for i, cur := range totals {
		next, err := e.Sub(cur, effective)
		if err != nil {
			return nil, err
		}
		ctx, err := in.ctx(4 + i)
		if err != nil {
			return nil, err
		}
		s, err := e.Export(next, ctx)
		if err != nil {
			return nil, err
		}
		out.Scalars = append(out.Scalars, s)
	}

	okPlain, err := e.Reveal(ok)
	if err != nil {
		return nil, err
	}
	effPlain, err := e.Reveal(effective)
	if err != nil {
		return nil, err
	}
	out.Revealed = []*types.BigInt{okPlain, effPlain}
	return out, nil
}

// runTransfer moves the amount between two balances of the same mint when
// the source covers it, otherwise both balances are re-encrypted unchanged.
// Supply and locked are untouched either way.
func runTransfer(e compute.Engine, in *resolvedArgs) (*circuitOutput, error) {
	amount, err := in.u64(0)
	if err != nil {
		return nil, err
	}
	amt, err := e.FromPlaintext(types.NewInt(amount))
	if err != nil {
		return nil, err
	}
	return transferOutputs(e, in, amt)
}

// runTransferEncrypted is runTransfer with the amount arriving as a
// ciphertext; its plaintext never exists outside the engine.
func runTransferEncrypted(e compute.Engine, in *resolvedArgs) (*circuitOutput, error) {
	amt, err := loadScalar(e, in, 0)
	if err != nil {
		return nil, err
	}
	return transferOutputs(e, in, amt)
}

func transferOutputs(e compute.Engine, in *resolvedArgs, amt compute.Handle) (*circuitOutput, error) {
	zero, err := e.FromPlaintext(new(types.BigInt))
	if err != nil {
		return nil, err
	}
	src, err := loadScalar(e, in, 1)
	if err != nil {
		return nil, err
	}
	dst, err := loadScalar(e, in, 2)
	if err != nil {
		return nil, err
	}
	covers, err := e.Ge(src, amt)
	if err != nil {
		return nil, err
	}
	effective, err := e.Select(covers, amt, zero)
	if err != nil {
		return nil, err
	}
	newSrc, err := e.Sub(src, effective)
	if err != nil {
		return nil, err
	}
	newDst, err := e.Add(dst, effective)
	if err != nil {
		return nil, err
	}

	out := &circuitOutput{}
	for i, h := range []compute.Handle{newSrc, newDst} {
		ctx, err := in.ctx(3 + i)
		if err != nil {
			return nil, err
		}
		s, err := e.Export(h, ctx)
		if err != nil {
			return nil, err
		}
		out.Scalars = append(out.Scalars, s)
	}
	return out, nil
}

func loadScalar(e compute.Engine, in *resolvedArgs, i int) (compute.Handle, error) {
	s, err := in.scalar(i)
	if err != nil {
		return 0, err
	}
	return e.FromCiphertext(s)
}

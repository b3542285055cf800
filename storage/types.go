package storage

import (
	"crypto/sha256"

	"github.com/cvctoken/cvct/types"
)

// ArgKind tags the kind of a computation argument.
type ArgKind uint8

const (
	// ArgPlaintextU64 is a public 64-bit scalar argument.
	ArgPlaintextU64 ArgKind = iota + 1
	// ArgPlaintextU128 is a public u128-domain scalar argument.
	ArgPlaintextU128
	// ArgOutputContext is an output encryption-context descriptor: the
	// circuit re-encrypts the matching output under it.
	ArgOutputContext
	// ArgRecordRef points at a ciphertext already resident at a known byte
	// offset inside a persisted entity record; the cluster reads the current
	// state directly, keeping the request size constant.
	ArgRecordRef
	// ArgScalar carries an encrypted scalar by value, for amounts that never
	// existed as a plaintext on the submitting side.
	ArgScalar
)

// RecordRef locates an encrypted scalar field inside an entity record.
type RecordRef struct {
	Kind   RecordKind     `cbor:"0,keyasint"`
	Key    types.HexBytes `cbor:"1,keyasint"`
	Offset int            `cbor:"2,keyasint"`
}

// Arg is one positional argument of a confidential computation. Argument
// order must exactly match the target circuit's signature; a mismatch causes
// deterministic job failure.
type Arg struct {
	Kind    ArgKind                  `cbor:"0,keyasint"`
	U64     uint64                   `cbor:"1,keyasint,omitempty"`
	U128    *types.BigInt            `cbor:"2,keyasint,omitempty"`
	Context *types.EncryptionContext `cbor:"3,keyasint,omitempty"`
	Ref     *RecordRef               `cbor:"4,keyasint,omitempty"`
	Scalar  *types.EncryptedScalar   `cbor:"5,keyasint,omitempty"`
}

// CallbackTarget names one record scalar field the job's eventual result may
// overwrite. Output i of the circuit commits to target i.
type CallbackTarget struct {
	Kind     RecordKind     `cbor:"0,keyasint"`
	Key      types.HexBytes `cbor:"1,keyasint"`
	Offset   int            `cbor:"2,keyasint"`
	Writable bool           `cbor:"3,keyasint"`
}

// CustodyLeg describes a backing-asset transfer bound to a job, executed at
// commit time when the circuit reveals that the guarded condition held.
type CustodyLeg struct {
	From   types.HexBytes `cbor:"0,keyasint"`
	To     types.HexBytes `cbor:"1,keyasint"`
	Amount uint64         `cbor:"2,keyasint"`
}

// JobStatus tracks the persisted lifecycle of a computation job. The
// Requested state is transient (it exists only while the submitting operation
// builds the job) and Completed/Aborted belong to the external cluster, so
// only Queued, Verified and Rejected are ever stored.
type JobStatus uint8

const (
	JobStatusQueued JobStatus = iota + 1
	JobStatusVerified
	JobStatusRejected
)

func (st JobStatus) String() string {
	switch st {
	case JobStatusQueued:
		return "queued"
	case JobStatusVerified:
		return "verified"
	case JobStatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// ComputationJob is one asynchronous unit of work submitted to the
// confidential-compute cluster, resolved by exactly one callback.
type ComputationJob struct {
	ID       uint64           `cbor:"0,keyasint"`
	Circuit  string           `cbor:"1,keyasint"`
	Args     []Arg            `cbor:"2,keyasint"`
	ArgHash  types.HexBytes   `cbor:"3,keyasint"`
	Callback []CallbackTarget `cbor:"4,keyasint"`
	Custody  *CustodyLeg      `cbor:"5,keyasint,omitempty"`
	Status   JobStatus        `cbor:"6,keyasint"`
}

// SignedOutput is the callback payload the cluster delivers for a job: the
// re-encrypted outputs, any plaintext values the circuit chose to reveal, and
// an aggregate signature binding everything to the job id.
type SignedOutput struct {
	JobID     uint64                   `cbor:"0,keyasint"`
	Scalars   []*types.EncryptedScalar `cbor:"1,keyasint,omitempty"`
	Revealed  []*types.BigInt          `cbor:"2,keyasint,omitempty"`
	Aborted   bool                     `cbor:"3,keyasint,omitempty"`
	Signature types.HexBytes           `cbor:"4,keyasint,omitempty"`
}

// Payload returns the deterministic byte encoding the signature covers:
// everything except the signature itself.
func (o *SignedOutput) Payload() ([]byte, error) {
	unsigned := SignedOutput{
		JobID:    o.JobID,
		Scalars:  o.Scalars,
		Revealed: o.Revealed,
		Aborted:  o.Aborted,
	}
	return encodeArtifact(&unsigned)
}

// HashArgs computes the argument hash persisted alongside a queued job.
func HashArgs(args []Arg) (types.HexBytes, error) {
	data, err := encodeArtifact(args)
	if err != nil {
		return nil, err
	}
	hash := sha256.Sum256(data)
	return hash[:], nil
}

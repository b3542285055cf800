package ledger

import (
	"errors"
	"fmt"

	"go.vocdoni.io/dvote/log"

	"github.com/cvctoken/cvct/crypto/ethereum"
	"github.com/cvctoken/cvct/storage"
)

// HandleCallback verifies and commits one signed cluster output. The commit
// is all-or-nothing: the signature must recover to the pinned cluster key,
// the job id must name a still-queued job and the id must not have been
// consumed before. Any failure rejects the job (when one exists) without
// mutating a single ledger field and surfaces as ErrAbortedComputation.
//
// Committed writes are blind overwrites of the callback targets' scalar
// fields. Two in-flight jobs targeting the same field race: the later
// callback wins and the earlier result is lost. Serializing jobs per field
// is the submitter's responsibility.
func (l *Ledger) HandleCallback(out *storage.SignedOutput) error {
	job, err := l.stg.Job(out.JobID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: unknown job %d", ErrAbortedComputation, out.JobID)
		}
		return err
	}
	if job.Status != storage.JobStatusQueued {
		// replay of an already-consumed id
		return fmt.Errorf("%w: job %d already %s", ErrAbortedComputation, out.JobID, job.Status)
	}

	payload, err := out.Payload()
	if err != nil {
		return l.reject(job, fmt.Errorf("encode callback payload: %w", err))
	}
	signer, err := ethereum.AddrFromSignature(payload, out.Signature)
	if err != nil {
		return l.reject(job, fmt.Errorf("recover callback signer: %w", err))
	}
	if signer != l.clusterKey {
		return l.reject(job, fmt.Errorf("callback signed by %s, expected %s",
			signer.Hex(), l.clusterKey.Hex()))
	}
	if out.Aborted {
		return l.reject(job, fmt.Errorf("cluster aborted circuit %q", job.Circuit))
	}
	if len(out.Scalars) != len(job.Callback) {
		return l.reject(job, fmt.Errorf("got %d outputs for %d callback targets",
			len(out.Scalars), len(job.Callback)))
	}

	// custody leg first: its amount is gated on the revealed outcome, and a
	// failed release must not leave the encrypted totals already decremented
	if job.Custody != nil {
		if err := l.settleCustody(job, out); err != nil {
			return l.reject(job, err)
		}
	}

	for i, target := range job.Callback {
		if !target.Writable {
			continue
		}
		if err := l.stg.WriteScalarField(target.Kind, target.Key, target.Offset, out.Scalars[i]); err != nil {
			return l.reject(job, fmt.Errorf("commit output %d: %w", i, err))
		}
	}
	if err := l.stg.ConsumeJob(job.ID, storage.JobStatusVerified); err != nil {
		return err
	}
	log.Infow("computation job verified", "job", job.ID, "circuit", job.Circuit)
	return nil
}

// settleCustody executes a job's custody leg using the circuit-revealed
// outcome: Revealed[0] is the guard boolean, Revealed[1] the effective
// amount. A zero outcome releases nothing and is not an error.
func (l *Ledger) settleCustody(job *storage.ComputationJob, out *storage.SignedOutput) error {
	if len(out.Revealed) < 2 {
		return fmt.Errorf("custody leg without revealed outcome")
	}
	ok := out.Revealed[0].MathBigInt().Sign() != 0
	if !ok {
		return nil
	}
	effective := out.Revealed[1].MathBigInt().Uint64()
	if effective == 0 {
		return nil
	}
	if effective > job.Custody.Amount {
		return fmt.Errorf("revealed amount %d exceeds requested %d", effective, job.Custody.Amount)
	}
	if err := l.custody.Transfer(job.Custody.From, job.Custody.To, effective); err != nil {
		return fmt.Errorf("release backing asset: %w", err)
	}
	return nil
}

func (l *Ledger) reject(job *storage.ComputationJob, cause error) error {
	if err := l.stg.ConsumeJob(job.ID, storage.JobStatusRejected); err != nil {
		return err
	}
	log.Warnw("computation job rejected", "job", job.ID, "circuit", job.Circuit,
		"cause", cause.Error())
	return fmt.Errorf("%w: %v", ErrAbortedComputation, cause)
}

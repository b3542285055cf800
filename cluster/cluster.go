// Package cluster is an in-process double of the confidential-compute
// cluster the asynchronous protocol talks to. A worker goroutine pulls
// queued computation jobs from storage, resolves their by-reference
// arguments, executes the named circuit over the encrypted-arithmetic
// engine, signs the outputs and delivers them to the callback handler. A
// real deployment would replace this package with a network client; the
// queue, argument and callback formats would not change.
package cluster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/log"

	"github.com/cvctoken/cvct/compute"
	"github.com/cvctoken/cvct/crypto/ethereum"
	"github.com/cvctoken/cvct/storage"
	"github.com/cvctoken/cvct/types"
)

const defaultTickInterval = 200 * time.Millisecond

// CallbackHandler consumes signed job outputs. The ledger implements it;
// the indirection keeps the dependency one-way.
type CallbackHandler interface {
	HandleCallback(out *storage.SignedOutput) error
}

// Cluster executes computation jobs and calls back with signed outputs.
type Cluster struct {
	stg     *storage.Storage
	engine  compute.Engine
	signer  *ethereum.SignKeys
	handler CallbackHandler
	tick    time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a cluster double over the given storage and engine. The signer
// is the cluster identity: its address is the verification key callers pin.
func New(stg *storage.Storage, engine compute.Engine, signer *ethereum.SignKeys) *Cluster {
	return &Cluster{
		stg:    stg,
		engine: engine,
		signer: signer,
		tick:   defaultTickInterval,
	}
}

// SetTickInterval overrides how often the worker polls the job queue.
func (c *Cluster) SetTickInterval(d time.Duration) {
	c.tick = d
}

// SetHandler registers the callback handler. Must be called before Start.
func (c *Cluster) SetHandler(h CallbackHandler) {
	c.handler = h
}

// Address returns the cluster's output verification key.
func (c *Cluster) Address() common.Address {
	return c.signer.Address()
}

// Start launches the worker goroutine. It keeps pulling jobs until the
// context is cancelled or Stop is called.
func (c *Cluster) Start(ctx context.Context) error {
	if c.handler == nil {
		return fmt.Errorf("cluster started without a callback handler")
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.tick)
		defer ticker.Stop()
		log.Infow("computation worker started", "tick", c.tick.String())
		for {
			select {
			case <-ctx.Done():
				log.Infow("computation worker stopped")
				return
			case <-ticker.C:
				for {
					processed, err := c.ProcessNextJob()
					if err != nil {
						log.Errorw(err, "failed to process computation job")
						break
					}
					if !processed {
						break
					}
				}
			}
		}
	}()
	return nil
}

// Stop cancels the worker and waits for it to exit.
func (c *Cluster) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

// ProcessNextJob executes one queued job end to end, including callback
// delivery. Returns false when the queue is empty.
func (c *Cluster) ProcessNextJob() (bool, error) {
	job, err := c.stg.NextJob()
	if err != nil {
		if errors.Is(err, storage.ErrNoMoreElements) {
			return false, nil
		}
		return false, fmt.Errorf("next job: %w", err)
	}

	out := c.execute(job)
	if err := c.sign(out); err != nil {
		return true, fmt.Errorf("sign output for job %d: %w", job.ID, err)
	}
	if err := c.handler.HandleCallback(out); err != nil {
		// the handler already settled the job's terminal status
		log.Debugw("callback not committed", "job", job.ID, "error", err.Error())
		return true, nil
	}
	log.Debugw("computation job resolved", "job", job.ID, "circuit", job.Circuit,
		"aborted", out.Aborted)
	return true, nil
}

// execute runs the job's circuit. Any failure, from an unknown circuit to an
// argument mismatch, yields an aborted output so the job still resolves with
// exactly one callback.
func (c *Cluster) execute(job *storage.ComputationJob) *storage.SignedOutput {
	out, err := c.run(job)
	if err != nil {
		log.Warnw("computation job aborted", "job", job.ID, "circuit", job.Circuit,
			"error", err.Error())
		return &storage.SignedOutput{JobID: job.ID, Aborted: true}
	}
	return &storage.SignedOutput{
		JobID:    job.ID,
		Scalars:  out.Scalars,
		Revealed: out.Revealed,
	}
}

func (c *Cluster) run(job *storage.ComputationJob) (*circuitOutput, error) {
	circ, ok := circuits[job.Circuit]
	if !ok {
		return nil, fmt.Errorf("unknown circuit %q", job.Circuit)
	}
	argHash, err := storage.HashArgs(job.Args)
	if err != nil {
		return nil, fmt.Errorf("hash args: %w", err)
	}
	if !bytes.Equal(argHash, job.ArgHash) {
		return nil, fmt.Errorf("argument hash mismatch")
	}
	if err := checkSignature(job.Args, circ.signature); err != nil {
		return nil, err
	}
	resolved, err := c.resolve(job.Args)
	if err != nil {
		return nil, err
	}
	return circ.run(c.engine, resolved)
}

func checkSignature(args []storage.Arg, signature []storage.ArgKind) error {
	if len(args) != len(signature) {
		return fmt.Errorf("arity mismatch: got %d arguments, circuit takes %d",
			len(args), len(signature))
	}
	for i, kind := range signature {
		if args[i].Kind != kind {
			return fmt.Errorf("argument %d: kind mismatch", i)
		}
	}
	return nil
}

// resolve loads the current ciphertext behind every record reference and
// collects by-value scalars, so circuits read both through one accessor.
func (c *Cluster) resolve(args []storage.Arg) (*resolvedArgs, error) {
	resolved := &resolvedArgs{
		args:    args,
		scalars: make(map[int]*types.EncryptedScalar),
	}
	for i, arg := range args {
		switch arg.Kind {
		case storage.ArgRecordRef:
			if arg.Ref == nil {
				return nil, fmt.Errorf("argument %d: empty record reference", i)
			}
			s, err := c.stg.ReadScalarField(arg.Ref.Kind, arg.Ref.Key, arg.Ref.Offset)
			if err != nil {
				return nil, fmt.Errorf("argument %d: resolve record reference: %w", i, err)
			}
			resolved.scalars[i] = s
		case storage.ArgScalar:
			if arg.Scalar == nil {
				return nil, fmt.Errorf("argument %d: empty scalar", i)
			}
			resolved.scalars[i] = arg.Scalar
		}
	}
	return resolved, nil
}

func (c *Cluster) sign(out *storage.SignedOutput) error {
	payload, err := out.Payload()
	if err != nil {
		return err
	}
	sig, err := c.signer.SignEthereum(payload)
	if err != nil {
		return err
	}
	out.Signature = sig
	return nil
}

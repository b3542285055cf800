package service

import (
	"context"
	"time"

	"go.vocdoni.io/dvote/log"

	"github.com/cvctoken/cvct/cluster"
	"github.com/cvctoken/cvct/compute"
	"github.com/cvctoken/cvct/crypto/ethereum"
	"github.com/cvctoken/cvct/storage"
)

// ClusterService represents a service that handles background job execution.
// It pulls queued computations, runs them on the engine and delivers signed
// callbacks to the registered handler.
type ClusterService struct {
	cluster *cluster.Cluster
}

// NewCluster creates a new computation cluster service. The tick interval
// defines how often the worker polls the job queue when it is idle.
func NewCluster(stg *storage.Storage, engine compute.Engine,
	signer *ethereum.SignKeys, handler cluster.CallbackHandler, tick time.Duration,
) *ClusterService {
	c := cluster.New(stg, engine, signer)
	c.SetHandler(handler)
	if tick > 0 {
		c.SetTickInterval(tick)
	}
	return &ClusterService{cluster: c}
}

// Cluster returns the underlying cluster instance.
func (cs *ClusterService) Cluster() *cluster.Cluster {
	return cs.cluster
}

// Start begins the job processing service.
func (cs *ClusterService) Start(ctx context.Context) error {
	return cs.cluster.Start(ctx)
}

// Stop halts the job processing service.
func (cs *ClusterService) Stop() {
	cs.cluster.Stop()
	log.Debugw("cluster service stopped")
}

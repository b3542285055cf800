package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/metadb"
	"go.vocdoni.io/dvote/log"

	"github.com/cvctoken/cvct/compute"
	"github.com/cvctoken/cvct/crypto/ecc/curves"
	"github.com/cvctoken/cvct/crypto/ethereum"
	"github.com/cvctoken/cvct/custody"
	"github.com/cvctoken/cvct/ledger"
	"github.com/cvctoken/cvct/payroll"
	"github.com/cvctoken/cvct/service"
	"github.com/cvctoken/cvct/storage"
)

func main() {
	dataDir := flag.String("dataDir", "./cvct-data", "data directory for the key-value store")
	dbType := flag.String("dbType", db.TypePebble, "key-value store type")
	logLevel := flag.String("logLevel", "info", "log level (debug, info, warn, error)")
	host := flag.String("host", "0.0.0.0", "host to bind the API server to")
	port := flag.Int("port", 8080, "port to bind the API server to")
	tick := flag.Duration("clusterTick", time.Second, "job queue polling interval")
	clusterKey := flag.String("clusterKey", "", "hex private key for signing computation outputs (generated if empty)")
	flag.Parse()
	log.Init(*logLevel, "stdout", nil)

	database, err := metadb.New(*dbType, *dataDir)
	if err != nil {
		log.Fatalf("failed to open the database: %v", err)
	}
	stg := storage.New(database)

	keyring, err := compute.NewKeyring(curves.CurveTypeBN254)
	if err != nil {
		log.Fatalf("failed to create the keyring: %v", err)
	}
	engine := compute.NewMemEngine(keyring)
	custodySvc := custody.NewMemService()

	signer := ethereum.NewSignKeys()
	if *clusterKey != "" {
		err = signer.AddHexKey(*clusterKey)
	} else {
		err = signer.Generate()
	}
	if err != nil {
		log.Fatalf("failed to set up the cluster signer: %v", err)
	}
	log.Infow("cluster signer ready", "address", signer.AddressString())

	lg := ledger.New(stg, engine, keyring, custodySvc, signer.Address())
	plain := payroll.NewLedger(stg, custodySvc)
	scheduler := payroll.NewScheduler(stg, plain)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clusterSrv := service.NewCluster(stg, engine, signer, lg, *tick)
	if err := clusterSrv.Start(ctx); err != nil {
		log.Fatalf("failed to start the computation cluster: %v", err)
	}

	apiSrv := service.NewAPI(stg, lg, plain, scheduler, *host, *port)
	if err := apiSrv.Start(ctx); err != nil {
		log.Fatalf("failed to start the API service: %v", err)
	}

	log.Infow("cvctd is up", "host", *host, "port", *port)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")
	apiSrv.Stop()
	clusterSrv.Stop()
	stg.Close()
}

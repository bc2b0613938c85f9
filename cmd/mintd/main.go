package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"degenmint/internal/cache"
	"degenmint/internal/chain"
	"degenmint/internal/config"
	"degenmint/internal/orchestrator"
	"degenmint/internal/server"
	"degenmint/internal/state"
	"degenmint/internal/symbols"

	"github.com/ethereum/go-ethereum/common"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store cache.Store
	if cfg.Service.CachePostgresDSN != "" {
		pgStore, err := cache.NewPostgresStore(ctx, cfg.Service.CachePostgresDSN)
		if err != nil {
			log.Fatalf("cache store error: %v", err)
		}
		defer pgStore.Close()
		store = pgStore
	} else {
		store = cache.NewFileStore(cfg.Service.CachePath)
	}

	var (
		reader chain.Reader
		sub    chain.Submitter
	)
	if cfg.Chain.RPCURL != "" {
		ethClient, err := chain.NewEthClient(ctx, chain.EthClientConfig{
			RPCURL:         cfg.Chain.RPCURL,
			PrivateKeyHex:  cfg.Chain.PrivateKey,
			ContractGame:   cfg.Deployment.Contracts.DegenerusGame,
			ContractBurnie: cfg.Deployment.Contracts.BurnieToken,
		})
		if err != nil {
			log.Fatalf("chain client error: %v", err)
		}
		reader = ethClient
		sub = ethClient
	} else {
		log.Printf("no CHAIN_RPC_URL configured, running against fakes")
		reader = chain.NewFakeReader()
		sub = &chain.FakeSubmitter{}
	}

	syncSvc := state.NewService(reader, store, cfg.Service.SyncInterval)
	syncSvc.RestoreFromCache(ctx)

	if cfg.Chain.PlayerAddress != "" {
		syncSvc.BindAddress(common.HexToAddress(cfg.Chain.PlayerAddress))
	} else if from := sub.From(); from != (common.Address{}) {
		syncSvc.BindAddress(from)
	}

	orch := orchestrator.New(syncSvc, reader, sub, store)
	scanner := symbols.NewScanner(reader, store)

	apiServer := server.NewServer(cfg, syncSvc, orch, scanner, reader)

	go syncSvc.Run(ctx)
	go func() {
		if err := apiServer.Start(); err != nil {
			log.Printf("server stopped: %v", err)
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = apiServer.Shutdown(shutdownCtx)
}

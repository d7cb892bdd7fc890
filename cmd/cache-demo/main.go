// Command cache-demo wires a Cache against real upstream adapters and
// exposes its published snapshot over a tiny HTTP endpoint, along with
// Prometheus metrics.
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/enielson/solvable-orders-cache/internal/cache"
	"github.com/enielson/solvable-orders-cache/internal/config"
	"github.com/enielson/solvable-orders-cache/internal/logging"
	"github.com/enielson/solvable-orders-cache/internal/metrics"
	"github.com/enielson/solvable-orders-cache/pkg/badtoken"
	"github.com/enielson/solvable-orders-cache/pkg/balanceoracle"
	"github.com/enielson/solvable-orders-cache/pkg/blockstream"
	"github.com/enielson/solvable-orders-cache/pkg/database"
	"github.com/enielson/solvable-orders-cache/pkg/orderstore/postgres"
	"github.com/enielson/solvable-orders-cache/pkg/priceoracle"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := logging.New("[solvable-orders-cache]")

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	orderStore := postgres.New(db)

	detector, err := badtoken.New(noopClassifier{}, badtoken.DefaultConfig())
	if err != nil {
		log.Fatalf("failed to create bad-token detector: %v", err)
	}
	defer detector.Close()

	balances, err := balanceoracle.New(cfg.BalanceOracleRPCURL, balanceoracle.Config{})
	if err != nil {
		log.Fatalf("failed to create balance oracle: %v", err)
	}

	prices := priceoracle.New(cfg.PriceOracleURL, priceoracle.Config{})

	blocks := blockstream.New(cfg.BlockStreamURL, logger)
	defer blocks.Close()

	registry := prometheus.NewRegistry()
	sink, err := metrics.NewPrometheusSink(registry)
	if err != nil {
		log.Fatalf("failed to create metrics sink: %v", err)
	}

	banned := make(map[common.Address]struct{}, len(cfg.BannedUsers))
	for _, addr := range cfg.BannedUsers {
		banned[addr] = struct{}{}
	}

	c := cache.New(cache.Dependencies{
		OrderStore:             orderStore,
		BadTokenDetector:       detector,
		BalanceFetcher:         balances,
		NativePriceEstimator:   prices,
		BlockStream:            blocks,
		BannedUsers:            banned,
		MinOrderValidity:       cfg.MinOrderValidity,
		UpdateInterval:         cfg.UpdateInterval,
		MaxAuctionCreationTime: cfg.MaxAuctionCreationTime,
		Metrics:                sink,
		Logger:                 logger,
	})
	defer c.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auction", func(w http.ResponseWriter, r *http.Request) {
		orders := c.CachedSolvableOrders()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(orders)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Infof("received shutdown signal")
	case err := <-errCh:
		logger.Errorf("server failed: %v", err)
	}
}

// noopClassifier is a placeholder badtoken.Classifier that treats every
// token as supported; a real deployment wires in a simulation-based
// checker instead.
type noopClassifier struct{}

func (noopClassifier) IsSupported(context.Context, common.Address) (bool, error) {
	return true, nil
}

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lendpool/native/lending"
	"lendpool/observability"
	"lendpool/observability/logging"
	"lendpool/storage"
)

const envVar = "LENDPOOL_ENV"

func main() {
	configFile := flag.String("config", "./lending.toml", "Path to the reserve configuration file")
	listenAddr := flag.String("listen", ":8650", "HTTP listen address for metrics and queries")
	dataDir := flag.String("data", "", "LevelDB directory; empty runs with in-memory state")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv(envVar))
	logger := logging.Setup("lendpoold", env)

	cfg, err := lending.LoadConfig(*configFile)
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	store, err := cfg.Store()
	if err != nil {
		logger.Error("invalid reserve configuration", slog.Any("error", err))
		os.Exit(1)
	}
	boostTable, err := cfg.BoostTable()
	if err != nil {
		logger.Error("invalid boost configuration", slog.Any("error", err))
		os.Exit(1)
	}

	var db storage.Database
	if *dataDir == "" {
		logger.Warn("no data directory configured, state will not survive restarts")
		db = storage.NewMemDB()
	} else {
		db, err = storage.NewLevelDB(*dataDir)
		if err != nil {
			logger.Error("failed to open database", slog.String("path", *dataDir), slog.Any("error", err))
			os.Exit(1)
		}
	}
	defer db.Close()

	engine := lending.NewEngine(store)
	engine.SetState(lending.NewStoreState(db))
	engine.SetBoost(nil, nil, boostTable)
	engine.SetLogger(logger)
	engine.SetMetrics(observability.Lending())
	engine.SetBlockTimestamp(uint64(time.Now().Unix()))

	// Accrual deltas follow wall-clock seconds when the pool runs standalone.
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for now := range ticker.C {
			engine.SetBlockTimestamp(uint64(now.Unix()))
		}
	}()

	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/v1/accounts/{address}", accountHandler(engine, logger))

	server := &http.Server{
		Addr:              *listenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("lendpoold listening", slog.String("addr", *listenAddr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("http server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

type accountResponse struct {
	TotalCollateralUSD         string `json:"totalCollateralUSD"`
	TotalDebtUSD               string `json:"totalDebtUSD"`
	AvailableBorrowsUSD        string `json:"availableBorrowsUSD"`
	AvgLTVBps                  uint64 `json:"avgLtvBps"`
	AvgLiquidationThresholdBps uint64 `json:"avgLiquidationThresholdBps"`
	HealthFactor               string `json:"healthFactor"`
}

func accountHandler(engine *lending.Engine, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "address")
		if !common.IsHexAddress(raw) {
			http.Error(w, fmt.Sprintf("invalid address %q", raw), http.StatusBadRequest)
			return
		}
		data, err := engine.AccountData(common.HexToAddress(raw))
		if err != nil {
			logger.Error("account query failed", slog.String("address", raw), slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(accountResponse{
			TotalCollateralUSD:         data.TotalCollateralUSD.String(),
			TotalDebtUSD:               data.TotalDebtUSD.String(),
			AvailableBorrowsUSD:        data.AvailableBorrowsUSD.String(),
			AvgLTVBps:                  data.AvgLTVBps,
			AvgLiquidationThresholdBps: data.AvgLiquidationThresholdBps,
			HealthFactor:               data.HealthFactor.String(),
		})
	}
}

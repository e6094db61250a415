// cmd/bot/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/monad-bot/internal/blockchain/evm"
	"github.com/rovshanmuradov/monad-bot/internal/bot"
	"github.com/rovshanmuradov/monad-bot/internal/config"
	"github.com/rovshanmuradov/monad-bot/internal/eventlistener"
	"github.com/rovshanmuradov/monad-bot/internal/executor"
	"github.com/rovshanmuradov/monad-bot/internal/logger"
	"github.com/rovshanmuradov/monad-bot/internal/metrics"
	"github.com/rovshanmuradov/monad-bot/internal/notify"
	"github.com/rovshanmuradov/monad-bot/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to a config file, e.g. configs/config.example.yaml (empty: env only)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "monad-bot: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	appLogger, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	log := appLogger.Logger
	log.Info("🚀 Starting monad bot", zap.String("config", configPath))

	shutdown := bot.NewShutdownHandler(log, 30*time.Second)
	shutdown.Add("logger", appLogger)
	defer func() {
		if err := shutdown.Shutdown(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := evm.Dial(ctx, evm.Config{
		RPCURL:         cfg.RPCURL,
		ChainID:        cfg.ChainID,
		PrivateKey:     cfg.PrivateKey,
		CurveLens:      common.HexToAddress(cfg.Contracts.CurveLens),
		GasLimit:       cfg.Gas.Limit,
		GasStrategy:    cfg.Gas.Strategy(),
		ReceiptTimeout: cfg.ReceiptTimeout,
	}, log)
	if err != nil {
		log.Error("Failed to connect to RPC", zap.Error(err))
		return err
	}
	shutdown.Add("evm_client", client)

	curve := executor.NewCurveBackend(client, log)
	router := executor.NewRouterBackend(client, executor.RouterConfig{
		Router:  common.HexToAddress(cfg.Contracts.Router),
		Wrapped: common.HexToAddress(cfg.Contracts.Wrapped),
	}, log)

	store, err := storage.Open(cfg.Storage, log)
	if err != nil {
		log.Error("Failed to open storage", zap.Error(err))
		return err
	}
	shutdown.Add("storage", store)

	var logs eventlistener.LogSource
	if cfg.Copy.Enabled || len(cfg.Copy.ScoutWallets) > 0 {
		wsURL := cfg.WSURL
		if wsURL == "" && strings.HasPrefix(cfg.RPCURL, "ws") {
			wsURL = cfg.RPCURL
		}
		if wsURL != "" {
			wsClient, err := ethclient.DialContext(ctx, wsURL)
			if err != nil {
				log.Error("Failed to connect to websocket endpoint", zap.Error(err))
				return fmt.Errorf("dial %s: %w", wsURL, err)
			}
			shutdown.AddFunc("ws_client", func() error {
				wsClient.Close()
				return nil
			})
			logs = wsClient
		}
	}

	var notifier notify.Notifier = notify.NewLogNotifier(log)
	if cfg.Telegram.Enabled() {
		notifier = notify.NewTelegramNotifier(cfg.Telegram, log)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	engine, err := bot.NewEngine(bot.Config{
		Risk:        cfg.Risk,
		Monitor:     cfg.Monitor,
		Sell:        cfg.Sell,
		Reputation:  cfg.Reputation,
		Copy:        cfg.Copy,
		CurveEvents: common.HexToAddress(cfg.Contracts.CurveEvents),
	}, bot.Deps{
		Storage:   store,
		Primary:   curve,
		Secondary: router,
		Quoter:    executor.NewFallbackQuoter(curve, router),
		Wallet:    client,
		Logs:      logs,
		Notifier:  notifier,
		Metrics:   collector,
		Logger:    log,
	})
	if err != nil {
		log.Error("Failed to build engine", zap.Error(err))
		return err
	}
	shutdown.AddContext("engine", engine.Shutdown)

	g, gctx := errgroup.WithContext(ctx)
	if cfg.MetricsAddr != "" {
		server := metrics.NewServer(cfg.MetricsAddr, registry, log)
		g.Go(func() error { return server.Run(gctx) })
	}
	g.Go(func() error { return engine.Run(gctx) })

	err = g.Wait()
	log.Info("🛑 Bot stopped", zap.Error(err))
	return err
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/joho/godotenv"

	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/config"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/eth"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/handler"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/ledger"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/logging"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/market"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/metrics"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/service"
	"github.com/panoptisDev/Uniswap-lookalike-DEX/internal/swapform"
)

// seedReserve is the per-side pool depth, in whole units, of the in-memory
// ledger.
const seedReserve = 1_000

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	logger := logging.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	pairs, err := market.LoadFile(cfg.MarketFile)
	if err != nil {
		return fmt.Errorf("failed to load market: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l, closeLedger, err := openLedger(ctx, cfg, logger, pairs)
	if err != nil {
		return err
	}
	defer closeLedger()

	var m *metrics.SwapMetrics
	if cfg.Metrics {
		m = metrics.Swap()
	}

	policy := swapform.Policy{Proportional: !cfg.TokenPassthrough}
	sessionService := service.NewSessionService(logging.Component(logger, "service"), l, pairs, policy, m)
	sessionHandler := handler.NewSessionHandler(logging.Component(logger, "handler"), sessionService)

	app := fiber.New()
	sessionHandler.Register(app)
	if cfg.Metrics {
		app.Get("/metrics", handler.Metrics())
	}

	logger.Info("starting", "addr", cfg.Addr, "ledger", cfg.LedgerMode, "pairs", len(pairs.Pairs()), "passthrough", cfg.TokenPassthrough)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(cfg.Addr)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			_ = app.Shutdown()
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_ = app.ShutdownWithContext(shutdownCtx)
	return nil
}

// openLedger builds the configured ledger and returns a function releasing
// its resources.
func openLedger(ctx context.Context, cfg *config.Config, logger *slog.Logger, pairs *market.PairTable) (ledger.Ledger, func(), error) {
	if cfg.LedgerMode == config.LedgerMemory {
		mem := ledger.NewMemory(pairs.Native(), pairs.Wrapped())
		for _, p := range pairs.Pairs() {
			a, err := wholeUnits(pairs, p.A)
			if err != nil {
				return nil, nil, err
			}
			b, err := wholeUnits(pairs, p.B)
			if err != nil {
				return nil, nil, err
			}
			mem.AddPool(p.A, p.B, a, b)
		}
		logger.Warn("using in-memory ledger; no transaction reaches a chain")
		return mem, func() {}, nil
	}

	registry, err := market.LoadRegistry(cfg.RegistryFile, pairs.Native(), pairs.Wrapped())
	if err != nil {
		return nil, nil, err
	}
	routerAddress, err := registry.Router(cfg.RouterAddress)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve router address: %w", err)
	}

	keyring := eth.NewKeyring()
	if cfg.AccountKey != "" {
		signer, err := eth.NewKeySigner(cfg.AccountKey)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load account key: %w", err)
		}
		keyring.Add(signer)
		logger.Info("signer loaded", "account", signer.Address().Hex())
	}

	ethereumClient, err := eth.Dial(ctx, cfg.RPCEndpoint)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to Ethereum node: %w", err)
	}

	router := ledger.NewRouter(logging.Component(logger, "ledger"), ethereumClient, registry, keyring, routerAddress, cfg.ReceiptPoll)
	return router, ethereumClient.Close, nil
}

func wholeUnits(pairs *market.PairTable, a market.Asset) (*big.Int, error) {
	d, err := pairs.Decimals(a)
	if err != nil {
		return nil, err
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(d)), nil)
	return scale.Mul(scale, big.NewInt(seedReserve)), nil
}

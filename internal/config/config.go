package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// LedgerMode selects the ledger implementation.
type LedgerMode string

const (
	LedgerRPC    LedgerMode = "rpc"
	LedgerMemory LedgerMode = "memory"
)

type Config struct {
	Addr     string
	LogLevel string

	LedgerMode    LedgerMode
	RPCEndpoint   string
	RouterAddress common.Address
	RegistryFile  string
	AccountKey    string
	ReceiptPoll   time.Duration

	MarketFile       string
	TokenPassthrough bool
	Metrics          bool
}

func FromEnv() (*Config, error) {
	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":1337"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	mode := LedgerMode(strings.ToLower(strings.TrimSpace(os.Getenv("LEDGER_MODE"))))
	if mode == "" {
		mode = LedgerRPC
	}
	if mode != LedgerRPC && mode != LedgerMemory {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLedgerMode, mode)
	}

	passthrough, err := boolEnv("TOKEN_PASSTHROUGH", true)
	if err != nil {
		return nil, err
	}
	metrics, err := boolEnv("METRICS", true)
	if err != nil {
		return nil, err
	}
	poll, err := durationEnv("RECEIPT_POLL", time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Addr:             addr,
		LogLevel:         logLevel,
		LedgerMode:       mode,
		AccountKey:       strings.TrimSpace(os.Getenv("ACCOUNT_KEY")),
		ReceiptPoll:      poll,
		MarketFile:       os.Getenv("MARKET_FILE"),
		TokenPassthrough: passthrough,
		Metrics:          metrics,
	}
	if mode == LedgerMemory {
		return cfg, nil
	}

	cfg.RPCEndpoint = os.Getenv("ETH_RPC_URL")
	if cfg.RPCEndpoint == "" {
		return nil, ErrMissingRPCEndpoint
	}

	// Without ROUTER_ADDRESS the router comes from the registry.
	if router := strings.TrimSpace(os.Getenv("ROUTER_ADDRESS")); router != "" {
		if !common.IsHexAddress(router) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRouterAddress, router)
		}
		cfg.RouterAddress = common.HexToAddress(router)
	}

	cfg.RegistryFile = os.Getenv("REGISTRY_FILE")
	if cfg.RegistryFile == "" {
		return nil, ErrMissingRegistryFile
	}

	return cfg, nil
}

func boolEnv(key string, def bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, raw)
	}
	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, raw)
	}
	return v, nil
}

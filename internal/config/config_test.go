package config

import (
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var allKeys = []string{
	"ADDR", "LOG_LEVEL", "LEDGER_MODE", "ETH_RPC_URL", "ROUTER_ADDRESS", "REGISTRY_FILE",
	"ACCOUNT_KEY", "MARKET_FILE", "TOKEN_PASSTHROUGH", "RECEIPT_POLL", "METRICS",
}

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, kv[k])
	}
}

func TestFromEnv_MemoryDefaults(t *testing.T) {
	setEnv(t, map[string]string{"LEDGER_MODE": "memory"})

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Addr != ":1337" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !cfg.TokenPassthrough || !cfg.Metrics {
		t.Fatalf("passthrough and metrics default to on: %+v", cfg)
	}
	if cfg.ReceiptPoll != time.Second {
		t.Fatalf("receipt poll = %s", cfg.ReceiptPoll)
	}
}

func TestFromEnv_RPC(t *testing.T) {
	setEnv(t, map[string]string{
		"ETH_RPC_URL":       "http://127.0.0.1:8545",
		"ROUTER_ADDRESS":    "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		"REGISTRY_FILE":     "config.json",
		"TOKEN_PASSTHROUGH": "false",
		"RECEIPT_POLL":      "250ms",
	})

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.LedgerMode != LedgerRPC {
		t.Fatalf("mode = %s", cfg.LedgerMode)
	}
	if cfg.RouterAddress != common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3") {
		t.Fatalf("router = %s", cfg.RouterAddress.Hex())
	}
	if cfg.TokenPassthrough {
		t.Fatalf("passthrough should be off")
	}
	if cfg.ReceiptPoll != 250*time.Millisecond {
		t.Fatalf("receipt poll = %s", cfg.ReceiptPoll)
	}
}

func TestFromEnv_RouterFromRegistry(t *testing.T) {
	setEnv(t, map[string]string{
		"ETH_RPC_URL":   "http://127.0.0.1:8545",
		"REGISTRY_FILE": "config.json",
	})

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.RouterAddress != (common.Address{}) {
		t.Fatalf("router = %s, want unset", cfg.RouterAddress.Hex())
	}
}

func TestFromEnv_Errors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want error
	}{
		{"missing rpc", map[string]string{}, ErrMissingRPCEndpoint},
		{"bad router", map[string]string{"ETH_RPC_URL": "http://x", "ROUTER_ADDRESS": "nope"}, ErrInvalidRouterAddress},
		{"missing registry", map[string]string{
			"ETH_RPC_URL": "http://x", "ROUTER_ADDRESS": "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		}, ErrMissingRegistryFile},
		{"missing registry without router", map[string]string{"ETH_RPC_URL": "http://x"}, ErrMissingRegistryFile},
		{"bad mode", map[string]string{"LEDGER_MODE": "ipc"}, ErrInvalidLedgerMode},
		{"bad bool", map[string]string{"LEDGER_MODE": "memory", "METRICS": "maybe"}, ErrInvalidValue},
		{"bad poll", map[string]string{"LEDGER_MODE": "memory", "RECEIPT_POLL": "-1s"}, ErrInvalidValue},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setEnv(t, tc.env)
			if _, err := FromEnv(); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func envFrom(env map[string]string) envLookup {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(nil, envFrom(map[string]string{"HOME": "/home/op"}))
	if err != nil {
		t.Fatalf("load returned unexpected error: %v", err)
	}

	if cfg.RunAddress != "localhost:3333" {
		t.Errorf("expected default run address, got %q", cfg.RunAddress)
	}
	if cfg.BitcoinRPCAddress() != "127.0.0.1:38332" {
		t.Errorf("unexpected rpc address %q", cfg.BitcoinRPCAddress())
	}
	if cfg.BitcoinRPCUser != defaultBitcoinRPCUser || cfg.BitcoinRPCPass != defaultBitcoinRPCPass {
		t.Errorf("unexpected rpc credentials %q/%q", cfg.BitcoinRPCUser, cfg.BitcoinRPCPass)
	}
	if cfg.BitcoinNetwork != "signet" {
		t.Errorf("expected signet, got %q", cfg.BitcoinNetwork)
	}
	if cfg.ServerFeeSats != 1000 {
		t.Errorf("expected fee 1000, got %d", cfg.ServerFeeSats)
	}
	if cfg.MaxWithdrawalBps != 1000 {
		t.Errorf("expected 1000 bps, got %d", cfg.MaxWithdrawalBps)
	}
	if cfg.CallTimeout != defaultCallTimeout || cfg.ShutdownTimeout != defaultShutdownTimeout {
		t.Errorf("unexpected timeouts %v/%v", cfg.CallTimeout, cfg.ShutdownTimeout)
	}
	if cfg.AttentionInterval != time.Minute || cfg.AttentionBatchSize != 500 || cfg.StalePaidAfter != 10*time.Minute {
		t.Errorf("unexpected attention settings %v/%d/%v", cfg.AttentionInterval, cfg.AttentionBatchSize, cfg.StalePaidAfter)
	}
	if cfg.ThunderCLIPath != "/home/op/Downloads/thunder-cli" {
		t.Errorf("expected home expansion, got %q", cfg.ThunderCLIPath)
	}
	if cfg.BitNamesCLIPath != "/home/op/Downloads/bitnames-cli" {
		t.Errorf("expected home expansion, got %q", cfg.BitNamesCLIPath)
	}
	if cfg.DatabaseURI != "" || cfg.KafkaBrokers != nil || cfg.KafkaTopic != defaultKafkaTopic {
		t.Errorf("expected optional backends disabled, got %+v", cfg)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected info log level, got %q", cfg.LogLevel)
	}
}

func TestLoadHostAndPort(t *testing.T) {
	cfg, err := load(nil, envFrom(map[string]string{"HOST": "0.0.0.0", "PORT": "8080"}))
	if err != nil {
		t.Fatalf("load returned unexpected error: %v", err)
	}
	if cfg.RunAddress != "0.0.0.0:8080" {
		t.Errorf("expected HOST:PORT, got %q", cfg.RunAddress)
	}

	cfg, err = load(nil, envFrom(map[string]string{"PORT": "8080", "RUN_ADDRESS": ":9000"}))
	if err != nil {
		t.Fatalf("load returned unexpected error: %v", err)
	}
	if cfg.RunAddress != ":9000" {
		t.Errorf("expected RUN_ADDRESS to win, got %q", cfg.RunAddress)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	env := map[string]string{
		"BITCOIN_RPC_HOST":        "node",
		"BITCOIN_RPC_PORT":        "18443",
		"BITCOIN_NETWORK":         "regtest",
		"SERVER_FEE_SATS":         "2500",
		"MAX_WITHDRAWAL_FRACTION": "0.25",
		"CALL_TIMEOUT":            "3s",
		"KAFKA_BROKERS":           "k1:9092, k2:9092,",
		"SKIP_CLI_CHECK":          "true",
		"THUNDER_CLI_PATH":        "/opt/thunder",
		"BITNAMES_RPC_URL":        "http://127.0.0.1:6002",
	}

	cfg, err := load(nil, envFrom(env))
	if err != nil {
		t.Fatalf("load returned unexpected error: %v", err)
	}

	if cfg.BitcoinRPCAddress() != "node:18443" || cfg.BitcoinNetwork != "regtest" {
		t.Errorf("unexpected bitcoin settings %+v", cfg)
	}
	if cfg.ServerFeeSats != 2500 || cfg.MaxWithdrawalBps != 2500 {
		t.Errorf("unexpected fee policy %d/%d", cfg.ServerFeeSats, cfg.MaxWithdrawalBps)
	}
	if cfg.CallTimeout != 3*time.Second {
		t.Errorf("expected call timeout 3s, got %v", cfg.CallTimeout)
	}
	if !reflect.DeepEqual(cfg.KafkaBrokers, []string{"k1:9092", "k2:9092"}) {
		t.Errorf("unexpected brokers %v", cfg.KafkaBrokers)
	}
	if !cfg.SkipCLICheck || cfg.ThunderCLIPath != "/opt/thunder" || cfg.BitNamesRPCURL != "http://127.0.0.1:6002" {
		t.Errorf("unexpected cli settings %+v", cfg)
	}
}

func TestLoadWithFlagOverrides(t *testing.T) {
	args := []string{
		"-a", ":9090",
		"-d", "postgres://override",
		"--btc-port", "8332",
		"--btc-network", "mainnet",
		"--server-fee", "500",
		"--max-fraction", "0.5",
		"--call-timeout", "7s",
		"--shutdown-timeout", "20s",
		"--kafka-brokers", "broker:9092",
		"--kafka-topic", "events",
		"--log-level", "debug",
		"--thunder-rpc-url", "http://localhost:6009",
		"--attention-interval", "30s",
		"--attention-batch", "50",
		"--stale-paid-after", "1h",
	}

	cfg, err := load(args, envFrom(map[string]string{"SERVER_FEE_SATS": "9999"}))
	if err != nil {
		t.Fatalf("load returned unexpected error: %v", err)
	}

	if cfg.RunAddress != ":9090" || cfg.DatabaseURI != "postgres://override" {
		t.Errorf("unexpected overrides %+v", cfg)
	}
	if cfg.BitcoinRPCPort != 8332 || cfg.BitcoinNetwork != "mainnet" {
		t.Errorf("unexpected bitcoin overrides %+v", cfg)
	}
	if cfg.ServerFeeSats != 500 || cfg.MaxWithdrawalBps != 5000 {
		t.Errorf("unexpected fee policy %d/%d", cfg.ServerFeeSats, cfg.MaxWithdrawalBps)
	}
	if cfg.CallTimeout != 7*time.Second || cfg.ShutdownTimeout != 20*time.Second {
		t.Errorf("unexpected timeouts %v/%v", cfg.CallTimeout, cfg.ShutdownTimeout)
	}
	if !reflect.DeepEqual(cfg.KafkaBrokers, []string{"broker:9092"}) || cfg.KafkaTopic != "events" {
		t.Errorf("unexpected kafka settings %v/%q", cfg.KafkaBrokers, cfg.KafkaTopic)
	}
	if cfg.AttentionInterval != 30*time.Second || cfg.AttentionBatchSize != 50 || cfg.StalePaidAfter != time.Hour {
		t.Errorf("unexpected attention overrides %+v", cfg)
	}
	if cfg.LogLevel != "debug" || cfg.ThunderRPCURL != "http://localhost:6009" {
		t.Errorf("unexpected overrides %+v", cfg)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	cases := map[string][]string{
		"invalid call timeout":       {"--call-timeout", "bad"},
		"invalid shutdown timeout":   {"--shutdown-timeout", "bad"},
		"invalid attention interval": {"--attention-interval", "bad"},
		"invalid stale paid age":     {"--stale-paid-after", "bad"},
		"max withdrawal fraction":    {"--max-fraction", "1.5"},
		"unknown bitcoin network":    {"--btc-network", "litecoin"},
		"parse flags":                {"--no-such-flag"},
	}
	for want, args := range cases {
		_, err := load(args, envFrom(nil))
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Fatalf("args %v: expected %q error, got %v", args, want, err)
		}
	}

	_, err := load(nil, envFrom(map[string]string{"MAX_WITHDRAWAL_FRACTION": "0"}))
	if err == nil {
		t.Fatal("expected zero fraction to be rejected")
	}
}

func TestLoadNormalizesNonPositiveValues(t *testing.T) {
	env := map[string]string{
		"BITCOIN_RPC_PORT":     "-1",
		"SERVER_FEE_SATS":      "-5",
		"CALL_TIMEOUT":         "0",
		"SHUTDOWN_TIMEOUT":     "0",
		"ATTENTION_INTERVAL":   "-1s",
		"ATTENTION_BATCH_SIZE": "0",
		"STALE_PAID_AFTER":     "0",
	}

	cfg, err := load(nil, envFrom(env))
	if err != nil {
		t.Fatalf("load returned unexpected error: %v", err)
	}

	if cfg.BitcoinRPCPort != defaultBitcoinRPCPort {
		t.Errorf("expected default port, got %d", cfg.BitcoinRPCPort)
	}
	if cfg.ServerFeeSats != defaultServerFeeSats {
		t.Errorf("expected default fee, got %d", cfg.ServerFeeSats)
	}
	if cfg.CallTimeout != defaultCallTimeout {
		t.Errorf("expected default call timeout, got %v", cfg.CallTimeout)
	}
	if cfg.ShutdownTimeout != defaultShutdownTimeout {
		t.Errorf("expected default shutdown timeout, got %v", cfg.ShutdownTimeout)
	}
	if cfg.AttentionInterval != defaultAttentionPeriod || cfg.AttentionBatchSize != defaultAttentionBatch || cfg.StalePaidAfter != defaultStalePaidAfter {
		t.Errorf("expected default attention settings, got %+v", cfg)
	}
}

func TestLoadReadsOperatorHashFromFile(t *testing.T) {
	dir := t.TempDir()
	hashFile := filepath.Join(dir, "operator")
	if err := os.WriteFile(hashFile, []byte("$2a$10$abcdef\n"), 0o600); err != nil {
		t.Fatalf("failed to write hash file: %v", err)
	}

	cfg, err := load(nil, envFrom(map[string]string{"OPERATOR_TOKEN_HASH_FILE": hashFile}))
	if err != nil {
		t.Fatalf("load returned unexpected error: %v", err)
	}

	if cfg.OperatorTokenHash != "$2a$10$abcdef" {
		t.Errorf("expected hash from file, got %q", cfg.OperatorTokenHash)
	}

	_, err = load(nil, envFrom(map[string]string{"OPERATOR_TOKEN_HASH_FILE": filepath.Join(dir, "missing")}))
	if err == nil {
		t.Fatal("expected error for missing hash file")
	}
}

func TestVerifyExecutables(t *testing.T) {
	dir := t.TempDir()
	exe := filepath.Join(dir, "thunder")
	if err := os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}
	plain := filepath.Join(dir, "bitnames")
	if err := os.WriteFile(plain, []byte("data"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	err := VerifyExecutables(&Config{ThunderCLIPath: exe, BitNamesCLIPath: exe})
	if err != nil {
		t.Fatalf("expected executables to pass, got %v", err)
	}

	err = VerifyExecutables(&Config{ThunderCLIPath: filepath.Join(dir, "missing"), BitNamesCLIPath: plain})
	if err == nil {
		t.Fatal("expected verification error")
	}
	if !strings.Contains(err.Error(), "Thunder CLI not found at path") {
		t.Errorf("expected missing thunder message, got %v", err)
	}
	if !strings.Contains(err.Error(), "BitNames CLI at "+plain+" is not executable") {
		t.Errorf("expected not executable message, got %v", err)
	}

	if err := VerifyExecutables(&Config{SkipCLICheck: true}); err != nil {
		t.Fatalf("skip must bypass verification, got %v", err)
	}
}

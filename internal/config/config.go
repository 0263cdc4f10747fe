package config

import (
	"flag"
	"fmt"
	"io"
	"math"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress string

	BitcoinRPCHost string
	BitcoinRPCPort int
	BitcoinRPCUser string
	BitcoinRPCPass string
	BitcoinNetwork string

	ThunderCLIPath  string
	ThunderRPCURL   string
	BitNamesCLIPath string
	BitNamesRPCURL  string

	ServerFeeSats    int64
	MaxWithdrawalBps int64

	CallTimeout     time.Duration
	ShutdownTimeout time.Duration

	AttentionInterval  time.Duration
	AttentionBatchSize int
	StalePaidAfter     time.Duration

	DatabaseURI  string
	KafkaBrokers []string
	KafkaTopic   string

	OperatorTokenHash string
	LogLevel          string
	SkipCLICheck      bool
}

const (
	defaultHost            = "localhost"
	defaultPort            = "3333"
	defaultBitcoinRPCHost  = "127.0.0.1"
	defaultBitcoinRPCPort  = 38332
	defaultBitcoinRPCUser  = "user"
	defaultBitcoinRPCPass  = "password"
	defaultBitcoinNetwork  = "signet"
	defaultThunderCLIPath  = "~/Downloads/thunder-cli"
	defaultBitNamesCLIPath = "~/Downloads/bitnames-cli"
	defaultServerFeeSats   = 1000
	defaultMaxFraction     = 0.10
	defaultCallTimeout     = 15 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultAttentionPeriod = time.Minute
	defaultAttentionBatch  = 500
	defaultStalePaidAfter  = 10 * time.Minute
	defaultKafkaTopic      = "withdrawal-events"
	defaultLogLevel        = "info"

	basisPoints = 10_000
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	defaultRunAddress := net.JoinHostPort(getString(lookup, "HOST", defaultHost), getString(lookup, "PORT", defaultPort))

	cfg := &Config{
		RunAddress:         getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		BitcoinRPCHost:     getString(lookup, "BITCOIN_RPC_HOST", defaultBitcoinRPCHost),
		BitcoinRPCPort:     getInt(lookup, "BITCOIN_RPC_PORT", defaultBitcoinRPCPort),
		BitcoinRPCUser:     getString(lookup, "BITCOIN_RPC_USER", defaultBitcoinRPCUser),
		BitcoinRPCPass:     getString(lookup, "BITCOIN_RPC_PASS", defaultBitcoinRPCPass),
		BitcoinNetwork:     getString(lookup, "BITCOIN_NETWORK", defaultBitcoinNetwork),
		ThunderCLIPath:     getString(lookup, "THUNDER_CLI_PATH", defaultThunderCLIPath),
		ThunderRPCURL:      getString(lookup, "THUNDER_RPC_URL", ""),
		BitNamesCLIPath:    getString(lookup, "BITNAMES_CLI_PATH", defaultBitNamesCLIPath),
		BitNamesRPCURL:     getString(lookup, "BITNAMES_RPC_URL", ""),
		ServerFeeSats:      int64(getInt(lookup, "SERVER_FEE_SATS", defaultServerFeeSats)),
		AttentionBatchSize: getInt(lookup, "ATTENTION_BATCH_SIZE", defaultAttentionBatch),
		CallTimeout:        getDuration(lookup, "CALL_TIMEOUT", defaultCallTimeout),
		ShutdownTimeout:    getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		AttentionInterval:  getDuration(lookup, "ATTENTION_INTERVAL", defaultAttentionPeriod),
		StalePaidAfter:     getDuration(lookup, "STALE_PAID_AFTER", defaultStalePaidAfter),
		DatabaseURI:        getString(lookup, "DATABASE_URI", ""),
		KafkaTopic:         getString(lookup, "KAFKA_TOPIC", defaultKafkaTopic),
		OperatorTokenHash:  getString(lookup, "OPERATOR_TOKEN_HASH", ""),
		LogLevel:           getString(lookup, "LOG_LEVEL", defaultLogLevel),
		SkipCLICheck:       getBool(lookup, "SKIP_CLI_CHECK", false),
	}

	fs := flag.NewFlagSet("fastwithdraw", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		fraction           = getFloat(lookup, "MAX_WITHDRAWAL_FRACTION", defaultMaxFraction)
		callTimeoutStr     = cfg.CallTimeout.String()
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
		attentionStr       = cfg.AttentionInterval.String()
		stalePaidStr       = cfg.StalePaidAfter.String()
		kafkaBrokers       = getString(lookup, "KAFKA_BROKERS", "")
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.BitcoinRPCHost, "btc-host", cfg.BitcoinRPCHost, "Bitcoin Core RPC host")
	fs.IntVar(&cfg.BitcoinRPCPort, "btc-port", cfg.BitcoinRPCPort, "Bitcoin Core RPC port")
	fs.StringVar(&cfg.BitcoinRPCUser, "btc-user", cfg.BitcoinRPCUser, "Bitcoin Core RPC user")
	fs.StringVar(&cfg.BitcoinRPCPass, "btc-pass", cfg.BitcoinRPCPass, "Bitcoin Core RPC password")
	fs.StringVar(&cfg.BitcoinNetwork, "btc-network", cfg.BitcoinNetwork, "Bitcoin network: mainnet, testnet3, signet or regtest")
	fs.StringVar(&cfg.ThunderCLIPath, "thunder-cli", cfg.ThunderCLIPath, "Path to thunder_app_cli")
	fs.StringVar(&cfg.ThunderRPCURL, "thunder-rpc-url", cfg.ThunderRPCURL, "Thunder node RPC URL")
	fs.StringVar(&cfg.BitNamesCLIPath, "bitnames-cli", cfg.BitNamesCLIPath, "Path to bitnames_app_cli")
	fs.StringVar(&cfg.BitNamesRPCURL, "bitnames-rpc-url", cfg.BitNamesRPCURL, "BitNames node RPC URL")
	fs.Int64Var(&cfg.ServerFeeSats, "server-fee", cfg.ServerFeeSats, "Server fee in satoshis")
	fs.Float64Var(&fraction, "max-fraction", fraction, "Largest share of the balance a single withdrawal may take")
	fs.StringVar(&callTimeoutStr, "call-timeout", callTimeoutStr, "Timeout for every ledger and L2 call")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.StringVar(&attentionStr, "attention-interval", attentionStr, "How often to scan for requests needing an operator")
	fs.IntVar(&cfg.AttentionBatchSize, "attention-batch", cfg.AttentionBatchSize, "Maximum requests inspected per state and scan")
	fs.StringVar(&stalePaidStr, "stale-paid-after", stalePaidStr, "Age after which a PAID request is reported as stuck")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN, in-memory registry when empty")
	fs.StringVar(&kafkaBrokers, "kafka-brokers", kafkaBrokers, "Comma separated Kafka brokers, events disabled when empty")
	fs.StringVar(&cfg.KafkaTopic, "kafka-topic", cfg.KafkaTopic, "Kafka topic for withdrawal events")
	fs.StringVar(&cfg.OperatorTokenHash, "operator-token-hash", cfg.OperatorTokenHash, "bcrypt hash of the operator token")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")
	fs.BoolVar(&cfg.SkipCLICheck, "skip-cli-check", cfg.SkipCLICheck, "Do not verify L2 CLI binaries on startup")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.CallTimeout, err = time.ParseDuration(callTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid call timeout: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if cfg.AttentionInterval, err = time.ParseDuration(attentionStr); err != nil {
		return nil, fmt.Errorf("invalid attention interval: %w", err)
	}

	if cfg.StalePaidAfter, err = time.ParseDuration(stalePaidStr); err != nil {
		return nil, fmt.Errorf("invalid stale paid age: %w", err)
	}

	if hashFile, ok := lookup("OPERATOR_TOKEN_HASH_FILE"); ok && hashFile != "" {
		content, err := os.ReadFile(hashFile)
		if err != nil {
			return nil, fmt.Errorf("read operator token hash file: %w", err)
		}
		cfg.OperatorTokenHash = strings.TrimSpace(string(content))
	}

	if math.IsNaN(fraction) || fraction <= 0 || fraction > 1 {
		return nil, fmt.Errorf("max withdrawal fraction must be in (0, 1], got %v", fraction)
	}
	cfg.MaxWithdrawalBps = int64(math.Round(fraction * basisPoints))

	cfg.KafkaBrokers = splitList(kafkaBrokers)

	if cfg.BitcoinRPCPort <= 0 {
		cfg.BitcoinRPCPort = defaultBitcoinRPCPort
	}

	if cfg.ServerFeeSats < 0 {
		cfg.ServerFeeSats = defaultServerFeeSats
	}

	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.AttentionInterval <= 0 {
		cfg.AttentionInterval = defaultAttentionPeriod
	}

	if cfg.AttentionBatchSize <= 0 {
		cfg.AttentionBatchSize = defaultAttentionBatch
	}

	if cfg.StalePaidAfter <= 0 {
		cfg.StalePaidAfter = defaultStalePaidAfter
	}

	if cfg.KafkaTopic == "" {
		cfg.KafkaTopic = defaultKafkaTopic
	}

	switch cfg.BitcoinNetwork {
	case "mainnet", "testnet3", "signet", "regtest":
	default:
		return nil, fmt.Errorf("unknown bitcoin network %q", cfg.BitcoinNetwork)
	}

	home, _ := lookup("HOME")
	cfg.ThunderCLIPath = expandHome(cfg.ThunderCLIPath, home)
	cfg.BitNamesCLIPath = expandHome(cfg.BitNamesCLIPath, home)

	return cfg, nil
}

// BitcoinRPCAddress returns host:port of the Bitcoin Core RPC endpoint.
func (c *Config) BitcoinRPCAddress() string {
	return net.JoinHostPort(c.BitcoinRPCHost, strconv.Itoa(c.BitcoinRPCPort))
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(lookup envLookup, key string, def float64) float64 {
	if v, ok := lookup(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBool(lookup envLookup, key string, def bool) bool {
	if v, ok := lookup(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func expandHome(path, home string) string {
	if home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return home + path[1:]
	}
	return path
}

// internal/config/config.go
//
// Environment-driven configuration for the memory-match server.
// Responsibilities:
//   - Read settings from the process environment (after godotenv has loaded .env).
//   - Apply defaults for everything optional.
//   - Derive the RPC endpoint and log-fetch strategy from ALCHEMY_API_KEY presence.
//
// Malformed numeric/duration values never abort startup; they fall back to the
// default and are logged at warn level.

package config

import (
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
)

const (
	defaultRPCURL   = "https://mainnet.base.org"
	alchemyURLBase  = "https://base-mainnet.g.alchemy.com/v2/"
	defaultExplorer = "https://basescan.org"
)

// Network describes the chain the contract lives on, including the metadata
// a wallet needs when the chain has to be added before switching.
type Network struct {
	ChainID        uint64
	Name           string
	CurrencyName   string
	CurrencySymbol string
	Decimals       int
	RPCURL         string
	ExplorerURL    string
}

// Config is the fully-resolved server configuration.
type Config struct {
	Port         string
	LogLevel     string
	ClientOrigin string
	JWTSecret    string
	SessionTTL   time.Duration
	Production   bool
	DBPath       string

	Contract    common.Address
	DeployBlock uint64
	Network     Network

	// RPCURL is the endpoint used for reads; Unrestricted reports whether it
	// accepts arbitrary getLogs ranges (a keyed Alchemy endpoint).
	RPCURL       string
	RPCLabel     string
	Unrestricted bool
	RPCTimeout   time.Duration

	ExplorerAPIURL string
	ExplorerAPIKey string

	LogChunkSize     uint64
	LogParallelBatch int

	LeaderboardSize     int
	LeaderboardCacheTTL time.Duration

	WalletKind       string
	WalletPrivateKey string
	WalletRPCURL     string

	AssetAPIURL   string
	DemoCardsFile string

	RecordTimeout time.Duration
}

// ContractConfigured reports whether a real (non-zero) contract address is set.
func (c Config) ContractConfigured() bool {
	return c.Contract != (common.Address{})
}

// Load reads the environment into a Config.
func Load() Config {
	cfg := Config{
		Port:         getEnv("PORT", "5175"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		ClientOrigin: getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		JWTSecret:    getEnv("JWT_SECRET", "dev_secret_change_me"),
		SessionTTL:   time.Duration(envInt("SESSION_TTL_HOURS", 24)) * time.Hour,
		Production:   os.Getenv("NODE_ENV") == "production",
		DBPath:       getEnv("DB_PATH", "./data/memorymatch.db"),

		DeployBlock: envUint("CONTRACT_DEPLOY_BLOCK", 0),
		Network: Network{
			ChainID:        envUint("CHAIN_ID", 8453),
			Name:           getEnv("CHAIN_NAME", "Base"),
			CurrencyName:   getEnv("CHAIN_CURRENCY_NAME", "Ether"),
			CurrencySymbol: getEnv("CHAIN_CURRENCY_SYMBOL", "ETH"),
			Decimals:       18,
			RPCURL:         getEnv("RPC_URL", defaultRPCURL),
			ExplorerURL:    getEnv("EXPLORER_URL", defaultExplorer),
		},
		RPCTimeout: envDuration("RPC_TIMEOUT", 20*time.Second),

		ExplorerAPIURL: os.Getenv("EXPLORER_API_URL"),
		ExplorerAPIKey: os.Getenv("EXPLORER_API_KEY"),

		LogChunkSize:     envUint("LOG_CHUNK_SIZE", 1800),
		LogParallelBatch: envInt("LOG_PARALLEL_BATCH", 8),

		LeaderboardSize:     envInt("LEADERBOARD_SIZE", 20),
		LeaderboardCacheTTL: envDuration("LEADERBOARD_CACHE_TTL", 30*time.Second),

		WalletKind:       strings.ToLower(strings.TrimSpace(os.Getenv("WALLET_KIND"))),
		WalletPrivateKey: os.Getenv("WALLET_PRIVATE_KEY"),
		WalletRPCURL:     os.Getenv("WALLET_RPC_URL"),

		AssetAPIURL:   os.Getenv("ASSET_API_URL"),
		DemoCardsFile: os.Getenv("DEMO_CARDS_FILE"),

		RecordTimeout: envDuration("RECORD_TIMEOUT", 3*time.Minute),
	}

	if addr := strings.TrimSpace(os.Getenv("CONTRACT_ADDRESS")); addr != "" {
		if common.IsHexAddress(addr) {
			cfg.Contract = common.HexToAddress(addr)
		} else {
			log.Warn().Str("value", addr).Msg("CONTRACT_ADDRESS is not a hex address; recording disabled")
		}
	}

	// A keyed Alchemy endpoint serves unlimited getLogs ranges; the public
	// endpoint needs chunking.
	if key := os.Getenv("ALCHEMY_API_KEY"); key != "" {
		cfg.RPCURL = alchemyURLBase + key
		cfg.RPCLabel = "Alchemy"
		cfg.Unrestricted = true
	} else {
		cfg.RPCURL = cfg.Network.RPCURL
		cfg.RPCLabel = "public " + cfg.Network.Name + " RPC"
	}
	return cfg
}

// ChainIDBig returns the expected chain id as a *big.Int for signer APIs.
func (n Network) ChainIDBig() *big.Int {
	return new(big.Int).SetUint64(n.ChainID)
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("invalid integer; using default")
		return def
	}
	return n
}

func envUint(k string, def uint64) uint64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("invalid unsigned integer; using default")
		return def
	}
	return n
}

func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("invalid duration; using default")
		return def
	}
	return d
}

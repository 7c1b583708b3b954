// main.go
//
// Entry point for the memory-match server.
// Startup order:
//   1. Load .env and set the log level.
//   2. Load config and the demo card list.
//   3. Dial the chain RPC; build log sources, the leaderboard, and the wallet.
//   4. Open the history database (optional) and start the HTTP server.

package main

import (
	"context"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/memorymatch/internal/chain"
	"github.com/robalobadob/memorymatch/internal/config"
	"github.com/robalobadob/memorymatch/internal/game"
	"github.com/robalobadob/memorymatch/internal/httpserver"
	"github.com/robalobadob/memorymatch/internal/images"
	"github.com/robalobadob/memorymatch/internal/leaderboard"
	"github.com/robalobadob/memorymatch/internal/score"
	"github.com/robalobadob/memorymatch/internal/session"
	"github.com/robalobadob/memorymatch/internal/store"
	"github.com/robalobadob/memorymatch/internal/wallet"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	if err := images.Init(cfg.DemoCardsFile); err != nil {
		log.Fatal().Err(err).Msg("failed to load demo cards")
	}

	eth, err := dialChain(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("rpc", cfg.RPCLabel).Msg("failed to dial chain RPC")
	}
	defer eth.Close()

	board := leaderboard.NewService(leaderboard.Options{
		Contract:    cfg.Contract,
		DeployBlock: cfg.DeployBlock,
		TopN:        cfg.LeaderboardSize,
		CacheTTL:    cfg.LeaderboardCacheTTL,
		Logger:      log.With().Str("component", "leaderboard").Logger(),
	}, logSources(cfg, eth)...)

	recorder := score.NewRecorder(score.Options{
		Contract: cfg.Contract,
		Network:  cfg.Network,
		Backend:  eth,
		Logger:   log.With().Str("component", "score").Logger(),
	})
	if !cfg.ContractConfigured() {
		log.Warn().Msg("CONTRACT_ADDRESS not set; scores will be skipped")
	}

	deps := session.Deps{
		Engine:        game.New(game.DefaultRules),
		Recorder:      recorder,
		Wallet:        openWallet(cfg, eth),
		Secret:        []byte(cfg.JWTSecret),
		RecordTimeout: cfg.RecordTimeout,
		Logger:        log.With().Str("component", "session").Logger(),
	}
	if cfg.AssetAPIURL != "" {
		deps.Source = images.NewHTTPSource(cfg.AssetAPIURL, cfg.RPCTimeout)
	}

	var history httpserver.History
	if cfg.DBPath != "" {
		db, err := store.OpenSQLite(cfg.DBPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open database")
		}
		defer db.Close()
		deps.History = db
		history = db
	}

	m := session.NewManager(deps)
	srv := httpserver.New(httpserver.Options{
		ClientOrigin: cfg.ClientOrigin,
		JWTSecret:    cfg.JWTSecret,
		SessionTTL:   cfg.SessionTTL,
		SecureCookie: cfg.Production,
	}, m, store.NewMemoryStore[*session.Session](cfg.SessionTTL), board, history)

	log.Info().
		Str("port", cfg.Port).
		Str("rpc", cfg.RPCLabel).
		Bool("unrestrictedLogs", cfg.Unrestricted).
		Str("contract", cfg.Contract.Hex()).
		Msg("starting memorymatch server")
	if err := srv.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

// dialChain connects to the read RPC. The HTTP client timeout is the only
// bound on a log fetch.
func dialChain(cfg config.Config) (*ethclient.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RPCTimeout)
	defer cancel()
	c, err := rpc.DialOptions(ctx, cfg.RPCURL, rpc.WithHTTPClient(&http.Client{Timeout: cfg.RPCTimeout}))
	if err != nil {
		return nil, err
	}
	return ethclient.NewClient(c), nil
}

// logSources lists leaderboard log sources in fallback order: the RPC
// fetcher first, then the explorer API when configured.
func logSources(cfg config.Config, eth *ethclient.Client) []chain.LogSource {
	sources := []chain.LogSource{
		chain.NewFetcher(eth, cfg.RPCLabel, cfg.Unrestricted, cfg.LogChunkSize, cfg.LogParallelBatch),
	}
	if cfg.ExplorerAPIURL != "" {
		sources = append(sources, chain.NewExplorer(cfg.ExplorerAPIURL, cfg.ExplorerAPIKey, cfg.RPCTimeout))
	}
	return sources
}

// openWallet builds the signer named by WALLET_KIND. A misconfigured wallet
// is logged and treated as absent so play continues without recording.
func openWallet(cfg config.Config, eth *ethclient.Client) score.Wallet {
	kind, err := wallet.ParseKind(cfg.WalletKind)
	if err != nil {
		log.Error().Err(err).Msg("wallet disabled")
		return nil
	}

	switch kind {
	case "":
		log.Info().Msg("no wallet configured")
		return nil
	case wallet.KindKey:
		kw, err := wallet.NewKeyWallet(cfg.WalletPrivateKey, eth)
		if err != nil {
			log.Error().Err(err).Msg("wallet disabled: bad WALLET_PRIVATE_KEY")
			return nil
		}
		log.Info().Str("address", kw.Address().Hex()).Msg("key wallet ready")
		return kw
	default:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		rw, err := wallet.DialRPCWallet(ctx, cfg.WalletRPCURL, kind)
		if err != nil {
			log.Error().Err(err).Str("kind", string(kind)).Msg("wallet disabled: bridge unavailable")
			return nil
		}
		log.Info().Str("address", rw.Address().Hex()).Str("kind", string(kind)).Msg("wallet bridge ready")
		return rw
	}
}

// Command spotify-mirror runs the Barkada backend API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/barkadahq/spotify-mirror/internal/auth"
	"github.com/barkadahq/spotify-mirror/internal/barkada"
	"github.com/barkadahq/spotify-mirror/internal/config"
	"github.com/barkadahq/spotify-mirror/internal/db"
	"github.com/barkadahq/spotify-mirror/internal/groups"
	"github.com/barkadahq/spotify-mirror/internal/logger"
	"github.com/barkadahq/spotify-mirror/internal/session"
	"github.com/barkadahq/spotify-mirror/internal/spotify"
	"github.com/barkadahq/spotify-mirror/internal/token"
	"github.com/barkadahq/spotify-mirror/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config.yaml (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	if err := db.Migrate(cfg.Database.Postgres.URL()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	database, err := db.New(ctx, cfg.Database.Postgres.URL())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	var store session.Store
	if cfg.Database.Redis.Address != "" {
		client := session.NewRedisClient(cfg.Database.Redis.Address, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		store = session.NewRedisStore(client, cfg.Session.TTL)
		log.Info("using redis session store", zap.String("addr", cfg.Database.Redis.Address))
	} else {
		store = session.NewMemoryStore(cfg.Session.TTL)
		log.Warn("using in-memory session store; sessions will not survive restarts")
	}

	spotifyClient := spotify.NewClient()
	exchanger := auth.NewSpotifyExchanger(cfg.Spotify.ClientID, cfg.Spotify.ClientSecret, cfg.Spotify.RedirectURI)
	tokens := token.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	authService := auth.NewService(
		store,
		database.Users(),
		spotifyClient,
		exchanger,
		tokens,
		cfg.Auth.StrictState,
		log.Named("auth"),
	)
	groupService := groups.NewService(database.Groups(), database.Users(), log.Named("groups"))
	analyzer := barkada.NewAnalyzer(spotifyClient, log.Named("barkada"))

	server := web.NewServer(web.ServerConfig{
		Addr:        cfg.Server.Addr,
		FrontendURL: cfg.Server.FrontendURL,
		SessionTTL:  cfg.Session.TTL,
		Auth:        authService,
		Groups:      groupService,
		Analyzer:    analyzer,
		Spotify:     spotifyClient,
		Tokens:      tokens,
		Logger:      log.Named("web"),
	})

	return server.Run()
}

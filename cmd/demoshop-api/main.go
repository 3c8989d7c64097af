package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/identinet/demoshop/pkg/api"
	"github.com/identinet/demoshop/pkg/broker"
	"github.com/identinet/demoshop/pkg/config"
	"github.com/identinet/demoshop/pkg/nonce"
	"github.com/identinet/demoshop/pkg/prettylog"
	"github.com/identinet/demoshop/pkg/vds"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/valkey-io/valkey-go"
)

// nonces must outlive the channel timeout, otherwise a slow but legitimate
// completion could not redeem its nonce anymore
const defaultNonceExpirySeconds = 180

func main() {
	godotenv.Load()

	if os.Getenv("PRETTY_LOGS") != "false" {
		logger := slog.New(prettylog.NewHandler(slog.LevelDebug))
		slog.SetDefault(logger)
	} else {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	configPath := config.GetEnv("DEMOSHOP_CONFIG_PATH", "config/demoshop.yaml")
	slog.Info("Loading config", "config_path", configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}
	if cfg.NonceExpirySeconds <= 0 {
		cfg.NonceExpirySeconds = defaultNonceExpirySeconds
	}

	vdsClient, err := vds.NewClient(vds.Config{
		BaseURL: cfg.DataService.BaseURL,
		APIKey:  cfg.DataService.APIKey,
	})
	if err != nil {
		log.Fatal(err)
	}

	var store broker.SessionStore
	var nonces nonce.Service
	if cfg.Valkey.Address != "" {
		valkeyClient, err := valkey.NewClient(valkey.ClientOption{
			InitAddress: []string{cfg.Valkey.Address},
		})
		if err != nil {
			log.Fatal(err)
		}
		store = broker.NewValkeySessionStore(valkeyClient, cfg.Valkey.SessionTTLSeconds)
		nonces, err = nonce.NewValkeyNonceService(valkeyClient, nonce.Options{ExpirySeconds: cfg.NonceExpirySeconds})
		if err != nil {
			log.Fatal(err)
		}
		slog.Info("Using Valkey session store", "address", cfg.Valkey.Address)
	} else {
		store = broker.NewMemorySessionStore()
		nonces, err = nonce.NewHashicorpNonceService(nonce.Options{ExpirySeconds: cfg.NonceExpirySeconds})
		if err != nil {
			log.Fatal(err)
		}
		slog.Info("Using in-memory session store, deploy a single instance only")
	}

	sessionBroker := broker.New(store, nonces, vdsClient, broker.Config{
		HeartbeatSeconds: cfg.Broker.HeartbeatSeconds,
		TimeoutSeconds:   cfg.Broker.TimeoutSeconds,
	})

	root := echo.New()
	root.HideBanner = true
	root.Use(middleware.Recover())

	sessionAPI := api.New(sessionBroker)
	sessionAPI.MountRoutes(root.Group("/api"))

	slog.Info("Starting demo shop API", "address", cfg.Address)
	root.Logger.Fatal(root.Start(cfg.Address))
}

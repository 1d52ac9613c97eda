package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "warden",
		Usage:   "automod daemon (keeps communities habitable)",
		Version: versioninfo.Short(),
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "gateway-host",
			Usage:   "scheme, hostname, and port of the platform gateway to subscribe to",
			Value:   "wss://gateway.haven.chat",
			EnvVars: []string{"WARDEN_GATEWAY_HOST"},
		},
		&cli.StringFlag{
			Name:    "platform-api-host",
			Usage:   "scheme, hostname, and port of the platform REST API",
			Value:   "https://api.haven.chat",
			EnvVars: []string{"WARDEN_PLATFORM_API_HOST"},
		},
		&cli.StringFlag{
			Name:     "bot-token",
			Usage:    "platform API auth token for the moderation bot",
			Required: true,
			EnvVars:  []string{"WARDEN_BOT_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "database-url",
			Value:   "sqlite://data/warden/warden.sqlite",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.IntFlag{
			Name:    "max-db-connections",
			EnvVars: []string{"MAX_DB_CONNECTIONS"},
			Value:   40,
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL; omit to keep counters, caches, and windows in process memory",
			EnvVars: []string{"WARDEN_REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for HTTP APIs",
			Value:   ":2470",
			EnvVars: []string{"WARDEN_BIND"},
		},
		&cli.StringFlag{
			Name:    "classifier-host",
			Usage:   "scheme, hostname, and port of the toxicity classifier; omit to disable the toxicity rule",
			EnvVars: []string{"WARDEN_CLASSIFIER_HOST"},
		},
		&cli.StringFlag{
			Name:    "classifier-api-key",
			EnvVars: []string{"WARDEN_CLASSIFIER_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "sets-file-json",
			Usage:   "path to JSON file holding the global word/domain sets (mem setstore only)",
			EnvVars: []string{"WARDEN_SETS_FILE_JSON"},
		},
		&cli.StringFlag{
			Name:    "slack-webhook-url",
			Usage:   "incoming webhook for moderator notifications of applied actions",
			EnvVars: []string{"WARDEN_SLACK_WEBHOOK_URL"},
		},
		&cli.IntFlag{
			Name:    "workers",
			Usage:   "max gateway events processed concurrently",
			Value:   32,
			EnvVars: []string{"WARDEN_WORKERS"},
		},
		&cli.DurationFlag{
			Name:    "event-timeout",
			Usage:   "per-event processing deadline",
			Value:   30 * time.Second,
			EnvVars: []string{"WARDEN_EVENT_TIMEOUT"},
		},
	},
	Action: func(cctx *cli.Context) error {
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		shutdownOTEL, err := configOTEL("warden")
		if err != nil {
			return err
		}
		defer shutdownOTEL()

		db, err := setupDatabase(cctx.String("database-url"), cctx.Int("max-db-connections"))
		if err != nil {
			return err
		}

		srv, err := NewServer(
			db,
			Config{
				GatewayHost:     cctx.String("gateway-host"),
				PlatformAPIHost: cctx.String("platform-api-host"),
				BotToken:        cctx.String("bot-token"),
				RedisURL:        cctx.String("redis-url"),
				ClassifierHost:  cctx.String("classifier-host"),
				ClassifierKey:   cctx.String("classifier-api-key"),
				SetsFileJSON:    cctx.String("sets-file-json"),
				SlackWebhookURL: cctx.String("slack-webhook-url"),
				Workers:         cctx.Int("workers"),
				EventTimeout:    cctx.Duration("event-timeout"),
				Logger:          logger,
			},
		)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		go func() {
			if err := srv.RunAPI(cctx.String("bind")); err != nil {
				slog.Error("failed to start API endpoint", "error", err)
				panic(fmt.Errorf("failed to start API endpoint: %w", err))
			}
		}()
		go srv.RunPersistCursor(ctx)
		go srv.RunLedgerPrune(ctx)

		if err := srv.RunConsumer(ctx); err != nil {
			return fmt.Errorf("failed to run automod service: %w", err)
		}
		return nil
	},
}

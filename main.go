package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mdiboard/internal/assets"
	"mdiboard/internal/bot"
	"mdiboard/internal/config"
	"mdiboard/internal/events"
	"mdiboard/internal/roster"
	"mdiboard/internal/scoreboard"
	"mdiboard/internal/signups"
	"mdiboard/internal/status"
	"mdiboard/internal/wowapi"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 15 * time.Second

func main() {

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load configuration")
	}

	// Logging
	zerolog.SetGlobalLevel(cfg.Level())
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Info().Msg("Starting mdiboard")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Teams drawn on the scoreboard
	teams := roster.Default()
	if cfg.RosterFile != "" {
		if teams, err = roster.Load(cfg.RosterFile); err != nil {
			log.Fatal().Err(err).Str("file", cfg.RosterFile).Msg("Could not load roster")
		}
	}

	// Scoreboard template and font
	var source assets.Source = assets.Dir(cfg.AssetsDir)
	if cfg.AssetsBucket != "" {
		bucket, err := assets.NewBucket(ctx, assets.BucketConfig{
			Bucket:          cfg.AssetsBucket,
			Prefix:          cfg.AssetsPrefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Could not create asset bucket client")
		}
		source = bucket
	}
	background, err := source.Load(ctx, assets.BACKGROUND)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load scoreboard template")
	}
	font, err := assets.LoadOptional(ctx, source, assets.FONT)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load scoreboard font")
	}

	// Game data
	api := wowapi.NewWowApi(ctx, wowapi.Options{
		Region:               cfg.Region,
		DefaultRealm:         cfg.DefaultRealm,
		UserAgent:            cfg.UserAgent,
		RaiderIOKey:          cfg.RaiderIOKey,
		BlizzardClientID:     cfg.BlizzardClientID,
		BlizzardClientSecret: cfg.BlizzardClientSecret,
	})
	defer api.Close()

	avatars := scoreboard.NewHTTPAvatars(nil, cfg.UserAgent)
	defer avatars.Close()
	renderer, err := scoreboard.NewRenderer(background, font, avatars)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not create scoreboard renderer")
	}

	// Storage
	database, err := bot.CreateDatabaseBot(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("Could not open database")
	}
	defer database.Close()

	// Events go to memory and, when configured, to NATS
	eventLog := events.NewLog(cfg.EventLog)
	recorder := events.Multi{eventLog}
	if cfg.NatsURL != "" {
		publisher, err := events.ConnectNATS(cfg.NatsURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Could not connect to NATS")
		}
		defer publisher.Close()
		recorder = append(recorder, publisher)
	}

	// Create bot
	discordBot, err := bot.CreateBot(bot.Options{
		Token:              cfg.DiscordToken,
		Database:           database,
		Aggregator:         roster.NewAggregator(api),
		Renderer:           renderer,
		Roster:             teams,
		Schedule:           signups.Schedule{DraftAt: cfg.DraftTime(), StartAt: cfg.StartTime()},
		FirstDay:           cfg.FirstDayTime(),
		ScoreboardInterval: cfg.ScoreboardInterval,
		SignupsInterval:    cfg.SignupsInterval,
		Recorder:           recorder,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Could not create discord bot")
	}

	var statusServer *status.Server
	if cfg.StatusAddr != "" {
		statusServer = status.NewServer(cfg.StatusAddr, eventLog)
		statusServer.Start()
	}

	// Run bot
	if err := discordBot.Run(); err != nil {
		log.Error().Err(err).Msg("Could not run discord bot")
		stop()
	}

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	// The deferred closes run after this, in reverse order
	discordBot.Stop()
	if statusServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := statusServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Could not shut the status server down cleanly")
		}
	}
}

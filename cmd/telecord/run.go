// Copyright 2024-2026 Aiku AI

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aiku/telecord/pkg/bridge"
	"github.com/aiku/telecord/pkg/config"
	"github.com/aiku/telecord/pkg/discord"
	"github.com/aiku/telecord/pkg/messagemap"
	"github.com/aiku/telecord/pkg/relay"
	"github.com/aiku/telecord/pkg/telegram"
)

func newExampleConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "example-config",
		Short: "Print an example config file",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprint(cmd.OutOrStdout(), config.ExampleConfig)
		},
	}
}

func run(configPath string, debug bool) error {
	// Secrets may live in a .env file next to the binary; a missing file
	// is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
	if cfg.Debug || debug {
		log = log.Level(zerolog.DebugLevel)
	} else {
		log = log.Level(zerolog.InfoLevel)
	}

	store, err := messagemap.New(
		filepath.Join(cfg.DataDir, "messagemap.db"),
		log.With().Str("component", "messagemap").Logger(),
	)
	if err != nil {
		return err
	}
	defer store.Close()

	bridges := bridge.NewMap(cfg.Bridges)
	settings := relay.Settings{
		UseFirstNameInsteadOfUsername: cfg.Telegram.UseFirstNameInsteadOfUsername,
		SendEmojiWithStickers:         cfg.Telegram.SendEmojiWithStickers,
		ColonAfterSenderName:          cfg.Telegram.ColonAfterSenderName,
		UseNickname:                   cfg.Discord.UseNickname,
		DisplayReplies:                relay.ReplyDisplay(cfg.Discord.DisplayTelegramReplies),
		ReplyLength:                   cfg.Discord.ReplyLength,
		MaxReplyLines:                 cfg.Discord.MaxReplyLines,
	}

	tg, err := telegram.New(cfg.Telegram.Token, log.With().Str("component", "telegram").Logger())
	if err != nil {
		return err
	}
	dc, err := discord.New(cfg.Discord.Token, log.With().Str("component", "discord").Logger())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	botID, err := tg.BotID(ctx)
	if err != nil {
		return err
	}

	pipeline := relay.NewPipeline(botID, settings, bridges, tg, tg, dc,
		log.With().Str("component", "pipeline").Logger())
	tgHandler := relay.NewTelegramHandler(pipeline, dc, store, bridges, settings,
		log.With().Str("component", "telegram2discord").Logger())

	dcUserID, err := dc.Open()
	if err != nil {
		return err
	}
	defer dc.Close()

	dcHandler := relay.NewDiscordHandler(dcUserID, tg, dc, store, bridges, settings,
		log.With().Str("component", "discord2telegram").Logger())
	dc.Attach(dcHandler)

	log.Info().Int("bridges", len(bridges.Bridges())).Msg("telecord is now relaying messages")

	if err := tg.Listen(ctx, tgHandler.HandleUpdate); err != nil && ctx.Err() == nil {
		return err
	}

	// Drain in-flight events before shutting down.
	tgHandler.Wait()
	dcHandler.Wait()
	log.Info().Msg("telecord shut down cleanly")
	return nil
}

// Copyright 2024-2026 Aiku AI

// Package config loads and validates the telecord configuration from a
// YAML file, with environment variable overrides for secrets.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/aiku/telecord/pkg/bridge"
)

//go:embed example-config.yaml
var ExampleConfig string

// ReplyDisplayMode selects how Telegram replies are shown on Discord.
type ReplyDisplayMode string

const (
	ReplyDisplayInline ReplyDisplayMode = "inline"
	ReplyDisplayEmbed  ReplyDisplayMode = "embed"
	ReplyDisplayIgnore ReplyDisplayMode = "ignore"
)

// TelegramConfig holds the Telegram side of the global settings.
type TelegramConfig struct {
	Token                         string `yaml:"token" env:"TELECORD_TELEGRAM_TOKEN"`
	UseFirstNameInsteadOfUsername bool   `yaml:"use_first_name_instead_of_username" env:"-"`
	ColonAfterSenderName          bool   `yaml:"colon_after_sender_name" env:"-"`
	SendEmojiWithStickers         bool   `yaml:"send_emoji_with_stickers" env:"-"`
}

// DiscordConfig holds the Discord side of the global settings.
type DiscordConfig struct {
	Token                  string           `yaml:"token" env:"TELECORD_DISCORD_TOKEN"`
	UseNickname            bool             `yaml:"use_nickname" env:"-"`
	DisplayTelegramReplies ReplyDisplayMode `yaml:"display_telegram_replies" env:"-"`
	ReplyLength            int              `yaml:"reply_length" env:"-"`
	MaxReplyLines          int              `yaml:"max_reply_lines" env:"-"`
}

// Config is the full telecord configuration.
type Config struct {
	Telegram TelegramConfig  `yaml:"telegram"`
	Discord  DiscordConfig   `yaml:"discord"`
	DataDir  string          `yaml:"data_dir" env:"TELECORD_DATA_DIR"`
	Debug    bool            `yaml:"debug" env:"TELECORD_DEBUG"`
	Bridges  []bridge.Bridge `yaml:"bridges"`
}

func defaults() Config {
	return Config{
		Telegram: TelegramConfig{
			SendEmojiWithStickers: true,
		},
		Discord: DiscordConfig{
			DisplayTelegramReplies: ReplyDisplayInline,
			ReplyLength:            100,
			MaxReplyLines:          1,
		},
		DataDir: "data",
	}
}

// Load reads the YAML file at path, applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a YAML config document, applies environment overrides and
// validates the result.
func Parse(raw []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required (or set TELECORD_TELEGRAM_TOKEN)")
	}
	if c.Discord.Token == "" {
		return fmt.Errorf("discord.token is required (or set TELECORD_DISCORD_TOKEN)")
	}
	switch c.Discord.DisplayTelegramReplies {
	case ReplyDisplayInline, ReplyDisplayEmbed, ReplyDisplayIgnore:
	default:
		return fmt.Errorf("discord.display_telegram_replies must be inline, embed or ignore, got %q", c.Discord.DisplayTelegramReplies)
	}
	if c.Discord.ReplyLength <= 0 {
		return fmt.Errorf("discord.reply_length must be positive, got %d", c.Discord.ReplyLength)
	}
	if c.Discord.MaxReplyLines <= 0 {
		return fmt.Errorf("discord.max_reply_lines must be positive, got %d", c.Discord.MaxReplyLines)
	}
	if len(c.Bridges) == 0 {
		return fmt.Errorf("at least one bridge must be configured")
	}

	names := make(map[string]struct{}, len(c.Bridges))
	for i, b := range c.Bridges {
		if b.Name == "" {
			return fmt.Errorf("bridges[%d]: name is required", i)
		}
		if _, dup := names[b.Name]; dup {
			return fmt.Errorf("bridges[%d]: duplicate bridge name %q", i, b.Name)
		}
		names[b.Name] = struct{}{}
		switch b.Direction {
		case bridge.DirectionBoth, bridge.DirectionTelegramToDiscord, bridge.DirectionDiscordToTelegram:
		default:
			return fmt.Errorf("bridge %q: direction must be both, t2d or d2t, got %q", b.Name, b.Direction)
		}
		if b.Telegram.ChatID == 0 {
			return fmt.Errorf("bridge %q: telegram.chat_id is required", b.Name)
		}
		if b.Discord.ChannelID == "" {
			return fmt.Errorf("bridge %q: discord.channel_id is required", b.Name)
		}
	}
	return nil
}

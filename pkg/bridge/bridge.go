// Copyright 2024-2026 Aiku AI

// Package bridge defines the configured pairings between Telegram chats
// and Discord channels, and the registry used to resolve which bridges a
// platform event applies to.
package bridge

// Direction restricts which way messages flow across a bridge.
type Direction string

const (
	DirectionBoth              Direction = "both"
	DirectionTelegramToDiscord Direction = "t2d"
	DirectionDiscordToTelegram Direction = "d2t"
)

// TelegramSide holds the Telegram half of a bridge and its relay toggles.
//
// CrossDeleteOnDiscord is accepted for config compatibility but inert:
// the Telegram Bot API emits no delete updates, so there is no event to
// act on.
type TelegramSide struct {
	ChatID               int64 `yaml:"chat_id"`
	RelayCommands        bool  `yaml:"relay_commands"`
	RelayJoinMessages    bool  `yaml:"relay_join_messages"`
	RelayLeaveMessages   bool  `yaml:"relay_leave_messages"`
	CrossDeleteOnDiscord bool  `yaml:"cross_delete_on_discord"`
	SendUsernames        bool  `yaml:"send_usernames"`
}

// DiscordSide holds the Discord half of a bridge and its relay toggles.
type DiscordSide struct {
	ServerID              string `yaml:"server_id"`
	ChannelID             string `yaml:"channel_id"`
	RelayJoinMessages     bool   `yaml:"relay_join_messages"`
	RelayLeaveMessages    bool   `yaml:"relay_leave_messages"`
	CrossDeleteOnTelegram bool   `yaml:"cross_delete_on_telegram"`
	SendUsernames         bool   `yaml:"send_usernames"`
}

// Bridge is one configured pairing between a Telegram chat and a Discord
// channel. It is immutable after configuration is loaded.
type Bridge struct {
	Name      string       `yaml:"name"`
	Direction Direction    `yaml:"direction"`
	Telegram  TelegramSide `yaml:"telegram"`
	Discord   DiscordSide  `yaml:"discord"`
}

// RelaysTelegramToDiscord reports whether messages originating in Telegram
// cross this bridge.
func (b Bridge) RelaysTelegramToDiscord() bool {
	return b.Direction == DirectionBoth || b.Direction == DirectionTelegramToDiscord
}

// RelaysDiscordToTelegram reports whether messages originating in Discord
// cross this bridge.
func (b Bridge) RelaysDiscordToTelegram() bool {
	return b.Direction == DirectionBoth || b.Direction == DirectionDiscordToTelegram
}

// Copyright 2024-2026 Aiku AI

package messagemap

// Direction identifies which way a relay crossed the bridge.
type Direction string

const (
	// TelegramToDiscord marks entries for messages that originated in Telegram.
	TelegramToDiscord Direction = "t2d"
	// DiscordToTelegram marks entries for messages that originated in Discord.
	DiscordToTelegram Direction = "d2t"
)

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	if d == TelegramToDiscord {
		return DiscordToTelegram
	}
	return TelegramToDiscord
}

// String implements fmt.Stringer.
func (d Direction) String() string {
	return string(d)
}

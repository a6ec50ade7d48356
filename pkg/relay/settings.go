// Copyright 2024-2026 Aiku AI

package relay

// ReplyDisplay selects how replied-to Telegram text is shown on Discord.
type ReplyDisplay string

const (
	ReplyDisplayInline ReplyDisplay = "inline"
	ReplyDisplayEmbed  ReplyDisplay = "embed"
	ReplyDisplayIgnore ReplyDisplay = "ignore"
)

// Settings holds the global (non-per-bridge) relay behavior. The
// orchestrators receive it explicitly at construction; there is no
// ambient configuration state.
type Settings struct {
	UseFirstNameInsteadOfUsername bool
	SendEmojiWithStickers         bool
	ColonAfterSenderName          bool
	UseNickname                   bool

	DisplayReplies ReplyDisplay
	ReplyLength    int
	MaxReplyLines  int
}

// DefaultSettings returns the settings used when a field is not
// configured.
func DefaultSettings() Settings {
	return Settings{
		SendEmojiWithStickers: true,
		DisplayReplies:        ReplyDisplayInline,
		ReplyLength:           100,
		MaxReplyLines:         1,
	}
}

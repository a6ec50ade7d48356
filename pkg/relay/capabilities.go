// Copyright 2024-2026 Aiku AI

package relay

import (
	"context"
	"io"

	"github.com/aiku/telecord/pkg/messagemap"
)

// FileAttachment is a named byte stream attached to an outbound message.
type FileAttachment struct {
	Name   string
	Reader io.Reader
}

// DiscordMessage is the outbound payload for one Discord send.
type DiscordMessage struct {
	Content string
	// EmbedDescription, when non-empty, is attached as a rich embed
	// (used for embed-mode reply quoting).
	EmbedDescription string
	File             *FileAttachment
}

// DiscordSender sends, edits and deletes messages on Discord. Implemented
// by the discord adapter; faked in tests.
type DiscordSender interface {
	SendMessage(ctx context.Context, channelID string, msg DiscordMessage) (messageID string, err error)
	EditMessage(ctx context.Context, channelID, messageID, content string) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
}

// TelegramSender sends, edits and deletes messages on Telegram. Text is
// Telegram-flavored HTML.
type TelegramSender interface {
	SendMessage(ctx context.Context, chatID int64, html string, disablePreview bool) (messageID int, err error)
	EditMessage(ctx context.Context, chatID int64, messageID int, html string) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// NoticeSender delivers a plain one-shot notice to a Telegram chat.
type NoticeSender interface {
	SendNotice(ctx context.Context, chatID int64, text string) error
}

// DiscordNoticeSender delivers a plain reply notice to a Discord channel,
// outside the normal relay flow (command replies, unbridged-channel hints).
type DiscordNoticeSender interface {
	SendChannelNotice(ctx context.Context, channelID, text string) error
}

// FileStreamOpener opens a byte stream for a remote Telegram file.
// Failures are reported as a FetchError.
type FileStreamOpener interface {
	OpenFileStream(ctx context.Context, fileID string) (io.ReadCloser, error)
}

// MentionResolver turns a display name into a platform mention for a
// Discord channel. When the name cannot be resolved it is returned as-is.
type MentionResolver interface {
	ResolveMention(channelID, displayName string) string
}

// Mapper is the correlation store consumed by the orchestrators.
// Satisfied by *messagemap.Store.
type Mapper interface {
	Insert(ctx context.Context, direction messagemap.Direction, bridge, fromID, toID string) error
	GetCorresponding(ctx context.Context, direction messagemap.Direction, bridge, fromID string) ([]string, error)
	GetCorrespondingReverse(ctx context.Context, direction messagemap.Direction, bridge, toID string) ([]string, error)
}

// Copyright 2024-2026 Aiku AI

package relay

import (
	"io"

	"github.com/mymmrac/telego"

	"github.com/aiku/telecord/pkg/bridge"
)

// EventKind is what kind of inbound Telegram event is being processed.
type EventKind int

const (
	EventNewMessage EventKind = iota
	EventEditedMessage
)

// FileKind categorizes a Telegram media attachment.
type FileKind string

const (
	FileAudio    FileKind = "audio"
	FileDocument FileKind = "document"
	FilePhoto    FileKind = "photo"
	FileSticker  FileKind = "sticker"
	FileVideo    FileKind = "video"
	FileVoice    FileKind = "voice"
)

// FileDescriptor identifies a remote Telegram file and the filename its
// relayed copy should carry.
type FileDescriptor struct {
	Kind FileKind
	ID   string
	Name string
}

// ReplyRef describes the message an inbound Telegram message replies to.
type ReplyRef struct {
	Message *telego.Message
	// IsReplyToSelf is set when the replied-to message was posted by the
	// bridge itself, i.e. it is a relayed Discord copy. The pipeline then
	// recovers the original Discord sender from the copy's header line.
	IsReplyToSelf bool
	OriginalFrom  Sender
	// EmbeddedSender is the Discord username recovered from the first
	// line of a relayed copy. Only set when IsReplyToSelf is true.
	EmbeddedSender string
	Text           TextObject
}

// PreparedPayload is one bridge's fully assembled outbound message.
type PreparedPayload struct {
	Bridge bridge.Bridge
	// Header is plain text; destination markup is applied when sending.
	Header string
	Text   string
	// EmbedDescription carries the quoted reply fragment in embed mode.
	EmbedDescription string
	Attachment       *FileAttachment
}

// Context is the per-event accumulator threaded through the pipeline.
// Each stage fills in another part; the final stage produces one
// PreparedPayload per surviving bridge.
type Context struct {
	// EventID correlates all log lines of one inbound event.
	EventID string
	Kind    EventKind
	Update  telego.Update

	Message *telego.Message
	Bridges []bridge.Bridge

	From        Sender
	ReplyTo     *ReplyRef
	ForwardFrom *Sender

	Text       TextObject
	File       *FileDescriptor
	FileStream io.ReadCloser

	Prepared []PreparedPayload
}

// MessageID returns the message map key for the event's source message.
func (rc *Context) MessageID() string {
	return TelegramMessageID(rc.Message.MessageID)
}

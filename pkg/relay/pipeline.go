// Copyright 2024-2026 Aiku AI

package relay

import (
	"context"
	"fmt"
	"io"
	"mime"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/mymmrac/telego"
	"github.com/rs/zerolog"

	"github.com/aiku/telecord/pkg/bridge"
)

// privateBotNotice is sent, once per chat, when a message arrives from a
// chat no bridge is configured for.
const privateBotNotice = "This bot relays messages between a specific Telegram chat and a " +
	"Discord channel, and this chat is not one of them. If you want a relay " +
	"of your own, please run your own instance."

// stage is one step of the enrichment pipeline. Returning false stops the
// pipeline without error (short-circuit); an error aborts the event.
type stage struct {
	name string
	run  func(ctx context.Context, rc *Context) (bool, error)
}

// Pipeline turns a raw Telegram update into one PreparedPayload per
// applicable bridge. Stages run in a fixed order; each fills in another
// part of the Context.
type Pipeline struct {
	botID    int64
	settings Settings
	bridges  *bridge.Map
	notices  NoticeSender
	files    FileStreamOpener
	mentions MentionResolver
	log      zerolog.Logger

	noticeSent sync.Map // chat id -> struct{}
	stages     []stage
}

// NewPipeline builds the pipeline for the Telegram-to-Discord direction.
// botID is the bridge's own Telegram user id, used to recognize replies to
// relayed copies.
func NewPipeline(botID int64, settings Settings, bridges *bridge.Map, notices NoticeSender, files FileStreamOpener, mentions MentionResolver, log zerolog.Logger) *Pipeline {
	p := &Pipeline{
		botID:    botID,
		settings: settings,
		bridges:  bridges,
		notices:  notices,
		files:    files,
		mentions: mentions,
		log:      log,
	}
	p.stages = []stage{
		{"resolve_message", p.resolveMessage},
		{"resolve_bridges", p.resolveBridges},
		{"filter_bridges", p.filterBridges},
		{"private_bot_notice", p.privateBotNotice},
		{"resolve_sender", p.resolveSender},
		{"resolve_reply", p.resolveReply},
		{"resolve_forward", p.resolveForward},
		{"build_text", p.buildText},
		{"detect_file", p.detectFile},
		{"open_file_stream", p.openFileStream},
		{"prepare_payloads", p.preparePayloads},
	}
	return p
}

// Run executes the pipeline for one update. The returned Context carries
// the prepared payloads; it is never nil, but Prepared is empty when a
// stage short-circuited.
func (p *Pipeline) Run(ctx context.Context, update telego.Update) (*Context, error) {
	rc := &Context{
		EventID: uuid.NewString(),
		Update:  update,
	}
	for _, s := range p.stages {
		cont, err := s.run(ctx, rc)
		if err != nil {
			return rc, fmt.Errorf("pipeline stage %s: %w", s.name, err)
		}
		if !cont {
			p.log.Debug().
				Str("event_id", rc.EventID).
				Str("stage", s.name).
				Msg("Pipeline short-circuited")
			return rc, nil
		}
	}
	return rc, nil
}

// resolveMessage picks the message out of whichever update field is set.
// Exactly one of the four is populated per update.
func (p *Pipeline) resolveMessage(_ context.Context, rc *Context) (bool, error) {
	switch {
	case rc.Update.ChannelPost != nil:
		rc.Message = rc.Update.ChannelPost
		rc.Kind = EventNewMessage
	case rc.Update.EditedChannelPost != nil:
		rc.Message = rc.Update.EditedChannelPost
		rc.Kind = EventEditedMessage
	case rc.Update.Message != nil:
		rc.Message = rc.Update.Message
		rc.Kind = EventNewMessage
	case rc.Update.EditedMessage != nil:
		rc.Message = rc.Update.EditedMessage
		rc.Kind = EventEditedMessage
	default:
		return false, nil
	}
	return true, nil
}

func (p *Pipeline) resolveBridges(_ context.Context, rc *Context) (bool, error) {
	rc.Bridges = p.bridges.FromTelegramChatID(rc.Message.Chat.ID)
	return true, nil
}

// filterBridges drops bridges whose direction excludes Telegram-origin
// messages, and bridges that do not relay bot commands when the message is
// one.
func (p *Pipeline) filterBridges(_ context.Context, rc *Context) (bool, error) {
	isCommand := strings.HasPrefix(rc.Message.Text, "/")

	kept := rc.Bridges[:0:0]
	for _, b := range rc.Bridges {
		if !b.RelaysTelegramToDiscord() {
			continue
		}
		if isCommand && !b.Telegram.RelayCommands {
			continue
		}
		kept = append(kept, b)
	}
	rc.Bridges = kept
	return true, nil
}

// privateBotNotice short-circuits events from unbridged chats, informing
// the sender at most once per chat.
func (p *Pipeline) privateBotNotice(ctx context.Context, rc *Context) (bool, error) {
	if len(rc.Bridges) > 0 {
		return true, nil
	}
	chatID := rc.Message.Chat.ID
	if _, already := p.noticeSent.LoadOrStore(chatID, struct{}{}); !already {
		if err := p.notices.SendNotice(ctx, chatID, privateBotNotice); err != nil {
			p.log.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to send private bot notice")
		}
	}
	return false, nil
}

func (p *Pipeline) resolveSender(_ context.Context, rc *Context) (bool, error) {
	rc.From = senderFromMessage(rc.Message)
	return true, nil
}

// resolveReply fills in the reply linkage. A reply to a message the bridge
// itself posted is a synthetic reply: the replied-to text embeds the
// original Discord sender in its first line, which is stripped and the
// entity offsets rebased.
func (p *Pipeline) resolveReply(_ context.Context, rc *Context) (bool, error) {
	replied := rc.Message.ReplyToMessage
	if replied == nil {
		return true, nil
	}

	ref := &ReplyRef{
		Message:       replied,
		IsReplyToSelf: replied.From != nil && replied.From.ID == p.botID,
		OriginalFrom:  senderFromMessage(replied),
	}
	_, ref.Text = resolveBody(replied, p.settings.SendEmojiWithStickers)

	if ref.IsReplyToSelf {
		ref.EmbeddedSender, ref.Text = unwrapSyntheticReply(ref.Text)
	}
	if ref.Text.Raw == "" {
		ref.Text.Raw = noTextPlaceholder
	}

	rc.ReplyTo = ref
	return true, nil
}

// resolveForward resolves the original author of a forwarded message, who
// may be a user or a chat/channel.
func (p *Pipeline) resolveForward(_ context.Context, rc *Context) (bool, error) {
	switch origin := rc.Message.ForwardOrigin.(type) {
	case nil:
	case *telego.MessageOriginUser:
		from := senderFromUser(origin.SenderUser)
		rc.ForwardFrom = &from
	case *telego.MessageOriginHiddenUser:
		rc.ForwardFrom = &Sender{FirstName: origin.SenderUserName}
	case *telego.MessageOriginChat:
		from := senderFromChat(origin.SenderChat)
		rc.ForwardFrom = &from
	case *telego.MessageOriginChannel:
		from := senderFromChat(origin.Chat)
		rc.ForwardFrom = &from
	}
	return true, nil
}

func (p *Pipeline) buildText(_ context.Context, rc *Context) (bool, error) {
	_, rc.Text = resolveBody(rc.Message, p.settings.SendEmojiWithStickers)
	return true, nil
}

// detectFile finds a media attachment on the message and synthesizes a
// filename for the kinds Telegram does not name.
func (p *Pipeline) detectFile(_ context.Context, rc *Context) (bool, error) {
	if rc.Kind == EventEditedMessage {
		// Edits only propagate text; the original attachment stays.
		return true, nil
	}

	msg := rc.Message
	switch {
	case msg.Audio != nil:
		name := msg.Audio.Title
		if name == "" {
			name = "audio"
		}
		rc.File = &FileDescriptor{Kind: FileAudio, ID: msg.Audio.FileID, Name: name + extensionFor(msg.Audio.MimeType)}
	case msg.Document != nil:
		name := msg.Document.FileName
		if name == "" {
			name = "document" + extensionFor(msg.Document.MimeType)
		}
		rc.File = &FileDescriptor{Kind: FileDocument, ID: msg.Document.FileID, Name: name}
	case len(msg.Photo) > 0:
		// Telegram lists size variants smallest first; relay the biggest.
		// The destination gets a jpg no matter what was uploaded.
		photo := msg.Photo[len(msg.Photo)-1]
		rc.File = &FileDescriptor{Kind: FilePhoto, ID: photo.FileID, Name: "photo.jpg"}
	case msg.Sticker != nil:
		fileID := msg.Sticker.FileID
		if msg.Sticker.IsAnimated && msg.Sticker.Thumbnail != nil {
			// Animated stickers cannot be displayed; use the static preview.
			fileID = msg.Sticker.Thumbnail.FileID
		}
		rc.File = &FileDescriptor{Kind: FileSticker, ID: fileID, Name: "sticker.webp"}
	case msg.Video != nil:
		rc.File = &FileDescriptor{Kind: FileVideo, ID: msg.Video.FileID, Name: "video" + extensionFor(msg.Video.MimeType)}
	case msg.Voice != nil:
		rc.File = &FileDescriptor{Kind: FileVoice, ID: msg.Voice.FileID, Name: "voice" + extensionFor(msg.Voice.MimeType)}
	}
	return true, nil
}

// openFileStream acquires the attachment bytes. A fetch failure drops the
// attachment but the event continues; the text is still relayed.
func (p *Pipeline) openFileStream(ctx context.Context, rc *Context) (bool, error) {
	if rc.File == nil {
		return true, nil
	}
	stream, err := p.files.OpenFileStream(ctx, rc.File.ID)
	if err != nil {
		p.log.Warn().Err(err).
			Str("event_id", rc.EventID).
			Str("file_id", rc.File.ID).
			Msg("Failed to open file stream, relaying without attachment")
		rc.File = nil
		return true, nil
	}
	rc.FileStream = stream
	return true, nil
}

// preparePayloads assembles one outbound payload per surviving bridge:
// header, rendered body, optional reply fragment and attachment.
func (p *Pipeline) preparePayloads(_ context.Context, rc *Context) (bool, error) {
	attachments, err := p.splitAttachment(rc)
	if err != nil {
		return false, err
	}

	rc.Prepared = make([]PreparedPayload, 0, len(rc.Bridges))
	for i, b := range rc.Bridges {
		mentionFn := p.mentionFunc(b.Discord.ChannelID)

		payload := PreparedPayload{
			Bridge:     b,
			Header:     p.makeHeader(rc, b),
			Text:       Render(rc.Text, mentionFn),
			Attachment: attachments[i],
		}
		if rc.ReplyTo != nil && p.settings.DisplayReplies == ReplyDisplayEmbed {
			quoted := Render(rc.ReplyTo.Text, mentionFn)
			payload.EmbedDescription = truncateRunes(quoted, discordMaxEmbedLength)
		}
		rc.Prepared = append(rc.Prepared, payload)
	}
	return true, nil
}

// splitAttachment hands the single file stream to each payload. With more
// than one destination bridge the stream has to be buffered, since each
// send consumes its reader.
func (p *Pipeline) splitAttachment(rc *Context) ([]*FileAttachment, error) {
	out := make([]*FileAttachment, len(rc.Bridges))
	if rc.File == nil || rc.FileStream == nil {
		return out, nil
	}
	if len(rc.Bridges) == 1 {
		out[0] = &FileAttachment{Name: rc.File.Name, Reader: rc.FileStream}
		return out, nil
	}

	data, err := io.ReadAll(rc.FileStream)
	rc.FileStream.Close()
	rc.FileStream = nil
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	for i := range out {
		out[i] = &FileAttachment{Name: rc.File.Name, Reader: strings.NewReader(string(data))}
	}
	return out, nil
}

func (p *Pipeline) mentionFunc(channelID string) func(string) string {
	if p.mentions == nil {
		return nil
	}
	return func(name string) string {
		return p.mentions.ResolveMention(channelID, name)
	}
}

// discordMaxEmbedLength is Discord's limit on embed descriptions.
const discordMaxEmbedLength = 2048

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// mimeExtensions maps the media MIME types Telegram commonly declares to a
// filename extension. mime.ExtensionsByType is the fallback for the rest.
var mimeExtensions = map[string]string{
	"audio/mpeg": ".mp3",
	"audio/mp4":  ".m4a",
	"audio/ogg":  ".ogg",
	"video/mp4":  ".mp4",
	"video/webm": ".webm",
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

func extensionFor(mimeType string) string {
	if ext, ok := mimeExtensions[mimeType]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

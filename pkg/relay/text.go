// Copyright 2024-2026 Aiku AI

package relay

import (
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/mymmrac/telego"
)

// noTextPlaceholder replaces an empty replied-to text after unwrapping.
const noTextPlaceholder = "<no text>"

// Sender is whoever authored a Telegram message: a user, or the chat
// itself for channel posts.
type Sender struct {
	FirstName string
	Username  string
	Title     string
	IsChat    bool
}

// senderFromUser builds a Sender from a Telegram user.
func senderFromUser(u telego.User) Sender {
	return Sender{FirstName: u.FirstName, Username: u.Username}
}

// senderFromChat builds a Sender from a chat, used for channel posts and
// forwards from channels.
func senderFromChat(c telego.Chat) Sender {
	return Sender{Title: c.Title, Username: c.Username, IsChat: true}
}

// senderFromMessage resolves the author of a message. Channel posts carry
// no From user, so the chat itself is the sender.
func senderFromMessage(msg *telego.Message) Sender {
	if msg.From != nil {
		return senderFromUser(*msg.From)
	}
	return senderFromChat(msg.Chat)
}

// DisplayName picks the name to show for this sender. For users the
// preference between first name and username is configurable; whichever is
// missing, the other is used.
func (s Sender) DisplayName(useFirstName bool) string {
	if s.IsChat {
		if s.Title != "" {
			return s.Title
		}
		return s.Username
	}
	if useFirstName {
		if s.FirstName != "" {
			return s.FirstName
		}
		return s.Username
	}
	if s.Username != "" {
		return s.Username
	}
	return s.FirstName
}

// TextObject is a raw string plus the Telegram formatting entities laid
// over it. Entity offsets count UTF-16 code units, as Telegram defines them.
type TextObject struct {
	Raw      string
	Entities []telego.MessageEntity
}

// BodyKind tags which message shape the text was taken from.
type BodyKind int

const (
	BodyEmpty BodyKind = iota
	BodyText
	BodyCaption
	BodySticker
	BodyLocation
)

// resolveBody picks the message's text content, in precedence order:
// plain text, media caption, sticker emoji (when enabled), location
// rendered as a map link. Only the first two carry formatting entities.
func resolveBody(msg *telego.Message, sendStickerEmoji bool) (BodyKind, TextObject) {
	switch {
	case msg.Text != "":
		return BodyText, TextObject{Raw: msg.Text, Entities: msg.Entities}
	case msg.Caption != "":
		return BodyCaption, TextObject{Raw: msg.Caption, Entities: msg.CaptionEntities}
	case msg.Sticker != nil:
		if sendStickerEmoji {
			return BodySticker, TextObject{Raw: msg.Sticker.Emoji}
		}
		return BodySticker, TextObject{}
	case msg.Location != nil:
		return BodyLocation, TextObject{Raw: mapLink(msg.Location.Latitude, msg.Location.Longitude)}
	default:
		return BodyEmpty, TextObject{}
	}
}

func mapLink(lat, lon float64) string {
	coords := strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lon, 'f', -1, 64)
	return "https://maps.google.com/maps?q=" + coords + "&ll=" + coords + "&z=16"
}

// utf16Len returns the length of s in UTF-16 code units, the unit Telegram
// entity offsets are expressed in.
func utf16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}

// unwrapSyntheticReply recovers the original Discord sender from a relayed
// copy's text. The copy's first line is the header the bridge prepended
// when relaying; it is stripped, entities covering it are dropped and the
// remaining entity offsets are rebased by the header length plus the line
// break. An empty remainder is replaced with a placeholder.
func unwrapSyntheticReply(text TextObject) (sender string, unwrapped TextObject) {
	raw := text.Raw
	idx := strings.Index(raw, "\n")
	if idx < 0 {
		sender = raw
		unwrapped.Raw = noTextPlaceholder
		return sender, unwrapped
	}

	sender = raw[:idx]
	unwrapped.Raw = raw[idx+1:]

	shift := utf16Len(sender) + 1
	for _, e := range text.Entities {
		if e.Offset < shift {
			continue
		}
		e.Offset -= shift
		unwrapped.Entities = append(unwrapped.Entities, e)
	}

	if unwrapped.Raw == "" {
		unwrapped.Raw = noTextPlaceholder
		unwrapped.Entities = nil
	}
	return sender, unwrapped
}

// makeReplyExcerpt truncates the replied-to text for inline display: at
// most length runes and maxLines lines, with an ellipsis appended only
// when something was actually cut.
func makeReplyExcerpt(raw string, length, maxLines int) string {
	runes := []rune(raw)
	cut := raw
	if len(runes) > length {
		cut = string(runes[:length])
	}

	lines := strings.Split(cut, "\n")
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	result := strings.Join(lines, "\n")

	if result != raw {
		result += "…"
	}
	return result
}

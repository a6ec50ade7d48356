// Copyright 2024-2026 Aiku AI

package relay

import (
	"fmt"
	"strings"

	"github.com/aiku/telecord/pkg/bridge"
	"github.com/aiku/telecord/pkg/relay/telegramfmt"
)

// Render converts a Telegram text object to Discord markdown.
func Render(t TextObject, resolveMention func(string) string) string {
	return telegramfmt.Render(t.Raw, t.Entities, resolveMention)
}

// makeHeader builds the plain-text header for one bridge's payload. The
// exact form depends on the bridge's sendUsernames toggle and on whether
// the message is a forward, a reply, or an ordinary message.
func (p *Pipeline) makeHeader(rc *Context, b bridge.Bridge) string {
	useFirst := p.settings.UseFirstNameInsteadOfUsername
	sender := rc.From.DisplayName(useFirst)

	switch {
	case rc.ForwardFrom != nil:
		original := rc.ForwardFrom.DisplayName(useFirst)
		if b.Telegram.SendUsernames {
			return fmt.Sprintf("%s (forwarded by %s)", original, sender)
		}
		return fmt.Sprintf("(forward from %s)", original)

	case rc.ReplyTo != nil:
		name := p.repliedToName(rc.ReplyTo, b)
		quoted := ""
		if p.settings.DisplayReplies == ReplyDisplayInline {
			excerpt := makeReplyExcerpt(rc.ReplyTo.Text.Raw, p.settings.ReplyLength, p.settings.MaxReplyLines)
			quoted = strings.ReplaceAll(excerpt, "\n", " ")
		}
		switch {
		case quoted != "" && b.Telegram.SendUsernames:
			return fmt.Sprintf("%s (in reply to %s: %s)", sender, name, quoted)
		case quoted != "":
			return fmt.Sprintf("(in reply to %s: %s)", name, quoted)
		case b.Telegram.SendUsernames:
			return fmt.Sprintf("%s (in reply to %s)", sender, name)
		default:
			return fmt.Sprintf("(in reply to %s)", name)
		}

	default:
		if b.Telegram.SendUsernames {
			return sender
		}
		return ""
	}
}

// repliedToName picks the name displayed for the replied-to message. For a
// synthetic reply the embedded Discord sender is turned back into a
// mention; otherwise the original author's display name is used.
func (p *Pipeline) repliedToName(ref *ReplyRef, b bridge.Bridge) string {
	if ref.IsReplyToSelf {
		if p.mentions != nil {
			return p.mentions.ResolveMention(b.Discord.ChannelID, ref.EmbeddedSender)
		}
		return ref.EmbeddedSender
	}
	return ref.OriginalFrom.DisplayName(p.settings.UseFirstNameInsteadOfUsername)
}

// ComposeDiscordContent joins a payload's header and body for sending.
func ComposeDiscordContent(payload PreparedPayload) string {
	switch {
	case payload.Header == "":
		return payload.Text
	case payload.Text == "":
		return payload.Header
	default:
		return payload.Header + "\n" + payload.Text
	}
}

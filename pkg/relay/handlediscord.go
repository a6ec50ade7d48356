// Copyright 2024-2026 Aiku AI

package relay

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/aiku/telecord/pkg/bridge"
	"github.com/aiku/telecord/pkg/messagemap"
	"github.com/aiku/telecord/pkg/relay/discordfmt"
)

// discordPrivateBotNotice mirrors the Telegram-side notice for messages in
// channels no bridge is configured for, on servers the bot was invited to
// by someone else.
const discordPrivateBotNotice = "This bot relays messages between a specific Discord channel and a " +
	"Telegram chat, and this channel is not one of them. If you want a relay " +
	"of your own, please run your own instance."

// DiscordHandler is the Discord-to-Telegram orchestrator. It reacts to
// Discord gateway events, performs the outbound Telegram calls and keeps
// the correlation store current.
type DiscordHandler struct {
	botUserID string
	telegram  TelegramSender
	notices   DiscordNoticeSender
	mapper    Mapper
	bridges   *bridge.Map
	settings  Settings
	serial    *Serializer
	log       zerolog.Logger

	noticeSent sync.Map // channel id -> struct{}
}

func NewDiscordHandler(botUserID string, telegram TelegramSender, notices DiscordNoticeSender, mapper Mapper, bridges *bridge.Map, settings Settings, log zerolog.Logger) *DiscordHandler {
	return &DiscordHandler{
		botUserID: botUserID,
		telegram:  telegram,
		notices:   notices,
		mapper:    mapper,
		bridges:   bridges,
		settings:  settings,
		serial:    NewSerializer(),
		log:       log,
	}
}

// Wait blocks until all scheduled events have been processed.
func (h *DiscordHandler) Wait() {
	h.serial.Wait()
}

// enqueue serializes events by source message, so an edit or delete never
// overtakes the send that created the correlation entry it needs.
func (h *DiscordHandler) enqueue(channelID, messageID string, fn func(ctx context.Context)) {
	key := fmt.Sprintf("dc/%s/%s", channelID, messageID)
	h.serial.Enqueue(key, func() {
		ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
		defer cancel()
		fn(ctx)
	})
}

// senderName resolves the display name for a Discord author, preferring
// the server nickname when configured. The configured colon suffix is
// applied here so every send site gets it.
func (h *DiscordHandler) senderName(author *discordgo.User, member *discordgo.Member) string {
	name := author.Username
	if h.settings.UseNickname && member != nil && member.Nick != "" {
		name = member.Nick
	}
	if h.settings.ColonAfterSenderName {
		name += ":"
	}
	return name
}

func (h *DiscordHandler) relayBridges(channelID string) []bridge.Bridge {
	kept := []bridge.Bridge{}
	for _, b := range h.bridges.FromDiscordChannelID(channelID) {
		if b.RelaysDiscordToTelegram() {
			kept = append(kept, b)
		}
	}
	return kept
}

// HandleMessageCreate relays a new Discord message: attachments as links,
// rich embeds as formatted text, then the message body. Only the body and
// the attachments get correlation entries; embeds are fire-and-forget.
func (h *DiscordHandler) HandleMessageCreate(m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == h.botUserID {
		return
	}
	h.enqueue(m.ChannelID, m.ID, func(ctx context.Context) {
		h.handleCreate(ctx, m.Message)
	})
}

func (h *DiscordHandler) handleCreate(ctx context.Context, m *discordgo.Message) {
	if strings.TrimSpace(m.Content) == "/chatinfo" {
		info := fmt.Sprintf("serverId: '%s'\nchannelId: '%s'", m.GuildID, m.ChannelID)
		if err := h.notices.SendChannelNotice(ctx, m.ChannelID, info); err != nil {
			h.log.Warn().Err(err).Str("channel_id", m.ChannelID).Msg("Failed to reply with chat info")
		}
		return
	}

	bridges := h.relayBridges(m.ChannelID)
	if len(bridges) == 0 {
		if len(h.bridges.FromDiscordChannelID(m.ChannelID)) == 0 && !h.bridges.KnownDiscordServer(m.GuildID) {
			h.privateBotNotice(ctx, m.ChannelID)
		}
		return
	}

	sender := h.senderName(m.Author, m.Member)
	for _, b := range bridges {
		log := h.log.With().Str("bridge", b.Name).Str("discord_message_id", m.ID).Logger()

		for _, att := range m.Attachments {
			html := discordfmt.FormatAttachmentLink(att.URL)
			if b.Discord.SendUsernames {
				html = discordfmt.WithSender(sender, html)
			}
			tgID, err := h.telegram.SendMessage(ctx, b.Telegram.ChatID, html, false)
			if err != nil {
				log.Err(err).Msg("Telegram did not accept an attachment")
				continue
			}
			err = h.mapper.Insert(ctx, messagemap.DiscordToTelegram, b.Name, m.ID, TelegramMessageID(tgID))
			if err != nil {
				log.Err(err).Msg("Failed to record attachment correlation")
			}
		}

		for _, embed := range m.Embeds {
			if embed.Type != discordgo.EmbedTypeRich {
				continue
			}
			html := discordfmt.FormatEmbed(embed, sender)
			if _, err := h.telegram.SendMessage(ctx, b.Telegram.ChatID, html, true); err != nil {
				log.Err(err).Msg("Telegram did not accept an embed")
			}
		}

		if m.Content == "" {
			continue
		}
		html := discordfmt.ToHTML(m.Content)
		if b.Discord.SendUsernames {
			html = discordfmt.WithSender(sender, html)
		}
		tgID, err := h.telegram.SendMessage(ctx, b.Telegram.ChatID, html, false)
		if err != nil {
			log.Err(err).Msg("Telegram did not accept a message")
			continue
		}
		err = h.mapper.Insert(ctx, messagemap.DiscordToTelegram, b.Name, m.ID, TelegramMessageID(tgID))
		if err != nil {
			log.Err(err).Msg("Failed to record message correlation")
		}
	}
}

func (h *DiscordHandler) privateBotNotice(ctx context.Context, channelID string) {
	if _, already := h.noticeSent.LoadOrStore(channelID, struct{}{}); already {
		return
	}
	if err := h.notices.SendChannelNotice(ctx, channelID, discordPrivateBotNotice); err != nil {
		h.log.Warn().Err(err).Str("channel_id", channelID).Msg("Failed to send private bot notice")
	}
}

// HandleMessageUpdate propagates an edit to the first relayed Telegram
// copy on each bridge. Edits of unrelayed messages are silently dropped.
func (h *DiscordHandler) HandleMessageUpdate(m *discordgo.MessageUpdate) {
	if m.Author == nil || m.Author.ID == h.botUserID {
		return
	}
	h.enqueue(m.ChannelID, m.ID, func(ctx context.Context) {
		h.handleUpdate(ctx, m.Message)
	})
}

func (h *DiscordHandler) handleUpdate(ctx context.Context, m *discordgo.Message) {
	sender := h.senderName(m.Author, m.Member)
	for _, b := range h.relayBridges(m.ChannelID) {
		log := h.log.With().Str("bridge", b.Name).Str("discord_message_id", m.ID).Logger()

		ids, err := h.mapper.GetCorresponding(ctx, messagemap.DiscordToTelegram, b.Name, m.ID)
		if err != nil {
			log.Err(err).Msg("Failed to look up message correlation")
			continue
		}
		if len(ids) == 0 {
			log.Debug().Msg("Edited message was never relayed, ignoring")
			continue
		}
		tgID, err := ParseTelegramMessageID(ids[0])
		if err != nil {
			log.Err(err).Str("telegram_message_id", ids[0]).Msg("Corrupt correlation entry")
			continue
		}

		html := discordfmt.ToHTML(m.Content)
		if b.Discord.SendUsernames {
			html = discordfmt.WithSender(sender, html)
		}
		if err := h.telegram.EditMessage(ctx, b.Telegram.ChatID, tgID, html); err != nil {
			log.Err(err).Int("telegram_message_id", tgID).Msg("Could not edit Telegram message")
		}
	}
}

// authorKind is what is known about a deleted message's author. Gateway
// delete events only carry the author when the message was still cached.
type authorKind int

const (
	authorUnknown authorKind = iota
	authorSelf
	authorOther
)

func (h *DiscordHandler) deletedAuthor(m *discordgo.MessageDelete) authorKind {
	if m.BeforeDelete == nil || m.BeforeDelete.Author == nil {
		return authorUnknown
	}
	if m.BeforeDelete.Author.ID == h.botUserID {
		return authorSelf
	}
	return authorOther
}

// HandleMessageDelete cross-deletes the Telegram counterpart(s) of a
// deleted Discord message, on bridges that enable it. A copy the bridge
// itself posted is traced back to its Telegram original via the reverse
// lookup; anything else deletes its relayed copies.
func (h *DiscordHandler) HandleMessageDelete(m *discordgo.MessageDelete) {
	kind := h.deletedAuthor(m)
	h.enqueue(m.ChannelID, m.ID, func(ctx context.Context) {
		h.handleDelete(ctx, m.ChannelID, m.ID, kind)
	})
}

// HandleMessageDeleteBulk applies the single-delete procedure to each id
// independently.
func (h *DiscordHandler) HandleMessageDeleteBulk(m *discordgo.MessageDeleteBulk) {
	for _, id := range m.Messages {
		id := id
		h.enqueue(m.ChannelID, id, func(ctx context.Context) {
			h.handleDelete(ctx, m.ChannelID, id, authorUnknown)
		})
	}
}

func (h *DiscordHandler) handleDelete(ctx context.Context, channelID, messageID string, kind authorKind) {
	for _, b := range h.relayBridges(channelID) {
		if !b.Discord.CrossDeleteOnTelegram {
			continue
		}
		log := h.log.With().Str("bridge", b.Name).Str("discord_message_id", messageID).Logger()

		var ids []string
		var err error
		switch kind {
		case authorSelf:
			ids, err = h.mapper.GetCorrespondingReverse(ctx, messagemap.DiscordToTelegram, b.Name, messageID)
		case authorOther:
			ids, err = h.mapper.GetCorresponding(ctx, messagemap.DiscordToTelegram, b.Name, messageID)
		default:
			// Author unknown: the reverse lookup finds originals of a
			// relayed copy, the forward lookup finds copies of an
			// original. At most one of the two has entries.
			ids, err = h.mapper.GetCorrespondingReverse(ctx, messagemap.DiscordToTelegram, b.Name, messageID)
			if err == nil && len(ids) == 0 {
				ids, err = h.mapper.GetCorresponding(ctx, messagemap.DiscordToTelegram, b.Name, messageID)
			}
		}
		if err != nil {
			log.Err(err).Msg("Failed to look up message correlation")
			continue
		}

		for _, id := range ids {
			tgID, err := ParseTelegramMessageID(id)
			if err != nil {
				log.Err(err).Str("telegram_message_id", id).Msg("Corrupt correlation entry")
				continue
			}
			err = h.telegram.DeleteMessage(ctx, b.Telegram.ChatID, tgID)
			if err != nil && !IsNotFound(err) {
				log.Err(err).Int("telegram_message_id", tgID).Msg("Could not delete Telegram message")
			}
		}
	}
}

// HandleMemberAdd relays a server join as a one-shot Telegram notice on
// every bridge of that server that wants them.
func (h *DiscordHandler) HandleMemberAdd(m *discordgo.GuildMemberAdd) {
	h.handleMembership(m.GuildID, m.Member, "joined", func(b bridge.Bridge) bool {
		return b.Discord.RelayJoinMessages
	})
}

// HandleMemberRemove relays a server leave the same way.
func (h *DiscordHandler) HandleMemberRemove(m *discordgo.GuildMemberRemove) {
	h.handleMembership(m.GuildID, m.Member, "left", func(b bridge.Bridge) bool {
		return b.Discord.RelayLeaveMessages
	})
}

func (h *DiscordHandler) handleMembership(guildID string, member *discordgo.Member, verb string, wants func(bridge.Bridge) bool) {
	if member == nil || member.User == nil {
		return
	}
	name := member.User.Username
	if member.Nick != "" {
		name = member.Nick
	}
	text := fmt.Sprintf("<b>%s (@%s)</b> %s the Discord side of the chat", name, member.User.Username, verb)

	h.enqueue(guildID, member.User.ID, func(ctx context.Context) {
		for _, b := range h.bridges.Bridges() {
			if b.Discord.ServerID != guildID || !b.RelaysDiscordToTelegram() || !wants(b) {
				continue
			}
			if _, err := h.telegram.SendMessage(ctx, b.Telegram.ChatID, text, true); err != nil {
				h.log.Err(err).Str("bridge", b.Name).Msgf("Could not notify Telegram about a user that %s Discord", verb)
			}
		}
	})
}

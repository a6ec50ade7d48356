// Copyright 2024-2026 Aiku AI

package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/mymmrac/telego"
	"github.com/rs/zerolog"

	"github.com/aiku/telecord/pkg/bridge"
	"github.com/aiku/telecord/pkg/messagemap"
)

// handleTimeout bounds the work for one inbound event, including outbound
// platform calls.
const handleTimeout = 2 * time.Minute

// TelegramHandler is the Telegram-to-Discord orchestrator. It reacts to
// inbound Telegram updates, runs the enrichment pipeline, performs the
// outbound Discord calls and records correlations.
type TelegramHandler struct {
	pipeline *Pipeline
	discord  DiscordSender
	mapper   Mapper
	bridges  *bridge.Map
	settings Settings
	serial   *Serializer
	log      zerolog.Logger
}

func NewTelegramHandler(pipeline *Pipeline, discord DiscordSender, mapper Mapper, bridges *bridge.Map, settings Settings, log zerolog.Logger) *TelegramHandler {
	return &TelegramHandler{
		pipeline: pipeline,
		discord:  discord,
		mapper:   mapper,
		bridges:  bridges,
		settings: settings,
		serial:   NewSerializer(),
		log:      log,
	}
}

// HandleUpdate schedules one inbound update. Events for the same source
// message run in arrival order, so an edit can never overtake the send
// that creates its correlation entry.
func (h *TelegramHandler) HandleUpdate(update telego.Update) {
	msg := updateMessage(update)
	if msg == nil {
		return
	}
	key := fmt.Sprintf("tg/%d/%d", msg.Chat.ID, msg.MessageID)
	h.serial.Enqueue(key, func() {
		ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
		defer cancel()
		h.handle(ctx, update, msg)
	})
}

// Wait blocks until all scheduled events have been processed.
func (h *TelegramHandler) Wait() {
	h.serial.Wait()
}

func updateMessage(update telego.Update) *telego.Message {
	switch {
	case update.Message != nil:
		return update.Message
	case update.EditedMessage != nil:
		return update.EditedMessage
	case update.ChannelPost != nil:
		return update.ChannelPost
	case update.EditedChannelPost != nil:
		return update.EditedChannelPost
	}
	return nil
}

func (h *TelegramHandler) handle(ctx context.Context, update telego.Update, msg *telego.Message) {
	if len(msg.NewChatMembers) > 0 || msg.LeftChatMember != nil {
		h.handleMembership(ctx, msg)
		return
	}

	rc, err := h.pipeline.Run(ctx, update)
	if rc != nil && rc.FileStream != nil {
		// Discord consumes the reader but never closes it.
		defer rc.FileStream.Close()
	}
	if err != nil {
		h.log.Err(err).
			Str("event_id", rc.EventID).
			Int64("chat_id", msg.Chat.ID).
			Msg("Failed to process Telegram event")
		return
	}
	if len(rc.Prepared) == 0 {
		return
	}

	switch rc.Kind {
	case EventNewMessage:
		h.handleNewMessage(ctx, rc)
	case EventEditedMessage:
		h.handleEditedMessage(ctx, rc)
	}
}

// handleNewMessage sends one Discord message per prepared payload and maps
// the source message to each copy. A failure on one bridge does not stop
// the others.
func (h *TelegramHandler) handleNewMessage(ctx context.Context, rc *Context) {
	for _, payload := range rc.Prepared {
		log := h.log.With().
			Str("event_id", rc.EventID).
			Str("bridge", payload.Bridge.Name).
			Logger()

		msg := DiscordMessage{
			Content:          ComposeDiscordContent(payload),
			EmbedDescription: payload.EmbedDescription,
			File:             payload.Attachment,
		}
		messageID, err := h.discord.SendMessage(ctx, payload.Bridge.Discord.ChannelID, msg)
		if err != nil {
			log.Err(err).Msg("Failed to relay message to Discord")
			continue
		}
		err = h.mapper.Insert(ctx, messagemap.TelegramToDiscord, payload.Bridge.Name, rc.MessageID(), messageID)
		if err != nil {
			log.Err(err).Str("discord_message_id", messageID).
				Msg("Failed to record message correlation")
		}
	}
}

// handleEditedMessage propagates an edit to the first relayed copy on each
// bridge. An edit of a message that was never relayed is silently dropped.
func (h *TelegramHandler) handleEditedMessage(ctx context.Context, rc *Context) {
	for _, payload := range rc.Prepared {
		log := h.log.With().
			Str("event_id", rc.EventID).
			Str("bridge", payload.Bridge.Name).
			Logger()

		ids, err := h.mapper.GetCorresponding(ctx, messagemap.TelegramToDiscord, payload.Bridge.Name, rc.MessageID())
		if err != nil {
			log.Err(err).Msg("Failed to look up message correlation")
			continue
		}
		if len(ids) == 0 {
			log.Debug().Msg("Edited message was never relayed, ignoring")
			continue
		}
		err = h.discord.EditMessage(ctx, payload.Bridge.Discord.ChannelID, ids[0], ComposeDiscordContent(payload))
		if err != nil {
			log.Err(err).Str("discord_message_id", ids[0]).
				Msg("Failed to relay edit to Discord")
		}
	}
}

// handleMembership relays Telegram join and leave events as one-shot
// notices. They carry no correlation entry.
func (h *TelegramHandler) handleMembership(ctx context.Context, msg *telego.Message) {
	for _, b := range h.bridges.FromTelegramChatID(msg.Chat.ID) {
		if !b.RelaysTelegramToDiscord() {
			continue
		}
		var texts []string
		if b.Telegram.RelayJoinMessages {
			for _, user := range msg.NewChatMembers {
				from := senderFromUser(user)
				texts = append(texts, fmt.Sprintf("**%s** joined the Telegram side of the chat", from.DisplayName(h.settings.UseFirstNameInsteadOfUsername)))
			}
		}
		if b.Telegram.RelayLeaveMessages && msg.LeftChatMember != nil {
			from := senderFromUser(*msg.LeftChatMember)
			texts = append(texts, fmt.Sprintf("**%s** left the Telegram side of the chat", from.DisplayName(h.settings.UseFirstNameInsteadOfUsername)))
		}
		for _, text := range texts {
			_, err := h.discord.SendMessage(ctx, b.Discord.ChannelID, DiscordMessage{Content: text})
			if err != nil {
				h.log.Err(err).Str("bridge", b.Name).Msg("Failed to relay membership notice to Discord")
			}
		}
	}
}

// Copyright 2024-2026 Aiku AI

// Package discord wraps the Discord gateway and REST API behind the
// relay's outbound capability interfaces.
package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/aiku/telecord/pkg/relay"
)

// Client is the Discord side of the bridge. It implements
// relay.DiscordSender, relay.DiscordNoticeSender and relay.MentionResolver.
type Client struct {
	session *discordgo.Session
	log     zerolog.Logger
}

var (
	_ relay.DiscordSender       = (*Client)(nil)
	_ relay.DiscordNoticeSender = (*Client)(nil)
	_ relay.MentionResolver     = (*Client)(nil)
)

func New(token string, log zerolog.Logger) (*Client, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentMessageContent
	// Events must reach the handlers in gateway order; the relay does its
	// own per-message fan-out.
	session.SyncEvents = true

	return &Client{session: session, log: log}, nil
}

// Attach registers the orchestrator's event handlers on the session.
func (c *Client) Attach(h *relay.DiscordHandler) {
	c.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) { h.HandleMessageCreate(m) })
	c.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageUpdate) { h.HandleMessageUpdate(m) })
	c.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageDelete) { h.HandleMessageDelete(m) })
	c.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageDeleteBulk) { h.HandleMessageDeleteBulk(m) })
	c.session.AddHandler(func(_ *discordgo.Session, m *discordgo.GuildMemberAdd) { h.HandleMemberAdd(m) })
	c.session.AddHandler(func(_ *discordgo.Session, m *discordgo.GuildMemberRemove) { h.HandleMemberRemove(m) })
}

// Open connects to the gateway and returns the bot's own user id.
func (c *Client) Open() (string, error) {
	if err := c.session.Open(); err != nil {
		return "", fmt.Errorf("failed to connect to Discord: %w", err)
	}
	user := c.session.State.User
	c.log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("Connected to Discord")
	return user.ID, nil
}

func (c *Client) Close() error {
	return c.session.Close()
}

func (c *Client) SendMessage(ctx context.Context, channelID string, msg relay.DiscordMessage) (string, error) {
	send := &discordgo.MessageSend{Content: msg.Content}
	if msg.EmbedDescription != "" {
		send.Embeds = []*discordgo.MessageEmbed{{Description: msg.EmbedDescription}}
	}
	if msg.File != nil {
		send.Files = []*discordgo.File{{Name: msg.File.Name, Reader: msg.File.Reader}}
	}
	sent, err := c.session.ChannelMessageSendComplex(channelID, send, discordgo.WithContext(ctx))
	if err != nil {
		return "", c.wrapError(err)
	}
	return sent.ID, nil
}

func (c *Client) EditMessage(ctx context.Context, channelID, messageID, content string) error {
	_, err := c.session.ChannelMessageEdit(channelID, messageID, content, discordgo.WithContext(ctx))
	return c.wrapError(err)
}

func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return c.wrapError(c.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)))
}

func (c *Client) SendChannelNotice(ctx context.Context, channelID, text string) error {
	_, err := c.session.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx))
	return c.wrapError(err)
}

// ResolveMention turns a display name into a real mention when a member of
// the channel's guild matches it by username or nickname. Unresolvable
// names are returned unchanged.
func (c *Client) ResolveMention(channelID, displayName string) string {
	channel, err := c.session.State.Channel(channelID)
	if err != nil {
		return displayName
	}
	guild, err := c.session.State.Guild(channel.GuildID)
	if err != nil {
		return displayName
	}
	for _, member := range guild.Members {
		if member.User == nil {
			continue
		}
		if member.User.Username == displayName || member.Nick == displayName {
			return member.User.Mention()
		}
	}
	return displayName
}

// wrapError maps REST failures onto the relay's error types. An already
// deleted message comes back as Unknown Message and is reported as not
// found so cross-deletes treat it as success.
func (c *Client) wrapError(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownMessage {
		return &relay.NotFoundError{Err: err}
	}
	return &relay.DeliveryError{Platform: "discord", Err: err}
}

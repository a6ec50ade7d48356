// Copyright 2024-2026 Aiku AI

// Package telegram wraps the Telegram Bot API behind the relay's outbound
// capability interfaces and feeds inbound updates to the orchestrator.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mymmrac/telego"
	"github.com/mymmrac/telego/telegoapi"
	"github.com/rs/zerolog"

	"github.com/aiku/telecord/pkg/relay"
)

// Client is the Telegram side of the bridge. It implements
// relay.TelegramSender, relay.NoticeSender and relay.FileStreamOpener.
type Client struct {
	bot  *telego.Bot
	http *http.Client
	log  zerolog.Logger
}

var (
	_ relay.TelegramSender   = (*Client)(nil)
	_ relay.NoticeSender     = (*Client)(nil)
	_ relay.FileStreamOpener = (*Client)(nil)
)

func New(token string, log zerolog.Logger) (*Client, error) {
	bot, err := telego.NewBot(token, telego.WithDiscardLogger())
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return &Client{
		bot:  bot,
		http: http.DefaultClient,
		log:  log,
	}, nil
}

// BotID fetches the bot's own Telegram user id, used to recognize replies
// to relayed copies.
func (c *Client) BotID(ctx context.Context) (int64, error) {
	me, err := c.bot.GetMe(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get bot identity: %w", err)
	}
	c.log.Info().Int64("user_id", me.ID).Str("username", me.Username).Msg("Connected to Telegram")
	return me.ID, nil
}

// Listen long-polls for updates and hands each one to handler. It returns
// when ctx is canceled.
func (c *Client) Listen(ctx context.Context, handler func(telego.Update)) error {
	updates, err := c.bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout: 30,
		AllowedUpdates: []string{
			telego.MessageUpdates,
			telego.EditedMessageUpdates,
			telego.ChannelPostUpdates,
			telego.EditedChannelPostUpdates,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start long polling: %w", err)
	}
	for update := range updates {
		handler(update)
	}
	return ctx.Err()
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, html string, disablePreview bool) (int, error) {
	msg, err := c.bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:    telego.ChatID{ID: chatID},
		Text:      html,
		ParseMode: telego.ModeHTML,
		LinkPreviewOptions: &telego.LinkPreviewOptions{
			IsDisabled: disablePreview,
		},
	})
	if err != nil {
		return 0, c.wrapError(err)
	}
	return msg.MessageID, nil
}

func (c *Client) EditMessage(ctx context.Context, chatID int64, messageID int, html string) error {
	_, err := c.bot.EditMessageText(ctx, &telego.EditMessageTextParams{
		ChatID:    telego.ChatID{ID: chatID},
		MessageID: messageID,
		Text:      html,
		ParseMode: telego.ModeHTML,
	})
	return c.wrapError(err)
}

func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	return c.wrapError(c.bot.DeleteMessage(ctx, &telego.DeleteMessageParams{
		ChatID:    telego.ChatID{ID: chatID},
		MessageID: messageID,
	}))
}

// SendNotice sends a plain-text message without any markup, used for
// out-of-band notices.
func (c *Client) SendNotice(ctx context.Context, chatID int64, text string) error {
	_, err := c.bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: chatID},
		Text:   text,
	})
	return c.wrapError(err)
}

// OpenFileStream resolves the file's download path and opens an HTTP
// stream for it. The caller owns the returned reader.
func (c *Client) OpenFileStream(ctx context.Context, fileID string) (io.ReadCloser, error) {
	file, err := c.bot.GetFile(ctx, &telego.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, &relay.FetchError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.bot.FileDownloadURL(file.FilePath), nil)
	if err != nil {
		return nil, &relay.FetchError{Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &relay.FetchError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &relay.FetchError{Err: fmt.Errorf("unexpected status %s downloading file", resp.Status)}
	}
	return resp.Body, nil
}

// wrapError maps Telegram API failures onto the relay's error types. A
// message that is already gone is reported as not found so deletes treat
// it as success.
func (c *Client) wrapError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *telegoapi.Error
	if errors.As(err, &apiErr) && strings.Contains(apiErr.Description, "not found") {
		return &relay.NotFoundError{Err: err}
	}
	return &relay.DeliveryError{Platform: "telegram", Err: err}
}

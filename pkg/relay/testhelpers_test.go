// Copyright 2024-2026 Aiku AI

package relay

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/aiku/telecord/pkg/bridge"
	"github.com/aiku/telecord/pkg/messagemap"
)

// fakeDiscord records outbound Discord calls. Implements DiscordSender and
// DiscordNoticeSender.
type fakeDiscord struct {
	mu      sync.Mutex
	nextID  int
	sent    []sentDiscordMessage
	edits   []editedDiscordMessage
	deletes []deletedDiscordMessage
	notices []sentDiscordNotice

	sendErr   error
	deleteErr error
}

type sentDiscordMessage struct {
	ChannelID        string
	Content          string
	EmbedDescription string
	FileName         string
	FileBody         string
}

type editedDiscordMessage struct {
	ChannelID string
	MessageID string
	Content   string
}

type deletedDiscordMessage struct {
	ChannelID string
	MessageID string
}

type sentDiscordNotice struct {
	ChannelID string
	Text      string
}

func (f *fakeDiscord) SendMessage(_ context.Context, channelID string, msg DiscordMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	sent := sentDiscordMessage{
		ChannelID:        channelID,
		Content:          msg.Content,
		EmbedDescription: msg.EmbedDescription,
	}
	if msg.File != nil {
		sent.FileName = msg.File.Name
		body, _ := io.ReadAll(msg.File.Reader)
		sent.FileBody = string(body)
	}
	f.sent = append(f.sent, sent)
	f.nextID++
	return fmt.Sprintf("dc-%d", f.nextID), nil
}

func (f *fakeDiscord) EditMessage(_ context.Context, channelID, messageID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, editedDiscordMessage{channelID, messageID, content})
	return nil
}

func (f *fakeDiscord) DeleteMessage(_ context.Context, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletes = append(f.deletes, deletedDiscordMessage{channelID, messageID})
	return nil
}

func (f *fakeDiscord) SendChannelNotice(_ context.Context, channelID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, sentDiscordNotice{channelID, text})
	return nil
}

func (f *fakeDiscord) Sent() []sentDiscordMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentDiscordMessage(nil), f.sent...)
}

// fakeTelegram records outbound Telegram calls. Implements TelegramSender
// and NoticeSender.
type fakeTelegram struct {
	mu      sync.Mutex
	nextID  int
	sent    []sentTelegramMessage
	edits   []editedTelegramMessage
	deletes []deletedTelegramMessage
	notices []sentTelegramNotice

	sendErr   error
	deleteErr error
}

type sentTelegramMessage struct {
	ChatID         int64
	HTML           string
	DisablePreview bool
}

type editedTelegramMessage struct {
	ChatID    int64
	MessageID int
	HTML      string
}

type deletedTelegramMessage struct {
	ChatID    int64
	MessageID int
}

type sentTelegramNotice struct {
	ChatID int64
	Text   string
}

func (f *fakeTelegram) SendMessage(_ context.Context, chatID int64, html string, disablePreview bool) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	f.sent = append(f.sent, sentTelegramMessage{chatID, html, disablePreview})
	f.nextID++
	return 1000 + f.nextID, nil
}

func (f *fakeTelegram) EditMessage(_ context.Context, chatID int64, messageID int, html string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, editedTelegramMessage{chatID, messageID, html})
	return nil
}

func (f *fakeTelegram) DeleteMessage(_ context.Context, chatID int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletes = append(f.deletes, deletedTelegramMessage{chatID, messageID})
	return nil
}

func (f *fakeTelegram) SendNotice(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, sentTelegramNotice{chatID, text})
	return nil
}

func (f *fakeTelegram) Sent() []sentTelegramMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentTelegramMessage(nil), f.sent...)
}

// fakeFiles serves fixed file bodies and remembers every stream it hands
// out. Implements FileStreamOpener.
type fakeFiles struct {
	bodies map[string]string
	err    error

	mu     sync.Mutex
	opened []*fakeFileStream
}

type fakeFileStream struct {
	io.Reader
	closed bool
}

func (s *fakeFileStream) Close() error {
	s.closed = true
	return nil
}

func (f *fakeFiles) OpenFileStream(_ context.Context, fileID string) (io.ReadCloser, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.bodies[fileID]
	if !ok {
		return nil, &FetchError{Err: fmt.Errorf("no such file %q", fileID)}
	}
	stream := &fakeFileStream{Reader: strings.NewReader(body)}
	f.mu.Lock()
	f.opened = append(f.opened, stream)
	f.mu.Unlock()
	return stream, nil
}

// Opened returns a snapshot of the streams handed out so far.
func (f *fakeFiles) Opened() []*fakeFileStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeFileStream(nil), f.opened...)
}

// fakeMentions resolves names through a fixed table. Implements
// MentionResolver.
type fakeMentions struct {
	table map[string]string
}

func (f *fakeMentions) ResolveMention(_, displayName string) string {
	if m, ok := f.table[displayName]; ok {
		return m
	}
	return displayName
}

func testStore(t *testing.T) *messagemap.Store {
	t.Helper()
	store, err := messagemap.NewInMemory(zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to open in-memory message map: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testBridge(name string) bridge.Bridge {
	return bridge.Bridge{
		Name:      name,
		Direction: bridge.DirectionBoth,
		Telegram: bridge.TelegramSide{
			ChatID:               -100123,
			RelayCommands:        false,
			RelayJoinMessages:    true,
			RelayLeaveMessages:   true,
			CrossDeleteOnDiscord: true,
			SendUsernames:        true,
		},
		Discord: bridge.DiscordSide{
			ServerID:              "srv-1",
			ChannelID:             "chan-1",
			RelayJoinMessages:     true,
			RelayLeaveMessages:    true,
			CrossDeleteOnTelegram: true,
			SendUsernames:         true,
		},
	}
}

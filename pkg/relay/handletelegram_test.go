// Copyright 2024-2026 Aiku AI

package relay

import (
	"context"
	"testing"

	"github.com/mymmrac/telego"
	"github.com/rs/zerolog"

	"github.com/aiku/telecord/pkg/bridge"
	"github.com/aiku/telecord/pkg/messagemap"
)

type telegramFixture struct {
	handler *TelegramHandler
	discord *fakeDiscord
	store   *messagemap.Store
	files   *fakeFiles
}

func newTelegramFixture(t *testing.T, bridges ...bridge.Bridge) *telegramFixture {
	t.Helper()
	dc := &fakeDiscord{}
	store := testStore(t)
	bmap := bridge.NewMap(bridges)
	settings := DefaultSettings()
	files := &fakeFiles{bodies: map[string]string{"file-1": "file body"}}

	pipeline := NewPipeline(testBotID, settings, bmap, &fakeTelegram{}, files, &fakeMentions{}, zerolog.Nop())
	handler := NewTelegramHandler(pipeline, dc, store, bmap, settings, zerolog.Nop())
	return &telegramFixture{handler: handler, discord: dc, store: store, files: files}
}

func TestTelegramNewMessageRelayAndMapping(t *testing.T) {
	t.Parallel()
	f := newTelegramFixture(t, testBridge("b"))

	f.handler.HandleUpdate(newTextUpdate(7, "hello"))
	f.handler.Wait()

	sent := f.discord.Sent()
	if len(sent) != 1 {
		t.Fatalf("got %d Discord sends, want 1", len(sent))
	}
	if sent[0].ChannelID != "chan-1" {
		t.Errorf("channel = %q, want chan-1", sent[0].ChannelID)
	}
	if sent[0].Content != "alice99\nhello" {
		t.Errorf("content = %q, want header and body", sent[0].Content)
	}

	ids, err := f.store.GetCorresponding(context.Background(), messagemap.TelegramToDiscord, "b", "7")
	if err != nil {
		t.Fatalf("GetCorresponding() error: %v", err)
	}
	if len(ids) != 1 || ids[0] != "dc-1" {
		t.Errorf("mapping = %v, want [dc-1]", ids)
	}
}

func TestTelegramEditPropagates(t *testing.T) {
	t.Parallel()
	f := newTelegramFixture(t, testBridge("b"))

	f.handler.HandleUpdate(newTextUpdate(7, "helo"))
	f.handler.HandleUpdate(telego.Update{EditedMessage: newMessage(7, "hello")})
	f.handler.Wait()

	if len(f.discord.edits) != 1 {
		t.Fatalf("got %d edits, want 1", len(f.discord.edits))
	}
	edit := f.discord.edits[0]
	if edit.MessageID != "dc-1" {
		t.Errorf("edited %q, want dc-1", edit.MessageID)
	}
	if edit.Content != "alice99\nhello" {
		t.Errorf("edit content = %q", edit.Content)
	}
}

func TestTelegramEditOfUnrelayedMessageIsSilent(t *testing.T) {
	t.Parallel()
	f := newTelegramFixture(t, testBridge("b"))

	f.handler.HandleUpdate(telego.Update{EditedMessage: newMessage(12, "was never sent")})
	f.handler.Wait()

	if len(f.discord.edits) != 0 {
		t.Errorf("got %d edits for an unrelayed message, want 0", len(f.discord.edits))
	}
	if len(f.discord.Sent()) != 0 {
		t.Errorf("edit of unrelayed message produced a send")
	}
}

func TestTelegramSendFailureIsolatedPerBridge(t *testing.T) {
	t.Parallel()

	first := testBridge("first")
	second := testBridge("second")
	second.Discord.ChannelID = "chan-2"
	f := newTelegramFixture(t, first, second)

	// Fail the first send, let the second through.
	f.discord.sendErr = &DeliveryError{Platform: "discord", Err: context.DeadlineExceeded}
	f.handler.HandleUpdate(newTextUpdate(1, "first try"))
	f.handler.Wait()
	f.discord.sendErr = nil

	f.handler.HandleUpdate(newTextUpdate(2, "second try"))
	f.handler.Wait()

	if got := len(f.discord.Sent()); got != 2 {
		t.Fatalf("got %d sends, want 2 from the second message", got)
	}

	ids, err := f.store.GetCorresponding(context.Background(), messagemap.TelegramToDiscord, "first", "1")
	if err != nil {
		t.Fatalf("GetCorresponding() error: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("failed send left a mapping: %v", ids)
	}
}

func TestTelegramAttachmentStreamClosed(t *testing.T) {
	t.Parallel()
	f := newTelegramFixture(t, testBridge("b"))

	update := newTextUpdate(1, "")
	update.Message.Text = ""
	update.Message.Caption = "holiday snap"
	update.Message.Photo = []telego.PhotoSize{{FileID: "file-1"}}
	f.handler.HandleUpdate(update)
	f.handler.Wait()

	// The stream must also be released when the send fails.
	f.discord.sendErr = &DeliveryError{Platform: "discord", Err: context.DeadlineExceeded}
	update = newTextUpdate(2, "")
	update.Message.Text = ""
	update.Message.Photo = []telego.PhotoSize{{FileID: "file-1"}}
	f.handler.HandleUpdate(update)
	f.handler.Wait()

	streams := f.files.Opened()
	if len(streams) != 2 {
		t.Fatalf("got %d file streams, want 2", len(streams))
	}
	for i, s := range streams {
		if !s.closed {
			t.Errorf("stream %d was not closed after relaying", i)
		}
	}
}

func TestTelegramJoinLeaveNotices(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		configure func(*bridge.Bridge)
		message   func(*telego.Message)
		wantSends int
	}{
		{
			name:      "join relayed",
			configure: func(b *bridge.Bridge) {},
			message: func(m *telego.Message) {
				m.NewChatMembers = []telego.User{{ID: 5, Username: "newbie"}}
			},
			wantSends: 1,
		},
		{
			name:      "join disabled",
			configure: func(b *bridge.Bridge) { b.Telegram.RelayJoinMessages = false },
			message: func(m *telego.Message) {
				m.NewChatMembers = []telego.User{{ID: 5, Username: "newbie"}}
			},
			wantSends: 0,
		},
		{
			name:      "leave relayed",
			configure: func(b *bridge.Bridge) {},
			message: func(m *telego.Message) {
				m.LeftChatMember = &telego.User{ID: 5, Username: "goner"}
			},
			wantSends: 1,
		},
		{
			name:      "leave disabled",
			configure: func(b *bridge.Bridge) { b.Telegram.RelayLeaveMessages = false },
			message: func(m *telego.Message) {
				m.LeftChatMember = &telego.User{ID: 5, Username: "goner"}
			},
			wantSends: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := testBridge("b")
			tt.configure(&b)
			f := newTelegramFixture(t, b)

			msg := newMessage(1, "")
			msg.Text = ""
			tt.message(msg)
			f.handler.HandleUpdate(telego.Update{Message: msg})
			f.handler.Wait()

			if got := len(f.discord.Sent()); got != tt.wantSends {
				t.Errorf("got %d sends, want %d", got, tt.wantSends)
			}
		})
	}
}

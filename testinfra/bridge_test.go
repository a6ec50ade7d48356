// Package testinfra runs smoke tests against a live telecord instance
// bridging a real Telegram chat and Discord channel.
//
// The tests talk to the platform APIs directly over HTTP, exercising the
// running bridge from the outside: command replies, message acceptance and
// API reachability. They need real tokens and a running bridge, so they
// skip themselves unless the environment is set up:
//
//	TELECORD_E2E_DISCORD_TOKEN      helper bot token, in the bridged server
//	TELECORD_E2E_DISCORD_CHANNEL    the bridged channel id
//	TELECORD_E2E_TELEGRAM_TOKEN     the bridge's Telegram token (optional)
package testinfra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

// ────────────────────────────────────────────────────────────────────
// Constants & shared state
// ────────────────────────────────────────────────────────────────────

const (
	discordAPI  = "https://discord.com/api/v10"
	telegramAPI = "https://api.telegram.org"
)

var (
	discordToken   string // helper bot, not the bridge's own
	discordChannel string
	telegramToken  string
)

func TestMain(m *testing.M) {
	discordToken = os.Getenv("TELECORD_E2E_DISCORD_TOKEN")
	discordChannel = os.Getenv("TELECORD_E2E_DISCORD_CHANNEL")
	telegramToken = os.Getenv("TELECORD_E2E_TELEGRAM_TOKEN")

	if discordToken == "" || discordChannel == "" {
		fmt.Println("SKIP: TELECORD_E2E_DISCORD_TOKEN and TELECORD_E2E_DISCORD_CHANNEL required")
		os.Exit(0)
	}

	os.Exit(m.Run())
}

// ────────────────────────────────────────────────────────────────────
// HTTP helpers
// ────────────────────────────────────────────────────────────────────

func doJSON(t testing.TB, method, url string, body any, authHeader string) (int, []byte) {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		bodyReader = bytes.NewReader(data)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("HTTP %s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp.StatusCode, data
}

func discordSend(t testing.TB, content string) string {
	t.Helper()
	status, data := doJSON(t, http.MethodPost,
		discordAPI+"/channels/"+discordChannel+"/messages",
		map[string]any{"content": content},
		"Bot "+discordToken)
	if status != http.StatusOK {
		t.Fatalf("discord send: status %d: %s", status, data)
	}
	var msg struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("discord send: %v", err)
	}
	return msg.ID
}

// discordMessagesAfter fetches channel messages posted after the given id.
func discordMessagesAfter(t testing.TB, afterID string) []struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Author  struct {
		ID  string `json:"id"`
		Bot bool   `json:"bot"`
	} `json:"author"`
} {
	t.Helper()
	status, data := doJSON(t, http.MethodGet,
		discordAPI+"/channels/"+discordChannel+"/messages?after="+afterID,
		nil, "Bot "+discordToken)
	if status != http.StatusOK {
		t.Fatalf("discord history: status %d: %s", status, data)
	}
	var msgs []struct {
		ID      string `json:"id"`
		Content string `json:"content"`
		Author  struct {
			ID  string `json:"id"`
			Bot bool   `json:"bot"`
		} `json:"author"`
	}
	if err := json.Unmarshal(data, &msgs); err != nil {
		t.Fatalf("discord history: %v", err)
	}
	return msgs
}

// ────────────────────────────────────────────────────────────────────
// Tests
// ────────────────────────────────────────────────────────────────────

// TestChatInfoCommand posts /chatinfo in the bridged channel and waits for
// the bridge to answer with the channel's identifiers. This proves the
// bridge is up, connected to the gateway and processing events.
func TestChatInfoCommand(t *testing.T) {
	markerID := discordSend(t, "/chatinfo")

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		time.Sleep(2 * time.Second)
		for _, msg := range discordMessagesAfter(t, markerID) {
			if msg.Author.Bot && strings.Contains(msg.Content, "channelId: '"+discordChannel+"'") {
				return
			}
		}
	}
	t.Fatalf("bridge did not answer /chatinfo within 30s")
}

// TestDiscordMessageAccepted posts an ordinary message and checks the API
// accepted it; the Telegram side cannot be read back by a bot, so relay
// delivery is covered by the /chatinfo round trip plus manual inspection.
func TestDiscordMessageAccepted(t *testing.T) {
	id := discordSend(t, fmt.Sprintf("telecord smoke test %d", time.Now().Unix()))
	if id == "" {
		t.Fatal("no message id returned")
	}
}

// TestTelegramAPIReachable verifies the bridge's Telegram token is valid
// when it is provided to the harness.
func TestTelegramAPIReachable(t *testing.T) {
	if telegramToken == "" {
		t.Skip("TELECORD_E2E_TELEGRAM_TOKEN not set")
	}
	status, data := doJSON(t, http.MethodGet, telegramAPI+"/bot"+telegramToken+"/getMe", nil, "")
	if status != http.StatusOK {
		t.Fatalf("getMe: status %d: %s", status, data)
	}
	var result struct {
		OK     bool `json:"ok"`
		Result struct {
			IsBot    bool   `json:"is_bot"`
			Username string `json:"username"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("getMe: %v", err)
	}
	if !result.OK || !result.Result.IsBot {
		t.Fatalf("getMe: unexpected response: %s", data)
	}
}

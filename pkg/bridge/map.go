// Copyright 2024-2026 Aiku AI

package bridge

// Map resolves platform identifiers to the bridges configured for them.
// It is built once at startup and read-only afterwards, so it is safe for
// concurrent use.
type Map struct {
	bridges   []Bridge
	byChatID  map[int64][]Bridge
	byChannel map[string][]Bridge
	serverIDs map[string]struct{}
}

// NewMap builds a Map from the configured bridges.
func NewMap(bridges []Bridge) *Map {
	m := &Map{
		bridges:   bridges,
		byChatID:  make(map[int64][]Bridge),
		byChannel: make(map[string][]Bridge),
		serverIDs: make(map[string]struct{}),
	}
	for _, b := range bridges {
		m.byChatID[b.Telegram.ChatID] = append(m.byChatID[b.Telegram.ChatID], b)
		m.byChannel[b.Discord.ChannelID] = append(m.byChannel[b.Discord.ChannelID], b)
		if b.Discord.ServerID != "" {
			m.serverIDs[b.Discord.ServerID] = struct{}{}
		}
	}
	return m
}

// Bridges returns all configured bridges.
func (m *Map) Bridges() []Bridge {
	return m.bridges
}

// FromTelegramChatID returns the bridges configured for a Telegram chat.
// An unknown chat yields an empty slice.
func (m *Map) FromTelegramChatID(chatID int64) []Bridge {
	return m.byChatID[chatID]
}

// FromDiscordChannelID returns the bridges configured for a Discord channel.
// An unknown channel yields an empty slice.
func (m *Map) FromDiscordChannelID(channelID string) []Bridge {
	return m.byChannel[channelID]
}

// KnownDiscordServer reports whether any bridge lives in the given Discord
// server.
func (m *Map) KnownDiscordServer(serverID string) bool {
	_, ok := m.serverIDs[serverID]
	return ok
}

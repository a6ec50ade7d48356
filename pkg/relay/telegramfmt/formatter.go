// Copyright 2024-2026 Aiku AI

// Package telegramfmt renders Telegram formatting entities over a raw
// string as Discord markdown.
package telegramfmt

import (
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/mymmrac/telego"
)

// Telegram entity types handled by the renderer.
const (
	entityBold          = "bold"
	entityItalic        = "italic"
	entityUnderline     = "underline"
	entityStrikethrough = "strikethrough"
	entitySpoiler       = "spoiler"
	entityCode          = "code"
	entityPre           = "pre"
	entityTextLink      = "text_link"
	entityMention       = "mention"
	entityTextMention   = "text_mention"
)

// MentionFunc resolves a Telegram @username to a Discord mention string.
type MentionFunc func(username string) string

// Render converts a raw Telegram string and its entities to Discord
// markdown. Entity offsets are UTF-16 code units per the Telegram API.
// resolveMention may be nil, in which case mentions stay as typed.
func Render(raw string, entities []telego.MessageEntity, resolveMention MentionFunc) string {
	if raw == "" {
		return ""
	}
	if len(entities) == 0 {
		return escape(raw)
	}

	units := utf16.Encode([]rune(raw))

	sorted := make([]telego.MessageEntity, len(entities))
	copy(sorted, entities)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })

	var b strings.Builder
	pos := 0
	for _, e := range sorted {
		if e.Offset < pos || e.Offset+e.Length > len(units) {
			// Nested or out-of-range entity; top-level formatting wins.
			continue
		}
		b.WriteString(escape(decode(units[pos:e.Offset])))
		segment := decode(units[e.Offset : e.Offset+e.Length])
		b.WriteString(renderEntity(e, segment, resolveMention))
		pos = e.Offset + e.Length
	}
	b.WriteString(escape(decode(units[pos:])))
	return b.String()
}

func decode(units []uint16) string {
	return string(utf16.Decode(units))
}

func renderEntity(e telego.MessageEntity, text string, resolveMention MentionFunc) string {
	switch e.Type {
	case entityBold:
		return "**" + text + "**"
	case entityItalic:
		return "*" + text + "*"
	case entityUnderline:
		return "__" + text + "__"
	case entityStrikethrough:
		return "~~" + text + "~~"
	case entitySpoiler:
		return "||" + text + "||"
	case entityCode:
		return "`" + text + "`"
	case entityPre:
		lang := e.Language
		return "```" + lang + "\n" + text + "\n```"
	case entityTextLink:
		return "[" + text + "](" + e.URL + ")"
	case entityMention:
		if resolveMention != nil {
			return resolveMention(strings.TrimPrefix(text, "@"))
		}
		return text
	case entityTextMention:
		if resolveMention != nil && e.User != nil {
			return resolveMention(e.User.FirstName)
		}
		return text
	default:
		return escape(text)
	}
}

var escaper = strings.NewReplacer(
	"*", "\\*",
	"_", "\\_",
	"~", "\\~",
	"`", "\\`",
	"|", "\\|",
)

// escape neutralizes Discord markdown characters in plain text segments.
func escape(s string) string {
	return escaper.Replace(s)
}

// Copyright 2024-2026 Aiku AI

// Package discordfmt converts Discord markdown to Telegram-flavored HTML.
package discordfmt

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

var (
	codeBlockRe = regexp.MustCompile("(?s)```(\\w+)?\\n?(.*?)```")
	codeRe      = regexp.MustCompile("`([^`]+)`")
	boldRe      = regexp.MustCompile(`\*\*(.+?)\*\*`)
	underlineRe = regexp.MustCompile(`__(.+?)__`)
	italicRe    = regexp.MustCompile(`\*(.+?)\*`)
	italicUndRe = regexp.MustCompile(`_(.+?)_`)
	strikeRe    = regexp.MustCompile(`~~(.+?)~~`)
	spoilerRe   = regexp.MustCompile(`\|\|(.+?)\|\|`)
	linkRe      = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
)

// ToHTML converts Discord markdown text to HTML accepted by the Telegram
// Bot API (parse_mode HTML).
func ToHTML(text string) string {
	if text == "" {
		return ""
	}

	// Extract code blocks first so their contents survive untouched.
	var blocks []string
	text = codeBlockRe.ReplaceAllStringFunc(text, func(match string) string {
		parts := codeBlockRe.FindStringSubmatch(match)
		idx := len(blocks)
		blocks = append(blocks, parts[2])
		return "\x00BLOCK" + strconv.Itoa(idx) + "\x00"
	})

	var inline []string
	text = codeRe.ReplaceAllStringFunc(text, func(match string) string {
		parts := codeRe.FindStringSubmatch(match)
		idx := len(inline)
		inline = append(inline, parts[1])
		return "\x00CODE" + strconv.Itoa(idx) + "\x00"
	})

	text = html.EscapeString(text)

	text = linkRe.ReplaceAllString(text, `<a href="$2">$1</a>`)
	text = boldRe.ReplaceAllString(text, "<b>$1</b>")
	text = underlineRe.ReplaceAllString(text, "<u>$1</u>")
	text = italicRe.ReplaceAllString(text, "<i>$1</i>")
	text = italicUndRe.ReplaceAllString(text, "<i>$1</i>")
	text = strikeRe.ReplaceAllString(text, "<s>$1</s>")
	text = spoilerRe.ReplaceAllString(text, `<span class="tg-spoiler">$1</span>`)

	for i, code := range inline {
		text = strings.Replace(text, "\x00CODE"+strconv.Itoa(i)+"\x00", "<code>"+html.EscapeString(code)+"</code>", 1)
	}
	for i, block := range blocks {
		text = strings.Replace(text, "\x00BLOCK"+strconv.Itoa(i)+"\x00", "<pre>"+html.EscapeString(block)+"</pre>", 1)
	}
	return text
}

// FormatEmbed renders a Discord rich embed as Telegram HTML. Only fields
// with display value are included; the sender name is prepended when set.
func FormatEmbed(embed *discordgo.MessageEmbed, senderName string) string {
	var b strings.Builder
	if senderName != "" {
		fmt.Fprintf(&b, "<b>%s</b>\n", html.EscapeString(senderName))
	}
	if embed.Title != "" {
		if embed.URL != "" {
			fmt.Fprintf(&b, "<b><a href=\"%s\">%s</a></b>\n", embed.URL, html.EscapeString(embed.Title))
		} else {
			fmt.Fprintf(&b, "<b>%s</b>\n", html.EscapeString(embed.Title))
		}
	}
	if embed.Description != "" {
		b.WriteString(ToHTML(embed.Description))
		b.WriteString("\n")
	}
	for _, field := range embed.Fields {
		if field == nil || field.Name == "" {
			continue
		}
		fmt.Fprintf(&b, "<b>%s</b>: %s\n", html.EscapeString(field.Name), ToHTML(field.Value))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatAttachmentLink renders a Discord attachment URL as an HTML link.
func FormatAttachmentLink(url string) string {
	escaped := html.EscapeString(url)
	return fmt.Sprintf("<a href=\"%s\">%s</a>", escaped, escaped)
}

// WithSender prepends a bold sender header to an HTML body.
func WithSender(senderName, htmlBody string) string {
	return fmt.Sprintf("<b>%s</b>\n%s", html.EscapeString(senderName), htmlBody)
}

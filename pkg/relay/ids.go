// Copyright 2024-2026 Aiku AI

package relay

import "strconv"

// Telegram message ids are ints, Discord ids are snowflake strings. The
// message map stores both as strings; these helpers keep the conversions
// in one place.

// TelegramMessageID renders a Telegram message id as a message map key.
func TelegramMessageID(id int) string {
	return strconv.Itoa(id)
}

// ParseTelegramMessageID parses a message map value back into a Telegram
// message id.
func ParseTelegramMessageID(id string) (int, error) {
	return strconv.Atoi(id)
}

// Package tgui formats text for Telegram messages sent with
// ParseMode="HTML": escaping, a few inline tags and the message length limit.
package tgui

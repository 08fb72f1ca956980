// Package tgui provides small helpers for building Telegram HTML messages.
//
// Everything that ends up in a message as a dynamic value goes through Esc
// (or a tag helper built on it) so user-supplied text can never break the
// ParseMode="HTML" markup.
package tgui

package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	tele "gopkg.in/telebot.v4"

	"dolist/pkg/tgui"
)

// TelegramConfig targets one chat. ThreadID selects a forum topic.
type TelegramConfig struct {
	Token    string
	ChatID   int64
	ThreadID int
	// APIURL overrides the Bot API endpoint; empty means api.telegram.org.
	APIURL string
	// Timeout bounds one Bot API call. Zero means DefaultHandlerTimeout.
	Timeout time.Duration
}

func (c TelegramConfig) Enabled() bool {
	return strings.TrimSpace(c.Token) != "" && c.ChatID != 0
}

// TelegramSink sends the reminder as a bot message. The bot is send-only: it
// never polls for updates.
type TelegramSink struct {
	bot  *tele.Bot
	chat *tele.Chat
	opt  *tele.SendOptions
}

func NewTelegramSink(cfg TelegramConfig) (*TelegramSink, error) {
	if !cfg.Enabled() {
		return nil, errors.New("telegram sink needs token and chat_id")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultHandlerTimeout
	}
	b, err := tele.NewBot(tele.Settings{
		URL:     cfg.APIURL,
		Token:   strings.TrimSpace(cfg.Token),
		Offline: true,
		Client:  &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	return &TelegramSink{
		bot:  b,
		chat: &tele.Chat{ID: cfg.ChatID},
		opt:  &tele.SendOptions{ThreadID: cfg.ThreadID, ParseMode: tele.ModeHTML, DisableWebPagePreview: true},
	}, nil
}

func (t *TelegramSink) Name() string { return "telegram" }

func (t *TelegramSink) Notify(ctx context.Context, s Snapshot) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrSinkUnavailable, err)
	}
	// telebot has no context support; the client timeout bounds the call
	// and ctx bounds the wait.
	done := make(chan error, 1)
	go func() {
		_, err := t.bot.Send(t.chat, telegramText(s), t.opt)
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: telegram: %v", ErrSinkUnavailable, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: telegram: %v", ErrSinkUnavailable, ctx.Err())
	}
}

// telegramText renders the snapshot as Telegram HTML. Notes are quoted in
// full, or summarised by count when they would push the message over the limit.
func telegramText(s Snapshot) string {
	head := []tgui.H{
		tgui.B(tgui.TruncRunes(s.Title(), 256)),
		tgui.Esc("Tag: " + s.Tag),
		tgui.Esc("Status: " + s.Status),
	}
	if s.Reminder != "" {
		head = append(head, tgui.Esc("Reminder: ")+tgui.I(s.Reminder))
	}
	lines := append([]tgui.H(nil), head...)
	for _, n := range s.Notes {
		lines = append(lines, tgui.Quote(n))
	}
	text := tgui.JoinH("\n", lines...).String()
	if utf8.RuneCountInString(text) <= tgui.MaxMessageRunes {
		return text
	}
	return tgui.JoinH("\n", append(head, tgui.Esc(fmt.Sprintf("%d note(s) attached", len(s.Notes))))...).String()
}

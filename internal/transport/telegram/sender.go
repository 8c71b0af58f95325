// Package telegram sends notifications to a Telegram chat through a bot.
//
// The bot runs offline: it never polls for updates and only calls sendMessage.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"
)

const (
	telegramTextLimit = 4000
	defaultTimeout    = 10 * time.Second
)

type Config struct {
	Token    string
	ChatID   int64
	ThreadID int
	Timeout  time.Duration

	// APIURL overrides the Bot API base URL. Empty means the public API.
	APIURL string
}

// Sender posts plain-text messages to one chat (and optional forum thread).
type Sender struct {
	mu     sync.RWMutex
	bot    *tele.Bot
	chat   *tele.Chat
	thread int
}

// New builds a sender. A blank token or zero chat id yields a disabled sender.
func New(cfg Config) (*Sender, error) {
	s := &Sender{}
	if err := s.Apply(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// Apply rebuilds the bot for cfg. On error the previous bot stays in place.
func (s *Sender) Apply(cfg Config) error {
	token := strings.TrimSpace(cfg.Token)
	if token == "" || cfg.ChatID == 0 {
		s.mu.Lock()
		s.bot, s.chat, s.thread = nil, nil, 0
		s.mu.Unlock()
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	b, err := tele.NewBot(tele.Settings{
		URL:     strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/"),
		Token:   token,
		Offline: true,
		Client:  &http.Client{Timeout: timeout},
	})
	if err != nil {
		return fmt.Errorf("telegram: new bot: %w", err)
	}
	s.mu.Lock()
	s.bot = b
	s.chat = &tele.Chat{ID: cfg.ChatID}
	s.thread = cfg.ThreadID
	s.mu.Unlock()
	return nil
}

func (s *Sender) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bot != nil
}

func (s *Sender) Channel() string { return "telegram" }

func (s *Sender) Send(ctx context.Context, text string) error {
	s.mu.RLock()
	bot, chat, thread := s.bot, s.chat, s.thread
	s.mu.RUnlock()
	if bot == nil {
		return nil
	}

	for _, chunk := range splitText(text, telegramTextLimit) {
		if err := ctx.Err(); err != nil {
			return err
		}
		opt := &tele.SendOptions{DisableWebPagePreview: true, ThreadID: thread}
		if _, err := bot.Send(chat, chunk, opt); err != nil {
			return fmt.Errorf("telegram: send: %w", err)
		}
	}
	return nil
}

// splitText cuts s into chunks of at most limit runes, preferring newline
// boundaries that leave chunks at least a third of the limit long.
func splitText(s string, limit int) []string {
	if limit <= 0 {
		limit = telegramTextLimit
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return []string{s}
	}

	out := make([]string, 0, (len(rs)+limit-1)/limit)
	start := 0
	for start < len(rs) {
		end := start + limit
		if end >= len(rs) {
			out = append(out, string(rs[start:]))
			break
		}
		for i := end - 1; i > start; i-- {
			if rs[i] == '\n' && i-start >= limit/3 {
				end = i + 1
				break
			}
		}
		out = append(out, string(rs[start:end]))
		start = end
	}
	return out
}

var errNoBot = errors.New("telegram: not configured")

// Check verifies the token with getMe. The notify-test command runs it first.
func (s *Sender) Check() error {
	s.mu.RLock()
	bot := s.bot
	s.mu.RUnlock()
	if bot == nil {
		return errNoBot
	}
	_, err := bot.Raw("getMe", nil)
	return err
}

package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"momentum_bot/pkg/logger"
)

type Notifier interface {
	Send(msg string)
	Sendf(format string, args ...any)
}

// StatusFunc отдаёт текст для команды /status.
type StatusFunc func() string

// Telegram - пассивный нотифайер + одна команда /status.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64

	mu     sync.RWMutex
	status StatusFunc
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("notify.NewTelegram: %w", err)
	}
	return &Telegram{
		bot:    b,
		chatID: chatID,
	}, nil
}

func (t *Telegram) Send(msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, msg)); err != nil {
		logger.Error("telegram send: %v", err)
	}
}

func (t *Telegram) Sendf(format string, args ...any) { t.Send(fmt.Sprintf(format, args...)) }

func (t *Telegram) SetStatusFunc(f StatusFunc) {
	t.mu.Lock()
	t.status = f
	t.mu.Unlock()
}

func (t *Telegram) handleStatus() {
	t.mu.RLock()
	f := t.status
	t.mu.RUnlock()
	if f == nil {
		t.Send("status is not available yet")
		return
	}
	t.Send(f())
}

// Start: long-polling, отвечаем только своему чату.
func (t *Telegram) Start(ctx context.Context) error {
	if t == nil || t.bot == nil {
		return nil
	}

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}

	updates := t.bot.GetUpdatesChan(u)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd := <-updates:
				if upd.Message == nil || upd.Message.Chat == nil ||
					upd.Message.Chat.ID != t.chatID || !upd.Message.IsCommand() {
					continue
				}
				switch upd.Message.Command() {
				case "status":
					go t.handleStatus()
				}
			}
		}
	}()
	return nil
}

func (t *Telegram) Stop() {
	if t == nil || t.bot == nil {
		return
	}
	t.bot.StopReceivingUpdates()
}

// Stdout - заглушка, всё уходит в лог.
type Stdout struct{}

func NewStdout() *Stdout                           { return &Stdout{} }
func (s *Stdout) Send(msg string)                  { logger.Info("notify: %s", msg) }
func (s *Stdout) Sendf(format string, args ...any) { s.Send(fmt.Sprintf(format, args...)) }

// Throttled пропускает одно сообщение на ключ события за interval.
type Throttled struct {
	next     Notifier
	interval time.Duration
	now      func() time.Time

	mu   sync.Mutex
	last map[string]time.Time
}

func NewThrottled(next Notifier, interval time.Duration) *Throttled {
	return &Throttled{
		next:     next,
		interval: interval,
		now:      time.Now,
		last:     make(map[string]time.Time),
	}
}

func (t *Throttled) Send(msg string)                  { t.next.Send(msg) }
func (t *Throttled) Sendf(format string, args ...any) { t.next.Sendf(format, args...) }

// Alert sends msg unless the same key fired less than interval ago.
func (t *Throttled) Alert(key, msg string) bool {
	t.mu.Lock()
	now := t.now()
	if last, ok := t.last[key]; ok && now.Sub(last) < t.interval {
		t.mu.Unlock()
		return false
	}
	t.last[key] = now
	t.mu.Unlock()

	t.next.Send(msg)
	return true
}

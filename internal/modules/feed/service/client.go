package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"momentum_bot/internal/models"
	"momentum_bot/internal/strategy"
	"momentum_bot/pkg/logger"
)

var ErrNotConnected = errors.New("feed: not connected")

type Config struct {
	URL          string
	ReconnectMin time.Duration
	ReconnectMax time.Duration
	StaleAfter   time.Duration // 0 = кэш не протухает
	PingEvery    time.Duration
}

// ConnState - сюда отдаём состояние соединения (health).
type ConnState interface {
	SetFeedConnected(v bool)
}

type entry struct {
	q    models.Quote
	seen time.Time
}

// Client держит одно WS-соединение и кэш последних котировок.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer
	state  ConnState
	now    func() time.Time

	mu     sync.RWMutex
	quotes map[string]entry
	subs   map[string]struct{}

	connMu    sync.Mutex // conn + запись в него
	conn      *websocket.Conn
	connected bool
}

var (
	_ strategy.RankingSource = (*Client)(nil)
)

func NewClient(cfg Config, state ConnState) *Client {
	if cfg.ReconnectMin <= 0 {
		cfg.ReconnectMin = time.Second
	}
	if cfg.ReconnectMax < cfg.ReconnectMin {
		cfg.ReconnectMax = 30 * cfg.ReconnectMin
	}
	if cfg.PingEvery <= 0 {
		cfg.PingEvery = 20 * time.Second
	}
	return &Client{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		state:  state,
		now:    time.Now,
		quotes: make(map[string]entry),
		subs:   make(map[string]struct{}),
	}
}

// Subscribe добавляет символы; если соединение живо, подписка уходит сразу.
func (c *Client) Subscribe(symbols []string) {
	var added []string
	c.mu.Lock()
	for _, s := range symbols {
		if _, ok := c.subs[s]; ok {
			continue
		}
		c.subs[s] = struct{}{}
		added = append(added, s)
	}
	c.mu.Unlock()

	if len(added) == 0 {
		return
	}
	if err := c.write(subscribeFrame(added)); err != nil && !errors.Is(err, ErrNotConnected) {
		logger.Warn("feed: subscribe %d symbols: %v", len(added), err)
	}
}

func (c *Client) Connected() bool {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.connected
}

// BatchQuotes отдаёт свежие котировки из кэша; отсутствующие символы просто пропускаются.
func (c *Client) BatchQuotes(_ context.Context, symbols []string) ([]models.Quote, error) {
	c.Subscribe(symbols)

	now := c.now()
	out := make([]models.Quote, 0, len(symbols))
	c.mu.RLock()
	for _, s := range symbols {
		e, ok := c.quotes[s]
		if !ok || c.stale(e, now) {
			continue
		}
		out = append(out, e.q)
	}
	c.mu.RUnlock()

	if len(out) == 0 && !c.Connected() {
		return nil, ErrNotConnected
	}
	return out, nil
}

// LastPrice - последняя известная цена без проверки свежести.
func (c *Client) LastPrice(symbol string) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.quotes[symbol]
	if !ok || e.q.Price <= 0 {
		return 0, false
	}
	return e.q.Price, true
}

// TopMovers ранжирует кэш по change rate, лучшие первыми.
func (c *Client) TopMovers(_ context.Context, f strategy.RankingFilter) ([]string, error) {
	now := c.now()
	c.mu.RLock()
	cands := make([]models.Quote, 0, len(c.quotes))
	for _, e := range c.quotes {
		if c.stale(e, now) {
			continue
		}
		q := e.q
		if q.ChangeRate < f.MinChangeRate || (f.MaxChangeRate > 0 && q.ChangeRate > f.MaxChangeRate) {
			continue
		}
		if q.Price < f.MinPrice || q.Volume < f.MinVolume {
			continue
		}
		cands = append(cands, q)
	}
	c.mu.RUnlock()

	sort.Slice(cands, func(i, j int) bool {
		if cands[i].ChangeRate != cands[j].ChangeRate {
			return cands[i].ChangeRate > cands[j].ChangeRate
		}
		return cands[i].Symbol < cands[j].Symbol
	})
	if f.Count > 0 && len(cands) > f.Count {
		cands = cands[:f.Count]
	}

	out := make([]string, 0, len(cands))
	for _, q := range cands {
		out = append(out, q.Symbol)
	}
	return out, nil
}

func (c *Client) stale(e entry, now time.Time) bool {
	return c.cfg.StaleAfter > 0 && now.Sub(e.seen) > c.cfg.StaleAfter
}

func (c *Client) store(quotes []models.Quote) {
	now := c.now()
	c.mu.Lock()
	for _, q := range quotes {
		if q.Symbol == "" || q.Price <= 0 {
			continue
		}
		c.quotes[q.Symbol] = entry{q: q, seen: now}
	}
	c.mu.Unlock()
}

func (c *Client) subscribed() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.subs))
	for s := range c.subs {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

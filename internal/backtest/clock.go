package backtest

import (
	"sync"
	"time"
)

// SimClock - часы симуляции. Тот же экземпляр отдаётся движку через strategy.WithClock.
type SimClock struct {
	mu sync.RWMutex
	t  time.Time
}

func NewSimClock(t time.Time) *SimClock {
	return &SimClock{t: t}
}

func (c *SimClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.t
}

func (c *SimClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"momentum_bot/internal/models"
	"momentum_bot/pkg/logger"
)

type PriceSource interface {
	LastPrice(symbol string) (int64, bool)
}

// Paper - бумажный брокер: исполняет всё сразу и целиком.
// Рынок по последней цене фида, лимит по своей цене.
type Paper struct {
	prices PriceSource
	now    func() time.Time

	mu     sync.Mutex
	orders []models.OrderResult
}

func NewPaper(prices PriceSource) *Paper {
	return &Paper{prices: prices, now: time.Now}
}

func (p *Paper) Submit(ctx context.Context, o models.Order) (res models.OrderResult, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Paper.Submit: %w", err)
		}
	}()
	if err = ctx.Err(); err != nil {
		return models.OrderResult{}, err
	}

	res = models.OrderResult{
		Symbol:    o.Symbol,
		Side:      o.Side,
		Timestamp: p.now(),
	}

	price := o.LimitPrice
	if o.Type == models.OrderMarket || price <= 0 {
		last, ok := p.prices.LastPrice(o.Symbol)
		if !ok {
			res.Message = "no price for " + o.Symbol
			logger.Warn("paper: reject %s %s: %s", o.Side, o.Symbol, res.Message)
			return res, nil
		}
		price = last
	}
	if o.Quantity <= 0 {
		res.Message = "quantity must be positive"
		return res, nil
	}

	res.Success = true
	res.FilledQty = o.Quantity
	res.FilledPrice = price
	res.OrderRef = "paper-" + uuid.NewString()

	p.mu.Lock()
	p.orders = append(p.orders, res)
	p.mu.Unlock()

	logger.Info("paper: %s %s x%d @ %d ref=%s", o.Side, o.Symbol, o.Quantity, price, res.OrderRef)
	return res, nil
}

// Filled returns a copy of every successful fill in submission order.
func (p *Paper) Filled() []models.OrderResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.OrderResult(nil), p.orders...)
}

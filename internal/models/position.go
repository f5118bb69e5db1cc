package models

import "time"

// PositionState - открытая позиция, которой владеет движок.
type PositionState struct {
	Symbol         string
	BuyPrice       int64 // volume-weighted average
	Quantity       int64
	InvestedAmount int64
	HighSinceBuy   int64
	BuyTime        time.Time
	Hedge          bool
}

func NewPosition(symbol string, price, qty int64, at time.Time, hedge bool) *PositionState {
	return &PositionState{
		Symbol:         symbol,
		BuyPrice:       price,
		Quantity:       qty,
		InvestedAmount: price * qty,
		HighSinceBuy:   price,
		BuyTime:        at,
		Hedge:          hedge,
	}
}

// Exposure is the position's cost basis at the average price.
func (p *PositionState) Exposure() int64 {
	return p.BuyPrice * p.Quantity
}

// PnLPct - нереализованный результат в процентах к средней цене.
func (p *PositionState) PnLPct(price int64) float64 {
	if p.BuyPrice <= 0 {
		return 0
	}
	return float64(price-p.BuyPrice) / float64(p.BuyPrice) * 100
}

func (p *PositionState) PnLAmount(price int64) int64 {
	return (price - p.BuyPrice) * p.Quantity
}

// Mark raises the high-water mark.
func (p *PositionState) Mark(price int64) {
	if price > p.HighSinceBuy {
		p.HighSinceBuy = price
	}
}

// DrawdownFromHighPct is <= 0; 0 when price is at or above the high.
func (p *PositionState) DrawdownFromHighPct(price int64) float64 {
	if p.HighSinceBuy <= 0 {
		return 0
	}
	return float64(price-p.HighSinceBuy) / float64(p.HighSinceBuy) * 100
}

// DailyRiskState - дневные счётчики, сбрасываются при смене даты.
type DailyRiskState struct {
	Day              string
	RealizedGrossPnL int64
	RealizedNetPnL   int64
	FeesPaid         int64
	TaxesPaid        int64
	TradeCount       int
	Halted           bool
	HaltDate         string
}

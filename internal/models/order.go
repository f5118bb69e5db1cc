package models

import "time"

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType - коды типов заявок брокера.
type OrderType string

const (
	OrderLimit       OrderType = "00"
	OrderMarket      OrderType = "01"
	OrderConditional OrderType = "02"
	OrderBest        OrderType = "03"
	OrderPriority    OrderType = "04"
	OrderPreMarket   OrderType = "05"
	OrderPostMarket  OrderType = "06"
	OrderTimeExt     OrderType = "07"
)

// Order is the only thing a strategy emits.
type Order struct {
	Symbol     string
	Side       Side
	Type       OrderType
	Quantity   int64
	LimitPrice int64 // 0 = market
	Reason     string
}

// OrderResult is the execution feedback for one Order.
type OrderResult struct {
	Success     bool
	Symbol      string
	Side        Side
	FilledQty   int64
	FilledPrice int64
	OrderRef    string
	Message     string
	Timestamp   time.Time
}

// Notional returns LimitPrice*Quantity, 0 for market orders.
func (o Order) Notional() int64 {
	return o.LimitPrice * o.Quantity
}

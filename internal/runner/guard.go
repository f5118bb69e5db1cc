package runner

import (
	"github.com/pkg/errors"

	"momentum_bot/internal/models"
)

var (
	ErrZeroQuantity   = errors.New("quantity must be positive")
	ErrOrderTooLarge  = errors.New("order notional exceeds max order amount")
	ErrTooManyInBatch = errors.New("too many orders in one batch")
)

// RiskGuard - последняя проверка перед отправкой брокеру.
// Нули отключают соответствующий лимит.
type RiskGuard struct {
	MaxOrderAmount    int64 `yaml:"max_order_amount"`
	MaxOrdersPerBatch int   `yaml:"max_orders_per_batch"`
}

type Rejection struct {
	Order models.Order
	Err   error
}

// Check validates a single order. Sells are never blocked by the notional cap.
func (g RiskGuard) Check(o models.Order) error {
	if o.Quantity <= 0 {
		return ErrZeroQuantity
	}
	if o.Side == models.SideBuy && g.MaxOrderAmount > 0 && o.LimitPrice > 0 {
		if n := o.Notional(); n > g.MaxOrderAmount {
			return errors.Wrapf(ErrOrderTooLarge, "%s notional %d > %d", o.Symbol, n, g.MaxOrderAmount)
		}
	}
	return nil
}

// Filter keeps emission order. Sells are never dropped by the batch cap.
func (g RiskGuard) Filter(orders []models.Order) (accepted []models.Order, rejected []Rejection) {
	for _, o := range orders {
		if err := g.Check(o); err != nil {
			rejected = append(rejected, Rejection{Order: o, Err: err})
			continue
		}
		if g.MaxOrdersPerBatch > 0 && len(accepted) >= g.MaxOrdersPerBatch && o.Side == models.SideBuy {
			rejected = append(rejected, Rejection{Order: o, Err: ErrTooManyInBatch})
			continue
		}
		accepted = append(accepted, o)
	}
	return accepted, rejected
}

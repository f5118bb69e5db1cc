package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"momentum_bot/internal/metrics"
	"momentum_bot/internal/models"
	"momentum_bot/internal/strategy"
	"momentum_bot/pkg/logger"
	"momentum_bot/pkg/tracing"
)

const DefaultChunkSize = 30

type QuoteSource interface {
	BatchQuotes(ctx context.Context, symbols []string) ([]models.Quote, error)
}

// OrderGateway: ошибка = транспорт; отказ брокера приходит как Success=false.
type OrderGateway interface {
	Submit(ctx context.Context, o models.Order) (models.OrderResult, error)
}

type Journal interface {
	SaveFill(ctx context.Context, runID string, o models.Order, res models.OrderResult) error
}

type Alerter interface {
	Send(msg string)
	Alert(key, msg string) bool
}

type HealthState interface {
	SetReady(v bool)
	TouchTick(t time.Time)
	SetHalted(v bool)
	SetOpenPositions(n int)
}

// Engine - то, что раннер читает у стратегии помимо Strategy.
type Engine interface {
	strategy.Strategy
	Halted() bool
	HaltReason() strategy.HaltReason
	Positions() []models.PositionState
	Daily() models.DailyRiskState
	RegimeScore() int
}

type Config struct {
	TickInterval      time.Duration `yaml:"tick_interval"`
	ChunkSize         int           `yaml:"chunk_size"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	Guard             RiskGuard     `yaml:"risk_guard"`
}

type Deps struct {
	Engine  Engine
	Quotes  QuoteSource
	Gateway OrderGateway
	Alerts  Alerter     // optional
	Journal Journal     // optional
	Health  HealthState // optional
	Now     func() time.Time
}

type Runner struct {
	cfg Config
	Deps
	runID string
}

func New(cfg Config, d Deps) (*Runner, error) {
	if d.Engine == nil || d.Quotes == nil || d.Gateway == nil {
		return nil, fmt.Errorf("runner.New: engine, quotes and gateway are required")
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 10 * time.Second
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Runner{cfg: cfg, Deps: d, runID: uuid.NewString()}, nil
}

func (r *Runner) RunID() string { return r.runID }

// RunSession крутит батчи до отмены ctx или пока стратегия не скажет стоп.
// Отмена проверяется только между батчами: начатый батч доводится до конца.
func (r *Runner) RunSession(ctx context.Context) error {
	r.Engine.Initialize(ctx)
	if r.Health != nil {
		r.Health.SetReady(true)
		defer r.Health.SetReady(false)
	}
	logger.Info("runner: session %s started, tick=%s chunk=%d", r.runID, r.cfg.TickInterval, r.cfg.ChunkSize)
	r.alert("session", fmt.Sprintf("📈 session started (%s)", r.runID))

	if r.cfg.HeartbeatInterval > 0 && r.Alerts != nil {
		hbCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go r.heartbeatLoop(hbCtx)
	}

	ticker := time.NewTicker(r.cfg.TickInterval)
	defer ticker.Stop()

	batchCtx := context.WithoutCancel(ctx)
	for {
		if ctx.Err() != nil {
			logger.Info("runner: session %s cancelled", r.runID)
			return nil
		}

		r.runBatch(batchCtx)

		if !r.Engine.ShouldContinue() {
			d := r.Engine.Daily()
			logger.Info("runner: session %s finished, halted=%s net=%d", r.runID, r.Engine.HaltReason(), d.RealizedNetPnL)
			if r.Alerts != nil {
				r.Alerts.Send(fmt.Sprintf("🏁 session finished: %s, net %d", r.Engine.HaltReason(), d.RealizedNetPnL))
			}
			return nil
		}

		select {
		case <-ctx.Done():
			logger.Info("runner: session %s cancelled", r.runID)
			return nil
		case <-ticker.C:
		}
	}
}

func (r *Runner) runBatch(ctx context.Context) {
	span, ctx := tracing.Start(ctx, "runner.batch")
	defer span.Finish()

	symbols := r.Engine.Watchlist(ctx)
	quotes := r.fetch(ctx, symbols)
	span.Tag("symbols", len(symbols))
	span.Tag("quotes", len(quotes))

	if r.Health != nil {
		r.Health.TouchTick(r.Now())
	}
	if len(quotes) == 0 {
		logger.Warn("runner: no quotes for %d symbols", len(symbols))
		return
	}

	wasHalted := r.Engine.Halted()
	orders := r.Engine.OnBatchTick(quotes)
	metrics.ObserveOrders(orders)
	span.Tag("orders", len(orders))

	if !wasHalted && r.Engine.Halted() {
		reason := r.Engine.HaltReason()
		metrics.Halts.WithLabelValues(string(reason)).Inc()
		d := r.Engine.Daily()
		logger.Warn("runner: trading halted: %s (net=%d)", reason, d.RealizedNetPnL)
		r.alert("halt:"+string(reason), fmt.Sprintf("🛑 trading halted: %s, realized net %d", reason, d.RealizedNetPnL))
	}

	accepted, rejected := r.cfg.Guard.Filter(orders)
	for _, rj := range rejected {
		metrics.Rejected.Inc()
		logger.Warn("runner: guard rejected %s %s x%d: %v", rj.Order.Side, rj.Order.Symbol, rj.Order.Quantity, rj.Err)
		res := failedResult(rj.Order, rj.Err.Error(), r.Now())
		metrics.ObserveResult(res)
		r.Engine.OnOrderFilled(res)
	}

	for _, o := range accepted {
		res, err := r.Gateway.Submit(ctx, o)
		if err != nil {
			logger.Error("runner: submit %s %s: %v", o.Side, o.Symbol, err)
			span.Fail(err)
			res = failedResult(o, err.Error(), r.Now())
		}
		metrics.ObserveResult(res)
		r.Engine.OnOrderFilled(res)

		if res.Success {
			logger.Info("runner: filled %s %s x%d @ %d (%s)", res.Side, res.Symbol, res.FilledQty, res.FilledPrice, o.Reason)
			r.alert("fill:"+o.Symbol+":"+string(o.Side),
				fmt.Sprintf("✅ %s %s x%d @ %d (%s)", res.Side, res.Symbol, res.FilledQty, res.FilledPrice, o.Reason))
		}
		if r.Journal != nil {
			if err := r.Journal.SaveFill(ctx, r.runID, o, res); err != nil {
				logger.Error("runner: journal: %v", err)
			}
		}
	}

	r.observeState()
}

func (r *Runner) fetch(ctx context.Context, symbols []string) []models.Quote {
	out := make([]models.Quote, 0, len(symbols))
	for i := 0; i < len(symbols); i += r.cfg.ChunkSize {
		end := i + r.cfg.ChunkSize
		if end > len(symbols) {
			end = len(symbols)
		}
		qs, err := r.Quotes.BatchQuotes(ctx, symbols[i:end])
		if err != nil {
			logger.Error("runner: quotes %d..%d: %v", i, end, err)
			continue
		}
		out = append(out, qs...)
	}
	return out
}

func (r *Runner) observeState() {
	positions := r.Engine.Positions()
	d := r.Engine.Daily()
	metrics.OpenPositions.Set(float64(len(positions)))
	metrics.RealizedNet.Set(float64(d.RealizedNetPnL))
	metrics.Regime.Set(float64(r.Engine.RegimeScore()))
	if r.Health != nil {
		r.Health.SetHalted(d.Halted)
		r.Health.SetOpenPositions(len(positions))
	}
}

func (r *Runner) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Alerts.Send("🩺 " + r.Status())
		}
	}
}

func (r *Runner) alert(key, msg string) {
	if r.Alerts != nil {
		r.Alerts.Alert(key, msg)
	}
}

func failedResult(o models.Order, msg string, at time.Time) models.OrderResult {
	return models.OrderResult{
		Success:   false,
		Symbol:    o.Symbol,
		Side:      o.Side,
		Message:   msg,
		Timestamp: at,
	}
}

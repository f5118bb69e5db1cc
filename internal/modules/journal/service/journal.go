package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"momentum_bot/internal/backtest"
	"momentum_bot/internal/models"
	"momentum_bot/pkg/db"
)

var ErrNotFound = errors.New("journal: not found")

// Fill - строка журнала исполнений.
type Fill struct {
	RunID  string
	Order  models.Order
	Result models.OrderResult
}

// Journal пишет исполнения live-сессий и итоги бэктестов в postgres.
type Journal struct {
	db  db.TxManager
	now func() time.Time
}

func New(tm db.TxManager) *Journal {
	return &Journal{db: tm, now: time.Now}
}

func (j *Journal) EnsureSchema(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Journal.EnsureSchema: %w", err)
		}
	}()
	return j.db.RunMaster(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		_, err := tx.Exec(ctxTx, schemaSQL)
		return err
	})
}

func (j *Journal) SaveFill(ctx context.Context, runID string, o models.Order, res models.OrderResult) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Journal.SaveFill: %w", err)
		}
	}()

	at := res.Timestamp
	if at.IsZero() {
		at = j.now()
	}
	return j.db.RunMaster(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		_, err := tx.Exec(ctxTx, insertFillSQL,
			runID, o.Symbol, string(o.Side), string(o.Type), o.Reason, o.Quantity, o.LimitPrice,
			res.Success, res.FilledQty, res.FilledPrice, res.OrderRef, res.Message, at,
		)
		return err
	})
}

func (j *Journal) Fills(ctx context.Context, runID string) (out []Fill, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Journal.Fills: %w", err)
		}
	}()

	err = j.db.RunRepeatableRead(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		rows, err := tx.Query(ctxTx, selectFillsSQL, runID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				f          Fill
				side, kind string
			)
			if err := rows.Scan(
				&f.RunID, &f.Order.Symbol, &side, &kind, &f.Order.Reason, &f.Order.Quantity, &f.Order.LimitPrice,
				&f.Result.Success, &f.Result.FilledQty, &f.Result.FilledPrice, &f.Result.OrderRef, &f.Result.Message,
				&f.Result.Timestamp,
			); err != nil {
				return err
			}
			f.Order.Side = models.Side(side)
			f.Order.Type = models.OrderType(kind)
			f.Result.Symbol = f.Order.Symbol
			f.Result.Side = f.Order.Side
			out = append(out, f)
		}
		return rows.Err()
	})
	return out, err
}

// SaveBacktest пишет сводку, полный отчёт (jsonb) и сделки одной транзакцией.
func (j *Journal) SaveBacktest(ctx context.Context, r *backtest.Result) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Journal.SaveBacktest: %w", err)
		}
	}()

	report, err := sonic.Marshal(r)
	if err != nil {
		return err
	}

	return j.db.RunMaster(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		if _, err := tx.Exec(ctxTx, insertRunSQL,
			r.RunID, r.Start, r.End, r.InitialCapital, r.FinalCapital,
			r.TotalTrades, r.WinRate(), r.MaxDrawdownPct(), report,
		); err != nil {
			return err
		}
		if len(r.Trades) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for i, t := range r.Trades {
			batch.Queue(insertTradeSQL,
				r.RunID, i, t.Date, t.Time, t.Symbol, string(t.Side), t.Quantity, t.Price,
				t.Commission, t.Tax, t.PnL, t.Reason, t.Forced,
			)
		}
		br := tx.SendBatch(ctxTx, batch)
		for i := range r.Trades {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("trade %d: %w", i, err)
			}
		}
		return br.Close()
	})
}

// Backtest reads a stored run back from its report blob.
func (j *Journal) Backtest(ctx context.Context, runID string) (r *backtest.Result, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Journal.Backtest: %w", err)
		}
	}()

	var (
		report []byte
		trades int
	)
	err = j.db.RunRepeatableRead(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		if err := tx.QueryRow(ctxTx, selectRunReportSQL, runID).Scan(&report); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		return tx.QueryRow(ctxTx, countRunTradesSQL, runID).Scan(&trades)
	})
	if err != nil {
		return nil, err
	}

	r = &backtest.Result{}
	if err := sonic.Unmarshal(report, r); err != nil {
		return nil, err
	}
	if trades != len(r.Trades) {
		return nil, fmt.Errorf("run %s: %d trade rows, report has %d", runID, trades, len(r.Trades))
	}
	return r, nil
}

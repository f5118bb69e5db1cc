package service

const schemaSQL = `
CREATE TABLE IF NOT EXISTS fills (
    id           BIGSERIAL PRIMARY KEY,
    run_id       TEXT        NOT NULL,
    symbol       TEXT        NOT NULL,
    side         TEXT        NOT NULL,
    order_type   TEXT        NOT NULL,
    reason       TEXT        NOT NULL DEFAULT '',
    quantity     BIGINT      NOT NULL,
    limit_price  BIGINT      NOT NULL DEFAULT 0,
    success      BOOLEAN     NOT NULL,
    filled_qty   BIGINT      NOT NULL DEFAULT 0,
    filled_price BIGINT      NOT NULL DEFAULT 0,
    order_ref    TEXT        NOT NULL DEFAULT '',
    message      TEXT        NOT NULL DEFAULT '',
    filled_at    TIMESTAMPTZ NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS fills_run_id_idx ON fills (run_id, id);

CREATE TABLE IF NOT EXISTS backtest_runs (
    run_id          TEXT PRIMARY KEY,
    start_day       DATE             NOT NULL,
    end_day         DATE             NOT NULL,
    initial_capital BIGINT           NOT NULL,
    final_capital   BIGINT           NOT NULL,
    total_trades    INT              NOT NULL,
    win_rate        DOUBLE PRECISION NOT NULL,
    max_drawdown    DOUBLE PRECISION NOT NULL,
    report          JSONB            NOT NULL,
    created_at      TIMESTAMPTZ      NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS backtest_trades (
    run_id     TEXT        NOT NULL REFERENCES backtest_runs (run_id) ON DELETE CASCADE,
    seq        INT         NOT NULL,
    day        TEXT        NOT NULL,
    traded_at  TIMESTAMPTZ NOT NULL,
    symbol     TEXT        NOT NULL,
    side       TEXT        NOT NULL,
    quantity   BIGINT      NOT NULL,
    price      BIGINT      NOT NULL,
    commission BIGINT      NOT NULL,
    tax        BIGINT      NOT NULL,
    pnl        BIGINT      NOT NULL,
    reason     TEXT        NOT NULL DEFAULT '',
    forced     BOOLEAN     NOT NULL DEFAULT false,
    PRIMARY KEY (run_id, seq)
);
`

const insertFillSQL = `
INSERT INTO fills (
    run_id, symbol, side, order_type, reason, quantity, limit_price,
    success, filled_qty, filled_price, order_ref, message, filled_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

const selectFillsSQL = `
SELECT run_id, symbol, side, order_type, reason, quantity, limit_price,
       success, filled_qty, filled_price, order_ref, message, filled_at
FROM fills
WHERE run_id = $1
ORDER BY id`

const insertRunSQL = `
INSERT INTO backtest_runs (
    run_id, start_day, end_day, initial_capital, final_capital,
    total_trades, win_rate, max_drawdown, report
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

const insertTradeSQL = `
INSERT INTO backtest_trades (
    run_id, seq, day, traded_at, symbol, side, quantity, price,
    commission, tax, pnl, reason, forced
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

const selectRunReportSQL = `SELECT report FROM backtest_runs WHERE run_id = $1`

const countRunTradesSQL = `SELECT count(*) FROM backtest_trades WHERE run_id = $1`

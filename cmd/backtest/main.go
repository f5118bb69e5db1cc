package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/fx"

	"momentum_bot/internal/backtest"
	"momentum_bot/internal/modules/bars"
	barsvc "momentum_bot/internal/modules/bars/service"
	"momentum_bot/internal/modules/config"
	"momentum_bot/internal/modules/journal"
	journalsvc "momentum_bot/internal/modules/journal/service"
	"momentum_bot/internal/modules/postgres"
	"momentum_bot/internal/strategy"
	"momentum_bot/pkg/logger"
)

const dateLayout = "2006-01-02"

type options struct {
	ConfigPath string
	Start      string
	End        string
	DataDir    string
	Capital    int64
	Symbols    []string
	All        bool
	Journal    bool
	OutJSON    string
}

// flags: --start/--end, env: BACKTEST_START, BACKTEST_END, ...
func parseOptions(args []string) (options, error) {
	fs := pflag.NewFlagSet("backtest", pflag.ContinueOnError)
	fs.String("config", "configs/values_local.yaml", "yaml config path")
	fs.String("start", "", "first day, YYYY-MM-DD")
	fs.String("end", "", "last day, YYYY-MM-DD (default: start)")
	fs.String("data-dir", "", "bar directory (overrides data.bar_dir)")
	fs.Int64("capital", 0, "initial capital (overrides backtest.initial_capital)")
	fs.StringSlice("symbols", nil, "symbols to replay (default: strategy watchlist)")
	fs.Bool("all", false, "replay every symbol in the bar store")
	fs.Bool("journal", false, "store the run in postgres (db_dsn)")
	fs.String("out", "", "write the full result as JSON to this path")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	v := viper.New()
	v.SetEnvPrefix("BACKTEST")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return options{}, errors.Wrap(err, "bind flags")
	}

	o := options{
		ConfigPath: v.GetString("config"),
		Start:      v.GetString("start"),
		End:        v.GetString("end"),
		DataDir:    v.GetString("data-dir"),
		Capital:    v.GetInt64("capital"),
		Symbols:    v.GetStringSlice("symbols"),
		All:        v.GetBool("all"),
		Journal:    v.GetBool("journal"),
		OutJSON:    v.GetString("out"),
	}
	if o.Start == "" {
		return o, errors.New("--start is required")
	}
	if o.End == "" {
		o.End = o.Start
	}
	if o.All && len(o.Symbols) > 0 {
		return o, errors.New("--all and --symbols are mutually exclusive")
	}
	return o, nil
}

func loadConfig(o options) (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	if o.DataDir != "" {
		cfg.Data.BarDir = o.DataDir
	}
	if o.Capital > 0 {
		cfg.Backtest.InitialCapital = o.Capital
	}
	if !o.Journal {
		cfg.DB = ""
	}
	return cfg, nil
}

func dayRange(o options, loc *time.Location) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(dateLayout, o.Start, loc)
	if err != nil {
		return time.Time{}, time.Time{}, errors.Wrap(err, "parse start")
	}
	end, err := time.ParseInLocation(dateLayout, o.End, loc)
	if err != nil {
		return time.Time{}, time.Time{}, errors.Wrap(err, "parse end")
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.Errorf("end %s is before start %s", o.End, o.Start)
	}
	return start, end, nil
}

func simulate(ctx context.Context, cfg *config.Config, store backtest.BarSource, o options) (*backtest.Result, error) {
	// один пояс на движок и симулятор, иначе день сменится посреди сессии
	loc := cfg.Strategy.Location
	bcfg := cfg.Backtest
	bcfg.Location = loc
	bcfg.Timezone = cfg.Strategy.Timezone

	start, end, err := dayRange(o, loc)
	if err != nil {
		return nil, err
	}

	clock := backtest.NewSimClock(start)
	opts := []strategy.Option{strategy.WithClock(clock)}
	if len(o.Symbols) > 0 {
		opts = append(opts, strategy.WithPoolOverride(o.Symbols))
	}
	// движок и симулятор считают издержки по одной модели
	scfg := cfg.Strategy
	scfg.Costs = bcfg.Costs()
	eng, err := strategy.New(scfg, strategy.ModeBacktest, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "strategy")
	}

	sim, err := backtest.NewSimulator(bcfg, eng, store, clock, o.Symbols)
	if err != nil {
		return nil, err
	}
	return sim.Run(ctx, start, end)
}

func writeJSON(path string, r *backtest.Result) error {
	body, err := sonic.ConfigStd.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal result")
	}
	return errors.Wrap(os.WriteFile(path, body, 0o644), "write result")
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	o, err := parseOptions(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Service.LogLevel, "momentum_backtest"); err != nil {
		return err
	}
	defer logger.Sync()

	var (
		store *barsvc.Store
		j     *journalsvc.Journal
	)
	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg),
		fx.Provide(func() context.Context { return ctx }),
		bars.Module(),
		postgres.Module(),
		journal.Module(),
		fx.Populate(&store, &j),
	)
	if err := app.Start(ctx); err != nil {
		return errors.Wrap(err, "start")
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = app.Stop(stopCtx)
	}()

	if o.All {
		if o.Symbols, err = store.Symbols(); err != nil {
			return err
		}
		if len(o.Symbols) == 0 {
			return errors.Errorf("no bars in %s", cfg.Data.BarDir)
		}
	}

	res, err := simulate(ctx, cfg, store, o)
	if err != nil {
		return err
	}

	if err := backtest.WriteReport(stdout, res, cfg.Strategy.DailyProfitTarget, cfg.Strategy.DailyLossLimit); err != nil {
		return err
	}
	if o.OutJSON != "" {
		if err := writeJSON(o.OutJSON, res); err != nil {
			return err
		}
	}
	if j != nil {
		if err := j.SaveBacktest(ctx, res); err != nil {
			return err
		}
		logger.Info("backtest: run %s stored", res.RunID)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "backtest:", err)
		stop()
		os.Exit(1)
	}
}

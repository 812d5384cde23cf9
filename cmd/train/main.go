package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"StockCast/internal/di"
	"StockCast/pkg/config"
	applogger "StockCast/pkg/logger"
	"StockCast/pkg/util"
)

func main() {
	configPath := flag.String("config", "", "YAML config file; built-in defaults when empty")
	symbols := flag.String("symbols", "", "comma-separated symbols to train (defaults to the calibration watchlist)")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	list := cfg.Calibration.Watchlist
	if *symbols != "" {
		list = util.SplitCSV(*symbols)
	}
	if len(list) == 0 {
		fmt.Fprintln(os.Stderr, "no symbols: pass -symbols or set calibration.watchlist")
		os.Exit(2)
	}

	l, err := applogger.New(&applogger.Config{Level: cfg.Log.Level, Format: "console", Output: "stderr"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	training, err := di.InitializeTraining(cfg)
	if err != nil {
		l.Error("training initialization failed", applogger.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	failed := 0
	for _, s := range list {
		out, err := training.Train(ctx, s)
		if err != nil {
			l.Error("training failed", applogger.String("symbol", s), applogger.Error(err))
			failed++
			continue
		}
		for _, m := range out {
			l.Info("model trained",
				applogger.String("symbol", s),
				applogger.String("model", string(m.Kind)),
				applogger.Int("samples", m.Samples),
				applogger.String("dir", cfg.Ensemble.ModelDir),
			)
		}
	}
	l.Info("training finished", applogger.Int("symbols", len(list)), applogger.Int("failed", failed))
	if failed > 0 {
		os.Exit(1)
	}
}

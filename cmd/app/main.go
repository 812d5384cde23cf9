package main

import (
	"flag"
	"fmt"
	"os"

	"StockCast/internal/di"
	"StockCast/pkg/config"
	applogger "StockCast/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "YAML config file; built-in defaults when empty")
	checkOnly := flag.Bool("check", false, "validate the configuration and exit")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if *checkOnly {
		fmt.Println("config ok")
		return
	}

	boot, err := applogger.New(&applogger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: "stderr"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	boot.Info("starting stockcast",
		applogger.String("env", cfg.Environment),
		applogger.String("history", cfg.History.Source),
		applogger.String("models", cfg.Ensemble.ModelSource),
		applogger.String("calibration_store", cfg.Calibration.Store),
	)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		boot.Error("app initialization failed", applogger.Error(err))
		os.Exit(1)
	}
	if err := app.Run(); err != nil {
		boot.Error("app stopped with error", applogger.Error(err))
		os.Exit(1)
	}
}

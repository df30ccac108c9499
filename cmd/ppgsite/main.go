/*
Copyright © 2025 Private Practice Guide.

Released under MIT license.
*/

// Command ppgsite runs the Private Practice Guide site backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	golog "log"
	"os"

	"github.com/joho/godotenv"

	"github.com/ppguide/site/internal/app"
	"github.com/ppguide/site/internal/libinfo"
	"github.com/ppguide/site/log"
	"github.com/ppguide/site/service"
)

func main() {
	if err := run(); err != nil {
		golog.Fatal(err)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	envPath := flag.String("env", ".env", "path to the dotenv file, ignored if missing")
	flag.Parse()

	if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", *envPath, err)
	}

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	for _, secret := range []string{cfg.Kit.APIKey, cfg.RateLimit.Redis.Password} {
		if secret != "" {
			cfg.Log.Masking.Secrets = append(cfg.Log.Masking.Secrets, secret)
		}
	}
	logger, loggerClose := log.NewLogger(cfg.Log)
	defer loggerClose()

	logger.Info("starting "+libinfo.AppName, log.String("version", libinfo.GetVersion()))

	a, err := app.New(context.Background(), cfg, logger, app.Opts{})
	if err != nil {
		logger.Error("failed to create application", log.Error(err))
		return err
	}
	return service.New(logger, a).Start()
}

// Command pms7003 reads a PMS7003 air-quality sensor over a serial line.
//
// Run "pms7003 write" against one end of a socat pty pair
// (socat -d -d pty,raw,echo=0 pty,raw,echo=0) and "pms7003 read" or
// "pms7003 watch" against the other to exercise the reader without hardware.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	pms7003 "github.com/luhtfiimanal/go-pms7003"
	"github.com/luhtfiimanal/go-pms7003/internal/config"
	"github.com/luhtfiimanal/go-pms7003/internal/logging"
)

func main() {
	var (
		configFile string
		device     string
		logLevel   string
	)

	app := &cli.App{
		Name:    "pms7003",
		Usage:   "read particulate matter measurements from a PMS7003 sensor",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "YAML configuration file",
				Destination: &configFile,
			},
			&cli.StringFlag{
				Name:        "device",
				Aliases:     []string{"d"},
				Usage:       "serial device, overrides serial.device",
				Destination: &device,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "debug, info, warn or error, overrides logging.level",
				Destination: &logLevel,
			},
		},
		Before: func(c *cli.Context) error {
			cfg := config.Default()
			if configFile != "" {
				var err error
				if cfg, err = config.Load(configFile); err != nil {
					return err
				}
			}
			if device != "" {
				cfg.Serial.Device = device
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}
			log := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
			slog.SetDefault(log)
			c.App.Metadata = map[string]any{"config": cfg, "log": log}
			return nil
		},
		Commands: []*cli.Command{
			readCommand(),
			watchCommand(),
			writeCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		slog.Error("pms7003", "err", err)
		os.Exit(1)
	}
}

func appConfig(c *cli.Context) (*config.Config, *slog.Logger) {
	return c.App.Metadata["config"].(*config.Config), c.App.Metadata["log"].(*slog.Logger)
}

func portConfig(cfg *config.Config) pms7003.Config {
	return pms7003.Config{
		Device:      cfg.Serial.Device,
		BaudRate:    cfg.Serial.BaudRate,
		ReadTimeout: cfg.Serial.ReadTimeout,
	}
}

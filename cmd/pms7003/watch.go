package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	pms7003 "github.com/luhtfiimanal/go-pms7003"
	"github.com/luhtfiimanal/go-pms7003/internal/config"
	"github.com/luhtfiimanal/go-pms7003/internal/publish"
)

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "read in the background, log and publish measurements periodically",
		Action: func(c *cli.Context) error {
			cfg, log := appConfig(c)
			return watch(c.Context, cfg, log)
		},
	}
}

func watch(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	log = log.With("device", cfg.Serial.Device)

	var metrics pms7003.Metrics = pms7003.NopMetrics{}
	if cfg.Metrics.Listen != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		pm, err := pms7003.NewPrometheusMetrics(reg, prometheus.Labels{"device": cfg.Serial.Device})
		if err != nil {
			return err
		}
		metrics = pm

		ln, err := net.Listen("tcp", cfg.Metrics.Listen)
		if err != nil {
			return fmt.Errorf("metrics listener: %w", err)
		}
		srv := &http.Server{
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server", "err", err)
			}
		}()
		defer srv.Close()
		log.Info("serving metrics", "listen", ln.Addr().String())
	}

	var publisher *publish.Publisher
	if cfg.MQTT.Broker != "" {
		publisher = publish.New(cfg.MQTT, log)
		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := publisher.Connect(connectCtx)
		cancel()
		if err != nil {
			publisher.Close()
			return err
		}
		defer publisher.Close()
	}

	sensor, err := pms7003.Open(portConfig(cfg))
	if err != nil {
		return err
	}
	if cfg.Worker.Wakeup {
		if err := sensor.Wakeup(); err != nil {
			sensor.Close()
			return err
		}
	}

	worker := pms7003.NewWorker(sensor, pms7003.WorkerConfig{
		MaxFailures: cfg.Worker.MaxFailures,
		Logger:      log,
		Metrics:     metrics,
	})
	if err := worker.Start(); err != nil {
		return err
	}
	defer func() {
		if err := worker.Stop(); err != nil {
			log.Warn("close sensor", "err", err)
		}
	}()

	ticker := time.NewTicker(cfg.Worker.DrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := worker.Stop(); err != nil {
				log.Warn("close sensor", "err", err)
			}
			flush(worker, publisher, log)
			return nil
		case <-worker.Done():
			flush(worker, publisher, log)
			return worker.Err()
		case <-ticker.C:
			flush(worker, publisher, log)
		}
	}
}

func flush(w *pms7003.Worker, publisher *publish.Publisher, log *slog.Logger) {
	ms := w.Measurements()
	for _, m := range ms {
		log.Info("measurement",
			"pm1_0", m.PM1_0Atm,
			"pm2_5", m.PM2_5Atm,
			"pm10", m.PM10Atm,
			"at", m.Timestamp,
		)
	}
	if publisher == nil || len(ms) == 0 {
		return
	}
	if _, err := publisher.PublishAll(ms); err != nil {
		log.Warn("publish measurements", "err", err)
	}
}

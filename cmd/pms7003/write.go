package main

import (
	"time"

	"github.com/urfave/cli/v2"

	pms7003 "github.com/luhtfiimanal/go-pms7003"
	"github.com/luhtfiimanal/go-pms7003/pmstest"
)

func writeCommand() *cli.Command {
	var (
		interval time.Duration
		seed     uint64
	)
	return &cli.Command{
		Name:  "write",
		Usage: "emit frames of fake sensor data, for loopback testing",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:        "interval",
				Usage:       "time between frames",
				Value:       time.Second,
				Destination: &interval,
			},
			&cli.Uint64Flag{
				Name:        "seed",
				Usage:       "random seed for generated values",
				Value:       uint64(time.Now().UnixNano()),
				Destination: &seed,
			},
		},
		Action: func(c *cli.Context) error {
			cfg, log := appConfig(c)

			port, err := pms7003.OpenPort(portConfig(cfg))
			if err != nil {
				return err
			}
			defer port.Close()
			log.Info("writing fake sensor frames", "device", port.Device(), "interval", interval)

			gen := pmstest.NewValues(seed)
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			written := 0
			for {
				if _, err := port.Write(pmstest.Frame(gen.Next())); err != nil {
					return err
				}
				written++
				log.Debug("wrote frame", "number", written)

				select {
				case <-c.Context.Done():
					log.Info("stopped", "frames", written)
					return nil
				case <-ticker.C:
				}
			}
		},
	}
}

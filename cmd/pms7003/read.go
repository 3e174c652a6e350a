package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	pms7003 "github.com/luhtfiimanal/go-pms7003"
)

func readCommand() *cli.Command {
	var count int
	return &cli.Command{
		Name:  "read",
		Usage: "print measurements until too many reads fail",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "count",
				Aliases:     []string{"n"},
				Usage:       "stop after this many measurements (0 reads forever)",
				Destination: &count,
			},
		},
		Action: func(c *cli.Context) error {
			cfg, log := appConfig(c)

			sensor, err := pms7003.Open(portConfig(cfg))
			if err != nil {
				return err
			}
			defer sensor.Close()

			if cfg.Worker.Wakeup {
				if err := sensor.Wakeup(); err != nil {
					return err
				}
			}

			failures, read := 0, 0
			for c.Context.Err() == nil {
				m, err := sensor.ReadMeasurement()
				if err != nil {
					failures++
					log.Warn("connection problem", "err", err, "failures", failures)
					if cfg.Worker.MaxFailures > 0 && failures == cfg.Worker.MaxFailures {
						return &pms7003.MaxFailuresError{Failures: failures, Last: err}
					}
					continue
				}
				fmt.Fprintln(c.App.Writer, m)
				read++
				if count > 0 && read == count {
					return nil
				}
			}
			return nil
		},
	}
}

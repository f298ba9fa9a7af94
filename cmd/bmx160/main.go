// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Command bmx160 drives a BMX160 on I2C and serves its readings.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/relabs-tech/bmx160/internal/config"
	"github.com/relabs-tech/bmx160/internal/logging"
)

const (
	flagConfig      = "config"
	flagAxis        = "axis"
	flagOut         = "out"
	flagGyroSamples = "gyro-samples"
	flagMagSamples  = "mag-samples"
	flagStaticDir   = "static"
)

var logger *zap.SugaredLogger

func main() {
	app := &cli.App{
		Name:  "bmx160",
		Usage: "drive a BMX160 inertial/magnetic sensor",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Value:   "bmx160_config.txt",
				Usage:   "load configuration from `FILE`",
			},
		},
		Before: func(c *cli.Context) error {
			if err := config.InitGlobal(c.String(flagConfig)); err != nil {
				return err
			}
			var err error
			logger, err = logging.New("bmx160", config.Get().LogLevel)
			return err
		},
		After: func(c *cli.Context) error {
			if logger != nil {
				_ = logger.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "probe",
				Usage:  "check the device answers and show its status registers",
				Action: probeAction,
			},
			{
				Name:  "read",
				Usage: "bring the device up and print one sample",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagAxis, Usage: "x, y, z or all (default AXIS_FILTER)"},
				},
				Action: readAction,
			},
			{
				Name:  "console",
				Usage: "print a sample every SAMPLE_INTERVAL until interrupted",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagAxis, Usage: "x, y, z or all (default AXIS_FILTER)"},
				},
				Action: consoleAction,
			},
			{
				Name:   "produce",
				Usage:  "publish samples and poses to MQTT and serve metrics",
				Action: produceAction,
			},
			{
				Name:   "console-mqtt",
				Usage:  "print samples and poses received over MQTT",
				Action: consoleMQTTAction,
			},
			{
				Name:  "web",
				Usage: "serve the latest sample over HTTP and websocket",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagStaticDir, Value: "web", Usage: "serve static files from `DIR`"},
				},
				Action: webAction,
			},
			{
				Name:   "display",
				Usage:  "show readings received over MQTT on an SSD1306 panel",
				Action: displayAction,
			},
			{
				Name:   "register-debug",
				Usage:  "serve the register debug tool",
				Action: registerDebugAction,
			},
			{
				Name:  "calibrate",
				Usage: "estimate gyroscope bias and magnetometer offsets",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagOut, Usage: "write results to `FILE` (default CALIBRATION_FILE)"},
					&cli.IntFlag{Name: flagGyroSamples, Value: 200},
					&cli.IntFlag{Name: flagMagSamples, Value: 600},
				},
				Action: calibrateAction,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "bmx160: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/bmx160/internal/app"
	"github.com/relabs-tech/bmx160/internal/bmx160"
	"github.com/relabs-tech/bmx160/internal/calibration"
	"github.com/relabs-tech/bmx160/internal/config"
	"github.com/relabs-tech/bmx160/internal/sensors"
)

func axisFlag(c *cli.Context, cfg *config.Config) bmx160.Axis {
	if c.IsSet(flagAxis) {
		return bmx160.ParseAxis(c.String(flagAxis))
	}
	return cfg.AxisFilter
}

func probeAction(c *cli.Context) (err error) {
	cfg := config.Get()
	dev, err := bmx160.Open(cfg.I2CBus, &bmx160.Opts{Addr: cfg.I2CAddr, Logger: logger})
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dev.Close()) }()

	if !dev.Probe() {
		return errors.Wrapf(bmx160.ErrNotPresent, "bus %s addr 0x%02X", cfg.I2CBus, cfg.I2CAddr)
	}
	id, err := dev.ChipID()
	if err != nil {
		return err
	}
	pmu, err := dev.PowerStatus()
	if err != nil {
		return err
	}
	errReg, err := dev.ErrorStatus()
	if err != nil {
		return err
	}
	fmt.Printf("%s on bus %s at 0x%02X\n", dev, cfg.I2CBus, dev.Addr())
	fmt.Printf("chip id:    0x%02X\n", id)
	fmt.Printf("pmu status: %s\n", pmu)
	fmt.Printf("err reg:    0x%02X\n", errReg)
	return nil
}

func readAction(c *cli.Context) (err error) {
	cfg := config.Get()
	src, err := sensors.NewIMUSource(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, src.Close()) }()

	s, err := src.ReadSample()
	if err != nil {
		return err
	}
	values := s.Measurement().Select(axisFlag(c, cfg))
	out, err := json.Marshal(values)
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func consoleAction(c *cli.Context) (err error) {
	cfg := config.Get()
	src, err := sensors.NewIMUSource(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, src.Close()) }()

	return app.RunConsole(c.Context, src, os.Stdout, app.ConsoleOpts{
		Interval: time.Duration(cfg.SampleInterval) * time.Millisecond,
		Axis:     axisFlag(c, cfg),
		Logger:   logger,
	})
}

func produceAction(c *cli.Context) (err error) {
	cfg := config.Get()
	if err := cfg.RequireMQTT(); err != nil {
		return err
	}
	src, err := sensors.NewIMUSource(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, src.Close()) }()

	if cfg.CalibrationFile != "" {
		cal, err := calibration.Load(cfg.CalibrationFile)
		switch {
		case errors.Is(err, os.ErrNotExist):
			logger.Warnf("producer: %s not found, publishing uncalibrated samples", cfg.CalibrationFile)
		case err != nil:
			return err
		default:
			src.SetCalibration(cal)
			logger.Infof("producer: applying calibration from %s (%s)", cfg.CalibrationFile, cal.Timestamp.Format(time.RFC3339))
		}
	}

	client, err := app.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDProducer, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	metrics := app.NewMetrics()
	p := &app.Producer{
		Source:      src,
		Publisher:   client,
		TopicSample: cfg.TopicSample,
		TopicPose:   cfg.TopicPose,
		Metrics:     metrics,
		Logger:      logger,
	}

	g, ctx := errgroup.WithContext(c.Context)
	g.Go(func() error {
		return app.Serve(ctx, fmt.Sprintf(":%d", cfg.MetricsPort), metrics.Handler(), logger)
	})
	g.Go(func() error {
		return p.Run(ctx, clock.New(), time.Duration(cfg.SampleInterval)*time.Millisecond)
	})
	return g.Wait()
}

func consoleMQTTAction(c *cli.Context) error {
	cfg := config.Get()
	if err := cfg.RequireMQTT(); err != nil {
		return err
	}
	client, err := app.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole, logger)
	if err != nil {
		return err
	}
	defer client.Close()
	return app.RunConsoleMQTT(c.Context, client, cfg.TopicSample, cfg.TopicPose, os.Stdout, logger)
}

func webAction(c *cli.Context) error {
	cfg := config.Get()
	if err := cfg.RequireMQTT(); err != nil {
		return err
	}
	client, err := app.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	ws := app.NewWebServer(c.String(flagStaticDir), logger)
	if err := ws.Subscribe(client, cfg.TopicSample, cfg.TopicPose); err != nil {
		return err
	}
	return app.Serve(c.Context, fmt.Sprintf(":%d", cfg.WebServerPort), ws.Handler(), logger)
}

func displayAction(c *cli.Context) (err error) {
	cfg := config.Get()
	if err := cfg.RequireMQTT(); err != nil {
		return err
	}
	dev, bus, err := app.OpenDisplay(cfg.I2CBus, cfg.DisplayI2CAddr)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Combine(err, dev.Halt(), bus.Close()) }()

	client, err := app.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDDisplay, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	data := &app.DisplayData{}
	if err := data.Subscribe(client, cfg.TopicSample, cfg.TopicPose, logger); err != nil {
		return err
	}
	return app.RunDisplay(c.Context, dev, data, clock.New(), cfg.DisplayUpdateInterval, logger)
}

func registerDebugAction(c *cli.Context) (err error) {
	cfg := config.Get()
	src, err := sensors.NewIMUSource(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, src.Close()) }()

	h := app.NewRegisterDebugHandler(src, cfg.Writable, clock.New(), logger)
	logger.Infof("register_debug: open http://localhost:%d in your browser", cfg.RegisterDebugPort)
	return app.Serve(c.Context, fmt.Sprintf(":%d", cfg.RegisterDebugPort), h.Handler(), logger)
}

func calibrateAction(c *cli.Context) (err error) {
	cfg := config.Get()
	path := c.String(flagOut)
	if path == "" {
		path = cfg.CalibrationFile
	}
	if path == "" {
		return errors.New("no output file: set CALIBRATION_FILE or --out")
	}
	src, err := sensors.NewIMUSource(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, src.Close()) }()

	opts := app.DefaultCalibrationOpts
	opts.GyroSamples = c.Int(flagGyroSamples)
	opts.MagSamples = c.Int(flagMagSamples)
	opts.Path = path
	opts.Logger = logger
	_, err = app.RunCalibration(c.Context, src, os.Stdin, os.Stdout, opts)
	return err
}

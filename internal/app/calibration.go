// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/relabs-tech/bmx160/internal/calibration"
	"github.com/relabs-tech/bmx160/internal/imu"
	"github.com/relabs-tech/bmx160/internal/sensors"
)

// CalibrationOpts configures RunCalibration.
type CalibrationOpts struct {
	GyroSamples int
	MagSamples  int
	Interval    time.Duration
	Path        string // written when set
	Clock       clock.Clock
	Logger      *zap.SugaredLogger
}

// DefaultCalibrationOpts samples the gyroscope for 10s and the magnetometer
// for 30s at 20Hz.
var DefaultCalibrationOpts = CalibrationOpts{
	GyroSamples: 200,
	MagSamples:  600,
	Interval:    50 * time.Millisecond,
}

// RunCalibration guides the user through a still phase for the gyroscope
// bias and a rotation phase for the magnetometer. Prompts go to out and
// each phase starts when a line is read from in.
func RunCalibration(ctx context.Context, src imu.Source, in io.Reader, out io.Writer, opts CalibrationOpts) (*calibration.Result, error) {
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	r := bufio.NewReader(in)
	res := calibration.Identity(sensors.SourceName, clk.Now())

	waitEnter(r, out, "Place the sensor on a still surface and press ENTER...")
	still, err := capture(ctx, src, clk, opts.GyroSamples, opts.Interval)
	if err != nil {
		return nil, errors.Wrap(err, "gyro capture")
	}
	gs, err := calibration.EstimateGyroBias(still)
	if err != nil {
		return nil, err
	}
	res.SetGyro(gs, len(still))
	fmt.Fprintf(out, "Gyro bias: x=%.3f y=%.3f z=%.3f dps (confidence %.0f%%)\n",
		gs.Bias[0], gs.Bias[1], gs.Bias[2], gs.Confidence)

	waitEnter(r, out, "Slowly rotate the sensor through every orientation. Press ENTER to start...")
	moving, err := capture(ctx, src, clk, opts.MagSamples, opts.Interval)
	if err != nil {
		return nil, errors.Wrap(err, "mag capture")
	}
	ms, err := calibration.EstimateMag(moving)
	if err != nil {
		return nil, err
	}
	res.SetMag(ms, len(moving))
	fmt.Fprintf(out, "Mag offset: x=%.2f y=%.2f z=%.2f uT, scale: %.3f %.3f %.3f (confidence %.0f%%)\n",
		ms.Offset[0], ms.Offset[1], ms.Offset[2], ms.Scale[0], ms.Scale[1], ms.Scale[2], ms.Confidence)

	if opts.Path != "" {
		if err := res.Save(opts.Path); err != nil {
			return nil, err
		}
		logger.Infof("calibration: saved results to %s", opts.Path)
		fmt.Fprintf(out, "\nWrote: %s\n", opts.Path)
	}
	return res, nil
}

// capture reads n samples, one per interval.
func capture(ctx context.Context, src imu.Source, clk clock.Clock, n int, interval time.Duration) ([]imu.Sample, error) {
	ticker := clk.Ticker(interval)
	defer ticker.Stop()
	samples := make([]imu.Sample, 0, n)
	for len(samples) < n {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
		s, err := src.ReadSample()
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func waitEnter(in *bufio.Reader, out io.Writer, prompt string) {
	fmt.Fprint(out, prompt)
	_, _ = in.ReadString('\n')
	fmt.Fprintln(out)
}

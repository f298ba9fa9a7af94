// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/relabs-tech/bmx160/internal/bmx160"
	"github.com/relabs-tech/bmx160/internal/imu"
)

// ConsoleOpts configures RunConsole.
type ConsoleOpts struct {
	Interval time.Duration
	Axis     bmx160.Axis
	Clock    clock.Clock
	Logger   *zap.SugaredLogger
}

// RunConsole prints one sample every interval until ctx is done. Read errors
// are logged and the loop goes on.
func RunConsole(ctx context.Context, src imu.Source, out io.Writer, opts ConsoleOpts) error {
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	fmt.Fprintln(out, "Starting the program....")
	ticker := clk.Ticker(opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "Program Stopped!")
			return nil
		case <-ticker.C:
		}
		s, err := src.ReadSample()
		if err != nil {
			logger.Warnf("console: read error: %v", err)
			continue
		}
		printSample(out, s, opts.Axis)
	}
}

// printSample writes the three reading lines and a blank line.
func printSample(w io.Writer, s imu.Sample, axis bmx160.Axis) {
	if axis != bmx160.AxisAll {
		v := s.Measurement().Select(axis)
		fmt.Fprintf(w, "Magnetometer readings : %s: %.2f uT\n", axis, v[0])
		fmt.Fprintf(w, "Gyroscope readings    : %s: %.2f dps\n", axis, v[1])
		fmt.Fprintf(w, "Acceleration readings : %s: %.2f m/s^2\n", axis, v[2])
		fmt.Fprintln(w, " ")
		return
	}
	fmt.Fprintf(w, "Magnetometer readings : x: %.2f uT, y: %.2f uT, z: %.2f uT\n", s.Mag[0], s.Mag[1], s.Mag[2])
	fmt.Fprintf(w, "Gyroscope readings    : x: %.2f dps, y: %.2f dps, z: %.2f dps\n", s.Gyro[0], s.Gyro[1], s.Gyro[2])
	fmt.Fprintf(w, "Acceleration readings : x: %.2f m/s^2, y: %.2f m/s^2, z: %.2f m/s^2\n", s.Accel[0], s.Accel[1], s.Accel[2])
	fmt.Fprintln(w, " ")
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap/zaptest"
	"go.viam.com/test"

	"github.com/relabs-tech/bmx160/internal/bmx160"
	"github.com/relabs-tech/bmx160/internal/imu"
)

var testSample = imu.Sample{
	Source: "bmx160",
	Mag:    [3]float64{30, -60, 90},
	Gyro:   [3]float64{7.622, -15.244, 22.866},
	Accel:  [3]float64{9.8, -9.8, 4.9},
}

func TestPrintSample(t *testing.T) {
	var buf bytes.Buffer
	printSample(&buf, testSample, bmx160.AxisAll)
	test.That(t, buf.String(), test.ShouldEqual,
		"Magnetometer readings : x: 30.00 uT, y: -60.00 uT, z: 90.00 uT\n"+
			"Gyroscope readings    : x: 7.62 dps, y: -15.24 dps, z: 22.87 dps\n"+
			"Acceleration readings : x: 9.80 m/s^2, y: -9.80 m/s^2, z: 4.90 m/s^2\n"+
			" \n")

	buf.Reset()
	printSample(&buf, testSample, bmx160.AxisY)
	test.That(t, buf.String(), test.ShouldEqual,
		"Magnetometer readings : y: -60.00 uT\n"+
			"Gyroscope readings    : y: -15.24 dps\n"+
			"Acceleration readings : y: -9.80 m/s^2\n"+
			" \n")
}

func TestRunConsole(t *testing.T) {
	src := &fakeSource{samples: []imu.Sample{testSample}}
	mock := clock.NewMock()
	out := &syncBuffer{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RunConsole(ctx, src, out, ConsoleOpts{
			Interval: 200 * time.Millisecond,
			Clock:    mock,
			Logger:   zaptest.NewLogger(t).Sugar(),
		})
	}()

	for src.readCount() < 2 {
		mock.Add(200 * time.Millisecond)
	}
	cancel()
	test.That(t, <-done, test.ShouldBeNil)

	s := out.String()
	test.That(t, strings.HasPrefix(s, "Starting the program....\n"), test.ShouldBeTrue)
	test.That(t, strings.Count(s, "Magnetometer readings"), test.ShouldBeGreaterThanOrEqualTo, 2)
	test.That(t, strings.HasSuffix(s, "Program Stopped!\n"), test.ShouldBeTrue)
}

func TestRunConsoleKeepsGoingOnReadError(t *testing.T) {
	src := &fakeSource{err: errors.New("bmx160: read block at 0x68 reg 0x04: nack")}
	mock := clock.NewMock()
	out := &syncBuffer{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RunConsole(ctx, src, out, ConsoleOpts{Interval: time.Second, Clock: mock})
	}()
	for src.readCount() < 3 {
		mock.Add(time.Second)
	}
	cancel()
	test.That(t, <-done, test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldNotContainSubstring, "Magnetometer")
}

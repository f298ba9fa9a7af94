// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/relabs-tech/bmx160/internal/bmx160"
	"github.com/relabs-tech/bmx160/internal/calibration"
	"github.com/relabs-tech/bmx160/internal/config"
	"github.com/relabs-tech/bmx160/internal/imu"
)

// SourceName is the source field of published samples.
const SourceName = "bmx160"

// Device is the part of *bmx160.Dev the source uses.
type Device interface {
	Begin() (bool, error)
	BeginVerified() error
	Sense(m *bmx160.Measurement) error
	ReadRegister(reg byte) (byte, error)
	WriteRegister(reg, value byte) error
	SetGyroRange(level int)
	SetAccelRange(level int)
	Ranges() bmx160.Ranges
	Halt() error
	Close() error
}

// IMUSource reads timestamped samples from a BMX160. Calls are serialized so
// the register debug tool can share the device with a sampling loop.
type IMUSource struct {
	mu     sync.Mutex
	dev    Device
	clk    clock.Clock
	log    *zap.SugaredLogger
	verify bool
	retry  time.Duration
	cal    *calibration.Result
}

// SourceOpts configures NewIMUSourceFromDevice.
type SourceOpts struct {
	Clock         clock.Clock
	Logger        *zap.SugaredLogger
	VerifyBringUp bool
	RetryInterval time.Duration
}

// NewIMUSource opens the BMX160 described by cfg, applies the configured
// ranges and waits until the device comes up or ctx is done.
func NewIMUSource(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (*IMUSource, error) {
	dev, err := bmx160.Open(cfg.I2CBus, &bmx160.Opts{Addr: cfg.I2CAddr, Logger: logger})
	if err != nil {
		return nil, err
	}
	dev.SetGyroRange(int(cfg.GyroRange))
	dev.SetAccelRange(int(cfg.AccelRange))
	logger.Infof("bmx160: bus %s addr 0x%02X, gyro %s, accel %s",
		cfg.I2CBus, cfg.I2CAddr, dev.Ranges().Gyro, dev.Ranges().Accel)

	s := NewIMUSourceFromDevice(dev, SourceOpts{
		Logger:        logger,
		VerifyBringUp: cfg.VerifyBringUp,
		RetryInterval: time.Duration(cfg.BeginRetryInterval) * time.Millisecond,
	})
	if err := s.WaitReady(ctx); err != nil {
		return nil, multierr.Append(err, dev.Close())
	}
	return s, nil
}

// NewIMUSourceFromDevice wraps an already opened device. It does not touch
// the bus.
func NewIMUSourceFromDevice(dev Device, opts SourceOpts) *IMUSource {
	s := &IMUSource{
		dev:    dev,
		clk:    opts.Clock,
		log:    opts.Logger,
		verify: opts.VerifyBringUp,
		retry:  opts.RetryInterval,
	}
	if s.clk == nil {
		s.clk = clock.New()
	}
	if s.log == nil {
		s.log = zap.NewNop().Sugar()
	}
	if s.retry <= 0 {
		s.retry = 2 * time.Second
	}
	return s
}

// begin runs one bring-up attempt. It reports false with a nil error when the
// attempt should be retried.
func (s *IMUSource) begin() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.verify {
		return s.dev.Begin()
	}
	err := s.dev.BeginVerified()
	if errors.Is(err, bmx160.ErrNotPresent) {
		return false, nil
	}
	return err == nil, err
}

// WaitReady retries the bring-up every retry interval until it succeeds.
// An absent device or a bus error during bring-up is retried; any other error
// is returned. It returns ctx.Err() when ctx is done first.
func (s *IMUSource) WaitReady(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		ok, err := s.begin()
		var be *bmx160.BusError
		switch {
		case ok:
			s.log.Infof("bmx160: ready after %d attempt(s)", attempt)
			return nil
		case errors.As(err, &be):
			s.log.Warnf("bmx160: bring-up attempt %d: %v", attempt, err)
		case err != nil:
			return err
		default:
			s.log.Debugf("bmx160: not present, retrying in %s", s.retry)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clk.After(s.retry):
		}
	}
}

// SetCalibration makes ReadSample apply r. nil disables calibration.
func (s *IMUSource) SetCalibration(r *calibration.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cal = r
}

// ReadSample reads one sample stamped with the source clock.
func (s *IMUSource) ReadSample() (imu.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var m bmx160.Measurement
	if err := s.dev.Sense(&m); err != nil {
		return imu.Sample{}, err
	}
	sample := imu.FromMeasurement(SourceName, s.clk.Now(), m)
	if s.cal != nil {
		sample = s.cal.Apply(sample)
	}
	return sample, nil
}

// ReadRegister reads one register.
func (s *IMUSource) ReadRegister(reg byte) (byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dev.ReadRegister(reg)
}

// WriteRegister writes one register.
func (s *IMUSource) WriteRegister(reg, value byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dev.WriteRegister(reg, value)
}

// Reinit runs one bring-up attempt without retrying.
func (s *IMUSource) Reinit() error {
	ok, err := s.begin()
	if err != nil {
		return err
	}
	if !ok {
		return bmx160.ErrNotPresent
	}
	return nil
}

// Close puts the device in low power mode and releases the bus.
func (s *IMUSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return multierr.Combine(
		errors.Wrap(s.dev.Halt(), "bmx160: low power"),
		s.dev.Close(),
	)
}

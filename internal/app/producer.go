// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/relabs-tech/bmx160/internal/imu"
	"github.com/relabs-tech/bmx160/internal/orientation"
)

// Producer reads samples and publishes them with the derived pose.
type Producer struct {
	Source      imu.Source
	Publisher   Publisher
	TopicSample string
	TopicPose   string
	Metrics     *Metrics
	Logger      *zap.SugaredLogger
}

// Step reads, publishes and records one sample.
func (p *Producer) Step() (imu.Sample, error) {
	s, err := p.Source.ReadSample()
	if err != nil {
		p.Metrics.ReadErrors.Inc()
		return imu.Sample{}, errors.Wrap(err, "read sample")
	}
	p.Metrics.Observe(s)

	pose := orientation.FromSample(s)

	var errs error
	for _, msg := range []struct {
		topic string
		v     interface{}
	}{
		{p.TopicSample, s},
		{p.TopicPose, pose},
	} {
		payload, err := json.Marshal(msg.v)
		if err == nil {
			err = p.Publisher.Publish(msg.topic, payload)
		}
		if err != nil {
			p.Metrics.PublishErrors.WithLabelValues(msg.topic).Inc()
			errs = multierr.Append(errs, err)
		}
	}
	return s, errs
}

// Run calls Step every interval until ctx is done.
func (p *Producer) Run(ctx context.Context, clk clock.Clock, interval time.Duration) error {
	ticker := clk.Ticker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		s, err := p.Step()
		if err != nil {
			p.Logger.Warnf("producer: %v", err)
			continue
		}
		p.Logger.Debugf("producer: mag %.1f uT, accel %.2f m/s^2", s.MagNorm(), s.AccelNorm())
	}
}

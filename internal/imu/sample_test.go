// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/relabs-tech/bmx160/internal/bmx160"
)

func TestSampleJSON(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := FromMeasurement("bmx160", ts, bmx160.Measurement{
		Mag:   [3]float64{30, -60, 90},
		Gyro:  [3]float64{1, 2, 3},
		Accel: [3]float64{0, 0, 9.8},
	})
	b, err := json.Marshal(s)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(b), test.ShouldEqual,
		`{"source":"bmx160","time":"2026-03-01T12:00:00Z","mag_ut":[30,-60,90],"gyro_dps":[1,2,3],"accel_ms2":[0,0,9.8]}`)
}

func TestSampleNorms(t *testing.T) {
	s := Sample{Mag: [3]float64{3, 4, 0}, Accel: [3]float64{0, 0, -9.8}}
	test.That(t, s.MagNorm(), test.ShouldAlmostEqual, 5.0)
	test.That(t, s.AccelNorm(), test.ShouldAlmostEqual, 9.8)
	test.That(t, s.AccelVec(), test.ShouldResemble, r3.Vector{Z: -9.8})
	test.That(t, FromVec(s.MagVec()), test.ShouldResemble, s.Mag)
	test.That(t, s.Measurement().Mag, test.ShouldResemble, s.Mag)
}

func TestSampleIsFinite(t *testing.T) {
	test.That(t, Sample{}.IsFinite(), test.ShouldBeTrue)
	test.That(t, Sample{Gyro: [3]float64{0, math.NaN(), 0}}.IsFinite(), test.ShouldBeFalse)
	test.That(t, Sample{Accel: [3]float64{math.Inf(1), 0, 0}}.IsFinite(), test.ShouldBeFalse)
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package calibration estimates and applies gyroscope bias and magnetometer
// hard and soft iron corrections.
package calibration

import (
	"encoding/json"
	"math"
	"os"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/relabs-tech/bmx160/internal/imu"
)

// Version of the calibration file format.
const Version = 1

// ErrTooFewSamples is returned when an estimate needs more data.
var ErrTooFewSamples = errors.New("calibration: not enough samples")

// Result is the calibration file contents.
type Result struct {
	Version   int       `json:"version"`
	Device    string    `json:"device"`
	Timestamp time.Time `json:"timestamp"`

	// Gyroscope calibration
	GyroBias       [3]float64 `json:"gyro_bias"`
	GyroStdDev     [3]float64 `json:"gyro_static_stddev"`
	GyroConfidence float64    `json:"gyro_confidence"`
	GyroSamples    int        `json:"gyro_sample_count"`

	// Magnetometer calibration
	MagOffset     [3]float64 `json:"mag_offset"`
	MagScale      [3]float64 `json:"mag_scale"`
	MagRange      [3]float64 `json:"mag_range"`
	MagConfidence float64    `json:"mag_confidence"`
	MagSamples    int        `json:"mag_sample_count"`
}

// Identity returns a result that Apply leaves samples unchanged with.
func Identity(device string, t time.Time) *Result {
	return &Result{
		Version:   Version,
		Device:    device,
		Timestamp: t,
		MagScale:  [3]float64{1, 1, 1},
	}
}

// GyroStats holds the static gyroscope estimate.
type GyroStats struct {
	Bias       [3]float64
	StdDev     [3]float64
	Confidence float64 // 0-100, lower with more noise
}

// EstimateGyroBias averages samples taken while the device is still.
func EstimateGyroBias(samples []imu.Sample) (GyroStats, error) {
	if len(samples) < 2 {
		return GyroStats{}, ErrTooFewSamples
	}
	var gs GyroStats
	axis := make([]float64, len(samples))
	worst := 0.0
	for i := 0; i < 3; i++ {
		for j, s := range samples {
			axis[j] = s.Gyro[i]
		}
		gs.Bias[i], gs.StdDev[i] = stat.MeanStdDev(axis, nil)
		worst = math.Max(worst, gs.StdDev[i])
	}
	// 1°/s of noise on the worst axis counts as no confidence.
	gs.Confidence = math.Max(0, 100*(1-worst))
	return gs, nil
}

// MagStats holds the hard and soft iron estimate.
type MagStats struct {
	Offset     [3]float64
	Scale      [3]float64
	Range      [3]float64
	Confidence float64 // 0-100, the smallest axis range over the largest
}

// EstimateMag fits the min/max box of samples taken while the device is
// rotated through every orientation.
func EstimateMag(samples []imu.Sample) (MagStats, error) {
	if len(samples) < 2 {
		return MagStats{}, ErrTooFewSamples
	}
	var ms MagStats
	axis := make([]float64, len(samples))
	for i := 0; i < 3; i++ {
		for j, s := range samples {
			axis[j] = s.Mag[i]
		}
		lo, hi := minMax(axis)
		ms.Offset[i] = (hi + lo) / 2
		ms.Range[i] = hi - lo
	}
	for i := 0; i < 3; i++ {
		if ms.Range[i] == 0 {
			return MagStats{}, errors.Errorf("calibration: no magnetometer movement on axis %d", i)
		}
	}
	avg := stat.Mean(ms.Range[:], nil)
	for i := 0; i < 3; i++ {
		ms.Scale[i] = avg / ms.Range[i]
	}
	lo, hi := minMax(ms.Range[:])
	ms.Confidence = 100 * lo / hi
	return ms, nil
}

func minMax(x []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range x {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// SetGyro stores a gyroscope estimate.
func (r *Result) SetGyro(gs GyroStats, n int) {
	r.GyroBias = gs.Bias
	r.GyroStdDev = gs.StdDev
	r.GyroConfidence = gs.Confidence
	r.GyroSamples = n
}

// SetMag stores a magnetometer estimate.
func (r *Result) SetMag(ms MagStats, n int) {
	r.MagOffset = ms.Offset
	r.MagScale = ms.Scale
	r.MagRange = ms.Range
	r.MagConfidence = ms.Confidence
	r.MagSamples = n
}

// Apply returns s with the gyroscope bias removed and the magnetometer
// corrected. The accelerometer is passed through.
func (r *Result) Apply(s imu.Sample) imu.Sample {
	for i := 0; i < 3; i++ {
		s.Gyro[i] -= r.GyroBias[i]
		s.Mag[i] = (s.Mag[i] - r.MagOffset[i]) * r.MagScale[i]
	}
	return s
}

// Save writes r as indented JSON.
func (r *Result) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal calibration results")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write calibration file")
	}
	return nil
}

// Load reads a file written by Save.
func Load(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read calibration file")
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrapf(err, "failed to parse calibration file %s", path)
	}
	if r.Version != Version {
		return nil, errors.Errorf("calibration file %s: unsupported version %d", path, r.Version)
	}
	for i, s := range r.MagScale {
		if s <= 0 {
			return nil, errors.Errorf("calibration file %s: mag scale %d is %v", path, i, s)
		}
	}
	return &r, nil
}

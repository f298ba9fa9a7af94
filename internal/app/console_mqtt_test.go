// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"testing"

	"go.uber.org/zap/zaptest"
	"go.viam.com/test"
)

func TestRunConsoleMQTT(t *testing.T) {
	b := &fakeBroker{}
	out := &syncBuffer{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RunConsoleMQTT(ctx, b, "bmx160/sample", "bmx160/pose", out, zaptest.NewLogger(t).Sugar())
	}()
	for !b.subscribed("bmx160/pose") {
		select {
		case err := <-done:
			t.Fatalf("returned early: %v", err)
		default:
		}
	}

	payload, err := json.Marshal(testSample)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, b.Publish("bmx160/sample", payload), test.ShouldBeNil)
	test.That(t, b.Publish("bmx160/pose", []byte(`{"roll":1.5,"pitch":-2,"yaw":270}`)), test.ShouldBeNil)
	test.That(t, b.Publish("bmx160/pose", []byte(`{`)), test.ShouldBeNil)
	cancel()
	test.That(t, <-done, test.ShouldBeNil)

	test.That(t, out.String(), test.ShouldEqual,
		"[IMU ]  mx=  30.00 my= -60.00 mz=  90.00  gx=   7.62 gy= -15.24 gz=  22.87  ax=  9.80 ay= -9.80 az=  4.90\n"+
			"[POSE]  ROLL=  1.50  PITCH= -2.00  YAW=270.00\n")
}

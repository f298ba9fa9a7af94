// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.viam.com/test"

	"github.com/relabs-tech/bmx160/internal/imu"
	"github.com/relabs-tech/bmx160/internal/sensors"
)

func newTestRegisterDebug(t *testing.T, src *fakeSource) *RegisterDebugHandler {
	return newTestRegisterDebugLogger(src, zaptest.NewLogger(t).Sugar())
}

func newTestRegisterDebugLogger(src *fakeSource, logger *zap.SugaredLogger) *RegisterDebugHandler {
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC))
	writable := func(reg byte) bool { return reg >= 0x40 && reg <= 0x4F || reg == 0x7E }
	return NewRegisterDebugHandler(src, writable, mock, logger)
}

func TestRegisterDebugRead(t *testing.T) {
	src := &fakeSource{regs: map[byte]byte{0x00: 0xD8, 0x03: 0x15}}
	h := newTestRegisterDebug(t, src)

	resp := h.Handle(RegisterCmd{Action: "read", Address: "0x00"})
	test.That(t, resp, test.ShouldResemble, RegisterResponse{
		Type: "register_data", Address: "0x00", Value: "0xD8", Timestamp: "2026-05-01T10:00:00Z",
	})

	resp = h.Handle(RegisterCmd{Action: "read", Address: "zz"})
	test.That(t, resp.Type, test.ShouldEqual, "error")
	test.That(t, resp.Message, test.ShouldEqual, "invalid address format: zz")

	resp = h.Handle(RegisterCmd{Action: "read_all"})
	test.That(t, resp.Type, test.ShouldEqual, "register_data")
	test.That(t, resp.Registers["0x03"], test.ShouldEqual, "0x15")
	test.That(t, resp.Registers["0x17"], test.ShouldEqual, "0x00")
	_, hasCmd := resp.Registers["0x7E"]
	test.That(t, hasCmd, test.ShouldBeFalse)

	resp = h.Handle(RegisterCmd{Action: "export_config"})
	test.That(t, resp.Config.Registers["0x00"], test.ShouldEqual, "0xD8")
	test.That(t, resp.Config.Device, test.ShouldEqual, sensors.SourceName)
}

func TestRegisterDebugWrite(t *testing.T) {
	src := &fakeSource{}
	h := newTestRegisterDebug(t, src)

	resp := h.Handle(RegisterCmd{Action: "write", Address: "0x44", Value: "0x08"})
	test.That(t, resp.Message, test.ShouldEqual, "write successful")
	test.That(t, src.regs[0x44], test.ShouldEqual, byte(0x08))

	resp = h.Handle(RegisterCmd{Action: "write", Address: "0x00", Value: "0x01"})
	test.That(t, resp.Type, test.ShouldEqual, "error")
	test.That(t, resp.Message, test.ShouldEqual, "register 0x00 not in allowed write ranges")
	_, written := src.regs[0x00]
	test.That(t, written, test.ShouldBeFalse)

	resp = h.Handle(RegisterCmd{Action: "write", Address: "0x7E", Value: "0x1FF"})
	test.That(t, resp.Message, test.ShouldEqual, "invalid value format: 0x1FF")
}

func TestRegisterDebugMisc(t *testing.T) {
	src := &fakeSource{}
	h := newTestRegisterDebug(t, src)

	test.That(t, h.Handle(RegisterCmd{Action: "init"}).Status, test.ShouldEqual, "initialized")
	test.That(t, src.reinits, test.ShouldEqual, 1)
	test.That(t, len(h.Handle(RegisterCmd{Action: "get_map"}).RegisterMap), test.ShouldEqual, len(sensors.RegisterMap()))
	test.That(t, h.Handle(RegisterCmd{Action: "dance"}).Message, test.ShouldEqual, "unknown action: dance")
	test.That(t, h.Handle(RegisterCmd{}).Type, test.ShouldEqual, "error")

	src.err = errors.New("nack")
	test.That(t, h.Handle(RegisterCmd{Action: "read_all"}).Message, test.ShouldEqual, "read all error: nack")
}

func TestRegisterDebugWebSocket(t *testing.T) {
	src := &fakeSource{regs: map[byte]byte{0x00: 0xD8}, samples: []imu.Sample{testSample}}
	h := newTestRegisterDebugLogger(src, zap.NewNop().Sugar())
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	test.That(t, err, test.ShouldBeNil)
	defer conn.Close()

	var first RegisterResponse
	test.That(t, conn.ReadJSON(&first), test.ShouldBeNil)
	test.That(t, first.Type, test.ShouldEqual, "register_map")

	test.That(t, conn.WriteJSON(RegisterCmd{Action: "read", Address: "0x00"}), test.ShouldBeNil)
	var resp RegisterResponse
	test.That(t, conn.ReadJSON(&resp), test.ShouldBeNil)
	test.That(t, resp.Value, test.ShouldEqual, "0xD8")

	r, err := http.Get(srv.URL + "/api/imu")
	test.That(t, err, test.ShouldBeNil)
	defer r.Body.Close()
	var s imu.Sample
	test.That(t, json.NewDecoder(r.Body).Decode(&s), test.ShouldBeNil)
	test.That(t, s.Mag, test.ShouldResemble, testSample.Mag)
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/relabs-tech/bmx160/internal/imu"
	"github.com/relabs-tech/bmx160/internal/sensors"
)

// RegisterDevice is the device access the register debug tool needs.
// *sensors.IMUSource implements it.
type RegisterDevice interface {
	imu.Source
	ReadRegister(reg byte) (byte, error)
	WriteRegister(reg, value byte) error
	Reinit() error
}

// RegisterCmd is a websocket request. Action is one of get_map, read,
// read_all, write, init and export_config.
type RegisterCmd struct {
	Action  string `json:"action"`
	Address string `json:"addr,omitempty"`
	Value   string `json:"value,omitempty"`
}

// RegisterResponse is a websocket reply.
type RegisterResponse struct {
	Type        string                 `json:"type"` // "register_data", "register_map", "status", "export_config", "error"
	Address     string                 `json:"addr,omitempty"`
	Value       string                 `json:"value,omitempty"`
	Registers   map[string]string      `json:"registers,omitempty"` // for bulk read
	Timestamp   string                 `json:"timestamp,omitempty"`
	Message     string                 `json:"message,omitempty"`
	Status      string                 `json:"status,omitempty"`
	RegisterMap []sensors.RegisterInfo `json:"register_map,omitempty"`
	Config      *RegisterConfigFile    `json:"config,omitempty"`
}

// RegisterConfigFile is the exported register snapshot.
type RegisterConfigFile struct {
	Version   int               `json:"version"`
	Device    string            `json:"device"`
	Timestamp string            `json:"timestamp"`
	Registers map[string]string `json:"registers"` // hex address -> hex value
}

// RegisterDebugHandler serves the register debug websocket on /ws and the
// latest sample on /api/imu.
type RegisterDebugHandler struct {
	dev      RegisterDevice
	writable func(reg byte) bool
	regs     []sensors.RegisterInfo
	clk      clock.Clock
	log      *zap.SugaredLogger
}

// NewRegisterDebugHandler only allows writes to registers for which
// writable returns true.
func NewRegisterDebugHandler(dev RegisterDevice, writable func(reg byte) bool, clk clock.Clock, logger *zap.SugaredLogger) *RegisterDebugHandler {
	return &RegisterDebugHandler{
		dev:      dev,
		writable: writable,
		regs:     sensors.RegisterMap(),
		clk:      clk,
		log:      logger,
	}
}

// Handler returns the HTTP routes. The page itself is web/register_debug.html.
func (h *RegisterDebugHandler) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWS)
	mux.HandleFunc("/api/imu", h.handleIMUData)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "web/register_debug.html")
	})
	return mux
}

func (h *RegisterDebugHandler) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("register_debug: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	if err := conn.WriteJSON(h.registerMap()); err != nil {
		h.log.Warnf("register_debug: error sending register map: %v", err)
		return
	}

	for {
		var cmd RegisterCmd
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warnf("register_debug: websocket error: %v", err)
			}
			return
		}
		if err := conn.WriteJSON(h.Handle(cmd)); err != nil {
			h.log.Warnf("register_debug: websocket write error: %v", err)
			return
		}
	}
}

// Handle runs one command against the device.
func (h *RegisterDebugHandler) Handle(cmd RegisterCmd) RegisterResponse {
	switch cmd.Action {
	case "get_map":
		return h.registerMap()
	case "read":
		return h.handleRead(cmd)
	case "read_all":
		regs, err := h.readAll()
		if err != nil {
			return errorResponse("read all error: %v", err)
		}
		return RegisterResponse{Type: "register_data", Registers: regs, Timestamp: h.now()}
	case "write":
		return h.handleWrite(cmd)
	case "init":
		if err := h.dev.Reinit(); err != nil {
			return errorResponse("reinit error: %v", err)
		}
		h.log.Info("register_debug: device reinitialized")
		return RegisterResponse{Type: "status", Status: "initialized", Message: "BMX160 reinitialized successfully"}
	case "export_config":
		regs, err := h.readAll()
		if err != nil {
			return errorResponse("export error: %v", err)
		}
		return RegisterResponse{
			Type:    "export_config",
			Message: "config exported",
			Config: &RegisterConfigFile{
				Version:   1,
				Device:    sensors.SourceName,
				Timestamp: h.now(),
				Registers: regs,
			},
		}
	case "":
		return errorResponse("missing or invalid action field")
	default:
		return errorResponse("unknown action: %s", cmd.Action)
	}
}

func (h *RegisterDebugHandler) handleRead(cmd RegisterCmd) RegisterResponse {
	reg, err := sensors.ParseRegister(cmd.Address)
	if err != nil {
		return errorResponse("invalid address format: %s", cmd.Address)
	}
	value, err := h.dev.ReadRegister(reg)
	if err != nil {
		return errorResponse("read error: %v", err)
	}
	return RegisterResponse{
		Type:      "register_data",
		Address:   sensors.FormatRegister(reg),
		Value:     sensors.FormatRegister(value),
		Timestamp: h.now(),
	}
}

func (h *RegisterDebugHandler) handleWrite(cmd RegisterCmd) RegisterResponse {
	reg, err := sensors.ParseRegister(cmd.Address)
	if err != nil {
		return errorResponse("invalid address format: %s", cmd.Address)
	}
	value, err := sensors.ParseRegister(cmd.Value)
	if err != nil {
		return errorResponse("invalid value format: %s", cmd.Value)
	}
	if !h.writable(reg) {
		return errorResponse("register %s not in allowed write ranges", sensors.FormatRegister(reg))
	}
	if err := h.dev.WriteRegister(reg, value); err != nil {
		return errorResponse("write error: %v", err)
	}
	h.log.Infof("register_debug: wrote %s = %s", sensors.FormatRegister(reg), sensors.FormatRegister(value))
	return RegisterResponse{
		Type:      "register_data",
		Address:   sensors.FormatRegister(reg),
		Value:     sensors.FormatRegister(value),
		Timestamp: h.now(),
		Message:   "write successful",
	}
}

// readAll reads every readable register in the map.
func (h *RegisterDebugHandler) readAll() (map[string]string, error) {
	out := make(map[string]string, len(h.regs))
	for _, r := range h.regs {
		if !r.Readable() {
			continue
		}
		reg, err := sensors.ParseRegister(r.Address)
		if err != nil {
			return nil, err
		}
		v, err := h.dev.ReadRegister(reg)
		if err != nil {
			return nil, err
		}
		out[sensors.FormatRegister(reg)] = sensors.FormatRegister(v)
	}
	return out, nil
}

func (h *RegisterDebugHandler) registerMap() RegisterResponse {
	return RegisterResponse{Type: "register_map", RegisterMap: h.regs}
}

func (h *RegisterDebugHandler) now() string {
	return h.clk.Now().UTC().Format(time.RFC3339)
}

func errorResponse(format string, args ...interface{}) RegisterResponse {
	return RegisterResponse{Type: "error", Message: fmt.Sprintf(format, args...)}
}

// handleIMUData serves one fresh sample.
func (h *RegisterDebugHandler) handleIMUData(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	s, err := h.dev.ReadSample()
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	json.NewEncoder(w).Encode(s)
}

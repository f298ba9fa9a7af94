package app

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/relabs-tech/bmx160/internal/imu"
	"github.com/relabs-tech/bmx160/internal/orientation"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// LiveData is the latest sample and pose together, as streamed on /ws.
type LiveData struct {
	Sample imu.Sample       `json:"sample"`
	Pose   orientation.Pose `json:"pose"`
}

// WebServer keeps the latest data received over MQTT and serves it.
type WebServer struct {
	mu       sync.RWMutex
	last     LiveData
	haveData bool
	clients  map[chan LiveData]struct{}

	staticDir string
	log       *zap.SugaredLogger
}

// NewWebServer serves static files from staticDir under /.
func NewWebServer(staticDir string, logger *zap.SugaredLogger) *WebServer {
	return &WebServer{
		clients:   map[chan LiveData]struct{}{},
		staticDir: staticDir,
		log:       logger,
	}
}

// Subscribe feeds the server from the sample and pose topics.
func (ws *WebServer) Subscribe(sub Subscriber, topicSample, topicPose string) error {
	if err := sub.Subscribe(topicSample, func(payload []byte) {
		var s imu.Sample
		if err := json.Unmarshal(payload, &s); err != nil {
			ws.log.Warnf("web: sample unmarshal error: %v", err)
			return
		}
		ws.UpdateSample(s)
	}); err != nil {
		return err
	}
	return sub.Subscribe(topicPose, func(payload []byte) {
		var p orientation.Pose
		if err := json.Unmarshal(payload, &p); err != nil {
			ws.log.Warnf("web: pose unmarshal error: %v", err)
			return
		}
		ws.UpdatePose(p)
	})
}

// UpdateSample stores s and pushes it to every websocket client.
func (ws *WebServer) UpdateSample(s imu.Sample) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.last.Sample = s
	ws.haveData = true
	ws.broadcastLocked()
}

// UpdatePose stores the latest pose. It goes out with the next sample.
func (ws *WebServer) UpdatePose(p orientation.Pose) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.last.Pose = p
}

func (ws *WebServer) broadcastLocked() {
	for ch := range ws.clients {
		select {
		case ch <- ws.last:
		default: // slow client, drop
		}
	}
}

// Handler returns the HTTP routes.
func (ws *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sample", ws.handleSample)
	mux.HandleFunc("/api/pose", ws.handlePose)
	mux.HandleFunc("/ws", ws.handleWS)
	mux.Handle("/", http.FileServer(http.Dir(ws.staticDir)))
	return mux
}

func (ws *WebServer) snapshot() (LiveData, bool) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.last, ws.haveData
}

func (ws *WebServer) handleSample(w http.ResponseWriter, r *http.Request) {
	d, ok := ws.snapshot()
	ws.writeJSON(w, d.Sample, ok)
}

func (ws *WebServer) handlePose(w http.ResponseWriter, r *http.Request) {
	d, ok := ws.snapshot()
	ws.writeJSON(w, d.Pose, ok)
}

func (ws *WebServer) writeJSON(w http.ResponseWriter, v interface{}, ok bool) {
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		ws.log.Warnf("web: json encode error: %v", err)
	}
}

func (ws *WebServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.log.Warnf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	ch := make(chan LiveData, 8)
	ws.mu.Lock()
	ws.clients[ch] = struct{}{}
	ws.mu.Unlock()
	defer func() {
		ws.mu.Lock()
		delete(ws.clients, ch)
		ws.mu.Unlock()
	}()

	// The reader only notices the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case d := <-ch:
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(d); err != nil {
				ws.log.Debugf("web: websocket write error: %v", err)
				return
			}
		}
	}
}

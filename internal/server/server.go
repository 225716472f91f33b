package server

import (
	"context"
	"encoding/json"
	"io"
	"io/fs"
	"log"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ubxdash/ubxdash/internal/gnss"
	"github.com/ubxdash/ubxdash/internal/logger"
)

// FixPublisher pushes fixes to an external sink (MQTT). Optional.
type FixPublisher interface {
	PublishFix(fix *gnss.Fix, sats []gnss.Satellite) error
}

// Server coordinates receiver polling and broadcasts data to WebSocket clients.
type Server struct {
	cfg      *Config
	provider gnss.Provider
	pub      FixPublisher
	webFS    fs.FS
	logger   *logger.Logger

	clients   map[*wsClient]struct{}
	clientsMu sync.RWMutex

	upgrader websocket.Upgrader

	// Session track distance accumulated from consecutive fixes
	trackMu      sync.Mutex
	trackKm      float64
	lastLat      float64
	lastLon      float64
	lastFixValid bool
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Frame is the JSON structure sent to all WebSocket clients.
type Frame struct {
	Fix        *gnss.Fix        `json:"fix,omitempty"`
	Satellites []gnss.Satellite `json:"satellites,omitempty"`
	Summary    *SatSummary      `json:"summary,omitempty"`
	Track      *TrackData       `json:"track,omitempty"`
	Config     *DisplayConfig   `json:"config,omitempty"`
	Stamp      int64            `json:"stamp"` // Unix ms
}

// SatSummary aggregates the satellite table for the dashboard header.
type SatSummary struct {
	Tracked        int            `json:"tracked"`
	Used           int            `json:"used"`
	Constellations map[string]int `json:"constellations"`
}

// TrackData is the session distance info sent to clients.
type TrackData struct {
	Km float64 `json:"km"`
}

// New creates a new Server.
func New(cfg *Config, provider gnss.Provider, pub FixPublisher, webFS fs.FS) *Server {
	return &Server{
		cfg:      cfg,
		provider: provider,
		pub:      pub,
		webFS:    webFS,
		logger: logger.New(logger.Config{
			Enabled:    cfg.Logging.Enabled,
			Path:       cfg.Logging.Path,
			IntervalMs: cfg.Logging.Interval,
		}),
		clients: make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run starts the HTTP server and the polling loop.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()

	// Serve embedded web files
	mux.Handle("/", http.FileServer(http.FS(s.webFS)))

	// WebSocket endpoint
	mux.HandleFunc("/ws", s.handleWS)

	// Config API
	mux.HandleFunc("/api/config", s.handleConfig)

	// Track distance API
	mux.HandleFunc("/api/track/reset", s.handleTrackReset)

	go s.pollLoop(ctx)

	srv := &http.Server{
		Addr:    s.cfg.Server.ListenAddr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	log.Printf("[server] listening on %s", s.cfg.Server.ListenAddr)
	return srv.ListenAndServe()
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade error: %v", err)
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, 64),
	}

	s.clientsMu.Lock()
	s.clients[client] = struct{}{}
	s.clientsMu.Unlock()

	log.Printf("[ws] client connected (%d total)", len(s.clients))

	// Send initial display config + track state
	s.trackMu.Lock()
	track := &TrackData{Km: s.trackKm}
	s.trackMu.Unlock()

	cfgFrame := Frame{
		Config: &s.cfg.Display,
		Track:  track,
		Stamp:  time.Now().UnixMilli(),
	}
	if data, err := json.Marshal(cfgFrame); err == nil {
		client.send <- data
	}

	// Writer goroutine
	go func() {
		defer conn.Close()
		for msg := range client.send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
	}()

	// Reader goroutine (handle incoming messages / keep-alive)
	go func() {
		defer func() {
			s.clientsMu.Lock()
			delete(s.clients, client)
			s.clientsMu.Unlock()
			close(client.send)
			log.Printf("[ws] client disconnected (%d total)", len(s.clients))
		}()
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				break
			}
		}
	}()
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		data, err := s.cfg.ToJSON()
		if err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)

	case http.MethodPost:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "bad request", 400)
			return
		}
		if err := s.cfg.UpdateFromJSON(body); err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		if err := s.cfg.Save(); err != nil {
			log.Printf("[config] save failed: %v", err)
		}
		// Broadcast updated display config
		cfgFrame := Frame{Config: &s.cfg.Display, Stamp: time.Now().UnixMilli()}
		s.broadcast(cfgFrame)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))

	default:
		http.Error(w, "method not allowed", 405)
	}
}

func (s *Server) handleTrackReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", 405)
		return
	}
	s.trackMu.Lock()
	s.trackKm = 0
	s.trackMu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// pollLoop polls the receiver for fixes and, less often, the satellite
// table, then broadcasts combined frames. Satellite polls are spaced out
// because a full tracking frame is an order of magnitude larger than a fix.
func (s *Server) pollLoop(ctx context.Context) {
	posHz := s.cfg.Receiver.PositionHz
	if posHz <= 0 {
		posHz = 1
	}
	satEvery := s.cfg.Receiver.SatelliteEvery
	if satEvery <= 0 {
		satEvery = 10 * time.Second
	}

	posTicker := time.NewTicker(time.Second / time.Duration(posHz))
	satTicker := time.NewTicker(satEvery)
	defer posTicker.Stop()
	defer satTicker.Stop()

	var (
		mu       sync.Mutex
		lastFix  *gnss.Fix
		lastSats []gnss.Satellite
	)

	// Satellite polling goroutine — runs on its own cadence. The provider
	// serializes port access internally, so the two loops never overlap on
	// the wire.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-satTicker.C:
				if !s.provider.IsConnected() {
					continue
				}
				sats, err := s.provider.Satellites()
				if err != nil {
					log.Printf("[server] satellite poll failed: %v", err)
					continue
				}
				mu.Lock()
				lastSats = sats
				mu.Unlock()
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.logger.Close()
			return
		case <-posTicker.C:
			if s.provider.IsConnected() {
				if fix, err := s.provider.Position(); err == nil {
					mu.Lock()
					lastFix = fix
					mu.Unlock()
					if fix.Valid {
						s.updateTrack(fix)
					}
				} else {
					log.Printf("[server] position poll failed: %v", err)
				}
			}

			mu.Lock()
			fixSnap := lastFix
			satsSnap := lastSats
			mu.Unlock()

			if fixSnap == nil && satsSnap == nil {
				continue
			}

			s.trackMu.Lock()
			track := &TrackData{Km: math.Round(s.trackKm*1000) / 1000}
			s.trackMu.Unlock()

			frame := Frame{
				Fix:        fixSnap,
				Satellites: satsSnap,
				Summary:    summarize(satsSnap),
				Track:      track,
				Stamp:      time.Now().UnixMilli(),
			}
			s.broadcast(frame)

			// Record to CSV log and publish to MQTT
			s.logger.Record(fixSnap, satsSnap)
			if s.pub != nil && fixSnap != nil {
				if err := s.pub.PublishFix(fixSnap, satsSnap); err != nil {
					log.Printf("[server] publish failed: %v", err)
				}
			}
		}
	}
}

// summarize builds the per-constellation satellite counts.
func summarize(sats []gnss.Satellite) *SatSummary {
	if sats == nil {
		return nil
	}
	sum := &SatSummary{Constellations: make(map[string]int)}
	for _, sat := range sats {
		sum.Tracked++
		if sat.Used {
			sum.Used++
		}
		sum.Constellations[sat.Constellation]++
	}
	return sum
}

// updateTrack accumulates distance from consecutive valid fixes.
func (s *Server) updateTrack(fix *gnss.Fix) {
	s.trackMu.Lock()
	defer s.trackMu.Unlock()

	if !s.lastFixValid {
		// First valid fix: seed position, don't accumulate.
		s.lastLat = fix.Latitude
		s.lastLon = fix.Longitude
		s.lastFixValid = true
		return
	}

	dist := haversineKm(s.lastLat, s.lastLon, fix.Latitude, fix.Longitude)

	// Ignore jumps > 500m per tick (receiver glitch)
	if dist > 0.5 {
		s.lastLat = fix.Latitude
		s.lastLon = fix.Longitude
		return
	}

	// Minimum movement threshold: ~2 meters
	if dist > 0.002 {
		s.trackKm += dist
		s.lastLat = fix.Latitude
		s.lastLon = fix.Longitude
	}
}

// haversineKm calculates the great-circle distance between two lat/lon points.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371.0 // Earth radius km
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}

func (s *Server) broadcast(frame Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for client := range s.clients {
		select {
		case client.send <- data:
		default:
			// Client too slow, skip
		}
	}
}

package gnss

import (
	"bufio"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	"go.bug.st/serial"

	"github.com/ubxdash/ubxdash/internal/ubx"
)

// NMEAProvider covers receivers that only emit NMEA 0183 sentences.
// It produces the same Fix shape as the UBX provider so the rest of the
// stack does not care which protocol the receiver speaks.
type NMEAProvider struct {
	portPath string
	baudRate int

	mu        sync.Mutex
	port      serial.Port
	reader    *bufio.Reader
	connected bool
	last      Fix
	sats      []Satellite
	gsvBatch  []Satellite
}

// NMEAConfig holds configuration for the NMEA provider.
type NMEAConfig struct {
	PortPath string `yaml:"port_path" json:"portPath"`
	BaudRate int    `yaml:"baud_rate" json:"baudRate"`
}

// NewNMEA creates a new NMEA receiver provider.
func NewNMEA(cfg NMEAConfig) *NMEAProvider {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 9600 // standard NMEA default
	}
	return &NMEAProvider{
		portPath: cfg.PortPath,
		baudRate: cfg.BaudRate,
	}
}

func (n *NMEAProvider) Name() string { return "NMEA 0183" }

func (n *NMEAProvider) Connect() error {
	mode := &serial.Mode{
		BaudRate: n.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(n.portPath, mode)
	if err != nil {
		return fmt.Errorf("gnss: failed to open %s: %w", n.portPath, err)
	}
	port.SetReadTimeout(200 * time.Millisecond)

	n.mu.Lock()
	n.port = port
	n.reader = bufio.NewReader(port)
	n.connected = true
	n.mu.Unlock()

	log.Printf("[gnss] connected to %s at %d baud (NMEA)", n.portPath, n.baudRate)
	return nil
}

func (n *NMEAProvider) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.connected = false
	if n.port != nil {
		err := n.port.Close()
		n.port = nil
		n.reader = nil
		return err
	}
	return nil
}

func (n *NMEAProvider) IsConnected() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.connected
}

// Position reads sentences until an RMC has been seen (GGA fills in
// altitude if it arrives in the same window) and returns the latest fix.
func (n *NMEAProvider) Position() (*Fix, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.reader == nil {
		return nil, fmt.Errorf("gnss: not connected")
	}

	gotRMC := false
	for i := 0; i < 20 && !gotRMC; i++ {
		line, err := n.reader.ReadString('\n')
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "$") {
			continue
		}
		s, err := nmea.Parse(line)
		if err != nil {
			continue // noisy link or partial sentence
		}
		switch s.DataType() {
		case nmea.TypeRMC:
			m := s.(nmea.RMC)
			n.last.Valid = m.Validity == nmea.ValidRMC
			n.last.Timestamp = m.Time.String()
			if n.last.Valid {
				n.last.Latitude = m.Latitude
				n.last.Longitude = m.Longitude
				n.last.Speed = m.Speed * 1.852 // knots to km/h
				n.last.Heading = m.Course
			}
			gotRMC = true
		case nmea.TypeGGA:
			m := s.(nmea.GGA)
			n.last.HeightMSL = m.Altitude
		}
	}

	fix := n.last
	return &fix, nil
}

// Satellites reads GSV sentences and assembles the in-view satellite table.
// A GSV group spans several sentences; the table is replaced once the last
// sentence of a group has been seen.
func (n *NMEAProvider) Satellites() ([]Satellite, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.reader == nil {
		return nil, fmt.Errorf("gnss: not connected")
	}

	for i := 0; i < 30; i++ {
		line, err := n.reader.ReadString('\n')
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "$") {
			continue
		}
		s, err := nmea.Parse(line)
		if err != nil {
			continue
		}
		if s.DataType() != nmea.TypeGSV {
			continue
		}

		m := s.(nmea.GSV)
		if m.MessageNumber == 1 {
			n.gsvBatch = n.gsvBatch[:0]
		}
		for _, info := range m.Info {
			n.gsvBatch = append(n.gsvBatch, Satellite{
				Constellation: ubx.Classify(byte(info.SVPRNNumber)).String(),
				SVID:          int(info.SVPRNNumber),
				CNo:           int(info.SNR),
				Azimuth:       int(info.Azimuth),
				Elevation:     int(info.Elevation),
			})
		}
		if m.MessageNumber == m.TotalMessages {
			n.sats = append(n.sats[:0], n.gsvBatch...)
			break
		}
	}

	out := make([]Satellite, len(n.sats))
	copy(out, n.sats)
	return out, nil
}

package gnss

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"go.bug.st/serial"

	"github.com/ubxdash/ubxdash/internal/ubx"
)

// ErrDeviceNotFound is returned by Connect when the configured device path
// is not among the enumerated serial ports.
var ErrDeviceNotFound = errors.New("gnss: serial device not found")

// svUsed flag bits differ between the two satellite-info layouts.
const (
	navSatUsedMask = 0x08 // NAV-SAT flags bit 3
	svInfoUsedMask = 0x01 // NAV-SVINFO flags bit 0
)

// UbloxProvider implements Provider for u-blox receivers speaking the
// binary UBX protocol over a serial link.
//
// The port is an exclusively-owned resource: every poll holds the mutex for
// the whole send-wait-read cycle, so at most one request is ever in flight
// on the half-duplex link.
type UbloxProvider struct {
	portPath string
	baudRate int
	pollCfg  ubx.PollConfig

	mu        sync.Mutex
	port      serial.Port
	connected bool
}

// UbloxConfig holds connection configuration for the u-blox provider.
type UbloxConfig struct {
	PortPath string         `yaml:"port_path" json:"portPath"`
	BaudRate int            `yaml:"baud_rate" json:"baudRate"`
	Poll     ubx.PollConfig `yaml:"poll" json:"poll"`
}

// NewUblox creates a new u-blox UBX receiver provider.
func NewUblox(cfg UbloxConfig) *UbloxProvider {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 9600
	}
	return &UbloxProvider{
		portPath: cfg.PortPath,
		baudRate: cfg.BaudRate,
		pollCfg:  cfg.Poll.WithDefaults(),
	}
}

func (u *UbloxProvider) Name() string { return "u-blox UBX" }

// Connect enumerates serial devices, opens the configured one and verifies
// the receiver answers a NAV-POSLLH poll.
func (u *UbloxProvider) Connect() error {
	ports, err := serial.GetPortsList()
	if err != nil {
		return fmt.Errorf("gnss: enumerating serial ports: %w", err)
	}
	found := false
	for _, p := range ports {
		if p == u.portPath {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, u.portPath)
	}

	mode := &serial.Mode{
		BaudRate: u.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(u.portPath, mode)
	if err != nil {
		return fmt.Errorf("gnss: failed to open %s: %w", u.portPath, err)
	}
	if err := port.SetReadTimeout(u.pollCfg.AttemptTimeout); err != nil {
		port.Close()
		return fmt.Errorf("gnss: failed to set timeout: %w", err)
	}

	u.mu.Lock()
	u.port = port
	u.mu.Unlock()

	log.Printf("[gnss] opened %s at %d baud", u.portPath, u.baudRate)

	// Handshake: the receiver is alive if it answers a position poll.
	if _, err := u.Position(); err != nil {
		u.Close()
		return fmt.Errorf("gnss: no UBX response on %s: %w", u.portPath, err)
	}

	u.mu.Lock()
	u.connected = true
	u.mu.Unlock()
	log.Printf("[gnss] connected to %s at %d baud (UBX protocol)", u.portPath, u.baudRate)
	return nil
}

func (u *UbloxProvider) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.connected = false
	if u.port != nil {
		err := u.port.Close()
		u.port = nil
		return err
	}
	return nil
}

func (u *UbloxProvider) IsConnected() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.connected
}

// Position polls NAV-POSLLH and decodes the response into a Fix.
func (u *UbloxProvider) Position() (*Fix, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.port == nil {
		return nil, fmt.Errorf("gnss: not connected")
	}
	u.port.ResetInputBuffer()

	msg, err := ubx.Poll(u.port, ubx.ClassNAV, ubx.IDNavPosLLH, nil, u.pollCfg)
	if err != nil {
		return nil, err
	}

	pos, ok := ubx.DecodePosition(msg.Payload)
	if !ok {
		return nil, fmt.Errorf("gnss: NAV-POSLLH payload too short (%d bytes)", len(msg.Payload))
	}
	return fixFromPosition(pos), nil
}

// Satellites polls NAV-SAT and falls back to the legacy NAV-SVINFO when the
// receiver does not answer it (older firmware revisions only speak 0x30).
func (u *UbloxProvider) Satellites() ([]Satellite, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.port == nil {
		return nil, fmt.Errorf("gnss: not connected")
	}
	u.port.ResetInputBuffer()

	msg, err := ubx.Poll(u.port, ubx.ClassNAV, ubx.IDNavSat, nil, u.pollCfg)
	if err == nil {
		return satellitesFromRows(ubx.DecodeNavSat(msg.Payload), navSatUsedMask), nil
	}
	if !errors.Is(err, ubx.ErrNoResponse) {
		return nil, err
	}

	log.Printf("[gnss] NAV-SAT unanswered, falling back to NAV-SVINFO")
	u.port.ResetInputBuffer()
	msg, err = ubx.Poll(u.port, ubx.ClassNAV, ubx.IDNavSVInfo, nil, u.pollCfg)
	if err != nil {
		return nil, err
	}
	return satellitesFromRows(ubx.DecodeSVInfo(msg.Payload), svInfoUsedMask), nil
}

// fixFromPosition converts a decoded NAV-POSLLH record into the provider Fix.
func fixFromPosition(pos ubx.PositionFix) *Fix {
	return &Fix{
		Valid:     true,
		ITOW:      pos.ITOW,
		Latitude:  pos.Latitude,
		Longitude: pos.Longitude,
		Height:    pos.Height,
		HeightMSL: pos.HeightMSL,
		HAcc:      pos.HAcc,
		VAcc:      pos.VAcc,
	}
}

// satellitesFromRows converts decoded rows, resolving the used bit with the
// layout's flag mask.
func satellitesFromRows(rows []ubx.SatelliteRow, usedMask byte) []Satellite {
	sats := make([]Satellite, 0, len(rows))
	for _, r := range rows {
		sats = append(sats, Satellite{
			Constellation: r.Constellation.String(),
			SVID:          int(r.SVID),
			CNo:           int(r.CNo),
			Azimuth:       int(r.Azimuth),
			Elevation:     int(r.Elevation),
			Quality:       int(r.Quality),
			Used:          r.Flags&usedMask != 0,
		})
	}
	return sats
}

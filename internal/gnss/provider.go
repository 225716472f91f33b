package gnss

// Provider is the interface that all receiver backends implement.
// UbloxProvider speaks the binary UBX protocol; NMEAProvider covers
// receivers that only emit NMEA 0183; DemoProvider simulates both.
type Provider interface {
	// Name returns the human-readable name of this receiver backend.
	Name() string
	// Connect opens the serial port and verifies communication.
	Connect() error
	// Close cleanly shuts down the serial connection.
	Close() error
	// IsConnected returns whether the provider has an active connection.
	IsConnected() bool

	// Position polls the receiver for the current geodetic fix.
	Position() (*Fix, error)
	// Satellites polls the receiver for the currently tracked satellites.
	Satellites() ([]Satellite, error)
}

// Fix holds a single decoded position fix.
type Fix struct {
	Valid     bool    `json:"valid"`     // Fix is usable
	ITOW      uint32  `json:"itow"`      // GPS time of week, ms (UBX only)
	Latitude  float64 `json:"latitude"`  // Decimal degrees
	Longitude float64 `json:"longitude"` // Decimal degrees
	Height    float64 `json:"height"`    // Meters above ellipsoid
	HeightMSL float64 `json:"heightMsl"` // Meters above mean sea level
	HAcc      float64 `json:"hacc"`      // Horizontal accuracy estimate, m
	VAcc      float64 `json:"vacc"`      // Vertical accuracy estimate, m
	Speed     float64 `json:"speed"`     // km/h over ground (NMEA only)
	Heading   float64 `json:"heading"`   // Degrees true (NMEA only)
	Timestamp string  `json:"timestamp"` // UTC time string (NMEA only)
}

// Satellite is one tracked satellite with its constellation resolved.
type Satellite struct {
	Constellation string `json:"constellation"`
	SVID          int    `json:"svid"`
	CNo           int    `json:"cno"`       // dBHz
	Azimuth       int    `json:"azimuth"`   // degrees
	Elevation     int    `json:"elevation"` // degrees
	Quality       int    `json:"quality"`
	Used          bool   `json:"used"` // part of the nav solution
}

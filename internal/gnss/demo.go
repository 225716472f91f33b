package gnss

import (
	"math"
	"math/rand"
	"sync"

	"github.com/ubxdash/ubxdash/internal/ubx"
)

// DemoProvider generates simulated fixes and a satellite table for
// development and testing without a receiver attached.
type DemoProvider struct {
	mu      sync.Mutex
	running bool
	t       float64 // virtual time accumulator
}

func NewDemoProvider() *DemoProvider {
	return &DemoProvider{}
}

func (d *DemoProvider) Name() string   { return "Demo (Simulated)" }
func (d *DemoProvider) Connect() error { d.running = true; return nil }
func (d *DemoProvider) Close() error   { d.running = false; return nil }

func (d *DemoProvider) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func (d *DemoProvider) Position() (*Fix, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.t += 0.1

	// Wander in a slow circle around a point.
	centerLat := 48.1351 // Munich
	centerLon := 11.5820
	radius := 0.005 // ~500 m

	return &Fix{
		Valid:     true,
		ITOW:      uint32(d.t * 1000),
		Latitude:  centerLat + radius*math.Sin(d.t*0.1),
		Longitude: centerLon + radius*math.Cos(d.t*0.1),
		Height:    565 + rand.Float64()*2,
		HeightMSL: 519 + rand.Float64()*2,
		HAcc:      1.5 + rand.Float64(),
		VAcc:      2.5 + rand.Float64(),
		Speed:     18 + 4*math.Sin(d.t*0.3),
		Heading:   math.Mod(d.t*10, 360),
	}, nil
}

// demoSVIDs covers every constellation the classifier knows.
var demoSVIDs = []byte{3, 7, 14, 22, 31, 44, 68, 75, 133, 194, 214, 229}

func (d *DemoProvider) Satellites() ([]Satellite, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.t += 0.1

	sats := make([]Satellite, 0, len(demoSVIDs))
	for i, svid := range demoSVIDs {
		phase := d.t*0.05 + float64(i)
		cno := 32 + 10*math.Sin(phase)
		sats = append(sats, Satellite{
			Constellation: ubx.Classify(svid).String(),
			SVID:          int(svid),
			CNo:           int(cno),
			Azimuth:       int(math.Mod(float64(i)*30+d.t, 360)),
			Elevation:     int(15 + 60*math.Abs(math.Sin(phase*0.5))),
			Quality:       4,
			Used:          cno > 28,
		})
	}
	return sats, nil
}

package gnss

import (
	"bufio"
	"fmt"
	"math"
	"strings"
	"testing"
)

// nmeaLine wraps a payload with the $ prefix and XOR checksum suffix.
func nmeaLine(payload string) string {
	ck := byte(0)
	for i := 0; i < len(payload); i++ {
		ck ^= payload[i]
	}
	return fmt.Sprintf("$%s*%02X\r\n", payload, ck)
}

// nmeaFromLines builds a provider whose reader is fed canned sentences.
func nmeaFromLines(lines ...string) *NMEAProvider {
	return &NMEAProvider{
		reader:    bufio.NewReader(strings.NewReader(strings.Join(lines, ""))),
		connected: true,
	}
}

func TestNMEAPosition(t *testing.T) {
	n := nmeaFromLines(
		nmeaLine("GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"),
		nmeaLine("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W"),
	)

	fix, err := n.Position()
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if !fix.Valid {
		t.Fatal("expected valid fix")
	}
	if math.Abs(fix.Latitude-48.1173) > 0.001 {
		t.Fatalf("Latitude = %f, want ~48.1173", fix.Latitude)
	}
	if math.Abs(fix.Longitude-11.5167) > 0.001 {
		t.Fatalf("Longitude = %f, want ~11.5167", fix.Longitude)
	}
	// 22.4 knots to km/h
	if math.Abs(fix.Speed-22.4*1.852) > 0.01 {
		t.Fatalf("Speed = %f, want %f", fix.Speed, 22.4*1.852)
	}
	if math.Abs(fix.HeightMSL-545.4) > 0.01 {
		t.Fatalf("HeightMSL = %f, want 545.4", fix.HeightMSL)
	}
}

func TestNMEAPositionInvalidFix(t *testing.T) {
	n := nmeaFromLines(
		nmeaLine("GPRMC,123519,V,,,,,,,230394,,"),
	)
	fix, err := n.Position()
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if fix.Valid {
		t.Fatal("void RMC must not produce a valid fix")
	}
}

func TestNMEAPositionSkipsGarbage(t *testing.T) {
	n := nmeaFromLines(
		"not nmea at all\r\n",
		"$GPRMC,corrupted*00\r\n",
		nmeaLine("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W"),
	)
	fix, err := n.Position()
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if !fix.Valid {
		t.Fatal("expected valid fix after skipping garbage")
	}
}

func TestNMEASatellites(t *testing.T) {
	n := nmeaFromLines(
		nmeaLine("GPGSV,2,1,07,01,40,083,46,02,17,308,41,12,07,344,39,14,22,228,45"),
		nmeaLine("GPGSV,2,2,07,65,51,213,42,70,06,294,00,195,21,105,38"),
	)

	sats, err := n.Satellites()
	if err != nil {
		t.Fatalf("Satellites: %v", err)
	}
	if len(sats) != 7 {
		t.Fatalf("got %d satellites, want 7", len(sats))
	}
	if sats[0].SVID != 1 || sats[0].CNo != 46 || sats[0].Constellation != "GPS" {
		t.Fatalf("first row = %+v", sats[0])
	}
	if sats[4].SVID != 65 || sats[4].Constellation != "GLONASS" {
		t.Fatalf("fifth row = %+v", sats[4])
	}
	if sats[6].SVID != 195 || sats[6].Constellation != "QZSS" {
		t.Fatalf("seventh row = %+v", sats[6])
	}
}

func TestNMEANotConnected(t *testing.T) {
	n := NewNMEA(NMEAConfig{PortPath: "/dev/null"})
	if _, err := n.Position(); err == nil {
		t.Fatal("expected error when not connected")
	}
	if _, err := n.Satellites(); err == nil {
		t.Fatal("expected error when not connected")
	}
}

package ubx

import (
	"encoding/binary"
	"math"
	"testing"
)

func posllhPayload(lon, lat, height, hmsl int32, hacc, vacc uint32) []byte {
	p := make([]byte, 28)
	binary.LittleEndian.PutUint32(p[0:4], 123456789) // iTOW
	binary.LittleEndian.PutUint32(p[4:8], uint32(lon))
	binary.LittleEndian.PutUint32(p[8:12], uint32(lat))
	binary.LittleEndian.PutUint32(p[12:16], uint32(height))
	binary.LittleEndian.PutUint32(p[16:20], uint32(hmsl))
	binary.LittleEndian.PutUint32(p[20:24], hacc)
	binary.LittleEndian.PutUint32(p[24:28], vacc)
	return p
}

func TestDecodePosition(t *testing.T) {
	p := posllhPayload(1234567, -451234567, 123456, 98765, 2500, 4100)
	fix, ok := DecodePosition(p)
	if !ok {
		t.Fatal("rejected 28-byte payload")
	}
	if fix.ITOW != 123456789 {
		t.Fatalf("ITOW = %d, want 123456789", fix.ITOW)
	}
	if math.Abs(fix.Longitude-0.1234567) > 1e-9 {
		t.Fatalf("Longitude = %.10f, want 0.1234567", fix.Longitude)
	}
	if math.Abs(fix.Latitude-(-45.1234567)) > 1e-9 {
		t.Fatalf("Latitude = %.10f, want -45.1234567", fix.Latitude)
	}
	if math.Abs(fix.Height-123.456) > 1e-9 {
		t.Fatalf("Height = %f, want 123.456", fix.Height)
	}
	if math.Abs(fix.HeightMSL-98.765) > 1e-9 {
		t.Fatalf("HeightMSL = %f, want 98.765", fix.HeightMSL)
	}
	if math.Abs(fix.HAcc-2.5) > 1e-9 || math.Abs(fix.VAcc-4.1) > 1e-9 {
		t.Fatalf("accuracy = (%f, %f), want (2.5, 4.1)", fix.HAcc, fix.VAcc)
	}
}

func TestDecodePositionShortPayload(t *testing.T) {
	if _, ok := DecodePosition(make([]byte, 27)); ok {
		t.Fatal("accepted 27-byte payload")
	}
	if _, ok := DecodePosition(nil); ok {
		t.Fatal("accepted empty payload")
	}
}

// navSatPayload builds a NAV-SAT payload declaring count satellites but
// carrying only rows complete 12-byte blocks.
func navSatPayload(count, rows int) []byte {
	p := make([]byte, satHeaderLen+rows*satRowLen)
	p[5] = byte(count)
	for i := 0; i < rows; i++ {
		base := satHeaderLen + i*satRowLen
		p[base] = 0              // gnssId
		p[base+1] = byte(i + 1)  // svId
		p[base+2] = byte(30 + i) // cno
		p[base+3] = 0x17         // flags
		binary.LittleEndian.PutUint16(p[base+4:base+6], uint16(90*i))
		p[base+6] = byte(int8(40 - i)) // elev
		p[base+7] = 1                  // orbit source
	}
	return p
}

func TestDecodeNavSat(t *testing.T) {
	rows := DecodeNavSat(navSatPayload(2, 2))
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	r := rows[1]
	if r.SVID != 2 || r.CNo != 31 || r.Azimuth != 90 || r.Elevation != 39 {
		t.Fatalf("row = %+v", r)
	}
	if r.Constellation != ConstellationGPS {
		t.Fatalf("constellation = %v, want GPS", r.Constellation)
	}
}

func TestDecodeNavSatTruncated(t *testing.T) {
	// Declared 3 satellites, bytes for only 2 complete rows: partial result,
	// not an error.
	rows := DecodeNavSat(navSatPayload(3, 2))
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	// A payload holding 2 rows plus half of a third still yields 2.
	p := append(navSatPayload(3, 2), make([]byte, 6)...)
	if rows := DecodeNavSat(p); len(rows) != 2 {
		t.Fatalf("got %d rows with partial third block, want 2", len(rows))
	}
}

func TestDecodeNavSatShortHeader(t *testing.T) {
	if rows := DecodeNavSat(make([]byte, 7)); rows != nil {
		t.Fatalf("got %d rows for short header, want none", len(rows))
	}
}

func TestDecodeSVInfo(t *testing.T) {
	p := make([]byte, satHeaderLen+2*satRowLen)
	p[4] = 2 // numCh sits at byte 4 on the legacy layout
	for i := 0; i < 2; i++ {
		base := satHeaderLen + i*satRowLen
		p[base] = byte(i)        // chn
		p[base+1] = byte(65 + i) // svid: GLONASS range
		p[base+2] = 0x0D         // flags
		p[base+3] = 7            // quality
		p[base+4] = byte(42 + i) // cno
		p[base+5] = byte(int8(55))
		binary.LittleEndian.PutUint16(p[base+6:base+8], 270)
	}

	rows := DecodeSVInfo(p)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	r := rows[0]
	if r.SVID != 65 || r.CNo != 42 || r.Quality != 7 || r.Elevation != 55 || r.Azimuth != 270 {
		t.Fatalf("row = %+v", r)
	}
	if r.Constellation != ConstellationGLONASS {
		t.Fatalf("constellation = %v, want GLONASS", r.Constellation)
	}
}

func TestDecodeSVInfoTruncated(t *testing.T) {
	p := make([]byte, satHeaderLen+satRowLen+4)
	p[4] = 3
	if rows := DecodeSVInfo(p); len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
}

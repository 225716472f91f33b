package ubx

import "encoding/binary"

// PositionFix is a decoded NAV-POSLLH payload.
type PositionFix struct {
	ITOW      uint32  // GPS time of week, ms
	Longitude float64 // degrees
	Latitude  float64 // degrees
	Height    float64 // meters above ellipsoid
	HeightMSL float64 // meters above mean sea level
	HAcc      float64 // horizontal accuracy estimate, meters
	VAcc      float64 // vertical accuracy estimate, meters
}

// SatelliteRow is one tracked satellite from NAV-SAT or NAV-SVINFO.
//
// GNSSID carries the gnssId byte for NAV-SAT rows and the channel number for
// legacy NAV-SVINFO rows. Quality is the NAV-SAT orbit source or the
// NAV-SVINFO quality indicator.
type SatelliteRow struct {
	GNSSID        byte
	SVID          byte
	CNo           byte // carrier-to-noise ratio, dBHz
	Flags         byte
	Azimuth       int16 // degrees
	Elevation     int8  // degrees
	Quality       byte
	Constellation Constellation
}

const (
	navPosLLHMinLen = 28

	satHeaderLen = 8
	satRowLen    = 12
)

// DecodePosition decodes a NAV-POSLLH payload. Returns false when the
// payload is too short to hold the fix fields.
func DecodePosition(payload []byte) (PositionFix, bool) {
	if len(payload) < navPosLLHMinLen {
		return PositionFix{}, false
	}

	return PositionFix{
		ITOW:      binary.LittleEndian.Uint32(payload[0:4]),
		Longitude: float64(int32(binary.LittleEndian.Uint32(payload[4:8]))) * 1e-7,
		Latitude:  float64(int32(binary.LittleEndian.Uint32(payload[8:12]))) * 1e-7,
		Height:    float64(int32(binary.LittleEndian.Uint32(payload[12:16]))) / 1000.0,
		HeightMSL: float64(int32(binary.LittleEndian.Uint32(payload[16:20]))) / 1000.0,
		HAcc:      float64(binary.LittleEndian.Uint32(payload[20:24])) / 1000.0,
		VAcc:      float64(binary.LittleEndian.Uint32(payload[24:28])) / 1000.0,
	}, true
}

// DecodeNavSat decodes a NAV-SAT (0x01/0x35) payload into satellite rows.
//
// numSvs sits at byte 5. Rows are 12 bytes starting at byte 8:
// gnssId, svId, cno, flags, azim (LE int16), elev (int8), orbit source.
// Decoding stops at the first row that would overrun the payload; the rows
// decoded so far are returned. A short or missing header yields no rows.
func DecodeNavSat(payload []byte) []SatelliteRow {
	if len(payload) < satHeaderLen {
		return nil
	}

	numSvs := int(payload[5])
	rows := make([]SatelliteRow, 0, numSvs)
	for i := 0; i < numSvs; i++ {
		base := satHeaderLen + i*satRowLen
		if base+satRowLen > len(payload) {
			break // truncated block, keep what we have
		}

		svid := payload[base+1]
		rows = append(rows, SatelliteRow{
			GNSSID:        payload[base],
			SVID:          svid,
			CNo:           payload[base+2],
			Flags:         payload[base+3],
			Azimuth:       int16(binary.LittleEndian.Uint16(payload[base+4 : base+6])),
			Elevation:     int8(payload[base+6]),
			Quality:       payload[base+7],
			Constellation: Classify(svid),
		})
	}
	return rows
}

// DecodeSVInfo decodes a legacy NAV-SVINFO (0x01/0x30) payload.
//
// numCh sits at byte 4. Rows are 12 bytes starting at byte 8:
// chn, svid, flags, quality, cno, elev (int8), azim (LE int16), prRes.
// Same graceful-truncation policy as DecodeNavSat.
func DecodeSVInfo(payload []byte) []SatelliteRow {
	if len(payload) < satHeaderLen {
		return nil
	}

	numCh := int(payload[4])
	rows := make([]SatelliteRow, 0, numCh)
	for i := 0; i < numCh; i++ {
		base := satHeaderLen + i*satRowLen
		if base+satRowLen > len(payload) {
			break
		}

		svid := payload[base+1]
		rows = append(rows, SatelliteRow{
			GNSSID:        payload[base], // channel number on this layout
			SVID:          svid,
			Flags:         payload[base+2],
			Quality:       payload[base+3],
			CNo:           payload[base+4],
			Elevation:     int8(payload[base+5]),
			Azimuth:       int16(binary.LittleEndian.Uint16(payload[base+6 : base+8])),
			Constellation: Classify(svid),
		})
	}
	return rows
}

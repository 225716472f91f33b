package server

import (
	"math"
	"testing"

	"github.com/ubxdash/ubxdash/internal/gnss"
)

func TestSummarize(t *testing.T) {
	sats := []gnss.Satellite{
		{Constellation: "GPS", Used: true},
		{Constellation: "GPS", Used: false},
		{Constellation: "GLONASS", Used: true},
	}
	sum := summarize(sats)
	if sum.Tracked != 3 || sum.Used != 2 {
		t.Fatalf("tracked=%d used=%d, want 3/2", sum.Tracked, sum.Used)
	}
	if sum.Constellations["GPS"] != 2 || sum.Constellations["GLONASS"] != 1 {
		t.Fatalf("constellations = %v", sum.Constellations)
	}
}

func TestSummarizeNil(t *testing.T) {
	if sum := summarize(nil); sum != nil {
		t.Fatalf("summarize(nil) = %+v, want nil", sum)
	}
}

func TestHaversineKm(t *testing.T) {
	// Munich to Nuremberg, roughly 150 km.
	d := haversineKm(48.1351, 11.5820, 49.4521, 11.0767)
	if d < 140 || d > 160 {
		t.Fatalf("distance = %.1f km, want ~150", d)
	}
	if d := haversineKm(48.0, 11.0, 48.0, 11.0); d != 0 {
		t.Fatalf("zero-distance = %f", d)
	}
}

func TestUpdateTrack(t *testing.T) {
	s := &Server{}

	// First fix seeds but does not accumulate.
	s.updateTrack(&gnss.Fix{Valid: true, Latitude: 48.0, Longitude: 11.0})
	if s.trackKm != 0 {
		t.Fatalf("trackKm = %f after seed, want 0", s.trackKm)
	}

	// ~111 m north.
	s.updateTrack(&gnss.Fix{Valid: true, Latitude: 48.001, Longitude: 11.0})
	if s.trackKm < 0.10 || s.trackKm > 0.12 {
		t.Fatalf("trackKm = %f, want ~0.111", s.trackKm)
	}

	// A 1-degree jump is a glitch and must not accumulate.
	before := s.trackKm
	s.updateTrack(&gnss.Fix{Valid: true, Latitude: 49.001, Longitude: 11.0})
	if s.trackKm != before {
		t.Fatalf("trackKm = %f after glitch, want %f", s.trackKm, before)
	}

	// Sub-threshold jitter (< 2 m) is ignored.
	before = s.trackKm
	s.updateTrack(&gnss.Fix{Valid: true, Latitude: 49.001 + 1e-6, Longitude: 11.0})
	if s.trackKm != before {
		t.Fatalf("trackKm = %f after jitter, want %f", s.trackKm, before)
	}
	if math.IsNaN(s.trackKm) {
		t.Fatal("trackKm is NaN")
	}
}

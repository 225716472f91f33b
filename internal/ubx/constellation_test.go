package ubx

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		svid byte
		want Constellation
	}{
		{1, ConstellationGPS},
		{32, ConstellationGPS},
		{33, ConstellationBeiDou},
		{64, ConstellationBeiDou},
		{65, ConstellationGLONASS},
		{96, ConstellationGLONASS},
		{120, ConstellationSBAS},
		{158, ConstellationSBAS},
		{159, ConstellationBeiDou},
		{163, ConstellationBeiDou},
		{183, ConstellationSBAS},
		{192, ConstellationSBAS},
		{193, ConstellationQZSS},
		{197, ConstellationQZSS},
		{211, ConstellationGalileo},
		{246, ConstellationGalileo},
		{0, ConstellationUnknown},
		{97, ConstellationUnknown},
		{250, ConstellationUnknown},
		{255, ConstellationUnknown},
	}
	for _, tc := range cases {
		if got := Classify(tc.svid); got != tc.want {
			t.Errorf("Classify(%d) = %v, want %v", tc.svid, got, tc.want)
		}
	}
}

func TestConstellationString(t *testing.T) {
	if s := ConstellationGLONASS.String(); s != "GLONASS" {
		t.Fatalf("String() = %q, want GLONASS", s)
	}
	if s := Constellation(99).String(); s != "Unknown" {
		t.Fatalf("String() = %q, want Unknown", s)
	}
}

package gps

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestParseRMC(t *testing.T) {
	var p Parser
	pt, err := p.ParseSentence("$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A")
	if err != nil {
		t.Fatalf("ParseSentence: %v", err)
	}
	wantLat := 48 + 7.038/60
	wantLng := 11 + 31.000/60
	if math.Abs(pt.Lat-wantLat) > 1e-9 {
		t.Errorf("lat = %f, want %f", pt.Lat, wantLat)
	}
	if math.Abs(pt.Lng-wantLng) > 1e-9 {
		t.Errorf("lng = %f, want %f", pt.Lng, wantLng)
	}
	wantTime := time.Date(1994, time.March, 23, 12, 35, 19, 0, time.UTC)
	if pt.UnixMs != wantTime.UnixMilli() {
		t.Errorf("timestamp = %d, want %d (%s)", pt.UnixMs, wantTime.UnixMilli(), wantTime)
	}
	if pt.AccuracyMeters != 0 {
		t.Errorf("accuracy without prior GGA = %f, want 0", pt.AccuracyMeters)
	}
}

func TestParseRMCSouthernHemisphere(t *testing.T) {
	var p Parser
	pt, err := p.ParseSentence("$GNRMC,081836,A,3751.65,S,14507.36,E,000.0,360.0,130998,011.3,E*7C")
	if err != nil {
		t.Fatalf("ParseSentence: %v", err)
	}
	if pt.Lat >= 0 {
		t.Errorf("southern latitude = %f, want negative", pt.Lat)
	}
	if pt.Lng <= 0 {
		t.Errorf("eastern longitude = %f, want positive", pt.Lng)
	}
	wantLat := -(37 + 51.65/60)
	if math.Abs(pt.Lat-wantLat) > 1e-9 {
		t.Errorf("lat = %f, want %f", pt.Lat, wantLat)
	}
}

func TestParseRMCNoFix(t *testing.T) {
	var p Parser
	_, err := p.ParseSentence("$GPRMC,123519,V,,,,,,,230394,,*33")
	if !errors.Is(err, ErrNoFix) {
		t.Errorf("void RMC: err = %v, want ErrNoFix", err)
	}
}

func TestGGAUpdatesAccuracy(t *testing.T) {
	var p Parser
	_, err := p.ParseSentence("$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47")
	if !errors.Is(err, ErrSkip) {
		t.Fatalf("GGA: err = %v, want ErrSkip", err)
	}
	pt, err := p.ParseSentence("$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A")
	if err != nil {
		t.Fatalf("RMC after GGA: %v", err)
	}
	if math.Abs(pt.AccuracyMeters-0.9*hdopBaseMeters) > 1e-9 {
		t.Errorf("accuracy = %f, want %f", pt.AccuracyMeters, 0.9*hdopBaseMeters)
	}
}

func TestParseSentenceRejectsBadChecksum(t *testing.T) {
	var p Parser
	cases := []struct {
		name string
		line string
	}{
		{"wrong checksum", "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*00"},
		{"missing checksum", "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W"},
		{"missing dollar", "GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A"},
	}
	for _, tc := range cases {
		if _, err := p.ParseSentence(tc.line); err == nil {
			t.Errorf("%s: expected error", tc.name)
		} else if errors.Is(err, ErrSkip) || errors.Is(err, ErrNoFix) {
			t.Errorf("%s: got routine sentinel %v, want hard error", tc.name, err)
		}
	}
}

func TestParseSentenceSkipsUnknownTypes(t *testing.T) {
	var p Parser
	// GSV carries satellite info, never a position.
	_, err := p.ParseSentence("$GPGSV,3,1,11,03,03,111,00,04,15,270,00,06,01,010,00,13,06,292,00*74")
	if !errors.Is(err, ErrSkip) {
		t.Errorf("GSV: err = %v, want ErrSkip", err)
	}
}

func TestParseCoordinate(t *testing.T) {
	cases := []struct {
		value, hemi string
		want        float64
		wantErr     bool
	}{
		{"4807.038", "N", 48 + 7.038/60, false},
		{"4807.038", "S", -(48 + 7.038/60), false},
		{"01131.000", "E", 11 + 31.0/60, false},
		{"01131.000", "W", -(11 + 31.0/60), false},
		{"", "N", 0, true},
		{"4807.038", "", 0, true},
		{"4807.038", "X", 0, true},
		{"not-a-number", "N", 0, true},
	}
	for _, tc := range cases {
		got, err := parseCoordinate(tc.value, tc.hemi)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseCoordinate(%q, %q): expected error", tc.value, tc.hemi)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseCoordinate(%q, %q): %v", tc.value, tc.hemi, err)
			continue
		}
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("parseCoordinate(%q, %q) = %f, want %f", tc.value, tc.hemi, got, tc.want)
		}
	}
}

func TestParseTimestampFractionalSeconds(t *testing.T) {
	ts, err := parseTimestamp("280826", "120001.50")
	if err != nil {
		t.Fatalf("parseTimestamp: %v", err)
	}
	want := time.Date(2026, time.August, 28, 12, 0, 1, 500000000, time.UTC)
	if !ts.Equal(want) {
		t.Errorf("timestamp = %s, want %s", ts, want)
	}
}

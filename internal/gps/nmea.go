// Package gps implements position sources for the wandering engine: a
// real NMEA-0183 receiver on a serial port and a fixture-driven mock.
package gps

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/elmbrook/wanderguard/internal/geo"
)

// hdopBaseMeters converts HDOP into an approximate horizontal accuracy.
// 5 m is the nominal user range accuracy of a consumer GPS receiver.
const hdopBaseMeters = 5.0

// ErrNoFix is returned for structurally valid sentences that carry no
// position fix (receiver still acquiring).
var ErrNoFix = fmt.Errorf("no position fix")

// ErrSkip is returned for sentence types the parser does not produce
// points from.
var ErrSkip = fmt.Errorf("sentence not position-bearing")

// Parser converts NMEA-0183 sentences into position samples. RMC
// sentences produce points; GGA sentences update the running HDOP used
// to estimate accuracy. Safe for use from a single reader goroutine plus
// concurrent accuracy reads.
type Parser struct {
	mu       sync.Mutex
	lastHDOP float64
}

// ParseSentence parses one NMEA line. It returns ErrSkip for sentences
// that do not yield a point, ErrNoFix while the receiver has no fix, and
// a descriptive error for malformed input.
func (p *Parser) ParseSentence(line string) (geo.Point, error) {
	line = strings.TrimSpace(line)
	body, err := validateChecksum(line)
	if err != nil {
		return geo.Point{}, err
	}

	fields := strings.Split(body, ",")
	if len(fields) == 0 {
		return geo.Point{}, fmt.Errorf("empty sentence")
	}

	// Accept any talker (GP, GN, GL, ...) and dispatch on the sentence
	// type in the last three characters.
	typ := fields[0]
	if len(typ) < 5 {
		return geo.Point{}, fmt.Errorf("short sentence type %q", typ)
	}
	switch typ[len(typ)-3:] {
	case "RMC":
		return p.parseRMC(fields)
	case "GGA":
		p.parseGGA(fields)
		return geo.Point{}, ErrSkip
	default:
		return geo.Point{}, ErrSkip
	}
}

// parseRMC handles the recommended minimum sentence:
// $GPRMC,hhmmss.ss,A,llll.ll,a,yyyyy.yy,a,speed,course,ddmmyy,...
func (p *Parser) parseRMC(fields []string) (geo.Point, error) {
	if len(fields) < 10 {
		return geo.Point{}, fmt.Errorf("RMC sentence has %d fields, want at least 10", len(fields))
	}
	if fields[2] != "A" {
		return geo.Point{}, ErrNoFix
	}

	lat, err := parseCoordinate(fields[3], fields[4])
	if err != nil {
		return geo.Point{}, fmt.Errorf("bad RMC latitude: %w", err)
	}
	lng, err := parseCoordinate(fields[5], fields[6])
	if err != nil {
		return geo.Point{}, fmt.Errorf("bad RMC longitude: %w", err)
	}
	ts, err := parseTimestamp(fields[9], fields[1])
	if err != nil {
		return geo.Point{}, fmt.Errorf("bad RMC timestamp: %w", err)
	}

	p.mu.Lock()
	hdop := p.lastHDOP
	p.mu.Unlock()

	pt := geo.Point{Lat: lat, Lng: lng, UnixMs: ts.UnixMilli()}
	if hdop > 0 {
		pt.AccuracyMeters = hdop * hdopBaseMeters
	}
	return pt, nil
}

// parseGGA extracts the HDOP (field 8) for accuracy estimation.
func (p *Parser) parseGGA(fields []string) {
	if len(fields) < 9 {
		return
	}
	hdop, err := strconv.ParseFloat(fields[8], 64)
	if err != nil || hdop <= 0 {
		return
	}
	p.mu.Lock()
	p.lastHDOP = hdop
	p.mu.Unlock()
}

// validateChecksum strips the leading '$' and trailing '*hh', verifying
// the XOR checksum, and returns the sentence body.
func validateChecksum(line string) (string, error) {
	if !strings.HasPrefix(line, "$") {
		return "", fmt.Errorf("sentence missing leading $")
	}
	star := strings.LastIndexByte(line, '*')
	if star < 0 || star+3 > len(line) {
		return "", fmt.Errorf("sentence missing checksum")
	}
	body := line[1:star]
	want, err := strconv.ParseUint(line[star+1:star+3], 16, 8)
	if err != nil {
		return "", fmt.Errorf("bad checksum field: %w", err)
	}
	var sum byte
	for i := 0; i < len(body); i++ {
		sum ^= body[i]
	}
	if sum != byte(want) {
		return "", fmt.Errorf("checksum mismatch: computed %02X, sentence says %02X", sum, want)
	}
	return body, nil
}

// parseCoordinate converts NMEA ddmm.mmmm / dddmm.mmmm plus hemisphere
// into signed decimal degrees.
func parseCoordinate(value, hemisphere string) (float64, error) {
	if value == "" || hemisphere == "" {
		return 0, fmt.Errorf("empty coordinate")
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	degrees := float64(int(v / 100))
	minutes := v - degrees*100
	dec := degrees + minutes/60
	switch hemisphere {
	case "N", "E":
		return dec, nil
	case "S", "W":
		return -dec, nil
	default:
		return 0, fmt.Errorf("unknown hemisphere %q", hemisphere)
	}
}

// parseTimestamp combines the RMC ddmmyy date and hhmmss.ss UTC time
// fields into a time.Time.
func parseTimestamp(date, clock string) (time.Time, error) {
	if len(date) != 6 || len(clock) < 6 {
		return time.Time{}, fmt.Errorf("date %q / time %q", date, clock)
	}
	day, err1 := strconv.Atoi(date[0:2])
	month, err2 := strconv.Atoi(date[2:4])
	year, err3 := strconv.Atoi(date[4:6])
	hour, err4 := strconv.Atoi(clock[0:2])
	minute, err5 := strconv.Atoi(clock[2:4])
	secs, err6 := strconv.ParseFloat(clock[4:], 64)
	for _, err := range []error{err1, err2, err3, err4, err5, err6} {
		if err != nil {
			return time.Time{}, err
		}
	}
	sec := int(secs)
	nsec := int((secs - float64(sec)) * 1e9)
	return time.Date(2000+year, time.Month(month), day, hour, minute, sec, nsec, time.UTC), nil
}

package gps

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/elmbrook/wanderguard/internal/geo"
	"github.com/elmbrook/wanderguard/internal/monitoring"
	"go.bug.st/serial"
)

// SerialSource reads NMEA sentences from a GPS receiver on a serial
// port. It implements wander.PositionSource.
type SerialSource struct {
	Path string
	Baud int // defaults to 9600 when zero
}

// Watch opens the port and starts a reader goroutine delivering parsed
// fixes to onSample. Read failures and malformed sentences that are not
// routine (ErrSkip/ErrNoFix) go to onErr. The returned cancel closes the
// port and stops the reader; it is safe to call more than once.
func (s *SerialSource) Watch(onSample func(geo.Point), onErr func(error)) (func(), error) {
	baud := s.Baud
	if baud == 0 {
		baud = 9600
	}
	port, err := serial.Open(s.Path, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open GPS serial port %s: %w", s.Path, err)
	}

	stop := make(chan struct{})
	go readSentences(port, onSample, onErr, stop)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			port.Close()
		})
	}, nil
}

// readSentences scans lines off r until the stop channel closes or the
// reader fails. Shared by the serial and mock sources.
func readSentences(r io.Reader, onSample func(geo.Point), onErr func(error), stop <-chan struct{}) {
	var parser Parser
	scan := bufio.NewScanner(r)
	for scan.Scan() {
		select {
		case <-stop:
			return
		default:
		}
		line := scan.Text()
		if line == "" {
			continue
		}
		pt, err := parser.ParseSentence(line)
		if err != nil {
			if errors.Is(err, ErrSkip) || errors.Is(err, ErrNoFix) {
				continue
			}
			monitoring.Logf("gps: dropping sentence: %v", err)
			continue
		}
		onSample(pt)
	}
	if err := scan.Err(); err != nil {
		select {
		case <-stop:
			// Closing the port surfaces a read error; not a failure.
		default:
			onErr(err)
		}
	}
}

// MockSource replays fixture NMEA sentences on a fixed interval,
// looping. It stands in for a real receiver in dev mode and tests.
type MockSource struct {
	Fixture  []byte
	Interval time.Duration // delay between sentences; defaults to 100ms
}

// Watch starts a goroutine feeding the fixture through the same parser
// path as the serial source.
func (m *MockSource) Watch(onSample func(geo.Point), onErr func(error)) (func(), error) {
	if len(bytes.TrimSpace(m.Fixture)) == 0 {
		return nil, fmt.Errorf("mock source fixture is empty")
	}
	interval := m.Interval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	lines := bytes.Split(m.Fixture, []byte("\n"))
	stop := make(chan struct{})
	go func() {
		var parser Parser
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		i := 0
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				line := string(bytes.TrimSpace(lines[i%len(lines)]))
				i++
				if line == "" {
					continue
				}
				pt, err := parser.ParseSentence(line)
				if err != nil {
					continue
				}
				onSample(pt)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(stop) })
	}, nil
}

// Package source implements the two game-source adapters described in
// spec.md §4.5 (C5): a mock generator for standalone testing, and a serial
// replay adapter that reads newline-delimited transform records from a
// serial port.
//
// The mock generator is grounded on the corpus's smooth sine/cosine mock
// orientation source, generalized here from a Roll/Pitch/Yaw pose to a full
// world transform. The serial adapter is grounded on the corpus's GPS
// producer, which opens a jacobsa/go-serial port and reads
// newline-delimited sentences with a bufio.Reader; here the sentences are
// JSON transform+dt records instead of NMEA.
package source

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/inertial_computer/internal/telemetry/math3d"
)

// Frame is one sample from a game source: a world transform and the elapsed
// time since the previous sample.
type Frame struct {
	Transform math3d.Mat4
	Dt        float64
}

// Source produces a sequence of frames. Next blocks until a frame is
// available or the source is closed.
type Source interface {
	Next() (Frame, error)
	Close() error
}

// Mock is a standalone Source that synthesizes a smoothly moving, smoothly
// rotating transform, useful for exercising the pipeline without a game
// attached.
type Mock struct {
	start time.Time
	last  time.Time
}

// NewMock creates a mock game source seeded at the current time.
func NewMock() *Mock {
	now := time.Now()
	return &Mock{start: now, last: now}
}

// Next synthesizes the next transform from elapsed wall-clock time.
func (m *Mock) Next() (Frame, error) {
	now := time.Now()
	dt := now.Sub(m.last).Seconds()
	m.last = now
	elapsed := now.Sub(m.start).Seconds()

	roll := 0.35 * math.Sin(elapsed)
	pitch := 0.10 * math.Cos(elapsed*0.7)
	yaw := math.Mod(elapsed*0.5, 2*math.Pi)

	rot := eulerToMat4(pitch, yaw, roll)
	rot[3][0] = 10 * math.Sin(elapsed*0.3)
	rot[3][1] = 0
	rot[3][2] = 10 * math.Cos(elapsed*0.3)

	return Frame{Transform: rot, Dt: dt}, nil
}

// Close is a no-op for Mock.
func (m *Mock) Close() error { return nil }

func eulerToMat4(pitch, yaw, roll float64) math3d.Mat4 {
	cp, sp := math.Cos(pitch), math.Sin(pitch)
	cy, sy := math.Cos(yaw), math.Sin(yaw)
	cr, sr := math.Cos(roll), math.Sin(roll)

	right := math3d.Vec3{X: cy*cr + sy*sp*sr, Y: cp * sr, Z: -sy*cr + cy*sp*sr}
	up := math3d.Vec3{X: -cy*sr + sy*sp*cr, Y: cp * cr, Z: sy*sr + cy*sp*cr}
	forward := math3d.Vec3{X: sy * cp, Y: -sp, Z: cy * cp}

	var m math3d.Mat4
	m[0][0], m[0][1], m[0][2] = right.X, right.Y, right.Z
	m[1][0], m[1][1], m[1][2] = up.X, up.Y, up.Z
	m[2][0], m[2][1], m[2][2] = forward.X, forward.Y, forward.Z
	m[3][3] = 1
	return m
}

// wireFrame is the on-the-wire JSON shape the serial replay adapter parses:
// a row-major 4x4 transform plus the frame's elapsed time.
type wireFrame struct {
	Transform [4][4]float64 `json:"transform"`
	Dt        float64       `json:"dt"`
}

// Serial reads newline-delimited JSON transform+dt records from a serial
// port, standing in for a physical motion-capture or replay device.
type Serial struct {
	port   io.ReadWriteCloser
	reader *bufio.Reader
}

// SerialOptions configures the port the same way the corpus's GPS producer
// configures its NMEA port.
type SerialOptions struct {
	PortName string
	BaudRate uint
}

// OpenSerial opens the named serial port for line-oriented reads.
func OpenSerial(opts SerialOptions) (*Serial, error) {
	serialOpts := serial.OpenOptions{
		PortName:              opts.PortName,
		BaudRate:              opts.BaudRate,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	port, err := serial.Open(serialOpts)
	if err != nil {
		return nil, fmt.Errorf("source: open serial port %q: %w", opts.PortName, err)
	}
	return &Serial{port: port, reader: bufio.NewReader(port)}, nil
}

// Next reads and decodes the next line. Blank lines and lines that fail to
// parse are skipped, mirroring the GPS producer's tolerance of noisy input.
func (s *Serial) Next() (Frame, error) {
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			return Frame{}, fmt.Errorf("source: read serial line: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var wf wireFrame
		if err := json.Unmarshal([]byte(line), &wf); err != nil {
			continue
		}
		return Frame{Transform: math3d.Mat4(wf.Transform), Dt: wf.Dt}, nil
	}
}

// Close releases the underlying serial port.
func (s *Serial) Close() error { return s.port.Close() }

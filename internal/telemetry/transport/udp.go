// Package transport implements C3: the named mutex + named shared-memory
// region, and the UDP sender/receiver, that couple the producer and
// consumer processes.
package transport

import (
	"fmt"
	"net"
	"time"
)

func deadlineAfter(ms int) time.Time { return time.Now().Add(time.Duration(ms) * time.Millisecond) }

// UDPSender fires datagrams at a fixed destination. One datagram carries
// exactly one record's bytes, with no framing header (spec.md §4.3).
// Sends are fire-and-forget: loss is tolerated, and a write error is only
// returned for the caller to log or count.
type UDPSender struct {
	conn *net.UDPConn
}

// NewUDPSender dials a UDP socket connected to addr:port.
func NewUDPSender(addr string, port int) (*UDPSender, error) {
	raddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", addr, port))
	if err != nil {
		return nil, fmt.Errorf("transport: resolve udp sender addr: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial udp sender: %w", err)
	}
	return &UDPSender{conn: conn}, nil
}

// Send writes payload as one datagram. Errors are returned for callers that
// want to count them; the producer's publish loop logs them and carries on
// (spec.md §4.3: "non-blocking; loss is tolerated").
func (s *UDPSender) Send(payload []byte) error {
	_, err := s.conn.Write(payload)
	return err
}

// Close releases the underlying socket.
func (s *UDPSender) Close() error { return s.conn.Close() }

// UDPReceiver reads datagrams on a bound local port.
type UDPReceiver struct {
	conn *net.UDPConn
}

// NewUDPReceiver binds a UDP socket on the given port across all interfaces.
func NewUDPReceiver(port int) (*UDPReceiver, error) {
	laddr := &net.UDPAddr{Port: port}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen udp: %w", err)
	}
	return &UDPReceiver{conn: conn}, nil
}

// Recv blocks (up to the given deadline) for the next datagram, returning
// its bytes. A zero deadline disables the timeout.
func (r *UDPReceiver) Recv(buf []byte, deadlineMillis int) (int, error) {
	if deadlineMillis > 0 {
		if err := r.conn.SetReadDeadline(deadlineAfter(deadlineMillis)); err != nil {
			return 0, err
		}
	} else if err := r.conn.SetReadDeadline(time.Time{}); err != nil {
		return 0, err
	}
	n, _, err := r.conn.ReadFromUDP(buf)
	return n, err
}

// Close releases the underlying socket.
func (r *UDPReceiver) Close() error { return r.conn.Close() }

// IsTimeout reports whether err is a network read timeout, used by the
// consumer's 1s back-off loop (spec.md §4.6) to distinguish "nothing yet"
// from a real failure.
func IsTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

// Package consumer implements C6: the telemetry consumer loop (UDP or
// shared-memory receive mode, start-up fade, and dispatch to
// OnTelemetryUpdate), plus two optional debug surfaces: an MQTT-subscribed
// console printer and a gorilla/websocket live view.
//
// The receive loop's back-off and pacing mirror the corpus's GPS producer
// read loop (block on read, log and retry on error) generalized to a
// bounded-retry, two-mode (UDP/shared-memory) receiver. The debug console
// is grounded directly on the corpus's MQTT subscriber console
// (console_mqtt.go): same client-options-then-subscribe-then-print shape,
// new topics and payload. The debug view is grounded on the corpus's
// gorilla/websocket calibration handler (calibration_handler.go): same
// upgrader-with-permissive-CheckOrigin, same WriteJSON-per-update shape.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/inertial_computer/internal/telemetry/record"
	"github.com/relabs-tech/inertial_computer/internal/telemetry/schema"
	"github.com/relabs-tech/inertial_computer/internal/telemetry/transport"
)

// TelemetryInfo is the name-keyed view of one record handed to
// OnTelemetryUpdate, matching spec.md §4.6's "dispatch by channel name"
// contract. It also carries the decoded record it was built from, per
// spec.md §6's get(name)/raw_record accessor pair on the event surface.
type TelemetryInfo struct {
	values map[string]float64
	raw    *record.Record
}

// fromRecord builds a TelemetryInfo snapshot from a decoded record.
func fromRecord(r *record.Record) TelemetryInfo {
	values := make(map[string]float64, schema.NumKeys)
	for _, f := range schema.Fields() {
		values[f.Name] = r.Get(f.Key)
	}
	return TelemetryInfo{values: values, raw: r}
}

// Get returns the named channel's value, or 0 if name is not a known
// channel, matching the wire's float32 precision.
func (t TelemetryInfo) Get(name string) float32 { return float32(t.values[name]) }

// Len reports how many channels this snapshot carries.
func (t TelemetryInfo) Len() int { return len(t.values) }

// RawRecord returns the *record.Record this snapshot was decoded from. It
// is nil for a TelemetryInfo built by unmarshaling a partial debug-console
// payload rather than dispatched from a live receive.
func (t TelemetryInfo) RawRecord() *record.Record { return t.raw }

// MarshalJSON encodes the channel map, matching the wire shape the debug
// mirror publishes and the debug view streams.
func (t TelemetryInfo) MarshalJSON() ([]byte, error) { return json.Marshal(t.values) }

// UnmarshalJSON decodes a channel map with no backing record, used by the
// debug console to parse a partial mirror payload.
func (t *TelemetryInfo) UnmarshalJSON(data []byte) error {
	var values map[string]float64
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	t.values = values
	return nil
}

// merge copies every channel from other into t, used by the debug console
// to build a running snapshot across the mirror's per-group topics.
func (t *TelemetryInfo) merge(other TelemetryInfo) {
	if t.values == nil {
		t.values = make(map[string]float64, len(other.values))
	}
	for k, v := range other.values {
		t.values[k] = v
	}
}

// startWaitSeconds and smoothInSeconds are the two-phase consumer fade
// durations from spec.md §4.6: a hard zero for startWaitSeconds after the
// first record arrives, then a linear ramp over smoothInSeconds. Nothing is
// dispatched before the first record.
const (
	startWaitSeconds = 2.0
	smoothInSeconds  = 3.0
	absenceBackoff   = 1 * time.Second
	pacingTarget     = 10 * time.Millisecond
)

// Receiver abstracts the two wire-level sources the consumer can read from.
type Receiver interface {
	// ReceiveRecord blocks for up to the receiver's own internal timeout
	// and returns the next decoded record, or an error that IsAbsence
	// reports true for when nothing was available yet.
	ReceiveRecord() (*record.Record, error)
	// IsAbsence reports whether err means "nothing available yet" rather
	// than a real failure.
	IsAbsence(err error) bool
	Close() error
}

// UDPReceiver adapts transport.UDPReceiver to the Receiver interface.
type UDPReceiver struct {
	conn *transport.UDPReceiver
	buf  []byte
}

// NewUDPReceiver binds a UDP receiver on port.
func NewUDPReceiver(port int) (*UDPReceiver, error) {
	conn, err := transport.NewUDPReceiver(port)
	if err != nil {
		return nil, err
	}
	return &UDPReceiver{conn: conn, buf: make([]byte, schema.RecordSize)}, nil
}

// ReceiveRecord waits up to 1s for the next datagram and decodes it.
func (u *UDPReceiver) ReceiveRecord() (*record.Record, error) {
	n, err := u.conn.Recv(u.buf, int(absenceBackoff/time.Millisecond))
	if err != nil {
		return nil, err
	}
	r := record.New()
	if err := r.FromBytes(u.buf[:n]); err != nil {
		return nil, fmt.Errorf("consumer: decode udp record: %w", err)
	}
	return r, nil
}

// IsAbsence reports whether err is a read timeout.
func (u *UDPReceiver) IsAbsence(err error) bool { return transport.IsTimeout(err) }

// Close releases the socket.
func (u *UDPReceiver) Close() error { return u.conn.Close() }

// SharedMemoryReceiver adapts transport.SharedRegion to the Receiver
// interface, retrying OpenExisting every absenceBackoff until the producer
// creates the region (spec.md §4.6).
type SharedMemoryReceiver struct {
	dir    string
	name   string
	region *transport.SharedRegion
}

// NewSharedMemoryReceiver prepares a reader for the named region under dir,
// without requiring it to exist yet.
func NewSharedMemoryReceiver(dir, name string) *SharedMemoryReceiver {
	return &SharedMemoryReceiver{dir: dir, name: name}
}

// ReceiveRecord opens the region lazily on first success and reads one
// record from it. A missing region is reported as an absence error.
func (s *SharedMemoryReceiver) ReceiveRecord() (*record.Record, error) {
	if s.region == nil {
		region, err := transport.OpenExisting(s.dir, s.name)
		if err != nil {
			time.Sleep(absenceBackoff)
			return nil, errAbsent{err}
		}
		s.region = region
	}
	buf, err := s.region.ReadRecord(schema.RecordSize)
	if err != nil {
		return nil, err
	}
	r := record.New()
	if err := r.FromBytes(buf); err != nil {
		return nil, fmt.Errorf("consumer: decode shared-memory record: %w", err)
	}
	return r, nil
}

type errAbsent struct{ err error }

func (e errAbsent) Error() string { return e.err.Error() }
func (e errAbsent) Unwrap() error { return e.err }

// IsAbsence reports whether err signals "region not yet created".
func (s *SharedMemoryReceiver) IsAbsence(err error) bool {
	_, ok := err.(errAbsent)
	return ok
}

// Close releases the mapped region, if one was opened.
func (s *SharedMemoryReceiver) Close() error {
	if s.region == nil {
		return nil
	}
	return s.region.Close()
}

// Loop runs the consumer's receive-and-dispatch cycle until ctx is
// cancelled. onUpdate is called with every record that is actually
// dispatched, including the synthesized hard-zero/ramped frames during the
// two-phase start-up fade.
type Loop struct {
	recv     Receiver
	onUpdate func(TelemetryInfo)

	haveEverReceived bool
	firstSeenAt      time.Time
}

// NewLoop builds a consumer loop over recv, calling onUpdate for each
// dispatched frame.
func NewLoop(recv Receiver, onUpdate func(TelemetryInfo)) *Loop {
	return &Loop{recv: recv, onUpdate: onUpdate}
}

// Run blocks until ctx is cancelled, implementing the absence back-off,
// start-up fade, and pacing described in spec.md §4.6.
func (l *Loop) Run(ctx context.Context) error {
	zero := record.New()
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		started := time.Now()
		r, err := l.recv.ReceiveRecord()
		if err != nil {
			if l.recv.IsAbsence(err) {
				l.sleepPacing(started)
				continue
			}
			log.Printf("consumer: receive: %v", err)
			time.Sleep(absenceBackoff)
			continue
		}

		if !l.haveEverReceived {
			l.haveEverReceived = true
			l.firstSeenAt = time.Now()
		}

		elapsed := time.Since(l.firstSeenAt).Seconds()
		switch {
		case elapsed < startWaitSeconds:
			l.onUpdate(fromRecord(zero))
		case elapsed < startWaitSeconds+smoothInSeconds:
			t := (elapsed - startWaitSeconds) / smoothInSeconds
			r.LerpAllFromZero(t)
			l.onUpdate(fromRecord(r))
		default:
			l.onUpdate(fromRecord(r))
		}

		l.sleepPacing(started)
	}
}

// sleepPacing sleeps the remainder of the 10ms pacing budget, skipping
// entirely when the receive itself already consumed it (drain mode: more
// datagrams are likely already queued).
func (l *Loop) sleepPacing(started time.Time) {
	spent := time.Since(started)
	if spent >= pacingTarget {
		return
	}
	time.Sleep(pacingTarget - spent)
}

// RunDebugConsole subscribes to the producer's optional MQTT debug mirror
// and prints each filtered record to stdout, grounded on console_mqtt.go.
// topicFilter is typically a wildcard such as "telemetry/#": the mirror
// publishes each channel group to its own sub-topic, so the console keeps a
// running merged snapshot across whichever group last arrived.
func RunDebugConsole(broker, clientID, topicFilter string) error {
	opts := mqtt.NewClientOptions().AddBroker(broker).SetClientID(clientID)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("debug console: connected to %s", broker)

	var mu sync.Mutex
	var snapshot TelemetryInfo

	token := client.Subscribe(topicFilter, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var partial TelemetryInfo
		if err := json.Unmarshal(msg.Payload(), &partial); err != nil {
			log.Printf("debug console: payload unmarshal error: %v", err)
			return
		}
		mu.Lock()
		snapshot.merge(partial)
		fmt.Printf("[TELEMETRY] speed=%.2f yaw=%.2f pitch=%.2f roll=%.2f paused=%.0f\n",
			snapshot.Get("speed"), snapshot.Get("yaw"), snapshot.Get("pitch"), snapshot.Get("roll"), snapshot.Get("paused"))
		mu.Unlock()
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("debug console: subscribed to %s", topicFilter)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("debug console: shutting down")
	client.Disconnect(250)
	return nil
}

var debugUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// DebugView serves a websocket endpoint that streams every dispatched
// TelemetryInfo to connected clients as JSON frames, grounded on
// calibration_handler.go's upgrade-then-WriteJSON-loop shape.
type DebugView struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewDebugView creates an empty debug view.
func NewDebugView() *DebugView {
	return &DebugView{clients: make(map[*websocket.Conn]struct{})}
}

// Handler returns the /ws/telemetry HTTP handler (spec.md §6).
func (v *DebugView) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := debugUpgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("debug view: websocket upgrade error: %v", err)
			return
		}
		v.mu.Lock()
		v.clients[conn] = struct{}{}
		v.mu.Unlock()

		defer func() {
			v.mu.Lock()
			delete(v.clients, conn)
			v.mu.Unlock()
			conn.Close()
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}

// Broadcast sends info to every connected debug-view client, dropping
// clients whose write fails.
func (v *DebugView) Broadcast(info TelemetryInfo) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for conn := range v.clients {
		if err := conn.WriteJSON(info); err != nil {
			conn.Close()
			delete(v.clients, conn)
		}
	}
}

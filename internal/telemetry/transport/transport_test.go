package transport

import (
	"net"
	"os"
	"testing"
)

func TestSharedRegionRoundTrip(t *testing.T) {
	dir := t.TempDir()

	producer, err := OpenOrCreate(dir, RegionName)
	if err != nil {
		t.Fatalf("OpenOrCreate: %v", err)
	}
	defer producer.Close()

	payload := []byte("hello telemetry")
	if err := producer.WriteRecord(payload); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}

	consumer, err := OpenExisting(dir, RegionName)
	if err != nil {
		t.Fatalf("OpenExisting: %v", err)
	}
	defer consumer.Close()

	got, err := consumer.ReadRecord(len(payload))
	if err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
}

func TestOpenExistingMissingFails(t *testing.T) {
	dir := t.TempDir()
	if _, err := OpenExisting(dir, RegionName); err == nil {
		t.Fatal("expected error opening nonexistent shared region")
	}
}

func TestUDPSendRecvRoundTrip(t *testing.T) {
	recv, err := NewUDPReceiver(0)
	if err != nil {
		t.Fatalf("NewUDPReceiver: %v", err)
	}
	defer recv.Close()

	port := recv.conn.LocalAddr().(*net.UDPAddr).Port
	send, err := NewUDPSender("127.0.0.1", port)
	if err != nil {
		t.Fatalf("NewUDPSender: %v", err)
	}
	defer send.Close()

	payload := []byte{1, 2, 3, 4}
	if err := send.Send(payload); err != nil {
		t.Fatalf("Send: %v", err)
	}

	buf := make([]byte, 16)
	n, err := recv.Recv(buf, 1000)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if string(buf[:n]) != string(payload) {
		t.Fatalf("got %v, want %v", buf[:n], payload)
	}
}

func TestMain(m *testing.M) {
	os.Exit(m.Run())
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "telemetry.conf")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadProducerOverridesDefaults(t *testing.T) {
	path := writeTempConfig(t, "UDP_IP=10.0.0.5\nUDP_PORT=7000\nSEND_UDP=false\n# a comment\n\nFILL_MMF=yes\n")
	cfg, err := LoadProducer(path)
	if err != nil {
		t.Fatalf("LoadProducer: %v", err)
	}
	if cfg.UDPIP != "10.0.0.5" || cfg.UDPPort != 7000 {
		t.Fatalf("unexpected udp fields: %+v", cfg)
	}
	if cfg.SendUDP {
		t.Fatal("expected SEND_UDP=false to be respected")
	}
	if !cfg.FillMMF {
		t.Fatal("expected FILL_MMF=yes to parse true")
	}
	if cfg.Hotkey.Key != "P" {
		t.Fatalf("expected default hotkey to survive untouched, got %q", cfg.Hotkey.Key)
	}
}

func TestLoadProducerUnknownKeyFails(t *testing.T) {
	path := writeTempConfig(t, "NOT_A_REAL_KEY=1\n")
	if _, err := LoadProducer(path); err == nil {
		t.Fatal("expected unknown key to error")
	}
}

func TestLoadProducerMalformedLineFails(t *testing.T) {
	path := writeTempConfig(t, "THIS_HAS_NO_EQUALS_SIGN\n")
	if _, err := LoadProducer(path); err == nil {
		t.Fatal("expected malformed line to error")
	}
}

func TestLoadConsumerDefaults(t *testing.T) {
	path := writeTempConfig(t, "RECEIVE_UDP=true\n")
	cfg, err := LoadConsumer(path)
	if err != nil {
		t.Fatalf("LoadConsumer: %v", err)
	}
	if cfg.UDPPort != 6969 {
		t.Fatalf("expected default udp port 6969, got %d", cfg.UDPPort)
	}
	if !cfg.ReceiveUDP {
		t.Fatal("expected RECEIVE_UDP=true to be respected")
	}
}

func TestInitGlobalProducerOnce(t *testing.T) {
	path := writeTempConfig(t, "UDP_PORT=1234\n")
	if err := InitGlobalProducer(path); err != nil {
		t.Fatalf("InitGlobalProducer: %v", err)
	}
	if GlobalProducer().UDPPort != 1234 {
		t.Fatalf("expected global producer udp port 1234, got %d", GlobalProducer().UDPPort)
	}
}

// Package config implements the producer and consumer KEY=VALUE
// configuration files described in spec.md §6, following the corpus's
// config-loading pattern: a line-oriented KEY=VALUE scanner feeding a
// package-level singleton guarded by sync.Once and sync.RWMutex.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Hotkey describes the pause/resume key combination (spec.md §4.7).
type Hotkey struct {
	Enabled bool
	Key     string
	Windows bool
	Alt     bool
	Shift   bool
	Ctrl    bool
}

// Producer holds every configurable value the telemetry producer reads at
// start-up (spec.md §6).
type Producer struct {
	UDPIP      string
	UDPPort    int
	SendUDP    bool
	FillMMF    bool
	SharedDir  string
	Hotkey     Hotkey

	MQTTMirrorEnabled bool
	MQTTBroker        string
	MQTTClientID      string
	MQTTTopicPrefix   string

	DebugWebSocketEnabled bool
	DebugWebSocketPort    int

	SerialReplayEnabled bool
	SerialReplayPort    string
	SerialReplayBaud    int

	GPIOPauseEnabled bool
	GPIOPausePin     string
}

// Consumer holds every configurable value the telemetry consumer reads at
// start-up (spec.md §6).
type Consumer struct {
	UDPPort     int
	ReceiveUDP  bool
	SharedDir   string

	DebugConsoleEnabled bool
	MQTTBroker          string
	MQTTClientID         string

	DebugWebSocketEnabled bool
	DebugWebSocketPort    int
}

// defaultProducer and defaultConsumer mirror the defaults spec.md §6
// documents for fields a config file omits.
func defaultProducer() Producer {
	return Producer{
		UDPIP:     "127.0.0.1",
		UDPPort:   6969,
		SendUDP:   true,
		FillMMF:   true,
		SharedDir: "/dev/shm",
		Hotkey:    Hotkey{Enabled: true, Key: "P", Shift: true},
	}
}

func defaultConsumer() Consumer {
	return Consumer{
		UDPPort:    6969,
		ReceiveUDP: false,
		SharedDir:  "/dev/shm",
	}
}

// LoadProducer reads a KEY=VALUE producer config file, starting from
// defaultProducer and overriding with whatever keys the file sets.
func LoadProducer(path string) (*Producer, error) {
	cfg := defaultProducer()
	err := loadInto(path, func(key, value string) error {
		return cfg.setValue(key, value)
	})
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConsumer reads a KEY=VALUE consumer config file, starting from
// defaultConsumer and overriding with whatever keys the file sets.
func LoadConsumer(path string) (*Consumer, error) {
	cfg := defaultConsumer()
	err := loadInto(path, func(key, value string) error {
		return cfg.setValue(key, value)
	})
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadInto scans a KEY=VALUE file, skipping blanks and #-comments, and
// hands each pair to set.
func loadInto(path string, set func(key, value string) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: open %q: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("config: invalid line %d in %q: %q", lineNum, path, line)
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if err := set(key, value); err != nil {
			return fmt.Errorf("config: line %d in %q: %w", lineNum, path, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("config: read %q: %w", path, err)
	}
	return nil
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", value)
	}
}

func (c *Producer) setValue(key, value string) error {
	switch key {
	case "UDP_IP":
		c.UDPIP = value
	case "UDP_PORT":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid UDP_PORT %q: %w", value, err)
		}
		c.UDPPort = v
	case "SEND_UDP":
		v, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("invalid SEND_UDP %q: %w", value, err)
		}
		c.SendUDP = v
	case "FILL_MMF":
		v, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("invalid FILL_MMF %q: %w", value, err)
		}
		c.FillMMF = v
	case "SHARED_DIR":
		c.SharedDir = value
	case "HOTKEY_ENABLED":
		v, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("invalid HOTKEY_ENABLED %q: %w", value, err)
		}
		c.Hotkey.Enabled = v
	case "HOTKEY_KEY":
		c.Hotkey.Key = value
	case "HOTKEY_WINDOWS":
		v, err := parseBool(value)
		if err != nil {
			return err
		}
		c.Hotkey.Windows = v
	case "HOTKEY_ALT":
		v, err := parseBool(value)
		if err != nil {
			return err
		}
		c.Hotkey.Alt = v
	case "HOTKEY_SHIFT":
		v, err := parseBool(value)
		if err != nil {
			return err
		}
		c.Hotkey.Shift = v
	case "HOTKEY_CTRL":
		v, err := parseBool(value)
		if err != nil {
			return err
		}
		c.Hotkey.Ctrl = v
	case "MQTT_MIRROR_ENABLED":
		v, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("invalid MQTT_MIRROR_ENABLED %q: %w", value, err)
		}
		c.MQTTMirrorEnabled = v
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "MQTT_TOPIC_PREFIX":
		c.MQTTTopicPrefix = value
	case "DEBUG_WEBSOCKET_ENABLED":
		v, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("invalid DEBUG_WEBSOCKET_ENABLED %q: %w", value, err)
		}
		c.DebugWebSocketEnabled = v
	case "DEBUG_WEBSOCKET_PORT":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DEBUG_WEBSOCKET_PORT %q: %w", value, err)
		}
		c.DebugWebSocketPort = v
	case "SERIAL_REPLAY_ENABLED":
		v, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("invalid SERIAL_REPLAY_ENABLED %q: %w", value, err)
		}
		c.SerialReplayEnabled = v
	case "SERIAL_REPLAY_PORT":
		c.SerialReplayPort = value
	case "SERIAL_REPLAY_BAUD":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SERIAL_REPLAY_BAUD %q: %w", value, err)
		}
		c.SerialReplayBaud = v
	case "GPIO_PAUSE_ENABLED":
		v, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("invalid GPIO_PAUSE_ENABLED %q: %w", value, err)
		}
		c.GPIOPauseEnabled = v
	case "GPIO_PAUSE_PIN":
		c.GPIOPausePin = value
	default:
		return fmt.Errorf("unknown config key: %q", key)
	}
	return nil
}

func (c *Consumer) setValue(key, value string) error {
	switch key {
	case "UDP_PORT":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid UDP_PORT %q: %w", value, err)
		}
		c.UDPPort = v
	case "RECEIVE_UDP":
		v, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("invalid RECEIVE_UDP %q: %w", value, err)
		}
		c.ReceiveUDP = v
	case "SHARED_DIR":
		c.SharedDir = value
	case "DEBUG_CONSOLE_ENABLED":
		v, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("invalid DEBUG_CONSOLE_ENABLED %q: %w", value, err)
		}
		c.DebugConsoleEnabled = v
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "DEBUG_WEBSOCKET_ENABLED":
		v, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("invalid DEBUG_WEBSOCKET_ENABLED %q: %w", value, err)
		}
		c.DebugWebSocketEnabled = v
	case "DEBUG_WEBSOCKET_PORT":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DEBUG_WEBSOCKET_PORT %q: %w", value, err)
		}
		c.DebugWebSocketPort = v
	default:
		return fmt.Errorf("unknown config key: %q", key)
	}
	return nil
}

var (
	globalProducer *Producer
	producerOnce   sync.Once
	producerMu     sync.RWMutex
	producerErr    error

	globalConsumer *Consumer
	consumerOnce   sync.Once
	consumerMu     sync.RWMutex
	consumerErr    error
)

// InitGlobalProducer loads and installs the global producer config exactly
// once; subsequent calls are no-ops.
func InitGlobalProducer(path string) error {
	producerOnce.Do(func() {
		producerMu.Lock()
		defer producerMu.Unlock()
		globalProducer, producerErr = LoadProducer(path)
	})
	return producerErr
}

// GlobalProducer returns the installed producer config, or nil if
// InitGlobalProducer has not been called.
func GlobalProducer() *Producer {
	producerMu.RLock()
	defer producerMu.RUnlock()
	return globalProducer
}

// InitGlobalConsumer loads and installs the global consumer config exactly
// once; subsequent calls are no-ops.
func InitGlobalConsumer(path string) error {
	consumerOnce.Do(func() {
		consumerMu.Lock()
		defer consumerMu.Unlock()
		globalConsumer, consumerErr = LoadConsumer(path)
	})
	return consumerErr
}

// GlobalConsumer returns the installed consumer config, or nil if
// InitGlobalConsumer has not been called.
func GlobalConsumer() *Consumer {
	consumerMu.RLock()
	defer consumerMu.RUnlock()
	return globalConsumer
}

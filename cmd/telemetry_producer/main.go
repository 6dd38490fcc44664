// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// ./cmd/telemetry_producer/main.go
//
// Reads a game transform from the configured source (mock or serial
// replay), runs it through the derivation pipeline, and publishes the
// filtered record over UDP and/or shared memory at the source's own rate.
package main

import (
	"flag"
	"log"
	"time"

	"github.com/relabs-tech/inertial_computer/internal/telemetry/config"
	"github.com/relabs-tech/inertial_computer/internal/telemetry/mirror"
	"github.com/relabs-tech/inertial_computer/internal/telemetry/pause"
	"github.com/relabs-tech/inertial_computer/internal/telemetry/pipeline"
	"github.com/relabs-tech/inertial_computer/internal/telemetry/source"
	"github.com/relabs-tech/inertial_computer/internal/telemetry/transport"
)

func main() {
	configPath := flag.String("config", "telemetry_producer.conf", "path to producer config file")
	useMock := flag.Bool("mock", true, "use the mock game source instead of the serial replay adapter")
	flag.Parse()

	log.Println("starting telemetry producer")

	cfg, err := config.LoadProducer(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var src source.Source
	if *useMock || !cfg.SerialReplayEnabled {
		log.Println("using mock game source")
		src = source.NewMock()
	} else {
		log.Printf("using serial replay adapter on %s", cfg.SerialReplayPort)
		src, err = source.OpenSerial(source.SerialOptions{PortName: cfg.SerialReplayPort, BaudRate: uint(cfg.SerialReplayBaud)})
		if err != nil {
			log.Fatalf("failed to open serial replay source: %v", err)
		}
	}
	defer src.Close()

	var udpSender *transport.UDPSender
	if cfg.SendUDP {
		udpSender, err = transport.NewUDPSender(cfg.UDPIP, cfg.UDPPort)
		if err != nil {
			log.Fatalf("failed to start udp sender: %v", err)
		}
		defer udpSender.Close()
		log.Printf("sending udp telemetry to %s:%d", cfg.UDPIP, cfg.UDPPort)
	}

	var shared *transport.SharedRegion
	if cfg.FillMMF {
		shared, err = transport.OpenOrCreate(cfg.SharedDir, transport.RegionName)
		if err != nil {
			log.Fatalf("failed to open shared memory region: %v", err)
		}
		defer shared.Close()
		log.Printf("filling shared memory region %s/%s", cfg.SharedDir, transport.RegionName)
	}

	var mir *mirror.Mirror
	if cfg.MQTTMirrorEnabled {
		mir, err = mirror.Connect(cfg.MQTTBroker, cfg.MQTTClientID, mirror.DefaultGroups(cfg.MQTTTopicPrefix))
		if err != nil {
			log.Printf("debug mirror unavailable, continuing without it: %v", err)
			mir = nil
		} else {
			defer mir.Close()
			log.Println("debug mqtt mirror enabled")
		}
	}

	var gate *pause.Gate
	if cfg.Hotkey.Enabled {
		gate = pause.NewGate(3.0)
	}

	var gpioButton *pause.GPIOButton
	if cfg.GPIOPauseEnabled {
		gpioButton, err = pause.OpenGPIOButton(cfg.GPIOPausePin)
		if err != nil {
			log.Printf("gpio pause button unavailable, continuing without it: %v", err)
		} else {
			go watchGPIOPause(gpioButton, gate)
		}
	}

	state := pipeline.NewState()

	for {
		frame, err := src.Next()
		if err != nil {
			log.Printf("game source error: %v", err)
			time.Sleep(time.Second)
			continue
		}

		if gate != nil {
			state.SetPaused(gate.Paused(), gate.FadeSeconds())
		}

		if !state.ProcessTransform(frame.Transform, frame.Dt) {
			continue
		}

		payload := state.Filtered.ToBytes()

		if udpSender != nil {
			if err := udpSender.Send(payload); err != nil {
				log.Printf("udp send error: %v", err)
			}
		}
		if shared != nil {
			if err := shared.WriteRecord(payload); err != nil {
				log.Printf("shared memory write error: %v", err)
			}
		}
		if mir != nil {
			mir.Publish(state.Filtered)
		}
	}
}

func watchGPIOPause(button *pause.GPIOButton, gate *pause.Gate) {
	for {
		pressed, err := button.WaitPress()
		if err != nil {
			log.Printf("gpio pause watch error: %v", err)
			return
		}
		if pressed && gate != nil {
			gate.Toggle()
		}
	}
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/inertial_computer/internal/telemetry/consumer"
)

func main() {
	broker := flag.String("broker", "tcp://localhost:1883", "MQTT broker address")
	clientID := flag.String("client-id", "telemetry-console", "MQTT client id")
	topic := flag.String("topic", "telemetry/#", "MQTT topic filter to subscribe to")
	flag.Parse()

	log.Println("starting telemetry debug console")

	if err := consumer.RunDebugConsole(*broker, *clientID, *topic); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

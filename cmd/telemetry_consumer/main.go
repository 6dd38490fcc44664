// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// ./cmd/telemetry_consumer/main.go
//
// Receives filtered telemetry (over UDP or shared memory), applies the
// start-up fade, and dispatches it to the debug websocket view when that is
// enabled (in library form, consumer.NewLoop takes any OnTelemetryUpdate
// callback instead).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/inertial_computer/internal/telemetry/config"
	"github.com/relabs-tech/inertial_computer/internal/telemetry/consumer"
	"github.com/relabs-tech/inertial_computer/internal/telemetry/transport"
)

func main() {
	configPath := flag.String("config", "telemetry_consumer.conf", "path to consumer config file")
	flag.Parse()

	log.Println("starting telemetry consumer")

	cfg, err := config.LoadConsumer(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var recv consumer.Receiver
	if cfg.ReceiveUDP {
		recv, err = consumer.NewUDPReceiver(cfg.UDPPort)
		if err != nil {
			log.Fatalf("failed to start udp receiver: %v", err)
		}
		log.Printf("receiving udp telemetry on port %d", cfg.UDPPort)
	} else {
		recv = consumer.NewSharedMemoryReceiver(cfg.SharedDir, transport.RegionName)
		log.Printf("reading shared memory region %s/%s", cfg.SharedDir, transport.RegionName)
	}
	defer recv.Close()

	var view *consumer.DebugView
	if cfg.DebugWebSocketEnabled {
		view = consumer.NewDebugView()
		mux := http.NewServeMux()
		mux.Handle("/ws/telemetry", view.Handler())
		addr := fmt.Sprintf(":%d", cfg.DebugWebSocketPort)
		go func() {
			log.Printf("debug websocket view listening on %s", addr)
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Printf("debug websocket server stopped: %v", err)
			}
		}()
	}

	loop := consumer.NewLoop(recv, func(info consumer.TelemetryInfo) {
		if view != nil {
			view.Broadcast(info)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("telemetry consumer: shutting down")
		cancel()
	}()

	if err := loop.Run(ctx); err != nil {
		log.Fatalf("consumer loop error: %v", err)
	}
}

package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/tablehash/TableHash-Engine/api"
	"github.com/tablehash/TableHash-Engine/hasher"
	"github.com/tablehash/TableHash-Engine/network"
)

func main() {
	addr := flag.String("addr", ":50061", "TCP listen address for digest requests")
	zmqEndpoint := flag.String("zmq", "", "optional ZeroMQ REP endpoint, e.g. tcp://*:5555")
	metricsAddr := flag.String("metrics", ":9100", "Prometheus metrics listen address")
	algo := flag.String("algo", "sha3-256", "hash family: sha3-256, sha3-512, blake3, xxh64")
	flag.Parse()

	newHash, err := hasher.ByName(*algo)
	if err != nil {
		log.Fatalf("Invalid -algo: %v", err)
	}

	handler := api.NewDigestHandler(newHash)
	server := api.NewDigestServer(handler)

	log.Printf("Starting digest server on %s (algo=%s)...", *addr, *algo)
	if err := server.StartAsync(*addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	var zmqService *network.DigestService
	if *zmqEndpoint != "" {
		zmqService = network.NewDigestService(*zmqEndpoint, handler)
		if err := zmqService.Start(); err != nil {
			log.Fatalf("Failed to start ZeroMQ endpoint: %v", err)
		}
		log.Printf("ZeroMQ endpoint listening on %s", *zmqEndpoint)
	}

	metricsServer := api.StartMetricsServer(*metricsAddr)
	log.Printf("Metrics available at %s/metrics", *metricsAddr)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	server.Stop()
	if zmqService != nil {
		if err := zmqService.Stop(); err != nil {
			log.Printf("ZeroMQ shutdown: %v", err)
		}
	}
	_ = metricsServer.Close()
	log.Println("Server stopped.")
}

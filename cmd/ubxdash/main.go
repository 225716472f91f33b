package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ubxdash/ubxdash/internal/gnss"
	"github.com/ubxdash/ubxdash/internal/mqtt"
	"github.com/ubxdash/ubxdash/internal/server"
	"github.com/ubxdash/ubxdash/web"
)

func main() {
	configPath := flag.String("config", "/etc/ubxdash/config.yaml", "Path to config file")
	demo := flag.Bool("demo", false, "Run with simulated receiver data")
	listenAddr := flag.String("listen", "", "Override listen address (e.g. :8080)")
	portPath := flag.String("port", "", "Override receiver serial device path")
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("[main] ubxdash starting")

	// Load config
	cfg := server.LoadConfig(*configPath)

	if *demo {
		cfg.Receiver.Type = "demo"
	}
	if *listenAddr != "" {
		cfg.Server.ListenAddr = *listenAddr
	}
	if *portPath != "" {
		cfg.Receiver.PortPath = *portPath
	}

	// Create context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("[main] received %v, shutting down", sig)
		cancel()
	}()

	// Initialize receiver provider
	var provider gnss.Provider
	switch cfg.Receiver.Type {
	case "ublox":
		provider = gnss.NewUblox(gnss.UbloxConfig{
			PortPath: cfg.Receiver.PortPath,
			BaudRate: cfg.Receiver.BaudRate,
			Poll:     cfg.Receiver.Poll,
		})
	case "nmea":
		provider = gnss.NewNMEA(gnss.NMEAConfig{
			PortPath: cfg.Receiver.PortPath,
			BaudRate: cfg.Receiver.BaudRate,
		})
	default:
		provider = gnss.NewDemoProvider()
	}

	// Try connecting with exponential backoff (non-blocking — dashboard
	// starts regardless)
	go connectWithRetry(ctx, "gnss", provider, 10)

	// Optional MQTT publisher
	var pub server.FixPublisher
	if cfg.MQTT.Enabled {
		p, err := mqtt.Connect(mqtt.Config{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
		})
		if err != nil {
			log.Printf("[main] mqtt disabled: %v", err)
		} else {
			defer p.Close()
			pub = p
		}
	}

	// Start server — works immediately even if the receiver is still connecting
	srv := server.New(cfg, provider, pub, web.FS)
	if err := srv.Run(ctx); err != nil {
		log.Printf("[main] server exited: %v", err)
	}
}

// connectable is the subset of gnss.Provider the retry loop needs.
type connectable interface {
	Connect() error
	Close() error
}

// connectWithRetry attempts to connect with exponential backoff.
// Starts at 1s, doubles each attempt up to 60s, retries up to maxAttempts
// then continues at max interval indefinitely.
func connectWithRetry(ctx context.Context, name string, c connectable, maxAttempts int) {
	delay := 1 * time.Second
	maxDelay := 60 * time.Second
	attempt := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := c.Connect(); err != nil {
			attempt++
			if attempt <= maxAttempts {
				log.Printf("[%s] connect attempt %d/%d failed: %v (retry in %v)",
					name, attempt, maxAttempts, err, delay)
			} else {
				log.Printf("[%s] connect attempt %d failed: %v (retry in %v)",
					name, attempt, err, delay)
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}

			delay *= 2
			if delay > maxDelay {
				delay = maxDelay
			}
		} else {
			log.Printf("[%s] connected successfully (attempt %d)", name, attempt+1)
			return
		}
	}
}

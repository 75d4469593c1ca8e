// Command coin-sensor monitors the pool table coin drawer sensor and
// publishes coin events to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/coin-sensor/config"
	"github.com/sweeney/coin-sensor/internal/gpio"
	"github.com/sweeney/coin-sensor/internal/logic"
	"github.com/sweeney/coin-sensor/internal/metrics"
	"github.com/sweeney/coin-sensor/internal/mqtt"
	"github.com/sweeney/coin-sensor/internal/status"
	"github.com/sweeney/coin-sensor/internal/web"
)

func main() {
	cfgPath := flag.String("config", "", "YAML config file (flags override file values)")
	poll := flag.Duration("poll", time.Duration(config.DefaultPollMs)*time.Millisecond, "Sensor polling interval")
	stuckAfter := flag.Duration("stuck-after", time.Duration(config.DefaultStuckAfterMs)*time.Millisecond, "Open duration after which the drawer is considered stuck")
	renotify := flag.Duration("renotify", time.Duration(config.DefaultRenotifyMs)*time.Millisecond, "Re-notification interval while stuck")
	heartbeat := flag.Duration("heartbeat", time.Duration(config.DefaultHeartbeatMs)*time.Millisecond, "Heartbeat interval (0 to disable)")
	broker := flag.String("broker", config.DefaultBroker, "MQTT broker address")
	pin := flag.Int("pin", config.DefaultPin, "BCM pin number for the LDR sensor")
	printState := flag.Bool("print-state", false, "Print current sensor state and exit")
	httpAddr := flag.String("http", config.DefaultHTTPAddr, "HTTP status address (empty to disable)")
	wsBroker := flag.String("ws-broker", "=broker", `MQTT websocket URL for live UI ("=broker" derives from broker, "off" disables)`)

	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		cfg, err = config.Load(*cfgPath)
		if err != nil {
			log.Fatalf("fatal: load config %s: %v", *cfgPath, err)
		}
	}

	// Flags given explicitly on the command line win over the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "poll":
			cfg.Sensor.Poll = *poll
		case "stuck-after":
			cfg.Sensor.StuckAfter = *stuckAfter
		case "renotify":
			cfg.Sensor.Renotify = *renotify
		case "heartbeat":
			cfg.MQTT.Heartbeat = *heartbeat
		case "broker":
			cfg.MQTT.Broker = *broker
		case "pin":
			cfg.Sensor.Pin = *pin
		case "http":
			cfg.Server.HTTPAddr = *httpAddr
		case "ws-broker":
			cfg.MQTT.WSBroker = *wsBroker
		}
	})

	ws := resolveWSBroker(cfg.MQTT.WSBroker, cfg.MQTT.Broker)
	if err := run(cfg, *printState, ws); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg *config.Config, printState bool, wsBroker string) error {
	// Initialize GPIO
	gpioReader, err := gpio.NewRealReader(cfg.Sensor.Pin)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer gpioReader.Close()

	// Print state mode
	if printState {
		blocked, err := gpioReader.Read()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		fmt.Printf("drawer: %s\n", drawerString(blocked))
		return nil
	}

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(cfg.MQTT.Broker)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:       cfg.Sensor.Poll.Milliseconds(),
		StuckAfterMs: cfg.Sensor.StuckAfter.Milliseconds(),
		RenotifyMs:   cfg.Sensor.Renotify.Milliseconds(),
		HeartbeatMs:  cfg.MQTT.Heartbeat.Milliseconds(),
		Broker:       cfg.MQTT.Broker,
		HTTPPort:     cfg.Server.HTTPAddr,
		WSBroker:     wsBroker,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	m := metrics.New()

	// Start HTTP status server
	if cfg.Server.HTTPAddr != "" {
		srv := web.New(cfg.Server.HTTPAddr, tracker, m.Handler())
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.Server.HTTPAddr)
	}

	log.Printf("started: poll=%v stuck-after=%v renotify=%v broker=%s heartbeat=%v",
		cfg.Sensor.Poll, cfg.Sensor.StuckAfter, cfg.Sensor.Renotify, cfg.MQTT.Broker, cfg.MQTT.Heartbeat)

	// The single periodic registration driving the FSM. It lives for the
	// whole process; shutdown is the only thing that stops it.
	ticker := time.NewTicker(cfg.Sensor.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(gpioReader, publisher, publisher, tracker, m,
		cfg.Sensor.StuckAfter, cfg.Sensor.Renotify, cfg.MQTT.Heartbeat,
		time.Now, ticker.C, sigCh)
}

func runLoop(gpioReader gpio.Reader, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, m *metrics.Metrics, stuckAfter, renotify, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	fsm := logic.NewFSM(stuckAfter, renotify, startTime)

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			blocked, err := gpioReader.Read()
			if err != nil {
				log.Printf("gpio read error: %v", err)
				continue
			}

			events := fsm.Process(logic.Input{
				Blocked: blocked,
				Time:    t,
			})

			for _, event := range events {
				log.Printf("event: %s (drawer=%s coins=%d)", event.Type, fsm.CurrentState(), fsm.CoinCount())
				if m != nil {
					m.CountEvent(event.Type)
				}
				if err := publisher.Publish(event); err != nil {
					log.Printf("publish error: %v", err)
					// Don't crash on publish failure
				}
			}

			// Check for heartbeat
			if hbData := fsm.CheckHeartbeat(t, heartbeat); hbData != nil {
				log.Printf("heartbeat: uptime=%v coins=%d stuck_open=%d still_stuck=%d stuck_cleared=%d",
					hbData.Uptime, hbData.Counts.Coins, hbData.Counts.StuckOpen, hbData.Counts.StillStuck, hbData.Counts.StuckCleared)

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					if mqttStatus != nil {
						tracker.SetMQTTConnected(mqttStatus.IsConnected())
					}
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					tracker.Update(fsm.CurrentState(), fsm.CoinCount(), fsm.OpenFor(t), fsm.EventCountsSnapshot())
					snap := tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}

			// Update status tracker and metrics for HTTP consumers
			if tracker != nil {
				tracker.Update(fsm.CurrentState(), fsm.CoinCount(), fsm.OpenFor(t), fsm.EventCountsSnapshot())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}
			if m != nil {
				m.Observe(fsm.CurrentState(), fsm.CoinCount(), fsm.OpenFor(t))
				if mqttStatus != nil {
					m.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}
		}
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

func drawerString(blocked bool) string {
	if blocked {
		return "OPEN"
	}
	return "CLOSED"
}

// resolveWSBroker converts the ws-broker setting into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; "off" disables.
func resolveWSBroker(ws, broker string) string {
	if ws == "off" {
		return ""
	}
	if ws != "=broker" {
		return ws
	}
	u, err := url.Parse(broker)
	if err != nil {
		log.Printf("ws-broker: cannot parse broker %q: %v", broker, err)
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}

// Command device-agent runs the protocol engine as a standalone
// process: connect, handshake, then drive the event loop until the
// process is asked to stop. Grounded in cli.go's
// signal.NotifyContext-based shutdown shape.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nhirsama/deviceproto/internal/config"
	"github.com/nhirsama/deviceproto/internal/crcplatform"
	"github.com/nhirsama/deviceproto/internal/engine"
	"github.com/nhirsama/deviceproto/internal/firmware"
	"github.com/nhirsama/deviceproto/internal/heartbeat"
	"github.com/nhirsama/deviceproto/internal/logging"
	"github.com/nhirsama/deviceproto/internal/memchannel"
	"github.com/nhirsama/deviceproto/internal/registry"
	"github.com/nhirsama/deviceproto/internal/store/sqlitesession"
	"github.com/nhirsama/deviceproto/internal/subscription"
	"github.com/nhirsama/deviceproto/internal/timesync"

	"github.com/nhirsama/deviceproto/internal/channel"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logging.Init("device-agent")

	configPath := os.Getenv("DEVICEPROTO_CONFIG")
	if configPath == "" {
		configPath = "device-agent.yaml"
	}
	cfg, err := config.LoadDeviceConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	dbPath := os.Getenv("DEVICEPROTO_DB")
	if dbPath == "" {
		dbPath = "./device-session.db"
	}
	store, err := sqlitesession.Open(dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("session store open failed")
	}
	defer store.Close()

	platform := crcplatform.New(false)
	reg := registry.New(platform)

	var ch channel.Channel = memchannel.New(channel.FullHandshake)
	ch = sqlitesession.Wrap(ch, store, cfg.DeviceID)

	e := engine.New(ch, platform, reg,
		heartbeat.New(cfg.PingIntervalMs),
		timesync.New(),
		firmware.New(platform),
		subscription.New(reg),
		engine.Identity{
			ProductID:       cfg.ProductID,
			FirmwareVersion: cfg.FirmwareVersion,
			PlatformID:      cfg.PlatformID,
			DeviceID:        []byte(cfg.DeviceID),
		},
		log,
	)
	e.Init()

	var flags engine.ProtocolFlags
	if cfg.RequireHello {
		flags |= engine.RequireHelloResponse
	}
	if cfg.DeviceInitiated {
		flags |= engine.DeviceInitiatedDescribe
	}
	e.SetProtocolFlags(flags)

	if err := e.Begin(); err != nil {
		log.Warn().Err(err).Msg("session begin returned non-nil (may be expected fast-path resume)")
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return
		case now := <-ticker.C:
			elapsed := now.Sub(last).Milliseconds()
			last = now
			if _, err := e.EventLoop(elapsed); err != nil {
				log.Error().Err(err).Msg("event loop error")
			}
		}
	}
}

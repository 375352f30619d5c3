// Command cloud-gateway runs the cloud-side admin dashboard and
// descriptor cache the device-agent's session resumption path talks
// to. Grounded in cli.go's signal.NotifyContext shutdown shape.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nhirsama/deviceproto/internal/cloudweb"
	"github.com/nhirsama/deviceproto/internal/config"
	"github.com/nhirsama/deviceproto/internal/identity"
	"github.com/nhirsama/deviceproto/internal/logging"
	"github.com/nhirsama/deviceproto/internal/store/pgdescriptor"
)

const shutdownTimeout = 5 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logging.Init("cloud-gateway")

	configPath := os.Getenv("DEVICEPROTO_CONFIG")
	if configPath == "" {
		configPath = "cloud-gateway.yaml"
	}
	cfg, err := config.LoadGatewayConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	descs, err := pgdescriptor.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("descriptor store open failed")
	}
	defer descs.Close()

	ids := identity.New()

	adminUser := os.Getenv("DEVICEPROTO_ADMIN_USER")
	adminPass := os.Getenv("DEVICEPROTO_ADMIN_PASS")
	server := cloudweb.New([]byte(cfg.SessionKey), ids, descs, adminUser, adminPass)

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: server.Routes()}
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("cloud-gateway listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	httpServer.Shutdown(shutdownCtx)
}

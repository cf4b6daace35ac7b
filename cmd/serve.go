package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/servicearea/internal/config"
	"github.com/sells-group/servicearea/internal/fetcher"
	"github.com/sells-group/servicearea/internal/registry"
	"github.com/sells-group/servicearea/internal/server"
)

var servePort int

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP lookup server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		env, err := initLookup(ctx, cfg, config.ModeServe, true)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := startReloader(ctx, cfg, env.Holder); err != nil {
			return err
		}

		handler := server.New(env.Service, server.Config{
			APITokens:   cfg.Server.APITokens,
			CORSOrigins: cfg.Server.CORSOrigins,
			Breakers:    env.Breakers,
		})
		srv := server.HTTPServer(fmt.Sprintf(":%d", cfg.Server.Port), handler,
			seconds(cfg.Server.ReadTimeoutSecs), seconds(cfg.Server.WriteTimeoutSecs))

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// startReloader keeps the registry fresh while the server runs: local feeds
// are watched with fsnotify, remote feeds are polled.
func startReloader(ctx context.Context, c *config.Config, holder *registry.Holder) error {
	if !c.Registry.Watch {
		return nil
	}
	buildOpts, err := buildOptions(c.Match)
	if err != nil {
		return err
	}
	src := c.Registry.Source
	reload := registry.ConditionalReload(src, loadOptions(c), buildOpts...)

	if fetcher.IsRemote(src) {
		interval := seconds(c.Registry.PollSecs)
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		zap.L().Info("polling registry feed", zap.String("source", src), zap.Duration("interval", interval))
		go holder.Poll(ctx, interval, reload)
		return nil
	}

	go func() {
		if err := holder.Watch(ctx, src, 500*time.Millisecond, reload); err != nil {
			zap.L().Error("registry watch stopped", zap.Error(err))
		}
	}()
	return nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

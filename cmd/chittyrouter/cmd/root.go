package cmd

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mokiat/gog"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/chittyos/chittyrouter"
	"github.com/chittyos/chittyrouter/config"
	"github.com/chittyos/chittyrouter/internal/mylog"
	"github.com/chittyos/chittyrouter/provider"
	"github.com/chittyos/chittyrouter/server"
)

func newRootCmd() *cobra.Command {
	params := &struct {
		Port int
	}{}
	cmd := &cobra.Command{
		Use:   "chittyrouter [provider-fleet.yaml]",
		Short: "Per-agent AI provider orchestrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			_ = godotenv.Load()

			logConfig := config.NewLogConfig()
			logger := mylog.NewLogger(logConfig.LogLevel, logConfig.LogHandler)
			serverConfig := config.NewServerConfig()
			if params.Port != 0 {
				serverConfig.Port = params.Port
			}

			options := []chittyrouter.Option{
				chittyrouter.WithLogger(logger),
			}
			if len(args) > 0 {
				providers, err := loadFleet(args[0], config.NewProviderConfig())
				if err != nil {
					return err
				}
				logger.Info("provider fleet loaded",
					"providers", gog.Map(providers, func(p provider.Provider) string { return p.ID() }))
				options = append(options, chittyrouter.WithProviders(providers...))
			}

			runtime, err := chittyrouter.NewRuntime(ctx, options...)
			if err != nil {
				return err
			}

			scheduler := cron.New()
			if _, err := scheduler.AddFunc(serverConfig.PruneSchedule, func() {
				if _, err := runtime.PruneEpisodes(context.WithoutCancel(ctx)); err != nil {
					logger.Warn("episodic prune failed", "error", err)
				}
			}); err != nil {
				return err
			}
			scheduler.Start()
			defer scheduler.Stop()

			logger.Info("server started", "port", serverConfig.Port)
			defer logger.Info("server stopped")

			httpServer := &http.Server{
				Addr:    fmt.Sprintf(":%d", serverConfig.Port),
				Handler: server.NewHandler(logger, runtime.Agents()),
				BaseContext: func(l net.Listener) context.Context {
					return ctx
				},
			}

			go func() {
				<-ctx.Done()
				if err := httpServer.Shutdown(context.WithoutCancel(ctx)); err != nil {
					logger.Error("failed to shutdown server", "error", err)
				}
			}()

			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&params.Port, "port", "p", 0, "Port to listen on (overrides PORT)")

	return cmd
}

func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %+v\n", err)
		os.Exit(1)
	}
}

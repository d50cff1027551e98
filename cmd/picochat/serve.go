package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sipeed/picochat/pkg/auth"
	"github.com/sipeed/picochat/pkg/chat"
	"github.com/sipeed/picochat/pkg/config"
	"github.com/sipeed/picochat/pkg/logger"
	"github.com/sipeed/picochat/pkg/session"
	"github.com/sipeed/picochat/pkg/transcript"
	"github.com/sipeed/picochat/pkg/web"
)

const sweepInterval = time.Minute

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			logger.Setup(os.Stderr, logger.ParseLevel(cfg.Log.Level))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath(), "config file (json, yaml or toml)")
	return cmd
}

// serve runs the web server and the session sweeper until ctx is done.
func serve(ctx context.Context, cfg *config.Config) error {
	store, err := transcript.Open(cfg.Store.Backend, cfg.StorePath())
	if err != nil {
		return fmt.Errorf("opening transcript store: %w", err)
	}
	defer store.Close()

	registry := session.NewRegistry(store, session.Options{
		Welcome:   cfg.Chat.WelcomeMessage,
		Responder: chat.PlaceholderResponder{Text: cfg.Chat.ReplyText, Delay: cfg.ReplyDelay()},
		TTL:       cfg.SessionTTL(),
	})

	gate := auth.NewGate(cfg.WebChat.Username, cfg.WebChat.Password)
	srv := web.NewServer(cfg.ListenAddr(), gate, registry, cfg.SessionTTL())

	logger.InfoCF("picochat", "Starting", map[string]interface{}{
		"addr":    cfg.ListenAddr(),
		"store":   cfg.Store.Backend,
		"version": version,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(gctx) })
	g.Go(func() error { return registry.Run(gctx, sweepInterval) })
	err = g.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if cerr := registry.Close(closeCtx); cerr != nil {
		logger.WarnCF("picochat", "Failed to clear sessions", map[string]interface{}{"error": cerr.Error()})
	}
	logger.InfoC("picochat", "Stopped")
	return err
}

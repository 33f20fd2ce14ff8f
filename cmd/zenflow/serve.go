package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"zenflow/internal/app"
	"zenflow/internal/db"
	"zenflow/internal/server"
)

const (
	sessionPruneInterval = time.Hour
	shutdownTimeout      = 5 * time.Second
)

func serveCmd() *cobra.Command {
	var addr, basePath string
	var origins []string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			env, err := app.Open(ctx, app.Options{Workspace: viper.GetString("workspace"), Logger: log})
			if err != nil {
				return err
			}
			defer env.Close()
			if !cmd.Flags().Changed("addr") {
				addr = env.Config.Server.Addr
			}
			if !cmd.Flags().Changed("base-path") {
				basePath = env.Config.Server.BasePath
			}

			secret, generated, err := jwtSecret()
			if err != nil {
				return err
			}
			if generated {
				log.Warn("ZENFLOW_JWT_SECRET not set; using an ephemeral secret, sessions end on restart")
			}
			handler, err := server.New(server.Config{
				Engine:         env.Engine,
				BasePath:       basePath,
				Auth:           server.AuthConfig{JWTSecret: secret},
				Logger:         log.Named("http"),
				AllowedOrigins: origins,
			})
			if err != nil {
				return err
			}

			go pruneSessions(ctx, env, log)

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}
			log.Info("serving ZenFlow API",
				zap.String("addr", ln.Addr().String()),
				zap.String("base_path", basePath),
				zap.String("db", db.Path(env.Workspace)),
				zap.Bool("ai", env.Engine.AI.Available()),
			)
			fmt.Printf("Serving ZenFlow API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at %s/docs)\n", ln.Addr(), basePath, basePath, basePath)
			// Close the bus first so websocket sync loops return.
			return serve(ctx, srv, ln, env.Engine.Events.Close)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address (defaults to server.addr)")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path (defaults to server.base_path)")
	cmd.Flags().StringSliceVar(&origins, "allowed-origin", nil, "origins allowed to open the sync websocket")
	return cmd
}

// serve runs srv until ctx ends and returns only after in-flight requests have drained.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, beforeShutdown func()) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	drained := make(chan error, 1)
	go func() {
		<-ctx.Done()
		if beforeShutdown != nil {
			beforeShutdown()
		}
		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()
		drained <- srv.Shutdown(shutdownCtx)
	}()
	err := srv.Serve(ln)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		cancel()
		<-drained
		return err
	}
	return <-drained
}

// jwtSecret reads ZENFLOW_JWT_SECRET through viper, generating a random one when unset.
func jwtSecret() (string, bool, error) {
	if s := viper.GetString("jwt_secret"); s != "" {
		return s, false, nil
	}
	s, err := randomSecret()
	return s, true, err
}

func pruneSessions(ctx context.Context, env *app.Env, log *zap.Logger) {
	ticker := time.NewTicker(sessionPruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := env.Engine.PruneSessions(ctx)
			if err != nil {
				log.Warn("prune sessions", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Debug("pruned expired sessions", zap.Int64("count", n))
			}
		}
	}
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

package cli

import (
	"chat-workspace/internal/api/handlers"
	"chat-workspace/internal/logger"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long:  `Serve the REST API and the beast-mode event stream until interrupted.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Log.Info("Starting chat workspace server")

		c, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer closeApp(c)

		port := c.AppConfig.Server.Port
		server := &http.Server{
			Addr:              ":" + port,
			Handler:           handlers.NewRouter(c),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Log.WithFields(logrus.Fields{
				"port":           port,
				"storage_driver": c.AppConfig.Database.Driver,
				"provider":       c.AppConfig.LLM.Provider,
				"model":          c.AppConfig.LLM.Model,
				"auth":           c.Auth.Enabled(),
			}).Info("Server starting")
			logger.Log.Infof("Health check: http://localhost:%s/api/health", port)
			errCh <- server.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		logger.Log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), c.AppConfig.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
